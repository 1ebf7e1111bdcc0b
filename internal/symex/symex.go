// Package symex wraps the KLEE+Z3 symbolic-execution backend (spec.md
// §4.6/§6's executor contract): running KLEE's two solver backends in a
// "first one wins" race, translating the winning path's kquery
// constraints to SMT-LIB via kleaver, appending a maximize/minimize
// objective over the byte-packed symbolic_cost array, and handing the
// assembled query to Z3 for the final model. Grounded directly on
// original_source/checkdp/symex.py's KLEE/Z3 classes, with the
// asyncio.wait(..., FIRST_COMPLETED) race ported to goroutines + a
// buffered result channel + context.Context cancellation — the
// idiomatic Go shape for "first success wins, cancel the rest".
package symex

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"checkdp/internal/driver"
	"checkdp/internal/typeenv"
)

// Z3 drives the z3 binary over an assembled SMT-LIB query file.
type Z3 struct {
	Binary    string
	OutputDir string
}

func NewZ3(binary, outputDir string) (*Z3, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	return &Z3{Binary: binary, OutputDir: outputDir}, nil
}

var valuePattern = regexp.MustCompile(`\(\(\(select (\w+)\s\(_ bv(\d+) 32\)\) #x([0-9a-fA-F]{2})\)\)`)

// Solve appends a (check-sat)/(get-value ...)/(exit) epilogue requesting
// every byte of every variable in variablesLength, runs z3 against the
// result, and unpacks each variable's bytes into a little-endian int32
// sequence (SMT-LIB's bitvector byte order, matching struct.iter_unpack
// on the original's bytearray).
func (z *Z3) Solve(ctx context.Context, constraints []string, variablesLength map[string]int) (bool, map[string][]int32, error) {
	full := append([]string{}, constraints...)
	full = append(full, "(check-sat)")
	for variable, length := range variablesLength {
		for i := 0; i < length; i++ {
			full = append(full, fmt.Sprintf("(get-value ((select %s (_ bv%d 32))))", variable, i))
		}
	}
	full = append(full, "(exit)")

	smtFile := filepath.Join(z.OutputDir, "minmax.smt2")
	if err := os.WriteFile(smtFile, []byte(strings.Join(full, "\n")), 0o644); err != nil {
		return false, nil, err
	}

	cmd := exec.CommandContext(ctx, z.Binary, smtFile)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run()

	output := stdout.String()
	firstLine := strings.SplitN(output, "\n", 2)[0]
	isSat := strings.TrimSpace(firstLine) == "sat"

	variableBytes := make(map[string][]byte, len(variablesLength))
	for variable, length := range variablesLength {
		variableBytes[variable] = make([]byte, length)
	}
	for _, m := range valuePattern.FindAllStringSubmatch(output, -1) {
		variable := m[1]
		byteIndex, _ := strconv.Atoi(m[2])
		value, _ := strconv.ParseUint(m[3], 16, 8)
		if bs, ok := variableBytes[variable]; ok && byteIndex < len(bs) {
			bs[byteIndex] = byte(value)
		}
	}

	objects := make(map[string][]int32, len(variableBytes))
	for variable, bs := range variableBytes {
		ints := make([]int32, len(bs)/4)
		for i := range ints {
			ints[i] = int32(binary.LittleEndian.Uint32(bs[i*4 : i*4+4]))
		}
		objects[variable] = ints
	}
	return isSat, objects, nil
}

// KLEE drives the klee/kleaver binaries over the two-backend race.
type KLEE struct {
	KleeBinary    string
	KleaverBinary string
	Z3            *Z3
	OutputDir     string
	Backends      []string
	SearchHeuristic string
}

func NewKLEE(kleeBinary, kleaverBinary string, z3 *Z3, outputDir string) *KLEE {
	return &KLEE{
		KleeBinary: kleeBinary, KleaverBinary: kleaverBinary, Z3: z3, OutputDir: outputDir,
		Backends: []string{"stp", "z3"}, SearchHeuristic: "dfs",
	}
}

type backendResult struct {
	backend string
	output  string
	err     error
}

// Run launches one klee process per backend, waits for the first to
// complete, kills the rest, and — on a clean KLEE exit containing an
// ASSERTION FAIL marker — extracts, solves, and returns the winning
// path's model. A nil, nil return means the search space was exhausted
// (not an error; spec.md §7's "search exhaustion" case).
func (k *KLEE) Run(ctx context.Context, source string, types *typeenv.TypeSystem, isMaximize bool) (driver.Binding, error) {
	if err := os.RemoveAll(k.OutputDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(k.OutputDir, 0o755); err != nil {
		return nil, err
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan backendResult, len(k.Backends))
	procs := make(map[string]*exec.Cmd, len(k.Backends))
	for _, backend := range k.Backends {
		backend := backend
		backendDir := filepath.Join(k.OutputDir, backend)
		args := []string{
			"-exit-on-error-type=Assert", "-output-dir=" + backendDir, "-use-cex-cache",
			"--solver-backend=" + backend, "-use-independent-solver", "--search=" + k.SearchHeuristic,
			source,
		}
		cmd := exec.CommandContext(raceCtx, k.KleeBinary, args...)
		procs[backend] = cmd
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out
		if err := cmd.Start(); err != nil {
			results <- backendResult{backend: backend, err: err}
			continue
		}
		go func() {
			err := cmd.Wait()
			results <- backendResult{backend: backend, output: out.String(), err: err}
		}()
	}

	winner := <-results
	cancel()
	for backend, cmd := range procs {
		if backend == winner.backend {
			continue
		}
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
	}

	if winner.err != nil && winner.output == "" {
		return nil, fmt.Errorf("klee: backend %s failed to start: %w", winner.backend, winner.err)
	}
	if !strings.Contains(winner.output, "KLEE: done") {
		return nil, fmt.Errorf("klee: did not finish properly, full log:\n%s", winner.output)
	}
	for _, line := range strings.Split(winner.output, "\n") {
		if strings.Contains(line, "ERROR") && !strings.Contains(line, "ASSERTION FAIL") {
			return nil, fmt.Errorf("klee: reported an error: %s, full log:\n%s", line, winner.output)
		}
	}

	solverOutput := filepath.Join(k.OutputDir, winner.backend)
	entries, err := os.ReadDir(solverOutput)
	if err != nil {
		return nil, nil
	}
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".assert.err") {
			continue
		}
		kqueryFile := filepath.Join(solverOutput, strings.Replace(entry.Name(), ".assert.err", ".kquery", 1))
		return k.solveFromKQuery(ctx, kqueryFile, types, isMaximize)
	}
	return nil, nil
}

var arrayDeclPattern = regexp.MustCompile(`array\s+(\w+)\[(\d+)\]\s`)

func (k *KLEE) solveFromKQuery(ctx context.Context, kqueryFile string, types *typeenv.TypeSystem, isMaximize bool) (driver.Binding, error) {
	smtlib, err := k.extractConstraints(ctx, kqueryFile)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimRight(smtlib, "\n"), "\n")
	if len(lines) >= 2 {
		lines = lines[:len(lines)-2] // drop the trailing (check-sat)/(exit) kleaver always emits
	}

	raw, err := os.ReadFile(kqueryFile)
	if err != nil {
		return nil, err
	}
	variableLength := make(map[string]int)
	for _, m := range arrayDeclPattern.FindAllStringSubmatch(string(raw), -1) {
		length, _ := strconv.Atoi(m[2])
		variableLength[m[1]] = length
	}

	costLen, ok := variableLength["v_symbolic_cost"]
	if !ok || costLen == 0 {
		return nil, fmt.Errorf("symex: kquery %s has no v_symbolic_cost array", kqueryFile)
	}
	var costTerms []string
	for i := 0; i < costLen/4; i++ {
		costTerms = append(costTerms, fmt.Sprintf(
			"(concat #x0000 (concat (concat (concat "+
				"(select v_symbolic_cost (_ bv%d 32)) "+
				"(select v_symbolic_cost (_ bv%d 32))) "+
				"(select v_symbolic_cost (_ bv%d 32))) "+
				"(select v_symbolic_cost (_ bv%d 32))))",
			i*4, i*4+1, i*4+2, i*4+3))
	}
	objective := costTerms[len(costTerms)-1]
	for i := len(costTerms) - 2; i >= 0; i-- {
		objective = fmt.Sprintf("(bvadd %s %s)", costTerms[i], objective)
	}
	keyword := "minimize"
	if isMaximize {
		keyword = "maximize"
	}
	lines = append(lines, fmt.Sprintf("(%s %s)", keyword, objective))

	isSat, objects, err := k.Z3.Solve(ctx, lines, variableLength)
	if err != nil {
		return nil, err
	}
	if !isSat {
		return nil, nil
	}

	binding := make(driver.Binding, len(objects))
	for variable, ints := range objects {
		info, _ := types.GetTypes(variable)
		if !info.IsArray {
			if len(ints) != 1 {
				return nil, fmt.Errorf("symex: %s is not registered as an array, but the solver returned %d values", variable, len(ints))
			}
			binding[variable] = driver.Scalar(int(ints[0]))
			continue
		}
		values := make([]int, len(ints))
		for i, v := range ints {
			values[i] = int(v)
		}
		binding[variable] = driver.Array(values)
	}
	return binding, nil
}

func (k *KLEE) extractConstraints(ctx context.Context, kqueryFile string) (string, error) {
	cmd := exec.CommandContext(ctx, k.KleaverBinary, "--print-smtlib", kqueryFile)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("kleaver: %w", err)
	}
	return out.String(), nil
}

// Reset clears the scratch output directory between CEGIS iterations
// (spec.md §5's "scratch directory exclusive to one iteration").
func (k *KLEE) Reset() error {
	return os.RemoveAll(k.OutputDir)
}
