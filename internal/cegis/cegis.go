// Package cegis implements the counterexample-guided inductive synthesis
// loop (spec.md §4.6): alternating a "maximize cost over inputs" search
// against a fixed alignment with a "minimize cost over alignments"
// search against fixed inputs, escalating to a final concrete
// re-execution when no alignment covers every counterexample found so
// far. Grounded directly on original_source/checkdp/core.py:run's case
// analysis; the per-iteration scratch file naming and persisted layout
// (spec.md §6) are carried over from the same function.
package cegis

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"checkdp/internal/clang"
	"checkdp/internal/driver"
	"checkdp/internal/logging"
	"checkdp/internal/symex"
)

var log = logging.Get("checkdp.cegis")

// Outcome is the loop's terminal result: either a proof (an alignment
// that survives every input search) or a counterexample (an input for
// which no alignment could be found, together with every candidate
// "bad output" prefix spec.md §4.6's "Counterexample phase" hands the
// probabilistic validator, from shortest to longest.
type Outcome struct {
	Proved         bool
	Alignment      driver.Binding
	Counterexample driver.Binding
	RelatedInputs  driver.Binding
	BadOutputs     [][]float64
}

// Engine owns one run of the CEGIS loop for a single Template. QuerySize
// is the concrete array length every rendered driver program uses (5,
// matching the original's own hard-coded query_size across __main__.py
// and core.py — CheckDP never varies it within one verification run).
type Engine struct {
	Template  *driver.Template
	Clang     *clang.Compiler
	Exec      *symex.KLEE
	OutputDir string
	QuerySize int
}

func New(tmpl *driver.Template, compiler *clang.Compiler, executor *symex.KLEE, outputDir string) *Engine {
	return &Engine{Template: tmpl, Clang: compiler, Exec: executor, OutputDir: outputDir, QuerySize: 5}
}

// Run drives the alternation to completion: PROVED once a fixed
// alignment survives an exhaustive input search, or COUNTEREXAMPLE once
// an input survives final validation against no alignment at all.
func (e *Engine) Run(ctx context.Context) (Outcome, error) {
	alignments := []driver.Binding{e.Template.DefaultAlignment()}
	var counterexamples []driver.Binding

	findInputs := true
	finalValidate := false
	jumpOut := false
	suffix := 0

	log.Info(fmt.Sprintf("start by giving alignment %v", alignments[0]))

	for {
		searchObject := "alignments"
		concretes := counterexamples
		if findInputs {
			searchObject = "inputs"
			concretes = alignments
		}
		if finalValidate && !jumpOut {
			concretes = []driver.Binding{concretes[len(concretes)-1]}
		}

		log.Debug(fmt.Sprintf("searching for %s with %d concrete bindings, final_validate=%v",
			searchObject, len(concretes), finalValidate))

		content := "#define CHECKDP_KLEE\n" + mustFill(e.Template, concretes, e.QuerySize, true)

		// Each round gets its own scratch subdirectory so a crashed klee
		// process from a prior round can never leave stale bitcode behind
		// for the next one to pick up (spec.md §5's "scratch directory
		// exclusive to one iteration").
		scratchDir := filepath.Join(e.OutputDir, "scratch-"+uuid.NewString())
		if err := os.MkdirAll(scratchDir, 0o755); err != nil {
			return Outcome{}, err
		}
		base := filepath.Join(scratchDir, fmt.Sprintf("generate-%s-%d", searchObject, suffix))
		sourceFile, bytecodeFile := base+".c", base+".bc"
		if err := os.WriteFile(sourceFile, []byte(content), 0o644); err != nil {
			return Outcome{}, err
		}
		if err := e.Clang.CompileBytecode(ctx, sourceFile, bytecodeFile, nil, nil); err != nil {
			return Outcome{}, fmt.Errorf("cegis: %w", err)
		}

		result, err := e.Exec.Run(ctx, bytecodeFile, e.Template.Types, findInputs)
		if err != nil {
			return Outcome{}, fmt.Errorf("cegis: %w", err)
		}

		switch {
		case result != nil && findInputs:
			log.Info(fmt.Sprintf("found counterexample %v", result))
			counterexamples = append(counterexamples, result)
			jumpOut = false

		case result == nil && findInputs:
			log.Info("no counterexample for the current alignment; algorithm proved")
			return Outcome{Proved: true, Alignment: alignments[len(alignments)-1]}, nil

		case result != nil && !findInputs && finalValidate:
			log.Notice("counterexample does not survive final validation; refining alignment")
			alignments = append(alignments, result)
			counterexamples = nil
			finalValidate = false
			jumpOut = true

		case result != nil && !findInputs:
			log.Info(fmt.Sprintf("found alignment %v", result))
			alignments[len(alignments)-1] = result

		case result == nil && !findInputs && finalValidate:
			log.Info("counterexample survives final validation")
			final := counterexamples[len(counterexamples)-1]
			related := e.Template.RelatedInputs(final)
			badOutputs, err := e.collectBadOutputs(ctx, final)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{Proved: false, Counterexample: final, RelatedInputs: related, BadOutputs: badOutputs}, nil

		default: // result == nil && !findInputs && !finalValidate
			log.Info("cannot find an alignment; escalating to final executor validation")
			finalValidate = true
			findInputs = !findInputs
			suffix += 1000
		}

		findInputs = !findInputs
		if err := e.Exec.Reset(); err != nil {
			return Outcome{}, err
		}
		suffix++
	}
}

func mustFill(tmpl *driver.Template, concretes []driver.Binding, querySize int, addSymbolicCost bool) string {
	text, err := tmpl.Fill(concretes, querySize, addSymbolicCost)
	if err != nil {
		// Fill only fails on an empty concretes slice, which Run never
		// passes (alignments always starts non-empty).
		panic(err)
	}
	return text
}

// collectBadOutputs replays the instrumented binary once for the
// counterexample input under the default (all-zero) alignment, with
// assertions/symbolic cost stripped, and returns every non-empty prefix
// of its observed OUTPUT() sequence, shortest first — the candidate bad
// outputs cmd/checkdp tries against the probabilistic validator in turn
// until one demonstrates a ratio violation (__main__.py's "for output in
// bad_outputs" loop).
func (e *Engine) collectBadOutputs(ctx context.Context, counterexample driver.Binding) ([][]float64, error) {
	realRun := mergeBindings(counterexample, e.Template.DefaultAlignment())
	content := "#define CHECKDP_REAL_RUN\n" + mustFill(e.Template, []driver.Binding{realRun}, e.QuerySize, false)

	sourceFile := filepath.Join(e.OutputDir, "counterexample_badoutput.c")
	binaryFile := filepath.Join(e.OutputDir, "counterexample_badoutput.bin")
	if err := os.WriteFile(sourceFile, []byte(content), 0o644); err != nil {
		return nil, err
	}
	if err := e.Clang.CompileBinary(ctx, sourceFile, binaryFile, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("cegis: %w", err)
	}

	cmd := exec.CommandContext(ctx, binaryFile)
	var stdout, stderr strings.Builder
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	_ = cmd.Run()
	if stderr.Len() > 0 {
		log.Debug("violation line in transformed file: " + strconv.Quote(stderr.String()))
	}

	full := parseOutputs(stdout.String())
	outputs := make([][]float64, 0, len(full))
	for i := 1; i <= len(full); i++ {
		outputs = append(outputs, full[:i])
	}
	return outputs, nil
}

func mergeBindings(bindings ...driver.Binding) driver.Binding {
	merged := make(driver.Binding)
	for _, b := range bindings {
		for k, v := range b {
			merged[k] = v
		}
	}
	return merged
}

func parseOutputs(s string) []float64 {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	values := make([]float64, 0, len(lines))
	for _, line := range lines {
		if v, err := strconv.ParseFloat(strings.TrimSpace(line), 64); err == nil {
			values = append(values, v)
		}
	}
	return values
}
