// Package validate wraps the PSI probabilistic-programming compiler, the
// external collaborator spec.md §4.7 treats as interface-only: given a
// PSI distribution template and two concrete inputs differing in one
// key, it fills the template with each input's concrete values, shells
// out to the psi binary for the output distribution's exact PDF, and
// concretizes that PDF at a fixed bad-output sequence into the two
// probabilities the CEGIS loop's ratio check compares. Grounded directly
// on original_source/checkdp/validate.py's PSI class.
package validate

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"checkdp/internal/driver"
)

var (
	returnPattern      = regexp.MustCompile(`return\s*(.*)\s*;`)
	identifierPattern  = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)
)

// PSI drives the external psi binary over a distribution template file.
type PSI struct {
	Binary    string
	OutputDir string
}

func New(binary, outputDir string) *PSI {
	return &PSI{Binary: binary, OutputDir: outputDir}
}

// preprocess finds the template's single "return <ident>;" statement and
// confirms the returned variable is declared as a PSI list (`[]:R[]`),
// returning its name. original_source/checkdp/validate.py's
// PSI._preprocess only ever supports one return of a bare identifier
// declared this way; anything else is a configuration mistake in the
// template, not a runtime one.
func preprocess(template string) (string, error) {
	returns := returnPattern.FindAllStringSubmatch(template, -1)
	if len(returns) > 1 {
		return "", fmt.Errorf("validate: multiple return statements found, only one is supported")
	}
	if len(returns) == 0 {
		return "", fmt.Errorf("validate: no return statement found")
	}
	variable := strings.TrimSpace(returns[0][1])
	if !identifierPattern.MatchString(variable) {
		return "", fmt.Errorf("validate: returned expression %q is not a bare identifier; wrap it in a list and return the list instead", variable)
	}

	declPattern := regexp.MustCompile(regexp.QuoteMeta(variable) + `\s*:=\s*(\(\[\s*\]\s*:\s*R\[\s*\]\))`)
	decl := declPattern.FindStringSubmatch(template)
	if decl == nil {
		return "", fmt.Errorf("validate: cannot find declaration for output variable %s", variable)
	}
	if strings.ReplaceAll(decl[1], " ", "") != "([]:R[])" {
		return "", fmt.Errorf("validate: returned variable %s is declared as %s, not list ([]:R[])", variable, decl[1])
	}
	return variable, nil
}

// ConcretizeProbability substitutes badOutput's values into pdf (a PSI
// "${var}$"-free output distribution already rendered against one
// concrete input, so only the returnedVariable0.. and length
// placeholders remain), replaces PSI's bracket-parenthesis convention
// and its trivial Boole/DiracDelta terms, then evaluates the remaining
// arithmetic expression. Grounded on PSI.concretize_probability; the
// sympy.cancel/sympy.simplify pass there is replaced by
// internal/validate's own small arithmetic evaluator (evalExpr) since no
// pack example wires a symbolic-math library and the expression left
// after substitution is, by construction, fully concrete arithmetic.
func ConcretizeProbability(pdf, outputVariable string, badOutput []float64) (float64, error) {
	for i, v := range badOutput {
		pdf = strings.ReplaceAll(pdf, fmt.Sprintf("%s%d", outputVariable, i), formatFloat(v))
	}
	pdf = strings.ReplaceAll(pdf, "length", strconv.Itoa(len(badOutput)))

	pdf = strings.ReplaceAll(pdf, "[", "(")
	pdf = strings.ReplaceAll(pdf, "]", ")")
	pdf = strings.ReplaceAll(pdf, "Boole(True)", "1")
	pdf = strings.ReplaceAll(pdf, "Boole(False)", "0")
	pdf = strings.ReplaceAll(pdf, "DiracDelta(0)", "1")

	return evalExpr(pdf)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Validate fills template with inputs1/inputs2 in turn (substituting
// "$name$" placeholders with each input's concrete value), rewrites the
// template's single return statement into one that exposes badOutput's
// elements plus the output sequence length, runs psi against each filled
// template, and concretizes the resulting PDFs at badOutput. Returns
// (p(badOutput | inputs1), p(badOutput | inputs2)).
func (p *PSI) Validate(ctx context.Context, templatePath string, inputs1, inputs2 driver.Binding, badOutput []float64) ([2]float64, error) {
	raw, err := os.ReadFile(templatePath)
	if err != nil {
		return [2]float64{}, err
	}
	template := string(raw)

	queryVariable, err := differingKey(inputs1, inputs2)
	if err != nil {
		return [2]float64{}, err
	}

	returnedVariable, err := preprocess(template)
	if err != nil {
		return [2]float64{}, err
	}

	var results [2]float64
	for i, inputs := range [2]driver.Binding{inputs1, inputs2} {
		content := template
		for name, v := range inputs {
			content = strings.ReplaceAll(content, "$"+name+"$", renderValue(v))
		}

		parts := make([]string, len(badOutput))
		for j := range badOutput {
			parts[j] = fmt.Sprintf("%s(%d)", returnedVariable, j)
		}
		replacement := fmt.Sprintf("return (%s,%s.length);", strings.Join(parts, ","), returnedVariable)
		content = returnPattern.ReplaceAllLiteralString(content, replacement)

		query := inputs[queryVariable]
		inputSeq := joinInts(query.Array)
		outputSeq := joinFloats(badOutput)
		outFile := filepath.Join(p.OutputDir, fmt.Sprintf("psi_input_%s_output_%s.psi", inputSeq, outputSeq))
		if err := os.WriteFile(outFile, []byte(content), 0o644); err != nil {
			return [2]float64{}, err
		}

		cmd := exec.CommandContext(ctx, p.Binary, "--mathematica", "--raw", outFile)
		var stdout, stderr bytes.Buffer
		cmd.Stdout, cmd.Stderr = &stdout, &stderr
		if err := cmd.Run(); stderr.Len() > 0 {
			return [2]float64{}, fmt.Errorf("validate: psi returned error: %s", stderr.String())
		} else if err != nil {
			return [2]float64{}, err
		}

		prob, err := ConcretizeProbability(stdout.String(), returnedVariable, badOutput)
		if err != nil {
			return [2]float64{}, err
		}
		results[i] = prob
	}
	return results, nil
}

func differingKey(a, b driver.Binding) (string, error) {
	var key string
	count := 0
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !valuesEqual(av, bv) {
			key, count = k, count+1
		}
	}
	if count != 1 {
		return "", fmt.Errorf("validate: inputs must differ in exactly one key, found %d differing", count)
	}
	return key, nil
}

func valuesEqual(a, b driver.Value) bool {
	if a.IsArray != b.IsArray {
		return false
	}
	if !a.IsArray {
		return a.Scalar == b.Scalar
	}
	if len(a.Array) != len(b.Array) {
		return false
	}
	for i := range a.Array {
		if a.Array[i] != b.Array[i] {
			return false
		}
	}
	return true
}

func renderValue(v driver.Value) string {
	if !v.IsArray {
		return strconv.Itoa(v.Scalar)
	}
	parts := make([]string, len(v.Array))
	for i, x := range v.Array {
		parts[i] = strconv.Itoa(x)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func joinInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, "_")
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, "_")
}

// RatioExceeds reports whether the CEGIS loop's privacy-violation check
// max(pA,pB)/min(pA,pB) > e^(k*epsilon) holds, k defaulting to 1
// (REDESIGN FLAG (b), spec.md §9: exposed as a caller-supplied factor
// rather than a filename-matched special case for one algorithm family).
func RatioExceeds(pA, pB, epsilon float64, k int) bool {
	hi, lo := pA, pB
	if lo > hi {
		hi, lo = lo, hi
	}
	if lo <= 0 {
		return hi > 0
	}
	ratio := hi / lo
	bound := math.Exp(float64(k) * epsilon)
	return ratio > bound
}
