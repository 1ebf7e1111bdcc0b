// Package driver emits the symbolic-execution harness around a
// postprocessed function (spec.md §4.5): the shared header/macro
// prelude, the per-precondition-class ASSUME seeding of symbolic inputs
// or symbolic alignments, and the main() that calls the function once
// per concrete input batch and asserts on its privacy-cost goal.
// Grounded directly on
// original_source/checkdp/transform/template.py's Template class, built
// in internal/ast/printer.go's strings.Builder idiom rather than
// template.py's f-string concatenation.
package driver

import (
	"fmt"
	"strings"

	"checkdp/internal/align"
	"checkdp/internal/ast"
	"checkdp/internal/preprocess"
	"checkdp/internal/typeenv"
)

const header = `#include <stdio.h>
#include <assert.h>

#ifdef CHECKDP_KLEE
    #include <klee/klee.h>
    void __assert_fail(const char * assertion, const char * file, unsigned int line, const char * function)
    {
        abort();
    }
    #define ASSERT(cond) if (!(cond)) { return (%s + 1); }
    #define OUTPUT(var) {}
    #define ASSUME(cond) klee_assume(cond)
#endif

#ifdef CHECKDP_REAL_RUN
    #define ASSERT(cond) {if (!(cond)) { fprintf(stderr, "%%d", __LINE__); }}
    #define OUTPUT(var) fprintf(stdout, "%%d\n", (var));
    #define ASSUME(cond) {}
#endif

#define Abs(x) ((x) < 0 ? -(x) : (x))
`

// SelectAligned/SelectShadow are the two values a Selector-typed
// alignment_array slot may take; template.py's constants.SELECT_ALIGNED/
// constants.SELECT_SHADOW.
const (
	SelectAligned = 0
	SelectShadow  = 1
)

// Value is one concrete binding for a Template.Fill call: either a
// scalar or a slice, matching the original's Union[_Number, Sequence].
type Value struct {
	Scalar  int
	Array   []int
	IsArray bool
}

func Scalar(v int) Value  { return Value{Scalar: v} }
func Array(vs []int) Value { return Value{Array: vs, IsArray: true} }

// Binding is one round's {name: value} assignment, fed to Template.Fill
// in order; only the last round's concretes, if incomplete, triggers the
// closing klee_assert(0) search for a cost-violating input.
type Binding map[string]Value

// Template holds the postprocessed function plus everything Fill needs
// to splice in a concrete main(): the random-distance/selector macros,
// the privacy-cost goal expression, the alignment_array cell kinds, the
// sample_array sizing closure, and the precondition/hole clauses lifted
// out of the three leading annotations.
type Template struct {
	Types             *typeenv.TypeSystem
	Func              *ast.FuncDef
	RandomDistances   string
	Goal              string
	AlignmentTypes    []align.AlignmentIndexType
	SampleArraySize   func(querySize int) int
	Precondition      preprocess.Precondition
	Assumes           []string
	Holes             []string
	HolePreconditions []string

	queryName, sizeName, epsilonName string
}

// New builds a Template from the pipeline's intermediate results. query/
// size/epsilon name the function's first three parameters (spec.md
// §4.1's fixed order); assumes/holePreconditions are already-rendered
// expression text (internal/cas or the raw parser AST's String()).
func New(types *typeenv.TypeSystem, fn *ast.FuncDef, randomDistances, goal string,
	alignmentTypes []align.AlignmentIndexType, sampleArraySize func(int) int,
	precondition preprocess.Precondition, assumes, holes, holePreconditions []string) *Template {
	return &Template{
		Types: types, Func: fn, RandomDistances: randomDistances, Goal: goal,
		AlignmentTypes: alignmentTypes, SampleArraySize: sampleArraySize,
		Precondition: precondition, Assumes: assumes, Holes: holes, HolePreconditions: holePreconditions,
		queryName: fn.Params[0].Name, sizeName: fn.Params[1].Name, epsilonName: fn.Params[2].Name,
	}
}

// DefaultAlignment is an all-zero alignment_array binding, used for
// debug rendering and as the starting point of a CEGIS round that has
// not synthesized an alignment yet.
func (t *Template) DefaultAlignment() Binding {
	return Binding{"alignment_array": Array(make([]int, len(t.AlignmentTypes)))}
}

// RelatedInputs derives the shadow-side query array from a concrete
// binding's own query array and its aligned distance: the neighboring
// database the validator runs the same synthesized alignment against.
func (t *Template) RelatedInputs(original Binding) Binding {
	related := make(Binding, len(original))
	for k, v := range original {
		related[k] = v
	}
	query := original[t.queryName]
	dist := original["aligned_"+t.queryName]
	shifted := make([]int, len(query.Array))
	for i := range shifted {
		shifted[i] = query.Array[i] + dist.Array[i]
	}
	related[t.queryName] = Array(shifted)
	return related
}

func (t *Template) String() string {
	out, _ := t.Fill([]Binding{t.DefaultAlignment()}, 5, true)
	return out
}

// userAndAddedParams skips the first three parameters (query, size,
// epsilon) and splits the rest by name prefix into hand-written extras and
// the ones internal/postprocess appended (distance/sample/alignment); hole
// parameters match no generated prefix and land in user.
func (t *Template) userAndAddedParams() (user, added []*ast.Param) {
	for i, p := range t.Func.Params {
		if i < 3 {
			continue
		}
		if isGeneratedParam(p.Name) {
			added = append(added, p)
		} else {
			user = append(user, p)
		}
	}
	return
}

func isGeneratedParam(name string) bool {
	for _, prefix := range []string{"aligned_", "shadow_", "sample_array", "alignment_array"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Fill generates the driver's main() and returns the whole transformed
// program text (header, macros, instrumented function, main). concretes
// is one Binding per CEGIS round; every variable the postprocessed
// signature names must appear in exactly one round's Binding, except
// epsilon/size (fixed) and — unless addSymbolicCost demands a search —
// whichever of {inputs, alignment} the caller leaves unbound so the
// solver can search over it.
func (t *Template) Fill(concretes []Binding, querySize int, addSymbolicCost bool) (string, error) {
	if len(concretes) == 0 || len(concretes[0]) == 0 {
		return "", fmt.Errorf("driver: at least one concrete binding must be provided")
	}

	sampleArraySize := t.SampleArraySize(querySize)
	userParams, addedParams := t.userAndAddedParams()

	var b strings.Builder

	fmt.Fprintf(&b, "int %s[%d];\n", t.queryName, querySize)
	fmt.Fprintf(&b, "int %s = 1;\n", t.epsilonName)
	for _, p := range userParams {
		if p.IsArray {
			fmt.Fprintf(&b, "int %s[%d];\n", p.Name, querySize)
		} else {
			fmt.Fprintf(&b, "int %s;\n", p.Name)
		}
	}
	fmt.Fprintf(&b, "int v_symbolic_cost[%d];\n", len(concretes))

	for _, p := range addedParams {
		switch {
		case strings.HasPrefix(p.Name, "aligned_"), strings.HasPrefix(p.Name, "shadow_"):
			fmt.Fprintf(&b, "int %s[%d];\n", p.Name, querySize)
		case p.Name == "sample_array":
			fmt.Fprintf(&b, "int sample_array[%d];\n", sampleArraySize)
		case p.Name == "alignment_array":
			fmt.Fprintf(&b, "int alignment_array[%d];\n", len(t.AlignmentTypes))
		default:
			fmt.Fprintf(&b, "int %s;\n", p.Name)
		}
	}

	hasInputs := has(concretes[0], t.queryName)
	hasAlignments := has(concretes[0], "alignment_array")
	operator := "<"

	if hasInputs && !hasAlignments {
		t.writeAlignmentSearchAssumptions(&b)
		for _, cond := range t.HolePreconditions {
			fmt.Fprintf(&b, "ASSUME(%s);\n", cond)
		}
		operator = "<="
	}
	if hasAlignments && !hasInputs {
		if err := t.writeInputSearchAssumptions(&b, querySize); err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "for(int i = 0; i < %d; i++) {\n  ASSUME(sample_array[i] >= -10);\n  ASSUME(sample_array[i] <= 10);\n}\n", sampleArraySize)
		for _, assumption := range t.Assumes {
			cond := assumption
			if strings.Contains(cond, t.sizeName) {
				cond = strings.ReplaceAll(cond, t.sizeName, fmt.Sprintf("%d", querySize))
			}
			fmt.Fprintf(&b, "ASSUME(%s);\n", cond)
		}
		operator = ">"
	}

	if addSymbolicCost {
		b.WriteString("klee_make_symbolic(v_symbolic_cost, sizeof(v_symbolic_cost), \"v_symbolic_cost\");\n")
	}
	if t.Precondition == preprocess.OneDiffer && hasAlignments && !hasInputs {
		b.WriteString("klee_make_symbolic(&checkdp_index, sizeof(checkdp_index), \"checkdp_index\");\n")
	}

	bound := make(map[string]bool, len(concretes[0]))
	for k := range concretes[0] {
		bound[k] = true
	}
	for _, p := range t.Func.Params {
		if bound[p.Name] || p.Name == t.epsilonName || p.Name == t.sizeName {
			continue
		}
		switch {
		case p.Name == "alignment_array":
			b.WriteString("klee_make_symbolic(alignment_array, sizeof(alignment_array), \"alignment_array\");\n")
		case strings.HasPrefix(p.Name, "aligned_") && p.Name == "aligned_"+t.queryName:
			fmt.Fprintf(&b, "klee_make_symbolic(%s, sizeof(%s), \"%s\");\n", p.Name, p.Name, p.Name)
		case p.Name == "sample_array":
			b.WriteString("klee_make_symbolic(sample_array, sizeof(sample_array), \"sample_array\");\n")
		case strings.HasPrefix(p.Name, "hole_") || containsHole(t.Holes, p.Name):
			fmt.Fprintf(&b, "klee_make_symbolic(&%s, sizeof(%s), \"%s\");\n", p.Name, p.Name, p.Name)
		default:
			info, _ := t.Types.GetTypes(p.Name)
			if info.IsArray {
				fmt.Fprintf(&b, "klee_make_symbolic(%s, sizeof(%s), \"%s\");\n", p.Name, p.Name, p.Name)
			} else {
				fmt.Fprintf(&b, "klee_make_symbolic(&%s, sizeof(%s), \"%s\");\n", p.Name, p.Name, p.Name)
			}
		}
	}

	paramNames := make([]string, len(t.Func.Params))
	for i, p := range t.Func.Params {
		if p.Name == t.sizeName {
			paramNames[i] = fmt.Sprintf("%d", querySize)
		} else {
			paramNames[i] = p.Name
		}
	}
	call := fmt.Sprintf("%s(%s)", t.Func.Name, strings.Join(paramNames, ", "))

	for round, binding := range concretes {
		indent := strings.Repeat("  ", round)
		for name, v := range binding {
			if name == "v_symbolic_cost" {
				continue
			}
			if v.IsArray {
				for i, item := range v.Array {
					fmt.Fprintf(&b, "%s%s[%d] = %d;\n", indent, name, i, item)
				}
			} else {
				fmt.Fprintf(&b, "%s%s = %d;\n", indent, name, v.Scalar)
			}
		}
		fmt.Fprintf(&b, "%sint checkdp_cost_%d = %s;\n", indent, round, call)
		fmt.Fprintf(&b, "%sif (checkdp_cost_%d %s %s) {\n", indent, round, operator, t.Goal)

		if !(hasInputs && hasAlignments) && round == len(concretes)-1 {
			var parts []string
			for i := range concretes {
				parts = append(parts, fmt.Sprintf("checkdp_cost_%d == v_symbolic_cost[%d]", i, i))
			}
			inner := strings.Repeat("  ", round+1)
			fmt.Fprintf(&b, "%sif (%s) {\n", inner, strings.Join(parts, " && "))
			fmt.Fprintf(&b, "%s  klee_assert(0);\n", inner)
			fmt.Fprintf(&b, "%s}\n", inner)
		}
	}
	for round := len(concretes); round > 0; round-- {
		fmt.Fprintf(&b, "%s}\n", strings.Repeat("  ", round-1))
	}

	mainBody := b.String()
	var indented strings.Builder
	for _, line := range strings.Split(strings.TrimRight(mainBody, "\n"), "\n") {
		indented.WriteString("  ")
		indented.WriteString(line)
		indented.WriteByte('\n')
	}

	rendered := strings.Replace(t.Func.String(), "float", "int", -1)
	rendered = strings.ReplaceAll(rendered, "shadow_"+t.queryName, "aligned_"+t.queryName)

	return fmt.Sprintf(fmt.Sprintf(header, t.Goal)+"\n%s\n\n%sint main(void) {\n%s}\n",
		t.RandomDistances, rendered, indented.String()), nil
}

func has(b Binding, name string) bool {
	_, ok := b[name]
	return ok
}

func containsHole(holes []string, name string) bool {
	for _, h := range holes {
		if h == name {
			return true
		}
	}
	return false
}

func (t *Template) writeAlignmentSearchAssumptions(b *strings.Builder) {
	var selectorIdx []int
	for i, ty := range t.AlignmentTypes {
		if ty == align.Selector {
			selectorIdx = append(selectorIdx, i)
		}
	}
	selectorExpr := "0"
	if len(selectorIdx) > 0 {
		parts := make([]string, len(selectorIdx))
		for i, idx := range selectorIdx {
			parts[i] = fmt.Sprintf("i == %d", idx)
		}
		selectorExpr = strings.Join(parts, " || ")
	}
	fmt.Fprintf(b, "for(int i = 0; i < %d; i ++) {\n", len(t.AlignmentTypes))
	fmt.Fprintf(b, "  if(%s) {\n", selectorExpr)
	fmt.Fprintf(b, "    ASSUME(alignment_array[i] >= %d);\n", SelectAligned)
	fmt.Fprintf(b, "    ASSUME(alignment_array[i] <= %d);\n", SelectShadow)
	b.WriteString("  } else {\n")
	b.WriteString("    ASSUME(alignment_array[i] <= 4);\n")
	b.WriteString("    ASSUME(alignment_array[i] >= -4);\n")
	b.WriteString("  }\n")
	b.WriteString("  klee_prefer_cex(alignment_array, alignment_array[i] == 0);\n")
	b.WriteString("}\n")
}

func (t *Template) writeInputSearchAssumptions(b *strings.Builder, querySize int) error {
	q, d := t.queryName, "aligned_"+t.queryName
	switch t.Precondition {
	case preprocess.AllDiffer:
		fmt.Fprintf(b, "for(int i = 0; i < %d; i ++) {\n", querySize)
		fmt.Fprintf(b, "  ASSUME(%s[i] >= -1);\n  ASSUME(%s[i] <= 1);\n", d, d)
		fmt.Fprintf(b, "  ASSUME(%s[i] >= -10);\n  ASSUME(%s[i] <= 10);\n", q, q)
		fmt.Fprintf(b, "  klee_prefer_cex(%s, %s[i] != 0);\n}\n", d, d)
	case preprocess.OneDiffer:
		b.WriteString("ASSUME(checkdp_index >= 0);\n")
		fmt.Fprintf(b, "ASSUME(checkdp_index < %d);\n", querySize)
		fmt.Fprintf(b, "for(int i = 0; i < %d; i ++) {\n", querySize)
		fmt.Fprintf(b, "  ASSUME(%s[i] >= -10);\n  ASSUME(%s[i] <= 10);\n", q, q)
		b.WriteString("  if(checkdp_index == i) {\n")
		fmt.Fprintf(b, "    ASSUME(%s[i] >= -1);\n    ASSUME(%s[i] <= 1);\n", d, d)
		fmt.Fprintf(b, "    klee_prefer_cex(%s, %s[i] != 0);\n  } else {\n", d, d)
		fmt.Fprintf(b, "    ASSUME(%s[i] == 0);\n  }\n}\n", d)
	case preprocess.Decreasing:
		fmt.Fprintf(b, "for(int i = 0; i < %d; i ++) {\n", querySize)
		fmt.Fprintf(b, "  ASSUME(%s[i] >= -1);\n  ASSUME(%s[i] <= 0);\n", d, d)
		fmt.Fprintf(b, "  ASSUME(%s[i] >= -10);\n  ASSUME(%s[i] <= 10);\n", q, q)
		fmt.Fprintf(b, "  klee_prefer_cex(%s, %s[i] != 0);\n}\n", d, d)
	case preprocess.Increasing:
		fmt.Fprintf(b, "for(int i = 0; i < %d; i ++) {\n", querySize)
		fmt.Fprintf(b, "  ASSUME(%s[i] >= 0);\n  ASSUME(%s[i] <= 1);\n", d, d)
		fmt.Fprintf(b, "  ASSUME(%s[i] >= -10);\n  ASSUME(%s[i] <= 10);\n", q, q)
		fmt.Fprintf(b, "  klee_prefer_cex(%s, %s[i] != 0);\n}\n", d, d)
	default:
		return fmt.Errorf("driver: unsupported precondition class %q", t.Precondition)
	}
	return nil
}
