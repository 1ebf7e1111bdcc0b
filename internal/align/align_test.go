package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkdp/internal/ast"
	"checkdp/internal/parser"
	"checkdp/internal/preprocess"
	"checkdp/internal/transform"
	"checkdp/internal/typeenv"
)

func buildInstrumented(t *testing.T, src string) *preprocess.Result {
	t.Helper()
	parsed := parser.Parse("t.c", src)
	require.Empty(t, parsed.Errors)
	res, errs := preprocess.Run("t.c", parsed.Program)
	require.Empty(t, errs)
	return res
}

func TestGenerateMacrosSimpleOutputDependency(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  float eta = Lap(1.0);
  OUTPUT(eta);
}`
	res := buildInstrumented(t, src)
	out, errs := transform.Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	macros, arrayTypes := GenerateMacros(out, res.Types, false)
	require.Len(t, macros, 1)
	assert.Equal(t, "RANDOM_DISTANCE_eta", macros[0].Name)
	assert.NotEmpty(t, arrayTypes)
}

func TestGenerateMacrosBranchDependentRandomVariable(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  float eta = Lap(1.0);
  if (query[0] > 0) {
    OUTPUT(eta + query[0]);
  } else {
    OUTPUT(eta);
  }
}`
	res := buildInstrumented(t, src)
	out, errs := transform.Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	order, templates := NewGenerator(res.Types, false).Generate(out)
	require.Contains(t, order, "eta")
	_, ok := templates["eta"]
	require.True(t, ok)
}

// TestAddDependenciesExcludesBareArrayReference mirrors random_distance.py
// :123-128: a dynamically-tracked array contributes to a random
// variable's V-set only when it is reached through a subscripted
// occurrence; a bare reference to the whole array carries no index to
// template against and must be ignored.
func TestAddDependenciesExcludesBareArrayReference(t *testing.T) {
	types := typeenv.New()
	types.UpdateBaseType("query", "int", true)
	types.UpdateDistance("query", typeenv.DistanceStar, typeenv.DistanceZero)

	g := NewGenerator(types, false)
	g.templates["eta"] = &Template{}
	g.liveAt["eta"] = map[string]bool{"eta": true, "query": true}

	bare := &ast.BinaryExpr{Op: "+",
		Left:  &ast.IdentExpr{Name: "eta"},
		Right: &ast.IdentExpr{Name: "query"},
	}
	g.addDependencies(bare, nil)
	assert.Empty(t, g.templates["eta"].Variables)

	subscripted := &ast.BinaryExpr{Op: "+",
		Left:  &ast.IdentExpr{Name: "eta"},
		Right: &ast.ArrayRef{Name: "query", Index: &ast.IntLit{Value: 0}},
	}
	g.addDependencies(subscripted, nil)
	assert.Equal(t, []string{"query"}, g.templates["eta"].Variables)
}
