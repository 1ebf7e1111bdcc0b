package transform

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkdp/internal/ast"
	"checkdp/internal/parser"
	"checkdp/internal/preprocess"
)

func mustPreprocess(t *testing.T, src string) *preprocess.Result {
	t.Helper()
	parsed := parser.Parse("t.c", src)
	require.Empty(t, parsed.Errors)
	res, errs := preprocess.Run("t.c", parsed.Program)
	require.Empty(t, errs)
	require.NotNil(t, res)
	return res
}

func TestTransformSumQueryInsertsPreludeAndReturn(t *testing.T) {
	res := mustPreprocess(t, `int sum(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  float total = 0;
  int i = 0;
  while (i < size) {
    total += query[i];
    i += 1;
  }
  OUTPUT(total);
}`)

	out, errs := Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	rendered := out.String()
	assert.True(t, strings.Contains(rendered, "v_epsilon = 0"))
	assert.True(t, strings.Contains(rendered, "sample_index = 0"))

	last := out.Body.Stmts[len(out.Body.Stmts)-1]
	ret, ok := last.(*ast.Return)
	require.True(t, ok)
	ident, ok := ret.Value.(*ast.IdentExpr)
	require.True(t, ok)
	assert.Equal(t, "v_epsilon", ident.Name)
}

func TestPreludeDeclaresLocalDistanceNotParameter(t *testing.T) {
	res := mustPreprocess(t, `int sum(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  float total = 0;
  int i = 0;
  while (i < size) {
    total += query[i];
    i += 1;
  }
  OUTPUT(total);
}`)

	out, errs := Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	var declared []string
	for _, s := range out.Body.Stmts {
		if d, ok := s.(*ast.Decl); ok {
			declared = append(declared, d.Name)
		}
	}
	assert.Contains(t, declared, "aligned_total")
	assert.NotContains(t, declared, "aligned_query")
}

func TestTransformWhileBodySyncsAlignedDistancePerIteration(t *testing.T) {
	res := mustPreprocess(t, `int sum(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  float total = 0;
  int i = 0;
  while (i < size) {
    total += query[i];
    i += 1;
  }
  OUTPUT(total);
}`)

	out, errs := Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	var w *ast.While
	for _, s := range out.Body.Stmts {
		if while, ok := s.(*ast.While); ok {
			w = while
		}
	}
	require.NotNil(t, w)

	found := false
	for _, s := range w.Body.Stmts {
		assign, ok := s.(*ast.Assign)
		if !ok {
			continue
		}
		if ident, ok := assign.Target.(*ast.IdentExpr); ok && ident.Name == "aligned_total" {
			found = true
		}
	}
	assert.True(t, found, "aligned_total must be synced inside the loop body, not only at loop-boundary reconciliation")
}

func TestTransformLaplaceInsertsSamplingAndCost(t *testing.T) {
	res := mustPreprocess(t, `int f(int query[], int size, float epsilon) {
  "query:<0,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  float eta = Lap(1.0);
  OUTPUT(eta);
}`)

	out, errs := Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	rendered := out.String()
	assert.True(t, strings.Contains(rendered, "sample_array[sample_index]"))
	assert.True(t, strings.Contains(rendered, "sample_index += 1"))
	assert.True(t, strings.Contains(rendered, "v_epsilon +="))
}

func TestTransformLaplaceRejectsUnderDivergence(t *testing.T) {
	res := mustPreprocess(t, `int f(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  if (query[0] > 0) {
    float eta = Lap(1.0);
    OUTPUT(eta);
  }
}`)

	_, errs := Transform(res.Program.Func, res.Types)
	require.NotEmpty(t, errs)
	assert.Equal(t, "E1201", errs[0].Code)
}

func TestTransformIfReconcilesDivergentAssignment(t *testing.T) {
	res := mustPreprocess(t, `int f(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  int x = 0;
  if (query[0] > 0) {
    x = query[0];
  } else {
    x = 0;
  }
  OUTPUT(x);
}`)

	out, errs := Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	rendered := out.String()
	assert.True(t, strings.Contains(rendered, "aligned_x"))
	assert.True(t, strings.Contains(rendered, "ASSERT"))
}

func TestTransformWhileReachesFixedPoint(t *testing.T) {
	res := mustPreprocess(t, `int f(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  float total = 0;
  int i = 0;
  while (i < size) {
    total += query[i];
    i += 1;
  }
  OUTPUT(total);
}`)

	out, errs := Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	var w *ast.While
	for _, s := range out.Body.Stmts {
		if while, ok := s.(*ast.While); ok {
			w = while
		}
	}
	require.NotNil(t, w)
	assert.True(t, strings.Contains(w.String(), "total"))
}

func TestTransformOutputAssertsZeroAlignedDistance(t *testing.T) {
	res := mustPreprocess(t, `int f(int query[], int size, float epsilon) {
  "query:<*,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  OUTPUT(query[0]);
}`)

	out, errs := Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	var assertStmt *ast.Assert
	for _, s := range out.Body.Stmts {
		if a, ok := s.(*ast.Assert); ok {
			assertStmt = a
		}
	}
	require.NotNil(t, assertStmt)
}

func TestTransformOutputSkipsAssertionWhenDistanceIsZero(t *testing.T) {
	res := mustPreprocess(t, `int f(int query[], int size, float epsilon) {
  "query:<0,0>;size:<0,0>;epsilon:<0,0>";
  "PRECONDITION:ALL_DIFFER";
  "CHECK:(1)";
  OUTPUT(query[0]);
}`)

	out, errs := Transform(res.Program.Func, res.Types)
	require.Empty(t, errs)

	for _, s := range out.Body.Stmts {
		_, ok := s.(*ast.Assert)
		assert.False(t, ok)
	}
}
