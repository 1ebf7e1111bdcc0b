package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkdp/internal/ast"
)

func TestParseSimpleSum(t *testing.T) {
	src := `int sum(int query[], int size, float epsilon) {
  int total = 0;
  int i = 0;
  while (i < size) {
    total += query[i];
    i += 1;
  }
  OUTPUT(total + Lap(1.0 / epsilon));
}`

	res := Parse("sum.c", src)
	require.Empty(t, res.Errors)
	require.NotNil(t, res.Program)

	fn := res.Program.Func
	assert.Equal(t, "sum", fn.Name)
	require.Len(t, fn.Params, 3)
	assert.True(t, fn.Params[0].IsArray)
	assert.Equal(t, "float", fn.Params[2].BaseType)

	require.Len(t, fn.Body.Stmts, 4)
	while, ok := fn.Body.Stmts[2].(*ast.While)
	require.True(t, ok)
	require.Len(t, while.Body.Stmts, 2)
}

func TestParseRejectsReturn(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  return 1;
}`
	res := Parse("bad.c", src)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "E1108", res.Errors[0].Code)
}

func TestParseRejectsUnsupportedCall(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  OUTPUT(printf(1));
}`
	res := Parse("bad2.c", src)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "E1107", res.Errors[0].Code)
}

func TestParseRejectsReservedPrefix(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  int aligned_total = 0;
  OUTPUT(aligned_total);
}`
	res := Parse("bad3.c", src)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "E1106", res.Errors[0].Code)
}

func TestParseStripsLeadingAnnotations(t *testing.T) {
	src := `int sum(int query[], int size, float epsilon) {
  "q : <*, 0>";
  "PRECONDITION:ONE_DIFFER";
  "CHECK:(v_epsilon <= epsilon)";
  int total = 0;
  OUTPUT(total);
}`
	res := Parse("annot.c", src)
	require.Empty(t, res.Errors)
	require.NotNil(t, res.Program)

	fn := res.Program.Func
	require.Len(t, fn.Annotations, 3)
	assert.Equal(t, `"q : <*, 0>"`, fn.Annotations[0])
	assert.Equal(t, `"PRECONDITION:ONE_DIFFER"`, fn.Annotations[1])
	assert.Equal(t, `"CHECK:(v_epsilon <= epsilon)"`, fn.Annotations[2])

	require.Len(t, fn.Body.Stmts, 2)
	_, ok := fn.Body.Stmts[0].(*ast.Decl)
	assert.True(t, ok)
}

func TestParseRejectsStringStmtAfterCode(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  int total = 0;
  "stray";
  OUTPUT(total);
}`
	res := Parse("stray.c", src)
	require.NotEmpty(t, res.Errors)
}

func TestParseTernaryAndAssumeHole(t *testing.T) {
	src := `int f(int query[], int size, float epsilon) {
  int x = query[0] > 0 ? 1 : 0;
  ASSUME(?);
  ASSERT(x >= 0);
  OUTPUT(x);
}`
	res := Parse("ternary.c", src)
	require.Empty(t, res.Errors)

	decl := res.Program.Func.Body.Stmts[0].(*ast.Decl)
	_, ok := decl.Init.(*ast.TernaryExpr)
	assert.True(t, ok)

	assume := res.Program.Func.Body.Stmts[1].(*ast.Assume)
	assert.True(t, assume.IsHole)
	assert.Nil(t, assume.Cond)
}
