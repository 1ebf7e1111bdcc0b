package cas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkdp/internal/ast"
	"checkdp/internal/typeenv"
)

func TestSimplifyAdditiveZero(t *testing.T) {
	e := &ast.BinaryExpr{Op: "+", Left: &ast.IdentExpr{Name: "x"}, Right: &ast.IntLit{Value: 0}}
	got := Simplify(e)
	id, ok := got.(*ast.IdentExpr)
	require.True(t, ok)
	assert.Equal(t, "x", id.Name)
}

func TestSimplifyMultiplicativeZero(t *testing.T) {
	e := &ast.BinaryExpr{Op: "*", Left: &ast.IdentExpr{Name: "x"}, Right: &ast.IntLit{Value: 0}}
	got := Simplify(e)
	lit, ok := got.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(0), lit.Value)
}

func TestSimplifyDoubleNegation(t *testing.T) {
	e := &ast.UnaryExpr{Op: "-", Operand: &ast.UnaryExpr{Op: "-", Operand: &ast.IdentExpr{Name: "x"}}}
	got := Simplify(e)
	id, ok := got.(*ast.IdentExpr)
	require.True(t, ok)
	assert.Equal(t, "x", id.Name)
}

func TestDistanceGeneratorZeroForConstant(t *testing.T) {
	g := DistanceGenerator{Types: typeenv.New()}
	aligned, shadow := g.Visit(&ast.IntLit{Value: 5})
	assert.True(t, aligned.IsZero())
	assert.True(t, shadow.IsZero())
}

func TestDistanceGeneratorStarIdent(t *testing.T) {
	types := typeenv.New()
	types.UpdateDistance("x", typeenv.DistanceStar, typeenv.DistanceZero)
	g := DistanceGenerator{Types: types}

	aligned, shadow := g.Visit(&ast.IdentExpr{Name: "x"})
	assert.Equal(t, "(aligned_x)", aligned.String())
	assert.True(t, shadow.IsZero())
}

func TestDistanceGeneratorBinaryCombinesZeros(t *testing.T) {
	types := typeenv.New()
	g := DistanceGenerator{Types: types}
	expr := &ast.BinaryExpr{Op: "+", Left: &ast.IdentExpr{Name: "a"}, Right: &ast.IdentExpr{Name: "b"}}
	aligned, shadow := g.Visit(expr)
	assert.True(t, aligned.IsZero())
	assert.True(t, shadow.IsZero())
}

func TestReplaceLeavesZeroDistanceAlone(t *testing.T) {
	types := typeenv.New()
	types.UpdateDistance("x", typeenv.DistanceZero, typeenv.DistanceZero)
	got := Replace(&ast.IdentExpr{Name: "x"}, types, true)
	id, ok := got.(*ast.IdentExpr)
	require.True(t, ok)
	assert.Equal(t, "x", id.Name)
}

func TestReplaceStarDistanceAddsAlignedVar(t *testing.T) {
	types := typeenv.New()
	types.UpdateDistance("x", typeenv.DistanceStar, typeenv.DistanceZero)
	got := Replace(&ast.IdentExpr{Name: "x"}, types, true)
	bin, ok := got.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	assert.Equal(t, "(x + aligned_x)", bin.String())
}

func TestIsDivergentDetectsStarVariable(t *testing.T) {
	types := typeenv.New()
	types.UpdateDistance("i", typeenv.DistanceStar, typeenv.DistanceZero)
	cond := &ast.BinaryExpr{Op: "<", Left: &ast.IdentExpr{Name: "i"}, Right: &ast.IdentExpr{Name: "size"}}

	aligned, shadow := IsDivergent(types, cond)
	assert.True(t, aligned)
	assert.False(t, shadow)
}
