package cas

import (
	"fmt"

	"checkdp/internal/ast"
	"checkdp/internal/typeenv"
)

// Replace builds e^aligned (isAligned=true) or e^shadow (isAligned=false):
// every identifier/array reference is rewritten to "x + aligned_x" (or
// "x + <distance>") wherever its track is non-zero, leaving it untouched
// where the track is exactly zero. Grounded on transform/utils.py's
// ExpressionReplacer.
func Replace(e ast.Expr, types *typeenv.TypeSystem, isAligned bool) ast.Expr {
	switch n := e.(type) {
	case *ast.IdentExpr, *ast.ArrayRef:
		return replaceLeaf(n, types, isAligned)
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{Op: n.Op, Left: Replace(n.Left, types, isAligned), Right: Replace(n.Right, types, isAligned)}
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{Op: n.Op, Operand: Replace(n.Operand, types, isAligned)}
	case *ast.TernaryExpr:
		return &ast.TernaryExpr{
			Cond: Replace(n.Cond, types, isAligned),
			Then: Replace(n.Then, types, isAligned),
			Else: Replace(n.Else, types, isAligned),
		}
	case *ast.ParenExpr:
		return &ast.ParenExpr{Inner: Replace(n.Inner, types, isAligned)}
	default:
		return e
	}
}

func replaceLeaf(e ast.Expr, types *typeenv.TypeSystem, isAligned bool) ast.Expr {
	var name string
	var index ast.Expr
	switch n := e.(type) {
	case *ast.IdentExpr:
		name = n.Name
	case *ast.ArrayRef:
		name, index = n.Name, n.Index
	}

	info, _ := types.GetTypes(name)
	distance := info.Aligned
	track := "aligned"
	if !isAligned {
		distance, track = info.Shadow, "shadow"
	}

	if distance.IsZero() {
		return e
	}

	var distanceExpr ast.Expr
	if distance.IsStar() {
		distanceName := fmt.Sprintf("%s_%s", track, name)
		if index != nil {
			distanceExpr = &ast.ArrayRef{Name: distanceName, Index: index}
		} else {
			distanceExpr = &ast.IdentExpr{Name: distanceName}
		}
	} else {
		distanceExpr = &ast.IdentExpr{Name: distance.Expr}
	}

	return &ast.BinaryExpr{Op: "+", Left: e, Right: distanceExpr}
}
