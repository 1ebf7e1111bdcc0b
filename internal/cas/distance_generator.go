package cas

import (
	"fmt"

	"checkdp/internal/ast"
	"checkdp/internal/typeenv"
)

// DistanceGenerator computes, for any expression built from the dialect's
// restricted grammar, the pair (aligned distance, shadow distance) implied
// by the current type environment — the δ(e) of spec.md §4.2's T-Asgn
// rule. Grounded directly on the original implementation's
// transform/utils.py:DistanceGenerator.
type DistanceGenerator struct {
	Types *typeenv.TypeSystem
}

// Visit returns (aligned, shadow) as already-simplified expression text
// wrapped in typeenv.Distance, mirroring visit_BinaryOp's per-component
// zip-and-simplify.
func (g DistanceGenerator) Visit(e ast.Expr) (typeenv.Distance, typeenv.Distance) {
	switch n := e.(type) {
	case *ast.IntLit, *ast.FloatLit:
		return typeenv.DistanceZero, typeenv.DistanceZero

	case *ast.UnaryExpr:
		if _, ok := n.Operand.(*ast.IntLit); ok {
			return typeenv.DistanceZero, typeenv.DistanceZero
		}
		// Only literal operands are well-defined distance sources for a
		// unary op in this dialect; anything else is a transformer bug
		// upstream (the dialect never nests unary over a general expr).
		return typeenv.DistanceZero, typeenv.DistanceZero

	case *ast.IdentExpr:
		info, _ := g.Types.GetTypes(n.Name)
		return starAsVar("aligned", n.Name, info.Aligned), starAsVar("shadow", n.Name, info.Shadow)

	case *ast.ArrayRef:
		info, _ := g.Types.GetTypes(n.Name)
		idx := n.Index.String()
		return starAsArray("aligned", n.Name, idx, info.Aligned), starAsArray("shadow", n.Name, idx, info.Shadow)

	case *ast.BinaryExpr:
		la, ls := g.Visit(n.Left)
		ra, rs := g.Visit(n.Right)
		return combine(n.Op, la, ra), combine(n.Op, ls, rs)

	case *ast.ParenExpr:
		return g.Visit(n.Inner)

	default:
		return typeenv.DistanceZero, typeenv.DistanceZero
	}
}

func starAsVar(track, name string, d typeenv.Distance) typeenv.Distance {
	if !d.IsStar() {
		return d
	}
	return typeenv.TrackedDistance(fmt.Sprintf("(%s_%s)", track, name))
}

func starAsArray(track, name, idx string, d typeenv.Distance) typeenv.Distance {
	if !d.IsStar() {
		return d
	}
	return typeenv.TrackedDistance(fmt.Sprintf("(%s_%s[%s])", track, name, idx))
}

func combine(op string, a, b typeenv.Distance) typeenv.Distance {
	if a.IsZero() && b.IsZero() {
		return typeenv.DistanceZero
	}
	return typeenv.TrackedDistance(SimplifyText(fmt.Sprintf("(%s %s %s)", a.String(), op, b.String())))
}
