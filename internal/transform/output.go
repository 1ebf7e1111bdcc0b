package transform

import (
	"checkdp/internal/ast"
)

// transformOutput implements the output half of T-Return (spec.md §4.2):
// an OUTPUT(e) call is left untouched but preceded by an assertion that
// e's aligned distance is exactly zero whenever that isn't trivially true
// — a divergent published value would leak more than the declared budget.
// Grounded on base.py's visit_FuncCall handling of the OUTPUT intrinsic.
func (t *Transformer) transformOutput(n *ast.Output) []ast.Stmt {
	aligned, _ := t.distanceGen().Visit(n.Value)
	if aligned.IsZero() {
		return []ast.Stmt{n}
	}

	assertion := &ast.Assert{
		Pos: n.Pos, EndPos: n.Pos,
		Cond: &ast.BinaryExpr{
			Pos: n.Pos, EndPos: n.Pos, Op: "==",
			Left:  &ast.RawExpr{Pos: n.Pos, EndPos: n.Pos, Text: aligned.Expr},
			Right: &ast.IntLit{Pos: n.Pos, EndPos: n.Pos, Value: 0},
		},
	}
	return []ast.Stmt{assertion, n}
}
