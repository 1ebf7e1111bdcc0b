package cas

import (
	"checkdp/internal/ast"
	"checkdp/internal/typeenv"
)

// IsDivergent reports, for each track, whether cond references any
// variable whose distance on that track is "*" — i.e. whether branching
// on cond can make the aligned/shadow executions take different paths.
// Grounded on transform/utils.py:is_divergent.
func IsDivergent(types *typeenv.TypeSystem, cond ast.Expr) (alignedDivergent, shadowDivergent bool) {
	for _, name := range identNames(cond) {
		info, ok := types.GetTypes(name)
		if !ok {
			continue
		}
		if info.Aligned.IsStar() {
			alignedDivergent = true
		}
		if info.Shadow.IsStar() {
			shadowDivergent = true
		}
	}
	return
}

func identNames(e ast.Expr) []string {
	var names []string
	var walk func(ast.Expr)
	walk = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.IdentExpr:
			names = append(names, n.Name)
		case *ast.ArrayRef:
			names = append(names, n.Name)
			walk(n.Index)
		case *ast.BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case *ast.UnaryExpr:
			walk(n.Operand)
		case *ast.TernaryExpr:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		case *ast.ParenExpr:
			walk(n.Inner)
		case *ast.CallExpr:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return names
}
