package preprocess

import (
	"math/big"

	"checkdp/internal/ast"
)

// ScaleRewrite is the result of the LCM numeric-scaling pass (spec.md
// §4.1): the common denominator L, and the already-rewritten goal
// expression (the original goal multiplied by L). Lap() call arguments
// inside Program.Func.Body are rewritten in place.
type ScaleRewrite struct {
	L    *big.Int
	Goal ast.Expr
}

// rewriteScales collects every Lap() call's scale argument, computes
// L = lcm{denominator(1/scale_i)} ∪ {denominator(goal)}, and — if L != 1
// — rewrites each scale to scale/L in place and returns L*goal as the new
// Goal. Grounded on transform/preprocess.py's process() LCM step, using
// math/big.Rat/Int in place of sympy.lcm (no CAS-grade rational-lcm
// package exists in the corpus; see DESIGN.md).
func rewriteScales(fn *ast.FuncDef, goal ast.Expr) (ScaleRewrite, bool) {
	calls := findLapCalls(fn.Body)

	denominators := make([]*big.Int, 0, len(calls)+1)
	scales := make([]*big.Rat, 0, len(calls))
	for _, call := range calls {
		if len(call.Args) != 1 {
			return ScaleRewrite{}, false
		}
		r, ok := evalRationalConstant(call.Args[0])
		if !ok || r.Sign() == 0 {
			return ScaleRewrite{}, false
		}
		scales = append(scales, r)
		denominators = append(denominators, new(big.Int).Set(new(big.Rat).Inv(r).Denom()))
	}

	goalRat, ok := evalRationalConstant(goal)
	if !ok {
		return ScaleRewrite{}, false
	}
	denominators = append(denominators, new(big.Int).Set(goalRat.Denom()))

	l := big.NewInt(1)
	for _, d := range denominators {
		l = lcm(l, d)
	}

	if l.Cmp(big.NewInt(1)) != 0 {
		lRat := new(big.Rat).SetInt(l)
		for i, call := range calls {
			scaled := new(big.Rat).Quo(scales[i], lRat)
			call.Args[0] = rationalLiteral(call.Args[0].NodePos(), scaled)
		}
		goalRat = new(big.Rat).Mul(goalRat, lRat)
	}

	return ScaleRewrite{L: l, Goal: rationalLiteral(goal.NodePos(), goalRat)}, true
}

func lcm(a, b *big.Int) *big.Int {
	if a.Sign() == 0 || b.Sign() == 0 {
		return big.NewInt(0)
	}
	g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(a), new(big.Int).Abs(b))
	return new(big.Int).Abs(new(big.Int).Div(new(big.Int).Mul(a, b), g))
}

func rationalLiteral(pos ast.Position, r *big.Rat) ast.Expr {
	if r.IsInt() {
		return &ast.IntLit{Pos: pos, EndPos: pos, Value: r.Num().Int64()}
	}
	f, _ := r.Float64()
	return &ast.FloatLit{Pos: pos, EndPos: pos, Value: f, Text: r.FloatString(10)}
}

// evalRationalConstant folds a constant arithmetic expression (literals,
// unary minus, +-*/) into an exact big.Rat. Identifiers or calls make the
// expression non-constant, per spec.md §4.1's scaling contract (scale
// arguments and the goal must be rational constants, never symbolic).
func evalRationalConstant(e ast.Expr) (*big.Rat, bool) {
	switch n := e.(type) {
	case *ast.IntLit:
		return new(big.Rat).SetInt64(n.Value), true
	case *ast.FloatLit:
		r, ok := new(big.Rat).SetString(n.Text)
		if !ok {
			return nil, false
		}
		return r, true
	case *ast.UnaryExpr:
		v, ok := evalRationalConstant(n.Operand)
		if !ok {
			return nil, false
		}
		switch n.Op {
		case "-":
			return new(big.Rat).Neg(v), true
		case "!":
			return nil, false
		}
		return v, true
	case *ast.BinaryExpr:
		l, ok := evalRationalConstant(n.Left)
		if !ok {
			return nil, false
		}
		r, ok := evalRationalConstant(n.Right)
		if !ok {
			return nil, false
		}
		switch n.Op {
		case "+":
			return new(big.Rat).Add(l, r), true
		case "-":
			return new(big.Rat).Sub(l, r), true
		case "*":
			return new(big.Rat).Mul(l, r), true
		case "/":
			if r.Sign() == 0 {
				return nil, false
			}
			return new(big.Rat).Quo(l, r), true
		default:
			return nil, false
		}
	case *ast.ParenExpr:
		return evalRationalConstant(n.Inner)
	default:
		return nil, false
	}
}

// findLapCalls walks a block depth-first collecting every Decl
// initializer that calls Lap(...), the only place the dialect permits a
// noise sample (T-Laplace, spec.md §4.2).
func findLapCalls(block *ast.Block) []*ast.CallExpr {
	var calls []*ast.CallExpr
	var walkStmt func(ast.Stmt)
	var walkExpr func(ast.Expr)

	walkExpr = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.CallExpr:
			if n.Callee == "Lap" {
				calls = append(calls, n)
			}
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.BinaryExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.UnaryExpr:
			walkExpr(n.Operand)
		case *ast.TernaryExpr:
			walkExpr(n.Cond)
			walkExpr(n.Then)
			walkExpr(n.Else)
		case *ast.ParenExpr:
			walkExpr(n.Inner)
		case *ast.ArrayRef:
			walkExpr(n.Index)
		}
	}

	walkStmt = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.Decl:
			if n.Init != nil {
				walkExpr(n.Init)
			}
		case *ast.Assign:
			walkExpr(n.Value)
		case *ast.If:
			walkExpr(n.Cond)
			for _, st := range n.Then.Stmts {
				walkStmt(st)
			}
			if n.Else != nil {
				for _, st := range n.Else.Stmts {
					walkStmt(st)
				}
			}
		case *ast.While:
			walkExpr(n.Cond)
			for _, st := range n.Body.Stmts {
				walkStmt(st)
			}
		case *ast.Output:
			walkExpr(n.Value)
		case *ast.Block:
			for _, st := range n.Stmts {
				walkStmt(st)
			}
		}
	}

	for _, st := range block.Stmts {
		walkStmt(st)
	}
	return calls
}
