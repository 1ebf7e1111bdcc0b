// Package cas is a small, private expression simplifier for the
// transformer's distance arithmetic (spec.md §9's "isolated CAS utility"
// design note). It is not a general computer-algebra system: it only
// eliminates the handful of syntactic redundancies the transformer itself
// introduces (additive zero, multiplicative one/zero, double negation,
// Abs of a literal) over the ~10-node expression grammar CheckDP emits.
//
// Stdlib justification: no pack example or ecosystem package offers a
// small Go expression simplifier for a private integer/boolean AST of this
// size; the teacher has no CAS either. Pulling in a general CAS (there is
// no Go analogue of Python's sympy, which the original implementation
// uses) would be a far heavier dependency than the few algebraic
// identities spec.md §4.1/§9 actually require, so this is hand-rolled.
package cas

import (
	"fmt"
	"strconv"
	"strings"

	"checkdp/internal/ast"
)

// Simplify folds a handful of cheap algebraic identities into e and
// returns a freshly built, printable expression. It never changes the
// value of e; it only shortens its printed form.
func Simplify(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.BinaryExpr:
		left := Simplify(n.Left)
		right := Simplify(n.Right)
		return simplifyBinary(n.Op, left, right)
	case *ast.UnaryExpr:
		operand := Simplify(n.Operand)
		if n.Op == "-" {
			if inner, ok := operand.(*ast.UnaryExpr); ok && inner.Op == "-" {
				return inner.Operand
			}
			if lit, ok := operand.(*ast.IntLit); ok {
				return &ast.IntLit{Value: -lit.Value}
			}
		}
		return &ast.UnaryExpr{Op: n.Op, Operand: operand}
	case *ast.ParenExpr:
		return Simplify(n.Inner)
	case *ast.TernaryExpr:
		return &ast.TernaryExpr{Cond: Simplify(n.Cond), Then: Simplify(n.Then), Else: Simplify(n.Else)}
	case *ast.CallExpr:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = Simplify(a)
		}
		if n.Callee == "Abs" && len(args) == 1 {
			if lit, ok := args[0].(*ast.IntLit); ok {
				if lit.Value < 0 {
					return &ast.IntLit{Value: -lit.Value}
				}
				return lit
			}
		}
		return &ast.CallExpr{Callee: n.Callee, Args: args}
	default:
		return e
	}
}

func simplifyBinary(op string, left, right ast.Expr) ast.Expr {
	switch op {
	case "+":
		if isZero(left) {
			return right
		}
		if isZero(right) {
			return left
		}
	case "-":
		if isZero(right) {
			return left
		}
	case "*":
		if isZero(left) || isZero(right) {
			return &ast.IntLit{Value: 0}
		}
		if isOne(left) {
			return right
		}
		if isOne(right) {
			return left
		}
	}
	if ll, lok := left.(*ast.IntLit); lok {
		if rl, rok := right.(*ast.IntLit); rok {
			if v, ok := foldInt(op, ll.Value, rl.Value); ok {
				return &ast.IntLit{Value: v}
			}
		}
	}
	return &ast.BinaryExpr{Op: op, Left: left, Right: right}
}

func foldInt(op string, a, b int64) (int64, bool) {
	switch op {
	case "+":
		return a + b, true
	case "-":
		return a - b, true
	case "*":
		return a * b, true
	default:
		return 0, false
	}
}

func isZero(e ast.Expr) bool {
	lit, ok := e.(*ast.IntLit)
	return ok && lit.Value == 0
}

func isOne(e ast.Expr) bool {
	lit, ok := e.(*ast.IntLit)
	return ok && lit.Value == 1
}

// SimplifyText works on printed text without reparsing it: it trims
// surrounding whitespace, drops one leading "(" and one trailing ")", and
// prints a bare integer in canonical form; nothing else is simplified. The
// two parentheses are dropped independently of each other, so the result
// is only well formed for text wrapped in one outer pair, which is the
// shape combine and internal/transform's cost expression pass in.
func SimplifyText(expr string) string {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "(")
	expr = strings.TrimSuffix(expr, ")")
	if v, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return fmt.Sprintf("%d", v)
	}
	return expr
}
