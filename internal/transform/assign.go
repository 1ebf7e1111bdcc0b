package transform

import (
	"fmt"

	"checkdp/internal/ast"
	cherrors "checkdp/internal/errors"
	"checkdp/internal/typeenv"
)

// transformDecl implements T-Asgn for a declaration and T-Laplace for a
// `η := Lap(scale)` initializer (spec.md §4.2).
func (t *Transformer) transformDecl(n *ast.Decl) []ast.Stmt {
	if call, ok := n.Init.(*ast.CallExpr); ok && call.Callee == "Lap" {
		return t.transformLaplace(n, call)
	}

	t.types.UpdateBaseType(n.Name, n.BaseType, n.IsArray)
	if n.Init == nil {
		t.types.UpdateDistance(n.Name, typeenv.DistanceZero, typeenv.DistanceZero)
		return []ast.Stmt{n}
	}
	return t.assign(&ast.IdentExpr{Pos: n.Pos, EndPos: n.Pos, Name: n.Name}, n.Name, n.Init, n)
}

// transformAssign implements T-Asgn for a plain (re-)assignment: the
// target's tracked distance is recomputed from the new value under the
// current Γ. A compound assignment ("x += e") is desugared to its
// equivalent full value ("x + e") before the distance is computed, so
// the target's prior distance is folded in rather than discarded.
// Grounded on base.py's Transformer._assign.
func (t *Transformer) transformAssign(n *ast.Assign) []ast.Stmt {
	name, ok := targetName(n.Target)
	if !ok {
		t.fail(cherrors.UnsupportedConstruct("assignment target must be an identifier or array element", n.Pos))
		return []ast.Stmt{n}
	}
	value := n.Value
	if op, ok := compoundOperator(n.Op); ok {
		value = &ast.BinaryExpr{Pos: n.Pos, EndPos: n.Pos, Op: op, Left: n.Target, Right: n.Value}
	}
	return t.assign(n.Target, name, value, n)
}

// assign implements T-Asgn (spec.md §4.2, base.py's Transformer._assign):
// it recomputes name's distance from value under the Γ in effect *before*
// the assignment, folds the result back into Γ, and — outside a loop
// convergence pass — emits the runtime aligned_x/shadow_x statement(s)
// that keep the instrumented program's distance variables in sync with
// Γ. variable carries the assignment target's shape (a bare identifier
// or an array element with its subscript) so the pc-diverging shadow
// update can rebuild shadow_x with the same subscript.
func (t *Transformer) assign(variable ast.Expr, name string, value ast.Expr, stmt ast.Stmt) []ast.Stmt {
	pos := stmt.NodePos()
	old, _ := t.types.GetTypes(name)
	aligned, shadow := t.distanceGen().Visit(value)

	var before, after []ast.Stmt
	if t.loopLevel == 0 {
		if !old.Aligned.IsZero() || !aligned.IsZero() {
			after = append(after, distanceReconcileAssign(pos, "aligned", name, aligned))
		}
		if t.shadowEnabled {
			if t.pc {
				before = append(before, shadowDivergingUpdate(pos, variable, name, value))
			} else if !old.Shadow.IsZero() || !shadow.IsZero() {
				after = append(after, distanceReconcileAssign(pos, "shadow", name, shadow))
			}
		}
	}

	t.types.UpdateDistance(name, aligned, shadow)

	result := make([]ast.Stmt, 0, len(before)+1+len(after))
	result = append(result, before...)
	result = append(result, stmt)
	result = append(result, after...)
	return result
}

// shadowDivergingUpdate builds "shadow_x = (x + shadow_x) - e;" (or its
// ArrayRef-subscripted form), the shadow distance's redefinition when the
// assignment is reached under a diverging pc (base.py's _assign, the
// self._pc branch).
func shadowDivergingUpdate(pos ast.Position, variable ast.Expr, name string, value ast.Expr) ast.Stmt {
	shadowName := "shadow_" + name
	var shadowTarget ast.Expr
	switch v := variable.(type) {
	case *ast.ArrayRef:
		shadowTarget = &ast.ArrayRef{Pos: pos, EndPos: pos, Name: shadowName, Index: v.Index}
	default:
		shadowTarget = &ast.IdentExpr{Pos: pos, EndPos: pos, Name: shadowName}
	}
	rvalue := &ast.BinaryExpr{
		Pos: pos, EndPos: pos, Op: "-",
		Left: &ast.ParenExpr{Pos: pos, EndPos: pos, Inner: &ast.BinaryExpr{
			Pos: pos, EndPos: pos, Op: "+", Left: variable, Right: shadowTarget,
		}},
		Right: value,
	}
	return &ast.Assign{Pos: pos, EndPos: pos, Target: shadowTarget, Op: ast.ASSIGN, Value: rvalue}
}

func compoundOperator(op ast.AssignType) (string, bool) {
	switch op {
	case ast.PLUS_ASSIGN:
		return "+", true
	case ast.MINUS_ASSIGN:
		return "-", true
	case ast.STAR_ASSIGN:
		return "*", true
	case ast.SLASH_ASSIGN:
		return "/", true
	default:
		return "", false
	}
}

func targetName(e ast.Expr) (string, bool) {
	switch n := e.(type) {
	case *ast.IdentExpr:
		return n.Name, true
	case *ast.ArrayRef:
		return n.Name, true
	default:
		return "", false
	}
}

// transformLaplace rewrites "η := Lap(s)" into a declaration initialized
// from sample_array[sample_index], a sample_index bump, and a v_epsilon accumulation
// guarded by η's selector once shadow tracking has been enabled anywhere
// earlier in the function (spec.md §4.2 T-Laplace). A random sample
// reached while pc holds is rejected outright: its shadow distance would
// be meaningless (spec.md §4.2's "random variable declarations under pc
// are forbidden").
func (t *Transformer) transformLaplace(n *ast.Decl, call *ast.CallExpr) []ast.Stmt {
	pos := n.Pos
	if t.pc {
		t.fail(cherrors.RandomUnderDivergence(n.Name, pos))
	}
	if len(call.Args) != 1 {
		t.fail(cherrors.UnsupportedConstruct("Lap() takes exactly one scale argument", pos))
		return []ast.Stmt{n}
	}

	t.types.UpdateBaseType(n.Name, n.BaseType, n.IsArray)
	t.types.UpdateDistance(n.Name, typeenv.DistanceStar, typeenv.DistanceZero)

	if t.loopLevel > 0 {
		// Only the type update matters during a fixed-point iteration; the
		// sampling/cost bookkeeping below is rebuilt on the final pass.
		return []ast.Stmt{n}
	}

	decl := &ast.Decl{
		Pos: pos, EndPos: n.EndPos, Name: n.Name, BaseType: n.BaseType, IsArray: n.IsArray,
		Init: &ast.ArrayRef{
			Pos: pos, EndPos: pos, Name: sampleArrayVar,
			Index: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: sampleIndexVar},
		},
	}
	indexBump := &ast.Assign{
		Pos: pos, EndPos: pos,
		Target: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: sampleIndexVar},
		Op:     ast.PLUS_ASSIGN,
		Value:  &ast.IntLit{Pos: pos, EndPos: pos, Value: 1},
	}

	alignedVar := "aligned_" + n.Name
	costExpr := fmt.Sprintf("(abs(%s) * (1.0 / (%s)))", alignedVar, call.Args[0].String())

	stmts := []ast.Stmt{decl, indexBump}

	var costValue ast.Expr = simplifiedRaw(pos, costExpr)
	if t.shadowEnabled {
		selector := "selector_" + n.Name
		costValue = &ast.TernaryExpr{
			Pos: pos, EndPos: pos,
			Cond: &ast.BinaryExpr{Pos: pos, EndPos: pos, Op: "==",
				Left: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: selector}, Right: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: "SHADOW"}},
			Then: &ast.IntLit{Pos: pos, EndPos: pos, Value: 0},
			Else: costValue,
		}
		stmts = append(stmts, t.shadowSelectorOverwrite(pos, selector)...)
	}

	costUpdate := &ast.Assign{
		Pos: pos, EndPos: pos,
		Target: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: epsilonVar},
		Op:     ast.PLUS_ASSIGN,
		Value:  costValue,
	}
	stmts = append(stmts, costUpdate)
	return stmts
}

// shadowSelectorOverwrite emits, guarded by "selector == SHADOW", the
// aligned_x = shadow_x reconciliation for every currently scalar-tracked
// variable. This is the mode switch spec.md §4.2 describes ("a single
// pass reason[s] about two executions"); arrays are left untouched here
// since their per-index shadow copy needs the alignment array's index
// expression, which only internal/align's template generation can supply.
func (t *Transformer) shadowSelectorOverwrite(pos ast.Position, selector string) []ast.Stmt {
	var body []ast.Stmt
	for _, name := range t.types.Names() {
		info, _ := t.types.GetTypes(name)
		if info.IsArray || !info.Shadow.IsStar() || !info.Aligned.IsStar() {
			continue
		}
		body = append(body, &ast.Assign{
			Pos: pos, EndPos: pos,
			Target: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: "aligned_" + name},
			Op:     ast.ASSIGN,
			Value:  &ast.IdentExpr{Pos: pos, EndPos: pos, Name: "shadow_" + name},
		})
	}
	if len(body) == 0 {
		return nil
	}
	return []ast.Stmt{&ast.If{
		Pos: pos, EndPos: pos,
		Cond: &ast.BinaryExpr{Pos: pos, EndPos: pos, Op: "==",
			Left: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: selector}, Right: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: "SHADOW"}},
		Then: &ast.Block{Pos: pos, EndPos: pos, Stmts: body},
	}}
}
