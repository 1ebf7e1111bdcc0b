package transform

import (
	"checkdp/internal/ast"
	"checkdp/internal/cas"
	"checkdp/internal/typeenv"
)

// transformIf implements T-If (spec.md §4.2): both branches are
// transformed from a shared Γ snapshot, pc is raised for the duration of
// either branch when shadowEnabled holds and the condition is
// shadow-divergent, the two
// resulting environments are merged, each branch gets reconciling
// aligned_x/shadow_x assignments so both sides agree with the merged Γ,
// and — when the condition is shadow-divergent — a deep-copied mirror if
// updates the shadow track under a shadow-substituted condition.
// Grounded on base.py's visit_If / _ShadowBranchGenerator.
func (t *Transformer) transformIf(n *ast.If) []ast.Stmt {
	alignedDiv, shadowDiv := cas.IsDivergent(t.types, n.Cond)
	typesBefore := t.types.Clone()
	beforePC := t.pc
	t.pc = beforePC || (t.shadowEnabled && shadowDiv)

	alignedTrueCond := cas.Replace(n.Cond, typesBefore, true)

	t.types = typesBefore.Clone()
	thenBlock := t.transformBlock(n.Then)
	typesThen := t.types

	t.types = typesBefore.Clone()
	var elseBlock *ast.Block
	if n.Else != nil {
		elseBlock = t.transformBlock(n.Else)
	} else {
		elseBlock = &ast.Block{Pos: n.Pos, EndPos: n.Pos}
	}
	typesElse := t.types
	alignedFalseCond := cas.Replace(n.Cond, t.types, true)

	merged := typesThen.Clone()
	merged.Merge(typesElse)
	t.types = merged

	if t.loopLevel > 0 {
		// Inside a while fixed-point iteration only the type environment
		// matters; the statements built here are discarded once the loop
		// converges and the body is transformed one final time.
		t.pc = beforePC
		var resultElse *ast.Block
		if n.Else != nil {
			resultElse = elseBlock
		}
		return []ast.Stmt{&ast.If{Pos: n.Pos, EndPos: n.EndPos, Cond: n.Cond, Then: thenBlock, Else: resultElse}}
	}

	if alignedDiv {
		thenBlock.Stmts = append([]ast.Stmt{&ast.Assert{Pos: n.Pos, EndPos: n.Pos, Cond: alignedTrueCond}}, thenBlock.Stmts...)
		negated := &ast.UnaryExpr{Pos: n.Pos, EndPos: n.Pos, Op: "!", Operand: &ast.ParenExpr{Pos: n.Pos, EndPos: n.Pos, Inner: alignedFalseCond}}
		elseBlock.Stmts = append([]ast.Stmt{&ast.Assert{Pos: n.Pos, EndPos: n.Pos, Cond: negated}}, elseBlock.Stmts...)
	}

	thenBlock.Stmts = append(thenBlock.Stmts, reconcileStmts(n.Pos, typesThen, merged, true, !t.pc)...)
	elseBlock.Stmts = append(elseBlock.Stmts, reconcileStmts(n.Pos, typesElse, merged, true, !t.pc)...)

	var resultElse *ast.Block
	if n.Else != nil || len(elseBlock.Stmts) > 0 {
		resultElse = elseBlock
	}

	result := []ast.Stmt{&ast.If{Pos: n.Pos, EndPos: n.EndPos, Cond: n.Cond, Then: thenBlock, Else: resultElse}}

	if t.shadowEnabled && t.pc && !beforePC {
		mirrorCond := cas.Replace(n.Cond, typesBefore, false)
		shadowNames := shadowTrackedNames(merged)
		mirror := &ast.If{
			Pos: n.Pos, EndPos: n.EndPos,
			Cond: mirrorCond,
			Then: &ast.Block{Pos: n.Pos, EndPos: n.Pos, Stmts: shadowAssignStmts(n.Pos, n.Then, typesBefore, shadowNames)},
			Else: &ast.Block{Pos: n.Pos, EndPos: n.Pos, Stmts: shadowAssignStmts(n.Pos, n.Else, typesBefore, shadowNames)},
		}
		result = append(result, mirror)
	}

	t.pc = beforePC
	return result
}

// shadowTrackedNames returns the names whose shadow track is dynamically
// tracked ("*") in the merged environment — the only ones the shadow
// mirror branch is allowed to touch (base.py's _ShadowBranchGenerator).
func shadowTrackedNames(merged *typeenv.TypeSystem) map[string]bool {
	set := make(map[string]bool)
	for _, name := range merged.Names() {
		info, _ := merged.GetTypes(name)
		if info.Shadow.IsStar() {
			set[name] = true
		}
	}
	return set
}

// shadowAssignStmts mirrors base.py's _ShadowBranchGenerator: only plain
// assignments to a shadow-tracked scalar survive into the mirror branch,
// rewritten as "shadow_x = (e^shadow) - x" (the shadow distance is
// redefined relative to the post-assignment value of x itself).
func shadowAssignStmts(pos ast.Position, block *ast.Block, typesBefore *typeenv.TypeSystem, tracked map[string]bool) []ast.Stmt {
	if block == nil {
		return nil
	}
	var out []ast.Stmt
	for _, stmt := range block.Stmts {
		assign, ok := stmt.(*ast.Assign)
		if !ok {
			continue
		}
		name, ok := targetName(assign.Target)
		if !ok || !tracked[name] {
			continue
		}
		replaced := cas.Replace(assign.Value, typesBefore, false)
		rvalue := &ast.BinaryExpr{Pos: pos, EndPos: pos, Op: "-", Left: replaced, Right: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: name}}
		out = append(out, &ast.Assign{
			Pos: pos, EndPos: pos,
			Target: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: "shadow_" + name},
			Op:     ast.ASSIGN,
			Value:  rvalue,
		})
	}
	return out
}

// reconcileStmts emits, for each name whose merged distance reports "*"
// on a selected track while branchTypes reports a concrete value, an
// assignment that materializes the concrete value into the track's
// distance variable — so a later fixed-point merge sees both branches
// agreeing. alignedTrack/shadowTrack select which track(s) to reconcile.
func reconcileStmts(pos ast.Position, branchTypes, merged *typeenv.TypeSystem, alignedTrack, shadowTrack bool) []ast.Stmt {
	var stmts []ast.Stmt
	for _, name := range merged.Names() {
		mergedInfo, _ := merged.GetTypes(name)
		branchInfo, ok := branchTypes.GetTypes(name)
		if !ok {
			continue
		}
		if alignedTrack && mergedInfo.Aligned.IsStar() && !branchInfo.Aligned.IsStar() {
			stmts = append(stmts, distanceReconcileAssign(pos, "aligned", name, branchInfo.Aligned))
		}
		if shadowTrack && mergedInfo.Shadow.IsStar() && !branchInfo.Shadow.IsStar() {
			stmts = append(stmts, distanceReconcileAssign(pos, "shadow", name, branchInfo.Shadow))
		}
	}
	return stmts
}

func distanceReconcileAssign(pos ast.Position, track, name string, d typeenv.Distance) ast.Stmt {
	var value ast.Expr
	if d.IsZero() {
		value = &ast.IntLit{Pos: pos, EndPos: pos, Value: 0}
	} else {
		value = &ast.RawExpr{Pos: pos, EndPos: pos, Text: d.Expr}
	}
	return &ast.Assign{
		Pos: pos, EndPos: pos,
		Target: &ast.IdentExpr{Pos: pos, EndPos: pos, Name: track + "_" + name},
		Op:     ast.ASSIGN,
		Value:  value,
	}
}
