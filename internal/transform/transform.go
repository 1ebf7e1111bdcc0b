// Package transform instruments a preprocessed CheckDP program with the
// aligned/shadow distance bookkeeping and the symbolic privacy-cost
// accumulator v_epsilon (spec.md §4.2). Grounded directly on
// original_source/checkdp/transform/base.py's Transformer.
package transform

import (
	"fmt"

	"checkdp/internal/ast"
	"checkdp/internal/cas"
	cherrors "checkdp/internal/errors"
	"checkdp/internal/typeenv"
)

const (
	epsilonVar     = "v_epsilon"
	sampleArrayVar = "sample_array"
	sampleIndexVar = "sample_index"
)

// Transformer carries the mutable state a single instrumentation pass
// threads through the recursive descent: the current two-track type
// environment and whether pc (the shadow-divergence flag) currently
// holds. This mirrors internal/ir/builder.go's context-object-carrying
// traversal style, generalized to the transformer's own state shape.
type Transformer struct {
	types   *typeenv.TypeSystem
	tracker *ast.NodeTracker
	// pc holds while the current statement is nested under a branch or
	// loop whose condition is shadow-divergent, and is only ever raised
	// while shadowEnabled holds: a random sample reached here would have an
	// undefined shadow distance, so T-Laplace rejects it outright.
	pc bool
	// shadowEnabled gates the shadow prelude declarations, the raising of
	// pc, the shadow-mirror if, and the per-sample selector guard
	// T-Laplace inserts around the cost accumulation. Nothing in this
	// package sets it, so it stays false: only the aligned track is
	// instrumented and pc never holds.
	shadowEnabled bool
	// loopLevel counts nested while-loop fixed-point iterations in
	// progress. Statement insertion (asserts, reconciliation, the shadow
	// mirror) only fires at loopLevel == 0 — the type-only passes run
	// during convergence would otherwise duplicate every inserted
	// statement once per iteration.
	loopLevel int
	errs      []cherrors.CompilerError
}

func newTransformer(types *typeenv.TypeSystem) *Transformer {
	return &Transformer{types: types, tracker: ast.NewNodeTracker()}
}

func (t *Transformer) fail(err cherrors.CompilerError) {
	t.errs = append(t.errs, err)
}

// Transform instruments fn's body in place against types (the Γ the
// preprocessor built from the distance annotations) and appends the
// final "return v_epsilon;" statement, mirroring base.py's transform().
func Transform(fn *ast.FuncDef, types *typeenv.TypeSystem) (*ast.FuncDef, []cherrors.CompilerError) {
	t := newTransformer(types)

	body := t.transformBlock(fn.Body)
	body.Stmts = append(t.prelude(fn), body.Stmts...)
	body.Stmts = append(body.Stmts, &ast.Return{
		Pos: fn.EndPos, EndPos: fn.EndPos,
		Value: &ast.IdentExpr{Pos: fn.EndPos, EndPos: fn.EndPos, Name: epsilonVar},
	})

	out := &ast.FuncDef{
		Pos: fn.Pos, EndPos: fn.EndPos,
		Name: fn.Name, Params: fn.Params, ReturnType: "int",
		Body: body,
	}
	return out, t.errs
}

// prelude declares v_epsilon, sample_index, and one distance variable per
// dynamically-tracked *local* (spec.md §4.2's visit_FuncDef preamble).
// Parameters are excluded: their aligned_/shadow_ counterparts arrive as
// real function parameters (internal/postprocess.distanceParam), and
// redeclaring one here as a local would shadow it. sample_index and
// v_epsilon are int/float, not query-sized, so they are simple scalar
// decls with a zero initializer.
func (t *Transformer) prelude(fn *ast.FuncDef) []ast.Stmt {
	pos := fn.Pos
	stmts := []ast.Stmt{
		&ast.Decl{Pos: pos, EndPos: pos, Name: epsilonVar, BaseType: "float", Init: &ast.FloatLit{Pos: pos, EndPos: pos, Value: 0, Text: "0.0"}},
		&ast.Decl{Pos: pos, EndPos: pos, Name: sampleIndexVar, BaseType: "int", Init: &ast.IntLit{Pos: pos, EndPos: pos, Value: 0}},
	}

	params := make(map[string]bool, len(fn.Params))
	for _, param := range fn.Params {
		params[param.Name] = true
	}

	for _, name := range t.types.Names() {
		if params[name] {
			continue
		}
		info, ok := t.types.GetTypes(name)
		if !ok {
			continue
		}
		if info.Aligned.IsStar() {
			stmts = append(stmts, distanceDecl(pos, "aligned", name, info.BaseType, info.IsArray))
		}
		if t.shadowEnabled && info.Shadow.IsStar() {
			stmts = append(stmts, distanceDecl(pos, "shadow", name, info.BaseType, info.IsArray))
		}
	}
	return stmts
}

func distanceDecl(pos ast.Position, track, name, baseType string, isArray bool) *ast.Decl {
	d := &ast.Decl{Pos: pos, EndPos: pos, Name: fmt.Sprintf("%s_%s", track, name), BaseType: baseType, IsArray: isArray}
	if !isArray {
		d.Init = &ast.IntLit{Pos: pos, EndPos: pos, Value: 0}
	}
	return d
}

// transformBlock instruments every statement of block in source order,
// threading t's mutable type environment through. A single source
// statement may expand into several instrumented statements (T-Laplace
// splits one Decl into three); transformStmt returns that whole run.
func (t *Transformer) transformBlock(block *ast.Block) *ast.Block {
	out := &ast.Block{Pos: block.Pos, EndPos: block.EndPos}
	for _, stmt := range block.Stmts {
		out.Stmts = append(out.Stmts, t.transformStmt(stmt)...)
	}
	return out
}

func (t *Transformer) transformStmt(stmt ast.Stmt) []ast.Stmt {
	switch n := stmt.(type) {
	case *ast.Decl:
		return t.transformDecl(n)
	case *ast.Assign:
		return t.transformAssign(n)
	case *ast.If:
		return t.transformIf(n)
	case *ast.While:
		return t.transformWhile(n)
	case *ast.Output:
		return t.transformOutput(n)
	case *ast.Block:
		return []ast.Stmt{t.transformBlock(n)}
	default:
		return []ast.Stmt{stmt}
	}
}

// distanceGen is a convenience wrapper so call sites read like the
// original's "DistanceGenerator(self._type_system).visit(node)".
func (t *Transformer) distanceGen() cas.DistanceGenerator {
	return cas.DistanceGenerator{Types: t.types}
}

func simplifiedRaw(pos ast.Position, text string) ast.Expr {
	return &ast.RawExpr{Pos: pos, EndPos: pos, Text: cas.SimplifyText(text)}
}
