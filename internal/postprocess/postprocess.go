// Package postprocess appends the driver-facing surface to an already
// instrumented function: one parameter per dynamically tracked distance,
// the sample_array/alignment_array inputs, and one parameter per custom
// synthesis hole (spec.md §4.3's "postprocessing" step). Grounded
// directly on original_source/checkdp/transform/postprocess.py's
// PostProcessor.
package postprocess

import (
	"checkdp/internal/ast"
	"checkdp/internal/typeenv"
)

const (
	sampleArrayParam    = "sample_array"
	alignmentArrayParam = "alignment_array"
)

// Result is the postprocessed function plus the sample-array sizing
// function: query_size -> how many int32 samples the driver must
// allocate, a function of how many Lap() calls are reachable per query
// element versus how many are reachable a fixed number of times.
type Result struct {
	FuncDef    *ast.FuncDef
	SampleSize func(querySize int) int
}

// Process appends the distance/sample/alignment/hole parameters to fn
// (already instrumented by internal/transform) and derives the
// sample-array sizing closure from how many Lap() sites live inside a
// query-sized loop versus outside one. queryName/sizeName identify the
// first two parameters (spec.md §4.1's fixed parameter order);
// holeNames lists the ASSUME_HOLE identifiers the driver will supply as
// extra int arguments.
func Process(fn *ast.FuncDef, types *typeenv.TypeSystem, queryName, sizeName string, holeNames []string) *Result {
	pos := fn.Pos
	params := append([]*ast.Param{}, fn.Params...)

	for _, p := range fn.Params {
		info, ok := types.GetTypes(p.Name)
		if !ok {
			continue
		}
		if info.Aligned.IsStar() {
			params = append(params, distanceParam(pos, "aligned", p))
		}
		if p.Name != queryName && info.Shadow.IsStar() {
			params = append(params, distanceParam(pos, "shadow", p))
		}
	}

	params = append(params,
		&ast.Param{Pos: pos, EndPos: pos, Name: sampleArrayParam, BaseType: "int", IsArray: true},
		&ast.Param{Pos: pos, EndPos: pos, Name: alignmentArrayParam, BaseType: "int", IsArray: true},
	)
	for _, hole := range holeNames {
		params = append(params, &ast.Param{Pos: pos, EndPos: pos, Name: hole, BaseType: "int"})
	}

	out := &ast.FuncDef{
		Pos: fn.Pos, EndPos: fn.EndPos,
		Name: fn.Name, Params: params, ReturnType: "int",
		Body: fn.Body,
	}

	loops, constants := countSampleSites(fn.Body, sizeName)
	return &Result{
		FuncDef: out,
		SampleSize: func(querySize int) int {
			return loops*querySize + constants
		},
	}
}

func distanceParam(pos ast.Position, track string, p *ast.Param) *ast.Param {
	return &ast.Param{Pos: pos, EndPos: pos, Name: track + "_" + p.Name, BaseType: p.BaseType, IsArray: p.IsArray}
}

// countSampleSites walks body counting declarations whose initializer is
// "sample_array[sample_index]" — T-Laplace's signature rewrite of a
// Lap() call — weighted by how many nested while loops whose condition
// references sizeName enclose the site. A site outside any such loop
// contributes a constant; one inside contributes once per loop nesting
// level, matching the original's per-iteration accounting.
func countSampleSites(body *ast.Block, sizeName string) (loops, constants int) {
	var walk func(b *ast.Block, sizedDepth int)
	walk = func(b *ast.Block, sizedDepth int) {
		if b == nil {
			return
		}
		for _, stmt := range b.Stmts {
			switch n := stmt.(type) {
			case *ast.Decl:
				if ref, ok := n.Init.(*ast.ArrayRef); ok && ref.Name == sampleArrayParam {
					if sizedDepth == 0 {
						constants++
					} else {
						loops += sizedDepth
					}
				}
			case *ast.While:
				depth := sizedDepth
				if referencesName(n.Cond, sizeName) {
					depth++
				}
				walk(n.Body, depth)
			case *ast.If:
				walk(n.Then, sizedDepth)
				walk(n.Else, sizedDepth)
			case *ast.Block:
				walk(n, sizedDepth)
			}
		}
	}
	walk(body, 0)
	return
}

func referencesName(e ast.Expr, name string) bool {
	switch n := e.(type) {
	case *ast.IdentExpr:
		return n.Name == name
	case *ast.ArrayRef:
		return n.Name == name || referencesName(n.Index, name)
	case *ast.BinaryExpr:
		return referencesName(n.Left, name) || referencesName(n.Right, name)
	case *ast.UnaryExpr:
		return referencesName(n.Operand, name)
	case *ast.TernaryExpr:
		return referencesName(n.Cond, name) || referencesName(n.Then, name) || referencesName(n.Else, name)
	case *ast.ParenExpr:
		return referencesName(n.Inner, name)
	default:
		return false
	}
}
