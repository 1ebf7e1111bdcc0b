// Package preprocess validates a parsed CheckDP program and extracts its
// three leading annotations into the initial two-track type environment,
// the precondition class, the user ASSUME clauses, and the cost goal —
// spec.md §4.1's Preprocessor stage. Grounded directly on
// original_source/checkdp/transform/preprocess.py's Preprocessor/process.
package preprocess

import (
	"checkdp/internal/ast"
	cherrors "checkdp/internal/errors"
	"checkdp/internal/parser"
	"checkdp/internal/typeenv"
)

// Result is everything the transformer (internal/transform) needs to
// start instrumenting: the cleaned program (annotations stripped, Lap
// scales rewritten by the LCM), the initial Γ, and the parsed annotation
// payload.
type Result struct {
	Program      *ast.Program
	Types        *typeenv.TypeSystem
	Precondition Precondition
	Assumes      []ast.Expr
	AssumeHoles  []ast.Expr
	Goal         ast.Expr
	Scale        ScaleRewrite
}

type Preprocessor struct {
	filename string
	errs     []cherrors.CompilerError
}

func New(filename string) *Preprocessor {
	return &Preprocessor{filename: filename}
}

func (p *Preprocessor) fail(err cherrors.CompilerError) {
	p.errs = append(p.errs, err)
}

// Run validates prog and builds a Result. A non-empty error slice means
// the pipeline must abort per spec.md §7's configuration-error contract:
// never retried, reported with location, non-zero exit.
func Run(filename string, prog *ast.Program) (*Result, []cherrors.CompilerError) {
	p := New(filename)
	fn := prog.Func

	checkParameterShape(p, fn)

	parsed, ok := p.parseAnnotations(fn)
	if !ok {
		return nil, p.errs
	}

	types := p.buildTypeEnv(fn, parsed.distances)

	assumes := p.parseExprList(filename, parsed.assumeExprs, func(text string, pos ast.Position) {
		p.fail(cherrors.UnknownPrecondition("ASSUME("+text+")", pos))
	})
	holes := p.parseExprList(filename, parsed.holeExprs, func(text string, pos ast.Position) {
		p.fail(cherrors.UnknownPrecondition("ASSUME_HOLE("+text+")", pos))
	})

	var goal ast.Expr
	if parsed.goalExpr != "" {
		var err error
		goal, err = parseGoalExpr(filename, parsed.goalExpr)
		if err != nil {
			p.fail(cherrors.MalformedGoal(parsed.goalExpr, fn.Pos))
		}
	}

	if len(p.errs) > 0 {
		return nil, p.errs
	}

	cleaned := stripAnnotations(fn)
	scale, ok := rewriteScales(cleaned, goal)
	if !ok {
		p.fail(cherrors.NonConstantScale(parsed.goalExpr, fn.Pos))
		return nil, p.errs
	}

	return &Result{
		Program:      &ast.Program{Pos: prog.Pos, EndPos: prog.EndPos, Func: cleaned},
		Types:        types,
		Precondition: parsed.precondition,
		Assumes:      assumes,
		AssumeHoles:  holes,
		Goal:         scale.Goal,
		Scale:        scale,
	}, nil
}

// checkParameterShape enforces spec.md §4.1's "parameter 2 is int;
// parameter 3 is numeric" contract. internal/parser already rejects <3
// parameters and a non-array first parameter; this fills in the rest.
func checkParameterShape(p *Preprocessor, fn *ast.FuncDef) {
	if len(fn.Params) < 3 {
		return // already reported by internal/parser
	}
	if fn.Params[1].BaseType != "int" || fn.Params[1].IsArray {
		p.fail(cherrors.ParameterContractViolation(
			"second parameter must be a scalar int (the query size)", fn.Params[1].Pos))
	}
	if fn.Params[2].IsArray {
		p.fail(cherrors.ParameterContractViolation(
			"third parameter must be a scalar numeric value (epsilon)", fn.Params[2].Pos))
	}
}

// stripAnnotations returns a FuncDef with Annotations cleared; Body was
// already built without the leading string statements by internal/parser.
func stripAnnotations(fn *ast.FuncDef) *ast.FuncDef {
	return &ast.FuncDef{
		Pos: fn.Pos, EndPos: fn.EndPos,
		Name: fn.Name, Params: fn.Params, ReturnType: fn.ReturnType,
		Body: fn.Body,
	}
}

func parseGoalExpr(filename, text string) (ast.Expr, error) {
	return parser.ParseExpr(filename, text)
}
