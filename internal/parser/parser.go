// Package parser turns CheckDP dialect source into internal/ast, on top
// of a participle grammar (checkdp/grammar). It owns the one structural
// contract the grammar itself cannot express: exactly one function, a
// parameter list shaped like query[]/size/epsilon/..., no reserved-prefix
// collisions, and no call to anything but the Lap intrinsic.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"checkdp/grammar"
	"checkdp/internal/ast"
	cherrors "checkdp/internal/errors"
)

var reservedPrefixes = []string{"aligned_", "shadow_", "sample_", "selector_", "v_epsilon"}

var build = participle.MustBuild[grammar.Program](
	participle.Lexer(grammar.CheckDPLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(4),
)

var exprBuild = participle.MustBuild[grammar.Expr](
	participle.Lexer(grammar.CheckDPLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(4),
)

// ParseExpr parses a single bare expression — used by internal/preprocess
// for the ASSUME/ASSUME_HOLE/CHECK annotation payloads, which are
// expressions in the same dialect grammar but never a full function body.
func ParseExpr(filename, source string) (ast.Expr, error) {
	tree, err := exprBuild.ParseString(filename, source)
	if err != nil {
		return nil, err
	}
	c := &converter{filename: filename}
	e := c.convertExpr(tree)
	if len(c.errs) > 0 {
		return e, fmt.Errorf("%s", c.errs[0].Message)
	}
	return e, nil
}

// Result carries the converted program plus every diagnostic collected
// along the way. A non-empty Errors slice means Program may be partially
// built and must not be handed to internal/preprocess.
type Result struct {
	Program *ast.Program
	Errors  []cherrors.CompilerError
}

func Parse(filename, source string) Result {
	tree, err := build.ParseString(filename, source)
	if err != nil {
		return Result{Errors: []cherrors.CompilerError{syntaxError(err)}}
	}

	c := &converter{filename: filename}
	prog := c.convertProgram(tree)
	return Result{Program: prog, Errors: c.errs}
}

func syntaxError(err error) cherrors.CompilerError {
	pos := ast.Position{Line: 1, Column: 1}
	if pe, ok := err.(participle.Error); ok {
		p := pe.Position()
		pos = ast.Position{Filename: p.Filename, Offset: p.Offset, Line: p.Line, Column: p.Column}
	}
	return cherrors.NewConfigError(cherrors.ErrorSyntax, err.Error(), pos).Build()
}

type converter struct {
	filename string
	errs     []cherrors.CompilerError
}

func (c *converter) pos(p lexer.Position) ast.Position {
	return ast.Position{Filename: c.filename, Offset: p.Offset, Line: p.Line, Column: p.Column}
}

func (c *converter) checkReserved(name string, pos ast.Position) {
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			c.errs = append(c.errs, cherrors.ReservedNameCollision(name, pos))
			return
		}
	}
}

func (c *converter) convertProgram(g *grammar.Program) *ast.Program {
	fn := c.convertFuncDef(g.Func)
	return &ast.Program{
		Pos:    c.pos(g.Pos),
		EndPos: c.pos(g.EndPos),
		Func:   fn,
	}
}

func (c *converter) convertFuncDef(g *grammar.FuncDef) *ast.FuncDef {
	params := make([]*ast.Param, 0, len(g.Params))
	for _, p := range g.Params {
		params = append(params, c.convertParam(p))
	}

	if len(params) < 3 {
		c.errs = append(c.errs, cherrors.ParameterContractViolation(
			fmt.Sprintf("function %q declares %d parameters, need at least 3", g.Name, len(params)),
			c.pos(g.Pos)))
	} else if !params[0].IsArray {
		c.errs = append(c.errs, cherrors.ParameterContractViolation(
			"first parameter must be the query array, e.g. 'int query[]'", params[0].Pos))
	}

	annotations, rest := splitAnnotations(g.Body.Stmts)

	return &ast.FuncDef{
		Pos:         c.pos(g.Pos),
		EndPos:      c.pos(g.EndPos),
		Name:        g.Name,
		Params:      params,
		ReturnType:  g.ReturnType,
		Annotations: annotations,
		Body:        c.convertBlock(&grammar.Block{Pos: g.Body.Pos, EndPos: g.Body.EndPos, Stmts: rest}),
	}
}

// splitAnnotations peels off the leading run of bare string-literal
// statements (up to 3, per spec.md §4.1) from the front of a function
// body. A string statement appearing after ordinary code is left in
// place — it is not a well-formed program, and internal/preprocess
// reports it as an annotation-count mismatch rather than the parser
// silently swallowing it.
func splitAnnotations(stmts []*grammar.Stmt) ([]string, []*grammar.Stmt) {
	var annotations []string
	i := 0
	for i < len(stmts) && i < 3 && stmts[i].Annot != nil {
		annotations = append(annotations, stmts[i].Annot.Text)
		i++
	}
	return annotations, stmts[i:]
}

func (c *converter) convertParam(g *grammar.Param) *ast.Param {
	pos := c.pos(g.Pos)
	c.checkReserved(g.Name, pos)
	return &ast.Param{
		Pos:      pos,
		EndPos:   c.pos(g.EndPos),
		Name:     g.Name,
		BaseType: g.BaseType,
		IsArray:  g.IsArray,
	}
}

func (c *converter) convertBlock(g *grammar.Block) *ast.Block {
	stmts := make([]ast.Stmt, 0, len(g.Stmts))
	for _, s := range g.Stmts {
		if stmt := c.convertStmt(s); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return &ast.Block{Pos: c.pos(g.Pos), EndPos: c.pos(g.EndPos), Stmts: stmts}
}

func (c *converter) convertStmt(g *grammar.Stmt) ast.Stmt {
	switch {
	case g.Annot != nil:
		c.errs = append(c.errs, cherrors.UnsupportedConstruct(
			"string-literal statement outside the three leading annotations", c.pos(g.Annot.Pos)))
		return nil
	case g.Decl != nil:
		return c.convertDecl(g.Decl)
	case g.If != nil:
		return c.convertIf(g.If)
	case g.While != nil:
		return c.convertWhile(g.While)
	case g.Output != nil:
		return &ast.Output{
			Pos: c.pos(g.Output.Pos), EndPos: c.pos(g.Output.EndPos),
			Value: c.convertExpr(g.Output.Value),
		}
	case g.Assert != nil:
		return &ast.Assert{
			Pos: c.pos(g.Assert.Pos), EndPos: c.pos(g.Assert.EndPos),
			Cond: c.convertExpr(g.Assert.Cond),
		}
	case g.Assume != nil:
		var cond ast.Expr
		if g.Assume.Cond != nil {
			cond = c.convertExpr(g.Assume.Cond)
		}
		return &ast.Assume{
			Pos: c.pos(g.Assume.Pos), EndPos: c.pos(g.Assume.EndPos),
			Cond: cond, IsHole: g.Assume.IsHole,
		}
	case g.Return != nil:
		c.errs = append(c.errs, cherrors.ReturnInUserCode(c.pos(g.Return.Pos)))
		return nil
	case g.Assign != nil:
		return c.convertAssign(g.Assign)
	case g.Nested != nil:
		return c.convertBlock(g.Nested)
	}
	return &ast.BadStmt{Pos: c.pos(g.Pos), EndPos: c.pos(g.EndPos), Message: "empty statement"}
}

func (c *converter) convertDecl(g *grammar.DeclStmt) *ast.Decl {
	pos := c.pos(g.Pos)
	c.checkReserved(g.Name, pos)

	var arrayLen, init ast.Expr
	if g.ArrayLen != nil {
		arrayLen = c.convertExpr(g.ArrayLen)
	}
	if g.Init != nil {
		init = c.convertExpr(g.Init)
	}

	return &ast.Decl{
		Pos: pos, EndPos: c.pos(g.EndPos),
		Name: g.Name, BaseType: g.BaseType,
		IsArray: g.IsArray, ArrayLen: arrayLen, Init: init,
	}
}

func (c *converter) convertAssign(g *grammar.AssignStmt) *ast.Assign {
	pos := c.pos(g.Pos)
	c.checkReserved(g.Name, pos)

	var target ast.Expr = &ast.IdentExpr{Pos: pos, EndPos: pos, Name: g.Name}
	if g.IsIndexed {
		target = &ast.ArrayRef{Pos: pos, EndPos: c.pos(g.EndPos), Name: g.Name, Index: c.convertExpr(g.Index)}
	}

	return &ast.Assign{
		Pos: pos, EndPos: c.pos(g.EndPos),
		Target: target, Op: convertAssignOp(g.Op), Value: c.convertExpr(g.Value),
	}
}

func convertAssignOp(op string) ast.AssignType {
	switch op {
	case "+=":
		return ast.PLUS_ASSIGN
	case "-=":
		return ast.MINUS_ASSIGN
	case "*=":
		return ast.STAR_ASSIGN
	case "/=":
		return ast.SLASH_ASSIGN
	default:
		return ast.ASSIGN
	}
}

func (c *converter) convertIf(g *grammar.IfStmt) *ast.If {
	var elseBlock *ast.Block
	if g.Else != nil {
		elseBlock = c.convertBlock(g.Else)
	}
	return &ast.If{
		Pos: c.pos(g.Pos), EndPos: c.pos(g.EndPos),
		Cond: c.convertExpr(g.Cond), Then: c.convertBlock(g.Then), Else: elseBlock,
	}
}

func (c *converter) convertWhile(g *grammar.WhileStmt) *ast.While {
	return &ast.While{
		Pos: c.pos(g.Pos), EndPos: c.pos(g.EndPos),
		Cond: c.convertExpr(g.Cond), Body: c.convertBlock(g.Body),
	}
}

// --- expressions: each precedence level folds its Rest list into a
// left-associative ast.BinaryExpr chain, mirroring the teacher's
// BinaryExpr/BinOp flattening in grammar.go, generalized to one level
// per operator class instead of a single flat chain.

func (c *converter) convertExpr(g *grammar.Expr) ast.Expr {
	cond := c.convertLogicOr(g.Cond)
	if g.Then == nil {
		return cond
	}
	then := c.convertExpr(g.Then)
	els := c.convertExpr(g.Else)
	return &ast.TernaryExpr{Pos: c.pos(g.Pos), EndPos: c.pos(g.EndPos), Cond: cond, Then: then, Else: els}
}

func (c *converter) convertLogicOr(g *grammar.LogicOr) ast.Expr {
	expr := c.convertLogicAnd(g.Left)
	for _, r := range g.Rest {
		right := c.convertLogicAnd(r)
		expr = &ast.BinaryExpr{Pos: expr.NodePos(), EndPos: right.NodeEndPos(), Op: "||", Left: expr, Right: right}
	}
	return expr
}

func (c *converter) convertLogicAnd(g *grammar.LogicAnd) ast.Expr {
	expr := c.convertEquality(g.Left)
	for _, r := range g.Rest {
		right := c.convertEquality(r)
		expr = &ast.BinaryExpr{Pos: expr.NodePos(), EndPos: right.NodeEndPos(), Op: "&&", Left: expr, Right: right}
	}
	return expr
}

func (c *converter) convertEquality(g *grammar.Equality) ast.Expr {
	expr := c.convertRelational(g.Left)
	for _, op := range g.Rest {
		right := c.convertRelational(op.Right)
		expr = &ast.BinaryExpr{Pos: expr.NodePos(), EndPos: right.NodeEndPos(), Op: op.Operator, Left: expr, Right: right}
	}
	return expr
}

func (c *converter) convertRelational(g *grammar.Relational) ast.Expr {
	expr := c.convertAdditive(g.Left)
	for _, op := range g.Rest {
		right := c.convertAdditive(op.Right)
		expr = &ast.BinaryExpr{Pos: expr.NodePos(), EndPos: right.NodeEndPos(), Op: op.Operator, Left: expr, Right: right}
	}
	return expr
}

func (c *converter) convertAdditive(g *grammar.Additive) ast.Expr {
	expr := c.convertMultiplicative(g.Left)
	for _, op := range g.Rest {
		right := c.convertMultiplicative(op.Right)
		expr = &ast.BinaryExpr{Pos: expr.NodePos(), EndPos: right.NodeEndPos(), Op: op.Operator, Left: expr, Right: right}
	}
	return expr
}

func (c *converter) convertMultiplicative(g *grammar.Multiplicative) ast.Expr {
	expr := c.convertUnary(g.Left)
	for _, op := range g.Rest {
		right := c.convertUnary(op.Right)
		expr = &ast.BinaryExpr{Pos: expr.NodePos(), EndPos: right.NodeEndPos(), Op: op.Operator, Left: expr, Right: right}
	}
	return expr
}

func (c *converter) convertUnary(g *grammar.Unary) ast.Expr {
	value := c.convertPostfix(g.Value)
	if g.Operator == "" {
		return value
	}
	return &ast.UnaryExpr{Pos: c.pos(g.Pos), EndPos: value.NodeEndPos(), Op: g.Operator, Operand: value}
}

func (c *converter) convertPostfix(g *grammar.Postfix) ast.Expr {
	primary := c.convertPrimary(g.Primary)
	if g.Index == nil {
		return primary
	}
	ident, ok := primary.(*ast.IdentExpr)
	if !ok {
		c.errs = append(c.errs, cherrors.UnsupportedConstruct("index into a non-identifier expression", primary.NodePos()))
		return primary
	}
	return &ast.ArrayRef{Pos: ident.Pos, EndPos: c.pos(g.EndPos), Name: ident.Name, Index: c.convertExpr(g.Index)}
}

func (c *converter) convertPrimary(g *grammar.Primary) ast.Expr {
	pos := c.pos(g.Pos)
	switch {
	case g.Call != nil:
		return c.convertCall(g.Call)
	case g.Float != nil:
		v, err := strconv.ParseFloat(*g.Float, 64)
		if err != nil {
			c.errs = append(c.errs, cherrors.UnsupportedConstruct(fmt.Sprintf("invalid float literal %q", *g.Float), pos))
		}
		return &ast.FloatLit{Pos: pos, EndPos: c.pos(g.EndPos), Value: v, Text: *g.Float}
	case g.Int != nil:
		return &ast.IntLit{Pos: pos, EndPos: c.pos(g.EndPos), Value: *g.Int}
	case g.Ident != nil:
		return &ast.IdentExpr{Pos: pos, EndPos: c.pos(g.EndPos), Name: *g.Ident}
	case g.Paren != nil:
		return &ast.ParenExpr{Pos: pos, EndPos: c.pos(g.EndPos), Inner: c.convertExpr(g.Paren)}
	}
	return &ast.BadExpr{Pos: pos, EndPos: c.pos(g.EndPos), Message: "empty primary expression"}
}

func (c *converter) convertCall(g *grammar.CallExpr) ast.Expr {
	pos := c.pos(g.Pos)
	if g.Callee != "Lap" {
		c.errs = append(c.errs, cherrors.UnsupportedCall(g.Callee, pos))
	}
	args := make([]ast.Expr, 0, len(g.Args))
	for _, a := range g.Args {
		args = append(args, c.convertExpr(a))
	}
	return &ast.CallExpr{Pos: pos, EndPos: c.pos(g.EndPos), Callee: g.Callee, Args: args}
}
