package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Program is a single function definition: the dialect permits exactly
// one function per file, per spec.md's "no globals, no multi-function
// programs" contract. The function body opens with up to three bare
// string-literal statements carrying the distance, precondition, and
// goal annotations (spec.md §4.1); internal/preprocess parses their text
// and the converter drops them from the statement stream it hands to
// later stages.
type Program struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Func   *FuncDef `@@`
}

type FuncDef struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	ReturnType string       `@("void"|"int"|"float")`
	Name       string       `@Ident "("`
	Params     []*Param     `[ @@ { "," @@ } ] ")"`
	Body       *Block       `@@`
}

type Param struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	BaseType string `@("int"|"float")`
	Name     string `@Ident`
	IsArray  bool   `[ @"[" "]" ]`
}

type Block struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Stmts  []*Stmt `"{" @@* "}"`
}

// Stmt is the alternation of every statement form the transformer
// understands. Order matters: Assign must follow Decl (a bare
// "int x = 1;" only matches Decl) and come after the keyword-led forms
// (OUTPUT, ASSERT, ASSUME, return), whose keywords also lex as identifiers.
type Stmt struct {
	Pos       lexer.Position
	EndPos    lexer.Position
	Annot     *StringStmt `  @@`
	Decl      *DeclStmt   `| @@`
	If        *IfStmt     `| @@`
	While     *WhileStmt  `| @@`
	Output    *OutputStmt `| @@`
	Assert    *AssertStmt `| @@`
	Assume    *AssumeStmt `| @@`
	Return    *ReturnStmt `| @@`
	Assign    *AssignStmt `| @@`
	Nested    *Block      `| @@`
}

// StringStmt is a bare string-literal expression statement, e.g.
// `"q : <*, 0>";`. The dialect only uses this form for the three leading
// annotation statements; Text retains the surrounding quotes so
// internal/preprocess can apply the original annotation regexes unchanged.
type StringStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Text   string `@String ";"`
}

// ReturnStmt only exists so the converter can reject it with a specific
// diagnostic; the dialect publishes results through OUTPUT, never return.
type ReturnStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  *Expr `"return" [ @@ ] ";"`
}

type DeclStmt struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	BaseType string `@("int"|"float")`
	Name     string `@Ident`
	IsArray  bool   `[ @"["`
	ArrayLen *Expr  `  [ @@ ] "]" ]`
	Init     *Expr  `[ "=" @@ ] ";"`
}

type AssignStmt struct {
	Pos       lexer.Position
	EndPos    lexer.Position
	Name      string `@Ident`
	IsIndexed bool   `[ @"["`
	Index     *Expr  `  @@ "]" ]`
	Op        string `@("+="|"-="|"*="|"/="|"=")`
	Value     *Expr  `@@ ";"`
}

type IfStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Cond   *Expr  `"if" "(" @@ ")"`
	Then   *Block `@@`
	Else   *Block `[ "else" @@ ]`
}

type WhileStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Cond   *Expr  `"while" "(" @@ ")"`
	Body   *Block `@@`
}

type OutputStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  *Expr `"OUTPUT" "(" @@ ")" ";"`
}

type AssertStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Cond   *Expr `"ASSERT" "(" @@ ")" ";"`
}

type AssumeStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	IsHole bool  `"ASSUME" "(" ( @"?"`
	Cond   *Expr `  | @@ ) ")" ";"`
}

// Expr is the ternary level, the lowest precedence and the only
// compound form the alignment template generator reproduces verbatim
// when it emits a selector or random-distance expression.
type Expr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Cond   *LogicOr `@@`
	Then   *Expr    `[ "?" @@`
	Else   *Expr    `  ":" @@ ]`
}

type LogicOr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Left   *LogicAnd   `@@`
	Rest   []*LogicAnd `{ "||" @@ }`
}

type LogicAnd struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Left   *Equality   `@@`
	Rest   []*Equality `{ "&&" @@ }`
}

type Equality struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Left   *Relational    `@@`
	Rest   []*EqualityOp  `{ @@ }`
}

type EqualityOp struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Operator string      `@("=="|"!=")`
	Right    *Relational `@@`
}

type Relational struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Left   *Additive        `@@`
	Rest   []*RelationalOp  `{ @@ }`
}

type RelationalOp struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Operator string    `@("<="|">="|"<"|">")`
	Right    *Additive `@@`
}

type Additive struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Left   *Multiplicative   `@@`
	Rest   []*AdditiveOp     `{ @@ }`
}

type AdditiveOp struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Operator string          `@("+"|"-")`
	Right    *Multiplicative `@@`
}

type Multiplicative struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Left   *Unary             `@@`
	Rest   []*MultiplicativeOp `{ @@ }`
}

type MultiplicativeOp struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Operator string `@("*"|"/"|"%")`
	Right    *Unary `@@`
}

type Unary struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Operator string   `[ @("!"|"-") ]`
	Value    *Postfix `@@`
}

type Postfix struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Primary *Primary `@@`
	Index   *Expr    `[ "[" @@ "]" ]`
}

// Primary is the leaf level: literals, identifiers, calls to the Lap
// intrinsic (the only call form that may appear inside an expression),
// and parenthesized sub-expressions.
type Primary struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Call   *CallExpr `  @@`
	// Float keeps the literal's raw decimal text (not a parsed float64) so
	// internal/preprocess's LCM scaling can build an exact big.Rat from the
	// digits the user wrote instead of round-tripping through a binary float.
	Float  *string `| @Float`
	Int    *int64  `| @Integer`
	Ident  *string `| @Ident`
	Paren  *Expr   `| "(" @@ ")"`
}

type CallExpr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Callee string  `@Ident "("`
	Args   []*Expr `[ @@ { "," @@ } ] ")"`
}
