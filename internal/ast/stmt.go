package ast

// Stmt is any CheckDP statement node.
type Stmt interface {
	Node
	isStmt()
}

func (*BadStmt) isStmt()    {}
func (*Decl) isStmt()       {}
func (*Assign) isStmt()     {}
func (*If) isStmt()         {}
func (*While) isStmt()      {}
func (*Output) isStmt()     {}
func (*Assert) isStmt()     {}
func (*Assume) isStmt()     {}
func (*Block) isStmt()      {}
func (*Return) isStmt()     {}

// Decl is a scalar or array declaration with an optional initializer. The
// initializer of a random-variable declaration is a CallExpr to "Lap";
// T-Laplace (internal/transform) recognizes that shape and rewrites it.
// Example: "int x = 0;", "int q[size];", "float eta = Lap(scale);"
type Decl struct {
	Pos, EndPos Position
	Name        string
	BaseType    string // "int" or "float"; floats are coerced to int, §3
	IsArray     bool
	ArrayLen    Expr // nil for scalars
	Init        Expr // nil if uninitialized
	metadata    *Metadata
}

// Assign is "target = value" or a compound form ("+=" etc.), where target
// is either an IdentExpr or an ArrayRef.
type Assign struct {
	Pos, EndPos Position
	Target      Expr
	Op          AssignType
	Value       Expr
	metadata    *Metadata
}

// If is if/else; Else is nil for a bare "if".
type If struct {
	Pos, EndPos Position
	Cond        Expr
	Then        *Block
	Else        *Block
	metadata    *Metadata
}

// While is the dialect's only loop form.
type While struct {
	Pos, EndPos Position
	Cond        Expr
	Body        *Block
	metadata    *Metadata
}

// Output is "OUTPUT(expr)", the dialect's publish intrinsic.
type Output struct {
	Pos, EndPos Position
	Value       Expr
	metadata    *Metadata
}

// Assert is a privacy obligation. The transformer emits these at the top of
// both branches of an aligned-divergent if, at the top of an
// aligned-divergent while body, and before an OUTPUT whose aligned distance
// is not zero (spec.md §4.2); the parser also accepts an ASSERT statement
// written in the source.
type Assert struct {
	Pos, EndPos Position
	Cond        Expr
	metadata    *Metadata
}

// Assume is an instrumentation/driver-only hypothesis fed to the solver
// (ASSUME / ASSUME_HOLE in the annotation grammar, §4.1/§4.5).
type Assume struct {
	Pos, EndPos Position
	Cond        Expr
	IsHole      bool
	metadata    *Metadata
}

// Return is the single "return v_epsilon;" statement internal/transform
// appends at the end of the instrumented function. User source is never
// allowed to contain one (internal/parser rejects it as E1108); this node
// only ever appears in the output of the transformer.
type Return struct {
	Pos, EndPos Position
	Value       Expr
	metadata    *Metadata
}

func (n *Return) NodePos() Position       { return n.Pos }
func (n *Return) NodeEndPos() Position    { return n.EndPos }
func (*Return) NodeType() NodeType        { return RETURN_STMT }
func (n *Return) GetMetadata() *Metadata  { return n.metadata }
func (n *Return) SetMetadata(m *Metadata) { n.metadata = m }

// Block is an ordered sequence of statements. Parent-pointer lookups
// (design notes, §9) are not stored here: internal/transform.Transformer
// rebuilds each Block from the statement runs its per-statement transforms
// return, so inserting siblings needs no parent link.
type Block struct {
	Pos, EndPos Position
	Stmts       []Stmt
	metadata    *Metadata
}

func (n *Decl) NodePos() Position       { return n.Pos }
func (n *Decl) NodeEndPos() Position    { return n.EndPos }
func (*Decl) NodeType() NodeType        { return DECL_STMT }
func (n *Decl) GetMetadata() *Metadata  { return n.metadata }
func (n *Decl) SetMetadata(m *Metadata) { n.metadata = m }

func (n *Assign) NodePos() Position       { return n.Pos }
func (n *Assign) NodeEndPos() Position    { return n.EndPos }
func (*Assign) NodeType() NodeType        { return ASSIGN_STMT }
func (n *Assign) GetMetadata() *Metadata  { return n.metadata }
func (n *Assign) SetMetadata(m *Metadata) { n.metadata = m }

func (n *If) NodePos() Position       { return n.Pos }
func (n *If) NodeEndPos() Position    { return n.EndPos }
func (*If) NodeType() NodeType        { return IF_STMT }
func (n *If) GetMetadata() *Metadata  { return n.metadata }
func (n *If) SetMetadata(m *Metadata) { n.metadata = m }

func (n *While) NodePos() Position       { return n.Pos }
func (n *While) NodeEndPos() Position    { return n.EndPos }
func (*While) NodeType() NodeType        { return WHILE_STMT }
func (n *While) GetMetadata() *Metadata  { return n.metadata }
func (n *While) SetMetadata(m *Metadata) { n.metadata = m }

func (n *Output) NodePos() Position       { return n.Pos }
func (n *Output) NodeEndPos() Position    { return n.EndPos }
func (*Output) NodeType() NodeType        { return OUTPUT_STMT }
func (n *Output) GetMetadata() *Metadata  { return n.metadata }
func (n *Output) SetMetadata(m *Metadata) { n.metadata = m }

func (n *Assert) NodePos() Position       { return n.Pos }
func (n *Assert) NodeEndPos() Position    { return n.EndPos }
func (*Assert) NodeType() NodeType        { return ASSERT_STMT }
func (n *Assert) GetMetadata() *Metadata  { return n.metadata }
func (n *Assert) SetMetadata(m *Metadata) { n.metadata = m }

func (n *Assume) NodePos() Position       { return n.Pos }
func (n *Assume) NodeEndPos() Position    { return n.EndPos }
func (*Assume) NodeType() NodeType        { return ASSUME_STMT }
func (n *Assume) GetMetadata() *Metadata  { return n.metadata }
func (n *Assume) SetMetadata(m *Metadata) { n.metadata = m }

func (n *Block) NodePos() Position       { return n.Pos }
func (n *Block) NodeEndPos() Position    { return n.EndPos }
func (*Block) NodeType() NodeType        { return BLOCK_STMT }
func (n *Block) GetMetadata() *Metadata  { return n.metadata }
func (n *Block) SetMetadata(m *Metadata) { n.metadata = m }

// InsertAfter splices stmt immediately after the statement at index i.
// Used by T-Assign/T-If to append reconciling updates without recomputing
// indices for every sibling insertion (spec.md §4.2).
func (b *Block) InsertAfter(i int, stmt Stmt) {
	b.Stmts = append(b.Stmts, nil)
	copy(b.Stmts[i+2:], b.Stmts[i+1:])
	b.Stmts[i+1] = stmt
}

// Prepend inserts stmt at the front of the block (used for hoisted
// declarations like "float v_epsilon = 0;").
func (b *Block) Prepend(stmt Stmt) {
	b.Stmts = append([]Stmt{stmt}, b.Stmts...)
}
