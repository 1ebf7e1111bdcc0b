package ast

// Expr is any CheckDP expression node.
type Expr interface {
	Node
	isExpr()
}

func (*BadExpr) isExpr()     {}
func (*IntLit) isExpr()      {}
func (*FloatLit) isExpr()    {}
func (*IdentExpr) isExpr()   {}
func (*ArrayRef) isExpr()    {}
func (*UnaryExpr) isExpr()   {}
func (*BinaryExpr) isExpr()  {}
func (*TernaryExpr) isExpr() {}
func (*CallExpr) isExpr()    {}
func (*ParenExpr) isExpr()   {}
func (*RawExpr) isExpr()     {}

// IntLit is an integer constant.
// Example: "0", "42", "-1" (the minus is a separate UnaryExpr over a literal)
type IntLit struct {
	Pos, EndPos Position
	Value       int64
	metadata    *Metadata
}

// FloatLit is a float constant. Text keeps the exact source digits (e.g.
// "0.5") so internal/preprocess's LCM scaling can build an exact big.Rat
// instead of round-tripping through the binary float in Value.
// Example: "1.0", "0.5"
type FloatLit struct {
	Pos, EndPos Position
	Value       float64
	Text        string
	metadata    *Metadata
}

func (n *FloatLit) NodePos() Position       { return n.Pos }
func (n *FloatLit) NodeEndPos() Position    { return n.EndPos }
func (*FloatLit) NodeType() NodeType        { return FLOAT_LIT }
func (n *FloatLit) GetMetadata() *Metadata  { return n.metadata }
func (n *FloatLit) SetMetadata(m *Metadata) { n.metadata = m }

// IdentExpr is a bare variable reference.
// Example: "query_size", "epsilon", "aligned_q"
type IdentExpr struct {
	Pos, EndPos Position
	Name        string
	metadata    *Metadata
}

// ArrayRef is a subscripted array reference.
// Example: "q[i]", "sample_array[sample_index]"
type ArrayRef struct {
	Pos, EndPos Position
	Name        string
	Index       Expr
	metadata    *Metadata
}

// UnaryExpr covers "!" and "-".
// Example: "!cond", "-delta"
type UnaryExpr struct {
	Pos, EndPos Position
	Op          string
	Operand     Expr
	metadata    *Metadata
}

// BinaryExpr covers arithmetic, relational, and logical binary operators.
// Example: "a + b", "i < size", "a && b"
type BinaryExpr struct {
	Pos, EndPos Position
	Op          string
	Left, Right Expr
	metadata    *Metadata
}

// TernaryExpr is the dialect's conditional expression. The alignment
// template generator (internal/align) prints the same shape as text for
// every RANDOM_DISTANCE_η and SELECTOR_η expression; it does not build
// TernaryExpr nodes.
// Example: "cond ? then : else"
type TernaryExpr struct {
	Pos, EndPos      Position
	Cond, Then, Else Expr
	metadata         *Metadata
}

// CallExpr is restricted by the dialect to the intrinsics Lap, OUTPUT, and
// (post-instrumentation) ASSERT/ASSUME.
// Example: "Lap(scale)", "OUTPUT(sum)"
type CallExpr struct {
	Pos, EndPos Position
	Callee      string
	Args        []Expr
	metadata    *Metadata
}

// ParenExpr preserves explicit parenthesization for round-trip printing.
type ParenExpr struct {
	Pos, EndPos Position
	Inner       Expr
	metadata    *Metadata
}

// RawExpr splices pre-serialized expression text as a leaf node, verbatim.
// internal/cas's simplifier and distance generator produce already-rendered
// expression strings (e.g. a merged distance formula); the transformer
// embeds that text directly rather than re-parsing it back into a subtree.
type RawExpr struct {
	Pos, EndPos Position
	Text        string
	metadata    *Metadata
}

func (n *RawExpr) NodePos() Position       { return n.Pos }
func (n *RawExpr) NodeEndPos() Position    { return n.EndPos }
func (*RawExpr) NodeType() NodeType        { return RAW_EXPR }
func (n *RawExpr) GetMetadata() *Metadata  { return n.metadata }
func (n *RawExpr) SetMetadata(m *Metadata) { n.metadata = m }

func (n *IntLit) NodePos() Position       { return n.Pos }
func (n *IntLit) NodeEndPos() Position    { return n.EndPos }
func (*IntLit) NodeType() NodeType        { return INT_LIT }
func (n *IntLit) GetMetadata() *Metadata  { return n.metadata }
func (n *IntLit) SetMetadata(m *Metadata) { n.metadata = m }

func (n *IdentExpr) NodePos() Position       { return n.Pos }
func (n *IdentExpr) NodeEndPos() Position    { return n.EndPos }
func (*IdentExpr) NodeType() NodeType        { return IDENT_EXPR }
func (n *IdentExpr) GetMetadata() *Metadata  { return n.metadata }
func (n *IdentExpr) SetMetadata(m *Metadata) { n.metadata = m }

func (n *ArrayRef) NodePos() Position       { return n.Pos }
func (n *ArrayRef) NodeEndPos() Position    { return n.EndPos }
func (*ArrayRef) NodeType() NodeType        { return ARRAY_REF }
func (n *ArrayRef) GetMetadata() *Metadata  { return n.metadata }
func (n *ArrayRef) SetMetadata(m *Metadata) { n.metadata = m }

func (n *UnaryExpr) NodePos() Position       { return n.Pos }
func (n *UnaryExpr) NodeEndPos() Position    { return n.EndPos }
func (*UnaryExpr) NodeType() NodeType        { return UNARY_EXPR }
func (n *UnaryExpr) GetMetadata() *Metadata  { return n.metadata }
func (n *UnaryExpr) SetMetadata(m *Metadata) { n.metadata = m }

func (n *BinaryExpr) NodePos() Position       { return n.Pos }
func (n *BinaryExpr) NodeEndPos() Position    { return n.EndPos }
func (*BinaryExpr) NodeType() NodeType        { return BINARY_EXPR }
func (n *BinaryExpr) GetMetadata() *Metadata  { return n.metadata }
func (n *BinaryExpr) SetMetadata(m *Metadata) { n.metadata = m }

func (n *TernaryExpr) NodePos() Position       { return n.Pos }
func (n *TernaryExpr) NodeEndPos() Position    { return n.EndPos }
func (*TernaryExpr) NodeType() NodeType        { return TERNARY_EXPR }
func (n *TernaryExpr) GetMetadata() *Metadata  { return n.metadata }
func (n *TernaryExpr) SetMetadata(m *Metadata) { n.metadata = m }

func (n *CallExpr) NodePos() Position       { return n.Pos }
func (n *CallExpr) NodeEndPos() Position    { return n.EndPos }
func (*CallExpr) NodeType() NodeType        { return CALL_EXPR }
func (n *CallExpr) GetMetadata() *Metadata  { return n.metadata }
func (n *CallExpr) SetMetadata(m *Metadata) { n.metadata = m }

func (n *ParenExpr) NodePos() Position       { return n.Pos }
func (n *ParenExpr) NodeEndPos() Position    { return n.EndPos }
func (*ParenExpr) NodeType() NodeType        { return PAREN_EXPR }
func (n *ParenExpr) GetMetadata() *Metadata  { return n.metadata }
func (n *ParenExpr) SetMetadata(m *Metadata) { n.metadata = m }
