package ast

// Param is one function parameter. The dialect requires at least three,
// in order query[], size, epsilon, ... (spec.md §4.1); Postprocessor
// (internal/postprocess) appends distance/sample/alignment/hole params
// after preprocessing.
type Param struct {
	Pos, EndPos Position
	Name        string
	BaseType    string
	IsArray     bool
	metadata    *Metadata
}

// FuncDef is the dialect's single function. No globals, no return
// statements in user code (spec.md §3); the instrumented function still
// returns, via the synthesized "return v_epsilon;" the transformer appends.
type FuncDef struct {
	Pos, EndPos Position
	Name        string
	Params      []*Param
	ReturnType  string // as declared in the source; "int" on the FuncDef internal/transform returns
	// Annotations holds the raw text (quotes included) of the leading
	// string-literal statements the parser stripped from Body — the
	// distance, precondition, and goal annotations internal/preprocess
	// parses (spec.md §4.1). At most 3, in source order.
	Annotations []string
	Body        *Block
	metadata    *Metadata
}

// Program is the parsed translation unit: exactly one FuncDef, per the
// dialect's "only one function per file" rule.
type Program struct {
	Pos, EndPos Position
	Func        *FuncDef
	metadata    *Metadata
}

func (n *Param) NodePos() Position       { return n.Pos }
func (n *Param) NodeEndPos() Position    { return n.EndPos }
func (*Param) NodeType() NodeType        { return PARAM }
func (n *Param) GetMetadata() *Metadata  { return n.metadata }
func (n *Param) SetMetadata(m *Metadata) { n.metadata = m }

func (n *FuncDef) NodePos() Position       { return n.Pos }
func (n *FuncDef) NodeEndPos() Position    { return n.EndPos }
func (*FuncDef) NodeType() NodeType        { return FUNC_DEF }
func (n *FuncDef) GetMetadata() *Metadata  { return n.metadata }
func (n *FuncDef) SetMetadata(m *Metadata) { n.metadata = m }

func (n *Program) NodePos() Position       { return n.Pos }
func (n *Program) NodeEndPos() Position    { return n.EndPos }
func (*Program) NodeType() NodeType        { return PROGRAM }
func (n *Program) GetMetadata() *Metadata  { return n.metadata }
func (n *Program) SetMetadata(m *Metadata) { n.metadata = m }
