package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryExprString(t *testing.T) {
	expr := &BinaryExpr{
		Op:   "+",
		Left: &IdentExpr{Name: "a"},
		Right: &IdentExpr{Name: "b"},
	}
	assert.Equal(t, "(a + b)", expr.String())
}

func TestTernaryExprString(t *testing.T) {
	expr := &TernaryExpr{
		Cond: &IdentExpr{Name: "c"},
		Then: &IntLit{Value: 1},
		Else: &IntLit{Value: 0},
	}
	assert.Equal(t, "(c ? 1 : 0)", expr.String())
}

func TestDeclString(t *testing.T) {
	decl := &Decl{
		Name:     "x",
		BaseType: "int",
		Init:     &IntLit{Value: 0},
	}
	assert.Equal(t, "int x = 0;", decl.String())

	arr := &Decl{
		Name:     "q",
		BaseType: "int",
		IsArray:  true,
		ArrayLen: &IdentExpr{Name: "size"},
	}
	assert.Equal(t, "int q[size];", arr.String())
}

func TestBlockInsertAfter(t *testing.T) {
	first := &Assign{Target: &IdentExpr{Name: "x"}, Op: ASSIGN, Value: &IntLit{Value: 1}}
	last := &Assign{Target: &IdentExpr{Name: "y"}, Op: ASSIGN, Value: &IntLit{Value: 2}}
	block := &Block{Stmts: []Stmt{first, last}}

	inserted := &Assign{Target: &IdentExpr{Name: "aligned_x"}, Op: ASSIGN, Value: &IntLit{Value: 0}}
	block.InsertAfter(0, inserted)

	require.Len(t, block.Stmts, 3)
	assert.Same(t, first, block.Stmts[0])
	assert.Same(t, inserted, block.Stmts[1])
	assert.Same(t, last, block.Stmts[2])
}

func TestBlockPrepend(t *testing.T) {
	block := &Block{Stmts: []Stmt{&Output{Value: &IdentExpr{Name: "r"}}}}
	decl := &Decl{Name: "v_epsilon", BaseType: "float", Init: &IntLit{Value: 0}}
	block.Prepend(decl)

	require.Len(t, block.Stmts, 2)
	assert.Same(t, decl, block.Stmts[0])
}

func TestNodeTypeTagging(t *testing.T) {
	var n Node = &While{Cond: &IdentExpr{Name: "c"}, Body: &Block{}}
	assert.Equal(t, WHILE_STMT, n.NodeType())
}
