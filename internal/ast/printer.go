package ast

import (
	"fmt"
	"strconv"
	"strings"
)

func (n *BadExpr) String() string { return fmt.Sprintf("BadExpr: %s", n.Message) }
func (n *BadStmt) String() string { return fmt.Sprintf("BadStmt: %s", n.Message) }

func (n *IntLit) String() string { return strconv.FormatInt(n.Value, 10) }

func (n *FloatLit) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }

func (n *IdentExpr) String() string { return n.Name }

func (n *ArrayRef) String() string { return fmt.Sprintf("%s[%s]", n.Name, n.Index.String()) }

func (n *UnaryExpr) String() string { return fmt.Sprintf("%s%s", n.Op, n.Operand.String()) }

func (n *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", n.Left.String(), n.Op, n.Right.String())
}

func (n *TernaryExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", n.Cond.String(), n.Then.String(), n.Else.String())
}

func (n *CallExpr) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", n.Callee, strings.Join(args, ", "))
}

func (n *ParenExpr) String() string { return fmt.Sprintf("(%s)", n.Inner.String()) }

func (n *RawExpr) String() string { return n.Text }

func (n *Decl) String() string {
	lhs := n.Name
	if n.IsArray {
		lhs = fmt.Sprintf("%s[%s]", n.Name, exprOrEmpty(n.ArrayLen))
	}
	if n.Init == nil {
		return fmt.Sprintf("%s %s;", n.BaseType, lhs)
	}
	return fmt.Sprintf("%s %s = %s;", n.BaseType, lhs, n.Init.String())
}

func exprOrEmpty(e Expr) string {
	if e == nil {
		return ""
	}
	return e.String()
}

func (n *Assign) String() string {
	return fmt.Sprintf("%s %s %s;", n.Target.String(), n.Op.String(), n.Value.String())
}

func (n *If) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("if (%s) {\n", n.Cond.String()))
	b.WriteString(n.Then.StringIndented("  "))
	b.WriteString("}")
	if n.Else != nil {
		b.WriteString(" else {\n")
		b.WriteString(n.Else.StringIndented("  "))
		b.WriteString("}")
	}
	return b.String()
}

func (n *While) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("while (%s) {\n", n.Cond.String()))
	b.WriteString(n.Body.StringIndented("  "))
	b.WriteString("}")
	return b.String()
}

func (n *Output) String() string { return fmt.Sprintf("OUTPUT(%s);", n.Value.String()) }

func (n *Return) String() string { return fmt.Sprintf("return %s;", n.Value.String()) }

func (n *Assert) String() string { return fmt.Sprintf("ASSERT(%s);", n.Cond.String()) }

func (n *Assume) String() string {
	if n.IsHole || n.Cond == nil {
		return "ASSUME(?);"
	}
	return fmt.Sprintf("ASSUME(%s);", n.Cond.String())
}

func (n *Block) String() string { return n.StringIndented("") }

func (n *Block) StringIndented(indent string) string {
	var b strings.Builder
	for _, s := range n.Stmts {
		b.WriteString(indent)
		b.WriteString(strings.ReplaceAll(s.String(), "\n", "\n"+indent))
		b.WriteByte('\n')
	}
	return b.String()
}

func (n *Param) String() string {
	if n.IsArray {
		return fmt.Sprintf("%s %s[]", n.BaseType, n.Name)
	}
	return fmt.Sprintf("%s %s", n.BaseType, n.Name)
}

func (n *FuncDef) String() string {
	var b strings.Builder
	params := make([]string, len(n.Params))
	for i, p := range n.Params {
		params[i] = p.String()
	}
	b.WriteString(fmt.Sprintf("%s %s(%s) {\n", n.ReturnType, n.Name, strings.Join(params, ", ")))
	b.WriteString(n.Body.StringIndented("  "))
	b.WriteString("}\n")
	return b.String()
}

func (n *Program) String() string { return n.Func.String() }
