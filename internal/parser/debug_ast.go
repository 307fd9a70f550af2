package parser

import (
	"fmt"
	"strings"

	"slugjit/internal/ast"
)

// RenderASTAsText produces a human-readable, indented dump of the AST,
// used by the --debug-ast CLI flag.
func RenderASTAsText(node ast.Node, indent int) string {
	if node == nil {
		return "nil"
	}

	sp := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *ast.Block:
		var sb strings.Builder
		for i, s := range n.Statements {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(RenderASTAsText(s, indent))
		}
		return sb.String()

	case *ast.Assignment:
		prefix := ""
		if n.IsLocal {
			prefix = "local "
		}
		return fmt.Sprintf("%s%s%s = %s", sp, prefix, n.Name, RenderASTAsText(n.Value, 0))

	case *ast.CallStatement:
		return sp + RenderASTAsText(n.Call, 0)

	case *ast.Return:
		if n.Value == nil {
			return sp + "return"
		}
		return sp + "return " + RenderASTAsText(n.Value, 0)

	case *ast.Print:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = RenderASTAsText(a, 0)
		}
		return fmt.Sprintf("%sprint(%s)", sp, strings.Join(args, ", "))

	case *ast.If:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%sif %s then\n", sp, RenderASTAsText(n.Condition, 0)))
		sb.WriteString(RenderASTAsText(n.Then, indent+1))
		if n.Else != nil {
			sb.WriteString(fmt.Sprintf("\n%selse\n", sp))
			sb.WriteString(RenderASTAsText(n.Else, indent+1))
		}
		sb.WriteString(fmt.Sprintf("\n%send", sp))
		return sb.String()

	case *ast.While:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%swhile %s do\n", sp, RenderASTAsText(n.Condition, 0)))
		sb.WriteString(RenderASTAsText(n.Body, indent+1))
		sb.WriteString(fmt.Sprintf("\n%send", sp))
		return sb.String()

	case *ast.FunctionDef:
		names := make([]string, len(n.Params))
		for i, p := range n.Params {
			names[i] = p.Name
		}
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%sfunction %s(%s)\n", sp, n.Name, strings.Join(names, ", ")))
		sb.WriteString(RenderASTAsText(n.Body, indent+1))
		sb.WriteString(fmt.Sprintf("\n%send", sp))
		return sb.String()

	case *ast.FunctionCall:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = RenderASTAsText(a, 0)
		}
		return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ", "))

	case *ast.BinaryOp:
		return fmt.Sprintf("(%s %s %s)", RenderASTAsText(n.Left, 0), n.Op, RenderASTAsText(n.Right, 0))

	case *ast.UnaryOp:
		return fmt.Sprintf("(%s%s)", n.Op, RenderASTAsText(n.Operand, 0))

	case *ast.Variable:
		return n.Name

	case *ast.IntegerLiteral, *ast.BooleanLiteral, *ast.StringLiteral:
		return node.String()

	default:
		return fmt.Sprintf("<unknown node %T>", n)
	}
}
