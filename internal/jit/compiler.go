package jit

import (
	"fmt"

	"slugjit/internal/ast"
	"slugjit/internal/codegen"
)

// compiler lowers one function body onto a codegen.Emitter. It is
// throwaway state for a single Driver.Compile call.
type compiler struct {
	d     *Driver
	g     codegen.Emitter
	slots map[string]int
}

func (c *compiler) compileBlock(b *ast.Block) error {
	for _, stmt := range b.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) compileStatement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.Assignment:
		if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		slot, ok := c.slots[s.Name]
		if !ok {
			return fmt.Errorf("jit: assignment to %q has no assigned local slot", s.Name)
		}
		c.g.EmitStoreLocal(slot)
		return nil

	case *ast.CallStatement:
		return c.compileExpression(s.Call) // result discarded, kept for side effects

	case *ast.Print:
		return c.compilePrint(s)

	case *ast.If:
		elseLabel := c.g.CreateLabel()
		endLabel := c.g.CreateLabel()
		if err := c.compileExpression(s.Condition); err != nil {
			return err
		}
		c.g.EmitJumpIfFalse(elseLabel)
		if err := c.compileBlock(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			c.g.EmitJump(endLabel)
		}
		c.g.BindLabel(elseLabel)
		if s.Else != nil {
			if err := c.compileBlock(s.Else); err != nil {
				return err
			}
			c.g.BindLabel(endLabel)
		}
		return nil

	case *ast.While:
		loopStart := c.g.CreateLabel()
		loopEnd := c.g.CreateLabel()
		c.g.BindLabel(loopStart)
		if err := c.compileExpression(s.Condition); err != nil {
			return err
		}
		c.g.EmitJumpIfFalse(loopEnd)
		if err := c.compileBlock(s.Body); err != nil {
			return err
		}
		c.g.EmitJump(loopStart)
		c.g.BindLabel(loopEnd)
		return nil

	case *ast.Return:
		if s.Value == nil {
			c.g.EmitLoadImmediate(0)
		} else if err := c.compileExpression(s.Value); err != nil {
			return err
		}
		c.g.EmitReturn()
		return nil

	case *ast.FunctionDef:
		return nil // handled at the top level, never nested

	default:
		return fmt.Errorf("jit: unsupported statement type %T", stmt)
	}
}

// compilePrint rejects compilation outright the moment an argument is
// syntactically known to be non-integer (a string or boolean literal);
// everything else is emitted assuming an integer result, matching the
// source's type-unconditional print lowering.
func (c *compiler) compilePrint(p *ast.Print) error {
	for idx, arg := range p.Args {
		switch arg.(type) {
		case *ast.StringLiteral, *ast.BooleanLiteral:
			return fmt.Errorf("jit: print argument %d is not statically integer-typed", idx)
		}
		if idx > 0 {
			c.g.EmitCallRuntime(c.d.rt.printTabPtr)
		}
		if err := c.compileExpression(arg); err != nil {
			return err
		}
		c.g.EmitSetCallArg(0)
		c.g.EmitCallRuntime(c.d.rt.printIntPtr)
	}
	c.g.EmitCallRuntime(c.d.rt.printNewlinePtr)
	return nil
}

func (c *compiler) compileExpression(expr ast.Expression) error {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		c.g.EmitLoadImmediate(e.Value)
		return nil

	case *ast.BooleanLiteral:
		c.g.EmitLoadBool(e.Value)
		return nil

	case *ast.Variable:
		slot, ok := c.slots[e.Name]
		if !ok {
			return fmt.Errorf("jit: reference to undeclared local %q", e.Name)
		}
		c.g.EmitLoadLocal(slot)
		return nil

	case *ast.UnaryOp:
		if err := c.compileExpression(e.Operand); err != nil {
			return err
		}
		switch e.Op {
		case ast.Not:
			c.g.EmitNot()
		case ast.Neg:
			c.g.EmitNeg()
		default:
			return fmt.Errorf("jit: unsupported unary operator %q", e.Op)
		}
		return nil

	case *ast.BinaryOp:
		if err := c.compileExpression(e.Left); err != nil {
			return err
		}
		c.g.EmitPush()
		if err := c.compileExpression(e.Right); err != nil {
			return err
		}
		c.g.EmitPop()
		switch e.Op {
		case ast.Add:
			c.g.EmitAdd()
		case ast.Sub:
			c.g.EmitSub()
		case ast.Mul:
			c.g.EmitMul()
		case ast.Div:
			c.g.EmitDiv()
		case ast.Mod:
			c.g.EmitMod()
		case ast.Eq:
			c.g.EmitCompareEq()
		case ast.Ne:
			c.g.EmitCompareNe()
		case ast.Lt:
			c.g.EmitCompareLt()
		case ast.Le:
			c.g.EmitCompareLe()
		case ast.Gt:
			c.g.EmitCompareGt()
		case ast.Ge:
			c.g.EmitCompareGe()
		case ast.And:
			c.g.EmitAnd()
		case ast.Or:
			c.g.EmitOr()
		default:
			return fmt.Errorf("jit: unsupported binary operator %q", e.Op)
		}
		return nil

	case *ast.FunctionCall:
		for _, arg := range e.Args {
			if err := c.compileExpression(arg); err != nil {
				return err
			}
			c.g.EmitSetCallArg(0)
			c.g.EmitCallRuntime(c.d.rt.pushArgPtr)
		}
		namePtr := c.d.internCString(e.Name)
		c.g.EmitLoadStringPtr(namePtr)
		c.g.EmitSetCallArg(0)
		c.g.EmitCallRuntime(c.d.rt.callFuncPtr)
		return nil

	default:
		return fmt.Errorf("jit: unsupported expression type %T", expr)
	}
}
