// Package jit compiles user-defined functions ahead of execution into
// native x86-64 or AArch64 machine code and runs the rest of the program
// through the tree-walking interpreter, falling back to the interpreter
// for any function that fails to compile.
package jit

import (
	"fmt"
	"runtime"
	"unsafe"

	"slugjit/internal/ast"
	"slugjit/internal/codegen"
	"slugjit/internal/interp"
	"slugjit/internal/logger"
	"slugjit/internal/value"
)

type compiledFunc struct {
	entry      uintptr
	paramCount int
}

// Driver owns the native code produced for every successfully compiled
// top-level function. Only one Driver may be active per process; New
// records it in the package-level "current" variable. The runtime
// callbacks invoked from inside generated code (print, nested calls) do
// not consult "current": each is bound to its own Driver in
// newRuntimeHelpers.
type Driver struct {
	interp   *interp.Interpreter
	pages    pageAllocator
	compiled map[string]compiledFunc
	rt       *runtimeHelpers

	stringPool [][]byte
}

var current *Driver

// New wires a Driver to interp and installs it as the process-wide active
// driver. Only one Driver may be live at a time.
func New(i *interp.Interpreter) *Driver {
	d := &Driver{
		interp:   i,
		compiled: make(map[string]compiledFunc),
	}
	d.rt = newRuntimeHelpers(d)
	current = d
	i.SetNativeCallHook(d.callNative)
	return d
}

// Close releases every executable page this driver published and clears
// the process-wide active-driver handle.
func (d *Driver) Close() error {
	if current == d {
		current = nil
	}
	return d.pages.Release()
}

func newEmitter() codegen.Emitter {
	if runtime.GOARCH == "arm64" {
		return codegen.NewARM64()
	}
	return codegen.NewAMD64()
}

// Compile tries to JIT-compile fn. On failure it returns the error without
// logging it (ExecuteProgram logs it); the caller is expected to register fn with the
// interpreter regardless so execution can still fall back to the tree
// walker -- this mirrors how the source's two-pass top-level execute()
// handled per-function compile failures.
func (d *Driver) Compile(fn *ast.FunctionDef) error {
	g := newEmitter()

	params := make(map[string]int, len(fn.Params))
	slots := make(map[string]int, len(fn.Params))
	for idx, p := range fn.Params {
		params[p.Name] = idx
		slots[p.Name] = idx
	}

	locals := collectLocals(fn.Body, params)
	nextSlot := len(fn.Params)
	for _, name := range locals {
		if _, ok := slots[name]; !ok {
			slots[name] = nextSlot
			nextSlot++
		}
	}
	localCount := nextSlot

	g.EmitPrologue(localCount)
	for i, p := range fn.Params {
		g.EmitLoadArg(i)
		g.EmitStoreLocal(slots[p.Name])
	}

	c := &compiler{d: d, g: g, slots: slots}
	if err := c.compileBlock(fn.Body); err != nil {
		return fmt.Errorf("jit: compiling %q: %w", fn.Name, err)
	}

	// Unconditional default tail: every compiled function falls through to
	// `return 0` even if every syntactic path already returned, matching
	// the source's lack of reachability analysis.
	g.EmitLoadImmediate(0)
	g.EmitEpilogue()

	entry, err := d.pages.publish(g.Code())
	if err != nil {
		return fmt.Errorf("jit: publishing %q: %w", fn.Name, err)
	}
	d.compiled[fn.Name] = compiledFunc{entry: entry, paramCount: len(fn.Params)}
	return nil
}

// collectLocals is a purely syntactic walk: it does not reason about
// reachability or control flow, only about which names are assigned or
// read somewhere in the body and are not already function parameters.
func collectLocals(body *ast.Block, params map[string]int) []string {
	seen := map[string]bool{}
	var order []string
	add := func(name string) {
		if _, isParam := params[name]; isParam {
			return
		}
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}

	var walkExpr func(ast.Expression)
	walkExpr = func(e ast.Expression) {
		switch n := e.(type) {
		case *ast.Variable:
			add(n.Name)
		case *ast.BinaryOp:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case *ast.UnaryOp:
			walkExpr(n.Operand)
		case *ast.FunctionCall:
			for _, a := range n.Args {
				walkExpr(a)
			}
		}
	}

	var walkBlock func(b *ast.Block)
	var walkStmt func(ast.Statement)
	walkStmt = func(s ast.Statement) {
		switch n := s.(type) {
		case *ast.Assignment:
			add(n.Name)
			walkExpr(n.Value)
		case *ast.CallStatement:
			walkExpr(n.Call)
		case *ast.Print:
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.If:
			walkExpr(n.Condition)
			walkBlock(n.Then)
			if n.Else != nil {
				walkBlock(n.Else)
			}
		case *ast.While:
			walkExpr(n.Condition)
			walkBlock(n.Body)
		case *ast.Return:
			if n.Value != nil {
				walkExpr(n.Value)
			}
		case *ast.Block:
			walkBlock(n)
		}
	}
	walkBlock = func(b *ast.Block) {
		for _, s := range b.Statements {
			walkStmt(s)
		}
	}
	walkBlock(body)
	return order
}

// ExecuteProgram runs every top-level statement in block: function
// definitions are compiled first (falling back to interpreter-only
// registration on failure), then every other statement is executed.
func (d *Driver) ExecuteProgram(block *ast.Block) error {
	for _, stmt := range block.Statements {
		fn, ok := stmt.(*ast.FunctionDef)
		if !ok {
			continue
		}
		if err := d.Compile(fn); err != nil {
			logger.Warnf("jit: compilation of %q failed, falling back to interpreter: %v", fn.Name, err)
		}
		d.interp.DefineFunction(fn)
	}

	for _, stmt := range block.Statements {
		if _, ok := stmt.(*ast.FunctionDef); ok {
			continue
		}
		if err := d.interp.ExecuteTopLevel(stmt); err != nil {
			return err
		}
	}
	return nil
}

// callNative is installed as the interpreter's native-call hook: when the
// interpreter is about to call a user function that has been compiled, it
// runs the native code instead of walking the AST again.
func (d *Driver) callNative(name string, args []value.Value) (value.Value, bool, error) {
	cf, ok := d.compiled[name]
	if !ok {
		return value.Value{}, false, nil
	}
	ints := make([]int64, len(args))
	for i, a := range args {
		ints[i] = a.AsInteger()
	}
	result, err := d.invoke(cf.entry, ints)
	if err != nil {
		return value.Value{}, true, err
	}
	return value.NewInteger(result), true, nil
}

// IsCompiled reports whether name has a published native entry point.
func (d *Driver) IsCompiled(name string) bool {
	_, ok := d.compiled[name]
	return ok
}

func (d *Driver) internCString(s string) uintptr {
	buf := append([]byte(s), 0)
	d.stringPool = append(d.stringPool, buf)
	return uintptr(unsafe.Pointer(&buf[0]))
}
