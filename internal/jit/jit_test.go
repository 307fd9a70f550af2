package jit

import (
	"testing"

	"slugjit/internal/ast"
	"slugjit/internal/interp"
	"slugjit/internal/lexer"
	"slugjit/internal/parser"
)

func parseFunc(t *testing.T, src string) *ast.FunctionDef {
	t.Helper()
	l := lexer.New(src)
	p := parser.New(l, src)
	block := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	if len(block.Statements) != 1 {
		t.Fatalf("expected exactly one top-level statement, got %d", len(block.Statements))
	}
	fn, ok := block.Statements[0].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected a function definition, got %T", block.Statements[0])
	}
	return fn
}

func TestCollectLocalsFindsAssignedAndReferencedNames(t *testing.T) {
	fn := parseFunc(t, `
function f(a)
	local b = a + 1
	local c = b * 2
	return c
end
`)
	params := map[string]int{"a": 0}
	locals := collectLocals(fn.Body, params)

	want := map[string]bool{"b": true, "c": true}
	if len(locals) != len(want) {
		t.Fatalf("got locals %v, want exactly %v", locals, want)
	}
	for _, name := range locals {
		if !want[name] {
			t.Fatalf("unexpected local %q collected", name)
		}
	}
}

func TestCompileAndInvokeArithmeticFunction(t *testing.T) {
	fn := parseFunc(t, `
function addTwice(a, b)
	local sum = a + b
	return sum * 2
end
`)
	i := interp.New()
	d := New(i)
	defer d.Close()

	if err := d.Compile(fn); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if !d.IsCompiled("addTwice") {
		t.Fatal("expected addTwice to be registered as compiled")
	}

	cf := d.compiled["addTwice"]
	result, err := d.invoke(cf.entry, []int64{3, 4})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if result != 14 {
		t.Fatalf("addTwice(3,4) = %d, want 14", result)
	}
}

func TestCompileFibonacciRecursesThroughCallFunc(t *testing.T) {
	fn := parseFunc(t, `
function fib(n)
	if n < 2 then
		return n
	end
	return fib(n - 1) + fib(n - 2)
end
`)
	i := interp.New()
	d := New(i)
	defer d.Close()

	if err := d.Compile(fn); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	i.DefineFunction(fn)

	cf := d.compiled["fib"]
	result, err := d.invoke(cf.entry, []int64{10})
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if result != 55 {
		t.Fatalf("fib(10) = %d, want 55", result)
	}
}

func TestPrintOfStringLiteralRejectsJITCompilation(t *testing.T) {
	fn := parseFunc(t, `
function greet()
	print("hi")
	return 0
end
`)
	i := interp.New()
	d := New(i)
	defer d.Close()

	if err := d.Compile(fn); err == nil {
		t.Fatal("expected compilation of a string print argument to fail")
	}
}
