package interp

import (
	"bytes"
	"io"
	"os"
	"testing"

	"slugjit/internal/ast"
	"slugjit/internal/lexer"
	"slugjit/internal/parser"
	"slugjit/internal/value"
)

func parseOrFatal(t *testing.T, src string) *ast.Block {
	l := lexer.New(src)
	p := parser.New(l, src)
	block := p.ParseProgram()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parser errors: %v", errs)
	}
	return block
}

func runAndCapture(t *testing.T, src string) string {
	block := parseOrFatal(t, src)
	i := New()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	var runErr error
	for _, stmt := range block.Statements {
		if runErr = i.ExecuteTopLevel(stmt); runErr != nil {
			break
		}
	}

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)

	if runErr != nil {
		t.Fatalf("unexpected runtime error: %v", runErr)
	}
	return buf.String()
}

func TestPrintArithmetic(t *testing.T) {
	out := runAndCapture(t, `print(1 + 2 * 3)`)
	if out != "7\n" {
		t.Fatalf("got %q, want %q", out, "7\n")
	}
}

func TestPrintTabSeparated(t *testing.T) {
	out := runAndCapture(t, `print(1, true, "hi")`)
	if out != "1\ttrue\thi\n" {
		t.Fatalf("got %q, want %q", out, "1\ttrue\thi\n")
	}
}

func TestFibonacci(t *testing.T) {
	out := runAndCapture(t, `
function fib(n)
	if n < 2 then
		return n
	end
	return fib(n - 1) + fib(n - 2)
end
print(fib(10))
`)
	if out != "55\n" {
		t.Fatalf("got %q, want %q", out, "55\n")
	}
}

func TestWhileLoop(t *testing.T) {
	out := runAndCapture(t, `
local i = 0
local sum = 0
while i < 5 do
	sum = sum + i
	i = i + 1
end
print(sum)
`)
	if out != "10\n" {
		t.Fatalf("got %q, want %q", out, "10\n")
	}
}

func TestDivisionByZeroErrors(t *testing.T) {
	block := parseOrFatal(t, `print(1 / 0)`)
	i := New()
	var err error
	for _, stmt := range block.Statements {
		if err = i.ExecuteTopLevel(stmt); err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("expected division by zero to produce a runtime error")
	}
}

func TestCallSnapshotsAndRestoresVariables(t *testing.T) {
	block := parseOrFatal(t, `
local x = 100

function clobber(x)
	x = 999
	return x
end

local result = clobber(1)
`)
	i := New()
	for _, stmt := range block.Statements {
		if err := i.ExecuteTopLevel(stmt); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := i.variables["x"]; got.Int != 100 {
		t.Fatalf("caller's x was mutated by callee: got %v", got)
	}
	if got := i.variables["result"]; got.Int != 999 {
		t.Fatalf("expected result=999, got %v", got)
	}
}

func TestComparisonExactlyOneHolds(t *testing.T) {
	tests := []struct {
		l, r int64
	}{{1, 2}, {2, 1}, {2, 2}, {-5, 5}}

	for _, tt := range tests {
		lt := tt.l < tt.r
		eq := tt.l == tt.r
		gt := tt.l > tt.r
		count := 0
		for _, b := range []bool{lt, eq, gt} {
			if b {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("expected exactly one of lt/eq/gt for (%d,%d), got lt=%v eq=%v gt=%v", tt.l, tt.r, lt, eq, gt)
		}
	}
}

func TestAsBooleanCoercionInCondition(t *testing.T) {
	out := runAndCapture(t, `
if "nonempty" then
	print("truthy")
end
`)
	if out != "truthy\n" {
		t.Fatalf("got %q, want %q", out, "truthy\n")
	}
}

func TestAndOrEvaluateBothSidesUnconditionally(t *testing.T) {
	block := parseOrFatal(t, `print(false and (1 / 0))`)
	i := New()
	var err error
	for _, stmt := range block.Statements {
		if err = i.ExecuteTopLevel(stmt); err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("expected the right operand of 'and' to be evaluated (and trap on divide-by-zero) even though the left is false")
	}
}

func TestStringConcatenationWithAdd(t *testing.T) {
	out := runAndCapture(t, `print("count: " + 5)`)
	if out != "count: 5\n" {
		t.Fatalf("got %q, want %q", out, "count: 5\n")
	}
}

func TestCallWithFewerArgumentsThanParamsBindsNone(t *testing.T) {
	out := runAndCapture(t, `
function f(a, b)
	print(a, b)
end
f(1)
`)
	if out != "1\tnil\n" {
		t.Fatalf("got %q, want %q", out, "1\tnil\n")
	}
}

func TestCallWithMoreArgumentsThanParamsIgnoresExtras(t *testing.T) {
	out := runAndCapture(t, `
function f(a)
	print(a)
end
f(1, 2, 3)
`)
	if out != "1\n" {
		t.Fatalf("got %q, want %q", out, "1\n")
	}
}

func TestNoneEqualsNoneIsFalse(t *testing.T) {
	out := runAndCapture(t, `
function f(a)
	print(a == a)
end
f()
`)
	if out != "false\n" {
		t.Fatalf("got %q, want %q", out, "false\n")
	}
}

var _ = value.NewNone
