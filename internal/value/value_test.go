package value

import "testing"

func TestAsBoolean(t *testing.T) {
	tests := []struct {
		name     string
		v        Value
		expected bool
	}{
		{"true boolean", NewBoolean(true), true},
		{"false boolean", NewBoolean(false), false},
		{"nonzero integer", NewInteger(5), true},
		{"zero integer", NewInteger(0), false},
		{"negative integer", NewInteger(-1), true},
		{"string", NewString(""), true},
		{"none", NewNone(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.AsBoolean(); got != tt.expected {
				t.Fatalf("AsBoolean() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAsIntegerPanicsOnMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic coercing a string to integer")
		}
	}()
	NewString("x").AsInteger()
}

func TestStringFormatting(t *testing.T) {
	tests := []struct {
		v        Value
		expected string
	}{
		{NewInteger(42), "42"},
		{NewInteger(-7), "-7"},
		{NewBoolean(true), "true"},
		{NewBoolean(false), "false"},
		{NewString("hi"), "hi"},
		{NewNone(), "nil"},
	}

	for _, tt := range tests {
		if got := tt.v.String(); got != tt.expected {
			t.Fatalf("String() = %q, want %q", got, tt.expected)
		}
	}
}
