package lexer

import (
	"testing"

	"slugjit/internal/token"
)

func TestNextToken_Operators(t *testing.T) {
	input := `+ - * / % == ~= < <= > >= = ( ) , :`

	tests := []struct {
		expectedType    token.TokenType
		expectedLiteral string
	}{
		{token.PLUS, "+"},
		{token.MINUS, "-"},
		{token.STAR, "*"},
		{token.SLASH, "/"},
		{token.PERCENT, "%"},
		{token.EQ, "=="},
		{token.NOT_EQ, "~="},
		{token.LT, "<"},
		{token.LT_EQ, "<="},
		{token.GT, ">"},
		{token.GT_EQ, ">="},
		{token.ASSIGN, "="},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.COMMA, ","},
		{token.COLON, ":"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - wrong type. expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - wrong literal. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNextToken_Keywords(t *testing.T) {
	input := `function end if then else elseif while do return local and or not type print true false foo`

	tests := []token.TokenType{
		token.FUNCTION, token.END, token.IF, token.THEN, token.ELSE, token.ELSEIF,
		token.WHILE, token.DO, token.RETURN, token.LOCAL, token.AND, token.OR,
		token.NOT, token.TYPE, token.PRINT, token.TRUE, token.FALSE, token.IDENT,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - wrong type. expected=%q, got=%q (%q)", i, expected, tok.Type, tok.Literal)
		}
	}
}

func TestNextToken_StringEscapes(t *testing.T) {
	input := `"hello\tworld\n" "quote: \" backslash: \\"`

	l := New(input)

	tok := l.NextToken()
	if tok.Type != token.STRING || tok.Literal != "hello\tworld\n" {
		t.Fatalf("unexpected first string token: %+v", tok)
	}

	tok = l.NextToken()
	if tok.Type != token.STRING || tok.Literal != `quote: " backslash: \` {
		t.Fatalf("unexpected second string token: %+v", tok)
	}
}

func TestNextToken_LineComment(t *testing.T) {
	input := "local x = 1 -- this is a comment\nlocal y = 2"

	l := New(input)
	var types []token.TokenType
	for {
		tok := l.NextToken()
		if tok.Type == token.EOF {
			break
		}
		types = append(types, tok.Type)
	}

	expected := []token.TokenType{
		token.LOCAL, token.IDENT, token.ASSIGN, token.INT,
		token.LOCAL, token.IDENT, token.ASSIGN, token.INT,
	}
	if len(types) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(types), types)
	}
	for i, typ := range types {
		if typ != expected[i] {
			t.Fatalf("token[%d]: expected %q, got %q", i, expected[i], typ)
		}
	}
}
