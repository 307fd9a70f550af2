package parser

import (
	"fmt"
	"strconv"

	"slugjit/internal/ast"
	"slugjit/internal/lexer"
	"slugjit/internal/token"
	"slugjit/internal/util"
)

const (
	_ int = iota
	LOWEST
	OR_PREC
	AND_PREC
	EQUALS
	LESSGREATER
	SUM
	PRODUCT
	PREFIX
	CALL
)

var precedences = map[token.TokenType]int{
	token.OR:      OR_PREC,
	token.AND:     AND_PREC,
	token.EQ:      EQUALS,
	token.NOT_EQ:  EQUALS,
	token.LT:      LESSGREATER,
	token.LT_EQ:   LESSGREATER,
	token.GT:      LESSGREATER,
	token.GT_EQ:   LESSGREATER,
	token.PLUS:    SUM,
	token.MINUS:   SUM,
	token.STAR:    PRODUCT,
	token.SLASH:   PRODUCT,
	token.PERCENT: PRODUCT,
	token.LPAREN:  CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser is a Pratt parser: prefix/infix handlers are keyed by token type
// and dispatched by precedence climbing.
type Parser struct {
	l   *lexer.Lexer
	src string

	errors []string

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer, source string) *Parser {
	p := &Parser{l: l, src: source, errors: []string{}}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifierOrCall)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolean)
	p.registerPrefix(token.FALSE, p.parseBoolean)
	p.registerPrefix(token.MINUS, p.parseUnaryExpression)
	p.registerPrefix(token.NOT, p.parseUnaryExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	for _, tt := range []token.TokenType{
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.EQ, token.NOT_EQ, token.LT, token.LT_EQ, token.GT, token.GT_EQ,
		token.AND, token.OR,
	} {
		p.registerInfix(tt, p.parseBinaryExpression)
	}

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(tt token.TokenType, fn prefixParseFn) { p.prefixParseFns[tt] = fn }
func (p *Parser) registerInfix(tt token.TokenType, fn infixParseFn)   { p.infixParseFns[tt] = fn }

func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(tt token.TokenType) bool  { return p.curToken.Type == tt }
func (p *Parser) peekTokenIs(tt token.TokenType) bool { return p.peekToken.Type == tt }

func (p *Parser) expectPeek(tt token.TokenType) bool {
	if p.peekTokenIs(tt) {
		p.nextToken()
		return true
	}
	p.peekError(tt)
	return false
}

func (p *Parser) peekError(tt token.TokenType) {
	p.errorf("expected next token to be %s, got %s instead", tt, p.peekToken.Type)
}

// errorf records a parse error at the current token's position, followed
// by up to two preceding source lines and the error line with a caret
// under the error column.
func (p *Parser) errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	line, col := util.GetLineAndColumn(p.src, p.curToken.Position)
	context := util.GetContextLines(p.src, line, col, p.curToken.Position)
	p.errors = append(p.errors, fmt.Sprintf("%s\n%s", msg, context))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// ParseProgram parses the entire source file into a single root Block.
func (p *Parser) ParseProgram() *ast.Block {
	block := &ast.Block{Token: p.curToken, Statements: []ast.Statement{}}

	for !p.curTokenIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case token.LOCAL:
		return p.parseAssignment(true)
	case token.IDENT:
		if p.peekTokenIs(token.ASSIGN) || p.peekTokenIs(token.COLON) {
			return p.parseAssignment(false)
		}
		return p.parseCallStatement()
	case token.FUNCTION:
		return p.parseFunctionDef()
	case token.RETURN:
		return p.parseReturn()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.PRINT:
		return p.parsePrint()
	default:
		p.errorf("unexpected token %s (%q) at start of statement", p.curToken.Type, p.curToken.Literal)
		return nil
	}
}

func (p *Parser) parseAssignment(isLocal bool) ast.Statement {
	tok := p.curToken
	if isLocal {
		if !p.expectPeek(token.IDENT) {
			return nil
		}
	}
	name := p.curToken.Literal

	var typeAnn *ast.TypeAnnotation
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		typeAnn = &ast.TypeAnnotation{Token: p.curToken, Name: p.curToken.Literal}
	}

	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()

	value := p.parseExpression(LOWEST)

	return &ast.Assignment{Token: tok, Name: name, TypeAnn: typeAnn, Value: value, IsLocal: isLocal}
}

func (p *Parser) parseCallStatement() ast.Statement {
	tok := p.curToken
	expr := p.parseExpression(LOWEST)
	call, ok := expr.(*ast.FunctionCall)
	if !ok {
		p.errorf("expected function call statement, got %s", expr.String())
		return nil
	}
	return &ast.CallStatement{Token: tok, Call: call}
}

func (p *Parser) parseFunctionDef() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Literal

	if !p.expectPeek(token.LPAREN) {
		return nil
	}

	params := p.parseParamList()

	var retType *ast.TypeAnnotation
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		if !p.expectPeek(token.IDENT) {
			return nil
		}
		retType = &ast.TypeAnnotation{Token: p.curToken, Name: p.curToken.Literal}
	}

	body := p.parseBlockUntil(token.END)
	if !p.curTokenIs(token.END) {
		p.errorf("expected 'end' to close function %s", name)
		return nil
	}

	return &ast.FunctionDef{Token: tok, Name: name, Params: params, ReturnType: retType, Body: body}
}

func (p *Parser) parseParamList() []ast.Param {
	var params []ast.Param

	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}

	p.nextToken()
	params = append(params, p.parseParam())

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		params = append(params, p.parseParam())
	}

	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseParam() ast.Param {
	name := p.curToken.Literal
	var typeAnn *ast.TypeAnnotation
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		if p.expectPeek(token.IDENT) {
			typeAnn = &ast.TypeAnnotation{Token: p.curToken, Name: p.curToken.Literal}
		}
	}
	return ast.Param{Name: name, TypeAnn: typeAnn}
}

func (p *Parser) parseReturn() ast.Statement {
	tok := p.curToken
	if p.peekTokenIs(token.EOF) || p.isBlockTerminator(p.peekToken.Type) {
		return &ast.Return{Token: tok, Value: nil}
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	return &ast.Return{Token: tok, Value: value}
}

func (p *Parser) isBlockTerminator(tt token.TokenType) bool {
	switch tt {
	case token.END, token.ELSE, token.ELSEIF, token.EOF:
		return true
	default:
		return false
	}
}

// parseIf desugars `elseif` into a nested If inside a single-statement Else
// block, matching the grammar this language was distilled from.
func (p *Parser) parseIf() ast.Statement {
	tok := p.curToken
	p.nextToken()
	cond := p.parseExpression(LOWEST)

	if !p.expectPeek(token.THEN) {
		return nil
	}

	then := p.parseBlockUntil(token.END, token.ELSE, token.ELSEIF)

	var elseBlock *ast.Block
	switch p.curToken.Type {
	case token.ELSEIF:
		nested := p.parseIf()
		elseBlock = &ast.Block{Token: p.curToken, Statements: []ast.Statement{nested}}
		return &ast.If{Token: tok, Condition: cond, Then: then, Else: elseBlock}
	case token.ELSE:
		elseBlock = p.parseBlockUntil(token.END)
		if !p.curTokenIs(token.END) {
			p.errorf("expected 'end' to close if statement")
			return nil
		}
	case token.END:
		// no else branch
	default:
		p.errorf("expected 'end', 'else' or 'elseif', got %s", p.curToken.Type)
		return nil
	}

	return &ast.If{Token: tok, Condition: cond, Then: then, Else: elseBlock}
}

func (p *Parser) parseWhile() ast.Statement {
	tok := p.curToken
	p.nextToken()
	cond := p.parseExpression(LOWEST)

	if !p.expectPeek(token.DO) {
		return nil
	}

	body := p.parseBlockUntil(token.END)
	if !p.curTokenIs(token.END) {
		p.errorf("expected 'end' to close while loop")
		return nil
	}

	return &ast.While{Token: tok, Condition: cond, Body: body}
}

func (p *Parser) parsePrint() ast.Statement {
	tok := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	args := p.parseExpressionList(token.RPAREN)
	return &ast.Print{Token: tok, Args: args}
}

// parseBlockUntil consumes statements until the current token is one of the
// terminator types (left un-consumed, so the caller can branch on it).
func (p *Parser) parseBlockUntil(terminators ...token.TokenType) *ast.Block {
	block := &ast.Block{Token: p.curToken, Statements: []ast.Statement{}}
	p.nextToken()

	for !p.curTokenIs(token.EOF) && !p.isTerminator(p.curToken.Type, terminators) {
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		p.nextToken()
	}
	return block
}

func (p *Parser) isTerminator(tt token.TokenType, terminators []token.TokenType) bool {
	for _, t := range terminators {
		if tt == t {
			return true
		}
	}
	return false
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf("no prefix parse function for %s found", p.curToken.Type)
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(token.EOF) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifierOrCall() ast.Expression {
	tok := p.curToken
	name := p.curToken.Literal
	if p.peekTokenIs(token.LPAREN) {
		p.nextToken()
		args := p.parseExpressionList(token.RPAREN)
		return &ast.FunctionCall{Token: tok, Name: name, Args: args}
	}
	return &ast.Variable{Token: tok, Name: name}
}

func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	var list []ast.Expression

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.errorf("could not parse %q as integer", p.curToken.Literal)
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBoolean() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(token.TRUE)}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	tok := p.curToken
	var op ast.UnaryOpType
	if tok.Type == token.NOT {
		op = ast.Not
	} else {
		op = ast.Neg
	}
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	return &ast.UnaryOp{Token: tok, Op: op, Operand: operand}
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	op := ast.BinaryOpType(tok.Literal)
	if tok.Type == token.AND {
		op = ast.And
	} else if tok.Type == token.OR {
		op = ast.Or
	}
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	return &ast.BinaryOp{Token: tok, Op: op, Left: left, Right: right}
}
