// Package parser is a Pratt (operator-precedence) parser in the teacher's
// own shape (registered prefix/infix parse functions keyed by token type,
// precedence climbing via peekPrecedence/curPrecedence), generalized to
// emit package ast's node set instead of the teacher's Monkey AST, and
// restricted to the statement/expression forms spec.md §6 names. It is an
// internal convenience for building fixtures and for any host collaborator
// that wants a ready-made front end; per spec.md §1, full level-gated
// grammar validation remains an external concern this parser does not
// perform.
package parser

import (
	"fmt"
	"strconv"

	"github.com/tsammeow/source-go/ast"
	"github.com/tsammeow/source-go/lexer"
	"github.com/tsammeow/source-go/token"
)

const (
	_ int = iota
	LOWEST
	TERNARY
	LOGICAL_OR
	LOGICAL_AND
	EQUALS
	LESSGREATER
	SUM
	PRODUCT
	PREFIX
	CALL
	INDEX
)

var precedences = map[token.Type]int{
	token.QUESTION: TERNARY,
	token.OR:       LOGICAL_OR,
	token.AND:      LOGICAL_AND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       LESSGREATER,
	token.GT:       LESSGREATER,
	token.LTE:      LESSGREATER,
	token.GTE:      LESSGREATER,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.SLASH:    PRODUCT,
	token.ASTERISK: PRODUCT,
	token.PERCENT:  PRODUCT,
	token.LPAREN:   CALL,
	token.LBRACKET: INDEX,
}

type (
	prefixParseFn func() (ast.Expression, error)
	infixParseFn  func(ast.Expression) (ast.Expression, error)
)

// locatable is implemented by every ast node via the promoted SetLoc method
// on their embedded base; parser code constructs a node then stamps its
// location with this instead of reaching into the unexported base field.
type locatable interface {
	SetLoc(ast.SourceLocation)
}

func stamp[T locatable](n T, loc ast.SourceLocation) T {
	n.SetLoc(loc)
	return n
}

// Parser builds an *ast.Program from a token stream, source name sourceName
// flowing into every node's SourceLocation.Source.
type Parser struct {
	l          *lexer.Lexer
	sourceName string

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New constructs a Parser reading from l, labeling every node's location
// with sourceName (pass "" for an unnamed/REPL snippet).
func New(l *lexer.Lexer, sourceName string) *Parser {
	p := &Parser{l: l, sourceName: sourceName}
	p.prefixParseFns = map[token.Type]prefixParseFn{
		token.IDENT:     p.parseIdentifierOrArrow,
		token.NUMBER:    p.parseNumberLiteral,
		token.STRING:    p.parseStringLiteral,
		token.TRUE:      p.parseBooleanLiteral,
		token.FALSE:     p.parseBooleanLiteral,
		token.NULL:      p.parseNullLiteral,
		token.UNDEFINED: p.parseUndefinedLiteral,
		token.BANG:      p.parsePrefixExpression,
		token.MINUS:     p.parsePrefixExpression,
		token.PLUS:      p.parsePrefixExpression,
		token.TYPEOF:    p.parsePrefixExpression,
		token.LPAREN:    p.parseGroupedOrArrow,
		token.FUNCTION:  p.parseFunctionExpression,
		token.LBRACKET:  p.parseArrayLiteral,
	}
	p.infixParseFns = map[token.Type]infixParseFn{
		token.PLUS:     p.parseInfixExpression,
		token.MINUS:    p.parseInfixExpression,
		token.SLASH:    p.parseInfixExpression,
		token.ASTERISK: p.parseInfixExpression,
		token.PERCENT:  p.parseInfixExpression,
		token.EQ:       p.parseInfixExpression,
		token.NOT_EQ:   p.parseInfixExpression,
		token.LT:       p.parseInfixExpression,
		token.GT:       p.parseInfixExpression,
		token.LTE:      p.parseInfixExpression,
		token.GTE:      p.parseInfixExpression,
		token.AND:      p.parseLogicalExpression,
		token.OR:       p.parseLogicalExpression,
		token.LPAREN:   p.parseCallExpression,
		token.LBRACKET: p.parseIndexExpression,
		token.QUESTION: p.parseConditionalExpression,
	}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) loc() ast.SourceLocation {
	pos := ast.Position{Line: p.curToken.Line, Column: p.curToken.Column}
	return ast.SourceLocation{Source: p.sourceName, Start: pos, End: pos}
}

func (p *Parser) curIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expect(t token.Type) error {
	if !p.peekIs(t) {
		return fmt.Errorf("expected next token to be %s, got %s instead", t, p.peekToken.Type)
	}
	p.nextToken()
	return nil
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

// ParseProgram parses the full input as a top-level statement list.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for !p.curIs(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, stmt)
		p.nextToken()
	}
	return prog, nil
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.curToken.Type {
	case token.CONST, token.LET:
		return p.parseVariableDeclaration()
	case token.FUNCTION:
		return p.parseFunctionDeclaration()
	case token.RETURN:
		return p.parseReturnStatement()
	case token.IF:
		return p.parseIfStatement()
	case token.WHILE:
		return p.parseWhileStatement()
	case token.FOR:
		return p.parseForStatement()
	case token.LBRACE:
		return p.parseBlockStatement()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseVariableDeclaration() (ast.Statement, error) {
	loc := p.loc()
	kind := ast.KindConst
	if p.curIs(token.LET) {
		kind = ast.KindLet
	}
	if err := p.expect(token.IDENT); err != nil {
		return nil, err
	}
	name := stamp(&ast.Identifier{Name: p.curToken.Literal}, p.loc())
	if err := p.expect(token.ASSIGN); err != nil {
		return nil, err
	}
	p.nextToken()
	init, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if p.peekIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stamp(&ast.VariableDeclaration{Kind: kind, Name: name, Init: init}, loc), nil
}

func (p *Parser) parseFunctionDeclaration() (ast.Statement, error) {
	loc := p.loc()
	if err := p.expect(token.IDENT); err != nil {
		return nil, err
	}
	name := stamp(&ast.Identifier{Name: p.curToken.Literal}, p.loc())
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}
	return stamp(&ast.FunctionDeclaration{Name: name, Params: params, Body: body}, loc), nil
}

func (p *Parser) parseParamList() ([]*ast.Identifier, error) {
	if !p.curIs(token.LPAREN) {
		if err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
	}
	var params []*ast.Identifier
	if p.peekIs(token.RPAREN) {
		p.nextToken()
		return params, nil
	}
	p.nextToken()
	params = append(params, stamp(&ast.Identifier{Name: p.curToken.Literal}, p.loc()))
	for p.peekIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		params = append(params, stamp(&ast.Identifier{Name: p.curToken.Literal}, p.loc()))
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseReturnStatement() (ast.Statement, error) {
	loc := p.loc()
	if p.peekIs(token.SEMICOLON) {
		p.nextToken()
		return stamp(&ast.ReturnStatement{}, loc), nil
	}
	p.nextToken()
	arg, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if p.peekIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stamp(&ast.ReturnStatement{Argument: arg}, loc), nil
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	loc := p.loc()
	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	p.nextToken()
	test, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	cons, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}
	stmt := stamp(&ast.IfStatement{Test: test, Consequent: cons}, loc)
	if p.peekIs(token.ELSE) {
		p.nextToken()
		if p.peekIs(token.IF) {
			p.nextToken()
			alt, err := p.parseIfStatement()
			if err != nil {
				return nil, err
			}
			stmt.Alternate = alt
		} else {
			if err := p.expect(token.LBRACE); err != nil {
				return nil, err
			}
			alt, err := p.parseBlockStatement()
			if err != nil {
				return nil, err
			}
			stmt.Alternate = alt
		}
	}
	return stmt, nil
}

func (p *Parser) parseWhileStatement() (ast.Statement, error) {
	loc := p.loc()
	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	p.nextToken()
	test, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}
	return stamp(&ast.WhileStatement{Test: test, Body: body}, loc), nil
}

func (p *Parser) parseForStatement() (ast.Statement, error) {
	loc := p.loc()
	if err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	p.nextToken()
	var init ast.Statement
	var err error
	if !p.curIs(token.SEMICOLON) {
		init, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	if !p.curIs(token.SEMICOLON) {
		if err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
	}
	p.nextToken()
	test, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	p.nextToken()
	var update ast.Expression
	if !p.curIs(token.RPAREN) {
		update, err = p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}
	return stamp(&ast.ForStatement{Init: init, Test: test, Update: update, Body: body}, loc), nil
}

func (p *Parser) parseBlockStatement() (*ast.BlockStatement, error) {
	loc := p.loc()
	block := &ast.BlockStatement{}
	p.nextToken()
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Body = append(block.Body, stmt)
		p.nextToken()
	}
	return stamp(block, loc), nil
}

func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	loc := p.loc()
	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if p.peekIs(token.SEMICOLON) {
		p.nextToken()
	}
	return stamp(&ast.ExpressionStatement{Expr: expr}, loc), nil
}

func (p *Parser) parseExpression(precedence int) (ast.Expression, error) {
	prefix, ok := p.prefixParseFns[p.curToken.Type]
	if !ok {
		return nil, fmt.Errorf("no prefix parse function for %s", p.curToken.Type)
	}
	left, err := prefix()
	if err != nil {
		return nil, err
	}
	for !p.peekIs(token.SEMICOLON) && precedence < p.peekPrecedence() {
		infix, ok := p.infixParseFns[p.peekToken.Type]
		if !ok {
			return left, nil
		}
		p.nextToken()
		left, err = infix(left)
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parseIdentifier() (ast.Expression, error) {
	ident := stamp(&ast.Identifier{Name: p.curToken.Literal}, p.loc())
	if p.peekIs(token.ASSIGN) {
		loc := p.loc()
		p.nextToken()
		p.nextToken()
		val, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		return stamp(&ast.AssignmentExpression{Target: ident, Value: val}, loc), nil
	}
	return ident, nil
}

// parseIdentifierOrArrow disambiguates a bare identifier from a single
// unparenthesized arrow-function parameter (`n => ...`), the single-param
// shorthand Source's arrow syntax permits alongside the parenthesized
// `(n) => ...` form parseGroupedOrArrow handles.
func (p *Parser) parseIdentifierOrArrow() (ast.Expression, error) {
	if !p.peekIs(token.ARROW) {
		return p.parseIdentifier()
	}
	loc := p.loc()
	param := stamp(&ast.Identifier{Name: p.curToken.Literal}, p.loc())
	p.nextToken()
	p.nextToken()
	if p.curIs(token.LBRACE) {
		body, err := p.parseBlockStatement()
		if err != nil {
			return nil, err
		}
		return stamp(&ast.ArrowFunctionExpression{Params: []*ast.Identifier{param}, BlockBody: body}, loc), nil
	}
	body, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	return stamp(&ast.ArrowFunctionExpression{Params: []*ast.Identifier{param}, Body: body}, loc), nil
}

func (p *Parser) parseNumberLiteral() (ast.Expression, error) {
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		return nil, fmt.Errorf("could not parse %q as number", p.curToken.Literal)
	}
	return stamp(&ast.Literal{Kind: ast.LiteralNumber, Value: v}, p.loc()), nil
}

func (p *Parser) parseStringLiteral() (ast.Expression, error) {
	return stamp(&ast.Literal{Kind: ast.LiteralString, Value: p.curToken.Literal}, p.loc()), nil
}

func (p *Parser) parseBooleanLiteral() (ast.Expression, error) {
	return stamp(&ast.Literal{Kind: ast.LiteralBoolean, Value: p.curIs(token.TRUE)}, p.loc()), nil
}

func (p *Parser) parseNullLiteral() (ast.Expression, error) {
	return stamp(&ast.Literal{Kind: ast.LiteralNull}, p.loc()), nil
}

func (p *Parser) parseUndefinedLiteral() (ast.Expression, error) {
	return stamp(&ast.Literal{Kind: ast.LiteralUndefined}, p.loc()), nil
}

func (p *Parser) parsePrefixExpression() (ast.Expression, error) {
	loc := p.loc()
	op := p.curToken.Literal
	p.nextToken()
	right, err := p.parseExpression(PREFIX)
	if err != nil {
		return nil, err
	}
	return stamp(&ast.UnaryExpression{Operator: op, Argument: right}, loc), nil
}

func (p *Parser) parseInfixExpression(left ast.Expression) (ast.Expression, error) {
	loc := p.loc()
	op := p.curToken.Literal
	prec := p.curPrecedence()
	p.nextToken()
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	return stamp(&ast.BinaryExpression{Operator: op, Left: left, Right: right}, loc), nil
}

func (p *Parser) parseLogicalExpression(left ast.Expression) (ast.Expression, error) {
	loc := p.loc()
	op := p.curToken.Literal
	prec := p.curPrecedence()
	p.nextToken()
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	return stamp(&ast.LogicalExpression{Operator: op, Left: left, Right: right}, loc), nil
}

func (p *Parser) parseConditionalExpression(test ast.Expression) (ast.Expression, error) {
	loc := p.loc()
	p.nextToken()
	cons, err := p.parseExpression(TERNARY)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	p.nextToken()
	alt, err := p.parseExpression(TERNARY)
	if err != nil {
		return nil, err
	}
	return stamp(&ast.ConditionalExpression{Test: test, Consequent: cons, Alternate: alt}, loc), nil
}

func (p *Parser) parseCallExpression(callee ast.Expression) (ast.Expression, error) {
	loc := p.loc()
	args, err := p.parseExpressionList(token.RPAREN)
	if err != nil {
		return nil, err
	}
	return stamp(&ast.CallExpression{Callee: callee, Arguments: args}, loc), nil
}

func (p *Parser) parseIndexExpression(obj ast.Expression) (ast.Expression, error) {
	loc := p.loc()
	p.nextToken()
	idx, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	member := stamp(&ast.MemberExpression{Object: obj, Property: idx}, loc)
	if p.peekIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		val, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		return stamp(&ast.AssignmentExpression{Target: member, Value: val}, loc), nil
	}
	return member, nil
}

func (p *Parser) parseArrayLiteral() (ast.Expression, error) {
	loc := p.loc()
	elems, err := p.parseExpressionList(token.RBRACKET)
	if err != nil {
		return nil, err
	}
	return stamp(&ast.ArrayExpression{Elements: elems}, loc), nil
}

func (p *Parser) parseExpressionList(end token.Type) ([]ast.Expression, error) {
	var list []ast.Expression
	if p.peekIs(end) {
		p.nextToken()
		return list, nil
	}
	p.nextToken()
	first, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	list = append(list, first)
	for p.peekIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		next, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		list = append(list, next)
	}
	if err := p.expect(end); err != nil {
		return nil, err
	}
	return list, nil
}

func (p *Parser) parseFunctionExpression() (ast.Expression, error) {
	loc := p.loc()
	var name *ast.Identifier
	if p.peekIs(token.IDENT) {
		p.nextToken()
		name = stamp(&ast.Identifier{Name: p.curToken.Literal}, p.loc())
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	body, err := p.parseBlockStatement()
	if err != nil {
		return nil, err
	}
	return stamp(&ast.FunctionExpression{Name: name, Params: params, Body: body}, loc), nil
}

// parseGroupedOrArrow disambiguates `(expr)` from an arrow function's
// parameter list by attempting an arrow parse first and falling back to a
// grouped expression when no `=>` follows the closing paren — the teacher
// has no arrow-function form to generalize from, so this follows the
// common recursive-descent technique of a speculative parse with rollback.
func (p *Parser) parseGroupedOrArrow() (ast.Expression, error) {
	save := *p
	lexSave := *p.l
	if expr, ok := p.tryParseArrow(); ok {
		return expr, nil
	}
	*p = save
	*p.l = lexSave
	p.nextToken()
	expr, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *Parser) tryParseArrow() (ast.Expression, bool) {
	loc := p.loc()
	params, err := p.parseParamList()
	if err != nil || !p.peekIs(token.ARROW) {
		return nil, false
	}
	p.nextToken()
	p.nextToken()
	if p.curIs(token.LBRACE) {
		body, err := p.parseBlockStatement()
		if err != nil {
			return nil, false
		}
		return stamp(&ast.ArrowFunctionExpression{Params: params, BlockBody: body}, loc), true
	}
	body, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, false
	}
	return stamp(&ast.ArrowFunctionExpression{Params: params, Body: body}, loc), true
}
