package lexer

import (
	"testing"

	"github.com/tsammeow/source-go/token"
)

func collectTypes(input string) []token.Type {
	l := New(input)
	var types []token.Type
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == token.EOF {
			return types
		}
	}
}

func TestNextTokenOperatorsAndDelimiters(t *testing.T) {
	input := `const f = (n, a) => n === 0 ? a : f(n - 1, n * a);`
	want := []token.Type{
		token.CONST, token.IDENT, token.ASSIGN, token.LPAREN, token.IDENT, token.COMMA, token.IDENT,
		token.RPAREN, token.ARROW, token.IDENT, token.EQ, token.NUMBER, token.QUESTION, token.IDENT,
		token.COLON, token.IDENT, token.LPAREN, token.IDENT, token.MINUS, token.NUMBER, token.COMMA,
		token.IDENT, token.ASTERISK, token.IDENT, token.RPAREN, token.SEMICOLON, token.EOF,
	}
	got := collectTypes(input)
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestNextTokenKeywordsAndLiterals(t *testing.T) {
	input := `if (x <= 10) { return true; } else { return null; }`
	got := collectTypes(input)
	want := []token.Type{
		token.IF, token.LPAREN, token.IDENT, token.LTE, token.NUMBER, token.RPAREN, token.LBRACE,
		token.RETURN, token.TRUE, token.SEMICOLON, token.RBRACE, token.ELSE, token.LBRACE,
		token.RETURN, token.NULL, token.SEMICOLON, token.RBRACE, token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestDoubleEqualsIsIllegal(t *testing.T) {
	l := New("x == y")
	l.NextToken() // x
	tok := l.NextToken()
	if tok.Type != token.ILLEGAL {
		t.Fatalf("got %s, want ILLEGAL for '=='", tok.Type)
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	l := New("a\nbc")
	first := l.NextToken()
	if first.Line != 1 {
		t.Fatalf("got line %d, want 1", first.Line)
	}
	second := l.NextToken()
	if second.Line != 2 {
		t.Fatalf("got line %d, want 2", second.Line)
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	input := "// leading comment\nlet x = 1; /* block\ncomment */ let y = 2;"
	got := collectTypes(input)
	want := []token.Type{
		token.LET, token.IDENT, token.ASSIGN, token.NUMBER, token.SEMICOLON,
		token.LET, token.IDENT, token.ASSIGN, token.NUMBER, token.SEMICOLON, token.EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStringLiteral(t *testing.T) {
	l := New(`"hello world"`)
	tok := l.NextToken()
	if tok.Type != token.STRING || tok.Literal != "hello world" {
		t.Fatalf("got %+v, want STRING hello world", tok)
	}
}
