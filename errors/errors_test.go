package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tsammeow/source-go/ast"
)

func loc() ast.SourceLocation {
	return ast.SourceLocation{
		Source: "main.js",
		Start:  ast.Position{Line: 3, Column: 7},
		End:    ast.Position{Line: 3, Column: 12},
	}
}

func TestFormatPlain(t *testing.T) {
	d := NewRuntime(loc(), "'x' is not declared")
	assert.Equal(t, "[main.js] Line 3, Column 7: 'x' is not declared", Format(d, false))
}

func TestFormatVerboseAppendsElaborate(t *testing.T) {
	d := NewRuntimeDetailed(loc(), "'x' is not declared", "'x' must be declared with let or const before it is referenced, and the declaration must appear earlier in program order.")
	out := Format(d, true)
	assert.Contains(t, out, "'x' is not declared")
	assert.Contains(t, out, "declared with let or const")
}

func TestFormatPlainOmitsElaborate(t *testing.T) {
	d := NewRuntimeDetailed(loc(), "'x' is not declared", "'x' must be declared with let or const before it is referenced, and the declaration must appear earlier in program order.")
	out := Format(d, false)
	assert.NotContains(t, out, "declared with let or const")
}

func TestFormatWithoutFileName(t *testing.T) {
	d := NewSyntax(ast.SourceLocation{Start: ast.Position{Line: 1, Column: 1}}, "unsupported construct")
	assert.Equal(t, "Line 1, Column 1: unsupported construct", Format(d, false))
}

func TestKindsAndSeverity(t *testing.T) {
	assert.Equal(t, KindRuntime, NewRuntime(loc(), "x").Kind())
	assert.Equal(t, KindImport, NewImport(loc(), "x").Kind())
	assert.Equal(t, KindSyntax, NewSyntax(loc(), "x").Kind())
	assert.Equal(t, KindType, NewType(loc(), "x").Kind())
	assert.Equal(t, SeverityError, NewRuntime(loc(), "x").Severity())

	w := Warning(KindRuntime, loc(), "careful")
	assert.Equal(t, SeverityWarning, w.Severity())
}

func TestDiagnosticSatisfiesError(t *testing.T) {
	var err error = NewRuntime(loc(), "boom")
	assert.EqualError(t, err, "[main.js] Line 3, Column 7: boom")
}
