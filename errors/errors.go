// Package errors implements the error taxonomy of spec.md §7: every
// diagnostic the core produces — whether from import preprocessing,
// syntax validation, the optional typechecker, the SVM compiler or the CSE
// runtime — carries a Kind, a Severity, a location and an
// explain()/elaborate() pair. svm.Machine.Run is the exception: it reports
// run-time failures as plain Go errors.
//
// It is grounded on CWBudde-go-dws's internal/errors.CompilerError (the
// position + message + Format(color bool) shape) generalized to carry the
// typed Kind/Severity spec.md names instead of a single free-form message,
// and on kanso-lang-kanso's internal/errors package for the idea of
// grouping errors by a closed taxonomy rather than ad-hoc strings.
package errors

import (
	"fmt"

	"github.com/tsammeow/source-go/ast"
)

// Kind is the closed taxonomy from spec.md §7.
type Kind int

const (
	KindImport Kind = iota
	KindSyntax
	KindType
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindImport:
		return "Import"
	case KindSyntax:
		return "Syntax"
	case KindType:
		return "Type"
	case KindRuntime:
		return "Runtime"
	default:
		return "Unknown"
	}
}

// Severity is Warning or Error; warnings accumulate without aborting
// evaluation (spec.md §7's propagation policy).
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "Warning"
	}
	return "Error"
}

// Diagnostic is the interface every error value in this taxonomy
// satisfies. It also satisfies the standard error interface via Error(),
// so callers can thread a Diagnostic through ordinary Go error-handling
// while still having typed access to Kind/Severity/Location when needed.
type Diagnostic interface {
	error
	Kind() Kind
	Severity() Severity
	Location() ast.SourceLocation
	Explain() string
	Elaborate() string
}

// base is embedded by every concrete diagnostic type to avoid repeating
// the five accessor methods on each one.
type base struct {
	kind     Kind
	severity Severity
	loc      ast.SourceLocation
	explain  string
	elaborate string
}

func (b *base) Kind() Kind                    { return b.kind }
func (b *base) Severity() Severity            { return b.severity }
func (b *base) Location() ast.SourceLocation  { return b.loc }
func (b *base) Explain() string               { return b.explain }
func (b *base) Elaborate() string {
	if b.elaborate == "" {
		return b.explain
	}
	return b.elaborate
}
func (b *base) Error() string { return Format(b, false) }

// RuntimeError covers the Runtime kind's many failure modes: undefined
// variable, assignment to const, not-a-function, arity mismatch, type
// mismatch in an operator, division by zero, out-of-range array index,
// stack overflow, timeout, interrupted, potential-infinite-loop.
type RuntimeError struct{ base }

// NewRuntime constructs a Runtime-kind, Error-severity diagnostic. explain is
// the terse, always-shown message; Elaborate() falls back to it verbatim.
func NewRuntime(loc ast.SourceLocation, explain string) *RuntimeError {
	return &RuntimeError{base{kind: KindRuntime, severity: SeverityError, loc: loc, explain: explain}}
}

// NewRuntimeDetailed constructs a Runtime-kind diagnostic carrying distinct
// verbose-mode detail beyond explain — extra context worth showing with
// `--verbose` but too long for the one-line message spec.md §7 always shows.
func NewRuntimeDetailed(loc ast.SourceLocation, explain, elaborate string) *RuntimeError {
	return &RuntimeError{base{kind: KindRuntime, severity: SeverityError, loc: loc, explain: explain, elaborate: elaborate}}
}

// ImportError covers invalid file paths, cyclic imports and missing
// symbols during multi-file preprocessing (an external collaborator per
// spec.md §1; this package only models the error shape it reports back).
type ImportError struct{ base }

func NewImport(loc ast.SourceLocation, explain string) *ImportError {
	return &ImportError{base{kind: KindImport, severity: SeverityError, loc: loc, explain: explain}}
}

// SyntaxError is produced by the validator before the core ever runs, for
// a construct unsupported at the program's language level.
type SyntaxError struct{ base }

func NewSyntax(loc ast.SourceLocation, explain string) *SyntaxError {
	return &SyntaxError{base{kind: KindSyntax, severity: SeverityError, loc: loc, explain: explain}}
}

// TypeError comes from the optional typechecker; the CSE evaluator never
// constructs one (spec.md §7).
type TypeError struct{ base }

func NewType(loc ast.SourceLocation, explain string) *TypeError {
	return &TypeError{base{kind: KindType, severity: SeverityError, loc: loc, explain: explain}}
}

// Warning wraps any of the above kinds at Warning severity. Warnings
// accumulate in session.Errors() but never abort an evaluation.
func Warning(kind Kind, loc ast.SourceLocation, explain string) Diagnostic {
	return &warningDiagnostic{base{kind: kind, severity: SeverityWarning, loc: loc, explain: explain}}
}

type warningDiagnostic struct{ base }

// Format renders d the way spec.md §7 specifies: "[file] Line L, Column C:
// explain", with elaborate appended when verbose is true. It never adds
// color — that is package diagnostics' job, layered on top of this plain
// rendering so this package stays free of a terminal-formatting
// dependency.
func Format(d Diagnostic, verbose bool) string {
	loc := d.Location()
	file := loc.Source
	prefix := fmt.Sprintf("Line %d, Column %d", loc.Start.Line, loc.Start.Column)
	if file != "" {
		prefix = fmt.Sprintf("[%s] %s", file, prefix)
	}
	msg := fmt.Sprintf("%s: %s", prefix, d.Explain())
	if verbose {
		if elaborate := d.Elaborate(); elaborate != "" && elaborate != d.Explain() {
			msg += "\n" + elaborate
		}
	}
	return msg
}
