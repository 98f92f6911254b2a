// Package diagnostics renders errors.Diagnostic values for a terminal,
// layering optional ANSI severity coloring on top of errors.Format.
//
// Grounded on kanso-lang-kanso/internal/errors/reporter.go's
// `color.New(color.FgRed, color.Bold).SprintFunc()` pattern for coloring by
// severity, and corroborated by CWBudde-go-dws/internal/errors/errors.go's
// own (hand-rolled) ANSI escapes for the identical concern — this package
// uses the library rather than hand-rolled escape codes, which is the
// slightly more idiomatic and reusable choice of the two the pack shows.
package diagnostics

import (
	"strings"

	"github.com/fatih/color"

	serr "github.com/tsammeow/source-go/errors"
)

// Formatter renders diagnostics for a particular caller. Verbose is spec.md
// §9's `verboseErrors` flag, now a field instead of a process-wide global —
// each session can own its own Formatter instead of sharing mutable state.
type Formatter struct {
	Verbose bool
	Color   bool
}

// New constructs a Formatter. Use zero-value Formatter{} for the terse,
// uncolored default.
func New(verbose, color bool) *Formatter {
	return &Formatter{Verbose: verbose, Color: color}
}

// One formats a single diagnostic.
func (f *Formatter) One(d serr.Diagnostic) string {
	plain := serr.Format(d, f.Verbose)
	if !f.Color {
		return plain
	}
	return severityColor(d.Severity())(plain)
}

// All formats a slice of diagnostics, one per line, in order.
func (f *Formatter) All(diags []serr.Diagnostic) string {
	lines := make([]string, len(diags))
	for i, d := range diags {
		lines[i] = f.One(d)
	}
	return strings.Join(lines, "\n")
}

func severityColor(sev serr.Severity) func(a ...interface{}) string {
	if sev == serr.SeverityWarning {
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	}
	return color.New(color.FgRed, color.Bold).SprintFunc()
}
