// Package session implements C11: the orchestrator a host embeds to run
// one Source evaluation end to end — wiring a fresh object.Environment, a
// builtins.Table, and a cse.Evaluator together, tracking suspend/resume
// state across calls, and surfacing errors through package diagnostics.
//
// Grounded on the teacher's repl/repl.go, which persists a symbol table,
// constants pool and globals slice across successive `Eval` calls so a
// REPL session accumulates state line by line; Session generalizes that
// same "one long-lived mutable core, many short calls into it" shape into
// a reusable, non-interactive type with no REPL loop of its own — per
// spec.md §6, only the evaluator/compiler/assembler core is a recognised
// external interface, not a CLI.
package session

import (
	"fmt"
	"time"

	"github.com/tsammeow/source-go/ast"
	"github.com/tsammeow/source-go/builtins"
	"github.com/tsammeow/source-go/cse"
	"github.com/tsammeow/source-go/diagnostics"
	"github.com/tsammeow/source-go/errors"
	"github.com/tsammeow/source-go/object"
)

// Level is the Source language level (1-4) a session is restricted to.
// Package session does not itself enforce level-specific syntax — per
// spec.md §9's open question, that validation happens upstream — but it
// carries the value for hosts that want to report it alongside results.
type Level int

const (
	Level1 Level = iota + 1
	Level2
	Level3
	Level4
)

// Variant distinguishes the lazy/typed/WebAssembly Source variants spec.md
// never details further; package session threads it through untouched for
// a host to key behavior on, since this core defines none itself.
type Variant string

// State is where a Session currently sits in the
// Idle → Running → (Finished | Error | Suspended) → Running | Idle cycle
// spec.md §4.11 names.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFinished
	StateError
	StateSuspended
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateFinished:
		return "Finished"
	case StateError:
		return "Error"
	case StateSuspended:
		return "Suspended"
	default:
		return "Unknown"
	}
}

// Option configures a Session at construction time — the functional-options
// shape the teacher reaches for with many optional constructor fields
// (vm.NewWithGlobalStore, NewFrame), generalized to the larger set of
// optional knobs spec.md §6's "recognised evaluation options" names
// (stepLimit, breakpoints, maxExecTime, and so on).
type Option func(*Session)

// WithStepLimit caps the number of Control pops per Run call; 0 (the
// default) means unlimited.
func WithStepLimit(n int) Option {
	return func(s *Session) { s.stepLimit = n }
}

// WithBreakpoints installs the set of source lines that should suspend
// execution just before the statement on that line runs.
func WithBreakpoints(lines []int) Option {
	return func(s *Session) {
		s.breakpoints = make(map[int]bool, len(lines))
		for _, l := range lines {
			s.breakpoints[l] = true
		}
	}
}

// WithMaxExecTime sets the wall-clock budget spec.md §5 checks between
// steps; 0 (the default) means unbounded.
func WithMaxExecTime(d time.Duration) Option {
	return func(s *Session) { s.maxExecTime = d }
}

// WithShouldIncreaseTimeout enables spec.md §5's one-time ×10 budget
// extension before a TimeoutError fires.
func WithShouldIncreaseTimeout(should bool) Option {
	return func(s *Session) { s.shouldIncreaseTimeout = should }
}

// WithHooks installs the host's display/prompt/alert/visualise bridge. A
// session with no hooks installed falls back to noopHooks, which discards
// everything — sufficient for a pure value-checking evaluation.
func WithHooks(hooks cse.HostHooks) Option {
	return func(s *Session) { s.hooks = hooks }
}

// Session owns one evaluation's full mutable state: its global environment,
// its built-in catalog, its live cse.Machine, and the bookkeeping spec.md
// §4.11/§5 require (state, step count, accumulated errors, the interrupt
// flag). One Session evaluates one program; construct a new Session per
// program the way the teacher's REPL constructs a fresh evaluator.Environment
// per process but reuses it across lines within that process.
type Session struct {
	Level   Level
	Variant Variant

	env      *object.Environment
	builtins *builtins.Table
	evalr    *cse.Evaluator
	machine  *cse.Machine
	hooks    cse.HostHooks

	state  State
	errs   []errors.Diagnostic
	result object.Value

	stepLimit             int
	breakpoints           map[int]bool
	maxExecTime           time.Duration
	shouldIncreaseTimeout bool
	timeoutExtended       bool
	deadline              time.Time

	interrupted bool
}

// New constructs an Idle Session for level/variant, installing a fresh
// global environment and built-in table — the same `builtins.Install`
// entry point a standalone REPL would call once at startup.
func New(level Level, variant Variant, opts ...Option) *Session {
	env := object.Global()
	table := builtins.Install(env)
	s := &Session{
		Level:    level,
		Variant:  variant,
		env:      env,
		builtins: table,
		hooks:    noopHooks{},
	}
	for _, o := range opts {
		o(s)
	}
	s.evalr = cse.New(s.builtins, s.hooks)
	s.machine = cse.NewMachine(env)
	return s
}

// State reports where the session currently sits in its lifecycle.
func (s *Session) State() State { return s.state }

// Errors returns every diagnostic accumulated so far, in the order raised.
// Warnings accumulate without changing State; a Runtime/Syntax/Type error
// both appends here and moves State to StateError.
func (s *Session) Errors() []errors.Diagnostic { return s.errs }

// Steps reports the total number of Control pops executed across every
// Run call this session has made, including ones that ended in Suspended.
func (s *Session) Steps() int { return s.machine.Steps }

// Value returns the last Finished run's result, or object.Undefined if the
// session never finished.
func (s *Session) Value() object.Value {
	if s.result == nil {
		return object.Undefined
	}
	return s.result
}

// Interrupt requests that the next Run call suspend at the next step
// boundary — spec.md §5's external interrupt flag, which Run reports as an
// InterruptedError once observed rather than silently suspending.
func (s *Session) Interrupt() { s.interrupted = true }

// Load seeds the session's machine with program and transitions it from
// Idle to ready-to-Run. Load may only be called once per Session — a fresh
// Session per program is the intended lifetime, matching spec.md §4.11's
// "a session may only have one active evaluation at a time."
func (s *Session) Load(program *ast.Program) {
	s.machine.Load(program)
	s.state = StateRunning
	s.deadline = time.Time{}
}

// Run drives the evaluator until the program finishes, errors, or this
// call's step/time budget is exhausted, returning the resulting State.
// Calling Run again after Suspended resumes exactly where the previous
// call left off (spec.md §8 invariant 2): nothing about "where we are"
// lives anywhere outside s.machine.
func (s *Session) Run() State {
	if s.state != StateRunning && s.state != StateSuspended {
		return s.state
	}
	s.state = StateRunning

	if s.maxExecTime > 0 && s.deadline.IsZero() {
		s.deadline = time.Now().Add(s.maxExecTime)
	}

	opts := cse.RunOptions{
		StepLimit:   s.stepLimit,
		Breakpoints: s.breakpoints,
		Interrupted: s.checkInterrupted,
	}
	result := s.evalr.Run(s.machine, opts)

	switch result.Status {
	case cse.StatusFinished:
		s.result = result.Value
		s.state = StateFinished
	case cse.StatusErrored:
		s.errs = append(s.errs, result.Error)
		s.state = StateError
	case cse.StatusSuspended:
		if s.interrupted {
			s.interrupted = false
			loc := s.currentLocation()
			diag := errors.NewRuntime(loc, "evaluation interrupted")
			s.errs = append(s.errs, diag)
			s.state = StateError
			return s.state
		}
		if !s.deadline.IsZero() && !time.Now().Before(s.deadline) {
			if s.shouldIncreaseTimeout && !s.timeoutExtended {
				s.timeoutExtended = true
				s.deadline = time.Now().Add(s.maxExecTime * 10)
				s.state = StateSuspended
				return s.Run()
			}
			loc := s.currentLocation()
			diag := errors.NewRuntimeDetailed(loc, "evaluation exceeded its time budget",
				fmt.Sprintf("the evaluation ran for longer than its %s budget without finishing; this usually means an unbounded or non-terminating loop rather than a slow but finite computation.", s.maxExecTime))
			s.errs = append(s.errs, diag)
			s.state = StateError
			return s.state
		}
		s.state = StateSuspended
	}
	return s.state
}

// Resume continues a Suspended session — a thin alias for Run kept around
// so call sites can name the operation spec.md's lifecycle diagram uses
// explicitly, even though resuming is simply calling Run again.
func (s *Session) Resume() State { return s.Run() }

func (s *Session) checkInterrupted() bool {
	if s.interrupted {
		return true
	}
	return !s.deadline.IsZero() && !time.Now().Before(s.deadline)
}

func (s *Session) currentLocation() (loc ast.SourceLocation) {
	if item, ok := s.machine.Control.Peek(); ok {
		if n, ok := item.(cse.NodeItem); ok {
			return n.Node.Loc()
		}
	}
	return loc
}

// FormatErrors renders every accumulated diagnostic through package
// diagnostics, the C13 formatter — the session's one public entry point
// for turning session.Errors() into the `[file] Line L, Column C: explain`
// text spec.md §7 specifies, since the spec places that responsibility on
// error objects without naming who actually invokes it for a caller.
func (s *Session) FormatErrors(verbose, color bool) string {
	f := diagnostics.New(verbose, color)
	return f.All(s.errs)
}

// noopHooks discards every host-facing side effect; the default for a
// Session constructed purely to check a value, not to drive a REPL/UI.
type noopHooks struct{}

func (noopHooks) RawDisplay(object.Value, string) {}
func (noopHooks) Prompt(string) string            { return "" }
func (noopHooks) Alert(string)                    {}
func (noopHooks) VisualiseList(object.Value)      {}
