// Package object holds the Value model (tagged runtime values, closures,
// pairs, arrays and host-opaque wrappers) shared by the CSE evaluator and
// the SVM. It is the Go counterpart of spec.md §3's Value sum type, kept as
// a package of its own — mirroring the teacher's object package — so both
// the tree-walking evaluator and the stack machine compile against the
// exact same runtime representation.
package object

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// Type identifies which concrete shape a Value holds. It exists mainly for
// fast switch dispatch and for error messages ("unknown operator: NUMBER +
// STRING") — the concrete Go type is still the source of truth.
type Type string

const (
	UNDEFINED_OBJ Type = "UNDEFINED"
	NULL_OBJ      Type = "NULL"
	BOOLEAN_OBJ   Type = "BOOLEAN"
	NUMBER_OBJ    Type = "NUMBER"
	STRING_OBJ    Type = "STRING"
	PAIR_OBJ      Type = "PAIR"
	ARRAY_OBJ     Type = "ARRAY"
	CLOSURE_OBJ   Type = "CLOSURE"
	BUILTIN_OBJ   Type = "BUILTIN_FUNCTION"
	HOST_OBJ      Type = "HOST_OPAQUE"
)

// Value is the interface every runtime value satisfies. Inspect renders the
// value the way a host's rawDisplay/prompt/alert built-ins would show it;
// it is not guaranteed to round-trip through the fixture parser.
type Value interface {
	Type() Type
	Inspect() string
}

// Undefined is Source's default-initialized / "no value" value. There is a
// single shared instance; callers should use the package-level Undefined
// variable instead of constructing one, as the CSE evaluator and the SVM
// both rely on referential reuse to avoid allocating it on every step.
type UndefinedValue struct{}

func (UndefinedValue) Type() Type      { return UNDEFINED_OBJ }
func (UndefinedValue) Inspect() string { return "undefined" }

// Null is Source's `null` value.
type NullValue struct{}

func (NullValue) Type() Type      { return NULL_OBJ }
func (NullValue) Inspect() string { return "null" }

var (
	Undefined Value = UndefinedValue{}
	Null      Value = NullValue{}
	True      Value = &Boolean{Value: true}
	False     Value = &Boolean{Value: false}
)

// NativeBool returns the shared True/False instance for a host bool,
// avoiding an allocation the way the teacher's evaluator reuses TRUE/FALSE.
func NativeBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Boolean wraps a bool. Two Booleans with the same Value are
// interchangeable; the evaluator never allocates a fresh one when
// NativeBool's shared instances will do.
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() Type      { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string { return strconv.FormatBool(b.Value) }

// Number is Source's only numeric type, an IEEE-754 double exactly as
// JavaScript numbers are.
type Number struct {
	Value float64
}

func (n *Number) Type() Type { return NUMBER_OBJ }
func (n *Number) Inspect() string {
	if math.IsNaN(n.Value) {
		return "NaN"
	}
	if math.IsInf(n.Value, 1) {
		return "Infinity"
	}
	if math.IsInf(n.Value, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

// String is a Source string value.
type String struct {
	Value string
}

func (s *String) Type() Type      { return STRING_OBJ }
func (s *String) Inspect() string { return s.Value }

// Pair is a cons cell; Head and Tail may be any Value, including another
// Pair. Pairs are reference-shared — two Pair values are `===` only if
// they are the same allocation, never by structural comparison — which is
// what lets set_tail build a cycle (spec.md §8 scenario 6). id is a stable
// allocation identity from allocID; Display's cycle detection keys on the
// pointer itself, not on id.
type Pair struct {
	Head Value
	Tail Value
	id   uint64
}

func (p *Pair) Type() Type      { return PAIR_OBJ }
func (p *Pair) Inspect() string { return Display(p) }

// Array is an ordered, mutable, reference-shared sequence of Values.
type Array struct {
	Elements []Value
	id       uint64
}

func (a *Array) Type() Type      { return ARRAY_OBJ }
func (a *Array) Inspect() string { return Display(a) }

// identity is a monotonically increasing counter used to stamp every
// freshly allocated Pair/Array/Closure with a stable identity, independent
// of its Go pointer (which display still uses for the visited-set, since
// within a single process lifetime pointer identity is just as stable and
// needs no bookkeeping of its own). No code in this module reads the
// stamped id; Environment.Heap records the Values themselves.
var nextID uint64

func allocID() uint64 {
	nextID++
	return nextID
}

// NewPair allocates a fresh cons cell.
func NewPair(head, tail Value) *Pair {
	return &Pair{Head: head, Tail: tail, id: allocID()}
}

// NewArray allocates a fresh array wrapping elements (not copied).
func NewArray(elements []Value) *Array {
	return &Array{Elements: elements, id: allocID()}
}

// ClosureMetadata carries the bits of a closure useful for diagnostics and
// for the visualiser side-channel (§6) without being part of the evaluable
// contract itself.
type ClosureMetadata struct {
	Name string // "" for anonymous functions/arrows
}

// Closure bundles a function's parameter list and body with the
// environment it was created in. CapturedEnv must outlive every value that
// can still reach this Closure — in Go that's just normal GC-managed
// sharing, since *Environment is a plain pointer the closure holds onto.
type Closure struct {
	Params      []string
	Body        interface{} // *ast.BlockStatement or ast.Expression; typed as interface{} to avoid an import cycle with package ast's importers
	CapturedEnv *Environment
	Metadata    ClosureMetadata
	id          uint64
}

func (c *Closure) Type() Type { return CLOSURE_OBJ }
func (c *Closure) Inspect() string {
	name := c.Metadata.Name
	if name == "" {
		name = "=>"
	}
	return fmt.Sprintf("function %s(%s) { ... }", name, joinParams(c.Params))
}

// NewClosure allocates a fresh closure value.
func NewClosure(params []string, body interface{}, env *Environment, meta ClosureMetadata) *Closure {
	return &Closure{Params: params, Body: body, CapturedEnv: env, Metadata: meta, id: allocID()}
}

// BuiltinFn is a reference to a host- or primitive-provided function. Arity
// of -1 means variadic (the dispatcher in package builtins still enforces
// any fixed minimum the specific builtin declares).
type BuiltinFn struct {
	Name  string
	Arity int
	ID    int // opaque index into the builtin table, stable within a session
}

func (b *BuiltinFn) Type() Type      { return BUILTIN_OBJ }
func (b *BuiltinFn) Inspect() string { return fmt.Sprintf("function %s() { [built-in] }", b.Name) }

// HostOpaque wraps a value supplied by the host that the evaluator does not
// interpret, only threads through (e.g. a DOM handle in a host embedding).
// Two HostOpaques are equal only if ID matches.
type HostOpaque struct {
	ID   string
	Data interface{}
}

func (h *HostOpaque) Type() Type      { return HOST_OBJ }
func (h *HostOpaque) Inspect() string { return fmt.Sprintf("<host:%s>", h.ID) }

// StrictEquals implements JS-style `===` restricted to the types above:
// numbers and strings and booleans compare by value, everything else
// (Pair, Array, Closure, BuiltinFn, HostOpaque) compares by identity.
func StrictEquals(a, b Value) bool {
	if a.Type() != b.Type() {
		return false
	}
	switch a := a.(type) {
	case UndefinedValue:
		return true
	case NullValue:
		return true
	case *Boolean:
		return a.Value == b.(*Boolean).Value
	case *Number:
		return a.Value == b.(*Number).Value
	case *String:
		return a.Value == b.(*String).Value
	case *Pair:
		return a == b.(*Pair)
	case *Array:
		return a == b.(*Array)
	case *Closure:
		return a == b.(*Closure)
	case *BuiltinFn:
		return a == b.(*BuiltinFn)
	case *HostOpaque:
		return a.ID == b.(*HostOpaque).ID
	default:
		return false
	}
}

// IsTruthy mirrors JS truthiness for the value subset Source exposes.
func IsTruthy(v Value) bool {
	switch v := v.(type) {
	case UndefinedValue:
		return false
	case NullValue:
		return false
	case *Boolean:
		return v.Value
	case *Number:
		return v.Value != 0 && !math.IsNaN(v.Value)
	case *String:
		return v.Value != ""
	default:
		return true
	}
}

// Display renders v the way a host's rawDisplay built-in would, detecting
// reference cycles through Pairs/Arrays via an identity-visited set rather
// than unbounded structural recursion (spec.md §4.1, §9, scenario 6).
func Display(v Value) string {
	var out bytes.Buffer
	display(v, map[interface{}]bool{}, &out)
	return out.String()
}

func display(v Value, visited map[interface{}]bool, out *bytes.Buffer) {
	switch v := v.(type) {
	case *Pair:
		if visited[v] {
			out.WriteString("...<circular>")
			return
		}
		visited[v] = true
		out.WriteString("[")
		display(v.Head, visited, out)
		out.WriteString(", ")
		display(v.Tail, visited, out)
		out.WriteString("]")
		delete(visited, v)
	case *Array:
		if visited[v] {
			out.WriteString("...<circular>")
			return
		}
		visited[v] = true
		out.WriteString("[")
		for i, e := range v.Elements {
			if i > 0 {
				out.WriteString(", ")
			}
			display(e, visited, out)
		}
		out.WriteString("]")
		delete(visited, v)
	case *String:
		out.WriteString(fmt.Sprintf("%q", v.Value))
	default:
		out.WriteString(v.Inspect())
	}
}

func joinParams(params []string) string {
	out := ""
	for i, p := range params {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
