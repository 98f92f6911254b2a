// Package compiler lowers a Source AST to an svm.Program: SVM bytecode
// plus its function and string tables. Grounded on the teacher's
// compiler/compiler.go (CompilationScope stack, enterScope/leaveScope,
// a recursive Compile switch over ast.Node, and backpatched jump offsets
// via changeOperand/replaceInstruction), generalized from Monkey's
// global/local/free/builtin symbol scopes to the single recursive Scope
// chain package compiler's symbol_table.go defines, since spec.md §4.9
// resolves every variable as a generic (envDepth, index) lexical address
// rather than needing a separate free-variable-capture analysis.
package compiler

import (
	"fmt"

	"github.com/tsammeow/source-go/ast"
	"github.com/tsammeow/source-go/code"
	"github.com/tsammeow/source-go/errors"
	"github.com/tsammeow/source-go/svm"
)

// unit is one function's in-progress compilation state: its own
// instruction buffer and the Scope frame locals resolve against. Nested
// function literals push a new unit and pop it once their body is fully
// compiled, mirroring the teacher's CompilationScope stack.
type unit struct {
	fnIndex      int
	name         string
	instructions code.Instructions
	scope        *Scope
}

// Compiler accumulates the function table and string pool for one
// compilation. Its tables are not reset between Compile calls, so each
// program is compiled by a fresh Compiler from New — unlike the teacher's
// REPL, which persists a SymbolTable and constant pool across input lines.
type Compiler struct {
	functions []svm.Function
	units     []*unit

	strings      map[string]int
	stringsOrder []string
}

// New constructs an empty Compiler.
func New() *Compiler {
	return &Compiler{strings: map[string]int{}}
}

// Compile lowers program to a complete svm.Program, or the first
// compile-time diagnostic encountered — typically an UndefinedVariable
// error per spec.md §4.9's "errors at compile time" design decision.
func (c *Compiler) Compile(program *ast.Program) (*svm.Program, errors.Diagnostic) {
	entryIdx := c.reserveFunction("main", 0)
	c.enterUnit(entryIdx, "main", newScope(nil))

	if diag := c.compileStatements(program.Body, true); diag != nil {
		return nil, diag
	}
	c.emit(code.DONE)
	c.leaveUnit()

	return &svm.Program{EntryFn: entryIdx, Functions: c.functions, Strings: c.stringsOrder}, nil
}

func (c *Compiler) reserveFunction(name string, arity int) int {
	c.functions = append(c.functions, svm.Function{Name: name, Arity: arity})
	return len(c.functions) - 1
}

func (c *Compiler) enterUnit(fnIndex int, name string, scope *Scope) {
	c.units = append(c.units, &unit{fnIndex: fnIndex, name: name, scope: scope})
}

func (c *Compiler) leaveUnit() {
	u := c.units[len(c.units)-1]
	c.units = c.units[:len(c.units)-1]
	c.functions[u.fnIndex].Instructions = u.instructions
	c.functions[u.fnIndex].EnvSize = u.scope.numDefs
	c.functions[u.fnIndex].StackSize = 64
}

func (c *Compiler) cur() *unit { return c.units[len(c.units)-1] }

func (c *Compiler) emit(op code.Opcode, operands ...int) int {
	pos := len(c.cur().instructions)
	c.cur().instructions = append(c.cur().instructions, code.Make(op, operands...)...)
	return pos
}

// patchJump rewrites the i32 offset operand of the jump instruction at
// pos so it targets the current end of the instruction stream, per
// spec.md §4.10's "byte-relative from the start of the next instruction"
// convention.
func (c *Compiler) patchJump(pos int) {
	ins := c.cur().instructions
	nextInstrStart := pos + 5
	offset := len(ins) - nextInstrStart
	patched := code.Make(code.Opcode(ins[pos]), offset)
	copy(ins[pos:], patched)
}

func (c *Compiler) internString(s string) int {
	if idx, ok := c.strings[s]; ok {
		return idx
	}
	idx := len(c.stringsOrder)
	c.strings[s] = idx
	c.stringsOrder = append(c.stringsOrder, s)
	return idx
}

func undefinedVariable(loc ast.SourceLocation, name string) errors.Diagnostic {
	return errors.NewSyntax(loc, fmt.Sprintf("'%s' is not declared", name))
}

// compileStatements compiles stmts in order, discarding every expression
// statement's value with a POP except the final one when keepLast is true
// — the top-level program result package session reads off the operand
// stack after DONE. Function and block bodies always pass keepLast=false:
// a function's implicit fall-off-the-end result is undefined regardless of
// its last expression (see compileFunctionLiteral), and a bare block carries
// no value of its own in Source's grammar.
func (c *Compiler) compileStatements(stmts []ast.Statement, keepLast bool) errors.Diagnostic {
	for i, s := range stmts {
		if diag := c.compileStatement(s); diag != nil {
			return diag
		}
		if es, ok := s.(*ast.ExpressionStatement); ok {
			_ = es
			if !(keepLast && i == len(stmts)-1) {
				c.emit(code.POP)
			}
		}
	}
	return nil
}

func (c *Compiler) compileStatement(stmt ast.Statement) errors.Diagnostic {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		return c.compileExpression(s.Expr)
	case *ast.VariableDeclaration:
		idx := c.cur().scope.define(s.Name.Name)
		if diag := c.compileExpression(s.Init); diag != nil {
			return diag
		}
		c.emit(code.STL, idx)
		return nil
	case *ast.FunctionDeclaration:
		return c.compileFunctionDeclaration(s)
	case *ast.ReturnStatement:
		return c.compileReturn(s)
	case *ast.IfStatement:
		return c.compileIf(s)
	case *ast.WhileStatement:
		return c.compileWhile(s)
	case *ast.ForStatement:
		return c.compileFor(s)
	case *ast.BlockStatement:
		return c.compileBlock(s)
	default:
		return errors.NewSyntax(stmt.Loc(), fmt.Sprintf("compiler: unsupported statement %T", stmt))
	}
}

func declCount(stmts []ast.Statement) int {
	n := 0
	for _, s := range stmts {
		switch s.(type) {
		case *ast.VariableDeclaration, *ast.FunctionDeclaration:
			n++
		}
	}
	return n
}

func (c *Compiler) compileBlock(block *ast.BlockStatement) errors.Diagnostic {
	size := declCount(block.Body)
	c.emit(code.NEWENV, size)
	c.cur().scope = newScope(c.cur().scope)
	if diag := c.compileStatements(block.Body, false); diag != nil {
		return diag
	}
	c.cur().scope = c.cur().scope.parent
	c.emit(code.POPENV)
	return nil
}

func (c *Compiler) compileFunctionDeclaration(s *ast.FunctionDeclaration) errors.Diagnostic {
	idx := c.cur().scope.define(s.Name.Name)
	fnIndex, diag := c.compileFunctionLiteral(s.Name.Name, s.Params, s.Body, nil)
	if diag != nil {
		return diag
	}
	c.emit(code.NEWC, fnIndex)
	c.emit(code.STL, idx)
	return nil
}

// compileFunctionLiteral compiles params/body as a brand-new unit scoped
// under the enclosing scope (so the closure's free references resolve via
// envDepth at run time against the captured env chain, exactly the way
// cse's closures capture m.Env), returning the function table index NEWC
// should reference.
func (c *Compiler) compileFunctionLiteral(name string, params []*ast.Identifier, body *ast.BlockStatement, exprBody ast.Expression) (int, errors.Diagnostic) {
	fnIndex := c.reserveFunction(name, len(params))
	c.enterUnit(fnIndex, name, newScope(c.cur().scope))
	for _, p := range params {
		c.cur().scope.define(p.Name)
	}
	if body != nil {
		if diag := c.compileStatements(body.Body, false); diag != nil {
			return 0, diag
		}
		c.emit(code.LGCU)
		c.emit(code.RETU)
	} else {
		if diag := c.compileTailExpression(exprBody); diag != nil {
			return 0, diag
		}
	}
	c.leaveUnit()
	return fnIndex, nil
}

// compileTailExpression compiles expr as the terminal value of a function
// body — an arrow's expression body, or a return statement's argument — so
// that a call reached through it, however many ConditionalExpression
// branches it is nested under, compiles to CALLT instead of CALL (spec.md
// §8 scenario 3's ternary-bodied recursion). Every path through this
// function terminates the unit's instruction stream on its own (CALLT
// transfers control away entirely; RETG returns the computed value), so
// callers never emit anything after it runs.
func (c *Compiler) compileTailExpression(expr ast.Expression) errors.Diagnostic {
	switch e := expr.(type) {
	case *ast.CallExpression:
		return c.compileCall(e, true)
	case *ast.ConditionalExpression:
		if diag := c.compileExpression(e.Test); diag != nil {
			return diag
		}
		jumpFalsePos := c.emit(code.BRF, 0)
		if diag := c.compileTailExpression(e.Consequent); diag != nil {
			return diag
		}
		c.patchJump(jumpFalsePos)
		return c.compileTailExpression(e.Alternate)
	default:
		if diag := c.compileExpression(expr); diag != nil {
			return diag
		}
		c.emit(code.RETG)
		return nil
	}
}

func (c *Compiler) compileReturn(s *ast.ReturnStatement) errors.Diagnostic {
	if s.Argument == nil {
		c.emit(code.LGCU)
		c.emit(code.RETU)
		return nil
	}
	return c.compileTailExpression(s.Argument)
}

func (c *Compiler) compileIf(s *ast.IfStatement) errors.Diagnostic {
	if diag := c.compileExpression(s.Test); diag != nil {
		return diag
	}
	jumpFalsePos := c.emit(code.BRF, 0)
	if diag := c.compileStatement(s.Consequent); diag != nil {
		return diag
	}
	jumpEndPos := c.emit(code.JMP, 0)
	c.patchJump(jumpFalsePos)
	if s.Alternate != nil {
		if diag := c.compileStatement(s.Alternate); diag != nil {
			return diag
		}
	}
	c.patchJump(jumpEndPos)
	return nil
}

func (c *Compiler) compileWhile(s *ast.WhileStatement) errors.Diagnostic {
	loopStart := len(c.cur().instructions)
	if diag := c.compileExpression(s.Test); diag != nil {
		return diag
	}
	exitPos := c.emit(code.BRF, 0)
	if diag := c.compileStatement(s.Body); diag != nil {
		return diag
	}
	c.emitJumpBack(loopStart)
	c.patchJump(exitPos)
	return nil
}

func (c *Compiler) compileFor(s *ast.ForStatement) errors.Diagnostic {
	size := 0
	if _, ok := s.Init.(*ast.VariableDeclaration); ok {
		size = 1
	}
	c.emit(code.NEWENV, size)
	c.cur().scope = newScope(c.cur().scope)
	if s.Init != nil {
		if diag := c.compileStatement(s.Init); diag != nil {
			return diag
		}
	}
	loopStart := len(c.cur().instructions)
	if diag := c.compileExpression(s.Test); diag != nil {
		return diag
	}
	exitPos := c.emit(code.BRF, 0)
	if diag := c.compileStatement(s.Body); diag != nil {
		return diag
	}
	if s.Update != nil {
		if diag := c.compileExpression(s.Update); diag != nil {
			return diag
		}
		c.emit(code.POP)
	}
	c.emitJumpBack(loopStart)
	c.patchJump(exitPos)
	c.cur().scope = c.cur().scope.parent
	c.emit(code.POPENV)
	return nil
}

// emitJumpBack emits a JMP whose offset targets loopStart, computed the
// same byte-relative-to-next-instruction way patchJump computes a forward
// jump's offset.
func (c *Compiler) emitJumpBack(loopStart int) {
	pos := len(c.cur().instructions)
	nextInstrStart := pos + 5
	offset := loopStart - nextInstrStart
	c.emit(code.JMP, offset)
}

func (c *Compiler) compileExpression(expr ast.Expression) errors.Diagnostic {
	switch e := expr.(type) {
	case *ast.Literal:
		return c.compileLiteral(e)
	case *ast.Identifier:
		return c.compileIdentifier(e)
	case *ast.BinaryExpression:
		return c.compileBinary(e)
	case *ast.LogicalExpression:
		return c.compileLogical(e)
	case *ast.UnaryExpression:
		return c.compileUnary(e)
	case *ast.ConditionalExpression:
		return c.compileConditional(e)
	case *ast.CallExpression:
		return c.compileCall(e, false)
	case *ast.ArrayExpression:
		return c.compileArray(e)
	case *ast.MemberExpression:
		return c.compileMember(e)
	case *ast.AssignmentExpression:
		return c.compileAssignment(e)
	case *ast.FunctionExpression:
		name := ""
		if e.Name != nil {
			name = e.Name.Name
		}
		fnIndex, diag := c.compileFunctionLiteral(name, e.Params, e.Body, nil)
		if diag != nil {
			return diag
		}
		c.emit(code.NEWC, fnIndex)
		return nil
	case *ast.ArrowFunctionExpression:
		var fnIndex int
		var diag errors.Diagnostic
		if e.BlockBody != nil {
			fnIndex, diag = c.compileFunctionLiteral("", e.Params, e.BlockBody, nil)
		} else {
			fnIndex, diag = c.compileFunctionLiteral("", e.Params, nil, e.Body)
		}
		if diag != nil {
			return diag
		}
		c.emit(code.NEWC, fnIndex)
		return nil
	default:
		return errors.NewSyntax(expr.Loc(), fmt.Sprintf("compiler: unsupported expression %T", expr))
	}
}

func (c *Compiler) compileLiteral(l *ast.Literal) errors.Diagnostic {
	switch l.Kind {
	case ast.LiteralNumber:
		v := l.Value.(float64)
		if v == float64(int32(v)) {
			c.emit(code.LGCI, int(int32(v)))
		} else {
			c.cur().instructions = append(c.cur().instructions, code.MakeF64(v)...)
		}
	case ast.LiteralString:
		idx := c.internString(l.Value.(string))
		c.emit(code.LGCS, idx)
	case ast.LiteralBoolean:
		if l.Value.(bool) {
			c.emit(code.LGCB1)
		} else {
			c.emit(code.LGCB0)
		}
	case ast.LiteralNull:
		c.emit(code.LGCN)
	default:
		c.emit(code.LGCU)
	}
	return nil
}

func (c *Compiler) compileIdentifier(id *ast.Identifier) errors.Diagnostic {
	depth, idx, ok := c.cur().scope.resolve(id.Name)
	if !ok {
		return undefinedVariable(id.Loc(), id.Name)
	}
	if depth == 0 {
		c.emit(code.LDL, idx)
	} else {
		c.emit(code.LDP, depth, idx)
	}
	return nil
}

var binaryOpcodes = map[string]code.Opcode{
	"+": code.ADDG, "-": code.SUBG, "*": code.MULG, "/": code.DIVG, "%": code.MODG,
	"===": code.EQG, "!==": code.NEQG, "<": code.LTG, ">": code.GTG, "<=": code.LEG, ">=": code.GEG,
}

func (c *Compiler) compileBinary(b *ast.BinaryExpression) errors.Diagnostic {
	if diag := c.compileExpression(b.Left); diag != nil {
		return diag
	}
	if diag := c.compileExpression(b.Right); diag != nil {
		return diag
	}
	op, ok := binaryOpcodes[b.Operator]
	if !ok {
		return errors.NewSyntax(b.Loc(), fmt.Sprintf("compiler: unknown operator %q", b.Operator))
	}
	c.emit(op)
	return nil
}

func (c *Compiler) compileLogical(l *ast.LogicalExpression) errors.Diagnostic {
	if diag := c.compileExpression(l.Left); diag != nil {
		return diag
	}
	c.emit(code.DUP)
	var shortCircuitPos int
	if l.Operator == "&&" {
		shortCircuitPos = c.emit(code.BRF, 0)
	} else {
		shortCircuitPos = c.emit(code.BRT, 0)
	}
	c.emit(code.POP)
	if diag := c.compileExpression(l.Right); diag != nil {
		return diag
	}
	c.patchJump(shortCircuitPos)
	return nil
}

func (c *Compiler) compileUnary(u *ast.UnaryExpression) errors.Diagnostic {
	if diag := c.compileExpression(u.Argument); diag != nil {
		return diag
	}
	switch u.Operator {
	case "!":
		c.emit(code.NOTG)
	case "-":
		c.emit(code.NEGG)
	case "+":
		// unary plus is a coercion no-op at this representation
	case "typeof":
		return errors.NewSyntax(u.Loc(), "compiler: typeof is not supported by the SVM backend")
	default:
		return errors.NewSyntax(u.Loc(), fmt.Sprintf("compiler: unknown unary operator %q", u.Operator))
	}
	return nil
}

func (c *Compiler) compileConditional(cond *ast.ConditionalExpression) errors.Diagnostic {
	if diag := c.compileExpression(cond.Test); diag != nil {
		return diag
	}
	jumpFalsePos := c.emit(code.BRF, 0)
	if diag := c.compileExpression(cond.Consequent); diag != nil {
		return diag
	}
	jumpEndPos := c.emit(code.JMP, 0)
	c.patchJump(jumpFalsePos)
	if diag := c.compileExpression(cond.Alternate); diag != nil {
		return diag
	}
	c.patchJump(jumpEndPos)
	return nil
}

func (c *Compiler) compileArray(a *ast.ArrayExpression) errors.Diagnostic {
	for _, el := range a.Elements {
		if diag := c.compileExpression(el); diag != nil {
			return diag
		}
	}
	c.emit(code.NEWA, len(a.Elements))
	return nil
}

func (c *Compiler) compileMember(m *ast.MemberExpression) errors.Diagnostic {
	if diag := c.compileExpression(m.Object); diag != nil {
		return diag
	}
	if diag := c.compileExpression(m.Property); diag != nil {
		return diag
	}
	c.emit(code.CALLP, svm.PrimArrayGet, 2)
	return nil
}

func (c *Compiler) compileAssignment(a *ast.AssignmentExpression) errors.Diagnostic {
	switch target := a.Target.(type) {
	case *ast.Identifier:
		if diag := c.compileExpression(a.Value); diag != nil {
			return diag
		}
		c.emit(code.DUP)
		depth, idx, ok := c.cur().scope.resolve(target.Name)
		if !ok {
			return undefinedVariable(target.Loc(), target.Name)
		}
		if depth == 0 {
			c.emit(code.STL, idx)
		} else {
			c.emit(code.STP, depth, idx)
		}
		return nil
	case *ast.MemberExpression:
		if diag := c.compileExpression(target.Object); diag != nil {
			return diag
		}
		if diag := c.compileExpression(target.Property); diag != nil {
			return diag
		}
		if diag := c.compileExpression(a.Value); diag != nil {
			return diag
		}
		c.emit(code.CALLP, svm.PrimArraySet, 3)
		return nil
	default:
		return errors.NewSyntax(a.Loc(), "compiler: invalid assignment target")
	}
}

// compileCall compiles a call expression. An identifier callee that
// resolves to no lexical binding but names a registered SVM primitive is
// dispatched directly via CALLP — the SVM has no notion of a builtin value
// sitting in the environment the way cse's object.BuiltinFn does, since
// CALLP already addresses primitives by a stable compile-time id.
func (c *Compiler) compileCall(call *ast.CallExpression, tail bool) errors.Diagnostic {
	if id, ok := call.Callee.(*ast.Identifier); ok {
		if _, _, resolved := c.cur().scope.resolve(id.Name); !resolved {
			if primID, isPrim := svm.PrimitiveID(id.Name); isPrim {
				for _, a := range call.Arguments {
					if diag := c.compileExpression(a); diag != nil {
						return diag
					}
				}
				c.emit(code.CALLP, primID, len(call.Arguments))
				return nil
			}
			return undefinedVariable(id.Loc(), id.Name)
		}
	}
	if diag := c.compileExpression(call.Callee); diag != nil {
		return diag
	}
	for _, a := range call.Arguments {
		if diag := c.compileExpression(a); diag != nil {
			return diag
		}
	}
	if tail {
		c.emit(code.CALLT, len(call.Arguments))
	} else {
		c.emit(code.CALL, len(call.Arguments))
	}
	return nil
}
