// Package code defines the SVM instruction set: opcodes, their operand
// shapes, and the byte-level encode/decode helpers the compiler and
// assembler both build on. Grounded on the teacher's code/code.go (the
// Opcode/Definition/Make/ReadOperands/ReadUint16 shape), generalized from
// Monkey's stack-machine opcode set to spec.md §4.8's SVM instruction
// family: nullary loads, generic and numeric-typed arithmetic, generic
// comparisons, lexical-address memory ops, control transfer, and
// environment-frame bracketing.
package code

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Instructions is a packed sequence of encoded SVM instructions.
type Instructions []byte

// String disassembles ins the way the teacher's Instructions.String does,
// one decoded instruction per line prefixed by its byte offset.
func (ins Instructions) String() string {
	var out bytes.Buffer
	i := 0
	for i < len(ins) {
		def, err := Lookup(ins[i])
		if err != nil {
			fmt.Fprintf(&out, "ERROR: %s\n", err)
			i++
			continue
		}
		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&out, "%04d %s\n", i, ins.fmtInstruction(def, operands))
		i += 1 + read
	}
	return out.String()
}

func (ins Instructions) fmtInstruction(def *Definition, operands []int) string {
	switch len(operands) {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	default:
		return fmt.Sprintf("ERROR: unhandled operand count for %s", def.Name)
	}
}

// Opcode is the one-byte tag that starts every SVM instruction.
type Opcode byte

const (
	NOP Opcode = iota

	// Nullary loads.
	LGCI   // <i32> push an integer-valued number constant
	LGCF64 // <f64> push a float64 number constant
	LGCS   // <string-index u32> push a string from the constant pool
	LGCB0  // push false
	LGCB1  // push true
	LGCU   // push undefined
	LGCN   // push null

	// Generic (dynamically dispatched) arithmetic.
	ADDG
	SUBG
	MULG
	DIVG
	MODG
	NEGG
	NOTG

	// Numeric/string fast paths. Package compiler does not emit them (it
	// uses the generic opcodes above); the SVM accepts them and still
	// re-validates operand types at runtime.
	ADDN
	SUBN
	MULN
	DIVN
	MODN
	NEGN
	ADDS

	// Generic comparisons.
	EQG
	NEQG
	LTG
	GTG
	LEG
	GEG

	// Memory.
	NEWC  // <fnIndex u32> create a closure over the current env chain
	NEWP  // pop tail, head; push a new pair
	NEWA  // <count u16> pop count elements; push a new array
	LDL   // <index u8> push a slot of the innermost env frame (function or block)
	STL   // <index u8> pop and store into a slot of the innermost env frame
	LDP   // <envDepth u8, index u8> push a lexically-addressed variable
	STP   // <envDepth u8, index u8> pop and store a lexically-addressed variable

	// Control transfer.
	BR   // <offset i32> unconditional relative branch
	BRT  // <offset i32> pop; branch if truthy
	BRF  // <offset i32> pop; branch if falsy
	JMP  // <offset i32> alias of BR; the compiler uses it for loop back-edges and to skip else branches
	CALL // <argCount u8> call the callee below the arguments, push a new frame
	CALLT // <argCount u8> tail call: reuse the current frame
	CALLP // <primId u16, argCount u8> call built-in primId
	RETG  // return the top of stack to the caller
	RETN  // return without a value (undefined)
	RETU  // return undefined explicitly (used for implicit fall-off-end)
	RETB  // return a boolean already on top of stack

	// Environment-frame bracketing.
	NEWENV // <size u16> push a new block-scope env frame of size slots
	POPENV // pop the current env frame, restoring its parent

	// POP discards the top of the operand stack. Not named in spec.md
	// §4.8's opcode list, but required by it regardless: an expression
	// statement's value must not linger on the stack for the next
	// statement to trip over, the same role InstrPop fills in the CSE
	// instruction set (spec.md §4.4). Added as the SVM backend's
	// necessary analogue rather than leaving statement sequencing unable
	// to discard a value at all.
	POP

	// DUP duplicates the top of the operand stack without consuming it.
	// Also absent from spec.md §4.8's list, also required regardless: a
	// short-circuiting && / || must preserve the left operand's own value
	// (not a coerced boolean) as the result when it short-circuits, the
	// same thing cse's execLogicalRest gets for free by peeking Stash
	// instead of popping it.
	DUP

	// Terminator.
	DONE
)

// Definition names an Opcode and lists the byte width of each operand it
// takes, in order.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	NOP:    {"NOP", []int{}},
	LGCI:   {"LGCI", []int{4}},
	LGCF64: {"LGCF64", []int{8}},
	LGCS:   {"LGCS", []int{4}},
	LGCB0:  {"LGCB0", []int{}},
	LGCB1:  {"LGCB1", []int{}},
	LGCU:   {"LGCU", []int{}},
	LGCN:   {"LGCN", []int{}},

	ADDG: {"ADDG", []int{}},
	SUBG: {"SUBG", []int{}},
	MULG: {"MULG", []int{}},
	DIVG: {"DIVG", []int{}},
	MODG: {"MODG", []int{}},
	NEGG: {"NEGG", []int{}},
	NOTG: {"NOTG", []int{}},

	ADDN: {"ADDN", []int{}},
	SUBN: {"SUBN", []int{}},
	MULN: {"MULN", []int{}},
	DIVN: {"DIVN", []int{}},
	MODN: {"MODN", []int{}},
	NEGN: {"NEGN", []int{}},
	ADDS: {"ADDS", []int{}},

	EQG:  {"EQG", []int{}},
	NEQG: {"NEQG", []int{}},
	LTG:  {"LTG", []int{}},
	GTG:  {"GTG", []int{}},
	LEG:  {"LEG", []int{}},
	GEG:  {"GEG", []int{}},

	NEWC: {"NEWC", []int{4}},
	NEWP: {"NEWP", []int{}},
	NEWA: {"NEWA", []int{2}},
	LDL:  {"LDL", []int{1}},
	STL:  {"STL", []int{1}},
	LDP:  {"LDP", []int{1, 1}},
	STP:  {"STP", []int{1, 1}},

	BR:    {"BR", []int{4}},
	BRT:   {"BRT", []int{4}},
	BRF:   {"BRF", []int{4}},
	JMP:   {"JMP", []int{4}},
	CALL:  {"CALL", []int{1}},
	CALLT: {"CALLT", []int{1}},
	CALLP: {"CALLP", []int{2, 1}},
	RETG:  {"RETG", []int{}},
	RETN:  {"RETN", []int{}},
	RETU:  {"RETU", []int{}},
	RETB:  {"RETB", []int{}},

	NEWENV: {"NEWENV", []int{2}},
	POPENV: {"POPENV", []int{}},
	POP:    {"POP", []int{}},
	DUP:    {"DUP", []int{}},

	DONE: {"DONE", []int{}},
}

// Lookup finds the Definition for a raw opcode byte.
func Lookup(op byte) (*Definition, error) {
	def, ok := definitions[Opcode(op)]
	if !ok {
		return nil, fmt.Errorf("code: opcode %d undefined", op)
	}
	return def, nil
}

// Make encodes one instruction: op followed by its operands, each packed
// to the byte width its Definition declares. Operand values out of range
// for their declared width truncate the way binary.BigEndian would.
func Make(op Opcode, operands ...int) []byte {
	def, ok := definitions[op]
	if !ok {
		return []byte{}
	}
	instrLen := 1
	for _, w := range def.OperandWidths {
		instrLen += w
	}
	instruction := make([]byte, instrLen)
	instruction[0] = byte(op)

	offset := 1
	for i, o := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 8:
			binary.BigEndian.PutUint64(instruction[offset:], math.Float64bits(float64(o)))
		case 4:
			binary.BigEndian.PutUint32(instruction[offset:], uint32(o))
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(o))
		case 1:
			instruction[offset] = byte(o)
		}
		offset += width
	}
	return instruction
}

// MakeF64 encodes an LGCF64 instruction, the one opcode whose operand is a
// float64 bit pattern rather than an integer count Make's int parameter
// can carry without losing precision.
func MakeF64(v float64) []byte {
	instruction := make([]byte, 9)
	instruction[0] = byte(LGCF64)
	binary.BigEndian.PutUint64(instruction[1:], math.Float64bits(v))
	return instruction
}

// ReadOperands decodes every operand of the instruction whose definition is
// def from ins (which starts immediately after the opcode byte), returning
// the decoded operands and the number of bytes consumed.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0
	for i, width := range def.OperandWidths {
		switch width {
		case 8:
			operands[i] = int(ReadUint64(ins[offset:]))
		case 4:
			operands[i] = int(ReadUint32(ins[offset:]))
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 1:
			operands[i] = int(ins[offset])
		}
		offset += width
	}
	return operands, offset
}

// ReadF64 decodes the float64 bit pattern of an LGCF64 instruction's
// operand bytes (ins starting right after the opcode byte).
func ReadF64(ins Instructions) float64 {
	return math.Float64frombits(ReadUint64(ins))
}

func ReadUint64(ins Instructions) uint64 { return binary.BigEndian.Uint64(ins) }
func ReadUint32(ins Instructions) uint32 { return binary.BigEndian.Uint32(ins) }
func ReadUint16(ins Instructions) uint16 { return binary.BigEndian.Uint16(ins) }
