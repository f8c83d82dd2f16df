package vm

import (
	"fmt"
	"strconv"
)

// Opcode represents an instruction discriminant.
// The numeric values are part of the melf wire format and must not change.
type Opcode uint32

const (
	// ========================================================================
	// Stack manipulation
	// ========================================================================

	OpIllegal Opcode = 0 // Always traps; catches zeroed instruction memory
	OpNop     Opcode = 1 // No operation
	OpPush    Opcode = 2 // Push operand
	OpPop     Opcode = 3 // Discard top of stack
	OpDup     Opcode = 4 // a -- a a
	OpSwap    Opcode = 5 // Swap top with the element operand+1 below it

	// ========================================================================
	// Increment / decrement
	// ========================================================================

	OpIncI Opcode = 6
	OpIncF Opcode = 7
	OpDecI Opcode = 8
	OpDecF Opcode = 9

	// ========================================================================
	// Arithmetic: pop b, pop a, push a OP b
	// ========================================================================

	OpAddI  Opcode = 10
	OpAddF  Opcode = 11
	OpSubI  Opcode = 12
	OpSubF  Opcode = 13
	OpMultI Opcode = 14
	OpMultF Opcode = 15
	OpDivI  Opcode = 16 // Traps on zero divisor
	OpDivU  Opcode = 17 // Traps on zero divisor
	OpDivF  Opcode = 18 // IEEE semantics, never traps
	OpModI  Opcode = 19 // Traps on zero divisor
	OpModU  Opcode = 20 // Traps on zero divisor
	OpModF  Opcode = 21 // math.Mod, never traps

	// ========================================================================
	// Comparison: pop b, pop a, push 1 if a OP b else 0
	// ========================================================================

	OpEq  Opcode = 22 // Bit-pattern equality
	OpNeq Opcode = 23 // Bit-pattern inequality
	OpGtI Opcode = 24
	OpGtU Opcode = 25
	OpGtF Opcode = 26
	OpGeI Opcode = 27
	OpGeU Opcode = 28
	OpGeF Opcode = 29
	OpStI Opcode = 30 // Smaller than
	OpStU Opcode = 31
	OpStF Opcode = 32
	OpSeI Opcode = 33 // Smaller or equal
	OpSeU Opcode = 34
	OpSeF Opcode = 35

	// ========================================================================
	// Logical (truthiness) and bitwise (unsigned view)
	// ========================================================================

	OpAnd  Opcode = 36
	OpNot  Opcode = 37
	OpOr   Opcode = 38
	OpAndB Opcode = 39
	OpNotB Opcode = 40
	OpOrB  Opcode = 41
	OpXor  Opcode = 42
	OpShl  Opcode = 43
	OpShr  Opcode = 44

	// ========================================================================
	// Control flow: targets come from the stack
	// ========================================================================

	OpCall   Opcode = 45 // addr -- ret
	OpNative Opcode = 46 // index -- ...
	OpReturn Opcode = 47 // ret --
	OpJmp    Opcode = 48 // addr --
	OpJz     Opcode = 49 // cond addr --
	OpJnz    Opcode = 50 // cond addr --

	// ========================================================================
	// Conversions
	// ========================================================================

	OpI2F Opcode = 51
	OpU2F Opcode = 52
	OpF2I Opcode = 53
	OpF2U Opcode = 54

	// ========================================================================
	// Memory: address is always on top
	// ========================================================================

	OpRead8   Opcode = 55 // addr -- value
	OpRead16  Opcode = 56
	OpRead32  Opcode = 57
	OpRead64  Opcode = 58
	OpWrite8  Opcode = 59 // value addr --
	OpWrite16 Opcode = 60
	OpWrite32 Opcode = 61
	OpWrite64 Opcode = 62

	// ========================================================================
	// Machine control and diagnostics
	// ========================================================================

	OpHlt        Opcode = 63
	OpPrintDebug Opcode = 64

	// ========================================================================
	// IEEE equality
	// ========================================================================

	OpEqF  Opcode = 65
	OpNeqF Opcode = 66

	opcodeCount = 67
)

// OpcodeInfo provides metadata about each opcode for diagnostics and validation.
type OpcodeInfo struct {
	Name       string // Mnemonic
	StackPop   int    // Values popped (-1 = depends on the callee)
	StackPush  int    // Values pushed (-1 = depends on the callee)
	HasOperand bool   // Operand word is meaningful
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpIllegal: {"illegal", 0, 0, false},
	OpNop:     {"nop", 0, 0, false},
	OpPush:    {"push", 0, 1, true},
	OpPop:     {"pop", 1, 0, false},
	OpDup:     {"dup", 1, 2, false},
	OpSwap:    {"swap", 0, 0, true},

	OpIncI: {"inci", 1, 1, false},
	OpIncF: {"incf", 1, 1, false},
	OpDecI: {"deci", 1, 1, false},
	OpDecF: {"decf", 1, 1, false},

	OpAddI:  {"addi", 2, 1, false},
	OpAddF:  {"addf", 2, 1, false},
	OpSubI:  {"subi", 2, 1, false},
	OpSubF:  {"subf", 2, 1, false},
	OpMultI: {"multi", 2, 1, false},
	OpMultF: {"multf", 2, 1, false},
	OpDivI:  {"divi", 2, 1, false},
	OpDivU:  {"divu", 2, 1, false},
	OpDivF:  {"divf", 2, 1, false},
	OpModI:  {"modi", 2, 1, false},
	OpModU:  {"modu", 2, 1, false},
	OpModF:  {"modf", 2, 1, false},

	OpEq:  {"eq", 2, 1, false},
	OpNeq: {"neq", 2, 1, false},
	OpGtI: {"gti", 2, 1, false},
	OpGtU: {"gtu", 2, 1, false},
	OpGtF: {"gtf", 2, 1, false},
	OpGeI: {"gei", 2, 1, false},
	OpGeU: {"geu", 2, 1, false},
	OpGeF: {"gef", 2, 1, false},
	OpStI: {"sti", 2, 1, false},
	OpStU: {"stu", 2, 1, false},
	OpStF: {"stf", 2, 1, false},
	OpSeI: {"sei", 2, 1, false},
	OpSeU: {"seu", 2, 1, false},
	OpSeF: {"sef", 2, 1, false},

	OpAnd:  {"and", 2, 1, false},
	OpNot:  {"not", 1, 1, false},
	OpOr:   {"or", 2, 1, false},
	OpAndB: {"andb", 2, 1, false},
	OpNotB: {"notb", 1, 1, false},
	OpOrB:  {"orb", 2, 1, false},
	OpXor:  {"xor", 2, 1, false},
	OpShl:  {"shl", 2, 1, false},
	OpShr:  {"shr", 2, 1, false},

	OpCall:   {"call", 1, 1, false},
	OpNative: {"native", -1, -1, false},
	OpReturn: {"return", 1, 0, false},
	OpJmp:    {"jmp", 1, 0, false},
	OpJz:     {"jz", 2, 0, false},
	OpJnz:    {"jnz", 2, 0, false},

	OpI2F: {"i2f", 1, 1, false},
	OpU2F: {"u2f", 1, 1, false},
	OpF2I: {"f2i", 1, 1, false},
	OpF2U: {"f2u", 1, 1, false},

	OpRead8:   {"read8", 1, 1, false},
	OpRead16:  {"read16", 1, 1, false},
	OpRead32:  {"read32", 1, 1, false},
	OpRead64:  {"read64", 1, 1, false},
	OpWrite8:  {"write8", 2, 0, false},
	OpWrite16: {"write16", 2, 0, false},
	OpWrite32: {"write32", 2, 0, false},
	OpWrite64: {"write64", 2, 0, false},

	OpHlt:        {"hlt", 0, 0, false},
	OpPrintDebug: {"print_debug", 1, 0, false},

	OpEqF:  {"eqf", 2, 1, false},
	OpNeqF: {"neqf", 2, 1, false},
}

// Effect renders the stack effect as "( pops -- pushes )". Counts that
// depend on the callee print as "?".
func (i OpcodeInfo) Effect() string {
	count := func(n int) string {
		if n < 0 {
			return "?"
		}
		return strconv.Itoa(n)
	}
	return "( " + count(i.StackPop) + " -- " + count(i.StackPush) + " )"
}

var opcodesByName map[string]Opcode

func init() {
	opcodesByName = make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		opcodesByName[info.Name] = op
	}
}

// GetOpcodeInfo returns metadata for an opcode.
// Unknown opcodes get a name of the form "illegal(0x..)".
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("illegal(0x%02X)", uint32(op))}
}

// ParseOpcode looks up an opcode by mnemonic.
func ParseOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is part of the instruction set. OpIllegal is
// part of the set even though executing it traps.
func (op Opcode) Valid() bool {
	return op < opcodeCount
}

// HasOperand reports whether the operand word of op is meaningful.
func (op Opcode) HasOperand() bool {
	return GetOpcodeInfo(op).HasOperand
}

// IsJump returns true for instructions that set the instruction pointer
// from a stack operand.
func (op Opcode) IsJump() bool {
	switch op {
	case OpJmp, OpJz, OpJnz, OpCall, OpReturn:
		return true
	}
	return false
}

// AllOpcodes returns every defined opcode in numeric order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, opcodeCount)
	for op := Opcode(0); op < opcodeCount; op++ {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return opcodeCount
}
