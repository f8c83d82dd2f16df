package vm

import "strconv"

// Instruction is an opcode plus one operand word.
// Only push (literal) and swap (depth) read the operand.
type Instruction struct {
	Op      Opcode
	Operand Word
}

// Inst returns an operand-less instruction.
func Inst(op Opcode) Instruction {
	return Instruction{Op: op}
}

// Push returns an instruction pushing w.
func Push(w Word) Instruction {
	return Instruction{Op: OpPush, Operand: w}
}

// PushI64 returns an instruction pushing a signed integer.
func PushI64(n int64) Instruction {
	return Push(WordI64(n))
}

// PushU64 returns an instruction pushing an unsigned integer.
func PushU64(n uint64) Instruction {
	return Push(WordU64(n))
}

// PushF64 returns an instruction pushing a float.
func PushF64(f float64) Instruction {
	return Push(WordF64(f))
}

// Swap returns an instruction exchanging the top of the stack with the
// element k+1 positions below it.
func Swap(k uint64) Instruction {
	return Instruction{Op: OpSwap, Operand: WordU64(k)}
}

// String renders the instruction as mnemonic plus operand, e.g. "push 42".
func (in Instruction) String() string {
	switch in.Op {
	case OpPush:
		return "push " + strconv.FormatInt(in.Operand.I64(), 10)
	case OpSwap:
		return "swap " + strconv.FormatUint(in.Operand.U64(), 10)
	}
	return in.Op.String()
}
