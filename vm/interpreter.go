package vm

import (
	"fmt"
	"math"
)

// exec executes one instruction. On success the instruction pointer is
// advanced by one unless the instruction set it. On failure nothing is
// changed: operands are validated before the stack is touched.
func (m *Machine) exec(inst Instruction) Trap {
	s := &m.stack

	switch inst.Op {
	// ============ Stack Operations ============
	case OpNop:

	case OpPush:
		if t := s.Push(inst.Operand); t != TrapOK {
			return t
		}

	case OpPop:
		if _, t := s.Pop(); t != TrapOK {
			return t
		}

	case OpDup:
		if t := s.need(1, 1); t != TrapOK {
			return t
		}
		s.items[s.size] = s.items[s.size-1]
		s.size++

	case OpSwap:
		if t := s.Swap(inst.Operand.U64()); t != TrapOK {
			return t
		}

	// ============ Increment / Decrement ============
	case OpIncI:
		return m.unary(func(a Word) Word { return WordI64(a.I64() + 1) })
	case OpIncF:
		return m.unary(func(a Word) Word { return WordF64(a.F64() + 1) })
	case OpDecI:
		return m.unary(func(a Word) Word { return WordI64(a.I64() - 1) })
	case OpDecF:
		return m.unary(func(a Word) Word { return WordF64(a.F64() - 1) })

	// ============ Arithmetic ============
	case OpAddI:
		return m.binary(func(a, b Word) Word { return WordI64(a.I64() + b.I64()) })
	case OpAddF:
		return m.binary(func(a, b Word) Word { return WordF64(a.F64() + b.F64()) })
	case OpSubI:
		return m.binary(func(a, b Word) Word { return WordI64(a.I64() - b.I64()) })
	case OpSubF:
		return m.binary(func(a, b Word) Word { return WordF64(a.F64() - b.F64()) })
	case OpMultI:
		return m.binary(func(a, b Word) Word { return WordI64(a.I64() * b.I64()) })
	case OpMultF:
		return m.binary(func(a, b Word) Word { return WordF64(a.F64() * b.F64()) })
	case OpDivI:
		return m.division(func(a, b Word) Word { return WordI64(a.I64() / b.I64()) })
	case OpDivU:
		return m.division(func(a, b Word) Word { return WordU64(a.U64() / b.U64()) })
	case OpDivF:
		return m.binary(func(a, b Word) Word { return WordF64(a.F64() / b.F64()) })
	case OpModI:
		return m.division(func(a, b Word) Word { return WordI64(a.I64() % b.I64()) })
	case OpModU:
		return m.division(func(a, b Word) Word { return WordU64(a.U64() % b.U64()) })
	case OpModF:
		return m.binary(func(a, b Word) Word { return WordF64(math.Mod(a.F64(), b.F64())) })

	// ============ Comparison ============
	case OpEq:
		return m.compare(func(a, b Word) bool { return a == b })
	case OpNeq:
		return m.compare(func(a, b Word) bool { return a != b })
	case OpEqF:
		return m.compare(func(a, b Word) bool { return a.F64() == b.F64() })
	case OpNeqF:
		return m.compare(func(a, b Word) bool { return a.F64() != b.F64() })
	case OpGtI:
		return m.compare(func(a, b Word) bool { return a.I64() > b.I64() })
	case OpGtU:
		return m.compare(func(a, b Word) bool { return a.U64() > b.U64() })
	case OpGtF:
		return m.compare(func(a, b Word) bool { return a.F64() > b.F64() })
	case OpGeI:
		return m.compare(func(a, b Word) bool { return a.I64() >= b.I64() })
	case OpGeU:
		return m.compare(func(a, b Word) bool { return a.U64() >= b.U64() })
	case OpGeF:
		return m.compare(func(a, b Word) bool { return a.F64() >= b.F64() })
	case OpStI:
		return m.compare(func(a, b Word) bool { return a.I64() < b.I64() })
	case OpStU:
		return m.compare(func(a, b Word) bool { return a.U64() < b.U64() })
	case OpStF:
		return m.compare(func(a, b Word) bool { return a.F64() < b.F64() })
	case OpSeI:
		return m.compare(func(a, b Word) bool { return a.I64() <= b.I64() })
	case OpSeU:
		return m.compare(func(a, b Word) bool { return a.U64() <= b.U64() })
	case OpSeF:
		return m.compare(func(a, b Word) bool { return a.F64() <= b.F64() })

	// ============ Logical ============
	case OpAnd:
		return m.compare(func(a, b Word) bool { return a.Truthy() && b.Truthy() })
	case OpOr:
		return m.compare(func(a, b Word) bool { return a.Truthy() || b.Truthy() })
	case OpNot:
		return m.unary(func(a Word) Word { return WordBool(!a.Truthy()) })

	// ============ Bitwise ============
	case OpAndB:
		return m.binary(func(a, b Word) Word { return WordU64(a.U64() & b.U64()) })
	case OpOrB:
		return m.binary(func(a, b Word) Word { return WordU64(a.U64() | b.U64()) })
	case OpXor:
		return m.binary(func(a, b Word) Word { return WordU64(a.U64() ^ b.U64()) })
	case OpNotB:
		return m.unary(func(a Word) Word { return WordU64(^a.U64()) })
	case OpShl:
		return m.binary(func(a, b Word) Word { return WordU64(a.U64() << b.U64()) })
	case OpShr:
		return m.binary(func(a, b Word) Word { return WordU64(a.U64() >> b.U64()) })

	// ============ Control Flow ============
	case OpJmp, OpReturn:
		addr, t := s.Pop()
		if t != TrapOK {
			return t
		}
		m.ip = addr.U64()
		return TrapOK

	case OpJz, OpJnz:
		if t := s.need(2, 0); t != TrapOK {
			return t
		}
		addr, _ := s.Pop()
		cond, _ := s.Pop()
		if cond.Truthy() == (inst.Op == OpJnz) {
			m.ip = addr.U64()
			return TrapOK
		}

	case OpCall:
		addr, t := s.Pop()
		if t != TrapOK {
			return t
		}
		s.Push(WordU64(m.ip + 1))
		m.ip = addr.U64()
		return TrapOK

	case OpNative:
		index, t := s.Peek()
		if t != TrapOK {
			return t
		}
		if index.U64() >= uint64(len(m.natives)) {
			return TrapIllegalOperand
		}
		s.Pop()
		if t := m.callNative(index); t != TrapOK {
			return t
		}

	// ============ Conversions ============
	case OpI2F:
		return m.unary(i64ToF64)
	case OpU2F:
		return m.unary(u64ToF64)
	case OpF2I:
		return m.unary(f64ToI64)
	case OpF2U:
		return m.unary(f64ToU64)

	// ============ Memory ============
	case OpRead8:
		return m.read(Width8)
	case OpRead16:
		return m.read(Width16)
	case OpRead32:
		return m.read(Width32)
	case OpRead64:
		return m.read(Width64)
	case OpWrite8:
		return m.write(Width8)
	case OpWrite16:
		return m.write(Width16)
	case OpWrite32:
		return m.write(Width32)
	case OpWrite64:
		return m.write(Width64)

	// ============ Machine Control ============
	case OpHlt:
		m.halted = true
		return TrapOK

	case OpPrintDebug:
		w, t := s.Pop()
		if t != TrapOK {
			return t
		}
		fmt.Fprintln(m.Output, formatWord(w))

	default:
		return TrapIllegalInstruction
	}

	m.ip++
	return TrapOK
}

// ---------------------------------------------------------------------------
// Instruction helpers
// ---------------------------------------------------------------------------

// unary replaces the top of the stack with f(top).
func (m *Machine) unary(f func(a Word) Word) Trap {
	s := &m.stack
	if t := s.need(1, 0); t != TrapOK {
		return t
	}
	s.items[s.size-1] = f(s.items[s.size-1])
	m.ip++
	return TrapOK
}

// binary pops b then a and pushes f(a, b).
func (m *Machine) binary(f func(a, b Word) Word) Trap {
	s := &m.stack
	if t := s.need(2, 0); t != TrapOK {
		return t
	}
	a, b := s.items[s.size-2], s.items[s.size-1]
	s.size--
	s.items[s.size-1] = f(a, b)
	m.ip++
	return TrapOK
}

// division is binary with a zero-divisor check.
func (m *Machine) division(f func(a, b Word) Word) Trap {
	s := &m.stack
	if t := s.need(2, 0); t != TrapOK {
		return t
	}
	if s.items[s.size-1] == 0 {
		return TrapDivisionByZero
	}
	return m.binary(f)
}

func (m *Machine) compare(f func(a, b Word) bool) Trap {
	return m.binary(func(a, b Word) Word { return WordBool(f(a, b)) })
}

// read replaces the address on top of the stack with the value it points at.
func (m *Machine) read(w Width) Trap {
	s := &m.stack
	if t := s.need(1, 0); t != TrapOK {
		return t
	}
	v, t := m.memory.Read(s.items[s.size-1].U64(), w)
	if t != TrapOK {
		return t
	}
	s.items[s.size-1] = WordU64(v)
	m.ip++
	return TrapOK
}

// write pops the address, then the value, and stores the value.
func (m *Machine) write(w Width) Trap {
	s := &m.stack
	if t := s.need(2, 0); t != TrapOK {
		return t
	}
	addr, value := s.items[s.size-1], s.items[s.size-2]
	if t := m.memory.Write(addr.U64(), w, value.U64()); t != TrapOK {
		return t
	}
	s.size -= 2
	m.ip++
	return TrapOK
}
