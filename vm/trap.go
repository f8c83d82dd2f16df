package vm

import (
	"errors"
	"fmt"
	"strings"
)

// Trap is the outcome of executing an instruction. TrapOK is the only
// non-failure value; every other Trap stops the run loop immediately.
type Trap int

// List of traps, in wire order.
const (
	TrapOK Trap = iota
	TrapIllegalInstruction
	TrapIllegalInstructionAccess
	TrapIllegalOperand
	TrapStackOverflow
	TrapStackUnderflow
	TrapDivisionByZero
	TrapIllegalMemoryAccess

	trapCount
)

var trapNames = [trapCount]string{
	TrapOK:                       "ok",
	TrapIllegalInstruction:       "illegal instruction",
	TrapIllegalInstructionAccess: "illegal instruction access",
	TrapIllegalOperand:           "illegal operand",
	TrapStackOverflow:            "stack overflow",
	TrapStackUnderflow:           "stack underflow",
	TrapDivisionByZero:           "div by zero",
	TrapIllegalMemoryAccess:      "illegal memory access",
}

// String returns the human-readable name of the trap.
func (t Trap) String() string {
	if t < 0 || t >= trapCount {
		return fmt.Sprintf("Trap(%d)", int(t))
	}
	return trapNames[t]
}

// ---------------------------------------------------------------------------
// Trap sentinels for errors.Is
// ---------------------------------------------------------------------------

var (
	ErrIllegalInstruction       = errors.New("illegal instruction")
	ErrIllegalInstructionAccess = errors.New("illegal instruction access")
	ErrIllegalOperand           = errors.New("illegal operand")
	ErrStackOverflow            = errors.New("stack overflow")
	ErrStackUnderflow           = errors.New("stack underflow")
	ErrDivisionByZero           = errors.New("div by zero")
	ErrIllegalMemoryAccess      = errors.New("illegal memory access")
)

var trapErrors = [trapCount]error{
	TrapIllegalInstruction:       ErrIllegalInstruction,
	TrapIllegalInstructionAccess: ErrIllegalInstructionAccess,
	TrapIllegalOperand:           ErrIllegalOperand,
	TrapStackOverflow:            ErrStackOverflow,
	TrapStackUnderflow:           ErrStackUnderflow,
	TrapDivisionByZero:           ErrDivisionByZero,
	TrapIllegalMemoryAccess:      ErrIllegalMemoryAccess,
}

// Err returns the sentinel error for the trap, or nil for TrapOK.
func (t Trap) Err() error {
	if t <= TrapOK || t >= trapCount {
		return nil
	}
	return trapErrors[t]
}

// ---------------------------------------------------------------------------
// TrapError: a trap with the machine context it was raised in
// ---------------------------------------------------------------------------

// TrapError describes the cause and the context of a trap.
type TrapError struct {
	Trap        Trap        // nature of the trap
	IP          uint64      // instruction pointer of the failing instruction
	Instruction Instruction // failing instruction (zero when IP was out of range)
	Stack       []Word      // operand stack at the time of the trap, bottom first
}

func (e *TrapError) Error() string {
	var sb strings.Builder
	sb.WriteString("lvm: ")
	sb.WriteString(e.Trap.String())
	if e.Trap != TrapIllegalInstructionAccess {
		sb.WriteString(" in ")
		sb.WriteString(e.Instruction.String())
	}
	fmt.Fprintf(&sb, " at %d", e.IP)
	return sb.String()
}

// Unwrap returns the trap sentinel so callers can use errors.Is.
func (e *TrapError) Unwrap() error {
	return e.Trap.Err()
}

func (m *Machine) newTrapError(t Trap) error {
	e := &TrapError{
		Trap:  t,
		IP:    m.ip,
		Stack: m.stack.Values(),
	}
	if m.program != nil && m.ip < uint64(m.program.Len()) {
		e.Instruction = m.program.At(int(m.ip))
	}
	return e
}
