package vm

import (
	"errors"
	"fmt"
)

// ProgramCapacity is the maximum number of instructions in a Program.
const ProgramCapacity = 1 << 20

var (
	ErrProgramTooLarge = errors.New("program too large")
	ErrMemoryTooLarge  = errors.New("memory image too large")
)

// Program is an immutable instruction sequence plus an optional initial
// memory image. Programs are safe to share between Machines.
type Program struct {
	insts  []Instruction
	memory []byte
}

// NewProgram copies insts and memory into a new Program.
func NewProgram(insts []Instruction, memory []byte) (*Program, error) {
	if len(insts) > ProgramCapacity {
		return nil, fmt.Errorf("%w: expected at most %d instructions, got %d",
			ErrProgramTooLarge, ProgramCapacity, len(insts))
	}
	if len(memory) > MemoryCapacity {
		return nil, fmt.Errorf("%w: expected at most %d bytes, got %d",
			ErrMemoryTooLarge, MemoryCapacity, len(memory))
	}
	p := &Program{
		insts: append([]Instruction(nil), insts...),
	}
	if len(memory) > 0 {
		p.memory = append([]byte(nil), memory...)
	}
	return p, nil
}

// MustProgram is like NewProgram but panics on error.
// It is intended for programs written as Go literals.
func MustProgram(insts []Instruction, memory []byte) *Program {
	p, err := NewProgram(insts, memory)
	if err != nil {
		panic("vm: " + err.Error())
	}
	return p
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.insts)
}

// At returns the instruction at index i. It panics if i is out of range.
func (p *Program) At(i int) Instruction {
	return p.insts[i]
}

// Instructions returns a copy of the instruction sequence.
func (p *Program) Instructions() []Instruction {
	return append([]Instruction(nil), p.insts...)
}

// MemorySize returns the size of the initial memory image.
func (p *Program) MemorySize() int {
	return len(p.memory)
}

// Memory returns a copy of the initial memory image.
func (p *Program) Memory() []byte {
	return append([]byte(nil), p.memory...)
}
