package melf

import (
	"fmt"
	"math"

	"github.com/chazu/lvm/vm"
)

// legacyOp is an opcode number as version 0 files store it.
type legacyOp uint32

const (
	legacyNop legacyOp = iota
	legacyPush
	legacyPop
	legacyDup
	legacySwap
	legacyIncI
	legacyIncF
	legacyDecI
	legacyDecF
	legacyAddI
	legacyAddF
	legacySubI
	legacySubF
	legacyMultI
	legacyMultF
	legacyDivI
	legacyDivF
	legacyModI
	legacyModF
	legacyEq
	legacyNeq
	legacyGtI
	legacyGtF
	legacyGeI
	legacyGeF
	legacyStI
	legacyStF
	legacySeI
	legacySeF
	legacyAnd
	legacyNot
	legacyOr
	legacyAndB
	legacyNotB
	legacyOrB
	legacyXor
	legacyShl
	legacyShr
	legacyRotl
	legacyRotr
	legacyCall
	legacyNative
	legacyReturn
	legacyJmp
	legacyJmpIf
	legacyI2F
	legacyU2F
	legacyF2U
	legacyF2I
	legacyRead8
	legacyRead16
	legacyRead32
	legacyRead64
	legacyWrite8
	legacyWrite16
	legacyWrite32
	legacyWrite64
	legacyHlt
	legacyPrintDebug
)

// legacyDirect maps version 0 opcodes whose behaviour carries over to a
// single current instruction with the operand unchanged.
var legacyDirect = map[legacyOp]vm.Opcode{
	legacyNop:        vm.OpNop,
	legacyPush:       vm.OpPush,
	legacyPop:        vm.OpPop,
	legacyIncI:       vm.OpIncI,
	legacyIncF:       vm.OpIncF,
	legacyDecI:       vm.OpDecI,
	legacyDecF:       vm.OpDecF,
	legacyAddI:       vm.OpAddI,
	legacyAddF:       vm.OpAddF,
	legacySubI:       vm.OpSubI,
	legacySubF:       vm.OpSubF,
	legacyMultI:      vm.OpMultI,
	legacyMultF:      vm.OpMultF,
	legacyDivI:       vm.OpDivI,
	legacyDivF:       vm.OpDivF,
	legacyModI:       vm.OpModI,
	legacyModF:       vm.OpModF,
	legacyEq:         vm.OpEq,
	legacyNeq:        vm.OpNeq,
	legacyGtI:        vm.OpGtI,
	legacyGtF:        vm.OpGtF,
	legacyGeI:        vm.OpGeI,
	legacyGeF:        vm.OpGeF,
	legacyStI:        vm.OpStI,
	legacyStF:        vm.OpStF,
	legacySeI:        vm.OpSeI,
	legacySeF:        vm.OpSeF,
	legacyAnd:        vm.OpAnd,
	legacyNot:        vm.OpNot,
	legacyOr:         vm.OpOr,
	legacyAndB:       vm.OpAndB,
	legacyNotB:       vm.OpNotB,
	legacyOrB:        vm.OpOrB,
	legacyXor:        vm.OpXor,
	legacyShl:        vm.OpShl,
	legacyReturn:     vm.OpReturn,
	legacyI2F:        vm.OpI2F,
	legacyU2F:        vm.OpU2F,
	legacyF2U:        vm.OpF2U,
	legacyF2I:        vm.OpF2I,
	legacyRead8:      vm.OpRead8,
	legacyRead16:     vm.OpRead16,
	legacyRead32:     vm.OpRead32,
	legacyRead64:     vm.OpRead64,
	legacyWrite8:     vm.OpWrite8,
	legacyWrite16:    vm.OpWrite16,
	legacyWrite32:    vm.OpWrite32,
	legacyWrite64:    vm.OpWrite64,
	legacyHlt:        vm.OpHlt,
	legacyPrintDebug: vm.OpPrintDebug,
}

// legacyShrSequence is an arithmetic right shift, x n -- x>>n with sign
// fill, built from the logical shr: m = x<0 ? ^0 : 0, result ((x^m)>>n)^m.
var legacyShrSequence = []vm.Instruction{
	vm.Swap(0),         // n x
	vm.Inst(vm.OpDup),  // n x x
	vm.PushU64(63),     // n x x 63
	vm.Inst(vm.OpShr),  // n x sign
	vm.Inst(vm.OpDecI), // n x sign-1
	vm.Inst(vm.OpNotB), // n x m
	vm.Inst(vm.OpDup),  // n x m m
	vm.Swap(2),         // m x m n
	vm.Swap(1),         // m n m x
	vm.Inst(vm.OpXor),  // m n x^m
	vm.Swap(0),         // m x^m n
	vm.Inst(vm.OpShr),  // m (x^m)>>n
	vm.Inst(vm.OpXor),  // result
}

// TranslateLegacy rewrites a version 0 program to the current instruction
// set. The input holds instructions exactly as a version 0 file stores them,
// with Op carrying the version 0 opcode number.
//
// Version 0 used its own numbering and took jump, call and native targets
// from the operand. Each such instruction becomes a push of the remapped
// target followed by the stack-operand form. jmp_if, which jumps when the
// top is nonzero and pops it only when the jump is taken, expands to a
// short sequence with the same effect. dup and swap with a depth operand
// expand to swap chains. shr was arithmetic and is emulated.
//
// Targets at or past the end of the old program are shifted by the growth,
// so they still land past the end and trap. Return addresses pushed by call
// stay correct; addresses a program computes itself cannot be recognised
// and are left untouched. Unknown opcode numbers become illegal so they
// trap when executed. rotl and rotr have no equivalent and are rejected
// with ErrUnsupportedLegacyOpcode.
func TranslateLegacy(insts []vm.Instruction) ([]vm.Instruction, error) {
	remap := make([]uint64, len(insts)+1)
	identity := func(t uint64) uint64 { return t }
	next := uint64(0)
	for i, inst := range insts {
		seq, err := expandLegacy(inst, next, identity)
		if err != nil {
			return nil, fmt.Errorf("%w at %d", err, i)
		}
		remap[i] = next
		next += uint64(len(seq))
	}
	remap[len(insts)] = next

	oldLen := uint64(len(insts))
	growth := next - oldLen
	target := func(t uint64) uint64 {
		switch {
		case t < oldLen:
			return remap[t]
		case t <= math.MaxUint64-growth:
			return t + growth
		}
		return t
	}

	out := make([]vm.Instruction, 0, next)
	for _, inst := range insts {
		seq, _ := expandLegacy(inst, uint64(len(out)), target)
		out = append(out, seq...)
	}
	return out, nil
}

// expandLegacy returns the current instructions for one version 0
// instruction placed at index here. The length of the result depends only
// on the instruction, never on here or target.
func expandLegacy(inst vm.Instruction, here uint64, target func(uint64) uint64) ([]vm.Instruction, error) {
	op := legacyOp(inst.Op)
	if direct, ok := legacyDirect[op]; ok {
		return []vm.Instruction{{Op: direct, Operand: inst.Operand}}, nil
	}

	switch op {
	case legacyDup:
		k := inst.Operand.U64()
		if k == 0 {
			return []vm.Instruction{vm.Inst(vm.OpDup)}, nil
		}
		// Copy the element k below the top onto the top.
		return []vm.Instruction{vm.Swap(k - 1), vm.Inst(vm.OpDup), vm.Swap(k), vm.Swap(0)}, nil

	case legacySwap:
		k := inst.Operand.U64()
		if k == 0 {
			return []vm.Instruction{vm.Swap(0)}, nil
		}
		// Exchange the elements k and k+1 below the top.
		return []vm.Instruction{vm.Swap(k - 1), vm.Swap(k), vm.Swap(k - 1)}, nil

	case legacyShr:
		return append([]vm.Instruction(nil), legacyShrSequence...), nil

	case legacyCall:
		return []vm.Instruction{vm.PushU64(target(inst.Operand.U64())), vm.Inst(vm.OpCall)}, nil
	case legacyJmp:
		return []vm.Instruction{vm.PushU64(target(inst.Operand.U64())), vm.Inst(vm.OpJmp)}, nil
	case legacyNative:
		return []vm.Instruction{vm.Push(inst.Operand), vm.Inst(vm.OpNative)}, nil

	case legacyJmpIf:
		// cond stays on the stack when zero, and is popped before jumping.
		after := here + 6
		return []vm.Instruction{
			vm.Inst(vm.OpDup),
			vm.PushU64(after),
			vm.Inst(vm.OpJz),
			vm.Inst(vm.OpPop),
			vm.PushU64(target(inst.Operand.U64())),
			vm.Inst(vm.OpJmp),
		}, nil

	case legacyRotl, legacyRotr:
		name := "rotl"
		if op == legacyRotr {
			name = "rotr"
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLegacyOpcode, name)
	}

	return []vm.Instruction{{Op: vm.OpIllegal, Operand: inst.Operand}}, nil
}
