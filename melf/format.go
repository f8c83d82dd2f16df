package melf

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chazu/lvm/vm"
)

// Magic identifies a melf file. It reads "LOVE" on disk.
const Magic uint32 = 0x45564F4C

// Version is the newest format version this package reads and the one it
// writes.
const Version uint16 = 1

// LegacyVersion is the original encoding, with its own opcode numbering and
// immediate control-flow operands. It is translated on decode.
const LegacyVersion uint16 = 0

// Layout sizes
const (
	HeaderSize      = 4 + 2 + 8 + 8
	InstructionSize = 4 + 4 + 8
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrTruncatedHeader       = errors.New("truncated melf header")
	ErrInvalidMagic          = errors.New("invalid magic number: expected LOVE")
	ErrUnsupportedVersion    = errors.New("unsupported melf version")
	ErrTruncatedInstructions = errors.New("truncated instruction block")
	ErrTruncatedMemory       = errors.New("truncated memory block")

	ErrUnsupportedLegacyOpcode = errors.New("legacy opcode has no current equivalent")

	// Shared with vm so errors.Is works across both packages.
	ErrProgramTooLarge = vm.ErrProgramTooLarge
	ErrMemoryTooLarge  = vm.ErrMemoryTooLarge
)

// ---------------------------------------------------------------------------
// Header
// ---------------------------------------------------------------------------

// Header is the fixed-size prefix of a melf file.
type Header struct {
	Magic            uint32
	Version          uint16
	InstructionCount uint64
	MemorySize       uint64
}

func (h Header) String() string {
	return fmt.Sprintf("melf v%d: %d instructions, %d bytes of memory",
		h.Version, h.InstructionCount, h.MemorySize)
}

func (h Header) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:], h.Magic)
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	binary.LittleEndian.PutUint64(buf[6:], h.InstructionCount)
	binary.LittleEndian.PutUint64(buf[14:], h.MemorySize)
}

func parseHeader(buf []byte) Header {
	return Header{
		Magic:            binary.LittleEndian.Uint32(buf[0:]),
		Version:          binary.LittleEndian.Uint16(buf[4:]),
		InstructionCount: binary.LittleEndian.Uint64(buf[6:]),
		MemorySize:       binary.LittleEndian.Uint64(buf[14:]),
	}
}

// validate checks magic, version and counts, in that order.
func (h Header) validate() error {
	if h.Magic != Magic {
		return fmt.Errorf("%w: got 0x%08X", ErrInvalidMagic, h.Magic)
	}
	if h.Version > Version {
		return fmt.Errorf("%w: expected at most %d, got %d", ErrUnsupportedVersion, Version, h.Version)
	}
	if h.InstructionCount > vm.ProgramCapacity {
		return fmt.Errorf("%w: expected at most %d instructions, got %d",
			ErrProgramTooLarge, vm.ProgramCapacity, h.InstructionCount)
	}
	if h.MemorySize > vm.MemoryCapacity {
		return fmt.Errorf("%w: expected at most %d bytes, got %d",
			ErrMemoryTooLarge, vm.MemoryCapacity, h.MemorySize)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Instruction records
// ---------------------------------------------------------------------------

func putInstruction(buf []byte, inst vm.Instruction) {
	binary.LittleEndian.PutUint32(buf[0:], uint32(inst.Op))
	binary.LittleEndian.PutUint32(buf[4:], 0) // reserved
	binary.LittleEndian.PutUint64(buf[8:], inst.Operand.U64())
}

// parseInstruction ignores the reserved field.
func parseInstruction(buf []byte) vm.Instruction {
	return vm.Instruction{
		Op:      vm.Opcode(binary.LittleEndian.Uint32(buf[0:])),
		Operand: vm.WordU64(binary.LittleEndian.Uint64(buf[8:])),
	}
}
