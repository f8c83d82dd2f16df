package melf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/lvm/vm"
)

var log = commonlog.GetLogger("lvm.melf")

// ReadHeader reads and validates the header at the start of r. Nothing past
// the header is consumed.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if n, err := io.ReadFull(r, buf[:]); err != nil {
		if isShort(err) {
			return Header{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrTruncatedHeader, HeaderSize, n)
		}
		return Header{}, fmt.Errorf("melf: read header: %w", err)
	}
	h := parseHeader(buf[:])
	if err := h.validate(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Decode reads one melf program from r. Version 0 programs are translated
// to the current instruction set. Bytes following the memory block are not read.
func Decode(r io.Reader) (*vm.Program, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	// Counts are bounded by validate, so these allocations are too.
	raw := make([]byte, h.InstructionCount*InstructionSize)
	if n, err := io.ReadFull(r, raw); err != nil {
		if isShort(err) {
			return nil, fmt.Errorf("%w: expected %d instructions, got %d",
				ErrTruncatedInstructions, h.InstructionCount, n/InstructionSize)
		}
		return nil, fmt.Errorf("melf: read instructions: %w", err)
	}
	insts := make([]vm.Instruction, h.InstructionCount)
	for i := range insts {
		insts[i] = parseInstruction(raw[i*InstructionSize:])
	}

	memory := make([]byte, h.MemorySize)
	if n, err := io.ReadFull(r, memory); err != nil {
		if isShort(err) {
			return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrTruncatedMemory, h.MemorySize, n)
		}
		return nil, fmt.Errorf("melf: read memory: %w", err)
	}

	if h.Version == LegacyVersion {
		n := len(insts)
		if insts, err = TranslateLegacy(insts); err != nil {
			return nil, fmt.Errorf("melf: translate version %d: %w", h.Version, err)
		}
		log.Debugf("translated legacy program: %d -> %d instructions", n, len(insts))
		log.Debugf("translated legacy program: %d -> %d instructions", h.InstructionCount, len(insts))
	}

	p, err := vm.NewProgram(insts, memory)
	if err != nil {
		return nil, err
	}
	log.Debugf("decoded %s", h)
	return p, nil
}

// Unmarshal decodes a program held in memory.
func Unmarshal(data []byte) (*vm.Program, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile decodes the program stored at path.
func ReadFile(path string) (*vm.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func isShort(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
