package melf

import (
	"io"
	"os"

	"github.com/chazu/lvm/vm"
)

// Marshal encodes p in the current format version.
func Marshal(p *vm.Program) []byte {
	insts := p.Instructions()
	memory := p.Memory()

	buf := make([]byte, HeaderSize+len(insts)*InstructionSize+len(memory))
	Header{
		Magic:            Magic,
		Version:          Version,
		InstructionCount: uint64(len(insts)),
		MemorySize:       uint64(len(memory)),
	}.put(buf)

	offset := HeaderSize
	for _, inst := range insts {
		putInstruction(buf[offset:], inst)
		offset += InstructionSize
	}
	copy(buf[offset:], memory)
	return buf
}

// Encode writes p to w in the current format version.
func Encode(w io.Writer, p *vm.Program) error {
	_, err := w.Write(Marshal(p))
	return err
}

// WriteFile writes p to path, creating or truncating it.
func WriteFile(path string, p *vm.Program) error {
	return os.WriteFile(path, Marshal(p), 0o644)
}
