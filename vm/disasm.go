package vm

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	return p.DisassembleWithName("")
}

// DisassembleWithName returns a listing with a name header.
func (p *Program) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Instructions: %d\n", len(p.insts)))
	sb.WriteString(fmt.Sprintf("; Memory image: %d bytes\n", len(p.memory)))
	sb.WriteString("\n")

	// Code section
	for i, inst := range p.insts {
		sb.WriteString(fmt.Sprintf("%04d  %s", i, inst))
		if inst.Op == OpPush && inst.Operand.I64() != 0 {
			sb.WriteString(fmt.Sprintf("  ; 0x%016X", inst.Operand.U64()))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// WriteListing writes the listing of p to w.
func WriteListing(w io.Writer, name string, p *Program) error {
	_, err := io.WriteString(w, p.DisassembleWithName(name))
	return err
}
