package vm

import (
	"fmt"
	"io"
	"strings"
)

const dumpRule = "-----------------------------------------"

// FormatWord renders the three interpretations of a Word on one line.
func FormatWord(w Word) string {
	return formatWord(w)
}

func formatWord(w Word) string {
	return fmt.Sprintf("i64:%d, u64:%d, f64:%f", w.I64(), w.U64(), w.F64())
}

// DumpStack writes the operand stack to out, bottom first, one entry per line.
func (m *Machine) DumpStack(out io.Writer) error {
	var sb strings.Builder
	sb.WriteString(dumpRule + "\n")
	sb.WriteString("Stack:\n")
	if m.stack.size == 0 {
		sb.WriteString("  [THE STACK IS EMPTY]\n")
	}
	for _, w := range m.stack.items[:m.stack.size] {
		sb.WriteString("  ")
		sb.WriteString(formatWord(w))
		sb.WriteByte('\n')
	}
	sb.WriteString(dumpRule + "\n")
	_, err := io.WriteString(out, sb.String())
	return err
}

// DumpMemory writes a hex dump of n bytes starting at addr, 16 bytes per row.
func (m *Machine) DumpMemory(out io.Writer, addr, n uint64) error {
	data, t := m.memory.Slice(addr, n)
	if t != TrapOK {
		return fmt.Errorf("%w: %d bytes at %d", ErrIllegalMemoryAccess, n, addr)
	}
	var sb strings.Builder
	for row := 0; row < len(data); row += 16 {
		end := min(row+16, len(data))
		fmt.Fprintf(&sb, "%08x ", addr+uint64(row))
		for _, b := range data[row:end] {
			fmt.Fprintf(&sb, " %02x", b)
		}
		sb.WriteByte('\n')
	}
	_, err := io.WriteString(out, sb.String())
	return err
}
