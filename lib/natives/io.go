package natives

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/lvm/vm"
)

var log = commonlog.GetLogger("lvm.natives")

// reportWrite logs a failed write to the diagnostics sink. There is no trap
// for output errors, so the program keeps running.
func reportWrite(name string, err error) {
	if err != nil {
		log.Errorf("%s: write output: %s", name, err.Error())
	}
}

// ---------------------------------------------------------------------------
// Output natives: write to the machine's diagnostics sink
// ---------------------------------------------------------------------------

// DumpStack writes the operand stack without changing it.
func DumpStack(m *vm.Machine) vm.Trap {
	reportWrite("dump_stack", m.DumpStack(m.Output))
	return vm.TrapOK
}

// PrintI64 pops one word and prints it as a signed integer.
func PrintI64(m *vm.Machine) vm.Trap {
	w, t := m.Pop()
	if t != vm.TrapOK {
		return t
	}
	_, err := fmt.Fprintln(m.Output, w.I64())
	reportWrite("print_i64", err)
	return vm.TrapOK
}

// PrintU64 pops one word and prints it as an unsigned integer.
func PrintU64(m *vm.Machine) vm.Trap {
	w, t := m.Pop()
	if t != vm.TrapOK {
		return t
	}
	_, err := fmt.Fprintln(m.Output, w.U64())
	reportWrite("print_u64", err)
	return vm.TrapOK
}

// PrintF64 pops one word and prints it as a float.
func PrintF64(m *vm.Machine) vm.Trap {
	w, t := m.Pop()
	if t != vm.TrapOK {
		return t
	}
	_, err := fmt.Fprintln(m.Output, w.F64())
	reportWrite("print_f64", err)
	return vm.TrapOK
}

// PrintChar pops one word and writes its low byte.
func PrintChar(m *vm.Machine) vm.Trap {
	w, t := m.Pop()
	if t != vm.TrapOK {
		return t
	}
	_, err := m.Output.Write([]byte{byte(w.U64())})
	reportWrite("print_char", err)
	return vm.TrapOK
}

// Halt stops the machine after the native instruction completes.
func Halt(m *vm.Machine) vm.Trap {
	m.SetHalted(true)
	return vm.TrapOK
}
