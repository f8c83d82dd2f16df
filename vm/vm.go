package vm

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("lvm.vm")

// Machine is the runtime state of one virtual machine: operand stack,
// linear memory, native table, loaded program, instruction pointer and
// halted flag.
//
// A Machine is not safe for concurrent use. Exactly one goroutine may drive
// it at a time, and nothing but the run loop and the natives it invokes may
// touch its state while Run is in progress.
type Machine struct {
	stack   Stack
	memory  Memory
	natives []Native
	program *Program
	ip      uint64
	halted  bool

	// Output receives print_debug lines. Defaults to os.Stdout.
	Output io.Writer

	// Trace logs every executed instruction at debug level.
	Trace bool
}

// NewMachine creates an empty Machine with no program loaded.
func NewMachine() *Machine {
	return &Machine{
		natives: make([]Native, 0, 16),
		Output:  os.Stdout,
	}
}

// Load resets the machine and makes p the current program: the stack is
// emptied, ip and the halted flag are cleared, memory is zeroed and the
// program's memory image is copied to offset 0. Registered natives are kept.
func (m *Machine) Load(p *Program) {
	m.program = p
	m.ip = 0
	m.halted = false
	m.stack.Reset()
	if p != nil {
		m.memory.Reset(p.memory)
		log.Debugf("loaded program: %d instructions, %d bytes of memory", p.Len(), p.MemorySize())
	} else {
		m.memory.Reset(nil)
	}
}

// Program returns the loaded program, or nil.
func (m *Machine) Program() *Program {
	return m.program
}

// ---------------------------------------------------------------------------
// State accessors (used by hosts and natives)
// ---------------------------------------------------------------------------

// IP returns the instruction pointer.
func (m *Machine) IP() uint64 {
	return m.ip
}

// SetIP sets the instruction pointer. Out-of-range values trap on the next step.
func (m *Machine) SetIP(ip uint64) {
	m.ip = ip
}

// Halted reports whether hlt has executed since the last Load.
func (m *Machine) Halted() bool {
	return m.halted
}

// SetHalted sets or clears the halted flag.
func (m *Machine) SetHalted(h bool) {
	m.halted = h
}

// Stack returns the operand stack.
func (m *Machine) Stack() *Stack {
	return &m.stack
}

// Memory returns linear memory.
func (m *Machine) Memory() *Memory {
	return &m.memory
}

// Push pushes w onto the operand stack.
func (m *Machine) Push(w Word) Trap {
	return m.stack.Push(w)
}

// Pop pops the top of the operand stack.
func (m *Machine) Pop() (Word, Trap) {
	return m.stack.Pop()
}

// ---------------------------------------------------------------------------
// Run driver
// ---------------------------------------------------------------------------

// Run executes up to limit instructions. A negative limit runs until the
// machine halts or traps; a zero limit executes nothing.
//
// Run returns TrapOK both when the machine halted and when the budget ran
// out; use Halted to tell the two apart. Any other Trap names the failure
// of the instruction at IP, which has not been advanced past.
func (m *Machine) Run(limit int64) Trap {
	for limit != 0 && !m.halted {
		if t := m.Step(); t != TrapOK {
			return t
		}
		if limit > 0 {
			limit--
		}
	}
	return TrapOK
}

// Execute is Run with the trap converted to an error. A non-OK trap is
// returned as a *TrapError carrying the machine context.
func (m *Machine) Execute(limit int64) error {
	if t := m.Run(limit); t != TrapOK {
		return m.newTrapError(t)
	}
	return nil
}

// RunContext runs the machine until it halts, traps or ctx is done,
// executing slice instructions between checks of ctx. It returns nil when
// the machine halted, ctx.Err() when cancelled, and a *TrapError on a trap.
func (m *Machine) RunContext(ctx context.Context, slice int64) error {
	if slice <= 0 {
		return fmt.Errorf("vm: slice must be positive, got %d", slice)
	}
	for !m.halted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Execute(slice); err != nil {
			return err
		}
	}
	return nil
}

// Step executes the instruction at IP. It does nothing on a halted machine.
func (m *Machine) Step() Trap {
	if m.halted {
		return TrapOK
	}
	if m.program == nil || m.ip >= uint64(m.program.Len()) {
		return TrapIllegalInstructionAccess
	}
	inst := m.program.insts[m.ip]
	if m.Trace && log.AllowLevel(commonlog.Debug) {
		log.Debugf("[%04d] %-16s sp=%d", m.ip, inst, m.stack.size)
	}
	return m.exec(inst)
}
