package vm

import (
	"sort"
)

// ---------------------------------------------------------------------------
// Debugger: breakpoint-driven stepping over a Machine
// ---------------------------------------------------------------------------

// StopReason tells why the debugger returned control.
type StopReason int

const (
	StopBudget     StopReason = iota // step budget exhausted
	StopHalted                       // hlt executed
	StopBreakpoint                   // reached a breakpoint
	StopTrap                         // instruction trapped
)

func (r StopReason) String() string {
	switch r {
	case StopBudget:
		return "budget"
	case StopHalted:
		return "halted"
	case StopBreakpoint:
		return "breakpoint"
	case StopTrap:
		return "trap"
	}
	return "unknown"
}

// Debugger drives a Machine one instruction at a time and stops at
// breakpoints. It uses only the public run driver, so every stop leaves
// the Machine in a state Run could have produced.
type Debugger struct {
	m           *Machine
	breakpoints map[uint64]bool
}

// NewDebugger attaches a debugger to m.
func NewDebugger(m *Machine) *Debugger {
	return &Debugger{
		m:           m,
		breakpoints: make(map[uint64]bool),
	}
}

// Machine returns the machine under debug.
func (d *Debugger) Machine() *Machine {
	return d.m
}

// SetBreakpoint adds a breakpoint at instruction index ip.
func (d *Debugger) SetBreakpoint(ip uint64) {
	d.breakpoints[ip] = true
}

// ClearBreakpoint removes the breakpoint at ip.
func (d *Debugger) ClearBreakpoint(ip uint64) {
	delete(d.breakpoints, ip)
}

// Breakpoints returns the breakpoint addresses in ascending order.
func (d *Debugger) Breakpoints() []uint64 {
	out := make([]uint64, 0, len(d.breakpoints))
	for ip := range d.breakpoints {
		out = append(out, ip)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Step executes up to n instructions, ignoring breakpoints.
func (d *Debugger) Step(n int64) (StopReason, Trap) {
	t := d.m.Run(n)
	return d.reason(t, false), t
}

// Continue runs until a breakpoint, halt or trap. At most limit
// instructions execute when limit is positive. The instruction at the
// current ip always executes, so Continue makes progress when stopped on
// a breakpoint.
func (d *Debugger) Continue(limit int64) (StopReason, Trap) {
	first := true
	for limit != 0 && !d.m.halted {
		if !first && d.breakpoints[d.m.ip] {
			return StopBreakpoint, TrapOK
		}
		first = false
		if t := d.m.Step(); t != TrapOK {
			return StopTrap, t
		}
		if limit > 0 {
			limit--
		}
	}
	return d.reason(TrapOK, d.breakpoints[d.m.ip]), TrapOK
}

func (d *Debugger) reason(t Trap, atBreakpoint bool) StopReason {
	switch {
	case t != TrapOK:
		return StopTrap
	case d.m.halted:
		return StopHalted
	case atBreakpoint:
		return StopBreakpoint
	}
	return StopBudget
}
