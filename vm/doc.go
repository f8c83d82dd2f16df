// Package vm implements the lvm stack machine.
//
// This package contains:
//   - Untyped 8-byte Words read as signed, unsigned or float
//   - The bounded operand stack and byte-addressed linear memory
//   - The instruction set and the single-step dispatch loop
//   - The native call table through which hosts extend the machine
//   - Debugging support: disassembly, stack and memory dumps, breakpoints
//     and CBOR snapshots
//
// Every instruction either completes or returns a Trap and leaves the
// machine as it was before the instruction started. The one exception is
// native: once the index is popped and the callback runs, a Trap it returns
// is passed through with whatever changes the callback made. Control flow takes its
// targets from the operand stack; there is no separate call stack, so a
// callee must leave the return address on top before it executes return.
package vm
