package vm

import "fmt"

// NativeCapacity is the maximum number of natives a Machine can hold.
const NativeCapacity = 1024

// Native is a host callback invoked by the native instruction.
//
// Natives are trusted extensions: they receive the Machine with full
// mutable access to its stack, memory, instruction pointer and halted flag,
// and nothing checks what they do with it. A native returning a non-OK
// Trap stops the run loop with that trap.
type Native func(m *Machine) Trap

// RegisterNative appends fn to the native table and returns its index.
// Indices are assigned in registration order starting at 0.
//
// Registering a nil callback or exceeding NativeCapacity is a host
// programming error and panics.
func (m *Machine) RegisterNative(fn Native) int {
	if fn == nil {
		panic("vm: nil native")
	}
	if len(m.natives) >= NativeCapacity {
		panic(fmt.Sprintf("vm: native table full (%d entries)", NativeCapacity))
	}
	m.natives = append(m.natives, fn)
	return len(m.natives) - 1
}

// NativeCount returns the number of registered natives.
func (m *Machine) NativeCount() int {
	return len(m.natives)
}

func (m *Machine) callNative(index Word) Trap {
	if index.U64() >= uint64(len(m.natives)) {
		return TrapIllegalOperand
	}
	return m.natives[index.U64()](m)
}
