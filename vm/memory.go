package vm

import "encoding/binary"

// MemoryCapacity is the size of linear memory in bytes.
const MemoryCapacity = 640 * 1000

// Width is the size in bytes of a memory access.
type Width uint64

// Supported access widths.
const (
	Width8  Width = 1
	Width16 Width = 2
	Width32 Width = 4
	Width64 Width = 8
)

// Memory is the fixed-size, little-endian, byte-addressed linear memory.
type Memory struct {
	data [MemoryCapacity]byte
}

// inBounds reports whether [addr, addr+w) lies inside memory without
// overflowing the address arithmetic.
func inBounds(addr uint64, w Width) bool {
	return uint64(w) <= MemoryCapacity && addr <= MemoryCapacity-uint64(w)
}

// Read loads w bytes at addr and zero-extends them.
func (m *Memory) Read(addr uint64, w Width) (uint64, Trap) {
	if !inBounds(addr, w) {
		return 0, TrapIllegalMemoryAccess
	}
	b := m.data[addr : addr+uint64(w)]
	switch w {
	case Width8:
		return uint64(b[0]), TrapOK
	case Width16:
		return uint64(binary.LittleEndian.Uint16(b)), TrapOK
	case Width32:
		return uint64(binary.LittleEndian.Uint32(b)), TrapOK
	case Width64:
		return binary.LittleEndian.Uint64(b), TrapOK
	}
	return 0, TrapIllegalOperand
}

// Write truncates v to w bytes and stores them at addr.
func (m *Memory) Write(addr uint64, w Width, v uint64) Trap {
	if !inBounds(addr, w) {
		return TrapIllegalMemoryAccess
	}
	b := m.data[addr : addr+uint64(w)]
	switch w {
	case Width8:
		b[0] = byte(v)
	case Width16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case Width32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case Width64:
		binary.LittleEndian.PutUint64(b, v)
	default:
		return TrapIllegalOperand
	}
	return TrapOK
}

// Slice returns the n bytes at addr for direct host access.
// The slice aliases machine memory.
func (m *Memory) Slice(addr, n uint64) ([]byte, Trap) {
	if n > MemoryCapacity || addr > MemoryCapacity-n {
		return nil, TrapIllegalMemoryAccess
	}
	return m.data[addr : addr+n], TrapOK
}

// Reset zeroes memory and copies image to offset 0.
func (m *Memory) Reset(image []byte) {
	clear(m.data[:])
	copy(m.data[:], image)
}

// used returns the memory prefix ending at the last nonzero byte.
func (m *Memory) used() []byte {
	end := len(m.data)
	for end > 0 && m.data[end-1] == 0 {
		end--
	}
	return m.data[:end]
}
