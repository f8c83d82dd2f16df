// Package melf reads and writes the melf binary program format used to ship
// programs to the lvm virtual machine.
//
// A melf file is a fixed header followed by the instruction records and the
// initial memory image. All integers are little-endian and nothing is padded:
//
//	magic        u32   0x45564F4C ("LOVE" on disk)
//	version      u16
//	inst_count   u64
//	memory_size  u64
//	insts        inst_count x { opcode u32, reserved u32, operand u64 }
//	memory       memory_size raw bytes
//
// # Versions
//
// Version 1 is the current format. Control-flow instructions (jmp, jz, jnz,
// call) and native take their target or index from the operand stack.
//
// Version 0 files use an older opcode numbering and carry jump, call and
// native targets in the instruction operand. They are rewritten on decode
// by TranslateLegacy, so every Program returned by this package uses the
// current instruction set. The version 0 writer filled the memory block
// from the start of the instruction array; those bytes are loaded as the
// memory image unchanged.
//
// Opcode values outside the instruction set are preserved; the machine traps
// on them when they execute.
package melf
