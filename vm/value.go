package vm

import (
	"math"
)

// Word is the 8-byte value unit shared by the operand stack, linear memory
// and instruction operands.
//
// A Word carries no type tag. The same bit pattern is read as a signed
// integer, an unsigned integer or an IEEE 754 double depending solely on the
// instruction consuming it. All reinterpretation goes through the accessors
// below so every bit-cast in the interpreter is explicit.
type Word uint64

// WordSize is the encoded size of a Word in bytes.
const WordSize = 8

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// WordI64 returns the Word holding the two's-complement bits of n.
func WordI64(n int64) Word {
	return Word(uint64(n))
}

// WordU64 returns the Word holding n.
func WordU64(n uint64) Word {
	return Word(n)
}

// WordF64 returns the Word holding the IEEE 754 bits of f.
func WordF64(f float64) Word {
	return Word(math.Float64bits(f))
}

// WordBool returns 1 for true and 0 for false.
func WordBool(b bool) Word {
	if b {
		return 1
	}
	return 0
}

// ---------------------------------------------------------------------------
// Reinterpretation
// ---------------------------------------------------------------------------

// I64 reads the Word as a signed 64-bit integer.
func (w Word) I64() int64 {
	return int64(w)
}

// U64 reads the Word as an unsigned 64-bit integer.
func (w Word) U64() uint64 {
	return uint64(w)
}

// F64 reads the Word as a 64-bit float.
func (w Word) F64() float64 {
	return math.Float64frombits(uint64(w))
}

// Truthy reports whether the integer view of the Word is nonzero.
func (w Word) Truthy() bool {
	return w != 0
}

// ---------------------------------------------------------------------------
// Value conversions (not bit-casts)
// ---------------------------------------------------------------------------

func i64ToF64(w Word) Word {
	return WordF64(float64(w.I64()))
}

func u64ToF64(w Word) Word {
	return WordF64(float64(w.U64()))
}

func f64ToI64(w Word) Word {
	return WordI64(int64(w.F64()))
}

// f64ToU64 converts negative values through int64 so -1.0 yields
// 0xFFFFFFFFFFFFFFFF on every platform.
func f64ToU64(w Word) Word {
	f := w.F64()
	if f < 0 {
		return WordU64(uint64(int64(f)))
	}
	return WordU64(uint64(f))
}
