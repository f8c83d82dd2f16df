package vm

import (
	"fmt"
	"math"
	"testing"
)

var widths = []Width{Width8, Width16, Width32, Width64}

func TestMemoryBoundaries(t *testing.T) {
	for _, w := range widths {
		t.Run(fmt.Sprintf("width%d", w*8), func(t *testing.T) {
			var mem Memory
			last := uint64(MemoryCapacity - w)

			if trap := mem.Write(last, w, math.MaxUint64); trap != TrapOK {
				t.Errorf("Write at capacity-w = %v", trap)
			}
			if _, trap := mem.Read(last, w); trap != TrapOK {
				t.Errorf("Read at capacity-w = %v", trap)
			}
			if trap := mem.Write(last+1, w, 0); trap != TrapIllegalMemoryAccess {
				t.Errorf("Write at capacity-w+1 = %v", trap)
			}
			if _, trap := mem.Read(last+1, w); trap != TrapIllegalMemoryAccess {
				t.Errorf("Read at capacity-w+1 = %v", trap)
			}
			if _, trap := mem.Read(0, w); trap != TrapOK {
				t.Errorf("Read at 0 = %v", trap)
			}
			if _, trap := mem.Read(math.MaxUint64, w); trap != TrapIllegalMemoryAccess {
				t.Errorf("Read at MaxUint64 = %v", trap)
			}
		})
	}
}

func TestMemoryLittleEndian(t *testing.T) {
	var mem Memory
	mem.Write(10, Width64, 0x0807060504030201)
	for i := uint64(0); i < 8; i++ {
		b, _ := mem.Read(10+i, Width8)
		if b != i+1 {
			t.Errorf("byte %d = %#x, want %#x", i, b, i+1)
		}
	}
	if v, _ := mem.Read(10, Width16); v != 0x0201 {
		t.Errorf("read16 = %#x", v)
	}
	if v, _ := mem.Read(12, Width32); v != 0x06050403 {
		t.Errorf("read32 = %#x", v)
	}
}

func TestMemoryWriteTruncates(t *testing.T) {
	var mem Memory
	mem.Write(0, Width64, math.MaxUint64)
	mem.Write(0, Width16, 0x12345)
	if v, _ := mem.Read(0, Width64); v != 0xFFFFFFFFFFFF2345 {
		t.Errorf("read64 = %#x", v)
	}
}

func TestMemoryInstructions(t *testing.T) {
	// Writes pop the address first, then the value.
	m, _ := newTestMachine(
		PushI64(-2), PushU64(100), Inst(OpWrite16),
		PushU64(100), Inst(OpRead16),
		PushU64(100), Inst(OpRead64),
		Inst(OpHlt),
	)
	if trap := m.Run(-1); trap != TrapOK {
		t.Fatalf("Run = %v", trap)
	}
	vals := m.Stack().Values()
	if len(vals) != 2 || vals[0].U64() != 0xFFFE || vals[1].U64() != 0xFFFE {
		t.Errorf("stack = %v", vals)
	}
}

func TestMemoryInstructionTraps(t *testing.T) {
	m, _ := newTestMachine(PushI64(1), PushU64(MemoryCapacity-3), Inst(OpWrite32))
	if trap := m.Run(-1); trap != TrapIllegalMemoryAccess {
		t.Fatalf("Run = %v", trap)
	}
	expectStack(t, m, 1, MemoryCapacity-3)

	m, _ = newTestMachine(PushU64(MemoryCapacity), Inst(OpRead8))
	if trap := m.Run(-1); trap != TrapIllegalMemoryAccess {
		t.Fatalf("Run = %v", trap)
	}
	expectStack(t, m, MemoryCapacity)
}

func TestMemorySlice(t *testing.T) {
	var mem Memory
	b, trap := mem.Slice(MemoryCapacity-4, 4)
	if trap != TrapOK || len(b) != 4 {
		t.Fatalf("Slice = %d bytes, %v", len(b), trap)
	}
	b[0] = 0xAB
	if v, _ := mem.Read(MemoryCapacity-4, Width8); v != 0xAB {
		t.Error("Slice does not alias memory")
	}
	if _, trap := mem.Slice(MemoryCapacity-4, 5); trap != TrapIllegalMemoryAccess {
		t.Errorf("Slice past end = %v", trap)
	}
}

func TestMemoryReset(t *testing.T) {
	var mem Memory
	mem.Write(500, Width8, 1)
	mem.Reset([]byte{7, 8})
	if v, _ := mem.Read(0, Width16); v != 0x0807 {
		t.Errorf("image = %#x", v)
	}
	if v, _ := mem.Read(500, Width8); v != 0 {
		t.Error("Reset did not zero memory")
	}
	if got := len(mem.used()); got != 2 {
		t.Errorf("used = %d bytes, want 2", got)
	}
}
