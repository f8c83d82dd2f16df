package melf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/lvm/vm"
)

// ---------------------------------------------------------------------------
// Test Helpers: Building raw melf streams
// ---------------------------------------------------------------------------

type testMelfBuilder struct {
	buf bytes.Buffer
}

func (b *testMelfBuilder) writeUint16(v uint16) {
	b.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func (b *testMelfBuilder) writeUint32(v uint32) {
	b.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (b *testMelfBuilder) writeUint64(v uint64) {
	b.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (b *testMelfBuilder) writeHeader(magic uint32, version uint16, insts, memory uint64) {
	b.writeUint32(magic)
	b.writeUint16(version)
	b.writeUint64(insts)
	b.writeUint64(memory)
}

func (b *testMelfBuilder) writeInstruction(op vm.Opcode, operand uint64) {
	b.writeUint32(uint32(op))
	b.writeUint32(0)
	b.writeUint64(operand)
}

func (b *testMelfBuilder) bytes() []byte {
	return b.buf.Bytes()
}

// ---------------------------------------------------------------------------
// Round trip
// ---------------------------------------------------------------------------

func TestMarshalRoundTrip(t *testing.T) {
	p := vm.MustProgram([]vm.Instruction{
		vm.PushI64(-7),
		vm.PushF64(2.5),
		vm.Swap(0),
		vm.Inst(vm.OpI2F),
		{Op: vm.Opcode(200), Operand: vm.WordU64(0xDEADBEEF)},
		vm.Inst(vm.OpHlt),
	}, []byte{1, 2, 3, 0, 5})

	data := Marshal(p)
	if len(data) != HeaderSize+6*InstructionSize+5 {
		t.Fatalf("encoded size = %d", len(data))
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Len() != p.Len() {
		t.Fatalf("Len = %d, want %d", got.Len(), p.Len())
	}
	for i := 0; i < p.Len(); i++ {
		if got.At(i) != p.At(i) {
			t.Errorf("instruction %d = %v, want %v", i, got.At(i), p.At(i))
		}
	}
	if !bytes.Equal(got.Memory(), p.Memory()) {
		t.Errorf("memory = %v, want %v", got.Memory(), p.Memory())
	}
	if !bytes.Equal(Marshal(got), data) {
		t.Error("re-encoding is not bit-exact")
	}
}

func TestMarshalLayout(t *testing.T) {
	p := vm.MustProgram([]vm.Instruction{vm.PushU64(0x0102030405060708)}, []byte{0xAA})
	data := Marshal(p)

	if string(data[:4]) != "LOVE" {
		t.Errorf("magic bytes = %q, want LOVE", data[:4])
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != Version {
		t.Errorf("version = %d", v)
	}
	if n := binary.LittleEndian.Uint64(data[6:]); n != 1 {
		t.Errorf("inst_count = %d", n)
	}
	if n := binary.LittleEndian.Uint64(data[14:]); n != 1 {
		t.Errorf("memory_size = %d", n)
	}
	rec := data[HeaderSize:]
	if op := binary.LittleEndian.Uint32(rec); op != uint32(vm.OpPush) {
		t.Errorf("opcode = %d", op)
	}
	if r := binary.LittleEndian.Uint32(rec[4:]); r != 0 {
		t.Errorf("reserved = %d", r)
	}
	if v := binary.LittleEndian.Uint64(rec[8:]); v != 0x0102030405060708 {
		t.Errorf("operand = %#x", v)
	}
	if data[len(data)-1] != 0xAA {
		t.Errorf("memory byte = %#x", data[len(data)-1])
	}
}

func TestEmptyProgramRoundTrip(t *testing.T) {
	got, err := Unmarshal(Marshal(vm.MustProgram(nil, nil)))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Len() != 0 || got.MemorySize() != 0 {
		t.Errorf("got %d instructions, %d bytes", got.Len(), got.MemorySize())
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.melf")
	p := vm.MustProgram([]vm.Instruction{vm.PushI64(1), vm.Inst(vm.OpHlt)}, nil)

	if err := WriteFile(path, p); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Len() != 2 || got.At(0) != vm.PushI64(1) {
		t.Errorf("got %v", got.Instructions())
	}
}

func TestEncodeMatchesMarshal(t *testing.T) {
	p := vm.MustProgram([]vm.Instruction{vm.Inst(vm.OpNop)}, []byte{9})
	var buf bytes.Buffer
	if err := Encode(&buf, p); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), Marshal(p)) {
		t.Error("Encode and Marshal disagree")
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *testMelfBuilder)
		want  error
	}{
		{
			name:  "empty",
			build: func(b *testMelfBuilder) {},
			want:  ErrTruncatedHeader,
		},
		{
			name: "short header",
			build: func(b *testMelfBuilder) {
				b.writeUint32(Magic)
				b.writeUint16(Version)
			},
			want: ErrTruncatedHeader,
		},
		{
			name: "bad magic",
			build: func(b *testMelfBuilder) {
				b.writeHeader(0x12345678, Version, 0, 0)
			},
			want: ErrInvalidMagic,
		},
		{
			name: "bad magic beats bad version",
			build: func(b *testMelfBuilder) {
				b.writeHeader(0, 99, 0, 0)
			},
			want: ErrInvalidMagic,
		},
		{
			name: "future version",
			build: func(b *testMelfBuilder) {
				b.writeHeader(Magic, Version+1, 0, 0)
			},
			want: ErrUnsupportedVersion,
		},
		{
			name: "too many instructions",
			build: func(b *testMelfBuilder) {
				b.writeHeader(Magic, Version, vm.ProgramCapacity+1, 0)
			},
			want: ErrProgramTooLarge,
		},
		{
			name: "memory too large",
			build: func(b *testMelfBuilder) {
				b.writeHeader(Magic, Version, 0, vm.MemoryCapacity+1)
			},
			want: ErrMemoryTooLarge,
		},
		{
			name: "truncated instructions",
			build: func(b *testMelfBuilder) {
				b.writeHeader(Magic, Version, 2, 0)
				b.writeInstruction(vm.OpNop, 0)
			},
			want: ErrTruncatedInstructions,
		},
		{
			name: "truncated memory",
			build: func(b *testMelfBuilder) {
				b.writeHeader(Magic, Version, 1, 4)
				b.writeInstruction(vm.OpHlt, 0)
				b.buf.Write([]byte{1, 2})
			},
			want: ErrTruncatedMemory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b testMelfBuilder
			tt.build(&b)
			_, err := Unmarshal(b.bytes())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeErrorsShareVMSentinels(t *testing.T) {
	var b testMelfBuilder
	b.writeHeader(Magic, Version, vm.ProgramCapacity+1, 0)
	_, err := Unmarshal(b.bytes())
	if !errors.Is(err, vm.ErrProgramTooLarge) {
		t.Errorf("error = %v, want vm.ErrProgramTooLarge", err)
	}
}

func TestDecodeIgnoresTrailingBytes(t *testing.T) {
	var b testMelfBuilder
	b.writeHeader(Magic, Version, 1, 1)
	b.writeInstruction(vm.OpHlt, 0)
	b.buf.WriteByte(7)
	b.buf.WriteString("trailing garbage")

	r := bytes.NewReader(b.bytes())
	p, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Len() != 1 || p.MemorySize() != 1 {
		t.Errorf("got %d instructions, %d bytes", p.Len(), p.MemorySize())
	}
	if r.Len() != len("trailing garbage") {
		t.Errorf("decoder consumed trailing bytes: %d left", r.Len())
	}
}

func TestDecodeIgnoresReservedField(t *testing.T) {
	var b testMelfBuilder
	b.writeHeader(Magic, Version, 1, 0)
	b.writeUint32(uint32(vm.OpPush))
	b.writeUint32(0xFFFFFFFF)
	b.writeUint64(5)

	p, err := Unmarshal(b.bytes())
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.At(0) != vm.PushU64(5) {
		t.Errorf("instruction = %v", p.At(0))
	}
}

func TestReadHeader(t *testing.T) {
	p := vm.MustProgram([]vm.Instruction{vm.Inst(vm.OpNop), vm.Inst(vm.OpHlt)}, make([]byte, 10))
	h, err := ReadHeader(bytes.NewReader(Marshal(p)))
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	want := Header{Magic: Magic, Version: Version, InstructionCount: 2, MemorySize: 10}
	if h != want {
		t.Errorf("header = %+v, want %+v", h, want)
	}
	if got := h.String(); got != "melf v1: 2 instructions, 10 bytes of memory" {
		t.Errorf("String() = %q", got)
	}
}

// ---------------------------------------------------------------------------
// Legacy translation
// ---------------------------------------------------------------------------

// legacyFile lays out a version 0 file as version 0 writers produced it:
// packed header, 16-byte records with uninitialised padding, then
// memorySize bytes copied from the start of the records.
func legacyFile(memorySize uint64, insts ...vm.Instruction) []byte {
	var records testMelfBuilder
	for _, inst := range insts {
		records.writeUint32(uint32(inst.Op))
		records.writeUint32(0xCCCCCCCC)
		records.writeUint64(inst.Operand.U64())
	}
	var b testMelfBuilder
	b.writeHeader(Magic, LegacyVersion, uint64(len(insts)), memorySize)
	b.buf.Write(records.bytes())
	b.buf.Write(records.bytes()[:memorySize])
	return b.bytes()
}

func legacyInst(op legacyOp, operand uint64) vm.Instruction {
	return vm.Instruction{Op: vm.Opcode(op), Operand: vm.WordU64(operand)}
}

func runLegacy(t *testing.T, data []byte) *vm.Machine {
	t.Helper()
	p, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	m := vm.NewMachine()
	m.Load(p)
	if trap := m.Run(1000); trap != vm.TrapOK {
		t.Fatalf("Run = %v at ip %d", trap, m.IP())
	}
	if !m.Halted() {
		t.Fatal("machine did not halt")
	}
	return m
}

func expectLegacyStack(t *testing.T, m *vm.Machine, want ...int64) {
	t.Helper()
	got := m.Stack().Values()
	if len(got) != len(want) {
		t.Fatalf("stack = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].I64() != want[i] {
			t.Errorf("stack[%d] = %d, want %d", i, got[i].I64(), want[i])
		}
	}
}

func TestDecodeLegacyPushHalt(t *testing.T) {
	data := legacyFile(0,
		legacyInst(legacyPush, 7),
		legacyInst(legacyHlt, 0),
	)
	m := runLegacy(t, data)
	expectLegacyStack(t, m, 7)
}

func TestDecodeLegacyMemoryBlock(t *testing.T) {
	data := legacyFile(20,
		legacyInst(legacyPush, 7),
		legacyInst(legacyHlt, 0),
	)
	p, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := data[HeaderSize : HeaderSize+20]
	if !bytes.Equal(p.Memory(), want) {
		t.Errorf("memory = %x, want %x", p.Memory(), want)
	}
}

func TestTranslateLegacyOpcodeNumbering(t *testing.T) {
	in := []vm.Instruction{
		legacyInst(legacyNop, 0),
		legacyInst(legacyPush, 5),
		legacyInst(legacyDivI, 0),
		legacyInst(legacyF2U, 0),
		legacyInst(legacyF2I, 0),
		legacyInst(legacyWrite64, 0),
		legacyInst(legacyPrintDebug, 0),
		legacyInst(legacyHlt, 0),
		legacyInst(200, 9),
	}
	want := []vm.Instruction{
		vm.Inst(vm.OpNop),
		vm.PushI64(5),
		vm.Inst(vm.OpDivI),
		vm.Inst(vm.OpF2U),
		vm.Inst(vm.OpF2I),
		vm.Inst(vm.OpWrite64),
		vm.Inst(vm.OpPrintDebug),
		vm.Inst(vm.OpHlt),
		{Op: vm.OpIllegal, Operand: vm.WordU64(9)},
	}
	got, err := TranslateLegacy(in)
	if err != nil {
		t.Fatalf("TranslateLegacy: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d instructions, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTranslateLegacyTargets(t *testing.T) {
	// 0: jmp 2
	// 1: native 4
	// 2: call 9 (past the end)
	// 3: hlt
	in := []vm.Instruction{
		legacyInst(legacyJmp, 2),
		legacyInst(legacyNative, 4),
		legacyInst(legacyCall, 9),
		legacyInst(legacyHlt, 0),
	}
	want := []vm.Instruction{
		vm.PushU64(4), vm.Inst(vm.OpJmp),
		vm.PushU64(4), vm.Inst(vm.OpNative),
		vm.PushU64(12), vm.Inst(vm.OpCall),
		vm.Inst(vm.OpHlt),
	}
	got, err := TranslateLegacy(in)
	if err != nil {
		t.Fatalf("TranslateLegacy: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d instructions, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("instruction %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecodeLegacyJmpIf(t *testing.T) {
	tests := []struct {
		name string
		cond uint64
		want []int64
	}{
		// Taken: the condition is popped before the jump.
		{"taken", 3, []int64{20}},
		// Not taken: the condition stays.
		{"not taken", 0, []int64{0, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := legacyFile(0,
				legacyInst(legacyPush, tt.cond), // 0
				legacyInst(legacyJmpIf, 4),      // 1
				legacyInst(legacyPush, 10),      // 2
				legacyInst(legacyHlt, 0),        // 3
				legacyInst(legacyPush, 20),      // 4
				legacyInst(legacyHlt, 0),        // 5
			)
			m := runLegacy(t, data)
			expectLegacyStack(t, m, tt.want...)
		})
	}
}

func TestDecodeLegacyCallReturn(t *testing.T) {
	// call pushes its own index; return resumes after it.
	data := legacyFile(0,
		legacyInst(legacyCall, 3),   // 0
		legacyInst(legacyHlt, 0),    // 1
		legacyInst(legacyNop, 0),    // 2
		legacyInst(legacyPush, 42),  // 3
		legacyInst(legacySwap, 0),   // 4
		legacyInst(legacyReturn, 0), // 5
	)
	m := runLegacy(t, data)
	expectLegacyStack(t, m, 42)
}

func TestDecodeLegacyDupSwapDepth(t *testing.T) {
	tests := []struct {
		name string
		inst vm.Instruction
		want []int64
	}{
		{"dup 0", legacyInst(legacyDup, 0), []int64{1, 2, 3, 3}},
		{"dup 2", legacyInst(legacyDup, 2), []int64{1, 2, 3, 1}},
		{"swap 0", legacyInst(legacySwap, 0), []int64{1, 3, 2}},
		{"swap 1", legacyInst(legacySwap, 1), []int64{2, 1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := legacyFile(0,
				legacyInst(legacyPush, 1),
				legacyInst(legacyPush, 2),
				legacyInst(legacyPush, 3),
				tt.inst,
				legacyInst(legacyHlt, 0),
			)
			m := runLegacy(t, data)
			expectLegacyStack(t, m, tt.want...)
		})
	}
}

func TestDecodeLegacyArithmeticShift(t *testing.T) {
	tests := []struct {
		x, n, want int64
	}{
		{-16, 2, -4},
		{16, 2, 4},
		{-1, 63, -1},
		{5, 0, 5},
		{-5, 0, -5},
	}
	for _, tt := range tests {
		data := legacyFile(0,
			legacyInst(legacyPush, uint64(tt.x)),
			legacyInst(legacyPush, uint64(tt.n)),
			legacyInst(legacyShr, 0),
			legacyInst(legacyHlt, 0),
		)
		m := runLegacy(t, data)
		expectLegacyStack(t, m, tt.want)
	}
}

func TestDecodeLegacyRejectsRotate(t *testing.T) {
	for _, op := range []legacyOp{legacyRotl, legacyRotr} {
		data := legacyFile(0,
			legacyInst(legacyPush, 1),
			legacyInst(legacyPush, 1),
			legacyInst(op, 0),
			legacyInst(legacyHlt, 0),
		)
		_, err := Unmarshal(data)
		if !errors.Is(err, ErrUnsupportedLegacyOpcode) {
			t.Errorf("op %d: err = %v, want ErrUnsupportedLegacyOpcode", op, err)
		}
	}
}
