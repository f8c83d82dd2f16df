package vm

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// SnapshotVersion is the current snapshot encoding version.
const SnapshotVersion = 1

var ErrSnapshotMismatch = errors.New("snapshot does not match machine")

// Snapshot is the complete runtime state of a Machine apart from its natives
// and program. Memory holds only the prefix up to the last nonzero byte.
type Snapshot struct {
	Version    int      `cbor:"1,keyasint"`
	ProgramLen int      `cbor:"2,keyasint"`
	IP         uint64   `cbor:"3,keyasint"`
	Halted     bool     `cbor:"4,keyasint"`
	Stack      []uint64 `cbor:"5,keyasint,omitempty"`
	Memory     []byte   `cbor:"6,keyasint,omitempty"`
}

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// Snapshot captures the machine state.
func (m *Machine) Snapshot() *Snapshot {
	s := &Snapshot{
		Version: SnapshotVersion,
		IP:      m.ip,
		Halted:  m.halted,
		Memory:  append([]byte(nil), m.memory.used()...),
	}
	if m.program != nil {
		s.ProgramLen = m.program.Len()
	}
	for _, w := range m.stack.items[:m.stack.size] {
		s.Stack = append(s.Stack, w.U64())
	}
	return s
}

// Restore replaces the machine state with s. The loaded program must have
// the same length as the one the snapshot was taken with.
func (m *Machine) Restore(s *Snapshot) error {
	if s.Version > SnapshotVersion {
		return fmt.Errorf("%w: version %d is newer than supported version %d",
			ErrSnapshotMismatch, s.Version, SnapshotVersion)
	}
	progLen := 0
	if m.program != nil {
		progLen = m.program.Len()
	}
	if s.ProgramLen != progLen {
		return fmt.Errorf("%w: expected program of %d instructions, got %d",
			ErrSnapshotMismatch, progLen, s.ProgramLen)
	}
	if len(s.Stack) > StackCapacity {
		return fmt.Errorf("%w: expected at most %d stack entries, got %d",
			ErrSnapshotMismatch, StackCapacity, len(s.Stack))
	}
	if len(s.Memory) > MemoryCapacity {
		return fmt.Errorf("%w: expected at most %d bytes of memory, got %d",
			ErrSnapshotMismatch, MemoryCapacity, len(s.Memory))
	}

	words := make([]Word, len(s.Stack))
	for i, v := range s.Stack {
		words[i] = WordU64(v)
	}
	m.stack.load(words)
	m.memory.Reset(s.Memory)
	m.ip = s.IP
	m.halted = s.Halted
	return nil
}

// MarshalSnapshot serializes a Snapshot to canonical CBOR.
func MarshalSnapshot(s *Snapshot) ([]byte, error) {
	return snapshotEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("vm: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
