package vm

// StackCapacity is the number of Words the operand stack can hold.
const StackCapacity = 1024

// Stack is the bounded operand stack. Index 0 is the bottom.
// A failing operation leaves the stack unchanged.
type Stack struct {
	items [StackCapacity]Word
	size  int
}

// Size returns the number of Words on the stack.
func (s *Stack) Size() int {
	return s.size
}

// Reset empties the stack.
func (s *Stack) Reset() {
	s.size = 0
}

// need checks that down Words can be removed and up Words added.
func (s *Stack) need(down, up int) Trap {
	if s.size < down {
		return TrapStackUnderflow
	}
	if s.size-down+up > StackCapacity {
		return TrapStackOverflow
	}
	return TrapOK
}

// Push appends w.
func (s *Stack) Push(w Word) Trap {
	if t := s.need(0, 1); t != TrapOK {
		return t
	}
	s.items[s.size] = w
	s.size++
	return TrapOK
}

// Pop removes and returns the top Word.
func (s *Stack) Pop() (Word, Trap) {
	if t := s.need(1, 0); t != TrapOK {
		return 0, t
	}
	s.size--
	return s.items[s.size], TrapOK
}

// Peek returns the top Word without removing it.
func (s *Stack) Peek() (Word, Trap) {
	if t := s.need(1, 0); t != TrapOK {
		return 0, t
	}
	return s.items[s.size-1], TrapOK
}

// Swap exchanges the top Word with the one k+1 positions below it.
// It needs at least 2+k Words.
func (s *Stack) Swap(k uint64) Trap {
	if s.size < 2 || k > uint64(s.size-2) {
		return TrapStackUnderflow
	}
	top := s.size - 1
	other := top - 1 - int(k)
	s.items[top], s.items[other] = s.items[other], s.items[top]
	return TrapOK
}

// Values returns a copy of the stack contents, bottom first.
func (s *Stack) Values() []Word {
	out := make([]Word, s.size)
	copy(out, s.items[:s.size])
	return out
}

// load replaces the stack contents. len(ws) must not exceed StackCapacity.
func (s *Stack) load(ws []Word) {
	s.size = copy(s.items[:], ws)
}
