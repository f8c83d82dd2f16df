// Package natives provides the standard host callbacks a program can reach
// through the native instruction.
//
// Natives are registered by name. The index each name receives depends on
// the order passed to Register, so hosts and program builders must agree on
// that order; lvm.toml records it in [run] natives.
package natives

import (
	"errors"
	"fmt"
	"sort"

	"github.com/chazu/lvm/vm"
)

var (
	ErrUnknownNative   = errors.New("unknown native")
	ErrDuplicateNative = errors.New("duplicate native")
	ErrTableFull       = errors.New("native table full")
)

var standard = map[string]vm.Native{
	"dump_stack": DumpStack,
	"print_i64":  PrintI64,
	"print_u64":  PrintU64,
	"print_f64":  PrintF64,
	"print_char": PrintChar,
	"halt":       Halt,
}

// Default is the registration order used when none is configured.
var Default = []string{"dump_stack", "print_i64", "print_u64", "print_f64", "print_char", "halt"}

// Names returns the names of all standard natives in sorted order.
func Names() []string {
	names := make([]string, 0, len(standard))
	for name := range standard {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the standard native called name.
func Lookup(name string) (vm.Native, bool) {
	fn, ok := standard[name]
	return fn, ok
}

// Check reports the first name that is unknown or repeated.
func Check(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := standard[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNative, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: %q", ErrDuplicateNative, name)
		}
		seen[name] = true
	}
	return nil
}

// Register adds the named natives to m in the given order and returns the
// index each one received. Nothing is registered if any name is rejected.
func Register(m *vm.Machine, names []string) (map[string]int, error) {
	if err := Check(names); err != nil {
		return nil, err
	}
	if free := vm.NativeCapacity - m.NativeCount(); len(names) > free {
		return nil, fmt.Errorf("%w: expected at most %d natives, got %d", ErrTableFull, free, len(names))
	}

	indices := make(map[string]int, len(names))
	for _, name := range names {
		indices[name] = m.RegisterNative(standard[name])
	}
	return indices, nil
}
