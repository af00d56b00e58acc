// Package account implements the per-account durable record of the
// execution core and its canonical codec. The process-wide total-supply
// scalar is kept by the statestore package, not here.
package account

import "sort"

// MistPerToken is the number of indivisible sub-units ("Mist") per token.
// No code in the module uses it; conservation arithmetic always operates
// directly in Mist.
const MistPerToken = 1_000_000_000

// State is the durable per-account record: balance, sequence number, and
// the set of module names published to this address. A freshly created
// account (the zero value) has balance 0, sequence 0, and no modules.
type State struct {
	Balance  uint64
	Sequence uint64
	Modules  map[string]struct{}
}

// New returns a freshly created, zero-valued account.
func New() State {
	return State{Modules: make(map[string]struct{})}
}

// HasModule reports whether name has already been published to this
// account.
func (s State) HasModule(name string) bool {
	if s.Modules == nil {
		return false
	}
	_, ok := s.Modules[name]
	return ok
}

// ModuleNames returns the account's published module names in sorted
// order, for deterministic serialization and RPC responses.
func (s State) ModuleNames() []string {
	names := make([]string, 0, len(s.Modules))
	for name := range s.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of s, so callers may mutate the result without
// aliasing the original's module set.
func (s State) Clone() State {
	c := State{Balance: s.Balance, Sequence: s.Sequence, Modules: make(map[string]struct{}, len(s.Modules))}
	for name := range s.Modules {
		c.Modules[name] = struct{}{}
	}
	return c
}
