package kinds

import (
	"fmt"
	"sort"
)

// Factory constructs a fresh, unpopulated Runner.
type Factory func() Runner

var registry = map[string]Factory{}

// Register adds a kind factory under the given name.
// Panics on empty names, nil factories, and duplicates: registration runs
// at init, so any of these is a wiring bug.
func Register(name string, f Factory) {
	if name == "" {
		panic("kinds: Register with empty name")
	}
	if f == nil {
		panic(fmt.Sprintf("kinds: Register %q with nil factory", name))
	}
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("kinds: Register called twice for %q", name))
	}
	registry[name] = f
}

// New constructs a Runner for the named kind.
func New(name string) (Runner, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown kind %q (known: %v)", name, Names())
	}
	return f(), nil
}

// Names returns all registered kind names, sorted for deterministic output.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
