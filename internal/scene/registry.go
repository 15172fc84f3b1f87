package scene

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a fresh capability instance with default state.
type Constructor func() Capability

// UnknownCapabilityError is returned when a recorded type name can no longer
// be resolved, typically because the plugin that provided it was removed.
type UnknownCapabilityError struct {
	TypeName string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("unknown capability type %q", e.TypeName)
}

// Registry maps stable capability type names to constructors. It is
// populated once at startup; lookups of unregistered names fail with a
// typed error rather than a nil capability.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// DefaultRegistry returns a registry with the built-in capability types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("Surface", func() Capability { return NewSurface() })
	r.Register("Body", func() Capability { return NewBody() })
	r.Register("ScriptRef", func() Capability { return NewScriptRef() })
	return r
}

// Register adds a constructor under a stable type name.
func (r *Registry) Register(typeName string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[typeName] = ctor
}

// New instantiates a capability by type name.
func (r *Registry) New(typeName string) (Capability, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownCapabilityError{TypeName: typeName}
	}
	return ctor(), nil
}

// TypeNames returns the registered type names, sorted.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
