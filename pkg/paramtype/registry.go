// SPDX-License-Identifier: MPL-2.0

package paramtype

import (
	"sync"

	"github.com/provisio/provisio/pkg/fperr"
)

// Registry maps parameter type names to types. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry returns a registry holding the given types.
func NewRegistry(types ...Type) *Registry {
	r := &Registry{types: make(map[string]Type, len(types))}
	for _, t := range types {
		r.types[t.Name()] = t
	}
	return r
}

// DefaultRegistry returns a registry with the built-in types.
func DefaultRegistry() *Registry {
	return NewRegistry(String(), Boolean(), Int(), List(), Set(), Map())
}

// Register adds or replaces a type.
func (r *Registry) Register(t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Name()] = t
}

// Lookup returns the named type. An empty name is the string type.
func (r *Registry) Lookup(name string) (Type, error) {
	if name == "" {
		name = StringName
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return nil, fperr.Descriptionf("unknown parameter type %q", name)
	}
	return t, nil
}
