package policy

import (
	"fmt"
	"sync"
)

// Factory builds a policy instance from the parameters bound at
// route-construction time.
type Factory func(params ...any) (Policy, error)

// Registry maps stable policy identifiers to factories. Named checks
// are resolved through a registry once, when a route is constructed,
// into concrete Policy instances; no per-request lookup happens.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds a factory to a policy name, replacing any previous
// binding.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Check resolves a named policy with its bound parameters. An
// unregistered name is a configuration error.
func (r *Registry) Check(name string, params ...any) (Policy, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("policy: unknown policy %q", name)
	}
	p, err := factory(params...)
	if err != nil {
		return nil, fmt.Errorf("policy: building %q: %w", name, err)
	}
	return p, nil
}

// OptionalCheck resolves a named policy like Check, but an unresolvable
// target becomes the always-pass Identity instead of a configuration
// error. This is the escape hatch for deployments where the target
// policy is pluggable and may be absent.
func (r *Registry) OptionalCheck(name string, params ...any) Policy {
	p, err := r.Check(name, params...)
	if err != nil {
		return Identity
	}
	return p
}
