package provider

import (
	"fmt"
	"sort"
	"sync"

	"github.com/voixagent/voixagent/errors"
)

// Registration describes one named provider constructor.
type Registration[T Provider] struct {
	Name    string
	Factory Factory[T]
	// CredentialEnv is the variable consulted when a spec has neither an
	// api_key nor a credential_ref. Empty means no credential is required.
	CredentialEnv string
	// ExtraKeys lists the extra parameters the provider understands.
	ExtraKeys []string
	// Builtin marks providers that run in-process and always validate.
	Builtin bool
}

// Registry manages named provider registrations for one capability.
type Registry[T Provider] struct {
	mu         sync.RWMutex
	capability Capability
	entries    map[string]Registration[T]
}

// NewRegistry creates a new empty Registry for a capability.
func NewRegistry[T Provider](capability Capability) *Registry[T] {
	return &Registry[T]{
		capability: capability,
		entries:    make(map[string]Registration[T]),
	}
}

// Capability returns the capability this registry serves.
func (r *Registry[T]) Capability() Capability { return r.capability }

// Register adds a registration, replacing any previous entry with the same name.
func (r *Registry[T]) Register(reg Registration[T]) error {
	if reg.Name == "" {
		return fmt.Errorf("%s provider registration has no name", r.capability)
	}
	if reg.Factory == nil {
		return fmt.Errorf("%s provider %q registered without a factory", r.capability, reg.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[reg.Name] = reg
	return nil
}

// RegisterFactory registers a factory that needs no credential.
func (r *Registry[T]) RegisterFactory(name string, factory Factory[T]) error {
	return r.Register(Registration[T]{Name: name, Factory: factory})
}

// Lookup returns the registration for name.
func (r *Registry[T]) Lookup(name string) (Registration[T], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg, ok
}

// Has reports whether name is registered.
func (r *Registry[T]) Has(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Create instantiates the provider registered under spec.Provider.
func (r *Registry[T]) Create(spec Spec) (T, error) {
	reg, ok := r.Lookup(spec.Provider)
	if !ok {
		var zero T
		return zero, errors.UnsupportedProvider(string(r.capability), spec.Provider)
	}
	return reg.Factory(spec)
}

// List returns sorted names of all registrations.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
