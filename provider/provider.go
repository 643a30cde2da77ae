package provider

import "context"

// Provider is the base interface all capability backends implement.
type Provider interface {
	// Name returns the provider's registered name.
	Name() string
	// IsAvailable reports whether the provider is ready to handle requests.
	IsAvailable(ctx context.Context) bool
}

// Factory creates a provider instance from a resolved Spec.
type Factory[T Provider] func(spec Spec) (T, error)
