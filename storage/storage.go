package storage

import (
	"context"
	"fmt"
	"io"
)

// Storage is the object store a snapshot is written to.
type Storage interface {
	// Upload replaces the object at key with the contents of r.
	Upload(ctx context.Context, key string, r io.Reader, contentType string) error

	// Download returns the object at key. The caller closes the reader.
	// A missing object is a NotFound error.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// New builds the backend selected by cfg.Provider.
func New(ctx context.Context, cfg Config) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderLocal:
		return NewLocal(cfg.BasePath), nil
	case ProviderS3:
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unsupported provider %q", cfg.Provider)
	}
}
