package provider

import (
	"context"
	"time"
)

// ContextStore provides typed state persistence shared across sessions, such
// as conversation memory keyed by session id. The in-memory implementation
// lives here; redis.TypedStore is the networked one.
//
// TTL of 0 means no expiration.
type ContextStore[C any] interface {
	// Load retrieves state. Returns (nil, nil) if key doesn't exist.
	Load(ctx context.Context, key string) (*C, error)
	// Save persists state with optional TTL.
	Save(ctx context.Context, key string, val *C, ttl time.Duration) error
	// Delete removes state.
	Delete(ctx context.Context, key string) error
}
