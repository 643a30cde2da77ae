package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/voixagent/voixagent/provider"
)

var _ provider.ContextStore[any] = (*TypedStore[any])(nil)

// TypedStore is a provider.ContextStore keeping JSON values in Redis, so
// conversation memory survives restarts and is shared between processes.
type TypedStore[C any] struct {
	client *Client
	prefix string
}

// NewTypedStore stores keys as "<prefix>:<key>", or bare when prefix is
// empty.
func NewTypedStore[C any](client *Client, prefix string) *TypedStore[C] {
	return &TypedStore[C]{client: client, prefix: prefix}
}

func (s *TypedStore[C]) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

// Load returns nil without error when key is absent or expired.
func (s *TypedStore[C]) Load(ctx context.Context, key string) (*C, error) {
	raw, err := s.client.rdb.Get(ctx, s.key(key)).Bytes()
	switch {
	case errors.Is(err, goredis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis load %s: %w", key, err)
	}
	v := new(C)
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("redis decode %s: %w", key, err)
	}
	return v, nil
}

// Save writes val; ttl 0 keeps it forever.
func (s *TypedStore[C]) Save(ctx context.Context, key string, val *C, ttl time.Duration) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	if err := s.client.rdb.Set(ctx, s.key(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis save %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *TypedStore[C]) Delete(ctx context.Context, key string) error {
	if err := s.client.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}
