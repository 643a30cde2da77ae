package provider

import (
	"context"
	"sync"
	"time"
)

var _ ContextStore[any] = (*MemoryStore[any])(nil)

// MemoryStore is a process-local ContextStore. It keeps shallow copies, so
// a caller reassigning fields of a loaded value does not change what the
// next Load sees; slices and maps inside C are still shared.
type MemoryStore[C any] struct {
	now func() time.Time

	mu      sync.Mutex
	values  map[string]C
	expires map[string]time.Time
}

func NewMemoryStore[C any]() *MemoryStore[C] {
	return &MemoryStore[C]{
		now:     time.Now,
		values:  map[string]C{},
		expires: map[string]time.Time{},
	}
}

// WithClock replaces time.Now for expiry decisions.
func (s *MemoryStore[C]) WithClock(now func() time.Time) *MemoryStore[C] {
	s.now = now
	return s
}

// Load returns nil for a missing or expired key; an expired key is dropped.
func (s *MemoryStore[C]) Load(_ context.Context, key string) (*C, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	if at, ok := s.expires[key]; ok && s.now().After(at) {
		s.drop(key)
		return nil, nil
	}
	return &v, nil
}

// Save stores a copy of *val. A ttl of zero keeps it until Delete.
func (s *MemoryStore[C]) Save(_ context.Context, key string, val *C, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = *val
	if ttl > 0 {
		s.expires[key] = s.now().Add(ttl)
	} else {
		delete(s.expires, key)
	}
	return nil
}

func (s *MemoryStore[C]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	s.drop(key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore[C]) drop(key string) {
	delete(s.values, key)
	delete(s.expires, key)
}
