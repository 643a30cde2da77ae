package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/voixagent/voixagent/metrics"
)

const contentTypeJSON = "application/json"

// SnapshotPublisher mirrors the aggregator's snapshot document into a
// Storage backend under a fixed key.
type SnapshotPublisher struct {
	store Storage
	key   string
}

// NewSnapshotPublisher creates a publisher writing to key.
func NewSnapshotPublisher(store Storage, key string) *SnapshotPublisher {
	if key == "" {
		key = DefaultKey
	}
	return &SnapshotPublisher{store: store, key: key}
}

// Name implements metrics.Publisher.
func (p *SnapshotPublisher) Name() string { return "storage:" + p.key }

// Publish implements metrics.Publisher.
func (p *SnapshotPublisher) Publish(ctx context.Context, doc []byte) error {
	return p.store.Upload(ctx, p.key, bytes.NewReader(doc), contentTypeJSON)
}

// LoadSnapshot reads a snapshot document previously published to key.
func LoadSnapshot(ctx context.Context, store Storage, key string) (*metrics.Snapshot, error) {
	rc, err := store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var s metrics.Snapshot
	if err := json.NewDecoder(rc).Decode(&s); err != nil {
		return nil, fmt.Errorf("storage: decode snapshot %s: %w", key, err)
	}
	return &s, nil
}

var _ metrics.Publisher = (*SnapshotPublisher)(nil)
