package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/plugin"
	"github.com/voixagent/voixagent/plugin/builtin"
)

// newTestClient creates a Client backed by miniredis.
func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mini, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mini.Close)

	client, err := New(Config{Enabled: true, Addr: mini.Addr()})
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mini
}

type testState struct {
	Count int      `json:"count"`
	Tags  []string `json:"tags,omitempty"`
}

func TestTypedStore_SaveAndLoad(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[testState](client, "test")
	ctx := context.Background()

	state := testState{Count: 5, Tags: []string{"a", "b"}}
	if err := store.Save(ctx, "k1", &state, 0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Load(ctx, "k1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got == nil || got.Count != 5 || len(got.Tags) != 2 {
		t.Fatalf("expected Count=5, Tags=2, got %+v", got)
	}
}

func TestTypedStore_Missing(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewTypedStore[testState](client, "test")
	ctx := context.Background()

	got, err := store.Load(ctx, "nonexistent")
	if err != nil || got != nil {
		t.Fatalf("Load missing = %+v, %v", got, err)
	}

	state := testState{Count: 1}
	_ = store.Save(ctx, "k1", &state, 0)
	if err := store.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got, _ := store.Load(ctx, "k1"); got != nil {
		t.Fatalf("expected nil after delete, got %+v", got)
	}
}

func TestTypedStore_TTL(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[testState](client, "test")
	ctx := context.Background()

	state := testState{Count: 1}
	if err := store.Save(ctx, "k1", &state, 2*time.Second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if got, err := store.Load(ctx, "k1"); err != nil || got == nil {
		t.Fatalf("expected value before TTL, got %v, err %v", got, err)
	}

	mini.FastForward(3 * time.Second)

	got, err := store.Load(ctx, "k1")
	if err != nil {
		t.Fatalf("Load after TTL failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil after TTL expiration, got %+v", got)
	}
}

func TestTypedStore_Keys(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"prefixed", "myprefix", "myprefix:k1"},
		{"bare", "", "k1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mini := newTestClient(t)
			store := NewTypedStore[testState](client, tt.prefix)
			state := testState{Count: 42}
			if err := store.Save(context.Background(), "k1", &state, 0); err != nil {
				t.Fatal(err)
			}
			raw, err := mini.Get(tt.want)
			if err != nil || raw == "" {
				t.Fatalf("key %q not stored: %v", tt.want, err)
			}
		})
	}
}

func TestTypedStore_CorruptValue(t *testing.T) {
	client, mini := newTestClient(t)
	store := NewTypedStore[testState](client, "test")
	_ = mini.Set("test:bad", "{not json")

	if _, err := store.Load(context.Background(), "bad"); err == nil {
		t.Fatal("expected an unmarshal error")
	}
}

func TestConversationMemoryAcrossProcesses(t *testing.T) {
	client, mini := newTestClient(t)
	ctx := context.Background()
	now := func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	// Two plugin instances over separate stores model two agent processes
	// sharing one Redis.
	first := builtin.NewMemory(plugin.Config{"retention": "1h"}, NewTypedStore[builtin.History](client, "voixagent"), now)
	second := builtin.NewMemory(plugin.Config{"retention": "1h"}, NewTypedStore[builtin.History](client, "voixagent"), now)

	for _, msg := range []string{"hello there", "tell me about weather"} {
		if _, err := first.Process(ctx, msg, plugin.NewTurnContext("s1", "room", "t")); err != nil {
			t.Fatal(err)
		}
	}
	tc := plugin.NewTurnContext("s1", "room", "t3")
	if _, err := second.Process(ctx, "and tomorrow", tc); err != nil {
		t.Fatal(err)
	}
	recent, ok := tc[plugin.KeyHistory].([]builtin.Entry)
	if !ok || len(recent) != 3 || recent[0].Message != "hello there" {
		t.Fatalf("history = %#v", tc[plugin.KeyHistory])
	}

	raw, err := mini.Get("voixagent:memory:s1")
	if err != nil {
		t.Fatalf("memory key missing: %v", err)
	}
	var stored builtin.History
	if err := json.Unmarshal([]byte(raw), &stored); err != nil || len(stored.Entries) != 3 {
		t.Fatalf("stored = %s (%v)", raw, err)
	}
	if ttl := mini.TTL("voixagent:memory:s1"); ttl != time.Hour {
		t.Errorf("ttl = %s, want 1h", ttl)
	}
}

func TestComponentLifecycle(t *testing.T) {
	mini := miniredis.RunT(t)
	c := NewComponent(Config{Enabled: true, Addr: mini.Addr()}, logger.Nop())
	ctx := context.Background()

	if h := c.Health(ctx); h.Status != "unhealthy" {
		t.Errorf("health before start = %+v", h)
	}
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if h := c.Health(ctx); h.Status != "healthy" {
		t.Errorf("health = %+v", h)
	}
	if !c.Client().IsAvailable(ctx) {
		t.Error("client should be available")
	}
	if d := c.Describe(); d.Details != mini.Addr()+" db=0 prefix=voixagent" {
		t.Errorf("details = %q", d.Details)
	}
	if err := c.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Client().IsAvailable(ctx) {
		t.Error("closed client reported available")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled skips checks", Config{DialTimeout: -time.Second}, false},
		{"defaults", Config{Enabled: true}, false},
		{"negative timeout", Config{Enabled: true, ReadTimeout: -time.Second}, true},
		{"negative db", Config{Enabled: true, DB: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg.Enabled {
				cfg.ApplyDefaults()
			}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestComponentStartUnreachable(t *testing.T) {
	c := NewComponent(Config{Enabled: true, Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond}, logger.Nop())
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected start to fail without a server")
	}
	if c.Client() != nil {
		t.Error("client kept after failed start")
	}
	if h := c.Health(context.Background()); h.Message != "not started" {
		t.Errorf("health = %+v", h)
	}
}
