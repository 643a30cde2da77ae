package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voixagent/voixagent/component"
	"github.com/voixagent/voixagent/provider"
)

func TestWatcherReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	store := NewStore(path)
	target := NewLayered(AgentConfig{})
	w := NewWatcher(store, target)

	if err := store.Save(AgentConfig{LLM: provider.Spec{Model: "gpt-4o"}}); err != nil {
		t.Fatal(err)
	}
	if err := w.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := target.Current().LLM.Model; got != "gpt-4o" {
		t.Fatalf("expected reloaded model, got %q", got)
	}

	bad := AgentConfig{LLM: provider.Spec{Temperature: provider.Float64(5)}}
	if err := store.Save(bad); err != nil {
		t.Fatal(err)
	}
	if err := w.Reload(); err == nil {
		t.Fatal("expected invalid document to be rejected")
	}
	if got := target.Current(); got.LLM.Model != "gpt-4o" || got.LLM.TemperatureOr(0) != 0.7 {
		t.Errorf("previous document should be kept, got %+v", got.LLM)
	}
}

func TestWatcherPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	store := NewStore(path)
	target := NewLayered(AgentConfig{})
	w := NewWatcher(store, target)
	w.debounce = 10 * time.Millisecond

	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = w.Stop(ctx) }()

	if h := w.Health(ctx); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy watcher, got %+v", h)
	}

	if err := store.SetProvider(provider.Synthesis, provider.Spec{Voice: "shimmer"}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if target.Current().TTS.Voice == "shimmer" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("watcher did not apply the change, voice=%q", target.Current().TTS.Voice)
}

func TestWatcherHealthWhenStopped(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(NewStore(filepath.Join(dir, "agent.yaml")), NewLayered(AgentConfig{}))
	ctx := context.Background()
	if h := w.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %+v", h)
	}
	if err := w.Stop(ctx); err != nil {
		t.Errorf("stop before start should be a no-op: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "agent.yaml"), []byte("llm: {provider: BAD}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop(ctx) }()
	if h := w.Health(ctx); h.Status != component.StatusDegraded {
		t.Errorf("expected degraded after rejected document, got %+v", h)
	}
}
