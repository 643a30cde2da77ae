package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/voixagent/voixagent/component"
	"github.com/voixagent/voixagent/logger"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher reloads the agent document into a Layered source whenever the file
// changes on disk. It watches the parent directory so atomic renames are seen.
type Watcher struct {
	store    *Store
	target   *Layered
	log      *logger.Logger
	debounce time.Duration

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	done    chan struct{}
	lastErr error
}

// NewWatcher creates a Watcher feeding target from store.
func NewWatcher(store *Store, target *Layered) *Watcher {
	return &Watcher{
		store:    store,
		target:   target,
		log:      logger.Get("config"),
		debounce: defaultDebounce,
	}
}

// Name implements component.Component.
func (w *Watcher) Name() string { return "agent-config-watcher" }

// Reload reads the document and swaps it into the target when the effective
// configuration validates. An invalid document keeps the previous one.
func (w *Watcher) Reload() error {
	doc, err := w.store.Load()
	if err == nil {
		err = w.target.Base().Merge(doc).Validate()
	}

	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		w.log.Warn("agent document rejected, keeping previous", logger.Fields(
			"path", w.store.Path(), logger.FieldError, err.Error(),
		))
		return err
	}
	w.target.SetDocument(doc)
	w.log.Info("agent document loaded", logger.Fields("path", w.store.Path()))
	return nil
}

// Start loads the document once and begins watching it.
func (w *Watcher) Start(ctx context.Context) error {
	_ = w.Reload()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(w.store.Path())
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return err
	}

	w.mu.Lock()
	w.fsw = fsw
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.loop(fsw, w.done)
	return nil
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	target := filepath.Clean(w.store.Path())
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				if timer != nil {
					timer.Stop()
				}
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			_ = w.Reload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("agent document watch error", logger.Fields(logger.FieldError, err.Error()))
		}
	}
}

// Stop ends the watch loop.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	fsw, done := w.fsw, w.done
	w.fsw = nil
	w.mu.Unlock()

	if fsw == nil {
		return nil
	}
	err := fsw.Close()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// Health reports degraded while the last reload was rejected.
func (w *Watcher) Health(ctx context.Context) component.Health {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := component.Health{Name: w.Name(), Status: component.StatusHealthy}
	if w.fsw == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "not watching"
	} else if w.lastErr != nil {
		h.Status = component.StatusDegraded
		h.Message = w.lastErr.Error()
	}
	return h
}

var _ component.Component = (*Watcher)(nil)
