package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/voixagent/voixagent/logger"
)

// DefaultStopTimeout bounds each component's Stop call.
const DefaultStopTimeout = 10 * time.Second

// Registry starts components in registration order and stops them in
// reverse, so dependencies must be registered first. Registering after
// StartAll is allowed; the next StartAll starts only the newcomers.
type Registry struct {
	stopTimeout time.Duration
	log         *logger.Logger

	mu      sync.RWMutex
	members []Component
	running map[string]bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithStopTimeout overrides DefaultStopTimeout.
func WithStopTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.stopTimeout = d
		}
	}
}

// WithLogger sets the lifecycle logger.
func WithLogger(log *logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		stopTimeout: DefaultStopTimeout,
		log:         logger.Get("component"),
		running:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := c.Name()
	for _, m := range r.members {
		if m.Name() == name {
			return fmt.Errorf("component %s already registered", name)
		}
	}
	r.members = append(r.members, c)
	r.log.Debug("component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts every component not yet running. It stops at the first
// failure; what was started stays running until StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.members {
		name := c.Name()
		if r.running[name] {
			continue
		}
		if err := c.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		r.running[name] = true
		r.log.Info("component started", logger.Fields(logger.FieldComponent, name))
	}
	return nil
}

// StopAll stops running components newest first, each within the stop
// timeout, and joins their errors.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for i := len(r.members) - 1; i >= 0; i-- {
		c := r.members[i]
		name := c.Name()
		if !r.running[name] {
			continue
		}
		delete(r.running, name)
		if err := r.stopOne(ctx, c); err != nil {
			r.log.Error("component stop failed", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			continue
		}
		r.log.Debug("component stopped", logger.Fields(logger.FieldComponent, name))
	}
	return stderrors.Join(errs...)
}

func (r *Registry) stopOne(ctx context.Context, c Component) error {
	ctx, cancel := context.WithTimeout(ctx, r.stopTimeout)
	defer cancel()
	return c.Stop(ctx)
}

// HealthAll reports every component in registration order. An empty Name in
// a report is filled with the component's name.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	members := r.All()
	out := make([]Health, len(members))
	for i, c := range members {
		out[i] = c.Health(ctx)
		if out[i].Name == "" {
			out[i].Name = c.Name()
		}
	}
	return out
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Component(nil), r.members...)
}
