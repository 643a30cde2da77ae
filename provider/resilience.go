package provider

import (
	"context"
	"time"

	"github.com/voixagent/voixagent/resilience"
)

// ResilienceConfig bundles optional call policies for a provider.
// Zero values are skipped.
type ResilienceConfig struct {
	// Timeout bounds each individual attempt.
	Timeout time.Duration
	// Retry retries retryable failures with exponential backoff.
	Retry *resilience.RetryConfig
	// CircuitBreaker is shared across calls and stops them after repeated
	// failures. It wraps the whole retry loop.
	CircuitBreaker *resilience.CircuitBreaker
}

// IsEmpty returns true if no policy is configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.Timeout <= 0 && c.Retry == nil && c.CircuitBreaker == nil
}

// WithResilience returns a Middleware applying, from the outside in, the
// circuit breaker, the retry loop and the per-attempt timeout.
func WithResilience[I, O any](cfg ResilienceConfig) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		if cfg.IsEmpty() {
			return inner
		}
		return &resilientRR[I, O]{inner: inner, cfg: cfg}
	}
}

type resilientRR[I, O any] struct {
	inner RequestResponse[I, O]
	cfg   ResilienceConfig
}

func (r *resilientRR[I, O]) Name() string { return r.inner.Name() }
func (r *resilientRR[I, O]) IsAvailable(ctx context.Context) bool {
	if r.cfg.CircuitBreaker != nil && r.cfg.CircuitBreaker.State() == resilience.StateOpen {
		return false
	}
	return r.inner.IsAvailable(ctx)
}
func (r *resilientRR[I, O]) Close(ctx context.Context) error { return CloseAll(ctx, r.inner) }

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	attempt := func() (O, error) {
		return resilience.WithTimeout(ctx, r.cfg.Timeout, r.inner.Name(), func(ctx context.Context) (O, error) {
			return r.inner.Execute(ctx, input)
		})
	}

	call := attempt
	if r.cfg.Retry != nil {
		call = func() (O, error) {
			return resilience.Retry(ctx, *r.cfg.Retry, attempt)
		}
	}

	if r.cfg.CircuitBreaker != nil {
		return resilience.Call(r.cfg.CircuitBreaker, call)
	}
	return call()
}
