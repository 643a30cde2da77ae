package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/voixagent/voixagent/errors"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	// Jitter spreads each delay by up to this fraction either way.
	Jitter float64
	// RetryIf defaults to errors.IsRetryable.
	RetryIf func(error) bool
	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryConfig is the capability call policy: two retries, 200ms
// doubling up to 2s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        errors.IsRetryable,
	}
}

// WithRetries returns a copy of cfg allowing retries calls after the first.
func (cfg RetryConfig) WithRetries(retries int) RetryConfig {
	cfg.MaxAttempts = max(retries, 0) + 1
	return cfg
}

func (cfg RetryConfig) normalized() RetryConfig {
	cfg.MaxAttempts = max(cfg.MaxAttempts, 1)
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 10 * time.Second
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = errors.IsRetryable
	}
	return cfg
}

// Retry calls fn until it succeeds, RetryIf rejects the error, attempts run
// out or ctx is done. After the first call the last error from fn is
// returned, never the context error.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.normalized()
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	for attempt := 1; ; attempt++ {
		out, err := fn()
		if err == nil {
			return out, nil
		}
		if attempt >= cfg.MaxAttempts || !cfg.RetryIf(err) {
			return zero, err
		}

		wait := backoff(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, wait)
		}
		if !sleep(ctx, wait) {
			return zero, err
		}
	}
}

// RetryFunc is Retry for calls without a result.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

// backoff is InitialBackoff * BackoffFactor^(attempt-1), jittered and capped
// at MaxBackoff.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if cfg.Jitter > 0 {
		d *= 1 + cfg.Jitter*(2*rand.Float64()-1)
	}
	d = min(d, float64(cfg.MaxBackoff))
	if d <= 0 {
		return cfg.InitialBackoff
	}
	return time.Duration(d)
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
