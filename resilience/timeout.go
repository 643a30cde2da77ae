package resilience

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/voixagent/voixagent/errors"
)

// WithTimeout runs fn under a deadline of d. A deadline hit inside fn is
// reported as a TIMEOUT AppError naming op. A zero d runs fn without a
// deadline.
func WithTimeout[T any](ctx context.Context, d time.Duration, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	result, err := fn(callCtx)
	if err != nil && ctx.Err() == nil && stderrors.Is(callCtx.Err(), context.DeadlineExceeded) {
		var zero T
		return zero, errors.Timeout(op).WithCause(err).WithDetail("timeout_ms", d.Milliseconds())
	}
	return result, err
}
