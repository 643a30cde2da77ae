package provider

import (
	"context"
	"time"

	"github.com/voixagent/voixagent/logger"
)

// WithLogging returns a Middleware that logs each Execute call with the
// capability, provider name, duration and outcome.
func WithLogging[I, O any](log *logger.Logger, capability Capability) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &loggingRR[I, O]{inner: inner, log: log, capability: capability}
	}
}

type loggingRR[I, O any] struct {
	inner      RequestResponse[I, O]
	log        *logger.Logger
	capability Capability
}

func (l *loggingRR[I, O]) Name() string                         { return l.inner.Name() }
func (l *loggingRR[I, O]) IsAvailable(ctx context.Context) bool { return l.inner.IsAvailable(ctx) }
func (l *loggingRR[I, O]) Close(ctx context.Context) error      { return CloseAll(ctx, l.inner) }

func (l *loggingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := l.inner.Execute(ctx, input)

	fields := logger.DurationFields("execute", time.Since(start))
	fields[logger.FieldCapability] = string(l.capability)
	fields[logger.FieldProvider] = l.inner.Name()

	log := l.log.WithContext(ctx)
	if err != nil {
		log.Error("provider call failed", logger.MergeWithError(fields, err))
	} else {
		log.Debug("provider call ok", fields)
	}

	return output, err
}
