package provider

import (
	"context"
	"time"

	"github.com/voixagent/voixagent/observability"
)

// WithMetrics returns a Middleware that records call counts and latency on
// the voice instruments.
func WithMetrics[I, O any](metrics *observability.VoiceMetrics, capability Capability) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &metricsRR[I, O]{inner: inner, metrics: metrics, capability: capability}
	}
}

type metricsRR[I, O any] struct {
	inner      RequestResponse[I, O]
	metrics    *observability.VoiceMetrics
	capability Capability
}

func (m *metricsRR[I, O]) Name() string                         { return m.inner.Name() }
func (m *metricsRR[I, O]) IsAvailable(ctx context.Context) bool { return m.inner.IsAvailable(ctx) }
func (m *metricsRR[I, O]) Close(ctx context.Context) error      { return CloseAll(ctx, m.inner) }

func (m *metricsRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := m.inner.Execute(ctx, input)

	status := "ok"
	if err != nil {
		status = "error"
	}
	m.metrics.RecordCapabilityCall(ctx, string(m.capability), m.inner.Name(), status, time.Since(start))

	return output, err
}
