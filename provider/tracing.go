package provider

import (
	"context"

	"github.com/voixagent/voixagent/observability"
)

// WithTracing returns a Middleware that creates an OpenTelemetry span named
// "{capability}.{provider}" around each Execute call.
func WithTracing[I, O any](capability Capability) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &tracingRR[I, O]{inner: inner, capability: capability}
	}
}

type tracingRR[I, O any] struct {
	inner      RequestResponse[I, O]
	capability Capability
}

func (t *tracingRR[I, O]) Name() string                         { return t.inner.Name() }
func (t *tracingRR[I, O]) IsAvailable(ctx context.Context) bool { return t.inner.IsAvailable(ctx) }
func (t *tracingRR[I, O]) Close(ctx context.Context) error      { return CloseAll(ctx, t.inner) }

func (t *tracingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	ctx, span := observability.StartCall(ctx, string(t.capability), t.inner.Name())
	output, err := t.inner.Execute(ctx, input)
	observability.EndCall(span, err)
	return output, err
}
