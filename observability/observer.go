package observability

import (
	"context"

	"github.com/voixagent/voixagent/metrics"
)

// MetricsObserver forwards aggregator events to the OpenTelemetry voice
// instruments.
type MetricsObserver struct {
	vm *VoiceMetrics
}

// NewMetricsObserver returns an observer recording into vm.
func NewMetricsObserver(vm *VoiceMetrics) *MetricsObserver {
	return &MetricsObserver{vm: vm}
}

// Name implements metrics.Observer.
func (o *MetricsObserver) Name() string { return "otel" }

// Observe implements metrics.Observer.
func (o *MetricsObserver) Observe(ctx context.Context, e metrics.Event) error {
	o.vm.RecordEvent(ctx, e.Name)
	switch e.Name {
	case metrics.SessionStarted:
		o.vm.SessionStarted(ctx)
	case metrics.SessionEnded:
		o.vm.SessionEnded(ctx)
	case metrics.TotalLatency:
		o.vm.RecordTurn(ctx, "ok", e.Value)
	case metrics.TurnError:
		o.vm.RecordTurn(ctx, "error", e.Value)
	case metrics.PluginError:
		o.vm.RecordPluginError(ctx, e.Metadata[metrics.MetaPlugin])
	}
	return nil
}
