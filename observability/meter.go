package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// VoiceMetrics holds the instruments recorded by sessions and capability calls.
type VoiceMetrics struct {
	capabilityCalls    metric.Int64Counter
	capabilityDuration metric.Float64Histogram
	turnDuration       metric.Float64Histogram
	sessionsActive     metric.Int64UpDownCounter
	pluginErrors       metric.Int64Counter
	events             metric.Int64Counter
}

// NewVoiceMetrics creates the voice instruments on the given meter.
func NewVoiceMetrics(meter metric.Meter) (*VoiceMetrics, error) {
	capabilityCalls, err := meter.Int64Counter("voice.capability.calls",
		metric.WithDescription("Capability provider calls by capability, provider and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voice.capability.calls counter: %w", err)
	}

	capabilityDuration, err := meter.Float64Histogram("voice.capability.duration",
		metric.WithDescription("Capability provider call latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voice.capability.duration histogram: %w", err)
	}

	turnDuration, err := meter.Float64Histogram("voice.turn.duration",
		metric.WithDescription("End-to-end turn latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voice.turn.duration histogram: %w", err)
	}

	sessionsActive, err := meter.Int64UpDownCounter("voice.sessions.active",
		metric.WithDescription("Sessions currently in the Active state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voice.sessions.active counter: %w", err)
	}

	pluginErrors, err := meter.Int64Counter("voice.plugin.errors",
		metric.WithDescription("Contained plugin failures by plugin"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voice.plugin.errors counter: %w", err)
	}

	events, err := meter.Int64Counter("voice.events",
		metric.WithDescription("Metric events recorded by the aggregator"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voice.events counter: %w", err)
	}

	return &VoiceMetrics{
		capabilityCalls:    capabilityCalls,
		capabilityDuration: capabilityDuration,
		turnDuration:       turnDuration,
		sessionsActive:     sessionsActive,
		pluginErrors:       pluginErrors,
		events:             events,
	}, nil
}

// RecordCapabilityCall records one provider call.
func (m *VoiceMetrics) RecordCapabilityCall(ctx context.Context, capability, provider, status string, duration time.Duration) {
	m.capabilityCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCapability, capability),
		attribute.String(AttrProvider, provider),
		attribute.String(AttrStatus, status),
	))
	m.capabilityDuration.Record(ctx, float64(duration.Microseconds())/1000, metric.WithAttributes(
		attribute.String(AttrCapability, capability),
		attribute.String(AttrProvider, provider),
	))
}

// RecordTurn records the latency of a completed turn.
func (m *VoiceMetrics) RecordTurn(ctx context.Context, status string, durationMs float64) {
	m.turnDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String(AttrStatus, status),
	))
}

// SessionStarted increments the active session gauge.
func (m *VoiceMetrics) SessionStarted(ctx context.Context) { m.sessionsActive.Add(ctx, 1) }

// SessionEnded decrements the active session gauge.
func (m *VoiceMetrics) SessionEnded(ctx context.Context) { m.sessionsActive.Add(ctx, -1) }

// RecordPluginError counts a contained plugin failure.
func (m *VoiceMetrics) RecordPluginError(ctx context.Context, plugin string) {
	m.pluginErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrPlugin, plugin)))
}

// RecordEvent counts an aggregator event by name.
func (m *VoiceMetrics) RecordEvent(ctx context.Context, name string) {
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrEventName, name)))
}
