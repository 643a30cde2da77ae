package observability

import (
	"context"
	"fmt"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/voixagent/voixagent/logger"
)

// Config is the telemetry section of the service configuration.
type Config struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = 15 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be within [0, 1] (got: %g)", c.SampleRate)
	}
	return nil
}

// Providers holds the SDK providers created by Setup.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	var firstErr error
	if p.Tracer != nil {
		if err := p.Tracer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if p.Meter != nil {
		if err := p.Meter.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Setup installs the global tracer and meter providers, both exporting over
// OTLP HTTP to cfg.Endpoint. A disabled config returns empty Providers and
// leaves the otel no-op globals in place.
func Setup(ctx context.Context, cfg Config, service, version, environment string) (*Providers, error) {
	if !cfg.Enabled {
		return &Providers{}, nil
	}
	cfg.ApplyDefaults()
	res, err := serviceResource(service, version, environment)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	tp, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	mp, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	logger.Info("telemetry initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
		"metric_interval", cfg.MetricInterval.String(),
	))
	return &Providers{Tracer: tp, Meter: mp}, nil
}
