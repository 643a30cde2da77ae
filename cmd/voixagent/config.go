package main

import (
	"fmt"
	"time"

	"github.com/voixagent/voixagent/auth"
	"github.com/voixagent/voixagent/config"
	"github.com/voixagent/voixagent/kafka"
	"github.com/voixagent/voixagent/metrics"
	"github.com/voixagent/voixagent/observability"
	"github.com/voixagent/voixagent/redis"
	"github.com/voixagent/voixagent/server"
	"github.com/voixagent/voixagent/session"
	"github.com/voixagent/voixagent/storage"
)

const serviceName = "voixagent"

// AppConfig is the process configuration loaded from config.yml, the
// environment and .env.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Session   session.Config       `yaml:"session" mapstructure:"session"`
	Metrics   MetricsConfig        `yaml:"metrics" mapstructure:"metrics"`
	Redis     redis.Config         `yaml:"redis" mapstructure:"redis"`
	Kafka     kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Storage   storage.Config       `yaml:"storage" mapstructure:"storage"`
	LiveKit   auth.LiveKitConfig   `yaml:"livekit" mapstructure:"livekit"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
}

// MetricsConfig configures the aggregator and its local outputs.
type MetricsConfig struct {
	// File receives the snapshot document.
	File            string        `yaml:"file" mapstructure:"file"`
	Capacity        int           `yaml:"capacity" mapstructure:"capacity"`
	PublishInterval time.Duration `yaml:"publish_interval" mapstructure:"publish_interval"`
	Namespace       string        `yaml:"namespace" mapstructure:"namespace"`
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Session.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.LiveKit.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	if c.Metrics.File == "" {
		c.Metrics.File = storage.DefaultKey
	}
	if c.Metrics.Capacity <= 0 {
		c.Metrics.Capacity = metrics.DefaultCapacity
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = serviceName
	}
}

// Validate checks every section.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Validate},
		{"session", c.Session.Validate},
		{"redis", c.Redis.Validate},
		{"kafka", c.Kafka.Validate},
		{"storage", c.Storage.Validate},
		{"livekit", c.LiveKit.Validate},
		{"telemetry", c.Telemetry.Validate},
	}
	for _, s := range sections {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if c.Metrics.PublishInterval < 0 {
		return fmt.Errorf("metrics.publish_interval must be non-negative (got: %s)", c.Metrics.PublishInterval)
	}
	return nil
}

// loadAppConfig reads the process configuration. Explicit paths override
// the default search locations.
func loadAppConfig(configFile, envFile string) (*AppConfig, error) {
	cfg := &AppConfig{}
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
