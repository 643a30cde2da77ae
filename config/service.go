package config

import (
	"fmt"
	"slices"

	"github.com/voixagent/voixagent/logger"
)

// Environments accepted in ServiceConfig.Environment.
var Environments = []string{"development", "staging", "production"}

// ServiceConfig holds what every voixagent process needs. The server binary
// embeds it next to its own sections:
//
//	type AppConfig struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Redis redis.Config   `yaml:"redis" mapstructure:"redis"`
//	}
type ServiceConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
	// Debug lowers the default log level to debug. It defaults to true in
	// development.
	Debug   bool          `yaml:"debug" mapstructure:"debug"`
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
	// AgentFile is the persisted agent document edited by the CLI.
	AgentFile string `yaml:"agent_file" mapstructure:"agent_file"`
}

// GetServiceConfig is promoted to embedding structs so they satisfy
// bootstrap.Config.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

// ApplyDefaults fills zero fields. Embedding structs call it before their
// own defaults.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "voixagent"
	}
	if c.Environment == "" {
		c.Environment = "development"
		c.Debug = true
	}
	if c.AgentFile == "" {
		c.AgentFile = DefaultAgentFile
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the shared fields; errors are prefixed with their key.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(Environments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", Environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
