package server

import (
	"fmt"
	"time"

	"github.com/voixagent/voixagent/server/middleware"
)

// Config is the server section of the application config.
type Config struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	// MaxBodySize accepts KB, MB and GB suffixes.
	MaxBodySize string                `yaml:"max_body_size" mapstructure:"max_body_size"`
	CORS        middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
	// RateLimit is requests per minute per client on /token and POST /sessions.
	RateLimit int `yaml:"rate_limit" mapstructure:"rate_limit"`
}

func setDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

func (c *Config) ApplyDefaults() {
	setDefault(&c.Port, 8080)
	setDefault(&c.ReadTimeout, 15*time.Second)
	setDefault(&c.WriteTimeout, 60*time.Second)
	setDefault(&c.IdleTimeout, 120*time.Second)
	setDefault(&c.ShutdownTimeout, 5*time.Second)
	setDefault(&c.MaxBodySize, "10MB")
	setDefault(&c.RateLimit, 60)
	if c.CORS.AllowedOrigins == nil {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if c.CORS.AllowedMethods == nil {
		c.CORS.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if c.CORS.AllowedHeaders == nil {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	}
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Port)
	}
	for name, d := range map[string]time.Duration{
		"read_timeout":     c.ReadTimeout,
		"write_timeout":    c.WriteTimeout,
		"idle_timeout":     c.IdleTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("server.%s must not be negative (got %s)", name, d)
		}
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative (got %d)", c.RateLimit)
	}
	return nil
}
