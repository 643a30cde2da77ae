package redis

import (
	"fmt"
	"time"
)

// Config is the redis section. Enabling it moves conversation memory from
// the in-process store to Redis.
type Config struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`
	// KeyPrefix namespaces every stored key.
	KeyPrefix    string        `yaml:"key_prefix" mapstructure:"key_prefix"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "voixagent"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

// Validate checks an enabled section.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case c.Addr == "":
		return fmt.Errorf("redis addr is required")
	case c.DB < 0:
		return fmt.Errorf("db must be >= 0")
	case c.PoolSize <= 0:
		return fmt.Errorf("pool_size must be > 0")
	case c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0:
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}
