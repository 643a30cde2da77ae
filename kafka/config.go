package kafka

import (
	"fmt"
	"slices"
	"time"
)

// Config is the kafka section of the server configuration. Durations accept
// Go duration strings ("500ms", "10s").
type Config struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	// Topic receives one message per metric event, keyed by session id.
	Topic string `yaml:"topic" mapstructure:"topic"`

	TLS  TLSConfig  `yaml:"tls" mapstructure:"tls"`
	SASL SASLConfig `yaml:"sasl" mapstructure:"sasl"`

	// Compression is one of none, gzip, snappy, lz4, zstd.
	Compression  string        `yaml:"compression" mapstructure:"compression"`
	Retries      int           `yaml:"retries" mapstructure:"retries"`
	BatchSize    int           `yaml:"batch_size" mapstructure:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	RequiredAcks int           `yaml:"required_acks" mapstructure:"required_acks"`
	// FlushInterval is how long the event sink gathers events into one
	// write.
	FlushInterval time.Duration `yaml:"flush_interval" mapstructure:"flush_interval"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MetadataTTL   time.Duration `yaml:"metadata_ttl" mapstructure:"metadata_ttl"`
}

// TLSConfig enables TLS to the brokers.
type TLSConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	SkipVerify bool   `yaml:"skip_verify" mapstructure:"skip_verify"`
	CAFile     string `yaml:"ca_file" mapstructure:"ca_file"`
	CertFile   string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile    string `yaml:"key_file" mapstructure:"key_file"`
}

// SASLConfig enables SASL authentication.
type SASLConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Mechanism is PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512.
	Mechanism string `yaml:"mechanism" mapstructure:"mechanism"`
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password" mapstructure:"password"`
}

var saslMechanisms = []string{"PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"}

func orDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	orDefault(&c.Topic, "voixagent.metrics")
	orDefault(&c.Compression, "snappy")
	orDefault(&c.Retries, 3)
	orDefault(&c.BatchSize, 100)
	orDefault(&c.BatchTimeout, time.Second)
	orDefault(&c.WriteTimeout, 10*time.Second)
	orDefault(&c.RequiredAcks, 1)
	orDefault(&c.FlushInterval, 500*time.Millisecond)
	orDefault(&c.IdleTimeout, 30*time.Second)
	orDefault(&c.MetadataTTL, 6*time.Second)
	if c.SASL.Enabled {
		orDefault(&c.SASL.Mechanism, "PLAIN")
	}
}

// Validate checks an enabled section.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	switch {
	case len(c.Brokers) == 0:
		return fmt.Errorf("kafka brokers are required")
	case c.Topic == "":
		return fmt.Errorf("kafka topic is required")
	case c.Retries <= 0:
		return fmt.Errorf("retries must be > 0")
	case c.BatchSize <= 0:
		return fmt.Errorf("batch_size must be > 0")
	case c.FlushInterval <= 0:
		return fmt.Errorf("flush_interval must be positive")
	case c.RequiredAcks < -1 || c.RequiredAcks > 1:
		return fmt.Errorf("required_acks must be -1, 0 or 1")
	}
	if c.SASL.Enabled {
		if !slices.Contains(saslMechanisms, c.SASL.Mechanism) {
			return fmt.Errorf("unsupported SASL mechanism: %s", c.SASL.Mechanism)
		}
		if c.SASL.Username == "" {
			return fmt.Errorf("SASL username is required")
		}
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("tls cert_file and key_file must be set together")
	}
	return nil
}
