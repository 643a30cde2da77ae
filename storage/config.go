package storage

import (
	"errors"
	"fmt"
)

// Supported backends.
const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

const (
	DefaultProvider = ProviderLocal
	DefaultBasePath = "/tmp/voixagent"
	DefaultRegion   = "us-east-1"
	DefaultKey      = "shared_metrics.json"
)

// Config holds snapshot storage settings.
type Config struct {
	// Enabled adds the snapshot publisher to the metrics aggregator.
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// Provider selects the backend: "local" or "s3".
	Provider string `yaml:"provider" mapstructure:"provider" json:"provider"`

	// Key is the object key the snapshot is written to.
	Key string `yaml:"key" mapstructure:"key" json:"key"`

	// BasePath is the root directory for the local backend.
	BasePath string `yaml:"base_path" mapstructure:"base_path" json:"base_path"`

	Bucket string `yaml:"bucket" mapstructure:"bucket" json:"bucket"`
	Region string `yaml:"region" mapstructure:"region" json:"region"`

	// Endpoint is a custom S3-compatible endpoint (e.g. MinIO).
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint" json:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key" json:"-"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key" json:"-"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style" json:"force_path_style"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.Key == "" {
		c.Key = DefaultKey
	}
}

// Validate checks the settings of the selected backend.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Key == "" {
		return errors.New("storage: key is required")
	}
	switch c.Provider {
	case ProviderLocal:
		if c.BasePath == "" {
			return errors.New("storage: base_path is required for local provider")
		}
	case ProviderS3:
		var errs []error
		if c.Bucket == "" {
			errs = append(errs, errors.New("storage: bucket is required for s3 provider"))
		}
		if c.Region == "" {
			errs = append(errs, errors.New("storage: region is required for s3 provider"))
		}
		if (c.AccessKey == "") != (c.SecretKey == "") {
			errs = append(errs, errors.New("storage: access_key and secret_key must be set together"))
		}
		return errors.Join(errs...)
	default:
		return fmt.Errorf("storage: unsupported provider %q (supported: local, s3)", c.Provider)
	}
	return nil
}
