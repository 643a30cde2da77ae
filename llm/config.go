package llm

import (
	"time"

	"github.com/voixagent/voixagent/provider"
)

const defaultTimeout = 60 * time.Second

// Config holds configuration for an Adapter.
type Config struct {
	// Name identifies the adapter in logs and errors. Defaults to the dialect name.
	Name string
	// BaseURL defaults to the dialect's DefaultBaseURL.
	BaseURL string
	APIKey  string
	// Model is the default model for requests that do not set one.
	Model       string
	Temperature *float64
	MaxTokens   int
	// Extra parameters are added to every request.
	Extra map[string]any
	// Timeout bounds one HTTP exchange. The per-call capability timeout is
	// applied by provider.WithResilience.
	Timeout time.Duration
}

// ConfigFromSpec builds adapter configuration from a resolved spec.
func ConfigFromSpec(spec provider.Spec) Config {
	return Config{
		Name:        spec.Provider,
		BaseURL:     spec.APIURL,
		APIKey:      spec.APIKey,
		Model:       spec.Model,
		Temperature: spec.Temperature,
		MaxTokens:   spec.MaxTokens,
		Extra:       spec.Extra,
	}
}

func (c *Config) applyDefaults(d Dialect) {
	if c.Name == "" {
		c.Name = d.Name()
	}
	if c.BaseURL == "" {
		c.BaseURL = d.DefaultBaseURL()
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
}
