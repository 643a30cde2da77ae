package auth

import (
	"fmt"
	"time"
)

// DefaultTokenTTL matches the LiveKit SDK default.
const DefaultTokenTTL = 6 * time.Hour

// LiveKitConfig holds the credentials of the LiveKit deployment clients
// connect to. Values usually come from LIVEKIT_URL, LIVEKIT_API_KEY and
// LIVEKIT_API_SECRET.
type LiveKitConfig struct {
	URL       string `yaml:"url" mapstructure:"url"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	APISecret string `yaml:"api_secret" mapstructure:"api_secret"`
	TokenTTL  string `yaml:"token_ttl" mapstructure:"token_ttl"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *LiveKitConfig) ApplyDefaults() {
	if c.TokenTTL == "" {
		c.TokenTTL = DefaultTokenTTL.String()
	}
}

// Validate checks the TTL. Missing credentials are reported when a token is
// requested, not at startup.
func (c *LiveKitConfig) Validate() error {
	ttl, err := time.ParseDuration(c.TokenTTL)
	if err != nil {
		return fmt.Errorf("livekit.token_ttl: %w", err)
	}
	if ttl <= 0 {
		return fmt.Errorf("livekit.token_ttl must be positive (got: %s)", c.TokenTTL)
	}
	return nil
}

// Configured reports whether every credential is set.
func (c *LiveKitConfig) Configured() bool {
	return c.URL != "" && c.APIKey != "" && c.APISecret != ""
}

// TTL returns the parsed token lifetime.
func (c *LiveKitConfig) TTL() time.Duration {
	ttl, err := time.ParseDuration(c.TokenTTL)
	if err != nil || ttl <= 0 {
		return DefaultTokenTTL
	}
	return ttl
}
