package session

import (
	"fmt"
	"time"

	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/resilience"
	"github.com/voixagent/voixagent/resolver"
)

// Config holds session runtime settings.
type Config struct {
	// RetentionWindow is how long a terminated or failed record stays
	// inspectable before it is purged.
	RetentionWindow time.Duration `yaml:"retention_window" mapstructure:"retention_window"`
	// GracePeriod bounds how long EndSession waits for an in-flight turn
	// before cancelling it.
	GracePeriod time.Duration `yaml:"grace_period" mapstructure:"grace_period"`
	// CapabilityTimeout bounds each provider call attempt. Zero uses the
	// agent document's max_response_time.
	CapabilityTimeout time.Duration `yaml:"capability_timeout" mapstructure:"capability_timeout"`
	RetryAttempts     int           `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoff      time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	// MaxTurnFailures is the number of consecutive failed turns tolerated
	// before the session fails.
	MaxTurnFailures int `yaml:"max_turn_failures" mapstructure:"max_turn_failures"`
	// HistoryTurns is the number of past exchanges sent to the language model.
	HistoryTurns int `yaml:"history_turns" mapstructure:"history_turns"`
	// BreakerFailures opens a session's circuit breaker for a capability
	// after this many consecutive failed calls.
	BreakerFailures int `yaml:"breaker_failures" mapstructure:"breaker_failures"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.RetentionWindow <= 0 {
		c.RetentionWindow = 5 * time.Minute
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = 5 * time.Second
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.MaxTurnFailures <= 0 {
		c.MaxTurnFailures = 3
	}
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = 10
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 5
	}
}

// Validate checks the settings.
func (c *Config) Validate() error {
	if c.RetryAttempts < 0 {
		return fmt.Errorf("session.retry_attempts must be >= 0 (got: %d)", c.RetryAttempts)
	}
	if c.CapabilityTimeout < 0 {
		return fmt.Errorf("session.capability_timeout must be >= 0 (got: %s)", c.CapabilityTimeout)
	}
	return nil
}

// Policy returns the per-session call policy handed to the resolver. Each
// call builds a fresh circuit breaker, so one session's failing backend
// never trips another session. timeout is used when CapabilityTimeout is
// unset. Breaker transitions are logged to log.
func (c Config) Policy(timeout time.Duration, log *logger.Logger) resolver.PolicyFunc {
	if c.CapabilityTimeout > 0 {
		timeout = c.CapabilityTimeout
	}
	retry := resilience.DefaultRetryConfig().WithRetries(c.RetryAttempts)
	retry.InitialBackoff = c.RetryBackoff
	return func(capability provider.Capability) provider.ResilienceConfig {
		breaker := resilience.DefaultCircuitBreakerConfig(capability.String())
		breaker.MaxFailures = c.BreakerFailures
		breaker.OnStateChange = func(name string, from, to resilience.State) {
			log.Warn("circuit breaker changed state", logger.Fields(logger.FieldCapability, name, "from", from.String(), "to", to.String()))
		}
		return provider.ResilienceConfig{
			Timeout:        timeout,
			Retry:          &retry,
			CircuitBreaker: resilience.NewCircuitBreaker(breaker),
		}
	}
}
