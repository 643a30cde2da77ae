package config

import (
	"fmt"
	"maps"
	"time"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/validation"
)

// DefaultAgentFile is the agent document path used when none is configured.
const DefaultAgentFile = "agent_config.yaml"

// PluginEntry enables or disables one plugin. Order in the list is the
// pipeline order.
type PluginEntry struct {
	Name    string         `yaml:"name" json:"name" mapstructure:"name" validate:"required,identifier"`
	Enabled bool           `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Config  map[string]any `yaml:"config,omitempty" json:"config,omitempty" mapstructure:"config"`
}

// AgentConfig is the agent document: provider selection per capability, the
// plugin list and conversation settings.
type AgentConfig struct {
	LLM                 provider.Spec `yaml:"llm" json:"llm" mapstructure:"llm"`
	STT                 provider.Spec `yaml:"stt" json:"stt" mapstructure:"stt"`
	TTS                 provider.Spec `yaml:"tts" json:"tts" mapstructure:"tts"`
	Plugins             []PluginEntry `yaml:"plugins" json:"plugins" mapstructure:"plugins" validate:"dive"`
	Instructions        string        `yaml:"instructions,omitempty" json:"instructions,omitempty" mapstructure:"instructions"`
	EnableBargeIn       *bool         `yaml:"enable_barge_in,omitempty" json:"enable_barge_in,omitempty" mapstructure:"enable_barge_in"`
	MinEndpointingDelay float64       `yaml:"min_endpointing_delay,omitempty" json:"min_endpointing_delay,omitempty" mapstructure:"min_endpointing_delay" validate:"gte=0"`
	// MaxResponseTime bounds each capability call, in seconds.
	MaxResponseTime float64 `yaml:"max_response_time,omitempty" json:"max_response_time,omitempty" mapstructure:"max_response_time" validate:"gte=0"`
}

// Spec returns the provider spec for a capability.
func (c AgentConfig) Spec(capability provider.Capability) provider.Spec {
	switch capability {
	case provider.Transcription:
		return c.STT
	case provider.Generation:
		return c.LLM
	case provider.Synthesis:
		return c.TTS
	}
	return provider.Spec{}
}

// SetSpec replaces the provider spec for a capability.
func (c *AgentConfig) SetSpec(capability provider.Capability, spec provider.Spec) {
	switch capability {
	case provider.Transcription:
		c.STT = spec
	case provider.Generation:
		c.LLM = spec
	case provider.Synthesis:
		c.TTS = spec
	}
}

// Merge returns c overlaid with over. Provider specs merge field by field,
// a non-nil plugin list replaces the whole list and zero scalars never
// override.
func (c AgentConfig) Merge(over AgentConfig) AgentConfig {
	out := c
	out.LLM = c.LLM.Merge(over.LLM)
	out.STT = c.STT.Merge(over.STT)
	out.TTS = c.TTS.Merge(over.TTS)
	if over.Plugins != nil {
		out.Plugins = clonePlugins(over.Plugins)
	} else {
		out.Plugins = clonePlugins(c.Plugins)
	}
	if over.Instructions != "" {
		out.Instructions = over.Instructions
	}
	if over.EnableBargeIn != nil {
		v := *over.EnableBargeIn
		out.EnableBargeIn = &v
	}
	if over.MinEndpointingDelay != 0 {
		out.MinEndpointingDelay = over.MinEndpointingDelay
	}
	if over.MaxResponseTime != 0 {
		out.MaxResponseTime = over.MaxResponseTime
	}
	return out
}

// Compose merges layers from lowest to highest precedence.
func Compose(layers ...AgentConfig) AgentConfig {
	var out AgentConfig
	for _, l := range layers {
		out = out.Merge(l)
	}
	return out
}

// EnabledPlugins returns the enabled entries in document order.
func (c AgentConfig) EnabledPlugins() []PluginEntry {
	var out []PluginEntry
	for _, p := range c.Plugins {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// ResponseTimeout converts MaxResponseTime to a duration.
func (c AgentConfig) ResponseTimeout() time.Duration {
	return time.Duration(c.MaxResponseTime * float64(time.Second))
}

// Validate checks an effective (fully layered) configuration.
func (c AgentConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		msg := err.Error()
		var fields any
		if appErr, ok := errors.AsAppError(err); ok {
			msg = appErr.Message
			fields = appErr.Details["fields"]
		}
		return errors.Configuration("invalid agent configuration: " + msg).WithCause(err).
			WithDetail("fields", fields)
	}
	seen := make(map[string]bool)
	for _, p := range c.EnabledPlugins() {
		if seen[p.Name] {
			return errors.Configuration(fmt.Sprintf("plugin %q is enabled more than once", p.Name))
		}
		seen[p.Name] = true
	}
	return nil
}

// Redacted returns a copy with literal API keys masked.
func (c AgentConfig) Redacted() AgentConfig {
	out := c
	out.LLM = c.LLM.Redacted()
	out.STT = c.STT.Redacted()
	out.TTS = c.TTS.Redacted()
	return out
}

func clonePlugins(in []PluginEntry) []PluginEntry {
	if in == nil {
		return nil
	}
	out := make([]PluginEntry, len(in))
	for i, p := range in {
		out[i] = PluginEntry{Name: p.Name, Enabled: p.Enabled, Config: maps.Clone(p.Config)}
	}
	return out
}
