package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/util"
)

// DefaultInstructions is the system prompt used when nothing else is set.
const DefaultInstructions = "You are a friendly, concise assistant. Keep answers short."

// Builtin returns the lowest configuration layer.
func Builtin() AgentConfig {
	return AgentConfig{
		LLM: provider.Spec{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: provider.Float64(0.7),
			MaxTokens:   1000,
		},
		STT: provider.Spec{Provider: "openai", Model: "whisper-1"},
		TTS: provider.Spec{Provider: "openai", Model: "tts-1", Voice: "alloy"},
		Plugins: []PluginEntry{
			{Name: "example", Enabled: true},
		},
		Instructions:        DefaultInstructions,
		EnableBargeIn:       util.Ptr(false),
		MinEndpointingDelay: 0.5,
		MaxResponseTime:     30,
	}
}

// FromEnv builds the environment layer. Unset variables leave fields zero so
// they do not override lower layers.
func FromEnv(lookup func(string) (string, bool)) (AgentConfig, error) {
	get := func(key string) string {
		v, ok := lookup(key)
		if !ok {
			return ""
		}
		return unquote(strings.TrimSpace(v))
	}

	var cfg AgentConfig
	cfg.LLM.Provider = get("LLM_PROVIDER")
	cfg.LLM.Model = get("LLM_MODEL")
	cfg.STT.Provider = get("STT_PROVIDER")
	cfg.STT.Model = get("STT_MODEL")
	cfg.TTS.Provider = get("TTS_PROVIDER")
	cfg.TTS.Model = get("TTS_MODEL")
	cfg.TTS.Voice = get("TTS_VOICE_ID")
	cfg.Instructions = get("AGENT_INSTRUCTIONS")

	if v := get("LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return AgentConfig{}, envError("LLM_TEMPERATURE", v, err)
		}
		cfg.LLM.Temperature = &f
	}
	if v := get("LLM_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return AgentConfig{}, envError("LLM_MAX_TOKENS", v, err)
		}
		cfg.LLM.MaxTokens = n
	}
	if v := get("MAX_RESPONSE_TIME"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return AgentConfig{}, envError("MAX_RESPONSE_TIME", v, err)
		}
		cfg.MaxResponseTime = f
	}
	if v := get("MIN_ENDPOINTING_DELAY"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return AgentConfig{}, envError("MIN_ENDPOINTING_DELAY", v, err)
		}
		cfg.MinEndpointingDelay = f
	}
	if v := get("ENABLE_BARGE_IN"); v != "" {
		b := strings.EqualFold(v, "true")
		cfg.EnableBargeIn = &b
	}
	if _, ok := lookup("ENABLED_PLUGINS"); ok {
		names := util.Unique(util.SplitList(get("ENABLED_PLUGINS")))
		cfg.Plugins = make([]PluginEntry, 0, len(names))
		for _, name := range names {
			cfg.Plugins = append(cfg.Plugins, PluginEntry{Name: name, Enabled: true})
		}
	}
	return cfg, nil
}

// unquote strips one pair of matching surrounding quotes, as left behind by
// some .env editors.
func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

func envError(key, value string, err error) error {
	return errors.Configuration(fmt.Sprintf("invalid %s value %q", key, value)).WithCause(err)
}
