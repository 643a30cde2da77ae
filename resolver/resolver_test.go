package resolver_test

import (
	"context"
	"strings"
	"testing"

	"github.com/voixagent/voixagent/config"
	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/llm"
	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/resilience"
	"github.com/voixagent/voixagent/resolver"
	"github.com/voixagent/voixagent/synthesis"
	"github.com/voixagent/voixagent/transcription"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func newResolver(vars map[string]string, opts ...resolver.Option) *resolver.Resolver {
	opts = append([]resolver.Option{resolver.WithLookup(env(vars)), resolver.WithLogger(logger.Nop())}, opts...)
	return resolver.New(resolver.DefaultCatalog(), opts...)
}

func agent(stt, gen, tts string) config.AgentConfig {
	return config.AgentConfig{
		STT: provider.Spec{Provider: stt},
		LLM: provider.Spec{Provider: gen, Model: "gpt-4o-mini"},
		TTS: provider.Spec{Provider: tts},
	}
}

func TestResolveWithCredentials(t *testing.T) {
	r := newResolver(map[string]string{"OPENAI_API_KEY": "sk-test", "ELEVENLABS_API_KEY": "xi"})
	set, err := r.Resolve(context.Background(), agent("openai", "openai", "elevenlabs"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	defer set.Close(context.Background())

	want := map[provider.Capability]string{
		provider.Transcription: "openai",
		provider.Generation:    "openai",
		provider.Synthesis:     "elevenlabs",
	}
	for capability, name := range want {
		res, ok := set.Resolution(capability)
		if !ok {
			t.Fatalf("no resolution for %s", capability)
		}
		if res.Provider != name || res.Fallback {
			t.Errorf("%s resolved to %+v, want %s", capability, res, name)
		}
	}
	if set.STT.Name() != "openai" || set.LLM.Name() != "openai" || set.TTS.Name() != "elevenlabs" {
		t.Errorf("unexpected handles %s %s %s", set.STT.Name(), set.LLM.Name(), set.TTS.Name())
	}
}

func TestResolveFallsBackOnMissingCredential(t *testing.T) {
	tests := []struct {
		name       string
		vars       map[string]string
		cfg        config.AgentConfig
		capability provider.Capability
		want       string
	}{
		{"llm without key", nil, agent("local", "openai", "local"), provider.Generation, "echo"},
		{"anthropic without key", map[string]string{"OPENAI_API_KEY": "sk"}, agent("openai", "anthropic", "openai"), provider.Generation, "echo"},
		{"stt without key", nil, agent("openai", "echo", "local"), provider.Transcription, "local"},
		{"tts without key", map[string]string{"OPENAI_API_KEY": "sk"}, agent("openai", "openai", "elevenlabs"), provider.Synthesis, "local"},
		{
			name: "credential_ref points at unset variable",
			vars: map[string]string{"OPENAI_API_KEY": "sk"},
			cfg: config.AgentConfig{
				STT: provider.Spec{Provider: "local"},
				LLM: provider.Spec{Provider: "openai", CredentialRef: "TEAM_KEY"},
				TTS: provider.Spec{Provider: "local"},
			},
			capability: provider.Generation,
			want:       "echo",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := newResolver(tt.vars).Resolve(context.Background(), tt.cfg)
			if err != nil {
				t.Fatalf("fallback should not fail resolution: %v", err)
			}
			res, _ := set.Resolution(tt.capability)
			if !res.Fallback || res.Provider != tt.want {
				t.Errorf("resolution = %+v, want fallback to %s", res, tt.want)
			}
			if !strings.Contains(res.Reason, "credential") {
				t.Errorf("reason %q should mention the credential", res.Reason)
			}
		})
	}
}

func TestResolveFallbackIsUsable(t *testing.T) {
	set, err := newResolver(nil).Resolve(context.Background(), agent("openai", "openai", "openai"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	text, err := set.STT.Execute(ctx, transcription.Request{Audio: []byte("hello"), Format: transcription.FormatText})
	if err != nil || text.Text != "hello" {
		t.Fatalf("stt fallback: %+v %v", text, err)
	}
	reply, err := set.LLM.Execute(ctx, llm.Request{Messages: []llm.Message{llm.User("hello")}})
	if err != nil || !strings.Contains(reply.Content, "hello") {
		t.Fatalf("llm fallback: %+v %v", reply, err)
	}
	audio, err := set.TTS.Execute(ctx, synthesis.Request{Text: reply.Content})
	if err != nil || audio.Text != reply.Content {
		t.Fatalf("tts fallback: %+v %v", audio, err)
	}
}

func TestResolveLiteralAPIKey(t *testing.T) {
	cfg := agent("local", "anthropic", "local")
	cfg.LLM.APIKey = "sk-ant"
	set, err := newResolver(nil).Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res, _ := set.Resolution(provider.Generation); res.Fallback || res.Provider != "anthropic" {
		t.Errorf("literal api_key should satisfy the credential check, got %+v", res)
	}
}

func TestResolveErrors(t *testing.T) {
	vars := map[string]string{"OPENAI_API_KEY": "sk"}
	tests := []struct {
		name   string
		mutate func(*config.AgentConfig)
		code   errors.ErrorCode
	}{
		{"unknown llm", func(c *config.AgentConfig) { c.LLM.Provider = "mystery" }, errors.ErrCodeUnsupportedProvider},
		{"unknown tts", func(c *config.AgentConfig) { c.TTS.Provider = "polly" }, errors.ErrCodeUnsupportedProvider},
		{"empty stt", func(c *config.AgentConfig) { c.STT = provider.Spec{} }, errors.ErrCodeConfiguration},
		{"unknown extra", func(c *config.AgentConfig) { c.LLM.Extra = map[string]any{"seed": 1} }, errors.ErrCodeConfiguration},
		{"stt extra on tts", func(c *config.AgentConfig) { c.TTS.Extra = map[string]any{"language": "en"} }, errors.ErrCodeConfiguration},
		{"bad temperature", func(c *config.AgentConfig) { c.LLM.Temperature = provider.Float64(3) }, errors.ErrCodeConfiguration},
		{"factory rejects extra value", func(c *config.AgentConfig) { c.TTS.Extra = map[string]any{"speed": 10.0} }, errors.ErrCodeConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := agent("openai", "openai", "openai")
			tt.mutate(&cfg)
			_, err := newResolver(vars).Resolve(context.Background(), cfg)
			if !errors.HasCode(err, tt.code) {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
			if !errors.IsConfigurationError(err) {
				t.Errorf("%v should be a configuration error", err)
			}
		})
	}
}

func TestResolveDoesNotMutateConfig(t *testing.T) {
	cfg := agent("openai", "openai", "openai")
	cfg.LLM.Extra = map[string]any{"top_p": 0.9}
	r := newResolver(map[string]string{"OPENAI_API_KEY": "sk-secret"})

	first, err := r.Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.APIKey != "" || len(cfg.LLM.Extra) != 1 {
		t.Errorf("config mutated: %+v", cfg.LLM)
	}
	if first == second || first.LLM == second.LLM {
		t.Error("expected distinct handles per call")
	}
	for i := range first.Resolutions {
		if first.Resolutions[i] != second.Resolutions[i] {
			t.Errorf("resolution %d differs: %+v vs %+v", i, first.Resolutions[i], second.Resolutions[i])
		}
	}
}

func TestResolveLayers(t *testing.T) {
	r := newResolver(map[string]string{"ANTHROPIC_API_KEY": "sk-ant"})
	set, err := r.ResolveLayers(context.Background(),
		agent("local", "openai", "local"),
		config.AgentConfig{LLM: provider.Spec{Provider: "anthropic", Model: "claude-3-5-haiku-latest"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	res, _ := set.Resolution(provider.Generation)
	if res.Provider != "anthropic" || res.Model != "claude-3-5-haiku-latest" {
		t.Errorf("override layer not applied: %+v", res)
	}
}

func TestFallbackMustBeBuiltin(t *testing.T) {
	r := newResolver(nil, resolver.WithFallback(provider.Generation, "anthropic"))
	_, err := r.Resolve(context.Background(), agent("local", "openai", "local"))
	if !errors.IsConfigurationError(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestPolicyAppliedPerResolve(t *testing.T) {
	calls := 0
	policy := func(provider.Capability) provider.ResilienceConfig {
		calls++
		return provider.ResilienceConfig{
			CircuitBreaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("test")),
		}
	}
	r := newResolver(nil, resolver.WithPolicy(policy))
	for range 2 {
		if _, err := r.Resolve(context.Background(), agent("local", "echo", "local")); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 6 {
		t.Errorf("policy called %d times, want 6", calls)
	}
}

func TestWithLeavesOriginalUntouched(t *testing.T) {
	calls := 0
	policy := func(provider.Capability) provider.ResilienceConfig {
		calls++
		return provider.ResilienceConfig{}
	}
	base := newResolver(nil)
	scoped := base.With(resolver.WithPolicy(policy), resolver.WithFallback(provider.Generation, "anthropic"))

	if _, err := base.Resolve(context.Background(), agent("local", "openai", "local")); err != nil {
		t.Fatalf("base resolver: %v", err)
	}
	if calls != 0 {
		t.Errorf("policy leaked into the base resolver")
	}
	if _, err := scoped.Resolve(context.Background(), agent("local", "openai", "local")); !errors.IsConfigurationError(err) {
		t.Errorf("scoped fallback override not applied: %v", err)
	}
}

func TestCatalogDescribe(t *testing.T) {
	infos := resolver.DefaultCatalog().Describe(env(map[string]string{"OPENAI_API_KEY": "sk"}))
	byKey := make(map[string]resolver.ProviderInfo)
	for _, info := range infos {
		byKey[string(info.Capability)+"/"+info.Name] = info
	}
	tests := []struct {
		key     string
		builtin bool
		ready   bool
	}{
		{"transcription/openai", false, true},
		{"transcription/local", true, true},
		{"generation/anthropic", false, false},
		{"generation/echo", true, true},
		{"synthesis/elevenlabs", false, false},
		{"synthesis/local", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			info, ok := byKey[tt.key]
			if !ok {
				t.Fatalf("%s not listed", tt.key)
			}
			if info.Builtin != tt.builtin || info.Ready != tt.ready {
				t.Errorf("info = %+v", info)
			}
		})
	}
	if len(infos) != 8 {
		t.Errorf("expected 8 providers, got %d", len(infos))
	}
}

func TestCatalogHas(t *testing.T) {
	c := resolver.DefaultCatalog()
	tests := []struct {
		capability provider.Capability
		name       string
		want       bool
	}{
		{provider.Transcription, "openai", true},
		{provider.Generation, "anthropic", true},
		{provider.Synthesis, "elevenlabs", true},
		{provider.Synthesis, "anthropic", false},
		{provider.Capability("vision"), "openai", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.capability)+"/"+tt.name, func(t *testing.T) {
			if got := c.Has(tt.capability, tt.name); got != tt.want {
				t.Errorf("Has = %v, want %v", got, tt.want)
			}
		})
	}
}
