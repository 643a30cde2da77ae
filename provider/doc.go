// Package provider is the generic framework behind every capability backend.
//
// A capability (transcription, generation, synthesis) owns a Registry of named
// Registrations. Each registration carries a Factory building the backend from
// a Spec, the credential variable it needs and the extra parameters it accepts.
//
//	reg := provider.NewRegistry[llm.Provider](provider.Generation)
//	reg.Register(provider.Registration[llm.Provider]{
//	    Name:          "openai",
//	    Factory:       openai.New,
//	    CredentialEnv: "OPENAI_API_KEY",
//	    ExtraKeys:     []string{"top_p"},
//	})
//	p, err := reg.Create(provider.Spec{Provider: "openai", Model: "gpt-4o-mini"})
//
// # Middleware
//
// Middleware[I, O] wraps a RequestResponse provider. Use Chain to compose:
//
//	wrapped := provider.Chain(
//	    provider.WithLogging[In, Out](log, provider.Generation),
//	    provider.WithMetrics[In, Out](vm, provider.Generation),
//	    provider.WithTracing[In, Out](provider.Generation),
//	    provider.WithResilience[In, Out](provider.ResilienceConfig{Timeout: 30 * time.Second}),
//	)(raw)
//
// Wrappers forward Close so CloseAll releases the innermost backend.
//
// # State
//
// ContextStore[C] persists typed state shared across sessions. MemoryStore is
// the in-process implementation; redis.TypedStore is the networked one.
package provider
