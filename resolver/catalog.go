package resolver

import (
	"github.com/voixagent/voixagent/llm"
	llmanthropic "github.com/voixagent/voixagent/llm/anthropic"
	"github.com/voixagent/voixagent/llm/echo"
	llmopenai "github.com/voixagent/voixagent/llm/openai"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/synthesis"
	"github.com/voixagent/voixagent/synthesis/elevenlabs"
	ttslocal "github.com/voixagent/voixagent/synthesis/local"
	ttsopenai "github.com/voixagent/voixagent/synthesis/openai"
	"github.com/voixagent/voixagent/transcription"
	sttlocal "github.com/voixagent/voixagent/transcription/local"
	sttopenai "github.com/voixagent/voixagent/transcription/openai"
)

// Catalog holds one provider registry per capability.
type Catalog struct {
	STT *provider.Registry[transcription.Provider]
	LLM *provider.Registry[llm.Provider]
	TTS *provider.Registry[synthesis.Provider]
}

// NewCatalog returns empty registries.
func NewCatalog() *Catalog {
	return &Catalog{
		STT: transcription.NewRegistry(),
		LLM: llm.NewRegistry(),
		TTS: synthesis.NewRegistry(),
	}
}

// DefaultCatalog registers every bundled provider.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, r := range []provider.Registration[transcription.Provider]{
		sttopenai.Registration(),
		sttlocal.Registration(),
	} {
		mustRegister(c.STT, r)
	}
	for _, r := range []provider.Registration[llm.Provider]{
		llmopenai.Registration(),
		llmanthropic.Registration(),
		echo.Registration(),
	} {
		mustRegister(c.LLM, r)
	}
	for _, r := range []provider.Registration[synthesis.Provider]{
		ttsopenai.Registration(),
		elevenlabs.Registration(),
		ttslocal.Registration(),
	} {
		mustRegister(c.TTS, r)
	}
	return c
}

// Has reports whether name is registered for capability.
func (c *Catalog) Has(capability provider.Capability, name string) bool {
	switch capability {
	case provider.Transcription:
		return c.STT.Has(name)
	case provider.Generation:
		return c.LLM.Has(name)
	case provider.Synthesis:
		return c.TTS.Has(name)
	}
	return false
}

func mustRegister[T provider.Provider](reg *provider.Registry[T], r provider.Registration[T]) {
	if err := reg.Register(r); err != nil {
		panic(err)
	}
}

// ProviderInfo describes one registered provider for management listings.
type ProviderInfo struct {
	Capability    provider.Capability `json:"capability"`
	Name          string              `json:"name"`
	CredentialEnv string              `json:"credential_env,omitempty"`
	ExtraKeys     []string            `json:"extra_keys,omitempty"`
	Builtin       bool                `json:"builtin"`
	// Ready reports whether the default credential is present.
	Ready bool `json:"ready"`
}

// Describe lists registered providers per capability in capability order,
// checking default credentials with lookup.
func (c *Catalog) Describe(lookup func(string) (string, bool)) []ProviderInfo {
	var out []ProviderInfo
	out = append(out, describe(c.STT, lookup)...)
	out = append(out, describe(c.LLM, lookup)...)
	out = append(out, describe(c.TTS, lookup)...)
	return out
}

func describe[T provider.Provider](reg *provider.Registry[T], lookup func(string) (string, bool)) []ProviderInfo {
	names := reg.List()
	out := make([]ProviderInfo, 0, len(names))
	for _, name := range names {
		r, _ := reg.Lookup(name)
		ready := r.Builtin || r.CredentialEnv == ""
		if !ready && lookup != nil {
			v, ok := lookup(r.CredentialEnv)
			ready = ok && v != ""
		}
		out = append(out, ProviderInfo{
			Capability:    reg.Capability(),
			Name:          name,
			CredentialEnv: r.CredentialEnv,
			ExtraKeys:     r.ExtraKeys,
			Builtin:       r.Builtin,
			Ready:         ready,
		})
	}
	return out
}
