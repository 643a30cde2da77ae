package resolver

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/voixagent/voixagent/config"
	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/llm"
	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/observability"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/synthesis"
	"github.com/voixagent/voixagent/transcription"
	"github.com/voixagent/voixagent/util"
	"github.com/voixagent/voixagent/validation"
)

// DefaultFallbacks names the built-in provider used per capability when the
// requested one cannot be constructed for lack of credentials.
var DefaultFallbacks = map[provider.Capability]string{
	provider.Transcription: "local",
	provider.Generation:    "echo",
	provider.Synthesis:     "local",
}

// PolicyFunc returns the call policy for one capability of one session. It is
// called on every Resolve so circuit breakers are not shared across sessions.
type PolicyFunc func(provider.Capability) provider.ResilienceConfig

// Resolution records what was selected for one capability.
type Resolution struct {
	Capability provider.Capability `json:"capability"`
	Requested  string              `json:"requested"`
	Provider   string              `json:"provider"`
	Model      string              `json:"model,omitempty"`
	Fallback   bool                `json:"fallback"`
	Reason     string              `json:"reason,omitempty"`
}

// Set is one session's provider handles.
type Set struct {
	STT         transcription.Provider
	LLM         llm.Provider
	TTS         synthesis.Provider
	Resolutions []Resolution
}

// Close releases every handle that holds resources.
func (s *Set) Close(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return provider.CloseAll(ctx, s.STT, s.LLM, s.TTS)
}

// Resolution returns the record for a capability.
func (s *Set) Resolution(capability provider.Capability) (Resolution, bool) {
	for _, r := range s.Resolutions {
		if r.Capability == capability {
			return r, true
		}
	}
	return Resolution{}, false
}

// Resolver builds provider Sets from agent configuration.
type Resolver struct {
	catalog   *Catalog
	lookup    func(string) (string, bool)
	log       *logger.Logger
	metrics   *observability.VoiceMetrics
	policy    PolicyFunc
	fallbacks map[provider.Capability]string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookup sets the credential lookup. Defaults to os.LookupEnv.
func WithLookup(lookup func(string) (string, bool)) Option {
	return func(r *Resolver) { r.lookup = lookup }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithMetrics records capability calls on the voice instruments.
func WithMetrics(m *observability.VoiceMetrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithPolicy sets the per-session call policy.
func WithPolicy(policy PolicyFunc) Option {
	return func(r *Resolver) { r.policy = policy }
}

// WithFallback overrides the fallback provider for a capability. The named
// provider must be a built-in registration.
func WithFallback(capability provider.Capability, name string) Option {
	return func(r *Resolver) { r.fallbacks[capability] = name }
}

// New creates a Resolver over catalog.
func New(catalog *Catalog, opts ...Option) *Resolver {
	r := &Resolver{
		catalog:   catalog,
		lookup:    os.LookupEnv,
		log:       logger.Get("resolver"),
		fallbacks: make(map[provider.Capability]string, len(DefaultFallbacks)),
	}
	for k, v := range DefaultFallbacks {
		r.fallbacks[k] = v
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// With returns a copy of r with opts applied. Sessions use it to bind their
// own call policy.
func (r *Resolver) With(opts ...Option) *Resolver {
	cp := *r
	cp.fallbacks = maps.Clone(r.fallbacks)
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Catalog returns the registries the resolver draws from.
func (r *Resolver) Catalog() *Catalog { return r.catalog }

// ResolveLayers composes layers from lowest to highest precedence and resolves
// the result.
func (r *Resolver) ResolveLayers(ctx context.Context, layers ...config.AgentConfig) (*Set, error) {
	return r.Resolve(ctx, config.Compose(layers...))
}

// Resolve builds all three capability handles. On error, handles already
// built are closed.
func (r *Resolver) Resolve(ctx context.Context, cfg config.AgentConfig) (*Set, error) {
	set := &Set{}
	var err error

	var stt transcription.Provider
	if stt, err = resolveCapability(r, r.catalog.STT, cfg.STT, set); err != nil {
		return nil, err
	}
	set.STT = wrap(r, provider.Transcription, stt)

	var gen llm.Provider
	if gen, err = resolveCapability(r, r.catalog.LLM, cfg.LLM, set); err != nil {
		_ = set.Close(ctx)
		return nil, err
	}
	set.LLM = wrap(r, provider.Generation, gen)

	var tts synthesis.Provider
	if tts, err = resolveCapability(r, r.catalog.TTS, cfg.TTS, set); err != nil {
		_ = set.Close(ctx)
		return nil, err
	}
	set.TTS = wrap(r, provider.Synthesis, tts)

	return set, nil
}

func resolveCapability[T provider.Provider](r *Resolver, reg *provider.Registry[T], spec provider.Spec, set *Set) (T, error) {
	p, res, err := resolveOne(r, reg, spec)
	if err != nil {
		return p, err
	}
	set.Resolutions = append(set.Resolutions, res)
	return p, nil
}

func resolveOne[T provider.Provider](r *Resolver, reg *provider.Registry[T], spec provider.Spec) (T, Resolution, error) {
	var zero T
	capability := reg.Capability()
	res := Resolution{Capability: capability, Requested: spec.Provider}

	if spec.Provider == "" {
		return zero, res, errors.Configuration(fmt.Sprintf("no %s provider configured", capability))
	}
	entry, ok := reg.Lookup(spec.Provider)
	if !ok {
		return zero, res, errors.UnsupportedProvider(string(capability), spec.Provider)
	}
	if err := validation.Validate(spec); err != nil {
		return zero, res, errors.Configuration(fmt.Sprintf("invalid %s provider spec", capability)).WithCause(err)
	}
	if err := checkExtra(capability, entry.Name, entry.ExtraKeys, spec.Extra); err != nil {
		return zero, res, err
	}

	if !entry.Builtin && (entry.CredentialEnv != "" || spec.CredentialRef != "") {
		key, found := spec.Credential(r.lookup, entry.CredentialEnv)
		if !found {
			ref := util.Coalesce(spec.CredentialRef, entry.CredentialEnv)
			return fallback(r, reg, res, errors.MissingCredential(string(capability), spec.Provider, ref))
		}
		spec.APIKey = key
	}

	p, err := entry.Factory(spec)
	if err != nil {
		return zero, res, err
	}
	res.Provider = entry.Name
	res.Model = spec.Model
	return p, res, nil
}

func fallback[T provider.Provider](r *Resolver, reg *provider.Registry[T], res Resolution, reason error) (T, Resolution, error) {
	var zero T
	capability := reg.Capability()
	name := r.fallbacks[capability]
	entry, ok := reg.Lookup(name)
	if !ok || !entry.Builtin {
		return zero, res, errors.Configuration(fmt.Sprintf("no built-in %s fallback available", capability)).WithCause(reason)
	}

	r.log.Warn("provider unavailable, using fallback", logger.Fields(
		logger.FieldCapability, string(capability),
		logger.FieldProvider, res.Requested,
		"fallback", name,
		"reason", reason.Error(),
	))

	p, err := entry.Factory(provider.Spec{Provider: name})
	if err != nil {
		return zero, res, errors.Configuration(fmt.Sprintf("%s fallback %q failed", capability, name)).WithCause(err)
	}
	res.Provider = name
	res.Fallback = true
	res.Reason = reason.Error()
	return p, res, nil
}

func checkExtra(capability provider.Capability, name string, known []string, extra map[string]any) error {
	for _, key := range util.SortedKeys(extra) {
		if !slices.Contains(known, key) {
			return errors.Configuration(fmt.Sprintf("%s provider %q does not accept extra parameter %q", capability, name, key)).
				WithDetail("accepted", known)
		}
	}
	return nil
}

func wrap[I, O any](r *Resolver, capability provider.Capability, p provider.RequestResponse[I, O]) provider.RequestResponse[I, O] {
	var metrics, policy provider.Middleware[I, O]
	if r.metrics != nil {
		metrics = provider.WithMetrics[I, O](r.metrics, capability)
	}
	if r.policy != nil {
		policy = provider.WithResilience[I, O](r.policy(capability))
	}
	return provider.Chain(
		provider.WithLogging[I, O](r.log, capability),
		provider.WithTracing[I, O](capability),
		metrics,
		policy,
	)(p)
}
