// Package elevenlabs implements speech synthesis through the ElevenLabs API.
package elevenlabs

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/httpclient"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/synthesis"
)

const (
	// ProviderName is the registered name for ElevenLabs synthesis.
	ProviderName = "elevenlabs"
	// CredentialEnv is the default credential variable.
	CredentialEnv = "ELEVENLABS_API_KEY"

	defaultBaseURL = "https://api.elevenlabs.io/v1"
	defaultModel   = "eleven_turbo_v2_5"
	// Rachel, the ElevenLabs default premade voice.
	defaultVoice   = "21m00Tcm4TlvDq8ikWAM"
	defaultTimeout = 60 * time.Second
)

// Config holds configuration for the ElevenLabs provider.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	VoiceID         string
	Stability       float64
	SimilarityBoost float64
	Timeout         time.Duration
}

// Provider posts text to /text-to-speech/{voice_id}.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// NewProvider creates a new ElevenLabs provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = defaultVoice
	}
	if cfg.Stability == 0 {
		cfg.Stability = 0.5
	}
	if cfg.SimilarityBoost == 0 {
		cfg.SimilarityBoost = 0.75
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	client, err := httpclient.New(httpclient.Config{
		Name:    ProviderName,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Auth:    httpclient.APIKeyAuthHeader(cfg.APIKey, "xi-api-key"),
		Headers: map[string]string{"Accept": "audio/mpeg"},
	})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// New creates the provider from a resolved spec. The spec's voice is the
// ElevenLabs voice id.
func New(spec provider.Spec) (synthesis.Provider, error) {
	cfg := Config{BaseURL: spec.APIURL, APIKey: spec.APIKey, Model: spec.Model, VoiceID: spec.Voice}
	cfg.Stability, _ = spec.ExtraFloat("stability")
	cfg.SimilarityBoost, _ = spec.ExtraFloat("similarity_boost")
	if cfg.Stability < 0 || cfg.Stability > 1 || cfg.SimilarityBoost < 0 || cfg.SimilarityBoost > 1 {
		return nil, errors.Configuration("elevenlabs stability and similarity_boost must be between 0 and 1")
	}
	return NewProvider(cfg)
}

// Registration returns the catalog entry for ElevenLabs.
func Registration() provider.Registration[synthesis.Provider] {
	return provider.Registration[synthesis.Provider]{
		Name:          ProviderName,
		Factory:       New,
		CredentialEnv: CredentialEnv,
		ExtraKeys:     synthesis.ExtraKeys,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether a credential is configured.
func (p *Provider) IsAvailable(context.Context) bool { return p.cfg.APIKey != "" }

// Close releases idle connections.
func (p *Provider) Close(ctx context.Context) error { return p.client.Close(ctx) }

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Execute synthesizes req.Text as MP3.
func (p *Provider) Execute(ctx context.Context, req synthesis.Request) (synthesis.Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return synthesis.Audio{}, errors.InvalidInput("text", "text is empty")
	}
	voice := req.Voice
	if voice == "" {
		voice = p.cfg.VoiceID
	}

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/text-to-speech/" + url.PathEscape(voice),
		Body: ttsRequest{
			Text:    req.Text,
			ModelID: p.cfg.Model,
			VoiceSettings: voiceSettings{
				Stability:       p.cfg.Stability,
				SimilarityBoost: p.cfg.SimilarityBoost,
			},
		},
	})
	if err != nil {
		return synthesis.Audio{}, err
	}
	return synthesis.Audio{
		Data:        resp.Body,
		Format:      synthesis.FormatMP3,
		ContentType: synthesis.ContentType(synthesis.FormatMP3),
		Text:        req.Text,
	}, nil
}
