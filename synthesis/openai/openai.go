// Package openai implements speech synthesis through the OpenAI audio API.
package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/httpclient"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/synthesis"
)

const (
	// ProviderName is the registered name for OpenAI synthesis.
	ProviderName = "openai"
	// CredentialEnv is the default credential variable.
	CredentialEnv = "OPENAI_API_KEY"

	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "tts-1"
	defaultVoice   = "alloy"
	defaultTimeout = 60 * time.Second
)

// Config holds configuration for the OpenAI synthesis provider.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Voice   string
	Format  string
	// Speed ranges 0.25 to 4.0. Zero uses the API default.
	Speed   float64
	Timeout time.Duration
}

// Provider posts text to /audio/speech.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// NewProvider creates a new OpenAI synthesis provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.Format == "" {
		cfg.Format = synthesis.FormatMP3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	client, err := httpclient.New(httpclient.Config{
		Name:    "openai-tts",
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Auth:    httpclient.BearerAuth(cfg.APIKey),
	})
	if err != nil {
		return nil, err
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// New creates the provider from a resolved spec.
func New(spec provider.Spec) (synthesis.Provider, error) {
	cfg := Config{BaseURL: spec.APIURL, APIKey: spec.APIKey, Model: spec.Model, Voice: spec.Voice}
	cfg.Format, _ = spec.ExtraString("format")
	cfg.Speed, _ = spec.ExtraFloat("speed")
	if cfg.Speed != 0 && (cfg.Speed < 0.25 || cfg.Speed > 4) {
		return nil, errors.Configuration("openai tts speed must be between 0.25 and 4.0")
	}
	return NewProvider(cfg)
}

// Registration returns the catalog entry for OpenAI synthesis.
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

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	Speed          float64 `json:"speed,omitempty"`
}

// Execute synthesizes req.Text.
func (p *Provider) Execute(ctx context.Context, req synthesis.Request) (synthesis.Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return synthesis.Audio{}, errors.InvalidInput("text", "text is empty")
	}
	voice := req.Voice
	if voice == "" {
		voice = p.cfg.Voice
	}
	format := req.Format
	if format == "" || format == synthesis.FormatText {
		format = p.cfg.Format
	}

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/audio/speech",
		Body: speechRequest{
			Model:          p.cfg.Model,
			Input:          req.Text,
			Voice:          voice,
			ResponseFormat: format,
			Speed:          p.cfg.Speed,
		},
	})
	if err != nil {
		return synthesis.Audio{}, err
	}

	contentType := resp.Headers["Content-Type"]
	if contentType == "" {
		contentType = synthesis.ContentType(format)
	}
	return synthesis.Audio{Data: resp.Body, Format: format, ContentType: contentType, Text: req.Text}, nil
}
