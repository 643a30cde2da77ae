// Package openai implements transcription through the OpenAI audio API.
package openai

import (
	"context"
	"net/http"
	"time"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/httpclient"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/transcription"
)

const (
	// ProviderName is the registered name for OpenAI transcription.
	ProviderName = "openai"
	// CredentialEnv is the default credential variable.
	CredentialEnv = "OPENAI_API_KEY"

	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
	defaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI transcription provider.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Prompt   string
	Timeout  time.Duration
}

// Provider uploads audio as multipart form data to /audio/transcriptions.
type Provider struct {
	cfg    Config
	client *httpclient.Client
}

// NewProvider creates a new OpenAI transcription provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	client, err := httpclient.New(httpclient.Config{
		Name:    "openai-stt",
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
func New(spec provider.Spec) (transcription.Provider, error) {
	cfg := Config{BaseURL: spec.APIURL, APIKey: spec.APIKey, Model: spec.Model}
	cfg.Language, _ = spec.ExtraString("language")
	cfg.Prompt, _ = spec.ExtraString("prompt")
	return NewProvider(cfg)
}

// Registration returns the catalog entry for OpenAI transcription.
func Registration() provider.Registration[transcription.Provider] {
	return provider.Registration[transcription.Provider]{
		Name:          ProviderName,
		Factory:       New,
		CredentialEnv: CredentialEnv,
		ExtraKeys:     transcription.ExtraKeys,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether a credential is configured.
func (p *Provider) IsAvailable(context.Context) bool { return p.cfg.APIKey != "" }

// Close releases idle connections.
func (p *Provider) Close(ctx context.Context) error { return p.client.Close(ctx) }

type transcriptionResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// Execute transcribes one utterance.
func (p *Provider) Execute(ctx context.Context, req transcription.Request) (transcription.Result, error) {
	if len(req.Audio) == 0 {
		return transcription.Result{}, errors.InvalidInput("audio", "audio is empty")
	}

	format := req.Format
	if format == "" || format == transcription.FormatPCM {
		format = transcription.FormatWAV
	}
	fields := map[string]string{
		"model":           p.cfg.Model,
		"response_format": "verbose_json",
	}
	if lang := firstNonEmpty(req.Language, p.cfg.Language); lang != "" {
		fields["language"] = lang
	}
	if prompt := firstNonEmpty(req.Prompt, p.cfg.Prompt); prompt != "" {
		fields["prompt"] = prompt
	}

	resp, err := p.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/audio/transcriptions",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName: "file",
				FileName:  "audio." + format,
				Data:      req.Audio,
			}},
		},
	})
	if err != nil {
		return transcription.Result{}, err
	}

	out, err := httpclient.DecodeJSON[transcriptionResponse](p.client.Name(), resp)
	if err != nil {
		return transcription.Result{}, err
	}
	return transcription.Result{Text: out.Text, Language: out.Language, Duration: out.Duration}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
