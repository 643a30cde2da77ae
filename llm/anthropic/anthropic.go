// Package anthropic implements the Anthropic messages dialect.
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voixagent/voixagent/httpclient"
	"github.com/voixagent/voixagent/llm"
	"github.com/voixagent/voixagent/provider"
)

const (
	// ProviderName is the registered name for Anthropic generation.
	ProviderName = "anthropic"
	// CredentialEnv is the default credential variable.
	CredentialEnv = "ANTHROPIC_API_KEY"

	defaultBaseURL   = "https://api.anthropic.com/v1"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 1024
)

// Dialect maps llm types to the /messages format.
type Dialect struct{}

func (Dialect) Name() string           { return ProviderName }
func (Dialect) DefaultBaseURL() string { return defaultBaseURL }
func (Dialect) ChatPath() string       { return "/messages" }

func (Dialect) Headers() map[string]string {
	return map[string]string{"anthropic-version": apiVersion}
}

func (Dialect) Auth(key string) httpclient.Auth {
	return httpclient.APIKeyAuthHeader(key, "x-api-key")
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// BuildRequest maps a Request to a messages body. max_tokens is mandatory
// for this API and defaults to 1024. Anthropic temperatures are capped at 1.
func (Dialect) BuildRequest(req llm.Request) (any, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	body := messagesRequest{
		Model:     req.Model,
		System:    req.SystemPrompt,
		MaxTokens: req.MaxTokens,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = defaultMaxTokens
	}
	if req.Temperature != nil {
		t := min(*req.Temperature, 1)
		body.Temperature = &t
	}
	if v, ok := (provider.Spec{Extra: req.Extra}).ExtraFloat("top_p"); ok {
		body.TopP = &v
	}
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			body.System = strings.TrimSpace(body.System + "\n\n" + m.Content)
			continue
		}
		body.Messages = append(body.Messages, message{Role: m.Role, Content: m.Content})
	}
	if len(body.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}
	return body, nil
}

// ParseResponse concatenates the text blocks of the reply.
func (Dialect) ParseResponse(data []byte) (*llm.Response, error) {
	var resp messagesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &llm.Response{
		Content: text.String(),
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// New creates an Anthropic generation provider from a resolved spec.
func New(spec provider.Spec) (llm.Provider, error) {
	return llm.NewAdapter(Dialect{}, llm.ConfigFromSpec(spec))
}

// Registration returns the catalog entry for Anthropic generation.
func Registration() provider.Registration[llm.Provider] {
	return provider.Registration[llm.Provider]{
		Name:          ProviderName,
		Factory:       New,
		CredentialEnv: CredentialEnv,
		ExtraKeys:     llm.ExtraKeys,
	}
}
