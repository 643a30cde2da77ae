// Package openai implements the OpenAI chat completions dialect.
package openai

import (
	"encoding/json"
	"fmt"

	"github.com/voixagent/voixagent/httpclient"
	"github.com/voixagent/voixagent/llm"
	"github.com/voixagent/voixagent/provider"
)

const (
	// ProviderName is the registered name for OpenAI generation.
	ProviderName = "openai"
	// CredentialEnv is the default credential variable.
	CredentialEnv = "OPENAI_API_KEY"

	defaultBaseURL = "https://api.openai.com/v1"
)

// Dialect maps llm types to the /chat/completions format.
type Dialect struct{}

func (Dialect) Name() string               { return ProviderName }
func (Dialect) DefaultBaseURL() string     { return defaultBaseURL }
func (Dialect) ChatPath() string           { return "/chat/completions" }
func (Dialect) Headers() map[string]string { return nil }

func (Dialect) Auth(key string) httpclient.Auth {
	return httpclient.BearerAuth(key)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Temperature      *float64      `json:"temperature,omitempty"`
	MaxTokens        int           `json:"max_tokens,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// BuildRequest maps a Request to a chat completion body. The system prompt
// becomes the first message.
func (Dialect) BuildRequest(req llm.Request) (any, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	body := chatRequest{
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: llm.RoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	body.TopP = floatExtra(req.Extra, "top_p")
	body.PresencePenalty = floatExtra(req.Extra, "presence_penalty")
	body.FrequencyPenalty = floatExtra(req.Extra, "frequency_penalty")
	return body, nil
}

// ParseResponse reads the first choice.
func (Dialect) ParseResponse(data []byte) (*llm.Response, error) {
	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("response has no choices")
	}
	return &llm.Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func floatExtra(extra map[string]any, key string) *float64 {
	v, ok := provider.Spec{Extra: extra}.ExtraFloat(key)
	if !ok {
		return nil
	}
	return &v
}

// New creates an OpenAI generation provider from a resolved spec.
func New(spec provider.Spec) (llm.Provider, error) {
	return llm.NewAdapter(Dialect{}, llm.ConfigFromSpec(spec))
}

// Registration returns the catalog entry for OpenAI generation.
func Registration() provider.Registration[llm.Provider] {
	return provider.Registration[llm.Provider]{
		Name:          ProviderName,
		Factory:       New,
		CredentialEnv: CredentialEnv,
		ExtraKeys:     llm.ExtraKeys,
	}
}
