package llm

import "github.com/voixagent/voixagent/provider"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider is a generation backend.
type Provider = provider.RequestResponse[Request, Response]

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// User returns a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// Assistant returns an assistant message.
func Assistant(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Request is the universal input for all generation providers.
type Request struct {
	// Model overrides the adapter's default model.
	Model string `json:"model,omitempty"`
	// Messages is the conversation, oldest first, without the system prompt.
	Messages []Message `json:"messages"`
	// SystemPrompt carries the agent instructions.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// Temperature overrides the adapter default when set.
	Temperature *float64 `json:"temperature,omitempty"`
	// MaxTokens limits the response length. 0 means the adapter default.
	MaxTokens int `json:"max_tokens,omitempty"`
	// Extra holds provider-specific parameters such as top_p.
	Extra map[string]any `json:"extra,omitempty"`
}

// LastUserMessage returns the content of the most recent user message.
func (r Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}

// Response is the universal output from all generation providers.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
