// Package echo is the built-in generation fallback. It answers without any
// network call, so a session stays usable when no provider is configured.
package echo

import (
	"context"
	"strings"

	"github.com/voixagent/voixagent/llm"
	"github.com/voixagent/voixagent/provider"
)

// ProviderName is the registered name of the fallback.
const ProviderName = "echo"

const defaultReply = "I'm here. What would you like to talk about?"

// Provider repeats the last user message back.
type Provider struct{}

// New creates the echo provider. The spec is ignored.
func New(provider.Spec) (llm.Provider, error) { return Provider{}, nil }

func (Provider) Name() string                     { return ProviderName }
func (Provider) IsAvailable(context.Context) bool { return true }

// Execute replies with "You said: <message>".
func (Provider) Execute(ctx context.Context, req llm.Request) (llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return llm.Response{}, err
	}
	reply := defaultReply
	if msg := strings.TrimSpace(req.LastUserMessage()); msg != "" {
		reply = "You said: " + msg
	}
	return llm.Response{Content: reply, Model: ProviderName}, nil
}

// Registration returns the built-in catalog entry.
func Registration() provider.Registration[llm.Provider] {
	return provider.Registration[llm.Provider]{
		Name:    ProviderName,
		Factory: New,
		Builtin: true,
	}
}
