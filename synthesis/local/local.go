// Package local is the built-in synthesis fallback. It returns the reply as
// a UTF-8 text frame, which text clients display and the loopback transport
// prints.
package local

import (
	"context"

	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/synthesis"
)

// ProviderName is the registered name of the fallback.
const ProviderName = "local"

// Provider renders text as a text frame.
type Provider struct{}

// New creates the fallback. The spec is ignored.
func New(provider.Spec) (synthesis.Provider, error) { return Provider{}, nil }

func (Provider) Name() string                     { return ProviderName }
func (Provider) IsAvailable(context.Context) bool { return true }

// Execute returns the text unchanged.
func (Provider) Execute(ctx context.Context, req synthesis.Request) (synthesis.Audio, error) {
	if err := ctx.Err(); err != nil {
		return synthesis.Audio{}, err
	}
	return synthesis.Audio{
		Data:        []byte(req.Text),
		Format:      synthesis.FormatText,
		ContentType: synthesis.ContentType(synthesis.FormatText),
		Text:        req.Text,
	}, nil
}

// Registration returns the built-in catalog entry.
func Registration() provider.Registration[synthesis.Provider] {
	return provider.Registration[synthesis.Provider]{
		Name:    ProviderName,
		Factory: New,
		Builtin: true,
	}
}
