// Package local is the built-in transcription fallback. It accepts text
// frames, as sent by the chat CLI and text-mode websocket clients, and
// returns them as the transcript.
package local

import (
	"context"
	"strings"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/transcription"
)

// ProviderName is the registered name of the fallback.
const ProviderName = "local"

// Provider transcribes text frames by decoding them.
type Provider struct{}

// New creates the fallback. The spec is ignored.
func New(provider.Spec) (transcription.Provider, error) { return Provider{}, nil }

func (Provider) Name() string                     { return ProviderName }
func (Provider) IsAvailable(context.Context) bool { return true }

// Execute returns text input unchanged. Audio cannot be recognized locally.
func (Provider) Execute(ctx context.Context, req transcription.Request) (transcription.Result, error) {
	if err := ctx.Err(); err != nil {
		return transcription.Result{}, err
	}
	if !req.IsText() {
		return transcription.Result{}, errors.InvalidInput("format",
			"the local transcriber only accepts text frames, got "+formatName(req.Format))
	}
	return transcription.Result{Text: strings.TrimSpace(string(req.Audio)), Language: req.Language}, nil
}

func formatName(f string) string {
	if f == "" {
		return "unspecified"
	}
	return f
}

// Registration returns the built-in catalog entry.
func Registration() provider.Registration[transcription.Provider] {
	return provider.Registration[transcription.Provider]{
		Name:    ProviderName,
		Factory: New,
		Builtin: true,
	}
}
