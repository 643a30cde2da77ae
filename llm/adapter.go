package llm

import (
	"context"
	"fmt"
	"maps"
	"net/http"

	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/httpclient"
)

// Adapter is a config-driven generation client that works with any provider
// through a Dialect.
type Adapter struct {
	client  *httpclient.Client
	dialect Dialect
	cfg     Config
}

// NewAdapter creates an adapter for dialect.
func NewAdapter(dialect Dialect, cfg Config) (*Adapter, error) {
	if dialect == nil {
		return nil, errors.Configuration("llm: dialect is required")
	}
	cfg.applyDefaults(dialect)

	client, err := httpclient.New(httpclient.Config{
		Name:    cfg.Name,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Auth:    dialect.Auth(cfg.APIKey),
		Headers: dialect.Headers(),
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{client: client, dialect: dialect, cfg: cfg}, nil
}

// Name returns the adapter name.
func (a *Adapter) Name() string { return a.cfg.Name }

// IsAvailable reports whether the adapter has a credential to call with.
func (a *Adapter) IsAvailable(context.Context) bool { return a.cfg.APIKey != "" }

// Close releases idle connections.
func (a *Adapter) Close(ctx context.Context) error { return a.client.Close(ctx) }

// Dialect returns the dialect used by this adapter.
func (a *Adapter) Dialect() Dialect { return a.dialect }

// Execute sends a completion request and returns the full response.
func (a *Adapter) Execute(ctx context.Context, req Request) (Response, error) {
	a.applyDefaults(&req)

	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return Response{}, errors.InvalidInput("request", fmt.Sprintf("llm: build request: %v", err))
	}

	resp, err := a.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   a.dialect.ChatPath(),
		Body:   body,
	})
	if err != nil {
		return Response{}, err
	}

	result, err := a.dialect.ParseResponse(resp.Body)
	if err != nil {
		return Response{}, errors.ExternalServiceError(a.cfg.Name, fmt.Errorf("parse response: %w", err))
	}
	if result.Model == "" {
		result.Model = req.Model
	}
	return *result, nil
}

func (a *Adapter) applyDefaults(req *Request) {
	if req.Model == "" {
		req.Model = a.cfg.Model
	}
	if req.Temperature == nil && a.cfg.Temperature != nil {
		t := *a.cfg.Temperature
		req.Temperature = &t
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = a.cfg.MaxTokens
	}
	if len(a.cfg.Extra) > 0 {
		extra := maps.Clone(a.cfg.Extra)
		maps.Copy(extra, req.Extra)
		req.Extra = extra
	}
}
