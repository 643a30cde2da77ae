package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/voixagent/voixagent/errors"
)

// Client sends requests to one provider API. Every failure it returns is an
// *errors.AppError except caller cancellation, which is returned as is.
type Client struct {
	hc  *http.Client
	cfg Config
}

// New creates a Client with its own connection pool.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	return &Client{hc: &http.Client{Transport: transport, Timeout: cfg.Timeout}, cfg: cfg}, nil
}

// Name returns the service name used in errors.
func (c *Client) Name() string { return c.cfg.Name }

// Do sends req and reads the whole response. A non-2xx response is returned
// along with the error errors.FromHTTPStatus classifies it as.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	hreq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	hresp, err := c.hc.Do(hreq)
	if err != nil {
		return nil, c.classify(ctx, err)
	}
	defer hresp.Body.Close()

	body, err := io.ReadAll(hresp.Body)
	if err != nil {
		return nil, c.classify(ctx, fmt.Errorf("read response body: %w", err))
	}
	resp := &Response{StatusCode: hresp.StatusCode, Headers: make(map[string]string, len(hresp.Header)), Body: body}
	for k := range hresp.Header {
		resp.Headers[k] = hresp.Header.Get(k)
	}
	if !resp.IsSuccess() {
		return resp, errors.FromHTTPStatus(c.cfg.Name, resp.StatusCode, clip(body, maxErrorBody))
	}
	return resp, nil
}

// Close drops idle connections.
func (c *Client) Close(context.Context) error {
	c.hc.CloseIdleConnections()
	return nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	var ne net.Error
	if ctx.Err() != nil || (stderrors.As(err, &ne) && ne.Timeout()) {
		return errors.Timeout(c.cfg.Name).WithCause(err)
	}
	return errors.ExternalServiceError(c.cfg.Name, err)
}

func (c *Client) url(path string) string {
	if c.cfg.BaseURL == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, errors.InvalidInput("body", err.Error())
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, c.url(req.Path), body)
	if err != nil {
		return nil, errors.InvalidInput("url", err.Error())
	}
	if len(req.Query) > 0 {
		q := hreq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		hreq.URL.RawQuery = q.Encode()
	}

	h := hreq.Header
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	for _, set := range []map[string]string{c.cfg.Headers, req.Headers} {
		for k, v := range set {
			h.Set(k, v)
		}
	}
	if auth := cmpAuth(req.Auth, c.cfg.Auth); auth != nil {
		auth.apply(h)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
	return hreq, nil
}

func cmpAuth(a, b Auth) Auth {
	if a != nil {
		return a
	}
	return b
}

// encodeBody picks the wire form and content type from the Go type of body.
func encodeBody(body any) (io.Reader, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case *MultipartBody:
		return v.encode()
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(raw), "application/json", nil
}

func clip(body []byte, n int) string {
	if len(body) <= n {
		return string(body)
	}
	return string(body[:n]) + "..."
}
