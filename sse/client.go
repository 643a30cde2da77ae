package sse

import (
	"path"

	"github.com/voixagent/voixagent/metrics"
)

const clientBuffer = 256

// Client is one connected stream.
type Client struct {
	id        string
	sessionID string
	pattern   string
	frames    chan Frame
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithSessionID limits the client to events of one session. An empty id
// keeps every event.
func WithSessionID(sessionID string) ClientOption {
	return func(c *Client) { c.sessionID = sessionID }
}

// WithNamePattern limits the client to events whose name matches a glob
// pattern such as "*_latency". An empty pattern keeps every event.
func WithNamePattern(pattern string) ClientOption {
	return func(c *Client) { c.pattern = pattern }
}

// NewClient creates a client.
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:     id,
		frames: make(chan Frame, clientBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the client's identifier.
func (c *Client) ID() string { return c.id }

// SessionID returns the session filter.
func (c *Client) SessionID() string { return c.sessionID }

// Frames returns the channel the hub writes to. It is closed when the
// client is unregistered or the hub stops.
func (c *Client) Frames() <-chan Frame { return c.frames }

// Wants reports whether e passes the client's filters.
func (c *Client) Wants(e metrics.Event) bool {
	if c.sessionID != "" && e.SessionID() != c.sessionID {
		return false
	}
	if c.pattern != "" {
		ok, err := path.Match(c.pattern, e.Name)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// send queues f and reports false when the client's buffer is full.
func (c *Client) send(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		return false
	}
}

func (c *Client) close() { close(c.frames) }
