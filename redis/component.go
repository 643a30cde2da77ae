package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/voixagent/voixagent/component"
	"github.com/voixagent/voixagent/logger"
)

// Client is the go-redis connection shared by the stores.
type Client struct {
	rdb *goredis.Client

	mu     sync.Mutex
	closed bool
}

// New connects lazily; call Ping to check the server.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	return &Client{rdb: goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})}, nil
}

// Name implements provider.Provider.
func (c *Client) Name() string { return "redis" }

// IsAvailable reports whether the client is open and the server answers.
func (c *Client) IsAvailable(ctx context.Context) bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	return !closed && c.Ping(ctx) == nil
}

// Ping round-trips a PING.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rdb.Close()
}

// Component owns the Client lifecycle. The client exists only between Start
// and Stop.
type Component struct {
	cfg    Config
	log    *logger.Logger
	client *Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the redis component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client returns the connection, or nil before Start.
func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return "redis" }

// Start connects and fails unless the server answers a ping.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg)
	if err != nil {
		return err
	}
	started := time.Now()
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return err
	}
	c.client = client
	c.log.Info("redis connected", logger.Fields(
		"addr", c.cfg.Addr, "db", c.cfg.DB, logger.FieldDuration, time.Since(started).Milliseconds(),
	))
	return nil
}

// Stop closes the connection.
func (c *Component) Stop(context.Context) error {
	if c.client == nil {
		return nil
	}
	c.log.Info("redis closing")
	return c.client.Close()
}

// Health pings the server.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.client == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	case !c.client.IsAvailable(ctx):
		h.Status, h.Message = component.StatusUnhealthy, "ping failed"
	}
	return h
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Redis",
		Type:    "redis",
		Details: fmt.Sprintf("%s db=%d prefix=%s", c.cfg.Addr, c.cfg.DB, c.cfg.KeyPrefix),
	}
}
