package sse

import (
	"context"
	"fmt"
	"sync"

	"github.com/voixagent/voixagent/component"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Hub under the application lifecycle.
type Component struct {
	hub     *Hub
	path    string
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewComponent creates a component serving path.
func NewComponent(path string) *Component {
	return &Component{hub: NewHub(), path: path}
}

// Hub returns the underlying Hub.
func (c *Component) Hub() *Hub { return c.hub }

// Name implements component.Component.
func (c *Component) Name() string { return "sse" }

// Start launches the hub loop.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	c.started = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

// Stop closes every stream and waits for the loop to exit.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hub.Stop()
	c.wg.Wait()
	return nil
}

// Health reports the number of connected clients.
func (c *Component) Health(_ context.Context) component.Health {
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d clients connected, %d events dropped", c.hub.ClientCount(), c.hub.Dropped()),
	}
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Metrics stream",
		Type:    "sse",
		Details: fmt.Sprintf("Path: %s", c.path),
	}
}
