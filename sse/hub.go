package sse

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/metrics"
)

// Hub manages SSE clients and fans metric events out to them. All client
// channel writes and closes happen on the Run goroutine.
type Hub struct {
	log        *logger.Logger
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan metrics.Event
	done       chan struct{}
	stopOnce   sync.Once
	dropped    atomic.Int64
	mu         sync.RWMutex
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		log:        logger.Get("sse"),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan metrics.Event, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[client.id]; ok {
				old.close()
			}
			h.clients[client.id] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client registered", logger.Fields("client_id", client.id, "total_clients", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.id]; ok && current == client {
				delete(h.clients, client.id)
				client.close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client unregistered", logger.Fields("client_id", client.id, "total_clients", total))

		case e := <-h.broadcast:
			h.fanOut(e)
		}
	}
}

// Stop shuts the hub down and closes every client. Safe to call more than
// once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client. It returns false when the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Name implements metrics.Observer.
func (h *Hub) Name() string { return "sse" }

// Observe implements metrics.Observer.
func (h *Hub) Observe(ctx context.Context, e metrics.Event) error {
	select {
	case h.broadcast <- e:
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (h *Hub) fanOut(e metrics.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		h.log.Error("encode metric event", logger.ErrorFields("fan_out", err))
		return
	}
	frame := Frame{Event: EventTypeMetric, Data: data}
	for _, client := range h.clients {
		if !client.Wants(e) {
			continue
		}
		if !client.send(frame) {
			h.dropped.Add(1)
			h.log.Warn("client buffer full, dropping event", logger.Fields("client_id", client.id, "event", e.Name))
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.close()
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many frames were discarded for slow clients.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }

var _ metrics.Observer = (*Hub)(nil)
