package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/voixagent/voixagent/logger"
)

// KeepAliveInterval is kept below common proxy idle timeouts.
var KeepAliveInterval = 30 * time.Second

// ConnectedEvent is the payload of the first frame.
type ConnectedEvent struct {
	ClientID  string `json:"client_id"`
	SessionID string `json:"session_id,omitempty"`
}

// ServeSSE streams metric events to one HTTP client until the request is
// canceled or the hub stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, opts ...ClientOption) {
	log := hub.log.WithContext(r.Context())
	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported", logger.Fields("client_id", clientID))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Streams outlive the server's WriteTimeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not disable write deadline", logger.MergeWithError(logger.Fields("client_id", clientID), err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(clientID, opts...)
	if !hub.Register(client) {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: clientID, SessionID: client.SessionID()})
	writeFrame(w, Frame{Event: EventTypeConnected, Data: connected})
	flusher.Flush()
	log.Debug("client connected", logger.Fields("client_id", clientID, "remote_addr", r.RemoteAddr))

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected", logger.Fields("client_id", clientID))
			return
		case frame, ok := <-client.Frames():
			if !ok {
				return
			}
			writeFrame(w, frame)
			flusher.Flush()
		case <-keepAlive.C:
			_, _ = fmt.Fprintf(w, ": %s %d\n\n", EventTypeKeepAlive, time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, f Frame) {
	if f.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", f.Event)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", f.Data)
}
