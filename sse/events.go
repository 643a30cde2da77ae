package sse

// Event types written on the "event:" line of a frame.
const (
	// EventTypeConnected is sent once when a client connects.
	EventTypeConnected = "connected"

	// EventTypeKeepAlive is used for keep-alive comments.
	EventTypeKeepAlive = "keepalive"

	// EventTypeMetric carries one metrics.Event as JSON.
	EventTypeMetric = "metric"

	// EventTypeError is sent when the stream cannot continue.
	EventTypeError = "error"
)

// Frame is one SSE message.
type Frame struct {
	Event string
	Data  []byte
}
