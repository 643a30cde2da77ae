package metrics

import "time"

// Event names recorded by the runtime.
const (
	ConnectionSuccess = "connection_success"
	ConnectionError   = "connection_error"
	SessionStarted    = "session_started"
	SessionEnded      = "session_ended"
	STTLatency        = "stt_latency"
	LLMLatency        = "llm_latency"
	TTSLatency        = "tts_latency"
	TotalLatency      = "total_latency"
	PluginProcessing  = "plugin_processing"
	PluginError       = "plugin_error"
	TurnError         = "turn_error"
)

// Units.
const (
	UnitMilliseconds = "ms"
	UnitSeconds      = "s"
	UnitCount        = "count"
)

// Metadata keys.
const (
	MetaSessionID = "session_id"
	MetaRoom      = "room"
	MetaPlugin    = "plugin"
	MetaProvider  = "provider"
	MetaError     = "error"
)

// Event is one immutable measurement.
type Event struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Unit      string            `json:"unit"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewEvent creates an event stamped with the current time. kv is a list of
// metadata key/value pairs.
func NewEvent(name string, value float64, unit string, kv ...string) Event {
	e := Event{Name: name, Value: value, Unit: unit, Timestamp: time.Now()}
	if len(kv) > 1 {
		e.Metadata = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Metadata[kv[i]] = kv[i+1]
		}
	}
	return e
}

// SessionEvent creates an event tagged with a session id.
func SessionEvent(sessionID, name string, value float64, unit string, kv ...string) Event {
	return NewEvent(name, value, unit, append([]string{MetaSessionID, sessionID}, kv...)...)
}

// SessionID returns the session the event belongs to, if any.
func (e Event) SessionID() string { return e.Metadata[MetaSessionID] }

// Recorder accepts events. Record must not block on downstream consumers.
type Recorder interface {
	Record(e Event)
}

// Discard is a Recorder that drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(Event) {}
