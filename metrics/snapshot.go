package metrics

import "time"

// Summary is derived from every event recorded so far, except the averages,
// which cover the buffered events only.
type Summary struct {
	TotalEvents      int64              `json:"total_events"`
	BufferedEvents   int                `json:"buffered_events"`
	CountsByName     map[string]int64   `json:"counts_by_name"`
	AverageByName    map[string]float64 `json:"average_by_name"`
	ConnectionOK     int64              `json:"connection_success"`
	ConnectionErrors int64              `json:"connection_errors"`
	ActiveSessions   int64              `json:"active_sessions"`
	LastUpdated      time.Time          `json:"last_updated"`
}

// Snapshot is the canonical published document. A Snapshot is never
// modified after it is built.
type Snapshot struct {
	RecentEvents []Event   `json:"recent_events"`
	Summary      Summary   `json:"summary"`
	Timestamp    time.Time `json:"timestamp"`
}

// Filter returns the buffered events matching name and sessionID. Empty
// arguments match everything.
func (s *Snapshot) Filter(name, sessionID string) []Event {
	var out []Event
	for _, e := range s.RecentEvents {
		if name != "" && e.Name != name {
			continue
		}
		if sessionID != "" && e.SessionID() != sessionID {
			continue
		}
		out = append(out, e)
	}
	return out
}

func emptySnapshot(now time.Time) *Snapshot {
	return &Snapshot{
		RecentEvents: []Event{},
		Summary: Summary{
			CountsByName:  map[string]int64{},
			AverageByName: map[string]float64{},
			LastUpdated:   now,
		},
		Timestamp: now,
	}
}
