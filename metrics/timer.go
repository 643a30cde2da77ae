package metrics

import "time"

// Timer measures one operation and records its duration in milliseconds.
type Timer struct {
	rec   Recorder
	name  string
	kv    []string
	start time.Time
}

// StartTimer starts timing name. kv is metadata attached to the event.
func StartTimer(rec Recorder, name string, kv ...string) *Timer {
	return &Timer{rec: rec, name: name, kv: kv, start: time.Now()}
}

// Stop records the elapsed time and returns it in milliseconds.
func (t *Timer) Stop() float64 {
	ms := float64(time.Since(t.start).Microseconds()) / 1000
	t.rec.Record(NewEvent(t.name, ms, UnitMilliseconds, t.kv...))
	return ms
}
