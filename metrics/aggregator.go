package metrics

import (
	"context"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voixagent/voixagent/component"
	"github.com/voixagent/voixagent/logger"
)

// DefaultCapacity is the ring size used when none is configured.
const DefaultCapacity = 1000

// Config configures an Aggregator.
type Config struct {
	// Capacity is the number of events kept in the ring.
	Capacity int
	// ObserverQueue is the per-observer buffer. Events are dropped for an
	// observer whose queue is full.
	ObserverQueue int
	// PublishInterval is the minimum time between two publications.
	PublishInterval time.Duration
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.ObserverQueue <= 0 {
		c.ObserverQueue = 256
	}
	if c.PublishInterval <= 0 {
		c.PublishInterval = 250 * time.Millisecond
	}
}

// Aggregator is the process-wide metrics service. Record is safe for
// concurrent use; writers are serialized and readers never block.
type Aggregator struct {
	cfg Config
	log *logger.Logger
	now func() time.Time

	mu       sync.Mutex
	ring     []Event
	next     int
	size     int
	total    int64
	counts   map[string]int64
	snapshot atomic.Pointer[Snapshot]

	lifecycle sync.RWMutex
	started   bool
	stopped   bool
	observers []*observerQueue
	publisher *publishLoop
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(a *Aggregator) { a.log = log }
}

// NewAggregator creates an Aggregator. Observers and publishers are added
// before Start.
func NewAggregator(cfg Config, opts ...Option) *Aggregator {
	cfg.ApplyDefaults()
	a := &Aggregator{
		cfg:    cfg,
		log:    logger.Get("metrics"),
		now:    time.Now,
		ring:   make([]Event, cfg.Capacity),
		counts: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.snapshot.Store(emptySnapshot(a.now()))
	a.publisher = newPublishLoop(a, cfg.PublishInterval)
	return a
}

// AddObserver registers an observer. It receives events recorded after
// Start, in order, on its own goroutine.
func (a *Aggregator) AddObserver(o Observer) {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	q := newObserverQueue(o, a.cfg.ObserverQueue, a.log)
	a.observers = append(a.observers, q)
	if a.started && !a.stopped {
		q.start()
	}
}

// AddPublisher registers a snapshot destination.
func (a *Aggregator) AddPublisher(p Publisher) {
	a.publisher.add(p)
}

// Record stores e, refreshes the snapshot and hands e to the observers.
// It never blocks on observers or publishers.
func (a *Aggregator) Record(e Event) {
	e.Metadata = maps.Clone(e.Metadata)
	if e.Timestamp.IsZero() {
		e.Timestamp = a.now()
	}

	a.mu.Lock()
	a.ring[a.next] = e
	a.next = (a.next + 1) % len(a.ring)
	if a.size < len(a.ring) {
		a.size++
	}
	a.total++
	a.counts[e.Name]++
	a.snapshot.Store(a.buildLocked())
	a.mu.Unlock()

	a.lifecycle.RLock()
	defer a.lifecycle.RUnlock()
	if a.stopped {
		return
	}
	for _, q := range a.observers {
		q.offer(e)
	}
	a.publisher.notify()
}

// Snapshot returns the latest consistent view. The result must not be
// modified.
func (a *Aggregator) Snapshot() *Snapshot {
	return a.snapshot.Load()
}

// Events returns the buffered events, oldest first.
func (a *Aggregator) Events() []Event {
	return append([]Event(nil), a.Snapshot().RecentEvents...)
}

// buildLocked assembles a new snapshot. Caller holds a.mu.
func (a *Aggregator) buildLocked() *Snapshot {
	now := a.now()
	recent := make([]Event, a.size)
	start := (a.next - a.size + len(a.ring)) % len(a.ring)
	for i := range a.size {
		recent[i] = a.ring[(start+i)%len(a.ring)]
	}

	sums := make(map[string]float64)
	buffered := make(map[string]int)
	for _, e := range recent {
		sums[e.Name] += e.Value
		buffered[e.Name]++
	}
	averages := make(map[string]float64, len(sums))
	for name, sum := range sums {
		averages[name] = sum / float64(buffered[name])
	}
	counts := make(map[string]int64, len(a.counts))
	for name, n := range a.counts {
		counts[name] = n
	}

	return &Snapshot{
		RecentEvents: recent,
		Summary: Summary{
			TotalEvents:      a.total,
			BufferedEvents:   a.size,
			CountsByName:     counts,
			AverageByName:    averages,
			ConnectionOK:     counts[ConnectionSuccess],
			ConnectionErrors: counts[ConnectionError],
			ActiveSessions:   max(counts[SessionStarted]-counts[SessionEnded], 0),
			LastUpdated:      now,
		},
		Timestamp: now,
	}
}

// Flush publishes the current snapshot to every publisher synchronously.
func (a *Aggregator) Flush(ctx context.Context) error {
	return a.publisher.publish(ctx)
}

// --- component.Component ---

// Name implements component.Component.
func (a *Aggregator) Name() string { return "metrics" }

// Start launches the observer and publisher loops.
func (a *Aggregator) Start(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()
	if a.started {
		return nil
	}
	a.started = true
	for _, q := range a.observers {
		q.start()
	}
	a.publisher.start()
	return nil
}

// Stop drains observer queues, stops publishing and writes a final snapshot.
func (a *Aggregator) Stop(ctx context.Context) error {
	a.lifecycle.Lock()
	if a.stopped {
		a.lifecycle.Unlock()
		return nil
	}
	a.stopped = true
	observers := a.observers
	a.lifecycle.Unlock()

	for _, q := range observers {
		q.stop(ctx)
	}
	a.publisher.stop(ctx)
	return a.Flush(ctx)
}

// Health reports degraded when the last publication failed or an observer
// is dropping events.
func (a *Aggregator) Health(ctx context.Context) component.Health {
	h := component.Health{Name: a.Name(), Status: component.StatusHealthy}
	if err := a.publisher.lastError(); err != nil {
		h.Status = component.StatusDegraded
		h.Message = "last publish failed: " + err.Error()
		return h
	}
	a.lifecycle.RLock()
	defer a.lifecycle.RUnlock()
	for _, q := range a.observers {
		if n := q.dropped.Load(); n > 0 {
			h.Status = component.StatusDegraded
			h.Message = q.observer.Name() + " dropped events"
			return h
		}
	}
	return h
}
