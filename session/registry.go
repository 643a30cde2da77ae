package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/voixagent/voixagent/component"
	"github.com/voixagent/voixagent/config"
	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/media"
	"github.com/voixagent/voixagent/metrics"
	"github.com/voixagent/voixagent/plugin"
	"github.com/voixagent/voixagent/resolver"
)

const defaultCapabilityTimeout = 30 * time.Second

// Registry owns every session of the process. It is safe for concurrent
// use; no provider I/O happens while its lock is held.
type Registry struct {
	cfg      Config
	source   config.Source
	resolver *resolver.Resolver
	plugins  *plugin.Registry
	attacher media.Attacher
	recorder metrics.Recorder
	log      *logger.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	stopped  bool

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy

	janitorStop chan struct{}
	janitorDone chan struct{}
}

// Option configures a Registry.
type Option func(*Registry)

// WithAttacher sets the media transport used when CreateSession is not
// given a connection. Without one, sessions are driven through Turn only.
func WithAttacher(a media.Attacher) Option {
	return func(r *Registry) { r.attacher = a }
}

// WithRecorder sets where session metric events go.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// WithLogger sets the logger.
func WithLogger(log *logger.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithClock overrides time.Now for lifecycle timestamps and retention.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates a Registry reading agent configuration from source at
// each CreateSession.
func NewRegistry(cfg Config, source config.Source, res *resolver.Resolver, plugins *plugin.Registry, opts ...Option) *Registry {
	cfg.ApplyDefaults()
	r := &Registry{
		cfg:      cfg,
		source:   source,
		resolver: res,
		plugins:  plugins,
		recorder: metrics.Discard,
		log:      logger.Get("sessions"),
		now:      time.Now,
		sessions: make(map[string]*Session),
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateOption customizes one CreateSession call.
type CreateOption func(*createOptions)

type createOptions struct {
	override *config.AgentConfig
	attacher media.Attacher
}

// WithOverride layers cfg above the current agent configuration for this
// session only.
func WithOverride(cfg config.AgentConfig) CreateOption {
	return func(o *createOptions) { o.override = &cfg }
}

// WithConn attaches an established media connection.
func WithConn(conn media.Conn) CreateOption {
	return func(o *createOptions) { o.attacher = media.Attached(conn) }
}

// CreateSession registers a session and brings it to Active. An empty id
// is replaced by a generated one. A live session with the same id is a
// DuplicateSession error; any initialization failure leaves the record in
// Failed and returns a SessionCreation error.
func (r *Registry) CreateSession(ctx context.Context, id, room string, opts ...CreateOption) (Record, error) {
	var co createOptions
	for _, opt := range opts {
		opt(&co)
	}
	if id == "" {
		id = uuid.NewString()
	}

	s := newSession(r, id, room)
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return Record{}, errors.SessionCreation(id, fmt.Errorf("session registry is stopped"))
	}
	if existing, ok := r.sessions[id]; ok && !existing.State().Terminal() {
		r.mu.Unlock()
		r.log.Warn("duplicate session rejected", logger.Fields(logger.FieldSessionID, id, logger.FieldRoom, room))
		return Record{}, errors.DuplicateSession(id)
	}
	r.sessions[id] = s
	r.mu.Unlock()

	if err := r.initialize(ctx, s, co); err != nil {
		s.transition(StateFailed, err)
		s.release(context.Background())
		return s.Record(), errors.SessionCreation(id, err)
	}
	return s.Record(), nil
}

func (r *Registry) initialize(ctx context.Context, s *Session, co createOptions) error {
	s.transition(StateInitializing, nil)

	agent := r.source.Current()
	if co.override != nil {
		agent = agent.Merge(*co.override)
	}
	if err := agent.Validate(); err != nil {
		return err
	}

	timeout := agent.ResponseTimeout()
	if timeout <= 0 {
		timeout = defaultCapabilityTimeout
	}
	set, err := r.resolver.With(resolver.WithPolicy(r.cfg.Policy(timeout, s.log))).Resolve(ctx, agent)
	if err != nil {
		return err
	}

	descriptors := make([]plugin.Descriptor, 0, len(agent.Plugins))
	for _, p := range agent.Plugins {
		descriptors = append(descriptors, plugin.Descriptor{Name: p.Name, Enabled: p.Enabled, Config: plugin.Config(p.Config)})
	}
	pipe, skipped := r.plugins.Build(descriptors,
		plugin.WithLogger(s.log.WithComponent("plugins")),
		plugin.WithObserver(s.observeStage),
	)
	s.attachResources(agent, set, pipe, skipped)

	attacher := co.attacher
	if attacher == nil {
		attacher = r.attacher
	}
	var conn media.Conn
	if attacher != nil {
		conn, err = attacher.Attach(ctx, s.id, s.room)
		if err != nil {
			s.record(metrics.ConnectionError, 1, metrics.UnitCount, metrics.MetaError, err.Error())
			return fmt.Errorf("attach media: %w", err)
		}
		s.setConn(conn)
		s.record(metrics.ConnectionSuccess, 1, metrics.UnitCount)
	}

	if conn != nil {
		s.loopDone = make(chan struct{})
	}
	if !s.transition(StateActive, nil) {
		return fmt.Errorf("session left initialization in state %s", s.State())
	}
	s.record(metrics.SessionStarted, 1, metrics.UnitCount)
	if conn != nil {
		go s.run(conn)
	}

	s.mu.Lock()
	endRequested := s.endRequested
	s.mu.Unlock()
	if endRequested {
		go s.end(context.Background())
	}
	return nil
}

// EndSession closes a session: the in-flight turn gets the grace period to
// finish, then resources are released and the state becomes Terminated.
// Ending an unknown or already terminal session is a no-op.
func (r *Registry) EndSession(ctx context.Context, id string) error {
	s, ok := r.lookup(id)
	if !ok {
		return nil
	}
	s.end(ctx)
	return nil
}

// State returns the lifecycle state of a session.
func (r *Registry) State(id string) (State, error) {
	s, ok := r.lookup(id)
	if !ok {
		return "", errors.NotFound("session", id)
	}
	return s.State(), nil
}

// Get returns a session record.
func (r *Registry) Get(id string) (Record, error) {
	s, ok := r.lookup(id)
	if !ok {
		return Record{}, errors.NotFound("session", id)
	}
	return s.Record(), nil
}

// Session returns the live handle for id.
func (r *Registry) Session(id string) (*Session, bool) {
	return r.lookup(id)
}

// List returns all records, oldest first.
func (r *Registry) List() []Record {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	out := make([]Record, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Record())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Turn runs one text turn on session id.
func (r *Registry) Turn(ctx context.Context, id, text string) (*TurnResult, error) {
	s, ok := r.lookup(id)
	if !ok {
		return nil, errors.NotFound("session", id)
	}
	return s.Turn(ctx, media.Text(text))
}

// Purge removes terminal records older than the retention window and
// returns how many were removed.
func (r *Registry) Purge() int {
	cutoff := r.now().Add(-r.cfg.RetentionWindow)
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		rec := s.Record()
		if rec.State.Terminal() && rec.EndedAt != nil && !rec.EndedAt.After(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) lookup(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) nextTurnID() string {
	r.idMu.Lock()
	defer r.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(r.now()), r.entropy).String()
}

// --- component.Component ---

// Name implements component.Component.
func (r *Registry) Name() string { return "sessions" }

// Start launches the retention janitor.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.janitorStop != nil {
		return nil
	}
	r.janitorStop = make(chan struct{})
	r.janitorDone = make(chan struct{})
	go r.janitor(r.janitorStop, r.janitorDone)
	return nil
}

func (r *Registry) janitor(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := max(r.cfg.RetentionWindow/5, time.Second)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := r.Purge(); n > 0 {
				r.log.Debug("purged ended sessions", logger.Fields("count", n))
			}
		}
	}
}

// Stop refuses new sessions and ends every live one concurrently.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	stop, done := r.janitorStop, r.janitorDone
	r.janitorStop = nil
	live := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		live = append(live, s)
	}
	r.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	var g errgroup.Group
	for _, s := range live {
		g.Go(func() error {
			s.end(ctx)
			return nil
		})
	}
	return g.Wait()
}

// Health reports the number of live sessions.
func (r *Registry) Health(ctx context.Context) component.Health {
	live := 0
	for _, rec := range r.List() {
		if !rec.State.Terminal() {
			live++
		}
	}
	h := component.Health{Name: r.Name(), Status: component.StatusHealthy, Message: fmt.Sprintf("%d live sessions", live)}
	r.mu.Lock()
	if r.stopped {
		h.Status = component.StatusUnhealthy
		h.Message = "stopped"
	}
	r.mu.Unlock()
	return h
}
