package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/voixagent/voixagent/config"
	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/llm"
	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/media"
	"github.com/voixagent/voixagent/metrics"
	"github.com/voixagent/voixagent/pipeline"
	"github.com/voixagent/voixagent/plugin"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/resolver"
	"github.com/voixagent/voixagent/synthesis"
	"github.com/voixagent/voixagent/transcription"
)

// Record is a point-in-time view of a session.
type Record struct {
	SessionID string     `json:"session_id"`
	Room      string     `json:"room"`
	State     State      `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	// ErrorCode classifies LastError.
	ErrorCode           string                `json:"error_code,omitempty"`
	Providers           []resolver.Resolution `json:"providers,omitempty"`
	Plugins             []string              `json:"plugins"`
	SkippedPlugins      []string              `json:"skipped_plugins,omitempty"`
	Attached            bool                  `json:"attached"`
	Turns               int                   `json:"turns"`
	ConsecutiveFailures int                   `json:"consecutive_failures"`
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	SessionID string `json:"session_id"`
	TurnID    string `json:"turn_id"`
	// Input is the transcribed or typed utterance.
	Input string `json:"input"`
	// Processed is the plugin pipeline output.
	Processed string `json:"processed"`
	Reply     string `json:"reply"`
	// Filtered is set when Reply is a plugin replacement spoken without
	// generation.
	Filtered      bool           `json:"filtered"`
	FailedPlugins []string       `json:"failed_plugins,omitempty"`
	Context       map[string]any `json:"context,omitempty"`
	Audio         []byte         `json:"-"`
	Format        string         `json:"format,omitempty"`
	ContentType   string         `json:"content_type,omitempty"`
	LatencyMs     float64        `json:"latency_ms"`
}

// Output converts the result to a media response.
func (r *TurnResult) Output() media.Output {
	return media.Output{
		TurnID:      r.TurnID,
		Text:        r.Reply,
		Audio:       r.Audio,
		Format:      r.Format,
		ContentType: r.ContentType,
		Filtered:    r.Filtered,
	}
}

// Session is one conversation. Lifecycle fields are guarded by mu; turn
// state is guarded by turnMu, which also keeps turns sequential.
type Session struct {
	id        string
	room      string
	reg       *Registry
	log       *logger.Logger
	createdAt time.Time

	mu           sync.Mutex
	state        State
	activeAt     time.Time
	endedAt      time.Time
	lastErr      error
	endRequested bool
	endRecorded  bool
	agent        config.AgentConfig
	set          *resolver.Set
	pipeline     *plugin.Pipeline
	skipped      []string
	conn         media.Conn
	turns        int
	failures     int

	turnMu  sync.Mutex
	history []llm.Message

	inflight    sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	inputCtx    context.Context
	stopInput   context.CancelFunc
	loopDone    chan struct{}
	terminated  chan struct{}
	releaseOnce sync.Once
}

func newSession(reg *Registry, id, room string) *Session {
	s := &Session{
		id:         id,
		room:       room,
		reg:        reg,
		log:        reg.log.WithFields(logger.Fields(logger.FieldSessionID, id, logger.FieldRoom, room)),
		createdAt:  reg.now(),
		state:      StateCreated,
		terminated: make(chan struct{}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.inputCtx, s.stopInput = context.WithCancel(s.ctx)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Terminated is closed once the session reaches Terminated or Failed.
func (s *Session) Terminated() <-chan struct{} { return s.terminated }

// Record returns a view of the session.
func (s *Session) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := Record{
		SessionID:           s.id,
		Room:                s.room,
		State:               s.state,
		CreatedAt:           s.createdAt,
		SkippedPlugins:      append([]string(nil), s.skipped...),
		Plugins:             []string{},
		Attached:            s.conn != nil,
		Turns:               s.turns,
		ConsecutiveFailures: s.failures,
	}
	if !s.endedAt.IsZero() {
		ended := s.endedAt
		rec.EndedAt = &ended
	}
	if s.lastErr != nil {
		rec.LastError = s.lastErr.Error()
		if appErr, ok := errors.AsAppError(s.lastErr); ok {
			rec.ErrorCode = string(appErr.Code)
		}
	}
	if s.set != nil {
		rec.Providers = append([]resolver.Resolution(nil), s.set.Resolutions...)
	}
	if s.pipeline != nil {
		rec.Plugins = s.pipeline.Names()
	}
	return rec
}

// transition moves the session to next when the lifecycle allows it.
func (s *Session) transition(next State, cause error) bool {
	s.mu.Lock()
	from := s.state
	if !from.CanTransition(next) {
		s.mu.Unlock()
		return false
	}
	s.state = next
	if cause != nil {
		s.lastErr = cause
	}
	switch {
	case next == StateActive:
		s.activeAt = s.reg.now()
	case next.Terminal():
		s.endedAt = s.reg.now()
		close(s.terminated)
	}
	s.mu.Unlock()

	fields := logger.Fields("from", string(from), logger.FieldState, string(next))
	if next == StateFailed {
		s.log.Error("session state changed", logger.MergeWithError(fields, cause))
	} else {
		s.log.Info("session state changed", fields)
	}
	return true
}

// attachResources stores what initialization built.
func (s *Session) attachResources(agent config.AgentConfig, set *resolver.Set, pipe *plugin.Pipeline, skipped []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agent = agent
	s.set = set
	s.pipeline = pipe
	s.skipped = skipped
}

func (s *Session) setConn(conn media.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn = conn
}

// release closes the provider handles, plugins and media connection.
func (s *Session) release(ctx context.Context) {
	s.releaseOnce.Do(func() {
		s.stopInput()
		s.cancel()
		s.mu.Lock()
		set, pipe, conn := s.set, s.pipeline, s.conn
		s.mu.Unlock()

		if pipe != nil {
			if err := pipe.Close(ctx); err != nil {
				s.log.Warn("closing plugins failed", logger.ErrorFields("release", err))
			}
		}
		if err := set.Close(ctx); err != nil {
			s.log.Warn("closing providers failed", logger.ErrorFields("release", err))
		}
		if conn != nil {
			if err := conn.Close(); err != nil {
				s.log.Debug("closing media connection failed", logger.ErrorFields("release", err))
			}
		}
	})
}

// recordEnded emits session_ended once for a session that became Active.
func (s *Session) recordEnded() {
	s.mu.Lock()
	if s.endRecorded || s.activeAt.IsZero() {
		s.mu.Unlock()
		return
	}
	s.endRecorded = true
	duration := s.reg.now().Sub(s.activeAt).Seconds()
	s.mu.Unlock()
	s.record(metrics.SessionEnded, duration, metrics.UnitSeconds)
}

func (s *Session) record(name string, value float64, unit string, kv ...string) {
	kv = append([]string{metrics.MetaRoom, s.room}, kv...)
	s.reg.recorder.Record(metrics.SessionEvent(s.id, name, value, unit, kv...))
}

// observeStage turns plugin stage reports into metric events.
func (s *Session) observeStage(_ context.Context, r plugin.StageReport) {
	ms := float64(r.Duration.Microseconds()) / 1000
	s.record(metrics.PluginProcessing, ms, metrics.UnitMilliseconds, metrics.MetaPlugin, r.Plugin)
	if r.Err != nil {
		s.record(metrics.PluginError, 1, metrics.UnitCount, metrics.MetaPlugin, r.Plugin, metrics.MetaError, r.Err.Error())
	}
}

// --- ending ---

// end moves an Active session through Closing to Terminated. It returns
// once the session is terminal or ctx is done.
func (s *Session) end(ctx context.Context) {
	s.mu.Lock()
	state := s.state
	if state == StateCreated || state == StateInitializing {
		s.endRequested = true
	}
	s.mu.Unlock()

	if state != StateActive || !s.transition(StateClosing, nil) {
		if state.Terminal() || state == StateCreated || state == StateInitializing {
			return
		}
		select {
		case <-s.terminated:
		case <-ctx.Done():
		}
		return
	}

	s.stopInput()
	s.drain(ctx)
	s.release(context.Background())
	s.transition(StateTerminated, nil)
	s.recordEnded()
}

// drain waits for the in-flight turn and the input loop, cancelling them
// once the grace period or ctx runs out.
func (s *Session) drain(ctx context.Context) {
	idle := make(chan struct{})
	go func() {
		s.inflight.Wait()
		if s.loopDone != nil {
			<-s.loopDone
		}
		close(idle)
	}()

	grace := time.NewTimer(s.reg.cfg.GracePeriod)
	defer grace.Stop()
	select {
	case <-idle:
		return
	case <-grace.C:
	case <-ctx.Done():
	}

	s.log.Warn("in-flight turn exceeded the grace period, cancelling")
	s.cancel()
	select {
	case <-idle:
	case <-time.After(s.reg.cfg.GracePeriod):
		s.log.Error("turn did not stop after cancellation")
	}
}

// fail moves an Active session to Failed. Resources are released once the
// in-flight turn returns.
func (s *Session) fail(cause error) {
	if !s.transition(StateFailed, cause) {
		return
	}
	s.stopInput()
	s.recordEnded()
	go func() {
		s.inflight.Wait()
		s.release(context.Background())
	}()
}

// --- turns ---

type turnOutput struct {
	result *TurnResult
	err    error
}

// run feeds media input through the turn loop until the participant
// leaves or the session stops accepting input.
func (s *Session) run(conn media.Conn) {
	defer close(s.loopDone)

	turns := pipeline.Map(pipeline.From[media.Input](conn), func(_ context.Context, in media.Input) (turnOutput, error) {
		res, err := s.Turn(s.ctx, in)
		return turnOutput{result: res, err: err}, nil
	})
	err := pipeline.Drain(turns, func(_ context.Context, out turnOutput) error {
		return s.deliver(conn, out)
	}).Run(s.inputCtx)

	if s.inputCtx.Err() != nil {
		return
	}
	if err != nil {
		s.log.Warn("media connection failed", logger.ErrorFields("receive", err))
	} else {
		s.log.Info("participant left")
	}
	go s.end(context.Background())
}

func (s *Session) deliver(conn media.Conn, out turnOutput) error {
	if out.err != nil {
		if s.State() == StateFailed {
			return out.err
		}
		return nil
	}
	return conn.Send(s.ctx, out.result.Output())
}

// begin admits a turn while the session is Active.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return errors.SessionNotActive(s.id, string(s.state))
	}
	s.inflight.Add(1)
	return nil
}

// Turn processes one input. Concurrent calls are serialized.
func (s *Session) Turn(ctx context.Context, in media.Input) (*TurnResult, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.inflight.Done()

	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	if state := s.State(); state != StateActive {
		return nil, errors.SessionNotActive(s.id, string(state))
	}

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	defer func() {
		stop()
		cancel()
	}()
	return s.process(ctx, in)
}

func (s *Session) process(ctx context.Context, in media.Input) (*TurnResult, error) {
	turnID := s.reg.nextTurnID()
	ctx = logger.ContextWithTurn(logger.ContextWithSession(ctx, s.id, s.room), turnID)
	rec := s.reg.recorder
	meta := []string{metrics.MetaSessionID, s.id, metrics.MetaRoom, s.room}
	total := metrics.StartTimer(rec, metrics.TotalLatency, meta...)
	res := &TurnResult{SessionID: s.id, TurnID: turnID}

	text := in.Text
	if !in.IsText() {
		timer := metrics.StartTimer(rec, metrics.STTLatency, append(meta, metrics.MetaProvider, s.set.STT.Name())...)
		out, err := s.set.STT.Execute(ctx, transcription.Request{Audio: in.Audio, Format: in.Format})
		timer.Stop()
		if err != nil {
			return nil, s.turnFailed(ctx, provider.Transcription, err)
		}
		text = out.Text
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.InvalidInput("text", "the utterance is empty")
	}
	res.Input = text

	tc := plugin.NewTurnContext(s.id, s.room, turnID)
	outcome := s.pipeline.Run(ctx, text, tc)
	res.Processed = outcome.Message
	res.FailedPlugins = outcome.Failed
	res.Context = tc

	reply := outcome.Message
	if outcome.Terminal {
		res.Filtered = true
	} else {
		req := llm.BuildPrompt(s.agent.Instructions, tc.String(plugin.KeyResponsePrefix), s.recentHistory(), outcome.Message)
		timer := metrics.StartTimer(rec, metrics.LLMLatency, append(meta, metrics.MetaProvider, s.set.LLM.Name())...)
		resp, err := s.set.LLM.Execute(ctx, req)
		timer.Stop()
		if err != nil {
			return nil, s.turnFailed(ctx, provider.Generation, err)
		}
		reply = resp.Content
	}
	res.Reply = reply

	timer := metrics.StartTimer(rec, metrics.TTSLatency, append(meta, metrics.MetaProvider, s.set.TTS.Name())...)
	audio, err := s.set.TTS.Execute(ctx, synthesis.Request{Text: reply})
	timer.Stop()
	if err != nil {
		return nil, s.turnFailed(ctx, provider.Synthesis, err)
	}
	res.Audio = audio.Data
	res.Format = audio.Format
	res.ContentType = audio.ContentType

	if !outcome.Terminal {
		s.remember(outcome.Message, reply)
	}
	res.LatencyMs = total.Stop()

	s.mu.Lock()
	s.turns++
	s.failures = 0
	s.mu.Unlock()
	return res, nil
}

// turnFailed records a failed capability call and fails the session when
// the error is not retryable or the failure budget is spent. Failures
// caused by cancellation are not counted.
func (s *Session) turnFailed(ctx context.Context, capability provider.Capability, cause error) error {
	err := errors.SessionRuntime(s.id, capability.String(), cause)
	if ctx.Err() != nil {
		return err
	}
	s.record(metrics.TurnError, 1, metrics.UnitCount, "stage", capability.String(), metrics.MetaError, cause.Error())

	s.mu.Lock()
	s.failures++
	failures := s.failures
	s.lastErr = err
	s.mu.Unlock()

	s.log.WithContext(ctx).Error("turn failed", logger.MergeWithError(logger.Fields(
		logger.FieldCapability, capability.String(),
		"consecutive_failures", failures,
	), cause))

	if !err.Retryable || failures > s.reg.cfg.MaxTurnFailures {
		s.fail(err)
	}
	return err
}

func (s *Session) recentHistory() []llm.Message {
	return append([]llm.Message(nil), s.history...)
}

func (s *Session) remember(user, reply string) {
	s.history = append(s.history, llm.User(user), llm.Assistant(reply))
	if limit := 2 * s.reg.cfg.HistoryTurns; len(s.history) > limit {
		s.history = append([]llm.Message(nil), s.history[len(s.history)-limit:]...)
	}
}
