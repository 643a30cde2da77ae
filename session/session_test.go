package session_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voixagent/voixagent/config"
	"github.com/voixagent/voixagent/errors"
	"github.com/voixagent/voixagent/llm"
	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/media"
	"github.com/voixagent/voixagent/metrics"
	"github.com/voixagent/voixagent/plugin"
	"github.com/voixagent/voixagent/plugin/builtin"
	"github.com/voixagent/voixagent/provider"
	"github.com/voixagent/voixagent/resolver"
	"github.com/voixagent/voixagent/session"
)

// fakeLLM is a generation provider driven by fn.
type fakeLLM struct {
	fn func(ctx context.Context, req llm.Request) (llm.Response, error)
}

func (f *fakeLLM) Name() string                     { return "fake" }
func (f *fakeLLM) IsAvailable(context.Context) bool { return true }
func (f *fakeLLM) Execute(ctx context.Context, req llm.Request) (llm.Response, error) {
	return f.fn(ctx, req)
}

type recorder struct {
	mu     sync.Mutex
	events []metrics.Event
}

func (r *recorder) Record(e metrics.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

func localAgent() config.AgentConfig {
	return config.AgentConfig{
		STT: provider.Spec{Provider: "local"},
		LLM: provider.Spec{Provider: "echo"},
		TTS: provider.Spec{Provider: "local"},
	}
}

type fixture struct {
	reg      *session.Registry
	recorder *recorder
}

func newFixture(t *testing.T, agent config.AgentConfig, cfg session.Config, fake *fakeLLM, opts ...session.Option) *fixture {
	t.Helper()
	catalog := resolver.DefaultCatalog()
	if fake != nil {
		if err := catalog.LLM.Register(provider.Registration[llm.Provider]{
			Name:    "fake",
			Factory: func(provider.Spec) (llm.Provider, error) { return fake, nil },
			Builtin: true,
		}); err != nil {
			t.Fatal(err)
		}
	}
	res := resolver.New(catalog,
		resolver.WithLogger(logger.Nop()),
		resolver.WithLookup(func(string) (string, bool) { return "", false }),
	)
	plugins, err := builtin.NewRegistry(builtin.Options{})
	if err != nil {
		t.Fatal(err)
	}

	f := &fixture{recorder: &recorder{}}
	opts = append([]session.Option{
		session.WithLogger(logger.Nop()),
		session.WithRecorder(f.recorder),
	}, opts...)
	f.reg = session.NewRegistry(cfg, config.Static(agent), res, plugins, opts...)
	t.Cleanup(func() { _ = f.reg.Stop(context.Background()) })
	return f
}

func waitTerminal(t *testing.T, reg *session.Registry, id string) session.State {
	t.Helper()
	s, ok := reg.Session(id)
	if !ok {
		t.Fatalf("session %s not found", id)
	}
	select {
	case <-s.Terminated():
	case <-time.After(5 * time.Second):
		t.Fatalf("session %s did not terminate, state %s", id, s.State())
	}
	return s.State()
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to session.State
		want     bool
	}{
		{session.StateCreated, session.StateInitializing, true},
		{session.StateCreated, session.StateFailed, true},
		{session.StateCreated, session.StateActive, false},
		{session.StateInitializing, session.StateActive, true},
		{session.StateInitializing, session.StateFailed, true},
		{session.StateInitializing, session.StateClosing, false},
		{session.StateActive, session.StateClosing, true},
		{session.StateActive, session.StateFailed, true},
		{session.StateActive, session.StateTerminated, false},
		{session.StateClosing, session.StateTerminated, true},
		{session.StateClosing, session.StateFailed, false},
		{session.StateTerminated, session.StateActive, false},
		{session.StateFailed, session.StateInitializing, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHelloLifecycle(t *testing.T) {
	f := newFixture(t, localAgent(), session.Config{}, nil)
	ctx := context.Background()

	rec, err := f.reg.CreateSession(ctx, "user-1", "room-A")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if rec.State != session.StateActive {
		t.Fatalf("state = %s, want active", rec.State)
	}
	if len(rec.Plugins) != 0 {
		t.Errorf("plugins = %v, want none", rec.Plugins)
	}

	res, err := f.reg.Turn(ctx, "user-1", "hello")
	if err != nil {
		t.Fatalf("Turn: %v", err)
	}
	if res.Processed != "hello" {
		t.Errorf("pipeline output = %q, want hello", res.Processed)
	}
	if res.Reply != "You said: hello" || res.Filtered {
		t.Errorf("reply = %q filtered=%v", res.Reply, res.Filtered)
	}
	if string(res.Audio) != res.Reply {
		t.Errorf("local synthesis audio = %q", res.Audio)
	}

	if err := f.reg.EndSession(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}
	state, err := f.reg.State("user-1")
	if err != nil || state != session.StateTerminated {
		t.Fatalf("State = %s, %v", state, err)
	}
	final, _ := f.reg.Get("user-1")
	if final.EndedAt == nil || final.Turns != 1 {
		t.Errorf("record = %+v", final)
	}
}

func TestContentFilterReplacement(t *testing.T) {
	agent := localAgent()
	agent.Plugins = []config.PluginEntry{{
		Name:    "content_filter",
		Enabled: true,
		Config:  map[string]any{"words": "badword", "replacement": "Let's keep it friendly."},
	}}
	f := newFixture(t, agent, session.Config{}, nil)
	ctx := context.Background()

	if _, err := f.reg.CreateSession(ctx, "s1", "room"); err != nil {
		t.Fatal(err)
	}
	res, err := f.reg.Turn(ctx, "s1", "this is a badword")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Filtered || res.Reply != "Let's keep it friendly." {
		t.Errorf("reply = %q filtered=%v", res.Reply, res.Filtered)
	}
}

func TestDuplicateSession(t *testing.T) {
	f := newFixture(t, localAgent(), session.Config{}, nil)
	ctx := context.Background()

	if _, err := f.reg.CreateSession(ctx, "dup", "room"); err != nil {
		t.Fatal(err)
	}
	_, err := f.reg.CreateSession(ctx, "dup", "room")
	if !errors.IsSessionCreationError(err) || !errors.HasCode(err, errors.ErrCodeDuplicateSession) {
		t.Fatalf("second create = %v, want duplicate", err)
	}
	if state, _ := f.reg.State("dup"); state != session.StateActive {
		t.Errorf("original session disturbed: %s", state)
	}

	_ = f.reg.EndSession(ctx, "dup")
	if _, err := f.reg.CreateSession(ctx, "dup", "room"); err != nil {
		t.Errorf("id reuse after termination: %v", err)
	}
}

func TestEndSessionIdempotent(t *testing.T) {
	f := newFixture(t, localAgent(), session.Config{}, nil)
	ctx := context.Background()

	if err := f.reg.EndSession(ctx, "unknown"); err != nil {
		t.Errorf("ending unknown id: %v", err)
	}
	_, _ = f.reg.CreateSession(ctx, "s1", "room")
	for i := range 2 {
		if err := f.reg.EndSession(ctx, "s1"); err != nil {
			t.Errorf("EndSession #%d: %v", i+1, err)
		}
	}
	if got := f.recorder.count(metrics.SessionEnded); got != 1 {
		t.Errorf("session_ended recorded %d times", got)
	}
}

func TestStateNotFound(t *testing.T) {
	f := newFixture(t, localAgent(), session.Config{}, nil)
	if _, err := f.reg.State("missing"); !errors.IsNotFound(err) {
		t.Errorf("State = %v, want not found", err)
	}
	if _, err := f.reg.Turn(context.Background(), "missing", "hi"); !errors.IsNotFound(err) {
		t.Errorf("Turn = %v, want not found", err)
	}
}

func TestMissingCredentialFallsBack(t *testing.T) {
	agent := localAgent()
	agent.LLM = provider.Spec{Provider: "openai", Model: "gpt-4o-mini"}
	f := newFixture(t, agent, session.Config{}, nil)

	rec, err := f.reg.CreateSession(context.Background(), "s1", "room")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if rec.State != session.StateActive {
		t.Fatalf("state = %s", rec.State)
	}
	var gen resolver.Resolution
	for _, r := range rec.Providers {
		if r.Capability == provider.Generation {
			gen = r
		}
	}
	if !gen.Fallback || gen.Provider != "echo" || gen.Requested != "openai" {
		t.Errorf("generation resolution = %+v", gen)
	}
}

func TestCreateFailures(t *testing.T) {
	tests := []struct {
		name  string
		agent func() config.AgentConfig
		code  errors.ErrorCode
	}{
		{
			name: "unsupported provider",
			agent: func() config.AgentConfig {
				a := localAgent()
				a.LLM.Provider = "nope"
				return a
			},
			code: errors.ErrCodeUnsupportedProvider,
		},
		{
			name: "capitalized provider",
			agent: func() config.AgentConfig {
				a := localAgent()
				a.LLM.Provider = "Azure"
				return a
			},
			code: errors.ErrCodeUnsupportedProvider,
		},
		{
			name: "provider with space",
			agent: func() config.AgentConfig {
				a := localAgent()
				a.TTS.Provider = "google cloud"
				return a
			},
			code: errors.ErrCodeUnsupportedProvider,
		},
		{
			name: "invalid temperature",
			agent: func() config.AgentConfig {
				a := localAgent()
				a.LLM.Temperature = provider.Float64(5)
				return a
			},
			code: errors.ErrCodeConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.agent(), session.Config{}, nil)
			rec, err := f.reg.CreateSession(context.Background(), "s1", "room")
			if !errors.IsSessionCreationError(err) {
				t.Fatalf("err = %v, want session creation error", err)
			}
			if rec.State != session.StateFailed || rec.ErrorCode != string(tt.code) {
				t.Errorf("record = %+v", rec)
			}
			if state, _ := f.reg.State("s1"); state != session.StateFailed {
				t.Errorf("state = %s", state)
			}
		})
	}
}

func TestAttachFailure(t *testing.T) {
	loopback := media.NewLoopback(8)
	loopback.Refuse("closed")
	f := newFixture(t, localAgent(), session.Config{}, nil, session.WithAttacher(loopback))
	reg := f.reg

	rec, err := reg.CreateSession(context.Background(), "s1", "closed")
	if !errors.IsSessionCreationError(err) || rec.State != session.StateFailed {
		t.Fatalf("CreateSession = %+v, %v", rec, err)
	}
	if f.recorder.count(metrics.ConnectionError) != 1 || f.recorder.count(metrics.SessionStarted) != 0 {
		t.Errorf("events = %+v", f.recorder.events)
	}
}

func mustPlugins(t *testing.T) *plugin.Registry {
	t.Helper()
	reg, err := builtin.NewRegistry(builtin.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestMediaConversation(t *testing.T) {
	loopback := media.NewLoopback(8)
	f := newFixture(t, localAgent(), session.Config{}, nil, session.WithAttacher(loopback))
	reg := f.reg
	ctx := context.Background()

	rec, err := reg.CreateSession(ctx, "s1", "room-A")
	if err != nil || !rec.Attached {
		t.Fatalf("CreateSession = %+v, %v", rec, err)
	}
	conn, ok := loopback.Conn("s1")
	if !ok {
		t.Fatal("no loopback connection")
	}

	for _, text := range []string{"hello", "how are you"} {
		if err := conn.Say(ctx, text); err != nil {
			t.Fatal(err)
		}
		select {
		case out := <-conn.Outputs():
			if out.Text != "You said: "+text || out.TurnID == "" {
				t.Errorf("output = %+v", out)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("no response to %q", text)
		}
	}

	conn.Hangup()
	if state := waitTerminal(t, reg, "s1"); state != session.StateTerminated {
		t.Errorf("state after hangup = %s", state)
	}
	if f.recorder.count(metrics.ConnectionSuccess) != 1 {
		t.Error("connection_success not recorded")
	}
}

func TestTurnFailureBudget(t *testing.T) {
	var calls atomic.Int32
	fake := &fakeLLM{fn: func(context.Context, llm.Request) (llm.Response, error) {
		calls.Add(1)
		return llm.Response{}, errors.FromHTTPStatus("fake", 503, "overloaded")
	}}
	agent := localAgent()
	agent.LLM.Provider = "fake"
	cfg := session.Config{RetryAttempts: 1, RetryBackoff: time.Millisecond, MaxTurnFailures: 2, BreakerFailures: 100}
	f := newFixture(t, agent, cfg, fake)
	ctx := context.Background()
	_, _ = f.reg.CreateSession(ctx, "s1", "room")

	for i := 1; i <= 3; i++ {
		_, err := f.reg.Turn(ctx, "s1", "hello")
		if !errors.IsSessionRuntimeError(err) {
			t.Fatalf("turn %d: err = %v", i, err)
		}
		want := session.StateActive
		if i == 3 {
			want = session.StateFailed
		}
		if state, _ := f.reg.State("s1"); state != want {
			t.Fatalf("after turn %d state = %s, want %s", i, state, want)
		}
	}
	if got := calls.Load(); got != 6 {
		t.Errorf("provider called %d times, want 6 (one retry per turn)", got)
	}
	if got := f.recorder.count(metrics.TurnError); got != 3 {
		t.Errorf("turn_error events = %d", got)
	}
	if _, err := f.reg.Turn(ctx, "s1", "hello"); !errors.HasCode(err, errors.ErrCodeSessionNotActive) {
		t.Errorf("turn on failed session = %v", err)
	}
	rec, _ := f.reg.Get("s1")
	if rec.ErrorCode != string(errors.ErrCodeSessionRuntime) {
		t.Errorf("record = %+v", rec)
	}
}

func TestNonRetryableFailureFailsImmediately(t *testing.T) {
	fake := &fakeLLM{fn: func(context.Context, llm.Request) (llm.Response, error) {
		return llm.Response{}, errors.FromHTTPStatus("fake", 401, "bad key")
	}}
	agent := localAgent()
	agent.LLM.Provider = "fake"
	f := newFixture(t, agent, session.Config{RetryBackoff: time.Millisecond}, fake)
	ctx := context.Background()
	_, _ = f.reg.CreateSession(ctx, "s1", "room")

	if _, err := f.reg.Turn(ctx, "s1", "hello"); !errors.IsSessionRuntimeError(err) {
		t.Fatalf("err = %v", err)
	}
	if state := waitTerminal(t, f.reg, "s1"); state != session.StateFailed {
		t.Errorf("state = %s, want failed", state)
	}
	if f.recorder.count(metrics.SessionEnded) != 1 {
		t.Error("failed session should record session_ended")
	}
}

func TestFailureCounterResets(t *testing.T) {
	var calls atomic.Int32
	fake := &fakeLLM{fn: func(_ context.Context, req llm.Request) (llm.Response, error) {
		if calls.Add(1)%2 == 1 {
			return llm.Response{}, errors.FromHTTPStatus("fake", 502, "")
		}
		return llm.Response{Content: "ok"}, nil
	}}
	agent := localAgent()
	agent.LLM.Provider = "fake"
	f := newFixture(t, agent, session.Config{RetryAttempts: 1, RetryBackoff: time.Millisecond, MaxTurnFailures: 1}, fake)
	ctx := context.Background()
	_, _ = f.reg.CreateSession(ctx, "s1", "room")

	for range 4 {
		if _, err := f.reg.Turn(ctx, "s1", "hello"); err != nil {
			t.Fatalf("turn failed despite a successful retry: %v", err)
		}
	}
	rec, _ := f.reg.Get("s1")
	if rec.State != session.StateActive || rec.ConsecutiveFailures != 0 || rec.Turns != 4 {
		t.Errorf("record = %+v", rec)
	}
}

func TestGracePeriodCancelsInFlightTurn(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	fake := &fakeLLM{fn: func(ctx context.Context, _ llm.Request) (llm.Response, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return llm.Response{}, ctx.Err()
	}}
	agent := localAgent()
	agent.LLM.Provider = "fake"
	f := newFixture(t, agent, session.Config{GracePeriod: 50 * time.Millisecond, RetryBackoff: time.Millisecond}, fake)
	ctx := context.Background()
	_, _ = f.reg.CreateSession(ctx, "s1", "room")

	turnErr := make(chan error, 1)
	go func() {
		_, err := f.reg.Turn(ctx, "s1", "hello")
		turnErr <- err
	}()
	<-started

	begin := time.Now()
	if err := f.reg.EndSession(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(begin); elapsed > 2*time.Second {
		t.Errorf("EndSession took %s", elapsed)
	}
	if state, _ := f.reg.State("s1"); state != session.StateTerminated {
		t.Errorf("state = %s", state)
	}
	select {
	case err := <-turnErr:
		if err == nil {
			t.Error("cancelled turn should report an error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("turn never returned")
	}
	if f.recorder.count(metrics.TurnError) != 0 {
		t.Error("a cancelled turn must not count as a failure")
	}
}

func TestTurnsAreSequential(t *testing.T) {
	var active, peak atomic.Int32
	fake := &fakeLLM{fn: func(_ context.Context, req llm.Request) (llm.Response, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return llm.Response{Content: req.LastUserMessage()}, nil
	}}
	agent := localAgent()
	agent.LLM.Provider = "fake"
	f := newFixture(t, agent, session.Config{}, fake)
	ctx := context.Background()
	_, _ = f.reg.CreateSession(ctx, "s1", "room")

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.reg.Turn(ctx, "s1", "hi"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if got := peak.Load(); got != 1 {
		t.Errorf("%d turns ran concurrently", got)
	}
}

func TestSessionsRunIndependently(t *testing.T) {
	release := make(chan struct{})
	fake := &fakeLLM{fn: func(ctx context.Context, req llm.Request) (llm.Response, error) {
		if req.LastUserMessage() == "block" {
			select {
			case <-release:
			case <-ctx.Done():
				return llm.Response{}, ctx.Err()
			}
		}
		return llm.Response{Content: "ok"}, nil
	}}
	agent := localAgent()
	agent.LLM.Provider = "fake"
	f := newFixture(t, agent, session.Config{}, fake)
	ctx := context.Background()
	_, _ = f.reg.CreateSession(ctx, "slow", "room")
	_, _ = f.reg.CreateSession(ctx, "fast", "room")

	done := make(chan struct{})
	go func() {
		_, _ = f.reg.Turn(ctx, "slow", "block")
		close(done)
	}()
	if _, err := f.reg.Turn(ctx, "fast", "hello"); err != nil {
		t.Fatalf("fast session blocked by slow one: %v", err)
	}
	close(release)
	<-done
}

func TestHistorySentToModel(t *testing.T) {
	var mu sync.Mutex
	var requests []llm.Request
	fake := &fakeLLM{fn: func(_ context.Context, req llm.Request) (llm.Response, error) {
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()
		return llm.Response{Content: "reply to " + req.LastUserMessage()}, nil
	}}
	agent := localAgent()
	agent.LLM.Provider = "fake"
	agent.Instructions = "Be brief."
	agent.Plugins = []config.PluginEntry{{Name: "sentiment_analysis", Enabled: true}}
	f := newFixture(t, agent, session.Config{HistoryTurns: 1}, fake)
	ctx := context.Background()
	_, _ = f.reg.CreateSession(ctx, "s1", "room")

	for _, text := range []string{"first", "second", "this is terrible and awful"} {
		if _, err := f.reg.Turn(ctx, "s1", text); err != nil {
			t.Fatal(err)
		}
	}
	if len(requests) != 3 {
		t.Fatalf("requests = %d", len(requests))
	}
	if n := len(requests[0].Messages); n != 1 {
		t.Errorf("first turn sent %d messages", n)
	}
	last := requests[2]
	if len(last.Messages) != 3 || last.Messages[0].Content != "second" || last.Messages[1].Content != "reply to second" {
		t.Errorf("history = %+v", last.Messages)
	}
	if !strings.HasPrefix(last.SystemPrompt, "Be brief.") || !strings.Contains(last.SystemPrompt, "frustration") {
		t.Errorf("system prompt = %q", last.SystemPrompt)
	}
}

func TestPluginFailureIsContained(t *testing.T) {
	agent := localAgent()
	agent.Plugins = []config.PluginEntry{
		{Name: "example", Enabled: true},
		{Name: "not_registered", Enabled: true},
	}
	f := newFixture(t, agent, session.Config{}, nil)
	ctx := context.Background()

	rec, err := f.reg.CreateSession(ctx, "s1", "room")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.SkippedPlugins) != 1 || rec.SkippedPlugins[0] != "not_registered" {
		t.Errorf("skipped = %v", rec.SkippedPlugins)
	}
	res, err := f.reg.Turn(ctx, "s1", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != "hello (Processed by Example Plugin!)" {
		t.Errorf("processed = %q", res.Processed)
	}
	if f.recorder.count(metrics.PluginProcessing) != 1 {
		t.Errorf("plugin_processing events = %d", f.recorder.count(metrics.PluginProcessing))
	}
}

func TestConfigChangesAffectNewSessionsOnly(t *testing.T) {
	env := localAgent()
	env.Plugins = []config.PluginEntry{}
	layered := config.NewLayered(env)
	res := resolver.New(resolver.DefaultCatalog(), resolver.WithLogger(logger.Nop()))
	reg := session.NewRegistry(session.Config{}, layered, res, mustPlugins(t), session.WithLogger(logger.Nop()))
	t.Cleanup(func() { _ = reg.Stop(context.Background()) })
	ctx := context.Background()

	_, _ = reg.CreateSession(ctx, "before", "room")
	layered.SetDocument(config.AgentConfig{Plugins: []config.PluginEntry{{Name: "example", Enabled: true}}})
	_, _ = reg.CreateSession(ctx, "after", "room")

	before, _ := reg.Get("before")
	after, _ := reg.Get("after")
	if len(before.Plugins) != 0 {
		t.Errorf("running session was reconfigured: %v", before.Plugins)
	}
	if len(after.Plugins) != 1 || after.Plugins[0] != "example" {
		t.Errorf("new session plugins = %v", after.Plugins)
	}
}

func TestPerSessionOverride(t *testing.T) {
	f := newFixture(t, localAgent(), session.Config{}, nil)
	override := config.AgentConfig{Plugins: []config.PluginEntry{{Name: "example", Enabled: true}}}

	rec, err := f.reg.CreateSession(context.Background(), "", "room", session.WithOverride(override))
	if err != nil {
		t.Fatal(err)
	}
	if rec.SessionID == "" {
		t.Error("expected a generated session id")
	}
	if len(rec.Plugins) != 1 {
		t.Errorf("plugins = %v", rec.Plugins)
	}
}

func TestRetentionPurge(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
	f := newFixture(t, localAgent(), session.Config{RetentionWindow: 5 * time.Minute}, nil, session.WithClock(clock))
	ctx := context.Background()

	_, _ = f.reg.CreateSession(ctx, "ended", "room")
	_, _ = f.reg.CreateSession(ctx, "live", "room")
	_ = f.reg.EndSession(ctx, "ended")

	advance(4 * time.Minute)
	if n := f.reg.Purge(); n != 0 {
		t.Errorf("purged %d records inside the retention window", n)
	}
	advance(2 * time.Minute)
	if n := f.reg.Purge(); n != 1 {
		t.Errorf("purged %d records, want 1", n)
	}
	if _, err := f.reg.State("ended"); !errors.IsNotFound(err) {
		t.Errorf("purged record still visible: %v", err)
	}
	if state, _ := f.reg.State("live"); state != session.StateActive {
		t.Errorf("live session state = %s", state)
	}
}

func TestStopEndsEverySession(t *testing.T) {
	f := newFixture(t, localAgent(), session.Config{}, nil)
	ctx := context.Background()
	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		if _, err := f.reg.CreateSession(ctx, id, "room"); err != nil {
			t.Fatal(err)
		}
	}

	if err := f.reg.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		if state, _ := f.reg.State(id); state != session.StateTerminated {
			t.Errorf("%s state = %s", id, state)
		}
	}
	if _, err := f.reg.CreateSession(ctx, "late", "room"); !errors.IsSessionCreationError(err) {
		t.Errorf("create after stop = %v", err)
	}
}

func TestSessionMetrics(t *testing.T) {
	f := newFixture(t, localAgent(), session.Config{}, nil)
	ctx := context.Background()
	_, _ = f.reg.CreateSession(ctx, "s1", "room")
	_, _ = f.reg.Turn(ctx, "s1", "hello")
	_ = f.reg.EndSession(ctx, "s1")

	for _, name := range []string{
		metrics.SessionStarted, metrics.LLMLatency, metrics.TTSLatency, metrics.TotalLatency, metrics.SessionEnded,
	} {
		if f.recorder.count(name) != 1 {
			t.Errorf("%s recorded %d times", name, f.recorder.count(name))
		}
	}
	if f.recorder.count(metrics.STTLatency) != 0 {
		t.Error("text turns skip transcription")
	}
	for _, e := range f.recorder.events {
		if e.SessionID() != "s1" {
			t.Errorf("event %s missing session id", e.Name)
		}
	}
}

func TestAudioTurnIsTranscribed(t *testing.T) {
	f := newFixture(t, localAgent(), session.Config{}, nil)
	ctx := context.Background()
	_, _ = f.reg.CreateSession(ctx, "s1", "room")
	s, _ := f.reg.Session("s1")

	res, err := s.Turn(ctx, media.Input{Audio: []byte("hello"), Format: "text"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Input != "hello" {
		t.Errorf("transcript = %q", res.Input)
	}
	if f.recorder.count(metrics.STTLatency) != 1 {
		t.Error("stt_latency not recorded")
	}
}

func TestEmptyUtterance(t *testing.T) {
	f := newFixture(t, localAgent(), session.Config{}, nil)
	ctx := context.Background()
	_, _ = f.reg.CreateSession(ctx, "s1", "room")
	if _, err := f.reg.Turn(ctx, "s1", "   "); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v", err)
	}
	if state, _ := f.reg.State("s1"); state != session.StateActive {
		t.Errorf("state = %s", state)
	}
}
