package component

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/voixagent/voixagent/logger"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	journal  *[]string
	stopCtx  context.Context
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(ctx context.Context) error {
	f.note("start")
	return f.startErr
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	f.stopCtx = ctx
	f.note("stop")
	return f.stopErr
}

func (f *fakeComponent) Health(ctx context.Context) Health { return f.health }

func (f *fakeComponent) note(what string) {
	if f.journal != nil {
		*f.journal = append(*f.journal, what+":"+f.name)
	}
}

func newTestRegistry(opts ...RegistryOption) *Registry {
	return NewRegistry(append([]RegistryOption{WithLogger(logger.Nop())}, opts...)...)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := newTestRegistry()
	if err := r.Register(&fakeComponent{name: "sessions"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&fakeComponent{name: "sessions"}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if got := len(r.All()); got != 1 {
		t.Errorf("expected one component, got %d", got)
	}
}

func TestLifecycleOrder(t *testing.T) {
	var journal []string
	r := newTestRegistry()
	for _, name := range []string{"redis", "sessions", "server"} {
		_ = r.Register(&fakeComponent{name: name, journal: &journal})
	}
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	// a second StartAll only starts newcomers
	_ = r.Register(&fakeComponent{name: "sse", journal: &journal})
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	// stopping twice is a no-op
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	want := "start:redis,start:sessions,start:server,start:sse,stop:sse,stop:server,stop:sessions,stop:redis"
	if got := strings.Join(journal, ","); got != want {
		t.Errorf("journal = %s\nwant      %s", got, want)
	}
}

func TestStartAllStopsAtFirstFailure(t *testing.T) {
	var journal []string
	r := newTestRegistry()
	_ = r.Register(&fakeComponent{name: "redis", journal: &journal})
	_ = r.Register(&fakeComponent{name: "kafka", journal: &journal, startErr: fmt.Errorf("no brokers")})
	_ = r.Register(&fakeComponent{name: "server", journal: &journal})

	err := r.StartAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "kafka") {
		t.Fatalf("expected kafka start error, got %v", err)
	}
	_ = r.StopAll(context.Background())

	want := "start:redis,start:kafka,stop:redis"
	if got := strings.Join(journal, ","); got != want {
		t.Errorf("journal = %s, want %s", got, want)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	r := newTestRegistry()
	_ = r.Register(&fakeComponent{name: "redis", stopErr: fmt.Errorf("redis gone")})
	_ = r.Register(&fakeComponent{name: "kafka", stopErr: fmt.Errorf("flush failed")})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"redis gone", "flush failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestStopTimeout(t *testing.T) {
	c := &fakeComponent{name: "server"}
	r := newTestRegistry(WithStopTimeout(time.Second))
	_ = r.Register(c)
	_ = r.StartAll(context.Background())
	before := time.Now()
	_ = r.StopAll(context.Background())

	deadline, ok := c.stopCtx.Deadline()
	if !ok {
		t.Fatal("stop context has no deadline")
	}
	if d := deadline.Sub(before); d > time.Second+100*time.Millisecond {
		t.Errorf("deadline %v after stop, want about 1s", d)
	}
}

func TestHealthAll(t *testing.T) {
	r := newTestRegistry()
	_ = r.Register(&fakeComponent{name: "sessions", health: Health{Name: "sessions", Status: StatusHealthy, Message: "2 live sessions"}})
	_ = r.Register(&fakeComponent{name: "redis", health: Health{Status: StatusUnhealthy, Message: "timeout"}})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Name != "sessions" || results[0].Status != StatusHealthy {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[1].Name != "redis" {
		t.Errorf("expected name to default to component name, got %q", results[1].Name)
	}
	if Overall(results) != StatusUnhealthy {
		t.Errorf("expected unhealthy overall, got %s", Overall(results))
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name string
		in   []HealthStatus
		want HealthStatus
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []HealthStatus{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []HealthStatus{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy wins", []HealthStatus{StatusDegraded, StatusUnhealthy, StatusHealthy}, StatusUnhealthy},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hs []Health
			for _, s := range tc.in {
				hs = append(hs, Health{Status: s})
			}
			if got := Overall(hs); got != tc.want {
				t.Errorf("Overall() = %s, want %s", got, tc.want)
			}
		})
	}
}
