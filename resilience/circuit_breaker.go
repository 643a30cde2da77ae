package resilience

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/voixagent/voixagent/errors"
)

// State is the position of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// ErrCircuitOpen is returned without calling the function while the circuit
// is open. It is retryable: an open breaker is a transient backend condition.
var ErrCircuitOpen = errors.New(errors.ErrCodeExternalService, "circuit breaker is open", http.StatusServiceUnavailable)

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the circuit.
	MaxFailures int
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
	// HalfOpenMaxCalls probes run while half-open; that many successes
	// close the circuit.
	HalfOpenMaxCalls int
	// IsFailure decides whether an error counts against the breaker.
	IsFailure func(error) bool
	// OnStateChange runs with the breaker locked and must not call back
	// into it.
	OnStateChange func(name string, from, to State)
	// Now replaces time.Now.
	Now func() time.Time
}

// CountsAsFailure ignores caller cancellation and non-retryable errors such as
// bad requests: they say nothing about the health of the backend.
func CountsAsFailure(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) {
		return false
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}

// DefaultCircuitBreakerConfig opens after 5 failures and probes after 30s.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker fails calls fast once a backend has failed MaxFailures times
// in a row. After Timeout it lets HalfOpenMaxCalls probes through; a failed
// probe reopens the circuit.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
	passed   int
}

// NewCircuitBreaker creates a closed breaker. Zero fields take the defaults.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = CountsAsFailure
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg}
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

// State returns the current state, moving an expired open circuit to
// half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expire()
	return cb.state
}

// Execute runs fn unless the circuit is open, in which case it returns
// ErrCircuitOpen.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.settle(err)
	return err
}

// Call runs fn through cb and returns its value.
func Call[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var out T
	err := cb.Execute(func() (err error) {
		out, err = fn()
		return err
	})
	return out, err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.expire()
	switch cb.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.probes < cb.cfg.HalfOpenMaxCalls {
			cb.probes++
			return true
		}
	}
	return false
}

func (cb *CircuitBreaker) settle(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch {
	case err == nil && cb.state == StateHalfOpen:
		cb.passed++
		if cb.passed >= cb.cfg.HalfOpenMaxCalls {
			cb.move(StateClosed)
		}
	case err == nil:
		cb.failures = 0
	case cb.cfg.IsFailure(err) && cb.state == StateHalfOpen:
		cb.move(StateOpen)
	case cb.cfg.IsFailure(err):
		cb.failures++
		if cb.failures >= cb.cfg.MaxFailures {
			cb.move(StateOpen)
		}
	case cb.state == StateHalfOpen && cb.probes > 0:
		// an ignored error frees its probe slot
		cb.probes--
	}
}

func (cb *CircuitBreaker) expire() {
	if cb.state == StateOpen && cb.cfg.Now().Sub(cb.openedAt) >= cb.cfg.Timeout {
		cb.move(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) move(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.failures, cb.probes, cb.passed = 0, 0, 0
	if to == StateOpen {
		cb.openedAt = cb.cfg.Now()
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
