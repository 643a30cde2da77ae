package resilience

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/voixagent/voixagent/errors"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, BackoffFactor: 2}
}

// script returns fn results in order and repeats the last one.
func script(results ...error) (func() (int, error), *int) {
	calls := 0
	return func() (int, error) {
		err := results[min(calls, len(results)-1)]
		calls++
		return calls, err
	}, &calls
}

func TestRetry(t *testing.T) {
	timeout := errors.Timeout("generation")
	upstream := errors.ExternalServiceError("openai", nil)
	auth := errors.FromHTTPStatus("openai", 401, "")
	badRequest := errors.FromHTTPStatus("openai", 400, "")
	plain := stderrors.New("unclassified")

	tests := []struct {
		name      string
		results   []error
		wantCalls int
		wantErr   error
	}{
		{"first call succeeds", []error{nil}, 1, nil},
		{"succeeds after retryable failures", []error{timeout, timeout, nil}, 3, nil},
		{"attempts exhausted", []error{upstream}, 3, upstream},
		{"auth failure is permanent", []error{auth}, 1, auth},
		{"bad request is permanent", []error{badRequest}, 1, badRequest},
		{"unclassified is permanent", []error{plain}, 1, plain},
		{"cancellation is permanent", []error{context.Canceled}, 1, context.Canceled},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fn, calls := script(tc.results...)
			got, err := Retry(context.Background(), fastRetry(3), fn)
			if err != tc.wantErr {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if *calls != tc.wantCalls {
				t.Errorf("calls = %d, want %d", *calls, tc.wantCalls)
			}
			if err == nil && got != tc.wantCalls {
				t.Errorf("result from call %d, want %d", got, tc.wantCalls)
			}
		})
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    10,
		InitialBackoff: 100 * time.Millisecond,
		BackoffFactor:  2.0,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	callCount := 0
	_, err := Retry(ctx, cfg, func() (string, error) {
		callCount++
		return "", errors.Timeout("x")
	})
	if !errors.HasCode(err, errors.ErrCodeTimeout) {
		t.Errorf("expected last call error, got %v", err)
	}
	if callCount >= 10 {
		t.Errorf("expected fewer than 10 calls, got %d", callCount)
	}
}

func TestRetry_CanceledBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Retry(ctx, fastRetry(3), func() (int, error) {
		t.Error("fn should not run")
		return 0, nil
	})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRetryOnRetryHook(t *testing.T) {
	var attempts []int
	var waits []time.Duration
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, _ error, wait time.Duration) {
		attempts = append(attempts, attempt)
		waits = append(waits, wait)
	}
	fn, _ := script(errors.Timeout("x"))
	_, _ = Retry(context.Background(), cfg, fn)

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Fatalf("attempts = %v, want [1 2]", attempts)
	}
	if waits[0] != time.Millisecond || waits[1] != 2*time.Millisecond {
		t.Errorf("waits = %v", waits)
	}
}

func TestRetryFunc(t *testing.T) {
	fn, calls := script(errors.Timeout("x"), nil)
	if err := RetryFunc(context.Background(), fastRetry(3), func() error {
		_, err := fn()
		return err
	}); err != nil {
		t.Fatal(err)
	}
	if *calls != 2 {
		t.Errorf("calls = %d, want 2", *calls)
	}
}

func TestWithRetries(t *testing.T) {
	for retries, want := range map[int]int{0: 1, 2: 3, -1: 1} {
		if got := DefaultRetryConfig().WithRetries(retries).MaxAttempts; got != want {
			t.Errorf("WithRetries(%d).MaxAttempts = %d, want %d", retries, got, want)
		}
	}
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2}
	want := []time.Duration{100, 200, 400, 800, 1000, 1000}
	for i, w := range want {
		if got := backoff(i+1, cfg); got != w*time.Millisecond {
			t.Errorf("attempt %d: got %v, want %v", i+1, got, w*time.Millisecond)
		}
	}

	cfg.Jitter = 0.5
	for range 20 {
		if got := backoff(1, cfg); got < 50*time.Millisecond || got > 150*time.Millisecond {
			t.Fatalf("jittered backoff %v outside [50ms, 150ms]", got)
		}
	}
}

func TestWithTimeout(t *testing.T) {
	t.Run("deadline becomes TIMEOUT", func(t *testing.T) {
		_, err := WithTimeout(context.Background(), 10*time.Millisecond, "synthesis", func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		if !errors.HasCode(err, errors.ErrCodeTimeout) {
			t.Fatalf("expected TIMEOUT, got %v", err)
		}
		if !errors.IsRetryable(err) {
			t.Error("expected timeout to be retryable")
		}
	})

	t.Run("parent cancellation passes through", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := WithTimeout(ctx, time.Second, "synthesis", func(ctx context.Context) (int, error) {
			return 0, ctx.Err()
		})
		if !stderrors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("success", func(t *testing.T) {
		v, err := WithTimeout(context.Background(), time.Second, "x", func(ctx context.Context) (int, error) {
			return 7, nil
		})
		if err != nil || v != 7 {
			t.Fatalf("got %d, %v", v, err)
		}
	})

	t.Run("zero duration has no deadline", func(t *testing.T) {
		_, err := WithTimeout(context.Background(), 0, "x", func(ctx context.Context) (int, error) {
			if _, ok := ctx.Deadline(); ok {
				t.Error("unexpected deadline")
			}
			return 0, nil
		})
		if err != nil {
			t.Fatal(err)
		}
	})
}
