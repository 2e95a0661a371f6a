package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), fastRetry(3), func() (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("Retry = %q, %v", got, err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	calls := 0
	err := RetryFunc(context.Background(), fastRetry(2), func() error {
		calls++
		return errTransient
	})
	if !errors.Is(err, errTransient) {
		t.Fatalf("err = %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryStopsWhenRetryIfRejects(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := fastRetry(5)
	cfg.RetryIf = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := RetryFunc(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Fatalf("err = %v, calls = %d", err, calls)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	err := RetryFunc(ctx, cfg, func() error { return errTransient })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond, BackoffFactor: 2}
	if got := Backoff(1, cfg); got != 100*time.Millisecond {
		t.Errorf("attempt 1 = %v", got)
	}
	if got := Backoff(2, cfg); got != 200*time.Millisecond {
		t.Errorf("attempt 2 = %v", got)
	}
	if got := Backoff(5, cfg); got != 300*time.Millisecond {
		t.Errorf("attempt 5 = %v, want cap", got)
	}
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	now := time.Now()
	var transitions []State
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "jobs",
		MaxFailures: 2,
		Timeout:     time.Minute,
		OnStateChange: func(_ string, _, to State) {
			transitions = append(transitions, to)
		},
	})
	cb.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errTransient })
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker returned %v", err)
	}

	now = now.Add(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial call: %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.State())
	}

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v", transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreakerReopensOnTrialFailure(t *testing.T) {
	now := time.Now()
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errTransient })
	now = now.Add(time.Second)
	_ = cb.Execute(func() error { return errTransient })
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("state after reset = %v", cb.State())
	}
}

func TestStateString(t *testing.T) {
	if StateHalfOpen.String() != "half-open" || State(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
