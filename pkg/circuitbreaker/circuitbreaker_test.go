package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             10 * time.Second,
		HalfOpenMaxRequests: 1,
	})
	cb.now = func() time.Time { return *clock }
	return cb
}

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(fail); !errors.Is(err, errBoom) {
			t.Fatalf("attempt %d: expected fn error, got %v", i, err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open, got %s", cb.GetState())
	}

	called := false
	err := cb.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitBreakerOpen) || called {
		t.Fatalf("expected fast failure without calling fn, err=%v called=%v", err, called)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	_ = cb.Execute(succeed)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)

	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed, got %s", cb.GetState())
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail)
	}

	clock = clock.Add(11 * time.Second)
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("expected half-open after one success, got %s", cb.GetState())
	}
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("second probe: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after success threshold, got %s", cb.GetState())
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail)
	}

	clock = clock.Add(11 * time.Second)
	_ = cb.Execute(fail)
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after half-open failure, got %s", cb.GetState())
	}
}

func TestReset(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail)
	}
	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after reset, got %s", cb.GetState())
	}
}

func TestStateString(t *testing.T) {
	if StateHalfOpen.String() != "half_open" || State(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
