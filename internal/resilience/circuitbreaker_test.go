package resilience_test

import (
	"errors"
	"testing"
	"time"

	"github.com/asterbyte/jarvis/internal/resilience"
)

var errBackend = errors.New("backend down")

// stepClock is a manually advanced time source.
type stepClock struct {
	now time.Time
}

func (c *stepClock) time() time.Time { return c.now }

func (c *stepClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newBreaker(clk *stepClock) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  3,
		ResetTimeout: 10 * time.Second,
		HalfOpenMax:  2,
		Clock:        clk.time,
	})
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	t.Parallel()
	cb := newBreaker(&stepClock{now: time.Now()})

	for i := 0; i < 10; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if cb.State() != resilience.StateClosed {
		t.Errorf("state = %v; want closed", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	t.Parallel()
	cb := newBreaker(&stepClock{now: time.Now()})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBackend })
	}
	if cb.State() != resilience.StateOpen {
		t.Fatalf("state = %v; want open", cb.State())
	}

	err := cb.Execute(func() error {
		t.Error("fn must not run while the breaker is open")
		return nil
	})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("err = %v; want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()
	cb := newBreaker(&stepClock{now: time.Now()})

	_ = cb.Execute(func() error { return errBackend })
	_ = cb.Execute(func() error { return errBackend })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBackend })
	_ = cb.Execute(func() error { return errBackend })

	if cb.State() != resilience.StateClosed {
		t.Errorf("state = %v; want closed (failures are not consecutive)", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenClosesAfterProbes(t *testing.T) {
	t.Parallel()
	clk := &stepClock{now: time.Now()}
	cb := newBreaker(clk)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBackend })
	}
	clk.advance(11 * time.Second)

	if cb.State() != resilience.StateHalfOpen {
		t.Fatalf("state = %v; want half-open after reset timeout", cb.State())
	}

	// HalfOpenMax successful probes close the breaker.
	for i := 0; i < 2; i++ {
		if err := cb.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: %v", i, err)
		}
	}
	if cb.State() != resilience.StateClosed {
		t.Errorf("state = %v; want closed after successful probes", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenReopensOnFailure(t *testing.T) {
	t.Parallel()
	clk := &stepClock{now: time.Now()}
	cb := newBreaker(clk)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBackend })
	}
	clk.advance(11 * time.Second)

	_ = cb.Execute(func() error { return errBackend })
	if cb.State() != resilience.StateOpen {
		t.Errorf("state = %v; want open after failed probe", cb.State())
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	t.Parallel()
	cb := newBreaker(&stepClock{now: time.Now()})

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errBackend })
	}
	cb.Reset()

	if cb.State() != resilience.StateClosed {
		t.Fatalf("state = %v; want closed after Reset", cb.State())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Errorf("Execute after Reset: %v", err)
	}
}

func TestState_String(t *testing.T) {
	t.Parallel()
	cases := []struct {
		state resilience.State
		want  string
	}{
		{resilience.StateClosed, "closed"},
		{resilience.StateOpen, "open"},
		{resilience.StateHalfOpen, "half-open"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q; want %q", tc.state, got, tc.want)
		}
	}
}
