package routing

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/vietddude/odos/internal/infra/rpc/apierr"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, reset time.Duration) (*CircuitBreaker, *fakeClock, *[]BreakerState) {
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	var transitions []BreakerState
	b := NewCircuitBreaker(BreakerOptions{
		Threshold:     threshold,
		ResetTimeout:  reset,
		Logger:        quietLogger,
		OnStateChange: func(_, to BreakerState) { transitions = append(transitions, to) },
	})
	b.now = clock.now
	return b, clock, &transitions
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	b, _, transitions := newTestBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("closed breaker rejected call %d: %v", i, err)
		}
		b.RecordFailure()
	}
	if b.State() != BreakerClosed {
		t.Fatalf("expected closed below threshold, got %s", b.State())
	}

	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}
	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected open at threshold, got %s", b.State())
	}

	err := b.Allow()
	var cbErr *apierr.CircuitBreakerError
	if !errors.As(err, &cbErr) {
		t.Fatalf("expected circuit breaker error, got %v", err)
	}
	if cbErr.RetryAfter != time.Minute {
		t.Errorf("expected full reset timeout remaining, got %s", cbErr.RetryAfter)
	}
	if apierr.CategoryOf(err) != apierr.CategoryCircuitBreaker {
		t.Errorf("unexpected category %q", apierr.CategoryOf(err))
	}
	if len(*transitions) != 1 || (*transitions)[0] != BreakerOpen {
		t.Errorf("unexpected transitions %v", *transitions)
	}
}

func TestCircuitBreaker_SuccessResetsStreak(t *testing.T) {
	b, _, _ := newTestBreaker(2, time.Minute)

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	if b.State() != BreakerClosed || b.ConsecutiveFailures() != 1 {
		t.Errorf("success must reset the streak, got %s with %d failures", b.State(), b.ConsecutiveFailures())
	}
}

func TestCircuitBreaker_HalfOpenTransitions(t *testing.T) {
	tests := []struct {
		name    string
		outcome func(*CircuitBreaker)
		want    BreakerState
	}{
		{name: "trial succeeds", outcome: (*CircuitBreaker).RecordSuccess, want: BreakerClosed},
		{name: "trial fails", outcome: (*CircuitBreaker).RecordFailure, want: BreakerOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, clock, _ := newTestBreaker(1, 30*time.Second)
			b.RecordFailure()

			clock.advance(10 * time.Second)
			if err := b.Allow(); err == nil {
				t.Fatal("breaker should still be open before the reset timeout")
			}

			clock.advance(20 * time.Second)
			if err := b.Allow(); err != nil {
				t.Fatalf("expected trial call after reset timeout, got %v", err)
			}
			if b.State() != BreakerHalfOpen {
				t.Fatalf("expected half-open, got %s", b.State())
			}
			if err := b.Allow(); err == nil {
				t.Fatal("half-open breaker admits one trial call at a time")
			}

			tt.outcome(b)
			if b.State() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, b.State())
			}
		})
	}
}

func TestCircuitBreaker_FailedTrialRestartsTimeout(t *testing.T) {
	b, clock, _ := newTestBreaker(1, 30*time.Second)
	b.RecordFailure()

	clock.advance(31 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}
	b.RecordFailure()

	clock.advance(10 * time.Second)
	if err := b.Allow(); err == nil {
		t.Error("reopened breaker must wait a full reset timeout again")
	}
}

func TestCircuitBreaker_ReleaseFreesTrial(t *testing.T) {
	b, clock, _ := newTestBreaker(1, time.Second)
	b.RecordFailure()
	clock.advance(2 * time.Second)

	if err := b.Allow(); err != nil {
		t.Fatal(err)
	}
	b.Release()
	if b.State() != BreakerHalfOpen {
		t.Fatalf("release must not change state, got %s", b.State())
	}
	if err := b.Allow(); err != nil {
		t.Errorf("released trial slot should admit the next call: %v", err)
	}
}

func TestCircuitBreaker_Disabled(t *testing.T) {
	b, _, _ := newTestBreaker(0, time.Minute)
	for i := 0; i < 100; i++ {
		b.RecordFailure()
	}
	if err := b.Allow(); err != nil || b.State() != BreakerClosed {
		t.Errorf("disabled breaker must never open: %v %s", err, b.State())
	}

	var nilBreaker *CircuitBreaker
	if err := nilBreaker.Allow(); err != nil {
		t.Errorf("nil breaker should admit calls: %v", err)
	}
}

func TestBreakerVerdicts(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantFailure bool
		wantSuccess bool
	}{
		{name: "success", err: nil, wantSuccess: true},
		{name: "connect", err: &apierr.HTTPError{Kind: apierr.TransportConnect}, wantFailure: true},
		{name: "malformed request", err: &apierr.HTTPError{Kind: apierr.TransportMalformed}},
		{name: "timeout", err: &apierr.TimeoutError{Message: "slow"}, wantFailure: true},
		{name: "server error", err: &apierr.APIError{Status: http.StatusBadGateway}, wantFailure: true},
		{name: "client error", err: &apierr.APIError{Status: http.StatusBadRequest}, wantSuccess: true},
		{name: "rate limited", err: &apierr.RateLimitError{}, wantSuccess: true},
		{name: "cancelled", err: context.Canceled},
		{name: "invalid input", err: &apierr.InvalidInputError{Message: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountsAsBreakerFailure(tt.err); got != tt.wantFailure {
				t.Errorf("failure verdict = %v, want %v", got, tt.wantFailure)
			}
			if got := CountsAsBreakerSuccess(tt.err); got != tt.wantSuccess {
				t.Errorf("success verdict = %v, want %v", got, tt.wantSuccess)
			}
		})
	}
}
