package routing

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/odos/internal/infra/rpc/apierr"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// BreakerOptions configures a CircuitBreaker.
type BreakerOptions struct {
	// Threshold is the number of consecutive failed calls that opens the
	// breaker. Zero or less disables it.
	Threshold int
	// ResetTimeout is how long the breaker stays open before it lets a
	// trial call through.
	ResetTimeout time.Duration
	Logger       *slog.Logger
	// OnStateChange runs with the breaker lock held.
	OnStateChange func(from, to BreakerState)
}

// CircuitBreaker stops logical calls from reaching an aggregator that keeps
// failing. It counts whole calls, not attempts: the retry engine has already
// spent its budget by the time a failure is recorded.
//
// Closed lets every call through. Threshold consecutive failures open it.
// Once ResetTimeout has passed the breaker goes half-open and admits a single
// trial call; success closes it and failure opens it again.
type CircuitBreaker struct {
	mu               sync.Mutex
	opts             BreakerOptions
	state            BreakerState
	consecutiveFails int
	openedAt         time.Time
	trialInFlight    bool
	logger           *slog.Logger

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(opts BreakerOptions) *CircuitBreaker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Enabled reports whether the breaker can ever open.
func (b *CircuitBreaker) Enabled() bool {
	return b != nil && b.opts.Threshold > 0
}

// Allow admits a call or returns a *apierr.CircuitBreakerError. Every
// admitted call must be followed by exactly one of RecordSuccess,
// RecordFailure or Release.
func (b *CircuitBreaker) Allow() error {
	if !b.Enabled() {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		remaining := b.opts.ResetTimeout - b.now().Sub(b.openedAt)
		if remaining > 0 {
			return &apierr.CircuitBreakerError{
				Message:    fmt.Sprintf("open after %d consecutive failures", b.consecutiveFails),
				RetryAfter: remaining,
			}
		}
		b.setStateLocked(BreakerHalfOpen)
		b.trialInFlight = true
		return nil
	case BreakerHalfOpen:
		if b.trialInFlight {
			return &apierr.CircuitBreakerError{Message: "half-open, trial call in flight"}
		}
		b.trialInFlight = true
		return nil
	default:
		return nil
	}
}

// RecordSuccess closes the breaker and clears the failure streak.
func (b *CircuitBreaker) RecordSuccess() {
	if !b.Enabled() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails = 0
	b.trialInFlight = false
	if b.state != BreakerClosed {
		b.setStateLocked(BreakerClosed)
	}
}

// RecordFailure extends the failure streak and opens the breaker once it
// reaches the threshold. A failed trial call reopens it immediately.
func (b *CircuitBreaker) RecordFailure() {
	if !b.Enabled() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFails++
	b.trialInFlight = false

	switch {
	case b.state == BreakerHalfOpen:
		b.openedAt = b.now()
		b.setStateLocked(BreakerOpen)
	case b.state == BreakerClosed && b.consecutiveFails >= b.opts.Threshold:
		b.openedAt = b.now()
		b.setStateLocked(BreakerOpen)
	}
}

// Release gives back an admitted call that produced no verdict on upstream
// health, such as a caller cancellation.
func (b *CircuitBreaker) Release() {
	if !b.Enabled() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialInFlight = false
}

// State returns the current state. An open breaker whose reset timeout has
// passed still reports open until the next Allow.
func (b *CircuitBreaker) State() BreakerState {
	if !b.Enabled() {
		return BreakerClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ConsecutiveFailures returns the current failure streak.
func (b *CircuitBreaker) ConsecutiveFailures() int {
	if !b.Enabled() {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFails
}

func (b *CircuitBreaker) setStateLocked(to BreakerState) {
	from := b.state
	b.state = to

	switch to {
	case BreakerOpen:
		b.logger.Warn("Circuit breaker opened",
			"failures", b.consecutiveFails,
			"reset_timeout", b.opts.ResetTimeout,
		)
	case BreakerHalfOpen:
		b.logger.Info("Circuit breaker half-open, admitting trial call")
	case BreakerClosed:
		b.logger.Info("Circuit breaker closed")
	}

	if b.opts.OnStateChange != nil {
		b.opts.OnStateChange(from, to)
	}
}

// CountsAsBreakerFailure reports whether a terminal call error says the
// aggregator is unhealthy. Transport failures and timeouts count, as do 5xx
// responses. Requests that could not be built never reached it.
func CountsAsBreakerFailure(err error) bool {
	switch apierr.CategoryOf(err) {
	case apierr.CategoryHTTP:
		var he *apierr.HTTPError
		return errors.As(err, &he) && he.Kind != apierr.TransportMalformed
	case apierr.CategoryTimeout:
		return true
	case apierr.CategoryAPI:
		status, _ := apierr.StatusOf(err)
		return status >= 500
	default:
		return false
	}
}

// CountsAsBreakerSuccess reports whether a terminal call error still proves
// the aggregator is reachable.
func CountsAsBreakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	switch apierr.CategoryOf(err) {
	case apierr.CategoryRateLimit:
		return true
	case apierr.CategoryAPI:
		status, _ := apierr.StatusOf(err)
		return status < 500
	default:
		return false
	}
}
