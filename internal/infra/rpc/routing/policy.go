package routing

import (
	"fmt"
	"strings"
	"time"

	"github.com/vietddude/odos/internal/infra/rpc/apierr"
)

// RetryPredicate replaces the default retry verdict when set on a policy.
// It is never consulted for rate-limit errors.
type RetryPredicate func(err apierr.Error) bool

// AlwaysRetry retries every non rate-limit failure until attempts run out.
func AlwaysRetry(apierr.Error) bool { return true }

// NeverRetry makes every call single-shot.
func NeverRetry(apierr.Error) bool { return false }

// Strategy names a predicate for config files.
type Strategy string

const (
	StrategyDefault Strategy = "default"
	StrategyAlways  Strategy = "always"
	StrategyNever   Strategy = "never"
)

// PredicateFor resolves a configured strategy. The default strategy returns
// nil, which means "use the error taxonomy".
func PredicateFor(s Strategy) (RetryPredicate, error) {
	switch Strategy(strings.ToLower(string(s))) {
	case "", StrategyDefault:
		return nil, nil
	case StrategyAlways:
		return AlwaysRetry, nil
	case StrategyNever:
		return NeverRetry, nil
	default:
		return nil, fmt.Errorf("unknown retry strategy %q", s)
	}
}

// RetryPolicy defines retry behavior for one logical call.
type RetryPolicy struct {
	// MaxRetries caps retries; total attempts are MaxRetries+1.
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Multiplier is the exponential growth factor. Zero means 2.
	Multiplier float64
	// RetryServerErrors allows retrying 5xx api errors.
	RetryServerErrors bool
	// Predicate, when non-nil, fully replaces the default verdict.
	Predicate RetryPredicate
}

// DefaultRetryPolicy retries transient failures up to three times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		Multiplier:        2.0,
		RetryServerErrors: true,
	}
}

// ConservativeRetryPolicy does not retry server errors.
func ConservativeRetryPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.RetryServerErrors = false
	return p
}

// NoRetries makes exactly one attempt per call.
func NoRetries() RetryPolicy {
	p := DefaultRetryPolicy()
	p.MaxRetries = 0
	return p
}

// Validate rejects policies the engine cannot run.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.InitialBackoff < 0 {
		return fmt.Errorf("initial_backoff must be >= 0, got %s", p.InitialBackoff)
	}
	if p.MaxBackoff < p.InitialBackoff {
		return fmt.Errorf("max_backoff (%s) must be >= initial_backoff (%s)", p.MaxBackoff, p.InitialBackoff)
	}
	if p.Multiplier != 0 && p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1, got %v", p.Multiplier)
	}
	return nil
}

// ErrorAction determines how the engine handles a classified failure.
type ErrorAction int

const (
	ActionRetry       ErrorAction = iota
	ActionFatal                   // surface to the caller
	ActionRateLimited             // surface, never retried
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionRateLimited:
		return "rate_limited"
	default:
		return "fatal"
	}
}

// Classify decides what to do with err. The rate-limit check runs before
// the predicate so no policy can turn a 429 into a retry.
func (p RetryPolicy) Classify(err apierr.Error) ErrorAction {
	if err == nil {
		return ActionFatal
	}
	if err.Category() == apierr.CategoryRateLimit {
		return ActionRateLimited
	}

	var retry bool
	if p.Predicate != nil {
		retry = p.Predicate(err)
	} else {
		retry = apierr.IsRetryable(err, p.RetryServerErrors)
	}

	if retry {
		return ActionRetry
	}
	return ActionFatal
}
