package routing

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/vietddude/odos/internal/infra/rpc/apierr"
	"github.com/vietddude/odos/internal/infra/rpc/provider"
)

// Result is the outcome of one logical call.
type Result struct {
	Endpoint string
	Response *provider.Response
	// Err is a classified error, or the caller's ctx.Err() when the call was
	// cancelled from outside.
	Err      error
	Attempts int
	Elapsed  time.Duration
}

// AttemptInfo describes a finished attempt for hooks.
type AttemptInfo struct {
	Endpoint string
	Attempt  int
	Status   int
	Latency  time.Duration
	Err      apierr.Error
}

// Hooks observe the engine. Every field is optional.
type Hooks struct {
	OnAttempt   func(AttemptInfo)
	OnRetry     func(info AttemptInfo, delay time.Duration)
	OnRateLimit func(endpoint string, err *apierr.RateLimitError)
	OnComplete  func(Result)
}

// ExecutorOptions configure timeouts and observation.
type ExecutorOptions struct {
	// AttemptTimeout bounds a single round trip. Zero disables it.
	AttemptTimeout time.Duration
	// OverallTimeout bounds the whole call including backoff. Zero disables it.
	OverallTimeout time.Duration
	Logger         *slog.Logger
	Hooks          Hooks
}

// Executor drives the attempt loop. It holds no per-call state and can be
// shared by concurrent calls.
type Executor struct {
	transport provider.Transport
	policy    RetryPolicy
	opts      ExecutorOptions
	logger    *slog.Logger
}

// NewExecutor creates an executor over a shared transport.
func NewExecutor(t provider.Transport, policy RetryPolicy, opts ExecutorOptions) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{transport: t, policy: policy, opts: opts, logger: logger}
}

// Policy returns the policy this executor runs.
func (e *Executor) Policy() RetryPolicy {
	return e.policy
}

// Run executes one logical call. Attempts are strictly sequential; factory
// is invoked once per attempt.
func (e *Executor) Run(ctx context.Context, factory provider.RequestFactory) Result {
	start := time.Now()

	callCtx := ctx
	if e.opts.OverallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.opts.OverallTimeout)
		defer cancel()
	}

	var res Result
	finish := func() Result {
		res.Elapsed = time.Since(start)
		if e.opts.Hooks.OnComplete != nil {
			e.opts.Hooks.OnComplete(res)
		}
		return res
	}

	for {
		if err := ctx.Err(); err != nil {
			res.Err = err
			return finish()
		}

		desc, err := factory()
		if err != nil {
			res.Err = buildError(err)
			return finish()
		}
		res.Endpoint = desc.Endpoint

		attemptCtx, attemptCancel := e.attemptContext(callCtx)
		req, err := desc.Build(attemptCtx)
		if err != nil {
			attemptCancel()
			res.Err = buildError(err)
			return finish()
		}

		res.Attempts++
		e.logger.Debug("Executing HTTP request",
			"endpoint", desc.Endpoint,
			"method", req.Method,
			"attempt", res.Attempts,
		)

		attemptStart := time.Now()
		resp, err := e.transport.Do(attemptCtx, req)
		latency := time.Since(attemptStart)
		deadlineHit := errors.Is(attemptCtx.Err(), context.DeadlineExceeded)
		attemptCancel()

		var outcome apierr.Outcome
		switch {
		case err != nil && ctx.Err() != nil:
			res.Err = ctx.Err()
			return finish()
		case err != nil && callCtx.Err() != nil:
			res.Err = &apierr.TimeoutError{Message: "overall call budget exhausted", Timeout: e.opts.OverallTimeout}
			return finish()
		case err != nil && deadlineHit:
			outcome = apierr.TimeoutFailure{Timeout: e.opts.AttemptTimeout, Err: err}
		case err != nil:
			outcome = apierr.TransportOutcome(err, e.opts.AttemptTimeout)
		case resp.OK():
			outcome = apierr.Success{Status: resp.Status, Header: resp.Header, Body: resp.Body}
		default:
			outcome = apierr.APIFailure{Status: resp.Status, Header: resp.Header, Body: resp.Body}
		}

		classified := apierr.Classify(outcome)
		info := AttemptInfo{Endpoint: desc.Endpoint, Attempt: res.Attempts, Latency: latency, Err: classified}
		if resp != nil {
			info.Status = resp.Status
		}
		if e.opts.Hooks.OnAttempt != nil {
			e.opts.Hooks.OnAttempt(info)
		}

		if classified == nil {
			e.logger.Debug("Request successful",
				"endpoint", desc.Endpoint,
				"status", resp.Status,
				"attempt", res.Attempts,
			)
			res.Response = resp
			// Earlier attempts may have failed.
			res.Err = nil
			return finish()
		}
		res.Err = classified

		switch e.policy.Classify(classified) {
		case ActionRateLimited:
			rl := classified.(*apierr.RateLimitError)
			retryAfter, hasHint := rl.RetryAfterHint()
			e.logger.Warn("Rate limited",
				"endpoint", desc.Endpoint,
				"retry_after", retryAfter,
				"has_retry_after", hasHint,
				"trace_id", rl.TraceID.String(),
			)
			if e.opts.Hooks.OnRateLimit != nil {
				e.opts.Hooks.OnRateLimit(desc.Endpoint, rl)
			}
			return finish()
		case ActionFatal:
			return finish()
		}

		if res.Attempts > e.policy.MaxRetries {
			return finish()
		}

		delay := calculateBackoff(res.Attempts-1, e.policy)
		if deadline, ok := callCtx.Deadline(); ok && time.Until(deadline) <= delay {
			e.logger.Debug("Backoff would exceed call budget, giving up",
				"endpoint", desc.Endpoint,
				"attempt", res.Attempts,
				"delay", delay,
			)
			return finish()
		}

		status, _ := apierr.StatusOf(classified)
		e.logger.Warn("Request failed with retryable error, retrying",
			"endpoint", desc.Endpoint,
			"attempt", res.Attempts,
			"category", classified.Category(),
			"status", status,
			"delay", delay,
		)
		if e.opts.Hooks.OnRetry != nil {
			e.opts.Hooks.OnRetry(info, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-callCtx.Done():
			timer.Stop()
			if err := ctx.Err(); err != nil {
				res.Err = err
			}
			return finish()
		case <-timer.C:
		}
	}
}

func (e *Executor) attemptContext(parent context.Context) (context.Context, context.CancelFunc) {
	if e.opts.AttemptTimeout > 0 {
		return context.WithTimeout(parent, e.opts.AttemptTimeout)
	}
	return context.WithCancel(parent)
}

// buildError keeps classified build failures as they are and files anything
// else under a malformed request.
func buildError(err error) error {
	var ce apierr.Error
	if errors.As(err, &ce) {
		return err
	}
	return &apierr.HTTPError{Kind: apierr.TransportMalformed, Err: err}
}

func calculateBackoff(attempt int, policy RetryPolicy) time.Duration {
	multiplier := policy.Multiplier
	if multiplier == 0 {
		multiplier = 2.0
	}
	delay := float64(policy.InitialBackoff) * math.Pow(multiplier, float64(attempt))
	if delay > float64(policy.MaxBackoff) {
		delay = float64(policy.MaxBackoff)
	}
	return time.Duration(delay)
}
