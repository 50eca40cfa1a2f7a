package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/odos/internal/core/domain"
	"github.com/vietddude/odos/internal/infra/metrics"
	"github.com/vietddude/odos/internal/infra/rpc/apierr"
	"github.com/vietddude/odos/internal/infra/rpc/provider"
	"github.com/vietddude/odos/internal/infra/rpc/routing"
	"github.com/vietddude/odos/internal/infra/storage"
)

// Client is the high-level entry point for aggregator calls.
// This is what application layers should use.
type Client struct {
	config    Config
	transport provider.Transport
	executor  *routing.Executor
	breaker   *routing.CircuitBreaker
	monitor   *provider.Monitor
	journal   storage.FailureRepository
	logger    *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the logger used by the client and its engine.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTransport replaces the pooled HTTP transport.
func WithTransport(t provider.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithJournal records terminal failures into repo.
func WithJournal(repo storage.FailureRepository) Option {
	return func(c *Client) { c.journal = repo }
}

// NewClient validates cfg and builds the shared transport and engine.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:  cfg,
		monitor: provider.NewMonitor(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport = provider.NewHTTPProvider("odos", provider.HTTPOptions{
			ConnectTimeout:  cfg.ConnectTimeout,
			PoolIdleTimeout: cfg.PoolIdleTimeout,
			MaxConnections:  cfg.MaxConnections,
			UserAgent:       cfg.UserAgent,
		})
	}

	c.executor = routing.NewExecutor(c.transport, cfg.Retry, routing.ExecutorOptions{
		AttemptTimeout: cfg.Timeout,
		OverallTimeout: cfg.OverallTimeout,
		Logger:         c.logger,
		Hooks:          c.hooks(),
	})

	c.breaker = routing.NewCircuitBreaker(routing.BreakerOptions{
		Threshold:    cfg.CircuitBreakerThreshold,
		ResetTimeout: cfg.CircuitBreakerResetTimeout,
		Logger:       c.logger,
		OnStateChange: func(_, to routing.BreakerState) {
			metrics.CircuitBreakerState.Set(float64(to))
		},
	})

	return c, nil
}

// ExecuteWithRetry runs one logical call. factory is invoked once per
// attempt. On failure the error is an apierr.Error, or ctx.Err() when the
// caller cancelled. While the circuit breaker is open nothing is sent and
// the error is an *apierr.CircuitBreakerError.
func (c *Client) ExecuteWithRetry(ctx context.Context, factory provider.RequestFactory) (*provider.Response, error) {
	if err := c.breaker.Allow(); err != nil {
		metrics.CircuitRejectedTotal.Inc()
		return nil, err
	}

	res := c.executor.Run(ctx, factory)
	switch {
	case routing.CountsAsBreakerFailure(res.Err):
		c.breaker.RecordFailure()
	case routing.CountsAsBreakerSuccess(res.Err):
		c.breaker.RecordSuccess()
	default:
		c.breaker.Release()
	}

	if res.Err != nil {
		c.recordFailure(ctx, res)
		return nil, res.Err
	}
	return res.Response, nil
}

// ExecuteJSON runs the call and decodes a successful body into out.
func (c *Client) ExecuteJSON(ctx context.Context, factory provider.RequestFactory, out any) error {
	resp, err := c.ExecuteWithRetry(ctx, factory)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &apierr.JSONError{Err: err}
	}
	return nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Monitor returns the latency and throttle monitor.
func (c *Client) Monitor() *provider.Monitor {
	return c.monitor
}

// Breaker returns the client's circuit breaker.
func (c *Client) Breaker() *routing.CircuitBreaker {
	return c.breaker
}

// Health combines transport health with monitor stats and breaker state.
func (c *Client) Health() provider.HealthStatus {
	var h provider.HealthStatus
	if hr, ok := c.transport.(provider.HealthReporter); ok {
		h = hr.GetHealth()
	} else {
		h.Available = true
	}
	stats := c.monitor.GetStats()
	h.MonitorStats = &stats
	if c.breaker.Enabled() {
		state := c.breaker.State()
		h.Circuit = state.String()
		if state == routing.BreakerOpen {
			h.Available = false
		}
	}
	return h
}

// Close releases pooled connections.
func (c *Client) Close() error {
	return c.transport.Close()
}

func (c *Client) hooks() routing.Hooks {
	return routing.Hooks{
		OnAttempt: func(info routing.AttemptInfo) {
			outcome := "success"
			if info.Err != nil {
				outcome = string(info.Err.Category())
			}
			metrics.HTTPAttemptsTotal.WithLabelValues(info.Endpoint, outcome).Inc()
			metrics.AttemptLatency.WithLabelValues(info.Endpoint).Observe(info.Latency.Seconds())
			if info.Status != 0 {
				c.monitor.RecordRequest(info.Latency)
			}
		},
		OnRetry: func(info routing.AttemptInfo, _ time.Duration) {
			metrics.HTTPRetriesTotal.WithLabelValues(info.Endpoint, string(info.Err.Category())).Inc()
		},
		OnRateLimit: func(endpoint string, err *apierr.RateLimitError) {
			metrics.RateLimitedTotal.WithLabelValues(endpoint).Inc()
			c.monitor.RecordThrottle(err.RetryAfter)
		},
		OnComplete: func(res routing.Result) {
			metrics.CallsTotal.WithLabelValues(res.Endpoint, resultLabel(res.Err)).Inc()
		},
	}
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	if cat := apierr.CategoryOf(err); cat != "" {
		return string(cat)
	}
	return "unknown"
}

func (c *Client) recordFailure(ctx context.Context, res routing.Result) {
	if c.journal == nil {
		return
	}
	rec, ok := FailureRecordFrom(res.Endpoint, res.Attempts, res.Err)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := c.journal.Add(ctx, rec); err != nil {
		c.logger.Warn("Failed to journal failure", "endpoint", res.Endpoint, "error", err)
	}
}

// FailureRecordFrom builds a journal entry from a classified error. Caller
// cancellations and unclassified errors are not journaled.
func FailureRecordFrom(endpoint string, attempts int, err error) (*domain.FailureRecord, bool) {
	var ce apierr.Error
	if !errors.As(err, &ce) {
		return nil, false
	}

	rec := &domain.FailureRecord{
		Endpoint: endpoint,
		Category: string(ce.Category()),
		Message:  ce.Error(),
		Attempts: attempts,
	}
	if status, ok := apierr.StatusOf(err); ok {
		rec.Status = status
	}
	if code, ok := apierr.CodeOf(err); ok {
		rec.ErrorCode = int(code)
	}
	if traceID, ok := apierr.TraceIDOf(err); ok {
		rec.TraceID = traceID.String()
	}
	if retryAfter, ok := apierr.RetryAfterOf(err); ok {
		rec.RetryAfter = retryAfter
	}
	return rec, true
}
