package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vietddude/odos/internal/core/domain"
	"github.com/vietddude/odos/internal/infra/metrics"
	"github.com/vietddude/odos/internal/infra/rpc"
	"github.com/vietddude/odos/internal/infra/rpc/apierr"
	"github.com/vietddude/odos/internal/infra/rpc/budget"
)

const (
	endpointQuote    = "quote"
	endpointAssemble = "assemble"
)

// Executor runs one logical call with retries. *rpc.Client implements it.
type Executor interface {
	ExecuteJSON(ctx context.Context, factory rpc.RequestFactory, out any) error
}

// Client calls the quote and assemble endpoints.
type Client struct {
	exec     Executor
	endpoint Endpoint
	apiKey   domain.APIKey
	tracker  budget.Tracker
	logger   *slog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithAPIKey sends key in the x-api-key header.
func WithAPIKey(key domain.APIKey) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTracker makes every call wait out cooldowns recorded in t and record
// new ones when the server answers 429.
func WithTracker(t budget.Tracker) Option {
	return func(c *Client) { c.tracker = t }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates an aggregator client on top of exec.
func NewClient(exec Executor, endpoint Endpoint, opts ...Option) *Client {
	c := &Client{
		exec:     exec,
		endpoint: endpoint,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the deployment this client talks to.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Quote requests a swap quote.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp QuoteResponse
	if err := c.call(ctx, endpointQuote, c.endpoint.QuoteURL(), &req, &resp); err != nil {
		return nil, err
	}
	if resp.PathID == "" {
		return nil, &apierr.MissingDataError{Message: "quote response has no pathId"}
	}

	c.logger.Debug("Quote received",
		"chain", domain.ChainID(req.ChainID),
		"path_id", resp.PathID,
		"out_amount", resp.OutAmount(),
		"price_impact", resp.PriceImpact,
	)
	return &resp, nil
}

// Assemble turns a quoted path into a router transaction.
func (c *Client) Assemble(ctx context.Context, req AssembleRequest) (*AssembleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp AssembleResponse
	if err := c.call(ctx, endpointAssemble, c.endpoint.AssembleURL(), &req, &resp); err != nil {
		return nil, err
	}
	if resp.Transaction.Data == "" {
		return nil, &apierr.MissingDataError{Message: "assemble response has no transaction data"}
	}
	if _, err := resp.Transaction.DecodeData(); err != nil {
		return nil, err
	}
	if sim := resp.Simulation; req.Simulate && sim != nil && !sim.IsSuccess {
		return nil, &apierr.TransactionAssemblyError{Message: "simulation failed: " + sim.SimulationError.ErrorMessage}
	}
	return &resp, nil
}

func (c *Client) call(ctx context.Context, name, url string, payload, out any) error {
	scope := c.endpoint.Scope()

	if c.tracker != nil {
		if err := c.tracker.Wait(ctx, scope); err != nil {
			return err
		}
		if !c.tracker.CanMakeCall(scope) {
			return &apierr.RateLimitError{Message: "local daily quota exhausted for " + scope}
		}
		c.tracker.RecordCall(scope, name)
	}

	header := make(http.Header)
	if !c.apiKey.IsZero() {
		header.Set("x-api-key", c.apiKey.Reveal())
	}

	err := c.exec.ExecuteJSON(ctx, rpc.JSONRequest(name, http.MethodPost, url, header, payload), out)

	var rl *apierr.RateLimitError
	if errors.As(err, &rl) && c.tracker != nil {
		if rerr := c.tracker.RecordRateLimit(ctx, scope, rl.RetryAfter); rerr != nil {
			c.logger.Warn("Failed to record rate limit", "scope", scope, "error", rerr)
		}
		if d, ok := rl.RetryAfterHint(); ok {
			metrics.CooldownSeconds.WithLabelValues(scope).Set(d.Seconds())
		}
	}
	return err
}
