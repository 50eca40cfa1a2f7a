package provider

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// HTTPOptions configures the shared connection pool.
type HTTPOptions struct {
	ConnectTimeout  time.Duration
	PoolIdleTimeout time.Duration
	MaxConnections  int
	UserAgent       string
}

// HTTPProvider implements Transport over a pooled http.Client.
// It is safe for concurrent use by many logical calls.
type HTTPProvider struct {
	name       string
	userAgent  string
	httpClient *http.Client

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// NewHTTPProvider creates a new pooled HTTP transport.
func NewHTTPProvider(name string, opts HTTPOptions) *HTTPProvider {
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = 20
	}
	if opts.PoolIdleTimeout <= 0 {
		opts.PoolIdleTimeout = 90 * time.Second
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	dialer := &net.Dialer{Timeout: opts.ConnectTimeout, KeepAlive: 30 * time.Second}

	return &HTTPProvider{
		name:      name,
		userAgent: opts.UserAgent,
		httpClient: &http.Client{
			// Per-attempt deadlines come from the caller's context.
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         dialer.DialContext,
				TLSHandshakeTimeout: opts.ConnectTimeout,
				MaxIdleConns:        opts.MaxConnections,
				MaxIdleConnsPerHost: opts.MaxConnections,
				MaxConnsPerHost:     opts.MaxConnections,
				IdleConnTimeout:     opts.PoolIdleTimeout,
				ForceAttemptHTTP2:   true,
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}
}

// Do sends one request and reads the whole body.
func (p *HTTPProvider) Do(ctx context.Context, req *http.Request) (*Response, error) {
	start := time.Now()

	if p.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		p.recordFailure()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	latency := time.Since(start)
	if resp.StatusCode >= 500 {
		p.recordFailure()
	} else {
		p.recordSuccess(latency)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// GetHealth returns the provider's health status.
func (p *HTTPProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.health
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}
	if p.successCount > 0 {
		p.health.Latency = p.totalLatency / time.Duration(p.successCount)
	}
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}

	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}
