// Package provider is the transport layer under the retry engine.
//
// This package contains:
//   - Request / RequestFactory: the per-attempt request descriptor
//   - Transport interface: one round trip, no retries
//   - HTTPProvider: pooled net/http implementation of Transport
//   - Monitor: latency and throttle tracking
package provider

import (
	"context"
	"net/http"
	"time"
)

// Transport issues exactly one request and returns the fully read response.
// A returned error means no response was received.
type Transport interface {
	// Do sends req. The response body is read before Do returns, so the
	// connection is back in the pool by the time the caller sees it.
	Do(ctx context.Context, req *http.Request) (*Response, error)

	// GetName returns the transport identifier used in logs.
	GetName() string

	// Close releases pooled connections.
	Close() error
}

// Response is a raw HTTP response with its body already consumed.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// HealthReporter is implemented by transports that track their own health.
type HealthReporter interface {
	GetHealth() HealthStatus
}

// HealthStatus represents the health state of a transport.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
	Circuit       string        `json:"circuit,omitempty"`
}
