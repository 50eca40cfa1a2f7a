// Package rpc provides a resilient client for the Odos aggregator API.
//
// This package offers:
//   - A typed error taxonomy with aggregator error codes and trace ids
//   - Exponential backoff with a per-attempt and an overall timeout
//   - A hard rule that 429 responses are never retried internally
//   - A pooled HTTP transport shared by concurrent calls
//   - Optional journaling of terminal failures
//
// # Quick Start
//
//	import "github.com/vietddude/odos/internal/infra/rpc"
//
//	client, err := rpc.NewClient(rpc.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	factory := rpc.JSONRequest("quote", http.MethodPost, url, header, body)
//	resp, err := client.ExecuteWithRetry(ctx, factory)
//	if apierr.IsRateLimit(err) {
//	    wait, _ := apierr.RetryAfterOf(err)
//	    // coordinate at the application level, see package budget
//	}
//
// # Package Structure
//
//   - apierr/   - Error classifier, rate-limit gate, error-code table
//   - routing/  - Retry policy and the attempt loop
//   - provider/ - Request descriptors, pooled transport, monitoring
//   - budget/   - Application-level quota and cooldown tracking
//
// Most types are re-exported at the root level for convenience.
package rpc

import (
	"net/http"

	"github.com/vietddude/odos/internal/infra/rpc/apierr"
	"github.com/vietddude/odos/internal/infra/rpc/provider"
	"github.com/vietddude/odos/internal/infra/rpc/routing"
)

// =============================================================================
// Re-exported types from provider package
// =============================================================================

// Request describes one unsent HTTP request.
type Request = provider.Request

// RequestFactory produces a fresh Request per attempt.
type RequestFactory = provider.RequestFactory

// Response is a raw response with its body read.
type Response = provider.Response

// Transport issues exactly one request.
type Transport = provider.Transport

// HealthStatus represents the health state of the transport.
type HealthStatus = provider.HealthStatus

// MonitorStats holds monitoring statistics.
type MonitorStats = provider.MonitorStats

// JSONRequest returns a factory that marshals payload on every attempt.
func JSONRequest(endpoint, method, url string, header http.Header, payload any) RequestFactory {
	return provider.JSONRequest(endpoint, method, url, header, payload)
}

// =============================================================================
// Re-exported types from routing package
// =============================================================================

// RetryPolicy defines retry behavior.
type RetryPolicy = routing.RetryPolicy

// RetryPredicate overrides the default retry verdict.
type RetryPredicate = routing.RetryPredicate

// Retry presets
var (
	DefaultRetryPolicy      = routing.DefaultRetryPolicy
	ConservativeRetryPolicy = routing.ConservativeRetryPolicy
	NoRetries               = routing.NoRetries
	AlwaysRetry             = routing.AlwaysRetry
	NeverRetry              = routing.NeverRetry
)

// =============================================================================
// Re-exported types from apierr package
// =============================================================================

// Error is a classified failure.
type Error = apierr.Error

// ErrorCode is an aggregator error code.
type ErrorCode = apierr.ErrorCode

// Category is the error category name.
type Category = apierr.Category
