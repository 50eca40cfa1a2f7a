// Package apierr classifies aggregator call outcomes into a closed error
// taxonomy and decides which of them are worth another attempt.
//
// Every terminal failure handed back by the rpc client implements Error.
// Callers inspect it with errors.As against a concrete type, with the
// CategoryOf/CodeOf/TraceIDOf/RetryAfterOf helpers, or with errors.Is
// against the category sentinels (ErrRateLimit, ErrTimeout, ...).
package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vietddude/odos/internal/core/domain"
)

// Category is the stable, metrics-friendly name of an error kind.
type Category string

const (
	CategoryHTTP                Category = "http"
	CategoryAPI                 Category = "api"
	CategoryJSON                Category = "json"
	CategoryHex                 Category = "hex"
	CategoryInvalidInput        Category = "invalid_input"
	CategoryMissingData         Category = "missing_data"
	CategoryUnsupportedChain    Category = "unsupported_chain"
	CategoryContract            Category = "contract"
	CategoryTransactionAssembly Category = "transaction_assembly"
	CategoryQuoteRequest        Category = "quote_request"
	CategoryConfiguration       Category = "configuration"
	CategoryTimeout             Category = "timeout"
	CategoryRateLimit           Category = "rate_limit"
	CategoryInternal            Category = "internal"
	CategoryCircuitBreaker      Category = "circuit_breaker"
)

// Sentinel errors, one per category, matched with errors.Is.
var (
	ErrHTTP                = errors.New("http request failed")
	ErrAPI                 = errors.New("api error")
	ErrJSON                = errors.New("json processing error")
	ErrHex                 = errors.New("hex decoding error")
	ErrInvalidInput        = errors.New("invalid input")
	ErrMissingData         = errors.New("missing required data")
	ErrUnsupportedChain    = errors.New("chain not supported")
	ErrContract            = errors.New("contract error")
	ErrTransactionAssembly = errors.New("transaction assembly failed")
	ErrQuoteRequest        = errors.New("quote request failed")
	ErrConfiguration       = errors.New("configuration error")
	ErrTimeout             = errors.New("operation timed out")
	ErrRateLimit           = errors.New("rate limit exceeded")
	ErrInternal            = errors.New("internal error")
	ErrCircuitOpen         = errors.New("circuit breaker is open")
)

var sentinels = map[Category]error{
	CategoryHTTP:                ErrHTTP,
	CategoryAPI:                 ErrAPI,
	CategoryJSON:                ErrJSON,
	CategoryHex:                 ErrHex,
	CategoryInvalidInput:        ErrInvalidInput,
	CategoryMissingData:         ErrMissingData,
	CategoryUnsupportedChain:    ErrUnsupportedChain,
	CategoryContract:            ErrContract,
	CategoryTransactionAssembly: ErrTransactionAssembly,
	CategoryQuoteRequest:        ErrQuoteRequest,
	CategoryConfiguration:       ErrConfiguration,
	CategoryTimeout:             ErrTimeout,
	CategoryRateLimit:           ErrRateLimit,
	CategoryInternal:            ErrInternal,
	CategoryCircuitBreaker:      ErrCircuitOpen,
}

// Error is a classified failure. The set of implementations is closed.
type Error interface {
	error
	Category() Category
	classified()
}

func isCategory(c Category, target error) bool {
	s, ok := sentinels[c]
	return ok && target == s
}

// TransportKind narrows down why a request never produced a response.
type TransportKind int

const (
	TransportRequest   TransportKind = iota // generic send/receive failure
	TransportConnect                        // dial refused or reset
	TransportDNS                            // name resolution
	TransportTLS                            // handshake or certificate
	TransportTimeout                        // transport-level deadline
	TransportMalformed                      // request could not be built
)

func (k TransportKind) String() string {
	switch k {
	case TransportConnect:
		return "connect"
	case TransportDNS:
		return "dns"
	case TransportTLS:
		return "tls"
	case TransportTimeout:
		return "timeout"
	case TransportMalformed:
		return "malformed_request"
	default:
		return "request"
	}
}

// HTTPError is a transport-level failure: no usable HTTP response.
type HTTPError struct {
	Kind TransportKind
	Err  error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP request failed (%s): %v", e.Kind, e.Err)
}
func (e *HTTPError) Unwrap() error { return e.Err }
func (e *HTTPError) Is(target error) bool { return isCategory(CategoryHTTP, target) }
func (e *HTTPError) Category() Category { return CategoryHTTP }
func (e *HTTPError) classified() {}

// APIError is a non-2xx response from the aggregator other than 429.
type APIError struct {
	Status  int
	Message string
	Code    ErrorCode
	TraceID domain.TraceID
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("Odos API error (status: %d %s): %s", e.Status, http.StatusText(e.Status), e.Message)
	if e.Code != CodeUnknown {
		msg += fmt.Sprintf(" [code: %s]", e.Code)
	}
	if !e.TraceID.IsZero() {
		msg += fmt.Sprintf(" [trace: %s]", e.TraceID)
	}
	return msg
}
func (e *APIError) Is(target error) bool { return isCategory(CategoryAPI, target) }
func (e *APIError) Category() Category { return CategoryAPI }
func (e *APIError) classified() {}

// RateLimitError is an HTTP 429. It is never retried by the engine.
type RateLimitError struct {
	Message string
	// RetryAfter is nil when the server sent no usable Retry-After header.
	// A pointer to zero means "may retry immediately".
	RetryAfter *time.Duration
	Code       ErrorCode
	TraceID    domain.TraceID
}

func (e *RateLimitError) Error() string {
	msg := "Rate limit exceeded: " + e.Message
	if e.RetryAfter != nil {
		msg += fmt.Sprintf(" (retry after %s)", *e.RetryAfter)
	}
	if !e.TraceID.IsZero() {
		msg += fmt.Sprintf(" [trace: %s]", e.TraceID)
	}
	return msg
}
func (e *RateLimitError) Is(target error) bool { return isCategory(CategoryRateLimit, target) }
func (e *RateLimitError) Category() Category { return CategoryRateLimit }
func (e *RateLimitError) classified() {}

// RetryAfterHint returns the server hint and whether one was sent.
func (e *RateLimitError) RetryAfterHint() (time.Duration, bool) {
	if e.RetryAfter == nil {
		return 0, false
	}
	return *e.RetryAfter, true
}

// TimeoutError is a per-attempt or overall deadline expiry.
type TimeoutError struct {
	Message string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("Operation timed out: %s (after %s)", e.Message, e.Timeout)
	}
	return "Operation timed out: " + e.Message
}
func (e *TimeoutError) Is(target error) bool { return isCategory(CategoryTimeout, target) }
func (e *TimeoutError) Category() Category { return CategoryTimeout }
func (e *TimeoutError) classified() {}

// JSONError wraps an encode/decode failure.
type JSONError struct{ Err error }

func (e *JSONError) Error() string { return "JSON processing error: " + e.Err.Error() }
func (e *JSONError) Unwrap() error { return e.Err }
func (e *JSONError) Is(target error) bool { return isCategory(CategoryJSON, target) }
func (e *JSONError) Category() Category { return CategoryJSON }
func (e *JSONError) classified() {}

// HexError wraps a calldata decoding failure.
type HexError struct{ Err error }

func (e *HexError) Error() string { return "Hex decoding error: " + e.Err.Error() }
func (e *HexError) Unwrap() error { return e.Err }
func (e *HexError) Is(target error) bool { return isCategory(CategoryHex, target) }
func (e *HexError) Category() Category { return CategoryHex }
func (e *HexError) classified() {}

// InvalidInputError rejects caller-supplied parameters before any request is sent.
type InvalidInputError struct{ Message string }

func (e *InvalidInputError) Error() string { return "Invalid input: " + e.Message }
func (e *InvalidInputError) Is(target error) bool { return isCategory(CategoryInvalidInput, target) }
func (e *InvalidInputError) Category() Category { return CategoryInvalidInput }
func (e *InvalidInputError) classified() {}

// MissingDataError reports a response that lacks a field the caller needs.
type MissingDataError struct{ Message string }

func (e *MissingDataError) Error() string { return "Missing required data: " + e.Message }
func (e *MissingDataError) Is(target error) bool { return isCategory(CategoryMissingData, target) }
func (e *MissingDataError) Category() Category { return CategoryMissingData }
func (e *MissingDataError) classified() {}

// UnsupportedChainError names a chain id the aggregator does not serve.
type UnsupportedChainError struct{ ChainID uint64 }

func (e *UnsupportedChainError) Error() string {
	return fmt.Sprintf("Chain not supported: %d", e.ChainID)
}
func (e *UnsupportedChainError) Is(target error) bool {
	return isCategory(CategoryUnsupportedChain, target)
}
func (e *UnsupportedChainError) Category() Category { return CategoryUnsupportedChain }
func (e *UnsupportedChainError) classified() {}

// ContractError is a router contract or calldata failure.
type ContractError struct{ Message string }

func (e *ContractError) Error() string { return "Contract error: " + e.Message }
func (e *ContractError) Is(target error) bool { return isCategory(CategoryContract, target) }
func (e *ContractError) Category() Category { return CategoryContract }
func (e *ContractError) classified() {}

// TransactionAssemblyError is a failure to build the transaction for a quoted path.
type TransactionAssemblyError struct{ Message string }

func (e *TransactionAssemblyError) Error() string { return "Transaction assembly failed: " + e.Message }
func (e *TransactionAssemblyError) Is(target error) bool {
	return isCategory(CategoryTransactionAssembly, target)
}
func (e *TransactionAssemblyError) Category() Category { return CategoryTransactionAssembly }
func (e *TransactionAssemblyError) classified() {}

// QuoteRequestError is a quote request the aggregator could not serve.
type QuoteRequestError struct{ Message string }

func (e *QuoteRequestError) Error() string { return "Quote request failed: " + e.Message }
func (e *QuoteRequestError) Is(target error) bool { return isCategory(CategoryQuoteRequest, target) }
func (e *QuoteRequestError) Category() Category { return CategoryQuoteRequest }
func (e *QuoteRequestError) classified() {}

// ConfigurationError reports an unusable client setting.
type ConfigurationError struct{ Message string }

func (e *ConfigurationError) Error() string { return "Configuration error: " + e.Message }
func (e *ConfigurationError) Is(target error) bool { return isCategory(CategoryConfiguration, target) }
func (e *ConfigurationError) Category() Category { return CategoryConfiguration }
func (e *ConfigurationError) classified() {}

// InternalError is a failure inside this client rather than the aggregator.
type InternalError struct{ Message string }

func (e *InternalError) Error() string { return "Internal error: " + e.Message }
func (e *InternalError) Is(target error) bool { return isCategory(CategoryInternal, target) }
func (e *InternalError) Category() Category { return CategoryInternal }
func (e *InternalError) classified() {}

// CircuitBreakerError is returned without sending anything while the
// client's circuit breaker is open.
type CircuitBreakerError struct {
	Message string
	// RetryAfter is how long until the breaker admits a trial call. Zero
	// when unknown.
	RetryAfter time.Duration
}

func (e *CircuitBreakerError) Error() string {
	msg := "Circuit breaker is open: " + e.Message
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(" (retry after %s)", e.RetryAfter.Round(time.Millisecond))
	}
	return msg
}
func (e *CircuitBreakerError) Is(target error) bool {
	return isCategory(CategoryCircuitBreaker, target)
}
func (e *CircuitBreakerError) Category() Category { return CategoryCircuitBreaker }
func (e *CircuitBreakerError) classified() {}

// CategoryOf returns the category of the first classified error in err's
// chain, or "" when there is none.
func CategoryOf(err error) Category {
	var ce Error
	if errors.As(err, &ce) {
		return ce.Category()
	}
	return ""
}

// CodeOf returns the aggregator error code carried by an api or rate_limit
// error. ok is false for every other category.
func CodeOf(err error) (code ErrorCode, ok bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.Code, true
	}
	return CodeUnknown, false
}

// TraceIDOf returns the trace id carried by an api or rate_limit error.
func TraceIDOf(err error) (domain.TraceID, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.TraceID, !apiErr.TraceID.IsZero()
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.TraceID, !rl.TraceID.IsZero()
	}
	return domain.TraceID{}, false
}

// RetryAfterOf returns the Retry-After hint of a rate_limit error.
func RetryAfterOf(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfterHint()
	}
	return 0, false
}

// StatusOf returns the HTTP status behind an api or rate_limit error.
func StatusOf(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, true
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return http.StatusTooManyRequests, true
	}
	return 0, false
}
