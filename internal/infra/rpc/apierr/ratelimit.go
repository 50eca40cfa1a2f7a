package apierr

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseRetryAfter reads a Retry-After header as whole seconds.
//
// A missing, negative or non-integer value (including the HTTP-date form)
// yields nil. "0" yields a pointer to zero: the server explicitly allows an
// immediate retry, which is not the same as saying nothing.
func ParseRetryAfter(h http.Header) *time.Duration {
	raw := strings.TrimSpace(h.Get("Retry-After"))
	if raw == "" {
		return nil
	}
	secs, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	d := time.Duration(secs) * time.Second
	return &d
}

// RateLimit turns a 429 response into a RateLimitError. The engine checks
// for this type before any retry policy runs, so a rate-limited call is
// surfaced to the caller on the attempt that hit it.
func RateLimit(header http.Header, body []byte) *RateLimitError {
	parsed := ParseErrorBody(http.StatusTooManyRequests, body)
	return &RateLimitError{
		Message:    parsed.Message,
		RetryAfter: ParseRetryAfter(header),
		Code:       parsed.Code,
		TraceID:    parsed.TraceID,
	}
}

// IsRateLimit reports whether err is a rate_limit classification.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
