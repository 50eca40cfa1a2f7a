package apierr

import (
	"errors"
	"net/http"
)

// retryableStatuses is the fallback for api errors whose code is not in the
// documented table.
var retryableStatuses = map[int]struct{}{
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// Classify maps one attempt outcome to a classified error. Success yields nil.
// A 429 goes through RateLimit before anything else.
func Classify(o Outcome) Error {
	switch out := o.(type) {
	case Success:
		return nil
	case TransportFailure:
		return &HTTPError{Kind: out.Kind, Err: out.Err}
	case TimeoutFailure:
		return &TimeoutError{Message: "request timed out", Timeout: out.Timeout}
	case APIFailure:
		if out.Status == http.StatusTooManyRequests {
			return RateLimit(out.Header, out.Body)
		}
		parsed := ParseErrorBody(out.Status, out.Body)
		return &APIError{
			Status:  out.Status,
			Message: parsed.Message,
			Code:    parsed.Code,
			TraceID: parsed.TraceID,
		}
	default:
		return &InternalError{Message: "unrecognised attempt outcome"}
	}
}

// IsRetryable is the default retry verdict for a classified error.
//
// retryServerErrors gates api errors with a 5xx status; 4xx api errors are
// never retried. rate_limit is never retryable here.
func IsRetryable(err error, retryServerErrors bool) bool {
	var ce Error
	if !errors.As(err, &ce) {
		return false
	}

	switch e := ce.(type) {
	case *RateLimitError:
		return false
	case *TimeoutError:
		return true
	case *HTTPError:
		switch e.Kind {
		case TransportConnect, TransportDNS, TransportTimeout, TransportRequest:
			return true
		default:
			return false
		}
	case *APIError:
		return apiRetryable(e, retryServerErrors)
	default:
		return false
	}
}

func apiRetryable(e *APIError, retryServerErrors bool) bool {
	switch {
	case e.Status >= 400 && e.Status < 500:
		return false
	case e.Status >= 500 && e.Status < 600:
		if !retryServerErrors {
			return false
		}
	}

	if e.Code.IsKnown() {
		return e.Code.IsRetryable()
	}
	_, ok := retryableStatuses[e.Status]
	return ok
}
