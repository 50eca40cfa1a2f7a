package apierr

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"time"
)

// Outcome is the raw result of exactly one attempt.
type Outcome interface {
	attemptOutcome()
}

// Success is a 2xx response with its body fully read.
type Success struct {
	Status int
	Header http.Header
	Body   []byte
}

// TransportFailure means no response was received.
type TransportFailure struct {
	Kind TransportKind
	Err  error
}

// TimeoutFailure means the per-attempt deadline expired first.
type TimeoutFailure struct {
	Timeout time.Duration
	Err     error
}

// APIFailure is any non-2xx response, body already read.
type APIFailure struct {
	Status int
	Header http.Header
	Body   []byte
}

func (Success) attemptOutcome()          {}
func (TransportFailure) attemptOutcome() {}
func (TimeoutFailure) attemptOutcome()   {}
func (APIFailure) attemptOutcome()       {}

// TransportOutcome sorts an error returned by an http round trip into the
// transport kinds the classifier understands.
func TransportOutcome(err error, attemptTimeout time.Duration) Outcome {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutFailure{Timeout: attemptTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimeoutFailure{Timeout: attemptTimeout, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return TransportFailure{Kind: TransportDNS, Err: err}
	}

	if isTLSError(err) {
		return TransportFailure{Kind: TransportTLS, Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return TransportFailure{Kind: TransportConnect, Err: err}
	}

	return TransportFailure{Kind: TransportRequest, Err: err}
}

func isTLSError(err error) bool {
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return true
	}
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return true
	}
	var hostErr x509.HostnameError
	return errors.As(err, &hostErr)
}
