package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/net/http/httpguts"

	"github.com/vietddude/odos/internal/infra/rpc/apierr"
)

// Request describes one unsent HTTP request.
type Request struct {
	// Endpoint is a short label ("quote", "assemble") for metrics and logs.
	Endpoint string
	Method   string
	URL      string
	Header   http.Header
	Body     []byte
}

// RequestFactory produces a fresh Request for every attempt. Bodies are
// never shared between attempts.
type RequestFactory func() (*Request, error)

// Build validates the descriptor and turns it into an *http.Request bound to
// ctx. Invalid methods or headers are reported as a malformed transport error
// so the engine stops without touching the network.
func (r *Request) Build(ctx context.Context) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	if !httpguts.ValidHeaderFieldName(method) {
		return nil, malformed(fmt.Errorf("invalid method %q", method))
	}

	for name, values := range r.Header {
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, malformed(fmt.Errorf("invalid header name %q", name))
		}
		for _, v := range values {
			if !httpguts.ValidHeaderFieldValue(v) {
				return nil, malformed(fmt.Errorf("invalid value for header %q", name))
			}
		}
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, malformed(err)
	}
	if r.Header != nil {
		req.Header = r.Header.Clone()
	}
	return req, nil
}

func malformed(err error) error {
	return &apierr.HTTPError{Kind: apierr.TransportMalformed, Err: err}
}

// JSONRequest returns a factory that marshals payload on every call.
// A nil payload sends no body.
func JSONRequest(endpoint, method, url string, header http.Header, payload any) RequestFactory {
	return func() (*Request, error) {
		h := header.Clone()
		if h == nil {
			h = http.Header{}
		}
		h.Set("Accept", "application/json")

		req := &Request{Endpoint: endpoint, Method: method, URL: url, Header: h}
		if payload == nil {
			return req, nil
		}

		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &apierr.JSONError{Err: fmt.Errorf("marshal %s request: %w", endpoint, err)}
		}
		h.Set("Content-Type", "application/json")
		req.Body = data
		return req, nil
	}
}
