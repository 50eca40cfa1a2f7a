package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vietddude/odos/internal/infra/rpc/apierr"
)

func TestHTTPProvider_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sor/quote/v2" {
			t.Errorf("expected path /sor/quote/v2, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected method POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type, got %q", r.Header.Get("Content-Type"))
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		if body["chainId"] != float64(1) {
			t.Errorf("expected chainId 1, got %v", body["chainId"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"pathId": "abc"})
	}))
	defer server.Close()

	p := NewHTTPProvider("test", HTTPOptions{})
	defer p.Close()

	factory := JSONRequest("quote", http.MethodPost, server.URL+"/sor/quote/v2", nil, map[string]any{"chainId": 1})
	desc, err := factory()
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	req, err := desc.Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	resp, err := p.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.OK() {
		t.Fatalf("expected 2xx, got %d", resp.Status)
	}

	var out map[string]any
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["pathId"] != "abc" {
		t.Errorf("expected pathId abc, got %v", out["pathId"])
	}

	health := p.GetHealth()
	if !health.Available || health.ErrorRate != 0 {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestHTTPProvider_ServerErrorsCountAgainstHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "down")
	}))
	defer server.Close()

	p := NewHTTPProvider("test", HTTPOptions{})
	defer p.Close()

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
		resp, err := p.Do(context.Background(), req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Status != http.StatusServiceUnavailable || string(resp.Body) != "down" {
			t.Errorf("unexpected response %d %q", resp.Status, resp.Body)
		}
		if resp.Header.Get("Retry-After") != "30" {
			t.Error("expected response headers to be kept")
		}
	}

	health := p.GetHealth()
	if health.Available || health.ErrorRate != 1 {
		t.Errorf("expected unavailable after only failures, got %+v", health)
	}
}

func TestRequestBuildRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"bad header value", Request{URL: "http://example.com", Header: http.Header{"X-Api-Key": {"a\nb"}}}},
		{"bad header name", Request{URL: "http://example.com", Header: http.Header{"Bad Name": {"v"}}}},
		{"bad method", Request{Method: "GET POST", URL: "http://example.com"}},
		{"bad url", Request{URL: "http://[::1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Build(context.Background())
			var httpErr *apierr.HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected *apierr.HTTPError, got %v", err)
			}
			if httpErr.Kind != apierr.TransportMalformed {
				t.Errorf("expected malformed kind, got %s", httpErr.Kind)
			}
		})
	}
}

func TestJSONRequestFreshBodies(t *testing.T) {
	factory := JSONRequest("assemble", http.MethodPost, "http://example.com", http.Header{"X-Api-Key": {"k"}}, map[string]string{"pathId": "p"})

	a, err := factory()
	if err != nil {
		t.Fatal(err)
	}
	b, err := factory()
	if err != nil {
		t.Fatal(err)
	}
	a.Body[0] = 'X'
	if b.Body[0] == 'X' {
		t.Error("factory calls must not share body buffers")
	}
	if b.Header.Get("X-Api-Key") != "k" {
		t.Error("expected caller headers to be carried over")
	}

	bad := JSONRequest("assemble", http.MethodPost, "http://example.com", nil, func() {})
	if _, err := bad(); !errors.Is(err, apierr.ErrJSON) {
		t.Errorf("expected json error, got %v", err)
	}
}
