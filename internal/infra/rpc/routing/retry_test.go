package routing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/odos/internal/infra/rpc/apierr"
	"github.com/vietddude/odos/internal/infra/rpc/provider"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fastPolicy keeps backoff in the low milliseconds so tests stay quick.
func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		Multiplier:        2,
		RetryServerErrors: true,
	}
}

// countingServer answers every request with handler and counts hits.
func countingServer(t *testing.T, handler func(n int32, w http.ResponseWriter)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler(hits.Add(1), w)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func newExecutor(t *testing.T, policy RetryPolicy, opts ExecutorOptions) *Executor {
	t.Helper()
	p := provider.NewHTTPProvider("test", provider.HTTPOptions{})
	t.Cleanup(func() { _ = p.Close() })
	opts.Logger = quietLogger
	return NewExecutor(p, policy, opts)
}

func getFactory(url string) provider.RequestFactory {
	return provider.JSONRequest("quote", http.MethodGet, url, nil, nil)
}

func TestRetryCap(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5} {
		srv, hits := countingServer(t, func(_ int32, w http.ResponseWriter) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "down")
		})

		res := newExecutor(t, fastPolicy(n), ExecutorOptions{}).Run(context.Background(), getFactory(srv.URL))

		if res.Attempts != n+1 || int(hits.Load()) != n+1 {
			t.Errorf("max_retries=%d: expected %d attempts, got %d (server saw %d)", n, n+1, res.Attempts, hits.Load())
		}
		var apiErr *apierr.APIError
		if !errors.As(res.Err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
			t.Errorf("max_retries=%d: expected final 503 api error, got %v", n, res.Err)
		}
	}
}

func TestRateLimitNeverRetried(t *testing.T) {
	policies := map[string]RetryPolicy{
		"default":      fastPolicy(10),
		"always retry": func() RetryPolicy { p := fastPolicy(10); p.Predicate = AlwaysRetry; return p }(),
	}

	for name, policy := range policies {
		t.Run(name, func(t *testing.T) {
			srv, hits := countingServer(t, func(_ int32, w http.ResponseWriter) {
				w.Header().Set("Retry-After", "2")
				w.WriteHeader(http.StatusTooManyRequests)
			})

			var rateLimited int
			opts := ExecutorOptions{Hooks: Hooks{
				OnRateLimit: func(string, *apierr.RateLimitError) { rateLimited++ },
			}}
			res := newExecutor(t, policy, opts).Run(context.Background(), getFactory(srv.URL))

			if res.Attempts != 1 || hits.Load() != 1 {
				t.Fatalf("expected exactly 1 attempt, got %d", res.Attempts)
			}
			if apierr.CategoryOf(res.Err) != apierr.CategoryRateLimit {
				t.Fatalf("expected rate_limit, got %v", res.Err)
			}
			if d, ok := apierr.RetryAfterOf(res.Err); !ok || d != 2*time.Second {
				t.Errorf("expected retry_after 2s, got %s %v", d, ok)
			}
			if rateLimited != 1 {
				t.Errorf("expected rate limit hook once, got %d", rateLimited)
			}
		})
	}
}

func TestNonRetryableShortCircuit(t *testing.T) {
	srv, hits := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"bad chain","traceId":"10becdc8-a021-4491-8201-a17b657204e0","errorCode":4001}`)
	})

	res := newExecutor(t, fastPolicy(5), ExecutorOptions{}).Run(context.Background(), getFactory(srv.URL))

	if res.Attempts != 1 || hits.Load() != 1 {
		t.Fatalf("expected 1 attempt, got %d", res.Attempts)
	}
	if code, _ := apierr.CodeOf(res.Err); code != apierr.CodeInvalidChainID {
		t.Errorf("expected InvalidChainID, got %s", code)
	}
	if id, ok := apierr.TraceIDOf(res.Err); !ok || id.String() != "10becdc8-a021-4491-8201-a17b657204e0" {
		t.Errorf("trace id lost: %v", id)
	}
}

func TestEventualSuccess(t *testing.T) {
	srv, hits := countingServer(t, func(n int32, w http.ResponseWriter) {
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	var retries []time.Duration
	opts := ExecutorOptions{Hooks: Hooks{
		OnRetry: func(_ AttemptInfo, d time.Duration) { retries = append(retries, d) },
	}}
	res := newExecutor(t, fastPolicy(2), opts).Run(context.Background(), getFactory(srv.URL))

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Attempts != 3 || hits.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
	if string(res.Response.Body) != `{"ok":true}` {
		t.Errorf("unexpected body %q", res.Response.Body)
	}
	if len(retries) != 2 || retries[0] != time.Millisecond || retries[1] != 2*time.Millisecond {
		t.Errorf("unexpected backoff sequence %v", retries)
	}
}

func TestPredicateOverrides(t *testing.T) {
	t.Run("never retry stops on timeout", func(t *testing.T) {
		srv, hits := countingServer(t, func(_ int32, w http.ResponseWriter) {
			time.Sleep(50 * time.Millisecond)
		})
		policy := fastPolicy(3)
		policy.Predicate = NeverRetry

		res := newExecutor(t, policy, ExecutorOptions{AttemptTimeout: 10 * time.Millisecond}).
			Run(context.Background(), getFactory(srv.URL))

		if res.Attempts != 1 {
			t.Errorf("expected 1 attempt, got %d (server %d)", res.Attempts, hits.Load())
		}
		if !errors.Is(res.Err, apierr.ErrTimeout) {
			t.Errorf("expected timeout, got %v", res.Err)
		}
	})

	t.Run("always retry continues on 400", func(t *testing.T) {
		srv, hits := countingServer(t, func(_ int32, w http.ResponseWriter) {
			w.WriteHeader(http.StatusBadRequest)
		})
		policy := fastPolicy(3)
		policy.Predicate = AlwaysRetry

		res := newExecutor(t, policy, ExecutorOptions{}).Run(context.Background(), getFactory(srv.URL))

		if res.Attempts != 4 || hits.Load() != 4 {
			t.Errorf("expected 4 attempts, got %d", res.Attempts)
		}
	})
}

func TestAttemptTimeoutIsRetried(t *testing.T) {
	srv, hits := countingServer(t, func(n int32, w http.ResponseWriter) {
		if n == 1 {
			time.Sleep(100 * time.Millisecond)
		}
		_, _ = io.WriteString(w, "ok")
	})

	res := newExecutor(t, fastPolicy(2), ExecutorOptions{AttemptTimeout: 20 * time.Millisecond}).
		Run(context.Background(), getFactory(srv.URL))

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Attempts != 2 || hits.Load() < 2 {
		t.Errorf("expected 2 attempts, got %d", res.Attempts)
	}
}

func TestServerErrorsDisabled(t *testing.T) {
	srv, _ := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadGateway)
	})
	policy := fastPolicy(3)
	policy.RetryServerErrors = false

	res := newExecutor(t, policy, ExecutorOptions{}).Run(context.Background(), getFactory(srv.URL))
	if res.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", res.Attempts)
	}
}

func TestBuildFailureShortCircuits(t *testing.T) {
	srv, hits := countingServer(t, func(_ int32, w http.ResponseWriter) {})

	factory := func() (*provider.Request, error) {
		return &provider.Request{
			Endpoint: "quote",
			URL:      srv.URL,
			Header:   http.Header{"X-Api-Key": {"bad\r\nvalue"}},
		}, nil
	}
	res := newExecutor(t, fastPolicy(3), ExecutorOptions{}).Run(context.Background(), factory)

	if res.Attempts != 0 || hits.Load() != 0 {
		t.Errorf("expected no attempts, got %d", res.Attempts)
	}
	var httpErr *apierr.HTTPError
	if !errors.As(res.Err, &httpErr) || httpErr.Kind != apierr.TransportMalformed {
		t.Errorf("expected malformed http error, got %v", res.Err)
	}

	failing := func() (*provider.Request, error) { return nil, errors.New("no body") }
	res = newExecutor(t, fastPolicy(3), ExecutorOptions{}).Run(context.Background(), failing)
	if res.Attempts != 0 || !errors.Is(res.Err, apierr.ErrHTTP) {
		t.Errorf("expected factory error to short-circuit, got %d %v", res.Attempts, res.Err)
	}
}

func TestCancellationDuringBackoff(t *testing.T) {
	srv, hits := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	policy := fastPolicy(5)
	policy.InitialBackoff = time.Second
	policy.MaxBackoff = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	opts := ExecutorOptions{Hooks: Hooks{
		OnRetry: func(AttemptInfo, time.Duration) { cancel() },
	}}

	start := time.Now()
	res := newExecutor(t, policy, opts).Run(ctx, getFactory(srv.URL))

	if !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.Err)
	}
	if res.Attempts != 1 || hits.Load() != 1 {
		t.Errorf("expected no attempts after cancel, got %d", res.Attempts)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("backoff sleep was not abandoned promptly")
	}
}

func TestOverallBudgetStopsBackoff(t *testing.T) {
	srv, _ := countingServer(t, func(_ int32, w http.ResponseWriter) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	policy := fastPolicy(10)
	policy.InitialBackoff = 200 * time.Millisecond
	policy.MaxBackoff = time.Second

	res := newExecutor(t, policy, ExecutorOptions{OverallTimeout: 100 * time.Millisecond}).
		Run(context.Background(), getFactory(srv.URL))

	if res.Attempts != 1 {
		t.Errorf("expected budget exhaustion after 1 attempt, got %d", res.Attempts)
	}
	if status, _ := apierr.StatusOf(res.Err); status != http.StatusServiceUnavailable {
		t.Errorf("expected last classified error, got %v", res.Err)
	}
}

func TestCalculateBackoff(t *testing.T) {
	policy := RetryPolicy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	prev := time.Duration(0)
	for attempt, w := range want {
		got := calculateBackoff(attempt, policy)
		if got != w {
			t.Errorf("attempt %d: expected %s, got %s", attempt, w, got)
		}
		if got < prev {
			t.Errorf("attempt %d: backoff decreased", attempt)
		}
		prev = got
	}
}

func TestPolicyPresets(t *testing.T) {
	if p := DefaultRetryPolicy(); p.MaxRetries != 3 || p.InitialBackoff != 100*time.Millisecond || p.MaxBackoff != 5*time.Second || !p.RetryServerErrors {
		t.Errorf("unexpected default policy %+v", p)
	}
	if ConservativeRetryPolicy().RetryServerErrors {
		t.Error("conservative policy must not retry server errors")
	}
	if NoRetries().MaxRetries != 0 {
		t.Error("no-retries policy must have max_retries 0")
	}

	bad := DefaultRetryPolicy()
	bad.MaxBackoff = time.Millisecond
	if bad.Validate() == nil {
		t.Error("expected max_backoff < initial_backoff to fail validation")
	}
	bad = DefaultRetryPolicy()
	bad.MaxRetries = -1
	if bad.Validate() == nil {
		t.Error("expected negative max_retries to fail validation")
	}
}

func TestPredicateFor(t *testing.T) {
	if p, err := PredicateFor("default"); err != nil || p != nil {
		t.Errorf("default strategy should be nil predicate, got %v", err)
	}
	if p, err := PredicateFor("ALWAYS"); err != nil || !p(&apierr.InvalidInputError{}) {
		t.Errorf("always strategy: %v", err)
	}
	if p, err := PredicateFor(StrategyNever); err != nil || p(&apierr.TimeoutError{}) {
		t.Errorf("never strategy: %v", err)
	}
	if _, err := PredicateFor("sometimes"); err == nil {
		t.Error("expected unknown strategy to fail")
	}
}
