package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/odos/internal/infra/rpc/budget"
	"github.com/vietddude/odos/internal/infra/rpc/provider"
)

type stubClient struct {
	status provider.HealthStatus
}

func (s *stubClient) Health() provider.HealthStatus { return s.status }

func TestMonitor_Status(t *testing.T) {
	healthyStats := &provider.MonitorStats{Status: "healthy"}

	tests := []struct {
		name     string
		client   provider.HealthStatus
		cooldown time.Duration
		want     SystemStatus
	}{
		{name: "healthy", client: provider.HealthStatus{Available: true, MonitorStats: healthyStats}, want: StatusHealthy},
		{name: "unavailable", client: provider.HealthStatus{Available: false}, want: StatusCritical},
		{name: "throttled", client: provider.HealthStatus{Available: true, MonitorStats: &provider.MonitorStats{Status: "throttled"}}, want: StatusDegraded},
		{name: "error rate", client: provider.HealthStatus{Available: true, ErrorRate: 0.5}, want: StatusDegraded},
		{name: "cooldown", client: provider.HealthStatus{Available: true}, cooldown: time.Minute, want: StatusDegraded},
		{name: "circuit half open", client: provider.HealthStatus{Available: true, Circuit: "half_open"}, want: StatusDegraded},
		{name: "circuit open", client: provider.HealthStatus{Available: false, Circuit: "open"}, want: StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := budget.NewTracker(0, nil, nil)
			if tt.cooldown > 0 {
				d := tt.cooldown
				if err := tracker.RecordRateLimit(context.Background(), "odos", &d); err != nil {
					t.Fatal(err)
				}
			}

			m := NewMonitor(&stubClient{status: tt.client}, tracker, "odos", nil)
			report := m.CheckHealth(context.Background())
			if report.SystemStatus != tt.want {
				t.Errorf("expected %s, got %s", tt.want, report.SystemStatus)
			}
		})
	}
}

func TestMonitor_CachesReport(t *testing.T) {
	client := &stubClient{status: provider.HealthStatus{Available: true}}
	m := NewMonitor(client, nil, "odos", nil)

	if got := m.CheckHealth(context.Background()).SystemStatus; got != StatusHealthy {
		t.Fatalf("expected healthy, got %s", got)
	}
	client.status.Available = false
	if got := m.CheckHealth(context.Background()).SystemStatus; got != StatusHealthy {
		t.Errorf("expected cached healthy report, got %s", got)
	}

	m.cacheFor = 0
	if got := m.CheckHealth(context.Background()).SystemStatus; got != StatusCritical {
		t.Errorf("expected fresh critical report, got %s", got)
	}
}

func TestServer_Endpoints(t *testing.T) {
	client := &stubClient{status: provider.HealthStatus{Available: false}}
	cfg := map[string]string{"host": "https://api.odos.xyz"}
	srv := httptest.NewServer(NewServer(NewMonitor(client, nil, "odos", cfg), 0).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when critical, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/health/detailed")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var report struct {
		SystemStatus string            `json:"system_status"`
		Config       map[string]string `json:"config"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.SystemStatus != "critical" || report.Config["host"] != "https://api.odos.xyz" {
		t.Errorf("unexpected detailed report %+v", report)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Errorf("unexpected metrics response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}
