package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/odos/internal/infra/rpc/budget"
	"github.com/vietddude/odos/internal/infra/rpc/provider"
)

// ClientHealth is implemented by rpc.Client.
type ClientHealth interface {
	Health() provider.HealthStatus
}

// Monitor aggregates health status from the client and the rate-limit tracker.
type Monitor struct {
	client  ClientHealth
	tracker budget.Tracker
	scope   string
	config  any

	cacheFor   time.Duration
	lastCheck  time.Time
	lastReport Report
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. tracker may be nil. config is
// reported verbatim by the detailed endpoint and must not carry secrets.
func NewMonitor(client ClientHealth, tracker budget.Tracker, scope string, config any) *Monitor {
	return &Monitor{
		client:   client,
		tracker:  tracker,
		scope:    scope,
		config:   config,
		cacheFor: 2 * time.Second,
	}
}

// CheckHealth builds a report. Results are cached briefly so scrapes do not
// contend on the client's locks.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lastCheck.IsZero() && time.Since(m.lastCheck) < m.cacheFor {
		return m.lastReport
	}

	report := Report{
		SystemStatus: StatusHealthy,
		Client:       m.client.Health(),
		Config:       m.config,
		CheckedAt:    time.Now(),
	}

	if m.tracker != nil {
		usage := m.tracker.GetUsage(m.scope)
		report.Budget = &usage
		if remaining, err := m.tracker.CooldownRemaining(ctx, m.scope); err == nil {
			report.Cooldown = remaining
		}
	}

	report.SystemStatus = evaluate(report)

	m.lastCheck = report.CheckedAt
	m.lastReport = report
	return report
}

func evaluate(r Report) SystemStatus {
	if !r.Client.Available {
		return StatusCritical
	}
	if r.Budget != nil && r.Budget.DailyLimit > 0 && r.Budget.RemainingCalls == 0 {
		return StatusCritical
	}
	if r.Cooldown > 0 || r.Client.ErrorRate > 0.2 || r.Client.Circuit == "half_open" {
		return StatusDegraded
	}
	if s := r.Client.MonitorStats; s != nil && s.Status != provider.StatusHealthy.String() {
		return StatusDegraded
	}
	return StatusHealthy
}
