// Package health provides client health monitoring and status reporting.
package health

import (
	"time"

	"github.com/vietddude/odos/internal/infra/rpc/budget"
	"github.com/vietddude/odos/internal/infra/rpc/provider"
)

// SystemStatus represents the overall health state of the process.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the full health report.
type Report struct {
	SystemStatus SystemStatus          `json:"system_status"`
	Client       provider.HealthStatus `json:"client"`
	Cooldown     time.Duration         `json:"cooldown"`
	Budget       *budget.UsageStats    `json:"budget,omitempty"`
	Config       any                   `json:"config,omitempty"`
	CheckedAt    time.Time             `json:"checked_at"`
}
