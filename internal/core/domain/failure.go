package domain

import "time"

// FailureRecord is a terminal aggregator failure kept for support lookups.
type FailureRecord struct {
	ID         string        `json:"id"`
	Endpoint   string        `json:"endpoint"`
	Category   string        `json:"category"`
	Status     int           `json:"status"`
	ErrorCode  int           `json:"error_code"`
	TraceID    string        `json:"trace_id"`
	Message    string        `json:"message"`
	Attempts   int           `json:"attempts"`
	RetryAfter time.Duration `json:"retry_after"`
	OccurredAt time.Time     `json:"occurred_at"`
}
