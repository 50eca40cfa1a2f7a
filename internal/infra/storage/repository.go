package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/odos/internal/core/domain"
)

var (
	// ErrFailureNotFound is returned when no journal entry matches
	ErrFailureNotFound = errors.New("failure record not found")
)

// FailureFilter narrows List results. Zero values match everything.
type FailureFilter struct {
	Endpoint string
	Category string
	Since    time.Time
	// Limit caps the result count; <= 0 means 50.
	Limit int
}

// EffectiveLimit returns the limit List should apply.
func (f FailureFilter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return 50
	}
	return f.Limit
}

// FailureRepository is the failure journal: terminal classified errors kept
// so support can correlate trace ids with aggregator logs.
type FailureRepository interface {
	// Add stores a record, assigning ID and OccurredAt when empty
	Add(ctx context.Context, rec *domain.FailureRecord) error

	// GetByTraceID returns the most recent record with the given trace id
	GetByTraceID(ctx context.Context, traceID string) (*domain.FailureRecord, error)

	// List returns records newest first
	List(ctx context.Context, filter FailureFilter) ([]*domain.FailureRecord, error)

	// DeleteOlderThan prunes records and reports how many were removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
