package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/odos/internal/core/domain"
	"github.com/vietddude/odos/internal/infra/storage"
)

// FailureRepo is an in-memory storage.FailureRepository.
type FailureRepo struct {
	mu       sync.RWMutex
	failures []*domain.FailureRecord
	maxSize  int
}

// NewFailureRepo creates a repo that keeps at most maxSize records
// (oldest dropped first). maxSize <= 0 means unbounded.
func NewFailureRepo(maxSize int) *FailureRepo {
	return &FailureRepo{maxSize: maxSize}
}

func (r *FailureRepo) Add(ctx context.Context, rec *domain.FailureRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}

	cp := *rec
	r.failures = append(r.failures, &cp)
	if r.maxSize > 0 && len(r.failures) > r.maxSize {
		r.failures = r.failures[len(r.failures)-r.maxSize:]
	}
	return nil
}

func (r *FailureRepo) GetByTraceID(ctx context.Context, traceID string) (*domain.FailureRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.failures) - 1; i >= 0; i-- {
		if r.failures[i].TraceID == traceID {
			cp := *r.failures[i]
			return &cp, nil
		}
	}
	return nil, storage.ErrFailureNotFound
}

func (r *FailureRepo) List(ctx context.Context, filter storage.FailureFilter) ([]*domain.FailureRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.FailureRecord, 0)
	for _, f := range r.failures {
		if filter.Endpoint != "" && f.Endpoint != filter.Endpoint {
			continue
		}
		if filter.Category != "" && f.Category != filter.Category {
			continue
		}
		if !filter.Since.IsZero() && f.OccurredAt.Before(filter.Since) {
			continue
		}
		cp := *f
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})

	if limit := filter.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *FailureRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.failures[:0]
	var deleted int64
	for _, f := range r.failures {
		if f.OccurredAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, f)
	}
	r.failures = kept
	return deleted, nil
}
