package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/odos/internal/infra/metrics"
	"github.com/vietddude/odos/internal/infra/storage"
)

// Pruner deletes failure journal records older than the retention period.
type Pruner struct {
	repo      storage.FailureRepository
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker. A zero interval is derived from the
// retention period.
func NewPruner(repo storage.FailureRepository, retention, interval time.Duration, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		// 10% of retention period, between 1 minute and 1 hour
		interval = min(retention/10, 1*time.Hour)
		interval = max(interval, 1*time.Minute)
	}
	return &Pruner{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Start runs the pruner loop until ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Initial prune
	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune runs a single pass and returns the number of deleted records.
func (p *Pruner) Prune(ctx context.Context) int64 {
	threshold := p.now().Add(-p.retention)

	n, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		p.logger.Error("[Pruner] failed to prune failure journal", "error", err)
		return 0
	}
	if n > 0 {
		metrics.JournalPruned.Add(float64(n))
		p.logger.Info("[Pruner] pruned failure journal", "deleted", n, "before", threshold.Format(time.RFC3339))
	}
	return n
}
