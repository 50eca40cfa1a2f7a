package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/odos/internal/core/domain"
	"github.com/vietddude/odos/internal/infra/storage"
)

// FailureRepo implements storage.FailureRepository using PostgreSQL.
type FailureRepo struct {
	db *DB
}

// NewFailureRepo creates a new PostgreSQL failure journal.
func NewFailureRepo(db *DB) *FailureRepo {
	return &FailureRepo{db: db}
}

type failureRow struct {
	ID           string    `db:"id"`
	Endpoint     string    `db:"endpoint"`
	Category     string    `db:"category"`
	Status       int       `db:"status"`
	ErrorCode    int       `db:"error_code"`
	TraceID      string    `db:"trace_id"`
	Message      string    `db:"message"`
	Attempts     int       `db:"attempts"`
	RetryAfterMs int64     `db:"retry_after_ms"`
	OccurredAt   time.Time `db:"occurred_at"`
}

func (r failureRow) toDomain() *domain.FailureRecord {
	return &domain.FailureRecord{
		ID:         r.ID,
		Endpoint:   r.Endpoint,
		Category:   r.Category,
		Status:     r.Status,
		ErrorCode:  r.ErrorCode,
		TraceID:    r.TraceID,
		Message:    r.Message,
		Attempts:   r.Attempts,
		RetryAfter: time.Duration(r.RetryAfterMs) * time.Millisecond,
		OccurredAt: r.OccurredAt,
	}
}

const failureColumns = `id, endpoint, category, status, error_code, trace_id, message, attempts, retry_after_ms, occurred_at`

// Add inserts a failure record.
func (r *FailureRepo) Add(ctx context.Context, rec *domain.FailureRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}

	row := failureRow{
		ID:           rec.ID,
		Endpoint:     rec.Endpoint,
		Category:     rec.Category,
		Status:       rec.Status,
		ErrorCode:    rec.ErrorCode,
		TraceID:      rec.TraceID,
		Message:      rec.Message,
		Attempts:     rec.Attempts,
		RetryAfterMs: rec.RetryAfter.Milliseconds(),
		OccurredAt:   rec.OccurredAt,
	}

	query := `
		INSERT INTO failure_journal (` + failureColumns + `)
		VALUES (:id, :endpoint, :category, :status, :error_code, :trace_id, :message, :attempts, :retry_after_ms, :occurred_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to add failure record: %w", err)
	}
	return nil
}

// GetByTraceID returns the newest record for a trace id.
func (r *FailureRepo) GetByTraceID(ctx context.Context, traceID string) (*domain.FailureRecord, error) {
	query := `
		SELECT ` + failureColumns + `
		FROM failure_journal
		WHERE trace_id = $1
		ORDER BY occurred_at DESC
		LIMIT 1
	`

	var row failureRow
	err := r.db.GetContext(ctx, &row, query, traceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrFailureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failure record: %w", err)
	}
	return row.toDomain(), nil
}

// List returns records newest first.
func (r *FailureRepo) List(ctx context.Context, filter storage.FailureFilter) ([]*domain.FailureRecord, error) {
	var (
		where []string
		args  []any
	)
	if filter.Endpoint != "" {
		args = append(args, filter.Endpoint)
		where = append(where, fmt.Sprintf("endpoint = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		where = append(where, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}

	query := `SELECT ` + failureColumns + ` FROM failure_journal`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, filter.EffectiveLimit())
	query += fmt.Sprintf(` ORDER BY occurred_at DESC LIMIT $%d`, len(args))

	var rows []failureRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list failure records: %w", err)
	}

	out := make([]*domain.FailureRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// DeleteOlderThan prunes the journal.
func (r *FailureRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM failure_journal WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune failure journal: %w", err)
	}
	return res.RowsAffected()
}
