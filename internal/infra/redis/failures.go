package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/odos/internal/core/domain"
	"github.com/vietddude/odos/internal/infra/storage"
)

// FailureRepo implements storage.FailureRepository using Redis.
// Records live under their own key with a TTL; a sorted set scored by
// occurrence time orders them.
type FailureRepo struct {
	client *Client
	ttl    time.Duration
}

// NewFailureRepo creates a Redis-backed failure journal. ttl <= 0 means 7 days.
func NewFailureRepo(client *Client, ttl time.Duration) *FailureRepo {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &FailureRepo{client: client, ttl: ttl}
}

// Add stores the record and indexes it by time and trace id.
func (r *FailureRepo) Add(ctx context.Context, rec *domain.FailureRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal failure record: %w", err)
	}

	pipe := r.client.rdb.TxPipeline()
	pipe.Set(ctx, r.client.failureKey(rec.ID), data, r.ttl)
	pipe.ZAdd(ctx, r.client.failuresKey(), redis.Z{
		Score:  float64(rec.OccurredAt.UnixMilli()),
		Member: rec.ID,
	})
	if rec.TraceID != "" {
		pipe.Set(ctx, r.client.traceKey(rec.TraceID), rec.ID, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add failure record: %w", err)
	}
	return nil
}

// GetByTraceID returns the newest record for a trace id.
func (r *FailureRepo) GetByTraceID(ctx context.Context, traceID string) (*domain.FailureRecord, error) {
	id, err := r.client.rdb.Get(ctx, r.client.traceKey(traceID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrFailureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trace index failed: %w", err)
	}
	return r.get(ctx, id)
}

func (r *FailureRepo) get(ctx context.Context, id string) (*domain.FailureRecord, error) {
	data, err := r.client.rdb.Get(ctx, r.client.failureKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrFailureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get failure record failed: %w", err)
	}

	var rec domain.FailureRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failure record: %w", err)
	}
	return &rec, nil
}

// List returns records newest first. Entries whose record key has expired
// are skipped.
func (r *FailureRepo) List(ctx context.Context, filter storage.FailureFilter) ([]*domain.FailureRecord, error) {
	lo := "-inf"
	if !filter.Since.IsZero() {
		lo = strconv.FormatInt(filter.Since.UnixMilli(), 10)
	}

	ids, err := r.client.rdb.ZRevRangeByScore(ctx, r.client.failuresKey(), &redis.ZRangeBy{
		Min: lo,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrangebyscore failed: %w", err)
	}

	limit := filter.EffectiveLimit()
	out := make([]*domain.FailureRecord, 0, min(limit, len(ids)))
	for _, id := range ids {
		rec, err := r.get(ctx, id)
		if errors.Is(err, storage.ErrFailureNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Endpoint != "" && rec.Endpoint != filter.Endpoint {
			continue
		}
		if filter.Category != "" && rec.Category != filter.Category {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// DeleteOlderThan removes records that occurred before cutoff.
func (r *FailureRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	hi := "(" + strconv.FormatInt(cutoff.UnixMilli(), 10)
	ids, err := r.client.rdb.ZRangeByScore(ctx, r.client.failuresKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: hi,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("zrangebyscore failed: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, r.client.failureKey(id))
	}

	pipe := r.client.rdb.TxPipeline()
	pipe.Del(ctx, keys...)
	removed := pipe.ZRemRangeByScore(ctx, r.client.failuresKey(), "-inf", hi)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to prune failure journal: %w", err)
	}
	return removed.Val(), nil
}
