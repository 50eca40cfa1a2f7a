package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/odos/internal/core/domain"
	"github.com/vietddude/odos/internal/infra/storage"
)

func TestFailureRepo_AddAndLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewFailureRepo(0)

	rec := &domain.FailureRecord{
		Endpoint:  "quote",
		Category:  "api",
		Status:    500,
		ErrorCode: 2999,
		TraceID:   "10becdc8-a021-4491-8201-a17b657204e0",
		Message:   "Error getting quote, please try again",
		Attempts:  4,
	}
	if err := repo.Add(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if rec.ID == "" || rec.OccurredAt.IsZero() {
		t.Error("Add should assign ID and OccurredAt")
	}

	got, err := repo.GetByTraceID(ctx, "10becdc8-a021-4491-8201-a17b657204e0")
	if err != nil {
		t.Fatal(err)
	}
	if got.ErrorCode != 2999 || got.Attempts != 4 {
		t.Errorf("unexpected record %+v", got)
	}

	if _, err := repo.GetByTraceID(ctx, "missing"); !errors.Is(err, storage.ErrFailureNotFound) {
		t.Errorf("expected ErrFailureNotFound, got %v", err)
	}
}

func TestFailureRepo_ListAndPrune(t *testing.T) {
	ctx := context.Background()
	repo := NewFailureRepo(0)
	now := time.Now()

	records := []*domain.FailureRecord{
		{Endpoint: "quote", Category: "api", OccurredAt: now.Add(-48 * time.Hour)},
		{Endpoint: "quote", Category: "rate_limit", OccurredAt: now.Add(-time.Hour)},
		{Endpoint: "assemble", Category: "api", OccurredAt: now},
	}
	for _, r := range records {
		_ = repo.Add(ctx, r)
	}

	all, _ := repo.List(ctx, storage.FailureFilter{})
	if len(all) != 3 || all[0].Endpoint != "assemble" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	quotes, _ := repo.List(ctx, storage.FailureFilter{Endpoint: "quote", Category: "api"})
	if len(quotes) != 1 {
		t.Errorf("expected 1 quote api failure, got %d", len(quotes))
	}

	limited, _ := repo.List(ctx, storage.FailureFilter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("expected limit 2, got %d", len(limited))
	}

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil || deleted != 1 {
		t.Errorf("expected 1 pruned, got %d %v", deleted, err)
	}
	all, _ = repo.List(ctx, storage.FailureFilter{})
	if len(all) != 2 {
		t.Errorf("expected 2 left, got %d", len(all))
	}
}

func TestFailureRepo_MaxSize(t *testing.T) {
	ctx := context.Background()
	repo := NewFailureRepo(2)
	for i := 0; i < 5; i++ {
		_ = repo.Add(ctx, &domain.FailureRecord{Attempts: i})
	}
	all, _ := repo.List(ctx, storage.FailureFilter{})
	if len(all) != 2 {
		t.Errorf("expected 2 records kept, got %d", len(all))
	}
}
