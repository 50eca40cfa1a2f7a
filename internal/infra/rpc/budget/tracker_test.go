package budget

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestTracker_Concurrency(t *testing.T) {
	tracker := NewTracker(1000, nil, quietLogger)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.RecordCall("public", "quote")
			tracker.CanMakeCall("public")
			tracker.GetUsage("public")
		}()
	}
	wg.Wait()

	usage := tracker.GetUsage("public")
	if usage.TotalCalls != 100 {
		t.Errorf("Expected 100 calls, got %d", usage.TotalCalls)
	}
	if usage.EndpointCalls["quote"] != 100 {
		t.Errorf("Expected 100 quote calls, got %d", usage.EndpointCalls["quote"])
	}
}

func TestTracker_Limits(t *testing.T) {
	tracker := NewTracker(100, nil, quietLogger)

	for i := 0; i < 100; i++ {
		if !tracker.CanMakeCall("public") {
			t.Errorf("Should allow call %d", i)
		}
		tracker.RecordCall("public", "quote")
	}

	if tracker.CanMakeCall("public") {
		t.Error("Should deny call 101")
	}
	if !tracker.CanMakeCall("enterprise") {
		t.Error("Scopes must be tracked independently")
	}

	usage := tracker.GetUsage("public")
	if usage.RemainingCalls != 0 || usage.UsagePercentage != 100 {
		t.Errorf("unexpected usage %+v", usage)
	}

	tracker.Reset()
	if !tracker.CanMakeCall("public") {
		t.Error("Reset should restore quota")
	}
}

func TestTracker_DailyRolloverUnblocksExhaustedScope(t *testing.T) {
	tracker := NewTracker(2, nil, quietLogger)
	tracker.RecordCall("public", "quote")
	tracker.RecordCall("public", "quote")
	if tracker.CanMakeCall("public") {
		t.Fatal("quota should be exhausted")
	}

	// Only CanMakeCall runs before the next RecordCall, so the rollover has
	// to happen there.
	tracker.mu.Lock()
	tracker.resetTime = time.Now().Add(-time.Minute)
	tracker.mu.Unlock()

	if !tracker.CanMakeCall("public") {
		t.Fatal("quota should be restored after the daily reset time")
	}
	usage := tracker.GetUsage("public")
	if usage.TotalCalls != 0 || usage.RemainingCalls != 2 {
		t.Errorf("unexpected usage after rollover %+v", usage)
	}
	if !usage.NextResetAt.After(time.Now()) {
		t.Errorf("next reset should be in the future, got %v", usage.NextResetAt)
	}
}

func TestTracker_UsageReflectsRollover(t *testing.T) {
	tracker := NewTracker(5, nil, quietLogger)
	tracker.RecordCall("public", "assemble")

	tracker.mu.Lock()
	tracker.resetTime = time.Now().Add(-time.Second)
	tracker.mu.Unlock()

	if usage := tracker.GetUsage("public"); usage.TotalCalls != 0 || len(usage.EndpointCalls) != 0 {
		t.Errorf("stale usage reported after reset time %+v", usage)
	}
}

func TestTracker_Unlimited(t *testing.T) {
	tracker := NewTracker(0, nil, quietLogger)
	for i := 0; i < 10; i++ {
		tracker.RecordCall("public", "assemble")
	}
	if !tracker.CanMakeCall("public") {
		t.Error("zero daily limit means unlimited")
	}
}

func TestTracker_RateLimitCooldown(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(0, nil, quietLogger)

	zero := time.Duration(0)
	if err := tracker.RecordRateLimit(ctx, "public", &zero); err != nil {
		t.Fatal(err)
	}
	if err := tracker.RecordRateLimit(ctx, "public", nil); err != nil {
		t.Fatal(err)
	}
	if d, _ := tracker.CooldownRemaining(ctx, "public"); d != 0 {
		t.Errorf("zero or missing hint must not set a cooldown, got %s", d)
	}

	hint := 50 * time.Millisecond
	if err := tracker.RecordRateLimit(ctx, "public", &hint); err != nil {
		t.Fatal(err)
	}
	if d, _ := tracker.CooldownRemaining(ctx, "public"); d <= 0 || d > hint {
		t.Errorf("expected cooldown in (0, %s], got %s", hint, d)
	}

	start := time.Now()
	if err := tracker.Wait(ctx, "public"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Wait returned too early after %s", elapsed)
	}

	if got := tracker.GetUsage("public").RateLimited; got != 3 {
		t.Errorf("expected 3 rate limits recorded, got %d", got)
	}
}

func TestTracker_WaitCancelled(t *testing.T) {
	tracker := NewTracker(0, nil, quietLogger)
	hint := time.Minute
	_ = tracker.RecordRateLimit(context.Background(), "public", &hint)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := tracker.Wait(ctx, "public"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	if err := tracker.ClearCooldown(context.Background(), "public"); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Wait(context.Background(), "public"); err != nil {
		t.Errorf("expected no wait after clear, got %v", err)
	}
}

func TestMemoryCooldownStore_KeepsLonger(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCooldownStore()

	_ = s.SetCooldown(ctx, "public", time.Minute)
	_ = s.SetCooldown(ctx, "public", time.Second)

	d, _ := s.Cooldown(ctx, "public")
	if d <= time.Second {
		t.Errorf("shorter cooldown must not replace a longer one, got %s", d)
	}
}

func TestRatePredictor(t *testing.T) {
	p := NewRatePredictor()
	if p.PredictTimeToExhaustion("public", 100) != 0 {
		t.Error("no samples means no prediction")
	}

	for i := 0; i < 10; i++ {
		p.RecordRequest("public")
	}
	// 10 requests over a 5 minute window is 2 per minute.
	if rate := p.GetRequestRate("public"); rate != 2 {
		t.Errorf("expected rate 2/min, got %v", rate)
	}
	if got := p.PredictTimeToExhaustion("public", 100); got != 50*time.Minute {
		t.Errorf("expected 50m, got %s", got)
	}
}
