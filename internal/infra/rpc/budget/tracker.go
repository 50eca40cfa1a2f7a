// Package budget coordinates aggregator rate limits at the application level.
//
// The retry engine never loops past a 429. Instead the caller records the
// server's Retry-After hint here, and the next logical call for the same
// scope waits the cooldown out before its first attempt.
//
// This package contains:
//   - Tracker: interface for call accounting and cooldowns
//   - DefaultTracker: daily quota per scope plus a CooldownStore
//   - CooldownStore / MemoryCooldownStore: where cooldowns live
//   - RatePredictor: request rate and quota exhaustion estimate
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// UsageStats holds quota usage statistics for one scope.
type UsageStats struct {
	TotalCalls          int            `json:"total_calls"`
	CallsPerHour        int            `json:"calls_per_hour"`
	RateLimited         int            `json:"rate_limited"`
	DailyLimit          int            `json:"daily_limit"`
	RemainingCalls      int            `json:"remaining_calls"`
	UsagePercentage     float64        `json:"usage_percentage"`
	NextResetAt         time.Time      `json:"next_reset_at"`
	PredictedExhaustion time.Duration  `json:"predicted_exhaustion"`
	EndpointCalls       map[string]int `json:"endpoint_calls"`
}

// Tracker manages call accounting and server-imposed cooldowns.
type Tracker interface {
	RecordCall(scope, endpoint string)
	RecordRateLimit(ctx context.Context, scope string, retryAfter *time.Duration) error
	CooldownRemaining(ctx context.Context, scope string) (time.Duration, error)
	Wait(ctx context.Context, scope string) error
	ClearCooldown(ctx context.Context, scope string) error
	CanMakeCall(scope string) bool
	GetUsage(scope string) UsageStats
	Reset()
}

type scopeBudget struct {
	totalCalls    int
	callsThisHour int
	rateLimited   int
	hourStartTime time.Time
	endpointCalls map[string]int
}

// DefaultTracker implements Tracker with a per-scope daily quota.
type DefaultTracker struct {
	mu         sync.RWMutex
	scopes     map[string]*scopeBudget
	dailyLimit int
	resetTime  time.Time

	store     CooldownStore
	predictor *RatePredictor
	logger    *slog.Logger
}

// NewTracker creates a tracker. dailyLimit <= 0 disables the local quota.
// A nil store keeps cooldowns in memory.
func NewTracker(dailyLimit int, store CooldownStore, logger *slog.Logger) *DefaultTracker {
	if store == nil {
		store = NewMemoryCooldownStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultTracker{
		scopes:     make(map[string]*scopeBudget),
		dailyLimit: dailyLimit,
		resetTime:  nextMidnight(time.Now()),
		store:      store,
		predictor:  NewRatePredictor(),
		logger:     logger,
	}
}

// RecordCall records a logical call for quota tracking.
func (t *DefaultTracker) RecordCall(scope, endpoint string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverUnsafe()

	budget := t.scopeUnsafe(scope)
	if time.Since(budget.hourStartTime) >= time.Hour {
		budget.callsThisHour = 0
		budget.hourStartTime = time.Now()
	}

	budget.totalCalls++
	budget.callsThisHour++
	budget.endpointCalls[endpoint]++
	t.predictor.RecordRequest(scope)
}

// RecordRateLimit stores the server hint as a cooldown on scope. A missing
// or zero hint means the server allows an immediate retry, so no cooldown is
// set.
func (t *DefaultTracker) RecordRateLimit(ctx context.Context, scope string, retryAfter *time.Duration) error {
	t.mu.Lock()
	t.scopeUnsafe(scope).rateLimited++
	t.mu.Unlock()

	if retryAfter == nil || *retryAfter <= 0 {
		return nil
	}

	t.logger.Warn("Rate limit cooldown set", "scope", scope, "retry_after", *retryAfter)
	if err := t.store.SetCooldown(ctx, scope, *retryAfter); err != nil {
		return fmt.Errorf("set cooldown for %s: %w", scope, err)
	}
	return nil
}

// CooldownRemaining returns how long scope is still blocked.
func (t *DefaultTracker) CooldownRemaining(ctx context.Context, scope string) (time.Duration, error) {
	return t.store.Cooldown(ctx, scope)
}

// ClearCooldown lifts any cooldown on scope.
func (t *DefaultTracker) ClearCooldown(ctx context.Context, scope string) error {
	return t.store.ClearCooldown(ctx, scope)
}

// Wait blocks until scope has no cooldown or ctx is done.
func (t *DefaultTracker) Wait(ctx context.Context, scope string) error {
	for {
		remaining, err := t.store.Cooldown(ctx, scope)
		if err != nil {
			return fmt.Errorf("read cooldown for %s: %w", scope, err)
		}
		if remaining <= 0 {
			return nil
		}

		t.logger.Debug("Waiting out rate limit cooldown", "scope", scope, "remaining", remaining)
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// CanMakeCall checks if a call can be made within the local daily quota.
func (t *DefaultTracker) CanMakeCall(scope string) bool {
	if t.dailyLimit <= 0 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverUnsafe()

	budget, ok := t.scopes[scope]
	if !ok {
		return true
	}
	return budget.totalCalls < t.dailyLimit
}

// GetUsage returns usage statistics for a scope.
func (t *DefaultTracker) GetUsage(scope string) UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rolloverUnsafe()

	stats := UsageStats{
		DailyLimit:    t.dailyLimit,
		NextResetAt:   t.resetTime,
		EndpointCalls: map[string]int{},
	}

	budget, ok := t.scopes[scope]
	if !ok {
		stats.RemainingCalls = t.dailyLimit
		return stats
	}

	stats.TotalCalls = budget.totalCalls
	stats.CallsPerHour = budget.callsThisHour
	stats.RateLimited = budget.rateLimited
	for endpoint, n := range budget.endpointCalls {
		stats.EndpointCalls[endpoint] = n
	}

	if t.dailyLimit > 0 {
		stats.RemainingCalls = max(t.dailyLimit-budget.totalCalls, 0)
		stats.UsagePercentage = float64(budget.totalCalls) / float64(t.dailyLimit) * 100
		stats.PredictedExhaustion = t.predictor.PredictTimeToExhaustion(scope, stats.RemainingCalls)
	}
	return stats
}

// Reset resets all usage counters. Cooldowns are left alone.
func (t *DefaultTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetUnsafe()
}

func (t *DefaultTracker) scopeUnsafe(scope string) *scopeBudget {
	budget, ok := t.scopes[scope]
	if !ok {
		budget = &scopeBudget{
			hourStartTime: time.Now(),
			endpointCalls: make(map[string]int),
		}
		t.scopes[scope] = budget
	}
	return budget
}

// rolloverUnsafe clears the counters once the daily reset time has passed.
// Every quota read and write goes through it.
func (t *DefaultTracker) rolloverUnsafe() {
	if time.Now().After(t.resetTime) {
		t.resetUnsafe()
	}
}

func (t *DefaultTracker) resetUnsafe() {
	for _, budget := range t.scopes {
		budget.totalCalls = 0
		budget.callsThisHour = 0
		budget.rateLimited = 0
		budget.hourStartTime = time.Now()
		budget.endpointCalls = make(map[string]int)
	}
	t.predictor.Reset()
	t.resetTime = nextMidnight(time.Now())
}

func nextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}
