package budget

import (
	"context"
	"sync"
	"time"
)

// CooldownStore keeps server-imposed cooldowns. Implementations may be
// shared across processes (see infra/redis).
type CooldownStore interface {
	// SetCooldown blocks scope for d from now. A later, shorter cooldown
	// never shortens an existing one.
	SetCooldown(ctx context.Context, scope string, d time.Duration) error
	// Cooldown returns the remaining cooldown, or zero.
	Cooldown(ctx context.Context, scope string) (time.Duration, error)
	// ClearCooldown lifts any cooldown on scope.
	ClearCooldown(ctx context.Context, scope string) error
}

// MemoryCooldownStore is a process-local CooldownStore.
type MemoryCooldownStore struct {
	mu    sync.Mutex
	until map[string]time.Time
}

// NewMemoryCooldownStore creates an empty store.
func NewMemoryCooldownStore() *MemoryCooldownStore {
	return &MemoryCooldownStore{until: make(map[string]time.Time)}
}

func (s *MemoryCooldownStore) SetCooldown(_ context.Context, scope string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	until := time.Now().Add(d)
	if cur, ok := s.until[scope]; ok && cur.After(until) {
		return nil
	}
	s.until[scope] = until
	return nil
}

func (s *MemoryCooldownStore) Cooldown(_ context.Context, scope string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	until, ok := s.until[scope]
	if !ok {
		return 0, nil
	}
	remaining := time.Until(until)
	if remaining <= 0 {
		delete(s.until, scope)
		return 0, nil
	}
	return remaining, nil
}

func (s *MemoryCooldownStore) ClearCooldown(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.until, scope)
	return nil
}
