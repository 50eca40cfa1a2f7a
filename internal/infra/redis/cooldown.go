package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// extendCooldown sets the key only when the new TTL outlives the current one.
// PTTL is -2 for a missing key and -1 for a key without expiry.
var extendCooldown = redis.NewScript(`
local cur = redis.call('PTTL', KEYS[1])
local want = tonumber(ARGV[1])
if cur == -1 then
  return 0
end
if cur < want then
  redis.call('SET', KEYS[1], '1', 'PX', want)
  return 1
end
return 0
`)

// CooldownStore implements budget.CooldownStore on Redis so every process
// using the same API key honours one Retry-After.
type CooldownStore struct {
	client *Client
}

// NewCooldownStore creates a store on an existing client.
func NewCooldownStore(client *Client) *CooldownStore {
	return &CooldownStore{client: client}
}

func (s *CooldownStore) SetCooldown(ctx context.Context, scope string, d time.Duration) error {
	ms := d.Milliseconds()
	if ms <= 0 {
		return nil
	}
	key := s.client.cooldownKey(scope)
	if err := extendCooldown.Run(ctx, s.client.rdb, []string{key}, ms).Err(); err != nil {
		return fmt.Errorf("set cooldown failed: %w", err)
	}
	return nil
}

func (s *CooldownStore) Cooldown(ctx context.Context, scope string) (time.Duration, error) {
	ttl, err := s.client.rdb.PTTL(ctx, s.client.cooldownKey(scope)).Result()
	if err != nil {
		return 0, fmt.Errorf("pttl failed: %w", err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *CooldownStore) ClearCooldown(ctx context.Context, scope string) error {
	if err := s.client.rdb.Del(ctx, s.client.cooldownKey(scope)).Err(); err != nil {
		return fmt.Errorf("del cooldown failed: %w", err)
	}
	return nil
}
