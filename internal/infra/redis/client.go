package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection shared by the cooldown store and the
// failure journal.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	// Prefix namespaces every key; defaults to "odos".
	Prefix string `yaml:"prefix"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "odos"
	}
	return &Client{rdb: rdb, prefix: prefix}, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func (c *Client) cooldownKey(scope string) string {
	return fmt.Sprintf("%s:cooldown:%s", c.prefix, scope)
}

func (c *Client) failuresKey() string {
	return fmt.Sprintf("%s:failures", c.prefix)
}

func (c *Client) failureKey(id string) string {
	return fmt.Sprintf("%s:failure:%s", c.prefix, id)
}

func (c *Client) traceKey(traceID string) string {
	return fmt.Sprintf("%s:failure_trace:%s", c.prefix, traceID)
}
