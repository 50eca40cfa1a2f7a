package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/vietddude/odos/internal/aggregator"
	"github.com/vietddude/odos/internal/core/domain"
	redisclient "github.com/vietddude/odos/internal/infra/redis"
	"github.com/vietddude/odos/internal/infra/rpc"
	"github.com/vietddude/odos/internal/infra/rpc/routing"
	"github.com/vietddude/odos/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	API      APIConfig          `yaml:"api"`
	Client   ClientConfig       `yaml:"client"`
	Retry    RetryConfig        `yaml:"retry"`
	Budget   BudgetConfig       `yaml:"budget"`
	Journal  JournalConfig      `yaml:"journal"`
	Watch    WatchConfig        `yaml:"watch"`
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// APIConfig selects the aggregator deployment.
type APIConfig struct {
	// Host overrides the base URL; empty picks public or enterprise.
	Host       string        `yaml:"host"`
	Version    string        `yaml:"version"` // v2, v3
	Enterprise bool          `yaml:"enterprise"`
	APIKey     domain.APIKey `yaml:"api_key"`
}

// ClientConfig holds transport and timeout settings.
type ClientConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	OverallTimeout  time.Duration `yaml:"overall_timeout"`
	MaxConnections  int           `yaml:"max_connections"`
	PoolIdleTimeout time.Duration `yaml:"pool_idle_timeout"`
	UserAgent       string        `yaml:"user_agent"`

	// CircuitBreakerThreshold of 0 disables the breaker; unset keeps the
	// default.
	CircuitBreakerThreshold    *int          `yaml:"circuit_breaker_threshold"`
	CircuitBreakerResetTimeout time.Duration `yaml:"circuit_breaker_reset_timeout"`
}

// RetryConfig holds retry settings. Preset picks the base policy and the
// remaining fields override it when set.
type RetryConfig struct {
	Preset            string           `yaml:"preset"` // default, conservative, none
	MaxRetries        *int             `yaml:"max_retries"`
	InitialBackoff    time.Duration    `yaml:"initial_backoff"`
	MaxBackoff        time.Duration    `yaml:"max_backoff"`
	Multiplier        float64          `yaml:"multiplier"`
	RetryServerErrors *bool            `yaml:"retry_server_errors"`
	Strategy          routing.Strategy `yaml:"strategy"` // default, always, never
}

// BudgetConfig holds application-level rate limit settings.
type BudgetConfig struct {
	DailyLimit int `yaml:"daily_limit"` // 0 = unlimited
	// Shared keeps cooldowns in Redis so several processes honour one hint.
	Shared bool `yaml:"shared"`
}

// JournalConfig holds failure journal settings.
type JournalConfig struct {
	Backend       string        `yaml:"backend"` // memory, postgres, redis, none
	Retention     time.Duration `yaml:"retention"`
	MaxSize       int           `yaml:"max_size"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// WatchConfig holds settings for the watch command.
type WatchConfig struct {
	Interval time.Duration `yaml:"interval"`
	Pairs    []PairConfig  `yaml:"pairs"`
}

// PairConfig is one quote the watch command polls.
type PairConfig struct {
	Name        string         `yaml:"name"`
	ChainID     domain.ChainID `yaml:"chain_id"`
	InputToken  string         `yaml:"input_token"`
	InputAmount string         `yaml:"input_amount"`
	OutputToken string         `yaml:"output_token"`
	UserAddr    string         `yaml:"user_addr"`
	Slippage    float64        `yaml:"slippage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Endpoint returns the aggregator endpoint described by the api section.
func (c *AppConfig) Endpoint() aggregator.Endpoint {
	ep := aggregator.PublicEndpoint()
	if c.API.Enterprise {
		ep = aggregator.EnterpriseEndpoint()
	}
	if c.API.Host != "" {
		ep.Host = c.API.Host
	}
	if c.API.Version != "" {
		ep.Version = aggregator.Version(c.API.Version)
	}
	return ep
}

// RPC builds the client configuration from the client and retry sections.
func (c *AppConfig) RPC() (rpc.Config, error) {
	cfg := rpc.DefaultConfig()

	switch c.Retry.Preset {
	case "", "default":
	case "conservative":
		cfg = rpc.ConservativeConfig()
	case "none":
		cfg = rpc.NoRetriesConfig()
	default:
		return rpc.Config{}, fmt.Errorf("unknown retry preset %q", c.Retry.Preset)
	}

	if c.Client.Timeout > 0 {
		cfg.Timeout = c.Client.Timeout
	}
	if c.Client.ConnectTimeout > 0 {
		cfg.ConnectTimeout = c.Client.ConnectTimeout
	}
	if c.Client.OverallTimeout > 0 {
		cfg.OverallTimeout = c.Client.OverallTimeout
	}
	if c.Client.MaxConnections > 0 {
		cfg.MaxConnections = c.Client.MaxConnections
	}
	if c.Client.PoolIdleTimeout > 0 {
		cfg.PoolIdleTimeout = c.Client.PoolIdleTimeout
	}
	if c.Client.UserAgent != "" {
		cfg.UserAgent = c.Client.UserAgent
	}
	if c.Client.CircuitBreakerThreshold != nil {
		cfg.CircuitBreakerThreshold = *c.Client.CircuitBreakerThreshold
	}
	if c.Client.CircuitBreakerResetTimeout > 0 {
		cfg.CircuitBreakerResetTimeout = c.Client.CircuitBreakerResetTimeout
	}

	if c.Retry.MaxRetries != nil {
		cfg.Retry.MaxRetries = *c.Retry.MaxRetries
	}
	if c.Retry.InitialBackoff > 0 {
		cfg.Retry.InitialBackoff = c.Retry.InitialBackoff
	}
	if c.Retry.MaxBackoff > 0 {
		cfg.Retry.MaxBackoff = c.Retry.MaxBackoff
	}
	if c.Retry.Multiplier > 0 {
		cfg.Retry.Multiplier = c.Retry.Multiplier
	}
	if c.Retry.RetryServerErrors != nil {
		cfg.Retry.RetryServerErrors = *c.Retry.RetryServerErrors
	}

	predicate, err := routing.PredicateFor(c.Retry.Strategy)
	if err != nil {
		return rpc.Config{}, err
	}
	cfg.Retry.Predicate = predicate

	if err := cfg.Validate(); err != nil {
		return rpc.Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would fail at run time rather than load
// time. Client and retry settings are checked by RPC.
func (c *AppConfig) Validate() error {
	switch {
	case c.Watch.Interval <= 0:
		return fmt.Errorf("watch.interval must be > 0, got %s", c.Watch.Interval)
	case c.Journal.Retention < 0:
		return fmt.Errorf("journal.retention must be >= 0, got %s", c.Journal.Retention)
	case c.Journal.PruneInterval <= 0:
		return fmt.Errorf("journal.prune_interval must be > 0, got %s", c.Journal.PruneInterval)
	case c.Journal.MaxSize < 0:
		return fmt.Errorf("journal.max_size must be >= 0, got %d", c.Journal.MaxSize)
	case c.Budget.DailyLimit < 0:
		return fmt.Errorf("budget.daily_limit must be >= 0, got %d", c.Budget.DailyLimit)
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Redacted returns a copy safe to print. The api key redacts itself.
func (c AppConfig) Redacted() AppConfig {
	if c.Redis.Password != "" {
		c.Redis.Password = "[REDACTED]"
	}
	c.Redis.URL = redactURL(c.Redis.URL)
	c.Database.URL = redactURL(c.Database.URL)
	return c
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED]"
	}
	return u.Redacted()
}
