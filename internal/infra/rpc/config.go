package rpc

import (
	"fmt"
	"time"

	"github.com/vietddude/odos/internal/infra/rpc/apierr"
	"github.com/vietddude/odos/internal/infra/rpc/routing"
)

// Config is the effective client configuration. It is fixed for the life of
// a Client.
type Config struct {
	// Timeout bounds a single attempt.
	Timeout        time.Duration `json:"timeout"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	// OverallTimeout bounds a logical call including every retry and
	// backoff sleep. Zero disables the bound.
	OverallTimeout  time.Duration `json:"overall_timeout"`
	MaxConnections  int           `json:"max_connections"`
	PoolIdleTimeout time.Duration `json:"pool_idle_timeout"`
	UserAgent       string        `json:"user_agent"`

	// CircuitBreakerThreshold is the number of consecutive failed calls that
	// opens the breaker. Zero disables it.
	CircuitBreakerThreshold    int           `json:"circuit_breaker_threshold"`
	CircuitBreakerResetTimeout time.Duration `json:"circuit_breaker_reset_timeout"`

	Retry routing.RetryPolicy `json:"-"`
}

// DefaultConfig returns the standard client settings.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		ConnectTimeout:  10 * time.Second,
		OverallTimeout:  2 * time.Minute,
		MaxConnections:  20,
		PoolIdleTimeout: 90 * time.Second,
		UserAgent:       "odos-go",

		CircuitBreakerThreshold:    5,
		CircuitBreakerResetTimeout: 60 * time.Second,

		Retry: routing.DefaultRetryPolicy(),
	}
}

// ConservativeConfig never retries server errors.
func ConservativeConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = routing.ConservativeRetryPolicy()
	return cfg
}

// NoRetriesConfig makes every call single-shot.
func NoRetriesConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = routing.NoRetries()
	return cfg
}

// Validate reports the first unusable setting as a configuration error.
func (c Config) Validate() error {
	var problem string
	switch {
	case c.Timeout <= 0:
		problem = fmt.Sprintf("timeout must be > 0, got %s", c.Timeout)
	case c.ConnectTimeout <= 0:
		problem = fmt.Sprintf("connect_timeout must be > 0, got %s", c.ConnectTimeout)
	case c.OverallTimeout < 0:
		problem = fmt.Sprintf("overall_timeout must be >= 0, got %s", c.OverallTimeout)
	case c.MaxConnections <= 0:
		problem = fmt.Sprintf("max_connections must be > 0, got %d", c.MaxConnections)
	case c.PoolIdleTimeout < 0:
		problem = fmt.Sprintf("pool_idle_timeout must be >= 0, got %s", c.PoolIdleTimeout)
	case c.CircuitBreakerThreshold < 0:
		problem = fmt.Sprintf("circuit_breaker_threshold must be >= 0, got %d", c.CircuitBreakerThreshold)
	case c.CircuitBreakerThreshold > 0 && c.CircuitBreakerResetTimeout <= 0:
		problem = fmt.Sprintf("circuit_breaker_reset_timeout must be > 0, got %s", c.CircuitBreakerResetTimeout)
	}
	if problem == "" {
		if err := c.Retry.Validate(); err != nil {
			problem = err.Error()
		}
	}
	if problem != "" {
		return &apierr.ConfigurationError{Message: problem}
	}
	return nil
}
