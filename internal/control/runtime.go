// Package control wires configuration into running components and drives
// the long-running watch loop.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/odos/internal/aggregator"
	"github.com/vietddude/odos/internal/core/config"
	redisclient "github.com/vietddude/odos/internal/infra/redis"
	"github.com/vietddude/odos/internal/infra/rpc"
	"github.com/vietddude/odos/internal/infra/rpc/budget"
	"github.com/vietddude/odos/internal/infra/storage"
	"github.com/vietddude/odos/internal/infra/storage/memory"
	"github.com/vietddude/odos/internal/infra/storage/postgres"
)

// Runtime holds every component built from an AppConfig.
type Runtime struct {
	Config     *config.AppConfig
	RPC        *rpc.Client
	Aggregator *aggregator.Client
	Tracker    *budget.DefaultTracker
	// Journal is nil when the journal backend is "none".
	Journal storage.FailureRepository

	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// NewRuntime initialises storage, the shared rate-limit tracker, the rpc
// client and the aggregator client.
func NewRuntime(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	rt := &Runtime{Config: cfg, log: logger}

	if err := rt.initRedis(); err != nil {
		return nil, err
	}

	// 1. Failure journal
	if err := rt.initJournal(ctx); err != nil {
		rt.Close()
		return nil, err
	}

	// 2. Rate-limit tracker
	var store budget.CooldownStore
	if cfg.Budget.Shared {
		store = redisclient.NewCooldownStore(rt.redisClient)
		logger.Info("Using Redis cooldown store")
	}
	rt.Tracker = budget.NewTracker(cfg.Budget.DailyLimit, store, logger)

	// 3. RPC client
	rpcCfg, err := cfg.RPC()
	if err != nil {
		rt.Close()
		return nil, err
	}
	opts := []rpc.Option{rpc.WithLogger(logger)}
	if rt.Journal != nil {
		opts = append(opts, rpc.WithJournal(rt.Journal))
	}
	rt.RPC, err = rpc.NewClient(rpcCfg, opts...)
	if err != nil {
		rt.Close()
		return nil, err
	}

	// 4. Aggregator client
	aggOpts := []aggregator.Option{
		aggregator.WithTracker(rt.Tracker),
		aggregator.WithLogger(logger),
	}
	if !cfg.API.APIKey.IsZero() {
		aggOpts = append(aggOpts, aggregator.WithAPIKey(cfg.API.APIKey))
	}
	rt.Aggregator = aggregator.NewClient(rt.RPC, cfg.Endpoint(), aggOpts...)

	return rt, nil
}

func (rt *Runtime) initRedis() error {
	cfg := rt.Config
	if !cfg.Budget.Shared && cfg.Journal.Backend != "redis" {
		return nil
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required for shared budget or redis journal")
	}

	client, err := redisclient.NewClient(cfg.Redis)
	if err != nil {
		return err
	}
	rt.redisClient = client
	return nil
}

func (rt *Runtime) initJournal(ctx context.Context) error {
	cfg := rt.Config
	switch cfg.Journal.Backend {
	case "", "memory":
		rt.Journal = memory.NewFailureRepo(cfg.Journal.MaxSize)
		rt.log.Info("Using Memory failure journal")
	case "postgres":
		if cfg.Database.URL == "" {
			return errors.New("database.url is required for postgres journal")
		}
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		rt.db = db
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate db: %w", err)
		}
		rt.Journal = postgres.NewFailureRepo(db)
		rt.log.Info("Using PostgreSQL failure journal")
	case "redis":
		rt.Journal = redisclient.NewFailureRepo(rt.redisClient, cfg.Journal.Retention)
		rt.log.Info("Using Redis failure journal")
	case "none":
	default:
		return fmt.Errorf("unknown journal backend %q", cfg.Journal.Backend)
	}
	return nil
}

// StartMetricsCollector publishes database pool usage when the postgres
// journal is in use.
func (rt *Runtime) StartMetricsCollector(ctx context.Context) {
	if rt.db != nil {
		rt.db.StartMetricsCollector(ctx)
	}
}

// Close releases connections. It is safe on a partially built Runtime.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.RPC != nil {
		errs = append(errs, rt.RPC.Close())
	}
	if rt.db != nil {
		errs = append(errs, rt.db.Close())
	}
	if rt.redisClient != nil {
		errs = append(errs, rt.redisClient.Close())
	}
	return errors.Join(errs...)
}

// ConfigView is the effective configuration as reported by the detailed
// health endpoint. It never carries the api key.
type ConfigView struct {
	Endpoint          aggregator.Endpoint `json:"endpoint"`
	APIKeySet         bool                `json:"api_key_set"`
	Timeout           time.Duration       `json:"timeout"`
	OverallTimeout    time.Duration       `json:"overall_timeout"`
	MaxRetries        int                 `json:"max_retries"`
	InitialBackoff    time.Duration       `json:"initial_backoff"`
	MaxBackoff        time.Duration       `json:"max_backoff"`
	Multiplier        float64             `json:"multiplier"`
	RetryServerErrors bool                `json:"retry_server_errors"`
	DailyLimit        int                 `json:"daily_limit"`
	SharedBudget      bool                `json:"shared_budget"`
	JournalBackend    string              `json:"journal_backend"`
}

// View summarises the runtime's effective configuration.
func (rt *Runtime) View() ConfigView {
	c := rt.RPC.Config()
	return ConfigView{
		Endpoint:          rt.Aggregator.Endpoint(),
		APIKeySet:         !rt.Config.API.APIKey.IsZero(),
		Timeout:           c.Timeout,
		OverallTimeout:    c.OverallTimeout,
		MaxRetries:        c.Retry.MaxRetries,
		InitialBackoff:    c.Retry.InitialBackoff,
		MaxBackoff:        c.Retry.MaxBackoff,
		Multiplier:        c.Retry.Multiplier,
		RetryServerErrors: c.Retry.RetryServerErrors,
		DailyLimit:        rt.Config.Budget.DailyLimit,
		SharedBudget:      rt.Config.Budget.Shared,
		JournalBackend:    rt.Config.Journal.Backend,
	}
}
