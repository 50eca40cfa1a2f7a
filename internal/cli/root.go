package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/odos/internal/control"
	"github.com/vietddude/odos/internal/core/config"
	"github.com/vietddude/odos/internal/core/domain"
)

var (
	cfgPath string
	isDebug bool
)

var rootCmd = &cobra.Command{
	Use:   "odos",
	Short: "Odos aggregator client",
	Long: `odos requests swap quotes and assembles router transactions against the
Odos aggregator, retrying transient failures and honouring rate limits.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

// loadConfig reads .env and the config file, applies environment fallbacks
// and initialises the default logger.
func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := applyEnv(cfg); err != nil {
		stylelog.InitDefault()
		slog.Error("Invalid environment", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
	return cfg
}

// applyEnv fills settings the config file left empty from ODOS_API_KEY,
// DATABASE_URL and REDIS_URL.
func applyEnv(cfg *config.AppConfig) error {
	if key := os.Getenv("ODOS_API_KEY"); key != "" && cfg.API.APIKey.IsZero() {
		parsed, err := domain.ParseAPIKey(key)
		if err != nil {
			return err
		}
		cfg.API.APIKey = parsed
	}
	if url := os.Getenv("DATABASE_URL"); url != "" && cfg.Database.URL == "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" && cfg.Redis.URL == "" {
		cfg.Redis.URL = url
	}
	return nil
}

// mustRuntime builds the runtime or exits.
func mustRuntime(ctx context.Context, cfg *config.AppConfig) *control.Runtime {
	rt, err := control.NewRuntime(ctx, cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	return rt
}
