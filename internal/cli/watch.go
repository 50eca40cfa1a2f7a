package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietddude/odos/internal/control"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll quotes for the configured pairs and serve health endpoints",
	Run:   runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if len(cfg.Watch.Pairs) == 0 {
		slog.Error("No pairs configured under watch.pairs", "config", cfgPath)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := mustRuntime(ctx, cfg)
	defer func() {
		_ = rt.Close()
	}()

	app := control.NewWatcher(rt)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received signal, shutting down...", "signal", sig)
		cancel()
	}()

	slog.Info("Watcher started", "config", cfgPath, "pairs", len(cfg.Watch.Pairs), "port", cfg.Server.Port)

	if err := app.Run(ctx); err != nil {
		slog.Error("Watcher failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Watcher stopped gracefully")
}
