package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var resetCooldownCmd = &cobra.Command{
	Use:   "reset-cooldown [scope]",
	Short: "Clear the rate-limit cooldown shared through Redis",
	Long: `Clear the cooldown recorded after a 429. The scope defaults to the
configured aggregator host.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runResetCooldown,
}

func init() {
	rootCmd.AddCommand(resetCooldownCmd)
}

func runResetCooldown(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if !cfg.Budget.Shared {
		slog.Warn("budget.shared is off; cooldowns live in each process and nothing is cleared here")
	}

	ctx := context.Background()
	rt := mustRuntime(ctx, cfg)
	defer func() {
		_ = rt.Close()
	}()

	scope := rt.Aggregator.Endpoint().Scope()
	if len(args) == 1 {
		scope = args[0]
	}

	if err := rt.Tracker.ClearCooldown(ctx, scope); err != nil {
		slog.Error("Failed to reset cooldown", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully cleared cooldown for %s\n", scope)
}
