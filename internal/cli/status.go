package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/odos/internal/core/domain"
	"github.com/vietddude/odos/internal/infra/storage"
)

var (
	statusTraceID  string
	statusEndpoint string
	statusCategory string
	statusSince    time.Duration
	statusLimit    int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show journaled failures and the current rate-limit cooldown",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusTraceID, "trace-id", "", "look up a single failure by trace id")
	statusCmd.Flags().StringVar(&statusEndpoint, "endpoint", "", "filter by endpoint (quote, assemble)")
	statusCmd.Flags().StringVar(&statusCategory, "category", "", "filter by error category")
	statusCmd.Flags().DurationVar(&statusSince, "since", 0, "only show failures newer than this")
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "maximum number of failures to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if cfg.Journal.Backend == "memory" {
		slog.Warn("The memory journal only holds failures from this process; configure postgres or redis to inspect a running watcher")
	}

	ctx := context.Background()
	rt := mustRuntime(ctx, cfg)
	defer func() {
		_ = rt.Close()
	}()

	scope := rt.Aggregator.Endpoint().Scope()
	if remaining, err := rt.Tracker.CooldownRemaining(ctx, scope); err == nil && remaining > 0 {
		fmt.Printf("Rate limit cooldown on %s: %s remaining\n\n", scope, remaining.Round(time.Second))
	}

	if rt.Journal == nil {
		fmt.Println("Failure journal is disabled")
		return
	}

	var records []*domain.FailureRecord
	if statusTraceID != "" {
		rec, err := rt.Journal.GetByTraceID(ctx, statusTraceID)
		if errors.Is(err, storage.ErrFailureNotFound) {
			fmt.Printf("No failure recorded for trace %s\n", statusTraceID)
			return
		}
		if err != nil {
			slog.Error("Failed to look up trace", "error", err)
			os.Exit(1)
		}
		records = append(records, rec)
	} else {
		filter := storage.FailureFilter{
			Endpoint: statusEndpoint,
			Category: statusCategory,
			Limit:    statusLimit,
		}
		if statusSince > 0 {
			filter.Since = time.Now().Add(-statusSince)
		}
		var err error
		records, err = rt.Journal.List(ctx, filter)
		if err != nil {
			slog.Error("Failed to list failures", "error", err)
			os.Exit(1)
		}
	}

	printFailures(os.Stdout, records)
}

func printFailures(out io.Writer, records []*domain.FailureRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TIME\tENDPOINT\tCATEGORY\tSTATUS\tCODE\tATTEMPTS\tTRACE\tMESSAGE")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.OccurredAt.Format(time.RFC3339), r.Endpoint, r.Category, r.Status, r.ErrorCode, r.Attempts, r.TraceID, r.Message)
	}
	_ = w.Flush()
}
