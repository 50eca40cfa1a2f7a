package control

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/odos/internal/aggregator"
	"github.com/vietddude/odos/internal/core/config"
	"github.com/vietddude/odos/internal/core/worker"
	"github.com/vietddude/odos/internal/infra/health"
	"github.com/vietddude/odos/internal/infra/rpc/apierr"
)

// PairResult is the latest outcome of polling one pair.
type PairResult struct {
	Pair      string
	PathID    string
	OutAmount string
	Err       error
	At        time.Time
}

// Watcher polls the configured pairs on an interval and serves health
// endpoints while it runs.
type Watcher struct {
	rt           *Runtime
	pairs        []config.PairConfig
	interval     time.Duration
	healthMon    *health.Monitor
	healthServer *health.Server
	pruner       *worker.Pruner
	log          *slog.Logger

	mu      sync.RWMutex
	results map[string]PairResult
}

// NewWatcher creates a Watcher over rt.
func NewWatcher(rt *Runtime) *Watcher {
	cfg := rt.Config
	healthMon := health.NewMonitor(rt.RPC, rt.Tracker, rt.Aggregator.Endpoint().Scope(), rt.View())

	w := &Watcher{
		rt:           rt,
		pairs:        cfg.Watch.Pairs,
		interval:     cfg.Watch.Interval,
		healthMon:    healthMon,
		healthServer: health.NewServer(healthMon, cfg.Server.Port),
		log:          rt.log,
		results:      make(map[string]PairResult),
	}
	if rt.Journal != nil && cfg.Journal.Retention > 0 {
		w.pruner = worker.NewPruner(rt.Journal, cfg.Journal.Retention, cfg.Journal.PruneInterval, rt.log)
	}
	return w
}

// Run blocks until ctx is cancelled. Each pair is polled by its own
// goroutine; a single pair never has two quotes in flight.
func (w *Watcher) Run(ctx context.Context) error {
	// Start Health Server
	go func() {
		if err := w.healthServer.Start(); err != nil {
			w.log.Error("Health server failed", "error", err)
		}
	}()

	w.rt.StartMetricsCollector(ctx)

	if w.pruner != nil {
		w.log.Info("Starting pruner")
		go w.pruner.Start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, pair := range w.pairs {
		w.log.Info("Starting pair watcher", "pair", pair.Name, "interval", w.interval)
		g.Go(func() error {
			return w.watchPair(gctx, pair)
		})
	}
	err := g.Wait()

	w.log.Info("Stopping Watcher...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if serr := w.healthServer.Stop(shutdownCtx); serr != nil {
		w.log.Warn("Failed to stop health server", "error", serr)
	}
	return err
}

func (w *Watcher) watchPair(ctx context.Context, pair config.PairConfig) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.Poll(ctx, pair)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one quote for pair and stores the result.
func (w *Watcher) Poll(ctx context.Context, pair config.PairConfig) PairResult {
	res := PairResult{Pair: pair.Name, At: time.Now()}

	quote, err := w.rt.Aggregator.Quote(ctx, QuoteFor(pair))
	if err != nil {
		res.Err = err
		if ctx.Err() == nil {
			w.log.Warn("Quote failed",
				"pair", pair.Name,
				"category", apierr.CategoryOf(err),
				"error", err,
			)
		}
	} else {
		res.PathID = quote.PathID
		res.OutAmount = quote.OutAmount()
		w.log.Info("Quote",
			"pair", pair.Name,
			"out_amount", res.OutAmount,
			"price_impact", quote.PriceImpact,
			"block", quote.BlockNumber,
		)
	}

	w.mu.Lock()
	w.results[pair.Name] = res
	w.mu.Unlock()
	return res
}

// Results returns the latest result per pair.
func (w *Watcher) Results() map[string]PairResult {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make(map[string]PairResult, len(w.results))
	for k, v := range w.results {
		out[k] = v
	}
	return out
}

// QuoteFor builds the quote request for a configured pair.
func QuoteFor(p config.PairConfig) aggregator.QuoteRequest {
	return aggregator.QuoteRequest{
		ChainID:              uint64(p.ChainID),
		InputTokens:          []aggregator.InputToken{{TokenAddress: p.InputToken, Amount: p.InputAmount}},
		OutputTokens:         []aggregator.OutputToken{{TokenAddress: p.OutputToken, Proportion: 1}},
		SlippageLimitPercent: p.Slippage,
		UserAddr:             p.UserAddr,
		Compact:              true,
	}
}
