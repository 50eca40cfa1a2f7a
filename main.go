package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/vietddude/odos/internal/aggregator"
	"github.com/vietddude/odos/internal/core/domain"
	"github.com/vietddude/odos/internal/infra/rpc"
	"github.com/vietddude/odos/internal/infra/rpc/apierr"
	"github.com/vietddude/odos/internal/infra/rpc/budget"
	"github.com/vietddude/odos/internal/infra/storage"
	"github.com/vietddude/odos/internal/infra/storage/memory"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	USER_ADDR := os.Getenv("ODOS_USER_ADDR")
	if USER_ADDR == "" {
		log.Fatalf("ODOS_USER_ADDR is not set")
	}

	ctx := context.Background()

	// 1. Client with the default retry policy and an in-memory failure journal
	journal := memory.NewFailureRepo(100)
	client, err := rpc.NewClient(rpc.DefaultConfig(), rpc.WithJournal(journal))
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	// 2. Rate-limit tracker: a 429 with Retry-After blocks the next call until it expires
	tracker := budget.NewTracker(0, nil, nil)

	opts := []aggregator.Option{aggregator.WithTracker(tracker)}
	if key := os.Getenv("ODOS_API_KEY"); key != "" {
		apiKey, err := domain.ParseAPIKey(key)
		if err != nil {
			log.Fatalf("Invalid ODOS_API_KEY: %v", err)
		}
		opts = append(opts, aggregator.WithAPIKey(apiKey))
	}
	odos := aggregator.NewClient(client, aggregator.PublicEndpoint(), opts...)

	fmt.Println("=== Quoting 1 WETH -> USDC on Ethereum ===")

	// 3. A few quotes back to back
	for i := 0; i < 3; i++ {
		quote, err := odos.Quote(ctx, aggregator.QuoteRequest{
			ChainID:              uint64(domain.ChainIDEthereum),
			InputTokens:          []aggregator.InputToken{{TokenAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Amount: "1000000000000000000"}},
			OutputTokens:         []aggregator.OutputToken{{TokenAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Proportion: 1}},
			SlippageLimitPercent: 0.5,
			UserAddr:             USER_ADDR,
			Compact:              true,
		})
		if err != nil {
			var rl *apierr.RateLimitError
			if errors.As(err, &rl) {
				log.Printf("Quote %d rate limited: %v", i+1, rl)
				continue
			}
			log.Printf("Quote %d failed [%s]: %v", i+1, apierr.CategoryOf(err), err)
			continue
		}
		fmt.Printf("Quote %d: %s USDC (path %s, block %d)\n", i+1, quote.OutAmount(), quote.PathID, quote.BlockNumber)

		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println()

	// 4. Monitor stats
	stats := client.Monitor().GetStats()
	fmt.Println("=== Monitor ===")
	fmt.Printf("  Status: %s\n", stats.Status)
	fmt.Printf("  Average latency: %v\n", stats.AverageLatency.Round(time.Millisecond))
	fmt.Printf("  Rate limited: %d\n", stats.RateLimitCount)
	fmt.Println()

	// 5. Usage and journaled failures
	usage := tracker.GetUsage(odos.Endpoint().Scope())
	fmt.Printf("Total calls made: %d (rate limited %d)\n", usage.TotalCalls, usage.RateLimited)

	failures, _ := journal.List(ctx, storage.FailureFilter{})
	for _, f := range failures {
		fmt.Printf("  failure: %s %s trace=%s\n", f.Endpoint, f.Category, f.TraceID)
	}
}
