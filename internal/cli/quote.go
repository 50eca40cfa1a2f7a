package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/odos/internal/aggregator"
	"github.com/vietddude/odos/internal/core/domain"
	"github.com/vietddude/odos/internal/infra/rpc/apierr"
)

var (
	quoteChain    string
	quoteInputs   []string
	quoteOutputs  []string
	quoteUser     string
	quoteSlippage float64
	quoteJSON     bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Request a swap quote",
	Example: `  odos quote --chain ethereum --in 0xC02a...6Cc2:1000000000000000000 \
    --out 0xA0b8...eB48 --user 0x47E2...3f86`,
	Run: runQuote,
}

func init() {
	quoteCmd.Flags().StringVar(&quoteChain, "chain", "ethereum", "chain id or name")
	quoteCmd.Flags().StringSliceVar(&quoteInputs, "in", nil, "input token as <address>:<amount> (repeatable)")
	quoteCmd.Flags().StringSliceVar(&quoteOutputs, "out", nil, "output token as <address>[:<proportion>] (repeatable)")
	quoteCmd.Flags().StringVar(&quoteUser, "user", "", "user address")
	quoteCmd.Flags().Float64Var(&quoteSlippage, "slippage", 0.5, "slippage limit percent")
	quoteCmd.Flags().BoolVar(&quoteJSON, "json", false, "print the raw quote as JSON")
	_ = quoteCmd.MarkFlagRequired("in")
	_ = quoteCmd.MarkFlagRequired("out")
	_ = quoteCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	req, err := buildQuoteRequest(quoteChain, quoteInputs, quoteOutputs, quoteUser, quoteSlippage)
	if err != nil {
		fmt.Printf("Invalid arguments: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	rt := mustRuntime(ctx, cfg)
	defer func() {
		_ = rt.Close()
	}()

	quote, err := rt.Aggregator.Quote(ctx, req)
	if err != nil {
		reportError("Quote failed", err)
		os.Exit(1)
	}

	if quoteJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(quote)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "PATH ID\t%s\n", quote.PathID)
	_, _ = fmt.Fprintf(w, "BLOCK\t%d\n", quote.BlockNumber)
	for i, amount := range quote.OutAmounts {
		token := ""
		if i < len(quote.OutTokens) {
			token = quote.OutTokens[i]
		}
		_, _ = fmt.Fprintf(w, "OUT\t%s %s\n", amount, token)
	}
	_, _ = fmt.Fprintf(w, "PRICE IMPACT\t%.4f%%\n", quote.PriceImpact)
	_, _ = fmt.Fprintf(w, "GAS ESTIMATE\t%.0f\n", quote.GasEstimate)
	_ = w.Flush()
}

func buildQuoteRequest(chain string, inputs, outputs []string, user string, slippage float64) (aggregator.QuoteRequest, error) {
	chainID, ok := domain.ParseChain(chain)
	if !ok {
		return aggregator.QuoteRequest{}, fmt.Errorf("unknown chain %q", chain)
	}

	req := aggregator.QuoteRequest{
		ChainID:              uint64(chainID),
		SlippageLimitPercent: slippage,
		UserAddr:             user,
		Compact:              true,
	}

	for _, in := range inputs {
		token, amount, ok := strings.Cut(in, ":")
		if !ok {
			return req, fmt.Errorf("input %q must be <address>:<amount>", in)
		}
		req.InputTokens = append(req.InputTokens, aggregator.InputToken{TokenAddress: token, Amount: amount})
	}

	for _, out := range outputs {
		token, raw, hasProportion := strings.Cut(out, ":")
		proportion := 1.0 / float64(len(outputs))
		if hasProportion {
			if _, err := fmt.Sscanf(raw, "%g", &proportion); err != nil {
				return req, fmt.Errorf("output %q has invalid proportion: %w", out, err)
			}
		}
		req.OutputTokens = append(req.OutputTokens, aggregator.OutputToken{TokenAddress: token, Proportion: proportion})
	}
	return req, nil
}

// reportError logs a classified error with its support fields.
func reportError(msg string, err error) {
	attrs := []any{"category", apierr.CategoryOf(err), "error", err}
	if traceID, ok := apierr.TraceIDOf(err); ok {
		attrs = append(attrs, "trace_id", traceID.String())
	}
	if code, ok := apierr.CodeOf(err); ok {
		attrs = append(attrs, "code", code.String())
	}
	if d, ok := apierr.RetryAfterOf(err); ok {
		attrs = append(attrs, "retry_after", d)
	}
	slog.Error(msg, attrs...)
}
