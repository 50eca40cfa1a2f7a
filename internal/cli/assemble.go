package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/odos/internal/aggregator"
)

var (
	assemblePathID   string
	assembleUser     string
	assembleReceiver string
	assembleSimulate bool
)

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble a router transaction from a quoted path",
	Run:   runAssemble,
}

func init() {
	assembleCmd.Flags().StringVar(&assemblePathID, "path-id", "", "path id returned by quote")
	assembleCmd.Flags().StringVar(&assembleUser, "user", "", "user address the quote was made for")
	assembleCmd.Flags().StringVar(&assembleReceiver, "receiver", "", "output recipient (defaults to user)")
	assembleCmd.Flags().BoolVar(&assembleSimulate, "simulate", false, "ask the aggregator to simulate the transaction")
	_ = assembleCmd.MarkFlagRequired("path-id")
	_ = assembleCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(assembleCmd)
}

func runAssemble(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	rt := mustRuntime(ctx, cfg)
	defer func() {
		_ = rt.Close()
	}()

	resp, err := rt.Aggregator.Assemble(ctx, aggregator.AssembleRequest{
		UserAddr: assembleUser,
		PathID:   assemblePathID,
		Simulate: assembleSimulate,
		Receiver: assembleReceiver,
	})
	if err != nil {
		reportError("Assemble failed", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		fmt.Printf("Failed to print transaction: %v\n", err)
		os.Exit(1)
	}
}
