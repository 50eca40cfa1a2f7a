package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration (api key redacted)",
	Run:   runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if _, err := cfg.RPC(); err != nil {
		fmt.Printf("Configuration is invalid: %v\n", err)
		os.Exit(1)
	}

	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		fmt.Printf("Failed to render config: %v\n", err)
		os.Exit(1)
	}
	_, _ = os.Stdout.Write(out)
}
