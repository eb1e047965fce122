package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quotecall",
	Short: "Supplier call negotiation engine",
	Long: `Quotecall runs automated phone negotiations with parts suppliers:
an AI call agent gathers pricing and availability, negotiates against a
budget, and a two-tier supervisor (per-call Overseer, cross-call
Commander) coaches it and compares quotes across concurrent calls.

Run 'quotecall serve' for the turn endpoint and 'quotecall worker' for
the Commander event consumer.`,
}

// Execute runs the root command.
func Execute() {
	// A local .env is the usual way to carry ANTHROPIC_API_KEY in dev.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}
