package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "quotagate",
	Short: "Quota Gate - distributed rate limiting gateway for notification APIs",
	Long: `Quota Gate is a distributed API rate limiter placed in front of a
notification-sending HTTP surface (SMS and email).

It provides:
  - Per-client monthly and fixed-window quotas from subscription plans
  - System-wide global limits with soft and hard throttling
  - Atomic multi-limit enforcement against a shared Redis counter store
  - An admin surface for plans, clients, and global rules
  - Prometheus metrics and health probes`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
