package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "polymarket-arb",
	Short: "Cross-venue prediction market arbitrage engine",
	Long: `Matches markets across a maker venue and a hedge venue, scans their
order books for arbitrage, and works approved opportunities as tasks: a
maker-side resting or taker order paired with a hedge-side offsetting fill.

Scanned opportunities are surfaced for operator approval; "approve" turns
one into a task, the executor drives it through the maker and hedge venue
clients to completion or cancellation.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
