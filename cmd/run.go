package cmd

import (
	"fmt"

	"github.com/mselser95/polymarket-arb/internal/app"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage bot",
	Long: `Starts the cross-venue arbitrage engine, which will:
1. Match maker-venue markets with their hedge-venue counterparts
2. Keep both venues' orderbooks cached
3. Scan matched pairs for opportunities whose maker + hedge cost is below 1.0
4. Execute tasks: rest a maker order, then hedge its fills on the other venue

Use --pair-filter to track only market pairs whose maker slug contains a substring, for debugging.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("pair-filter", "s", "", "Track only market pairs whose maker slug contains this substring (for debugging)")
}

func runBot(cmd *cobra.Command, args []string) error {
	// Load config
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create logger
	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Get flags
	pairFilter, _ := cmd.Flags().GetString("pair-filter")

	// Create app with options
	opts := &app.Options{
		PairFilter: pairFilter,
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	// Run app
	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
