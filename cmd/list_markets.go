package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/internal/venue/clob"
	"github.com/mselser95/polymarket-arb/internal/venue/clobsigner"
	"github.com/mselser95/polymarket-arb/internal/venue/keypool"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listMarketsCmd = &cobra.Command{
	Use:   "list-markets",
	Short: "List active markets from the maker venue",
	Long:  `Fetches and displays the maker venue's active market catalogue for debugging purposes.`,
	RunE:  runListMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listMarketsCmd)
	listMarketsCmd.Flags().IntP("limit", "l", 20, "Maximum number of markets to display")
	listMarketsCmd.Flags().BoolP("verbose", "v", false, "Show detailed market information")
}

func runListMarkets(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	limit, _ := cmd.Flags().GetInt("limit")
	verbose, _ := cmd.Flags().GetBool("verbose")

	signer, err := clobsigner.NewEIP712Signer(clobsigner.Config{
		PrivateKey:    cfg.MakerPrivateKey,
		ProxyAddress:  cfg.MakerProxyAddress,
		SignatureType: cfg.MakerSignatureType,
		ChainID:       cfg.ChainID,
	})
	if err != nil {
		return fmt.Errorf("build maker signer: %w", err)
	}
	keys := keypool.New(append(append([]string{}, cfg.MakerKeysScan...), cfg.MakerKeysTrade...))

	client := clob.New(venue.Config{
		Role:           types.RoleMaker,
		Name:           string(types.RoleMaker),
		BaseURL:        cfg.MakerBaseURL,
		WSURL:          cfg.MakerWSURL,
		PrivateKey:     cfg.MakerPrivateKey,
		ProxyAddress:   cfg.MakerProxyAddress,
		RequestTimeout: 10 * time.Second,
	}, signer, keys, logger.With(), nil)

	fmt.Printf("Fetching active markets from the maker venue...\n\n")

	markets, err := client.ListMarkets(ctx)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}

	if len(markets) == 0 {
		fmt.Println("No active markets found.")
		return nil
	}

	sort.Slice(markets, func(i, j int) bool { return markets[i].Slug < markets[j].Slug })

	total := len(markets)
	if limit > 0 && len(markets) > limit {
		markets = markets[:limit]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SLUG\tQUESTION\tTOKENS\n")
	fmt.Fprintf(w, "----\t--------\t------\n")

	for _, market := range markets {
		tokensStatus := "✓"
		if market.YesTokenID == "" || market.NoTokenID == "" {
			tokensStatus = "✗ (missing YES/NO)"
		}

		question := market.Question
		if len(question) > 60 {
			question = question[:57] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", market.Slug, question, tokensStatus)

		if verbose {
			fmt.Fprintf(w, "\tID: %s\n", market.ExternalID)
			fmt.Fprintf(w, "\tClosed: %v, Active: %v\n", market.Closed, market.Active)
			if market.YesTokenID != "" {
				fmt.Fprintf(w, "\tYES Token: %s\n", market.YesTokenID)
			}
			if market.NoTokenID != "" {
				fmt.Fprintf(w, "\tNO Token: %s\n", market.NoTokenID)
			}
			fmt.Fprintf(w, "\n")
		}
	}

	w.Flush()

	fmt.Printf("\nTotal: %d markets (showing %d)\n", total, len(markets))

	return nil
}
