package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelOrdersCmd = &cobra.Command{
	Use:   "cancel-orders",
	Short: "Cancel all open orders on a venue",
	Long: `Fetches open orders on one venue and cancels each individually.

Use --dry-run to preview orders without canceling.

Examples:
  # Preview orders without canceling
  go run . cancel-orders --dry-run

  # Cancel all maker venue orders immediately
  go run . cancel-orders

  # Cancel all hedge venue orders
  go run . cancel-orders --venue hedge`,
	Args: cobra.NoArgs,
	RunE: runCancelOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	cancelOrdersDryRun bool
	cancelOrdersVenue  string
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelOrdersCmd)
	cancelOrdersCmd.Flags().BoolVar(&cancelOrdersDryRun, "dry-run", false, "Preview orders without canceling")
	cancelOrdersCmd.Flags().StringVar(&cancelOrdersVenue, "venue", "maker", "Venue to query: maker or hedge")
}

func runCancelOrders(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := newVenueClientForRole(cfg, logger, cancelOrdersVenue)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orders, err := client.ListOpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("fetch open orders: %w", err)
	}

	if len(orders) == 0 {
		fmt.Println("No open orders found.")
		return nil
	}

	displayCancelOrdersTable(orders)

	if cancelOrdersDryRun {
		fmt.Println("\n[DRY RUN] No orders were canceled.")
		return nil
	}

	fmt.Println("\nCanceling orders...")
	canceled, failed := cancelAll(ctx, client, orders)
	displayCancelResults(canceled, failed)

	return nil
}

func cancelAll(ctx context.Context, client interface {
	CancelOrder(ctx context.Context, orderHash string) error
}, orders []types.OrderStatus) (canceled []string, failed map[string]string) {
	failed = make(map[string]string)

	for _, order := range orders {
		if err := client.CancelOrder(ctx, order.OrderHash); err != nil {
			failed[order.OrderHash] = err.Error()
			continue
		}
		canceled = append(canceled, order.OrderHash)
	}

	return canceled, failed
}

func displayCancelOrdersTable(orders []types.OrderStatus) {
	fmt.Println("\n========================================")
	fmt.Println("Open Orders")
	fmt.Println("========================================")
	fmt.Printf("%-14s %-24s %-10s %-10s\n", "Order Hash", "Token", "Filled", "Remaining")
	fmt.Println("----------------------------------------")

	for _, order := range orders {
		shortHash := order.OrderHash
		if len(shortHash) > 10 {
			shortHash = shortHash[:10] + "..."
		}

		token := order.TokenID
		if len(token) > 20 {
			token = token[:17] + "..."
		}

		fmt.Printf("%-14s %-24s %-10.2f %-10.2f\n", shortHash, token, order.FilledQty, order.RemainingQty)
	}
}

func displayCancelResults(canceled []string, failed map[string]string) {
	fmt.Println("\n========================================")
	fmt.Println("Cancellation Results")
	fmt.Println("========================================")

	fmt.Printf("✅ Canceled: %d orders\n", len(canceled))

	if len(failed) > 0 {
		fmt.Printf("❌ Not canceled: %d orders\n", len(failed))
		fmt.Println("\nFailed cancellations:")
		for orderHash, reason := range failed {
			shortHash := orderHash
			if len(shortHash) > 12 {
				shortHash = shortHash[:12] + "..."
			}
			fmt.Printf("  - %s: %s\n", shortHash, reason)
		}
	}
}
