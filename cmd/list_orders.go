package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/internal/venue/clob"
	"github.com/mselser95/polymarket-arb/internal/venue/clobsigner"
	"github.com/mselser95/polymarket-arb/internal/venue/keypool"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listOrdersCmd = &cobra.Command{
	Use:   "list-orders",
	Short: "List open orders on a venue",
	Long: `List all open orders for the authenticated account on one venue.

Shows order details including token, state, filled quantity and remaining size.

Examples:
  # List maker venue open orders
  go run . list-orders

  # List hedge venue open orders
  go run . list-orders --venue hedge`,
	Args: cobra.NoArgs,
	RunE: runListOrders,
}

var listOrdersVenue string

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listOrdersCmd)
	listOrdersCmd.Flags().StringVar(&listOrdersVenue, "venue", "maker", "Venue to query: maker or hedge")
}

func runListOrders(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := newVenueClientForRole(cfg, logger, listOrdersVenue)
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

	displayListOrdersTable(orders)
	displayListOrdersSummary(orders)

	return nil
}

func displayListOrdersTable(orders []types.OrderStatus) {
	fmt.Println("\n========================================")
	fmt.Println("Open Orders")
	fmt.Println("========================================")
	fmt.Printf("%-14s %-24s %-12s %-10s %-10s\n",
		"Order Hash", "Token", "State", "Filled", "Remaining")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, order := range orders {
		shortHash := order.OrderHash
		if len(shortHash) > 10 {
			shortHash = shortHash[:10] + "..."
		}

		token := order.TokenID
		if len(token) > 20 {
			token = token[:17] + "..."
		}

		fmt.Printf("%-14s %-24s %-12s %-10.2f %-10.2f\n",
			shortHash, token, order.State, order.FilledQty, order.RemainingQty)
	}
}

func displayListOrdersSummary(orders []types.OrderStatus) {
	var totalFilled, totalRemaining float64
	for _, order := range orders {
		totalFilled += order.FilledQty
		totalRemaining += order.RemainingQty
	}

	fmt.Println("\n========================================")
	fmt.Println("Summary")
	fmt.Println("========================================")
	fmt.Printf("Total Orders:    %d\n", len(orders))
	fmt.Printf("Total Filled:    %.2f\n", totalFilled)
	fmt.Printf("Total Remaining: %.2f\n", totalRemaining)
}

// newVenueClientForRole builds a venue client for a maker or hedge role,
// shared by the list-orders and cancel-orders CLI commands.
func newVenueClientForRole(cfg *config.Config, logger *zap.Logger, role string) (venue.Client, error) {
	var (
		baseURL, wsURL, privateKey, proxyAddress string
		sigType                                  int
		keysScan, keysTrade                      []string
		venueRole                                types.VenueRole
	)

	switch role {
	case "maker", "":
		venueRole = types.RoleMaker
		baseURL, wsURL = cfg.MakerBaseURL, cfg.MakerWSURL
		privateKey, proxyAddress, sigType = cfg.MakerPrivateKey, cfg.MakerProxyAddress, cfg.MakerSignatureType
		keysScan, keysTrade = cfg.MakerKeysScan, cfg.MakerKeysTrade
	case "hedge":
		venueRole = types.RoleHedge
		baseURL, wsURL = cfg.HedgeBaseURL, cfg.HedgeWSURL
		privateKey, proxyAddress, sigType = cfg.HedgePrivateKey, cfg.HedgeProxyAddress, cfg.HedgeSignatureType
	default:
		return nil, fmt.Errorf("unknown venue %q, must be maker or hedge", role)
	}

	signer, err := clobsigner.NewEIP712Signer(clobsigner.Config{
		PrivateKey:    privateKey,
		ProxyAddress:  proxyAddress,
		SignatureType: sigType,
		ChainID:       cfg.ChainID,
	})
	if err != nil {
		return nil, fmt.Errorf("build %s signer: %w", role, err)
	}

	keys := keypool.New(append(append([]string{}, keysScan...), keysTrade...))

	return clob.New(venue.Config{
		Role:           venueRole,
		Name:           string(venueRole),
		BaseURL:        baseURL,
		WSURL:          wsURL,
		PrivateKey:     privateKey,
		ProxyAddress:   proxyAddress,
		RequestTimeout: 10 * time.Second,
	}, signer, keys, logger.With(zap.String("component", "venue"), zap.String("role", role)), nil), nil
}
