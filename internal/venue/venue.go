// Package venue defines the venue-agnostic CLOB client seam. Both the
// maker venue (resting GTC orders) and the hedge venue (IOC takeout) are
// modeled by the same Client interface; internal/venue/clob implements it
// once and reports its configured Role.
package venue

import (
	"context"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Client is the trading/discovery surface the scanner, executor, and
// order-status cache are built against. A single CLOB-shaped
// implementation (internal/venue/clob) backs both venue roles. The role is
// only reported by Role(); time-in-force comes from each order's options
// and credentials from the key pool given at construction.
type Client interface {
	Role() types.VenueRole
	Name() string

	// ListMarkets returns the venue's active market catalogue, paged
	// internally; used by internal/marketmatcher for pairing.
	ListMarkets(ctx context.Context) ([]types.VenueMarket, error)

	// GetOrderBook fetches a REST snapshot for one token, used as a
	// fallback source and at cache warm-up.
	GetOrderBook(ctx context.Context, tokenID string) (*types.Book, error)

	// ListOpenOrders returns this account's resting orders, polled by
	// internal/orderstatuscache.
	ListOpenOrders(ctx context.Context) ([]types.OrderStatus, error)

	// PlaceOrder submits a single order and returns the venue's ack.
	PlaceOrder(ctx context.Context, opts types.VenueOrderOpts) (*types.OrderSubmissionResult, error)

	// CancelOrder cancels a single resting order by hash.
	CancelOrder(ctx context.Context, orderHash string) error

	// SubscribeBook opens a streaming order-book feed for the given
	// token ids, pushing raw messages to out until ctx is cancelled.
	SubscribeBook(ctx context.Context, tokenIDs []string, out chan<- *types.BookMessage) error
}

// Config is the shared construction config for a CLOB-shaped client.
type Config struct {
	Role         types.VenueRole
	Name         string
	BaseURL      string
	WSURL        string
	APIKey       string
	APISecret    string
	APIPassphrase string
	PrivateKey   string
	ProxyAddress string
	RequestTimeout time.Duration
}
