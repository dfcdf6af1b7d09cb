package orderbookcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

func newTestCache(t *testing.T) (*Cache, chan *types.BookMessage, context.CancelFunc) {
	t.Helper()
	msgChan := make(chan *types.BookMessage, 16)
	c := New(Config{
		Venue:          "maker",
		MessageChannel: msgChan,
		StaleCalc:      10 * time.Second,
		StaleUI:        30 * time.Second,
		Logger:         zap.NewNop(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	return c, msgChan, cancel
}

func TestCache_BookMessageThenGet(t *testing.T) {
	c, msgChan, cancel := newTestCache(t)
	defer func() { cancel(); c.Close() }()

	msgChan <- &types.BookMessage{
		EventType: "book",
		AssetID:   "tok-1",
		Bids:      []types.PriceLevel{{Price: "0.40", Size: "100"}},
		Asks:      []types.PriceLevel{{Price: "0.42", Size: "50"}},
	}

	require.Eventually(t, func() bool {
		_, ok := c.Get("maker", "tok-1")
		return ok
	}, time.Second, 5*time.Millisecond)

	book, ok := c.Get("maker", "tok-1")
	require.True(t, ok)
	bid, ok := book.BestBid()
	require.True(t, ok)
	assert.InDelta(t, 0.40, bid.Price, 1e-9)
}

func TestCache_RESTNeverSupersedesNewerWS(t *testing.T) {
	c, msgChan, cancel := newTestCache(t)
	defer func() { cancel(); c.Close() }()

	msgChan <- &types.BookMessage{
		EventType: "book",
		AssetID:   "tok-2",
		Bids:      []types.PriceLevel{{Price: "0.50", Size: "10"}},
		Asks:      []types.PriceLevel{{Price: "0.55", Size: "10"}},
	}
	require.Eventually(t, func() bool {
		_, ok := c.Get("maker", "tok-2")
		return ok
	}, time.Second, 5*time.Millisecond)

	stale := &types.Book{
		Venue:      "maker",
		TokenID:    "tok-2",
		Bids:       []types.PriceLevelF{{Price: 0.10, Size: 1}},
		IngestedAt: time.Now().Add(-time.Minute),
	}
	c.ApplyRESTSnapshot(stale)

	book, ok := c.Get("maker", "tok-2")
	require.True(t, ok)
	bid, _ := book.BestBid()
	assert.InDelta(t, 0.50, bid.Price, 1e-9, "REST snapshot must not overwrite a newer WS book")
}

func TestCache_GetFresh_RespectsStaleCalcWindow(t *testing.T) {
	c, _, cancel := newTestCache(t)
	defer func() { cancel(); c.Close() }()

	old := &types.Book{
		Venue:      "maker",
		TokenID:    "tok-3",
		IngestedAt: time.Now().Add(-time.Minute),
		Source:     types.SourceREST,
	}
	c.ApplyRESTSnapshot(old)

	_, ok := c.GetFresh("maker", "tok-3", time.Now())
	assert.False(t, ok, "a minute-old book must fail the 10s calc freshness gate")
}
