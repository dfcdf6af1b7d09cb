package marketmatcher

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

type fakeVenue struct {
	role    types.VenueRole
	name    string
	markets []types.VenueMarket
}

func (f *fakeVenue) Role() types.VenueRole { return f.role }
func (f *fakeVenue) Name() string          { return f.name }
func (f *fakeVenue) ListMarkets(ctx context.Context) ([]types.VenueMarket, error) {
	return f.markets, nil
}
func (f *fakeVenue) GetOrderBook(ctx context.Context, tokenID string) (*types.Book, error) {
	return nil, nil
}
func (f *fakeVenue) ListOpenOrders(ctx context.Context) ([]types.OrderStatus, error) {
	return nil, nil
}
func (f *fakeVenue) PlaceOrder(ctx context.Context, opts types.VenueOrderOpts) (*types.OrderSubmissionResult, error) {
	return nil, nil
}
func (f *fakeVenue) CancelOrder(ctx context.Context, orderHash string) error { return nil }
func (f *fakeVenue) SubscribeBook(ctx context.Context, tokenIDs []string, out chan<- *types.BookMessage) error {
	return nil
}

func TestMatcher_MatchesByConditionID(t *testing.T) {
	maker := &fakeVenue{role: types.RoleMaker, name: "maker", markets: []types.VenueMarket{
		{ExternalID: "cond-1", Slug: "random-slug-a", Question: "Match Winner", YesTokenID: "my1", NoTokenID: "mn1", Active: true},
	}}
	hedge := &fakeVenue{role: types.RoleHedge, name: "hedge", markets: []types.VenueMarket{
		{ExternalID: "cond-1", Slug: "random-slug-b", Question: "Lakers beat Celtics?", YesTokenID: "hy1", NoTokenID: "hn1"},
	}}

	m := New(Config{Maker: maker, Hedge: hedge, PollInterval: time.Hour, Logger: zap.NewNop()})
	if err := m.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch: %v", err)
	}

	pair, ok := m.Get("cond-1")
	if !ok {
		t.Fatalf("expected a pair for cond-1")
	}
	if pair.MatchedBy != "condition_id" {
		t.Errorf("expected condition_id match, got %q", pair.MatchedBy)
	}
	if pair.Question != "Lakers beat Celtics?" {
		t.Errorf("expected generic maker title to be replaced by hedge question, got %q", pair.Question)
	}
}

func TestMatcher_FallsBackToSlugHeuristic(t *testing.T) {
	maker := &fakeVenue{role: types.RoleMaker, name: "maker", markets: []types.VenueMarket{
		{ExternalID: "maker-id-1", Slug: "nba-lakers-celtics-2026-03-05", Question: "Lakers @ Celtics", YesTokenID: "my1", NoTokenID: "mn1", Active: true},
	}}
	hedge := &fakeVenue{role: types.RoleHedge, name: "hedge", markets: []types.VenueMarket{
		{ExternalID: "cond-other", Slug: "nba-celtics-lakers-2026-03-05", Question: "Celtics vs Lakers", YesTokenID: "hy1", NoTokenID: "hn1"},
	}}

	m := New(Config{Maker: maker, Hedge: hedge, PollInterval: time.Hour, Logger: zap.NewNop()})
	if err := m.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch: %v", err)
	}

	pair, ok := m.Get("maker-id-1")
	if !ok {
		t.Fatalf("expected a pair via slug heuristic")
	}
	if pair.MatchedBy != "slug_heuristic" {
		t.Errorf("expected slug_heuristic match, got %q", pair.MatchedBy)
	}
}

func TestMatcher_SkipsInactiveMarkets(t *testing.T) {
	maker := &fakeVenue{role: types.RoleMaker, name: "maker", markets: []types.VenueMarket{
		{ExternalID: "cond-1", Slug: "a", Active: false},
	}}
	hedge := &fakeVenue{role: types.RoleHedge, name: "hedge", markets: []types.VenueMarket{
		{ExternalID: "cond-1", Slug: "b"},
	}}

	m := New(Config{Maker: maker, Hedge: hedge, PollInterval: time.Hour, Logger: zap.NewNop()})
	if err := m.Rematch(context.Background()); err != nil {
		t.Fatalf("rematch: %v", err)
	}
	if _, ok := m.Get("cond-1"); ok {
		t.Fatalf("expected inactive maker market to be skipped")
	}
}

func TestMatcher_UpdatesChannelOnlyFiresForNewPairs(t *testing.T) {
	maker := &fakeVenue{role: types.RoleMaker, name: "maker", markets: []types.VenueMarket{
		{ExternalID: "cond-1", Slug: "a", Active: true},
	}}
	hedge := &fakeVenue{role: types.RoleHedge, name: "hedge", markets: []types.VenueMarket{
		{ExternalID: "cond-1", Slug: "b"},
	}}

	m := New(Config{Maker: maker, Hedge: hedge, PollInterval: time.Hour, Logger: zap.NewNop()})
	ctx := context.Background()
	if err := m.Rematch(ctx); err != nil {
		t.Fatalf("rematch: %v", err)
	}
	select {
	case <-m.Updates():
	default:
		t.Fatalf("expected an update on first match")
	}

	if err := m.Rematch(ctx); err != nil {
		t.Fatalf("rematch: %v", err)
	}
	select {
	case <-m.Updates():
		t.Fatalf("did not expect a second update for an already-matched pair")
	default:
	}
}
