// Package marketmatcher generalizes internal/discovery's poll-loop
// (subscribed-map, ticker-driven refresh) into a two-sided matcher: it
// polls both venues' market lists and pairs markets by conditionId, then
// slug heuristic, then generic slug pattern.
package marketmatcher

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Matcher periodically rematches maker and hedge venue market catalogues.
type Matcher struct {
	maker venue.Client
	hedge venue.Client

	pollInterval time.Duration
	pairFilter   string
	logger       *zap.Logger

	mu      sync.RWMutex
	pairs   map[string]*types.MarketPair // keyed by MakerMarketID
	updates chan *types.MarketPair
}

// Config configures a Matcher.
type Config struct {
	Maker        venue.Client
	Hedge        venue.Client
	PollInterval time.Duration
	// PairFilter restricts matching to maker markets whose slug contains
	// this substring. Empty means no filtering.
	PairFilter string
	Logger     *zap.Logger
}

// New builds a Matcher that has not yet run its first match pass.
func New(cfg Config) *Matcher {
	return &Matcher{
		maker:        cfg.Maker,
		hedge:        cfg.Hedge,
		pollInterval: cfg.PollInterval,
		pairFilter:   cfg.PairFilter,
		logger:       cfg.Logger,
		pairs:        make(map[string]*types.MarketPair),
		updates:      make(chan *types.MarketPair, 256),
	}
}

// Run polls and rematches on a fixed interval until ctx is cancelled.
func (m *Matcher) Run(ctx context.Context) error {
	m.logger.Info("marketmatcher-starting", zap.Duration("poll-interval", m.pollInterval))

	if err := m.Rematch(ctx); err != nil {
		m.logger.Error("marketmatcher-initial-rematch-failed", zap.Error(err))
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(m.updates)
			return ctx.Err()
		case <-ticker.C:
			if err := m.Rematch(ctx); err != nil {
				m.logger.Error("marketmatcher-rematch-failed", zap.Error(err))
			}
		}
	}
}

// Rematch fetches both venues' market catalogues and recomputes pairs.
// Safe to call concurrently with Run (e.g. on-demand rematch from an API
// handler).
func (m *Matcher) Rematch(ctx context.Context) error {
	start := time.Now()
	defer func() { RematchDurationSeconds.Observe(time.Since(start).Seconds()) }()

	makerMarkets, err := m.maker.ListMarkets(ctx)
	if err != nil {
		RematchErrorsTotal.WithLabelValues("maker").Inc()
		return err
	}
	hedgeMarkets, err := m.hedge.ListMarkets(ctx)
	if err != nil {
		RematchErrorsTotal.WithLabelValues("hedge").Inc()
		return err
	}

	hedgeByCondID := make(map[string]types.VenueMarket, len(hedgeMarkets))
	for _, hm := range hedgeMarkets {
		hedgeByCondID[hm.ExternalID] = hm
	}

	newPairs := make(map[string]*types.MarketPair, len(makerMarkets))

	for _, mm := range makerMarkets {
		if !mm.Active || mm.Closed {
			continue
		}
		if m.pairFilter != "" && !strings.Contains(mm.Slug, m.pairFilter) {
			continue
		}

		pair, matchedBy := m.matchOne(mm, hedgeMarkets, hedgeByCondID)
		if pair == nil {
			continue
		}
		pair.MatchedBy = matchedBy
		pair.MatchedAt = time.Now()
		newPairs[mm.ExternalID] = pair
		MatchesByMethodTotal.WithLabelValues(matchedBy).Inc()
	}

	m.mu.Lock()
	prev := m.pairs
	m.pairs = newPairs
	m.mu.Unlock()

	PairsTracked.Set(float64(len(newPairs)))

	for id, p := range newPairs {
		if _, existed := prev[id]; !existed {
			select {
			case m.updates <- p:
			default:
				m.logger.Warn("marketmatcher-updates-channel-full", zap.String("market-id", id))
			}
		}
	}

	return nil
}

func (m *Matcher) matchOne(mm types.VenueMarket, hedgeMarkets []types.VenueMarket, hedgeByCondID map[string]types.VenueMarket) (*types.MarketPair, string) {
	if hm, ok := hedgeByCondID[mm.ExternalID]; ok {
		return m.buildPair(mm, hm), "condition_id"
	}

	for _, hm := range hedgeMarkets {
		if slugHeuristicMatch(mm.Slug, hm.Slug) {
			return m.buildPair(mm, hm), "slug_heuristic"
		}
	}

	for _, hm := range hedgeMarkets {
		if genericSlugMatch(mm.Slug, hm.Slug) {
			return m.buildPair(mm, hm), "generic_slug"
		}
	}

	return nil, ""
}

func (m *Matcher) buildPair(mm, hm types.VenueMarket) *types.MarketPair {
	question := mm.Question
	if genericTitle(question) {
		question = hm.Question
	}

	var settlement *time.Time
	if !mm.EndDate.IsZero() {
		t := mm.EndDate
		settlement = &t
	}

	return &types.MarketPair{
		MakerMarketID: mm.ExternalID,
		HedgeCondID:   hm.ExternalID,
		MakerYesToken: mm.YesTokenID,
		MakerNoToken:  mm.NoTokenID,
		HedgeYesToken: hm.YesTokenID,
		HedgeNoToken:  hm.NoTokenID,
		FeeRateBps:    mm.FeeRateBps,
		TickSize:      mm.TickSize,
		Inverted:      false,
		NegRisk:       mm.NegRisk || hm.NegRisk,
		SettlementDate: settlement,
		Question:      question,
	}
}

// Pairs returns a snapshot of all currently matched pairs.
func (m *Matcher) Pairs() []*types.MarketPair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.MarketPair, 0, len(m.pairs))
	for _, p := range m.pairs {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// Get returns the pair for a given maker market id, if matched.
func (m *Matcher) Get(makerMarketID string) (*types.MarketPair, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pairs[makerMarketID]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

// Updates returns a channel of newly-matched pairs.
func (m *Matcher) Updates() <-chan *types.MarketPair {
	return m.updates
}
