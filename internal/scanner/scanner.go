// Package scanner generalizes internal/arbitrage.Detector's approach: same
// event-driven shape (update channel, per-market throttle, active-set
// tracking, isNew tagging, 5-minute eviction, Prometheus histograms), but
// computes a four-tuple (side, strategy) — MAKER/TAKER x YES/NO — against a
// matched cross-venue market pair instead of a single-venue N-outcome
// ask-sum check.
//
// The scanner only ever emits entry ("BUY combo") opportunities: buying the
// cheap leg on the maker venue and immediately completing the complementary
// leg on the hedge venue for a combined cost below $1. Unwinding an already
// open position is an operator-driven action handled by the executor, never
// something the scanner rediscovers as a "SELL combo" opportunity.
package scanner

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/marketmatcher"
	"github.com/mselser95/polymarket-arb/internal/orderbookcache"
	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

const consistencyEpsilon = 1e-4

const recomputeThrottle = 50 * time.Millisecond

const evictionWindow = 5 * time.Minute

// Scanner computes cross-venue arbitrage opportunities for every matched
// market pair, driven by order-book update events.
type Scanner struct {
	matcher    *marketmatcher.Matcher
	makerCache *orderbookcache.Cache
	hedgeCache *orderbookcache.Cache
	makerVenue venue.Client
	hedgeVenue venue.Client

	staleCalc time.Duration
	logger    *zap.Logger

	mu       sync.RWMutex
	opps     map[string]*types.Opportunity
	active   map[string]bool
	lastScan map[string]time.Time // per maker-market-id throttle

	updates chan *types.Opportunity
}

// Config configures a Scanner.
type Config struct {
	Matcher    *marketmatcher.Matcher
	MakerCache *orderbookcache.Cache
	HedgeCache *orderbookcache.Cache
	MakerVenue venue.Client
	HedgeVenue venue.Client
	StaleCalc  time.Duration
	Logger     *zap.Logger
}

// New builds a Scanner.
func New(cfg Config) *Scanner {
	return &Scanner{
		matcher:    cfg.Matcher,
		makerCache: cfg.MakerCache,
		hedgeCache: cfg.HedgeCache,
		makerVenue: cfg.MakerVenue,
		hedgeVenue: cfg.HedgeVenue,
		staleCalc:  cfg.StaleCalc,
		logger:     cfg.Logger,
		opps:       make(map[string]*types.Opportunity),
		active:     make(map[string]bool),
		lastScan:   make(map[string]time.Time),
		updates:    make(chan *types.Opportunity, 4096),
	}
}

// Run performs the initial REST-fanned-out scan of every matched pair, then
// switches to WS-driven per-market recompute triggered by book updates
//.
func (s *Scanner) Run(ctx context.Context) error {
	s.prewarmAll(ctx)

	makerUpdates := s.makerCache.Subscribe()
	hedgeUpdates := s.hedgeCache.Subscribe()
	matcherUpdates := s.matcher.Updates()

	evictTicker := time.NewTicker(time.Minute)
	defer evictTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(s.updates)
			return ctx.Err()
		case book, ok := <-makerUpdates:
			if !ok {
				makerUpdates = nil
				continue
			}
			s.onBookUpdate("maker", book.TokenID)
		case book, ok := <-hedgeUpdates:
			if !ok {
				hedgeUpdates = nil
				continue
			}
			s.onBookUpdate("hedge", book.TokenID)
		case pair, ok := <-matcherUpdates:
			if !ok {
				matcherUpdates = nil
				continue
			}
			s.recompute(pair)
		case <-evictTicker.C:
			s.evictStale(time.Now())
		}
	}
}

// prewarmAll pulls every matched pair's book via REST concurrently, the
// first-scan behavior of
func (s *Scanner) prewarmAll(ctx context.Context) {
	pairs := s.matcher.Pairs()
	var wg sync.WaitGroup
	for _, p := range pairs {
		p := p
		for _, tok := range []struct {
			client venue.Client
			cache  *orderbookcache.Cache
			token  string
		}{
			{s.makerVenue, s.makerCache, p.MakerYesToken},
			{s.makerVenue, s.makerCache, p.MakerNoToken},
			{s.hedgeVenue, s.hedgeCache, p.HedgeYesToken},
			{s.hedgeVenue, s.hedgeCache, p.HedgeNoToken},
		} {
			if tok.token == "" {
				continue
			}
			wg.Add(1)
			go func(client venue.Client, cache *orderbookcache.Cache, token string) {
				defer wg.Done()
				book, err := client.GetOrderBook(ctx, token)
				if err != nil {
					PrewarmErrorsTotal.WithLabelValues(client.Name()).Inc()
					s.logger.Debug("scanner-prewarm-failed", zap.String("token", token), zap.Error(err))
					return
				}
				cache.ApplyRESTSnapshot(book)
			}(tok.client, tok.cache, tok.token)
		}
		s.recompute(p)
	}
	wg.Wait()
}

// onBookUpdate finds the matched pair owning this token and, subject to the
// per-market throttle, recomputes its opportunities.
func (s *Scanner) onBookUpdate(venueName, tokenID string) {
	for _, p := range s.matcher.Pairs() {
		if !pairOwnsToken(p, venueName, tokenID) {
			continue
		}

		s.mu.Lock()
		last, ok := s.lastScan[p.MakerMarketID]
		if ok && time.Since(last) < recomputeThrottle {
			s.mu.Unlock()
			continue
		}
		s.lastScan[p.MakerMarketID] = time.Now()
		s.mu.Unlock()

		s.recompute(p)
	}
}

func pairOwnsToken(p *types.MarketPair, venueName, tokenID string) bool {
	switch venueName {
	case "maker":
		return tokenID == p.MakerYesToken || tokenID == p.MakerNoToken
	case "hedge":
		return tokenID == p.HedgeYesToken || tokenID == p.HedgeNoToken
	}
	return false
}

func complementOf(side types.Side) types.Side {
	if side == types.SideYES {
		return types.SideNO
	}
	return types.SideYES
}

// recompute computes both strategies for both sides of one pair and
// replaces the scanner's cached opportunities for that market.
func (s *Scanner) recompute(pair *types.MarketPair) {
	start := time.Now()
	defer func() { RecomputeDurationSeconds.Observe(time.Since(start).Seconds()) }()

	now := time.Now()
	candidates := make(map[types.Strategy]map[types.Side]*types.Opportunity, 2)

	for _, strategy := range []types.Strategy{types.StrategyMaker, types.StrategyTaker} {
		candidates[strategy] = make(map[types.Side]*types.Opportunity)
		for _, side := range []types.Side{types.SideYES, types.SideNO} {
			opp := s.computeOne(pair, side, strategy, now)
			if opp != nil {
				candidates[strategy][side] = opp
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	anyActive := false
	for strategy, bySide := range candidates {
		yes, hasYes := bySide[types.SideYES]
		no, hasNo := bySide[types.SideNO]

		if hasYes && hasNo {
			sum := (yes.PredictPrice + yes.HedgePrice) + (no.PredictPrice + no.HedgePrice)
			if sum < 1-consistencyEpsilon {
				InconsistentPairsTotal.WithLabelValues(string(strategy)).Inc()
				s.logger.Warn("scanner-inconsistent-pair-suppressed",
					zap.String("market-id", pair.MakerMarketID),
					zap.String("strategy", string(strategy)),
					zap.Float64("cost-sum", sum))
				s.removeOpp(yes.Key())
				s.removeOpp(no.Key())
				continue
			}
		}

		for _, opp := range bySide {
			s.upsertOpp(opp)
			anyActive = true
		}
	}

	wasActive := s.active[pair.MakerMarketID]
	s.active[pair.MakerMarketID] = anyActive
	if anyActive && !wasActive {
		s.logger.Info("scanner-market-activated", zap.String("market-id", pair.MakerMarketID))
	}
}

func (s *Scanner) computeOne(pair *types.MarketPair, side types.Side, strategy types.Strategy, now time.Time) *types.Opportunity {
	makerTok := pair.MakerToken(side)
	hedgeTok := pair.HedgeToken(complementOf(side))
	if makerTok == "" || hedgeTok == "" {
		return nil
	}

	makerBook, ok := s.makerCache.GetFresh("maker", makerTok, now)
	if !ok {
		return nil
	}
	hedgeBook, ok := s.hedgeCache.GetFresh("hedge", hedgeTok, now)
	if !ok {
		return nil
	}

	var predict, hedge types.PriceLevelF
	switch strategy {
	case types.StrategyMaker:
		predict, ok = makerBook.BestBid()
	case types.StrategyTaker:
		predict, ok = makerBook.BestAsk()
	}
	if !ok || predict.Price <= 0 || predict.Size <= 0 {
		return nil
	}

	hedge, ok = hedgeBook.BestAsk()
	if !ok || hedge.Price <= 0 || hedge.Size <= 0 {
		return nil
	}

	predictCost := predict.Price
	if strategy == types.StrategyTaker && pair.FeeRateBps > 0 {
		predictCost = predict.Price * (1 + float64(pair.FeeRateBps)/10000)
	}

	totalCost := predictCost + hedge.Price
	if totalCost >= 1 {
		OpportunitiesRejectedTotal.WithLabelValues("cost_above_one").Inc()
		return nil
	}

	qty := math.Min(predict.Size, hedge.Size)

	key := pair.MakerMarketID + "|" + string(side) + "|" + string(strategy) + "|" + string(types.OppBuy)
	existing, hadPrior := s.opps[key]

	opp := &types.Opportunity{
		MarketID:     pair.MakerMarketID,
		ArbSide:      side,
		Strategy:     strategy,
		Type:         types.OppBuy,
		PredictPrice: predictCost,
		HedgePrice:   hedge.Price,
		SpreadBps:    int(math.Round((1 - totalCost) * 10000)),
		MaxQty:       qty,
		LastSeen:     now,
		ComputedAt:   now,
	}
	if hadPrior {
		opp.FirstSeen = existing.FirstSeen
		opp.IsNew = false
	} else {
		opp.FirstSeen = now
		opp.IsNew = true
	}

	OpportunitiesComputedTotal.WithLabelValues(string(strategy), string(side)).Inc()
	SpreadBpsObserved.WithLabelValues(string(strategy)).Observe(float64(opp.SpreadBps))

	return opp
}

// upsertOpp must be called with s.mu held.
func (s *Scanner) upsertOpp(opp *types.Opportunity) {
	s.opps[opp.Key()] = opp
	select {
	case s.updates <- opp:
	default:
		UpdatesDroppedTotal.Inc()
	}
}

// removeOpp must be called with s.mu held.
func (s *Scanner) removeOpp(key string) {
	delete(s.opps, key)
}

// evictStale drops opportunities that have gone 5 minutes without a refresh
// and rebuilds the active-market set.
func (s *Scanner) evictStale(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stillActive := make(map[string]bool, len(s.active))
	for key, opp := range s.opps {
		if opp.Stale(now, evictionWindow) {
			delete(s.opps, key)
			OpportunitiesEvictedTotal.Inc()
			continue
		}
		stillActive[opp.MarketID] = true
	}
	s.active = stillActive
	OpportunitiesTracked.Set(float64(len(s.opps)))
}

// Opportunities returns a snapshot of all currently tracked opportunities.
func (s *Scanner) Opportunities() []*types.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Opportunity, 0, len(s.opps))
	for _, o := range s.opps {
		cp := *o
		out = append(out, &cp)
	}
	return out
}

// Updates returns a channel of opportunity updates (new or refreshed).
func (s *Scanner) Updates() <-chan *types.Opportunity {
	return s.updates
}
