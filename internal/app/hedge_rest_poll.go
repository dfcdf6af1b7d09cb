package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/marketmatcher"
	"github.com/mselser95/polymarket-arb/internal/orderbookcache"
	"github.com/mselser95/polymarket-arb/internal/venue"
)

// restPoller periodically fetches REST order-book snapshots for the hedge
// venue's half of every matched pair and installs them into the hedge
// cache, used when HEDGE_ORDERBOOK_SOURCE=rest trades streaming freshness
// for not needing a hedge-venue websocket subscription. Grounded on
// internal/scanner's prewarmAll concurrent-fetch shape, generalized from a
// one-shot warm-up into a recurring poll.
type restPoller struct {
	matcher *marketmatcher.Matcher
	hedge   venue.Client
	cache   *orderbookcache.Cache
	period  time.Duration
	logger  *zap.Logger
}

func newRESTPoller(matcher *marketmatcher.Matcher, hedge venue.Client, cache *orderbookcache.Cache, period time.Duration, logger *zap.Logger) *restPoller {
	return &restPoller{matcher: matcher, hedge: hedge, cache: cache, period: period, logger: logger}
}

func (p *restPoller) Run(ctx context.Context) error {
	p.pollOnce(ctx)

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *restPoller) pollOnce(ctx context.Context) {
	pairs := p.matcher.Pairs()

	var wg sync.WaitGroup
	for _, pair := range pairs {
		for _, tokenID := range []string{pair.HedgeYesToken, pair.HedgeNoToken} {
			tokenID := tokenID
			if tokenID == "" {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				book, err := p.hedge.GetOrderBook(ctx, tokenID)
				if err != nil {
					p.logger.Warn("hedge-rest-poll-failed", zap.String("token-id", tokenID), zap.Error(err))
					return
				}
				p.cache.ApplyRESTSnapshot(book)
			}()
		}
	}
	wg.Wait()
}
