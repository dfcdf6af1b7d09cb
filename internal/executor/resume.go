package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// tryResumeMaker resubmits a paused task's maker leg once conditions are
// safe again: the hedge venue's opposite-side price is back within the
// task's limit, the hedge venue holds enough depth within that limit to
// cover the remaining quantity, and the maker-side quote would still rest
// safely. Ghost-depth pauses are excluded from automatic recovery — that
// pause source calls for a human decision, not a guard retry.
func (e *Executor) tryResumeMaker(ctx context.Context, tc *taskState, pair *types.MarketPair) {
	task, err := e.store.Get(tc.id)
	if err != nil || task.Status != types.StatusPaused || task.PhantomDepth {
		return
	}
	remaining := task.Quantity - task.PredictFilledQty
	if remaining <= 1e-9 {
		return
	}

	hedgeBook, ok := e.hedgeBooks.GetFresh("hedge", pair.HedgeToken(complementOf(task.ArbSide)), time.Now())
	if !ok || !hedgeSafe(task, hedgeBook) {
		return
	}
	if sumDepthWithinCap(hedgeBook, task) < remaining {
		return
	}

	makerBook, ok := e.makerBooks.GetFresh("maker", pair.MakerToken(task.ArbSide), time.Now())
	if !ok || !makerQuoteSafe(task, makerBook) {
		return
	}

	if !tc.tryBeginSubmit() {
		return
	}
	defer tc.endSubmit()

	result, err := e.makerVenue.PlaceOrder(ctx, types.VenueOrderOpts{
		TokenID:   pair.MakerToken(task.ArbSide),
		Side:      task.ArbSide,
		Direction: direction(task.Type),
		Price:     task.PredictPrice,
		Size:      remaining,
		TickSize:  pair.TickSize,
		TIF:       types.TIFGTC,
		NegRisk:   pair.NegRisk,
	})
	if err != nil {
		OrderSubmitErrorsTotal.WithLabelValues("maker").Inc()
		e.logger.Warn("executor-resume-submit-failed", zap.String("task-id", tc.id), zap.Error(err))
		return
	}

	tc.setCurrentOrderHash(result.OrderHash)
	tc.resetForNewOrder(task.PredictFilledQty)
	PriceGuardResubmitsTotal.Inc()

	_, _ = e.store.Patch(ctx, tc.id, func(t *types.Task) {
		t.Status = types.StatusPredictSubmitted
		t.CurrentOrderHash = result.OrderHash
	})
}

// hedgeSafe reports whether the hedge venue's opposite-side top of book is
// within the task's price limit: BUY requires hedgeAsk <= HedgeMaxAsk, SELL
// requires hedgeBid >= HedgeMinBid.
func hedgeSafe(task *types.Task, book *types.Book) bool {
	if task.Type == types.TaskBuy {
		ask, ok := book.BestAsk()
		return ok && ask.Price <= task.HedgeMaxAsk
	}
	bid, ok := book.BestBid()
	return ok && bid.Price >= task.HedgeMinBid
}

// makerQuoteSafe reports whether resting at the task's recorded predict
// price is still a valid maker quote: a BUY must rest below the best ask, a
// SELL must rest above the best bid.
func makerQuoteSafe(task *types.Task, book *types.Book) bool {
	if task.Type == types.TaskBuy {
		ask, ok := book.BestAsk()
		return ok && task.PredictPrice < ask.Price
	}
	bid, ok := book.BestBid()
	return ok && task.PredictPrice > bid.Price
}

// sumDepthWithinCap sums hedge-book depth on the task's hedge side up to
// and including its price limit: asks at price <= HedgeMaxAsk for BUY, bids
// at price >= HedgeMinBid for SELL. Levels are pre-sorted best-price-first,
// so the sum stops at the first level past the cap.
func sumDepthWithinCap(book *types.Book, task *types.Task) float64 {
	var sum float64
	if task.Type == types.TaskBuy {
		for _, lvl := range book.Asks {
			if lvl.Price > task.HedgeMaxAsk {
				break
			}
			sum += lvl.Size
		}
		return sum
	}
	for _, lvl := range book.Bids {
		if lvl.Price < task.HedgeMinBid {
			break
		}
		sum += lvl.Size
	}
	return sum
}
