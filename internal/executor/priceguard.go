package executor

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

const priceGuardInterval = 500 * time.Millisecond

// runPriceGuard watches the hedge venue's opposite-side price against the
// task's limit while an order is resting, and watches for that price to
// become safe again once paused.
func (e *Executor) runPriceGuard(ctx context.Context, tc *taskState, pair *types.MarketPair) {
	ticker := time.NewTicker(priceGuardInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.checkHedgePriceGuard(ctx, tc, pair)
		}
	}
}

// checkHedgePriceGuard cancels the resting maker order and pauses the task
// when the hedge venue's opposite-side price has moved past the task's
// limit: hedgeAsk > HedgeMaxAsk for a BUY, hedgeBid < HedgeMinBid for a
// SELL — the price the eventual hedge IOC would have to cross. While the
// task is already paused, this instead drives the recovery check.
func (e *Executor) checkHedgePriceGuard(ctx context.Context, tc *taskState, pair *types.MarketPair) {
	task, err := e.store.Get(tc.id)
	if err != nil || task.Status.IsTerminal() {
		return
	}
	if task.Status == types.StatusPaused {
		e.tryResumeMaker(ctx, tc, pair)
		return
	}
	if task.CurrentOrderHash == "" || task.CurrentOrderHash != tc.currentOrderHash() {
		return
	}

	book, ok := e.hedgeBooks.GetFresh("hedge", pair.HedgeToken(complementOf(task.ArbSide)), time.Now())
	if !ok || hedgeSafe(task, book) {
		return
	}

	e.triggerPriceGuard(ctx, tc, pair, task)
}

// triggerPriceGuard cancels the resting maker order and pauses (or, past
// MAX_PAUSE_COUNT, fails) the task in response to an adverse hedge-side
// price move.
func (e *Executor) triggerPriceGuard(ctx context.Context, tc *taskState, pair *types.MarketPair, task *types.Task) {
	if !tc.tryBeginSubmit() {
		return
	}
	defer tc.endSubmit()

	if err := e.makerVenue.CancelOrder(ctx, task.CurrentOrderHash); err != nil {
		e.logger.Warn("executor-priceguard-cancel-failed", zap.String("task-id", tc.id), zap.Error(err))
	}
	e.recordCancelBaseline(ctx, tc)
	e.logger.Warn("PRICE_GUARD_TRIGGERED", zap.String("task-id", tc.id))

	if _, err := e.pauseOrEscalate(ctx, tc.id, "price_guard", "price guard: hedge price breached limit"); err != nil {
		e.logger.Error("executor-priceguard-patch-failed", zap.String("task-id", tc.id), zap.Error(err))
		return
	}

	e.scheduleDelayedSettlement(tc.id, pair)
}

// recordCancelBaseline snapshots the merged-fill baseline and the cancel
// time on the taskState. The delayed-settlement probes (delayedsettlement.go)
// do not read this snapshot; they compare the venue's reported fill with
// the task's stored HedgedQty and RemainingQty.
func (e *Executor) recordCancelBaseline(ctx context.Context, tc *taskState) {
	tc.mu.Lock()
	tc.cancelledAt = time.Now()
	tc.cancelBaseline = tc.baseFilledBeforeOrder + math.Max(tc.restFilled, tc.wssFilled)
	tc.mu.Unlock()
}
