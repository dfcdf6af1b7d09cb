package executor

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

const (
	depthGuardInterval = time.Second
	depthGuardCooldown = 10 * time.Second
)

// runDepthGuard keeps the resting maker order's size bounded by how much
// hedge-venue depth actually backs it within the task's price limit: it
// shrinks the order when depth falls short of the remaining quantity and
// expands it back toward totalQuantity once depth recovers.
func (e *Executor) runDepthGuard(ctx context.Context, tc *taskState, pair *types.MarketPair) {
	ticker := time.NewTicker(depthGuardInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.checkDepthGuard(ctx, tc, pair)
		}
	}
}

func (e *Executor) checkDepthGuard(ctx context.Context, tc *taskState, pair *types.MarketPair) {
	task, err := e.store.Get(tc.id)
	if err != nil || task.Status.IsTerminal() || task.Status == types.StatusPaused {
		return
	}
	if task.CurrentOrderHash == "" || task.CurrentOrderHash != tc.currentOrderHash() {
		return
	}

	book, ok := e.hedgeBooks.GetFresh("hedge", pair.HedgeToken(complementOf(task.ArbSide)), time.Now())
	if !ok {
		// Depth read failed or is stale: skip this tick rather than treat it
		// as zero depth.
		return
	}
	depth := sumDepthWithinCap(book, task)

	remaining := task.Quantity - task.PredictFilledQty
	if depth < remaining {
		e.shrinkForDepth(ctx, tc, pair, task, depth)
		return
	}
	e.expandForDepth(ctx, tc, pair, task, depth)
}

// shrinkForDepth cancels and resubmits the resting order sized down to
// filled + floor(depth), the largest size the hedge venue can actually
// cover within the task's price limit. If that leaves nothing to rest, the
// order is cancelled without a resubmit.
func (e *Executor) shrinkForDepth(ctx context.Context, tc *taskState, pair *types.MarketPair, task *types.Task, depth float64) {
	newQuantity := task.PredictFilledQty + math.Floor(depth)
	if newQuantity >= task.Quantity-1e-9 {
		return
	}

	if !tc.tryBeginSubmit() {
		return
	}
	defer tc.endSubmit()

	if err := e.makerVenue.CancelOrder(ctx, task.CurrentOrderHash); err != nil {
		e.logger.Warn("executor-depthguard-cancel-failed", zap.String("task-id", tc.id), zap.Error(err))
		return
	}
	e.recordCancelBaseline(ctx, tc)
	tc.markDepthAdjust(time.Now())

	remainder := newQuantity - task.PredictFilledQty
	if remainder <= 1e-9 {
		tc.setCurrentOrderHash("")
		DepthGuardShrinksTotal.Inc()
		_, _ = e.store.Patch(ctx, tc.id, func(t *types.Task) {
			t.Quantity = task.PredictFilledQty
			t.CurrentOrderHash = ""
		})
		e.scheduleDelayedSettlement(tc.id, pair)
		return
	}

	result, err := e.makerVenue.PlaceOrder(ctx, types.VenueOrderOpts{
		TokenID:   pair.MakerToken(task.ArbSide),
		Side:      task.ArbSide,
		Direction: direction(task.Type),
		Price:     task.PredictPrice,
		Size:      remainder,
		TickSize:  pair.TickSize,
		TIF:       types.TIFGTC,
		NegRisk:   pair.NegRisk,
	})
	if err != nil {
		OrderSubmitErrorsTotal.WithLabelValues("maker").Inc()
		e.logger.Warn("executor-depthguard-resubmit-failed", zap.String("task-id", tc.id), zap.Error(err))
		return
	}

	tc.setCurrentOrderHash(result.OrderHash)
	tc.resetForNewOrder(task.PredictFilledQty)
	DepthGuardShrinksTotal.Inc()

	_, _ = e.store.Patch(ctx, tc.id, func(t *types.Task) {
		t.Quantity = newQuantity
		t.CurrentOrderHash = result.OrderHash
	})

	e.scheduleDelayedSettlement(tc.id, pair)
}

// expandForDepth grows the resting order back toward totalQuantity once
// hedge-venue depth recovers, gated by depthGuardCooldown so it doesn't
// oscillate with shrinkForDepth on a flickering book.
func (e *Executor) expandForDepth(ctx context.Context, tc *taskState, pair *types.MarketPair, task *types.Task, depth float64) {
	if task.Quantity >= task.TotalQuantity-1e-9 {
		return
	}
	if !tc.depthCooldownElapsed(depthGuardCooldown) {
		return
	}

	headroom := task.TotalQuantity - task.Quantity
	slack := depth - (task.Quantity - task.PredictFilledQty)
	grow := math.Min(headroom, slack)
	if grow <= 1e-9 {
		return
	}
	newQuantity := math.Min(task.Quantity+grow, task.TotalQuantity)

	if !tc.tryBeginSubmit() {
		return
	}
	defer tc.endSubmit()

	if task.CurrentOrderHash != "" {
		if err := e.makerVenue.CancelOrder(ctx, task.CurrentOrderHash); err != nil {
			e.logger.Warn("executor-depthguard-expand-cancel-failed", zap.String("task-id", tc.id), zap.Error(err))
			return
		}
		e.recordCancelBaseline(ctx, tc)
	}
	tc.markDepthAdjust(time.Now())

	result, err := e.makerVenue.PlaceOrder(ctx, types.VenueOrderOpts{
		TokenID:   pair.MakerToken(task.ArbSide),
		Side:      task.ArbSide,
		Direction: direction(task.Type),
		Price:     task.PredictPrice,
		Size:      newQuantity - task.PredictFilledQty,
		TickSize:  pair.TickSize,
		TIF:       types.TIFGTC,
		NegRisk:   pair.NegRisk,
	})
	if err != nil {
		OrderSubmitErrorsTotal.WithLabelValues("maker").Inc()
		e.logger.Warn("executor-depthguard-expand-resubmit-failed", zap.String("task-id", tc.id), zap.Error(err))
		return
	}

	tc.setCurrentOrderHash(result.OrderHash)
	tc.resetForNewOrder(task.PredictFilledQty)
	DepthGuardExpandsTotal.Inc()

	_, _ = e.store.Patch(ctx, tc.id, func(t *types.Task) {
		t.Quantity = newQuantity
		t.CurrentOrderHash = result.OrderHash
	})
}
