package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// runHedge drains the pending hedge batch with a single IOC order on the
// hedge venue, retrying on ghost depth (visible size but zero fill) with
// backoff 500ms*n capped at 2s. Only one hedge IOC is ever in
// flight per task; callers may invoke this concurrently and the mutex
// serializes them.
func (e *Executor) runHedge(ctx context.Context, tc *taskState, taskID string, pair *types.MarketPair) {
	tc.hedgeMu.Lock()
	defer tc.hedgeMu.Unlock()

	tc.mu.Lock()
	qty := tc.pendingHedge.Qty
	tc.mu.Unlock()
	if qty <= 1e-9 {
		return
	}

	task, err := e.store.Get(taskID)
	if err != nil {
		return
	}

	hedgeSide := complementOf(task.ArbSide)
	hedgeToken := pair.HedgeToken(hedgeSide)
	priceCap := hedgeCap(task)

	ghostDepth := false

	for attempt := 1; attempt <= maxHedgeRetries; attempt++ {
		if ctx.Err() != nil {
			return
		}

		result, err := e.hedgeVenue.PlaceOrder(ctx, types.VenueOrderOpts{
			TokenID:   hedgeToken,
			Side:      hedgeSide,
			Direction: direction(task.Type),
			Price:     priceCap,
			Size:      qty,
			TickSize:  pair.TickSize,
			TIF:       types.TIFIOC,
			NegRisk:   pair.NegRisk,
		})
		if err != nil {
			ghostDepth = false
			OrderSubmitErrorsTotal.WithLabelValues("hedge").Inc()
			e.logger.Warn("executor-hedge-submit-failed", zap.String("task-id", taskID), zap.Error(err))
			e.backoffSleep(ctx, attempt)
			continue
		}

		if result.FilledQty <= 1e-9 {
			// Ghost depth: book showed size but the IOC matched nothing.
			ghostDepth = true
			GhostDepthTotal.Inc()
			_, _ = e.store.Patch(ctx, taskID, func(t *types.Task) {
				t.PhantomDepth = true
				t.HedgeRetryCount++
			})
			e.backoffSleep(ctx, attempt)
			continue
		}

		tc.mu.Lock()
		tc.pendingHedge.Qty -= result.FilledQty
		if tc.pendingHedge.Qty < 0 {
			tc.pendingHedge.Qty = 0
		}
		remaining := tc.pendingHedge.Qty
		if remaining <= 1e-9 {
			tc.pendingHedge.Reset()
		}
		tc.mu.Unlock()

		HedgeFillsTotal.Inc()
		newTask, patchErr := e.store.Patch(ctx, taskID, func(t *types.Task) {
			t.AvgHedgePrice = blendAvgPrice(t.AvgHedgePrice, t.HedgedQty, result.FilledQty, result.FilledQty)
			t.HedgedQty += result.FilledQty
			t.RemainingQty = t.PredictFilledQty - t.HedgedQty
			t.PhantomDepth = false
			t.HedgeRetryCount = 0
			if t.Status != types.StatusCompleted {
				t.Status = types.StatusHedging
			}
		})
		if patchErr != nil {
			e.logger.Error("executor-hedge-patch-failed", zap.String("task-id", taskID), zap.Error(patchErr))
			return
		}

		if remaining > 1e-9 {
			qty = remaining
			continue
		}

		if newTask.PredictFilledQty >= newTask.Quantity-1e-9 {
			e.completeTask(ctx, taskID)
		}
		return
	}

	// Retries exhausted.
	unhedged := qty
	if unhedged < e.minHedgeQty {
		return
	}
	if ghostDepth {
		e.pauseForGhostDepth(ctx, taskID)
		return
	}
	e.failHedge(ctx, taskID)
}

// failHedge is the non-ghost-depth terminal path: hedge retries exhausted
// against real order-submission errors with unhedged exposure remaining
// above the dust threshold. No automatic unwind is attempted.
func (e *Executor) failHedge(ctx context.Context, taskID string) {
	_, err := e.store.Patch(ctx, taskID, func(t *types.Task) {
		t.Status = types.StatusHedgeFailed
	})
	if err != nil {
		e.logger.Error("executor-fail-hedge-patch-failed", zap.String("task-id", taskID), zap.Error(err))
		return
	}
	HedgeFailedTotal.Inc()
}

// hedgeCap returns the price limit the hedge leg will accept: HedgeMinBid
// for a SELL task, HedgeMaxAsk otherwise. emergencyHedge adds
// emergencyTolerance on top of it for delayed-settlement hedges.
func hedgeCap(task *types.Task) float64 {
	if task.Type == types.TaskSell {
		return task.HedgeMinBid
	}
	return task.HedgeMaxAsk
}

func (e *Executor) backoffSleep(ctx context.Context, attempt int) {
	d := time.Duration(attempt) * hedgeBackoffUnit
	if d > hedgeBackoffCap {
		d = hedgeBackoffCap
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// pauseForGhostDepth cancels the maker order and marks the task PAUSED when
// hedge retries are exhausted against persistent ghost depth: the maker leg
// stops accumulating further unhedged exposure while a human decides
// whether to resume or cancel.
func (e *Executor) pauseForGhostDepth(ctx context.Context, taskID string) {
	task, err := e.store.Get(taskID)
	if err != nil {
		return
	}
	if task.CurrentOrderHash != "" {
		if err := e.makerVenue.CancelOrder(ctx, task.CurrentOrderHash); err != nil {
			e.logger.Warn("executor-pause-cancel-failed", zap.String("task-id", taskID), zap.Error(err))
		}
	}
	if _, err := e.pauseOrEscalate(ctx, taskID, "ghost_depth", "ghost depth"); err != nil {
		e.logger.Error("executor-pause-ghost-depth-patch-failed", zap.String("task-id", taskID), zap.Error(err))
	}
}
