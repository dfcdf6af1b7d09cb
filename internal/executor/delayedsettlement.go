package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// scheduleDelayedSettlement probes order status six times at 5-second
// intervals after a maker-order cancellation, independent of the task's
// cancellation scope, to catch a fill that the venue settles after it
// already acknowledged the cancel. A probe triggers an emergency hedge with
// widened price tolerance when the order's reported filled quantity minus
// the task's HedgedQty exceeds its stored RemainingQty; the cancel-time
// snapshot taken by recordCancelBaseline is not consulted.
func (e *Executor) scheduleDelayedSettlement(taskID string, pair *types.MarketPair) {
	go func() {
		for i := 0; i < delayedSettlementProbes; i++ {
			time.Sleep(delayedSettlementInterval)
			e.probeDelayedSettlement(taskID, pair)
		}
	}()
}

func (e *Executor) probeDelayedSettlement(taskID string, pair *types.MarketPair) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	task, err := e.store.Get(taskID)
	if err != nil {
		return
	}
	if task.CurrentOrderHash == "" {
		return
	}

	st, ok := e.makerOrders.Get(task.CurrentOrderHash)
	if !ok {
		return
	}

	unhedged := st.FilledQty - task.HedgedQty
	if unhedged <= task.RemainingQty+1e-9 {
		return
	}

	DelayedFillsDetectedTotal.Inc()
	e.logger.Warn("executor-delayed-fill-detected",
		zap.String("task-id", taskID), zap.Float64("filled", st.FilledQty))

	_, patchErr := e.store.Patch(ctx, taskID, func(t *types.Task) {
		t.PredictFilledQty = st.FilledQty
		t.RemainingQty = t.PredictFilledQty - t.HedgedQty
	})
	if patchErr != nil {
		e.logger.Error("executor-delayed-fill-patch-failed", zap.String("task-id", taskID), zap.Error(patchErr))
		return
	}

	e.emergencyHedge(ctx, taskID, pair)
}

// emergencyHedge places a single widened-tolerance IOC for whatever is
// unhedged after a delayed-fill detection. It does not go through the
// normal per-task hedge mutex since the task's own goroutine may already
// have exited; it is a best-effort catch-up hedge.
func (e *Executor) emergencyHedge(ctx context.Context, taskID string, pair *types.MarketPair) {
	task, err := e.store.Get(taskID)
	if err != nil {
		return
	}
	unhedged := task.PredictFilledQty - task.HedgedQty
	if unhedged < e.minHedgeQty {
		return
	}

	hedgeSide := complementOf(task.ArbSide)
	priceCap := hedgeCap(task) + emergencyTolerance

	result, err := e.hedgeVenue.PlaceOrder(ctx, types.VenueOrderOpts{
		TokenID:   pair.HedgeToken(hedgeSide),
		Side:      hedgeSide,
		Direction: direction(task.Type),
		Price:     priceCap,
		Size:      unhedged,
		TickSize:  pair.TickSize,
		TIF:       types.TIFIOC,
		NegRisk:   pair.NegRisk,
	})
	if err != nil {
		OrderSubmitErrorsTotal.WithLabelValues("emergency_hedge").Inc()
		e.logger.Error("executor-emergency-hedge-failed", zap.String("task-id", taskID), zap.Error(err))
		return
	}

	_, patchErr := e.store.Patch(ctx, taskID, func(t *types.Task) {
		t.HedgedQty += result.FilledQty
		t.RemainingQty = t.PredictFilledQty - t.HedgedQty
		if t.RemainingQty <= e.minHedgeQty {
			t.Status = types.StatusCompleted
		}
	})
	if patchErr != nil {
		e.logger.Error("executor-emergency-hedge-patch-failed", zap.String("task-id", taskID), zap.Error(patchErr))
		return
	}
	EmergencyHedgesTotal.Inc()
}
