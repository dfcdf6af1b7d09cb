package executor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/chainevents"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// chainAmountDecimals matches the CTF exchange's ERC1155 share-unit scale
// (6 decimals, same as USDC), so on-chain amounts compare directly against
// the REST-reported float quantities.
const chainAmountDecimals = 1_000_000

// runTask supervises one task from its current status through to a
// terminal one. It owns the maker order, the price guard, and the fill
// watch; hedging is delegated to hedge.go.
func (e *Executor) runTask(ctx context.Context, taskID string, gen int) error {
	t, err := e.store.Get(taskID)
	if err != nil {
		return err
	}
	pair, err := e.pairFor(t.MarketID)
	if err != nil {
		e.failTask(taskID, err)
		return err
	}

	tc := &taskState{id: taskID, gen: gen}
	tc.resetForNewOrder(t.PredictFilledQty)
	tc.setCurrentOrderHash(t.CurrentOrderHash)

	if t.Status == types.StatusPending {
		if err := e.submitMakerOrder(ctx, tc, t, pair); err != nil {
			e.failTask(taskID, err)
			return err
		}
	}

	guardCtx, guardCancel := context.WithCancel(ctx)
	defer guardCancel()
	go e.runPriceGuard(guardCtx, tc, pair)
	go e.runWSOutageGuard(guardCtx, tc, pair, e.wsDisconnectPause)
	go e.runDepthGuard(guardCtx, tc, pair)

	var expiredCh chan struct{}
	if t.ExpiresAt != nil {
		expiredCh = make(chan struct{})
		go e.runExpiryGuard(guardCtx, tc, pair, expiredCh)
	}

	statusCh := e.makerOrders.Subscribe()

	var chainCh chan chainevents.Fill
	if e.chainFills != nil {
		chainCh = make(chan chainevents.Fill, 16)
		e.chainByTask.Store(taskID, chainCh)
		defer e.chainByTask.Delete(taskID)
	}

	for {
		select {
		case <-ctx.Done():
			e.handlePause(tc, pair)
			return ctx.Err()
		case <-expiredCh:
			return nil
		case st, ok := <-statusCh:
			if !ok {
				statusCh = nil
				continue
			}
			if st.OrderHash != tc.currentOrderHash() {
				continue
			}
			if done := e.onMakerStatus(ctx, tc, taskID, pair, st); done {
				return nil
			}
		case fill, ok := <-chainCh:
			if !ok {
				chainCh = nil
				continue
			}
			e.onChainFill(ctx, tc, taskID, pair, fill)
		}
	}
}

// submitMakerOrder places the resting GTC (or FOK, for a TAKER task) order
// for the maker leg and records the ack on the task.
func (e *Executor) submitMakerOrder(ctx context.Context, tc *taskState, t *types.Task, pair *types.MarketPair) error {
	if !tc.tryBeginSubmit() {
		return fmt.Errorf("submit already in flight for task %s", t.ID)
	}
	defer tc.endSubmit()

	tif := types.TIFGTC
	if t.Strategy == types.StrategyTaker {
		tif = types.TIFFOK
	}

	opts := types.VenueOrderOpts{
		TokenID:   pair.MakerToken(t.ArbSide),
		Side:      t.ArbSide,
		Direction: direction(t.Type),
		Price:     t.PredictPrice,
		Size:      t.Quantity - t.PredictFilledQty,
		TickSize:  pair.TickSize,
		TIF:       tif,
		NegRisk:   pair.NegRisk,
	}

	result, err := e.makerVenue.PlaceOrder(ctx, opts)
	if err != nil {
		OrderSubmitErrorsTotal.WithLabelValues("maker").Inc()
		return fmt.Errorf("submit maker order: %w", err)
	}

	tc.setCurrentOrderHash(result.OrderHash)
	tc.resetForNewOrder(t.PredictFilledQty)

	_, err = e.store.Patch(ctx, t.ID, func(task *types.Task) {
		task.Status = types.StatusPredictSubmitted
		task.CurrentOrderHash = result.OrderHash
	})
	return err
}

// onMakerStatus folds a maker order status change into the task, advancing
// the fill-merge baseline and driving the hedge pipeline. Returns true if
// the task reached a terminal status.
func (e *Executor) onMakerStatus(ctx context.Context, tc *taskState, taskID string, pair *types.MarketPair, st types.OrderStatus) bool {
	tc.updateRestFilled(st.FilledQty)
	merged := tc.mergedFilled()

	task, err := e.store.Patch(ctx, taskID, func(t *types.Task) {
		if merged > t.PredictFilledQty {
			t.AvgPredictPrice = blendAvgPrice(t.AvgPredictPrice, t.PredictFilledQty, st.AvgPrice, merged-t.PredictFilledQty)
			t.PredictFilledQty = merged
			t.RemainingQty = t.PredictFilledQty - t.HedgedQty
			if t.Status == types.StatusPredictSubmitted {
				t.Status = types.StatusPartiallyFilled
			}
		}
	})
	if err != nil {
		e.logger.Error("executor-patch-failed", zap.String("task-id", taskID), zap.Error(err))
		return false
	}

	unhedged := task.PredictFilledQty - task.HedgedQty
	fullyFilled := st.State == types.OrderMatched || (st.RemainingQty <= 1e-9 && task.PredictFilledQty >= task.Quantity-1e-9)

	if unhedged > 1e-9 {
		if delta := unhedged - tc.pendingHedge.Qty; delta > 1e-9 {
			tc.pendingHedge.Add(types.Fill{Qty: delta, Price: st.AvgPrice, At: time.Now()})
		}
		if tc.pendingHedge.Ready(e.minHedgeQty, e.minHedgeUSD) || (fullyFilled && unhedged >= e.minHedgeQty) {
			go e.runHedge(ctx, tc, taskID, pair)
		}
	}

	if fullyFilled && unhedged < e.minHedgeQty {
		e.completeTask(ctx, taskID)
		return true
	}

	if st.Done() && st.State != types.OrderMatched {
		// Cancelled/expired with nothing left unhedged beyond dust: terminal.
		if unhedged < e.minHedgeQty {
			e.cancelTask(ctx, taskID)
			return true
		}
	}

	return false
}

func (e *Executor) onChainFill(ctx context.Context, tc *taskState, taskID string, pair *types.MarketPair, fill chainevents.Fill) {
	if fill.OrderHash != tc.currentOrderHash() {
		return
	}
	qty := normalizeChainAmount(fill.MakerAmountFilled)
	if qty <= 0 {
		return
	}
	tc.addWSSFilled(qty)

	st := types.OrderStatus{OrderHash: fill.OrderHash, FilledQty: tc.mergedFilled(), State: types.OrderLive}
	e.onMakerStatus(ctx, tc, taskID, pair, st)
}

// normalizeChainAmount converts a raw on-chain ERC1155 amount into share
// units comparable with REST-reported float quantities.
func normalizeChainAmount(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(amount)
	f.Quo(f, big.NewFloat(chainAmountDecimals))
	v, _ := f.Float64()
	return v
}

func (e *Executor) failTask(taskID string, cause error) {
	_, err := e.store.Patch(context.Background(), taskID, func(t *types.Task) {
		t.Status = types.StatusFailed
		t.LastError = cause.Error()
	})
	if err != nil {
		e.logger.Error("executor-fail-patch-failed", zap.String("task-id", taskID), zap.Error(err))
	}
}

func (e *Executor) completeTask(ctx context.Context, taskID string) {
	_, err := e.store.Patch(ctx, taskID, func(t *types.Task) {
		t.Status = types.StatusCompleted
	})
	if err != nil {
		e.logger.Error("executor-complete-patch-failed", zap.String("task-id", taskID), zap.Error(err))
		return
	}
	TasksCompletedTotal.Inc()
}

func (e *Executor) cancelTask(ctx context.Context, taskID string) {
	_, err := e.store.Patch(ctx, taskID, func(t *types.Task) {
		t.Status = types.StatusCancelled
	})
	if err != nil {
		e.logger.Error("executor-cancel-patch-failed", zap.String("task-id", taskID), zap.Error(err))
	}
}

// blendAvgPrice folds a new observation into a running weighted average.
func blendAvgPrice(avg, priorQty, newPrice, newQty float64) float64 {
	if priorQty+newQty <= 0 {
		return avg
	}
	if newPrice <= 0 {
		return avg
	}
	return (avg*priorQty + newPrice*newQty) / (priorQty + newQty)
}
