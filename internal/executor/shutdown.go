package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/chainevents"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// handlePause cancels the task's resting maker order and marks it PAUSED,
// used for this task's ctx.Done() arm — reached on app shutdown (pauseAll
// cancels every running scope) and on a user cancel (Run's subscription
// loop cancels this task's scope specifically once it observes
// StatusCancelled). A user-cancelled task keeps its CANCELLED status
// instead of being overwritten to PAUSED, but still gets its maker order
// cancelled and its delayed-settlement probes scheduled, so a fill that
// lands after the user cancelled is still caught and emergency-hedged.
func (e *Executor) handlePause(tc *taskState, pair *types.MarketPair) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	task, err := e.store.Get(tc.id)
	if err != nil {
		return
	}
	userCancelled := task.Status == types.StatusCancelled
	if task.Status.IsTerminal() && !userCancelled {
		return
	}

	if task.CurrentOrderHash != "" {
		if err := e.makerVenue.CancelOrder(ctx, task.CurrentOrderHash); err != nil {
			e.logger.Warn("executor-pause-cancel-maker-failed", zap.String("task-id", tc.id), zap.Error(err))
		}
	}
	e.recordCancelBaseline(ctx, tc)

	if !userCancelled {
		if _, err := e.pauseOrEscalate(ctx, tc.id, "shutdown", "shutdown: task paused for restart"); err != nil {
			e.logger.Error("executor-pause-patch-failed", zap.String("task-id", tc.id), zap.Error(err))
			return
		}
	}

	e.scheduleDelayedSettlement(tc.id, pair)
}

// drainChainFills fans out the shared on-chain fill stream to whichever
// running task currently owns that order hash.
func (e *Executor) drainChainFills(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fill, ok := <-e.chainFills:
			if !ok {
				return
			}
			taskID, found := e.findTaskByOrderHash(fill.OrderHash)
			if !found {
				continue
			}
			v, ok := e.chainByTask.Load(taskID)
			if !ok {
				continue
			}
			ch, ok := v.(chan chainevents.Fill)
			if !ok {
				continue
			}
			select {
			case ch <- fill:
			default:
				e.logger.Warn("executor-chain-fill-dropped", zap.String("order-hash", fill.OrderHash))
			}
		}
	}
}

func (e *Executor) findTaskByOrderHash(orderHash string) (string, bool) {
	for _, t := range e.store.List() {
		if t.CurrentOrderHash == orderHash {
			return t.ID, true
		}
	}
	return "", false
}
