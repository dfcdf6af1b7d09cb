package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

const expiryGuardInterval = 2 * time.Second

// runExpiryGuard cancels a task's resting maker order and marks it
// TIMEOUT_CANCELLED once its ExpiresAt passes.
// A task with no ExpiresAt never gets this guard started. Closes done when
// it fires so runTask's select loop can return without waiting for another
// maker-status update that will never come.
func (e *Executor) runExpiryGuard(ctx context.Context, tc *taskState, pair *types.MarketPair, done chan<- struct{}) {
	ticker := time.NewTicker(expiryGuardInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if e.checkExpiry(ctx, tc) {
				close(done)
				return
			}
		}
	}
}

// checkExpiry reports whether the task expired and, if so, cancels its
// resting order and marks it terminal.
func (e *Executor) checkExpiry(ctx context.Context, tc *taskState) bool {
	task, err := e.store.Get(tc.id)
	if err != nil || task.Status.IsTerminal() || task.Status == types.StatusPaused {
		return false
	}
	if task.ExpiresAt == nil || time.Now().Before(*task.ExpiresAt) {
		return false
	}

	if task.CurrentOrderHash != "" && task.CurrentOrderHash == tc.currentOrderHash() {
		if err := e.makerVenue.CancelOrder(ctx, task.CurrentOrderHash); err != nil {
			e.logger.Warn("executor-expiry-cancel-failed", zap.String("task-id", tc.id), zap.Error(err))
		}
	}

	_, err = e.store.Patch(ctx, tc.id, func(t *types.Task) {
		t.Status = types.StatusTimeoutCancelled
	})
	if err != nil {
		e.logger.Error("executor-expiry-patch-failed", zap.String("task-id", tc.id), zap.Error(err))
		return false
	}

	TasksExpiredTotal.Inc()
	e.logger.Info("executor-task-expired", zap.String("task-id", tc.id))
	return true
}
