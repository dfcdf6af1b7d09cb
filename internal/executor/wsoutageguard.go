package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

const wsOutageCheckInterval = time.Second

// runWSOutageGuard cancels the resting maker order when its book feed goes
// stale for longer than the configured disconnect pause, since a resting
// order can no longer be safely re-priced against a book we can't see.
func (e *Executor) runWSOutageGuard(ctx context.Context, tc *taskState, pair *types.MarketPair, disconnectPause time.Duration) {
	if disconnectPause <= 0 {
		return
	}
	ticker := time.NewTicker(wsOutageCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.checkWSOutage(ctx, tc, pair, disconnectPause)
		}
	}
}

func (e *Executor) checkWSOutage(ctx context.Context, tc *taskState, pair *types.MarketPair, disconnectPause time.Duration) {
	task, err := e.store.Get(tc.id)
	if err != nil || task.Status.IsTerminal() || task.Status == types.StatusPaused {
		return
	}
	if task.CurrentOrderHash == "" {
		return
	}

	book, ok := e.makerBooks.Get("maker", pair.MakerToken(task.ArbSide))
	if ok && book.FreshFor(time.Now(), disconnectPause) {
		return
	}

	if !tc.tryBeginSubmit() {
		return
	}
	defer tc.endSubmit()

	if err := e.makerVenue.CancelOrder(ctx, task.CurrentOrderHash); err != nil {
		e.logger.Warn("executor-ws-outage-cancel-failed", zap.String("task-id", tc.id), zap.Error(err))
		return
	}
	e.recordCancelBaseline(ctx, tc)
	WSOutageCancelsTotal.Inc()

	if _, err := e.pauseOrEscalate(ctx, tc.id, "ws_outage", "ws outage: book feed stale"); err != nil {
		e.logger.Error("executor-ws-outage-patch-failed", zap.String("task-id", tc.id), zap.Error(err))
		return
	}

	e.scheduleDelayedSettlement(tc.id, pair)
}
