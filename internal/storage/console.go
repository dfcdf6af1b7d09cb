package storage

import (
	"context"
	"fmt"

	"github.com/mselser95/polymarket-arb/internal/taskstore"
	"go.uber.org/zap"
)

// ConsoleSink implements Sink by pretty-printing task events to stdout,
// for local runs without a Postgres instance.
type ConsoleSink struct {
	logger *zap.Logger
}

// NewConsoleSink creates a console-backed audit sink.
func NewConsoleSink(logger *zap.Logger) *ConsoleSink {
	logger.Info("console-storage-initialized")
	return &ConsoleSink{logger: logger}
}

// RecordTaskEvent pretty-prints a task mutation to console.
func (c *ConsoleSink) RecordTaskEvent(ctx context.Context, event taskstore.TaskEvent) error {
	t := event.Task
	fmt.Printf("[%s] task %s %s market=%s status=%s filled=%.4f hedged=%.4f\n",
		event.At.Format("15:04:05"), t.ID[:8], event.Kind, t.MarketID, t.Status, t.PredictFilledQty, t.HedgedQty)
	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleSink) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
