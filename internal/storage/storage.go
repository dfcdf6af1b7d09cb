// Package storage adapts opportunity-logging backends into an optional
// taskstore.AuditSink: a durable secondary mirror of every task mutation,
// never the source of truth (the taskstore's on-disk JSON file is
// authoritative and is what Store.Load recovers from).
package storage

import (
	"context"

	"github.com/mselser95/polymarket-arb/internal/taskstore"
)

// Sink is the storage-package name for taskstore.AuditSink, kept distinct
// so call sites in this package don't need to import taskstore directly
// for the interface type.
type Sink interface {
	RecordTaskEvent(ctx context.Context, event taskstore.TaskEvent) error
	Close() error
}
