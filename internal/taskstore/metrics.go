package taskstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_taskstore_tasks_created_total",
			Help: "Tasks created, by type and strategy",
		},
		[]string{"type", "strategy"},
	)

	CreateIdempotentHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_taskstore_create_idempotent_hits_total",
		Help: "Create calls that matched an existing idempotency id instead of inserting",
	})

	CreateRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_taskstore_create_rejected_total",
			Help: "Create calls rejected, by reason",
		},
		[]string{"reason"},
	)

	TasksUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_taskstore_tasks_updated_total",
		Help: "Task patch operations applied",
	})

	TasksCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_taskstore_tasks_cancelled_total",
		Help: "Tasks moved to CANCELLED",
	})

	TasksDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_taskstore_tasks_deleted_total",
		Help: "Terminal tasks deleted",
	})

	PersistDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_taskstore_persist_duration_seconds",
		Help:    "Time spent writing the whole task store to disk",
		Buckets: prometheus.DefBuckets,
	})

	PersistErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_taskstore_persist_errors_total",
		Help: "Failed atomic writes of the task store",
	})

	EventsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_taskstore_events_dropped_total",
		Help: "Task update events dropped due to full subscriber buffer",
	})

	AuditMirrorErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_taskstore_audit_mirror_errors_total",
		Help: "Failed audit-sink mirror writes",
	})
)
