package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksClaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_tasks_claimed_total",
		Help: "Tasks picked up for supervision, including recovered ones",
	})

	TasksCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_tasks_completed_total",
		Help: "Tasks reaching COMPLETED",
	})

	TasksPausedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_executor_tasks_paused_total",
			Help: "Tasks moved to PAUSED, by reason",
		},
		[]string{"reason"},
	)

	OrderSubmitErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_executor_order_submit_errors_total",
			Help: "Order placement failures, by leg",
		},
		[]string{"leg"},
	)

	HedgeFillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_hedge_fills_total",
		Help: "Successful hedge IOC fills",
	})

	GhostDepthTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_ghost_depth_total",
		Help: "Hedge IOC attempts that matched zero size despite visible depth",
	})

	HedgeFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_hedge_failed_total",
		Help: "Tasks reaching terminal HEDGE_FAILED",
	})

	PriceGuardTriggeredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_price_guard_triggered_total",
		Help: "Hedge-side adverse price moves that cancelled the maker order and paused the task",
	})

	PriceGuardResubmitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_price_guard_resubmits_total",
		Help: "Maker orders resubmitted after a guard-triggered pause cleared",
	})

	WSOutageCancelsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_ws_outage_cancels_total",
		Help: "Maker orders cancelled due to a stale order-book feed",
	})

	DepthGuardShrinksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_depth_guard_shrinks_total",
		Help: "Maker orders shrunk and resubmitted because hedge-venue depth fell short of the remaining quantity",
	})

	DepthGuardExpandsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_depth_guard_expands_total",
		Help: "Maker orders expanded back toward totalQuantity after hedge-venue depth recovered",
	})

	TasksFailedByPauseLimitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_tasks_failed_pause_limit_total",
		Help: "Tasks escalated to FAILED after PauseCount reached MAX_PAUSE_COUNT",
	})

	DelayedFillsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_delayed_fills_detected_total",
		Help: "Post-cancellation probes that found additional fill beyond the cancel-time baseline",
	})

	EmergencyHedgesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_emergency_hedges_total",
		Help: "Emergency hedges placed in response to a delayed-fill detection",
	})

	TasksExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_executor_tasks_expired_total",
		Help: "Tasks reaching terminal TIMEOUT_CANCELLED via ExpiresAt",
	})
)
