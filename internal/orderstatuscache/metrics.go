package orderstatuscache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PollErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_orderstatuscache_poll_errors_total",
			Help: "Failed ListOpenOrders polls, by venue",
		},
		[]string{"venue"},
	)

	PollDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_orderstatuscache_poll_duration_seconds",
		Help:    "Time spent on one ListOpenOrders poll",
		Buckets: prometheus.DefBuckets,
	})

	OrdersTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arb_orderstatuscache_orders_tracked",
			Help: "Number of open orders currently tracked, by venue",
		},
		[]string{"venue"},
	)

	EventsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_orderstatuscache_events_dropped_total",
			Help: "Order-status transition events dropped due to full subscriber buffer",
		},
		[]string{"venue"},
	)
)
