package clob

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_venue_requests_total",
			Help: "Total venue REST requests by venue, op and outcome",
		},
		[]string{"venue", "op", "outcome"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arb_venue_request_duration_seconds",
			Help:    "Venue REST request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"venue", "op"},
	)

	OrdersPlacedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_venue_orders_placed_total",
			Help: "Total orders placed by venue and side",
		},
		[]string{"venue", "side", "outcome"},
	)

	RateLimitHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_venue_rate_limit_hits_total",
			Help: "Total 429 responses observed by venue",
		},
		[]string{"venue"},
	)
)
