package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpportunitiesComputedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_opportunities_computed_total",
			Help: "Opportunities computed, by strategy and side",
		},
		[]string{"strategy", "side"},
	)

	OpportunitiesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_opportunities_rejected_total",
			Help: "Candidate opportunities rejected, by reason",
		},
		[]string{"reason"},
	)

	InconsistentPairsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_inconsistent_pairs_total",
			Help: "Pairs suppressed by the YES/NO consistency check, by strategy",
		},
		[]string{"strategy"},
	)

	OpportunitiesEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_scanner_opportunities_evicted_total",
		Help: "Opportunities evicted after 5 minutes without a refresh",
	})

	OpportunitiesTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_scanner_opportunities_tracked",
		Help: "Number of opportunities currently tracked",
	})

	SpreadBpsObserved = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arb_scanner_spread_bps",
			Help:    "Observed opportunity spread in basis points, by strategy",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 500, 1000},
		},
		[]string{"strategy"},
	)

	RecomputeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_scanner_recompute_duration_seconds",
		Help:    "Time spent recomputing one market pair's opportunities",
		Buckets: prometheus.DefBuckets,
	})

	PrewarmErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_scanner_prewarm_errors_total",
			Help: "REST prewarm fetch failures during initial scan, by venue",
		},
		[]string{"venue"},
	)

	UpdatesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_scanner_updates_dropped_total",
		Help: "Opportunity update notifications dropped due to full subscriber buffer",
	})
)
