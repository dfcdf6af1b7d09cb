package marketmatcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RematchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_marketmatcher_rematch_errors_total",
			Help: "Failed ListMarkets calls during a rematch pass, by venue",
		},
		[]string{"venue"},
	)

	RematchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_marketmatcher_rematch_duration_seconds",
		Help:    "Time spent on one full rematch pass",
		Buckets: prometheus.DefBuckets,
	})

	MatchesByMethodTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_marketmatcher_matches_total",
			Help: "Markets matched, by matching method",
		},
		[]string{"method"},
	)

	PairsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_marketmatcher_pairs_tracked",
		Help: "Number of currently matched market pairs",
	})
)
