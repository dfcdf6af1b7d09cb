package orderbookcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_orderbookcache_updates_total",
			Help: "Total book updates applied, by venue and event type",
		},
		[]string{"venue", "event_type"},
	)

	UpdatesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_orderbookcache_updates_dropped_total",
			Help: "Book update notifications dropped due to full subscriber buffer",
		},
		[]string{"venue"},
	)

	BooksTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "arb_orderbookcache_books_tracked",
			Help: "Number of distinct tokens currently cached",
		},
		[]string{"venue"},
	)

	UpdateDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_orderbookcache_update_duration_seconds",
		Help:    "Time spent applying one book update",
		Buckets: prometheus.DefBuckets,
	})
)
