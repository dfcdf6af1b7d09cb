package chainevents

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WatcherErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_chainevents_watcher_errors_total",
			Help: "Errors dialing or streaming from the chain RPC endpoint, by stage",
		},
		[]string{"stage"},
	)

	FillsObservedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_chainevents_fills_observed_total",
		Help: "OrderFilled logs observed for the tracked wallet address after dedup",
	})

	FillsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_chainevents_fills_dropped_total",
		Help: "Fill events dropped because the output channel was full",
	})
)
