package eventbus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_eventbus_active_subscribers",
		Help: "Currently connected dashboard subscribers",
	})

	EnvelopesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arb_eventbus_envelopes_dropped_total",
			Help: "Flush attempts where a subscriber failed to drain within DrainTimeout, by channel",
		},
		[]string{"channel"},
	)

	SubscribersDisconnectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_eventbus_subscribers_disconnected_total",
		Help: "Subscribers dropped after exceeding the consecutive drain-timeout budget",
	})
)
