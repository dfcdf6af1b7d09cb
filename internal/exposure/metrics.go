package exposure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ExposureCurrent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arb_exposure_unhedged_total",
		Help: "Sum of predictFilledQty - hedgedQty across every non-terminal task",
	})

	ExposureBreachesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arb_exposure_breaches_total",
		Help: "Times total unhedged exposure crossed above the configured threshold",
	})
)
