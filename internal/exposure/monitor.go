// Package exposure sums unhedged quantity across every non-terminal task
// and raises an alert once it exceeds a configured threshold, grounded on
// internal/circuitbreaker's ticker-driven monitorLoop shape (same
// check-on-a-timer structure, generalized from a wallet-balance read to a
// taskstore scan).
package exposure

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/taskstore"
)

// Config configures a Monitor.
type Config struct {
	Store         *taskstore.Store
	CheckInterval time.Duration
	Threshold     float64
	Logger        *zap.Logger
}

// Alert is published whenever total unhedged exposure crosses Threshold in
// either direction.
type Alert struct {
	Exposure  float64
	Threshold float64
	Breached  bool
	At        time.Time
}

// Monitor periodically sums predictFilledQty - hedgedQty over every
// non-terminal task and reports the total against Threshold.
type Monitor struct {
	store     *taskstore.Store
	interval  time.Duration
	threshold float64
	logger    *zap.Logger

	breached bool
	alerts   chan Alert
}

// New builds a Monitor. Call Run to start checking.
func New(cfg Config) *Monitor {
	return &Monitor{
		store:     cfg.Store,
		interval:  cfg.CheckInterval,
		threshold: cfg.Threshold,
		logger:    cfg.Logger,
		alerts:    make(chan Alert, 16),
	}
}

// Alerts returns the channel of threshold-crossing events. Buffered; a slow
// consumer only misses intermediate non-crossing checks, never the edge.
func (m *Monitor) Alerts() <-chan Alert {
	return m.alerts
}

// Run checks exposure once immediately, then every CheckInterval, until ctx
// is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.check()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *Monitor) check() {
	exposure := m.totalExposure()
	ExposureCurrent.Set(exposure)

	breached := exposure > m.threshold
	if breached != m.breached {
		m.breached = breached
		if breached {
			ExposureBreachesTotal.Inc()
			m.logger.Warn("exposure-threshold-breached",
				zap.Float64("exposure", exposure), zap.Float64("threshold", m.threshold))
		} else {
			m.logger.Info("exposure-threshold-cleared",
				zap.Float64("exposure", exposure), zap.Float64("threshold", m.threshold))
		}
		m.publish(Alert{Exposure: exposure, Threshold: m.threshold, Breached: breached, At: time.Now()})
	}
}

func (m *Monitor) publish(a Alert) {
	select {
	case m.alerts <- a:
	default:
		m.logger.Warn("exposure-alert-dropped", zap.Bool("breached", a.Breached))
	}
}

func (m *Monitor) totalExposure() float64 {
	var total float64
	for _, t := range m.store.List() {
		if t.Status.IsTerminal() {
			continue
		}
		total += t.PredictFilledQty - t.HedgedQty
	}
	return total
}
