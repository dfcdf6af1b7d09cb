// Package orderstatuscache polls a venue's open-order endpoint on a fixed
// interval and republishes per-order state transitions, grounded on
// FillTracker's polling/backoff shape (adapted here to a continuously-
// running cache rather than a one-shot verification call).
package orderstatuscache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

// Cache is a polling order-status cache for one venue.
type Cache struct {
	client venue.Client
	poll   time.Duration
	logger *zap.Logger

	mu     sync.RWMutex
	orders map[string]types.OrderStatus // keyed by orderHash

	subMu sync.Mutex
	subs  []chan types.OrderStatus

	backoff     time.Duration
	maxBackoff  time.Duration
	backoffMult float64
}

// Config configures a Cache.
type Config struct {
	Client         venue.Client
	PollInterval   time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffMult    float64
	Logger         *zap.Logger
}

// New builds a Cache that has not started polling yet.
func New(cfg Config) *Cache {
	backoff := cfg.InitialBackoff
	if backoff == 0 {
		backoff = 500 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff == 0 {
		maxBackoff = 10 * time.Second
	}
	mult := cfg.BackoffMult
	if mult == 0 {
		mult = 2.0
	}

	return &Cache{
		client:      cfg.Client,
		poll:        cfg.PollInterval,
		logger:      cfg.Logger,
		orders:      make(map[string]types.OrderStatus),
		backoff:     backoff,
		maxBackoff:  maxBackoff,
		backoffMult: mult,
	}
}

// Run polls on a fixed cadence until ctx is cancelled, widening the
// interval with exponential backoff while consecutive polls fail and
// resetting to the base interval on the first success.
func (c *Cache) Run(ctx context.Context) {
	interval := c.poll
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.pollOnce(ctx); err != nil {
				PollErrorsTotal.WithLabelValues(c.client.Name()).Inc()
				c.logger.Warn("orderstatuscache-poll-failed", zap.String("venue", c.client.Name()), zap.Error(err))
				interval = c.nextBackoff(interval)
				ticker.Reset(interval)
				continue
			}
			if interval != c.poll {
				interval = c.poll
				ticker.Reset(interval)
			}
		}
	}
}

func (c *Cache) nextBackoff(cur time.Duration) time.Duration {
	next := time.Duration(float64(cur) * c.backoffMult)
	if next > c.maxBackoff {
		next = c.maxBackoff
	}
	return next
}

func (c *Cache) pollOnce(ctx context.Context) error {
	timer := time.Now()
	open, err := c.client.ListOpenOrders(ctx)
	PollDurationSeconds.Observe(time.Since(timer).Seconds())
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(open))

	c.mu.Lock()
	for _, o := range open {
		seen[o.OrderHash] = struct{}{}
		prev, existed := c.orders[o.OrderHash]
		c.orders[o.OrderHash] = o
		if !existed || prev.FilledQty != o.FilledQty || prev.State != o.State {
			c.publishLocked(o)
		}
	}
	// Orders no longer returned as open have left the book (matched,
	// cancelled, or expired); mark them OrderUnknown once, unless their
	// state is already known to be terminal.
	for hash, prev := range c.orders {
		if _, stillOpen := seen[hash]; stillOpen || prev.Done() || prev.State == types.OrderUnknown {
			continue
		}
		prev.State = types.OrderUnknown
		prev.UpdatedAt = time.Now()
		c.orders[hash] = prev
		c.publishLocked(prev)
	}
	c.mu.Unlock()

	OrdersTracked.WithLabelValues(c.client.Name()).Set(float64(len(open)))
	return nil
}

// publishLocked must be called with c.mu held.
func (c *Cache) publishLocked(status types.OrderStatus) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- status:
		default:
			EventsDroppedTotal.WithLabelValues(c.client.Name()).Inc()
		}
	}
}

// Get returns the last known status for an order hash.
func (c *Cache) Get(orderHash string) (types.OrderStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.orders[orderHash]
	return s, ok
}

// Subscribe returns a channel that receives every order-status transition
// observed across polls.
func (c *Cache) Subscribe() <-chan types.OrderStatus {
	ch := make(chan types.OrderStatus, 256)
	c.subMu.Lock()
	c.subs = append(c.subs, ch)
	c.subMu.Unlock()
	return ch
}
