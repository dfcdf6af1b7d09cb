// Package eventbus is the coalescing publisher behind the dashboard surface
//: a dirty-set of channel names plus the latest
// payload per channel, flushed to every subscriber on a fixed tick rather
// than on every Publish call. The core package never imports a
// dashboard-specific payload type; Publish takes json.RawMessage so the
// dashboard's schema stays entirely outside this module, grounded on the
// teacher's pkg/websocket connection-registry shape (subscriber set behind
// a mutex, per-subscriber liveness tracking) generalized from a single
// outbound network connection to an in-process fan-out.
package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTick         = 200 * time.Millisecond
	defaultDrainTimeout = 1 * time.Second
	defaultMaxTimeouts  = 3
	defaultBufferSize   = 64
)

// Envelope is one coalesced channel update delivered to a subscriber.
type Envelope struct {
	Channel string
	Payload json.RawMessage
	At      time.Time
}

// Config configures a Bus. Zero values fall back to sane defaults.
type Config struct {
	Tick         time.Duration
	DrainTimeout time.Duration
	MaxTimeouts  int
	BufferSize   int
	Logger       *zap.Logger
}

type subscriber struct {
	ch       chan Envelope
	timeouts int
}

// Bus coalesces Publish calls per channel and flushes the dirty set to
// every subscriber on a fixed tick.
type Bus struct {
	mu     sync.Mutex
	dirty  map[string]struct{}
	latest map[string]json.RawMessage

	subMu sync.Mutex
	subs  map[*subscriber]struct{}

	tick         time.Duration
	drainTimeout time.Duration
	maxTimeouts  int
	bufferSize   int
	logger       *zap.Logger
}

// New builds a Bus. Call Run to start flushing.
func New(cfg Config) *Bus {
	tick := cfg.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	drain := cfg.DrainTimeout
	if drain <= 0 {
		drain = defaultDrainTimeout
	}
	maxTimeouts := cfg.MaxTimeouts
	if maxTimeouts <= 0 {
		maxTimeouts = defaultMaxTimeouts
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &Bus{
		dirty:        make(map[string]struct{}),
		latest:       make(map[string]json.RawMessage),
		subs:         make(map[*subscriber]struct{}),
		tick:         tick,
		drainTimeout: drain,
		maxTimeouts:  maxTimeouts,
		bufferSize:   bufferSize,
		logger:       cfg.Logger,
	}
}

// Publish marks channel dirty with its latest payload. Coalesced: a second
// Publish on the same channel before the next tick replaces the first,
// never queues both.
func (b *Bus) Publish(channel string, payload json.RawMessage) {
	b.mu.Lock()
	b.latest[channel] = payload
	b.dirty[channel] = struct{}{}
	b.mu.Unlock()
}

// Subscribe registers a new consumer. Call the returned func to unsubscribe.
func (b *Bus) Subscribe() (<-chan Envelope, func()) {
	sub := &subscriber{ch: make(chan Envelope, b.bufferSize)}
	b.subMu.Lock()
	b.subs[sub] = struct{}{}
	ActiveSubscribers.Set(float64(len(b.subs)))
	b.subMu.Unlock()

	unsub := func() {
		b.subMu.Lock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub.ch)
			ActiveSubscribers.Set(float64(len(b.subs)))
		}
		b.subMu.Unlock()
	}
	return sub.ch, unsub
}

// Run flushes the dirty set to every subscriber once per tick until ctx is
// cancelled.
func (b *Bus) Run(ctx context.Context) {
	ticker := time.NewTicker(b.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.flush()
		}
	}
}

func (b *Bus) flush() {
	b.mu.Lock()
	if len(b.dirty) == 0 {
		b.mu.Unlock()
		return
	}
	batch := make([]Envelope, 0, len(b.dirty))
	now := time.Now()
	for ch := range b.dirty {
		batch = append(batch, Envelope{Channel: ch, Payload: b.latest[ch], At: now})
	}
	b.dirty = make(map[string]struct{})
	b.mu.Unlock()

	b.subMu.Lock()
	defer b.subMu.Unlock()
	for sub := range b.subs {
		for _, env := range batch {
			if !b.deliver(sub, env) {
				break
			}
		}
	}
}

// deliver sends one envelope to a subscriber, giving it up to drainTimeout
// to accept before counting a timeout. After maxTimeouts consecutive
// timeouts, the
// subscriber is disconnected. Must be called with subMu held.
func (b *Bus) deliver(sub *subscriber, env Envelope) bool {
	select {
	case sub.ch <- env:
		sub.timeouts = 0
		return true
	default:
	}

	timer := time.NewTimer(b.drainTimeout)
	defer timer.Stop()
	select {
	case sub.ch <- env:
		sub.timeouts = 0
		return true
	case <-timer.C:
		sub.timeouts++
		EnvelopesDroppedTotal.WithLabelValues(env.Channel).Inc()
		if sub.timeouts >= b.maxTimeouts {
			delete(b.subs, sub)
			close(sub.ch)
			ActiveSubscribers.Set(float64(len(b.subs)))
			SubscribersDisconnectedTotal.Inc()
			if b.logger != nil {
				b.logger.Warn("eventbus-subscriber-disconnected", zap.Int("consecutive-timeouts", sub.timeouts))
			}
			return false
		}
		return true
	}
}
