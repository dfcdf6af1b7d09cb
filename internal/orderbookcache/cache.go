// Package orderbookcache maintains the per-(venue, token) book cache of
//: websocket deltas take precedence over REST snapshots, REST
// never supersedes a newer websocket entry, and freshness is evaluated at
// calc-time rather than ingest-time.
package orderbookcache

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

type key struct {
	venue   string
	tokenID string
}

// Cache is the venue-qualified order-book cache.
type Cache struct {
	mu    sync.RWMutex
	books map[key]*types.Book

	staleCalc time.Duration
	staleUI   time.Duration

	msgChan <-chan *types.BookMessage
	venue   string

	subMu sync.Mutex
	subs  []chan *types.Book

	logger *zap.Logger

	ctx context.Context
	wg  sync.WaitGroup
}

// Config configures a per-venue Cache. One Cache instance is created per
// venue client so that key collisions across venues are impossible.
type Config struct {
	Venue         string
	MessageChannel <-chan *types.BookMessage
	StaleCalc     time.Duration
	StaleUI       time.Duration
	Logger        *zap.Logger
}

// New creates a Cache bound to one venue's websocket message stream.
func New(cfg Config) *Cache {
	return &Cache{
		books:     make(map[key]*types.Book),
		staleCalc: cfg.StaleCalc,
		staleUI:   cfg.StaleUI,
		msgChan:   cfg.MessageChannel,
		venue:     cfg.Venue,
		logger:    cfg.Logger,
	}
}

// Start launches the websocket-message ingest loop.
func (c *Cache) Start(ctx context.Context) {
	c.ctx = ctx
	c.wg.Add(1)
	go c.ingestLoop()
}

// Close waits for the ingest loop to exit and closes all subscriber channels.
func (c *Cache) Close() {
	c.wg.Wait()
	c.subMu.Lock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.subMu.Unlock()
}

func (c *Cache) ingestLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case msg, ok := <-c.msgChan:
			if !ok {
				return
			}
			c.applyMessage(msg)
		}
	}
}

func (c *Cache) applyMessage(msg *types.BookMessage) {
	if msg.EventType != "book" && msg.EventType != "price_change" {
		return
	}

	timer := prometheus.NewTimer(UpdateDurationSeconds)
	defer timer.ObserveDuration()

	k := key{venue: c.venue, tokenID: msg.AssetID}

	c.mu.Lock()
	existing := c.books[k]

	var book *types.Book
	switch msg.EventType {
	case "book":
		book = &types.Book{
			Venue:      c.venue,
			TokenID:    msg.AssetID,
			Bids:       types.ParseLevels(msg.Bids, true),
			Asks:       types.ParseLevels(msg.Asks, false),
			IngestedAt: time.Now(),
			Source:     types.SourceWS,
		}
	case "price_change":
		if existing == nil {
			book = &types.Book{
				Venue:      c.venue,
				TokenID:    msg.AssetID,
				Bids:       types.ParseLevels(msg.Bids, true),
				Asks:       types.ParseLevels(msg.Asks, false),
				IngestedAt: time.Now(),
				Source:     types.SourceWS,
			}
		} else {
			merged := *existing
			if len(msg.Bids) > 0 {
				merged.Bids = types.ParseLevels(msg.Bids, true)
			}
			if len(msg.Asks) > 0 {
				merged.Asks = types.ParseLevels(msg.Asks, false)
			}
			merged.IngestedAt = time.Now()
			merged.Source = types.SourceWS
			book = &merged
		}
	}

	c.books[k] = book
	BooksTracked.WithLabelValues(c.venue).Set(float64(len(c.books)))
	c.mu.Unlock()

	UpdatesTotal.WithLabelValues(c.venue, msg.EventType).Inc()
	c.publish(book)
}

// ApplyRESTSnapshot installs a REST-sourced book, but only if no WS entry
// already covers this token with a newer timestamp — WS never gets
// superseded by a slower REST poll.
func (c *Cache) ApplyRESTSnapshot(book *types.Book) {
	k := key{venue: book.Venue, tokenID: book.TokenID}

	c.mu.Lock()
	existing, ok := c.books[k]
	if ok && existing.Source == types.SourceWS && existing.IngestedAt.After(book.IngestedAt) {
		c.mu.Unlock()
		return
	}
	book.Source = types.SourceREST
	c.books[k] = book
	BooksTracked.WithLabelValues(book.Venue).Set(float64(len(c.books)))
	c.mu.Unlock()

	UpdatesTotal.WithLabelValues(book.Venue, "rest_snapshot").Inc()
	c.publish(book)
}

// Get returns the current cached book for (venue, tokenID) regardless of
// freshness; callers apply their own freshness gate at calc-time.
func (c *Cache) Get(venue, tokenID string) (*types.Book, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.books[key{venue: venue, tokenID: tokenID}]
	if !ok {
		return nil, false
	}
	cp := *b
	return &cp, true
}

// GetFresh returns the book only if it satisfies the calc-time freshness
// gate (STALE_CALC_MS).
func (c *Cache) GetFresh(venue, tokenID string, now time.Time) (*types.Book, bool) {
	b, ok := c.Get(venue, tokenID)
	if !ok || !b.FreshFor(now, c.staleCalc) {
		return nil, false
	}
	return b, true
}

// UIFresh reports whether the book satisfies the looser UI freshness gate
// (STALE_UI_MS), used by the dashboard surface rather than trade decisions.
func (c *Cache) UIFresh(venue, tokenID string, now time.Time) bool {
	b, ok := c.Get(venue, tokenID)
	return ok && b.FreshFor(now, c.staleUI)
}

// Subscribe returns a channel receiving every book update (WS or REST) for
// any token; used by internal/scanner to trigger throttled recompute.
func (c *Cache) Subscribe() <-chan *types.Book {
	ch := make(chan *types.Book, 1024)
	c.subMu.Lock()
	c.subs = append(c.subs, ch)
	c.subMu.Unlock()
	return ch
}

func (c *Cache) publish(book *types.Book) {
	cp := *book
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- &cp:
		default:
			UpdatesDroppedTotal.WithLabelValues(c.venue).Inc()
		}
	}
}
