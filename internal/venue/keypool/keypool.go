// Package keypool round-robins a venue's API credential set and applies a
// cooldown to keys that hit rate limits, so the scanner and executor spread
// load across MAKER_VENUE_KEYS_SCAN / MAKER_VENUE_KEYS_TRADE.
package keypool

import (
	"errors"
	"sync"
	"time"
)

// ErrNoAvailableKey is returned when every key is on cooldown.
var ErrNoAvailableKey = errors.New("keypool: no available key")

type entry struct {
	key       string
	cooldownUntil time.Time
}

// Pool is a round-robin credential pool with per-key cooldown, safe for
// concurrent use.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	next    int
}

// New builds a pool over the given keys. An empty slice is valid and
// always returns ErrNoAvailableKey, letting single-key deployments no-op.
func New(keys []string) *Pool {
	entries := make([]*entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, &entry{key: k})
	}
	return &Pool{entries: entries}
}

// Take returns the next available key in round-robin order, skipping any
// still on cooldown.
func (p *Pool) Take() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return "", ErrNoAvailableKey
	}

	now := time.Now()
	for i := 0; i < len(p.entries); i++ {
		idx := (p.next + i) % len(p.entries)
		e := p.entries[idx]
		if e.cooldownUntil.IsZero() || now.After(e.cooldownUntil) {
			p.next = (idx + 1) % len(p.entries)
			return e.key, nil
		}
	}
	return "", ErrNoAvailableKey
}

// Penalize puts key on cooldown for d, called after a rate-limit response.
func (p *Pool) Penalize(key string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.key == key {
			e.cooldownUntil = time.Now().Add(d)
			return
		}
	}
}

// Len reports the pool size.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
