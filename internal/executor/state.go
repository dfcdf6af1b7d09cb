package executor

import (
	"sync"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
)

// taskState is the executor's in-memory working set for one task,
// separate from the taskstore record: it tracks the fill-merge baseline,
// the in-flight hedge batch, and the isSubmitting/generation guard that
// enforces cancel-before-resubmit.
type taskState struct {
	id  string
	gen int

	mu sync.Mutex

	currentHash  string
	isSubmitting bool

	baseFilledBeforeOrder float64 // merged filled qty as of the current order's start
	restFilled            float64
	wssFilled             float64

	pendingHedge types.PendingHedgeBatch
	hedgeMu      sync.Mutex // serializes the hedge pipeline: one IOC in flight at a time

	cancelledAt    time.Time
	cancelBaseline float64 // filled qty at cancel time; not read by the delayed-settlement probes

	lastDepthAdjust time.Time // last depth-guard shrink/expand, for the anti-oscillation cooldown
}

func (s *taskState) currentOrderHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentHash
}

func (s *taskState) setCurrentOrderHash(h string) {
	s.mu.Lock()
	s.currentHash = h
	s.mu.Unlock()
}

// mergedFilled is: baseFilledBeforeOrder + max(wssFilled, restFilled).
func (s *taskState) mergedFilled() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := s.restFilled
	if s.wssFilled > best {
		best = s.wssFilled
	}
	return s.baseFilledBeforeOrder + best
}

// resetForNewOrder is called whenever a maker order is (re)submitted: the
// merge baseline absorbs whatever was filled so far and the per-order fill
// trackers restart from zero.
func (s *taskState) resetForNewOrder(baseline float64) {
	s.mu.Lock()
	s.baseFilledBeforeOrder = baseline
	s.restFilled = 0
	s.wssFilled = 0
	s.mu.Unlock()
}

func (s *taskState) updateRestFilled(v float64) {
	s.mu.Lock()
	if v > s.restFilled {
		s.restFilled = v
	}
	s.mu.Unlock()
}

func (s *taskState) addWSSFilled(delta float64) {
	s.mu.Lock()
	s.wssFilled += delta
	s.mu.Unlock()
}

func (s *taskState) tryBeginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isSubmitting {
		return false
	}
	s.isSubmitting = true
	return true
}

func (s *taskState) endSubmit() {
	s.mu.Lock()
	s.isSubmitting = false
	s.mu.Unlock()
}

func (s *taskState) markDepthAdjust(t time.Time) {
	s.mu.Lock()
	s.lastDepthAdjust = t
	s.mu.Unlock()
}

// depthCooldownElapsed reports whether at least cooldown has passed since
// the last depth-guard shrink or expand (or true if neither has happened
// yet).
func (s *taskState) depthCooldownElapsed(cooldown time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastDepthAdjust.IsZero() {
		return true
	}
	return time.Since(s.lastDepthAdjust) >= cooldown
}
