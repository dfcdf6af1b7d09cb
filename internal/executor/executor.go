// Package executor drives each task through the order-placement state
// machine: submit the maker leg, watch it fill, hedge incrementally on the
// complementary token, and resolve to a terminal status. It generalizes
// internal/execution's single-shot order placement into a long-running
// per-task supervisor with price/depth guards and incremental hedging,
// since that single-shot placement never holds a resting maker order open
// against a moving book.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/chainevents"
	"github.com/mselser95/polymarket-arb/internal/circuitbreaker"
	"github.com/mselser95/polymarket-arb/internal/marketmatcher"
	"github.com/mselser95/polymarket-arb/internal/orderbookcache"
	"github.com/mselser95/polymarket-arb/internal/orderstatuscache"
	"github.com/mselser95/polymarket-arb/internal/taskstore"
	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/types"
)

const (
	maxHedgeRetries  = 5
	hedgeBackoffUnit = 500 * time.Millisecond
	hedgeBackoffCap  = 2 * time.Second

	emergencyTolerance = 0.02 // additive widening for delayed-settlement hedges

	delayedSettlementProbes   = 6
	delayedSettlementInterval = 5 * time.Second

	shutdownTimeout = 60 * time.Second

	defaultMaxPauseCount = 5
)

// Config wires an Executor to its collaborators.
type Config struct {
	Store             *taskstore.Store
	Matcher           *marketmatcher.Matcher
	MakerVenue        venue.Client
	HedgeVenue        venue.Client
	MakerBooks        *orderbookcache.Cache
	HedgeBooks        *orderbookcache.Cache
	MakerOrders       *orderstatuscache.Cache
	HedgeOrders       *orderstatuscache.Cache
	ChainFills        <-chan chainevents.Fill               // optional, nil disables the on-chain fill source
	Breaker           *circuitbreaker.BalanceCircuitBreaker // optional
	MinHedgeQty       float64
	MinHedgeUSD       float64
	WSDisconnectPause time.Duration
	MaxPauseCount     int // PauseCount at or above this escalates a task straight to FAILED; <=0 falls back to defaultMaxPauseCount
	Logger            *zap.Logger
}

// Executor supervises every non-terminal task with one goroutine each.
type Executor struct {
	store       *taskstore.Store
	matcher     *marketmatcher.Matcher
	makerVenue  venue.Client
	hedgeVenue  venue.Client
	makerBooks  *orderbookcache.Cache
	hedgeBooks  *orderbookcache.Cache
	makerOrders *orderstatuscache.Cache
	hedgeOrders *orderstatuscache.Cache
	chainFills  <-chan chainevents.Fill
	breaker     *circuitbreaker.BalanceCircuitBreaker

	minHedgeQty       float64
	minHedgeUSD       float64
	wsDisconnectPause time.Duration
	maxPauseCount     int
	logger            *zap.Logger

	mu      sync.Mutex
	running map[string]*runningTask

	chainByTask sync.Map // taskID -> chan chainevents.Fill, registered while that task's goroutine is live
}

type runningTask struct {
	cancel     context.CancelFunc
	generation int
}

// New builds an Executor; call Run to start supervising tasks.
func New(cfg Config) *Executor {
	maxPauseCount := cfg.MaxPauseCount
	if maxPauseCount <= 0 {
		maxPauseCount = defaultMaxPauseCount
	}

	return &Executor{
		store:       cfg.Store,
		matcher:     cfg.Matcher,
		makerVenue:  cfg.MakerVenue,
		hedgeVenue:  cfg.HedgeVenue,
		makerBooks:  cfg.MakerBooks,
		hedgeBooks:  cfg.HedgeBooks,
		makerOrders: cfg.MakerOrders,
		hedgeOrders: cfg.HedgeOrders,
		chainFills:  cfg.ChainFills,
		breaker:     cfg.Breaker,

		minHedgeQty:       cfg.MinHedgeQty,
		minHedgeUSD:       cfg.MinHedgeUSD,
		wsDisconnectPause: cfg.WSDisconnectPause,
		maxPauseCount:     maxPauseCount,
		logger:            cfg.Logger,
		running:           make(map[string]*runningTask),
	}
}

// Run recovers in-flight tasks, then claims every newly created task off the
// store's event stream until ctx is cancelled, at which point it pauses
// every still-running task and waits up to shutdownTimeout.
func (e *Executor) Run(ctx context.Context) error {
	if e.chainFills != nil {
		go e.drainChainFills(ctx)
	}

	for _, t := range e.store.GetRecoverable() {
		e.claim(ctx, t)
	}

	updates := e.store.Subscribe()
	for {
		select {
		case <-ctx.Done():
			e.pauseAll()
			return ctx.Err()
		case t, ok := <-updates:
			if !ok {
				e.pauseAll()
				return nil
			}
			e.mu.Lock()
			rt, alreadyRunning := e.running[t.ID]
			e.mu.Unlock()
			switch {
			case alreadyRunning && t.Status == types.StatusCancelled:
				// A user cancel flips status to terminal directly in the
				// taskstore, bypassing this task's own goroutine; cancel its
				// scope so handlePause can cancel the resting maker order and
				// schedule delayed-settlement probes.
				rt.cancel()
			case !alreadyRunning && !t.Status.IsTerminal() && t.Status != types.StatusPaused:
				e.claim(ctx, t)
			}
		}
	}
}

// claim starts a supervising goroutine for one task under its own
// cancellation scope.
func (e *Executor) claim(parent context.Context, t *types.Task) {
	if e.breaker != nil && !e.breaker.IsEnabled() {
		e.logger.Warn("executor-claim-blocked-by-circuit-breaker", zap.String("task-id", t.ID))
		return
	}

	taskCtx, cancel := context.WithCancel(parent)

	e.mu.Lock()
	rt, exists := e.running[t.ID]
	gen := 1
	if exists {
		gen = rt.generation + 1
	}
	e.running[t.ID] = &runningTask{cancel: cancel, generation: gen}
	e.mu.Unlock()

	TasksClaimedTotal.Inc()
	go func() {
		defer func() {
			e.mu.Lock()
			if cur, ok := e.running[t.ID]; ok && cur.generation == gen {
				delete(e.running, t.ID)
			}
			e.mu.Unlock()
		}()
		if err := e.runTask(taskCtx, t.ID, gen); err != nil && taskCtx.Err() == nil {
			e.logger.Error("executor-task-failed", zap.String("task-id", t.ID), zap.Error(err))
		}
	}()
}

// pauseAll cancels every running task's scope and waits for shutdown or the
// hard timeout, whichever comes first.
func (e *Executor) pauseAll() {
	e.mu.Lock()
	for _, rt := range e.running {
		rt.cancel()
	}
	e.mu.Unlock()

	deadline := time.After(shutdownTimeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		e.mu.Lock()
		remaining := len(e.running)
		e.mu.Unlock()
		if remaining == 0 {
			return
		}
		select {
		case <-deadline:
			e.logger.Warn("executor-shutdown-timeout-forced", zap.Int("still-running", remaining))
			return
		case <-ticker.C:
		}
	}
}

// pairFor resolves a task's matched cross-venue pair.
func (e *Executor) pairFor(marketID string) (*types.MarketPair, error) {
	pair, ok := e.matcher.Get(marketID)
	if !ok {
		return nil, fmt.Errorf("no matched pair for market %s", marketID)
	}
	return pair, nil
}

func complementOf(side types.Side) types.Side {
	if side == types.SideYES {
		return types.SideNO
	}
	return types.SideYES
}

func direction(t types.TaskType) types.OrderDirection {
	if t == types.TaskSell {
		return types.DirSell
	}
	return types.DirBuy
}

// pauseOrEscalate bumps a task's PauseCount and moves it to PAUSED, unless
// the bumped count reaches maxPauseCount, in which case it escalates
// straight to FAILED instead. reason labels the TasksPausedTotal metric;
// pauseMsg becomes the task's LastError either way, so a caller relying on
// a specific substring (e.g. ghost-depth detection) sees it regardless of
// whether this pause was the one that tipped the task into FAILED.
func (e *Executor) pauseOrEscalate(ctx context.Context, taskID, reason, pauseMsg string) (*types.Task, error) {
	var escalated bool
	updated, err := e.store.Patch(ctx, taskID, func(t *types.Task) {
		t.PauseCount++
		if t.PauseCount >= e.maxPauseCount {
			t.Status = types.StatusFailed
			t.LastError = fmt.Sprintf("%s: pause count %d reached MAX_PAUSE_COUNT", pauseMsg, t.PauseCount)
			escalated = true
			return
		}
		t.Status = types.StatusPaused
		t.LastError = pauseMsg
	})
	if err != nil {
		return nil, err
	}
	if escalated {
		TasksFailedByPauseLimitTotal.Inc()
	} else {
		TasksPausedTotal.WithLabelValues(reason).Inc()
	}
	return updated, nil
}
