package app

import (
	"context"
	"sync"

	"github.com/mselser95/polymarket-arb/internal/chainevents"
	"github.com/mselser95/polymarket-arb/internal/circuitbreaker"
	"github.com/mselser95/polymarket-arb/internal/exposure"
	"github.com/mselser95/polymarket-arb/internal/executor"
	"github.com/mselser95/polymarket-arb/internal/marketmatcher"
	"github.com/mselser95/polymarket-arb/internal/orderbookcache"
	"github.com/mselser95/polymarket-arb/internal/orderstatuscache"
	"github.com/mselser95/polymarket-arb/internal/scanner"
	"github.com/mselser95/polymarket-arb/internal/storage"
	"github.com/mselser95/polymarket-arb/internal/taskstore"
	"github.com/mselser95/polymarket-arb/internal/venue"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/eventbus"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/httpserver"
	"github.com/mselser95/polymarket-arb/pkg/wallet"
	"github.com/mselser95/polymarket-arb/pkg/websocket"
	"go.uber.org/zap"
)

// App wires every component of the cross-venue arbitrage engine and owns
// their lifecycle: construction in New, startup in Run, teardown in
// Shutdown.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	bus           *eventbus.Bus

	makerVenue venue.Client
	hedgeVenue venue.Client
	makerPool  *websocket.Pool // nil when ORDERBOOK_MODE=legacy
	hedgePool  *websocket.Pool // nil when HEDGE_ORDERBOOK_SOURCE=rest

	matcher     *marketmatcher.Matcher
	makerBooks  *orderbookcache.Cache
	hedgeBooks  *orderbookcache.Cache
	makerOrders *orderstatuscache.Cache
	hedgeOrders *orderstatuscache.Cache
	scanner     *scanner.Scanner
	store       *taskstore.Store
	executor    *executor.Executor
	exposureMon *exposure.Monitor

	auditSink storage.Sink // optional

	walletClient *wallet.Client           // optional, backs the circuit breaker and tracker
	walletTrack  *wallet.Tracker          // optional
	breaker      *circuitbreaker.BalanceCircuitBreaker // optional
	chainWatcher *chainevents.Watcher     // optional

	hedgeRESTPoll *restPoller // non-nil only when HEDGE_ORDERBOOK_SOURCE=rest

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// PairFilter restricts the engine to market pairs whose maker-venue slug
	// contains this substring, useful when manually validating a single
	// matched pair. Empty means no filtering.
	PairFilter string
}
