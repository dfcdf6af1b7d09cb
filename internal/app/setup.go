package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

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
	"github.com/mselser95/polymarket-arb/internal/venue/clob"
	"github.com/mselser95/polymarket-arb/internal/venue/clobsigner"
	"github.com/mselser95/polymarket-arb/internal/venue/keypool"
	"github.com/mselser95/polymarket-arb/pkg/cache"
	"github.com/mselser95/polymarket-arb/pkg/config"
	"github.com/mselser95/polymarket-arb/pkg/eventbus"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
	"github.com/mselser95/polymarket-arb/pkg/httpserver"
	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/mselser95/polymarket-arb/pkg/wallet"
	"github.com/mselser95/polymarket-arb/pkg/websocket"
)

// Hardcoded websocket pool tuning, grounded on pkg/websocket's own
// defaults (run used to source these from env, but the two-venue config
// surface keeps the knob count down and leaves per-connection transport
// tuning as internal detail).
const (
	wsPoolSize             = 4
	wsDialTimeout          = 10 * time.Second
	wsPongTimeout          = 60 * time.Second
	wsPingInterval         = 30 * time.Second
	wsReconnectInitial     = 1 * time.Second
	wsReconnectMax         = 30 * time.Second
	wsReconnectBackoffMult = 2.0
	wsMessageBufferSize    = 256
)

// New builds the application's full collaborator graph. Trading
// credentials (private keys, API keys) are required since order placement
// is the engine's core function; the circuit breaker, chain-fill watcher
// and audit sink are optional ambient safety/observability and degrade to
// disabled with a warning when their config is absent, the same
// graceful-degradation shape the circuit breaker itself follows.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	makerVenue, makerPool, err := setupVenue(cfg, logger, types.RoleMaker)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup maker venue: %w", err)
	}

	hedgeVenue, hedgePool, err := setupVenue(cfg, logger, types.RoleHedge)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup hedge venue: %w", err)
	}

	matcher := marketmatcher.New(marketmatcher.Config{
		Maker:        makerVenue,
		Hedge:        hedgeVenue,
		PollInterval: cfg.PollInterval,
		PairFilter:   opts.PairFilter,
		Logger:       logger.With(zap.String("component", "marketmatcher")),
	})

	makerBooks := orderbookcache.New(orderbookcache.Config{
		Venue:          makerVenue.Name(),
		MessageChannel: bookMessageChan(makerPool),
		StaleCalc:      cfg.StaleCalcMS,
		StaleUI:        cfg.StaleUIMS,
		Logger:         logger.With(zap.String("component", "orderbookcache"), zap.String("venue", makerVenue.Name())),
	})
	hedgeBooks := orderbookcache.New(orderbookcache.Config{
		Venue:          hedgeVenue.Name(),
		MessageChannel: bookMessageChan(hedgePool),
		StaleCalc:      cfg.StaleCalcMS,
		StaleUI:        cfg.StaleUIMS,
		Logger:         logger.With(zap.String("component", "orderbookcache"), zap.String("venue", hedgeVenue.Name())),
	})

	makerOrders := orderstatuscache.New(orderstatuscache.Config{
		Client:       makerVenue,
		PollInterval: cfg.PollInterval,
		Logger:       logger.With(zap.String("component", "orderstatuscache"), zap.String("venue", makerVenue.Name())),
	})
	hedgeOrders := orderstatuscache.New(orderstatuscache.Config{
		Client:       hedgeVenue,
		PollInterval: cfg.PollInterval,
		Logger:       logger.With(zap.String("component", "orderstatuscache"), zap.String("venue", hedgeVenue.Name())),
	})

	scan := scanner.New(scanner.Config{
		Matcher:    matcher,
		MakerCache: makerBooks,
		HedgeCache: hedgeBooks,
		MakerVenue: makerVenue,
		HedgeVenue: hedgeVenue,
		StaleCalc:  cfg.StaleCalcMS,
		Logger:     logger.With(zap.String("component", "scanner")),
	})

	auditSink, err := setupAuditSink(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup audit sink: %w", err)
	}

	store := taskstore.New(taskstore.Config{
		Path:   cfg.DataDir + "/" + cfg.AccountName + "/tasks.json",
		Logger: logger.With(zap.String("component", "taskstore")),
	}).WithAuditSink(auditSink)

	if err := store.Load(); err != nil {
		cancel()
		return nil, fmt.Errorf("load task store: %w", err)
	}

	walletClient, walletAddress, walletOK := setupWalletClient(cfg, logger)

	breaker := setupCircuitBreaker(ctx, cfg, logger, walletClient, walletAddress, walletOK)
	if breaker != nil {
		store.WithCreateGate(breaker)
	}

	var walletTrack *wallet.Tracker
	if walletOK {
		walletTrack, err = wallet.New(&wallet.Config{
			RPCEndpoint:  cfg.ChainRPCWSURL,
			Address:      walletAddress,
			PollInterval: cfg.PollInterval,
			Logger:       logger.With(zap.String("component", "wallet-tracker")),
		})
		if err != nil {
			logger.Warn("wallet-tracker-disabled", zap.Error(err))
			walletTrack = nil
		}
	}

	chainWatcher := setupChainWatcher(cfg, logger, walletAddress, walletOK)

	var chainFills <-chan chainevents.Fill
	if chainWatcher != nil {
		chainFills = chainWatcher.Fills()
	}

	exec := executor.New(executor.Config{
		Store:             store,
		Matcher:           matcher,
		MakerVenue:        makerVenue,
		HedgeVenue:        hedgeVenue,
		MakerBooks:        makerBooks,
		HedgeBooks:        hedgeBooks,
		MakerOrders:       makerOrders,
		HedgeOrders:       hedgeOrders,
		ChainFills:        chainFills,
		Breaker:           breaker,
		MinHedgeQty:       cfg.MinHedgeQtyShares,
		MinHedgeUSD:       cfg.MinHedgeNotionalUSD,
		WSDisconnectPause: cfg.WSDisconnectPause,
		MaxPauseCount:     cfg.MaxPauseCount,
		Logger:            logger.With(zap.String("component", "executor")),
	})

	exposureMon := exposure.New(exposure.Config{
		Store:         store,
		CheckInterval: cfg.ExposureCheckMS,
		Threshold:     cfg.ExposureThreshold,
		Logger:        logger.With(zap.String("component", "exposure")),
	})

	bus := eventbus.New(eventbus.Config{Logger: logger.With(zap.String("component", "eventbus"))})

	httpServer := httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Bus:           bus,
		Store:         store,
	})

	var hedgeRESTPoll *restPoller
	if cfg.HedgeOrderbookSrc == config.HedgeSourceREST {
		hedgeRESTPoll = newRESTPoller(matcher, hedgeVenue, hedgeBooks, cfg.PollInterval, logger.With(zap.String("component", "hedge-rest-poller")))
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		bus:           bus,

		makerVenue: makerVenue,
		hedgeVenue: hedgeVenue,
		makerPool:  makerPool,
		hedgePool:  hedgePool,

		matcher:     matcher,
		makerBooks:  makerBooks,
		hedgeBooks:  hedgeBooks,
		makerOrders: makerOrders,
		hedgeOrders: hedgeOrders,
		scanner:     scan,
		store:       store,
		executor:    exec,
		exposureMon: exposureMon,

		auditSink: auditSink,

		walletClient: walletClient,
		walletTrack:  walletTrack,
		breaker:      breaker,
		chainWatcher: chainWatcher,

		hedgeRESTPoll: hedgeRESTPoll,

		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// setupVenue builds a venue.Client for role, wrapping it with a websocket
// pool when the role's configured book source calls for streaming. The
// returned *websocket.Pool is nil for REST-only configurations.
func setupVenue(cfg *config.Config, logger *zap.Logger, role types.VenueRole) (venue.Client, *websocket.Pool, error) {
	var (
		baseURL, wsURL, privateKey, proxyAddress string
		sigType                                  int
		apiKey, apiSecret, apiPassphrase         string
		keysScan, keysTrade                      []string
		wantsWS                                  bool
	)

	switch role {
	case types.RoleMaker:
		baseURL, wsURL = cfg.MakerBaseURL, cfg.MakerWSURL
		privateKey, proxyAddress, sigType = cfg.MakerPrivateKey, cfg.MakerProxyAddress, cfg.MakerSignatureType
		keysScan, keysTrade = cfg.MakerKeysScan, cfg.MakerKeysTrade
		wantsWS = cfg.OrderbookMode == config.OrderbookModeWS
	case types.RoleHedge:
		baseURL, wsURL = cfg.HedgeBaseURL, cfg.HedgeWSURL
		privateKey, proxyAddress, sigType = cfg.HedgePrivateKey, cfg.HedgeProxyAddress, cfg.HedgeSignatureType
		apiKey, apiSecret, apiPassphrase = cfg.HedgeAPIKey, cfg.HedgeAPISecret, cfg.HedgeAPIPassphrase
		wantsWS = cfg.HedgeOrderbookSrc == config.HedgeSourceWS
	}

	signer, err := clobsigner.NewEIP712Signer(clobsigner.Config{
		PrivateKey:    privateKey,
		ProxyAddress:  proxyAddress,
		SignatureType: sigType,
		ChainID:       cfg.ChainID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build %s signer: %w", role, err)
	}

	keys := keypool.New(append(append([]string{}, keysScan...), keysTrade...))

	marketCache, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000, // 10x expected max items (a venue's market catalogue rarely exceeds 100 entries)
		MaxCost:     100,
		BufferItems: 64,
		Logger:      logger.With(zap.String("component", "market-cache"), zap.String("role", string(role))),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build %s market cache: %w", role, err)
	}

	rest := clob.New(venue.Config{
		Role:           role,
		Name:           string(role),
		BaseURL:        baseURL,
		WSURL:          wsURL,
		APIKey:         apiKey,
		APISecret:      apiSecret,
		APIPassphrase:  apiPassphrase,
		PrivateKey:     privateKey,
		ProxyAddress:   proxyAddress,
		RequestTimeout: 10 * time.Second,
	}, signer, keys, logger.With(zap.String("component", "venue"), zap.String("role", string(role))), marketCache)

	if !wantsWS {
		return rest, nil, nil
	}

	pool := websocket.NewPool(websocket.PoolConfig{
		Size:                  wsPoolSize,
		WSUrl:                 wsURL,
		DialTimeout:           wsDialTimeout,
		PongTimeout:           wsPongTimeout,
		PingInterval:          wsPingInterval,
		ReconnectInitialDelay: wsReconnectInitial,
		ReconnectMaxDelay:     wsReconnectMax,
		ReconnectBackoffMult:  wsReconnectBackoffMult,
		MessageBufferSize:     wsMessageBufferSize,
		Logger:                logger.With(zap.String("component", "websocket-pool"), zap.String("role", string(role))),
	})

	return clob.NewWSClient(rest, pool, logger.With(zap.String("component", "venue-ws"), zap.String("role", string(role)))), pool, nil
}

func bookMessageChan(pool *websocket.Pool) <-chan *types.BookMessage {
	if pool == nil {
		return nil
	}
	return pool.MessageChan()
}

func setupAuditSink(cfg *config.Config, logger *zap.Logger) (storage.Sink, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresSink(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}
	return storage.NewConsoleSink(logger), nil
}

// setupWalletClient builds the on-chain wallet reader used by the circuit
// breaker and position tracker. The monitored address prefers the maker
// proxy address (the funded trading wallet) and falls back to the address
// derived from the maker private key, the standard
// POLYMARKET_PRIVATE_KEY-derived-address pattern.
func setupWalletClient(cfg *config.Config, logger *zap.Logger) (*wallet.Client, common.Address, bool) {
	address, ok := resolveWalletAddress(cfg)
	if !ok {
		logger.Warn("wallet-client-disabled", zap.String("reason", "no maker proxy address or private key configured"))
		return nil, common.Address{}, false
	}

	rpcURL := cfg.ChainRPCWSURL
	if rpcURL == "" {
		logger.Warn("wallet-client-disabled", zap.String("reason", "CHAIN_RPC_WS_URL not set"))
		return nil, common.Address{}, false
	}

	client, err := wallet.NewClient(rpcURL, logger.With(zap.String("component", "wallet")))
	if err != nil {
		logger.Warn("wallet-client-disabled", zap.Error(err))
		return nil, common.Address{}, false
	}
	return client, address, true
}

func resolveWalletAddress(cfg *config.Config) (common.Address, bool) {
	if cfg.WalletAddress != "" {
		return common.HexToAddress(cfg.WalletAddress), true
	}
	if cfg.MakerProxyAddress != "" {
		return common.HexToAddress(cfg.MakerProxyAddress), true
	}
	if cfg.MakerPrivateKey == "" {
		return common.Address{}, false
	}
	pk, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.MakerPrivateKey, "0x"))
	if err != nil {
		return common.Address{}, false
	}
	pub, ok := pk.Public().(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, false
	}
	return crypto.PubkeyToAddress(*pub), true
}

func setupCircuitBreaker(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	walletClient *wallet.Client,
	address common.Address,
	walletOK bool,
) *circuitbreaker.BalanceCircuitBreaker {
	if !cfg.CircuitBreakerEnabled {
		logger.Info("circuit-breaker-disabled", zap.String("reason", "CIRCUIT_BREAKER_ENABLED=false"))
		return nil
	}
	if !walletOK {
		logger.Warn("circuit-breaker-disabled", zap.String("reason", "no wallet client available"))
		return nil
	}

	breaker, err := circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:   cfg.CircuitBreakerCheckInterval,
		TradeMultiplier: cfg.CircuitBreakerTradeMultiplier,
		MinAbsolute:     cfg.CircuitBreakerMinAbsolute,
		HysteresisRatio: cfg.CircuitBreakerHysteresisRatio,
		WalletClient:    walletClient,
		Address:         address,
		Logger:          logger.With(zap.String("component", "circuitbreaker")),
	})
	if err != nil {
		logger.Warn("circuit-breaker-disabled", zap.Error(err))
		return nil
	}

	breaker.Start(ctx)
	logger.Info("circuit-breaker-enabled",
		zap.Duration("check-interval", cfg.CircuitBreakerCheckInterval),
		zap.Float64("trade-multiplier", cfg.CircuitBreakerTradeMultiplier),
		zap.Float64("min-absolute", cfg.CircuitBreakerMinAbsolute))
	return breaker
}

func setupChainWatcher(cfg *config.Config, logger *zap.Logger, address common.Address, walletOK bool) *chainevents.Watcher {
	if cfg.ExchangeContract == "" || cfg.ChainRPCWSURL == "" || !walletOK {
		logger.Info("chain-watcher-disabled", zap.String("reason", "EXCHANGE_CONTRACT_ADDRESS, CHAIN_RPC_WS_URL or wallet address not set"))
		return nil
	}

	return chainevents.New(chainevents.Config{
		RPCURL:          cfg.ChainRPCWSURL,
		ExchangeAddress: common.HexToAddress(cfg.ExchangeContract),
		WalletAddress:   address,
		Logger:          logger.With(zap.String("component", "chainevents")),
	})
}
