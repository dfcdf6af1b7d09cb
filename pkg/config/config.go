package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// OrderbookMode selects the maker-venue book source.
type OrderbookMode string

const (
	OrderbookModeWS     OrderbookMode = "ws"
	OrderbookModeLegacy OrderbookMode = "legacy"
)

// HedgeBookSource selects the hedge-venue book source.
type HedgeBookSource string

const (
	HedgeSourceWS   HedgeBookSource = "ws"
	HedgeSourceREST HedgeBookSource = "rest"
)

// Config holds all application configuration, sourced from the process
// environment with sane defaults for every field.
type Config struct {
	// Application.
	LogLevel    string
	AccountName string
	HTTPPort    string
	DataDir     string

	// Maker venue (resting GTC orders).
	MakerBaseURL       string
	MakerWSURL         string
	MakerKeysScan      []string
	MakerKeysTrade     []string
	MakerPrivateKey    string
	MakerProxyAddress  string
	MakerSignatureType int
	OrderbookMode      OrderbookMode

	// Hedge venue (IOC takeout).
	HedgeBaseURL        string
	HedgeWSURL          string
	HedgeAPIKey         string
	HedgeAPISecret      string
	HedgeAPIPassphrase  string
	HedgePrivateKey     string
	HedgeProxyAddress   string
	HedgeSignatureType  int
	HedgeOrderbookSrc   HedgeBookSource

	// Chain (signing + fill confirmation).
	ChainID int64

	// Freshness & polling.
	StaleCalcMS       time.Duration
	StaleUIMS         time.Duration
	PollInterval      time.Duration
	WSHealthCheckMS   time.Duration
	WSDisconnectPause time.Duration
	WSResumeDelay     time.Duration

	// Hedge sizing thresholds.
	MinHedgeNotionalUSD float64
	MinHedgeQtyShares   float64

	// Executor safety valves.
	MaxPauseCount    int
	UnwindMaxRetries int // reserved Open Questions

	// Exposure monitor.
	ExposureThreshold float64
	ExposureCheckMS   time.Duration

	// Dashboard surface.
	DashboardPort     string
	DashboardAPIToken string

	// Circuit breaker configuration.
	CircuitBreakerEnabled         bool
	CircuitBreakerCheckInterval   time.Duration
	CircuitBreakerTradeMultiplier float64
	CircuitBreakerMinAbsolute     float64
	CircuitBreakerHysteresisRatio float64

	// On-chain fill confirmation (expansion wssFilled source).
	ChainRPCWSURL    string
	ExchangeContract string
	WalletAddress    string

	// Storage (expansion, optional audit sink).
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults
// and validates it, failing fast per the Config error kind.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		LogLevel:    getEnvOrDefault("LOG_LEVEL", "info"),
		AccountName: getEnvOrDefault("ACCOUNT_NAME", "default"),
		HTTPPort:    getEnvOrDefault("HTTP_PORT", "8080"),
		DataDir:     getEnvOrDefault("DATA_DIR", "data"),

		MakerBaseURL:       getEnvOrDefault("MAKER_VENUE_BASE_URL", "https://clob.maker-venue.example/v1"),
		MakerWSURL:         getEnvOrDefault("MAKER_VENUE_WS_URL", "wss://ws.maker-venue.example/ws/market"),
		MakerKeysScan:      getListOrDefault("MAKER_VENUE_KEYS_SCAN", nil),
		MakerKeysTrade:     getListOrDefault("MAKER_VENUE_KEYS_TRADE", nil),
		MakerPrivateKey:    os.Getenv("MAKER_VENUE_PRIVATE_KEY"),
		MakerProxyAddress:  os.Getenv("MAKER_VENUE_PROXY_ADDRESS"),
		MakerSignatureType: getIntOrDefault("MAKER_VENUE_SIGNATURE_TYPE", 0),
		OrderbookMode:      OrderbookMode(getEnvOrDefault("ORDERBOOK_MODE", string(OrderbookModeWS))),

		HedgeBaseURL:       getEnvOrDefault("HEDGE_VENUE_BASE_URL", "https://clob.hedge-venue.example/v1"),
		HedgeWSURL:         getEnvOrDefault("HEDGE_VENUE_WS_URL", "wss://ws.hedge-venue.example/ws/market"),
		HedgeAPIKey:        os.Getenv("HEDGE_VENUE_API_KEY"),
		HedgeAPISecret:     os.Getenv("HEDGE_VENUE_API_SECRET"),
		HedgeAPIPassphrase: os.Getenv("HEDGE_VENUE_API_PASSPHRASE"),
		HedgePrivateKey:    os.Getenv("HEDGE_VENUE_PRIVATE_KEY"),
		HedgeProxyAddress:  os.Getenv("HEDGE_VENUE_PROXY_ADDRESS"),
		HedgeSignatureType: getIntOrDefault("HEDGE_VENUE_SIGNATURE_TYPE", 0),
		HedgeOrderbookSrc:  HedgeBookSource(getEnvOrDefault("HEDGE_ORDERBOOK_SOURCE", string(HedgeSourceWS))),

		ChainID: int64(getIntOrDefault("CHAIN_ID", 137)),

		StaleCalcMS:       getMillisOrDefault("STALE_CALC_MS", 10_000),
		StaleUIMS:         getMillisOrDefault("STALE_UI_MS", 30_000),
		PollInterval:      getMillisOrDefault("POLL_MS", 3_000),
		WSHealthCheckMS:   getMillisOrDefault("WS_HEALTH_CHECK_MS", 5_000),
		WSDisconnectPause: getMillisOrDefault("WS_DISCONNECT_PAUSE_MS", 2_000),
		WSResumeDelay:     getMillisOrDefault("WS_RESUME_DELAY_MS", 1_000),

		MinHedgeNotionalUSD: getFloat64OrDefault("MIN_HEDGE_NOTIONAL_USD", 1.0),
		MinHedgeQtyShares:   getFloat64OrDefault("MIN_HEDGE_QTY_SHARES", 1.0),

		MaxPauseCount:    getIntOrDefault("MAX_PAUSE_COUNT", 5),
		UnwindMaxRetries: getIntOrDefault("UNWIND_MAX_RETRIES", 3),

		ExposureThreshold: getFloat64OrDefault("EXPOSURE_THRESHOLD", 10.0),
		ExposureCheckMS:   getMillisOrDefault("EXPOSURE_CHECK_MS", 30_000),

		DashboardPort:     getEnvOrDefault("DASHBOARD_PORT", "8081"),
		DashboardAPIToken: os.Getenv("DASHBOARD_API_TOKEN"),

		CircuitBreakerEnabled:         getBoolOrDefault("CIRCUIT_BREAKER_ENABLED", true),
		CircuitBreakerCheckInterval:   getDurationOrDefault("CIRCUIT_BREAKER_CHECK_INTERVAL", 300*time.Second),
		CircuitBreakerTradeMultiplier: getFloat64OrDefault("CIRCUIT_BREAKER_TRADE_MULTIPLIER", 3.0),
		CircuitBreakerMinAbsolute:     getFloat64OrDefault("CIRCUIT_BREAKER_MIN_ABSOLUTE", 5.0),
		CircuitBreakerHysteresisRatio: getFloat64OrDefault("CIRCUIT_BREAKER_HYSTERESIS_RATIO", 1.5),

		ChainRPCWSURL:    getEnvOrDefault("CHAIN_RPC_WS_URL", "wss://bsc-ws-node.example/ws"),
		ExchangeContract: getEnvOrDefault("EXCHANGE_CONTRACT_ADDRESS", ""),
		WalletAddress:    getEnvOrDefault("WALLET_ADDRESS", ""),

		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "arb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "arb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are internally consistent.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT cannot be empty")
	}
	if c.MakerBaseURL == "" || c.MakerWSURL == "" {
		return errors.New("maker venue base/WS URL cannot be empty")
	}
	if c.HedgeBaseURL == "" || c.HedgeWSURL == "" {
		return errors.New("hedge venue base/WS URL cannot be empty")
	}
	if c.OrderbookMode != OrderbookModeWS && c.OrderbookMode != OrderbookModeLegacy {
		return fmt.Errorf("ORDERBOOK_MODE must be %q or %q, got %q", OrderbookModeWS, OrderbookModeLegacy, c.OrderbookMode)
	}
	if c.HedgeOrderbookSrc != HedgeSourceWS && c.HedgeOrderbookSrc != HedgeSourceREST {
		return fmt.Errorf("HEDGE_ORDERBOOK_SOURCE must be %q or %q, got %q", HedgeSourceWS, HedgeSourceREST, c.HedgeOrderbookSrc)
	}
	if c.StaleCalcMS <= 0 || c.StaleUIMS <= 0 {
		return errors.New("STALE_CALC_MS and STALE_UI_MS must be positive")
	}
	if c.StaleUIMS < c.StaleCalcMS {
		return errors.New("STALE_UI_MS must be >= STALE_CALC_MS")
	}
	if c.MinHedgeNotionalUSD <= 0 || c.MinHedgeQtyShares <= 0 {
		return errors.New("MIN_HEDGE_NOTIONAL_USD and MIN_HEDGE_QTY_SHARES must be positive")
	}
	if c.MaxPauseCount < 1 {
		return fmt.Errorf("MAX_PAUSE_COUNT must be at least 1, got %d", c.MaxPauseCount)
	}
	if c.ExposureThreshold <= 0 {
		return fmt.Errorf("EXPOSURE_THRESHOLD must be positive, got %f", c.ExposureThreshold)
	}
	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getListOrDefault(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getIntOrDefault(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

// getMillisOrDefault reads a raw millisecond integer env var, falling back to defaultMS.
func getMillisOrDefault(key string, defaultMS int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(defaultMS) * time.Millisecond
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return time.Duration(defaultMS) * time.Millisecond
	}
	return time.Duration(n) * time.Millisecond
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}
