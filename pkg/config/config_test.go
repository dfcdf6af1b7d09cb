package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"LOG_LEVEL", "ACCOUNT_NAME", "HTTP_PORT", "DATA_DIR",
		"MAKER_VENUE_BASE_URL", "MAKER_VENUE_WS_URL", "MAKER_VENUE_KEYS_SCAN", "MAKER_VENUE_KEYS_TRADE",
		"ORDERBOOK_MODE", "HEDGE_VENUE_BASE_URL", "HEDGE_VENUE_WS_URL", "HEDGE_ORDERBOOK_SOURCE",
		"STALE_CALC_MS", "STALE_UI_MS", "POLL_MS", "MIN_HEDGE_NOTIONAL_USD", "MIN_HEDGE_QTY_SHARES",
		"MAX_PAUSE_COUNT", "EXPOSURE_THRESHOLD", "STORAGE_MODE",
	}
	for _, k := range keys {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, OrderbookModeWS, cfg.OrderbookMode)
	assert.Equal(t, HedgeSourceWS, cfg.HedgeOrderbookSrc)
	assert.Equal(t, 10_000*time.Millisecond, cfg.StaleCalcMS)
	assert.Equal(t, 30_000*time.Millisecond, cfg.StaleUIMS)
	assert.Equal(t, 1.0, cfg.MinHedgeNotionalUSD)
	assert.Equal(t, 5, cfg.MaxPauseCount)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STALE_CALC_MS", "5000")
	t.Setenv("STALE_UI_MS", "15000")
	t.Setenv("MAKER_VENUE_KEYS_SCAN", "k1, k2 ,k3")
	t.Setenv("MAX_PAUSE_COUNT", "8")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 5_000*time.Millisecond, cfg.StaleCalcMS)
	assert.Equal(t, 15_000*time.Millisecond, cfg.StaleUIMS)
	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.MakerKeysScan)
	assert.Equal(t, 8, cfg.MaxPauseCount)
}

func TestValidate_RejectsStaleWindowInversion(t *testing.T) {
	clearEnv(t)
	t.Setenv("STALE_CALC_MS", "30000")
	t.Setenv("STALE_UI_MS", "10000")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestValidate_RejectsUnknownOrderbookMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDERBOOK_MODE", "carrier-pigeon")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestValidate_RejectsZeroMaxPauseCount(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_PAUSE_COUNT", "0")

	_, err := LoadFromEnv()
	require.Error(t, err)
}
