package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeArena/internal/adapters/logger"
)

var configKeys = []string{
	"STARTING_CASH", "MAX_TRADES_PER_ROUND", "PRICE_TOLERANCE", "COMMENTARY_MAX_LENGTH",
	"PRICE_SOURCE", "QUOTE_TIMEOUT_SECONDS", "ALPACA_API_KEY", "ALPACA_API_SECRET", "ALPACA_DATA_URL",
	"BINANCE_API_KEY", "BINANCE_API_SECRET", "BINANCE_QUOTE_ASSET", "IS_TESTNET",
	"DB_PATH", "LOG_LEVEL", "LOG_FORMAT", "HTTP_ADDR", "CORS_ALLOWED_ORIGINS",
}

// isolateEnv clears every config key and runs from an empty directory so no .env file is picked up.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "100000", cfg.StartingCash.String())
	assert.Equal(t, 5, cfg.MaxTradesPerRound)
	assert.Equal(t, "0.02", cfg.PriceTolerance.String())
	assert.Equal(t, 500, cfg.CommentaryMaxLength)
	assert.Equal(t, PriceSourceYahoo, cfg.PriceSource)
	assert.Equal(t, 10*time.Second, cfg.QuoteTimeout)
	assert.Equal(t, "USDT", cfg.BinanceQuoteAsset)
	assert.True(t, cfg.IsTestnet)
	assert.Equal(t, "./data/arena.db", cfg.DBPath)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, logger.FormatConsole, cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("STARTING_CASH", "25000.50")
	t.Setenv("MAX_TRADES_PER_ROUND", "3")
	t.Setenv("PRICE_TOLERANCE", "0.05")
	t.Setenv("PRICE_SOURCE", "Alpaca")
	t.Setenv("ALPACA_API_KEY", "key")
	t.Setenv("ALPACA_API_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://arena.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "25000.5", cfg.StartingCash.String())
	assert.Equal(t, 3, cfg.MaxTradesPerRound)
	assert.Equal(t, "0.05", cfg.PriceTolerance.String())
	assert.Equal(t, PriceSourceAlpaca, cfg.PriceSource)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.Equal(t, logger.FormatJSON, cfg.LogFormat)
	assert.Equal(t, []string{"http://localhost:3000", "https://arena.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg string
	}{
		{name: "negative cash", env: map[string]string{"STARTING_CASH": "-1"}, wantMsg: "STARTING_CASH must be positive"},
		{name: "garbage cash", env: map[string]string{"STARTING_CASH": "lots"}, wantMsg: "invalid STARTING_CASH"},
		{name: "zero trades", env: map[string]string{"MAX_TRADES_PER_ROUND": "0"}, wantMsg: "MAX_TRADES_PER_ROUND must be positive"},
		{name: "tolerance too large", env: map[string]string{"PRICE_TOLERANCE": "1.5"}, wantMsg: "PRICE_TOLERANCE"},
		{name: "unknown source", env: map[string]string{"PRICE_SOURCE": "bloomberg"}, wantMsg: "PRICE_SOURCE must be one of"},
		{name: "alpaca without keys", env: map[string]string{"PRICE_SOURCE": "alpaca"}, wantMsg: "ALPACA_API_KEY must be set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	isolateEnv(t)
	os.Unsetenv("MAX_TRADES_PER_ROUND")
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("MAX_TRADES_PER_ROUND=2\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MAX_TRADES_PER_ROUND") })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxTradesPerRound)
}
