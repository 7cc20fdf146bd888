package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"tradeArena/internal/adapters/logger" // Import the logger package for LogLevel
)

// Price source names accepted by PRICE_SOURCE.
const (
	PriceSourceYahoo   = "yahoo"
	PriceSourceAlpaca  = "alpaca"
	PriceSourceBinance = "binance"
)

// Config holds all application configuration.
type Config struct {
	// Arena
	StartingCash        decimal.Decimal
	MaxTradesPerRound   int
	PriceTolerance      decimal.Decimal // Max relative gap between stated and reference price (0.02 = 2%)
	CommentaryMaxLength int

	// Market data
	PriceSource  string
	QuoteTimeout time.Duration

	// Alpaca market data
	AlpacaAPIKey    string
	AlpacaAPISecret string
	AlpacaDataURL   string

	// Binance API
	BinanceAPIKey     string
	BinanceSecretKey  string
	BinanceQuoteAsset string
	IsTestnet         bool

	// Database
	DBPath string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat logger.Format

	// HTTP
	HTTPAddr           string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Arena
	cfg.StartingCash, err = getEnvAsDecimalRequired("STARTING_CASH", "100000")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid STARTING_CASH: %v", err))
	} else if !cfg.StartingCash.IsPositive() {
		errs = append(errs, "STARTING_CASH must be positive")
	}

	cfg.MaxTradesPerRound, err = getEnvAsIntRequired("MAX_TRADES_PER_ROUND", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_TRADES_PER_ROUND: %v", err))
	} else if cfg.MaxTradesPerRound <= 0 {
		errs = append(errs, "MAX_TRADES_PER_ROUND must be positive")
	}

	cfg.PriceTolerance, err = getEnvAsDecimalRequired("PRICE_TOLERANCE", "0.02")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid PRICE_TOLERANCE: %v", err))
	} else if !cfg.PriceTolerance.IsPositive() || cfg.PriceTolerance.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = append(errs, "PRICE_TOLERANCE must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.CommentaryMaxLength = getEnvAsInt("COMMENTARY_MAX_LENGTH", 500)
	if cfg.CommentaryMaxLength <= 3 {
		errs = append(errs, "COMMENTARY_MAX_LENGTH must be greater than 3")
	}

	// Market data
	cfg.PriceSource = strings.ToLower(getEnv("PRICE_SOURCE", PriceSourceYahoo))
	switch cfg.PriceSource {
	case PriceSourceYahoo, PriceSourceAlpaca, PriceSourceBinance:
	default:
		errs = append(errs, fmt.Sprintf("PRICE_SOURCE must be one of %s, %s, %s", PriceSourceYahoo, PriceSourceAlpaca, PriceSourceBinance))
	}

	quoteTimeoutSeconds := getEnvAsInt("QUOTE_TIMEOUT_SECONDS", 10)
	if quoteTimeoutSeconds <= 0 {
		errs = append(errs, "QUOTE_TIMEOUT_SECONDS must be positive")
	}
	cfg.QuoteTimeout = time.Duration(quoteTimeoutSeconds) * time.Second

	cfg.AlpacaAPIKey = getEnv("ALPACA_API_KEY", "")
	cfg.AlpacaAPISecret = getEnv("ALPACA_API_SECRET", "")
	cfg.AlpacaDataURL = getEnv("ALPACA_DATA_URL", "")
	if cfg.PriceSource == PriceSourceAlpaca {
		if cfg.AlpacaAPIKey == "" {
			errs = append(errs, "ALPACA_API_KEY must be set when PRICE_SOURCE=alpaca")
		}
		if cfg.AlpacaAPISecret == "" {
			errs = append(errs, "ALPACA_API_SECRET must be set when PRICE_SOURCE=alpaca")
		}
	}

	// Binance public tickers work without keys
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.BinanceQuoteAsset = strings.ToUpper(getEnv("BINANCE_QUOTE_ASSET", "USDT"))
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/arena.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFormat = logger.ParseFormat(getEnv("LOG_FORMAT", string(logger.FormatConsole)))

	// HTTP
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.CORSAllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"})

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsDecimalRequired(key, defaultValue string) (decimal.Decimal, error) {
	valueStr := getEnv(key, defaultValue)
	value, err := decimal.NewFromString(strings.TrimSpace(valueStr))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
