package cli

import (
	"context"
	"fmt"

	"tradeArena/config"
	"tradeArena/internal/adapters/alpacaclient"
	"tradeArena/internal/adapters/binanceclient"
	"tradeArena/internal/adapters/logger"
	"tradeArena/internal/adapters/sqlite"
	"tradeArena/internal/adapters/yahoo"
	"tradeArena/internal/app"
	"tradeArena/internal/ledger"
	"tradeArena/internal/ports"
	"tradeArena/internal/risk"
	"tradeArena/internal/strategy"
)

// runtime holds the wired application for one command invocation.
type runtime struct {
	cfg     *config.Config
	logger  *logger.ZeroLogger
	repo    *sqlite.Repository
	prices  ports.PriceSource
	yields  ports.YieldSource
	service *app.RoundService
}

// newPriceSource selects the configured quote provider.
func newPriceSource(cfg *config.Config, log ports.Logger, yahooClient *yahoo.Client) (ports.PriceSource, error) {
	switch cfg.PriceSource {
	case config.PriceSourceAlpaca:
		return alpacaclient.New(alpacaclient.Config{
			APIKey:    cfg.AlpacaAPIKey,
			APISecret: cfg.AlpacaAPISecret,
			BaseURL:   cfg.AlpacaDataURL,
			Logger:    log,
		})
	case config.PriceSourceBinance:
		return binanceclient.New(binanceclient.Config{
			APIKey:     cfg.BinanceAPIKey,
			SecretKey:  cfg.BinanceSecretKey,
			UseTestnet: cfg.IsTestnet,
			QuoteAsset: cfg.BinanceQuoteAsset,
			Logger:     log,
		})
	case config.PriceSourceYahoo:
		return yahooClient, nil
	default:
		return nil, fmt.Errorf("unknown price source %q: %w", cfg.PriceSource, ports.ErrConfigurationError)
	}
}

// bootstrap loads configuration and wires every component. The caller must close().
func bootstrap() (*runtime, error) {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Initialize Logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := context.Background()
	appLogger.Debug(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database repository: %w", err)
	}

	// 4. Market data. Yahoo is the only dividend yield provider.
	yahooClient, err := yahoo.New(appLogger)
	if err != nil {
		repo.Close()
		return nil, err
	}
	prices, err := newPriceSource(cfg, appLogger, yahooClient)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize price source: %w", err)
	}

	// 5. Domain components
	catalog := strategy.NewCatalog()
	validator, err := risk.NewValidator(risk.Config{PriceTolerance: cfg.PriceTolerance, Logger: appLogger}, catalog)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize validator: %w", err)
	}
	ldg, err := ledger.New(ledger.Config{Logger: appLogger})
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	// 6. Initialize Application Service
	service, err := app.NewRoundService(cfg, appLogger, repo, repo, repo, prices, yahooClient, catalog, validator, ldg)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize round service: %w", err)
	}

	return &runtime{
		cfg:     cfg,
		logger:  appLogger,
		repo:    repo,
		prices:  prices,
		yields:  yahooClient,
		service: service,
	}, nil
}

func (rt *runtime) close() {
	if err := rt.repo.Close(); err != nil {
		rt.logger.Error(context.Background(), err, "Error closing database repository")
	}
}
