package alpacaclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"tradeArena/internal/ports"
)

// quoteFetcher is the subset of *marketdata.Client the adapter needs.
type quoteFetcher interface {
	GetLatestQuote(symbol string, req marketdata.GetLatestQuoteRequest) (*marketdata.Quote, error)
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// Config holds configuration for the Alpaca market data adapter.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string // Empty selects the library default
	Logger    ports.Logger
}

// Client implements ports.PriceSource using Alpaca's latest stock quotes.
type Client struct {
	md     quoteFetcher
	logger ports.Logger
}

// New creates an Alpaca price source.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Alpaca client")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("alpaca credentials missing: %w", ports.ErrConfigurationError)
	}
	md := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
	})
	return &Client{md: md, logger: cfg.Logger}, nil
}

// Price returns the bid/ask midpoint, falling back to the last trade when one side of the book is empty.
// The marketdata client takes no context, so ctx is only checked before the call.
func (c *Client) Price(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, false, fmt.Errorf("price %s: %w: %w", symbol, ports.ErrContextCanceled, err)
	}
	symbol = strings.ToUpper(symbol)

	q, err := c.md.GetLatestQuote(symbol, marketdata.GetLatestQuoteRequest{})
	if err != nil {
		err = fmt.Errorf("latest quote %s: %w: %w", symbol, ports.ErrPriceSourceUnavailable, err)
		c.logger.Error(ctx, err, "Alpaca quote lookup failed", map[string]interface{}{"symbol": symbol})
		return decimal.Zero, false, err
	}
	if q != nil && q.BidPrice > 0 && q.AskPrice > 0 {
		bid := decimal.NewFromFloat(q.BidPrice)
		ask := decimal.NewFromFloat(q.AskPrice)
		return bid.Add(ask).Div(decimal.NewFromInt(2)), true, nil
	}

	t, err := c.md.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		err = fmt.Errorf("latest trade %s: %w: %w", symbol, ports.ErrPriceSourceUnavailable, err)
		c.logger.Error(ctx, err, "Alpaca trade lookup failed", map[string]interface{}{"symbol": symbol})
		return decimal.Zero, false, err
	}
	if t == nil || t.Price <= 0 {
		c.logger.Debug(ctx, "No Alpaca price for symbol", map[string]interface{}{"symbol": symbol})
		return decimal.Zero, false, nil
	}
	return decimal.NewFromFloat(t.Price), true, nil
}
