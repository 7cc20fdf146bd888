package yahoo

import (
	"context"
	"fmt"
	"strings"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"

	"tradeArena/internal/ports"
)

var (
	_ ports.PriceSource = (*Client)(nil)
	_ ports.YieldSource = (*Client)(nil)
)

// Client implements ports.PriceSource and ports.YieldSource on top of Yahoo Finance quotes.
type Client struct {
	logger      ports.Logger
	fetchQuote  func(symbol string) (*finance.Quote, error)
	fetchEquity func(symbol string) (*finance.Equity, error)
}

// New creates a Yahoo Finance market data client.
func New(logger ports.Logger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for Yahoo client")
	}
	return &Client{
		logger:      logger,
		fetchQuote:  quote.Get,
		fetchEquity: equity.Get,
	}, nil
}

// call runs a blocking lookup and abandons it when ctx is done.
func call[T any](ctx context.Context, fn func(string) (*T, error), symbol string) (*T, error) {
	type result struct {
		v   *T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(symbol)
		ch <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("lookup %s: %w: %w", symbol, ports.ErrTimeout, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("lookup %s: %w: %w", symbol, ports.ErrPriceSourceUnavailable, r.err)
		}
		return r.v, nil
	}
}

// Price returns the regular market price.
func (c *Client) Price(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	symbol = strings.ToUpper(symbol)
	q, err := call(ctx, c.fetchQuote, symbol)
	if err != nil {
		c.logger.Error(ctx, err, "Yahoo quote lookup failed", map[string]interface{}{"symbol": symbol})
		return decimal.Zero, false, err
	}
	if q == nil || q.RegularMarketPrice <= 0 {
		c.logger.Debug(ctx, "No Yahoo quote for symbol", map[string]interface{}{"symbol": symbol})
		return decimal.Zero, false, nil
	}
	return decimal.NewFromFloat(q.RegularMarketPrice), true, nil
}

// DividendYield returns the trailing annual dividend yield as a fraction.
// A listed equity that pays nothing reports a zero yield, not a missing one.
func (c *Client) DividendYield(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	symbol = strings.ToUpper(symbol)
	eq, err := call(ctx, c.fetchEquity, symbol)
	if err != nil {
		c.logger.Error(ctx, err, "Yahoo equity lookup failed", map[string]interface{}{"symbol": symbol})
		return decimal.Zero, false, err
	}
	if eq == nil {
		return decimal.Zero, false, nil
	}
	y := decimal.NewFromFloat(eq.TrailingAnnualDividendYield)
	if y.IsNegative() {
		return decimal.Zero, false, nil
	}
	return y, true, nil
}
