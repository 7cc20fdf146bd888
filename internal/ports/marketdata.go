package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceSource resolves current reference prices.
// A missing quote is reported as ok=false with a nil error; errors are reserved for transport failures.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (price decimal.Decimal, ok bool, err error)
}

// YieldSource resolves trailing dividend yields as decimal fractions (0.025 = 2.5%).
type YieldSource interface {
	DividendYield(ctx context.Context, symbol string) (yield decimal.Decimal, ok bool, err error)
}

// MarketData combines both lookups, which most adapters provide together.
type MarketData interface {
	PriceSource
	YieldSource
}
