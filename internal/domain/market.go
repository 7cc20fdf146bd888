package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MarketContext carries the externally resolved inputs needed to screen one proposal.
type MarketContext struct {
	Price         decimal.NullDecimal // Current reference price, invalid when unavailable
	DividendYield decimal.NullDecimal // Decimal fraction (0.025 = 2.5%), invalid when unknown
	Justification *string             // Free-text reasoning supplied with the trade
}

// PriceAt builds a context with only a reference price.
func PriceAt(price decimal.Decimal) MarketContext {
	return MarketContext{Price: decimal.NewNullDecimal(price)}
}

// WithYield returns a copy of the context carrying a dividend yield.
func (m MarketContext) WithYield(y decimal.Decimal) MarketContext {
	m.DividendYield = decimal.NewNullDecimal(y)
	return m
}

// WithJustification returns a copy of the context carrying a justification.
func (m MarketContext) WithJustification(text string) MarketContext {
	m.Justification = &text
	return m
}

// JustificationText returns the trimmed justification, empty when absent.
func (m MarketContext) JustificationText() string {
	if m.Justification == nil {
		return ""
	}
	return strings.TrimSpace(*m.Justification)
}

// ValidationResult is the admit/reject outcome for one proposal.
type ValidationResult struct {
	Admit    bool
	Category RejectionCategory
	Reason   string
}

// Admitted is the passing result.
func Admitted() ValidationResult {
	return ValidationResult{Admit: true}
}

// Rejected builds a failing result.
func Rejected(category RejectionCategory, reason string) ValidationResult {
	return ValidationResult{Category: category, Reason: reason}
}
