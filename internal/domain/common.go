package domain

import "strings"

// OrderSide represents the side of a trade (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// ParseSide converts a case-insensitive side token into an OrderSide.
func ParseSide(s string) (OrderSide, bool) {
	switch OrderSide(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, true
	case Sell:
		return Sell, true
	default:
		return "", false
	}
}

// Archetype tags the behavioural policy an agent is bound to.
type Archetype string

const (
	ArchetypeTurtle        Archetype = "turtle" // Restricted universe, position and cash limits
	ArchetypeDegen         Archetype = "degen"  // Always invested
	ArchetypeBoomer        Archetype = "boomer" // Income, dividend payers only
	ArchetypeQuant         Archetype = "quant"  // Every trade must cite a technical signal
	ArchetypeDoomer        Archetype = "doomer" // Defensive, must keep a hedge
	ArchetypeUnconstrained Archetype = "unconstrained"
)

// RejectionCategory classifies why a proposal was not admitted.
type RejectionCategory string

const (
	RejectionNone                  RejectionCategory = ""
	RejectionMalformed             RejectionCategory = "malformed"
	RejectionDataUnavailable       RejectionCategory = "data_unavailable"
	RejectionStalePrice            RejectionCategory = "stale_price"
	RejectionInsufficientFunds     RejectionCategory = "insufficient_funds"
	RejectionInsufficientInventory RejectionCategory = "insufficient_inventory"
	RejectionRestrictedUniverse    RejectionCategory = "restricted_universe"
	RejectionPositionLimit         RejectionCategory = "position_limit"
	RejectionCashFloor             RejectionCategory = "cash_floor"
	RejectionCashCeiling           RejectionCategory = "cash_ceiling"
	RejectionCryptoRestricted      RejectionCategory = "crypto_restricted"
	RejectionLeverageRestricted    RejectionCategory = "leverage_restricted"
	RejectionDividendYield         RejectionCategory = "dividend_yield"
	RejectionCitationMissing       RejectionCategory = "citation_missing"
	RejectionExposureLimit         RejectionCategory = "exposure_limit"
	RejectionHedgeRequired         RejectionCategory = "hedge_required"
)

// IsDataUnavailable reports whether the rejection stems from missing market data
// rather than a business-rule violation.
func (c RejectionCategory) IsDataUnavailable() bool {
	return c == RejectionDataUnavailable
}
