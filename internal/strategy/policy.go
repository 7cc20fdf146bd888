package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradeArena/internal/domain"
)

// Policy is the archetype-specific screening step run after the universal checks.
// The set of implementations is closed: only this package can add variants.
type Policy interface {
	// Archetype returns the tag this policy enforces.
	Archetype() domain.Archetype
	// Evaluate screens a proposal against the agent's current snapshot. It never mutates the agent.
	Evaluate(agent *domain.Agent, p domain.TradeProposal, mkt domain.MarketContext) domain.ValidationResult

	sealed()
}

var hundred = decimal.NewFromInt(100)

func pct(d decimal.Decimal) string {
	return d.Mul(hundred).StringFixed(1) + "%"
}

func pctLimit(d decimal.Decimal) string {
	return d.Mul(hundred).StringFixed(0) + "%"
}

// fractionOf returns part/whole; a non-positive whole yields fallback.
func fractionOf(part, whole, fallback decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return fallback
	}
	return part.Div(whole)
}

// Unconstrained admits everything.
type Unconstrained struct{}

func (Unconstrained) Archetype() domain.Archetype { return domain.ArchetypeUnconstrained }

func (Unconstrained) Evaluate(*domain.Agent, domain.TradeProposal, domain.MarketContext) domain.ValidationResult {
	return domain.Admitted()
}

func (Unconstrained) sealed() {}

// RestrictedUniverse limits trading to a fixed symbol universe with position-size and cash-floor limits.
type RestrictedUniverse struct {
	Universe            SymbolSet
	MaxPositionFraction decimal.NullDecimal
	MinCashFraction     decimal.NullDecimal
}

func (RestrictedUniverse) Archetype() domain.Archetype { return domain.ArchetypeTurtle }

func (r RestrictedUniverse) Evaluate(agent *domain.Agent, p domain.TradeProposal, _ domain.MarketContext) domain.ValidationResult {
	if !r.Universe.Contains(p.Symbol) {
		return domain.Rejected(domain.RejectionRestrictedUniverse,
			fmt.Sprintf("%s is outside the permitted universe of index constituents and major funds", p.Symbol))
	}
	if p.Side != domain.Buy {
		return domain.Admitted()
	}

	equity := agent.TotalEquity()
	tradeValue := p.Value()

	if r.MaxPositionFraction.Valid {
		existing := decimal.Zero
		if pos := agent.Position(p.Symbol); pos != nil {
			existing = pos.MarketValue()
		}
		share := fractionOf(existing.Add(tradeValue), equity, decimal.NewFromInt(1))
		if share.GreaterThan(r.MaxPositionFraction.Decimal) {
			return domain.Rejected(domain.RejectionPositionLimit,
				fmt.Sprintf("position in %s would be %s of equity, exceeding the %s maximum",
					p.Symbol, pct(share), pctLimit(r.MaxPositionFraction.Decimal)))
		}
	}

	if r.MinCashFraction.Valid {
		cashShare := fractionOf(agent.Cash.Sub(tradeValue), equity, decimal.Zero)
		if cashShare.LessThan(r.MinCashFraction.Decimal) {
			return domain.Rejected(domain.RejectionCashFloor,
				fmt.Sprintf("cash after the buy would be %s of equity, below the %s minimum",
					pct(cashShare), pctLimit(r.MinCashFraction.Decimal)))
		}
	}
	return domain.Admitted()
}

func (RestrictedUniverse) sealed() {}

// AlwaysInvested caps how much of equity may sit in cash after a sale.
type AlwaysInvested struct {
	MaxCashFraction decimal.Decimal
}

func (AlwaysInvested) Archetype() domain.Archetype { return domain.ArchetypeDegen }

func (a AlwaysInvested) Evaluate(agent *domain.Agent, p domain.TradeProposal, _ domain.MarketContext) domain.ValidationResult {
	if p.Side != domain.Sell {
		return domain.Admitted()
	}
	cashShare := fractionOf(agent.Cash.Add(p.Value()), agent.TotalEquity(), decimal.NewFromInt(1))
	if cashShare.GreaterThan(a.MaxCashFraction) {
		return domain.Rejected(domain.RejectionCashCeiling,
			fmt.Sprintf("cash after the sale would be %s of equity, exceeding the %s maximum",
				pct(cashShare), pctLimit(a.MaxCashFraction)))
	}
	return domain.Admitted()
}

func (AlwaysInvested) sealed() {}

// Income only buys dividend payers and stays away from crypto proxies and leveraged products.
type Income struct {
	MinDividendYield decimal.Decimal
	DisallowCrypto   bool
	DisallowLeverage bool
	Crypto           SymbolSet
	Leveraged        SymbolSet
}

func (Income) Archetype() domain.Archetype { return domain.ArchetypeBoomer }

func (i Income) Evaluate(_ *domain.Agent, p domain.TradeProposal, mkt domain.MarketContext) domain.ValidationResult {
	if p.Side != domain.Buy {
		return domain.Admitted()
	}
	if i.DisallowCrypto && i.Crypto.Contains(p.Symbol) {
		return domain.Rejected(domain.RejectionCryptoRestricted,
			fmt.Sprintf("%s is crypto-related and not permitted", p.Symbol))
	}
	if i.DisallowLeverage && i.Leveraged.Contains(p.Symbol) {
		return domain.Rejected(domain.RejectionLeverageRestricted,
			fmt.Sprintf("%s is a leveraged or speculative product and not permitted", p.Symbol))
	}
	if !mkt.DividendYield.Valid {
		return domain.Rejected(domain.RejectionDataUnavailable,
			fmt.Sprintf("no dividend yield data for %s; income buys require a known yield", p.Symbol))
	}
	if mkt.DividendYield.Decimal.LessThan(i.MinDividendYield) {
		return domain.Rejected(domain.RejectionDividendYield,
			fmt.Sprintf("%s yields %s, below the %s minimum",
				p.Symbol, mkt.DividendYield.Decimal.Mul(hundred).StringFixed(2)+"%", pct(i.MinDividendYield)))
	}
	return domain.Admitted()
}

func (Income) sealed() {}

// CitationRequired demands a technical-analysis justification on every trade.
type CitationRequired struct{}

func (CitationRequired) Archetype() domain.Archetype { return domain.ArchetypeQuant }

func (CitationRequired) Evaluate(_ *domain.Agent, p domain.TradeProposal, mkt domain.MarketContext) domain.ValidationResult {
	text := mkt.JustificationText()
	if text == "" {
		return domain.Rejected(domain.RejectionCitationMissing,
			fmt.Sprintf("%s %s carries no justification; a technical indicator must be cited", p.Side, p.Symbol))
	}
	if _, ok := CitesTechnicalSignal(text); !ok {
		return domain.Rejected(domain.RejectionCitationMissing,
			"justification does not cite a recognised technical indicator (RSI, MACD, moving average, etc.)")
	}
	return domain.Admitted()
}

func (CitationRequired) sealed() {}

// Hedged caps non-hedge exposure and never lets the hedge book go to zero.
type Hedged struct {
	Hedges              SymbolSet
	MaxNonHedgeFraction decimal.NullDecimal
	RequiresHedge       bool
}

func (Hedged) Archetype() domain.Archetype { return domain.ArchetypeDoomer }

func (h Hedged) Evaluate(agent *domain.Agent, p domain.TradeProposal, _ domain.MarketContext) domain.ValidationResult {
	isHedge := h.Hedges.Contains(p.Symbol)

	if p.Side == domain.Buy && !isHedge && h.MaxNonHedgeFraction.Valid {
		exposure := p.Value()
		for _, pos := range agent.Positions {
			if !h.Hedges.Contains(pos.Symbol) {
				exposure = exposure.Add(pos.MarketValue())
			}
		}
		share := fractionOf(exposure, agent.TotalEquity(), decimal.NewFromInt(1))
		if share.GreaterThan(h.MaxNonHedgeFraction.Decimal) {
			return domain.Rejected(domain.RejectionExposureLimit,
				fmt.Sprintf("non-hedge equity would be %s of equity, exceeding the %s maximum",
					pct(share), pctLimit(h.MaxNonHedgeFraction.Decimal)))
		}
	}

	if p.Side == domain.Sell && isHedge && h.RequiresHedge {
		remaining := decimal.Zero
		for _, pos := range agent.Positions {
			if !h.Hedges.Contains(pos.Symbol) {
				continue
			}
			shares := pos.Shares
			if pos.Symbol == p.Symbol {
				shares = shares.Sub(p.Shares)
			}
			if shares.IsPositive() {
				remaining = remaining.Add(shares)
			}
		}
		if !remaining.IsPositive() {
			return domain.Rejected(domain.RejectionHedgeRequired,
				fmt.Sprintf("selling %s would leave no hedge position; at least one must be held", p.Symbol))
		}
	}
	return domain.Admitted()
}

func (Hedged) sealed() {}
