package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradeArena/internal/domain"
	"tradeArena/internal/ports"
	"tradeArena/internal/strategy"
)

// DefaultPriceTolerance is the maximum relative gap between a stated and a reference price.
var DefaultPriceTolerance = decimal.RequireFromString("0.02")

// Config holds configuration for the admission validator.
type Config struct {
	PriceTolerance decimal.Decimal // Zero selects DefaultPriceTolerance
	Logger         ports.Logger
	Now            func() time.Time // Optional clock, defaults to time.Now
}

// Validator screens trade proposals. It only reads agent state.
type Validator struct {
	tolerance decimal.Decimal
	catalog   *strategy.Catalog
	logger    ports.Logger
	now       func() time.Time
}

// Decision is the outcome of validating one proposal.
type Decision struct {
	domain.ValidationResult
	Profile   domain.Archetype
	admission *Admission
}

// Admission returns the ticket for an admitted proposal, nil when rejected.
func (d Decision) Admission() *Admission {
	return d.admission
}

// NewValidator creates a validator bound to a catalog.
func NewValidator(cfg Config, catalog *strategy.Catalog) (*Validator, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for validator")
	}
	if catalog == nil {
		return nil, fmt.Errorf("strategy catalog is required for validator")
	}
	tolerance := cfg.PriceTolerance
	if tolerance.IsZero() {
		tolerance = DefaultPriceTolerance
	}
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("price tolerance must not be negative, got %s", tolerance)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Validator{tolerance: tolerance, catalog: catalog, logger: cfg.Logger, now: now}, nil
}

// Tolerance returns the configured price tolerance.
func (v *Validator) Tolerance() decimal.Decimal {
	return v.tolerance
}

// Validate runs the universal checks and then the archetype policy, stopping at the first failure.
func (v *Validator) Validate(ctx context.Context, agent *domain.Agent, p domain.TradeProposal, mkt domain.MarketContext) Decision {
	if agent == nil {
		return Decision{ValidationResult: domain.Rejected(domain.RejectionDataUnavailable, "no portfolio snapshot supplied")}
	}
	profile := v.catalog.ProfileFor(agent.Archetype)

	result := v.checkUniversal(agent, p, mkt)
	if result.Admit {
		result = profile.Policy.Evaluate(agent, p, mkt)
	}

	decision := Decision{ValidationResult: result, Profile: profile.ID}
	fields := map[string]interface{}{
		"agent":   agent.ID,
		"profile": string(profile.ID),
		"side":    string(p.Side),
		"symbol":  p.Symbol,
		"shares":  p.Shares.String(),
		"price":   p.Price.String(),
	}
	if !result.Admit {
		fields["category"] = string(result.Category)
		fields["reason"] = result.Reason
		v.logger.Info(ctx, "Trade rejected", fields)
		return decision
	}

	decision.admission = newAdmission(agent, p, v.now())
	v.logger.Debug(ctx, "Trade admitted", fields)
	return decision
}

func (v *Validator) checkUniversal(agent *domain.Agent, p domain.TradeProposal, mkt domain.MarketContext) domain.ValidationResult {
	if p.Side != domain.Buy && p.Side != domain.Sell {
		return domain.Rejected(domain.RejectionMalformed, fmt.Sprintf("unknown side %q", p.Side))
	}
	if !p.Shares.IsPositive() || !p.Price.IsPositive() {
		return domain.Rejected(domain.RejectionMalformed, "share quantity and price must be positive")
	}

	// Price presence
	if !mkt.Price.Valid || !mkt.Price.Decimal.IsPositive() {
		return domain.Rejected(domain.RejectionDataUnavailable, fmt.Sprintf("no price data for %s", p.Symbol))
	}
	reference := mkt.Price.Decimal

	// Price tolerance
	gap := p.Price.Sub(reference).Abs().Div(reference)
	if gap.GreaterThan(v.tolerance) {
		return domain.Rejected(domain.RejectionStalePrice,
			fmt.Sprintf("price %s too far from current %s (%s%% diff, tolerance %s%%)",
				p.Price.StringFixed(2), reference.StringFixed(2),
				gap.Mul(decimal.NewFromInt(100)).StringFixed(1),
				v.tolerance.Mul(decimal.NewFromInt(100)).StringFixed(1)))
	}

	switch p.Side {
	case domain.Buy:
		cost := p.Value()
		if cost.GreaterThan(agent.Cash) {
			return domain.Rejected(domain.RejectionInsufficientFunds,
				fmt.Sprintf("insufficient cash: need $%s, have $%s", cost.StringFixed(2), agent.Cash.StringFixed(2)))
		}
	case domain.Sell:
		held := agent.SharesOf(p.Symbol)
		if held.LessThan(p.Shares) {
			return domain.Rejected(domain.RejectionInsufficientInventory,
				fmt.Sprintf("insufficient shares of %s: need %s, have %s", p.Symbol, p.Shares, held))
		}
	}
	return domain.Admitted()
}
