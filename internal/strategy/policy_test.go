package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"tradeArena/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func agentWith(archetype domain.Archetype, cash string, positions ...*domain.Position) *domain.Agent {
	a := domain.NewAgent("a1", "Agent", archetype, d(cash))
	for _, p := range positions {
		a.Positions[p.Symbol] = p
	}
	a.RecomputeEquity()
	return a
}

func pos(symbol, shares, price string) *domain.Position {
	return &domain.Position{Symbol: symbol, Shares: d(shares), AvgCost: d(price), LastPrice: d(price)}
}

func proposal(side domain.OrderSide, shares, symbol, price string) domain.TradeProposal {
	return domain.TradeProposal{Side: side, Symbol: symbol, Shares: d(shares), Price: d(price)}
}

func TestRestrictedUniverse_Evaluate(t *testing.T) {
	policy := NewCatalog().ProfileFor(domain.ArchetypeTurtle).Policy

	tests := []struct {
		name         string
		agent        *domain.Agent
		proposal     domain.TradeProposal
		wantAdmit    bool
		wantCategory domain.RejectionCategory
		wantReason   string
	}{
		{
			name:         "non-member rejected regardless of size",
			agent:        agentWith(domain.ArchetypeTurtle, "100000"),
			proposal:     proposal(domain.Buy, "1", "GME", "20"),
			wantCategory: domain.RejectionRestrictedUniverse,
		},
		{
			name:         "non-member sell also rejected",
			agent:        agentWith(domain.ArchetypeTurtle, "90000", pos("GME", "10", "20")),
			proposal:     proposal(domain.Sell, "1", "GME", "20"),
			wantCategory: domain.RejectionRestrictedUniverse,
		},
		{
			name:         "ten percent buy against five percent max",
			agent:        agentWith(domain.ArchetypeTurtle, "100000"),
			proposal:     proposal(domain.Buy, "100", "AAPL", "100"),
			wantCategory: domain.RejectionPositionLimit,
			wantReason:   "5%",
		},
		{
			name:         "existing holding counts toward the limit",
			agent:        agentWith(domain.ArchetypeTurtle, "96000", pos("AAPL", "40", "100")),
			proposal:     proposal(domain.Buy, "20", "AAPL", "100"),
			wantCategory: domain.RejectionPositionLimit,
		},
		{
			name:         "cash floor breached",
			agent:        agentWith(domain.ArchetypeTurtle, "32000", pos("MSFT", "170", "400")),
			proposal:     proposal(domain.Buy, "30", "AAPL", "100"),
			wantCategory: domain.RejectionCashFloor,
			wantReason:   "30%",
		},
		{
			name:      "small buy within both limits",
			agent:     agentWith(domain.ArchetypeTurtle, "100000"),
			proposal:  proposal(domain.Buy, "40", "AAPL", "100"),
			wantAdmit: true,
		},
		{
			name:      "member sell skips size checks",
			agent:     agentWith(domain.ArchetypeTurtle, "50000", pos("SPY", "100", "500")),
			proposal:  proposal(domain.Sell, "100", "SPY", "500"),
			wantAdmit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Evaluate(tt.agent, tt.proposal, domain.PriceAt(tt.proposal.Price))
			assert.Equal(t, tt.wantAdmit, got.Admit)
			assert.Equal(t, tt.wantCategory, got.Category)
			if tt.wantReason != "" {
				assert.Contains(t, got.Reason, tt.wantReason)
			}
		})
	}
}

func TestAlwaysInvested_Evaluate(t *testing.T) {
	policy := NewCatalog().ProfileFor(domain.ArchetypeDegen).Policy

	// equity 100k: 10k cash, 90k TQQQ
	agent := agentWith(domain.ArchetypeDegen, "10000", pos("TQQQ", "900", "100"))

	got := policy.Evaluate(agent, proposal(domain.Sell, "100", "TQQQ", "100"), domain.PriceAt(d("100")))
	assert.True(t, got.Admit, "cash at exactly the limit is allowed")

	got = policy.Evaluate(agent, proposal(domain.Sell, "101", "TQQQ", "100"), domain.PriceAt(d("100")))
	assert.False(t, got.Admit)
	assert.Equal(t, domain.RejectionCashCeiling, got.Category)
	assert.Contains(t, got.Reason, "20%")

	got = policy.Evaluate(agent, proposal(domain.Buy, "10", "SOXL", "30"), domain.PriceAt(d("30")))
	assert.True(t, got.Admit, "buys are never capped")
}

func TestIncome_Evaluate(t *testing.T) {
	policy := NewCatalog().ProfileFor(domain.ArchetypeBoomer).Policy
	agent := agentWith(domain.ArchetypeBoomer, "100000")

	tests := []struct {
		name         string
		proposal     domain.TradeProposal
		market       domain.MarketContext
		wantAdmit    bool
		wantCategory domain.RejectionCategory
	}{
		{
			name:         "crypto proxy",
			proposal:     proposal(domain.Buy, "10", "COIN", "200"),
			market:       domain.PriceAt(d("200")).WithYield(d("0.05")),
			wantCategory: domain.RejectionCryptoRestricted,
		},
		{
			name:         "leveraged fund",
			proposal:     proposal(domain.Buy, "10", "TQQQ", "50"),
			market:       domain.PriceAt(d("50")).WithYield(d("0.02")),
			wantCategory: domain.RejectionLeverageRestricted,
		},
		{
			name:         "yield absent",
			proposal:     proposal(domain.Buy, "10", "KO", "60"),
			market:       domain.PriceAt(d("60")),
			wantCategory: domain.RejectionDataUnavailable,
		},
		{
			name:         "yield below minimum",
			proposal:     proposal(domain.Buy, "10", "AMZN", "180"),
			market:       domain.PriceAt(d("180")).WithYield(d("0")),
			wantCategory: domain.RejectionDividendYield,
		},
		{
			name:      "dividend payer",
			proposal:  proposal(domain.Buy, "10", "KO", "60"),
			market:    domain.PriceAt(d("60")).WithYield(d("0.031")),
			wantAdmit: true,
		},
		{
			name:      "sells are not screened",
			proposal:  proposal(domain.Sell, "10", "COIN", "200"),
			market:    domain.PriceAt(d("200")),
			wantAdmit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Evaluate(agent, tt.proposal, tt.market)
			assert.Equal(t, tt.wantAdmit, got.Admit)
			assert.Equal(t, tt.wantCategory, got.Category)
		})
	}
}

func TestIncome_AbsentYieldReasonDiffersFromLowYield(t *testing.T) {
	policy := NewCatalog().ProfileFor(domain.ArchetypeBoomer).Policy
	agent := agentWith(domain.ArchetypeBoomer, "100000")
	p := proposal(domain.Buy, "1", "KO", "60")

	absent := policy.Evaluate(agent, p, domain.PriceAt(d("60")))
	low := policy.Evaluate(agent, p, domain.PriceAt(d("60")).WithYield(d("0.001")))

	assert.NotEqual(t, absent.Reason, low.Reason)
	assert.True(t, absent.Category.IsDataUnavailable())
	assert.False(t, low.Category.IsDataUnavailable())
}

func TestCitationRequired_Evaluate(t *testing.T) {
	policy := NewCatalog().ProfileFor(domain.ArchetypeQuant).Policy
	agent := agentWith(domain.ArchetypeQuant, "100000")
	p := proposal(domain.Buy, "10", "NVDA", "140")

	tests := []struct {
		name      string
		market    domain.MarketContext
		wantAdmit bool
	}{
		{name: "no justification", market: domain.PriceAt(d("140"))},
		{name: "blank justification", market: domain.PriceAt(d("140")).WithJustification("   ")},
		{name: "no keyword", market: domain.PriceAt(d("140")).WithJustification("I just like the stock")},
		{name: "keyword upper case", market: domain.PriceAt(d("140")).WithJustification("RSI at 28, deeply oversold"), wantAdmit: true},
		{name: "multi-word keyword", market: domain.PriceAt(d("140")).WithJustification("Price bounced off the 200-Day Moving Average"), wantAdmit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Evaluate(agent, p, tt.market)
			assert.Equal(t, tt.wantAdmit, got.Admit)
			if !tt.wantAdmit {
				assert.Equal(t, domain.RejectionCitationMissing, got.Category)
			}
		})
	}
}

func TestHedged_Evaluate(t *testing.T) {
	policy := NewCatalog().ProfileFor(domain.ArchetypeDoomer).Policy

	t.Run("selling the only hedge is rejected", func(t *testing.T) {
		agent := agentWith(domain.ArchetypeDoomer, "90000", pos("SQQQ", "100", "100"))
		got := policy.Evaluate(agent, proposal(domain.Sell, "100", "SQQQ", "100"), domain.PriceAt(d("100")))
		assert.False(t, got.Admit)
		assert.Equal(t, domain.RejectionHedgeRequired, got.Category)
	})

	t.Run("partial sell of the only hedge is admitted", func(t *testing.T) {
		agent := agentWith(domain.ArchetypeDoomer, "90000", pos("SQQQ", "100", "100"))
		got := policy.Evaluate(agent, proposal(domain.Sell, "99", "SQQQ", "100"), domain.PriceAt(d("100")))
		assert.True(t, got.Admit)
	})

	t.Run("selling one of two hedges is admitted", func(t *testing.T) {
		agent := agentWith(domain.ArchetypeDoomer, "80000", pos("SQQQ", "100", "100"), pos("GLD", "50", "200"))
		got := policy.Evaluate(agent, proposal(domain.Sell, "100", "SQQQ", "100"), domain.PriceAt(d("100")))
		assert.True(t, got.Admit)
	})

	t.Run("selling a non-hedge is unaffected", func(t *testing.T) {
		agent := agentWith(domain.ArchetypeDoomer, "90000", pos("AAPL", "10", "100"))
		got := policy.Evaluate(agent, proposal(domain.Sell, "10", "AAPL", "100"), domain.PriceAt(d("100")))
		assert.True(t, got.Admit)
	})

	t.Run("non-hedge exposure capped", func(t *testing.T) {
		agent := agentWith(domain.ArchetypeDoomer, "75000", pos("AAPL", "250", "100"))
		got := policy.Evaluate(agent, proposal(domain.Buy, "51", "MSFT", "100"), domain.PriceAt(d("100")))
		assert.False(t, got.Admit)
		assert.Equal(t, domain.RejectionExposureLimit, got.Category)
		assert.Contains(t, got.Reason, "30%")
	})

	t.Run("hedge buys ignore the exposure cap", func(t *testing.T) {
		agent := agentWith(domain.ArchetypeDoomer, "75000", pos("AAPL", "250", "100"))
		got := policy.Evaluate(agent, proposal(domain.Buy, "500", "UVXY", "20"), domain.PriceAt(d("20")))
		assert.True(t, got.Admit)
	})
}

func TestUnconstrained_AlwaysAdmits(t *testing.T) {
	policy := NewCatalog().ProfileFor("gary").Policy
	agent := agentWith(domain.ArchetypeUnconstrained, "0")
	got := policy.Evaluate(agent, proposal(domain.Buy, "1000000", "GME", "1"), domain.MarketContext{})
	assert.True(t, got.Admit)
}
