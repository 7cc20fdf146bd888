package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Position represents a holding of one symbol inside an agent's portfolio.
// A Position only exists while Shares is strictly positive.
type Position struct {
	Symbol    string          // Ticker symbol (e.g., "AAPL")
	Shares    decimal.Decimal // Share count, may be fractional
	AvgCost   decimal.Decimal // Quantity-weighted average purchase price
	LastPrice decimal.Decimal // Last known price, zero when unknown
}

// MarkPrice returns the freshest known price for the position, falling back to the average cost.
func (p *Position) MarkPrice() decimal.Decimal {
	if p.LastPrice.IsPositive() {
		return p.LastPrice
	}
	return p.AvgCost
}

// MarketValue is shares times the mark price.
func (p *Position) MarketValue() decimal.Decimal {
	return p.Shares.Mul(p.MarkPrice())
}

// CostBasis is shares times the average cost.
func (p *Position) CostBasis() decimal.Decimal {
	return p.Shares.Mul(p.AvgCost)
}

// UnrealizedPnL is zero until a price has been observed.
func (p *Position) UnrealizedPnL() decimal.Decimal {
	if !p.LastPrice.IsPositive() {
		return decimal.Zero
	}
	return p.MarketValue().Sub(p.CostBasis())
}

// Agent is an autonomous trader bound to one archetype, owning its own cash and positions.
type Agent struct {
	ID             string
	Name           string
	Archetype      Archetype
	Cash           decimal.Decimal
	Positions      map[string]*Position
	Equity         decimal.Decimal // Refreshed after every ledger mutation; see TotalEquity
	LastCommentary *string
	LastRound      int // Last round played, zero when none
	Enabled        bool
	UpdatedAt      time.Time
}

// NewAgent creates an enabled agent holding only cash.
func NewAgent(id, name string, archetype Archetype, cash decimal.Decimal) *Agent {
	return &Agent{
		ID:        id,
		Name:      name,
		Archetype: archetype,
		Cash:      cash,
		Positions: map[string]*Position{},
		Equity:    cash,
		Enabled:   true,
	}
}

// Position returns the held position for symbol, or nil.
func (a *Agent) Position(symbol string) *Position {
	if a.Positions == nil {
		return nil
	}
	return a.Positions[symbol]
}

// SharesOf returns the held share count for symbol; a missing position counts as zero.
func (a *Agent) SharesOf(symbol string) decimal.Decimal {
	if pos := a.Position(symbol); pos != nil {
		return pos.Shares
	}
	return decimal.Zero
}

// PositionValue sums the market value of all positions.
func (a *Agent) PositionValue() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range a.Positions {
		total = total.Add(pos.MarketValue())
	}
	return total
}

// TotalEquity recomputes cash plus position value. It never reads the cached Equity field.
func (a *Agent) TotalEquity() decimal.Decimal {
	return a.Cash.Add(a.PositionValue())
}

// RecomputeEquity refreshes the cached Equity field and returns it.
func (a *Agent) RecomputeEquity() decimal.Decimal {
	a.Equity = a.TotalEquity()
	return a.Equity
}

// Symbols returns the held symbols in lexical order.
func (a *Agent) Symbols() []string {
	symbols := make([]string, 0, len(a.Positions))
	for symbol := range a.Positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// Clone returns a deep copy of the agent.
func (a *Agent) Clone() *Agent {
	out := *a
	out.Positions = make(map[string]*Position, len(a.Positions))
	for symbol, pos := range a.Positions {
		p := *pos
		out.Positions[symbol] = &p
	}
	if a.LastCommentary != nil {
		c := *a.LastCommentary
		out.LastCommentary = &c
	}
	return &out
}
