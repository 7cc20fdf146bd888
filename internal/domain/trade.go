package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TradeProposal is a trade suggested by an agent that has not been screened yet.
type TradeProposal struct {
	Side   OrderSide
	Symbol string
	Shares decimal.Decimal
	Price  decimal.Decimal // Reference price stated by the agent
}

// Value is shares times the stated price.
func (p TradeProposal) Value() decimal.Decimal {
	return p.Shares.Mul(p.Price)
}

func (p TradeProposal) String() string {
	return fmt.Sprintf("%s %s %s @ %s", p.Side, p.Shares.String(), p.Symbol, p.Price.StringFixed(2))
}

// ExecutionRecord is emitted for every proposal applied to the ledger.
type ExecutionRecord struct {
	ID            string
	AgentID       string
	Symbol        string
	Side          OrderSide
	Shares        decimal.Decimal
	Price         decimal.Decimal // Fill price
	Round         int
	Justification *string
	ExecutedAt    time.Time
}

// Value is shares times the fill price.
func (e ExecutionRecord) Value() decimal.Decimal {
	return e.Shares.Mul(e.Price)
}

// RejectionRecord is emitted for every proposal that failed validation.
type RejectionRecord struct {
	ID         string
	AgentID    string
	Symbol     string
	Side       OrderSide
	Shares     decimal.Decimal
	Price      decimal.Decimal
	Round      int
	Category   RejectionCategory
	Reason     string
	RejectedAt time.Time
}

// EquitySnapshot captures an agent's equity at the end of a round.
type EquitySnapshot struct {
	AgentID    string
	Round      int
	Equity     decimal.Decimal
	Cash       decimal.Decimal
	CapturedAt time.Time
}
