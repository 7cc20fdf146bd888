// Package ledger applies admitted trades to an agent's cash and positions.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeArena/internal/domain"
	"tradeArena/internal/ports"
	"tradeArena/internal/risk"
)

// Config holds the ledger's dependencies.
type Config struct {
	Logger ports.Logger
	Now    func() time.Time // Optional clock, defaults to time.Now
	NewID  func() string    // Optional id generator, defaults to random UUIDs
}

// Ledger mutates agent portfolios. Callers must not apply to the same agent concurrently.
type Ledger struct {
	logger ports.Logger
	now    func() time.Time
	newID  func() string
}

// New creates a Ledger.
func New(cfg Config) (*Ledger, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for ledger")
	}
	l := &Ledger{logger: cfg.Logger, now: cfg.Now, newID: cfg.NewID}
	if l.now == nil {
		l.now = time.Now
	}
	if l.newID == nil {
		l.newID = func() string { return uuid.NewString() }
	}
	return l, nil
}

// Apply executes an admitted proposal against agent at the proposal's reference price.
// It fails with ports.ErrNotAdmitted, ErrAdmissionMismatch, ErrAdmissionSpent or
// ErrAdmissionStale when the ticket cannot be honoured; the agent is untouched in that case.
func (l *Ledger) Apply(ctx context.Context, agent *domain.Agent, adm *risk.Admission, round int, justification *string) (*domain.ExecutionRecord, error) {
	op := "Ledger.Apply"
	p, err := adm.Redeem(agent)
	if err != nil {
		l.logger.Error(ctx, err, op+": refusing to apply trade")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if agent.Positions == nil {
		agent.Positions = map[string]*domain.Position{}
	}

	switch p.Side {
	case domain.Buy:
		l.buy(agent, p)
	case domain.Sell:
		l.sell(agent, p)
	default:
		return nil, fmt.Errorf("%s: unknown side %q: %w", op, p.Side, ports.ErrInvalidRequest)
	}

	now := l.now()
	agent.RecomputeEquity()
	agent.UpdatedAt = now

	rec := &domain.ExecutionRecord{
		ID:            l.newID(),
		AgentID:       agent.ID,
		Symbol:        p.Symbol,
		Side:          p.Side,
		Shares:        p.Shares,
		Price:         p.Price,
		Round:         round,
		Justification: justification,
		ExecutedAt:    now,
	}
	l.logger.Info(ctx, "Trade executed", map[string]interface{}{
		"agent":         agent.ID,
		"side":          string(p.Side),
		"symbol":        p.Symbol,
		"shares":        p.Shares.String(),
		"price":         p.Price.String(),
		"cash":          agent.Cash.StringFixed(2),
		"equity":        agent.Equity.StringFixed(2),
		"round":         round,
		"admitted_at":   adm.IssuedAt().UTC().Format(time.RFC3339Nano),
		"admission_age": now.Sub(adm.IssuedAt()).String(),
	})
	return rec, nil
}

func (l *Ledger) buy(agent *domain.Agent, p domain.TradeProposal) {
	agent.Cash = agent.Cash.Sub(p.Value())

	pos, ok := agent.Positions[p.Symbol]
	if !ok {
		agent.Positions[p.Symbol] = &domain.Position{
			Symbol:    p.Symbol,
			Shares:    p.Shares,
			AvgCost:   p.Price,
			LastPrice: p.Price,
		}
		return
	}
	total := pos.Shares.Add(p.Shares)
	pos.AvgCost = pos.Shares.Mul(pos.AvgCost).Add(p.Shares.Mul(p.Price)).Div(total)
	pos.Shares = total
	pos.LastPrice = p.Price
}

func (l *Ledger) sell(agent *domain.Agent, p domain.TradeProposal) {
	agent.Cash = agent.Cash.Add(p.Value())

	pos, ok := agent.Positions[p.Symbol]
	if !ok {
		return
	}
	pos.Shares = pos.Shares.Sub(p.Shares)
	pos.LastPrice = p.Price
	if !pos.Shares.IsPositive() {
		delete(agent.Positions, p.Symbol)
	}
}

// MarkToMarket refreshes the last known price of every held position found in prices and
// recomputes equity. Non-positive prices are ignored. Returns the number of positions updated.
func (l *Ledger) MarkToMarket(agent *domain.Agent, prices map[string]decimal.Decimal) int {
	updated := 0
	for symbol, pos := range agent.Positions {
		price, ok := prices[symbol]
		if !ok || !price.IsPositive() {
			continue
		}
		pos.LastPrice = price
		updated++
	}
	agent.RecomputeEquity()
	return updated
}
