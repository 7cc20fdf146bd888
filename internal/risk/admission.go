package risk

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradeArena/internal/domain"
	"tradeArena/internal/ports"
)

// Admission is the ticket the Validator issues for an admitted proposal.
// The ledger only applies proposals presented with a live Admission, so applying an
// unvalidated trade is impossible outside this package.
type Admission struct {
	agentID  string
	proposal domain.TradeProposal
	issuedAt time.Time

	// Portfolio fingerprint at validation time.
	cash decimal.Decimal
	held decimal.Decimal

	spent bool
}

func newAdmission(agent *domain.Agent, p domain.TradeProposal, now time.Time) *Admission {
	return &Admission{
		agentID:  agent.ID,
		proposal: p,
		issuedAt: now,
		cash:     agent.Cash,
		held:     agent.SharesOf(p.Symbol),
	}
}

// AgentID returns the agent the ticket was issued for.
func (a *Admission) AgentID() string { return a.agentID }

// Proposal returns the admitted proposal.
func (a *Admission) Proposal() domain.TradeProposal { return a.proposal }

// IssuedAt returns when validation admitted the proposal.
func (a *Admission) IssuedAt() time.Time { return a.issuedAt }

// Redeem consumes the ticket for agent and returns the proposal to apply.
// A ticket can be redeemed once, only by the agent it was issued to, and only while the
// agent's cash and holding of the symbol are unchanged since validation.
func (a *Admission) Redeem(agent *domain.Agent) (domain.TradeProposal, error) {
	if a == nil || a.agentID == "" {
		return domain.TradeProposal{}, ports.ErrNotAdmitted
	}
	if agent == nil || agent.ID != a.agentID {
		return domain.TradeProposal{}, fmt.Errorf("%w: issued for %q", ports.ErrAdmissionMismatch, a.agentID)
	}
	if a.spent {
		return domain.TradeProposal{}, ports.ErrAdmissionSpent
	}
	if !agent.Cash.Equal(a.cash) || !agent.SharesOf(a.proposal.Symbol).Equal(a.held) {
		return domain.TradeProposal{}, ports.ErrAdmissionStale
	}
	a.spent = true
	return a.proposal, nil
}
