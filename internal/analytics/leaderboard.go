package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradeArena/internal/domain"
)

// Standing is one row of the leaderboard
type Standing struct {
	Rank      int
	AgentID   string
	Name      string
	Archetype domain.Archetype
	Cash      decimal.Decimal
	Equity    decimal.Decimal
	ReturnPct decimal.Decimal // Percent, rounded to two places
	Positions int
}

// Leaderboard ranks agents by freshly recomputed equity, highest first. Ties share a rank
// and are listed by agent id.
func Leaderboard(agents []*domain.Agent, startingCash decimal.Decimal) []Standing {
	standings := make([]Standing, 0, len(agents))
	for _, a := range agents {
		equity := a.TotalEquity()
		ret := decimal.Zero
		if startingCash.IsPositive() {
			ret = equity.Sub(startingCash).Div(startingCash).Mul(decimal.NewFromInt(100)).Round(2)
		}
		standings = append(standings, Standing{
			AgentID:   a.ID,
			Name:      a.Name,
			Archetype: a.Archetype,
			Cash:      a.Cash,
			Equity:    equity,
			ReturnPct: ret,
			Positions: len(a.Positions),
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		if !standings[i].Equity.Equal(standings[j].Equity) {
			return standings[i].Equity.GreaterThan(standings[j].Equity)
		}
		return standings[i].AgentID < standings[j].AgentID
	})

	for i := range standings {
		if i > 0 && standings[i].Equity.Equal(standings[i-1].Equity) {
			standings[i].Rank = standings[i-1].Rank
			continue
		}
		standings[i].Rank = i + 1
	}
	return standings
}
