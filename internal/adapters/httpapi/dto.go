package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"tradeArena/internal/analytics"
	"tradeArena/internal/app"
	"tradeArena/internal/domain"
	"tradeArena/internal/strategy"
)

type positionDTO struct {
	Symbol        string          `json:"symbol"`
	Shares        decimal.Decimal `json:"shares"`
	AvgCost       decimal.Decimal `json:"avg_cost"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	MarketValue   decimal.Decimal `json:"market_value"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

type agentDTO struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Archetype      string          `json:"archetype"`
	Profile        string          `json:"profile"`
	Cash           decimal.Decimal `json:"cash"`
	Equity         decimal.Decimal `json:"equity"`
	ReturnPct      decimal.Decimal `json:"return_pct"`
	Enabled        bool            `json:"enabled"`
	LastRound      int             `json:"last_round"`
	LastCommentary *string         `json:"last_commentary"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Positions      []positionDTO   `json:"positions"`
}

func toAgentDTO(a *domain.Agent, profile *strategy.Profile, startingCash decimal.Decimal) agentDTO {
	equity := a.TotalEquity()
	out := agentDTO{
		ID:             a.ID,
		Name:           a.Name,
		Archetype:      string(a.Archetype),
		Profile:        profile.Name,
		Cash:           a.Cash,
		Equity:         equity,
		Enabled:        a.Enabled,
		LastRound:      a.LastRound,
		LastCommentary: a.LastCommentary,
		UpdatedAt:      a.UpdatedAt,
		Positions:      toPositionDTOs(a),
	}
	if startingCash.IsPositive() {
		out.ReturnPct = equity.Sub(startingCash).Div(startingCash).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return out
}

func toPositionDTOs(a *domain.Agent) []positionDTO {
	out := make([]positionDTO, 0, len(a.Positions))
	for _, symbol := range a.Symbols() {
		p := a.Positions[symbol]
		out = append(out, positionDTO{
			Symbol:        p.Symbol,
			Shares:        p.Shares,
			AvgCost:       p.AvgCost,
			CurrentPrice:  p.MarkPrice(),
			MarketValue:   p.MarketValue(),
			UnrealizedPnL: p.UnrealizedPnL(),
		})
	}
	return out
}

type executionDTO struct {
	ID            string          `json:"id"`
	AgentID       string          `json:"agent_id"`
	Symbol        string          `json:"symbol"`
	Side          string          `json:"side"`
	Shares        decimal.Decimal `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	Value         decimal.Decimal `json:"value"`
	Round         int             `json:"round"`
	Justification *string         `json:"justification"`
	ExecutedAt    time.Time       `json:"executed_at"`
}

func toExecutionDTOs(recs []*domain.ExecutionRecord) []executionDTO {
	out := make([]executionDTO, 0, len(recs))
	for _, e := range recs {
		out = append(out, executionDTO{
			ID:            e.ID,
			AgentID:       e.AgentID,
			Symbol:        e.Symbol,
			Side:          string(e.Side),
			Shares:        e.Shares,
			Price:         e.Price,
			Value:         e.Value(),
			Round:         e.Round,
			Justification: e.Justification,
			ExecutedAt:    e.ExecutedAt,
		})
	}
	return out
}

type rejectionDTO struct {
	ID         string          `json:"id"`
	AgentID    string          `json:"agent_id"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Shares     decimal.Decimal `json:"shares"`
	Price      decimal.Decimal `json:"price"`
	Round      int             `json:"round"`
	Category   string          `json:"category"`
	Reason     string          `json:"reason"`
	RejectedAt time.Time       `json:"rejected_at"`
}

func toRejectionDTOs(recs []*domain.RejectionRecord) []rejectionDTO {
	out := make([]rejectionDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, rejectionDTO{
			ID:         r.ID,
			AgentID:    r.AgentID,
			Symbol:     r.Symbol,
			Side:       string(r.Side),
			Shares:     r.Shares,
			Price:      r.Price,
			Round:      r.Round,
			Category:   string(r.Category),
			Reason:     r.Reason,
			RejectedAt: r.RejectedAt,
		})
	}
	return out
}

type roundReportDTO struct {
	AgentID    string          `json:"agent_id"`
	Round      int             `json:"round"`
	Commentary *string         `json:"commentary"`
	Proposals  int             `json:"proposals"`
	Truncated  int             `json:"truncated"`
	Unpriced   int             `json:"unpriced"`
	Executions []executionDTO  `json:"executions"`
	Rejections []rejectionDTO  `json:"rejections"`
	Cash       decimal.Decimal `json:"cash"`
	Equity     decimal.Decimal `json:"equity"`
	Positions  []positionDTO   `json:"positions"`
}

func toRoundReportDTO(r *app.RoundReport) roundReportDTO {
	out := roundReportDTO{
		AgentID:    r.AgentID,
		Round:      r.Round,
		Commentary: r.Commentary,
		Proposals:  r.Proposals,
		Truncated:  r.Truncated,
		Unpriced:   r.Unpriced,
		Executions: toExecutionDTOs(r.Executions),
		Rejections: toRejectionDTOs(r.Rejections),
		Cash:       r.Cash,
		Equity:     r.Equity,
		Positions:  []positionDTO{},
	}
	if r.Portfolio != nil {
		out.Positions = toPositionDTOs(r.Portfolio)
	}
	return out
}

type arenaStateDTO struct {
	Status    string    `json:"status"`
	Round     int       `json:"round"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toArenaStateDTO(s *domain.ArenaState) arenaStateDTO {
	return arenaStateDTO{Status: string(s.Status), Round: s.Round, UpdatedAt: s.UpdatedAt}
}

type standingDTO struct {
	Rank      int             `json:"rank"`
	AgentID   string          `json:"agent_id"`
	Name      string          `json:"name"`
	Archetype string          `json:"archetype"`
	Cash      decimal.Decimal `json:"cash"`
	Equity    decimal.Decimal `json:"equity"`
	ReturnPct decimal.Decimal `json:"return_pct"`
	Positions int             `json:"positions"`
}

func toStandingDTO(s analytics.Standing) standingDTO {
	return standingDTO{
		Rank:      s.Rank,
		AgentID:   s.AgentID,
		Name:      s.Name,
		Archetype: string(s.Archetype),
		Cash:      s.Cash,
		Equity:    s.Equity,
		ReturnPct: s.ReturnPct,
		Positions: s.Positions,
	}
}

type profileDTO struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Kind                string              `json:"kind"`
	Rules               []string            `json:"rules"`
	MaxPositionFraction decimal.NullDecimal `json:"max_position_fraction"`
	MinCashFraction     decimal.NullDecimal `json:"min_cash_fraction"`
	MaxCashFraction     decimal.NullDecimal `json:"max_cash_fraction"`
	RestrictedUniverse  bool                `json:"restricted_universe"`
	DisallowCrypto      bool                `json:"disallow_crypto"`
	DisallowLeverage    bool                `json:"disallow_leverage"`
	MinDividendYield    decimal.NullDecimal `json:"min_dividend_yield"`
	RequiresCitation    bool                `json:"requires_technical_citation"`
	MaxNonHedgeFraction decimal.NullDecimal `json:"max_non_hedge_fraction"`
	RequiresHedge       bool                `json:"requires_hedge"`
}

func toProfileDTO(p *strategy.Profile) profileDTO {
	return profileDTO{
		ID:                  string(p.ID),
		Name:                p.Name,
		Kind:                string(p.Kind),
		Rules:               p.Rules,
		MaxPositionFraction: p.MaxPositionFraction,
		MinCashFraction:     p.MinCashFraction,
		MaxCashFraction:     p.MaxCashFraction,
		RestrictedUniverse:  p.RestrictedUniverse,
		DisallowCrypto:      p.DisallowCrypto,
		DisallowLeverage:    p.DisallowLeverage,
		MinDividendYield:    p.MinDividendYield,
		RequiresCitation:    p.RequiresTechnicalCitation,
		MaxNonHedgeFraction: p.MaxNonHedgeFraction,
		RequiresHedge:       p.RequiresHedge,
	}
}

type performanceDTO struct {
	AgentID          string    `json:"agent_id"`
	Rounds           int       `json:"rounds"`
	StartingEquity   float64   `json:"starting_equity"`
	FinalEquity      float64   `json:"final_equity"`
	PeakEquity       float64   `json:"peak_equity"`
	TotalReturn      float64   `json:"total_return"`
	MaxDrawdown      float64   `json:"max_drawdown"`
	MeanRoundReturn  float64   `json:"mean_round_return"`
	SharpeRatio      float64   `json:"sharpe_ratio"`
	BestRoundReturn  float64   `json:"best_round_return"`
	WorstRoundReturn float64   `json:"worst_round_return"`
	EquityCurve      []float64 `json:"equity_curve"`

	TotalTrades int             `json:"total_trades"`
	Buys        int             `json:"buys"`
	Sells       int             `json:"sells"`
	Turnover    decimal.Decimal `json:"turnover"`
}

func toPerformanceDTO(p *app.Performance) performanceDTO {
	m := p.Metrics
	out := performanceDTO{
		AgentID:          p.Agent.ID,
		Rounds:           m.Rounds,
		StartingEquity:   m.StartingEquity,
		FinalEquity:      m.FinalEquity,
		PeakEquity:       m.PeakEquity,
		TotalReturn:      m.TotalReturn,
		MaxDrawdown:      m.MaxDrawdown,
		MeanRoundReturn:  m.MeanRoundReturn,
		SharpeRatio:      m.SharpeRatio,
		BestRoundReturn:  m.BestRoundReturn,
		WorstRoundReturn: m.WorstRoundReturn,
		EquityCurve:      make([]float64, 0, len(m.EquityCurve)),
		TotalTrades:      p.Trades.TotalTrades,
		Buys:             p.Trades.Buys,
		Sells:            p.Trades.Sells,
		Turnover:         p.Trades.Turnover,
	}
	for _, pt := range m.EquityCurve {
		out.EquityCurve = append(out.EquityCurve, pt.Value)
	}
	return out
}
