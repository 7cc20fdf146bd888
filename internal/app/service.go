package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradeArena/config"
	"tradeArena/internal/analytics"
	"tradeArena/internal/domain"
	"tradeArena/internal/extractor"
	"tradeArena/internal/ledger"
	"tradeArena/internal/ports"
	"tradeArena/internal/risk"
	"tradeArena/internal/strategy"
)

// RoundReport summarises one processed round for one agent.
type RoundReport struct {
	AgentID    string
	Round      int
	Commentary *string
	Proposals  int // Proposals considered, at most MaxTradesPerRound
	Truncated  int // Proposals past the per-round cap, ignored
	Unpriced   int // Rejections caused by missing market data
	Executions []*domain.ExecutionRecord
	Rejections []*domain.RejectionRecord
	Cash       decimal.Decimal
	Equity     decimal.Decimal
	Portfolio  *domain.Agent // Committed state after the round
}

// Performance bundles an agent's metrics for reporting.
type Performance struct {
	Agent   *domain.Agent
	Metrics *analytics.PerformanceMetrics
	Trades  *analytics.TradeStats
}

// RoundService orchestrates extraction, validation, execution and persistence of agent rounds.
type RoundService struct {
	cfg       *config.Config
	logger    ports.Logger
	agents    ports.AgentRepository
	trades    ports.TradeRepository
	arena     ports.ArenaRepository
	prices    ports.PriceSource
	yields    ports.YieldSource
	catalog   *strategy.Catalog
	validator *risk.Validator
	ledger    *ledger.Ledger
	now       func() time.Time

	mu    sync.Mutex             // Protects locks
	locks map[string]*sync.Mutex // One per agent; rounds for the same agent never overlap
}

// NewRoundService creates a new application service instance.
// yields may be nil, in which case income-profile buys are rejected for lack of yield data.
func NewRoundService(
	cfg *config.Config,
	logger ports.Logger,
	agents ports.AgentRepository,
	trades ports.TradeRepository,
	arena ports.ArenaRepository,
	prices ports.PriceSource,
	yields ports.YieldSource,
	catalog *strategy.Catalog,
	validator *risk.Validator,
	ldg *ledger.Ledger,
) (*RoundService, error) {

	// Validate dependencies
	if cfg == nil || logger == nil || agents == nil || trades == nil || arena == nil || prices == nil || catalog == nil || validator == nil || ldg == nil {
		return nil, fmt.Errorf("missing required dependencies for RoundService")
	}

	// Validate config values needed by service
	if cfg.MaxTradesPerRound <= 0 {
		return nil, fmt.Errorf("configuration MaxTradesPerRound must be positive")
	}
	if cfg.QuoteTimeout <= 0 {
		return nil, fmt.Errorf("configuration QuoteTimeout must be positive")
	}

	logger.Debug(context.Background(), "Round service ready", map[string]interface{}{
		"max_trades_per_round": cfg.MaxTradesPerRound,
		"price_tolerance":      validator.Tolerance().String(),
		"quote_timeout":        cfg.QuoteTimeout.String(),
		"yield_source":         yields != nil,
	})

	return &RoundService{
		cfg:       cfg,
		logger:    logger,
		agents:    agents,
		trades:    trades,
		arena:     arena,
		prices:    prices,
		yields:    yields,
		catalog:   catalog,
		validator: validator,
		ledger:    ldg,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}, nil
}

func (s *RoundService) lockAgent(agentID string) func() {
	s.mu.Lock()
	l, ok := s.locks[agentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[agentID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// RunRound processes one batch of agent output: proposals are validated and applied strictly in
// the order they appear, each seeing the portfolio as left by the previous one.
// The arena must be running and round must be the currently open round; zero selects it.
// Each agent plays a round at most once.
func (s *RoundService) RunRound(ctx context.Context, agentID string, round int, output string) (*RoundReport, error) {
	op := "RunRound"
	unlock := s.lockAgent(agentID)
	defer unlock()

	state, err := s.arena.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: load arena state: %w", op, err)
	}
	if !state.Running() {
		return nil, fmt.Errorf("%s: %w", op, ports.ErrArenaPaused)
	}
	if round == 0 {
		round = state.Round
	}
	if state.Round == 0 || round != state.Round {
		return nil, fmt.Errorf("%s: round %d is not open, current round is %d: %w", op, round, state.Round, ports.ErrRoundOutOfOrder)
	}

	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("%s: load agent %s: %w", op, agentID, err)
	}
	if !agent.Enabled {
		return nil, fmt.Errorf("%s: agent %s: %w", op, agentID, ports.ErrAgentDisabled)
	}
	if agent.LastRound >= round {
		return nil, fmt.Errorf("%s: agent %s already played round %d: %w", op, agentID, agent.LastRound, ports.ErrRoundOutOfOrder)
	}
	profile := s.catalog.ProfileFor(agent.Archetype)

	s.logger.Info(ctx, op+": Starting round", map[string]interface{}{
		"agent":   agent.ID,
		"profile": string(profile.ID),
		"round":   round,
	})

	quotes := make(map[string]decimal.NullDecimal)
	s.markToMarket(ctx, agent, quotes)

	commentary := extractor.Commentary(output, s.cfg.CommentaryMaxLength)
	if commentary != nil {
		agent.LastCommentary = commentary
	}

	report := &RoundReport{AgentID: agent.ID, Round: round, Commentary: commentary}

	sc := extractor.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		if report.Proposals >= s.cfg.MaxTradesPerRound {
			report.Truncated++
			continue
		}
		report.Proposals++
		p := sc.Proposal()

		mkt := s.marketContext(ctx, profile, p, commentary, quotes)
		decision := s.validator.Validate(ctx, agent, p, mkt)
		if !decision.Admit {
			if decision.Category.IsDataUnavailable() {
				report.Unpriced++
			}
			report.Rejections = append(report.Rejections, &domain.RejectionRecord{
				ID:         uuid.NewString(),
				AgentID:    agent.ID,
				Symbol:     p.Symbol,
				Side:       p.Side,
				Shares:     p.Shares,
				Price:      p.Price,
				Round:      round,
				Category:   decision.Category,
				Reason:     decision.Reason,
				RejectedAt: s.now(),
			})
			continue
		}

		rec, err := s.ledger.Apply(ctx, agent, decision.Admission(), round, commentary)
		if err != nil {
			// The admission was issued moments ago for this agent; failing here is a bug.
			s.logger.Error(ctx, err, op+": Failed to apply admitted trade", map[string]interface{}{"agent": agent.ID, "symbol": p.Symbol})
			return nil, fmt.Errorf("%s: apply %s: %w", op, p, err)
		}
		report.Executions = append(report.Executions, rec)
	}
	if err := sc.Err(); err != nil {
		s.logger.Warn(ctx, op+": Agent output could not be read completely", map[string]interface{}{"agent": agent.ID, "error": err.Error()})
	}
	if report.Truncated > 0 {
		s.logger.Warn(ctx, op+": Trade cap reached, ignoring remaining proposals", map[string]interface{}{
			"agent":     agent.ID,
			"cap":       s.cfg.MaxTradesPerRound,
			"truncated": report.Truncated,
		})
	}

	if report.Unpriced > 0 {
		s.logger.Warn(ctx, op+": Proposals rejected for missing market data", map[string]interface{}{
			"agent":    agent.ID,
			"unpriced": report.Unpriced,
		})
	}

	agent.RecomputeEquity()
	agent.LastRound = round
	agent.UpdatedAt = s.now()
	report.Cash = agent.Cash
	report.Equity = agent.Equity

	if err := s.persist(ctx, agent, report); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	report.Portfolio = agent.Clone()

	s.logger.Info(ctx, op+": Round complete", map[string]interface{}{
		"agent":      agent.ID,
		"round":      round,
		"executed":   len(report.Executions),
		"rejected":   len(report.Rejections),
		"cash":       agent.Cash.StringFixed(2),
		"equity":     agent.Equity.StringFixed(2),
		"commentary": commentary != nil,
	})
	return report, nil
}

// persist commits the round as one unit.
func (s *RoundService) persist(ctx context.Context, agent *domain.Agent, report *RoundReport) error {
	commit := &domain.RoundCommit{
		Agent:      agent,
		Executions: report.Executions,
		Rejections: report.Rejections,
		Snapshot: &domain.EquitySnapshot{
			AgentID:    agent.ID,
			Round:      report.Round,
			Equity:     agent.Equity,
			Cash:       agent.Cash,
			CapturedAt: agent.UpdatedAt,
		},
	}
	if err := s.arena.CommitRound(ctx, commit); err != nil {
		s.logger.Error(ctx, err, "Failed to commit round", map[string]interface{}{"agent": agent.ID, "round": report.Round})
		return fmt.Errorf("commit round %d for %s: %w", report.Round, agent.ID, err)
	}
	return nil
}

// markToMarket refreshes held positions from the price source. Failed lookups keep the last price.
func (s *RoundService) markToMarket(ctx context.Context, agent *domain.Agent, quotes map[string]decimal.NullDecimal) {
	if len(agent.Positions) == 0 {
		return
	}
	prices := make(map[string]decimal.Decimal, len(agent.Positions))
	for _, symbol := range agent.Symbols() {
		if q := s.quote(ctx, symbol, quotes); q.Valid {
			prices[symbol] = q.Decimal
		}
	}
	updated := s.ledger.MarkToMarket(agent, prices)
	s.logger.Debug(ctx, "Positions marked to market", map[string]interface{}{
		"agent":   agent.ID,
		"updated": updated,
		"held":    len(agent.Positions),
		"equity":  agent.Equity.StringFixed(2),
	})
}

// marketContext resolves everything the validator needs for one proposal. Dividend yield is
// only fetched for buys under a profile that screens on it.
func (s *RoundService) marketContext(ctx context.Context, profile *strategy.Profile, p domain.TradeProposal, justification *string, quotes map[string]decimal.NullDecimal) domain.MarketContext {
	mkt := domain.MarketContext{
		Price:         s.quote(ctx, p.Symbol, quotes),
		Justification: justification,
	}
	if p.Side == domain.Buy && profile.NeedsDividendYield() && s.yields != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.QuoteTimeout)
		defer cancel()
		y, ok, err := s.yields.DividendYield(lookupCtx, p.Symbol)
		switch {
		case err != nil:
			s.logger.Warn(ctx, "Dividend yield lookup failed, treating as unavailable", map[string]interface{}{"symbol": p.Symbol, "error": err.Error()})
		case ok:
			mkt.DividendYield = decimal.NewNullDecimal(y)
		}
	}
	return mkt
}

// quote returns the reference price for symbol, memoised for the round.
func (s *RoundService) quote(ctx context.Context, symbol string, quotes map[string]decimal.NullDecimal) decimal.NullDecimal {
	if q, ok := quotes[symbol]; ok {
		return q
	}
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.QuoteTimeout)
	defer cancel()

	var q decimal.NullDecimal
	price, ok, err := s.prices.Price(lookupCtx, symbol)
	switch {
	case err != nil:
		s.logger.Warn(ctx, "Price lookup failed, treating as unavailable", map[string]interface{}{"symbol": symbol, "error": err.Error()})
	case ok && price.IsPositive():
		q = decimal.NewNullDecimal(price)
	}
	quotes[symbol] = q
	return q
}

// SeedRoster creates the default roster with startingCash each. Existing agents are kept unless reset is set.
func (s *RoundService) SeedRoster(ctx context.Context, startingCash decimal.Decimal, reset bool) ([]*domain.Agent, error) {
	if !startingCash.IsPositive() {
		return nil, fmt.Errorf("starting cash must be positive: %w", ports.ErrInvalidRequest)
	}
	if reset {
		if err := s.agents.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset arena: %w", err)
		}
		s.logger.Warn(ctx, "Arena reset, all agents and history removed")
	}

	var created []*domain.Agent
	for _, entry := range strategy.DefaultRoster() {
		_, err := s.agents.Get(ctx, entry.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("check agent %s: %w", entry.ID, err)
		}
		agent := domain.NewAgent(entry.ID, entry.Name, entry.Archetype, startingCash)
		agent.UpdatedAt = s.now()
		if err := s.agents.Create(ctx, agent); err != nil {
			return nil, fmt.Errorf("create agent %s: %w", entry.ID, err)
		}
		created = append(created, agent)
		s.logger.Info(ctx, "Agent seeded", map[string]interface{}{"agent": agent.ID, "archetype": string(agent.Archetype)})
	}
	return created, nil
}

// ArenaState returns the current game status and round.
func (s *RoundService) ArenaState(ctx context.Context) (*domain.ArenaState, error) {
	return s.arena.State(ctx)
}

// SetStatus pauses or resumes the arena.
func (s *RoundService) SetStatus(ctx context.Context, status domain.GameStatus) (*domain.ArenaState, error) {
	if _, ok := domain.ParseGameStatus(string(status)); !ok {
		return nil, fmt.Errorf("unknown game status %q: %w", status, ports.ErrInvalidRequest)
	}
	state, err := s.arena.SetStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("set arena status: %w", err)
	}
	s.logger.Info(ctx, "Arena status changed", map[string]interface{}{"status": string(state.Status), "round": state.Round})
	return state, nil
}

// AdvanceRound opens the next round. Agents that did not play the previous round simply skip it.
func (s *RoundService) AdvanceRound(ctx context.Context) (*domain.ArenaState, error) {
	state, err := s.arena.AdvanceRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("advance round: %w", err)
	}
	s.logger.Info(ctx, "Round opened", map[string]interface{}{"round": state.Round})
	return state, nil
}

// SetAgentEnabled enables or disables an agent. Disabled agents cannot play rounds.
func (s *RoundService) SetAgentEnabled(ctx context.Context, agentID string, enabled bool) (*domain.Agent, error) {
	unlock := s.lockAgent(agentID)
	defer unlock()

	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("load agent %s: %w", agentID, err)
	}
	if agent.Enabled == enabled {
		return agent, nil
	}
	agent.Enabled = enabled
	agent.UpdatedAt = s.now()
	if err := s.agents.Save(ctx, agent); err != nil {
		s.logger.Error(ctx, err, "Failed to save agent state", map[string]interface{}{"agent": agent.ID})
		return nil, fmt.Errorf("save agent %s: %w", agentID, err)
	}
	s.logger.Info(ctx, "Agent availability changed", map[string]interface{}{"agent": agent.ID, "enabled": enabled})
	return agent, nil
}

// Agents lists all agents.
func (s *RoundService) Agents(ctx context.Context) ([]*domain.Agent, error) {
	return s.agents.List(ctx)
}

// Agent returns one agent.
func (s *RoundService) Agent(ctx context.Context, id string) (*domain.Agent, error) {
	return s.agents.Get(ctx, id)
}

// Profile returns the constraint profile bound to an agent's archetype.
func (s *RoundService) Profile(agent *domain.Agent) *strategy.Profile {
	return s.catalog.ProfileFor(agent.Archetype)
}

// Profiles lists all constraint profiles.
func (s *RoundService) Profiles() []*strategy.Profile {
	return s.catalog.Profiles()
}

// Leaderboard ranks all agents by equity.
func (s *RoundService) Leaderboard(ctx context.Context) ([]analytics.Standing, error) {
	agents, err := s.agents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	return analytics.Leaderboard(agents, s.cfg.StartingCash), nil
}

// Performance analyses an agent's equity curve and trade history.
func (s *RoundService) Performance(ctx context.Context, agentID string) (*Performance, error) {
	agent, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	snaps, err := s.agents.Snapshots(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("load snapshots for %s: %w", agentID, err)
	}
	execs, err := s.trades.FindExecutionsByAgent(ctx, agentID, 0)
	if err != nil {
		return nil, fmt.Errorf("load executions for %s: %w", agentID, err)
	}
	return &Performance{
		Agent:   agent,
		Metrics: analytics.AnalyzeEquityCurve(snaps, s.cfg.StartingCash),
		Trades:  analytics.AnalyzeTrades(execs),
	}, nil
}

// Executions returns an agent's most recent executions.
func (s *RoundService) Executions(ctx context.Context, agentID string, limit int) ([]*domain.ExecutionRecord, error) {
	if _, err := s.agents.Get(ctx, agentID); err != nil {
		return nil, err
	}
	return s.trades.FindExecutionsByAgent(ctx, agentID, limit)
}

// RecentExecutions returns the latest executions across agents.
func (s *RoundService) RecentExecutions(ctx context.Context, limit int) ([]*domain.ExecutionRecord, error) {
	return s.trades.RecentExecutions(ctx, limit)
}

// RecentRejections returns the latest rejections across agents.
func (s *RoundService) RecentRejections(ctx context.Context, limit int) ([]*domain.RejectionRecord, error) {
	return s.trades.RecentRejections(ctx, limit)
}

// AllExecutions returns the full execution history in chronological order.
func (s *RoundService) AllExecutions(ctx context.Context) ([]*domain.ExecutionRecord, error) {
	return s.trades.AllExecutions(ctx)
}

// Quote resolves a reference price directly from the price source.
func (s *RoundService) Quote(ctx context.Context, symbol string) (decimal.Decimal, bool, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.QuoteTimeout)
	defer cancel()
	return s.prices.Price(lookupCtx, strings.ToUpper(symbol))
}
