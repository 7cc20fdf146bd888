package ports

import (
	"context"

	"tradeArena/internal/domain"
)

// AgentRepository defines the interface for storing and retrieving agents together with their positions.
type AgentRepository interface {
	// Create saves a new agent. Returns ErrDuplicateEntry if the ID is taken.
	Create(ctx context.Context, agent *domain.Agent) error
	// Save persists cash, equity, commentary, flags and the full position set of an existing agent.
	Save(ctx context.Context, agent *domain.Agent) error
	// Get retrieves an agent by ID, positions included.
	// Returns ErrNotFound if no such agent exists.
	Get(ctx context.Context, id string) (*domain.Agent, error)
	// List retrieves all agents ordered by ID.
	List(ctx context.Context) ([]*domain.Agent, error)
	// Reset removes all agents, positions, trades, snapshots and arena state.
	Reset(ctx context.Context) error
	// Snapshots returns an agent's equity snapshots in capture order.
	Snapshots(ctx context.Context, agentID string) ([]*domain.EquitySnapshot, error)
}

// TradeRepository defines the interface for retrieving executions and rejections.
// Records are written by ArenaRepository.CommitRound.
type TradeRepository interface {
	// FindExecutionsByAgent retrieves the most recent executions of an agent, newest first, up to a limit.
	FindExecutionsByAgent(ctx context.Context, agentID string, limit int) ([]*domain.ExecutionRecord, error)
	// RecentExecutions retrieves the most recent executions across all agents, newest first.
	RecentExecutions(ctx context.Context, limit int) ([]*domain.ExecutionRecord, error)
	// RecentRejections retrieves the most recent rejections across all agents, newest first.
	RecentRejections(ctx context.Context, limit int) ([]*domain.RejectionRecord, error)
	// AllExecutions retrieves every execution in chronological order.
	AllExecutions(ctx context.Context) ([]*domain.ExecutionRecord, error)
}

// ArenaRepository holds the arena-wide game state and commits round outcomes.
type ArenaRepository interface {
	// State returns the arena state, a fresh running state with no open round if none was stored.
	State(ctx context.Context) (*domain.ArenaState, error)
	// SetStatus stores a new game status and returns the resulting state.
	SetStatus(ctx context.Context, status domain.GameStatus) (*domain.ArenaState, error)
	// AdvanceRound opens the next round and returns the resulting state.
	// Returns ErrArenaPaused while the arena is paused.
	AdvanceRound(ctx context.Context) (*domain.ArenaState, error)
	// CommitRound persists the agent, its executions, rejections and equity snapshot atomically.
	// Returns ErrRoundOutOfOrder if the stored agent already played the snapshot's round,
	// and ErrNotFound if the agent does not exist. Nothing is written on error.
	CommitRound(ctx context.Context, commit *domain.RoundCommit) error
}
