package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tradeArena/internal/domain"
	"tradeArena/internal/ports"
)

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// --- ArenaRepository Implementation ---

// State returns the stored arena state, or a fresh running state when none was stored yet.
func (r *Repository) State(ctx context.Context) (*domain.ArenaState, error) {
	return loadState(ctx, r.db)
}

func loadState(ctx context.Context, q rowQuerier) (*domain.ArenaState, error) {
	state := &domain.ArenaState{}
	var status string
	err := q.QueryRowContext(ctx, `SELECT status, round, updated_at FROM arena_state WHERE id = 1`).
		Scan(&status, &state.Round, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewArenaState(), nil
		}
		return nil, fmt.Errorf("failed to query arena state: %w: %w", ports.ErrQueryFailed, err)
	}
	state.Status = domain.GameStatus(status)
	return state, nil
}

func storeState(ctx context.Context, tx *sql.Tx, state *domain.ArenaState) error {
	const query = `
	INSERT INTO arena_state (id, status, round, updated_at) VALUES (1, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET status = excluded.status, round = excluded.round, updated_at = excluded.updated_at`
	if _, err := tx.ExecContext(ctx, query, string(state.Status), state.Round, state.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to store arena state: %w: %w", ports.ErrUpdateFailed, err)
	}
	return nil
}

// SetStatus stores a new game status, keeping the round counter.
func (r *Repository) SetStatus(ctx context.Context, status domain.GameStatus) (*domain.ArenaState, error) {
	return r.updateState(ctx, func(state *domain.ArenaState) error {
		state.Status = status
		return nil
	})
}

// AdvanceRound opens the next round. Returns ErrArenaPaused while paused.
func (r *Repository) AdvanceRound(ctx context.Context) (*domain.ArenaState, error) {
	return r.updateState(ctx, func(state *domain.ArenaState) error {
		if !state.Running() {
			return fmt.Errorf("cannot open round %d: %w", state.Round+1, ports.ErrArenaPaused)
		}
		state.Round++
		return nil
	})
}

// updateState reads, mutates and stores the arena state in one transaction.
func (r *Repository) updateState(ctx context.Context, mutate func(state *domain.ArenaState) error) (*domain.ArenaState, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	state, err := loadState(ctx, tx)
	if err != nil {
		return nil, err
	}
	if err := mutate(state); err != nil {
		return nil, err
	}
	state.UpdatedAt = time.Now().UTC()
	if err := storeState(ctx, tx, state); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit arena state: %w: %w", ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Arena state updated", map[string]interface{}{"status": string(state.Status), "round": state.Round})
	return state, nil
}

// CommitRound writes an agent's round outcome in a single transaction: agent row, positions,
// executions, rejections and the equity snapshot either all land or none do.
func (r *Repository) CommitRound(ctx context.Context, c *domain.RoundCommit) error {
	if c == nil || c.Agent == nil || c.Snapshot == nil {
		return fmt.Errorf("incomplete round commit: %w", ports.ErrInvalidRequest)
	}
	agent, round := c.Agent, c.Snapshot.Round

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var lastRound int
	err = tx.QueryRowContext(ctx, `SELECT last_round FROM agents WHERE id = ?`, agent.ID).Scan(&lastRound)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("agent %s: %w", agent.ID, ports.ErrNotFound)
		}
		return fmt.Errorf("failed to query agent %s: %w: %w", agent.ID, ports.ErrQueryFailed, err)
	}
	if lastRound >= round {
		return fmt.Errorf("agent %s already played round %d: %w", agent.ID, lastRound, ports.ErrRoundOutOfOrder)
	}

	if err := updateAgent(ctx, tx, agent); err != nil {
		return err
	}
	for _, rec := range c.Executions {
		if err := insertExecution(ctx, tx, rec); err != nil {
			return err
		}
	}
	for _, rec := range c.Rejections {
		if err := insertRejection(ctx, tx, rec); err != nil {
			return err
		}
	}
	if err := insertSnapshot(ctx, tx, c.Snapshot); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit round %d for agent %s: %w: %w", round, agent.ID, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Round committed", map[string]interface{}{
		"agentID":    agent.ID,
		"round":      round,
		"executions": len(c.Executions),
		"rejections": len(c.Rejections),
	})
	return nil
}

func insertExecution(ctx context.Context, tx *sql.Tx, rec *domain.ExecutionRecord) error {
	const query = `
	INSERT INTO executions (id, agent_id, symbol, side, shares, price, round, justification, executed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, query,
		rec.ID, rec.AgentID, rec.Symbol, string(rec.Side), rec.Shares, rec.Price, rec.Round,
		nullString(rec.Justification), rec.ExecutedAt.UTC())
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("execution %s already recorded: %w", rec.ID, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert execution for %s: %w: %w", rec.Symbol, ports.ErrQueryFailed, err)
	}
	return nil
}

func insertRejection(ctx context.Context, tx *sql.Tx, rec *domain.RejectionRecord) error {
	const query = `
	INSERT INTO rejections (id, agent_id, symbol, side, shares, price, round, category, reason, rejected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := tx.ExecContext(ctx, query,
		rec.ID, rec.AgentID, rec.Symbol, string(rec.Side), rec.Shares, rec.Price, rec.Round,
		string(rec.Category), rec.Reason, rec.RejectedAt.UTC())
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("rejection %s already recorded: %w", rec.ID, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert rejection for %s: %w: %w", rec.Symbol, ports.ErrQueryFailed, err)
	}
	return nil
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, snap *domain.EquitySnapshot) error {
	const query = `INSERT INTO equity_snapshots (agent_id, round, equity, cash, captured_at) VALUES (?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, query, snap.AgentID, snap.Round, snap.Equity, snap.Cash, snap.CapturedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert snapshot for agent %s: %w: %w", snap.AgentID, ports.ErrQueryFailed, err)
	}
	return nil
}
