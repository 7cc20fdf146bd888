package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3" // SQLite driver

	"tradeArena/internal/domain"
	"tradeArena/internal/ports"
)

// Repository implements the ports.AgentRepository, ports.TradeRepository and ports.ArenaRepository
// interfaces using SQLite.
// Money and share amounts are stored as TEXT so decimals round-trip exactly.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/arena.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serialises writers; SQLite would otherwise return SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Debug(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		archetype TEXT NOT NULL,
		cash TEXT NOT NULL,
		equity TEXT NOT NULL,
		last_commentary TEXT DEFAULT NULL,
		last_round INTEGER NOT NULL DEFAULT 0,
		enabled INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS arena_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		status TEXT NOT NULL,
		round INTEGER NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS positions (
		agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
		symbol TEXT NOT NULL,
		shares TEXT NOT NULL,
		avg_cost TEXT NOT NULL,
		last_price TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (agent_id, symbol)
	);

	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		shares TEXT NOT NULL,
		price TEXT NOT NULL,
		round INTEGER NOT NULL,
		justification TEXT DEFAULT NULL,
		executed_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rejections (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		shares TEXT NOT NULL,
		price TEXT NOT NULL,
		round INTEGER NOT NULL,
		category TEXT NOT NULL,
		reason TEXT NOT NULL,
		rejected_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS equity_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		agent_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		equity TEXT NOT NULL,
		cash TEXT NOT NULL,
		captured_at TIMESTAMP NOT NULL
	);
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_executions_agent ON executions (agent_id, executed_at);
	CREATE INDEX IF NOT EXISTS idx_rejections_agent ON rejections (agent_id, rejected_at);
	CREATE INDEX IF NOT EXISTS idx_snapshots_agent_round ON equity_snapshots (agent_id, round);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// --- AgentRepository Implementation ---

// Create saves a new agent together with any positions it already holds.
func (r *Repository) Create(ctx context.Context, agent *domain.Agent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	const query = `
	INSERT INTO agents (id, name, archetype, cash, equity, last_commentary, last_round, enabled, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		agent.ID, agent.Name, string(agent.Archetype), agent.Cash, agent.Equity,
		nullString(agent.LastCommentary), agent.LastRound, agent.Enabled, agent.UpdatedAt.UTC())
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("agent %s already exists: %w", agent.ID, ports.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to insert agent %s: %w: %w", agent.ID, ports.ErrQueryFailed, err)
	}
	if err := insertPositions(ctx, tx, agent); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit agent %s: %w", agent.ID, err)
	}
	r.logger.Debug(ctx, "Agent created", map[string]interface{}{"agentID": agent.ID, "archetype": string(agent.Archetype)})
	return nil
}

// Save persists the agent row and replaces its full position set in one transaction.
func (r *Repository) Save(ctx context.Context, agent *domain.Agent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := updateAgent(ctx, tx, agent); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit agent %s: %w: %w", agent.ID, ports.ErrUpdateFailed, err)
	}
	r.logger.Debug(ctx, "Agent saved", map[string]interface{}{
		"agentID":   agent.ID,
		"cash":      agent.Cash.String(),
		"positions": len(agent.Positions),
		"enabled":   agent.Enabled,
	})
	return nil
}

// updateAgent rewrites the agent row and its positions inside tx.
func updateAgent(ctx context.Context, tx *sql.Tx, agent *domain.Agent) error {
	const query = `
	UPDATE agents
	SET name = ?, archetype = ?, cash = ?, equity = ?, last_commentary = ?, last_round = ?, enabled = ?, updated_at = ?
	WHERE id = ?`
	result, err := tx.ExecContext(ctx, query,
		agent.Name, string(agent.Archetype), agent.Cash, agent.Equity,
		nullString(agent.LastCommentary), agent.LastRound, agent.Enabled, agent.UpdatedAt.UTC(), agent.ID)
	if err != nil {
		return fmt.Errorf("failed to update agent %s: %w: %w", agent.ID, ports.ErrUpdateFailed, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for agent %s: %w", agent.ID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("agent %s not found for update: %w", agent.ID, ports.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE agent_id = ?`, agent.ID); err != nil {
		return fmt.Errorf("failed to clear positions for agent %s: %w: %w", agent.ID, ports.ErrUpdateFailed, err)
	}
	return insertPositions(ctx, tx, agent)
}

func insertPositions(ctx context.Context, tx *sql.Tx, agent *domain.Agent) error {
	const query = `INSERT INTO positions (agent_id, symbol, shares, avg_cost, last_price) VALUES (?, ?, ?, ?, ?)`
	for _, symbol := range agent.Symbols() {
		pos := agent.Positions[symbol]
		if !pos.Shares.IsPositive() {
			continue
		}
		if _, err := tx.ExecContext(ctx, query, agent.ID, symbol, pos.Shares, pos.AvgCost, pos.LastPrice); err != nil {
			return fmt.Errorf("failed to insert position %s for agent %s: %w: %w", symbol, agent.ID, ports.ErrUpdateFailed, err)
		}
	}
	return nil
}

const agentColumns = `id, name, archetype, cash, equity, last_commentary, last_round, enabled, updated_at`

// Get retrieves an agent by ID, positions included.
func (r *Repository) Get(ctx context.Context, id string) (*domain.Agent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("agent %s: %w", id, ports.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query agent %s: %w: %w", id, ports.ErrQueryFailed, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT agent_id, symbol, shares, avg_cost, last_price FROM positions WHERE agent_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions for agent %s: %w: %w", id, ports.ErrQueryFailed, err)
	}
	defer rows.Close()
	if err := attachPositions(rows, map[string]*domain.Agent{id: agent}); err != nil {
		return nil, err
	}
	return agent, nil
}

// List retrieves all agents ordered by ID.
func (r *Repository) List(ctx context.Context) ([]*domain.Agent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	agents := make([]*domain.Agent, 0)
	byID := make(map[string]*domain.Agent)
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent during List: %w", err)
		}
		agents = append(agents, agent)
		byID[agent.ID] = agent
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agent rows: %w", err)
	}
	rows.Close()

	posRows, err := r.db.QueryContext(ctx, `SELECT agent_id, symbol, shares, avg_cost, last_price FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w: %w", ports.ErrQueryFailed, err)
	}
	defer posRows.Close()
	if err := attachPositions(posRows, byID); err != nil {
		return nil, err
	}
	return agents, nil
}

// Reset removes all agents, positions, trades, snapshots and arena state.
func (r *Repository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w: %w", ports.ErrDBConnection, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"positions", "executions", "rejections", "equity_snapshots", "agents", "arena_state"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w: %w", table, ports.ErrUpdateFailed, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	r.logger.Info(ctx, "Arena data reset")
	return nil
}

// Snapshots returns an agent's equity snapshots in capture order.
func (r *Repository) Snapshots(ctx context.Context, agentID string) ([]*domain.EquitySnapshot, error) {
	const query = `
	SELECT agent_id, round, equity, cash, captured_at
	FROM equity_snapshots
	WHERE agent_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots for agent %s: %w: %w", agentID, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	snaps := make([]*domain.EquitySnapshot, 0)
	for rows.Next() {
		s := &domain.EquitySnapshot{}
		if err := rows.Scan(&s.AgentID, &s.Round, &s.Equity, &s.Cash, &s.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return snaps, nil
}

// --- TradeRepository Implementation ---

const executionColumns = `id, agent_id, symbol, side, shares, price, round, justification, executed_at`

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

// FindExecutionsByAgent retrieves the most recent executions of an agent, newest first.
func (r *Repository) FindExecutionsByAgent(ctx context.Context, agentID string, limit int) ([]*domain.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE agent_id = ? ORDER BY executed_at DESC, rowid DESC LIMIT ?`
	return r.queryExecutions(ctx, query, agentID, sqlLimit(limit))
}

// RecentExecutions retrieves the most recent executions across all agents, newest first.
func (r *Repository) RecentExecutions(ctx context.Context, limit int) ([]*domain.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + ` FROM executions ORDER BY executed_at DESC, rowid DESC LIMIT ?`
	return r.queryExecutions(ctx, query, sqlLimit(limit))
}

// AllExecutions retrieves every execution in chronological order.
func (r *Repository) AllExecutions(ctx context.Context) ([]*domain.ExecutionRecord, error) {
	query := `SELECT ` + executionColumns + ` FROM executions ORDER BY executed_at, rowid`
	return r.queryExecutions(ctx, query)
}

func (r *Repository) queryExecutions(ctx context.Context, query string, args ...interface{}) ([]*domain.ExecutionRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	records := make([]*domain.ExecutionRecord, 0)
	for rows.Next() {
		rec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution rows: %w", err)
	}
	return records, nil
}

// RecentRejections retrieves the most recent rejections across all agents, newest first.
func (r *Repository) RecentRejections(ctx context.Context, limit int) ([]*domain.RejectionRecord, error) {
	const query = `
	SELECT id, agent_id, symbol, side, shares, price, round, category, reason, rejected_at
	FROM rejections
	ORDER BY rejected_at DESC, rowid DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, sqlLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query rejections: %w: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	records := make([]*domain.RejectionRecord, 0)
	for rows.Next() {
		rec := &domain.RejectionRecord{}
		var side, category string
		err := rows.Scan(&rec.ID, &rec.AgentID, &rec.Symbol, &side, &rec.Shares, &rec.Price,
			&rec.Round, &category, &rec.Reason, &rec.RejectedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rejection: %w", err)
		}
		rec.Side = domain.OrderSide(side)
		rec.Category = domain.RejectionCategory(category)
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rejection rows: %w", err)
	}
	return records, nil
}

// --- Helper Scan Functions ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanAgent scans a row into a domain.Agent with an empty position map.
func scanAgent(s scanner) (*domain.Agent, error) {
	a := &domain.Agent{Positions: map[string]*domain.Position{}}
	var archetype string
	var commentary sql.NullString
	err := s.Scan(&a.ID, &a.Name, &archetype, &a.Cash, &a.Equity, &commentary, &a.LastRound, &a.Enabled, &a.UpdatedAt)
	if err != nil {
		return nil, err // Handle sql.ErrNoRows in the caller
	}
	a.Archetype = domain.Archetype(archetype)
	a.LastCommentary = stringPtr(commentary)
	return a, nil
}

// attachPositions scans position rows onto the agents they belong to.
func attachPositions(rows *sql.Rows, agents map[string]*domain.Agent) error {
	for rows.Next() {
		var agentID string
		p := &domain.Position{}
		if err := rows.Scan(&agentID, &p.Symbol, &p.Shares, &p.AvgCost, &p.LastPrice); err != nil {
			return fmt.Errorf("failed to scan position: %w", err)
		}
		if a, ok := agents[agentID]; ok {
			a.Positions[p.Symbol] = p
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating position rows: %w", err)
	}
	return nil
}

// scanExecution scans a row into a domain.ExecutionRecord.
func scanExecution(s scanner) (*domain.ExecutionRecord, error) {
	rec := &domain.ExecutionRecord{}
	var side string
	var justification sql.NullString
	err := s.Scan(&rec.ID, &rec.AgentID, &rec.Symbol, &side, &rec.Shares, &rec.Price,
		&rec.Round, &justification, &rec.ExecutedAt)
	if err != nil {
		return nil, err
	}
	rec.Side = domain.OrderSide(side)
	rec.Justification = stringPtr(justification)
	return rec, nil
}
