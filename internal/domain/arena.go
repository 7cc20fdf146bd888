package domain

import (
	"strings"
	"time"
)

// GameStatus gates whether rounds may be played.
type GameStatus string

const (
	StatusRunning GameStatus = "running"
	StatusPaused  GameStatus = "paused"
)

// ParseGameStatus converts a case-insensitive status token into a GameStatus.
func ParseGameStatus(s string) (GameStatus, bool) {
	switch GameStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusRunning:
		return StatusRunning, true
	case StatusPaused:
		return StatusPaused, true
	default:
		return "", false
	}
}

// ArenaState is the arena-wide game state. Round is the currently open round, zero before the first one.
type ArenaState struct {
	Status    GameStatus
	Round     int
	UpdatedAt time.Time
}

// NewArenaState is the state of a freshly seeded arena.
func NewArenaState() *ArenaState {
	return &ArenaState{Status: StatusRunning}
}

// Running reports whether rounds may be played.
func (s *ArenaState) Running() bool {
	return s.Status == StatusRunning
}

// RoundCommit is everything one processed round changes, persisted as a unit.
type RoundCommit struct {
	Agent      *Agent
	Executions []*ExecutionRecord
	Rejections []*RejectionRecord
	Snapshot   *EquitySnapshot
}
