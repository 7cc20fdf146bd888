package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tradeArena/internal/domain"
	"tradeArena/internal/ports"
)

const (
	defaultLimit = 50
	maxLimit     = 500
	maxBodyBytes = 1 << 20
)

type roundRequest struct {
	Round  int    `json:"round"` // Zero selects the open round
	Output string `json:"output"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// parseLimit reads ?limit=N, clamped to (0, maxLimit].
func parseLimit(r *http.Request) int {
	limit := defaultLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeFailure maps domain errors onto HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		s.writeError(w, http.StatusNotFound, msg+": not found")
	case errors.Is(err, ports.ErrAgentDisabled):
		s.writeError(w, http.StatusConflict, msg+": agent disabled")
	case errors.Is(err, ports.ErrArenaPaused):
		s.writeError(w, http.StatusConflict, msg+": arena paused")
	case errors.Is(err, ports.ErrRoundOutOfOrder):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ports.ErrInvalidRequest):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg(msg)
		s.writeError(w, http.StatusInternalServerError, msg)
	}
}

// decodeBody strictly decodes a JSON body into dst, answering 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /api/profiles
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := s.arena.Profiles()
	out := make([]profileDTO, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, toProfileDTO(p))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GET /api/leaderboard
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	standings, err := s.arena.Leaderboard(r.Context())
	if err != nil {
		s.writeFailure(w, r, err, "Failed to build leaderboard")
		return
	}
	out := make([]standingDTO, 0, len(standings))
	for _, st := range standings {
		out = append(out, toStandingDTO(st))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GET /api/agents
func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.arena.Agents(r.Context())
	if err != nil {
		s.writeFailure(w, r, err, "Failed to list agents")
		return
	}
	out := make([]agentDTO, 0, len(agents))
	for _, a := range agents {
		out = append(out, toAgentDTO(a, s.arena.Profile(a), s.startingCash))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GET /api/agents/{id}
func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	agent, err := s.arena.Agent(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err, "Failed to get agent")
		return
	}
	s.writeJSON(w, http.StatusOK, toAgentDTO(agent, s.arena.Profile(agent), s.startingCash))
}

// GET /api/agents/{id}/trades?limit=N
func (s *Server) handleAgentTrades(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	execs, err := s.arena.Executions(r.Context(), id, parseLimit(r))
	if err != nil {
		s.writeFailure(w, r, err, "Failed to get trades")
		return
	}
	s.writeJSON(w, http.StatusOK, toExecutionDTOs(execs))
}

// GET /api/agents/{id}/performance
func (s *Server) handleAgentPerformance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	perf, err := s.arena.Performance(r.Context(), id)
	if err != nil {
		s.writeFailure(w, r, err, "Failed to get performance")
		return
	}
	s.writeJSON(w, http.StatusOK, toPerformanceDTO(perf))
}

// POST /api/agents/{id}/rounds
func (s *Server) handleRunRound(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req roundRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Round < 0 {
		s.writeError(w, http.StatusBadRequest, "round must not be negative")
		return
	}
	if strings.TrimSpace(req.Output) == "" {
		s.writeError(w, http.StatusBadRequest, "output must not be empty")
		return
	}

	report, err := s.arena.RunRound(r.Context(), id, req.Round, req.Output)
	if err != nil {
		s.writeFailure(w, r, err, "Failed to run round")
		return
	}
	s.writeJSON(w, http.StatusOK, toRoundReportDTO(report))
}

// GET /api/trades/recent?limit=N
func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	execs, err := s.arena.RecentExecutions(r.Context(), parseLimit(r))
	if err != nil {
		s.writeFailure(w, r, err, "Failed to get recent trades")
		return
	}
	s.writeJSON(w, http.StatusOK, toExecutionDTOs(execs))
}

// GET /api/rejections/recent?limit=N
func (s *Server) handleRecentRejections(w http.ResponseWriter, r *http.Request) {
	recs, err := s.arena.RecentRejections(r.Context(), parseLimit(r))
	if err != nil {
		s.writeFailure(w, r, err, "Failed to get recent rejections")
		return
	}
	s.writeJSON(w, http.StatusOK, toRejectionDTOs(recs))
}

// PUT /api/agents/{id}/enabled
func (s *Server) handleSetAgentEnabled(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req enabledRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		s.writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	agent, err := s.arena.SetAgentEnabled(r.Context(), id, *req.Enabled)
	if err != nil {
		s.writeFailure(w, r, err, "Failed to update agent")
		return
	}
	s.writeJSON(w, http.StatusOK, toAgentDTO(agent, s.arena.Profile(agent), s.startingCash))
}

// GET /api/arena
func (s *Server) handleArenaState(w http.ResponseWriter, r *http.Request) {
	state, err := s.arena.ArenaState(r.Context())
	if err != nil {
		s.writeFailure(w, r, err, "Failed to get arena state")
		return
	}
	s.writeJSON(w, http.StatusOK, toArenaStateDTO(state))
}

// PUT /api/arena/status
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	status, ok := domain.ParseGameStatus(req.Status)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "status must be running or paused")
		return
	}

	state, err := s.arena.SetStatus(r.Context(), status)
	if err != nil {
		s.writeFailure(w, r, err, "Failed to set arena status")
		return
	}
	s.writeJSON(w, http.StatusOK, toArenaStateDTO(state))
}

// POST /api/arena/rounds
func (s *Server) handleAdvanceRound(w http.ResponseWriter, r *http.Request) {
	state, err := s.arena.AdvanceRound(r.Context())
	if err != nil {
		s.writeFailure(w, r, err, "Failed to open round")
		return
	}
	s.writeJSON(w, http.StatusCreated, toArenaStateDTO(state))
}
