package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeArena/internal/analytics"
	"tradeArena/internal/app"
	"tradeArena/internal/domain"
	"tradeArena/internal/ports"
	"tradeArena/internal/strategy"
)

type fakeArena struct {
	catalog   *strategy.Catalog
	agents    map[string]*domain.Agent
	execs     []*domain.ExecutionRecord
	state     domain.ArenaState
	lastLimit int
	lastRound struct {
		agent  string
		round  int
		output string
	}
}

func newFakeArena() *fakeArena {
	turtle := domain.NewAgent("turtle", "Turtle", domain.ArchetypeTurtle, decimal.NewFromInt(98100))
	turtle.Positions["AAPL"] = &domain.Position{Symbol: "AAPL", Shares: decimal.NewFromInt(10), AvgCost: decimal.NewFromInt(190)}
	return &fakeArena{
		catalog: strategy.NewCatalog(),
		agents:  map[string]*domain.Agent{"turtle": turtle},
		state:   domain.ArenaState{Status: domain.StatusRunning, Round: 3},
		execs: []*domain.ExecutionRecord{{
			ID: "e1", AgentID: "turtle", Symbol: "AAPL", Side: domain.Buy,
			Shares: decimal.NewFromInt(10), Price: decimal.NewFromInt(190), Round: 1,
			ExecutedAt: time.Date(2025, 3, 14, 16, 0, 0, 0, time.UTC),
		}},
	}
}

func (f *fakeArena) Agents(ctx context.Context) ([]*domain.Agent, error) {
	return []*domain.Agent{f.agents["turtle"]}, nil
}

func (f *fakeArena) Agent(ctx context.Context, id string) (*domain.Agent, error) {
	a, ok := f.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, ports.ErrNotFound)
	}
	return a, nil
}

func (f *fakeArena) Executions(ctx context.Context, agentID string, limit int) ([]*domain.ExecutionRecord, error) {
	f.lastLimit = limit
	if _, err := f.Agent(ctx, agentID); err != nil {
		return nil, err
	}
	return f.execs, nil
}

func (f *fakeArena) Performance(ctx context.Context, agentID string) (*app.Performance, error) {
	a, err := f.Agent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return &app.Performance{
		Agent:   a,
		Metrics: analytics.AnalyzeEquityCurve(nil, decimal.NewFromInt(100000)),
		Trades:  analytics.AnalyzeTrades(f.execs),
	}, nil
}

func (f *fakeArena) RunRound(ctx context.Context, agentID string, round int, output string) (*app.RoundReport, error) {
	a, err := f.Agent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if !a.Enabled {
		return nil, ports.ErrAgentDisabled
	}
	if !f.state.Running() {
		return nil, ports.ErrArenaPaused
	}
	if round == 0 {
		round = f.state.Round
	}
	if round != f.state.Round {
		return nil, fmt.Errorf("round %d is not open: %w", round, ports.ErrRoundOutOfOrder)
	}
	f.lastRound.agent, f.lastRound.round, f.lastRound.output = agentID, round, output
	return &app.RoundReport{
		AgentID:   agentID,
		Round:     round,
		Proposals: 1,
		Rejections: []*domain.RejectionRecord{{
			ID: "r1", AgentID: agentID, Symbol: "GME", Side: domain.Buy,
			Shares: decimal.NewFromInt(10), Price: decimal.NewFromInt(25), Round: round,
			Category: domain.RejectionRestrictedUniverse, Reason: "GME is outside the permitted universe",
		}},
		Cash:      decimal.NewFromInt(98100),
		Equity:    decimal.NewFromInt(100000),
		Portfolio: a,
	}, nil
}

func (f *fakeArena) SetAgentEnabled(ctx context.Context, agentID string, enabled bool) (*domain.Agent, error) {
	a, err := f.Agent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	a.Enabled = enabled
	return a, nil
}

func (f *fakeArena) ArenaState(ctx context.Context) (*domain.ArenaState, error) {
	state := f.state
	return &state, nil
}

func (f *fakeArena) SetStatus(ctx context.Context, status domain.GameStatus) (*domain.ArenaState, error) {
	f.state.Status = status
	return f.ArenaState(ctx)
}

func (f *fakeArena) AdvanceRound(ctx context.Context) (*domain.ArenaState, error) {
	if !f.state.Running() {
		return nil, ports.ErrArenaPaused
	}
	f.state.Round++
	return f.ArenaState(ctx)
}

func (f *fakeArena) Leaderboard(ctx context.Context) ([]analytics.Standing, error) {
	agents, _ := f.Agents(ctx)
	return analytics.Leaderboard(agents, decimal.NewFromInt(100000)), nil
}

func (f *fakeArena) RecentExecutions(ctx context.Context, limit int) ([]*domain.ExecutionRecord, error) {
	f.lastLimit = limit
	return f.execs, nil
}

func (f *fakeArena) RecentRejections(ctx context.Context, limit int) ([]*domain.RejectionRecord, error) {
	f.lastLimit = limit
	return nil, nil
}

func (f *fakeArena) Profiles() []*strategy.Profile { return f.catalog.Profiles() }

func (f *fakeArena) Profile(agent *domain.Agent) *strategy.Profile {
	return f.catalog.ProfileFor(agent.Archetype)
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeArena) {
	t.Helper()
	arena := newFakeArena()
	s := New(Config{Log: zerolog.Nop(), Arena: arena, StartingCash: decimal.NewFromInt(100000)})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, arena
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAgents(t *testing.T) {
	srv, _ := newTestServer(t)

	var agents []map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/agents", &agents))
	require.Len(t, agents, 1)
	assert.Equal(t, "turtle", agents[0]["id"])
	assert.Equal(t, "Turtle", agents[0]["profile"])
	assert.Equal(t, "100000", agents[0]["equity"])
	assert.Equal(t, "0", agents[0]["return_pct"])

	var agent map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/agents/turtle", &agent))
	positions, ok := agent["positions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, positions, 1)

	var errBody map[string]string
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/agents/nobody", &errBody))
	assert.Contains(t, errBody["error"], "not found")
}

func TestAgentTradesLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", defaultLimit},
		{"?limit=5", 5},
		{"?limit=-1", defaultLimit},
		{"?limit=abc", defaultLimit},
		{"?limit=100000", maxLimit},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			srv, arena := newTestServer(t)
			var trades []map[string]interface{}
			require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/agents/turtle/trades"+tt.query, &trades))
			assert.Equal(t, tt.want, arena.lastLimit)
			require.Len(t, trades, 1)
			assert.Equal(t, "1900", trades[0]["value"])
		})
	}
}

func TestRunRound(t *testing.T) {
	srv, arena := newTestServer(t)

	body := `{"round": 3, "output": "TRADE: BUY 10 GME @ 25.00"}`
	resp, err := http.Post(srv.URL+"/api/agents/turtle/rounds", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, float64(3), report["round"])
	rejections := report["rejections"].([]interface{})
	require.Len(t, rejections, 1)
	assert.Equal(t, "restricted_universe", rejections[0].(map[string]interface{})["category"])
	positions := report["positions"].([]interface{})
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].(map[string]interface{})["symbol"])

	assert.Equal(t, "turtle", arena.lastRound.agent)
	assert.Equal(t, 3, arena.lastRound.round)
	assert.Equal(t, "TRADE: BUY 10 GME @ 25.00", arena.lastRound.output)
}

func TestRunRound_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"invalid json", "/api/agents/turtle/rounds", `{`, http.StatusBadRequest},
		{"unknown field", "/api/agents/turtle/rounds", `{"round":1,"output":"x","extra":1}`, http.StatusBadRequest},
		{"negative round", "/api/agents/turtle/rounds", `{"round":-1,"output":"x"}`, http.StatusBadRequest},
		{"round not open", "/api/agents/turtle/rounds", `{"round":2,"output":"x"}`, http.StatusConflict},
		{"empty output", "/api/agents/turtle/rounds", `{"round":1,"output":"  "}`, http.StatusBadRequest},
		{"unknown agent", "/api/agents/nobody/rounds", `{"round":1,"output":"x"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t)
			resp, err := http.Post(srv.URL+tt.path, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
			data, _ := io.ReadAll(resp.Body)
			assert.Contains(t, string(data), `"error"`)
		})
	}
}

func TestProfilesAndLeaderboard(t *testing.T) {
	srv, _ := newTestServer(t)

	var profiles []map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/profiles", &profiles))
	require.Len(t, profiles, 6)
	assert.Equal(t, "turtle", profiles[0]["id"])
	assert.Equal(t, "0.05", profiles[0]["max_position_fraction"])
	assert.Nil(t, profiles[0]["max_cash_fraction"])

	var board []map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/leaderboard", &board))
	require.Len(t, board, 1)
	assert.Equal(t, float64(1), board[0]["rank"])
}

func TestPerformanceAndRecent(t *testing.T) {
	srv, arena := newTestServer(t)

	var perf map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/agents/turtle/performance", &perf))
	assert.Equal(t, float64(1), perf["total_trades"])

	var trades []map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/trades/recent?limit=7", &trades))
	assert.Equal(t, 7, arena.lastLimit)

	var rejections []map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/rejections/recent", &rejections))
	assert.Empty(t, rejections)
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/agents", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func sendJSON(t *testing.T, method, url, body string, out interface{}) int {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestArenaStatusAndRounds(t *testing.T) {
	srv, arena := newTestServer(t)

	var state map[string]interface{}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/arena", &state))
	assert.Equal(t, "running", state["status"])
	assert.Equal(t, float64(3), state["round"])

	require.Equal(t, http.StatusCreated, sendJSON(t, http.MethodPost, srv.URL+"/api/arena/rounds", "", &state))
	assert.Equal(t, float64(4), state["round"])

	var report map[string]interface{}
	require.Equal(t, http.StatusOK, sendJSON(t, http.MethodPost, srv.URL+"/api/agents/turtle/rounds", `{"output":"Holding."}`, &report))
	assert.Equal(t, float64(4), report["round"])
	assert.Equal(t, 4, arena.lastRound.round)

	require.Equal(t, http.StatusOK, sendJSON(t, http.MethodPut, srv.URL+"/api/arena/status", `{"status":"PAUSED"}`, &state))
	assert.Equal(t, "paused", state["status"])

	var errBody map[string]string
	assert.Equal(t, http.StatusConflict, sendJSON(t, http.MethodPost, srv.URL+"/api/arena/rounds", "", &errBody))
	assert.Contains(t, errBody["error"], "arena paused")
	assert.Equal(t, http.StatusConflict, sendJSON(t, http.MethodPost, srv.URL+"/api/agents/turtle/rounds", `{"round":4,"output":"x"}`, &errBody))

	assert.Equal(t, http.StatusBadRequest, sendJSON(t, http.MethodPut, srv.URL+"/api/arena/status", `{"status":"ended"}`, &errBody))
	assert.Equal(t, http.StatusBadRequest, sendJSON(t, http.MethodPut, srv.URL+"/api/arena/status", `{"state":"running"}`, &errBody))
}

func TestSetAgentEnabled(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		body        string
		want        int
		wantEnabled bool
	}{
		{"disable", "/api/agents/turtle/enabled", `{"enabled":false}`, http.StatusOK, false},
		{"enable", "/api/agents/turtle/enabled", `{"enabled":true}`, http.StatusOK, true},
		{"missing flag", "/api/agents/turtle/enabled", `{}`, http.StatusBadRequest, true},
		{"unknown agent", "/api/agents/nobody/enabled", `{"enabled":false}`, http.StatusNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, arena := newTestServer(t)
			var body map[string]interface{}
			assert.Equal(t, tt.want, sendJSON(t, http.MethodPut, srv.URL+tt.path, tt.body, &body))
			assert.Equal(t, tt.wantEnabled, arena.agents["turtle"].Enabled)
			if tt.want == http.StatusOK {
				assert.Equal(t, tt.wantEnabled, body["enabled"])
			}
		})
	}
}

func TestRunRound_DisabledAgent(t *testing.T) {
	srv, arena := newTestServer(t)
	arena.agents["turtle"].Enabled = false

	var errBody map[string]string
	assert.Equal(t, http.StatusConflict, sendJSON(t, http.MethodPost, srv.URL+"/api/agents/turtle/rounds", `{"round":3,"output":"x"}`, &errBody))
	assert.Contains(t, errBody["error"], "agent disabled")
}
