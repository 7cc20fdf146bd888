package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeArena/internal/domain"
)

func snap(round int, equity string) *domain.EquitySnapshot {
	return &domain.EquitySnapshot{
		AgentID:    "turtle",
		Round:      round,
		Equity:     decimal.RequireFromString(equity),
		CapturedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(round) * time.Hour),
	}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAnalyzeEquityCurve(t *testing.T) {
	initial := decimal.NewFromInt(100000)
	snapshots := []*domain.EquitySnapshot{
		snap(3, "99000"),
		snap(1, "110000"),
		snap(2, "88000"),
		snap(4, "121000"),
	}

	metrics := AnalyzeEquityCurve(snapshots, initial)

	if metrics.Rounds != 4 {
		t.Errorf("Expected 4 rounds, got %d", metrics.Rounds)
	}
	if metrics.FinalEquity != 121000 {
		t.Errorf("Expected final equity 121000, got %f", metrics.FinalEquity)
	}
	if !approx(metrics.TotalReturn, 0.21) {
		t.Errorf("Expected total return 0.21, got %f", metrics.TotalReturn)
	}
	if !approx(metrics.MaxDrawdown, 0.2) {
		t.Errorf("Expected max drawdown 0.2, got %f", metrics.MaxDrawdown)
	}
	if metrics.PeakEquity != 121000 {
		t.Errorf("Expected peak equity 121000, got %f", metrics.PeakEquity)
	}
	if len(metrics.EquityCurve) != 4 || metrics.EquityCurve[0].Round != 1 {
		t.Fatalf("Expected curve ordered by round, got %+v", metrics.EquityCurve)
	}
	if len(metrics.Drawdowns) != 1 {
		t.Fatalf("Expected 1 drawdown, got %d", len(metrics.Drawdowns))
	}
	dd := metrics.Drawdowns[0]
	if dd.StartRound != 2 || dd.EndRound != 4 || !dd.Recovered || dd.Trough != 88000 {
		t.Errorf("Unexpected drawdown %+v", dd)
	}

	// Round returns: +10%, -20%, +12.5%, +22.2...%
	if !approx(metrics.BestRoundReturn, 121000.0/99000.0-1) {
		t.Errorf("Unexpected best round return %f", metrics.BestRoundReturn)
	}
	if !approx(metrics.WorstRoundReturn, -0.2) {
		t.Errorf("Unexpected worst round return %f", metrics.WorstRoundReturn)
	}
	if metrics.StdDevRoundReturn <= 0 || metrics.SharpeRatio == 0 {
		t.Errorf("Expected non-zero dispersion and sharpe, got %f / %f", metrics.StdDevRoundReturn, metrics.SharpeRatio)
	}
}

func TestAnalyzeEquityCurve_Empty(t *testing.T) {
	metrics := AnalyzeEquityCurve(nil, decimal.NewFromInt(5000))
	if metrics.Rounds != 0 || metrics.FinalEquity != 5000 || metrics.TotalReturn != 0 {
		t.Errorf("Unexpected metrics for empty curve: %+v", metrics)
	}
}

func TestAnalyzeEquityCurve_OpenDrawdown(t *testing.T) {
	metrics := AnalyzeEquityCurve([]*domain.EquitySnapshot{snap(1, "90000")}, decimal.NewFromInt(100000))
	if len(metrics.Drawdowns) != 1 || metrics.Drawdowns[0].Recovered {
		t.Fatalf("Expected one open drawdown, got %+v", metrics.Drawdowns)
	}
	if metrics.SharpeRatio != 0 {
		t.Errorf("Expected zero sharpe with one round, got %f", metrics.SharpeRatio)
	}
}

func TestAnalyzeTrades(t *testing.T) {
	d := decimal.RequireFromString
	execs := []*domain.ExecutionRecord{
		{Symbol: "SPY", Side: domain.Buy, Shares: d("10"), Price: d("500")},
		{Symbol: "KO", Side: domain.Buy, Shares: d("100"), Price: d("60")},
		{Symbol: "SPY", Side: domain.Sell, Shares: d("5"), Price: d("510")},
	}

	s := AnalyzeTrades(execs)
	if s.TotalTrades != 3 || s.Buys != 2 || s.Sells != 1 {
		t.Errorf("Unexpected counts %+v", s)
	}
	if !s.Turnover.Equal(d("13550")) {
		t.Errorf("Expected turnover 13550, got %s", s.Turnover)
	}
	if len(s.Symbols) != 2 || s.Symbols[0].Symbol != "SPY" || s.Symbols[0].Trades != 2 {
		t.Errorf("Unexpected symbol activity %+v", s.Symbols)
	}
}
