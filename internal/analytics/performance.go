package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"

	"tradeArena/internal/domain"
)

// PerformanceMetrics summarises an agent's equity curve across rounds
type PerformanceMetrics struct {
	// Basic Metrics
	Rounds         int
	StartingEquity float64
	FinalEquity    float64
	PeakEquity     float64
	TotalReturn    float64 // Fraction of starting equity
	MaxDrawdown    float64 // Fraction of the running peak

	// Round-over-round statistics
	MeanRoundReturn   float64
	StdDevRoundReturn float64
	SharpeRatio       float64 // Mean over sample stddev of round returns, zero with fewer than two rounds
	BestRoundReturn   float64
	WorstRoundReturn  float64

	Drawdowns   []Drawdown
	EquityCurve []EquityPoint
}

// Drawdown represents a drawdown period
type Drawdown struct {
	StartRound int
	EndRound   int // Round the previous peak was regained, or the last round when still open
	StartValue float64
	Trough     float64
	Depth      float64
	Recovered  bool
}

// EquityPoint represents a point on the equity curve
type EquityPoint struct {
	Round    int
	Time     time.Time
	Value    float64
	Drawdown float64
}

// AnalyzeEquityCurve computes performance metrics from end-of-round snapshots.
// The starting cash is treated as the equity before the first round.
func AnalyzeEquityCurve(snapshots []*domain.EquitySnapshot, startingCash decimal.Decimal) *PerformanceMetrics {
	initial := startingCash.InexactFloat64()
	metrics := &PerformanceMetrics{
		StartingEquity: initial,
		FinalEquity:    initial,
		PeakEquity:     initial,
		Drawdowns:      make([]Drawdown, 0),
		EquityCurve:    make([]EquityPoint, 0, len(snapshots)),
	}
	if len(snapshots) == 0 {
		return metrics
	}

	ordered := make([]*domain.EquitySnapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Round != ordered[j].Round {
			return ordered[i].Round < ordered[j].Round
		}
		return ordered[i].CapturedAt.Before(ordered[j].CapturedAt)
	})

	peak := initial
	previous := initial
	var current *Drawdown
	returns := make([]float64, 0, len(ordered))

	for _, snap := range ordered {
		value := snap.Equity.InexactFloat64()
		if previous > 0 {
			returns = append(returns, value/previous-1)
		}
		previous = value

		if value >= peak {
			peak = value
			if current != nil {
				current.EndRound = snap.Round
				current.Recovered = true
				metrics.Drawdowns = append(metrics.Drawdowns, *current)
				current = nil
			}
		} else {
			depth := (peak - value) / peak
			if current == nil {
				current = &Drawdown{StartRound: snap.Round, StartValue: peak, Trough: value, Depth: depth}
			} else if depth > current.Depth {
				current.Depth = depth
				current.Trough = value
			}
			metrics.MaxDrawdown = math.Max(metrics.MaxDrawdown, depth)
		}

		drawdown := 0.0
		if peak > 0 {
			drawdown = (peak - value) / peak
		}
		metrics.EquityCurve = append(metrics.EquityCurve, EquityPoint{
			Round:    snap.Round,
			Time:     snap.CapturedAt,
			Value:    value,
			Drawdown: drawdown,
		})
	}

	// Close any open drawdown
	if current != nil {
		current.EndRound = ordered[len(ordered)-1].Round
		metrics.Drawdowns = append(metrics.Drawdowns, *current)
	}

	metrics.Rounds = len(ordered)
	metrics.FinalEquity = previous
	metrics.PeakEquity = peak
	if initial > 0 {
		metrics.TotalReturn = (metrics.FinalEquity - initial) / initial
	}

	if len(returns) > 0 {
		metrics.MeanRoundReturn, _ = stats.Mean(returns)
		metrics.BestRoundReturn, _ = stats.Max(returns)
		metrics.WorstRoundReturn, _ = stats.Min(returns)
	}
	if len(returns) > 1 {
		stdev, err := stats.StandardDeviationSample(returns)
		if err == nil {
			metrics.StdDevRoundReturn = stdev
			if stdev > 0 {
				metrics.SharpeRatio = metrics.MeanRoundReturn / stdev
			}
		}
	}

	return metrics
}

// TradeStats summarises an agent's executions
type TradeStats struct {
	TotalTrades int
	Buys        int
	Sells       int
	Turnover    decimal.Decimal // Sum of traded value on both sides
	Symbols     []SymbolActivity
}

// SymbolActivity counts the trades in one symbol
type SymbolActivity struct {
	Symbol string
	Trades int
	Value  decimal.Decimal
}

// AnalyzeTrades tallies executions by side and symbol. Symbols are ordered by trade count, then value.
func AnalyzeTrades(execs []*domain.ExecutionRecord) *TradeStats {
	out := &TradeStats{Turnover: decimal.Zero}
	bySymbol := map[string]*SymbolActivity{}

	for _, e := range execs {
		out.TotalTrades++
		switch e.Side {
		case domain.Buy:
			out.Buys++
		case domain.Sell:
			out.Sells++
		}
		value := e.Value()
		out.Turnover = out.Turnover.Add(value)

		act, ok := bySymbol[e.Symbol]
		if !ok {
			act = &SymbolActivity{Symbol: e.Symbol, Value: decimal.Zero}
			bySymbol[e.Symbol] = act
		}
		act.Trades++
		act.Value = act.Value.Add(value)
	}

	for _, act := range bySymbol {
		out.Symbols = append(out.Symbols, *act)
	}
	sort.Slice(out.Symbols, func(i, j int) bool {
		a, b := out.Symbols[i], out.Symbols[j]
		if a.Trades != b.Trades {
			return a.Trades > b.Trades
		}
		if !a.Value.Equal(b.Value) {
			return a.Value.GreaterThan(b.Value)
		}
		return a.Symbol < b.Symbol
	})
	return out
}
