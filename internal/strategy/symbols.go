package strategy

import (
	"sort"
	"strings"
)

// SymbolSet is an immutable set of ticker symbols.
type SymbolSet struct {
	members map[string]struct{}
}

// NewSymbolSet builds a set from the given symbols, upper-casing each one.
func NewSymbolSet(symbols ...string) SymbolSet {
	members := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		members[strings.ToUpper(s)] = struct{}{}
	}
	return SymbolSet{members: members}
}

// Contains reports whether symbol belongs to the set.
func (s SymbolSet) Contains(symbol string) bool {
	_, ok := s.members[strings.ToUpper(symbol)]
	return ok
}

// Len returns the number of members.
func (s SymbolSet) Len() int {
	return len(s.members)
}

// Sorted returns the members in lexical order.
func (s SymbolSet) Sorted() []string {
	out := make([]string, 0, len(s.members))
	for m := range s.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Broad index constituents plus the major index and bond funds.
var restrictedUniverse = NewSymbolSet(
	"AAPL", "MSFT", "AMZN", "NVDA", "GOOGL", "GOOG", "META", "TSLA", "BRK.B",
	"UNH", "XOM", "JNJ", "JPM", "V", "PG", "MA", "HD", "CVX", "MRK", "ABBV",
	"LLY", "PEP", "KO", "COST", "AVGO", "WMT", "MCD", "CSCO", "TMO", "ACN",
	"ABT", "DHR", "NEE", "DIS", "VZ", "ADBE", "WFC", "PM", "CMCSA", "CRM",
	"NKE", "TXN", "RTX", "BMY", "UPS", "QCOM", "HON", "ORCL", "T", "COP",
	"AMGN", "INTC", "IBM", "CAT", "SPGI", "PLD", "LOW", "BA", "GS", "INTU",
	"SBUX", "MDLZ", "AMD", "BLK", "DE", "AXP", "ELV", "GILD", "LMT", "ISRG",
	"ADI", "CVS", "BKNG", "TJX", "VRTX", "REGN", "SYK", "TMUS", "MMC", "PGR",
	"ADP", "ZTS", "CI", "LRCX", "SCHW", "NOW", "MO", "EOG", "BDX", "C",
	"PYPL", "SO", "ETN", "DUK", "SLB", "CB", "ITW", "NOC", "BSX", "EQIX",
	"CME", "APD", "MU", "SNPS", "ATVI", "ICE", "AON", "HUM", "FCX", "CSX",
	"CL", "WM", "GD", "MCK", "USB", "EMR", "PXD", "KLAC", "NSC", "ORLY",
	"SHW", "MAR", "MCO", "PNC", "CDNS", "NXPI", "F", "GM", "ROP", "HCA",
	"AZO", "FDX", "PSA", "TRV", "D", "AEP", "TFC", "KMB", "MRNA", "OXY",
	"SPY", "QQQ", "IWM", "DIA", "VOO", "VTI", "BND", "AGG", "TLT",
)

// Inverse, volatility, metals and treasury instruments.
var hedgeSymbols = NewSymbolSet(
	"SQQQ", "UVXY", "SH", "SPXS", "VXX", "SDOW", "SPXU", "QID", "SDS", "TZA",
	"GLD", "SLV", "TLT", "BND", "IEF",
)

var leveragedSymbols = NewSymbolSet(
	"TQQQ", "SOXL", "UPRO", "SPXL", "TECL", "FAS", "LABU", "FNGU", "WEBL",
	"SQQQ", "SOXS", "SPXS", "SPXU", "UVXY", "SVXY",
	"GME", "AMC", "BBBY", "DWAC", "HOOD", "PLTR",
)

var cryptoProxies = NewSymbolSet("COIN", "MARA", "RIOT", "BITO", "MSTR", "GBTC")

// Terms a citation must mention, matched against lower-cased text.
var technicalKeywords = []string{
	"rsi", "macd", "sma", "ema", "bollinger", "stochastic",
	"momentum", "roc", "atr", "adx", "obv", "vwap",
	"moving average", "relative strength", "support", "resistance",
	"oversold", "overbought", "crossover", "divergence",
	"50-day", "200-day", "golden cross", "death cross",
}

// RestrictedSymbols returns the symbols a restricted-universe agent may trade.
func RestrictedSymbols() SymbolSet { return restrictedUniverse }

// HedgeSymbols returns the defensive instruments.
func HedgeSymbols() SymbolSet { return hedgeSymbols }

// LeveragedSymbols returns leveraged funds and meme names.
func LeveragedSymbols() SymbolSet { return leveragedSymbols }

// CryptoProxies returns equities that trade as crypto proxies.
func CryptoProxies() SymbolSet { return cryptoProxies }

// TechnicalKeywords returns a copy of the recognised technical-analysis terms.
func TechnicalKeywords() []string {
	out := make([]string, len(technicalKeywords))
	copy(out, technicalKeywords)
	return out
}

// CitesTechnicalSignal reports whether text mentions at least one recognised keyword, ignoring case.
func CitesTechnicalSignal(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range technicalKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}
