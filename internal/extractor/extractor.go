// Package extractor turns free-form agent output into trade proposals.
//
// A trade directive looks like
//
//	TRADE: BUY 50 NVDA @ 142.30
//
// The directive keyword and side are case-insensitive, the symbol is 1-5 upper-case letters
// and the price may carry a leading '$'. Anything that does not match, or that carries a
// non-positive quantity or price, is dropped without error.
package extractor

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"tradeArena/internal/domain"
)

// DefaultCommentaryLength caps commentary when no explicit limit is given.
const DefaultCommentaryLength = 500

const (
	ellipsis      = "..."
	maxLineLength = 1 << 20
)

var tradePattern = regexp.MustCompile(
	`(?i:TRADE:\s*(BUY|SELL))\s+(\d+(?:\.\d+)?)\s+([A-Z]{1,5})\s*@\s*\$?(\d+(?:\.\d+)?)`,
)

// Scanner yields proposals from a reader one at a time, in the order they appear.
// Like bufio.Scanner it makes a single pass and cannot be rewound.
type Scanner struct {
	lines   *bufio.Scanner
	pending []domain.TradeProposal
	current domain.TradeProposal
	err     error
	done    bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return &Scanner{lines: lines}
}

// Scan advances to the next well-formed proposal. It returns false once the input is
// exhausted or a read error occurs; Err reports the latter.
func (s *Scanner) Scan() bool {
	for len(s.pending) == 0 {
		if s.done {
			return false
		}
		if !s.lines.Scan() {
			s.done = true
			s.err = s.lines.Err()
			return false
		}
		s.pending = parseLine(s.lines.Text())
	}
	s.current = s.pending[0]
	s.pending = s.pending[1:]
	return true
}

// Proposal returns the proposal produced by the last successful Scan.
func (s *Scanner) Proposal() domain.TradeProposal {
	return s.current
}

// Err returns the first non-EOF read error.
func (s *Scanner) Err() error {
	return s.err
}

// Extract returns every well-formed proposal in raw, in order.
func Extract(raw string) []domain.TradeProposal {
	var out []domain.TradeProposal
	sc := NewScanner(strings.NewReader(raw))
	for sc.Scan() {
		out = append(out, sc.Proposal())
	}
	return out
}

// IsDirective reports whether line contains at least one trade directive, well-formed or not in value.
func IsDirective(line string) bool {
	return tradePattern.MatchString(line)
}

// Commentary joins the trimmed non-blank lines that carry no trade directive with single spaces,
// truncating to maxLen characters with a trailing ellipsis. A non-positive maxLen selects
// DefaultCommentaryLength. Returns nil when nothing remains.
func Commentary(raw string, maxLen int) *string {
	if maxLen <= 0 {
		maxLen = DefaultCommentaryLength
	}

	var parts []string
	for _, line := range strings.Split(raw, "\n") {
		if IsDirective(line) {
			continue
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	text := truncate(strings.Join(parts, " "), maxLen)
	return &text
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= len(ellipsis) {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

func parseLine(line string) []domain.TradeProposal {
	matches := tradePattern.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]domain.TradeProposal, 0, len(matches))
	for _, m := range matches {
		side, ok := domain.ParseSide(m[1])
		if !ok {
			continue
		}
		shares, err := decimal.NewFromString(m[2])
		if err != nil || !shares.IsPositive() {
			continue
		}
		price, err := decimal.NewFromString(m[4])
		if err != nil || !price.IsPositive() {
			continue
		}
		out = append(out, domain.TradeProposal{Side: side, Symbol: m[3], Shares: shares, Price: price})
	}
	return out
}
