package yahoo

import (
	"context"
	"errors"
	"testing"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeArena/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := New(&mockLogger{})
	require.NoError(t, err)
	return c
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name      string
		fetch     func(string) (*finance.Quote, error)
		wantOK    bool
		wantPrice string
		wantErr   error
	}{
		{
			name: "quote found",
			fetch: func(s string) (*finance.Quote, error) {
				return &finance.Quote{Symbol: s, RegularMarketPrice: 142.3}, nil
			},
			wantOK:    true,
			wantPrice: "142.3",
		},
		{
			name:  "unknown symbol",
			fetch: func(string) (*finance.Quote, error) { return nil, nil },
		},
		{
			name: "zero price",
			fetch: func(s string) (*finance.Quote, error) {
				return &finance.Quote{Symbol: s}, nil
			},
		},
		{
			name:    "transport failure",
			fetch:   func(string) (*finance.Quote, error) { return nil, errors.New("remote error") },
			wantErr: ports.ErrPriceSourceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t)
			c.fetchQuote = tt.fetch

			price, ok, err := c.Price(context.Background(), "nvda")
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantPrice, price.String())
			}
		})
	}
}

func TestPrice_UppercasesSymbol(t *testing.T) {
	c := newTestClient(t)
	var got string
	c.fetchQuote = func(s string) (*finance.Quote, error) {
		got = s
		return nil, nil
	}
	_, _, _ = c.Price(context.Background(), "aapl")
	assert.Equal(t, "AAPL", got)
}

func TestPrice_ContextDeadline(t *testing.T) {
	c := newTestClient(t)
	release := make(chan struct{})
	defer close(release)
	c.fetchQuote = func(string) (*finance.Quote, error) {
		<-release
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, ok, err := c.Price(ctx, "AAPL")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ports.ErrTimeout), "got %v", err)
}

func TestDividendYield(t *testing.T) {
	tests := []struct {
		name      string
		fetch     func(string) (*finance.Equity, error)
		wantOK    bool
		wantYield string
	}{
		{
			name: "dividend payer",
			fetch: func(string) (*finance.Equity, error) {
				return &finance.Equity{TrailingAnnualDividendYield: 0.031}, nil
			},
			wantOK:    true,
			wantYield: "0.031",
		},
		{
			name: "non payer reports zero",
			fetch: func(string) (*finance.Equity, error) {
				return &finance.Equity{}, nil
			},
			wantOK:    true,
			wantYield: "0",
		},
		{
			name:  "unknown symbol",
			fetch: func(string) (*finance.Equity, error) { return nil, nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t)
			c.fetchEquity = tt.fetch

			y, ok, err := c.DividendYield(context.Background(), "KO")
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantYield, y.String())
			}
		})
	}
}

func TestClientServesPriceAndYieldPorts(t *testing.T) {
	c := newTestClient(t)
	assert.Implements(t, (*ports.PriceSource)(nil), c)
	assert.Implements(t, (*ports.YieldSource)(nil), c)
}
