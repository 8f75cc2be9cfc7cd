package performance

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

// portfolioFrom compounds the given returns behind a first row without a return
func portfolioFrom(returns []float64, bench []float64) *contracts.Portfolio {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := &contracts.Portfolio{InitialCapital: 100_000}
	p.Rows = append(p.Rows, contracts.PortfolioRow{
		Date: start, CumulativeReturn: 1, PortfolioValue: 100_000, BenchmarkCumulative: 1, BenchmarkValue: 100_000,
	})
	cum, bcum := 1.0, 1.0
	for i, r := range returns {
		cum *= 1 + r
		b := 0.0
		if bench != nil {
			b = bench[i]
		}
		bcum *= 1 + b
		p.Rows = append(p.Rows, contracts.PortfolioRow{
			Date:                start.AddDate(0, 0, i+1),
			StrategyReturn:      r,
			CumulativeReturn:    cum,
			PortfolioValue:      100_000 * cum,
			BenchmarkReturn:     b,
			BenchmarkCumulative: bcum,
			BenchmarkValue:      100_000 * bcum,
			HasReturn:           true,
		})
	}
	return p
}

func signalsWithTrades(n, trades int) contracts.SignalSeries {
	s := contracts.SignalSeries{Signals: make([]contracts.Signal, n)}
	for i := 0; i < trades && i < n; i++ {
		s.Signals[i].TradeFlag = 1
	}
	return s
}

func TestSummarize_RequiresBacktest(t *testing.T) {
	_, err := NewAnalyzer(nil).Summarize(nil, contracts.SignalSeries{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrState))
	assert.Contains(t, err.Error(), "must run backtest first")
}

func TestSummarize_ZeroYears(t *testing.T) {
	p := portfolioFrom(nil, nil)

	_, err := NewAnalyzer(nil).Summarize(p, signalsWithTrades(1, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrNumericalDegeneracy))
}

func TestSummarize_FlatPortfolio(t *testing.T) {
	p := portfolioFrom(make([]float64, 59), nil)

	m, err := NewAnalyzer(nil).Summarize(p, signalsWithTrades(60, 0))
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.TotalReturn)
	assert.Equal(t, 0.0, m.AnnualizedReturn)
	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 0.0, m.SharpeRatio)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.Equal(t, 0.0, m.WinRate)
	assert.Equal(t, 0, m.TotalTrades)
	assert.Equal(t, 100_000.0, m.FinalValue)
}

func TestSummarize_KnownValues(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.03, 0.0, 0.005}
	bench := []float64{0.01, 0.01, 0.0, 0.0, 0.0}
	p := portfolioFrom(returns, bench)

	m, err := NewAnalyzer(nil).Summarize(p, signalsWithTrades(6, 3))
	require.NoError(t, err)

	total := 1.01*0.98*1.03*1.0*1.005 - 1
	years := 5.0 / 252
	assert.InDelta(t, total, m.TotalReturn, 1e-12)
	assert.InDelta(t, years, m.Years, 1e-15)
	assert.InDelta(t, math.Pow(1+total, 1/years)-1, m.AnnualizedReturn, 1e-9)

	// sample std (ddof=1)
	mean := (0.01 - 0.02 + 0.03 + 0.0 + 0.005) / 5
	ss := 0.0
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	vol := math.Sqrt(ss/4) * math.Sqrt(252)
	assert.InDelta(t, vol, m.Volatility, 1e-12)
	assert.InDelta(t, m.AnnualizedReturn/vol, m.SharpeRatio, 1e-9)

	assert.InDelta(t, -0.02, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, 3.0/4.0, m.WinRate, 1e-15)
	assert.Equal(t, 3, m.TotalTrades)
	assert.InDelta(t, 1.01*1.01-1, m.BenchmarkReturn, 1e-12)
	assert.InDelta(t, m.TotalReturn-m.BenchmarkReturn, m.Outperformance, 1e-15)
}

func TestSummarize_SingleReturnHasNoVolatility(t *testing.T) {
	m, err := NewAnalyzer(nil).Summarize(portfolioFrom([]float64{0.01}, nil), signalsWithTrades(2, 1))
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 0.0, m.SharpeRatio)
	assert.Equal(t, 1.0, m.WinRate)
}

func TestSummarize_Deterministic(t *testing.T) {
	p := portfolioFrom([]float64{0.01, -0.004, 0.002, 0.007, -0.011, 0.003}, nil)
	s := signalsWithTrades(7, 2)

	first, err := NewAnalyzer(nil).Summarize(p, s)
	require.NoError(t, err)
	second, err := NewAnalyzer(nil).Summarize(p, s)
	require.NoError(t, err)

	assert.Equal(t, *first, *second)
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name  string
		curve []float64
		want  float64
	}{
		{"empty", nil, 0},
		{"non-decreasing", []float64{1, 1, 1.1, 1.2, 1.2}, 0},
		{"single dip", []float64{1, 1.2, 0.9, 1.3}, (0.9 - 1.2) / 1.2},
		{"deepest of two", []float64{1, 0.95, 1.1, 0.88, 1.0}, (0.88 - 1.1) / 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.curve)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.LessOrEqual(t, got, 0.0)
		})
	}
}

func TestProfitFactor(t *testing.T) {
	trips := []contracts.RoundTrip{{GrossReturn: 0.04}, {GrossReturn: -0.01}, {GrossReturn: 0.02}, {GrossReturn: -0.02}}
	assert.InDelta(t, 2.0, profitFactor(trips), 1e-12)
	assert.Equal(t, 0.0, profitFactor([]contracts.RoundTrip{{GrossReturn: 0.01}}))
}

func TestMetricsRows(t *testing.T) {
	m := &contracts.PerformanceMetrics{
		TotalReturn:      0.1234,
		AnnualizedReturn: 0.05,
		Volatility:       0.2,
		SharpeRatio:      0.25,
		MaxDrawdown:      -0.0812,
		WinRate:          0.55,
		TotalTrades:      12,
		BenchmarkReturn:  0.1,
		Outperformance:   0.0234,
	}

	rows := m.Rows()
	require.Len(t, rows, 9)
	assert.Equal(t, contracts.MetricRow{Label: "Total Return", Value: "12.34%"}, rows[0])
	assert.Equal(t, contracts.MetricRow{Label: "Sharpe Ratio", Value: "0.250"}, rows[3])
	assert.Equal(t, contracts.MetricRow{Label: "Max Drawdown", Value: "-8.12%"}, rows[4])
	assert.Equal(t, contracts.MetricRow{Label: "Total Trades", Value: "12"}, rows[6])
	assert.Equal(t, "Outperformance", rows[8].Label)
}
