package backtest

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

func tradingDates(n int) []time.Time {
	start := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func growingPrices(t *testing.T, n int, rateA, rateB float64) contracts.PriceSeries {
	t.Helper()
	a := make([]float64, n)
	b := make([]float64, n)
	a[0], b[0] = 100, 50
	for i := 1; i < n; i++ {
		a[i] = a[i-1] * (1 + rateA)
		b[i] = b[i-1] * (1 + rateB)
	}
	ps, err := contracts.NewPriceSeries("AAA", "BBB", tradingDates(n), a, b)
	require.NoError(t, err)
	return ps
}

// signalsFrom builds a series with trade flags derived from the positions
func signalsFrom(positions []contracts.Position) contracts.SignalSeries {
	dates := tradingDates(len(positions))
	out := contracts.SignalSeries{Signals: make([]contracts.Signal, len(positions))}
	prev := contracts.Flat
	for i, p := range positions {
		out.Signals[i] = contracts.Signal{
			Date:      dates[i],
			ZScore:    math.NaN(),
			Position:  p,
			TradeFlag: math.Abs(float64(p - prev)),
		}
		prev = p
	}
	return out
}

func constant(n int, p contracts.Position) []contracts.Position {
	out := make([]contracts.Position, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func TestEngine_FlatSignalsKeepCapital(t *testing.T) {
	prices := growingPrices(t, 60, 0.004, -0.002)
	signals := signalsFrom(constant(60, contracts.Flat))

	p, err := NewEngine(100_000, 0.001, nil).Run(prices, signals, 1.2)
	require.NoError(t, err)
	require.Len(t, p.Rows, 60)

	for i, row := range p.Rows {
		assert.Equal(t, 0.0, row.StrategyReturn, "date %d", i)
		assert.Equal(t, 100_000.0, row.PortfolioValue, "date %d", i)
		assert.Equal(t, 0.0, row.LegBPosition)
	}
	assert.Empty(t, p.RoundTrips)
}

func TestEngine_HedgeRatioScenario(t *testing.T) {
	const hedge = 1.5
	prices := growingPrices(t, 10, 0.01, 0.01)
	signals := signalsFrom(constant(10, contracts.LongSpread))

	p, err := NewEngine(100_000, 0.001, nil).Run(prices, signals, hedge)
	require.NoError(t, err)

	a, b := prices.A(), prices.B()
	for i, row := range p.Rows {
		assert.Equal(t, 1.0, row.LegAPosition)
		assert.Equal(t, -1.5, row.LegBPosition)
		if i == 0 {
			assert.False(t, row.HasReturn)
			assert.Equal(t, 1.0, row.CumulativeReturn)
			continue
		}
		rA := a[i]/a[i-1] - 1
		rB := b[i]/b[i-1] - 1
		want := rA - hedge*rB
		if i == 1 {
			want -= 0.001 // entry cost from the first date
		}
		assert.InDelta(t, want, row.StrategyReturn, 1e-12, "date %d", i)
	}

	assert.InDelta(t, -0.006, p.Rows[1].StrategyReturn, 1e-12)
	assert.InDelta(t, -0.005, p.Rows[2].StrategyReturn, 1e-12)
}

func TestEngine_CumulativeIsMultiplicative(t *testing.T) {
	prices := growingPrices(t, 40, 0.003, 0.001)
	positions := constant(40, contracts.Flat)
	for i := 5; i < 15; i++ {
		positions[i] = contracts.ShortSpread
	}
	for i := 20; i < 32; i++ {
		positions[i] = contracts.LongSpread
	}
	positions[32] = contracts.ShortSpread

	p, err := NewEngine(50_000, 0.002, nil).Run(prices, signalsFrom(positions), 0.8)
	require.NoError(t, err)

	assert.Equal(t, 1.0, p.Rows[0].CumulativeReturn)
	assert.InDelta(t, 1+p.Rows[1].StrategyReturn, p.Rows[1].CumulativeReturn, 1e-15)
	for i := 1; i < len(p.Rows); i++ {
		prev := p.Rows[i-1].CumulativeReturn
		assert.InDelta(t, prev*(1+p.Rows[i].StrategyReturn), p.Rows[i].CumulativeReturn, 1e-12)
		assert.InDelta(t, 50_000*p.Rows[i].CumulativeReturn, p.Rows[i].PortfolioValue, 1e-6)
	}
}

func TestEngine_ExecutionLag(t *testing.T) {
	prices := growingPrices(t, 5, 0.02, 0.0)
	positions := []contracts.Position{0, 0, 1, 1, 0}

	p, err := NewEngine(100_000, 0, nil).Run(prices, signalsFrom(positions), 1)
	require.NoError(t, err)

	// entry decided on date 2 earns from date 3
	assert.Equal(t, 0.0, p.Rows[2].LegAReturn)
	assert.InDelta(t, 0.02, p.Rows[3].LegAReturn, 1e-12)
	assert.InDelta(t, 0.02, p.Rows[4].LegAReturn, 1e-12)
	assert.Equal(t, 0.0, p.Rows[4].LegBReturn)
}

func TestEngine_TransactionCosts(t *testing.T) {
	prices := growingPrices(t, 6, 0, 0)
	positions := []contracts.Position{0, 1, -1, -1, 0, 0}

	p, err := NewEngine(100_000, 0.001, nil).Run(prices, signalsFrom(positions), 1)
	require.NoError(t, err)

	assert.InDelta(t, 0.001, p.Rows[1].TransactionCost, 1e-15)
	assert.InDelta(t, 0.002, p.Rows[2].TransactionCost, 1e-15) // flip
	assert.Equal(t, 0.0, p.Rows[3].TransactionCost)
	assert.InDelta(t, 0.001, p.Rows[4].TransactionCost, 1e-15)
	assert.InDelta(t, 0.004, p.TotalCosts(), 1e-15)
	assert.InDelta(t, (1-0.001)*(1-0.002)*(1-0.001), p.FinalCumulative(), 1e-15)
}

func TestEngine_Benchmark(t *testing.T) {
	prices := growingPrices(t, 3, 0.02, 0.04)

	p, err := NewEngine(10_000, 0.001, nil).Run(prices, signalsFrom(constant(3, contracts.Flat)), 1)
	require.NoError(t, err)

	assert.InDelta(t, 0.03, p.Rows[1].BenchmarkReturn, 1e-12)
	assert.InDelta(t, 1.03*1.03, p.FinalBenchmark(), 1e-12)
	assert.InDelta(t, 10_000*1.03*1.03, p.Rows[2].BenchmarkValue, 1e-8)
}

func TestEngine_RoundTrips(t *testing.T) {
	prices := growingPrices(t, 12, 0.01, 0.0)
	positions := constant(12, contracts.Flat)
	for i := 2; i < 6; i++ {
		positions[i] = contracts.LongSpread
	}
	for i := 9; i < 12; i++ {
		positions[i] = contracts.ShortSpread
	}

	p, err := NewEngine(100_000, 0.001, nil).Run(prices, signalsFrom(positions), 1)
	require.NoError(t, err)
	require.Len(t, p.RoundTrips, 2)

	first := p.RoundTrips[0]
	assert.Equal(t, contracts.LongSpread, first.Direction)
	assert.Equal(t, tradingDates(12)[2], first.EntryDate)
	assert.Equal(t, tradingDates(12)[6], first.ExitDate)
	assert.Equal(t, 4, first.HoldingDays)
	assert.InDelta(t, math.Pow(1.01, 4)-1, first.GrossReturn, 1e-12)
	assert.False(t, first.Open)

	last := p.RoundTrips[1]
	assert.Equal(t, contracts.ShortSpread, last.Direction)
	assert.True(t, last.Open)
	assert.Less(t, last.GrossReturn, 0.0)
}

func TestEngine_InputErrors(t *testing.T) {
	prices := growingPrices(t, 10, 0.01, 0.01)
	signals := signalsFrom(constant(10, contracts.Flat))
	shifted := signalsFrom(constant(10, contracts.Flat))
	shifted.Signals[3].Date = shifted.Signals[3].Date.AddDate(0, 0, 1)

	tests := []struct {
		name    string
		engine  *Engine
		signals contracts.SignalSeries
		hedge   float64
	}{
		{"misaligned length", NewEngine(100, 0, nil), signalsFrom(constant(9, contracts.Flat)), 1},
		{"misaligned dates", NewEngine(100, 0, nil), shifted, 1},
		{"zero capital", NewEngine(0, 0, nil), signals, 1},
		{"negative cost", NewEngine(100, -0.1, nil), signals, 1},
		{"nan hedge", NewEngine(100, 0, nil), signals, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.engine.Run(prices, tt.signals, tt.hedge)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contracts.ErrInput))
		})
	}
}
