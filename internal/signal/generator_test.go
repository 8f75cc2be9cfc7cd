package signal

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

func dates(n int) []time.Time {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestNext(t *testing.T) {
	g := &Generator{Entry: 2, Exit: 0.5, Stop: 4}
	nan := math.NaN()

	tests := []struct {
		name string
		prev contracts.Position
		z    float64
		want contracts.Position
	}{
		{"undefined keeps flat", contracts.Flat, nan, contracts.Flat},
		{"undefined keeps short", contracts.ShortSpread, nan, contracts.ShortSpread},
		{"above entry shorts", contracts.Flat, 2.5, contracts.ShortSpread},
		{"below -entry longs", contracts.Flat, -2.5, contracts.LongSpread},
		{"at entry does not enter", contracts.Flat, 2.0, contracts.Flat},
		{"inside band holds short", contracts.ShortSpread, 1.2, contracts.ShortSpread},
		{"inside band holds long", contracts.LongSpread, -1.2, contracts.LongSpread},
		{"inside band stays flat", contracts.Flat, 1.2, contracts.Flat},
		{"positive mid z does not go long", contracts.Flat, 0.8, contracts.Flat},
		{"exit from short", contracts.ShortSpread, 0.3, contracts.Flat},
		{"exit from long", contracts.LongSpread, -0.1, contracts.Flat},
		{"at exit holds", contracts.LongSpread, -0.5, contracts.LongSpread},
		{"direct flip", contracts.ShortSpread, -3, contracts.LongSpread},
		{"stop out", contracts.ShortSpread, 4.5, contracts.Flat},
		{"stop blocks entry", contracts.Flat, -5, contracts.Flat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Next(tt.prev, tt.z))
		})
	}
}

func TestGenerate_FlatZScore(t *testing.T) {
	z := make([]float64, 60)

	s, err := NewGenerator().Generate(dates(60), z)
	require.NoError(t, err)

	for _, sig := range s.Signals {
		assert.Equal(t, contracts.Flat, sig.Position)
		assert.Equal(t, 0.0, sig.TradeFlag)
	}
	assert.Equal(t, 0, s.TotalTrades())
}

func TestGenerate_StepFunction(t *testing.T) {
	z := make([]float64, 60)
	for i := 30; i < 40; i++ {
		z[i] = 3.0
	}
	for i := 40; i < 60; i++ {
		z[i] = 0.1
	}

	s, err := NewGenerator().Generate(dates(60), z)
	require.NoError(t, err)

	pos := s.Positions()
	for i := 0; i < 30; i++ {
		assert.Equal(t, contracts.Flat, pos[i], "day %d", i+1)
	}
	for i := 30; i < 40; i++ {
		assert.Equal(t, contracts.ShortSpread, pos[i], "day %d", i+1)
	}
	for i := 40; i < 60; i++ {
		assert.Equal(t, contracts.Flat, pos[i], "day %d", i+1)
	}

	var nonZero []int
	for i, f := range s.TradeFlags() {
		if f > 0 {
			nonZero = append(nonZero, i)
		}
	}
	assert.Equal(t, []int{30, 40}, nonZero)
	assert.Equal(t, 2, s.TotalTrades())
}

func TestGenerate_Hysteresis(t *testing.T) {
	z := []float64{
		math.NaN(), math.NaN(), 0.0, 2.1, 1.5, 0.9, 0.6, 0.4,
		-1.0, -2.2, -1.9, -0.7, 2.6, 1.0, math.NaN(), 0.2,
	}
	want := []contracts.Position{
		0, 0, 0, -1, -1, -1, -1, 0,
		0, 1, 1, 1, -1, -1, -1, 0,
	}

	s, err := NewGenerator().Generate(dates(len(z)), z)
	require.NoError(t, err)

	if diff := cmp.Diff(want, s.Positions()); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}

	// trade_flag[t] = |pos[t] - pos[t-1]|
	prev := contracts.Flat
	for i, sig := range s.Signals {
		assert.Equal(t, math.Abs(float64(sig.Position-prev)), sig.TradeFlag, "date %d", i)
		prev = sig.Position
	}
	assert.Equal(t, 2.0, s.Signals[12].TradeFlag) // long → short flip
	assert.Equal(t, 5, s.TotalTrades())
}

func TestGenerate_FirstDateTrade(t *testing.T) {
	s, err := NewGenerator().Generate(dates(3), []float64{-2.5, -1.0, -1.0})
	require.NoError(t, err)

	assert.Equal(t, contracts.LongSpread, s.Signals[0].Position)
	assert.Equal(t, 1.0, s.Signals[0].TradeFlag)
	assert.Equal(t, 1, s.TotalTrades())
}

func TestGenerate_Thresholds(t *testing.T) {
	g := &Generator{Entry: 1.5, Exit: 0.25, Stop: 3}
	s, err := g.Generate(dates(1), []float64{0})
	require.NoError(t, err)

	assert.Equal(t, 1.5, s.EntryThreshold)
	assert.Equal(t, 0.25, s.ExitThreshold)
	assert.Equal(t, 3.0, s.StopThreshold)
}

func TestGenerate_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		g    *Generator
		n    int
		z    []float64
	}{
		{"zero exit", &Generator{Entry: 2, Exit: 0}, 1, []float64{0}},
		{"entry below exit", &Generator{Entry: 0.4, Exit: 0.5}, 1, []float64{0}},
		{"entry equals exit", &Generator{Entry: 0.5, Exit: 0.5}, 1, []float64{0}},
		{"stop inside entry", &Generator{Entry: 2, Exit: 0.5, Stop: 1.5}, 1, []float64{0}},
		{"negative stop", &Generator{Entry: 2, Exit: 0.5, Stop: -1}, 1, []float64{0}},
		{"misaligned", NewGenerator(), 3, []float64{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.g.Generate(dates(tt.n), tt.z)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contracts.ErrInput))
		})
	}
}
