package spread

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

func samplePrices(n int) ([]float64, []float64) {
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		b[i] = 40 + 0.3*float64(i) + 2*math.Sin(float64(i)/3)
		a[i] = 1.8*b[i] + 12 + math.Cos(float64(i)*1.7)
	}
	return a, b
}

func TestBuilder_SpreadIdentity(t *testing.T) {
	a, b := samplePrices(120)

	res, err := NewBuilder(20).Fit(a, b)
	require.NoError(t, err)
	require.Len(t, res.Spread, len(a))

	for i := range a {
		assert.InDelta(t, a[i]-res.HedgeRatio*b[i], res.Spread[i], 1e-9, "date %d", i)
	}
	assert.InDelta(t, 1.8, res.HedgeRatio, 0.1)
	assert.Greater(t, res.RSquared, 0.9)
	assert.LessOrEqual(t, res.RSquared, 1.0)
}

func TestBuilder_ExactLinearRelation(t *testing.T) {
	b := []float64{10, 11, 13, 12, 15, 14, 16, 18, 17, 19}
	a := make([]float64, len(b))
	for i := range b {
		a[i] = 2*b[i] + 3
	}

	res, err := NewBuilder(5).Fit(a, b)
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.HedgeRatio, 1e-9)
	assert.InDelta(t, 3.0, res.Intercept, 1e-9)
	assert.InDelta(t, 1.0, res.RSquared, 1e-9)
	// intercept is not subtracted
	assert.InDelta(t, 3.0, res.Spread[0], 1e-9)
}

func TestBuilder_WarmupIsUndefined(t *testing.T) {
	a, b := samplePrices(60)

	res, err := NewBuilder(20).Fit(a, b)
	require.NoError(t, err)

	for i := 0; i < 19; i++ {
		assert.True(t, math.IsNaN(res.ZScore[i]), "z[%d] should be undefined", i)
		assert.True(t, math.IsNaN(res.RollingMean[i]))
	}
	for i := 19; i < 60; i++ {
		assert.False(t, math.IsNaN(res.ZScore[i]), "z[%d] should be defined", i)
	}
	assert.Equal(t, 41, res.ZScore.CountDefined())
}

func TestBuilder_DefaultWindow(t *testing.T) {
	assert.Equal(t, DefaultWindow, NewBuilder(0).Window)
	assert.Equal(t, 5, NewBuilder(5).Window)
}

func TestRolling_KnownValues(t *testing.T) {
	mean, std := Rolling(contracts.Series{1, 2, 3, 4}, 2)

	assert.True(t, math.IsNaN(mean[0]))
	assert.True(t, math.IsNaN(std[0]))
	assert.InDeltaSlice(t, []float64{1.5, 2.5, 3.5}, []float64(mean[1:]), 1e-12)
	for _, s := range std[1:] {
		assert.InDelta(t, math.Sqrt(0.5), s, 1e-12)
	}
}

func TestZScore_ZeroVarianceWindowIsUndefined(t *testing.T) {
	x := contracts.Series{1, 2, 3, 0.1, 0.1, 0.1, 0.1, 4, 5}
	mean, std := Rolling(x, 3)
	z := ZScore(x, mean, std)

	// windows ending at 5 and 6 hold only 0.1
	assert.Equal(t, 0.0, std[5])
	assert.Equal(t, 0.0, std[6])
	assert.True(t, math.IsNaN(z[5]))
	assert.True(t, math.IsNaN(z[6]))

	assert.False(t, math.IsNaN(z[2]))
	assert.False(t, math.IsNaN(z[7]))
	assert.InDelta(t, 1.0, z[2], 1e-12) // (3-2)/1
}

func TestBuilder_InputErrors(t *testing.T) {
	a, b := samplePrices(30)
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 7
	}
	withInf := append([]float64(nil), b...)
	withInf[3] = math.Inf(1)

	tests := []struct {
		name   string
		window int
		a, b   []float64
	}{
		{"window too small", 1, a, b},
		{"empty", 20, nil, nil},
		{"length mismatch", 20, a, b[:25]},
		{"window exceeds data", 40, a, b},
		{"non-finite", 20, a, withInf},
		{"constant regressor", 20, a, flat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Builder{Window: tt.window}).Fit(tt.a, tt.b)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contracts.ErrInput))
			assert.Contains(t, err.Error(), string(contracts.StageSpread))
		})
	}
}
