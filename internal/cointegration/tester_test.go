package cointegration

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

// cointegratedPair builds b as a random walk and a = 1.5*b + 5 + AR(1) noise
func cointegratedPair(n int, seed int64) ([]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	a := make([]float64, n)
	b := make([]float64, n)
	level, u := 50.0, 0.0
	for i := 0; i < n; i++ {
		level += rng.NormFloat64()
		u = 0.7*u + 0.5*rng.NormFloat64()
		b[i] = level
		a[i] = 1.5*level + 5 + u
	}
	return a, b
}

func TestTester_CointegratedPair(t *testing.T) {
	a, b := cointegratedPair(250, 42)

	res, err := NewTester().Test(a, b, DefaultSignificance)
	require.NoError(t, err)

	assert.True(t, res.IsCointegrated)
	assert.Less(t, res.PValue, 0.01)
	assert.Less(t, res.TestStatistic, res.CriticalValues["1%"])
	assert.Equal(t, 250, res.NObs)
	assert.Equal(t, DefaultSignificance, res.SignificanceLevel)
	assert.GreaterOrEqual(t, res.UsedLag, 0)
	assert.LessOrEqual(t, res.UsedLag, maxLag(250))
	assert.Greater(t, res.HalfLife, 0.5)
	assert.Less(t, res.HalfLife, 10.0)
}

func TestTester_PerfectFit(t *testing.T) {
	b := make([]float64, 50)
	a := make([]float64, 50)
	for i := range b {
		b[i] = 10 + float64(i)*0.5 + math.Sin(float64(i))
		a[i] = 3*b[i] + 1
	}

	res, err := NewTester().Test(a, b, 0.05)
	require.NoError(t, err)

	assert.True(t, math.IsInf(res.TestStatistic, -1))
	assert.Equal(t, 0.0, res.PValue)
	assert.True(t, res.IsCointegrated)
}

func TestTester_IndependentWalksStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	a := make([]float64, 200)
	b := make([]float64, 200)
	a[0], b[0] = 100, 100
	for i := 1; i < len(a); i++ {
		a[i] = a[i-1] + rng.NormFloat64()
		b[i] = b[i-1] + rng.NormFloat64()
	}

	res, err := NewTester().Test(a, b, 0.05)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
	assert.False(t, math.IsNaN(res.TestStatistic))
	assert.Equal(t, res.PValue < 0.05, res.IsCointegrated)
}

func TestTester_Deterministic(t *testing.T) {
	a, b := cointegratedPair(120, 3)

	first, err := NewTester().Test(a, b, 0.05)
	require.NoError(t, err)
	second, err := NewTester().Test(a, b, 0.05)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestTester_InputErrors(t *testing.T) {
	a, b := cointegratedPair(30, 1)
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 5
	}
	withNaN := append([]float64(nil), a...)
	withNaN[10] = math.NaN()

	tests := []struct {
		name string
		a, b []float64
		sig  float64
	}{
		{"empty", nil, nil, 0.05},
		{"length mismatch", a, b[:29], 0.05},
		{"too short", a[:5], b[:5], 0.05},
		{"missing value", withNaN, b, 0.05},
		{"zero significance", a, b, 0},
		{"significance of one", a, b, 1},
		{"constant regressor", a, flat, 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTester().Test(tt.a, tt.b, tt.sig)
			require.Error(t, err)
			assert.True(t, errors.Is(err, contracts.ErrInput))

			var inErr *contracts.InputError
			require.True(t, errors.As(err, &inErr))
			assert.Equal(t, contracts.StageCointegration, inErr.Stage)
		})
	}
}

func TestADF_WhiteNoiseIsStationary(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	e := make([]float64, 200)
	for i := range e {
		e[i] = rng.NormFloat64()
	}

	res, err := adf(e)
	require.NoError(t, err)
	assert.Less(t, res.stat, -3.0)
	assert.Less(t, res.nobs, len(e))
}

func TestMaxLag(t *testing.T) {
	assert.Equal(t, 12, maxLag(100))
	assert.Equal(t, 4, maxLag(10))
	assert.Equal(t, 16, maxLag(250))
}

func TestPValue(t *testing.T) {
	assert.Equal(t, 1.0, PValue(1.0))
	assert.Equal(t, 0.0, PValue(-20))

	// 5% 임계값 근처
	assert.InDelta(t, 0.05, PValue(-3.33613), 0.005)

	// small-p / large-p 경계에서 연속
	small := PValue(tauStar)
	large := PValue(tauStar + 1e-9)
	assert.InDelta(t, small, large, 0.005)

	// monotone
	prev := 0.0
	for s := -18.0; s <= 0.9; s += 0.1 {
		p := PValue(s)
		assert.GreaterOrEqual(t, p, prev-1e-12, "stat %.2f", s)
		prev = p
	}
}

func TestCriticalValues(t *testing.T) {
	cv := CriticalValues(1_000_000)
	assert.InDelta(t, -3.89644, cv["1%"], 1e-4)
	assert.InDelta(t, -3.33613, cv["5%"], 1e-4)
	assert.InDelta(t, -3.04445, cv["10%"], 1e-4)

	small := CriticalValues(50)
	assert.Less(t, small["1%"], small["5%"])
	assert.Less(t, small["5%"], small["10%"])
	assert.Less(t, small["5%"], cv["5%"])
}

func TestHalfLife(t *testing.T) {
	e := make([]float64, 20)
	e[0] = 100
	for i := 1; i < len(e); i++ {
		e[i] = 0.5 * e[i-1]
	}
	assert.InDelta(t, 1.0, HalfLife(e), 1e-6)

	trend := make([]float64, 20)
	for i := range trend {
		trend[i] = float64(i)
	}
	assert.True(t, math.IsInf(HalfLife(trend), 1))
}
