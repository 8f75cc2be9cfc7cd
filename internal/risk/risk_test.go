package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

func TestCalculateVaR(t *testing.T) {
	returns := []float64{0.01, -0.02, 0.03, -0.05, 0.00, 0.02, -0.01, 0.04, -0.03, 0.01}

	res := CalculateVaR(returns, 0.75)
	// 25% of 10 → index 2 of the sorted slice (-0.02)
	assert.InDelta(t, 0.02, res.VaR, 1e-12)
	assert.InDelta(t, 0.1/3, res.CVaR, 1e-12) // mean(-0.05, -0.03, -0.02)
	assert.Equal(t, 0.75, res.Confidence)

	assert.Equal(t, VaRResult{Confidence: 0.95}, CalculateVaR(nil, 0.95))

	gains := CalculateVaR([]float64{0.01, 0.02, 0.03}, 0.95)
	assert.Equal(t, 0.0, gains.VaR)
	assert.Equal(t, 0.0, gains.CVaR)
}

func TestSortino(t *testing.T) {
	assert.Equal(t, 0.0, Sortino([]float64{0.01, 0.02}, 0.3, 252))

	returns := []float64{0.01, -0.02, 0.02, -0.02}
	want := 0.1 / (0.02 * math.Sqrt(252))
	assert.InDelta(t, want, Sortino(returns, 0.1, 252), 1e-12)
}

func TestBootstrap_Deterministic(t *testing.T) {
	daily := make([]float64, 60)
	for i := range daily {
		daily[i] = 0.01 * math.Sin(float64(i))
	}
	cfg := DefaultBootstrapConfig()

	first, err := NewBootstrapper(cfg).Run(daily)
	require.NoError(t, err)
	second, err := NewBootstrapper(cfg).Run(daily)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first.CVaR, first.VaR)
	assert.Equal(t, 60, first.Samples)
	assert.Contains(t, first.Percentiles, 50)
}

func TestBootstrap_Errors(t *testing.T) {
	_, err := NewBootstrapper(DefaultBootstrapConfig()).Run(make([]float64, 5))
	assert.True(t, errors.Is(err, ErrInsufficientData))

	cfg := DefaultBootstrapConfig()
	cfg.Seed = 0
	_, err = NewBootstrapper(cfg).Run(make([]float64, 100))
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	cfg = DefaultBootstrapConfig()
	cfg.HoldingPeriod = 0
	assert.True(t, errors.Is(ValidateConfig(cfg), ErrInvalidConfig))
}

func TestEngine_Profile(t *testing.T) {
	p := &contracts.Portfolio{}
	p.Rows = append(p.Rows, contracts.PortfolioRow{CumulativeReturn: 1})
	for i := 0; i < 10; i++ {
		p.Rows = append(p.Rows, contracts.PortfolioRow{StrategyReturn: -0.06, HasReturn: true})
	}
	m := &contracts.PerformanceMetrics{AnnualizedReturn: -0.9, MaxDrawdown: -0.45}

	profile, err := NewEngine(DefaultBootstrapConfig(), DefaultRiskLimits()).Profile(p, m)
	require.NoError(t, err)

	assert.Equal(t, 10, profile.Samples)
	assert.InDelta(t, 0.06, profile.VaR, 1e-12)
	assert.Equal(t, 0, profile.HoldingPeriod) // too few samples for the bootstrap
	assert.Len(t, profile.Violations, 3)
}

func TestEngine_ProfileRequiresBacktest(t *testing.T) {
	_, err := NewEngine(DefaultBootstrapConfig(), DefaultRiskLimits()).Profile(nil, nil)
	assert.True(t, errors.Is(err, contracts.ErrState))
}
