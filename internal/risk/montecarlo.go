package risk

import (
	"fmt"
	"math/rand"

	"github.com/montanaflynn/stats"
)

// Bootstrapper resamples daily strategy returns into holding-period returns
type Bootstrapper struct {
	config BootstrapConfig
	rng    *rand.Rand
}

// NewBootstrapper 새 시뮬레이터 생성
func NewBootstrapper(config BootstrapConfig) *Bootstrapper {
	return &Bootstrapper{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Run draws NumSimulations paths of HoldingPeriod days with replacement
func (b *Bootstrapper) Run(daily []float64) (*BootstrapResult, error) {
	if err := ValidateConfig(b.config); err != nil {
		return nil, err
	}
	if len(daily) < b.config.MinSamples {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientData, len(daily), b.config.MinSamples)
	}

	paths := make([]float64, b.config.NumSimulations)
	for i := range paths {
		cum := 1.0
		for d := 0; d < b.config.HoldingPeriod; d++ {
			cum *= 1 + daily[b.rng.Intn(len(daily))]
		}
		paths[i] = cum - 1
	}

	data := stats.Float64Data(paths)
	mean, _ := stats.Mean(data)
	sd, _ := stats.StandardDeviationSample(data)
	v := CalculateVaR(paths, b.config.Confidence)

	percentiles := make(map[int]float64)
	for _, p := range []int{1, 5, 25, 50, 75, 95, 99} {
		if q, err := stats.Percentile(data, float64(p)); err == nil {
			percentiles[p] = q
		}
	}

	return &BootstrapResult{
		Config:      b.config,
		Samples:     len(daily),
		MeanReturn:  mean,
		StdDev:      sd,
		VaR:         v.VaR,
		CVaR:        v.CVaR,
		Percentiles: percentiles,
	}, nil
}

// ValidateConfig 설정 유효성 검사
func ValidateConfig(config BootstrapConfig) error {
	switch {
	case config.NumSimulations <= 0:
		return fmt.Errorf("%w: NumSimulations must be > 0", ErrInvalidConfig)
	case config.HoldingPeriod <= 0:
		return fmt.Errorf("%w: HoldingPeriod must be > 0", ErrInvalidConfig)
	case config.MinSamples <= 0:
		return fmt.Errorf("%w: MinSamples must be > 0", ErrInvalidConfig)
	case config.Confidence <= 0 || config.Confidence >= 1:
		return fmt.Errorf("%w: Confidence must be between 0 and 1", ErrInvalidConfig)
	case config.Seed == 0:
		return fmt.Errorf("%w: Seed must be set", ErrInvalidConfig)
	}
	return nil
}
