package spread

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

// DefaultWindow is the rolling z-score lookback in trading days
const DefaultWindow = 20

// Builder derives the hedge ratio, the spread and its rolling z-score
type Builder struct {
	Window int
}

// NewBuilder creates a Builder; window <= 0 selects DefaultWindow
func NewBuilder(window int) *Builder {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Builder{Window: window}
}

// Fit regresses a on b (OLS with intercept) and builds spread = a - hedge*b.
// The intercept is reported but never subtracted from the spread.
func (b *Builder) Fit(priceA, priceB []float64) (*contracts.SpreadResult, error) {
	if err := b.validate(priceA, priceB); err != nil {
		return nil, err
	}

	intercept, hedge := stat.LinearRegression(priceB, priceA, nil, false)
	r2 := stat.RSquared(priceB, priceA, nil, intercept, hedge)

	spread := make(contracts.Series, len(priceA))
	for i := range priceA {
		spread[i] = priceA[i] - hedge*priceB[i]
	}

	mean, std := Rolling(spread, b.Window)
	z := ZScore(spread, mean, std)

	result := &contracts.SpreadResult{
		HedgeRatio:  hedge,
		Intercept:   intercept,
		RSquared:    r2,
		Window:      b.Window,
		Spread:      spread,
		RollingMean: mean,
		RollingStd:  std,
		ZScore:      z,
	}
	result.SpreadMean, _ = stats.Mean(stats.Float64Data(spread))
	if len(spread) > 1 {
		result.SpreadStd, _ = stats.StandardDeviationSample(stats.Float64Data(spread))
	}
	return result, nil
}

// Rolling returns the trailing mean and sample standard deviation (ddof=1).
// Both are NaN until the window is full; a window of identical values has std exactly 0.
func Rolling(x contracts.Series, window int) (mean, std contracts.Series) {
	mean = contracts.NaN(len(x))
	std = contracts.NaN(len(x))
	if window < 2 {
		return mean, std
	}

	for t := window - 1; t < len(x); t++ {
		w := stats.Float64Data(x[t-window+1 : t+1])
		m, err := stats.Mean(w)
		if err != nil {
			continue
		}
		mean[t] = m

		lo, _ := stats.Min(w)
		hi, _ := stats.Max(w)
		if lo == hi {
			std[t] = 0
			continue
		}
		s, err := stats.StandardDeviationSample(w)
		if err != nil {
			continue
		}
		std[t] = s
	}
	return mean, std
}

// ZScore returns (x - mean)/std, NaN wherever std is 0 or undefined
func ZScore(x, mean, std contracts.Series) contracts.Series {
	z := contracts.NaN(len(x))
	for t := range x {
		if math.IsNaN(mean[t]) || math.IsNaN(std[t]) || std[t] == 0 {
			continue
		}
		z[t] = (x[t] - mean[t]) / std[t]
	}
	return z
}

func (b *Builder) validate(priceA, priceB []float64) error {
	stage := contracts.StageSpread
	switch {
	case b.Window < 2:
		return contracts.NewInputError(stage, "window", "must be >= 2, got %d", b.Window)
	case len(priceA) == 0 || len(priceB) == 0:
		return contracts.NewInputError(stage, "prices", "price series are empty")
	case len(priceA) != len(priceB):
		return contracts.NewInputError(stage, "prices", "length mismatch: %d vs %d", len(priceA), len(priceB))
	case len(priceA) < b.Window:
		return contracts.NewInputError(stage, "window", "window %d exceeds %d observations", b.Window, len(priceA))
	}

	varies := false
	for i := range priceA {
		if math.IsNaN(priceA[i]) || math.IsNaN(priceB[i]) || math.IsInf(priceA[i], 0) || math.IsInf(priceB[i], 0) {
			return contracts.NewInputError(stage, "prices", "missing or non-finite value at index %d", i)
		}
		if priceB[i] != priceB[0] {
			varies = true
		}
	}
	if !varies {
		return contracts.NewInputError(stage, "prices", "regressor series has zero variance, hedge ratio undefined")
	}
	return nil
}
