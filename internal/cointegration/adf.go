package cointegration

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// adfResult is the augmented Dickey-Fuller outcome on a residual series
type adfResult struct {
	stat    float64
	usedLag int
	nobs    int
}

// maxLag is the Schwert rule ceil(12*(n/100)^(1/4)), capped at n/2-1
func maxLag(n int) int {
	lag := int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	if c := n/2 - 1; c < lag {
		lag = c
	}
	return lag
}

// adfDesign builds the regression Δe_t = γ·e_{t-1} + Σ φ_i·Δe_{t-i} with `lags` lagged differences.
// Rows start at the first date where all lags exist; columns [e_{t-1}, Δe_{t-1}, ..., Δe_{t-lags}].
func adfDesign(e []float64, lags int) (*mat.Dense, []float64) {
	diff := make([]float64, len(e)-1)
	for i := 1; i < len(e); i++ {
		diff[i-1] = e[i] - e[i-1]
	}

	rows := len(diff) - lags
	x := mat.NewDense(rows, lags+1, nil)
	y := make([]float64, rows)
	for r := 0; r < rows; r++ {
		t := r + lags // index into diff
		y[r] = diff[t]
		x.Set(r, 0, e[t])
		for i := 1; i <= lags; i++ {
			x.Set(r, i, diff[t-i])
		}
	}
	return x, y
}

// adf runs the test without deterministic terms and picks the lag by minimum AIC.
// All candidate lags are compared on the sample left by the largest lag; the winner is
// re-estimated on its own, longer sample.
func adf(e []float64) (*adfResult, error) {
	n := len(e)
	ml := maxLag(n)
	// keep at least one residual degree of freedom for the widest candidate
	for ml > 0 && n-1-ml <= ml+1 {
		ml--
	}
	if ml < 0 || n-1-ml <= ml+1 {
		return nil, fmt.Errorf("adf: sample of %d is too short", n)
	}

	full, y := adfDesign(e, ml)
	rows, _ := full.Dims()

	bestLag, bestAIC := 0, math.Inf(1)
	for cols := 1; cols <= ml+1; cols++ {
		fit, err := fitOLS(full.Slice(0, rows, 0, cols).(*mat.Dense), y)
		if err != nil {
			return nil, fmt.Errorf("adf: lag %d: %w", cols-1, err)
		}
		// strict < keeps the smaller lag on ties
		if aic := fit.aic(); aic < bestAIC {
			bestAIC, bestLag = aic, cols-1
		}
	}

	x, y := adfDesign(e, bestLag)
	fit, err := fitOLS(x, y)
	if err != nil {
		return nil, fmt.Errorf("adf: lag %d: %w", bestLag, err)
	}

	return &adfResult{stat: fit.tValue(0), usedLag: bestLag, nobs: fit.nobs}, nil
}
