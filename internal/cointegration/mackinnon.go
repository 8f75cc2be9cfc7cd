package cointegration

import (
	"github.com/montanaflynn/stats"
)

// =============================================================================
// MacKinnon response surfaces (two variables, constant term)
// =============================================================================

const (
	tauMax  = 0.92   // p = 1 above
	tauMin  = -18.86 // p = 0 below
	tauStar = -2.62  // switch between the small-p and large-p polynomials
)

var (
	// MacKinnon (1994) polynomial coefficients, lowest order first
	tauSmallP = []float64{2.92, 1.5012, 0.039796}
	tauLargeP = []float64{2.1945, 0.64695, -0.29198, -0.042377}

	// MacKinnon (2010) critical value surfaces: b0 + b1/n + b2/n^2
	critSurfaces = []struct {
		label string
		coef  [3]float64
	}{
		{"1%", [3]float64{-3.89644, -10.9519, -22.527}},
		{"5%", [3]float64{-3.33613, -6.1101, -6.823}},
		{"10%", [3]float64{-3.04445, -4.2412, -2.720}},
	}
)

// PValue 공적분 t 통계량의 근사 p-value
func PValue(stat float64) float64 {
	switch {
	case stat > tauMax:
		return 1
	case stat < tauMin:
		return 0
	}

	coef := tauLargeP
	if stat <= tauStar {
		coef = tauSmallP
	}
	return stats.NormCdf(polyval(coef, stat), 0, 1)
}

// CriticalValues returns the 1%, 5% and 10% critical values for a sample of nobs
func CriticalValues(nobs int) map[string]float64 {
	out := make(map[string]float64, len(critSurfaces))
	inv := 1 / float64(nobs)
	for _, s := range critSurfaces {
		out[s.label] = s.coef[0] + s.coef[1]*inv + s.coef[2]*inv*inv
	}
	return out
}

// polyval evaluates c[0] + c[1]x + c[2]x^2 + ... (Horner)
func polyval(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}
