package cointegration

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

// MinObservations is the shortest pair history the test accepts
const MinObservations = 8

// DefaultSignificance is the conventional 5% level
const DefaultSignificance = 0.05

// perfect-fit threshold on R², 1 - 100*sqrt(machine epsilon)
var rSquaredCeiling = 1 - 100*math.Sqrt(2.220446049250313e-16)

// Tester runs the Engle-Granger two-step cointegration test
// ⭐ 순수 계산기: no I/O, deterministic
type Tester struct{}

// NewTester creates a Tester
func NewTester() *Tester {
	return &Tester{}
}

// Test regresses a on b (with a constant) and runs an ADF test on the residuals.
// The verdict is IsCointegrated = PValue < significance.
func (t *Tester) Test(a, b []float64, significance float64) (*contracts.CointegrationResult, error) {
	if err := validateInputs(a, b, significance); err != nil {
		return nil, err
	}

	alpha, beta := stat.LinearRegression(b, a, nil, false)
	residuals := make([]float64, len(a))
	for i := range a {
		residuals[i] = a[i] - alpha - beta*b[i]
	}
	r2 := stat.RSquared(b, a, nil, alpha, beta)

	nobs := len(a)
	result := &contracts.CointegrationResult{
		SignificanceLevel: significance,
		CriticalValues:    CriticalValues(nobs - 1),
		NObs:              nobs,
		HalfLife:          HalfLife(residuals),
	}

	if r2 >= rSquaredCeiling {
		// residuals carry no information; the pair is cointegrated by construction
		result.TestStatistic = math.Inf(-1)
		result.PValue = 0
		result.IsCointegrated = true
		return result, nil
	}

	res, err := adf(residuals)
	if err != nil {
		return nil, contracts.NewInputError(contracts.StageCointegration, "prices", "%v", err)
	}

	result.TestStatistic = res.stat
	result.UsedLag = res.usedLag
	result.PValue = PValue(res.stat)
	result.IsCointegrated = result.PValue < significance
	return result, nil
}

// HalfLife estimates the mean-reversion half-life of a series from the AR(1) fit
// Δe_t = c + λ·e_{t-1}: -ln2/ln(1+λ). +Inf when λ ≥ 0 (no reversion).
func HalfLife(e []float64) float64 {
	if len(e) < 3 {
		return math.Inf(1)
	}
	lagged := make([]float64, len(e)-1)
	delta := make([]float64, len(e)-1)
	for i := 1; i < len(e); i++ {
		lagged[i-1] = e[i-1]
		delta[i-1] = e[i] - e[i-1]
	}

	_, lambda := stat.LinearRegression(lagged, delta, nil, false)
	if !(lambda < 0) || lambda <= -1 {
		return math.Inf(1)
	}
	return -math.Ln2 / math.Log(1+lambda)
}

func validateInputs(a, b []float64, significance float64) error {
	stage := contracts.StageCointegration
	switch {
	case len(a) == 0 || len(b) == 0:
		return contracts.NewInputError(stage, "prices", "price series are empty")
	case len(a) != len(b):
		return contracts.NewInputError(stage, "prices", "length mismatch: %d vs %d", len(a), len(b))
	case len(a) < MinObservations:
		return contracts.NewInputError(stage, "prices", "need at least %d observations, got %d", MinObservations, len(a))
	case !(significance > 0 && significance < 1):
		return contracts.NewInputError(stage, "significance_level", "must be in (0,1), got %v", significance)
	}

	for i := range a {
		if !finite(a[i]) || !finite(b[i]) {
			return contracts.NewInputError(stage, "prices", "missing or non-finite value at index %d", i)
		}
	}
	if constant(a) || constant(b) {
		return contracts.NewInputError(stage, "prices", "price series has zero variance")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func constant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}
