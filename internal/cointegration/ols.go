package cointegration

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// errSingular is returned when the design matrix has no unique least-squares solution
var errSingular = errors.New("singular design matrix")

// olsFit holds the pieces of an OLS fit the ADF test needs
type olsFit struct {
	params []float64
	ssr    float64
	nobs   int
	k      int
	xtxInv *mat.Dense
}

// fitOLS regresses y on the columns of x (no implicit constant)
func fitOLS(x *mat.Dense, y []float64) (*olsFit, error) {
	n, k := x.Dims()
	if n != len(y) {
		return nil, fmt.Errorf("ols: %d rows but %d observations", n, len(y))
	}
	if n <= k {
		return nil, fmt.Errorf("ols: %d observations for %d regressors", n, k)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var inv mat.Dense
	if err := inv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("ols: %w: %v", errSingular, err)
	}

	yv := mat.NewVecDense(n, y)
	var xty mat.VecDense
	xty.MulVec(x.T(), yv)

	var beta mat.VecDense
	beta.MulVec(&inv, &xty)

	var fitted mat.VecDense
	fitted.MulVec(x, &beta)

	ssr := 0.0
	for i := 0; i < n; i++ {
		r := y[i] - fitted.AtVec(i)
		ssr += r * r
	}

	params := make([]float64, k)
	for j := 0; j < k; j++ {
		params[j] = beta.AtVec(j)
	}

	return &olsFit{params: params, ssr: ssr, nobs: n, k: k, xtxInv: &inv}, nil
}

// tValue returns the t statistic of coefficient j
func (f *olsFit) tValue(j int) float64 {
	sigma2 := f.ssr / float64(f.nobs-f.k)
	se := math.Sqrt(sigma2 * f.xtxInv.At(j, j))
	if se == 0 {
		return math.Inf(sign(f.params[j]))
	}
	return f.params[j] / se
}

// aic is -2*llf + 2*k with the Gaussian log-likelihood
func (f *olsFit) aic() float64 {
	n := float64(f.nobs)
	llf := -n / 2 * (math.Log(2*math.Pi) + math.Log(f.ssr/n) + 1)
	return -2*llf + 2*float64(f.k)
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}
