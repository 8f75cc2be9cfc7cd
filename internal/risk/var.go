package risk

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// =============================================================================
// Historical VaR
// =============================================================================

// CalculateVaR 과거 수익률 기반 VaR 계산 (Historical Simulation)
// returns: 일별 수익률 (양수=이익, 음수=손실)
// confidence: 신뢰수준 (예: 0.95)
func CalculateVaR(returns []float64, confidence float64) VaRResult {
	if len(returns) == 0 {
		return VaRResult{Confidence: confidence}
	}

	// 오름차순: 손실이 앞에
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	return VaRResult{
		Confidence: confidence,
		VaR:        lossOf(sorted[idx]),
		CVaR:       tailLoss(sorted, idx),
	}
}

// tailLoss is the mean loss of sorted[0..idx]
func tailLoss(sorted []float64, idx int) float64 {
	if len(sorted) == 0 || idx < 0 {
		return 0
	}
	mean, err := stats.Mean(stats.Float64Data(sorted[:idx+1]))
	if err != nil {
		return 0
	}
	return lossOf(mean)
}

// lossOf flips a return into a positive loss, 0 for gains
func lossOf(r float64) float64 {
	if r < 0 {
		return -r
	}
	return 0
}

// Sortino annualized return over annualized downside deviation (zero target).
// 0 when no return is negative.
func Sortino(returns []float64, annualized float64, periodsPerYear int) float64 {
	var sumSq float64
	var n int
	for _, r := range returns {
		if r < 0 {
			sumSq += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	downside := math.Sqrt(sumSq/float64(n)) * math.Sqrt(float64(periodsPerYear))
	if downside == 0 {
		return 0
	}
	return annualized / downside
}
