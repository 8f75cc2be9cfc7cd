package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/wonny/pairlab/backend/pkg/logger"
)

// Analyzer aggregates stored evaluations of a pair
// ⭐ SSOT: 평가 이력 분석은 여기서만
type Analyzer struct {
	repository *Repository
	logger     *logger.Logger
}

// NewAnalyzer creates a new history analyzer
func NewAnalyzer(repository *Repository, log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Analyzer{
		repository: repository,
		logger:     log.WithField("module", "audit"),
	}
}

// PairReport summarizes the stored runs of one pair
type PairReport struct {
	Pair string `json:"pair"`
	Runs int    `json:"runs"`

	// 공적분 안정성
	CointegratedRate float64 `json:"cointegrated_rate"`
	MedianPValue     float64 `json:"median_p_value"`
	HedgeRatioStdDev float64 `json:"hedge_ratio_std_dev"`

	// 성과
	MeanReturn    float64 `json:"mean_return"`
	MeanSharpe    float64 `json:"mean_sharpe"`
	WorstDrawdown float64 `json:"worst_drawdown"`

	Best  *EvaluationSummary `json:"best,omitempty"`  // highest Sharpe
	Worst *EvaluationSummary `json:"worst,omitempty"` // lowest Sharpe
}

// PairReport loads the latest runs of a pair and summarizes them
func (a *Analyzer) PairReport(ctx context.Context, symbolA, symbolB string, limit int) (*PairReport, error) {
	summaries, err := a.repository.ListEvaluations(ctx, symbolA, symbolB, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load evaluations: %w", err)
	}

	report := Summarize(strings.ToUpper(symbolA)+"/"+strings.ToUpper(symbolB), summaries)

	a.logger.WithFields(map[string]interface{}{
		"pair":        report.Pair,
		"runs":        report.Runs,
		"coint_rate":  report.CointegratedRate,
		"mean_sharpe": report.MeanSharpe,
	}).Debug("Pair report generated")

	return report, nil
}

// Summarize aggregates summaries; an empty input yields a zero report
func Summarize(pair string, summaries []EvaluationSummary) *PairReport {
	report := &PairReport{Pair: pair, Runs: len(summaries)}
	if len(summaries) == 0 {
		return report
	}

	var (
		cointegrated int
		pValues      = make(stats.Float64Data, 0, len(summaries))
		hedges       = make(stats.Float64Data, 0, len(summaries))
		returns      = make(stats.Float64Data, 0, len(summaries))
		sharpes      = make(stats.Float64Data, 0, len(summaries))
	)
	for _, s := range summaries {
		if s.IsCointegrated {
			cointegrated++
		}
		pValues = append(pValues, s.PValue)
		hedges = append(hedges, s.HedgeRatio)
		returns = append(returns, s.TotalReturn)
		sharpes = append(sharpes, s.SharpeRatio)
		if s.MaxDrawdown < report.WorstDrawdown {
			report.WorstDrawdown = s.MaxDrawdown
		}
	}

	report.CointegratedRate = float64(cointegrated) / float64(len(summaries))
	report.MedianPValue, _ = pValues.Median()
	report.MeanReturn, _ = returns.Mean()
	report.MeanSharpe, _ = sharpes.Mean()
	if len(hedges) > 1 {
		report.HedgeRatioStdDev, _ = hedges.StandardDeviationSample()
	}

	top := TopBySharpe(summaries, 1)
	bottom := BottomBySharpe(summaries, 1)
	report.Best = &top[0]
	report.Worst = &bottom[0]

	return report
}

// TopBySharpe returns the best runs by Sharpe ratio
func TopBySharpe(summaries []EvaluationSummary, limit int) []EvaluationSummary {
	return rankBySharpe(summaries, limit, func(x, y float64) bool { return x > y })
}

// BottomBySharpe returns the worst runs by Sharpe ratio
func BottomBySharpe(summaries []EvaluationSummary, limit int) []EvaluationSummary {
	return rankBySharpe(summaries, limit, func(x, y float64) bool { return x < y })
}

func rankBySharpe(summaries []EvaluationSummary, limit int, less func(x, y float64) bool) []EvaluationSummary {
	if len(summaries) == 0 {
		return summaries
	}

	sorted := make([]EvaluationSummary, len(summaries))
	copy(sorted, summaries)
	// ties keep the repository order (newest first)
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i].SharpeRatio, sorted[j].SharpeRatio)
	})

	if limit <= 0 || limit > len(sorted) {
		limit = len(sorted)
	}
	return sorted[:limit]
}
