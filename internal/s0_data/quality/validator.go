package quality

import (
	"fmt"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/s0_data"
)

// QualityGate validates an aligned price table before it enters the pipeline
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinCoverage     float64 `yaml:"min_coverage"`     // 0.80: 종목별로 공통 날짜가 차지해야 하는 최소 비율
	MinObservations int     `yaml:"min_observations"` // 30: 정렬 후 최소 행 수
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MinCoverage:     0.80,
		MinObservations: 30,
	}
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check scores the alignment of a pair
// ⭐ SSOT: S0 → S1 품질 검증
func (g *QualityGate) Check(ps contracts.PriceSeries, report s0_data.AlignReport) *contracts.DataQualitySnapshot {
	snapshot := &contracts.DataQualitySnapshot{
		Pair:       ps.Pair(),
		Start:      ps.Start(),
		End:        ps.End(),
		RowsA:      report.RowsA,
		RowsB:      report.RowsB,
		CommonRows: report.Common,
		Coverage: map[string]float64{
			ps.SymbolA(): coverage(report.Common, report.RowsA),
			ps.SymbolB(): coverage(report.Common, report.RowsB),
		},
	}

	// 1. 품질 점수 = 두 종목 커버리지 평균
	snapshot.QualityScore = snapshot.CoverageRate()

	// 2. 임계값 검증
	for _, symbol := range []string{ps.SymbolA(), ps.SymbolB()} {
		if cov := snapshot.Coverage[symbol]; cov < g.config.MinCoverage {
			snapshot.Reasons = append(snapshot.Reasons,
				fmt.Sprintf("%s coverage %.2f below %.2f", symbol, cov, g.config.MinCoverage))
		}
	}
	if report.Common < g.config.MinObservations {
		snapshot.Reasons = append(snapshot.Reasons,
			fmt.Sprintf("%d common dates, need %d", report.Common, g.config.MinObservations))
	}

	snapshot.Passed = len(snapshot.Reasons) == 0
	return snapshot
}

// Enforce returns an input error when the snapshot failed the gate
func (g *QualityGate) Enforce(snapshot *contracts.DataQualitySnapshot) error {
	if snapshot.IsValid() {
		return nil
	}
	return contracts.NewInputError(contracts.StagePrices, "quality",
		"%s failed quality gate (score=%.2f): %v", snapshot.Pair, snapshot.QualityScore, snapshot.Reasons)
}

func coverage(common, rows int) float64 {
	if rows == 0 {
		return 0
	}
	return float64(common) / float64(rows)
}
