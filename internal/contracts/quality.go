package contracts

import "time"

// DataQualitySnapshot describes how well the two price histories line up
// ⭐ SSOT: S0 → S1 데이터 품질 정보 전달
type DataQualitySnapshot struct {
	Pair         string             `json:"pair"`
	Start        time.Time          `json:"start"`
	End          time.Time          `json:"end"`
	RowsA        int                `json:"rows_a"`
	RowsB        int                `json:"rows_b"`
	CommonRows   int                `json:"common_rows"`
	Coverage     map[string]float64 `json:"coverage"`      // 종목별 공통 날짜 비율
	QualityScore float64            `json:"quality_score"` // 0.0 ~ 1.0
	Passed       bool               `json:"passed"`        // 품질 검증 통과 여부
	Reasons      []string           `json:"reasons,omitempty"`
}

// IsValid checks if the snapshot passed the gate and has usable rows
func (d *DataQualitySnapshot) IsValid() bool {
	return d.Passed && d.CommonRows > 0
}

// CoverageRate returns the average coverage rate across both instruments
func (d *DataQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range d.Coverage {
		total += rate
	}

	return total / float64(len(d.Coverage))
}
