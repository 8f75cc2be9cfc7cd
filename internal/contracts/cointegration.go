package contracts

import "encoding/json"

// CointegrationResult is the Engle-Granger verdict for a pair
// Informational only: the pipeline runs regardless of IsCointegrated.
type CointegrationResult struct {
	TestStatistic     float64            `json:"test_statistic"`
	PValue            float64            `json:"p_value"`
	IsCointegrated    bool               `json:"is_cointegrated"`
	SignificanceLevel float64            `json:"significance_level"`
	CriticalValues    map[string]float64 `json:"critical_values"` // "1%", "5%", "10%"
	UsedLag           int                `json:"used_lag"`
	NObs              int                `json:"nobs"`
	HalfLife          float64            `json:"half_life"` // days; +Inf when the residuals do not revert
}

// MarshalJSON encodes a -Inf statistic (perfect fit) and an infinite half-life as null
func (r CointegrationResult) MarshalJSON() ([]byte, error) {
	type alias CointegrationResult
	return json.Marshal(struct {
		alias
		TestStatistic *float64 `json:"test_statistic"`
		HalfLife      *float64 `json:"half_life"`
	}{alias: alias(r), TestStatistic: nullable(r.TestStatistic), HalfLife: nullable(r.HalfLife)})
}

// UnmarshalJSON decodes a null statistic as NaN
func (r *CointegrationResult) UnmarshalJSON(data []byte) error {
	type alias CointegrationResult
	aux := struct {
		*alias
		TestStatistic *float64 `json:"test_statistic"`
		HalfLife      *float64 `json:"half_life"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.TestStatistic = fromNullable(aux.TestStatistic)
	r.HalfLife = fromNullable(aux.HalfLife)
	return nil
}
