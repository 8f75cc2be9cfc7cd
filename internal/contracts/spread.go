package contracts

// SpreadResult is the output of the spread builder
// spread[t] = A[t] - HedgeRatio*B[t]; the regression intercept is reported, never subtracted.
type SpreadResult struct {
	HedgeRatio  float64 `json:"hedge_ratio"`
	Intercept   float64 `json:"intercept"`
	RSquared    float64 `json:"r_squared"`
	Window      int     `json:"window"`
	Spread      Series  `json:"spread"`
	RollingMean Series  `json:"rolling_mean"`
	RollingStd  Series  `json:"rolling_std"`
	ZScore      Series  `json:"zscore"`
	SpreadMean  float64 `json:"spread_mean"`
	SpreadStd   float64 `json:"spread_std"`
}
