package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 에러, DB row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3 → S4 → S5
//   Prices  Cointegration  Spread  Signals  Backtest  Performance

// Stage represents a pipeline stage
type Stage string

const (
	// StagePrices S0: aligned price table for the pair
	// 위치: internal/s0_data/
	StagePrices Stage = "S0_PRICES"

	// StageCointegration S1: Engle-Granger test (informational)
	// 위치: internal/cointegration/
	StageCointegration Stage = "S1_COINTEGRATION"

	// StageSpread S2: hedge ratio, spread, rolling z-score
	// 위치: internal/spread/
	StageSpread Stage = "S2_SPREAD"

	// StageSignals S3: z-score → position state machine
	// 위치: internal/signal/
	StageSignals Stage = "S3_SIGNALS"

	// StageBacktest S4: position accounting and equity curve
	// 위치: internal/backtest/
	StageBacktest Stage = "S4_BACKTEST"

	// StagePerformance S5: summary statistics
	// 위치: internal/performance/
	StagePerformance Stage = "S5_PERFORMANCE"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StagePrices:
		return "S0"
	case StageCointegration:
		return "S1"
	case StageSpread:
		return "S2"
	case StageSignals:
		return "S3"
	case StageBacktest:
		return "S4"
	case StagePerformance:
		return "S5"
	default:
		return "UNKNOWN"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StagePrices,
		StageCointegration,
		StageSpread,
		StageSignals,
		StageBacktest,
		StagePerformance,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// StageResult records how long a stage took and what it produced
type StageResult struct {
	Stage       Stage  `json:"stage"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	DurationMs  int64  `json:"duration_ms"`
	Error       string `json:"error,omitempty"`
}
