package contracts

import "time"

// Params holds every tunable of one strategy evaluation
type Params struct {
	SignificanceLevel  float64 `json:"significance_level" yaml:"significance_level"`
	Window             int     `json:"window" yaml:"window"`
	EntryThreshold     float64 `json:"entry_threshold" yaml:"entry_threshold"`
	ExitThreshold      float64 `json:"exit_threshold" yaml:"exit_threshold"`
	StopThreshold      float64 `json:"stop_threshold" yaml:"stop_threshold"` // 0 disables the stop
	InitialCapital     float64 `json:"initial_capital" yaml:"initial_capital"`
	TransactionCostBps float64 `json:"transaction_cost_bps" yaml:"transaction_cost_bps"` // fraction per unit of position change
}

// DefaultParams returns the reference parameter set
func DefaultParams() Params {
	return Params{
		SignificanceLevel:  0.05,
		Window:             20,
		EntryThreshold:     2.0,
		ExitThreshold:      0.5,
		StopThreshold:      0,
		InitialCapital:     100_000,
		TransactionCostBps: 0.001,
	}
}

// Validate checks the configuration surface
func (p Params) Validate() error {
	switch {
	case !(p.SignificanceLevel > 0 && p.SignificanceLevel < 1):
		return NewInputError(StageCointegration, "significance_level", "must be in (0,1), got %v", p.SignificanceLevel)
	case p.Window < 2:
		return NewInputError(StageSpread, "window", "must be >= 2, got %d", p.Window)
	case !(p.ExitThreshold > 0):
		return NewInputError(StageSignals, "exit_threshold", "must be > 0, got %v", p.ExitThreshold)
	case !(p.EntryThreshold > p.ExitThreshold):
		return NewInputError(StageSignals, "entry_threshold", "must be > exit_threshold (%v), got %v", p.ExitThreshold, p.EntryThreshold)
	case p.StopThreshold < 0 || (p.StopThreshold > 0 && p.StopThreshold <= p.EntryThreshold):
		return NewInputError(StageSignals, "stop_threshold", "must be 0 (disabled) or > entry_threshold (%v), got %v", p.EntryThreshold, p.StopThreshold)
	case !(p.InitialCapital > 0):
		return NewInputError(StageBacktest, "initial_capital", "must be > 0, got %v", p.InitialCapital)
	case !(p.TransactionCostBps >= 0):
		return NewInputError(StageBacktest, "transaction_cost_bps", "must be >= 0, got %v", p.TransactionCostBps)
	}
	return nil
}

// Evaluation bundles the outputs of one pipeline run
type Evaluation struct {
	RunID         string               `json:"run_id"`
	SymbolA       string               `json:"symbol_a"`
	SymbolB       string               `json:"symbol_b"`
	StartDate     time.Time            `json:"start_date"`
	EndDate       time.Time            `json:"end_date"`
	Params        Params               `json:"params"`
	ConfigHash    string               `json:"config_hash,omitempty"`
	Quality       *DataQualitySnapshot `json:"quality,omitempty"`
	Cointegration *CointegrationResult `json:"cointegration"`
	Spread        *SpreadResult        `json:"spread"`
	Signals       SignalSeries         `json:"signals"`
	Portfolio     *Portfolio           `json:"portfolio"`
	Metrics       *PerformanceMetrics  `json:"metrics"`
	Risk          *RiskProfile         `json:"risk,omitempty"`
	Stages        []StageResult        `json:"stages"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Pair returns "A/B"
func (e *Evaluation) Pair() string {
	return e.SymbolA + "/" + e.SymbolB
}

// RiskProfile holds tail-risk figures of the strategy returns
// ⭐ VaR/CVaR are losses expressed as positive fractions (0.02 = 2% loss).
type RiskProfile struct {
	Confidence    float64  `json:"confidence"`
	VaR           float64  `json:"var"`  // one-day historical
	CVaR          float64  `json:"cvar"` // one-day historical expected shortfall
	Sortino       float64  `json:"sortino"`
	Samples       int      `json:"samples"`
	HoldingPeriod int      `json:"holding_period"` // bootstrap horizon in days, 0 when skipped
	BootstrapVaR  float64  `json:"bootstrap_var"`
	BootstrapCVaR float64  `json:"bootstrap_cvar"`
	Violations    []string `json:"violations,omitempty"`
}
