package risk

import "errors"

var (
	ErrInsufficientData = errors.New("insufficient data for simulation")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현 (VaR=0.05 → 5% 손실 가능)
const VaRConvention = "loss_positive"

// VaRResult VaR 계산 결과
type VaRResult struct {
	Confidence float64 `json:"confidence"` // 신뢰수준 (예: 0.95, 0.99)
	VaR        float64 `json:"var"`        // Value at Risk (손실, 양수)
	CVaR       float64 `json:"cvar"`       // Conditional VaR (Expected Shortfall, 양수)
}

// BootstrapConfig historical bootstrap of multi-day strategy returns
// ⭐ Seed is always explicit: identical inputs give identical results
type BootstrapConfig struct {
	NumSimulations int     `json:"num_simulations" yaml:"num_simulations"`
	HoldingPeriod  int     `json:"holding_period" yaml:"holding_period"` // days compounded per path
	Confidence     float64 `json:"confidence" yaml:"confidence"`
	Seed           int64   `json:"seed" yaml:"seed"`
	MinSamples     int     `json:"min_samples" yaml:"min_samples"` // fail-closed below this many daily returns
}

// DefaultBootstrapConfig 기본 설정
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		NumSimulations: 5000,
		HoldingPeriod:  5,
		Confidence:     0.95,
		Seed:           42,
		MinSamples:     30,
	}
}

// BootstrapResult bootstrap 결과
type BootstrapResult struct {
	Config      BootstrapConfig `json:"config"`
	Samples     int             `json:"samples"`
	MeanReturn  float64         `json:"mean_return"`
	StdDev      float64         `json:"std_dev"`
	VaR         float64         `json:"var"`
	CVaR        float64         `json:"cvar"`
	Percentiles map[int]float64 `json:"percentiles"` // 1, 5, 25, 50, 75, 95, 99
}

// RiskLimits 리스크 한도 설정
type RiskLimits struct {
	MaxVaR      float64 `json:"max_var" yaml:"max_var"`           // 일간 VaR 한도 (예: 0.03)
	MaxCVaR     float64 `json:"max_cvar" yaml:"max_cvar"`         // 일간 CVaR 한도
	MaxDrawdown float64 `json:"max_drawdown" yaml:"max_drawdown"` // MDD 한도 (양수, 예: 0.20)
}

// DefaultRiskLimits 기본 리스크 한도
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxVaR:      0.03,
		MaxCVaR:     0.05,
		MaxDrawdown: 0.20,
	}
}
