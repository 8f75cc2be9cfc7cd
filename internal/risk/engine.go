package risk

import (
	"errors"
	"fmt"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

// Engine 리스크 엔진 (순수 계산기)
// ⭐ SSOT: 수익률은 백테스트에서 조립해서 전달
type Engine struct {
	bootstrap BootstrapConfig
	limits    RiskLimits
}

// NewEngine 새 리스크 엔진 생성
func NewEngine(bootstrap BootstrapConfig, limits RiskLimits) *Engine {
	return &Engine{bootstrap: bootstrap, limits: limits}
}

// Profile computes historical VaR/CVaR, Sortino and a seeded bootstrap of the strategy returns,
// then checks them against the limits. Too few returns skip the bootstrap.
func (e *Engine) Profile(p *contracts.Portfolio, m *contracts.PerformanceMetrics) (*contracts.RiskProfile, error) {
	if p == nil || m == nil {
		return nil, &contracts.StateError{Stage: contracts.StagePerformance, Message: "must run backtest first"}
	}

	returns := p.StrategyReturns()
	v := CalculateVaR(returns, e.bootstrap.Confidence)

	profile := &contracts.RiskProfile{
		Confidence: e.bootstrap.Confidence,
		VaR:        v.VaR,
		CVaR:       v.CVaR,
		Sortino:    Sortino(returns, m.AnnualizedReturn, 252),
		Samples:    len(returns),
	}

	res, err := NewBootstrapper(e.bootstrap).Run(returns)
	switch {
	case err == nil:
		profile.HoldingPeriod = res.Config.HoldingPeriod
		profile.BootstrapVaR = res.VaR
		profile.BootstrapCVaR = res.CVaR
	case errors.Is(err, ErrInsufficientData):
		// fail-closed: bootstrap skipped, historical figures remain
	default:
		return nil, err
	}

	profile.Violations = e.CheckLimits(profile, m.MaxDrawdown)
	return profile, nil
}

// CheckLimits 리스크 한도 체크 (순수 계산)
// maxDrawdown uses the metrics sign convention (<= 0).
func (e *Engine) CheckLimits(profile *contracts.RiskProfile, maxDrawdown float64) []string {
	var violations []string
	if e.limits.MaxVaR > 0 && profile.VaR > e.limits.MaxVaR {
		violations = append(violations, fmt.Sprintf("VaR %.4f exceeds limit %.4f", profile.VaR, e.limits.MaxVaR))
	}
	if e.limits.MaxCVaR > 0 && profile.CVaR > e.limits.MaxCVaR {
		violations = append(violations, fmt.Sprintf("CVaR %.4f exceeds limit %.4f", profile.CVaR, e.limits.MaxCVaR))
	}
	if e.limits.MaxDrawdown > 0 && -maxDrawdown > e.limits.MaxDrawdown {
		violations = append(violations, fmt.Sprintf("drawdown %.4f exceeds limit %.4f", -maxDrawdown, e.limits.MaxDrawdown))
	}
	return violations
}
