package performance

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/pkg/logger"
)

// TradingDaysPerYear is the annualization convention
const TradingDaysPerYear = 252

// Analyzer reduces a backtest into PerformanceMetrics
// ⭐ SSOT: 성과 지표 계산은 여기서만
type Analyzer struct {
	logger *logger.Logger
}

// NewAnalyzer creates a new performance analyzer
func NewAnalyzer(log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Analyzer{logger: log}
}

// Summarize computes the metrics of a finished backtest.
// A nil portfolio means the backtest has not run.
func (a *Analyzer) Summarize(p *contracts.Portfolio, signals contracts.SignalSeries) (*contracts.PerformanceMetrics, error) {
	if p == nil {
		return nil, &contracts.StateError{Stage: contracts.StagePerformance, Message: "must run backtest first"}
	}

	returns := p.StrategyReturns()
	years := float64(len(returns)) / TradingDaysPerYear
	if years <= 0 {
		return nil, fmt.Errorf("%s: no strategy returns to annualize: %w",
			contracts.StagePerformance, contracts.ErrNumericalDegeneracy)
	}

	m := &contracts.PerformanceMetrics{
		TotalReturn: p.FinalCumulative() - 1,
		TradingDays: len(returns),
		Years:       years,
		FinalValue:  p.FinalValue(),
		TotalTrades: signals.TotalTrades(),
	}

	m.AnnualizedReturn = annualize(m.TotalReturn, years)
	m.Volatility = volatility(returns)
	m.SharpeRatio = sharpe(m.AnnualizedReturn, m.Volatility)
	m.MaxDrawdown = MaxDrawdown(p.CumulativeReturns())
	m.WinRate = winRate(returns)
	m.BenchmarkReturn = p.FinalBenchmark() - 1
	m.Outperformance = m.TotalReturn - m.BenchmarkReturn
	m.ProfitFactor = profitFactor(p.RoundTrips)

	a.logger.WithFields(map[string]interface{}{
		"total_return":  m.TotalReturn,
		"sharpe":        m.SharpeRatio,
		"max_drawdown":  m.MaxDrawdown,
		"win_rate":      m.WinRate,
		"total_trades":  m.TotalTrades,
		"trading_days":  m.TradingDays,
	}).Debug("Performance analysis completed")

	return m, nil
}

// annualize compounds the total return over `years`; a total loss stays -100%
func annualize(totalReturn, years float64) float64 {
	growth := 1 + totalReturn
	if growth <= 0 {
		return -1
	}
	return math.Pow(growth, 1/years) - 1
}

// volatility is the annualized sample standard deviation, 0 with fewer than two returns
func volatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationSample(stats.Float64Data(returns))
	if err != nil {
		return 0
	}
	return sd * math.Sqrt(TradingDaysPerYear)
}

// sharpe is annualized/volatility with no risk-free rate.
// Defined as 0 when volatility is 0 (policy, not a measured ratio).
func sharpe(annualized, vol float64) float64 {
	if vol == 0 {
		return 0
	}
	return annualized / vol
}

// MaxDrawdown returns the most negative (value - running peak)/peak; always <= 0
func MaxDrawdown(curve []float64) float64 {
	if len(curve) == 0 {
		return 0
	}

	peak := curve[0]
	maxDD := 0.0
	for _, v := range curve {
		if v > peak {
			peak = v
		}
		dd := -1.0
		if peak > 0 {
			dd = (v - peak) / peak
		}
		if dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// winRate is #(r>0)/#(r≠0), 0 when every return is zero
func winRate(returns []float64) float64 {
	wins, active := 0, 0
	for _, r := range returns {
		if r != 0 {
			active++
		}
		if r > 0 {
			wins++
		}
	}
	if active == 0 {
		return 0
	}
	return float64(wins) / float64(active)
}

// profitFactor is gross winning return over gross losing return of the round trips
func profitFactor(trips []contracts.RoundTrip) float64 {
	var win, loss float64
	for _, t := range trips {
		if t.GrossReturn > 0 {
			win += t.GrossReturn
		} else if t.GrossReturn < 0 {
			loss += math.Abs(t.GrossReturn)
		}
	}
	if loss == 0 {
		return 0
	}
	return win / loss
}
