package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/pkg/logger"
)

const (
	DefaultInitialCapital     = 100_000.0
	DefaultTransactionCostBps = 0.001
)

// Engine runs pair backtests
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	InitialCapital     float64
	TransactionCostBps float64 // charged per unit of |position change|, as a return fraction

	logger *logger.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(initialCapital, transactionCostBps float64, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		InitialCapital:     initialCapital,
		TransactionCostBps: transactionCostBps,
		logger:             log,
	}
}

// Run simulates the signals against the prices with a one-day execution lag:
// the position decided on date t earns the returns of date t+1.
// Leg B is always -position*hedgeRatio.
func (e *Engine) Run(prices contracts.PriceSeries, signals contracts.SignalSeries, hedgeRatio float64) (*contracts.Portfolio, error) {
	if err := e.validate(prices, signals, hedgeRatio); err != nil {
		return nil, err
	}

	startTime := time.Now()
	dates := prices.Dates()
	a, b := prices.A(), prices.B()

	sim := NewSimulator(e.InitialCapital, e.TransactionCostBps, hedgeRatio)
	rows := make([]contracts.PortfolioRow, len(dates))

	first := signals.Signals[0]
	rows[0] = sim.First(dates[0], first.Position, first.TradeFlag)

	for t := 1; t < len(dates); t++ {
		sig := signals.Signals[t]
		retA := a[t]/a[t-1] - 1
		retB := b[t]/b[t-1] - 1
		rows[t] = sim.Step(dates[t], sig.Position, sig.TradeFlag, retA, retB)
	}
	sim.Finish(dates[len(dates)-1])

	portfolio := &contracts.Portfolio{
		Rows:               rows,
		RoundTrips:         sim.RoundTrips(),
		InitialCapital:     e.InitialCapital,
		TransactionCostBps: e.TransactionCostBps,
		HedgeRatio:         hedgeRatio,
	}

	stats := sim.GetStats()
	e.logger.WithFields(map[string]interface{}{
		"pair":         prices.Pair(),
		"days":         len(rows),
		"round_trips":  stats.RoundTrips,
		"total_cost":   stats.TotalCost,
		"final_value":  portfolio.FinalValue(),
		"total_return": fmt.Sprintf("%.2f%%", (portfolio.FinalCumulative()-1)*100),
		"duration_ms":  time.Since(startTime).Milliseconds(),
	}).Debug("Backtest completed")

	return portfolio, nil
}

func (e *Engine) validate(prices contracts.PriceSeries, signals contracts.SignalSeries, hedgeRatio float64) error {
	stage := contracts.StageBacktest
	switch {
	case prices.Len() == 0:
		return contracts.NewInputError(stage, "prices", "price table is empty")
	case signals.Len() != prices.Len():
		return contracts.NewInputError(stage, "signals", "misaligned: %d signals for %d price dates", signals.Len(), prices.Len())
	case !(e.InitialCapital > 0) || math.IsInf(e.InitialCapital, 0):
		return contracts.NewInputError(stage, "initial_capital", "must be > 0, got %v", e.InitialCapital)
	case !(e.TransactionCostBps >= 0) || math.IsInf(e.TransactionCostBps, 0):
		return contracts.NewInputError(stage, "transaction_cost_bps", "must be >= 0, got %v", e.TransactionCostBps)
	case math.IsNaN(hedgeRatio) || math.IsInf(hedgeRatio, 0):
		return contracts.NewInputError(stage, "hedge_ratio", "must be finite, got %v", hedgeRatio)
	}

	dates := prices.Dates()
	for i, sig := range signals.Signals {
		if !sig.Date.IsZero() && !sig.Date.Equal(dates[i]) {
			return contracts.NewInputError(stage, "signals", "signal date %s does not match price date %s",
				sig.Date.Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}
	return nil
}
