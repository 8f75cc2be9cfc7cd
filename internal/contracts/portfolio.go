package contracts

import "time"

// PortfolioRow is one date of the simulated trading history
// HasReturn is false on the first date, where no prior close exists.
type PortfolioRow struct {
	Date                time.Time `json:"date" csv:"-"`
	LegAPosition        float64   `json:"leg_a_position" csv:"leg_a_position"`
	LegBPosition        float64   `json:"leg_b_position" csv:"leg_b_position"`
	LegAReturn          float64   `json:"leg_a_return" csv:"leg_a_return"`
	LegBReturn          float64   `json:"leg_b_return" csv:"leg_b_return"`
	TransactionCost     float64   `json:"transaction_cost" csv:"transaction_cost"`
	StrategyReturn      float64   `json:"strategy_return" csv:"strategy_return"`
	CumulativeReturn    float64   `json:"cumulative_return" csv:"cumulative_return"`
	PortfolioValue      float64   `json:"portfolio_value" csv:"portfolio_value"`
	BenchmarkReturn     float64   `json:"benchmark_return" csv:"benchmark_return"`
	BenchmarkCumulative float64   `json:"benchmark_cumulative" csv:"benchmark_cumulative"`
	BenchmarkValue      float64   `json:"benchmark_value" csv:"benchmark_value"`
	HasReturn           bool      `json:"has_return" csv:"has_return"`
}

// RoundTrip is one holding period of a non-flat position
// GrossReturn compounds the leg returns only; costs stay in the daily rows.
type RoundTrip struct {
	Direction   Position  `json:"direction"`
	EntryDate   time.Time `json:"entry_date"`
	ExitDate    time.Time `json:"exit_date"`
	HoldingDays int       `json:"holding_days"`
	GrossReturn float64   `json:"gross_return"`
	Open        bool      `json:"open"` // still held on the last date
}

// Portfolio is the backtest output
type Portfolio struct {
	Rows               []PortfolioRow `json:"rows"`
	RoundTrips         []RoundTrip    `json:"round_trips"`
	InitialCapital     float64        `json:"initial_capital"`
	TransactionCostBps float64        `json:"transaction_cost_bps"`
	HedgeRatio         float64        `json:"hedge_ratio"`
}

// StrategyReturns returns the strategy returns of the rows that have one
func (p *Portfolio) StrategyReturns() []float64 {
	out := make([]float64, 0, len(p.Rows))
	for _, r := range p.Rows {
		if r.HasReturn {
			out = append(out, r.StrategyReturn)
		}
	}
	return out
}

// CumulativeReturns returns the compounded curve of the rows that have a return
func (p *Portfolio) CumulativeReturns() []float64 {
	out := make([]float64, 0, len(p.Rows))
	for _, r := range p.Rows {
		if r.HasReturn {
			out = append(out, r.CumulativeReturn)
		}
	}
	return out
}

// FinalCumulative returns the last cumulative return (1 when empty)
func (p *Portfolio) FinalCumulative() float64 {
	if len(p.Rows) == 0 {
		return 1
	}
	return p.Rows[len(p.Rows)-1].CumulativeReturn
}

// FinalBenchmark returns the last benchmark cumulative return (1 when empty)
func (p *Portfolio) FinalBenchmark() float64 {
	if len(p.Rows) == 0 {
		return 1
	}
	return p.Rows[len(p.Rows)-1].BenchmarkCumulative
}

// FinalValue returns the last portfolio value
func (p *Portfolio) FinalValue() float64 {
	if len(p.Rows) == 0 {
		return p.InitialCapital
	}
	return p.Rows[len(p.Rows)-1].PortfolioValue
}

// TotalCosts sums the transaction costs charged (as return fractions)
func (p *Portfolio) TotalCosts() float64 {
	total := 0.0
	for _, r := range p.Rows {
		total += r.TransactionCost
	}
	return total
}
