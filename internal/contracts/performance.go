package contracts

import "fmt"

// PerformanceMetrics summarizes a backtest
// ⭐ SSOT: fractions here, percentages only in Rows()
type PerformanceMetrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"` // 0 by policy when Volatility == 0
	MaxDrawdown      float64 `json:"max_drawdown"` // <= 0
	WinRate          float64 `json:"win_rate"`
	TotalTrades      int     `json:"total_trades"`
	BenchmarkReturn  float64 `json:"benchmark_return"`
	Outperformance   float64 `json:"outperformance"`
	ProfitFactor     float64 `json:"profit_factor"` // over round trips, 0 without a losing one

	TradingDays int     `json:"trading_days"`
	Years       float64 `json:"years"`
	FinalValue  float64 `json:"final_value"`
}

// MetricRow is one formatted line of the metrics table
type MetricRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Rows returns the metrics formatted for display
func (m *PerformanceMetrics) Rows() []MetricRow {
	return []MetricRow{
		{"Total Return", pct(m.TotalReturn)},
		{"Annualized Return", pct(m.AnnualizedReturn)},
		{"Volatility", pct(m.Volatility)},
		{"Sharpe Ratio", fmt.Sprintf("%.3f", m.SharpeRatio)},
		{"Max Drawdown", pct(m.MaxDrawdown)},
		{"Win Rate", pct(m.WinRate)},
		{"Total Trades", fmt.Sprintf("%d", m.TotalTrades)},
		{"Benchmark Return", pct(m.BenchmarkReturn)},
		{"Outperformance", pct(m.Outperformance)},
	}
}

// IsOutperforming checks if the strategy beat the buy-and-hold benchmark
func (m *PerformanceMetrics) IsOutperforming() bool {
	return m.Outperformance > 0
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
