package commands

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/pipeline"
	"github.com/wonny/pairlab/backend/internal/s0_data"
	"github.com/wonny/pairlab/backend/internal/strategyconfig"
	"github.com/wonny/pairlab/backend/pkg/database"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "페어 트레이딩 백테스트",
	Long: `두 종목의 종가로 전체 평가 파이프라인을 실행합니다.

백테스트는 다음을 보고합니다:
- 공적분 검정 (Engle-Granger, 참고용)
- 헤지 비율과 z-score 스프레드
- 포지션 이력과 일별 손익
- 성과 지표 (수익률, Sharpe, MDD, 승률) 및 리스크 (VaR, CVaR)

Example:
  go run ./cmd/quant backtest run --a SPY --b IVV --csv prices.csv
  go run ./cmd/quant backtest run --a XLE --b XOP --from 2021-01-01 --window 30 --save`,
}

var (
	backtestRunCmd = &cobra.Command{
		Use:   "run",
		Short: "백테스트 실행",
		Long: `지정된 페어와 기간으로 백테스트를 실행합니다.

가격 소스:
  --csv 지정 시 CSV 파일 (date,symbol,close)
  없으면 전략 파일의 data.source (postgres | feed)

파라미터는 전략 파일 → 페어별 override → 플래그 순으로 적용됩니다.

Example:
  go run ./cmd/quant backtest run --a SPY --b IVV --csv prices.csv --export portfolio.csv
  go run ./cmd/quant backtest run --a GLD --b GDX --entry 2.5 --stop 4 --json`,
		RunE: runBacktest,
	}

	// Flags
	btSymbolA      string
	btSymbolB      string
	btCSV          string
	btFrom         string
	btTo           string
	btWindow       int
	btEntry        float64
	btExit         float64
	btStop         float64
	btCapital      float64
	btCost         float64
	btSignificance float64
	btSave         bool
	btExport       string
	btJSON         bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.AddCommand(backtestRunCmd)

	f := backtestRunCmd.Flags()
	f.StringVar(&btSymbolA, "a", "", "첫 번째 종목 (필수)")
	f.StringVar(&btSymbolB, "b", "", "두 번째 종목 (필수)")
	f.StringVar(&btCSV, "csv", "", "가격 CSV 파일 (date,symbol,close)")
	f.StringVar(&btFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	f.StringVar(&btTo, "to", "", "종료 날짜 (YYYY-MM-DD)")
	f.IntVar(&btWindow, "window", 0, "rolling z-score 기간 (일)")
	f.Float64Var(&btEntry, "entry", 0, "진입 |z| 임계값")
	f.Float64Var(&btExit, "exit", 0, "청산 |z| 임계값")
	f.Float64Var(&btStop, "stop", 0, "손절 |z| 임계값 (0 = 비활성)")
	f.Float64Var(&btCapital, "capital", 0, "초기 자본")
	f.Float64Var(&btCost, "cost", 0, "포지션 변화 1단위당 거래비용 (비율)")
	f.Float64Var(&btSignificance, "significance", 0, "공적분 유의수준")
	f.BoolVar(&btSave, "save", false, "결과를 데이터베이스에 저장")
	f.StringVar(&btExport, "export", "", "일별 포트폴리오 CSV 출력 경로")
	f.BoolVar(&btJSON, "json", false, "JSON으로 출력")

	backtestRunCmd.MarkFlagRequired("a")
	backtestRunCmd.MarkFlagRequired("b")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}

	from, err := parseDateFlag("from", btFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", btTo)
	if err != nil {
		return err
	}

	params := resolveParams(cmd, rt.strategy.Params, btSymbolA, btSymbolB, rt)

	// Price source and optional store
	var source s0_data.PriceSource
	var db *database.DB
	if btCSV != "" {
		csvSource, err := s0_data.NewCSVSource(btCSV)
		if err != nil {
			return err
		}
		source = csvSource
	}
	needsDB := btSave || (btCSV == "" && rt.strategy.Data.Source != strategyconfig.SourceFeed)
	if needsDB {
		db, err = rt.openDB(ctx)
		if err != nil {
			return err
		}
		defer db.Close()
	}
	if source == nil {
		rdb, err := rt.openRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()
		source = rt.priceSource(db, rdb)
	}

	var store *database.DB
	if btSave {
		store = db
	}
	eval, err := rt.orchestrator(source, store).EvaluateRange(ctx, pipeline.RangeRequest{
		SymbolA: btSymbolA,
		SymbolB: btSymbolB,
		From:    from,
		To:      to,
		Params:  params,
		Source:  "cli",
	})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	if btExport != "" {
		if err := exportPortfolio(btExport, eval); err != nil {
			return err
		}
	}

	if btJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(eval)
	}

	printEvaluation(eval)
	if btSave {
		PrintSuccess(fmt.Sprintf("Saved as run %s", eval.RunID))
	}
	if btExport != "" {
		PrintSuccess(fmt.Sprintf("Portfolio exported to %s", btExport))
	}
	return nil
}

// resolveParams applies strategy defaults, the matching watched-pair override and then explicit flags
func resolveParams(cmd *cobra.Command, base contracts.Params, symbolA, symbolB string, rt *runtimeEnv) contracts.Params {
	p := base
	name := strings.ToUpper(symbolA) + "/" + strings.ToUpper(symbolB)
	for _, pair := range rt.strategy.Pairs {
		if pair.Name() == name {
			p = pair.Resolve(base)
			break
		}
	}

	flags := cmd.Flags()
	if flags.Changed("window") {
		p.Window = btWindow
	}
	if flags.Changed("entry") {
		p.EntryThreshold = btEntry
	}
	if flags.Changed("exit") {
		p.ExitThreshold = btExit
	}
	if flags.Changed("stop") {
		p.StopThreshold = btStop
	}
	if flags.Changed("capital") {
		p.InitialCapital = btCapital
	}
	if flags.Changed("cost") {
		p.TransactionCostBps = btCost
	}
	if flags.Changed("significance") {
		p.SignificanceLevel = btSignificance
	}
	return p
}

// portfolioCSVRow is one exported date: the signal next to the accounting row
type portfolioCSVRow struct {
	Date     string `csv:"date"`
	ZScore   string `csv:"zscore"`
	Position string `csv:"position"`
	contracts.PortfolioRow
}

func exportPortfolio(path string, eval *contracts.Evaluation) error {
	rows := make([]*portfolioCSVRow, len(eval.Portfolio.Rows))
	for i, r := range eval.Portfolio.Rows {
		sig := eval.Signals.Signals[i]
		z := ""
		if !math.IsNaN(sig.ZScore) {
			z = fmt.Sprintf("%.6f", sig.ZScore)
		}
		rows[i] = &portfolioCSVRow{
			Date:         r.Date.Format(dateLayout),
			ZScore:       z,
			Position:     sig.Position.String(),
			PortfolioRow: r,
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

func printEvaluation(e *contracts.Evaluation) {
	PrintHeader(fmt.Sprintf("Pair Evaluation: %s", e.Pair()))
	PrintKeyValue("Run ID", e.RunID, 14)
	PrintKeyValue("Period", fmt.Sprintf("%s ~ %s (%d days)", formatDate(e.StartDate), formatDate(e.EndDate), len(e.Portfolio.Rows)), 14)
	PrintKeyValue("Params", fmt.Sprintf("window=%d entry=%.2f exit=%.2f stop=%.2f cost=%.4f",
		e.Params.Window, e.Params.EntryThreshold, e.Params.ExitThreshold, e.Params.StopThreshold, e.Params.TransactionCostBps), 14)
	if e.Quality != nil {
		PrintKeyValue("Data Quality", fmt.Sprintf("%.1f%% coverage, %d common rows", e.Quality.QualityScore*100, e.Quality.CommonRows), 14)
	}

	// S1
	c := e.Cointegration
	PrintSection("🔗 Cointegration (Engle-Granger)")
	verdict := "❌ not cointegrated"
	if c.IsCointegrated {
		verdict = "✅ cointegrated"
	}
	PrintKeyValue("Verdict", fmt.Sprintf("%s at %.0f%%", verdict, c.SignificanceLevel*100), 14)
	PrintKeyValue("ADF Statistic", fmt.Sprintf("%.4f", c.TestStatistic), 14)
	PrintKeyValue("p-value", fmt.Sprintf("%.4f", c.PValue), 14)
	PrintKeyValue("Critical", fmt.Sprintf("1%%=%.3f 5%%=%.3f 10%%=%.3f", c.CriticalValues["1%"], c.CriticalValues["5%"], c.CriticalValues["10%"]), 14)
	PrintKeyValue("Half-life", formatHalfLife(c.HalfLife), 14)

	// S2
	PrintSection("📐 Spread")
	PrintKeyValue("Hedge Ratio", fmt.Sprintf("%.4f", e.Spread.HedgeRatio), 14)
	PrintKeyValue("Intercept", fmt.Sprintf("%.4f", e.Spread.Intercept), 14)
	PrintKeyValue("R²", fmt.Sprintf("%.4f", e.Spread.RSquared), 14)

	// S4 money (decimal, cents)
	p := e.Portfolio
	initial := decimal.NewFromFloat(p.InitialCapital)
	final := decimal.NewFromFloat(p.FinalValue())
	costs := decimal.NewFromFloat(p.TotalCosts()).Mul(initial)
	PrintSection("💰 Portfolio")
	PrintKeyValue("Initial", formatMoney(p.InitialCapital), 14)
	PrintKeyValue("Final", formatMoney(final.InexactFloat64()), 14)
	PrintKeyValue("P&L", formatMoney(final.Sub(initial).InexactFloat64()), 14)
	PrintKeyValue("Costs (approx)", formatMoney(costs.InexactFloat64()), 14)
	PrintKeyValue("Round Trips", fmt.Sprintf("%d", len(p.RoundTrips)), 14)

	// S5
	PrintSection("📊 Performance")
	widths := []int{20, 14}
	PrintTableHeader([]string{"Metric", "Value"}, widths)
	for _, row := range e.Metrics.Rows() {
		PrintTableRow([]string{row.Label, row.Value}, widths)
	}
	if e.Metrics.ProfitFactor > 0 {
		PrintTableRow([]string{"Profit Factor", fmt.Sprintf("%.2f", e.Metrics.ProfitFactor)}, widths)
	}

	if r := e.Risk; r != nil {
		PrintSection("📉 Risk")
		PrintKeyValue("VaR", fmt.Sprintf("%.2f%% (1d, %.0f%%)", r.VaR*100, r.Confidence*100), 14)
		PrintKeyValue("CVaR", fmt.Sprintf("%.2f%%", r.CVaR*100), 14)
		PrintKeyValue("Sortino", fmt.Sprintf("%.3f", r.Sortino), 14)
		if r.HoldingPeriod > 0 {
			PrintKeyValue("Bootstrap VaR", fmt.Sprintf("%.2f%% (%dd)", r.BootstrapVaR*100, r.HoldingPeriod), 14)
		}
		for _, v := range r.Violations {
			PrintWarning(v)
		}
	}

	fmt.Println()
	if !c.IsCointegrated {
		PrintWarning("The pair is not cointegrated; mean reversion of the spread is not supported by the test")
	}
	if e.Metrics.IsOutperforming() {
		PrintSuccess(fmt.Sprintf("Strategy beat buy-and-hold by %s", formatPct(e.Metrics.Outperformance)))
	} else {
		PrintInfo(fmt.Sprintf("Strategy trailed buy-and-hold by %s", formatPct(-e.Metrics.Outperformance)))
	}
	PrintDoubleSeparator()
}

func formatHalfLife(days float64) string {
	if math.IsInf(days, 0) || math.IsNaN(days) {
		return "∞ (no mean reversion)"
	}
	return fmt.Sprintf("%.1f days", days)
}
