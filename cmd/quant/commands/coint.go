package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/pairlab/backend/internal/cointegration"
	"github.com/wonny/pairlab/backend/internal/s0_data"
	"github.com/wonny/pairlab/backend/internal/spread"
	"github.com/wonny/pairlab/backend/internal/strategyconfig"
	"github.com/wonny/pairlab/backend/pkg/database"
)

// cointCmd runs S0..S2 only: the Engle-Granger test and the hedge ratio
var cointCmd = &cobra.Command{
	Use:   "coint",
	Short: "공적분 검정 (Engle-Granger)",
	Long: `두 종목의 종가로 Engle-Granger 공적분 검정만 실행합니다.

출력:
- ADF 통계량, MacKinnon p-value, 임계값 (1%, 5%, 10%)
- 잔차 half-life
- OLS 헤지 비율과 R²

Example:
  go run ./cmd/quant coint --a SPY --b IVV --csv prices.csv
  go run ./cmd/quant coint --a XLE --b XOP --from 2022-01-01 --significance 0.01`,
	RunE: runCoint,
}

var (
	coSymbolA      string
	coSymbolB      string
	coCSV          string
	coFrom         string
	coTo           string
	coSignificance float64
)

func init() {
	rootCmd.AddCommand(cointCmd)

	f := cointCmd.Flags()
	f.StringVar(&coSymbolA, "a", "", "첫 번째 종목 (필수)")
	f.StringVar(&coSymbolB, "b", "", "두 번째 종목 (필수)")
	f.StringVar(&coCSV, "csv", "", "가격 CSV 파일 (date,symbol,close)")
	f.StringVar(&coFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
	f.StringVar(&coTo, "to", "", "종료 날짜 (YYYY-MM-DD)")
	f.Float64Var(&coSignificance, "significance", 0, "유의수준 (default: strategy params)")

	cointCmd.MarkFlagRequired("a")
	cointCmd.MarkFlagRequired("b")
}

func runCoint(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	from, err := parseDateFlag("from", coFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", coTo)
	if err != nil {
		return err
	}

	significance := rt.strategy.Params.SignificanceLevel
	if cmd.Flags().Changed("significance") {
		significance = coSignificance
	}

	var source s0_data.PriceSource
	switch {
	case coCSV != "":
		csvSource, err := s0_data.NewCSVSource(coCSV)
		if err != nil {
			return err
		}
		source = csvSource
	default:
		var db *database.DB
		if rt.strategy.Data.Source != strategyconfig.SourceFeed {
			db, err = rt.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
		}
		rdb, err := rt.openRedis()
		if err != nil {
			return err
		}
		defer rdb.Close()
		source = rt.priceSource(db, rdb)
	}

	prices, report, err := s0_data.NewLoader(source, rt.log).LoadPair(ctx, coSymbolA, coSymbolB, from, to)
	if err != nil {
		return err
	}

	result, err := cointegration.NewTester().Test(prices.A(), prices.B(), significance)
	if err != nil {
		return err
	}
	fit, err := spread.NewBuilder(rt.strategy.Params.Window).Fit(prices.A(), prices.B())
	if err != nil {
		return err
	}

	PrintHeader(fmt.Sprintf("Cointegration: %s", prices.Pair()))
	PrintKeyValue("Period", fmt.Sprintf("%s ~ %s (%d common rows, %d/%d loaded)",
		formatDate(prices.Start()), formatDate(prices.End()), prices.Len(), report.RowsA, report.RowsB), 14)

	verdict := "❌ not cointegrated"
	if result.IsCointegrated {
		verdict = "✅ cointegrated"
	}
	PrintKeyValue("Verdict", fmt.Sprintf("%s at %.0f%%", verdict, significance*100), 14)
	PrintKeyValue("ADF Statistic", fmt.Sprintf("%.4f", result.TestStatistic), 14)
	PrintKeyValue("p-value", fmt.Sprintf("%.4f", result.PValue), 14)
	PrintKeyValue("Used Lag", fmt.Sprintf("%d (nobs %d)", result.UsedLag, result.NObs), 14)

	PrintSection("Critical Values")
	for _, level := range []string{"1%", "5%", "10%"} {
		PrintKeyValue(level, fmt.Sprintf("%.4f", result.CriticalValues[level]), 14)
	}

	PrintSection("Spread")
	PrintKeyValue("Hedge Ratio", fmt.Sprintf("%.4f", fit.HedgeRatio), 14)
	PrintKeyValue("Intercept", fmt.Sprintf("%.4f", fit.Intercept), 14)
	PrintKeyValue("R²", fmt.Sprintf("%.4f", fit.RSquared), 14)
	PrintKeyValue("Half-life", formatHalfLife(result.HalfLife), 14)
	PrintDoubleSeparator()
	return nil
}
