package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/pairlab/backend/internal/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "저장된 평가 조회 및 이력 분석",
	Long: `저장된 페어 평가 결과를 조회하고 페어별 이력을 분석합니다.

명령어:
  list    최근 평가 목록
  show    평가 결과 상세
  report  페어 이력 리포트 (공적분 안정성, 평균 성과)`,
}

var (
	auditSymbolA string
	auditSymbolB string
	auditLimit   int
	auditRunID   string
	auditJSON    bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "최근 평가 목록",
	Long: `저장된 평가를 최신순으로 나열합니다.

Example:
  go run ./cmd/quant audit list
  go run ./cmd/quant audit list --a SPY --b IVV --limit 50`,
	RunE: runAuditList,
}

var auditShowCmd = &cobra.Command{
	Use:   "show",
	Short: "평가 결과 상세",
	Long: `run ID로 저장된 평가 전체를 출력합니다.

Example:
  go run ./cmd/quant audit show --id 3f0c...
  go run ./cmd/quant audit show --id 3f0c... --json`,
	RunE: runAuditShow,
}

var auditReportCmd = &cobra.Command{
	Use:   "report",
	Short: "페어 이력 리포트",
	Long: `한 페어의 최근 평가들을 집계합니다.

리포트 내용:
- 공적분 판정 비율과 p-value 중앙값
- 헤지 비율 표준편차 (안정성)
- 평균 수익률/Sharpe, 최악 MDD
- Sharpe 기준 최고/최저 실행

Example:
  go run ./cmd/quant audit report --a SPY --b IVV
  go run ./cmd/quant audit report --a XLE --b XOP --limit 100 --json`,
	RunE: runAuditReport,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditReportCmd)

	for _, c := range []*cobra.Command{auditListCmd, auditReportCmd} {
		c.Flags().StringVar(&auditSymbolA, "a", "", "첫 번째 종목")
		c.Flags().StringVar(&auditSymbolB, "b", "", "두 번째 종목")
		c.Flags().IntVar(&auditLimit, "limit", audit.DefaultListLimit, "최대 실행 수")
	}
	auditReportCmd.MarkFlagRequired("a")
	auditReportCmd.MarkFlagRequired("b")

	auditShowCmd.Flags().StringVar(&auditRunID, "id", "", "run ID (필수)")
	auditShowCmd.MarkFlagRequired("id")

	for _, c := range []*cobra.Command{auditListCmd, auditShowCmd, auditReportCmd} {
		c.Flags().BoolVar(&auditJSON, "json", false, "JSON으로 출력")
	}
}

// withAuditRepo opens the database for the duration of fn
func withAuditRepo(cmd *cobra.Command, fn func(rt *runtimeEnv, repo *audit.Repository) error) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	db, err := rt.openDB(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(rt, audit.NewRepository(db.Pool))
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runAuditList(cmd *cobra.Command, args []string) error {
	if (auditSymbolA == "") != (auditSymbolB == "") {
		return fmt.Errorf("--a and --b must be given together")
	}

	return withAuditRepo(cmd, func(rt *runtimeEnv, repo *audit.Repository) error {
		list, err := repo.ListEvaluations(cmd.Context(), auditSymbolA, auditSymbolB, auditLimit)
		if err != nil {
			return err
		}
		if auditJSON {
			return printJSON(list)
		}

		PrintHeader(fmt.Sprintf("Stored Evaluations (%d)", len(list)))
		widths := []int{36, 10, 23, 6, 8, 9, 9}
		PrintTableHeader([]string{"Run ID", "Pair", "Period", "Coint", "p-value", "Sharpe", "Return"}, widths)
		for _, s := range list {
			coint := "no"
			if s.IsCointegrated {
				coint = "yes"
			}
			PrintTableRow([]string{
				s.RunID,
				s.SymbolA + "/" + s.SymbolB,
				formatDate(s.StartDate) + "~" + formatDate(s.EndDate),
				coint,
				fmt.Sprintf("%.4f", s.PValue),
				fmt.Sprintf("%.3f", s.SharpeRatio),
				formatPct(s.TotalReturn),
			}, widths)
		}
		return nil
	})
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	return withAuditRepo(cmd, func(rt *runtimeEnv, repo *audit.Repository) error {
		eval, err := repo.GetEvaluation(cmd.Context(), auditRunID)
		if err != nil {
			return err
		}
		if auditJSON {
			return printJSON(eval)
		}
		printEvaluation(eval)
		return nil
	})
}

func runAuditReport(cmd *cobra.Command, args []string) error {
	return withAuditRepo(cmd, func(rt *runtimeEnv, repo *audit.Repository) error {
		report, err := audit.NewAnalyzer(repo, rt.log).PairReport(cmd.Context(), auditSymbolA, auditSymbolB, auditLimit)
		if err != nil {
			return err
		}
		if auditJSON {
			return printJSON(report)
		}

		PrintHeader(fmt.Sprintf("Pair Report: %s", report.Pair))
		if report.Runs == 0 {
			PrintInfo("No stored evaluations for this pair")
			return nil
		}

		PrintKeyValue("Runs", fmt.Sprintf("%d", report.Runs), 18)

		PrintSection("🔗 Cointegration Stability")
		PrintKeyValue("Cointegrated", fmt.Sprintf("%.0f%% of runs", report.CointegratedRate*100), 18)
		PrintKeyValue("Median p-value", fmt.Sprintf("%.4f", report.MedianPValue), 18)
		PrintKeyValue("Hedge Ratio σ", fmt.Sprintf("%.4f", report.HedgeRatioStdDev), 18)

		PrintSection("📊 Performance")
		PrintKeyValue("Mean Return", formatPct(report.MeanReturn), 18)
		PrintKeyValue("Mean Sharpe", fmt.Sprintf("%.3f", report.MeanSharpe), 18)
		PrintKeyValue("Worst Drawdown", formatPct(report.WorstDrawdown), 18)

		if report.Best != nil && report.Worst != nil {
			PrintSection("🏆 Best / Worst (Sharpe)")
			PrintKeyValue("Best", fmt.Sprintf("%s  %.3f  (%s ~ %s)", report.Best.RunID, report.Best.SharpeRatio,
				formatDate(report.Best.StartDate), formatDate(report.Best.EndDate)), 18)
			PrintKeyValue("Worst", fmt.Sprintf("%s  %.3f  (%s ~ %s)", report.Worst.RunID, report.Worst.SharpeRatio,
				formatDate(report.Worst.StartDate), formatDate(report.Worst.EndDate)), 18)
		}
		PrintDoubleSeparator()
		return nil
	})
}
