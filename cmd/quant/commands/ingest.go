package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/s0_data"
	"github.com/wonny/pairlab/backend/internal/s0_data/collector"
	"github.com/wonny/pairlab/backend/internal/scheduler/jobs"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "S0 가격 데이터 적재",
	Long: `일별 종가를 PostgreSQL(data.daily_prices)에 적재하거나 내보냅니다.

Subcommands:
  csv     - CSV 파일 적재 (date,symbol,close)
  feed    - HTTP 피드에서 수집 (FEED_URL_TEMPLATE)
  export  - 저장된 종가를 CSV로 내보내기

Example:
  go run ./cmd/quant ingest csv --file prices.csv
  go run ./cmd/quant ingest feed --symbols SPY,IVV --from 2020-01-01
  go run ./cmd/quant ingest export --symbols SPY,IVV --out prices.csv`,
}

var (
	ingestCSVCmd = &cobra.Command{
		Use:   "csv",
		Short: "CSV 파일 적재",
		RunE:  runIngestCSV,
	}

	ingestFeedCmd = &cobra.Command{
		Use:   "feed",
		Short: "HTTP 피드에서 수집",
		Long: `피드에서 종목별 종가를 내려받아 저장합니다.
--symbols가 없으면 전략 파일의 감시 종목을 수집합니다.`,
		RunE: runIngestFeed,
	}

	ingestExportCmd = &cobra.Command{
		Use:   "export",
		Short: "저장된 종가를 CSV로 내보내기",
		RunE:  runIngestExport,
	}

	// Flags
	ingFile    string
	ingSymbols []string
	ingFrom    string
	ingTo      string
	ingWorkers int
	ingOut     string
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestCSVCmd)
	ingestCmd.AddCommand(ingestFeedCmd)
	ingestCmd.AddCommand(ingestExportCmd)

	ingestCSVCmd.Flags().StringVar(&ingFile, "file", "", "CSV 파일 경로 (필수)")
	ingestCSVCmd.MarkFlagRequired("file")

	ingestExportCmd.Flags().StringVar(&ingOut, "out", "", "출력 CSV 경로 (필수)")
	ingestExportCmd.MarkFlagRequired("out")

	for _, c := range []*cobra.Command{ingestCSVCmd, ingestFeedCmd, ingestExportCmd} {
		c.Flags().StringVar(&ingFrom, "from", "", "시작 날짜 (YYYY-MM-DD)")
		c.Flags().StringVar(&ingTo, "to", "", "종료 날짜 (YYYY-MM-DD)")
	}
	for _, c := range []*cobra.Command{ingestFeedCmd, ingestExportCmd} {
		c.Flags().StringSliceVar(&ingSymbols, "symbols", nil, "종목 (쉼표 구분, default: 감시 종목)")
	}
	for _, c := range []*cobra.Command{ingestCSVCmd, ingestFeedCmd} {
		c.Flags().IntVar(&ingWorkers, "workers", 4, "동시 작업 수")
	}
}

func ingestRange() (time.Time, time.Time, error) {
	from, err := parseDateFlag("from", ingFrom)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDateFlag("to", ingTo)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from %s is after --to %s", ingFrom, ingTo)
	}
	return from, to, nil
}

// ingestSymbols returns --symbols upper-cased, or the watched symbols
func ingestSymbols(rt *runtimeEnv) ([]string, error) {
	if len(ingSymbols) == 0 {
		symbols := jobs.WatchedSymbols(rt.strategy.Pairs)
		if len(symbols) == 0 {
			return nil, fmt.Errorf("no --symbols given and no watched pairs in the strategy file")
		}
		return symbols, nil
	}
	out := make([]string, 0, len(ingSymbols))
	for _, s := range ingSymbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func runIngestCSV(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	from, to, err := ingestRange()
	if err != nil {
		return err
	}

	source, err := s0_data.NewCSVSource(ingFile)
	if err != nil {
		return err
	}

	db, err := rt.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Printf("Loading %s (%d rows, %d symbols)...\n", ingFile, len(source.All()), len(source.Symbols()))

	col := collector.NewCollector(source, "csv", s0_data.NewPriceRepository(db.Pool), rt.log)
	results, err := col.Collect(ctx, source.Symbols(), from, to, collector.Config{Workers: ingWorkers})
	if err != nil {
		return err
	}
	return printCollectResults(results)
}

func runIngestFeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	if rt.cfg.Feed.URLTemplate == "" {
		return fmt.Errorf("FEED_URL_TEMPLATE is not configured")
	}
	from, to, err := ingestRange()
	if err != nil {
		return err
	}
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -rt.strategy.Data.LookbackDays)
	}
	symbols, err := ingestSymbols(rt)
	if err != nil {
		return err
	}

	db, err := rt.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	rdb, err := rt.openRedis()
	if err != nil {
		return err
	}
	defer rdb.Close()

	fmt.Printf("Collecting %d symbols from %s to %s...\n", len(symbols), formatDate(from), formatDate(to))

	col := collector.NewCollector(rt.feedClient(rdb), "feed", s0_data.NewPriceRepository(db.Pool), rt.log)
	results, err := col.Collect(ctx, symbols, from, to, collector.Config{Workers: ingWorkers})
	if err != nil {
		return err
	}
	return printCollectResults(results)
}

func printCollectResults(results []collector.FetchResult) error {
	widths := []int{8, 8, 40}
	fmt.Println()
	PrintTableHeader([]string{"Symbol", "Rows", "Status"}, widths)

	var failed []string
	total := 0
	for _, r := range results {
		status := "ok"
		if r.Error != nil {
			status = r.Error.Error()
			failed = append(failed, r.Symbol)
		}
		total += r.PriceCount
		PrintTableRow([]string{r.Symbol, fmt.Sprintf("%d", r.PriceCount), status}, widths)
	}
	fmt.Println()

	if len(failed) > 0 {
		PrintWarning(fmt.Sprintf("%d rows stored, %d symbols failed: %s", total, len(failed), strings.Join(failed, ", ")))
		return fmt.Errorf("ingest failed for %d symbols", len(failed))
	}
	PrintSuccess(fmt.Sprintf("%d rows stored for %d symbols", total, len(results)))
	return nil
}

func runIngestExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	from, to, err := ingestRange()
	if err != nil {
		return err
	}
	symbols, err := ingestSymbols(rt)
	if err != nil {
		return err
	}

	db, err := rt.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := s0_data.NewPriceRepository(db.Pool)

	var bars []contracts.PriceBar
	for _, symbol := range symbols {
		list, err := repo.Fetch(ctx, symbol, from, to)
		if err != nil {
			return err
		}
		bars = append(bars, list...)
	}

	f, err := os.Create(ingOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", ingOut, err)
	}
	defer f.Close()

	if err := s0_data.WriteCSV(f, bars); err != nil {
		return fmt.Errorf("write %s: %w", ingOut, err)
	}
	PrintSuccess(fmt.Sprintf("%d rows of %d symbols written to %s", len(bars), len(symbols), ingOut))
	return nil
}
