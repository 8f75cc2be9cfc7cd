package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/pairlab/backend/internal/audit"
	"github.com/wonny/pairlab/backend/internal/s0_data"
	"github.com/wonny/pairlab/backend/internal/s0_data/collector"
	"github.com/wonny/pairlab/backend/internal/scheduler"
	"github.com/wonny/pairlab/backend/internal/scheduler/jobs"
	"github.com/wonny/pairlab/backend/pkg/database"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `감시 페어 재평가 스케줄러를 시작하거나 작업을 관리합니다.

이 명령어는:
- 스케줄러 데몬 시작
- 등록된 작업 조회
- 감시 페어 최근 평가 상태 조회

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 감시 페어 상태 조회

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler list
  go run ./cmd/quant scheduler run evaluate_pairs`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- data_collection: 평일 18:00 (감시 종목 종가 수집, 피드 설정 시)
- evaluate_pairs: 전략 파일의 schedule.cron (기본 평일 18:30)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "감시 페어 최근 평가 상태",
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

// schedulerEnv keeps the connections the jobs use open until cleanup
type schedulerEnv struct {
	rt      *runtimeEnv
	sched   *scheduler.Scheduler
	cleanup func()
}

func initScheduler(ctx context.Context) (*schedulerEnv, error) {
	rt, err := loadRuntime()
	if err != nil {
		return nil, err
	}

	db, err := rt.openDB(ctx)
	if err != nil {
		return nil, err
	}
	rdb, err := rt.openRedis()
	if err != nil {
		db.Close()
		return nil, err
	}
	cleanup := func() {
		rdb.Close()
		db.Close()
	}

	loc, err := time.LoadLocation(rt.strategy.Meta.Timezone)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("strategy timezone: %w", err)
	}

	sched := scheduler.New(rt.log, scheduler.WithLocation(loc))

	// Closes are refreshed first, when a feed is configured
	if rt.cfg.Feed.URLTemplate != "" {
		col := collector.NewCollector(rt.feedClient(rdb), "feed", s0_data.NewPriceRepository(db.Pool), rt.log)
		if err := sched.AddJob(jobs.NewDataCollectionJob(col, rt.strategy, 0, rt.log)); err != nil {
			cleanup()
			return nil, err
		}
	}

	orchestrator := rt.orchestrator(rt.priceSource(db, rdb), db)
	if err := sched.AddJob(jobs.NewEvaluatePairsJob(orchestrator, rt.strategy, rt.log)); err != nil {
		cleanup()
		return nil, err
	}

	return &schedulerEnv{rt: rt, sched: sched, cleanup: cleanup}, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fmt.Println("=== PairLab Scheduler ===")

	env, err := initScheduler(ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer env.cleanup()

	if !env.rt.strategy.Schedule.Enabled {
		return fmt.Errorf("schedule.enabled is false in the strategy file")
	}
	if len(env.rt.strategy.Pairs) == 0 {
		PrintWarning("No watched pairs in the strategy file; evaluate_pairs will fail on every run")
	}

	env.sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	printJobs(env.sched)
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	env.sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	env, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer env.cleanup()

	// Entries only get a next time once cron runs
	env.sched.Start()
	defer env.sched.Stop()

	printJobs(env.sched)
	return nil
}

func printJobs(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()
	widths := []int{18, 22, 20}

	fmt.Println()
	PrintTableHeader([]string{"Job", "Schedule", "Next Run"}, widths)
	for _, name := range sched.GetAllJobs() {
		next, _ := sched.NextRun(name)
		nextStr := "-"
		if !next.IsZero() {
			nextStr = next.Format("2006-01-02 15:04 MST")
		}
		PrintTableRow([]string{name, stats[name].Schedule, nextStr}, widths)
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	env, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer env.cleanup()

	fmt.Printf("Running job: %s\n", jobName)

	result, err := env.sched.RunJob(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	PrintKeyValue("Duration", result.Duration.Round(time.Millisecond).String(), 10)
	PrintKeyValue("Attempts", fmt.Sprintf("%d", result.Attempts), 10)
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed", jobName)
	}
	PrintSuccess(fmt.Sprintf("Job %s finished", jobName))
	return nil
}

// showStatus prints the latest stored evaluation of every watched pair
func showStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	db, err := rt.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	return printPairStatus(ctx, rt, db)
}

func printPairStatus(ctx context.Context, rt *runtimeEnv, db *database.DB) error {
	repo := audit.NewRepository(db.Pool)

	PrintHeader(fmt.Sprintf("Watched Pairs (%s)", rt.strategy.Meta.StrategyID))
	if len(rt.strategy.Pairs) == 0 {
		PrintInfo("No watched pairs configured")
		return nil
	}

	widths := []int{12, 17, 8, 9, 9, 10}
	PrintTableHeader([]string{"Pair", "Last Run", "Coint", "p-value", "Sharpe", "Return"}, widths)
	for _, pair := range rt.strategy.Pairs {
		list, err := repo.ListEvaluations(ctx, pair.SymbolA, pair.SymbolB, 1)
		if err != nil {
			return fmt.Errorf("list %s: %w", pair.Name(), err)
		}
		if len(list) == 0 {
			PrintTableRow([]string{pair.Name(), "never", "-", "-", "-", "-"}, widths)
			continue
		}
		s := list[0]
		coint := "no"
		if s.IsCointegrated {
			coint = "yes"
		}
		PrintTableRow([]string{
			pair.Name(),
			s.CreatedAt.Format("2006-01-02 15:04"),
			coint,
			fmt.Sprintf("%.4f", s.PValue),
			fmt.Sprintf("%.3f", s.SharpeRatio),
			formatPct(s.TotalReturn),
		}, widths)
	}
	return nil
}
