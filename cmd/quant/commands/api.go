package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/pairlab/backend/internal/api"
	"github.com/wonny/pairlab/backend/internal/api/handlers"
	"github.com/wonny/pairlab/backend/internal/audit"
	"github.com/wonny/pairlab/backend/internal/s0_data"
	"github.com/wonny/pairlab/backend/internal/s0_data/collector"
	"github.com/wonny/pairlab/backend/pkg/metrics"
	"github.com/wonny/pairlab/backend/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- 페어 평가 실행 및 저장된 결과 조회
- 페어별 평가 이력 리포트
- 가격 데이터 커버리지 조회 및 수집 트리거

Endpoints:
  GET  /health                          - Health check
  GET  /metrics                         - Prometheus metrics
  POST /api/evaluations                 - 페어 평가 실행
  GET  /api/evaluations?a=SPY&b=IVV     - 저장된 평가 목록
  GET  /api/evaluations/report?a=&b=    - 페어 이력 리포트
  GET  /api/evaluations/{id}            - 평가 결과 조회
  GET  /api/prices/{symbol}/coverage    - 가격 커버리지
  POST /api/data/collect                - 피드 수집 트리거

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	cfg, log := rt.cfg, rt.log

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port":     cfg.Port,
		"env":      cfg.Env,
		"strategy": rt.strategy.Meta.StrategyID,
		"source":   rt.strategy.Data.Source,
	}).Info("Initializing API server")

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

	// Stores
	prices := s0_data.NewPriceRepository(db.Pool)
	evaluations := audit.NewRepository(db.Pool)

	// Pipeline
	orchestrator := rt.orchestrator(rt.priceSource(db, rdb), db)

	// Feed collection is only offered when a feed URL is configured
	var col handlers.PriceCollector
	if cfg.Feed.URLTemplate != "" {
		col = collector.NewCollector(rt.feedClient(rdb), "feed", prices, log)
	}

	cache := redis.NewCache(rdb, "pairlab")
	evalHandler := handlers.NewEvaluationHandler(orchestrator, evaluations, cache, rt.strategy, log).
		WithCacheTTL(cfg.EvaluationCacheTTL)
	dataHandler := handlers.NewDataHandler(prices, col, rt.strategy.Schedule.Workers, log)

	router := api.NewRouter(evalHandler, dataHandler, log)
	server := api.New(cfg, log, router)

	// Standalone metrics listener in addition to /metrics on the API port
	if cfg.MetricsEnabled && cfg.MetricsPort != "" && cfg.MetricsPort != cfg.Port {
		metricsServer := metrics.Serve(":" + cfg.MetricsPort)
		defer metricsServer.Close()
		log.WithField("port", cfg.MetricsPort).Info("Metrics listener started")
	}

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
