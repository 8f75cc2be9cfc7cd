package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/wonny/pairlab/backend/internal/audit"
	"github.com/wonny/pairlab/backend/internal/pipeline"
	"github.com/wonny/pairlab/backend/internal/risk"
	"github.com/wonny/pairlab/backend/internal/s0_data"
	"github.com/wonny/pairlab/backend/internal/s0_data/quality"
	"github.com/wonny/pairlab/backend/internal/strategyconfig"
	"github.com/wonny/pairlab/backend/pkg/config"
	"github.com/wonny/pairlab/backend/pkg/database"
	"github.com/wonny/pairlab/backend/pkg/httputil"
	"github.com/wonny/pairlab/backend/pkg/logger"
	"github.com/wonny/pairlab/backend/pkg/redis"
)

// runtimeEnv bundles what every command loads first
type runtimeEnv struct {
	cfg      *config.Config
	log      *logger.Logger
	strategy *strategyconfig.Config
}

// loadRuntime loads env config, the logger and the strategy YAML.
// Logs go to stderr so that reports on stdout stay clean.
func loadRuntime() (*runtimeEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.NewWithWriter(cfg, os.Stderr)

	path := strategyFile
	if path == "" {
		path = cfg.StrategyPath
	}

	strategy := strategyconfig.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		loaded, _, err := strategyconfig.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load strategy: %w", err)
		}
		strategy = loaded
	} else if strategyFile != "" {
		return nil, fmt.Errorf("strategy file %s: %w", path, statErr)
	} else {
		log.WithField("path", path).Debug("Strategy file not found, using defaults")
	}

	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	return &runtimeEnv{cfg: cfg, log: log, strategy: strategy}, nil
}

// openDB connects and makes sure the tables exist
func (rt *runtimeEnv) openDB(ctx context.Context) (*database.DB, error) {
	db, err := database.New(ctx, rt.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	rt.log.Debug("Connected to database")
	return db, nil
}

// openRedis returns a disabled client when REDIS_ENABLED is false
func (rt *runtimeEnv) openRedis() (*redis.Client, error) {
	client, err := redis.New(rt.cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// feedClient builds the HTTP CSV feed, sharing the Redis rate limit when Redis is enabled
func (rt *runtimeEnv) feedClient(rdb *redis.Client) *s0_data.FeedClient {
	httpClient := httputil.New(rt.cfg, rt.log)
	if rdb != nil && rdb.Enabled() {
		httpClient.WithRateLimiter(redis.NewRateLimiter(rdb, "pairlab"), redis.FeedRateLimitFor(rt.cfg))
	}
	return s0_data.NewFeedClient(httpClient, rt.cfg.Feed.URLTemplate, rt.log)
}

// priceSource picks the strategy's data source
func (rt *runtimeEnv) priceSource(db *database.DB, rdb *redis.Client) s0_data.PriceSource {
	if rt.strategy.Data.Source == strategyconfig.SourceFeed {
		return rt.feedClient(rdb)
	}
	return s0_data.NewPriceRepository(db.Pool)
}

// riskEngine builds the S5 risk engine from the strategy file
func (rt *runtimeEnv) riskEngine() *risk.Engine {
	return risk.NewEngine(rt.strategy.Risk.Bootstrap, rt.strategy.Risk.Limits)
}

// orchestrator wires S0..S5 over source; a non-nil db persists every evaluation
func (rt *runtimeEnv) orchestrator(source s0_data.PriceSource, db *database.DB) *pipeline.Orchestrator {
	o := pipeline.NewOrchestrator(rt.riskEngine(), rt.log).
		WithLoader(s0_data.NewLoader(source, rt.log), quality.NewQualityGate(rt.strategy.Data.Quality))
	if db != nil {
		o.WithStore(audit.NewRepository(db.Pool))
	}
	return o
}
