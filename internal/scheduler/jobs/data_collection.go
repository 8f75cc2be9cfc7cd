package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/pairlab/backend/internal/s0_data/collector"
	"github.com/wonny/pairlab/backend/internal/strategyconfig"
	"github.com/wonny/pairlab/backend/pkg/logger"
)

// PriceCollector downloads and stores closes for many symbols
type PriceCollector interface {
	Collect(ctx context.Context, symbols []string, from, to time.Time, cfg collector.Config) ([]collector.FetchResult, error)
}

// DataCollectionJob refreshes the closes of every watched symbol
// ⭐ SSOT: 데이터 수집 스케줄은 이 Job에서만
type DataCollectionJob struct {
	collector PriceCollector
	config    *strategyconfig.Config
	days      int // trailing calendar days fetched per run
	logger    *logger.Logger
	now       func() time.Time
}

// NewDataCollectionJob creates a new data collection job
func NewDataCollectionJob(col PriceCollector, cfg *strategyconfig.Config, days int, log *logger.Logger) *DataCollectionJob {
	if log == nil {
		log = logger.NewNop()
	}
	if days <= 0 {
		days = 7
	}
	return &DataCollectionJob{
		collector: col,
		config:    cfg,
		days:      days,
		logger:    log.WithField("job", "data_collection"),
		now:       time.Now,
	}
}

// Name returns the job name
func (j *DataCollectionJob) Name() string {
	return "data_collection"
}

// Schedule returns the cron schedule: 30 minutes before the evaluation run
func (j *DataCollectionJob) Schedule() string {
	return "0 0 18 * * MON-FRI"
}

// Run fetches the trailing window for every watched symbol
func (j *DataCollectionJob) Run(ctx context.Context) error {
	symbols := WatchedSymbols(j.config.Pairs)
	if len(symbols) == 0 {
		return fmt.Errorf("no watched symbols configured")
	}

	to := j.now().UTC()
	from := to.AddDate(0, 0, -j.days)

	results, err := j.collector.Collect(ctx, symbols, from, to, collector.Config{Workers: j.config.Schedule.Workers})
	if err != nil {
		return fmt.Errorf("collect prices: %w", err)
	}

	var failed []string
	for _, r := range results {
		if r.Error != nil {
			failed = append(failed, r.Symbol)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("collect prices: %d of %d symbols failed: %s", len(failed), len(results), strings.Join(failed, ","))
	}

	j.logger.WithField("symbols", len(symbols)).Info("Scheduled data collection completed successfully")
	return nil
}

// WatchedSymbols returns the distinct upper-case symbols of the pairs, sorted
func WatchedSymbols(pairs []strategyconfig.Pair) []string {
	seen := make(map[string]bool)
	for _, p := range pairs {
		seen[strings.ToUpper(p.SymbolA)] = true
		seen[strings.ToUpper(p.SymbolB)] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
