package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/internal/s0_data"
	"github.com/wonny/pairlab/backend/pkg/logger"
	"github.com/wonny/pairlab/backend/pkg/metrics"
)

// PriceStore persists downloaded bars
type PriceStore interface {
	SaveBatch(ctx context.Context, source string, bars []contracts.PriceBar) (int, error)
}

// Collector downloads prices for many symbols concurrently and stores them
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	source     s0_data.PriceSource
	sourceName string
	store      PriceStore
	logger     *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent workers
}

// NewCollector creates a new Collector instance
func NewCollector(source s0_data.PriceSource, sourceName string, store PriceStore, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Collector{
		source:     source,
		sourceName: sourceName,
		store:      store,
		logger:     log.WithField("module", "collector"),
	}
}

// FetchResult represents the result of a fetch operation
type FetchResult struct {
	Symbol     string
	PriceCount int
	Error      error
}

// MarshalJSON writes the error as its message
func (r FetchResult) MarshalJSON() ([]byte, error) {
	out := struct {
		Symbol     string `json:"symbol"`
		PriceCount int    `json:"price_count"`
		Error      string `json:"error,omitempty"`
	}{Symbol: r.Symbol, PriceCount: r.PriceCount}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}

// Collect fetches and stores [from, to] for every symbol.
// Results come back sorted by symbol; a failed symbol does not stop the others.
func (c *Collector) Collect(ctx context.Context, symbols []string, from, to time.Time, cfg Config) ([]FetchResult, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to collect")
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"from":    from.Format("2006-01-02"),
		"to":      to.Format("2006-01-02"),
		"workers": workers,
	}).Info("Starting price collection")

	results := make([]FetchResult, len(symbols))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			results[i] = c.collectOne(ctx, symbol, from, to)
			return nil
		})
	}
	_ = g.Wait()

	failCount := 0
	for _, r := range results {
		if r.Error != nil {
			failCount++
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Symbol < results[j].Symbol })

	c.logger.WithFields(map[string]interface{}{
		"success": len(results) - failCount,
		"failed":  failCount,
		"total":   len(results),
	}).Info("Price collection completed")

	return results, nil
}

// collectOne fetches and stores one symbol; errors are reported in the result
func (c *Collector) collectOne(ctx context.Context, symbol string, from, to time.Time) FetchResult {
	if err := ctx.Err(); err != nil {
		return FetchResult{Symbol: symbol, Error: err}
	}
	log := c.logger.WithField("symbol", symbol)

	bars, err := c.source.Fetch(ctx, symbol, from, to)
	if err != nil {
		log.WithError(err).Error("Failed to fetch prices")
		return FetchResult{Symbol: symbol, Error: err}
	}

	n, err := c.store.SaveBatch(ctx, c.sourceName, bars)
	metrics.PriceRowsIngested.WithLabelValues(c.sourceName).Add(float64(n))
	if err != nil {
		log.WithError(err).Error("Failed to save prices")
		return FetchResult{Symbol: symbol, PriceCount: n, Error: err}
	}

	log.WithField("count", n).Debug("Fetched prices")
	return FetchResult{Symbol: symbol, PriceCount: n}
}
