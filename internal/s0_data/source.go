package s0_data

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/wonny/pairlab/backend/internal/contracts"
	"github.com/wonny/pairlab/backend/pkg/logger"
)

// PriceSource returns the daily closes of one symbol, ascending by date.
// A zero from/to leaves that side of the range open.
type PriceSource interface {
	Fetch(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error)
}

// AlignReport summarizes what Align kept and dropped
type AlignReport struct {
	RowsA    int
	RowsB    int
	Common   int
	DroppedA int // dates of A with no usable close of B
	DroppedB int
}

// Align inner-joins two price histories on date.
// Dates missing (or NaN) in either history are dropped; duplicates are an input error.
// ⭐ SSOT: 두 종목의 날짜 정렬은 여기서만
func Align(symbolA, symbolB string, barsA, barsB []contracts.PriceBar) (contracts.PriceSeries, AlignReport, error) {
	report := AlignReport{RowsA: len(barsA), RowsB: len(barsB)}

	closesA, err := indexByDate(symbolA, barsA)
	if err != nil {
		return contracts.PriceSeries{}, report, err
	}
	closesB, err := indexByDate(symbolB, barsB)
	if err != nil {
		return contracts.PriceSeries{}, report, err
	}

	dates := make([]time.Time, 0, len(closesA))
	for d := range closesA {
		if _, ok := closesB[d]; ok {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	a := make([]float64, len(dates))
	b := make([]float64, len(dates))
	for i, d := range dates {
		a[i] = closesA[d]
		b[i] = closesB[d]
	}

	report.Common = len(dates)
	report.DroppedA = len(closesA) - len(dates)
	report.DroppedB = len(closesB) - len(dates)

	if len(dates) == 0 {
		return contracts.PriceSeries{}, report, contracts.NewInputError(contracts.StagePrices, "dates",
			"%s and %s share no trading dates", symbolA, symbolB)
	}

	ps, err := contracts.NewPriceSeries(symbolA, symbolB, dates, a, b)
	return ps, report, err
}

// indexByDate maps normalized date → close, skipping missing closes
func indexByDate(symbol string, bars []contracts.PriceBar) (map[time.Time]float64, error) {
	out := make(map[time.Time]float64, len(bars))
	for _, bar := range bars {
		if bar.Symbol != "" && !strings.EqualFold(bar.Symbol, symbol) {
			return nil, contracts.NewInputError(contracts.StagePrices, "symbol",
				"bar for %s passed as %s", bar.Symbol, symbol)
		}
		if math.IsNaN(bar.Close) {
			continue
		}
		d := normalizeDate(bar.Date)
		if _, dup := out[d]; dup {
			return nil, contracts.NewInputError(contracts.StagePrices, symbol,
				"duplicate close on %s", d.Format("2006-01-02"))
		}
		out[d] = bar.Close
	}
	return out, nil
}

// normalizeDate truncates to a UTC calendar date
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func inRange(d, from, to time.Time) bool {
	if !from.IsZero() && d.Before(normalizeDate(from)) {
		return false
	}
	if !to.IsZero() && d.After(normalizeDate(to)) {
		return false
	}
	return true
}

// Loader fetches both legs of a pair and aligns them
type Loader struct {
	source PriceSource
	logger *logger.Logger
}

// NewLoader creates a new Loader
func NewLoader(source PriceSource, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Loader{source: source, logger: log}
}

// LoadPair returns the aligned closes of symbolA and symbolB over [from, to]
func (l *Loader) LoadPair(ctx context.Context, symbolA, symbolB string, from, to time.Time) (contracts.PriceSeries, AlignReport, error) {
	barsA, err := l.source.Fetch(ctx, symbolA, from, to)
	if err != nil {
		return contracts.PriceSeries{}, AlignReport{}, fmt.Errorf("fetch %s: %w", symbolA, err)
	}
	barsB, err := l.source.Fetch(ctx, symbolB, from, to)
	if err != nil {
		return contracts.PriceSeries{}, AlignReport{}, fmt.Errorf("fetch %s: %w", symbolB, err)
	}

	ps, report, err := Align(symbolA, symbolB, barsA, barsB)
	if err != nil {
		return contracts.PriceSeries{}, report, err
	}

	l.logger.WithStage(string(contracts.StagePrices)).WithFields(map[string]interface{}{
		"pair":      ps.Pair(),
		"rows":      report.Common,
		"dropped_a": report.DroppedA,
		"dropped_b": report.DroppedB,
		"start":     ps.Start().Format("2006-01-02"),
		"end":       ps.End().Format("2006-01-02"),
	}).Info("Price table aligned")

	return ps, report, nil
}
