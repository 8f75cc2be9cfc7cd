package s0_data

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

// csvPriceRow is one line of the long price file: date,symbol,close
type csvPriceRow struct {
	Date   string  `csv:"date"`
	Symbol string  `csv:"symbol"`
	Close  float64 `csv:"close"`
}

// CSVSource serves prices from a long-format CSV file held in memory
type CSVSource struct {
	bars map[string][]contracts.PriceBar // upper-case symbol → bars ascending
}

// NewCSVSource reads a long-format price file (header date,symbol,close)
func NewCSVSource(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price file: %w", err)
	}
	defer f.Close()

	bars, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewMemorySource(bars), nil
}

// NewMemorySource serves the given bars
func NewMemorySource(bars []contracts.PriceBar) *CSVSource {
	s := &CSVSource{bars: make(map[string][]contracts.PriceBar)}
	for _, bar := range bars {
		key := strings.ToUpper(bar.Symbol)
		s.bars[key] = append(s.bars[key], bar)
	}
	for key := range s.bars {
		list := s.bars[key]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Date.Before(list[j].Date) })
	}
	return s
}

// ReadCSV parses long-format rows into price bars
func ReadCSV(r io.Reader) ([]contracts.PriceBar, error) {
	var rows []csvPriceRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, contracts.NewInputError(contracts.StagePrices, "csv", "parse: %v", err)
	}

	bars := make([]contracts.PriceBar, 0, len(rows))
	for i, row := range rows {
		date, err := time.Parse(time.DateOnly, strings.TrimSpace(row.Date))
		if err != nil {
			return nil, contracts.NewInputError(contracts.StagePrices, "date", "row %d: %v", i+2, err)
		}
		symbol := strings.TrimSpace(row.Symbol)
		if symbol == "" {
			return nil, contracts.NewInputError(contracts.StagePrices, "symbol", "row %d: empty symbol", i+2)
		}
		bars = append(bars, contracts.PriceBar{Symbol: symbol, Date: date, Close: row.Close})
	}
	return bars, nil
}

// WriteCSV writes bars in the long format read by ReadCSV
func WriteCSV(w io.Writer, bars []contracts.PriceBar) error {
	rows := make([]csvPriceRow, len(bars))
	for i, bar := range bars {
		rows[i] = csvPriceRow{Date: bar.Date.Format(time.DateOnly), Symbol: bar.Symbol, Close: bar.Close}
	}
	return gocsv.Marshal(rows, w)
}

// Symbols returns the symbols present in the file, sorted
func (s *CSVSource) Symbols() []string {
	out := make([]string, 0, len(s.bars))
	for key := range s.bars {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// All returns every bar of the file
func (s *CSVSource) All() []contracts.PriceBar {
	var out []contracts.PriceBar
	for _, symbol := range s.Symbols() {
		out = append(out, s.bars[symbol]...)
	}
	return out
}

// Fetch implements PriceSource
func (s *CSVSource) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	list, ok := s.bars[strings.ToUpper(symbol)]
	if !ok {
		return nil, contracts.NewInputError(contracts.StagePrices, "symbol", "no prices for %s", symbol)
	}

	out := make([]contracts.PriceBar, 0, len(list))
	for _, bar := range list {
		if inRange(normalizeDate(bar.Date), from, to) {
			out = append(out, bar)
		}
	}
	return out, nil
}
