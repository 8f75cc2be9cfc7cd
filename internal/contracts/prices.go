package contracts

import (
	"math"
	"time"
)

// PriceBar is one instrument's closing price on a date
type PriceBar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
}

// PriceSeries is the aligned, date-indexed closing-price table of a pair
// ⭐ SSOT: every downstream series shares this date index
type PriceSeries struct {
	symbolA string
	symbolB string
	dates   []time.Time
	a       []float64
	b       []float64
}

// NewPriceSeries validates and copies the inputs.
// Dates must be strictly increasing and every price finite and positive.
func NewPriceSeries(symbolA, symbolB string, dates []time.Time, a, b []float64) (PriceSeries, error) {
	if symbolA == "" || symbolB == "" {
		return PriceSeries{}, NewInputError(StagePrices, "symbol", "both instrument identifiers are required")
	}
	if symbolA == symbolB {
		return PriceSeries{}, NewInputError(StagePrices, "symbol", "instruments must differ, got %s twice", symbolA)
	}
	if len(dates) == 0 {
		return PriceSeries{}, NewInputError(StagePrices, "dates", "price table is empty")
	}
	if len(a) != len(dates) || len(b) != len(dates) {
		return PriceSeries{}, NewInputError(StagePrices, "dates",
			"misaligned columns: %d dates, %d %s prices, %d %s prices", len(dates), len(a), symbolA, len(b), symbolB)
	}

	for i := range dates {
		if i > 0 && !dates[i].After(dates[i-1]) {
			return PriceSeries{}, NewInputError(StagePrices, "dates",
				"dates must be strictly increasing (%s after %s)",
				dates[i].Format("2006-01-02"), dates[i-1].Format("2006-01-02"))
		}
		if !validPrice(a[i]) {
			return PriceSeries{}, NewInputError(StagePrices, symbolA, "invalid price %v on %s", a[i], dates[i].Format("2006-01-02"))
		}
		if !validPrice(b[i]) {
			return PriceSeries{}, NewInputError(StagePrices, symbolB, "invalid price %v on %s", b[i], dates[i].Format("2006-01-02"))
		}
	}

	ps := PriceSeries{
		symbolA: symbolA,
		symbolB: symbolB,
		dates:   make([]time.Time, len(dates)),
		a:       make([]float64, len(a)),
		b:       make([]float64, len(b)),
	}
	copy(ps.dates, dates)
	copy(ps.a, a)
	copy(ps.b, b)
	return ps, nil
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// SymbolA returns the first instrument identifier
func (p PriceSeries) SymbolA() string { return p.symbolA }

// SymbolB returns the second instrument identifier
func (p PriceSeries) SymbolB() string { return p.symbolB }

// Len returns the number of dates
func (p PriceSeries) Len() int { return len(p.dates) }

// Pair returns "A/B"
func (p PriceSeries) Pair() string { return p.symbolA + "/" + p.symbolB }

// Dates returns a copy of the date index
func (p PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(p.dates))
	copy(out, p.dates)
	return out
}

// A returns a copy of the first instrument's prices
func (p PriceSeries) A() []float64 {
	out := make([]float64, len(p.a))
	copy(out, p.a)
	return out
}

// B returns a copy of the second instrument's prices
func (p PriceSeries) B() []float64 {
	out := make([]float64, len(p.b))
	copy(out, p.b)
	return out
}

// Start returns the first date
func (p PriceSeries) Start() time.Time {
	if len(p.dates) == 0 {
		return time.Time{}
	}
	return p.dates[0]
}

// End returns the last date
func (p PriceSeries) End() time.Time {
	if len(p.dates) == 0 {
		return time.Time{}
	}
	return p.dates[len(p.dates)-1]
}
