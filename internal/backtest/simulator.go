package backtest

import (
	"time"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

// Simulator carries the path-dependent state of one pair backtest
// ⭐ SSOT: 일별 손익 누적은 여기서만
type Simulator struct {
	capital  float64
	costRate float64
	hedge    float64

	// Current state
	cumulative      float64
	benchCumulative float64
	prevPos         contracts.Position
	pendingCost     float64 // trade cost of the first date, charged with the first return
	open            *contracts.RoundTrip
	openGrowth      float64
	trips           []contracts.RoundTrip

	// Statistics
	totalCost float64
}

// Stats holds simulation statistics
type Stats struct {
	RoundTrips    int
	WinningTrades int
	LosingTrades  int
	TotalCost     float64 // sum of charged costs, as return fractions
}

// NewSimulator creates a simulator for one evaluation
func NewSimulator(capital, costRate, hedge float64) *Simulator {
	s := &Simulator{capital: capital, costRate: costRate, hedge: hedge}
	s.Initialize()
	return s
}

// Initialize resets the simulator state
func (s *Simulator) Initialize() {
	s.cumulative = 1
	s.benchCumulative = 1
	s.prevPos = contracts.Flat
	s.pendingCost = 0
	s.open = nil
	s.openGrowth = 1
	s.trips = make([]contracts.RoundTrip, 0)
	s.totalCost = 0
}

// First books the first date: positions are taken, no return exists yet
func (s *Simulator) First(date time.Time, pos contracts.Position, flag float64) contracts.PortfolioRow {
	s.pendingCost = s.costRate * flag
	s.transition(date, pos)
	s.prevPos = pos

	return contracts.PortfolioRow{
		Date:                date,
		LegAPosition:        float64(pos),
		LegBPosition:        s.legB(pos),
		CumulativeReturn:    s.cumulative,
		PortfolioValue:      s.capital * s.cumulative,
		BenchmarkCumulative: s.benchCumulative,
		BenchmarkValue:      s.capital * s.benchCumulative,
	}
}

// Step books a date with simple returns retA/retB realized since the previous close.
// Returns are earned by the previous date's positions.
func (s *Simulator) Step(date time.Time, pos contracts.Position, flag, retA, retB float64) contracts.PortfolioRow {
	legA := float64(s.prevPos) * retA
	legB := s.legB(s.prevPos) * retB
	cost := s.costRate*flag + s.pendingCost
	s.pendingCost = 0

	strategy := legA + legB - cost
	s.cumulative *= 1 + strategy
	s.totalCost += cost

	bench := (retA + retB) / 2
	s.benchCumulative *= 1 + bench

	if s.open != nil {
		s.openGrowth *= 1 + legA + legB
		s.open.HoldingDays++
	}
	s.transition(date, pos)
	s.prevPos = pos

	return contracts.PortfolioRow{
		Date:                date,
		LegAPosition:        float64(pos),
		LegBPosition:        s.legB(pos),
		LegAReturn:          legA,
		LegBReturn:          legB,
		TransactionCost:     cost,
		StrategyReturn:      strategy,
		CumulativeReturn:    s.cumulative,
		PortfolioValue:      s.capital * s.cumulative,
		BenchmarkReturn:     bench,
		BenchmarkCumulative: s.benchCumulative,
		BenchmarkValue:      s.capital * s.benchCumulative,
		HasReturn:           true,
	}
}

// Finish closes a still-open holding period as of the last date
func (s *Simulator) Finish(last time.Time) {
	if s.open == nil {
		return
	}
	s.open.Open = true
	s.closeTrip(last)
}

// RoundTrips returns the completed holding periods
func (s *Simulator) RoundTrips() []contracts.RoundTrip {
	out := make([]contracts.RoundTrip, len(s.trips))
	copy(out, s.trips)
	return out
}

// GetStats returns simulation statistics
func (s *Simulator) GetStats() Stats {
	st := Stats{RoundTrips: len(s.trips), TotalCost: s.totalCost}
	for _, t := range s.trips {
		if t.GrossReturn > 0 {
			st.WinningTrades++
		} else if t.GrossReturn < 0 {
			st.LosingTrades++
		}
	}
	return st
}

// legB sizes the B leg opposite to A, scaled by the hedge ratio
func (s *Simulator) legB(pos contracts.Position) float64 {
	if pos == contracts.Flat {
		return 0
	}
	return -float64(pos) * s.hedge
}

// transition closes and opens holding periods when the position changes
func (s *Simulator) transition(date time.Time, pos contracts.Position) {
	if pos == s.prevPos && s.open != nil {
		return
	}
	if pos == s.prevPos && pos == contracts.Flat {
		return
	}
	if s.open != nil {
		s.closeTrip(date)
	}
	if pos != contracts.Flat {
		s.open = &contracts.RoundTrip{Direction: pos, EntryDate: date}
		s.openGrowth = 1
	}
}

func (s *Simulator) closeTrip(date time.Time) {
	s.open.ExitDate = date
	s.open.GrossReturn = s.openGrowth - 1
	s.trips = append(s.trips, *s.open)
	s.open = nil
	s.openGrowth = 1
}
