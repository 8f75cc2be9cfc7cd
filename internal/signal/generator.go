package signal

import (
	"math"
	"time"

	"github.com/wonny/pairlab/backend/internal/contracts"
)

const (
	DefaultEntry = 2.0
	DefaultExit  = 0.5
)

// Generator turns a z-score sequence into spread positions with entry/exit hysteresis
// Stop > 0 adds a static stop on |z|; 0 disables it.
type Generator struct {
	Entry float64
	Exit  float64
	Stop  float64
}

// NewGenerator creates a Generator with the default thresholds and no stop
func NewGenerator() *Generator {
	return &Generator{Entry: DefaultEntry, Exit: DefaultExit}
}

// Validate checks Entry > Exit > 0 and Stop == 0 or Stop > Entry
func (g *Generator) Validate() error {
	stage := contracts.StageSignals
	switch {
	case !(g.Exit > 0):
		return contracts.NewInputError(stage, "exit_threshold", "must be > 0, got %v", g.Exit)
	case !(g.Entry > g.Exit):
		return contracts.NewInputError(stage, "entry_threshold", "must be > exit_threshold (%v), got %v", g.Exit, g.Entry)
	case g.Stop < 0 || (g.Stop > 0 && g.Stop <= g.Entry):
		return contracts.NewInputError(stage, "stop_threshold", "must be 0 or > entry_threshold (%v), got %v", g.Entry, g.Stop)
	}
	return nil
}

// Next is the transition rule (prev, z) → position.
// Rules in priority order: undefined z keeps prev; |z| < Exit exits;
// |z| >= Stop stops out; z beyond ±Entry enters; otherwise prev persists.
func (g *Generator) Next(prev contracts.Position, z float64) contracts.Position {
	if math.IsNaN(z) {
		return prev
	}

	abs := math.Abs(z)
	switch {
	case abs < g.Exit:
		return contracts.Flat
	case g.Stop > 0 && abs >= g.Stop:
		return contracts.Flat
	case z > g.Entry:
		return contracts.ShortSpread
	case z < -g.Entry:
		return contracts.LongSpread
	}
	return prev
}

// Generate folds Next over z starting from Flat.
// TradeFlag[t] = |pos[t] - pos[t-1]|, with pos[-1] = Flat.
func (g *Generator) Generate(dates []time.Time, z []float64) (contracts.SignalSeries, error) {
	if err := g.Validate(); err != nil {
		return contracts.SignalSeries{}, err
	}
	if len(dates) != len(z) {
		return contracts.SignalSeries{}, contracts.NewInputError(contracts.StageSignals, "zscore",
			"misaligned: %d dates, %d z-scores", len(dates), len(z))
	}

	out := contracts.SignalSeries{
		Signals:        make([]contracts.Signal, len(z)),
		EntryThreshold: g.Entry,
		ExitThreshold:  g.Exit,
		StopThreshold:  g.Stop,
	}

	pos := contracts.Flat
	for t := range z {
		next := g.Next(pos, z[t])
		out.Signals[t] = contracts.Signal{
			Date:      dates[t],
			ZScore:    z[t],
			Position:  next,
			TradeFlag: math.Abs(float64(next - pos)),
		}
		pos = next
	}
	return out, nil
}
