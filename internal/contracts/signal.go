package contracts

import (
	"encoding/json"
	"time"
)

// Position is the spread position held on a date
type Position int

const (
	ShortSpread Position = -1 // short A, long hedge*B
	Flat        Position = 0
	LongSpread  Position = 1 // long A, short hedge*B
)

// String returns a readable position name
func (p Position) String() string {
	switch p {
	case ShortSpread:
		return "SHORT_SPREAD"
	case LongSpread:
		return "LONG_SPREAD"
	case Flat:
		return "FLAT"
	default:
		return "UNKNOWN"
	}
}

// Signal is one date of the signal series
type Signal struct {
	Date      time.Time `json:"date"`
	ZScore    float64   `json:"zscore"`
	Position  Position  `json:"position"`
	TradeFlag float64   `json:"trade_flag"` // |position[t] - position[t-1]|: 0, 1 or 2
}

// MarshalJSON encodes an undefined z-score as null
func (s Signal) MarshalJSON() ([]byte, error) {
	type alias Signal
	return json.Marshal(struct {
		alias
		ZScore *float64 `json:"zscore"`
	}{alias: alias(s), ZScore: nullable(s.ZScore)})
}

// UnmarshalJSON decodes a null z-score as NaN
func (s *Signal) UnmarshalJSON(data []byte) error {
	type alias Signal
	aux := struct {
		*alias
		ZScore *float64 `json:"zscore"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ZScore = fromNullable(aux.ZScore)
	return nil
}

// SignalSeries is the position history aligned to the price dates
type SignalSeries struct {
	Signals        []Signal `json:"signals"`
	EntryThreshold float64  `json:"entry_threshold"`
	ExitThreshold  float64  `json:"exit_threshold"`
	StopThreshold  float64  `json:"stop_threshold,omitempty"`
}

// Len returns the number of dates
func (s SignalSeries) Len() int {
	return len(s.Signals)
}

// Positions returns the position sequence
func (s SignalSeries) Positions() []Position {
	out := make([]Position, len(s.Signals))
	for i, sig := range s.Signals {
		out[i] = sig.Position
	}
	return out
}

// TradeFlags returns the trade flag sequence
func (s SignalSeries) TradeFlags() []float64 {
	out := make([]float64, len(s.Signals))
	for i, sig := range s.Signals {
		out[i] = sig.TradeFlag
	}
	return out
}

// TotalTrades counts the dates on which the position changed
func (s SignalSeries) TotalTrades() int {
	n := 0
	for _, sig := range s.Signals {
		if sig.TradeFlag > 0 {
			n++
		}
	}
	return n
}

// DaysInMarket counts the dates with a non-flat position
func (s SignalSeries) DaysInMarket() int {
	n := 0
	for _, sig := range s.Signals {
		if sig.Position != Flat {
			n++
		}
	}
	return n
}
