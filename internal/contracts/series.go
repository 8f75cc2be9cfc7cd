package contracts

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Series is a date-aligned float sequence.
// NaN marks "no value" (e.g. z-score before the rolling window is full).
// JSON encodes NaN/±Inf as null so results survive the API and the cache.
type Series []float64

// NaN returns a Series of length n filled with NaN
func NaN(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Clone returns a copy
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// Defined reports whether s[i] holds a value
func (s Series) Defined(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

// CountDefined returns the number of non-NaN entries
func (s Series) CountDefined() int {
	n := 0
	for _, v := range s {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// MarshalJSON implements json.Marshaler
func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// nullable converts NaN/Inf to nil for JSON fields outside a Series
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// fromNullable is the inverse of nullable
func fromNullable(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
