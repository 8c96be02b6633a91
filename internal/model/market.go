package model

import "time"

// OHLCV represents a single daily candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the normalized daily history of one instrument.
// Bars are ascending by date with no duplicate days. Consumers treat it as read-only.
type PriceSeries struct {
	Symbol    string
	Bars      []OHLCV
	HasVolume bool
	FetchedAt time.Time
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Latest returns the most recent bar.
func (s *PriceSeries) Latest() (OHLCV, bool) {
	if s.Len() == 0 {
		return OHLCV{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

func (s *PriceSeries) Opens() []float64   { return s.column(func(b OHLCV) float64 { return b.Open }) }
func (s *PriceSeries) Highs() []float64   { return s.column(func(b OHLCV) float64 { return b.High }) }
func (s *PriceSeries) Lows() []float64    { return s.column(func(b OHLCV) float64 { return b.Low }) }
func (s *PriceSeries) Closes() []float64  { return s.column(func(b OHLCV) float64 { return b.Close }) }
func (s *PriceSeries) Volumes() []float64 { return s.column(func(b OHLCV) float64 { return b.Volume }) }

// column copies one field out of the bars so callers never alias the series.
func (s *PriceSeries) column(field func(OHLCV) float64) []float64 {
	out := make([]float64, s.Len())
	for i, b := range s.Bars {
		out[i] = field(b)
	}
	return out
}

// RawHistory is a provider response before normalization. Column names may carry
// a redundant per-instrument grouping layer, e.g. "Close|TCS.NS" or "('Close', 'TCS.NS')".
// Missing observations are NaN.
type RawHistory struct {
	Symbol  string
	Dates   []time.Time
	Columns map[string][]float64
}

// Clone returns a deep copy.
func (r *RawHistory) Clone() *RawHistory {
	if r == nil {
		return nil
	}
	c := &RawHistory{
		Symbol:  r.Symbol,
		Dates:   append([]time.Time(nil), r.Dates...),
		Columns: make(map[string][]float64, len(r.Columns)),
	}
	for name, vals := range r.Columns {
		c.Columns[name] = append([]float64(nil), vals...)
	}
	return c
}
