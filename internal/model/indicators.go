package model

import "math"

// Column is a derived indicator aligned one-to-one with the bars of a series.
// Values before Start are inside the indicator's lookback and are absent.
type Column struct {
	Values []float64
	Start  int
}

// AbsentColumn is a column with no usable values.
var AbsentColumn = Column{}

// At returns the value at bar i, or false when it is absent.
func (c Column) At(i int) (float64, bool) {
	if c.Values == nil || i < c.Start || i < 0 || i >= len(c.Values) {
		return 0, false
	}
	v := c.Values[i]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Present reports whether the column has any usable value.
func (c Column) Present() bool {
	return c.Values != nil && c.Start < len(c.Values)
}

// IndicatorFrame is a PriceSeries augmented with derived indicator columns.
// It is rebuilt from scratch on every scan.
type IndicatorFrame struct {
	Series     *PriceSeries
	LongSMA    Column // 200-period close SMA
	MediumSMA  Column // 50-period close SMA, optional
	ADX        Column // trend strength
	MACD       Column
	MACDSignal Column
	VolumeSMA  Column // optional, only when the series carries volume
}

// LastIndex returns the index of the latest bar, or -1 for an empty frame.
func (f *IndicatorFrame) LastIndex() int {
	if f == nil {
		return -1
	}
	return f.Series.Len() - 1
}
