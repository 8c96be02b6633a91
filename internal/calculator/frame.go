package calculator

import "SwingScanner/internal/model"

// Params selects indicator periods. A zero optional period disables that column.
type Params struct {
	LongMA     int
	MediumMA   int
	ADXPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	VolumeMA   int
}

// DefaultParams returns the conventional periods: SMA 200/50, ADX 14, MACD 12/26/9, volume SMA 20.
func DefaultParams() Params {
	return Params{
		LongMA:     200,
		MediumMA:   50,
		ADXPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		VolumeMA:   20,
	}
}

// Derive computes every configured indicator over the full series.
// The input series is only read.
func Derive(series *model.PriceSeries, p Params) *model.IndicatorFrame {
	frame := &model.IndicatorFrame{Series: series}
	if series.Len() == 0 {
		return frame
	}

	closes := series.Closes()
	frame.LongSMA = SMAColumn(closes, p.LongMA)
	if p.MediumMA > 0 {
		frame.MediumSMA = SMAColumn(closes, p.MediumMA)
	}
	frame.ADX = ADXColumn(series.Highs(), series.Lows(), closes, p.ADXPeriod)
	frame.MACD, frame.MACDSignal = MACDColumns(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if p.VolumeMA > 0 && series.HasVolume {
		frame.VolumeSMA = SMAColumn(series.Volumes(), p.VolumeMA)
	}
	return frame
}
