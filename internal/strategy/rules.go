package strategy

import "SwingScanner/internal/model"

// Rule names, usable in configuration.
const (
	RuleCloseAboveLongMA  = "close_above_long_ma"
	RuleMediumAboveLongMA = "medium_ma_above_long_ma"
	RuleTrendStrength     = "adx_above_threshold"
	RuleMACDBullish       = "macd_above_signal"
	RuleVolumeAboveAvg    = "volume_above_average"
)

// Rule is a named boolean predicate evaluated on the latest bar of a frame.
type Rule struct {
	Name        string
	Description string
	check       func(s snapshot, p Policy) bool
}

// Rules lists every known rule in canonical order.
var Rules = []Rule{
	{RuleCloseAboveLongMA, "long-term uptrend", ruleCloseAboveLongMA},
	{RuleMediumAboveLongMA, "medium-term confirms long-term", ruleMediumAboveLongMA},
	{RuleTrendStrength, "trend has force", ruleTrendStrength},
	{RuleMACDBullish, "bullish momentum", ruleMACDBullish},
	{RuleVolumeAboveAvg, "participation confirms move", ruleVolumeAboveAvg},
}

// LookupRule returns the rule with the given name.
func LookupRule(name string) (Rule, bool) {
	for _, r := range Rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// value is an indicator reading on the latest bar; ok is false when absent.
type value struct {
	v  float64
	ok bool
}

// snapshot holds the latest bar's fields and indicator readings.
type snapshot struct {
	close      float64
	volume     value
	longSMA    value
	mediumSMA  value
	adx        value
	macd       value
	macdSignal value
	volumeSMA  value
}

func takeSnapshot(f *model.IndicatorFrame) (snapshot, bool) {
	i := f.LastIndex()
	bar, ok := f.Series.Latest()
	if !ok {
		return snapshot{}, false
	}
	at := func(c model.Column) value {
		v, ok := c.At(i)
		return value{v, ok}
	}
	s := snapshot{
		close:      bar.Close,
		longSMA:    at(f.LongSMA),
		mediumSMA:  at(f.MediumSMA),
		adx:        at(f.ADX),
		macd:       at(f.MACD),
		macdSignal: at(f.MACDSignal),
		volumeSMA:  at(f.VolumeSMA),
	}
	if f.Series.HasVolume {
		s.volume = value{bar.Volume, true}
	}
	return s, true
}

// ruleCloseAboveLongMA: close > 200-period SMA.
func ruleCloseAboveLongMA(s snapshot, _ Policy) bool {
	return s.longSMA.ok && s.close > s.longSMA.v
}

// ruleMediumAboveLongMA: 50-period SMA > 200-period SMA, when both exist.
func ruleMediumAboveLongMA(s snapshot, _ Policy) bool {
	return s.mediumSMA.ok && s.longSMA.ok && s.mediumSMA.v > s.longSMA.v
}

// ruleTrendStrength: ADX strictly above the configured threshold.
func ruleTrendStrength(s snapshot, p Policy) bool {
	return s.adx.ok && s.adx.v > p.ADXThreshold
}

// ruleMACDBullish: MACD line strictly above its signal line.
func ruleMACDBullish(s snapshot, _ Policy) bool {
	return s.macd.ok && s.macdSignal.ok && s.macd.v > s.macdSignal.v
}

// ruleVolumeAboveAvg: current volume above its 20-period average, when volume exists.
func ruleVolumeAboveAvg(s snapshot, _ Policy) bool {
	return s.volume.ok && s.volumeSMA.ok && s.volume.v > s.volumeSMA.v
}
