package strategy

import (
	"errors"
	"math"
	"testing"
	"time"

	"SwingScanner/internal/model"
)

var absent = math.NaN()

// latest describes the readings on the last bar of a test frame. NaN means absent.
type latest struct {
	close, volume               float64
	longSMA, mediumSMA, adx     float64
	macd, macdSignal, volumeSMA float64
	noVolume                    bool
}

// buildFrame returns a five-bar frame whose indicator columns only carry the latest value.
func buildFrame(l latest) *model.IndicatorFrame {
	const n = 5
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: l.close, High: l.close + 1, Low: l.close - 1, Close: l.close, Volume: l.volume}
	}
	col := func(v float64) model.Column {
		if math.IsNaN(v) {
			return model.AbsentColumn
		}
		vals := make([]float64, n)
		vals[n-1] = v
		return model.Column{Values: vals, Start: n - 1}
	}
	return &model.IndicatorFrame{
		Series:     &model.PriceSeries{Symbol: "TEST", Bars: bars, HasVolume: !l.noVolume},
		LongSMA:    col(l.longSMA),
		MediumSMA:  col(l.mediumSMA),
		ADX:        col(l.adx),
		MACD:       col(l.macd),
		MACDSignal: col(l.macdSignal),
		VolumeSMA:  col(l.volumeSMA),
	}
}

var allRules = []string{RuleCloseAboveLongMA, RuleMediumAboveLongMA, RuleTrendStrength, RuleMACDBullish, RuleVolumeAboveAvg}

func TestEvaluate_AllRulesPass(t *testing.T) {
	// close=100 > SMA200=90, SMA50=95 > 90, ADX=30, MACD 5 > 2, volume 1000 > 800
	frame := buildFrame(latest{close: 100, volume: 1000, longSMA: 90, mediumSMA: 95, adx: 30, macd: 5, macdSignal: 2, volumeSMA: 800})
	sc, err := Evaluate(frame, Policy{Rules: allRules, Threshold: 3, ADXThreshold: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Value != 5 || sc.Max != 5 {
		t.Errorf("expected 5/5, got %d/%d", sc.Value, sc.Max)
	}
	if !sc.Qualifies {
		t.Error("expected qualification")
	}
	if len(sc.Passed) != 5 || len(sc.Failed) != 0 {
		t.Errorf("passed=%v failed=%v", sc.Passed, sc.Failed)
	}
}

func TestEvaluate_BearishInstrument(t *testing.T) {
	// close=80 < SMA200=90, ADX=15 below 20, MACD 1 < 2
	frame := buildFrame(latest{close: 80, volume: 500, longSMA: 90, mediumSMA: absent, adx: 15, macd: 1, macdSignal: 2, volumeSMA: 800})
	sc, err := Evaluate(frame, Policy{Rules: []string{RuleCloseAboveLongMA, RuleTrendStrength, RuleMACDBullish}, Threshold: 2, ADXThreshold: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Value != 0 {
		t.Errorf("expected score 0, got %d", sc.Value)
	}
	if sc.Qualifies {
		t.Error("bearish instrument must not qualify")
	}

	// volume alone passing gives exactly 1
	frame = buildFrame(latest{close: 80, volume: 1000, longSMA: 90, mediumSMA: absent, adx: 15, macd: 1, macdSignal: 2, volumeSMA: 800})
	sc, err = Evaluate(frame, Policy{Rules: []string{RuleCloseAboveLongMA, RuleTrendStrength, RuleMACDBullish, RuleVolumeAboveAvg}, Threshold: 2, ADXThreshold: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sc.Value != 1 || sc.Qualifies {
		t.Errorf("expected 1 and not qualified, got %d qualifies=%v", sc.Value, sc.Qualifies)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	frame := buildFrame(latest{close: 101, volume: 900, longSMA: 100, mediumSMA: 99, adx: 22, macd: 0.3, macdSignal: 0.1, volumeSMA: 950})
	p := Policy{Rules: allRules, Threshold: 3, ADXThreshold: 25}
	first, err := Evaluate(frame, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		sc, err := Evaluate(frame, p)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if sc.Value != first.Value || sc.Qualifies != first.Qualifies {
			t.Fatalf("run %d: got %d/%v, first %d/%v", i, sc.Value, sc.Qualifies, first.Value, first.Qualifies)
		}
	}
}

func TestEvaluate_MonotonicInActiveRules(t *testing.T) {
	frame := buildFrame(latest{close: 100, volume: 1000, longSMA: 90, mediumSMA: 85, adx: 30, macd: 1, macdSignal: 2, volumeSMA: 800})
	prev := -1
	for n := 1; n <= len(allRules); n++ {
		sc, err := Evaluate(frame, Policy{Rules: allRules[:n], Threshold: 1, ADXThreshold: 20})
		if err != nil {
			t.Fatalf("rules[:%d]: %v", n, err)
		}
		if sc.Value < prev {
			t.Errorf("score decreased from %d to %d when rule %s was added", prev, sc.Value, allRules[n-1])
		}
		prev = sc.Value
	}
}

func TestEvaluate_SingleRuleThresholdOne(t *testing.T) {
	tests := []struct {
		name string
		l    latest
		rule string
		want bool
	}{
		{"close above", latest{close: 100, longSMA: 90, mediumSMA: absent, adx: absent, macd: absent, macdSignal: absent, volumeSMA: absent}, RuleCloseAboveLongMA, true},
		{"close below", latest{close: 80, longSMA: 90, mediumSMA: absent, adx: absent, macd: absent, macdSignal: absent, volumeSMA: absent}, RuleCloseAboveLongMA, false},
		{"close equal", latest{close: 90, longSMA: 90, mediumSMA: absent, adx: absent, macd: absent, macdSignal: absent, volumeSMA: absent}, RuleCloseAboveLongMA, false},
		{"adx strong", latest{close: 80, longSMA: 90, mediumSMA: absent, adx: 21, macd: absent, macdSignal: absent, volumeSMA: absent}, RuleTrendStrength, true},
		{"adx at threshold", latest{close: 80, longSMA: 90, mediumSMA: absent, adx: 20, macd: absent, macdSignal: absent, volumeSMA: absent}, RuleTrendStrength, false},
		{"macd bullish", latest{close: 80, longSMA: 90, mediumSMA: absent, adx: absent, macd: 2, macdSignal: 1, volumeSMA: absent}, RuleMACDBullish, true},
		{"macd absent", latest{close: 80, longSMA: 90, mediumSMA: absent, adx: absent, macd: absent, macdSignal: absent, volumeSMA: absent}, RuleMACDBullish, false},
		{"medium above", latest{close: 80, longSMA: 90, mediumSMA: 91, adx: absent, macd: absent, macdSignal: absent, volumeSMA: absent}, RuleMediumAboveLongMA, true},
		{"medium absent", latest{close: 80, longSMA: 90, mediumSMA: absent, adx: absent, macd: absent, macdSignal: absent, volumeSMA: absent}, RuleMediumAboveLongMA, false},
		{"volume above", latest{close: 80, volume: 10, longSMA: 90, mediumSMA: absent, adx: absent, macd: absent, macdSignal: absent, volumeSMA: 5}, RuleVolumeAboveAvg, true},
		{"volume column missing", latest{close: 80, volume: 10, longSMA: 90, mediumSMA: absent, adx: absent, macd: absent, macdSignal: absent, volumeSMA: 5, noVolume: true}, RuleVolumeAboveAvg, false},
	}
	for _, tt := range tests {
		sc, err := Evaluate(buildFrame(tt.l), Policy{Rules: []string{tt.rule}, Threshold: 1, ADXThreshold: 20})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if sc.Qualifies != tt.want {
			t.Errorf("%s: qualifies=%v, want %v", tt.name, sc.Qualifies, tt.want)
		}
	}
}

func TestEvaluate_Underflow(t *testing.T) {
	frame := buildFrame(latest{close: 100, longSMA: absent, mediumSMA: absent, adx: 30, macd: 5, macdSignal: 2, volumeSMA: absent})
	_, err := Evaluate(frame, DefaultPolicy())
	if !errors.Is(err, ErrIndicatorUnderflow) {
		t.Fatalf("expected ErrIndicatorUnderflow, got %v", err)
	}

	empty := &model.IndicatorFrame{Series: &model.PriceSeries{Symbol: "EMPTY"}}
	if _, err := Evaluate(empty, DefaultPolicy()); !errors.Is(err, ErrIndicatorUnderflow) {
		t.Fatalf("expected ErrIndicatorUnderflow for empty frame, got %v", err)
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Policy
		wantErr bool
	}{
		{"default", DefaultPolicy(), false},
		{"all rules 3 of 5", Policy{Rules: allRules, Threshold: 3}, false},
		{"no rules", Policy{Threshold: 1}, true},
		{"unknown rule", Policy{Rules: []string{"rsi_oversold"}, Threshold: 1}, true},
		{"duplicate rule", Policy{Rules: []string{RuleMACDBullish, RuleMACDBullish}, Threshold: 1}, true},
		{"threshold zero", Policy{Rules: allRules, Threshold: 0}, true},
		{"threshold above rule count", Policy{Rules: allRules[:2], Threshold: 3}, true},
	}
	for _, tt := range tests {
		err := tt.p.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err=%v, wantErr=%v", tt.name, err, tt.wantErr)
		}
	}
}
