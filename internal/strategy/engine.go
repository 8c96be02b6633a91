package strategy

import (
	"errors"
	"fmt"

	"SwingScanner/internal/model"
)

// ErrIndicatorUnderflow means the latest bar lacks a mandatory indicator value.
var ErrIndicatorUnderflow = errors.New("indicator underflow")

// DefaultADXThreshold is the trend-strength level the ADX rule must exceed.
const DefaultADXThreshold = 20

// Policy selects the active rules and the qualification threshold.
// Threshold is always explicit; it is never derived from the rule count.
type Policy struct {
	Rules        []string
	Threshold    int
	ADXThreshold float64
}

// DefaultPolicy is the three-point confluence: close > SMA200, ADX > 20, MACD > signal, 2 of 3.
func DefaultPolicy() Policy {
	return Policy{
		Rules:        []string{RuleCloseAboveLongMA, RuleTrendStrength, RuleMACDBullish},
		Threshold:    2,
		ADXThreshold: DefaultADXThreshold,
	}
}

// Validate checks rule names and the threshold range.
func (p Policy) Validate() error {
	if len(p.Rules) == 0 {
		return errors.New("at least one rule must be active")
	}
	seen := make(map[string]bool, len(p.Rules))
	for _, name := range p.Rules {
		if _, ok := LookupRule(name); !ok {
			return fmt.Errorf("unknown rule %q", name)
		}
		if seen[name] {
			return fmt.Errorf("rule %q listed twice", name)
		}
		seen[name] = true
	}
	if p.Threshold < 1 || p.Threshold > len(p.Rules) {
		return fmt.Errorf("threshold %d out of range 1..%d", p.Threshold, len(p.Rules))
	}
	return nil
}

// Score is the result of evaluating a policy on the latest bar.
type Score struct {
	Value     int
	Max       int
	Passed    []string
	Failed    []string
	Qualifies bool
}

// Evaluate scores the latest bar of the frame against the policy.
// Close and the long SMA are mandatory; any other absent input only fails its rule.
func Evaluate(frame *model.IndicatorFrame, p Policy) (*Score, error) {
	snap, ok := takeSnapshot(frame)
	if !ok {
		return nil, fmt.Errorf("%w: empty frame", ErrIndicatorUnderflow)
	}
	if !snap.longSMA.ok {
		return nil, fmt.Errorf("%w: long moving average absent on latest bar (%d bars)", ErrIndicatorUnderflow, frame.Series.Len())
	}

	score := &Score{Max: len(p.Rules)}
	for _, name := range p.Rules {
		rule, ok := LookupRule(name)
		if !ok {
			return nil, fmt.Errorf("unknown rule %q", name)
		}
		if rule.check(snap, p) {
			score.Value++
			score.Passed = append(score.Passed, name)
		} else {
			score.Failed = append(score.Failed, name)
		}
	}
	score.Qualifies = score.Value >= p.Threshold
	return score, nil
}
