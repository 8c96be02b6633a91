package model

import (
	"time"

	"github.com/google/uuid"
)

// Signal is the engine output for one evaluated instrument.
type Signal struct {
	Symbol    string
	AsOf      time.Time
	Close     float64
	Score     int
	MaxScore  int
	StopLoss  float64 // zero unless Qualifies
	Qualifies bool
	Passed    []string // names of satisfied rules, in rule order
}

// OutcomeStatus is the terminal state of one instrument in a scan.
type OutcomeStatus string

const (
	StatusQualified    OutcomeStatus = "qualified"
	StatusNotQualified OutcomeStatus = "not_qualified"
	StatusFailed       OutcomeStatus = "failed"
)

// FailureKind classifies a per-instrument failure.
type FailureKind string

const (
	FailureNone            FailureKind = ""
	FailureDataUnavailable FailureKind = "data_unavailable"
	FailureMalformed       FailureKind = "malformed_series"
	FailureUnderflow       FailureKind = "indicator_underflow"
	FailureTimeout         FailureKind = "timeout"
	FailureProvider        FailureKind = "provider_error"
)

// Outcome is the per-instrument result of a scan.
type Outcome struct {
	Symbol string
	Status OutcomeStatus
	Signal *Signal
	Kind   FailureKind
	Err    error
	Frame  *IndicatorFrame `json:"-"`
}

// BatchResult aggregates one scan over the whole universe.
type BatchResult struct {
	ScanID    uuid.UUID
	StartedAt time.Time
	Duration  time.Duration
	Outcomes  []Outcome // configured instrument order
	Signals   []Signal  // qualifying only, configured instrument order
	Processed int
	Failed    int
}

// Failures returns the failed outcomes in input order.
func (b *BatchResult) Failures() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}
