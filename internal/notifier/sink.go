package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"

	"SwingScanner/internal/metrics"
)

// Sink delivers a finished text report somewhere.
type Sink interface {
	Name() string
	Send(ctx context.Context, text string) error
}

// MultiSink fans a report out to every configured sink.
// A failing sink is logged and does not stop delivery to the rest.
type MultiSink struct {
	Sinks   []Sink
	Metrics *metrics.Metrics
}

func (m *MultiSink) Name() string { return "multi" }

// Send returns the joined errors of all failed sinks.
func (m *MultiSink) Send(ctx context.Context, text string) error {
	var errs []error
	for _, s := range m.Sinks {
		err := s.Send(ctx, text)
		m.Metrics.Notification(s.Name(), err)
		if err != nil {
			log.Printf("[ERROR] notify %s: %v", s.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
