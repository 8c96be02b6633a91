package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"

	"SwingScanner/internal/model"
)

const namespace = "swing_scanner"

// Metrics holds the Prometheus collectors for scans, providers and sinks.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ScansTotal            prometheus.Counter
	ScanDuration          prometheus.Histogram
	InstrumentsTotal      *prometheus.CounterVec
	FailuresTotal         *prometheus.CounterVec
	SignalsTotal          prometheus.Counter
	NotificationsTotal    *prometheus.CounterVec
	ProviderRequestsTotal *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
}

var scanBuckets = []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120, 300}

// New creates and registers all metrics on reg, or the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ScansTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Completed scans",
		}),
		ScanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Wall time of a full universe scan",
			Buckets:   scanBuckets,
		}),
		InstrumentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instruments_total",
			Help:      "Evaluated instruments by outcome status",
		}, []string{"status"}),
		FailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Per-instrument failures by kind",
		}, []string{"kind"}),
		SignalsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_total",
			Help:      "Qualifying signals emitted",
		}),
		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Report deliveries by sink and status",
		}, []string{"sink", "status"}),
		ProviderRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Price history requests by provider and status",
		}, []string{"provider", "status"}),
		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Provider circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"provider"}),
	}
}

// ObserveScan records one completed batch.
func (m *Metrics) ObserveScan(b *model.BatchResult) {
	if m == nil || b == nil {
		return
	}
	m.ScansTotal.Inc()
	m.ScanDuration.Observe(b.Duration.Seconds())
	for _, o := range b.Outcomes {
		m.InstrumentsTotal.WithLabelValues(string(o.Status)).Inc()
		if o.Status == model.StatusFailed {
			m.FailuresTotal.WithLabelValues(string(o.Kind)).Inc()
		}
	}
	m.SignalsTotal.Add(float64(len(b.Signals)))
}

// Notification records one sink delivery attempt.
func (m *Metrics) Notification(sink string, err error) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(sink, status(err)).Inc()
}

// ProviderRequest records one history fetch.
func (m *Metrics) ProviderRequest(provider string, err error) {
	if m == nil {
		return
	}
	m.ProviderRequestsTotal.WithLabelValues(provider, status(err)).Inc()
}

// BreakerStateChange matches the circuit breaker state callback.
func (m *Metrics) BreakerStateChange(name string, _, to gobreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch to {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(v)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
