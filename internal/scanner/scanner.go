package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"SwingScanner/internal/calculator"
	"SwingScanner/internal/collector"
	"SwingScanner/internal/metrics"
	"SwingScanner/internal/model"
	"SwingScanner/internal/strategy"
)

// DefaultFetchTimeout bounds each instrument's history fetch.
const DefaultFetchTimeout = 20 * time.Second

// Options configures a scan over the instrument universe.
type Options struct {
	Symbols        []string
	Lookback       string
	Interval       string
	Params         calculator.Params
	Policy         strategy.Policy
	StopLossWindow int
	Concurrency    int
	FetchTimeout   time.Duration
}

// DefaultOptions returns a one-year daily scan of symbols with the default policy.
func DefaultOptions(symbols []string) Options {
	return Options{
		Symbols:        symbols,
		Lookback:       "1y",
		Interval:       "1d",
		Params:         calculator.DefaultParams(),
		Policy:         strategy.DefaultPolicy(),
		StopLossWindow: calculator.DefaultStopLossWindow,
		Concurrency:    1,
		FetchTimeout:   DefaultFetchTimeout,
	}
}

// Scanner runs the fetch, normalize, derive, score and stop-loss pipeline per instrument.
// It holds no state between scans.
type Scanner struct {
	provider collector.Provider
	opts     Options
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New validates opts and builds a Scanner. m may be nil.
func New(provider collector.Provider, opts Options, m *metrics.Metrics) (*Scanner, error) {
	if provider == nil {
		return nil, errors.New("scanner: provider is required")
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("scanner: policy: %w", err)
	}
	if opts.Lookback == "" {
		opts.Lookback = "1y"
	}
	if opts.Interval == "" {
		opts.Interval = "1d"
	}
	if opts.StopLossWindow <= 0 {
		opts.StopLossWindow = calculator.DefaultStopLossWindow
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	return &Scanner{provider: provider, opts: opts, metrics: m, now: time.Now}, nil
}

// Symbols returns the configured universe.
func (s *Scanner) Symbols() []string {
	return append([]string(nil), s.opts.Symbols...)
}

// Scan evaluates every configured instrument. Per-instrument failures are recorded
// in the result and never abort the batch; outcomes keep the configured order.
func (s *Scanner) Scan(ctx context.Context) *model.BatchResult {
	start := s.now()
	res := &model.BatchResult{
		ScanID:    uuid.New(),
		StartedAt: start,
		Outcomes:  make([]model.Outcome, len(s.opts.Symbols)),
	}
	log.Printf("[INFO] scan %s: %d instruments, concurrency %d", res.ScanID, len(s.opts.Symbols), s.opts.Concurrency)

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, symbol := range s.opts.Symbols {
		g.Go(func() error {
			res.Outcomes[i] = s.ScanSymbol(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range res.Outcomes {
		res.Processed++
		switch o.Status {
		case model.StatusFailed:
			res.Failed++
			log.Printf("[WARN] scan %s: %s: %s: %v", res.ScanID, o.Symbol, o.Kind, o.Err)
		case model.StatusQualified:
			res.Signals = append(res.Signals, *o.Signal)
		}
	}
	res.Duration = s.now().Sub(start)
	s.metrics.ObserveScan(res)

	log.Printf("[INFO] scan %s done in %s: processed=%d failed=%d signals=%d",
		res.ScanID, res.Duration.Round(time.Millisecond), res.Processed, res.Failed, len(res.Signals))
	return res
}

// ScanSymbol runs the pipeline for one instrument.
func (s *Scanner) ScanSymbol(ctx context.Context, symbol string) (out model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = failure(symbol, model.FailureProvider, fmt.Errorf("panic: %v", r))
		}
	}()

	raw, err := s.fetch(ctx, symbol)
	s.metrics.ProviderRequest(s.provider.Name(), err)
	if err != nil {
		return failure(symbol, Classify(err), err)
	}

	series, err := collector.Normalize(raw)
	if err != nil {
		return failure(symbol, Classify(err), err)
	}
	series.Symbol = symbol

	frame := calculator.Derive(series, s.opts.Params)
	score, err := strategy.Evaluate(frame, s.opts.Policy)
	if err != nil {
		return failure(symbol, Classify(err), err)
	}

	bar, _ := series.Latest()
	sig := &model.Signal{
		Symbol:    symbol,
		AsOf:      bar.Time,
		Close:     bar.Close,
		Score:     score.Value,
		MaxScore:  score.Max,
		Qualifies: score.Qualifies,
		Passed:    score.Passed,
	}
	out = model.Outcome{Symbol: symbol, Status: model.StatusNotQualified, Signal: sig, Frame: frame}
	if !score.Qualifies {
		return out
	}

	sl, err := calculator.StopLoss(series.Bars, s.opts.StopLossWindow)
	if err != nil {
		return failure(symbol, model.FailureUnderflow, err)
	}
	sig.StopLoss = sl
	out.Status = model.StatusQualified
	return out
}

type fetchResult struct {
	raw *model.RawHistory
	err error
}

// fetch bounds the provider call by FetchTimeout even if the provider ignores ctx.
func (s *Scanner) fetch(ctx context.Context, symbol string) (*model.RawHistory, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	ch := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fetchResult{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		raw, err := s.provider.FetchHistory(ctx, symbol, s.opts.Lookback, s.opts.Interval)
		ch <- fetchResult{raw, err}
	}()

	select {
	case r := <-ch:
		return r.raw, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", symbol, ctx.Err())
	}
}

// Classify maps a pipeline error to its failure kind.
func Classify(err error) model.FailureKind {
	var netErr net.Error
	switch {
	case err == nil:
		return model.FailureNone
	case errors.Is(err, collector.ErrNoData):
		return model.FailureDataUnavailable
	case errors.Is(err, collector.ErrMalformedSeries):
		return model.FailureMalformed
	case errors.Is(err, strategy.ErrIndicatorUnderflow):
		return model.FailureUnderflow
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return model.FailureTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return model.FailureTimeout
	default:
		return model.FailureProvider
	}
}

func failure(symbol string, kind model.FailureKind, err error) model.Outcome {
	return model.Outcome{Symbol: symbol, Status: model.StatusFailed, Kind: kind, Err: err}
}
