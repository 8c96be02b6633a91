package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SwingScanner/internal/model"
)

// MockProvider returns controllable fixed data for development and testing.
// Symbols without a fixture get a synthetic series when Price is set, ErrNoData otherwise.
type MockProvider struct {
	Histories map[string]*model.RawHistory
	Errors    map[string]error
	Delay     time.Duration
	Price     float64
	Bars      int

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) FetchHistory(ctx context.Context, symbol, _, _ string) (*model.RawHistory, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if raw, ok := m.Histories[symbol]; ok {
		return raw.Clone(), nil
	}
	if m.Price > 0 {
		n := m.Bars
		if n == 0 {
			n = 250
		}
		return SyntheticHistory(symbol, time.Now(), n, m.Price, m.Price*0.001), nil
	}
	return nil, fmt.Errorf("mock %s: %w", symbol, ErrNoData)
}

// Calls returns how often symbol was fetched.
func (m *MockProvider) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// SyntheticHistory builds n consecutive daily bars ending at end, with close = base + i*step.
func SyntheticHistory(symbol string, end time.Time, n int, base, step float64) *model.RawHistory {
	raw := &model.RawHistory{
		Symbol: symbol,
		Dates:  make([]time.Time, n),
		Columns: map[string][]float64{
			"Open":   make([]float64, n),
			"High":   make([]float64, n),
			"Low":    make([]float64, n),
			"Close":  make([]float64, n),
			"Volume": make([]float64, n),
		},
	}
	day := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := base + float64(i)*step
		raw.Dates[i] = day.AddDate(0, 0, -(n - 1 - i))
		raw.Columns["Open"][i] = p * 0.999
		raw.Columns["High"][i] = p * 1.005
		raw.Columns["Low"][i] = p * 0.995
		raw.Columns["Close"][i] = p
		raw.Columns["Volume"][i] = 1000000
	}
	return raw
}
