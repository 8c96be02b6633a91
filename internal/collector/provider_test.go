package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"SwingScanner/internal/cache"
	"SwingScanner/internal/model"
)

const yahooFixture = `{"chart":{"result":[{"timestamp":[1767250800,1767337200,1767423600],
"indicators":{"quote":[{"open":[10,null,12],"high":[11,null,13],"low":[9,null,11],
"close":[10.5,null,12.5],"volume":[1000,null,3000]}]}}],"error":null}}`

func TestYahooProvider_FetchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/TCS.NS" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("range"); got != "1y" {
			t.Errorf("range=%q, want 1y", got)
		}
		if got := r.URL.Query().Get("interval"); got != "1d" {
			t.Errorf("interval=%q, want 1d", got)
		}
		fmt.Fprint(w, yahooFixture)
	}))
	defer srv.Close()

	p := NewYahooProvider("")
	p.APIBase = srv.URL
	raw, err := p.FetchHistory(context.Background(), "TCS.NS", "1y", "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw.Dates) != 3 {
		t.Fatalf("expected 3 raw rows, got %d", len(raw.Dates))
	}

	s, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("null row should be dropped, got %d bars", s.Len())
	}
	last, _ := s.Latest()
	if last.Close != 12.5 || last.Volume != 3000 {
		t.Errorf("unexpected latest bar %+v", last)
	}
}

func TestYahooProvider_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantNoData bool
	}{
		{"delisted", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`, true},
		{"server error", http.StatusInternalServerError, `oops`, false},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, true},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			fmt.Fprint(w, tt.body)
		}))
		p := NewYahooProvider("")
		p.APIBase = srv.URL
		raw, err := p.FetchHistory(context.Background(), "GONE.NS", "1y", "1d")
		if err == nil {
			_, err = Normalize(raw)
		}
		srv.Close()

		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if errors.Is(err, ErrNoData) != tt.wantNoData {
			t.Errorf("%s: errors.Is(ErrNoData)=%v, want %v (err=%v)", tt.name, !tt.wantNoData, tt.wantNoData, err)
		}
	}
}

func TestYahooProvider_SymbolAlias(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, yahooFixture)
	}))
	defer srv.Close()

	p := NewYahooProvider("")
	p.APIBase = srv.URL
	if _, err := p.FetchHistory(context.Background(), "NIFTY", "1y", "1d"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v8/finance/chart/^NSEI" {
		t.Errorf("expected alias to ^NSEI, got %s", gotPath)
	}
}

func TestRESTProvider_FetchHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer key")
		}
		if r.URL.Path != "/api/v1/bars/daily" || r.URL.Query().Get("symbol") != "INFY.NS" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		fmt.Fprint(w, `[{"timestamp":1767337200,"open":2,"high":3,"low":1,"close":2.5,"volume":10},
			{"timestamp":1767250800,"open":1,"high":2,"low":0.5,"close":1.5,"volume":null}]`)
	}))
	defer srv.Close()

	p := NewRESTProvider(srv.URL, "secret", "")
	raw, err := p.FetchHistory(context.Background(), "INFY.NS", "1y", "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if s.Len() != 2 || s.Bars[0].Close != 1.5 || s.Bars[1].Close != 2.5 {
		t.Errorf("expected ascending bars, got %+v", s.Bars)
	}
}

func TestRESTProvider_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := NewRESTProvider(srv.URL, "", "")
	if _, err := p.FetchHistory(context.Background(), "NOPE", "1y", "1d"); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestCSVProvider(t *testing.T) {
	dir := t.TempDir()
	csv := strings.Join([]string{
		`Date,"('Open', 'SBIN.NS')","('High', 'SBIN.NS')","('Low', 'SBIN.NS')","('Close', 'SBIN.NS')","('Volume', 'SBIN.NS')"`,
		`2024-12-31,1,1,1,1,1`,
		`2025-06-02,10,11,9,10.5,100`,
		`2025-06-03,,,,,`,
		`2025-06-04,11,12,10,11.5,200`,
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "SBIN.NS.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	p := &CSVProvider{Dir: dir}
	raw, err := p.FetchHistory(context.Background(), "SBIN.NS", "3mo", "1d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw.Dates) != 3 {
		t.Fatalf("expected rows outside the lookback to be trimmed, got %d rows", len(raw.Dates))
	}
	s, err := Normalize(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if s.Len() != 2 || !s.HasVolume {
		t.Errorf("expected 2 bars with volume, got %d (volume=%v)", s.Len(), s.HasVolume)
	}

	if _, err := p.FetchHistory(context.Background(), "MISSING.NS", "1y", "1d"); !errors.Is(err, ErrNoData) {
		t.Errorf("missing file: expected ErrNoData, got %v", err)
	}
}

// memStore is an in-memory cache.Store.
type memStore struct {
	data map[string][]byte
	puts int
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Put(_ context.Context, key string, payload []byte, _ time.Duration) error {
	m.data[key] = append([]byte(nil), payload...)
	m.puts++
	return nil
}

func (m *memStore) Close() error { return nil }

var _ cache.Store = (*memStore)(nil)

func TestCachedProvider_ReadThrough(t *testing.T) {
	inner := &MockProvider{Histories: map[string]*model.RawHistory{
		"TCS.NS": SyntheticHistory("TCS.NS", day(300), 10, 100, 1),
	}}
	store := &memStore{data: map[string][]byte{}}
	p := NewCachedProvider(inner, store, time.Hour)

	first, err := p.FetchHistory(context.Background(), "TCS.NS", "1y", "1d")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	first.Columns["Close"][0] = -1 // caller mutation must not leak into the cache

	second, err := p.FetchHistory(context.Background(), "TCS.NS", "1y", "1d")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if inner.Calls("TCS.NS") != 1 {
		t.Errorf("expected 1 upstream call, got %d", inner.Calls("TCS.NS"))
	}
	if store.puts != 1 {
		t.Errorf("expected 1 cache write, got %d", store.puts)
	}
	if second.Columns["Close"][0] != 100 {
		t.Errorf("cached copy was mutated: %.2f", second.Columns["Close"][0])
	}
	if !second.Dates[9].Equal(first.Dates[9]) {
		t.Errorf("dates differ after round trip")
	}
}

func TestCachedProvider_ErrorsNotCached(t *testing.T) {
	inner := &MockProvider{Errors: map[string]error{"BAD": errors.New("boom")}}
	store := &memStore{data: map[string][]byte{}}
	p := NewCachedProvider(inner, store, time.Hour)

	for i := 0; i < 2; i++ {
		if _, err := p.FetchHistory(context.Background(), "BAD", "1y", "1d"); err == nil {
			t.Fatal("expected error")
		}
	}
	if inner.Calls("BAD") != 2 || store.puts != 0 {
		t.Errorf("errors must not be cached: calls=%d puts=%d", inner.Calls("BAD"), store.puts)
	}
}

func TestBreakerProvider_TripsOnUpstreamFailures(t *testing.T) {
	inner := &MockProvider{Errors: map[string]error{"A": errors.New("connection refused")}}
	p := NewBreakerProvider(inner, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Hour, HalfOpenRequests: 1}, nil)

	for i := 0; i < 2; i++ {
		if _, err := p.FetchHistory(context.Background(), "A", "1y", "1d"); err == nil {
			t.Fatal("expected upstream error")
		}
	}
	if p.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", p.State())
	}
	_, err := p.FetchHistory(context.Background(), "A", "1y", "1d")
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}
	if inner.Calls("A") != 2 {
		t.Errorf("open breaker must not call upstream, calls=%d", inner.Calls("A"))
	}
}

func TestBreakerProvider_NoDataDoesNotTrip(t *testing.T) {
	inner := &MockProvider{}
	p := NewBreakerProvider(inner, BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: time.Hour}, nil)
	for i := 0; i < 3; i++ {
		if _, err := p.FetchHistory(context.Background(), "GONE", "1y", "1d"); !errors.Is(err, ErrNoData) {
			t.Fatalf("expected ErrNoData, got %v", err)
		}
	}
	if p.State() != gobreaker.StateClosed {
		t.Errorf("missing data must not trip the breaker, state=%s", p.State())
	}
}

func TestLookback(t *testing.T) {
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		lookback string
		want     time.Time
	}{
		{"1y", time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"6mo", time.Date(2025, 12, 30, 0, 0, 0, 0, time.UTC)},
		{"2wk", time.Date(2026, 6, 16, 0, 0, 0, 0, time.UTC)},
		{"90d", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := LookbackStart(end, tt.lookback)
		if err != nil {
			t.Fatalf("%s: %v", tt.lookback, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s: got %s, want %s", tt.lookback, got, tt.want)
		}
	}
	for _, bad := range []string{"", "y", "0y", "1q", "-1d"} {
		if _, err := LookbackStart(end, bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
	n, err := LookbackBars("1y")
	if err != nil || n < 250 || n > 265 {
		t.Errorf("1y should be about 261 bars, got %d (%v)", n, err)
	}
}
