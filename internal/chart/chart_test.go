package chart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"SwingScanner/internal/calculator"
	"SwingScanner/internal/model"
)

func testFrame(n int) *model.IndicatorFrame {
	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := 100 + float64(i)*0.5
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c - 0.2, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return calculator.Derive(&model.PriceSeries{Symbol: "TCS.NS", Bars: bars, HasVolume: true}, calculator.DefaultParams())
}

func TestRender(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "charts")
	r := NewRenderer(dir)
	sig := &model.Signal{Symbol: "TCS.NS", Score: 3, MaxScore: 3, Close: 224.5, StopLoss: 221.5, Qualifies: true}

	path, err := r.Render(testFrame(250), sig)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if path != filepath.Join(dir, "TCS.NS_analysis.html") {
		t.Errorf("unexpected path %s", path)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	for _, want := range []string{"TCS.NS Analysis", "SMA200", "SMA50", `"SL"`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("chart missing %q", want)
		}
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"OLD.NS_analysis.html", "other.html", "keep.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	n, err := NewRenderer(dir).Cleanup()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "keep.txt")); err != nil {
		t.Error("non-html files must be kept")
	}
}

func TestDisabledRenderer(t *testing.T) {
	r := NewRenderer("")
	path, err := r.Render(testFrame(10), &model.Signal{Symbol: "X"})
	if err != nil || path != "" {
		t.Errorf("disabled renderer should do nothing, got %q %v", path, err)
	}
	if n, err := r.Cleanup(); n != 0 || err != nil {
		t.Errorf("disabled cleanup: %d %v", n, err)
	}
}
