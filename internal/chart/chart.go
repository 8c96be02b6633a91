package chart

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"SwingScanner/internal/model"
)

// Renderer writes one interactive HTML candlestick chart per qualifying instrument.
type Renderer struct {
	Dir   string
	Theme string
}

// NewRenderer returns a renderer writing into dir. An empty dir disables charts.
func NewRenderer(dir string) *Renderer {
	return &Renderer{Dir: dir, Theme: types.ThemeChalk}
}

// Enabled reports whether charts are written at all.
func (r *Renderer) Enabled() bool { return r != nil && r.Dir != "" }

// Path returns the artifact path for symbol.
func (r *Renderer) Path(symbol string) string {
	name := strings.NewReplacer("/", "_", "\\", "_").Replace(symbol)
	return filepath.Join(r.Dir, name+"_analysis.html")
}

// Cleanup removes stale *.html artifacts from the chart directory.
func (r *Renderer) Cleanup() (int, error) {
	if !r.Enabled() {
		return 0, nil
	}
	matches, err := filepath.Glob(filepath.Join(r.Dir, "*.html"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			log.Printf("[WARN] remove stale chart %s: %v", m, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// Render draws the frame's candles with long/medium SMA overlays and a stop-loss line.
func (r *Renderer) Render(frame *model.IndicatorFrame, sig *model.Signal) (string, error) {
	if !r.Enabled() {
		return "", nil
	}
	if frame == nil || frame.Series.Len() == 0 || sig == nil {
		return "", fmt.Errorf("chart: nothing to render")
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("chart dir: %w", err)
	}

	bars := frame.Series.Bars
	dates := make([]string, len(bars))
	candles := make([]opts.KlineData, len(bars))
	for i, b := range bars {
		dates[i] = b.Time.Format("2006-01-02")
		// echarts candle order: open, close, low, high
		candles[i] = opts.KlineData{Value: [4]float64{b.Open, b.Close, b.Low, b.High}}
	}

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: sig.Symbol + " Analysis",
			Width:     "1200px",
			Height:    "600px",
			Theme:     r.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("%s Analysis", sig.Symbol),
			Subtitle: fmt.Sprintf("score %d/%d, SL %.2f", sig.Score, sig.MaxScore, sig.StopLoss),
		}),
		charts.WithYAxisOpts(opts.YAxis{Scale: true}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)
	kline.SetXAxis(dates).AddSeries(sig.Symbol, candles,
		charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "SL", YAxis: sig.StopLoss}),
	)

	overlay := charts.NewLine()
	overlay.SetXAxis(dates)
	overlay.AddSeries("SMA200", lineData(frame.LongSMA, len(bars)))
	if frame.MediumSMA.Present() {
		overlay.AddSeries("SMA50", lineData(frame.MediumSMA, len(bars)))
	}
	kline.Overlap(overlay)

	path := r.Path(sig.Symbol)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("chart create: %w", err)
	}
	defer f.Close()
	if err := kline.Render(f); err != nil {
		return "", fmt.Errorf("chart render: %w", err)
	}
	return path, nil
}

// lineData maps a column to echarts points, "-" marking absent values.
func lineData(c model.Column, n int) []opts.LineData {
	out := make([]opts.LineData, n)
	for i := range out {
		if v, ok := c.At(i); ok {
			out[i] = opts.LineData{Value: v}
		} else {
			out[i] = opts.LineData{Value: "-"}
		}
	}
	return out
}
