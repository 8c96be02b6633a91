package collector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"SwingScanner/internal/model"
)

var csvDateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"02-01-2006",
}

// CSVProvider reads daily history from <Dir>/<symbol>.csv exports.
// The first column named "Date" (or the first column, if none is) holds the bar dates.
type CSVProvider struct {
	Dir string
}

func (p *CSVProvider) Name() string { return "csv" }

func (p *CSVProvider) FetchHistory(ctx context.Context, symbol, lookback, _ string) (*model.RawHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := filepath.Join(p.Dir, symbol+".csv")
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("csv %s: %w", path, ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("csv open: %w", err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("csv %s: %w: %v", path, ErrMalformedSeries, df.Err)
	}
	names := df.Names()
	if len(names) == 0 {
		return nil, fmt.Errorf("csv %s: %w", path, ErrNoData)
	}
	dateCol := names[0]
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), "date") || strings.EqualFold(strings.TrimSpace(n), "datetime") {
			dateCol = n
			break
		}
	}

	raw := &model.RawHistory{Symbol: symbol, Columns: make(map[string][]float64, len(names)-1)}
	keep := make([]bool, df.Nrow())
	for i, rec := range df.Col(dateCol).Records() {
		t, ok := parseCSVDate(rec)
		if !ok {
			continue
		}
		keep[i] = true
		raw.Dates = append(raw.Dates, t)
	}
	for _, n := range names {
		if n == dateCol {
			continue
		}
		recs := df.Col(n).Records()
		vals := make([]float64, 0, len(raw.Dates))
		for i, rec := range recs {
			if keep[i] {
				vals = append(vals, parseCSVFloat(rec))
			}
		}
		raw.Columns[n] = vals
	}
	return trimLookback(raw, lookback)
}

func parseCSVDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseCSVFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "nan") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// trimLookback keeps only rows inside the lookback window ending at the latest date.
func trimLookback(raw *model.RawHistory, lookback string) (*model.RawHistory, error) {
	if len(raw.Dates) == 0 || lookback == "" {
		return raw, nil
	}
	latest := raw.Dates[0]
	for _, d := range raw.Dates {
		if d.After(latest) {
			latest = d
		}
	}
	start, err := LookbackStart(latest, lookback)
	if err != nil {
		return nil, err
	}
	out := &model.RawHistory{Symbol: raw.Symbol, Columns: make(map[string][]float64, len(raw.Columns))}
	for i, d := range raw.Dates {
		if d.Before(start) {
			continue
		}
		out.Dates = append(out.Dates, d)
		for name, vals := range raw.Columns {
			out.Columns[name] = append(out.Columns[name], vals[i])
		}
	}
	return out, nil
}
