package collector

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"SwingScanner/internal/model"
)

var (
	// ErrNoData means the provider returned nothing usable for the instrument.
	ErrNoData = errors.New("no data")
	// ErrMalformedSeries means a required column is missing or cannot be resolved.
	ErrMalformedSeries = errors.New("malformed series")
)

const (
	fieldOpen   = "open"
	fieldHigh   = "high"
	fieldLow    = "low"
	fieldClose  = "close"
	fieldVolume = "volume"
)

var coreFields = []string{fieldOpen, fieldHigh, fieldLow, fieldClose}

// Normalize turns a provider response into a clean ascending PriceSeries.
//
// Column headers may carry an extra grouping layer ("Close|TCS.NS", "('Close', 'TCS.NS')",
// "TCS.NS Close"); the token naming the field wins. Rows with a null or non-positive
// open, high, low or close are dropped, duplicate dates keep the last row, and bars
// are sorted by date. The input is not modified.
func Normalize(raw *model.RawHistory) (*model.PriceSeries, error) {
	if raw == nil || len(raw.Dates) == 0 {
		return nil, ErrNoData
	}
	cols, err := resolveColumns(raw.Columns, raw.Symbol)
	if err != nil {
		return nil, err
	}
	for _, f := range coreFields {
		vals, ok := cols[f]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s column", ErrMalformedSeries, f)
		}
		if len(vals) != len(raw.Dates) {
			return nil, fmt.Errorf("%w: %s column has %d rows, want %d", ErrMalformedSeries, f, len(vals), len(raw.Dates))
		}
	}
	volume, hasVolume := cols[fieldVolume]
	if hasVolume && len(volume) != len(raw.Dates) {
		return nil, fmt.Errorf("%w: volume column has %d rows, want %d", ErrMalformedSeries, len(volume), len(raw.Dates))
	}

	bars := make([]model.OHLCV, 0, len(raw.Dates))
	byDay := make(map[string]int, len(raw.Dates))
	for i, t := range raw.Dates {
		bar := model.OHLCV{
			Time:  t,
			Open:  cols[fieldOpen][i],
			High:  cols[fieldHigh][i],
			Low:   cols[fieldLow][i],
			Close: cols[fieldClose][i],
		}
		if !validPrice(bar.Open) || !validPrice(bar.High) || !validPrice(bar.Low) || !validPrice(bar.Close) {
			continue
		}
		if hasVolume {
			if v := volume[i]; !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0 {
				bar.Volume = v
			}
		}
		day := t.Format(time.DateOnly)
		if j, dup := byDay[day]; dup {
			bars[j] = bar
			continue
		}
		byDay[day] = len(bars)
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: every row was null", ErrNoData)
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	return &model.PriceSeries{
		Symbol:    raw.Symbol,
		Bars:      bars,
		HasVolume: hasVolume,
		FetchedAt: time.Now(),
	}, nil
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// resolveColumns maps field names to their value columns.
func resolveColumns(columns map[string][]float64, symbol string) (map[string][]float64, error) {
	type candidate struct {
		header  string
		grouped bool
	}
	found := make(map[string][]candidate)
	for header := range columns {
		field, grouped := resolveHeader(header, symbol)
		if field == "" {
			continue
		}
		found[field] = append(found[field], candidate{header, grouped})
	}

	out := make(map[string][]float64, len(found))
	for field, cands := range found {
		if len(cands) == 1 {
			out[field] = columns[cands[0].header]
			continue
		}
		var bare []string
		for _, c := range cands {
			if !c.grouped {
				bare = append(bare, c.header)
			}
		}
		if len(bare) != 1 {
			headers := make([]string, len(cands))
			for i, c := range cands {
				headers[i] = c.header
			}
			sort.Strings(headers)
			return nil, fmt.Errorf("%w: ambiguous %s columns %q", ErrMalformedSeries, field, headers)
		}
		out[field] = columns[bare[0]]
	}
	return out, nil
}

// resolveHeader returns the field a header addresses and whether it carries a grouping layer.
// "Adj Close" style headers address nothing. When the symbol itself reads as a field
// name ("LOW Close"), one token equal to the symbol is skipped.
func resolveHeader(header, symbol string) (field string, grouped bool) {
	tokens := strings.FieldsFunc(header, func(r rune) bool {
		switch r {
		case '|', ',', '_', ':', '(', ')', '[', ']', '\'', '"', ' ', '\t':
			return true
		}
		return false
	})
	var matches []string
	for _, tok := range tokens {
		if strings.EqualFold(tok, "adj") {
			return "", false
		}
		switch strings.ToLower(tok) {
		case fieldOpen, fieldHigh, fieldLow, fieldClose, fieldVolume:
			matches = append(matches, tok)
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	if len(matches) > 1 && symbol != "" {
		skip := -1
		for i, tok := range matches {
			if tok == symbol {
				skip = i
				break
			}
		}
		if skip < 0 {
			for i, tok := range matches {
				if strings.EqualFold(tok, symbol) {
					skip = i
					break
				}
			}
		}
		if skip >= 0 {
			matches = append(matches[:skip:skip], matches[skip+1:]...)
		}
	}
	return strings.ToLower(matches[0]), len(tokens) > 1
}
