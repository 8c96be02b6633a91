package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"SwingScanner/internal/model"
)

// RESTProvider implements Provider against a bar REST API authenticated with a bearer key.
//
//	GET {BaseURL}/api/v1/bars/daily?symbol=RELIANCE.NS&limit=250
//	GET {BaseURL}/api/v1/bars/weekly?symbol=RELIANCE.NS&limit=52
type RESTProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTProvider creates a new provider with optional proxy support.
func NewRESTProvider(baseURL, apiKey, proxyURL string) *RESTProvider {
	return &RESTProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, 30*time.Second),
	}
}

func (p *RESTProvider) Name() string { return "rest" }

// restBar is the expected JSON shape from the bar API.
type restBar struct {
	Timestamp int64    `json:"timestamp"`
	Open      *float64 `json:"open"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Volume    *float64 `json:"volume"`
}

func (p *RESTProvider) FetchHistory(ctx context.Context, symbol, lookback, interval string) (*model.RawHistory, error) {
	path := "daily"
	limit, err := LookbackBars(lookback)
	if err != nil {
		return nil, err
	}
	switch interval {
	case "1d", "":
	case "1wk":
		path = "weekly"
		limit = limit/5 + 1
	default:
		return nil, fmt.Errorf("rest: unsupported interval %q", interval)
	}

	endpoint := fmt.Sprintf("%s/api/v1/bars/%s?symbol=%s&limit=%d", p.BaseURL, path, url.QueryEscape(symbol), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch bars %s: %w", symbol, ErrNoData)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var bars []restBar
	if err := json.NewDecoder(resp.Body).Decode(&bars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}

	raw := &model.RawHistory{
		Symbol: symbol,
		Dates:  make([]time.Time, len(bars)),
		Columns: map[string][]float64{
			"open":   make([]float64, len(bars)),
			"high":   make([]float64, len(bars)),
			"low":    make([]float64, len(bars)),
			"close":  make([]float64, len(bars)),
			"volume": make([]float64, len(bars)),
		},
	}
	for i, b := range bars {
		raw.Dates[i] = time.Unix(b.Timestamp, 0).UTC()
		raw.Columns["open"][i] = deref(b.Open)
		raw.Columns["high"][i] = deref(b.High)
		raw.Columns["low"][i] = deref(b.Low)
		raw.Columns["close"][i] = deref(b.Close)
		raw.Columns["volume"][i] = deref(b.Volume)
	}
	return raw, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
