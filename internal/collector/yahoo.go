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

const yahooAPIBase = "https://query1.finance.yahoo.com"

// YahooProvider implements Provider using the Yahoo Finance chart API.
type YahooProvider struct {
	APIBase   string
	Client    *http.Client
	SymbolMap map[string]string // maps configured symbol to Yahoo ticker
}

// NewYahooProvider creates a Yahoo Finance provider with optional proxy support.
func NewYahooProvider(proxyURL string) *YahooProvider {
	return &YahooProvider{
		APIBase: yahooAPIBase,
		Client:  newHTTPClient(proxyURL, 30*time.Second),
		SymbolMap: map[string]string{
			"NIFTY":     "^NSEI",
			"NIFTY50":   "^NSEI",
			"BANKNIFTY": "^NSEBANK",
			"SENSEX":    "^BSESN",
		},
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) yahooSymbol(symbol string) string {
	if mapped, ok := p.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchHistory requests interval bars over the lookback range. Null quotes become NaN.
func (p *YahooProvider) FetchHistory(ctx context.Context, symbol, lookback, interval string) (*model.RawHistory, error) {
	base := p.APIBase
	if base == "" {
		base = yahooAPIBase
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		base, url.PathEscape(p.yahooSymbol(symbol)), url.QueryEscape(interval), url.QueryEscape(lookback))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart yahooChart
	decodeErr := json.Unmarshal(body, &chart)
	if chart.Chart.Error != nil {
		// Yahoo answers unknown or delisted tickers with 404 and a "Not Found" error body.
		if resp.StatusCode == http.StatusNotFound || chart.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("yahoo %s: %s: %w", symbol, chart.Chart.Error.Description, ErrNoData)
		}
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("yahoo decode: %w", decodeErr)
	}

	raw := &model.RawHistory{Symbol: symbol, Columns: map[string][]float64{}}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return raw, nil
	}
	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)

	raw.Dates = make([]time.Time, n)
	for i, ts := range result.Timestamp {
		raw.Dates[i] = time.Unix(ts, 0).UTC()
	}
	raw.Columns["Open"] = nullable(quote.Open, n)
	raw.Columns["High"] = nullable(quote.High, n)
	raw.Columns["Low"] = nullable(quote.Low, n)
	raw.Columns["Close"] = nullable(quote.Close, n)
	if quote.Volume != nil {
		raw.Columns["Volume"] = nullable(quote.Volume, n)
	}
	return raw, nil
}

// nullable converts a JSON array with nulls into n floats, padding with NaN.
func nullable(vals []*float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i < len(vals) && vals[i] != nil {
			out[i] = *vals[i]
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
