package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"SwingScanner/internal/model"
)

// Provider fetches raw daily history for one instrument.
// Implementations must honor ctx cancellation and return errors rather than panicking.
type Provider interface {
	Name() string
	FetchHistory(ctx context.Context, symbol, lookback, interval string) (*model.RawHistory, error)
}

// LookbackStart returns the first instant covered by a lookback such as "1y", "6mo", "3wk" or "90d".
// "max" returns the zero time.
func LookbackStart(end time.Time, lookback string) (time.Time, error) {
	if lookback == "max" {
		return time.Time{}, nil
	}
	n, unit, err := splitLookback(lookback)
	if err != nil {
		return time.Time{}, err
	}
	switch unit {
	case "d":
		return end.AddDate(0, 0, -n), nil
	case "wk":
		return end.AddDate(0, 0, -7*n), nil
	case "mo":
		return end.AddDate(0, -n, 0), nil
	case "y":
		return end.AddDate(-n, 0, 0), nil
	}
	return time.Time{}, fmt.Errorf("invalid lookback %q", lookback)
}

// LookbackBars estimates how many daily trading bars a lookback covers.
func LookbackBars(lookback string) (int, error) {
	if lookback == "max" {
		return 5000, nil
	}
	end := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	start, err := LookbackStart(end, lookback)
	if err != nil {
		return 0, err
	}
	days := int(end.Sub(start).Hours() / 24)
	return days*5/7 + 1, nil
}

func splitLookback(lookback string) (int, string, error) {
	s := strings.ToLower(strings.TrimSpace(lookback))
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return 0, "", fmt.Errorf("invalid lookback %q", lookback)
	}
	switch unit := s[i:]; unit {
	case "d", "wk", "mo", "y":
		return n, unit, nil
	}
	return 0, "", fmt.Errorf("invalid lookback %q", lookback)
}
