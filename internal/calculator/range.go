package calculator

import (
	"errors"
	"math"

	"SwingScanner/internal/model"
)

// DefaultStopLossWindow is the number of recent bars scanned for the stop-loss low.
const DefaultStopLossWindow = 5

// StopLoss returns the minimum low over the most recent window bars, including
// the latest one. Fewer bars than the window uses all of them.
func StopLoss(bars []model.OHLCV, window int) (float64, error) {
	if len(bars) == 0 {
		return 0, errors.New("no bars provided")
	}
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	start := len(bars) - window
	if start < 0 {
		start = 0
	}
	low := math.Inf(1)
	for _, b := range bars[start:] {
		if b.Low < low {
			low = b.Low
		}
	}
	return low, nil
}
