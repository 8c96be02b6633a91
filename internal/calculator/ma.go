package calculator

import (
	"SwingScanner/internal/model"

	talib "github.com/markcheno/go-talib"
)

// SMAColumn computes a full SMA column. The first period-1 bars are absent.
// A series shorter than the period yields an absent column.
func SMAColumn(values []float64, period int) model.Column {
	if period <= 0 || len(values) < period {
		return model.AbsentColumn
	}
	return model.Column{Values: talib.Sma(values, period), Start: period - 1}
}
