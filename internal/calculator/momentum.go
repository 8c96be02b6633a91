package calculator

import (
	"SwingScanner/internal/model"

	talib "github.com/markcheno/go-talib"
)

// ADXLookback is the number of leading bars without an ADX value.
func ADXLookback(period int) int { return 2*period - 1 }

// MACDLookback is the number of leading bars without a MACD signal value.
func MACDLookback(fast, slow, signal int) int {
	if slow < fast {
		slow = fast
	}
	return (slow - 1) + (signal - 1)
}

// ADXColumn computes Wilder's average directional index.
func ADXColumn(highs, lows, closes []float64, period int) model.Column {
	lookback := ADXLookback(period)
	if period <= 0 || len(closes) <= lookback || len(highs) != len(closes) || len(lows) != len(closes) {
		return model.AbsentColumn
	}
	return model.Column{Values: talib.Adx(highs, lows, closes, period), Start: lookback}
}

// MACDColumns computes the MACD line and its signal line. The signal EMA is seeded
// from the first valid MACD values only, not from the warm-up bars.
func MACDColumns(closes []float64, fast, slow, signal int) (line, sig model.Column) {
	lookback := MACDLookback(fast, slow, signal)
	if fast <= 0 || slow <= 0 || signal <= 0 || len(closes) <= lookback {
		return model.AbsentColumn, model.AbsentColumn
	}
	if slow < fast {
		fast, slow = slow, fast
	}
	fastEMA := talib.Ema(closes, fast)
	slowEMA := talib.Ema(closes, slow)
	macd := make([]float64, len(closes))
	for i := slow - 1; i < len(closes); i++ {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	macdSignal := make([]float64, len(closes))
	copy(macdSignal[slow-1:], talib.Ema(macd[slow-1:], signal))
	return model.Column{Values: macd, Start: lookback}, model.Column{Values: macdSignal, Start: lookback}
}
