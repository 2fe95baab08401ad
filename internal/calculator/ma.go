package calculator

import (
	"errors"
	"fmt"

	talib "github.com/markcheno/go-talib"
)

// CrossSignal is the verdict of a moving-average crossover check.
type CrossSignal string

const (
	CrossBuy  CrossSignal = "BUY"
	CrossSell CrossSignal = "SELL"
	CrossHold CrossSignal = "HOLD"
)

// CalculateSMA returns the simple moving average series of prices. The first period-1
// entries are zero.
func CalculateSMA(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(prices) < period {
		return nil, fmt.Errorf("SMA(%d) on %d prices: %w", period, len(prices), ErrInsufficientData)
	}
	return talib.Sma(prices, period), nil
}

// TrendCross reports whether the short SMA crossed the long SMA on the last bar.
// Series shorter than the long window (plus one bar to compare) are HOLD.
func TrendCross(prices []float64, shortWindow, longWindow int) (CrossSignal, error) {
	if shortWindow <= 0 || longWindow <= 0 {
		return CrossHold, errors.New("windows must be positive")
	}
	if shortWindow >= longWindow {
		return CrossHold, fmt.Errorf("short window %d must be below long window %d", shortWindow, longWindow)
	}
	if len(prices) < longWindow+1 {
		return CrossHold, nil
	}

	short, err := CalculateSMA(prices, shortWindow)
	if err != nil {
		return CrossHold, err
	}
	long, err := CalculateSMA(prices, longWindow)
	if err != nil {
		return CrossHold, err
	}

	last := len(prices) - 1
	prevShort, prevLong := short[last-1], long[last-1]
	lastShort, lastLong := short[last], long[last]

	switch {
	case prevShort <= prevLong && lastShort > lastLong:
		return CrossBuy, nil
	case prevShort >= prevLong && lastShort < lastLong:
		return CrossSell, nil
	default:
		return CrossHold, nil
	}
}
