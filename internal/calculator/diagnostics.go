package calculator

import (
	"errors"
	"math"

	talib "github.com/markcheno/go-talib"

	"ChannelSentinel/internal/model"
)

// DefaultRSIPeriod is the Wilder RSI period reported with every scan.
const DefaultRSIPeriod = 14

// Diagnostics are informational readings of a series. They never affect the signal.
type Diagnostics struct {
	RSI           float64 `json:"rsi"`
	RangeHigh     float64 `json:"range_high"`
	RangeLow      float64 `json:"range_low"`
	RangePosition float64 `json:"range_position"` // 0 at the window low, 1 at the window high
}

// CalculateRSI returns the latest Wilder-smoothed RSI of closes. It is 50 when there are
// fewer than period+1 closes.
func CalculateRSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return 50.0, nil
	}
	rsi := talib.Rsi(closes, period)
	return rsi[len(rsi)-1], nil
}

// WindowRange returns the highest high and the lowest low of bars.
func WindowRange(bars []model.OHLCV) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, ErrInsufficientData
	}
	high, low = math.Inf(-1), math.Inf(1)
	for _, b := range bars {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low, nil
}

// RangePosition places price within [low, high], clamped to [0, 1]. A flat range is 0.5.
func RangePosition(price, high, low float64) (float64, error) {
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	if high == low {
		return 0.5, nil
	}
	return math.Min(1, math.Max(0, (price-low)/(high-low))), nil
}

// Diagnose computes the diagnostics of series.
func Diagnose(series *model.PriceSeries, rsiPeriod int) (Diagnostics, error) {
	var d Diagnostics
	closes := series.Closes()
	if len(closes) == 0 {
		return d, ErrInsufficientData
	}
	rsi, err := CalculateRSI(closes, rsiPeriod)
	if err != nil {
		return d, err
	}
	d.RSI = rsi
	if d.RangeHigh, d.RangeLow, err = WindowRange(series.Bars); err != nil {
		return d, err
	}
	d.RangePosition, err = RangePosition(closes[len(closes)-1], d.RangeHigh, d.RangeLow)
	return d, err
}
