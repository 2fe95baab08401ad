package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"ChannelSentinel/internal/model"
)

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchBars returns up to count of the most recent bars at interval, oldest first.
	FetchBars(ctx context.Context, symbol, interval string, count int) ([]model.OHLCV, error)
	Name() string
}

// barsPerDay is the number of regular-session bars one trading day yields per interval.
var barsPerDay = map[string]float64{
	"1m":  390,
	"5m":  78,
	"15m": 26,
	"30m": 13,
	"1h":  7,
	"60m": 7,
	"1d":  1,
	"1wk": 0.2,
}

// calendarWindow estimates how far back to request so that count bars come back,
// allowing for weekends and holidays.
func calendarWindow(interval string, count int) (time.Duration, error) {
	perDay, ok := barsPerDay[interval]
	if !ok {
		return 0, fmt.Errorf("unsupported interval %q", interval)
	}
	if count <= 0 {
		return 0, fmt.Errorf("bar count must be positive, got %d", count)
	}
	tradingDays := math.Ceil(float64(count) / perDay)
	calendarDays := math.Ceil(tradingDays*7/5) + 5
	return time.Duration(calendarDays) * 24 * time.Hour, nil
}

func lastN(bars []model.OHLCV, n int) []model.OHLCV {
	if len(bars) > n {
		return bars[len(bars)-n:]
	}
	return bars
}

// MockFetcher serves fixed bars, or a synthetic rising channel when none are set.
type MockFetcher struct {
	Bars  map[string][]model.OHLCV
	Base  float64
	Err   error
	Clock func() time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, symbol, interval string, count int) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return lastN(bars, count), nil
	}
	base := m.Base
	if base == 0 {
		base = 100
	}
	now := time.Now()
	if m.Clock != nil {
		now = m.Clock()
	}
	return generateChannelBars(base, count, now), nil
}

// wave is the band offset in half-percent steps of base, peaking at phase 2.
var wave = [8]float64{0, 4, 8, 4, 0, -4, -8, -4}

// generateChannelBars draws a rising band oscillating 4% around a 0.5%-per-bar trend.
// With base 100 the closes are exact half-integers.
func generateChannelBars(base float64, count int, end time.Time) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := base * (200 + float64(i) + wave[(i+3)%8]) / 200
		bars[i] = model.OHLCV{
			Time:   end.Add(-time.Duration(count-i) * time.Hour),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
