package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"ChannelSentinel/internal/model"
)

// YahooFetcher implements Fetcher using Yahoo Finance charts.
type YahooFetcher struct {
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher() *YahooFetcher {
	return &YahooFetcher{
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"NDX":    "^NDX",
			"VIX":    "^VIX",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func yahooInterval(interval string) datetime.Interval {
	if interval == "1h" {
		return datetime.Interval("60m")
	}
	return datetime.Interval(interval)
}

func (f *YahooFetcher) FetchBars(ctx context.Context, symbol, interval string, count int) ([]model.OHLCV, error) {
	window, err := calendarWindow(interval, count)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := time.Now()
	start := end.Add(-window)
	iter := chart.Get(&chart.Params{
		Symbol:   f.yahooSymbol(symbol),
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: yahooInterval(interval),
	})

	bars := make([]model.OHLCV, 0, count)
	for iter.Next() {
		b := iter.Bar()
		c := b.Close.InexactFloat64()
		if c == 0 {
			continue // null bars (halts, holidays)
		}
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(int64(b.Timestamp), 0).UTC(),
			Open:   b.Open.InexactFloat64(),
			High:   b.High.InexactFloat64(),
			Low:    b.Low.InexactFloat64(),
			Close:  c,
			Volume: float64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", symbol)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return lastN(bars, count), nil
}
