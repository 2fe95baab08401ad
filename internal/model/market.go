package model

import (
	"fmt"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries holds the bars of one symbol in ascending time order.
type PriceSeries struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Bars      []OHLCV   `json:"bars"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Closes returns a fresh slice of close prices. The channel engine consumes nothing else.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int { return len(s.Bars) }

// Validate checks that timestamps are strictly increasing.
func (s *PriceSeries) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("%s: bar %d at %s is not after bar %d at %s",
				s.Symbol, i, s.Bars[i].Time.Format(time.RFC3339), i-1, s.Bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}
