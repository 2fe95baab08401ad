package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ChannelSentinel/internal/flow"
	"ChannelSentinel/internal/logging"
	"ChannelSentinel/internal/model"
)

// Snapshot is everything one scan of a symbol needs.
type Snapshot struct {
	Series  *model.PriceSeries
	Context model.ExternalContext
}

// Collector gathers price bars and options-flow context for a symbol.
type Collector struct {
	Fetcher  Fetcher
	Flow     flow.Source
	Interval string
	Count    int
	logger   zerolog.Logger
}

// NewCollector creates a new Collector. flowSource may be nil, in which case every
// snapshot carries a neutral context.
func NewCollector(fetcher Fetcher, flowSource flow.Source, interval string, count int, logger zerolog.Logger) *Collector {
	return &Collector{
		Fetcher:  fetcher,
		Flow:     flowSource,
		Interval: interval,
		Count:    count,
		logger:   logging.Component(logger, "collector"),
	}
}

// FetchSeries fetches and validates the price series of symbol.
func (c *Collector) FetchSeries(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	bars, err := c.Fetcher.FetchBars(ctx, symbol, c.Interval, c.Count)
	if err != nil {
		return nil, fmt.Errorf("fetch %s bars from %s: %w", symbol, c.Fetcher.Name(), err)
	}
	series := &model.PriceSeries{
		Symbol:    symbol,
		Interval:  c.Interval,
		Bars:      bars,
		FetchedAt: time.Now().UTC(),
	}
	if err := series.Validate(); err != nil {
		return nil, err
	}
	return series, nil
}

// FetchContext builds the external context of symbol. Flow failures are not errors:
// they are logged and replaced by zero sentiment, zero GEX and no trades.
func (c *Collector) FetchContext(ctx context.Context, symbol string) model.ExternalContext {
	var ext model.ExternalContext
	if c.Flow == nil {
		return ext
	}

	trades, err := c.Flow.FetchUnusualTrades(ctx, symbol)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Str("source", c.Flow.Name()).
			Msg("unusual trades unavailable, using empty list")
		trades = nil
	}
	ext.UnusualTrades = trades
	ext.Sentiment = flow.Sentiment(trades)

	gex, err := c.Flow.FetchGEX(ctx, symbol)
	if err != nil {
		c.logger.Warn().Err(err).Str("symbol", symbol).Str("source", c.Flow.Name()).
			Msg("gex unavailable, using zero profile")
		gex = model.GEXProfile{}
	}
	ext.GEX = gex
	return ext
}

// Gather fetches the series and the external context of symbol.
func (c *Collector) Gather(ctx context.Context, symbol string) (*Snapshot, error) {
	series, err := c.FetchSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	ext := c.FetchContext(ctx, symbol)
	c.logger.Debug().Str("symbol", symbol).Int("bars", series.Len()).
		Float64("sentiment", ext.Sentiment).Float64("gex", ext.GEX.Value).
		Int("unusual_trades", len(ext.UnusualTrades)).Msg("snapshot gathered")
	return &Snapshot{Series: series, Context: ext}, nil
}
