package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ChannelSentinel/internal/collector"
	"ChannelSentinel/internal/config"
	"ChannelSentinel/internal/flow"
	"ChannelSentinel/internal/logging"
	"ChannelSentinel/internal/metrics"
	"ChannelSentinel/internal/model"
	"ChannelSentinel/internal/notifier"
	"ChannelSentinel/internal/recorder"
	"ChannelSentinel/internal/scanner"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	recorder recorder.Recorder
	scanner  *scanner.Scanner
	telegram *notifier.TelegramNotifier
	redis    *notifier.RedisPublisher
}

func loadConfig(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config validation: %w", err)
	}
	return cfg, logging.New(cfg.Log.Level, cfg.Log.Pretty), nil
}

// newApp wires the scanner and its outputs. With notify unset no alert sink is attached.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, notify bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: metrics.NewMetrics()}

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, err
	}
	flowSource := newFlowSource(cfg)
	sourceName := "none"
	if flowSource != nil {
		sourceName = flowSource.Name()
	}
	logger.Info().Str("prices", fetcher.Name()).Str("flow", sourceName).Msg("data sources ready")

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
		}
	}

	var sinks []notifier.Sink
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		if notify {
			sinks = append(sinks, a.telegram)
		}
	}
	if cfg.Redis.Addr != "" && notify {
		rp, err := notifier.NewRedisPublisher(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Channel, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, signals will not be published")
		} else {
			a.redis = rp
			sinks = append(sinks, rp)
		}
	}

	col := collector.NewCollector(fetcher, flowSource, cfg.Strategy.Timeframe, cfg.Strategy.LookbackPeriod, logger)
	a.scanner = scanner.New(col, scanner.Options{
		Params:        cfg.Strategy.Params,
		PivotLookback: cfg.Strategy.PivotLookback,
		TrendShort:    cfg.Strategy.TrendShort,
		TrendLong:     cfg.Strategy.TrendLong,
		Workers:       cfg.Scanner.Workers,
	}, a.metrics, a.recorder, logger, sinks...)
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close redis")
		}
	}
	if err := a.recorder.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close recorder")
	}
}

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	switch cfg.DataSource.Provider {
	case "yahoo":
		return collector.NewYahooFetcher(), nil
	case "rest":
		return collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy), nil
	case "mock":
		return &collector.MockFetcher{}, nil
	default:
		return nil, fmt.Errorf("unknown data source provider %q", cfg.DataSource.Provider)
	}
}

// newFlowSource returns nil when no flow provider is configured, so every context is neutral.
// The mock provider pairs with a bullish static feed so offline runs exercise the whole rule table.
func newFlowSource(cfg *config.Config) flow.Source {
	if cfg.DataSource.Provider == "mock" {
		return demoFlow(cfg.Watchlist)
	}
	if cfg.OptionsFlow.APIKey == "" {
		return nil
	}
	return flow.NewUnusualWhalesClient(cfg.OptionsFlow.BaseURL, cfg.OptionsFlow.APIKey, cfg.OptionsFlow.Preset, cfg.Proxy)
}

func demoFlow(symbols []string) *flow.StaticSource {
	src := &flow.StaticSource{
		Trades: make(map[string][]model.UnusualTrade, len(symbols)),
		GEX:    make(map[string]model.GEXProfile, len(symbols)),
	}
	for _, sym := range symbols {
		src.Trades[sym] = []model.UnusualTrade{
			{Ticker: sym, OptionType: model.OptionCall, Premium: decimal.NewFromInt(600000)},
			{Ticker: sym, OptionType: model.OptionPut, Premium: decimal.NewFromInt(100000)},
		}
		src.GEX[sym] = model.GEXProfile{Value: 120}
	}
	return src
}
