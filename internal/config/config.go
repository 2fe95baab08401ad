package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"ChannelSentinel/internal/flow"
	"ChannelSentinel/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Watchlist []string `yaml:"watchlist"`
	Strategy  struct {
		Timeframe       string `yaml:"timeframe"`
		LookbackPeriod  int    `yaml:"lookback_period"`
		PivotLookback   int    `yaml:"pivot_lookback"`
		TrendShort      int    `yaml:"trend_short"`
		TrendLong       int    `yaml:"trend_long"`
		strategy.Params `yaml:",inline"`
	} `yaml:"strategy"`
	DataSource struct {
		Provider string `yaml:"provider"` // yahoo, rest or mock
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"data_source"`
	OptionsFlow struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Preset  string `yaml:"preset"`
	} `yaml:"options_flow"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Schedule struct {
		ScanCron string `yaml:"scan_cron"`
	} `yaml:"schedule"`
	Scanner struct {
		Workers int `yaml:"workers"`
	} `yaml:"scanner"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Default returns a Config populated with every default.
func Default() *Config {
	cfg := &Config{}
	cfg.Watchlist = []string{"AAPL", "MSFT", "SPY"}
	cfg.Strategy.Timeframe = "1h"
	cfg.Strategy.LookbackPeriod = 100
	cfg.Strategy.PivotLookback = 5
	cfg.Strategy.TrendShort = 20
	cfg.Strategy.TrendLong = 50
	cfg.Strategy.Params = strategy.DefaultParams()
	cfg.DataSource.Provider = "yahoo"
	cfg.OptionsFlow.BaseURL = "https://api.unusualwhales.com/api"
	cfg.OptionsFlow.Preset = "clean_ask_side_opening_flow"
	cfg.Redis.Channel = "sentinel:signals"
	cfg.Database.SQLitePath = "data/channel_sentinel.db"
	cfg.Server.Addr = ":8080"
	cfg.Schedule.ScanCron = "0 5 * * * 1-5"
	cfg.Scanner.Workers = 4
	cfg.Log.Level = "info"
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies .env and
// environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Watchlist = splitSymbols(v)
	}
	if v := os.Getenv("TIMEFRAME"); v != "" {
		c.Strategy.Timeframe = v
	}
	if v := os.Getenv("LOOKBACK_PERIOD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Strategy.LookbackPeriod = n
		}
	}
	if v := os.Getenv("PIVOT_LOOKBACK"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Strategy.PivotLookback = n
		}
	}
	if v := os.Getenv("SENTIMENT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Strategy.Rules.SentimentThreshold = f
		}
	}
	if v := os.Getenv("DATA_SOURCE_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("UNUSUAL_WHALES_BASE_URL"); v != "" {
		c.OptionsFlow.BaseURL = v
	}
	if v := os.Getenv("UNUSUAL_WHALES_API_KEY"); v != "" {
		c.OptionsFlow.APIKey = v
	}
	if v := os.Getenv("FLOW_PRESET"); v != "" {
		c.OptionsFlow.Preset = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CRON_SCAN"); v != "" {
		c.Schedule.ScanCron = v
	}
	if v := os.Getenv("SCAN_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scanner.Workers = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if sym := strings.ToUpper(strings.TrimSpace(part)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

// Validate checks that the configuration is usable for a scan. Telegram and Redis
// are optional and only checked for consistency.
func (c *Config) Validate() error {
	if len(c.Watchlist) == 0 {
		return fmt.Errorf("watchlist must not be empty")
	}
	if c.Strategy.LookbackPeriod < 2 {
		return fmt.Errorf("strategy.lookback_period must be at least 2, got %d", c.Strategy.LookbackPeriod)
	}
	if c.Strategy.PivotLookback < 1 {
		return fmt.Errorf("strategy.pivot_lookback must be positive, got %d", c.Strategy.PivotLookback)
	}
	if c.Strategy.TrendShort < 1 || c.Strategy.TrendShort >= c.Strategy.TrendLong {
		return fmt.Errorf("strategy.trend_short (%d) must be positive and below trend_long (%d)",
			c.Strategy.TrendShort, c.Strategy.TrendLong)
	}
	ch := c.Strategy.Channel
	if ch.ParallelTolerance <= 0 {
		return fmt.Errorf("strategy.channel.parallel_tolerance must be positive")
	}
	if ch.ContainmentThreshold <= 0 || ch.ContainmentThreshold >= 1 {
		return fmt.Errorf("strategy.channel.containment_threshold must be within (0, 1)")
	}
	if ch.SlopeEpsilon <= 0 {
		return fmt.Errorf("strategy.channel.slope_epsilon must be positive")
	}
	if err := c.Strategy.Rules.Validate(); err != nil {
		return fmt.Errorf("strategy.rules: %w", err)
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("unknown data_source.provider %q", c.DataSource.Provider)
	}
	if _, ok := flow.LookupPreset(c.OptionsFlow.Preset); !ok {
		return fmt.Errorf("unknown options_flow.preset %q", c.OptionsFlow.Preset)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Scanner.Workers < 1 {
		return fmt.Errorf("scanner.workers must be positive")
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(c.Schedule.ScanCron); err != nil {
		return fmt.Errorf("schedule.scan_cron: %w", err)
	}
	return nil
}
