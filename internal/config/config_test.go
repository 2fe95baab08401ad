package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"ChannelSentinel/internal/strategy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Watchlist, []string{"AAPL", "MSFT", "SPY"}) {
		t.Errorf("unexpected watchlist %v", cfg.Watchlist)
	}
	if cfg.Strategy.Timeframe != "1h" || cfg.Strategy.LookbackPeriod != 100 || cfg.Strategy.PivotLookback != 5 {
		t.Errorf("unexpected strategy defaults %+v", cfg.Strategy)
	}
	if cfg.Strategy.Rules != strategy.DefaultRules() {
		t.Errorf("unexpected rules %+v", cfg.Strategy.Rules)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_YAMLOverridesKeepOtherDefaults(t *testing.T) {
	path := writeConfig(t, `
watchlist: [QQQ, IWM]
strategy:
  pivot_lookback: 3
  channel:
    containment_threshold: 0.8
  rules:
    entry_mode: line_value
scanner:
  workers: 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Watchlist, []string{"QQQ", "IWM"}) {
		t.Errorf("unexpected watchlist %v", cfg.Watchlist)
	}
	if cfg.Strategy.PivotLookback != 3 || cfg.Strategy.LookbackPeriod != 100 {
		t.Errorf("unexpected strategy %+v", cfg.Strategy)
	}
	if cfg.Strategy.Channel.ContainmentThreshold != 0.8 || cfg.Strategy.Channel.ParallelTolerance != 0.10 {
		t.Errorf("unexpected channel options %+v", cfg.Strategy.Channel)
	}
	if cfg.Strategy.Channel.Fit.Seed != 42 {
		t.Errorf("expected default seed, got %d", cfg.Strategy.Channel.Fit.Seed)
	}
	if cfg.Strategy.Rules.EntryMode != strategy.EntryLineValue || cfg.Strategy.Rules.SentimentThreshold != 0.5 {
		t.Errorf("unexpected rules %+v", cfg.Strategy.Rules)
	}
	if cfg.Scanner.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Scanner.Workers)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WATCHLIST", " nvda, amd ,,")
	t.Setenv("PIVOT_LOOKBACK", "7")
	t.Setenv("SENTIMENT_THRESHOLD", "0.6")
	t.Setenv("UNUSUAL_WHALES_API_KEY", "uw-key")
	t.Setenv("SCAN_WORKERS", "not-a-number")

	cfg, err := Load(writeConfig(t, "scanner:\n  workers: 3\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Watchlist, []string{"NVDA", "AMD"}) {
		t.Errorf("unexpected watchlist %v", cfg.Watchlist)
	}
	if cfg.Strategy.PivotLookback != 7 || cfg.Strategy.Rules.SentimentThreshold != 0.6 {
		t.Errorf("env overrides not applied: %+v", cfg.Strategy)
	}
	if cfg.OptionsFlow.APIKey != "uw-key" {
		t.Errorf("expected api key from env, got %q", cfg.OptionsFlow.APIKey)
	}
	if cfg.Scanner.Workers != 3 {
		t.Errorf("expected unparsable env to be ignored, got %d workers", cfg.Scanner.Workers)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "watchlist: [unterminated")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty watchlist", func(c *Config) { c.Watchlist = nil }, "watchlist"},
		{"zero pivot lookback", func(c *Config) { c.Strategy.PivotLookback = 0 }, "pivot_lookback"},
		{"inverted trend windows", func(c *Config) { c.Strategy.TrendShort = 60 }, "trend_short"},
		{"containment of one", func(c *Config) { c.Strategy.Channel.ContainmentThreshold = 1 }, "containment_threshold"},
		{"bad entry mode", func(c *Config) { c.Strategy.Rules.EntryMode = "close" }, "entry_mode"},
		{"rest without url", func(c *Config) { c.DataSource.Provider = "rest" }, "base_url"},
		{"unknown provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }, "provider"},
		{"unknown preset", func(c *Config) { c.OptionsFlow.Preset = "whatever" }, "preset"},
		{"half telegram", func(c *Config) { c.Telegram.BotToken = "token" }, "telegram"},
		{"zero workers", func(c *Config) { c.Scanner.Workers = 0 }, "workers"},
		{"bad cron", func(c *Config) { c.Schedule.ScanCron = "every minute" }, "scan_cron"},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error mentioning %q, got %v", tt.name, tt.want, err)
		}
	}
}

func TestLoad_ExampleFileMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.example.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("example config should validate: %v", err)
	}
	if cfg.Strategy.Params != strategy.DefaultParams() {
		t.Errorf("example thresholds drifted from defaults: %+v", cfg.Strategy.Params)
	}
}
