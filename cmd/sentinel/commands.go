package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ChannelSentinel/internal/config"
	"ChannelSentinel/internal/flow"
	"ChannelSentinel/internal/scanner"
	"ChannelSentinel/internal/scheduler"
	"ChannelSentinel/internal/server"
)

var configPath string

// NewRootCmd builds the sentinel command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sentinel",
		Short: "Price channel detection and signal synthesis",
		Long: `sentinel fits support and resistance trendlines over recent closes, validates the
channel they form and combines it with options-flow context into LONG or SHORT signals.`,
		SilenceUsage: true,
	}

	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to the YAML config")

	root.AddCommand(newScanCmd(), newRunCmd(), newPresetsCmd(), newConfigCmd())
	return root
}

func newScanCmd() *cobra.Command {
	var notify bool
	cmd := &cobra.Command{
		Use:   "scan [SYMBOL...]",
		Short: "Scan the watchlist, or the given symbols, once and print the results as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger, notify)
			if err != nil {
				return err
			}
			defer a.Close()

			symbols := cfg.Watchlist
			if len(args) > 0 {
				symbols = make([]string, len(args))
				for i, arg := range args {
					symbols[i] = strings.ToUpper(arg)
				}
			}
			cycle := a.scanner.RunCycle(ctx, scanner.TriggerManual, symbols)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(cycle); err != nil {
				return fmt.Errorf("encode results: %w", err)
			}
			if len(cycle.Failures()) == len(symbols) && len(symbols) > 0 {
				return errors.New("every symbol failed")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", false, "deliver signals to the configured Telegram and Redis sinks")
	return cmd
}

func newRunCmd() *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run scheduled scans, the diagnostics server and Telegram polling until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger.Info().Strs("watchlist", cfg.Watchlist).Msg("channel sentinel starting")

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			var msg scheduler.Messenger
			if a.telegram != nil {
				msg = a.telegram
			}
			sched := scheduler.NewScheduler(ctx, a.scanner, msg, cfg.Watchlist, logger)
			if a.redis != nil {
				sched.Alerts = a.redis
			}
			if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if a.telegram != nil {
				go a.telegram.StartPolling(ctx, sched.HandleCommand)
				logger.Info().Msg("telegram polling started")
			}

			srv := server.NewServer(cfg.Server.Addr, a.scanner, a.metrics, sched.Watchlist, logger)
			srvErr := make(chan error, 1)
			go func() { srvErr <- srv.Start() }()

			if runNow || os.Getenv("RUN_ON_START") == "true" {
				logger.Info().Msg("running the first scan now")
				go sched.RunNow(scanner.TriggerManual)
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("shutdown signal received, stopping")
			case err := <-srvErr:
				if err != nil {
					logger.Error().Err(err).Msg("http server stopped")
				}
			}
			cancel()

			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("http server shutdown")
			}
			logger.Info().Msg("channel sentinel stopped")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "scan the watchlist immediately on start")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the options-flow filter presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, p := range flow.Presets() {
				fmt.Fprintf(out, "%-30s %s\n", p.Name, p.Description)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(masked(cfg))
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}, &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config OK: %d symbols, %s bars x %d\n",
				len(cfg.Watchlist), cfg.Strategy.Timeframe, cfg.Strategy.LookbackPeriod)
			return nil
		},
	})
	return cmd
}

func masked(cfg *config.Config) *config.Config {
	c := *cfg
	for _, s := range []*string{&c.DataSource.APIKey, &c.OptionsFlow.APIKey, &c.Telegram.BotToken, &c.Redis.Password} {
		if *s != "" {
			*s = "******"
		}
	}
	return &c
}
