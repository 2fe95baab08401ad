package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"ChannelSentinel/internal/flow"
	"ChannelSentinel/internal/logging"
	"ChannelSentinel/internal/notifier"
	"ChannelSentinel/internal/scanner"
)

// Messenger delivers free-form text to the operator.
type Messenger interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// AlertStore returns the last alert published for a symbol.
type AlertStore interface {
	Latest(ctx context.Context, symbol string) (*notifier.Alert, error)
}

// Scheduler runs watchlist scans on a cron schedule and answers operator commands.
type Scheduler struct {
	Cron      *cron.Cron
	Scanner   *scanner.Scanner
	Messenger Messenger  // nil disables cycle summaries
	Alerts    AlertStore // nil disables /latest
	Ctx       context.Context

	mu        sync.RWMutex
	watchlist []string
	logger    zerolog.Logger
}

// NewScheduler creates a new Scheduler. Overlapping cron runs are skipped, and a panicking
// run is logged instead of taking the process down.
func NewScheduler(ctx context.Context, sc *scanner.Scanner, msg Messenger, watchlist []string, logger zerolog.Logger) *Scheduler {
	logger = logging.Component(logger, "scheduler")
	cl := cronLogger{logger: logger}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Scanner:   sc,
		Messenger: msg,
		Ctx:       ctx,
		watchlist: append([]string(nil), watchlist...),
		logger:    logger,
	}
}

// Register adds the watchlist scan job.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, func() { s.RunNow(scanner.TriggerCron) }); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// Watchlist returns a copy of the scanned symbols.
func (s *Scheduler) Watchlist() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.watchlist...)
}

// RunNow scans the watchlist immediately and sends the cycle summary.
func (s *Scheduler) RunNow(trigger string) *scanner.Cycle {
	c := s.Scanner.RunCycle(s.Ctx, trigger, s.Watchlist())
	s.trySend(notifier.FormatCycleSummary(c.Summary()))
	return c
}

// HandleCommand processes an operator command and returns the reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	args := fields[1:]

	switch strings.ToLower(fields[0]) {
	case "/scan", "扫描":
		symbols := s.Watchlist()
		if len(args) > 0 {
			symbols = upper(args)
		}
		c := s.Scanner.RunCycle(ctx, scanner.TriggerTelegram, symbols)
		return notifier.FormatCycleSummary(c.Summary())
	case "/channel", "通道":
		if len(args) != 1 {
			return "用法: /channel SYMBOL"
		}
		symbol := strings.ToUpper(args[0])
		ch, err := s.Scanner.DetectChannel(ctx, symbol)
		if err != nil {
			return fmt.Sprintf("❌ %s 通道检测失败: %v", symbol, err)
		}
		return notifier.FormatChannel(symbol, ch)
	case "/signals", "最近信号":
		return s.recentSignals(10)
	case "/latest", "最新":
		if len(args) != 1 {
			return "用法: /latest SYMBOL"
		}
		return s.latestAlert(ctx, strings.ToUpper(args[0]))
	case "/presets", "预设":
		return formatPresets()
	case "/watchlist", "自选":
		return "自选: " + strings.Join(s.Watchlist(), ", ")
	default:
		return helpText
	}
}

const helpText = "可用命令:\n" +
	"• /scan [SYMBOL...] 扫描自选或指定标的\n" +
	"• /channel SYMBOL 查看通道\n" +
	"• /signals 最近信号\n" +
	"• /latest SYMBOL 最新推送的信号\n" +
	"• /presets 期权流筛选预设\n" +
	"• /watchlist 查看自选"

func (s *Scheduler) recentSignals(limit int) string {
	recs, err := s.Scanner.Recorder().RecentSignals(limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("load recent signals")
		return fmt.Sprintf("❌ 读取信号失败: %v", err)
	}
	if len(recs) == 0 {
		return "暂无信号记录"
	}
	var b strings.Builder
	b.WriteString("🕘 <b>最近信号</b>\n\n")
	for _, r := range recs {
		b.WriteString(fmt.Sprintf("%s %s %s @ %.2f | %s\n",
			r.ScannedAt.Format("01-02 15:04"), r.Direction, r.Symbol, r.Entry, r.Type))
	}
	return b.String()
}

func (s *Scheduler) latestAlert(ctx context.Context, symbol string) string {
	if s.Alerts == nil {
		return "未配置 Redis, 无法查询最新信号"
	}
	a, err := s.Alerts.Latest(ctx, symbol)
	if err != nil {
		s.logger.Error().Err(err).Str("symbol", symbol).Msg("load latest alert")
		return fmt.Sprintf("❌ 读取 %s 最新信号失败: %v", symbol, err)
	}
	if a == nil || a.Signal == nil {
		return fmt.Sprintf("%s 暂无推送的信号", symbol)
	}
	return notifier.FormatSignalAlert(a)
}

func formatPresets() string {
	var b strings.Builder
	b.WriteString("🐋 <b>期权流预设</b>\n\n")
	for _, p := range flow.Presets() {
		b.WriteString(fmt.Sprintf("• <code>%s</code> %s\n", p.Name, p.Description))
	}
	return b.String()
}

func upper(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, sym := range symbols {
		out[i] = strings.ToUpper(sym)
	}
	return out
}

func (s *Scheduler) trySend(text string) {
	if s.Messenger == nil {
		return
	}
	if err := s.Messenger.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
