package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ChannelSentinel/internal/calculator"
	"ChannelSentinel/internal/collector"
	"ChannelSentinel/internal/logging"
	"ChannelSentinel/internal/metrics"
	"ChannelSentinel/internal/model"
	"ChannelSentinel/internal/notifier"
	"ChannelSentinel/internal/recorder"
	"ChannelSentinel/internal/strategy"
)

// Triggers recorded with each cycle.
const (
	TriggerCron     = "cron"
	TriggerManual   = "manual"
	TriggerTelegram = "telegram"
	TriggerHTTP     = "http"
)

// Result is the outcome of scanning one symbol. Err is set when no channel could be
// read; a valid scan without a signal has a nil Signal and a nil Err.
type Result struct {
	Symbol      string                 `json:"symbol"`
	RunID       string                 `json:"run_id"`
	Bars        int                    `json:"bars"`
	Channel     *model.Channel         `json:"channel,omitempty"`
	Context     model.ExternalContext  `json:"context"`
	Decision    *strategy.Decision     `json:"decision,omitempty"`
	Signal      *model.Signal          `json:"signal"`
	TrendCross  calculator.CrossSignal `json:"trend_cross,omitempty"`
	Diagnostics calculator.Diagnostics `json:"diagnostics"`
	Duration    time.Duration          `json:"duration_ns"`
	Reason      string                 `json:"reason,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Err         error                  `json:"-"`
}

func (r *Result) fail(reason string, err error) *Result {
	r.Reason = reason
	r.Err = err
	r.Error = err.Error()
	return r
}

// Options configures a Scanner.
type Options struct {
	Params        strategy.Params
	PivotLookback int
	TrendShort    int
	TrendLong     int
	Workers       int
}

// Scanner runs the channel engine over symbols and reports the outcomes.
type Scanner struct {
	collector *collector.Collector
	opts      Options
	metrics   *metrics.Metrics
	recorder  recorder.Recorder
	sinks     []notifier.Sink
	logger    zerolog.Logger
}

// New creates a Scanner. rec may be nil.
func New(col *collector.Collector, opts Options, m *metrics.Metrics, rec recorder.Recorder, logger zerolog.Logger, sinks ...notifier.Sink) *Scanner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if m == nil {
		m = metrics.NewMetrics()
	}
	return &Scanner{
		collector: col,
		opts:      opts,
		metrics:   m,
		recorder:  rec,
		sinks:     sinks,
		logger:    logging.Component(logger, "scanner"),
	}
}

// Options returns the engine settings the scanner runs with.
func (s *Scanner) Options() Options { return s.opts }

// Recorder returns the scan journal.
func (s *Scanner) Recorder() recorder.Recorder { return s.recorder }

// Scan fetches symbol's data and runs the engine once. It never returns nil.
func (s *Scanner) Scan(ctx context.Context, runID, symbol string) *Result {
	start := time.Now()
	res := &Result{Symbol: symbol, RunID: runID}
	s.metrics.ScansTotal.Inc()
	defer func() {
		res.Duration = time.Since(start)
		s.metrics.ScanDuration.Observe(res.Duration.Seconds())
		if res.Err != nil {
			s.metrics.ScanFailures.WithLabelValues(res.Reason).Inc()
		}
	}()

	snap, err := s.collector.Gather(ctx, symbol)
	if err != nil {
		return res.fail(failureReason(err, metrics.ReasonFetch), err)
	}
	res.Bars = snap.Series.Len()
	res.Context = snap.Context

	d, ch, err := strategy.ComputeDecision(snap.Series, s.opts.PivotLookback, snap.Context, s.opts.Params)
	if err != nil {
		return res.fail(failureReason(err, metrics.ReasonChannel), err)
	}
	res.Channel = ch
	res.Decision = d
	res.Signal = d.Signal
	s.metrics.ChannelsTotal.WithLabelValues(string(ch.Status), string(ch.Type)).Inc()
	if res.Signal != nil {
		s.metrics.SignalsTotal.WithLabelValues(string(res.Signal.Direction)).Inc()
	}

	cross, err := calculator.TrendCross(snap.Series.Closes(), s.opts.TrendShort, s.opts.TrendLong)
	if err != nil {
		s.logger.Debug().Err(err).Str("symbol", symbol).Msg("trend cross skipped")
	} else {
		res.TrendCross = cross
	}
	if diag, err := calculator.Diagnose(snap.Series, calculator.DefaultRSIPeriod); err == nil {
		res.Diagnostics = diag
	}
	return res
}

func failureReason(err error, fallback string) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return metrics.ReasonCancel
	}
	return fallback
}

// ScanAll scans symbols concurrently, bounded by the configured worker count. Results
// come back in input order; a failing symbol never stops the others.
func (s *Scanner) ScanAll(ctx context.Context, runID string, symbols []string) []*Result {
	results := make([]*Result, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			results[i] = s.Scan(gctx, runID, symbol)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Cycle is one journaled scan of a symbol list.
type Cycle struct {
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []*Result `json:"results"`
}

// Signals returns the results that produced a signal.
func (c *Cycle) Signals() []*Result {
	var out []*Result
	for _, r := range c.Results {
		if r.Signal != nil {
			out = append(out, r)
		}
	}
	return out
}

// Failures returns the results that produced no channel.
func (c *Cycle) Failures() []*Result {
	var out []*Result
	for _, r := range c.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// Summary converts the cycle into the notifier's summary shape.
func (c *Cycle) Summary() notifier.CycleSummary {
	sum := notifier.CycleSummary{RunID: c.RunID, Scanned: len(c.Results), Failures: map[string]string{}}
	for _, r := range c.Signals() {
		sum.Alerts = append(sum.Alerts, alertFor(r))
	}
	for _, r := range c.Failures() {
		sum.Failures[r.Symbol] = r.Error
	}
	return sum
}

// RunCycle scans symbols under a fresh run ID, journals every result, delivers every
// signal to the sinks and journals the cycle itself.
func (s *Scanner) RunCycle(ctx context.Context, trigger string, symbols []string) *Cycle {
	c := &Cycle{RunID: uuid.NewString(), Trigger: trigger, StartedAt: time.Now().UTC()}
	log := s.logger.With().Str("run_id", c.RunID).Str("trigger", trigger).Logger()
	log.Info().Strs("symbols", symbols).Msg("scan cycle started")

	c.Results = s.ScanAll(ctx, c.RunID, symbols)
	c.FinishedAt = time.Now().UTC()

	for _, r := range c.Results {
		if r.Err != nil {
			log.Error().Err(r.Err).Str("symbol", r.Symbol).Str("reason", r.Reason).Msg("scan failed")
		}
		if err := s.recorder.RecordScan(toRecord(r, c.FinishedAt)); err != nil {
			log.Error().Err(err).Str("symbol", r.Symbol).Msg("record scan")
		}
		if r.Signal != nil {
			s.deliver(ctx, alertFor(r))
		}
	}

	signals, failures := len(c.Signals()), len(c.Failures())
	if err := s.recorder.RecordCycle(&recorder.CycleRecord{
		RunID:      c.RunID,
		Trigger:    trigger,
		StartedAt:  c.StartedAt,
		FinishedAt: c.FinishedAt,
		Symbols:    len(symbols),
		Signals:    signals,
		Failures:   failures,
	}); err != nil {
		log.Error().Err(err).Msg("record cycle")
	}

	s.metrics.CycleDuration.Observe(c.FinishedAt.Sub(c.StartedAt).Seconds())
	s.metrics.LastCycleSignals.Set(float64(signals))
	log.Info().Int("signals", signals).Int("failures", failures).
		Dur("elapsed", c.FinishedAt.Sub(c.StartedAt)).Msg("scan cycle finished")
	return c
}

func (s *Scanner) deliver(ctx context.Context, a *notifier.Alert) {
	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, a); err != nil {
			s.metrics.NotifyFailures.WithLabelValues(sink.Name()).Inc()
			s.logger.Error().Err(err).Str("sink", sink.Name()).Str("symbol", a.Symbol).Msg("deliver alert")
		}
	}
}

// DetectChannel fetches symbol's series and returns its channel read without the flow context.
func (s *Scanner) DetectChannel(ctx context.Context, symbol string) (*model.Channel, error) {
	series, err := s.collector.FetchSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	ch, err := calculator.DetectChannel(series.Closes(), s.opts.PivotLookback, s.opts.Params.Channel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	return ch, nil
}

func alertFor(r *Result) *notifier.Alert {
	return &notifier.Alert{
		RunID:      r.RunID,
		Symbol:     r.Symbol,
		Signal:     r.Signal,
		Channel:    r.Channel,
		Sentiment:  r.Context.Sentiment,
		GEX:        r.Context.GEX.Value,
		Unusual:    len(r.Context.UnusualTrades),
		TrendCross: string(r.TrendCross),
		RSI:        r.Diagnostics.RSI,
	}
}

func toRecord(r *Result, at time.Time) *recorder.ScanRecord {
	rec := &recorder.ScanRecord{
		RunID:      r.RunID,
		Symbol:     r.Symbol,
		ScannedAt:  at,
		Bars:       r.Bars,
		Sentiment:  r.Context.Sentiment,
		GEX:        r.Context.GEX.Value,
		Unusual:    len(r.Context.UnusualTrades),
		TrendCross: string(r.TrendCross),
		Error:      r.Error,
	}
	if ch := r.Channel; ch != nil {
		rec.Status = string(ch.Status)
		rec.Type = string(ch.Type)
		rec.Position = string(ch.Position)
		rec.SlopeDiff = ch.SlopeDiff
		rec.Contained = ch.Containment
		rec.SupportM, rec.SupportB = ch.Support.Slope, ch.Support.Intercept
		rec.ResistM, rec.ResistB = ch.Resistance.Slope, ch.Resistance.Intercept
	}
	if sig := r.Signal; sig != nil {
		rec.Direction = string(sig.Direction)
		rec.Confidence = sig.Confidence
		rec.Entry = sig.EntryZone
	}
	return rec
}
