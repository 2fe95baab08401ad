package strategy

import (
	"fmt"

	"ChannelSentinel/internal/calculator"
	"ChannelSentinel/internal/model"
)

// Params bundles everything the engine needs besides its inputs.
type Params struct {
	Channel calculator.ChannelOptions `yaml:"channel"`
	Rules   Rules                     `yaml:"rules"`
}

// DefaultParams returns the default channel options and rules.
func DefaultParams() Params {
	return Params{
		Channel: calculator.DefaultChannelOptions(),
		Rules:   DefaultRules(),
	}
}

// Decision is the full record of one synthesis call.
type Decision struct {
	Ticker       string        `json:"ticker"`
	ChannelValid bool          `json:"channel_valid"`
	Long         []Clause      `json:"long,omitempty"`
	Short        []Clause      `json:"short,omitempty"`
	Signal       *model.Signal `json:"signal"`
}

// Evaluate applies the rule table to a channel and its external context.
// An invalid channel yields no signal and no clauses.
func Evaluate(ticker string, ch *model.Channel, ext model.ExternalContext, r Rules) *Decision {
	d := &Decision{Ticker: ticker}
	if !ch.IsValid() {
		return d
	}
	d.ChannelValid = true

	d.Long = longClauses(ch, ext, r)
	d.Short = shortClauses(ch, ext, r)

	// NearSupport and NearResistance are exclusive, so at most one side can hold.
	switch {
	case allMet(d.Long):
		d.Signal = newSignal(ticker, model.DirectionLong, ch, ch.Support, r)
	case allMet(d.Short):
		d.Signal = newSignal(ticker, model.DirectionShort, ch, ch.Resistance, r)
	}
	return d
}

// Synthesize returns the signal for a channel and its external context, or nil.
func Synthesize(ticker string, ch *model.Channel, ext model.ExternalContext, r Rules) *model.Signal {
	return Evaluate(ticker, ch, ext, r).Signal
}

func newSignal(ticker string, dir model.Direction, ch *model.Channel, line model.Trendline, r Rules) *model.Signal {
	entry := line.Intercept
	if r.EntryMode == EntryLineValue {
		entry = line.ValueAt(float64(ch.LastIndex))
	}
	return &model.Signal{
		Ticker:     ticker,
		Direction:  dir,
		Confidence: ch.QualityScore,
		EntryZone:  entry,
		Targets:    []*float64{nil, nil},
	}
}

// ComputeSignal detects the channel on series and synthesizes the signal in one call.
// It returns the channel as well so callers can report why no signal was produced.
func ComputeSignal(series *model.PriceSeries, lookback int, ext model.ExternalContext, p Params) (*model.Signal, *model.Channel, error) {
	d, ch, err := ComputeDecision(series, lookback, ext, p)
	if err != nil {
		return nil, nil, err
	}
	return d.Signal, ch, nil
}

// ComputeDecision is ComputeSignal with the evaluated clauses kept.
func ComputeDecision(series *model.PriceSeries, lookback int, ext model.ExternalContext, p Params) (*Decision, *model.Channel, error) {
	if series == nil {
		return nil, nil, fmt.Errorf("nil price series: %w", calculator.ErrInsufficientData)
	}
	ch, err := calculator.DetectChannel(series.Closes(), lookback, p.Channel)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", series.Symbol, err)
	}
	return Evaluate(series.Symbol, ch, ext, p.Rules), ch, nil
}
