package strategy

import (
	"fmt"

	"ChannelSentinel/internal/model"
)

// EntryMode selects how the entry price is read off the channel line.
type EntryMode string

const (
	// EntryIntercept uses the line's intercept, i.e. its value at bar 0. This ignores slope drift
	// and is kept because downstream consumers were built against it.
	EntryIntercept EntryMode = "intercept"
	// EntryLineValue evaluates the line at the latest bar.
	EntryLineValue EntryMode = "line_value"
)

// Rules are the tunable thresholds of the synthesizer.
type Rules struct {
	SentimentThreshold float64   `yaml:"sentiment_threshold"`
	EntryMode          EntryMode `yaml:"entry_mode"`
}

// DefaultRules returns the standard rule set: |sentiment| above 0.5, intercept entry.
func DefaultRules() Rules {
	return Rules{
		SentimentThreshold: 0.5,
		EntryMode:          EntryIntercept,
	}
}

// Validate checks the rule values.
func (r Rules) Validate() error {
	if r.SentimentThreshold < 0 || r.SentimentThreshold > 1 {
		return fmt.Errorf("sentiment_threshold must be within [0, 1], got %.3f", r.SentimentThreshold)
	}
	switch r.EntryMode {
	case EntryIntercept, EntryLineValue:
		return nil
	default:
		return fmt.Errorf("unknown entry_mode %q", r.EntryMode)
	}
}

// Clause is one boolean condition of a direction rule.
type Clause struct {
	Name       string `json:"name"`
	Met        bool   `json:"met"`
	Commentary string `json:"commentary"`
}

func allMet(clauses []Clause) bool {
	for _, c := range clauses {
		if !c.Met {
			return false
		}
	}
	return true
}

func longClauses(ch *model.Channel, ext model.ExternalContext, r Rules) []Clause {
	return []Clause{
		{
			Name:       "channel_type",
			Met:        ch.Type == model.ChannelAscending || ch.Type == model.ChannelHorizontal,
			Commentary: string(ch.Type),
		},
		{
			Name:       "position",
			Met:        ch.Position == model.PositionNearSupport,
			Commentary: string(ch.Position),
		},
		{
			Name:       "sentiment",
			Met:        ext.Sentiment > r.SentimentThreshold,
			Commentary: fmt.Sprintf("%+.2f > %+.2f", ext.Sentiment, r.SentimentThreshold),
		},
		{
			Name:       "unusual_calls",
			Met:        ext.HasOptionType(model.OptionCall),
			Commentary: fmt.Sprintf("%d trades", len(ext.UnusualTrades)),
		},
		{
			Name:       "gex_positive",
			Met:        ext.GEX.Value > 0,
			Commentary: fmt.Sprintf("gex=%.2f", ext.GEX.Value),
		},
	}
}

func shortClauses(ch *model.Channel, ext model.ExternalContext, r Rules) []Clause {
	return []Clause{
		{
			Name:       "channel_type",
			Met:        ch.Type == model.ChannelDescending || ch.Type == model.ChannelHorizontal,
			Commentary: string(ch.Type),
		},
		{
			Name:       "position",
			Met:        ch.Position == model.PositionNearResistance,
			Commentary: string(ch.Position),
		},
		{
			Name:       "sentiment",
			Met:        ext.Sentiment < -r.SentimentThreshold,
			Commentary: fmt.Sprintf("%+.2f < %+.2f", ext.Sentiment, -r.SentimentThreshold),
		},
		{
			Name:       "unusual_puts",
			Met:        ext.HasOptionType(model.OptionPut),
			Commentary: fmt.Sprintf("%d trades", len(ext.UnusualTrades)),
		},
		{
			Name:       "gex_positive",
			Met:        ext.GEX.Value > 0,
			Commentary: fmt.Sprintf("gex=%.2f", ext.GEX.Value),
		},
	}
}
