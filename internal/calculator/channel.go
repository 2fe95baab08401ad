package calculator

import (
	"fmt"
	"math"

	"ChannelSentinel/internal/model"
)

// ChannelOptions holds the validation thresholds and the fitter settings.
type ChannelOptions struct {
	ParallelTolerance    float64    `yaml:"parallel_tolerance"`
	ContainmentThreshold float64    `yaml:"containment_threshold"`
	SlopeEpsilon         float64    `yaml:"slope_epsilon"`
	Fit                  FitOptions `yaml:"fit"`
}

// DefaultChannelOptions returns the documented defaults: 10% slope tolerance,
// more than 90% of closes inside the band.
func DefaultChannelOptions() ChannelOptions {
	return ChannelOptions{
		ParallelTolerance:    0.10,
		ContainmentThreshold: 0.90,
		SlopeEpsilon:         1e-9,
		Fit:                  DefaultFitOptions(),
	}
}

// ChannelCheck is the outcome of validating a pair of trendlines against a series.
type ChannelCheck struct {
	SlopeDiff   float64
	Parallel    bool
	Containment float64
	Contained   bool
	Valid       bool
}

// SlopeDifference is |upper - lower| relative to the lower slope. The lower slope is the
// denominator, clamped to eps; the measure is intentionally not symmetric.
func SlopeDifference(upper, lower model.Trendline, eps float64) float64 {
	return math.Abs(upper.Slope-lower.Slope) / math.Max(math.Abs(lower.Slope), eps)
}

// ContainmentFraction returns the share of values with lower(i) <= v <= upper(i).
func ContainmentFraction(upper, lower model.Trendline, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	within := 0
	for i, v := range values {
		x := float64(i)
		if v >= lower.ValueAt(x) && v <= upper.ValueAt(x) {
			within++
		}
	}
	return float64(within) / float64(len(values))
}

// ValidateChannel checks parallelism and containment. Both measures are always computed.
func ValidateChannel(upper, lower model.Trendline, values []float64, opts ChannelOptions) ChannelCheck {
	c := ChannelCheck{
		SlopeDiff:   SlopeDifference(upper, lower, opts.SlopeEpsilon),
		Containment: ContainmentFraction(upper, lower, values),
	}
	c.Parallel = c.SlopeDiff <= opts.ParallelTolerance
	c.Contained = c.Containment > opts.ContainmentThreshold
	c.Valid = c.Parallel && c.Contained
	return c
}

// ClassifyChannel derives the channel direction from the resistance slope.
func ClassifyChannel(upper model.Trendline) model.ChannelType {
	switch {
	case upper.Slope > 0:
		return model.ChannelAscending
	case upper.Slope < 0:
		return model.ChannelDescending
	default:
		return model.ChannelHorizontal
	}
}

// ClassifyPosition compares the price's distance to support and resistance. Ties are Middle.
func ClassifyPosition(price, support, resistance float64) model.Position {
	toSupport := math.Abs(price - support)
	toResistance := math.Abs(price - resistance)
	switch {
	case toSupport < toResistance:
		return model.PositionNearSupport
	case toResistance < toSupport:
		return model.PositionNearResistance
	default:
		return model.PositionMiddle
	}
}

// DetectChannel runs pivot extraction, trendline fitting and validation over values.
func DetectChannel(values []float64, lookback int, opts ChannelOptions) (*model.Channel, error) {
	pivots, err := IdentifyPivots(values, lookback)
	if err != nil {
		return nil, fmt.Errorf("identify pivots: %w", err)
	}
	upper, lower, err := FitTrendlines(values, pivots, opts.Fit)
	if err != nil {
		return nil, fmt.Errorf("fit trendlines: %w", err)
	}
	return BuildChannel(upper, lower, values, pivots, opts), nil
}

// BuildChannel assembles a Channel from already fitted lines.
func BuildChannel(upper, lower model.Trendline, values []float64, pivots model.PivotSet, opts ChannelOptions) *model.Channel {
	check := ValidateChannel(upper, lower, values, opts)

	ch := &model.Channel{
		Status:      model.ChannelInvalid,
		Type:        ClassifyChannel(upper),
		Support:     lower,
		Resistance:  upper,
		Position:    model.PositionMiddle,
		Pivots:      pivots,
		SlopeDiff:   check.SlopeDiff,
		Containment: check.Containment,
		LastIndex:   len(values) - 1,
	}
	if check.Valid {
		ch.Status = model.ChannelValid
		ch.QualityScore = 1.0
	}
	if len(values) > 0 {
		x := float64(ch.LastIndex)
		ch.LastClose = values[ch.LastIndex]
		ch.SupportValue = lower.ValueAt(x)
		ch.ResistanceValue = upper.ValueAt(x)
		ch.Position = ClassifyPosition(ch.LastClose, ch.SupportValue, ch.ResistanceValue)
	}
	return ch
}
