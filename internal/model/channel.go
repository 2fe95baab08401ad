package model

// Trendline is a line fit in bar-index space, not time space.
type Trendline struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// ValueAt evaluates the line at a bar index.
func (t Trendline) ValueAt(index float64) float64 {
	return t.Slope*index + t.Intercept
}

// PivotSet holds swing-high and swing-low bar indices, each strictly increasing.
type PivotSet struct {
	Highs []int `json:"highs"`
	Lows  []int `json:"lows"`
}

// ChannelStatus is the validity verdict of a channel.
type ChannelStatus string

const (
	ChannelValid   ChannelStatus = "Valid"
	ChannelInvalid ChannelStatus = "Invalid"
)

// ChannelType is the geometric direction of a channel, taken from the resistance slope.
type ChannelType string

const (
	ChannelAscending  ChannelType = "Ascending"
	ChannelDescending ChannelType = "Descending"
	ChannelHorizontal ChannelType = "Horizontal"
)

// Position is where the latest close sits relative to the band.
type Position string

const (
	PositionNearSupport    Position = "Near Support"
	PositionNearResistance Position = "Near Resistance"
	PositionMiddle         Position = "Middle"
)

// Channel is the full read of one price series. It is rebuilt on every detection.
type Channel struct {
	Status       ChannelStatus `json:"status"`
	Type         ChannelType   `json:"type"`
	Support      Trendline     `json:"support"`
	Resistance   Trendline     `json:"resistance"`
	QualityScore float64       `json:"quality_score"`
	Position     Position      `json:"position"`

	// Diagnostics
	Pivots          PivotSet `json:"pivots"`
	SlopeDiff       float64  `json:"slope_diff"`
	Containment     float64  `json:"containment"`
	LastIndex       int      `json:"last_index"`
	LastClose       float64  `json:"last_close"`
	SupportValue    float64  `json:"support_value"`
	ResistanceValue float64  `json:"resistance_value"`
}

// IsValid reports whether the channel passed validation.
func (c *Channel) IsValid() bool {
	return c != nil && c.Status == ChannelValid
}
