package model

// Direction is the side of a trade recommendation.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Signal is the output of one synthesis call. A nil *Signal means no signal.
// StopLoss and Targets are left for downstream risk and execution.
type Signal struct {
	Ticker     string     `json:"ticker"`
	Direction  Direction  `json:"direction"`
	Confidence float64    `json:"confidence_score"`
	EntryZone  float64    `json:"entry_price_zone"`
	StopLoss   *float64   `json:"stop_loss"`
	Targets    []*float64 `json:"targets"`
}
