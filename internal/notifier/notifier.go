package notifier

import (
	"context"

	"ChannelSentinel/internal/model"
)

// Alert is one signal worth telling someone about.
type Alert struct {
	RunID      string         `json:"run_id"`
	Symbol     string         `json:"symbol"`
	Signal     *model.Signal  `json:"signal"`
	Channel    *model.Channel `json:"channel"`
	Sentiment  float64        `json:"sentiment"`
	GEX        float64        `json:"gex"`
	Unusual    int            `json:"unusual_trades"`
	TrendCross string         `json:"trend_cross,omitempty"`
	RSI        float64        `json:"rsi"`
}

// Sink delivers alerts to one destination.
type Sink interface {
	Deliver(ctx context.Context, a *Alert) error
	Name() string
}
