package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OptionType is the contract side of an options trade.
type OptionType string

const (
	OptionCall OptionType = "call"
	OptionPut  OptionType = "put"
)

// UnusualTrade is one flagged options transaction.
type UnusualTrade struct {
	ID          string          `json:"id"`
	Ticker      string          `json:"ticker"`
	OptionType  OptionType      `json:"type"`
	Premium     decimal.Decimal `json:"total_premium"`
	CallPremium decimal.Decimal `json:"call_premium"`
	PutPremium  decimal.Decimal `json:"put_premium"`
	Strike      decimal.Decimal `json:"strike"`
	Expiry      string          `json:"expiry"`
	Side        string          `json:"side"`
	Size        int64           `json:"total_size"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

// GEXProfile is a simplified gamma exposure reading. The zero value is the fallback on fetch failure.
type GEXProfile struct {
	Value     float64 `json:"gex"`
	FlipPoint float64 `json:"flip_point"`
}

// ExternalContext bundles the non-price inputs of one synthesis call.
type ExternalContext struct {
	Sentiment     float64        `json:"sentiment"`
	GEX           GEXProfile     `json:"gex"`
	UnusualTrades []UnusualTrade `json:"unusual_trades"`
}

// HasOptionType reports whether any unusual trade is of the given type.
func (c ExternalContext) HasOptionType(t OptionType) bool {
	for _, tr := range c.UnusualTrades {
		if tr.OptionType == t {
			return true
		}
	}
	return false
}
