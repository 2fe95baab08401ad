package flow

import (
	"github.com/shopspring/decimal"

	"ChannelSentinel/internal/model"
)

// Sentiment is (call premium - put premium) / (call premium + put premium) over trades,
// in [-1, 1]. It is 0 when there are no trades or the total premium is zero.
//
// A trade carrying explicit call/put premium fields contributes those. Otherwise its total
// premium is attributed to its option type.
func Sentiment(trades []model.UnusualTrade) float64 {
	calls, puts := PremiumSplit(trades)
	total := calls.Add(puts)
	if total.IsZero() {
		return 0
	}
	s, _ := calls.Sub(puts).Div(total).Float64()
	return s
}

// PremiumSplit sums call and put premium over trades.
func PremiumSplit(trades []model.UnusualTrade) (calls, puts decimal.Decimal) {
	for _, t := range trades {
		if !t.CallPremium.IsZero() || !t.PutPremium.IsZero() {
			calls = calls.Add(t.CallPremium)
			puts = puts.Add(t.PutPremium)
			continue
		}
		switch t.OptionType {
		case model.OptionCall:
			calls = calls.Add(t.Premium)
		case model.OptionPut:
			puts = puts.Add(t.Premium)
		}
	}
	return calls, puts
}
