package strategy

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ChannelSentinel/internal/calculator"
	"ChannelSentinel/internal/model"
)

var zigzag = [8]float64{0, 2, 4, 2, 0, -2, -4, -2}

// ascendingSeries is a rising band with support at 96 + 0.5*i and resistance at 104 + 0.5*i.
// The final bar closes on support.
func ascendingSeries(n int) *model.PriceSeries {
	start := time.Date(2025, 1, 2, 14, 30, 0, 0, time.UTC)
	s := &model.PriceSeries{Symbol: "AAPL", Interval: "1h"}
	for i := 0; i < n; i++ {
		c := 100 + 0.5*float64(i) + zigzag[(i+3)%8]
		s.Bars = append(s.Bars, model.OHLCV{
			Time:  start.Add(time.Duration(i) * time.Hour),
			Open:  c,
			High:  c + 0.25,
			Low:   c - 0.25,
			Close: c,
		})
	}
	return s
}

func trade(t model.OptionType, premium int64) model.UnusualTrade {
	return model.UnusualTrade{Ticker: "AAPL", OptionType: t, Premium: decimal.NewFromInt(premium)}
}

func bullishContext() model.ExternalContext {
	return model.ExternalContext{
		Sentiment:     0.8,
		GEX:           model.GEXProfile{Value: 120},
		UnusualTrades: []model.UnusualTrade{trade(model.OptionCall, 600000)},
	}
}

func validChannel(typ model.ChannelType, pos model.Position) *model.Channel {
	return &model.Channel{
		Status:       model.ChannelValid,
		Type:         typ,
		Support:      model.Trendline{Slope: -0.5, Intercept: 140},
		Resistance:   model.Trendline{Slope: -0.5, Intercept: 150},
		QualityScore: 1.0,
		Position:     pos,
		LastIndex:    10,
	}
}

func TestComputeSignal_LongAtSupport(t *testing.T) {
	sig, ch, err := ComputeSignal(ascendingSeries(100), 5, bullishContext(), DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ch.IsValid() || ch.Type != model.ChannelAscending || ch.Position != model.PositionNearSupport {
		t.Fatalf("unexpected channel %s/%s/%s", ch.Status, ch.Type, ch.Position)
	}
	if sig == nil {
		t.Fatal("expected LONG signal, got nil")
	}
	if sig.Direction != model.DirectionLong {
		t.Errorf("expected LONG, got %s", sig.Direction)
	}
	if sig.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", sig.Confidence)
	}
	if sig.EntryZone != 96 {
		t.Errorf("expected entry at support intercept 96, got %v", sig.EntryZone)
	}
	if sig.StopLoss != nil || len(sig.Targets) != 2 || sig.Targets[0] != nil || sig.Targets[1] != nil {
		t.Errorf("expected empty stop loss and two empty targets, got %v %v", sig.StopLoss, sig.Targets)
	}
	if sig.Ticker != "AAPL" {
		t.Errorf("expected ticker AAPL, got %s", sig.Ticker)
	}
}

func TestComputeSignal_LineValueEntry(t *testing.T) {
	p := DefaultParams()
	p.Rules.EntryMode = EntryLineValue
	sig, _, err := ComputeSignal(ascendingSeries(100), 5, bullishContext(), p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig == nil || sig.EntryZone != 145.5 {
		t.Fatalf("expected entry 145.5 at the last bar, got %+v", sig)
	}
}

func TestComputeSignal_WeakSentimentRejected(t *testing.T) {
	ext := bullishContext()
	ext.Sentiment = 0.1
	sig, ch, err := ComputeSignal(ascendingSeries(100), 5, ext, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ch.IsValid() {
		t.Fatal("expected valid channel")
	}
	if sig != nil {
		t.Errorf("expected no signal, got %+v", sig)
	}
}

func TestComputeSignal_SpikeInvalidatesChannel(t *testing.T) {
	series := ascendingSeries(100)
	for i := 40; i <= 54; i++ {
		series.Bars[i].Close += 30
	}
	sig, ch, err := ComputeSignal(series, 5, bullishContext(), DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch.IsValid() {
		t.Errorf("expected invalid channel, containment %.3f", ch.Containment)
	}
	if sig != nil {
		t.Errorf("expected no signal, got %+v", sig)
	}
}

func TestComputeSignal_SingleSpikeKeepsChannel(t *testing.T) {
	series := ascendingSeries(100)
	series.Bars[50].Close += 1000
	sig, ch, err := ComputeSignal(series, 5, bullishContext(), DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ch.IsValid() || ch.Containment >= 1 {
		t.Errorf("one outlier must not break the channel: status %s, containment %.3f", ch.Status, ch.Containment)
	}
	if sig == nil || sig.Direction != model.DirectionLong {
		t.Errorf("expected LONG signal, got %+v", sig)
	}
}

func TestComputeDecision_NilSeries(t *testing.T) {
	_, _, err := ComputeDecision(nil, 5, bullishContext(), DefaultParams())
	if !errors.Is(err, calculator.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestComputeSignal_TooShort(t *testing.T) {
	_, _, err := ComputeSignal(ascendingSeries(1), 5, bullishContext(), DefaultParams())
	if err == nil {
		t.Fatal("expected error for a single bar")
	}
}

func TestEvaluate_Short(t *testing.T) {
	ch := validChannel(model.ChannelDescending, model.PositionNearResistance)
	ext := model.ExternalContext{
		Sentiment:     -0.8,
		GEX:           model.GEXProfile{Value: 50},
		UnusualTrades: []model.UnusualTrade{trade(model.OptionPut, 250000)},
	}
	d := Evaluate("SPY", ch, ext, DefaultRules())
	if d.Signal == nil || d.Signal.Direction != model.DirectionShort {
		t.Fatalf("expected SHORT, got %+v", d.Signal)
	}
	if d.Signal.EntryZone != 150 {
		t.Errorf("expected entry at resistance intercept 150, got %v", d.Signal.EntryZone)
	}

	r := DefaultRules()
	r.EntryMode = EntryLineValue
	if sig := Synthesize("SPY", ch, ext, r); sig == nil || sig.EntryZone != 145 {
		t.Errorf("expected line-value entry 145, got %+v", sig)
	}
}

func TestEvaluate_ClauseFailures(t *testing.T) {
	tests := []struct {
		name   string
		ch     *model.Channel
		mutate func(*model.ExternalContext)
		failed string
	}{
		{"descending channel", validChannel(model.ChannelDescending, model.PositionNearSupport), nil, "channel_type"},
		{"middle of band", validChannel(model.ChannelAscending, model.PositionMiddle), nil, "position"},
		{"sentiment at threshold", validChannel(model.ChannelAscending, model.PositionNearSupport),
			func(e *model.ExternalContext) { e.Sentiment = 0.5 }, "sentiment"},
		{"only puts", validChannel(model.ChannelAscending, model.PositionNearSupport),
			func(e *model.ExternalContext) {
				e.UnusualTrades = []model.UnusualTrade{trade(model.OptionPut, 100)}
			}, "unusual_calls"},
		{"no trades", validChannel(model.ChannelAscending, model.PositionNearSupport),
			func(e *model.ExternalContext) { e.UnusualTrades = nil }, "unusual_calls"},
		{"zero gex", validChannel(model.ChannelAscending, model.PositionNearSupport),
			func(e *model.ExternalContext) { e.GEX.Value = 0 }, "gex_positive"},
	}
	for _, tt := range tests {
		ext := bullishContext()
		if tt.mutate != nil {
			tt.mutate(&ext)
		}
		d := Evaluate("AAPL", tt.ch, ext, DefaultRules())
		if d.Signal != nil {
			t.Errorf("%s: expected no signal, got %+v", tt.name, d.Signal)
			continue
		}
		var failed []string
		for _, c := range d.Long {
			if !c.Met {
				failed = append(failed, c.Name)
			}
		}
		if len(failed) != 1 || failed[0] != tt.failed {
			t.Errorf("%s: expected only %s to fail, got %v", tt.name, tt.failed, failed)
		}
	}
}

func TestEvaluate_HorizontalAllowsBothSides(t *testing.T) {
	long := Synthesize("AAPL", validChannel(model.ChannelHorizontal, model.PositionNearSupport), bullishContext(), DefaultRules())
	if long == nil || long.Direction != model.DirectionLong {
		t.Errorf("expected LONG in horizontal channel, got %+v", long)
	}

	ext := model.ExternalContext{
		Sentiment:     -0.9,
		GEX:           model.GEXProfile{Value: 1},
		UnusualTrades: []model.UnusualTrade{trade(model.OptionCall, 1), trade(model.OptionPut, 1)},
	}
	short := Synthesize("AAPL", validChannel(model.ChannelHorizontal, model.PositionNearResistance), ext, DefaultRules())
	if short == nil || short.Direction != model.DirectionShort {
		t.Errorf("expected SHORT in horizontal channel, got %+v", short)
	}
}

func TestEvaluate_InvalidChannelNeverSignals(t *testing.T) {
	positions := []model.Position{model.PositionNearSupport, model.PositionNearResistance}
	types := []model.ChannelType{model.ChannelAscending, model.ChannelDescending, model.ChannelHorizontal}
	for _, pos := range positions {
		for _, typ := range types {
			for _, sentiment := range []float64{0.9, -0.9} {
				for _, gex := range []float64{100, -100} {
					for _, ot := range []model.OptionType{model.OptionCall, model.OptionPut} {
						ch := validChannel(typ, pos)
						ch.Status = model.ChannelInvalid
						ch.QualityScore = 0
						ext := model.ExternalContext{
							Sentiment:     sentiment,
							GEX:           model.GEXProfile{Value: gex},
							UnusualTrades: []model.UnusualTrade{trade(ot, 1000)},
						}
						d := Evaluate("AAPL", ch, ext, DefaultRules())
						if d.Signal != nil || d.ChannelValid || d.Long != nil || d.Short != nil {
							t.Fatalf("%s/%s sentiment=%v gex=%v %s: expected empty decision, got %+v",
								typ, pos, sentiment, gex, ot, d)
						}
					}
				}
			}
		}
	}
	if sig := Synthesize("AAPL", nil, bullishContext(), DefaultRules()); sig != nil {
		t.Errorf("expected nil signal for nil channel, got %+v", sig)
	}
}

func TestComputeSignal_Idempotent(t *testing.T) {
	series := ascendingSeries(100)
	series.Bars[20].Close += 3
	first, ch1, err := ComputeSignal(series, 5, bullishContext(), DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, ch2, err := ComputeSignal(series, 5, bullishContext(), DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) || !reflect.DeepEqual(ch1, ch2) {
		t.Errorf("expected identical outputs across runs")
	}
}

func TestRules_Validate(t *testing.T) {
	if err := DefaultRules().Validate(); err != nil {
		t.Errorf("default rules should validate: %v", err)
	}
	if err := (Rules{SentimentThreshold: 1.5, EntryMode: EntryIntercept}).Validate(); err == nil {
		t.Error("expected error for threshold above 1")
	}
	if err := (Rules{SentimentThreshold: 0.5, EntryMode: "midpoint"}).Validate(); err == nil {
		t.Error("expected error for unknown entry mode")
	}
}

func TestComputeDecision_KeepsClauses(t *testing.T) {
	ext := bullishContext()
	ext.GEX.Value = -5
	d, ch, err := ComputeDecision(ascendingSeries(100), 5, ext, DefaultParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.ChannelValid || !ch.IsValid() || d.Signal != nil {
		t.Fatalf("expected valid channel without signal, got %+v", d)
	}
	if len(d.Long) != 5 || d.Long[4].Name != "gex_positive" || d.Long[4].Met {
		t.Errorf("expected failing gex clause, got %+v", d.Long)
	}
}
