package notifier

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ChannelSentinel/internal/model"
)

// FormatSignalAlert formats a signal into a Telegram message.
func FormatSignalAlert(a *Alert) string {
	var b strings.Builder

	icon := "🟢"
	if a.Signal.Direction == model.DirectionShort {
		icon = "🔴"
	}
	b.WriteString(fmt.Sprintf("%s <b>%s %s</b> | %s\n\n", icon, a.Signal.Direction, a.Symbol, time.Now().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("入场区间: %.2f\n", a.Signal.EntryZone))
	b.WriteString(fmt.Sprintf("置信度: %.2f\n", a.Signal.Confidence))

	if ch := a.Channel; ch != nil {
		b.WriteString(fmt.Sprintf("\n📐 <b>通道:</b> %s | %s\n", ch.Type, ch.Position))
		b.WriteString(fmt.Sprintf("  支撑: %.2f | 阻力: %.2f | 收盘: %.2f\n", ch.SupportValue, ch.ResistanceValue, ch.LastClose))
		b.WriteString(fmt.Sprintf("  斜率差: %.1f%% | 包含率: %.1f%%\n", ch.SlopeDiff*100, ch.Containment*100))
	}

	b.WriteString(fmt.Sprintf("\n🐋 <b>期权流:</b> 情绪 %+.2f | GEX %.2f | 异动 %d 笔\n", a.Sentiment, a.GEX, a.Unusual))
	if a.TrendCross != "" {
		b.WriteString(fmt.Sprintf("均线交叉: %s\n", a.TrendCross))
	}
	if a.RSI > 0 {
		b.WriteString(fmt.Sprintf("RSI(14): %.0f\n", a.RSI))
	}
	return b.String()
}

// FormatChannel formats a channel read for display.
func FormatChannel(symbol string, ch *model.Channel) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📐 <b>%s 通道</b>\n\n", symbol))
	b.WriteString(fmt.Sprintf("状态: %s\n", ch.Status))
	b.WriteString(fmt.Sprintf("类型: %s\n", ch.Type))
	b.WriteString(fmt.Sprintf("位置: %s\n", ch.Position))
	b.WriteString(fmt.Sprintf("阻力线: y = %.4f·x %+.2f\n", ch.Resistance.Slope, ch.Resistance.Intercept))
	b.WriteString(fmt.Sprintf("支撑线: y = %.4f·x %+.2f\n", ch.Support.Slope, ch.Support.Intercept))
	b.WriteString(fmt.Sprintf("斜率差: %.1f%% | 包含率: %.1f%%\n", ch.SlopeDiff*100, ch.Containment*100))
	b.WriteString(fmt.Sprintf("枢轴: %d 高 / %d 低\n", len(ch.Pivots.Highs), len(ch.Pivots.Lows)))
	return b.String()
}

// CycleSummary is the input of FormatCycleSummary.
type CycleSummary struct {
	RunID    string
	Scanned  int
	Alerts   []*Alert
	Failures map[string]string // symbol -> error
}

// FormatCycleSummary formats the outcome of one watchlist scan.
func FormatCycleSummary(s CycleSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>扫描完成</b> | %d 个标的\n", s.Scanned))
	b.WriteString(fmt.Sprintf("run: <code>%s</code>\n\n", s.RunID))

	if len(s.Alerts) == 0 {
		b.WriteString("无信号\n")
	}
	for _, a := range s.Alerts {
		b.WriteString(fmt.Sprintf("  %s %s @ %.2f\n", a.Signal.Direction, a.Symbol, a.Signal.EntryZone))
	}
	if len(s.Failures) > 0 {
		b.WriteString("\n❌ <b>失败:</b>\n")
		symbols := make([]string, 0, len(s.Failures))
		for sym := range s.Failures {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			b.WriteString(fmt.Sprintf("  %s: %s\n", sym, s.Failures[sym]))
		}
	}
	return b.String()
}
