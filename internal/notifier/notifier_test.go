package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ChannelSentinel/internal/model"
)

func sampleAlert() *Alert {
	return &Alert{
		RunID:  "run-1",
		Symbol: "AAPL",
		Signal: &model.Signal{
			Ticker:     "AAPL",
			Direction:  model.DirectionLong,
			Confidence: 1,
			EntryZone:  96,
			Targets:    []*float64{nil, nil},
		},
		Channel: &model.Channel{
			Status:          model.ChannelValid,
			Type:            model.ChannelAscending,
			Position:        model.PositionNearSupport,
			SupportValue:    145.5,
			ResistanceValue: 153.5,
			LastClose:       145.5,
			Containment:     1,
		},
		Sentiment:  0.8,
		GEX:        120,
		Unusual:    1,
		TrendCross: "HOLD",
		RSI:        41.6,
	}
}

func TestFormatSignalAlert(t *testing.T) {
	msg := FormatSignalAlert(sampleAlert())
	for _, want := range []string{"LONG AAPL", "96.00", "Ascending", "Near Support", "+0.80", "100.0%", "RSI(14): 42"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in message:\n%s", want, msg)
		}
	}
}

func TestFormatCycleSummary(t *testing.T) {
	msg := FormatCycleSummary(CycleSummary{
		RunID:    "abc",
		Scanned:  3,
		Alerts:   []*Alert{sampleAlert()},
		Failures: map[string]string{"SPY": "timeout", "MSFT": "no pivots"},
	})
	if !strings.Contains(msg, "LONG AAPL @ 96.00") {
		t.Errorf("missing alert line:\n%s", msg)
	}
	if strings.Index(msg, "MSFT") > strings.Index(msg, "SPY") {
		t.Errorf("failures should be sorted:\n%s", msg)
	}
	if !strings.Contains(FormatCycleSummary(CycleSummary{Scanned: 1}), "无信号") {
		t.Error("expected empty-cycle marker")
	}
}

func newTestNotifier(srv *httptest.Server) *TelegramNotifier {
	n := NewTelegramNotifier("token", "42", "", zerolog.Nop())
	n.APIBase = srv.URL
	return n
}

func TestTelegramNotifier_Deliver(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottoken/sendMessage" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	if err := newTestNotifier(srv).Deliver(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["chat_id"] != "42" || got["parse_mode"] != "HTML" || !strings.Contains(got["text"], "AAPL") {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestTelegramNotifier_RetryThenSucceed(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := newTestNotifier(srv)
	if err := n.sendWithBackoff(context.Background(), "hi", 3, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}

	atomic.StoreInt32(&calls, -100)
	if err := n.sendWithBackoff(context.Background(), "hi", 1, time.Millisecond); err == nil {
		t.Error("expected error after exhausting retries")
	}
}

func TestTelegramNotifier_PollOnce(t *testing.T) {
	var replies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottoken/getUpdates":
			w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /scan AAPL "}},{"update_id":8}]}`))
		case "/bottoken/sendMessage":
			var p map[string]string
			body, _ := io.ReadAll(r.Body)
			json.Unmarshal(body, &p)
			replies = append(replies, p["text"])
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	n := newTestNotifier(srv)
	var commands []string
	next, err := n.pollOnce(context.Background(), srv.Client(), 0, func(_ context.Context, cmd string) string {
		commands = append(commands, cmd)
		return "ok: " + cmd
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != 9 {
		t.Errorf("expected next offset 9, got %d", next)
	}
	if len(commands) != 1 || commands[0] != "/scan AAPL" {
		t.Errorf("unexpected commands %v", commands)
	}
	if len(replies) != 1 || replies[0] != "ok: /scan AAPL" {
		t.Errorf("unexpected replies %v", replies)
	}
}

func TestEncodeAlert(t *testing.T) {
	payload, err := encodeAlert(sampleAlert())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	sig := decoded["signal"].(map[string]any)
	if sig["direction"] != "LONG" || sig["entry_price_zone"] != 96.0 || sig["stop_loss"] != nil {
		t.Errorf("unexpected signal payload %v", sig)
	}
}

func TestRedisPublisher(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	p, err := NewRedisPublisher(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0, "sentinel:test", zerolog.Nop())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer p.Close()

	if err := p.Deliver(ctx, sampleAlert()); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	latest, err := p.Latest(ctx, "AAPL")
	if err != nil || latest == nil || latest.Signal.EntryZone != 96 {
		t.Errorf("unexpected latest alert %+v, err %v", latest, err)
	}
}
