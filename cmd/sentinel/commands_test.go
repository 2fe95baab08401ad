package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestPresetsCmd(t *testing.T) {
	out, err := execute(t, "presets")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(out, "\n"); got != 5 {
		t.Errorf("expected 5 presets, got %d lines:\n%s", got, out)
	}
}

func TestConfigValidateCmd(t *testing.T) {
	good := writeConfig(t, "watchlist: [AAPL, MSFT]\ndata_source:\n  provider: mock\n")
	out, err := execute(t, "config", "validate", "--config", good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "config OK: 2 symbols") {
		t.Errorf("unexpected output %q", out)
	}

	bad := writeConfig(t, "data_source:\n  provider: carrier_pigeon\n")
	if _, err := execute(t, "config", "validate", "--config", bad); err == nil {
		t.Error("expected validation error")
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	path := writeConfig(t, "telegram:\n  bot_token: secret-token\n  chat_id: \"42\"\n")
	out, err := execute(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(out, "secret-token") || !strings.Contains(out, "******") {
		t.Errorf("bot token not masked:\n%s", out)
	}
}

func TestScanCmd_Mock(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, "watchlist: [AAPL]\n"+
		"data_source:\n  provider: mock\n"+
		"database:\n  sqlite_path: "+filepath.Join(dir, "scan.db")+"\n"+
		"log:\n  level: error\n")

	out, err := execute(t, "scan", "--config", path, "aapl", "msft")
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}
	var cycle struct {
		Trigger string `json:"trigger"`
		Results []struct {
			Symbol string `json:"symbol"`
			Signal *struct {
				Direction string `json:"direction"`
			} `json:"signal"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(out), &cycle); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if cycle.Trigger != "manual" || len(cycle.Results) != 2 {
		t.Fatalf("unexpected cycle %+v", cycle)
	}
	if r := cycle.Results[0]; r.Symbol != "AAPL" || r.Signal == nil || r.Signal.Direction != "LONG" {
		t.Errorf("expected a LONG AAPL signal, got %+v", r)
	}
	// the demo feed only covers the watchlist
	if r := cycle.Results[1]; r.Symbol != "MSFT" || r.Signal != nil {
		t.Errorf("MSFT has no flow and must not signal, got %+v", r)
	}
	if _, err := os.Stat(filepath.Join(dir, "scan.db")); err != nil {
		t.Errorf("journal not created: %v", err)
	}
}
