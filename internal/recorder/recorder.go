package recorder

import "time"

// ScanRecord is the journal row of one per-symbol scan.
type ScanRecord struct {
	RunID      string    `json:"run_id"`
	Symbol     string    `json:"symbol"`
	ScannedAt  time.Time `json:"scanned_at"`
	Bars       int       `json:"bars"`
	Status     string    `json:"status,omitempty"` // channel status, empty when the scan failed before detection
	Type       string    `json:"type,omitempty"`
	Position   string    `json:"position,omitempty"`
	SlopeDiff  float64   `json:"slope_diff"`
	Contained  float64   `json:"containment"`
	SupportM   float64   `json:"support_slope"`
	SupportB   float64   `json:"support_intercept"`
	ResistM    float64   `json:"resistance_slope"`
	ResistB    float64   `json:"resistance_intercept"`
	Sentiment  float64   `json:"sentiment"`
	GEX        float64   `json:"gex"`
	Unusual    int       `json:"unusual_trades"`
	TrendCross string    `json:"trend_cross,omitempty"`
	Direction  string    `json:"direction,omitempty"` // empty when no signal
	Confidence float64   `json:"confidence"`
	Entry      float64   `json:"entry"`
	Error      string    `json:"error,omitempty"`
}

// CycleRecord summarizes one watchlist scan.
type CycleRecord struct {
	RunID      string
	Trigger    string // "cron", "manual", "telegram", "http"
	StartedAt  time.Time
	FinishedAt time.Time
	Symbols    int
	Signals    int
	Failures   int
}

// Recorder journals scan outcomes for later analysis.
type Recorder interface {
	RecordScan(rec *ScanRecord) error
	RecordCycle(rec *CycleRecord) error
	// RecentSignals returns the latest scans that produced a signal, newest first.
	RecentSignals(limit int) ([]ScanRecord, error)
	Close() error
}
