package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"ChannelSentinel/internal/logging"
)

// SQLiteRecorder persists scan outcomes to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the diagnostics server can read while the scanner writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logging.Component(logger, "recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scan_results (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL,
			symbol          TEXT NOT NULL,
			timestamp       INTEGER NOT NULL,
			bars            INTEGER,
			status          TEXT,
			channel_type    TEXT,
			position        TEXT,
			slope_diff      REAL,
			containment     REAL,
			support_slope   REAL,
			support_icpt    REAL,
			resist_slope    REAL,
			resist_icpt     REAL,
			sentiment       REAL,
			gex             REAL,
			unusual_trades  INTEGER,
			trend_cross     TEXT,
			direction       TEXT,
			confidence      REAL,
			entry           REAL,
			error           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_ts ON scan_results(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_symbol ON scan_results(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS scan_cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL UNIQUE,
			trigger_src TEXT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			symbols     INTEGER,
			signals     INTEGER,
			failures    INTEGER
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordScan(rec *ScanRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := rec.ScannedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO scan_results
		(run_id, symbol, timestamp, bars, status, channel_type, position,
		 slope_diff, containment, support_slope, support_icpt, resist_slope, resist_icpt,
		 sentiment, gex, unusual_trades, trend_cross,
		 direction, confidence, entry, error)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.RunID, rec.Symbol, ts.Unix(), rec.Bars, rec.Status, rec.Type, rec.Position,
		rec.SlopeDiff, rec.Contained, rec.SupportM, rec.SupportB, rec.ResistM, rec.ResistB,
		rec.Sentiment, rec.GEX, rec.Unusual, rec.TrendCross,
		rec.Direction, rec.Confidence, rec.Entry, rec.Error,
	)
	return err
}

func (r *SQLiteRecorder) RecordCycle(rec *CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO scan_cycles
		(run_id, trigger_src, started_at, finished_at, symbols, signals, failures)
		VALUES (?,?,?,?,?,?,?)`,
		rec.RunID, rec.Trigger, rec.StartedAt.Unix(), rec.FinishedAt.Unix(),
		rec.Symbols, rec.Signals, rec.Failures,
	)
	return err
}

func (r *SQLiteRecorder) RecentSignals(limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT run_id, symbol, timestamp, bars, status, channel_type, position,
			slope_diff, containment, support_slope, support_icpt, resist_slope, resist_icpt,
			sentiment, gex, unusual_trades, trend_cross, direction, confidence, entry
		FROM scan_results
		WHERE direction <> ''
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent signals: %w", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var ts int64
		if err := rows.Scan(&rec.RunID, &rec.Symbol, &ts, &rec.Bars, &rec.Status, &rec.Type, &rec.Position,
			&rec.SlopeDiff, &rec.Contained, &rec.SupportM, &rec.SupportB, &rec.ResistM, &rec.ResistB,
			&rec.Sentiment, &rec.GEX, &rec.Unusual, &rec.TrendCross, &rec.Direction, &rec.Confidence, &rec.Entry); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.ScannedAt = time.Unix(ts, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
