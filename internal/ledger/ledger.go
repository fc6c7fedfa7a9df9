// Package ledger records finished batch runs in a local SQLite database
// so operators can audit what was converted, when, and with what
// outcome.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/docucast/docucast/internal/config"
)

// Record is one completed (or failed) document run.
type Record struct {
	ID        int64
	RunID     string
	Source    string
	Status    string // succeeded, failed
	AudioPath string
	Duration  time.Duration
	Warnings  int
	Error     string
	CreatedAt time.Time
}

// Ledger wraps the SQLite-backed run history. A disabled ledger is a
// valid zero-cost instance whose methods are no-ops.
type Ledger struct {
	db    *sql.DB
	cfg   config.LedgerConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the ledger according to config. Retention is applied
// on open.
func Open(ctx context.Context, cfg config.LedgerConfig, log *slog.Logger) (*Ledger, error) {
	if !cfg.Enabled {
		return &Ledger{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	l := &Ledger{db: db, cfg: cfg, log: log, clock: time.Now}
	if err := l.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := l.Prune(ctx); err != nil {
		log.Warn("ledger prune on open failed", slog.String("error", err.Error()))
	}
	return l, nil
}

func (l *Ledger) initSchema(ctx context.Context) error {
	if l.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    source TEXT NOT NULL,
    status TEXT NOT NULL,
    audio_path TEXT,
    duration_ms INTEGER NOT NULL,
    warnings INTEGER NOT NULL,
    error TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`
	_, err := l.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Append writes one run record.
func (l *Ledger) Append(ctx context.Context, rec Record) error {
	if l.db == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = l.clock().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, source, status, audio_path, duration_ms, warnings, error, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Source, rec.Status, rec.AudioPath,
		rec.Duration.Milliseconds(), rec.Warnings, rec.Error, rec.CreatedAt)
	return err
}

// List retrieves up to limit records ordered newest first.
func (l *Ledger) List(ctx context.Context, limit int) ([]Record, error) {
	if l.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, run_id, source, status, audio_path, duration_ms, warnings, error, created_at
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var durationMS int64
		var created string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Source, &r.Status, &r.AudioPath, &durationMS, &r.Warnings, &r.Error, &created); err != nil {
			return nil, err
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			r.CreatedAt = ts
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Prune deletes records older than the configured retention window.
func (l *Ledger) Prune(ctx context.Context) error {
	if l.db == nil || l.cfg.RetentionDays <= 0 {
		return nil
	}
	cutoff := l.clock().Add(-time.Duration(l.cfg.RetentionDays) * 24 * time.Hour)
	_, err := l.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff.UTC())
	return err
}
