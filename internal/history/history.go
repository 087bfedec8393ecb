// Package history records update runs in a local SQLite database so that
// past runs can be inspected after the output files have been overwritten.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Status is the terminal state of one dataset run.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Run is one dataset's processing record.
type Run struct {
	ID         string
	Dataset    string
	Source     string // "soda" or "csv"
	Status     Status
	Rows       int
	Folded     int
	Skipped    int
	Blocks     int
	Bytes      int
	OutputFile string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store persists run history in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "history: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "history: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	dataset     TEXT NOT NULL,
	source      TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	rows        INTEGER NOT NULL DEFAULT 0,
	folded      INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	blocks      INTEGER NOT NULL DEFAULT 0,
	bytes       INTEGER NOT NULL DEFAULT 0,
	output_file TEXT,
	error       TEXT,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_dataset ON runs(dataset);
CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
`

// Migrate creates the schema if missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "history: migrate")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun inserts one finished run, assigning it an id.
func (s *Store) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, dataset, source, status, rows, folded, skipped, blocks, bytes, output_file, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Dataset, run.Source, string(run.Status), run.Rows, run.Folded, run.Skipped,
		run.Blocks, run.Bytes, run.OutputFile, run.Error, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "history: insert run %s", run.Dataset)
	}
	return run.ID, nil
}

// RecentRuns returns the most recent runs, newest first. A dataset filter
// of "" returns runs for all datasets.
func (s *Store) RecentRuns(ctx context.Context, dataset string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, dataset, source, status, rows, folded, skipped, blocks, bytes, output_file, error, started_at, finished_at
		FROM runs`
	args := []any{}
	if dataset != "" {
		query += ` WHERE dataset = ?`
		args = append(args, dataset)
	}
	query += ` ORDER BY finished_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "history: query runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []Run
	for rows.Next() {
		var r Run
		var status string
		if err := rows.Scan(&r.ID, &r.Dataset, &r.Source, &status, &r.Rows, &r.Folded, &r.Skipped,
			&r.Blocks, &r.Bytes, &r.OutputFile, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "history: scan run")
		}
		r.Status = Status(status)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "history: iterate runs")
}

// LastRun returns the newest run for a dataset, or nil when none exists.
func (s *Store) LastRun(ctx context.Context, dataset string) (*Run, error) {
	runs, err := s.RecentRuns(ctx, dataset, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
