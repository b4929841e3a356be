package probe

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	backend    TEXT NOT NULL,
	grid       TEXT NOT NULL,
	dt         REAL NOT NULL,
	steps      INTEGER NOT NULL,
	source     TEXT NOT NULL,
	probe      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS samples (
	run_id TEXT NOT NULL REFERENCES runs(id),
	step   INTEGER NOT NULL,
	time_s REAL NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (run_id, step)
);`

// Store persists probe traces in SQLite, one row per run and per sample.
type Store struct {
	db *sql.DB
}

// RunInfo describes a run for the runs table.
type RunInfo struct {
	Backend string
	Grid    string
	Dt      float64
	Steps   int
	Source  string
	Probe   string
}

// OpenStore opens or creates the database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Begin registers a run and returns a sink that writes its samples in one
// transaction, committed by RunWriter.Close.
func (s *Store) Begin(ctx context.Context, info RunInfo) (*RunWriter, error) {
	id := uuid.New().String()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, backend, grid, dt, steps, source, probe) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339), info.Backend, info.Grid, info.Dt, info.Steps, info.Source, info.Probe)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO samples (run_id, step, time_s, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("prepare sample insert: %w", err)
	}
	return &RunWriter{ID: id, tx: tx, stmt: stmt}, nil
}

// Trace loads the samples of a run in step order.
func (s *Store) Trace(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT step, time_s, value FROM samples WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var v float64
		if err := rows.Scan(&r.Step, &r.Time, &v); err != nil {
			return nil, err
		}
		r.Value = float32(v)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs lists run ids, newest first.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RunWriter is the sink of one stored run.
type RunWriter struct {
	ID   string
	tx   *sql.Tx
	stmt *sql.Stmt
}

func (w *RunWriter) Write(r Record) error {
	_, err := w.stmt.Exec(w.ID, r.Step, r.Time, float64(r.Value))
	return err
}

// Close commits the run. Abort discards it instead.
func (w *RunWriter) Close() error {
	w.stmt.Close()
	return w.tx.Commit()
}

// Abort rolls the run back.
func (w *RunWriter) Abort() error {
	w.stmt.Close()
	return w.tx.Rollback()
}
