// Package history keeps a small sqlite log of job runs so a later run
// can report deltas (the proposals summary shows how many rows arrived
// since the previous scheduled run).
package history

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const Schema = `
CREATE TABLE IF NOT EXISTS run_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dataset TEXT NOT NULL,
	run_at INTEGER NOT NULL,
	row_count INTEGER NOT NULL,
	status TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS run_history_dataset_idx ON run_history (dataset, run_at);
`

// OpenDB opens (and if needed creates) the history database at path.
func OpenDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return Store{db: db}
}

type Run struct {
	Dataset  string
	RunAt    time.Time
	RowCount int
	Status   string
}

const (
	StatusOK       = "ok"
	StatusSentinel = "sentinel"
)

func (s Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_history (dataset, run_at, row_count, status) VALUES (?, ?, ?, ?)`,
		run.Dataset, run.RunAt.Unix(), run.RowCount, run.Status,
	)
	return err
}

// LastRun returns the most recent recorded run for a dataset, or a nil
// Run when the dataset has never run.
func (s Store) LastRun(ctx context.Context, dataset string) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT dataset, run_at, row_count, status
		 FROM run_history WHERE dataset = ?
		 ORDER BY run_at DESC, id DESC LIMIT 1`,
		dataset,
	)
	var out Run
	var at int64
	err := row.Scan(&out.Dataset, &at, &out.RowCount, &out.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out.RunAt = time.Unix(at, 0)
	return &out, nil
}
