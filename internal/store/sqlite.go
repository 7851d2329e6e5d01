package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// NewRunID generates a new ULID-based run identifier.
func NewRunID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// SQLiteStore implements RunStore backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const timeFormat = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeFormat), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeFormat, s)
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// RecordRun inserts or updates a run record.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, outcome, action, probe_calls, status_calls, final_state,
			detail, started_at, finished_at, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			outcome = excluded.outcome,
			action = excluded.action,
			probe_calls = excluded.probe_calls,
			status_calls = excluded.status_calls,
			final_state = excluded.final_state,
			detail = excluded.detail,
			finished_at = excluded.finished_at,
			duration_ms = excluded.duration_ms`,
		run.ID,
		run.Outcome,
		run.Action,
		run.ProbeCalls,
		run.StatusCalls,
		nullString(run.FinalState),
		nullString(run.Detail),
		formatTime(run.StartedAt),
		formatTimePtr(run.FinishedAt),
		run.DurationMs,
		formatTime(run.CreatedAt),
	)
	return err
}

const selectRunCols = `id, outcome, action, probe_calls, status_calls, final_state,
	detail, started_at, finished_at, duration_ms, created_at`

func (s *SQLiteStore) scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var r Run
	var startedAt, createdAt string
	var finishedAt, finalState, detail sql.NullString
	var durationMs sql.NullInt64

	err := row.Scan(
		&r.ID,
		&r.Outcome,
		&r.Action,
		&r.ProbeCalls,
		&r.StatusCalls,
		&finalState,
		&detail,
		&startedAt,
		&finishedAt,
		&durationMs,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	r.StartedAt, err = parseTime(startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	r.FinishedAt, err = parseTimePtr(finishedAt)
	if err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	if finalState.Valid {
		r.FinalState = finalState.String
	}
	if detail.Valid {
		r.Detail = detail.String
	}
	if durationMs.Valid {
		r.DurationMs = durationMs.Int64
	}

	return &r, nil
}

// GetRun retrieves a single run by ID. A missing run returns (nil, nil).
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectRunCols+" FROM runs WHERE id = ?", id)
	run, err := s.scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// ListRuns returns runs ordered by started_at descending.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOpts) ([]*Run, error) {
	query := "SELECT " + selectRunCols + " FROM runs ORDER BY started_at DESC"
	var args []any

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := s.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
