package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"example.com/personalize-go/internal/dataset"
	"example.com/personalize-go/internal/dbutil"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Run is one row of the export history.
type Run struct {
	ID          int64        `json:"id"`
	Kind        dataset.Kind `json:"kind"`
	JobName     string       `json:"job_name"`
	JobARN      string       `json:"job_arn,omitempty"`
	Status      string       `json:"status"`
	Records     int          `json:"records"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at,omitzero"`
}

const runTimeLayout = time.RFC3339Nano

// Store is the append-only export history.
type Store struct {
	db     *sql.DB
	driver string
}

// NewStore constructs the export history DAO.
func NewStore(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

func (s *Store) q(query string) string {
	return dbutil.Rebind(s.driver, query)
}

// Init applies the history schema (SQLite only).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS export_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			job_name TEXT NOT NULL UNIQUE,
			job_arn TEXT,
			status TEXT NOT NULL,
			records INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			started_at TEXT NOT NULL,
			completed_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_export_runs_kind ON export_runs(kind, started_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply export schema: %w", err)
		}
	}
	return nil
}

// Begin inserts a running row and returns its id.
func (s *Store) Begin(ctx context.Context, run Run) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.q(
		`INSERT INTO export_runs(kind, job_name, status, started_at) VALUES(?, ?, ?, ?) RETURNING id`),
		string(run.Kind), run.JobName, run.Status, run.StartedAt.UTC().Format(runTimeLayout),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("begin export run: %w", err)
	}
	return id, nil
}

// Finish stores the outcome of run.
func (s *Store) Finish(ctx context.Context, run Run) error {
	res, err := s.db.ExecContext(ctx, s.q(
		`UPDATE export_runs SET status = ?, job_arn = ?, records = ?, error = ?, completed_at = ? WHERE id = ?`),
		run.Status, nullIfEmpty(run.JobARN), run.Records, nullIfEmpty(run.Error),
		run.CompletedAt.UTC().Format(runTimeLayout), run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish export run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns the most recent runs, optionally of one kind.
func (s *Store) List(ctx context.Context, kind dataset.Kind, limit int) ([]Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := `SELECT id, kind, job_name, job_arn, status, records, error, started_at, completed_at FROM export_runs`
	var args []any
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list export runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                  Run
			kindRaw, started   string
			arn, msg, finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &kindRaw, &r.JobName, &arn, &r.Status, &r.Records, &msg, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan export run: %w", err)
		}
		r.Kind = dataset.Kind(kindRaw)
		r.JobARN = arn.String
		r.Error = msg.String
		if r.StartedAt, err = time.Parse(runTimeLayout, started); err != nil {
			return nil, fmt.Errorf("parse run start: %w", err)
		}
		if finished.Valid {
			if r.CompletedAt, err = time.Parse(runTimeLayout, finished.String); err != nil {
				return nil, fmt.Errorf("parse run completion: %w", err)
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter export runs: %w", err)
	}
	return runs, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
