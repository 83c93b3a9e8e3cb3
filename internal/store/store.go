// Package store persists sprints, their daily effort buckets and the history
// of sync runs in an embedded SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dt-pm-tools/burndown-sync/internal/burndown"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrSprintNotFound is returned when a sprint id is unknown.
var ErrSprintNotFound = errors.New("sprint not found")

// dayLayout is how bucket days are stored.
const dayLayout = "2006-01-02"

const schema = `
CREATE TABLE IF NOT EXISTS sprints (
	id         TEXT PRIMARY KEY,
	team       TEXT NOT NULL,
	planned    REAL NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	synced_at  TEXT
);

CREATE TABLE IF NOT EXISTS sprint_efforts (
	sprint_id TEXT NOT NULL REFERENCES sprints(id) ON DELETE CASCADE,
	day       TEXT NOT NULL,
	burned    REAL NOT NULL DEFAULT 0,
	unplanned REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (sprint_id, day)
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	sprint_id   TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	status      TEXT NOT NULL,
	version     TEXT,
	fetched     INTEGER NOT NULL DEFAULT 0,
	planned     REAL NOT NULL DEFAULT 0,
	events      INTEGER NOT NULL DEFAULT 0,
	error       TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_sprint ON sync_runs(sprint_id, started_at);
`

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
	path string
	loc  *time.Location
}

// Open opens (creating if needed) the database at path and initializes the
// schema. Bucket days are read back as midnight in loc.
//
// The caller must call Close when done.
func Open(path string, loc *time.Location) (*Store, error) {
	if loc == nil {
		loc = time.Local
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Per-connection pragmas go in the DSN so every pooled connection gets them.
	conn, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{conn: conn, path: path, loc: loc}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.conn = nil
	return nil
}

// CreateSprint inserts a new sprint with its buckets. Bucket days must be
// unique.
func (s *Store) CreateSprint(ctx context.Context, sprint *burndown.Sprint) error {
	if err := burndown.ValidateBuckets(sprint.Efforts, s.loc); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sprints (id, team, planned, created_at) VALUES (?, ?, ?, ?)`,
			sprint.ID, sprint.Team, sprint.Planned, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE") {
				return fmt.Errorf("sprint %s already exists", sprint.ID)
			}
			return fmt.Errorf("failed to insert sprint: %w", err)
		}
		return s.writeEfforts(ctx, tx, sprint)
	})
}

// SaveSprint stores the planned goal and bucket values of an existing sprint
// and marks it as synced now.
func (s *Store) SaveSprint(ctx context.Context, sprint *burndown.Sprint) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE sprints SET planned = ?, synced_at = ? WHERE id = ?`,
			sprint.Planned, time.Now().UTC().Format(time.RFC3339), sprint.ID)
		if err != nil {
			return fmt.Errorf("failed to update sprint: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", ErrSprintNotFound, sprint.ID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sprint_efforts WHERE sprint_id = ?`, sprint.ID); err != nil {
			return fmt.Errorf("failed to clear efforts: %w", err)
		}
		return s.writeEfforts(ctx, tx, sprint)
	})
}

func (s *Store) writeEfforts(ctx context.Context, tx *sql.Tx, sprint *burndown.Sprint) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sprint_efforts (sprint_id, day, burned, unplanned) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare effort insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range sprint.Efforts {
		day := burndown.DayOf(e.Date, s.loc).String()
		if _, err := stmt.ExecContext(ctx, sprint.ID, day, e.Burned, e.Unplanned); err != nil {
			return fmt.Errorf("failed to insert effort %s: %w", day, err)
		}
	}
	return nil
}

// GetSprint loads a sprint and its buckets ordered by day.
func (s *Store) GetSprint(ctx context.Context, id string) (*burndown.Sprint, error) {
	sprint := &burndown.Sprint{ID: id}
	err := s.conn.QueryRowContext(ctx,
		`SELECT team, planned FROM sprints WHERE id = ?`, id).Scan(&sprint.Team, &sprint.Planned)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSprintNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sprint: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT day, burned, unplanned FROM sprint_efforts WHERE sprint_id = ? ORDER BY day`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query efforts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day string
		e := &burndown.SprintEffort{}
		if err := rows.Scan(&day, &e.Burned, &e.Unplanned); err != nil {
			return nil, fmt.Errorf("failed to scan effort: %w", err)
		}
		e.Date, err = time.ParseInLocation(dayLayout, day, s.loc)
		if err != nil {
			return nil, fmt.Errorf("invalid effort day %q: %w", day, err)
		}
		sprint.Efforts = append(sprint.Efforts, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read efforts: %w", err)
	}

	return sprint, nil
}

// SprintSummary is one row of ListSprints.
type SprintSummary struct {
	ID       string     `json:"id"`
	Team     string     `json:"team"`
	Planned  float64    `json:"planned"`
	Days     int        `json:"days"`
	SyncedAt *time.Time `json:"synced_at,omitempty"`
}

// ListSprints returns all sprints, most recently created first.
func (s *Store) ListSprints(ctx context.Context) ([]SprintSummary, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT s.id, s.team, s.planned, s.synced_at,
		       (SELECT COUNT(*) FROM sprint_efforts e WHERE e.sprint_id = s.id)
		FROM sprints s
		ORDER BY s.created_at DESC, s.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}
	defer rows.Close()

	var result []SprintSummary
	for rows.Next() {
		var sum SprintSummary
		var synced sql.NullString
		if err := rows.Scan(&sum.ID, &sum.Team, &sum.Planned, &synced, &sum.Days); err != nil {
			return nil, fmt.Errorf("failed to scan sprint: %w", err)
		}
		if synced.Valid {
			if t, err := time.Parse(time.RFC3339, synced.String); err == nil {
				sum.SyncedAt = &t
			}
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

// SyncRun is one recorded execution of a sprint sync.
type SyncRun struct {
	ID         int64     `json:"id"`
	SprintID   string    `json:"sprint_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Version    string    `json:"version,omitempty"`
	Fetched    int       `json:"fetched"`
	Planned    float64   `json:"planned"`
	Events     int       `json:"events"`
	Error      string    `json:"error,omitempty"`
}

// Sync run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// NewSyncRun builds the history record of a sync from its outcome.
func NewSyncRun(sprintID string, started time.Time, report *burndown.Report, syncErr error) SyncRun {
	run := SyncRun{
		SprintID:   sprintID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Status:     StatusSucceeded,
	}
	if report != nil {
		run.Version = report.Version
		run.Fetched = report.Fetched
		run.Planned = report.Planned
		run.Events = len(report.Events)
	}
	if syncErr != nil {
		run.Status = StatusFailed
		run.Error = syncErr.Error()
	}
	return run
}

// RecordSyncRun appends a sync run to the history.
func (s *Store) RecordSyncRun(ctx context.Context, run SyncRun) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `
		INSERT INTO sync_runs (sprint_id, started_at, finished_at, status, version, fetched, planned, events, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.SprintID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Status, run.Version, run.Fetched, run.Planned, run.Events, run.Error)
	if err != nil {
		return 0, fmt.Errorf("failed to record sync run: %w", err)
	}
	return res.LastInsertId()
}

// SyncRuns returns the latest runs of a sprint, newest first.
func (s *Store) SyncRuns(ctx context.Context, sprintID string, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, sprint_id, started_at, finished_at, status, COALESCE(version, ''), fetched, planned, events, COALESCE(error, '')
		FROM sync_runs WHERE sprint_id = ?
		ORDER BY id DESC LIMIT ?`, sprintID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		var started, finished string
		if err := rows.Scan(&run.ID, &run.SprintID, &started, &finished, &run.Status,
			&run.Version, &run.Fetched, &run.Planned, &run.Events, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
