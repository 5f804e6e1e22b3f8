package sweep

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// DefaultDBPath is where the tracker lives unless SPLATPREP_SWEEP_DB says
// otherwise.
const DefaultDBPath = "sweeps.db"

// Run states.
const (
	StateRunning  = "running"
	StateFinished = "finished"
	StateFailed   = "failed"
)

// Sweep is a stored sweep.
type Sweep struct {
	ID        string    `json:"id"`
	Project   string    `json:"project"`
	DataName  string    `json:"data_name"`
	Config    *Config   `json:"config"`
	CreatedAt time.Time `json:"created_at"`
}

// Run is one stored training run.
type Run struct {
	ID         string     `json:"id"`
	SweepID    string     `json:"sweep_id"`
	Seq        int        `json:"seq"`
	State      string     `json:"state"`
	Params     Params     `json:"params"`
	Metrics    Metrics    `json:"metrics,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration is how long a finished run took.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

const schema = `
CREATE TABLE IF NOT EXISTS sweeps (
	id          TEXT PRIMARY KEY,
	project     TEXT NOT NULL,
	data_name   TEXT NOT NULL,
	config      TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	sweep_id    TEXT NOT NULL REFERENCES sweeps(id),
	seq         INTEGER NOT NULL,
	state       TEXT NOT NULL,
	params      TEXT NOT NULL,
	metrics     TEXT,
	error       TEXT,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_runs_sweep ON runs(sweep_id, seq);
`

// Store keeps sweeps and runs in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the tracker database at path. ":memory:" gives a
// private in-memory store.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSweep stores a new sweep under a fresh id.
func (s *Store) CreateSweep(ctx context.Context, project, dataName string, cfg *Config) (*Sweep, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sweep config: %w", err)
	}
	sw := &Sweep{
		ID:        uuid.NewString(),
		Project:   project,
		DataName:  dataName,
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sweeps (id, project, data_name, config, created_at) VALUES (?, ?, ?, ?, ?)`,
		sw.ID, sw.Project, sw.DataName, string(raw), sw.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to insert sweep: %w", err)
	}
	return sw, nil
}

// GetSweep loads a sweep. An unknown id is reported as errs.ErrNotFound.
func (s *Store) GetSweep(ctx context.Context, id string) (*Sweep, error) {
	var (
		sw      Sweep
		raw     string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project, data_name, config, created_at FROM sweeps WHERE id = ?`, id,
	).Scan(&sw.ID, &sw.Project, &sw.DataName, &raw, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sweep %s", errs.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sweep: %w", err)
	}
	sw.Config = &Config{}
	if err := json.Unmarshal([]byte(raw), sw.Config); err != nil {
		return nil, fmt.Errorf("%w: stored config of sweep %s: %v", errs.ErrFormat, id, err)
	}
	sw.CreatedAt = time.Unix(0, created).UTC()
	return &sw, nil
}

// LatestSweep returns the most recently created sweep.
func (s *Store) LatestSweep(ctx context.Context) (*Sweep, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM sweeps ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no sweeps recorded", errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest sweep: %w", err)
	}
	return s.GetSweep(ctx, id)
}

// StartRun records a running run with the next sequence number of its sweep.
func (s *Store) StartRun(ctx context.Context, sweepID string, p Params) (*Run, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}
	var seq int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM runs WHERE sweep_id = ?`, sweepID,
	).Scan(&seq); err != nil {
		return nil, fmt.Errorf("failed to number run: %w", err)
	}
	run := &Run{
		ID:        uuid.NewString(),
		SweepID:   sweepID,
		Seq:       seq,
		State:     StateRunning,
		Params:    p,
		StartedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, sweep_id, seq, state, params, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.SweepID, run.Seq, run.State, string(raw), run.StartedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the outcome of a run. A non-nil runErr marks it failed.
func (s *Store) FinishRun(ctx context.Context, run *Run, m Metrics, runErr error) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Metrics = m
	run.State = StateFinished
	if runErr != nil {
		run.State = StateFailed
		run.Error = runErr.Error()
	}
	var metrics sql.NullString
	if m != nil {
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
		metrics = sql.NullString{String: string(raw), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, metrics = ?, error = ?, finished_at = ? WHERE id = ?`,
		run.State, metrics, run.Error, now.UnixNano(), run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// CountRuns returns how many runs a sweep has started.
func (s *Store) CountRuns(ctx context.Context, sweepID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE sweep_id = ?`, sweepID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

// ListRuns returns the runs of a sweep in start order.
func (s *Store) ListRuns(ctx context.Context, sweepID string) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sweep_id, seq, state, params, metrics, error, started_at, finished_at
		 FROM runs WHERE sweep_id = ? ORDER BY seq`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			r        Run
			params   string
			metrics  sql.NullString
			errText  sql.NullString
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.SweepID, &r.Seq, &r.State, &params, &metrics, &errText, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, fmt.Errorf("%w: params of run %s: %v", errs.ErrFormat, r.ID, err)
		}
		if metrics.Valid {
			if err := json.Unmarshal([]byte(metrics.String), &r.Metrics); err != nil {
				return nil, fmt.Errorf("%w: metrics of run %s: %v", errs.ErrFormat, r.ID, err)
			}
		}
		r.Error = errText.String
		r.StartedAt = time.Unix(0, started).UTC()
		if finished.Valid {
			t := time.Unix(0, finished.Int64).UTC()
			r.FinishedAt = &t
		}
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}
