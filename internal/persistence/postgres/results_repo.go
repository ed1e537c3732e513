// Package postgres persists completed selection results for audit and
// later comparison. The cache stays the only store the core depends on;
// this repository is write-behind and best-effort.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/stockrank/stockrank/internal/scan"
)

const schema = `
CREATE TABLE IF NOT EXISTS selection_results (
	run_id       TEXT PRIMARY KEY,
	algorithm    TEXT NOT NULL,
	state        TEXT NOT NULL,
	selections   JSONB NOT NULL,
	metrics      JSONB NOT NULL,
	errors       JSONB,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_selection_results_algorithm_completed
	ON selection_results (algorithm, completed_at DESC);
`

// ResultsRepo stores scan outcomes in PostgreSQL.
type ResultsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Connect opens a connection pool and ensures the schema exists.
func Connect(dsn string, timeout time.Duration) (*ResultsRepo, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	repo := NewResultsRepo(db, timeout)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewResultsRepo wraps an existing pool.
func NewResultsRepo(db *sqlx.DB, timeout time.Duration) *ResultsRepo {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ResultsRepo{db: db, timeout: timeout}
}

// EnsureSchema creates the results table if missing.
func (r *ResultsRepo) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *ResultsRepo) Close() error {
	return r.db.Close()
}

// SaveResult writes one completed result. Implements scan.ResultSink.
func (r *ResultsRepo) SaveResult(ctx context.Context, result *scan.SelectionResult) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	selectionsJSON, err := json.Marshal(result.Selections)
	if err != nil {
		return fmt.Errorf("failed to marshal selections: %w", err)
	}
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	errorsJSON, err := json.Marshal(result.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}

	query := `
		INSERT INTO selection_results
		(run_id, algorithm, state, selections, metrics, errors, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query,
		result.RunID, result.Algorithm, string(result.State),
		selectionsJSON, metricsJSON, errorsJSON,
		result.StartedAt, result.CompletedAt); err != nil {
		return fmt.Errorf("failed to save result %s: %w", result.RunID, err)
	}
	return nil
}

// LatestResult returns the most recent completed result for an algorithm,
// or nil when none exists.
func (r *ResultsRepo) LatestResult(ctx context.Context, algorithm string) (*scan.SelectionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, algorithm, state, selections, metrics, errors, started_at, completed_at
		FROM selection_results
		WHERE algorithm = $1 AND state = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1`

	var row struct {
		RunID       string    `db:"run_id"`
		Algorithm   string    `db:"algorithm"`
		State       string    `db:"state"`
		Selections  []byte    `db:"selections"`
		Metrics     []byte    `db:"metrics"`
		Errors      []byte    `db:"errors"`
		StartedAt   time.Time `db:"started_at"`
		CompletedAt time.Time `db:"completed_at"`
	}
	if err := r.db.GetContext(ctx, &row, query, algorithm); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest result: %w", err)
	}

	result := &scan.SelectionResult{
		RunID:       row.RunID,
		Algorithm:   row.Algorithm,
		State:       scan.State(row.State),
		StartedAt:   row.StartedAt,
		CompletedAt: row.CompletedAt,
	}
	if err := json.Unmarshal(row.Selections, &result.Selections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal selections: %w", err)
	}
	if err := json.Unmarshal(row.Metrics, &result.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	if len(row.Errors) > 0 {
		if err := json.Unmarshal(row.Errors, &result.Errors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal errors: %w", err)
		}
	}
	return result, nil
}
