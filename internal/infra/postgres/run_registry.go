package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saa-question-importer/internal/domain"
)

const (
	statusRunning   = "running"
	statusFinished  = "finished"
	statusAbandoned = "abandoned"

	uniqueViolation = "23505"
)

// RunRegistry records import runs in the import_runs table. A partial unique index on
// status keeps at most one run in the running state across every process sharing the
// database.
type RunRegistry struct {
	pool       *pgxpool.Pool
	staleAfter time.Duration
}

// NewRunRegistry returns a registry that treats running rows older than staleAfter as
// abandoned. A zero staleAfter never expires a run.
func NewRunRegistry(pool *pgxpool.Pool, staleAfter time.Duration) *RunRegistry {
	return &RunRegistry{pool: pool, staleAfter: staleAfter}
}

func (r *RunRegistry) Begin(ctx context.Context, runID string) error {
	if r.staleAfter > 0 {
		_, err := r.pool.Exec(ctx, `
UPDATE import_runs SET status = $1, finished_at = now()
WHERE status = $2 AND started_at < $3`,
			statusAbandoned, statusRunning, time.Now().Add(-r.staleAfter))
		if err != nil {
			return fmt.Errorf("expire stale runs: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, `INSERT INTO import_runs (id, status) VALUES ($1, $2)`, runID, statusRunning)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrImportInProgress
	}
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

func (r *RunRegistry) Finish(ctx context.Context, runID string, report domain.ImportReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
UPDATE import_runs SET status = $1, finished_at = $2, report = $3::jsonb
WHERE id = $4`,
		statusFinished, report.FinishedAt, string(data), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// Last returns the report of the most recently finished run.
func (r *RunRegistry) Last(ctx context.Context) (domain.ImportReport, bool, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `
SELECT report FROM import_runs
WHERE status = $1 AND report IS NOT NULL
ORDER BY finished_at DESC LIMIT 1`, statusFinished).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ImportReport{}, false, nil
	}
	if err != nil {
		return domain.ImportReport{}, false, fmt.Errorf("last run: %w", err)
	}
	var report domain.ImportReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return domain.ImportReport{}, false, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, true, nil
}
