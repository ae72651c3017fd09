package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/scorelab/internal/persistence"
	"github.com/sawpanic/scorelab/internal/tune"
)

// tuneRepo implements persistence.TuneRepo for PostgreSQL
type tuneRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTuneRepo creates a new PostgreSQL tuning repository
func NewTuneRepo(db *sqlx.DB, timeout time.Duration) persistence.TuneRepo {
	return &tuneRepo{db: db, timeout: timeout}
}

// SaveTune stores a tuning result with its suggested params
func (r *tuneRepo) SaveTune(ctx context.Context, res tune.Result) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rec, err := persistence.NewTuneRecord(res, time.Now().UTC())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tune_runs
		(run_id, category, events, evaluations, initial_objective, best_objective, catch_rate, params)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		rec.RunID, rec.Category, rec.Events, rec.Evaluations,
		rec.InitialObjective, rec.BestObjective, rec.CatchRate, rec.Params); err != nil {
		return fmt.Errorf("failed to insert tune run %s: %w", res.RunID, err)
	}
	return nil
}

// ListTunes returns the newest results for a category, or for every
// category when category is empty
func (r *tuneRepo) ListTunes(ctx context.Context, category string, limit int) ([]persistence.TuneRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query := `
		SELECT run_id, category, events, evaluations, initial_objective, best_objective,
		       catch_rate, params, created_at
		FROM tune_runs
		WHERE ($1 = '' OR category = $1)
		ORDER BY created_at DESC
		LIMIT $2`

	var out []persistence.TuneRecord
	if err := r.db.SelectContext(ctx, &out, query, category, limit); err != nil {
		return nil, fmt.Errorf("failed to list tune runs: %w", err)
	}
	return out, nil
}
