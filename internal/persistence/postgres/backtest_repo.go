package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/scorelab/internal/backtest"
	"github.com/sawpanic/scorelab/internal/persistence"
)

// backtestRepo implements persistence.BacktestRepo for PostgreSQL
type backtestRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewBacktestRepo creates a new PostgreSQL backtest repository
func NewBacktestRepo(db *sqlx.DB, timeout time.Duration) persistence.BacktestRepo {
	return &backtestRepo{db: db, timeout: timeout}
}

const insertRun = `
	INSERT INTO backtest_runs
	(run_id, started_at, finished_at, timeframe, denomination, min_move_pct,
	 lookback_bars, events, catch_rate, mean_score, report)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const insertEvent = `
	INSERT INTO backtest_events
	(run_id, symbol, category, start_date, start_price, peak_date, peak_price,
	 return_pct, days_to_peak, scored, score, bucket, skip_reason, breakdown)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

// SaveRun stores the run and its events in one transaction
func (r *backtestRepo) SaveRun(ctx context.Context, report *backtest.Report) error {
	if report == nil || report.RunID == "" {
		return errors.New("report has no run id")
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	run, err := persistence.NewRunSummary(report, nil)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertRun,
		run.RunID, run.StartedAt, run.FinishedAt, run.Timeframe, run.Denomination,
		run.MinMovePct, run.LookbackBars, run.Events, run.CatchRate, run.MeanScore, run.Report); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.RunID, err)
	}

	for _, e := range report.Events {
		rec, err := persistence.NewEventRecord(report.RunID, e)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertEvent,
			rec.RunID, rec.Symbol, rec.Category, rec.StartDate, rec.StartPrice, rec.PeakDate, rec.PeakPrice,
			rec.ReturnPct, rec.DaysToPeak, rec.Scored, rec.Score, rec.Bucket, rec.SkipReason, rec.Breakdown); err != nil {
			return fmt.Errorf("failed to insert event %s %s: %w", e.Symbol, e.Start.Format("2006-01-02"), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", report.RunID, err)
	}
	return nil
}

const runColumns = `run_id, started_at, finished_at, timeframe, denomination, min_move_pct,
	lookback_bars, events, catch_rate, mean_score, report, created_at`

// ListRuns returns the newest runs first
func (r *backtestRepo) ListRuns(ctx context.Context, limit int) ([]persistence.RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var runs []persistence.RunSummary
	query := `SELECT ` + runColumns + ` FROM backtest_runs ORDER BY started_at DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run, nil when absent
func (r *backtestRepo) GetRun(ctx context.Context, runID string) (*persistence.RunSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var run persistence.RunSummary
	query := `SELECT ` + runColumns + ` FROM backtest_runs WHERE run_id = $1`
	if err := r.db.GetContext(ctx, &run, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &run, nil
}

// ListEvents returns the events of one run in scan order
func (r *backtestRepo) ListEvents(ctx context.Context, runID string) ([]persistence.EventRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT run_id, symbol, category, start_date, start_price, peak_date, peak_price,
		       return_pct, days_to_peak, scored, score, bucket, skip_reason, breakdown
		FROM backtest_events
		WHERE run_id = $1
		ORDER BY category, symbol, start_date`

	var events []persistence.EventRecord
	if err := r.db.SelectContext(ctx, &events, query, runID); err != nil {
		return nil, fmt.Errorf("failed to list events of %s: %w", runID, err)
	}
	return events, nil
}
