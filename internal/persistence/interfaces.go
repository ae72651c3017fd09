// Package persistence stores backtest and tuning runs for later comparison.
// Storage is optional; every caller works without it.
package persistence

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/sawpanic/scorelab/internal/backtest"
	"github.com/sawpanic/scorelab/internal/tune"
)

// RunSummary is one stored backtest run
type RunSummary struct {
	RunID        string         `json:"run_id" db:"run_id"`
	StartedAt    time.Time      `json:"started_at" db:"started_at"`
	FinishedAt   time.Time      `json:"finished_at" db:"finished_at"`
	Timeframe    string         `json:"timeframe" db:"timeframe"`
	Denomination string         `json:"denomination" db:"denomination"`
	MinMovePct   float64        `json:"min_move_pct" db:"min_move_pct"`
	LookbackBars int            `json:"lookback_bars" db:"lookback_bars"`
	Events       int            `json:"events" db:"events"`
	CatchRate    float64        `json:"catch_rate" db:"catch_rate"`
	MeanScore    float64        `json:"mean_score" db:"mean_score"`
	Report       types.JSONText `json:"report,omitempty" db:"report"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// EventRecord is one stored explosive move event
type EventRecord struct {
	RunID      string         `json:"run_id" db:"run_id"`
	Symbol     string         `json:"symbol" db:"symbol"`
	Category   string         `json:"category" db:"category"`
	StartDate  time.Time      `json:"start_date" db:"start_date"`
	StartPrice float64        `json:"start_price" db:"start_price"`
	PeakDate   time.Time      `json:"peak_date" db:"peak_date"`
	PeakPrice  float64        `json:"peak_price" db:"peak_price"`
	ReturnPct  float64        `json:"return_pct" db:"return_pct"`
	DaysToPeak int            `json:"days_to_peak" db:"days_to_peak"`
	Scored     bool           `json:"scored" db:"scored"`
	Score      float64        `json:"score" db:"score"`
	Bucket     string         `json:"bucket" db:"bucket"`
	SkipReason string         `json:"skip_reason,omitempty" db:"skip_reason"`
	Breakdown  types.JSONText `json:"breakdown,omitempty" db:"breakdown"`
}

// TuneRecord is one stored tuning run
type TuneRecord struct {
	RunID            string         `json:"run_id" db:"run_id"`
	Category         string         `json:"category" db:"category"`
	Events           int            `json:"events" db:"events"`
	Evaluations      int            `json:"evaluations" db:"evaluations"`
	InitialObjective float64        `json:"initial_objective" db:"initial_objective"`
	BestObjective    float64        `json:"best_objective" db:"best_objective"`
	CatchRate        float64        `json:"catch_rate" db:"catch_rate"`
	Params           types.JSONText `json:"params" db:"params"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
}

// BacktestRepo stores backtest reports and their events
type BacktestRepo interface {
	// SaveRun stores the run summary and every event atomically
	SaveRun(ctx context.Context, report *backtest.Report) error

	// ListRuns returns the most recent runs, newest first
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// GetRun returns one run, nil when it does not exist
	GetRun(ctx context.Context, runID string) (*RunSummary, error)

	// ListEvents returns the events of one run in scan order
	ListEvents(ctx context.Context, runID string) ([]EventRecord, error)
}

// TuneRepo stores tuning results
type TuneRepo interface {
	SaveTune(ctx context.Context, res tune.Result) error
	ListTunes(ctx context.Context, category string, limit int) ([]TuneRecord, error)
}

// Repository aggregates all persistence interfaces
type Repository struct {
	Backtests BacktestRepo
	Tunes     TuneRepo
}

// HealthCheck represents repository health status
type HealthCheck struct {
	Healthy        bool           `json:"healthy"`
	Errors         []string       `json:"errors,omitempty"`
	ConnectionPool map[string]int `json:"connection_pool"`
	LastCheck      time.Time      `json:"last_check"`
	ResponseTimeMS int64          `json:"response_time_ms"`
}

// RepositoryHealth provides health monitoring for persistence layer
type RepositoryHealth interface {
	Health(ctx context.Context) HealthCheck
	Ping(ctx context.Context) error
}
