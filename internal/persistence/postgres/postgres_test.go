package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/scorelab/internal/backtest"
	"github.com/sawpanic/scorelab/internal/category"
	"github.com/sawpanic/scorelab/internal/scoring"
	"github.com/sawpanic/scorelab/internal/tune"
)

func newMock(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "postgres")
	return NewManagerWithDB(db, Config{QueryTimeout: time.Second}), mock
}

func testReport() *backtest.Report {
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	return &backtest.Report{
		RunID:      "3f1c2a9e-0000-4000-8000-000000000001",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Minute),
		Config:     backtest.DefaultConfig(),
		Overall:    backtest.CategoryReport{Category: "all", Events: 2, CatchRate: 0.5, MeanScore: 3.5},
		Events: []backtest.Event{
			{
				Symbol: "BTC-USD", Category: "cryptocurrencies", Start: start, StartPrice: 40000,
				PeakTime: start.AddDate(0, 0, 20), PeakPrice: 60000, ReturnPct: 50, DaysToPeak: 20,
				Scored: true, Score: 5, Breakdown: scoring.Breakdown{{Name: "rsi", Points: 2}},
			},
			{
				Symbol: "SOL-USD", Category: "cryptocurrencies", Start: start, StartPrice: 100,
				PeakTime: start.AddDate(0, 0, 10), PeakPrice: 140, ReturnPct: 40, DaysToPeak: 10,
				SkipReason: "insufficient bars: 12",
			},
		},
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout)
	assert.False(t, cfg.Enabled)
}

func TestNewManager_Disabled(t *testing.T) {
	manager, err := NewManager(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, manager.IsEnabled())
	assert.Nil(t, manager.Repository())
	assert.NoError(t, manager.Migrate(context.Background()))
	assert.NoError(t, manager.Close())

	check := manager.Health().Health(context.Background())
	assert.True(t, check.Healthy)
	require.Len(t, check.Errors, 1)
	assert.Contains(t, check.Errors[0], "disabled")
}

func TestNewManager_MissingDSN(t *testing.T) {
	_, err := NewManager(context.Background(), Config{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN is required")
}

func TestManager_Health(t *testing.T) {
	manager, mock := newMock(t)
	assert.True(t, manager.IsEnabled())
	require.NotNil(t, manager.Repository())

	mock.ExpectPing()
	check := manager.Health().Health(context.Background())
	assert.True(t, check.Healthy)
	assert.Contains(t, check.ConnectionPool, "open")

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	check = manager.Health().Health(context.Background())
	assert.False(t, check.Healthy)
	require.Len(t, check.Errors, 1)
	assert.Contains(t, check.Errors[0], "connection refused")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_Migrate(t *testing.T) {
	manager, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS backtest_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, manager.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBacktestRepo_SaveRun(t *testing.T) {
	manager, mock := newMock(t)
	repo := manager.Repository().Backtests
	report := testReport()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO backtest_runs")).
		WithArgs(report.RunID, report.StartedAt, report.FinishedAt, "1W", "usd", 30.0, 60, 2, 0.5, 3.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO backtest_events")).
		WithArgs(report.RunID, "BTC-USD", "cryptocurrencies", sqlmock.AnyArg(), 40000.0, sqlmock.AnyArg(), 60000.0,
			50.0, 20, true, 5.0, backtest.BucketGood, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO backtest_events")).
		WithArgs(report.RunID, "SOL-USD", "cryptocurrencies", sqlmock.AnyArg(), 100.0, sqlmock.AnyArg(), 140.0,
			40.0, 10, false, 0.0, "", "insufficient bars: 12", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveRun(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBacktestRepo_SaveRunRollsBack(t *testing.T) {
	manager, mock := newMock(t)
	repo := manager.Repository().Backtests

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO backtest_runs")).
		WillReturnError(errors.New("duplicate key value"))
	mock.ExpectRollback()

	err := repo.SaveRun(context.Background(), testReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert run")
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Error(t, repo.SaveRun(context.Background(), &backtest.Report{}))
}

func TestBacktestRepo_ListAndGet(t *testing.T) {
	manager, mock := newMock(t)
	repo := manager.Repository().Backtests
	created := time.Date(2024, 1, 8, 0, 5, 0, 0, time.UTC)

	columns := []string{"run_id", "started_at", "finished_at", "timeframe", "denomination", "min_move_pct",
		"lookback_bars", "events", "catch_rate", "mean_score", "report", "created_at"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM backtest_runs ORDER BY started_at DESC LIMIT $1")).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("run-2", created, created, "1W", "usd", 30.0, 60, 12, 0.25, 3.1, []byte(`{"run_id":"run-2"}`), created).
			AddRow("run-1", created, created, "1D", "gold", 25.0, 60, 7, 0.5, 4.2, []byte(`{"run_id":"run-1"}`), created))

	runs, err := repo.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, "gold", runs[1].Denomination)
	assert.Equal(t, 7, runs[1].Events)
	assert.JSONEq(t, `{"run_id":"run-1"}`, string(runs[1].Report))

	mock.ExpectQuery(regexp.QuoteMeta("FROM backtest_runs WHERE run_id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))
	run, err := repo.GetRun(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, run)

	eventColumns := []string{"run_id", "symbol", "category", "start_date", "start_price", "peak_date", "peak_price",
		"return_pct", "days_to_peak", "scored", "score", "bucket", "skip_reason", "breakdown"}
	mock.ExpectQuery(regexp.QuoteMeta("FROM backtest_events")).
		WithArgs("run-1").
		WillReturnRows(sqlmock.NewRows(eventColumns).
			AddRow("run-1", "BTC-USD", "cryptocurrencies", created, 40000.0, created, 60000.0, 50.0, 20, true, 5.0, ">=6", "", []byte(`[]`)))
	events, err := repo.ListEvents(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "BTC-USD", events[0].Symbol)
	assert.True(t, events[0].Scored)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTuneRepo(t *testing.T) {
	manager, mock := newMock(t)
	repo := manager.Repository().Tunes

	res := tune.Result{
		RunID:            "tune-1",
		Category:         "tech_stocks",
		Events:           14,
		Evaluations:      22,
		InitialObjective: tune.Objective{Value: 0.31},
		BestObjective:    tune.Objective{Value: 0.42, CatchRate: 0.4},
		BestParams:       category.Baseline(),
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tune_runs")).
		WithArgs("tune-1", "tech_stocks", 14, 22, 0.31, 0.42, 0.4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SaveTune(context.Background(), res))

	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM tune_runs")).
		WithArgs("tech_stocks", 5).
		WillReturnRows(sqlmock.NewRows([]string{"run_id", "category", "events", "evaluations",
			"initial_objective", "best_objective", "catch_rate", "params", "created_at"}).
			AddRow("tune-1", "tech_stocks", 14, 22, 0.31, 0.42, 0.4, []byte(`{"adx_multiplier":1.2}`), created))

	records, err := repo.ListTunes(context.Background(), "tech_stocks", 5)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 22, records[0].Evaluations)
	assert.InDelta(t, 0.42, records[0].BestObjective, 1e-9)

	assert.NoError(t, mock.ExpectationsWereMet())
}
