package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/scorelab/internal/backtest"
	"github.com/sawpanic/scorelab/internal/category"
	"github.com/sawpanic/scorelab/internal/scoring"
	"github.com/sawpanic/scorelab/internal/tune"
)

func TestNewRunSummary(t *testing.T) {
	start := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	report := &backtest.Report{
		RunID:      "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Config:     backtest.DefaultConfig(),
		Overall:    backtest.CategoryReport{Category: "all", Events: 9, CatchRate: 0.25, MeanScore: 4.1},
	}

	run, err := NewRunSummary(report, nil)
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.RunID)
	assert.Equal(t, "1W", run.Timeframe)
	assert.Equal(t, "usd", run.Denomination)
	assert.Equal(t, 9, run.Events)
	assert.Equal(t, 60, run.LookbackBars)
	assert.Contains(t, string(run.Report), `"run_id":"run-1"`)

	run, err = NewRunSummary(report, []byte(`{"stored":true}`))
	require.NoError(t, err)
	assert.Equal(t, `{"stored":true}`, string(run.Report))
}

func TestNewEventRecord(t *testing.T) {
	e := backtest.Event{
		Symbol: "NVDA", Category: "tech_stocks", ReturnPct: 42, DaysToPeak: 18,
		Scored: true, Score: 6.5, Breakdown: scoring.Breakdown{{Name: "adx_strong", Points: 1.5}},
	}
	rec, err := NewEventRecord("run-1", e)
	require.NoError(t, err)
	assert.Equal(t, backtest.BucketHigh, rec.Bucket)
	assert.JSONEq(t, `[{"name":"adx_strong","points":1.5}]`, string(rec.Breakdown))

	e.Scored, e.Score, e.Breakdown, e.SkipReason = false, 0, nil, "insufficient bars: 30"
	rec, err = NewEventRecord("run-1", e)
	require.NoError(t, err)
	assert.Empty(t, rec.Bucket)
	assert.Equal(t, "[]", string(rec.Breakdown))
	assert.Equal(t, "insufficient bars: 30", rec.SkipReason)
}

func TestNewTuneRecord(t *testing.T) {
	created := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	res := tune.Result{
		RunID:            "tune-1",
		Category:         "cryptocurrencies",
		InitialObjective: tune.Objective{Value: 0.2},
		BestObjective:    tune.Objective{Value: 0.3, CatchRate: 0.35},
		BestParams:       category.Baseline(),
	}
	rec, err := NewTuneRecord(res, created)
	require.NoError(t, err)
	assert.Equal(t, created, rec.CreatedAt)
	assert.InDelta(t, 0.35, rec.CatchRate, 1e-9)
	assert.NotEmpty(t, rec.Params)
}
