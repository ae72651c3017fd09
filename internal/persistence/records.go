package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/sawpanic/scorelab/internal/backtest"
	"github.com/sawpanic/scorelab/internal/tune"
)

// NewRunSummary flattens a report into its stored summary. raw is the
// report JSON; it is marshaled from report when nil.
func NewRunSummary(report *backtest.Report, raw []byte) (RunSummary, error) {
	if raw == nil {
		data, err := json.Marshal(report)
		if err != nil {
			return RunSummary{}, fmt.Errorf("failed to marshal report: %w", err)
		}
		raw = data
	}
	cfg := report.Config
	return RunSummary{
		RunID:        report.RunID,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
		Timeframe:    string(cfg.Timeframe),
		Denomination: string(cfg.Denomination),
		MinMovePct:   cfg.MinMovePct,
		LookbackBars: cfg.LookbackBars,
		Events:       report.Overall.Events,
		CatchRate:    report.Overall.CatchRate,
		MeanScore:    report.Overall.MeanScore,
		Report:       types.JSONText(raw),
		CreatedAt:    report.FinishedAt,
	}, nil
}

// NewEventRecord converts a backtest event. Unscored events have no bucket.
func NewEventRecord(runID string, e backtest.Event) (EventRecord, error) {
	breakdown := []byte("[]")
	if len(e.Breakdown) > 0 {
		data, err := json.Marshal(e.Breakdown)
		if err != nil {
			return EventRecord{}, fmt.Errorf("failed to marshal breakdown: %w", err)
		}
		breakdown = data
	}
	rec := EventRecord{
		RunID:      runID,
		Symbol:     e.Symbol,
		Category:   e.Category,
		StartDate:  e.Start,
		StartPrice: e.StartPrice,
		PeakDate:   e.PeakTime,
		PeakPrice:  e.PeakPrice,
		ReturnPct:  e.ReturnPct,
		DaysToPeak: e.DaysToPeak,
		Scored:     e.Scored,
		Score:      e.Score,
		SkipReason: e.SkipReason,
		Breakdown:  types.JSONText(breakdown),
	}
	if e.Scored {
		rec.Bucket = backtest.BucketOf(e.Score)
	}
	return rec, nil
}

// NewTuneRecord converts a tuning result
func NewTuneRecord(res tune.Result, createdAt time.Time) (TuneRecord, error) {
	params, err := json.Marshal(res.BestParams)
	if err != nil {
		return TuneRecord{}, fmt.Errorf("failed to marshal params: %w", err)
	}
	return TuneRecord{
		RunID:            res.RunID,
		Category:         res.Category,
		Events:           res.Events,
		Evaluations:      res.Evaluations,
		InitialObjective: res.InitialObjective.Value,
		BestObjective:    res.BestObjective.Value,
		CatchRate:        res.BestObjective.CatchRate,
		Params:           types.JSONText(params),
		CreatedAt:        createdAt,
	}, nil
}
