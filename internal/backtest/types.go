// Package backtest replays the scorer over historical explosive moves and
// measures how many of them a high score would have flagged in advance.
package backtest

import (
	"errors"
	"runtime"
	"time"

	"github.com/sawpanic/scorelab/internal/regime"
	"github.com/sawpanic/scorelab/internal/scoring"
	"github.com/sawpanic/scorelab/internal/series"
)

// ErrInsufficientHistory is returned for an instrument too short to scan
var ErrInsufficientHistory = errors.New("insufficient history")

// Config represents a backtest run configuration
type Config struct {
	Categories   []string            `json:"categories,omitempty"` // empty selects every category in the universe
	PerCategory  int                 `json:"per_category"`         // instruments taken from each category
	MinMovePct   float64             `json:"min_move_pct"`         // forward return that qualifies an event
	LookbackBars int                 `json:"lookback_bars"`        // forward window, in daily bars
	Timeframe    series.Timeframe    `json:"timeframe"`            // timeframe events are scored at
	Denomination series.Denomination `json:"denomination"`
	MinHistory   int                 `json:"min_history"` // daily bars an instrument needs to be scanned
	History      time.Duration       `json:"history"`     // how much data to request per instrument
	Workers      int                 `json:"workers"`
	TopEvents    int                 `json:"top_events"` // events listed per category in the report
	OutputDir    string              `json:"output_dir"`
	Regime       regime.Config       `json:"-"`
}

// DefaultConfig returns default backtest configuration
func DefaultConfig() Config {
	return Config{
		PerCategory:  3,
		MinMovePct:   30,
		LookbackBars: 60,
		Timeframe:    series.TF1W,
		Denomination: series.USD,
		MinHistory:   100,
		History:      1825 * 24 * time.Hour,
		Workers:      runtime.NumCPU(),
		TopEvents:    5,
		OutputDir:    "./artifacts/backtest",
		Regime:       regime.DefaultConfig(),
	}
}

// Event is one explosive move and the score it had on its start date
type Event struct {
	Symbol     string    `json:"symbol"`
	Category   string    `json:"category"`
	Index      int       `json:"index"`
	Start      time.Time `json:"start"`
	StartPrice float64   `json:"start_price"`
	PeakTime   time.Time `json:"peak_time"`
	PeakPrice  float64   `json:"peak_price"`
	ReturnPct  float64   `json:"return_pct"`
	DaysToPeak int       `json:"days_to_peak"`

	Scored     bool              `json:"scored"`
	Score      float64           `json:"score"`
	Breakdown  scoring.Breakdown `json:"breakdown,omitempty"`
	SkipReason string            `json:"skip_reason,omitempty"`
}

// InstrumentSkip records an instrument that produced no events
type InstrumentSkip struct {
	Symbol   string `json:"symbol"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// Bucket aggregates the scored events that fell in one score range
type Bucket struct {
	Label          string  `json:"label"`
	Count          int     `json:"count"`
	CatchRate      float64 `json:"catch_rate"` // fraction of the category's scored events
	MeanReturn     float64 `json:"mean_return"`
	MeanDaysToPeak float64 `json:"mean_days_to_peak"`
}

// CategoryReport is the aggregate for one category
type CategoryReport struct {
	Category string   `json:"category"`
	Events   int      `json:"events"`
	Unscored int      `json:"unscored"`
	Buckets  []Bucket `json:"buckets"`
	// CatchRate is the fraction of scored events in the top bucket
	CatchRate float64 `json:"catch_rate"`
	MeanScore float64 `json:"mean_score"`
	Top       []Event `json:"top,omitempty"`
}

// Bucket returns the named bucket, false when absent
func (c CategoryReport) Bucket(label string) (Bucket, bool) {
	for _, b := range c.Buckets {
		if b.Label == label {
			return b, true
		}
	}
	return Bucket{}, false
}

// Report is the outcome of a backtest run
type Report struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Config     Config           `json:"config"`
	Overall    CategoryReport   `json:"overall"`
	Categories []CategoryReport `json:"categories"`
	Skipped    []InstrumentSkip `json:"skipped,omitempty"`
	Events     []Event          `json:"-"`
}

// BucketStats is the plain form of a bucket in Table
type BucketStats struct {
	Count      int     `json:"count"`
	CatchRate  float64 `json:"catch_rate"`
	MeanReturn float64 `json:"mean_return"`
}

// Table returns the report as category -> bucket -> stats
func (r *Report) Table() map[string]map[string]BucketStats {
	out := make(map[string]map[string]BucketStats, len(r.Categories))
	for _, c := range r.Categories {
		row := make(map[string]BucketStats, len(c.Buckets))
		for _, b := range c.Buckets {
			row[b.Label] = BucketStats{Count: b.Count, CatchRate: b.CatchRate, MeanReturn: b.MeanReturn}
		}
		out[c.Category] = row
	}
	return out
}

// Category returns the report for name, false when absent
func (r *Report) Category(name string) (CategoryReport, bool) {
	for _, c := range r.Categories {
		if c.Category == name {
			return c, true
		}
	}
	return CategoryReport{}, false
}
