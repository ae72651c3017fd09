package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/scorelab/internal/config"
	"github.com/sawpanic/scorelab/internal/datasource"
	"github.com/sawpanic/scorelab/internal/metrics"
	"github.com/sawpanic/scorelab/internal/regime"
	"github.com/sawpanic/scorelab/internal/scoring"
	"github.com/sawpanic/scorelab/internal/series"
)

// Clock interface for time operations (injectable for testing)
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using real time
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

// Instrument is one symbol selected for a run
type Instrument struct {
	Symbol   string
	Category string
}

// Runner executes backtests over a universe
type Runner struct {
	config   Config
	universe *config.UniverseConfig
	source   datasource.Source
	scorer   *scoring.Scorer
	metrics  *metrics.Registry
	clock    Clock
}

// NewRunner creates a backtest runner. Zero config fields take defaults.
func NewRunner(cfg Config, universe *config.UniverseConfig, source datasource.Source, scorer *scoring.Scorer, reg *metrics.Registry) *Runner {
	def := DefaultConfig()
	if cfg.Timeframe == "" {
		cfg.Timeframe = def.Timeframe
	}
	if cfg.Denomination == "" {
		cfg.Denomination = def.Denomination
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = def.MinHistory
	}
	if cfg.Regime == (regime.Config{}) {
		cfg.Regime = def.Regime
	}
	if scorer == nil {
		scorer = scoring.NewScorer(nil, nil, scoring.DefaultConfig())
	}
	return &Runner{
		config:   cfg,
		universe: universe,
		source:   source,
		scorer:   scorer,
		metrics:  reg,
		clock:    RealClock{},
	}
}

// SetClock sets the clock implementation (for testing)
func (r *Runner) SetClock(clock Clock) {
	r.clock = clock
}

// Config returns the effective configuration
func (r *Runner) Config() Config {
	return r.config
}

// Scorer returns the scorer events are evaluated with
func (r *Runner) Scorer() *scoring.Scorer {
	return r.scorer
}

// WithScorer returns a runner sharing everything but the scorer
func (r *Runner) WithScorer(s *scoring.Scorer) *Runner {
	out := *r
	out.scorer = s
	return &out
}

func (r *Runner) validate() error {
	if _, err := r.scorer.Timeframes().Get(r.config.Timeframe); err != nil {
		return err
	}
	if _, err := series.ParseDenomination(string(r.config.Denomination)); err != nil {
		return err
	}
	switch {
	case r.config.PerCategory <= 0:
		return fmt.Errorf("instruments per category must be positive, got %d", r.config.PerCategory)
	case r.config.MinMovePct <= 0:
		return fmt.Errorf("minimum move must be positive, got %.2f", r.config.MinMovePct)
	case r.config.LookbackBars <= 0:
		return fmt.Errorf("lookback must be positive, got %d", r.config.LookbackBars)
	}
	return nil
}

// Instruments returns the symbols a run covers: the first PerCategory
// symbols of each selected category, in universe order
func (r *Runner) Instruments() ([]Instrument, error) {
	names := r.config.Categories
	if len(names) == 0 {
		names = r.universe.CategoryNames()
	}

	var out []Instrument
	for _, name := range names {
		symbols, ok := r.universe.Categories[name]
		if !ok {
			return nil, fmt.Errorf("category %q is not in the universe", name)
		}
		if len(symbols) > r.config.PerCategory {
			symbols = symbols[:r.config.PerCategory]
		}
		for _, sym := range symbols {
			out = append(out, Instrument{Symbol: sym, Category: name})
		}
	}
	return out, nil
}

// Run executes the backtest: scan every instrument for explosive moves,
// score each move as of its start date, then aggregate.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	instruments, err := r.Instruments()
	if err != nil {
		return nil, err
	}

	timer := r.metrics.StartStep("backtest")
	startedAt := r.clock.Now()
	runID := uuid.New().String()
	log.Info().
		Str("run_id", runID).
		Int("instruments", len(instruments)).
		Str("timeframe", string(r.config.Timeframe)).
		Float64("min_move_pct", r.config.MinMovePct).
		Int("lookback_bars", r.config.LookbackBars).
		Msg("Starting backtest")

	inputs, err := datasource.LoadInputs(ctx, r.source, r.universe.Benchmarks, r.config.History)
	if err != nil {
		timer.Stop("error")
		return nil, fmt.Errorf("failed to load benchmarks: %w", err)
	}

	events, skipped, err := r.scanAll(ctx, instruments, inputs)
	if err != nil {
		timer.Stop("error")
		return nil, err
	}

	report := Aggregate(events, r.config.TopEvents)
	report.RunID = runID
	report.StartedAt = startedAt
	report.FinishedAt = r.clock.Now()
	report.Config = r.config
	report.Skipped = skipped
	r.fillEmptyCategories(&report, instruments)
	r.publish(&report)
	timer.Stop("ok")

	log.Info().
		Str("run_id", runID).
		Int("events", report.Overall.Events).
		Int("skipped_instruments", len(skipped)).
		Float64("catch_rate", report.Overall.CatchRate).
		Msg("Backtest complete")
	return &report, nil
}

type instrumentResult struct {
	events []Event
	skip   *InstrumentSkip
}

// scanAll fans instruments out to a bounded worker pool. Results are sorted
// afterwards so output does not depend on scheduling.
func (r *Runner) scanAll(ctx context.Context, instruments []Instrument, inputs regime.Inputs) ([]Event, []InstrumentSkip, error) {
	jobs := make(chan Instrument)
	results := make(chan instrumentResult, len(instruments))
	progress := NewProgress(len(instruments))

	var wg sync.WaitGroup
	workers := r.config.Workers
	if workers > len(instruments) {
		workers = len(instruments)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for inst := range jobs {
				res := r.processInstrument(ctx, inst, inputs)
				progress.Record(res.events, res.skip != nil)
				results <- res
			}
		}()
	}

feed:
	for _, inst := range instruments {
		select {
		case jobs <- inst:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("backtest cancelled: %w", err)
	}

	var (
		events  []Event
		skipped []InstrumentSkip
	)
	for res := range results {
		events = append(events, res.events...)
		if res.skip != nil {
			skipped = append(skipped, *res.skip)
		}
	}
	sortEvents(events)
	sort.Slice(skipped, func(i, j int) bool {
		if skipped[i].Category != skipped[j].Category {
			return skipped[i].Category < skipped[j].Category
		}
		return skipped[i].Symbol < skipped[j].Symbol
	})

	snap := progress.Snapshot()
	log.Debug().
		Int("instruments", snap.Done).
		Int("events", snap.Events).
		Int("scored", snap.Scored).
		Msg("Scan finished")
	return events, skipped, nil
}

func (r *Runner) processInstrument(ctx context.Context, inst Instrument, inputs regime.Inputs) instrumentResult {
	skip := func(reason string) instrumentResult {
		log.Warn().Str("symbol", inst.Symbol).Str("category", inst.Category).Str("reason", reason).Msg("Instrument skipped")
		r.metrics.RecordBacktestSkip()
		return instrumentResult{skip: &InstrumentSkip{Symbol: inst.Symbol, Category: inst.Category, Reason: reason}}
	}
	if ctx.Err() != nil {
		return skip(ctx.Err().Error())
	}

	s, err := r.source.GetSeries(ctx, inst.Symbol, r.config.History, false)
	if err != nil {
		return skip(err.Error())
	}
	events, err := r.ScanInstrument(s.View(), inst.Category, inputs)
	if err != nil {
		return skip(err.Error())
	}
	return instrumentResult{events: events}
}

// ScanInstrument finds the explosive moves in a daily view and scores each
// one as of its start date
func (r *Runner) ScanInstrument(v series.View, cat string, inputs regime.Inputs) ([]Event, error) {
	if v.Len() < r.config.MinHistory {
		return nil, fmt.Errorf("%s has %d bars, need %d: %w", v.Symbol(), v.Len(), r.config.MinHistory, ErrInsufficientHistory)
	}
	events := FindExplosiveMoves(v, r.config.MinMovePct, r.config.LookbackBars)
	for i := range events {
		events[i].Category = cat
		events[i] = r.ScoreEvent(v, cat, inputs, events[i])
	}
	return events, nil
}

// ScoreEvent scores ev using only bars up to and including its start bar.
// The scorer receives a view cut at that bar and regime readings built as
// of the start date, so nothing after it can leak into the score.
func (r *Runner) ScoreEvent(v series.View, cat string, inputs regime.Inputs, ev Event) Event {
	asOf := v.Head(ev.Index + 1)
	m := scoring.Market{
		Regime:    regime.Build(inputs, ev.Start, r.config.Regime),
		Reference: inputs.Reference.AsOf(ev.Start),
	}

	res, err := r.scorer.Score(asOf, r.config.Timeframe, r.config.Denomination, cat, m)
	switch {
	case err != nil:
		ev.SkipReason = err.Error()
	case res.Degraded:
		ev.SkipReason = fmt.Sprintf("insufficient bars: %d", res.Indicators.Bars)
	default:
		ev.Scored = true
		ev.Score = res.Value
		ev.Breakdown = res.Breakdown
	}
	return ev
}

func (r *Runner) fillEmptyCategories(report *Report, instruments []Instrument) {
	seen := make(map[string]bool, len(report.Categories))
	for _, c := range report.Categories {
		seen[c.Category] = true
	}
	for _, inst := range instruments {
		if !seen[inst.Category] {
			seen[inst.Category] = true
			report.Categories = append(report.Categories, EmptyCategory(inst.Category))
		}
	}
	sort.Slice(report.Categories, func(i, j int) bool {
		return report.Categories[i].Category < report.Categories[j].Category
	})
}

func (r *Runner) publish(report *Report) {
	for _, e := range report.Events {
		if e.Scored {
			r.metrics.RecordBacktestEvent(e.Category, BucketOf(e.Score))
		}
	}
	for _, c := range report.Categories {
		r.metrics.SetCatchRate(c.Category, c.CatchRate)
	}
	r.metrics.MarkRunFinished(report.FinishedAt)
}
