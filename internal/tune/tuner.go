package tune

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/scorelab/internal/backtest"
	"github.com/sawpanic/scorelab/internal/category"
	"github.com/sawpanic/scorelab/internal/metrics"
)

// ErrNoEvents is returned when a category has no explosive moves to tune against
var ErrNoEvents = errors.New("no events to tune against")

// Config defines the configuration for coordinate descent optimization
type Config struct {
	MaxEvaluations    int              `json:"max_evaluations"`    // maximum objective evaluations
	Tolerance         float64          `json:"tolerance"`          // minimum improvement that counts
	InitialStep       float64          `json:"initial_step"`       // relative step, 0.1 moves a field by 10%
	BacktrackingRatio float64          `json:"backtracking_ratio"` // step reduction after a sweep without improvement
	MinStep           float64          `json:"min_step"`
	EarlyStopWindow   int              `json:"early_stop_window"` // sweeps without improvement before stopping
	Fields            []category.Field `json:"fields"`
	Objective         ObjectiveConfig  `json:"objective"`
}

// DefaultConfig returns the default optimizer configuration
func DefaultConfig() Config {
	return Config{
		MaxEvaluations:    60,
		Tolerance:         1e-4,
		InitialStep:       0.2,
		BacktrackingRatio: 0.5,
		MinStep:           0.02,
		EarlyStopWindow:   3,
		Fields:            category.Fields(),
		Objective:         DefaultObjectiveConfig(),
	}
}

// Step represents a single evaluation in the optimization history
type Step struct {
	Evaluation  int            `json:"evaluation"`
	Field       category.Field `json:"field"`
	Value       float64        `json:"value"`
	StepSize    float64        `json:"step_size"`
	Objective   float64        `json:"objective"`
	Improvement float64        `json:"improvement"`
	Accepted    bool           `json:"accepted"`
}

// Result holds the result of the optimization process
type Result struct {
	RunID            string          `json:"run_id"`
	Category         string          `json:"category"`
	Events           int             `json:"events"`
	InitialParams    category.Params `json:"initial_params"`
	InitialObjective Objective       `json:"initial_objective"`
	BestParams       category.Params `json:"best_params"`
	BestObjective    Objective       `json:"best_objective"`
	Evaluations      int             `json:"evaluations"`
	Converged        bool            `json:"converged"`
	EarlyStopped     bool            `json:"early_stopped"`
	Elapsed          time.Duration   `json:"elapsed"`
	History          []Step          `json:"history,omitempty"`
	// Table is the starting table with the best params applied
	Table *category.Table `json:"-"`
}

// Improvement returns the objective gain over the starting params
func (r Result) Improvement() float64 {
	return r.BestObjective.Value - r.InitialObjective.Value
}

// Tuner runs coordinate descent over one category's parameters, scoring
// every candidate with a full backtest of that category's events
type Tuner struct {
	config  Config
	runner  *backtest.Runner
	metrics *metrics.Registry
}

// NewTuner creates a tuner. The runner supplies the data, the backtest
// settings and the starting scorer.
func NewTuner(cfg Config, runner *backtest.Runner, reg *metrics.Registry) *Tuner {
	def := DefaultConfig()
	if cfg.MaxEvaluations <= 0 {
		cfg.MaxEvaluations = def.MaxEvaluations
	}
	if cfg.InitialStep <= 0 {
		cfg.InitialStep = def.InitialStep
	}
	if cfg.BacktrackingRatio <= 0 || cfg.BacktrackingRatio >= 1 {
		cfg.BacktrackingRatio = def.BacktrackingRatio
	}
	if cfg.MinStep <= 0 {
		cfg.MinStep = def.MinStep
	}
	if cfg.EarlyStopWindow <= 0 {
		cfg.EarlyStopWindow = def.EarlyStopWindow
	}
	if len(cfg.Fields) == 0 {
		cfg.Fields = def.Fields
	}
	if cfg.Objective == (ObjectiveConfig{}) {
		cfg.Objective = def.Objective
	}
	return &Tuner{config: cfg, runner: runner, metrics: reg}
}

type evaluator struct {
	ctx     context.Context
	tuner   *Tuner
	dataset *backtest.Dataset
	table   *category.Table
	name    string
	base    category.Params
}

func (e *evaluator) eval(p category.Params) (Objective, *category.Table, error) {
	tbl, err := e.table.WithParams(e.name, p)
	if err != nil {
		return Objective{}, nil, err
	}
	runner := e.tuner.runner.WithScorer(e.tuner.runner.Scorer().WithTable(tbl))
	events, err := runner.Evaluate(e.ctx, e.dataset)
	if err != nil {
		return Objective{}, nil, err
	}
	e.tuner.metrics.RecordTuneEvaluation()

	rep := backtest.Aggregate(events, 0)
	cr, ok := rep.Category(e.name)
	if !ok {
		cr = backtest.EmptyCategory(e.name)
	}
	return e.tuner.config.Objective.evaluate(cr, events, p, e.base), tbl, nil
}

// Optimize tunes the parameters of one category
func (t *Tuner) Optimize(ctx context.Context, name string) (Result, error) {
	started := time.Now()
	table := t.runner.Scorer().Table()
	base := table.Lookup(name)

	ds, err := t.runner.Prepare(ctx, []string{name})
	if err != nil {
		return Result{}, fmt.Errorf("failed to prepare %s: %w", name, err)
	}
	if ds.EventCount() == 0 {
		return Result{}, fmt.Errorf("category %s: %w", name, ErrNoEvents)
	}

	ev := &evaluator{ctx: ctx, tuner: t, dataset: ds, table: table, name: name, base: base}
	initial, bestTable, err := ev.eval(base)
	if err != nil {
		return Result{}, fmt.Errorf("failed to evaluate initial params: %w", err)
	}

	res := Result{
		RunID:            uuid.New().String(),
		Category:         name,
		Events:           ds.EventCount(),
		InitialParams:    base,
		InitialObjective: initial,
		BestParams:       base,
		BestObjective:    initial,
		Evaluations:      1,
	}
	log.Info().
		Str("run_id", res.RunID).
		Str("category", name).
		Int("events", res.Events).
		Float64("objective", initial.Value).
		Msg("Starting tuning")

	current := base
	stepSize := t.config.InitialStep
	noImprovement := 0

search:
	for res.Evaluations < t.config.MaxEvaluations {
		improved := false

		for _, field := range t.config.Fields {
			for _, direction := range []float64{1, -1} {
				if err := ctx.Err(); err != nil {
					return Result{}, err
				}
				if res.Evaluations >= t.config.MaxEvaluations {
					break search
				}

				value, ok := current.Get(field)
				if !ok {
					continue
				}
				next := stepValue(value, direction, stepSize)
				candidate, _ := current.With(field, next)
				if candidate.Validate() != nil {
					continue
				}

				obj, tbl, err := ev.eval(candidate)
				if err != nil {
					if ctx.Err() != nil {
						return Result{}, ctx.Err()
					}
					continue
				}
				res.Evaluations++

				step := Step{
					Evaluation:  res.Evaluations,
					Field:       field,
					Value:       next,
					StepSize:    stepSize,
					Objective:   obj.Value,
					Improvement: obj.Value - res.BestObjective.Value,
				}
				if step.Improvement > t.config.Tolerance {
					step.Accepted = true
					current = candidate
					res.BestParams = candidate
					res.BestObjective = obj
					bestTable = tbl
					improved = true
					log.Debug().
						Str("field", string(field)).
						Float64("value", next).
						Float64("objective", obj.Value).
						Msg("Tuning step accepted")
				}
				res.History = append(res.History, step)
				if step.Accepted {
					break
				}
			}
		}

		if improved {
			noImprovement = 0
			continue
		}
		noImprovement++
		stepSize *= t.config.BacktrackingRatio
		if stepSize < t.config.MinStep {
			res.Converged = true
			break
		}
		if noImprovement >= t.config.EarlyStopWindow {
			res.EarlyStopped = true
			break
		}
	}

	res.Table = bestTable
	res.Elapsed = time.Since(started)
	t.metrics.SetTuneObjective(name, res.BestObjective.Value)

	log.Info().
		Str("run_id", res.RunID).
		Str("category", name).
		Int("evaluations", res.Evaluations).
		Float64("objective", res.BestObjective.Value).
		Float64("catch_rate", res.BestObjective.CatchRate).
		Float64("improvement", res.Improvement()).
		Msg("Tuning complete")
	return res, nil
}

// stepValue moves v by a relative step, or by an absolute one when v is zero
func stepValue(v, direction, step float64) float64 {
	if v == 0 {
		return direction * step
	}
	return v * (1 + direction*step*math.Copysign(1, v))
}
