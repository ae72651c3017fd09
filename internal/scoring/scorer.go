package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/scorelab/internal/category"
	"github.com/sawpanic/scorelab/internal/domain/indicators"
	"github.com/sawpanic/scorelab/internal/regime"
	"github.com/sawpanic/scorelab/internal/series"
)

// Scorer turns a daily series into capped composite scores per timeframe.
// It holds only immutable tables and is safe for concurrent use.
type Scorer struct {
	cfg        Config
	table      *category.Table
	timeframes *series.Timeframes
}

// NewScorer builds a scorer. Nil tables fall back to the stock ones.
func NewScorer(table *category.Table, timeframes *series.Timeframes, cfg Config) *Scorer {
	if table == nil {
		table = category.DefaultTable()
	}
	if timeframes == nil {
		timeframes = series.DefaultTimeframes()
	}
	if cfg.MinBars <= 0 {
		cfg.MinBars = DefaultConfig().MinBars
	}
	return &Scorer{cfg: cfg, table: table, timeframes: timeframes}
}

// Table returns the category table the scorer reads
func (s *Scorer) Table() *category.Table { return s.table }

// Timeframes returns the timeframe table the scorer reads
func (s *Scorer) Timeframes() *series.Timeframes { return s.timeframes }

// WithTable returns a scorer sharing everything but the category table
func (s *Scorer) WithTable(table *category.Table) *Scorer {
	out := *s
	out.table = table
	return &out
}

// Score evaluates the visible daily bars of v at one timeframe and
// denomination. Only bars in v are read, so scoring a Head or AsOf view never
// sees later data.
func (s *Scorer) Score(v series.View, tf series.Timeframe, denom series.Denomination, cat string, m Market) (Result, error) {
	if _, err := s.timeframes.Get(tf); err != nil {
		return Result{}, err
	}
	if v.Empty() {
		return Result{}, fmt.Errorf("score %s: %w", v.Symbol(), series.ErrEmptySeries)
	}

	priced := v
	switch denom {
	case series.USD, "":
		denom = series.USD
	case series.Gold:
		ds, err := series.Denominate(v, m.Reference.AsOf(v.Cutoff()))
		if err != nil {
			return Result{}, fmt.Errorf("failed to denominate %s in gold: %w", v.Symbol(), err)
		}
		priced = ds.View()
	default:
		return Result{}, fmt.Errorf("score %s: unknown denomination %q", v.Symbol(), denom)
	}

	resampled, err := series.Resample(priced, tf, s.timeframes)
	if err != nil {
		return Result{}, fmt.Errorf("failed to resample %s to %s: %w", v.Symbol(), tf, err)
	}

	sig := Signals{
		Set:         indicators.CalculateAll(resampled.View(), s.cfg.Indicators),
		Seasonality: regime.NeutralReading(),
	}
	if s.table.Classify(cat).Crypto {
		sig.Seasonality = regime.Seasonality(v, v.Cutoff(), s.cfg.Regime)
	}

	res, err := s.ScoreSignals(sig, tf, cat, m.Regime)
	if err != nil {
		return Result{}, err
	}
	res.Symbol = v.Symbol()
	res.Denomination = denom
	res.Degraded = sig.Bars < s.cfg.MinBars
	return res, nil
}

// ScoreSignals applies the rule engine to precomputed signals. The final
// value is min(cap, (rules + seasonality + cycle + market + volatility)
// x derate x strictness) and every step is recorded in the breakdown.
func (s *Scorer) ScoreSignals(sig Signals, tf series.Timeframe, cat string, rc regime.Context) (Result, error) {
	spec, err := s.timeframes.Get(tf)
	if err != nil {
		return Result{}, err
	}

	flags := s.table.Classify(cat)
	params := s.table.Lookup(cat)
	pts := s.table.Points()

	var b Breakdown
	applyRules(&b, ruleInput{set: sig.Set, flags: flags, params: params, pts: pts})
	subtotal := b.Total()

	if flags.Crypto && sig.Seasonality.Available {
		b.add("seasonality", sig.Seasonality.Adjustment*spec.SeasonalWeight)
	}
	if rc.Cycle.Available {
		b.add("business_cycle", rc.Cycle.Adjustment*spec.CycleWeight)
	}
	if rc.Market.Available {
		b.add("market_regime", rc.Market.Adjustment)
	}
	if rc.Volatility.Available {
		b.add("vix_regime", rc.Volatility.Adjustment)
	}

	raw := b.Total()
	derate := rc.Derate()
	derated := raw * derate
	b.add("regime_derate", derated-raw)

	strict := derated * spec.Strictness
	b.add("timeframe_strictness", strict-derated)

	value := strict
	capped := false
	if value > pts.Cap {
		b.add("score_capped", pts.Cap-value)
		value = pts.Cap
		capped = true
	}

	return Result{
		Category:    cat,
		Flags:       flags,
		Timeframe:   tf,
		AsOf:        sig.AsOf,
		Value:       value,
		Subtotal:    subtotal,
		Derate:      derate,
		Strictness:  spec.Strictness,
		Capped:      capped,
		Degraded:    sig.Bars < s.cfg.MinBars,
		Breakdown:   b,
		Unavailable: sig.Unavailable(),
		Indicators:  sig.Set,
		Seasonality: sig.Seasonality,
		Regime:      rc,
	}, nil
}

// ScoreAll scores every timeframe in USD and, when a reference series is
// present, in gold. Timeframes that cannot produce a full result are skipped
// with a reason. An unknown timeframe is a configuration error and aborts.
func (s *Scorer) ScoreAll(v series.View, cat string, m Market) ([]Result, []Skip, error) {
	denoms := []series.Denomination{series.USD}
	if !m.Reference.Empty() {
		denoms = append(denoms, series.Gold)
	}

	var (
		results []Result
		skips   []Skip
	)
	for _, tf := range s.timeframes.Labels() {
		for _, denom := range denoms {
			res, err := s.Score(v, tf, denom, cat, m)
			if errors.Is(err, series.ErrUnknownTimeframe) {
				return nil, nil, err
			}

			skip := Skip{Symbol: v.Symbol(), Timeframe: tf, Denomination: denom}
			switch {
			case err != nil:
				skip.Reason = err.Error()
			case res.Degraded:
				skip.Bars = res.Indicators.Bars
				skip.Reason = fmt.Sprintf("insufficient bars: %d < %d", res.Indicators.Bars, s.cfg.MinBars)
			default:
				results = append(results, res)
				continue
			}

			log.Warn().
				Str("symbol", v.Symbol()).
				Str("timeframe", string(tf)).
				Str("denomination", string(denom)).
				Str("reason", skip.Reason).
				Msg("Timeframe skipped")
			skips = append(skips, skip)
		}
	}
	return results, skips, nil
}

// Best returns the highest-valued result, false when there are none
func Best(results []Result) (Result, bool) {
	best, found := Result{Value: math.Inf(-1)}, false
	for _, r := range results {
		if r.Value > best.Value {
			best, found = r, true
		}
	}
	return best, found
}
