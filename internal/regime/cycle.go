package regime

import (
	"math"

	"github.com/sawpanic/scorelab/internal/domain/indicators"
)

const tradingDays = 252

// BusinessCycle classifies the latest diffusion-index reading (50 midpoint)
// and adds a trend term comparing it with the reading CycleTrendReadings
// earlier. The adjustment is unscaled; callers weight it by timeframe.
func BusinessCycle(readings []float64, cfg Config) Reading {
	r := NeutralReading()
	if len(readings) == 0 || math.IsNaN(indicators.Last(readings)) {
		return r
	}
	r.Value = indicators.Last(readings)
	r.Available = true
	classifyCycle(&r, cfg)

	prior := indicators.Ago(readings, cfg.CycleTrendReadings)
	if math.IsNaN(prior) {
		return r
	}
	r.Change = r.Value - prior
	applyCycleTrend(&r, r.Change, cfg)
	return r
}

// BusinessCycleProxy estimates a diffusion-style reading from an equity
// index when no survey series is configured: annualized momentum and
// volatility of the last CycleProxyWindow daily returns are normalized and
// blended onto a 30-70 scale.
func BusinessCycleProxy(closes []float64, cfg Config) Reading {
	r := NeutralReading()
	window := cfg.CycleProxyWindow
	if len(closes) < window+1 {
		return r
	}
	returns := indicators.Tail(dailyReturns(closes), window)
	momentum := indicators.Mean(returns) * tradingDays
	volatility := sampleStd(returns) * math.Sqrt(tradingDays)

	momNorm := clip((momentum+0.2)/0.4, 0, 1)
	volNorm := clip(1-(volatility-0.1)/0.2, 0, 1)
	r.Value = 30 + (momNorm*0.6+volNorm*0.4)*40
	r.Available = true
	classifyCycle(&r, cfg)

	short := indicators.Mean(indicators.Tail(returns, window/2)) * tradingDays
	r.Change = short - momentum
	applyCycleTrend(&r, r.Change, cfg)
	return r
}

func classifyCycle(r *Reading, cfg Config) {
	switch {
	case r.Value >= cfg.CycleStrongExpansion:
		r.Label, r.Adjustment = StrongExpansion, 1.0
	case r.Value >= cfg.CycleExpansion:
		r.Label, r.Adjustment = Expansion, 0.5
	case r.Value >= cfg.CycleContraction:
		r.Label, r.Adjustment = Contraction, -0.5
	default:
		r.Label, r.Adjustment = StrongContraction, -1.0
	}
}

func applyCycleTrend(r *Reading, delta float64, cfg Config) {
	switch {
	case delta > 0:
		r.Trend = Improving
		r.Adjustment += cfg.CycleTrendScore
	case delta < 0:
		r.Trend = Deteriorating
		r.Adjustment -= cfg.CycleTrendScore
	default:
		r.Trend = Stable
	}
}

func dailyReturns(closes []float64) []float64 {
	out := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] > 0 {
			out = append(out, closes[i]/closes[i-1]-1)
		}
	}
	return out
}

func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := indicators.Mean(values)
	ss := 0.0
	for _, v := range values {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
