package regime

import (
	"math"

	"github.com/sawpanic/scorelab/internal/domain/indicators"
	"github.com/sawpanic/scorelab/internal/series"
)

// Volatility classifies the latest volatility index close. A rising index
// (short average more than VIXRisingPct above the long one) only adds a
// penalty when the level is already moderate or high.
func Volatility(vix series.View, cfg Config) Reading {
	r := NeutralReading()
	if vix.Empty() {
		return r
	}
	closes := vix.Closes()
	r.Value = indicators.Last(closes)
	r.Available = true

	switch {
	case r.Value < cfg.VIXModerate:
		r.Label = VolLow
	case r.Value < cfg.VIXHigh:
		r.Label = VolModerate
		r.Adjustment = cfg.VIXModerateAdjustment
	default:
		r.Label = VolHigh
		r.Adjustment = cfg.VIXHighAdjustment
		r.Derate = cfg.VIXHighDerate
	}

	short := indicators.Last(indicators.SMA(closes, cfg.VIXShortMA))
	long := indicators.Last(indicators.SMA(closes, cfg.VIXLongMA))
	if math.IsNaN(short) || math.IsNaN(long) || long <= 0 {
		return r
	}
	r.Change = (short/long - 1) * 100
	switch {
	case r.Change > cfg.VIXRisingPct:
		r.Trend = Rising
	case r.Change < -cfg.VIXRisingPct:
		r.Trend = Falling
	default:
		r.Trend = Stable
	}
	if r.Trend == Rising && r.Label != VolLow {
		r.Adjustment += cfg.VIXRisingAdjustment
		r.Derate *= cfg.VIXRisingDerate
	}
	return r
}
