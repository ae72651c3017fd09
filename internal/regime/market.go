package regime

import (
	"github.com/sawpanic/scorelab/internal/domain/indicators"
	"github.com/sawpanic/scorelab/internal/series"
)

// MarketRatio divides index closes by reference closes on the dates both share
func MarketRatio(index, ref series.View) []float64 {
	refByDay := make(map[int64]float64, ref.Len())
	for i := 0; i < ref.Len(); i++ {
		b := ref.At(i)
		refByDay[dayKey(b)] = b.Close
	}
	out := make([]float64, 0, index.Len())
	for i := 0; i < index.Len(); i++ {
		b := index.At(i)
		if r, ok := refByDay[dayKey(b)]; ok && r > 0 {
			out = append(out, b.Close/r)
		}
	}
	return out
}

func dayKey(b series.Bar) int64 {
	return b.Time.UTC().Unix() / 86400
}

// MarketTrend classifies the index/reference ratio by the slope of its moving
// average. Crashing and declining markets subtract points and derate the
// score; a ratio near its recent low subtracts further points.
func MarketTrend(index, ref series.View, cfg Config) Reading {
	r := NeutralReading()
	ratio := MarketRatio(index, ref)
	if len(ratio) == 0 {
		return r
	}
	r.Value = ratio[len(ratio)-1]

	if len(ratio) >= cfg.MarketMAPeriod+cfg.MarketSlopeBars {
		ma := indicators.SMA(ratio, cfg.MarketMAPeriod)
		now, then := indicators.Last(ma), indicators.Ago(ma, cfg.MarketSlopeBars)
		r.Change = (now - then) / then * 100
		r.Available = true

		switch {
		case r.Change < cfg.CrashingPct:
			r.Label = Crashing
			r.Adjustment = cfg.CrashingAdjustment
		case r.Change < cfg.DecliningPct:
			r.Label = Declining
			r.Adjustment = cfg.DecliningAdjustment
		case r.Change < cfg.RisingPct:
			r.Label = Neutral
		default:
			r.Label = Rising
		}
		if r.Bearish() {
			r.Derate = cfg.BearishDerate
		}
	}

	if len(ratio) >= cfg.NearLowWindow {
		low := indicators.Min(indicators.Tail(ratio, cfg.NearLowWindow))
		if (r.Value/low-1)*100 < cfg.NearLowPct {
			r.Adjustment += cfg.NearLowAdjustment
			r.Trend = NearLow
		}
		r.Available = true
	}
	return r
}
