package regime

import (
	"time"

	"github.com/sawpanic/scorelab/internal/domain/indicators"
	"github.com/sawpanic/scorelab/internal/series"
)

// PeriodStats summarizes the returns of one calendar month or quarter
// across every year in the history
type PeriodStats struct {
	AvgReturn float64 `json:"avg_return"`
	WinRate   float64 `json:"win_rate"`
	Years     int     `json:"years"`
}

// SeasonalProfile holds the per-month and per-quarter statistics
type SeasonalProfile struct {
	Months   map[time.Month]PeriodStats `json:"months"`
	Quarters map[int]PeriodStats        `json:"quarters"`
	Years    float64                    `json:"years"`
}

type periodKey struct {
	year   int
	period int
}

// BuildSeasonalProfile groups the view's closes by calendar month and
// quarter. A period in a given year needs at least two bars to count.
func BuildSeasonalProfile(v series.View) SeasonalProfile {
	p := SeasonalProfile{
		Months:   make(map[time.Month]PeriodStats),
		Quarters: make(map[int]PeriodStats),
	}
	if v.Len() < 2 {
		return p
	}
	p.Years = v.Cutoff().Sub(v.At(0).Time).Hours() / 24 / 365.25

	monthly := periodReturns(v, func(t time.Time) int { return int(t.Month()) })
	for month, rets := range monthly {
		p.Months[time.Month(month)] = summarize(rets)
	}
	quarterly := periodReturns(v, quarterOf)
	for q, rets := range quarterly {
		p.Quarters[q] = summarize(rets)
	}
	return p
}

func quarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// periodReturns returns, per period, the first-to-last close return in
// percent for each year the period appears in
func periodReturns(v series.View, period func(time.Time) int) map[int][]float64 {
	type span struct {
		first, last float64
		n           int
	}
	spans := make(map[periodKey]*span)
	var order []periodKey
	for i := 0; i < v.Len(); i++ {
		b := v.At(i)
		t := b.Time.UTC()
		k := periodKey{year: t.Year(), period: period(t)}
		s, ok := spans[k]
		if !ok {
			s = &span{first: b.Close}
			spans[k] = s
			order = append(order, k)
		}
		s.last = b.Close
		s.n++
	}

	out := make(map[int][]float64)
	for _, k := range order {
		s := spans[k]
		if s.n < 2 || s.first <= 0 {
			continue
		}
		out[k.period] = append(out[k.period], (s.last/s.first-1)*100)
	}
	return out
}

func summarize(rets []float64) PeriodStats {
	wins := 0
	for _, r := range rets {
		if r > 0 {
			wins++
		}
	}
	return PeriodStats{
		AvgReturn: indicators.Mean(rets),
		WinRate:   float64(wins) / float64(len(rets)) * 100,
		Years:     len(rets),
	}
}

// Seasonality scores the calendar month and quarter of asOf from the
// instrument's own history up to asOf. Fewer than SeasonalityMinYears of
// history yields a neutral reading.
func Seasonality(v series.View, asOf time.Time, cfg Config) Reading {
	r := NeutralReading()
	v = v.AsOf(asOf)
	profile := BuildSeasonalProfile(v)
	if v.Empty() || profile.Years < cfg.SeasonalityMinYears {
		return r
	}

	now := v.Cutoff().UTC()
	if m, ok := profile.Months[now.Month()]; ok {
		r.Available = true
		r.Value = m.AvgReturn
		switch {
		case m.AvgReturn > 5:
			r.Label, r.Adjustment = StrongPositive, 1.5
		case m.AvgReturn > 2:
			r.Label, r.Adjustment = Positive, 1.0
		case m.AvgReturn > 0:
			r.Label, r.Adjustment = MildPositive, 0.5
		case m.AvgReturn > -2:
			r.Label, r.Adjustment = MildNegative, -0.5
		case m.AvgReturn > -5:
			r.Label, r.Adjustment = Negative, -1.0
		default:
			r.Label, r.Adjustment = StrongNegative, -1.5
		}

		switch {
		case m.WinRate >= 80:
			r.Adjustment += 0.5
		case m.WinRate >= 60:
			r.Adjustment += 0.25
		case m.WinRate < 40:
			r.Adjustment -= 0.25
		}
	}

	if q, ok := profile.Quarters[quarterOf(now)]; ok {
		r.Available = true
		r.Change = q.AvgReturn
		switch {
		case q.AvgReturn > 10:
			r.Adjustment += 0.5
		case q.AvgReturn > 5:
			r.Adjustment += 0.25
		case q.AvgReturn < -10:
			r.Adjustment -= 0.5
		case q.AvgReturn < -5:
			r.Adjustment -= 0.25
		}
	}
	return r
}
