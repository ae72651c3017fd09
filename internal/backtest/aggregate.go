package backtest

import (
	"sort"
)

// Score bucket labels, lowest first
const (
	BucketLow      = "<2"
	BucketModerate = "2-4"
	BucketGood     = "4-6"
	BucketHigh     = ">=6"
)

// BucketLabels lists the score buckets in ascending order
var BucketLabels = []string{BucketLow, BucketModerate, BucketGood, BucketHigh}

// BucketOf returns the bucket a score falls in
func BucketOf(score float64) string {
	switch {
	case score >= 6:
		return BucketHigh
	case score >= 4:
		return BucketGood
	case score >= 2:
		return BucketModerate
	default:
		return BucketLow
	}
}

// Aggregate reduces events to per-category reports sorted by name, plus an
// overall report across every category. topN events by return are listed
// per category. Unscored events are counted but excluded from the buckets.
func Aggregate(events []Event, topN int) Report {
	byCategory := make(map[string][]Event)
	for _, e := range events {
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	rep := Report{Overall: summarize("all", events, topN), Events: events}
	for _, name := range names {
		rep.Categories = append(rep.Categories, summarize(name, byCategory[name], topN))
	}
	return rep
}

// EmptyCategory is the report for a category with no events
func EmptyCategory(name string) CategoryReport {
	return summarize(name, nil, 0)
}

func summarize(name string, events []Event, topN int) CategoryReport {
	rep := CategoryReport{Category: name, Events: len(events)}

	type acc struct {
		n         int
		ret, days float64
	}
	accs := make(map[string]*acc, len(BucketLabels))
	for _, label := range BucketLabels {
		accs[label] = &acc{}
	}

	scored := make([]Event, 0, len(events))
	scoreSum := 0.0
	for _, e := range events {
		if !e.Scored {
			rep.Unscored++
			continue
		}
		scored = append(scored, e)
		scoreSum += e.Score
		a := accs[BucketOf(e.Score)]
		a.n++
		a.ret += e.ReturnPct
		a.days += float64(e.DaysToPeak)
	}

	total := len(scored)
	for _, label := range BucketLabels {
		a := accs[label]
		b := Bucket{Label: label, Count: a.n}
		if total > 0 {
			b.CatchRate = float64(a.n) / float64(total)
		}
		if a.n > 0 {
			b.MeanReturn = a.ret / float64(a.n)
			b.MeanDaysToPeak = a.days / float64(a.n)
		}
		rep.Buckets = append(rep.Buckets, b)
	}
	if total > 0 {
		rep.CatchRate = float64(accs[BucketHigh].n) / float64(total)
		rep.MeanScore = scoreSum / float64(total)
	}

	if topN > 0 && len(scored) > 0 {
		sort.SliceStable(scored, func(i, j int) bool {
			if scored[i].ReturnPct != scored[j].ReturnPct {
				return scored[i].ReturnPct > scored[j].ReturnPct
			}
			return scored[i].Start.Before(scored[j].Start)
		})
		if len(scored) > topN {
			scored = scored[:topN]
		}
		rep.Top = scored
	}
	return rep
}
