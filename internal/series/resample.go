package series

import (
	"fmt"
	"math"
	"time"
)

const day = 24 * time.Hour

// Resample aggregates the visible bars of v into coarser buckets.
// Open is the first open, high the max high, low the min low, close the last
// close and volume the sum. Buckets are stamped with their start time and
// empty buckets never appear.
func Resample(v View, tf Timeframe, table *Timeframes) (Series, error) {
	spec, err := table.Get(tf)
	if err != nil {
		return Series{}, err
	}
	return ResampleRule(v, spec.Rule), nil
}

// ResampleRule aggregates v according to rule
func ResampleRule(v View, rule Rule) Series {
	if v.Empty() {
		return Series{symbol: v.Symbol()}
	}

	anchor := truncateDay(v.At(0).Time)
	out := make([]Bar, 0, v.Len()/max(rule.Days, 1)+1)
	var current Bar
	var currentKey time.Time

	for i := 0; i < v.Len(); i++ {
		b := v.At(i)
		key := bucketStart(b.Time, anchor, rule)
		if i == 0 || !key.Equal(currentKey) {
			if i > 0 {
				out = append(out, current)
			}
			currentKey = key
			current = Bar{Time: key, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
			continue
		}
		current.High = math.Max(current.High, b.High)
		current.Low = math.Min(current.Low, b.Low)
		current.Close = b.Close
		current.Volume += b.Volume
	}
	out = append(out, current)

	return Series{symbol: v.Symbol(), bars: out}
}

func bucketStart(t, anchor time.Time, rule Rule) time.Time {
	d := truncateDay(t)
	switch rule.Kind {
	case RuleCalendarWeek:
		offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
		return d.AddDate(0, 0, -offset)
	case RuleCalendarMonth:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		days := int(d.Sub(anchor) / day)
		bucket := days / rule.Days
		return anchor.AddDate(0, 0, bucket*rule.Days)
	}
}

func truncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Denominate divides the OHLC prices of v by the reference close in force on
// each bar's date. Reference closes are carried forward over gaps such as
// weekends; bars before the first reference observation are dropped.
// Volume is left unchanged.
func Denominate(v View, ref View) (Series, error) {
	if ref.Empty() {
		return Series{}, fmt.Errorf("reference series %s: %w", ref.Symbol(), ErrEmptySeries)
	}

	out := make([]Bar, 0, v.Len())
	j := -1
	for i := 0; i < v.Len(); i++ {
		b := v.At(i)
		d := truncateDay(b.Time)
		for j+1 < ref.Len() && !truncateDay(ref.At(j+1).Time).After(d) {
			j++
		}
		if j < 0 {
			continue
		}
		div := ref.At(j).Close
		out = append(out, Bar{
			Time:   b.Time,
			Open:   b.Open / div,
			High:   b.High / div,
			Low:    b.Low / div,
			Close:  b.Close / div,
			Volume: b.Volume,
		})
	}
	if len(out) == 0 {
		return Series{}, fmt.Errorf("%s has no bars overlapping %s: %w", v.Symbol(), ref.Symbol(), ErrEmptySeries)
	}
	return Series{symbol: v.Symbol(), bars: out}, nil
}
