// Package datasource supplies daily OHLCV series to the scorer and the
// backtest, with a weekly freshness policy over local and Redis caches.
package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/sawpanic/scorelab/internal/series"
)

// ErrNotFound is returned when neither the caches nor the provider know a symbol
var ErrNotFound = errors.New("series not found")

// Source supplies a daily series covering at least lookback before now.
// refresh bypasses every cache.
type Source interface {
	GetSeries(ctx context.Context, symbol string, lookback time.Duration, refresh bool) (series.Series, error)
}

// Fetcher downloads raw daily bars in [from, to]
type Fetcher interface {
	Fetch(ctx context.Context, symbol string, from, to time.Time) ([]series.Bar, error)
}

// boundaryHour is the UTC hour on Sunday when the weekly close is final
const boundaryHour = 16

// LastBoundary returns the most recent Sunday 16:00 UTC at or before now.
// Data fetched before it misses the latest weekly close.
func LastBoundary(now time.Time) time.Time {
	t := now.UTC()
	sunday := time.Date(t.Year(), t.Month(), t.Day()-int(t.Weekday()), boundaryHour, 0, 0, 0, time.UTC)
	if sunday.After(t) {
		sunday = sunday.AddDate(0, 0, -7)
	}
	return sunday
}

// Fresh reports whether data fetched at fetchedAt already includes the
// latest weekly close as of now
func Fresh(fetchedAt, now time.Time) bool {
	return !fetchedAt.Before(LastBoundary(now))
}

// coverageSlack absorbs weekends and holidays between the window start and
// the first bar a provider returns
const coverageSlack = 7 * 24 * time.Hour

// Covers reports whether s reaches back to now-lookback. A non-positive
// lookback is always covered.
func Covers(s series.Series, lookback time.Duration, now time.Time) bool {
	if lookback <= 0 {
		return true
	}
	if s.Len() == 0 {
		return false
	}
	return !s.View().At(0).Time.After(now.Add(-lookback).Add(coverageSlack))
}

// extend prepends the bars of older that precede the first bar of newer
func extend(older, newer series.Series) series.Series {
	if older.Len() == 0 || newer.Len() == 0 {
		return newer
	}
	first := newer.View().At(0).Time
	var bars []series.Bar
	for _, b := range older.Bars() {
		if !b.Time.Before(first) {
			break
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return newer
	}
	out, err := series.New(newer.Symbol(), append(bars, newer.Bars()...))
	if err != nil {
		return newer
	}
	return out
}

// Trim keeps the bars stamped at or after now-lookback. A non-positive
// lookback keeps everything.
func Trim(s series.Series, lookback time.Duration, now time.Time) series.Series {
	if lookback <= 0 {
		return s
	}
	from := now.Add(-lookback)
	bars := s.Bars()
	i := 0
	for i < len(bars) && bars[i].Time.Before(from) {
		i++
	}
	out, err := series.New(s.Symbol(), bars[i:])
	if err != nil {
		return s
	}
	return out
}
