package series

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrEmptySeries is returned when an operation needs at least one bar
	ErrEmptySeries = errors.New("series has no bars")
	// ErrUnsorted is returned when bar timestamps are not strictly increasing
	ErrUnsorted = errors.New("bar timestamps must be strictly increasing")
)

// Bar is a single OHLCV observation
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate checks the price relationships of a single bar
func (b Bar) Validate() error {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("bar %s: prices must be positive", b.Time.Format("2006-01-02"))
	}
	if b.High < b.Low {
		return fmt.Errorf("bar %s: high %.4f below low %.4f", b.Time.Format("2006-01-02"), b.High, b.Low)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s: negative volume", b.Time.Format("2006-01-02"))
	}
	return nil
}

// Series is an immutable, chronologically ordered sequence of bars for one instrument
type Series struct {
	symbol string
	bars   []Bar
}

// New builds a Series from bars that are already sorted and deduplicated.
// The input slice is copied.
func New(symbol string, bars []Bar) (Series, error) {
	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return Series{}, fmt.Errorf("invalid %s series: %w", symbol, err)
		}
		if i > 0 && !bars[i].Time.After(bars[i-1].Time) {
			return Series{}, fmt.Errorf("%s at %s: %w", symbol, bars[i].Time.Format(time.RFC3339), ErrUnsorted)
		}
	}

	owned := make([]Bar, len(bars))
	copy(owned, bars)
	return Series{symbol: symbol, bars: owned}, nil
}

// FromUnsorted sorts bars by time, keeps the last bar for duplicate timestamps
// and drops bars that fail validation. Used for raw provider and cache data.
func FromUnsorted(symbol string, bars []Bar) (Series, error) {
	sorted := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Validate() == nil {
			sorted = append(sorted, b)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	clean := sorted[:0]
	for _, b := range sorted {
		if n := len(clean); n > 0 && clean[n-1].Time.Equal(b.Time) {
			clean[n-1] = b
			continue
		}
		clean = append(clean, b)
	}
	if len(clean) == 0 {
		return Series{}, fmt.Errorf("%s: %w", symbol, ErrEmptySeries)
	}
	return New(symbol, clean)
}

// Symbol returns the instrument symbol
func (s Series) Symbol() string { return s.symbol }

// Len returns the number of bars
func (s Series) Len() int { return len(s.bars) }

// Bars returns a copy of the bars
func (s Series) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// View returns an unbounded view over the whole series
func (s Series) View() View {
	return newView(s.symbol, s.bars, len(s.bars))
}

// AsOf returns a view containing only bars at or before t
func (s Series) AsOf(t time.Time) View {
	n := sort.Search(len(s.bars), func(i int) bool { return s.bars[i].Time.After(t) })
	return newView(s.symbol, s.bars, n)
}

// Head returns a view over the first n bars
func (s Series) Head(n int) View {
	if n > len(s.bars) {
		n = len(s.bars)
	}
	if n < 0 {
		n = 0
	}
	return newView(s.symbol, s.bars, n)
}

// Index returns the position of the bar stamped t, or -1
func (s Series) Index(t time.Time) int {
	i := sort.Search(len(s.bars), func(i int) bool { return !s.bars[i].Time.Before(t) })
	if i < len(s.bars) && s.bars[i].Time.Equal(t) {
		return i
	}
	return -1
}
