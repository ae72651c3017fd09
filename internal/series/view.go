package series

import "time"

// View is a read-only window over the first n bars of a Series.
// A View can only shrink; nothing reachable from it exposes bars past its cutoff,
// which is what keeps as-of scoring free of lookahead.
type View struct {
	symbol string
	bars   []Bar
}

func newView(symbol string, bars []Bar, n int) View {
	// full slice expression caps capacity so the hidden tail is unreachable
	return View{symbol: symbol, bars: bars[:n:n]}
}

// Symbol returns the instrument symbol
func (v View) Symbol() string { return v.symbol }

// Len returns the number of visible bars
func (v View) Len() int { return len(v.bars) }

// Empty reports whether the view holds no bars
func (v View) Empty() bool { return len(v.bars) == 0 }

// At returns the i-th visible bar
func (v View) At(i int) Bar { return v.bars[i] }

// Last returns the most recent visible bar. Panics on an empty view.
func (v View) Last() Bar { return v.bars[len(v.bars)-1] }

// Cutoff returns the timestamp of the last visible bar, zero for an empty view
func (v View) Cutoff() time.Time {
	if len(v.bars) == 0 {
		return time.Time{}
	}
	return v.bars[len(v.bars)-1].Time
}

// Head narrows the view to its first n bars
func (v View) Head(n int) View {
	if n > len(v.bars) {
		n = len(v.bars)
	}
	if n < 0 {
		n = 0
	}
	return newView(v.symbol, v.bars, n)
}

// AsOf narrows the view to bars at or before t
func (v View) AsOf(t time.Time) View {
	n := len(v.bars)
	for n > 0 && v.bars[n-1].Time.After(t) {
		n--
	}
	return newView(v.symbol, v.bars, n)
}

// Tail returns a view over the last n visible bars
func (v View) Tail(n int) View {
	if n >= len(v.bars) {
		return v
	}
	if n < 0 {
		n = 0
	}
	start := len(v.bars) - n
	return View{symbol: v.symbol, bars: v.bars[start:len(v.bars):len(v.bars)]}
}

// Series materializes the visible bars into a standalone Series
func (v View) Series() Series {
	return Series{symbol: v.symbol, bars: v.Bars()}
}

// Bars returns a copy of the visible bars
func (v View) Bars() []Bar {
	out := make([]Bar, len(v.bars))
	copy(out, v.bars)
	return out
}

// Times returns the bar timestamps
func (v View) Times() []time.Time {
	out := make([]time.Time, len(v.bars))
	for i, b := range v.bars {
		out[i] = b.Time
	}
	return out
}

// Opens returns the open prices
func (v View) Opens() []float64 { return v.column(func(b Bar) float64 { return b.Open }) }

// Highs returns the high prices
func (v View) Highs() []float64 { return v.column(func(b Bar) float64 { return b.High }) }

// Lows returns the low prices
func (v View) Lows() []float64 { return v.column(func(b Bar) float64 { return b.Low }) }

// Closes returns the close prices
func (v View) Closes() []float64 { return v.column(func(b Bar) float64 { return b.Close }) }

// Volumes returns the volumes
func (v View) Volumes() []float64 { return v.column(func(b Bar) float64 { return b.Volume }) }

func (v View) column(pick func(Bar) float64) []float64 {
	out := make([]float64, len(v.bars))
	for i, b := range v.bars {
		out[i] = pick(b)
	}
	return out
}
