package scoring

import (
	"time"

	"github.com/sawpanic/scorelab/internal/category"
	"github.com/sawpanic/scorelab/internal/domain/indicators"
	"github.com/sawpanic/scorelab/internal/regime"
	"github.com/sawpanic/scorelab/internal/series"
)

// Contribution is the points one rule added to the score
type Contribution struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}

// Breakdown lists contributions in the order they were applied. The
// multiplicative steps are recorded as the point change they caused, so the
// entries always sum to the final value.
type Breakdown []Contribution

// Get returns the points recorded under name, zero when absent
func (b Breakdown) Get(name string) float64 {
	for _, c := range b {
		if c.Name == name {
			return c.Points
		}
	}
	return 0
}

// Has reports whether name contributed
func (b Breakdown) Has(name string) bool {
	for _, c := range b {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Total sums every contribution
func (b Breakdown) Total() float64 {
	sum := 0.0
	for _, c := range b {
		sum += c.Points
	}
	return sum
}

// Map returns the breakdown keyed by rule name
func (b Breakdown) Map() map[string]float64 {
	out := make(map[string]float64, len(b))
	for _, c := range b {
		out[c.Name] += c.Points
	}
	return out
}

func (b *Breakdown) add(name string, points float64) {
	if points == 0 {
		return
	}
	*b = append(*b, Contribution{Name: name, Points: points})
}

// Result is the score of one instrument at one timeframe and denomination
type Result struct {
	Symbol       string              `json:"symbol"`
	Category     string              `json:"category"`
	Flags        category.Flags      `json:"flags"`
	Timeframe    series.Timeframe    `json:"timeframe"`
	Denomination series.Denomination `json:"denomination"`
	AsOf         time.Time           `json:"as_of"`

	Value      float64 `json:"value"`
	Subtotal   float64 `json:"subtotal"`
	Derate     float64 `json:"derate"`
	Strictness float64 `json:"strictness"`
	Capped     bool    `json:"capped"`
	// Degraded is set when the resampled series is shorter than the
	// minimum bar count; the score is partial
	Degraded bool `json:"degraded"`

	Breakdown   Breakdown      `json:"breakdown"`
	Unavailable []string       `json:"unavailable,omitempty"`
	Indicators  indicators.Set `json:"indicators"`
	Seasonality regime.Reading `json:"seasonality"`
	Regime      regime.Context `json:"regime"`
}

// Skip records a timeframe that produced no result
type Skip struct {
	Symbol       string              `json:"symbol"`
	Timeframe    series.Timeframe    `json:"timeframe"`
	Denomination series.Denomination `json:"denomination"`
	Bars         int                 `json:"bars"`
	Reason       string              `json:"reason"`
}
