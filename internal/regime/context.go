package regime

import (
	"time"

	"github.com/sawpanic/scorelab/internal/series"
)

// Inputs are the benchmark series the providers read. Any of them may be
// empty, in which case that provider is neutral.
type Inputs struct {
	Index      series.View // broad equity index
	Reference  series.View // reference commodity, usually gold
	Volatility series.View // implied volatility index
	Cycle      series.View // diffusion-index readings stored as closes
	CycleProxy series.View // equity index used when Cycle is empty
}

// Context bundles the instrument-independent regime readings at one date.
// Seasonality depends on the instrument and is computed by the scorer.
type Context struct {
	AsOf       time.Time `json:"as_of"`
	Market     Reading   `json:"market"`
	Volatility Reading   `json:"volatility"`
	Cycle      Reading   `json:"cycle"`
}

// NeutralContext returns a context with every provider neutral
func NeutralContext() Context {
	return Context{
		Market:     NeutralReading(),
		Volatility: NeutralReading(),
		Cycle:      NeutralReading(),
	}
}

// Build evaluates every provider on data at or before asOf
func Build(in Inputs, asOf time.Time, cfg Config) Context {
	ctx := Context{
		AsOf:       asOf,
		Market:     MarketTrend(in.Index.AsOf(asOf), in.Reference.AsOf(asOf), cfg),
		Volatility: Volatility(in.Volatility.AsOf(asOf), cfg),
		Cycle:      NeutralReading(),
	}
	if c := in.Cycle.AsOf(asOf); !c.Empty() {
		ctx.Cycle = BusinessCycle(c.Closes(), cfg)
	}
	if !ctx.Cycle.Available {
		if p := in.CycleProxy.AsOf(asOf); !p.Empty() {
			ctx.Cycle = BusinessCycleProxy(p.Closes(), cfg)
		}
	}
	return ctx
}

// Multiplier returns the derate, treating an unset value as 1
func (r Reading) Multiplier() float64 {
	if r.Derate == 0 {
		return 1
	}
	return r.Derate
}

// Derate is the combined multiplicative penalty of the market and
// volatility readings
func (c Context) Derate() float64 {
	return c.Market.Multiplier() * c.Volatility.Multiplier()
}
