package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/scorelab/internal/series"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func viewOf(t *testing.T, symbol string, start time.Time, closes []float64) series.View {
	t.Helper()
	bars := make([]series.Bar, len(closes))
	for i, c := range closes {
		bars[i] = series.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}
	s, err := series.New(symbol, bars)
	require.NoError(t, err)
	return s.View()
}

func repeat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func steps(first float64, nFirst int, rest float64, nRest int) []float64 {
	return append(repeat(nFirst, first), repeat(nRest, rest)...)
}

func TestMarketTrend_Classification(t *testing.T) {
	cfg := DefaultConfig()
	gold := viewOf(t, "GOLD", day0, repeat(39, 1))

	tests := []struct {
		name       string
		after      float64
		label      Label
		adjustment float64
		derate     float64
	}{
		{"crashing", 80, Crashing, -2, 0.9},
		{"declining", 97, Declining, -1, 0.9},
		{"neutral", 100, Neutral, 0, 1},
		{"rising", 110, Rising, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := viewOf(t, "SPX", day0, steps(100, 20, tt.after, 19))
			r := MarketTrend(index, gold, cfg)
			require.True(t, r.Available)
			assert.Equal(t, tt.label, r.Label)
			assert.InDelta(t, tt.adjustment, r.Adjustment, 1e-9)
			assert.InDelta(t, tt.derate, r.Multiplier(), 1e-9)
			assert.Empty(t, r.Trend)
		})
	}
}

func TestMarketTrend_NearLow(t *testing.T) {
	index := viewOf(t, "SPX", day0, repeat(60, 100))
	gold := viewOf(t, "GOLD", day0, repeat(60, 2))
	r := MarketTrend(index, gold, DefaultConfig())
	assert.Equal(t, Neutral, r.Label)
	assert.Equal(t, NearLow, r.Trend)
	assert.InDelta(t, -1.0, r.Adjustment, 1e-9)
	assert.InDelta(t, 50.0, r.Value, 1e-9)
	assert.False(t, r.Bearish())
}

func TestMarketTrend_NoCommonDates(t *testing.T) {
	index := viewOf(t, "SPX", day0, repeat(40, 100))
	gold := viewOf(t, "GOLD", day0.AddDate(1, 0, 0), repeat(40, 2))
	r := MarketTrend(index, gold, DefaultConfig())
	assert.False(t, r.Available)
	assert.Equal(t, 0.0, r.Adjustment)
	assert.Equal(t, 1.0, r.Derate)
}

func TestVolatility_Levels(t *testing.T) {
	cfg := DefaultConfig()

	low := Volatility(viewOf(t, "VIX", day0, repeat(25, 15)), cfg)
	assert.Equal(t, VolLow, low.Label)
	assert.Equal(t, Stable, low.Trend)
	assert.Equal(t, 0.0, low.Adjustment)

	moderate := Volatility(viewOf(t, "VIX", day0, repeat(25, 25)), cfg)
	assert.Equal(t, VolModerate, moderate.Label)
	assert.InDelta(t, -0.5, moderate.Adjustment, 1e-9)
	assert.Equal(t, 1.0, moderate.Multiplier())

	high := Volatility(viewOf(t, "VIX", day0, repeat(25, 35)), cfg)
	assert.Equal(t, VolHigh, high.Label)
	assert.InDelta(t, -1.5, high.Adjustment, 1e-9)
	assert.InDelta(t, 0.85, high.Multiplier(), 1e-9)
}

func TestVolatility_RisingOnlyPenalizedAboveLow(t *testing.T) {
	cfg := DefaultConfig()

	rising := Volatility(viewOf(t, "VIX", day0, steps(18, 20, 28, 5)), cfg)
	assert.Equal(t, VolModerate, rising.Label)
	assert.Equal(t, Rising, rising.Trend)
	assert.InDelta(t, -1.0, rising.Adjustment, 1e-9)
	assert.InDelta(t, 0.95, rising.Multiplier(), 1e-9)

	risingLow := Volatility(viewOf(t, "VIX", day0, steps(10, 20, 15, 5)), cfg)
	assert.Equal(t, VolLow, risingLow.Label)
	assert.Equal(t, Rising, risingLow.Trend)
	assert.Equal(t, 0.0, risingLow.Adjustment)
	assert.Equal(t, 1.0, risingLow.Multiplier())

	empty := Volatility(series.View{}, cfg)
	assert.False(t, empty.Available)
	assert.Equal(t, Unknown, empty.Label)
}

func TestBusinessCycle(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name       string
		readings   []float64
		label      Label
		trend      Label
		adjustment float64
	}{
		{"expansion improving", []float64{52, 53, 54, 55}, Expansion, Improving, 0.8},
		{"strong contraction deteriorating", []float64{45, 44, 42, 38}, StrongContraction, Deteriorating, -1.3},
		{"contraction stable", []float64{45, 44, 42, 45}, Contraction, Stable, -0.5},
		{"single reading", []float64{61}, StrongExpansion, "", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := BusinessCycle(tt.readings, cfg)
			require.True(t, r.Available)
			assert.Equal(t, tt.label, r.Label)
			assert.Equal(t, tt.trend, r.Trend)
			assert.InDelta(t, tt.adjustment, r.Adjustment, 1e-9)
		})
	}

	assert.False(t, BusinessCycle(nil, cfg).Available)
}

func TestBusinessCycleProxy(t *testing.T) {
	cfg := DefaultConfig()

	flat := BusinessCycleProxy(repeat(30, 100), cfg)
	require.True(t, flat.Available)
	assert.InDelta(t, 58.0, flat.Value, 1e-9)
	assert.Equal(t, Expansion, flat.Label)
	assert.Equal(t, Stable, flat.Trend)
	assert.InDelta(t, 0.5, flat.Adjustment, 1e-9)

	assert.False(t, BusinessCycleProxy(repeat(10, 100), cfg).Available)
}

// januaryRally builds three years of daily closes that gain 10% every
// January and are flat otherwise
func januaryRally(t *testing.T) series.View {
	t.Helper()
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	var closes []float64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		c := 100.0
		if d.Month() == time.January {
			c = 100 * (1 + 0.1*float64(d.Day()-1)/30)
		}
		closes = append(closes, c)
	}
	return viewOf(t, "BTC", start, closes)
}

func TestSeasonality_CurrentMonth(t *testing.T) {
	cfg := DefaultConfig()
	v := januaryRally(t)

	jan := Seasonality(v, time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), cfg)
	require.True(t, jan.Available)
	assert.Equal(t, StrongPositive, jan.Label)
	assert.InDelta(t, 10.0, jan.Value, 1e-9)
	assert.InDelta(t, 2.0, jan.Adjustment, 1e-9)

	feb := Seasonality(v, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC), cfg)
	require.True(t, feb.Available)
	assert.Equal(t, MildNegative, feb.Label)
	assert.InDelta(t, -0.75, feb.Adjustment, 1e-9)
}

func TestSeasonality_RequiresTwoYears(t *testing.T) {
	r := Seasonality(januaryRally(t), time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), DefaultConfig())
	assert.False(t, r.Available)
	assert.Equal(t, 0.0, r.Adjustment)
}

func TestSeasonality_IgnoresLaterBars(t *testing.T) {
	v := januaryRally(t)
	asOf := time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, Seasonality(v.AsOf(asOf), asOf, DefaultConfig()), Seasonality(v, asOf, DefaultConfig()))
}

func TestBuild(t *testing.T) {
	cfg := DefaultConfig()
	asOf := day0.AddDate(0, 0, 29)

	empty := Build(Inputs{}, asOf, cfg)
	assert.False(t, empty.Market.Available)
	assert.False(t, empty.Volatility.Available)
	assert.False(t, empty.Cycle.Available)
	assert.Equal(t, 1.0, empty.Derate())

	in := Inputs{
		Volatility: viewOf(t, "VIX", day0, repeat(60, 35)),
		CycleProxy: viewOf(t, "SPY", day0, repeat(60, 100)),
	}
	ctx := Build(in, asOf, cfg)
	assert.Equal(t, VolHigh, ctx.Volatility.Label)
	assert.True(t, ctx.Cycle.Available, "proxy used without a diffusion series")
	assert.InDelta(t, 0.85, ctx.Derate(), 1e-9)

	assert.Equal(t, 1.0, Context{}.Derate())
}
