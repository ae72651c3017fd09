package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/scorelab/internal/domain/indicators"
	"github.com/sawpanic/scorelab/internal/regime"
	"github.com/sawpanic/scorelab/internal/series"
)

func reading(v float64) indicators.Reading {
	return indicators.Reading{Value: v, IsValid: true}
}

func newTestScorer() *Scorer {
	return NewScorer(nil, nil, DefaultConfig())
}

// explosiveSet is an oversold capitulation sitting on its 4-week low with a
// strong, rising ADX
func explosiveSet() indicators.Set {
	return indicators.Set{
		Bars:      200,
		Price:     100,
		RSI:       reading(28),
		ADX:       reading(32),
		ADXPrior:  reading(22),
		ADXRising: true,
		Momentum:  reading(-35),
		Low4W:     reading(98),
		EMA50:     reading(150),
		EMA200:    reading(200),
	}
}

func continuationSet() indicators.Set {
	return indicators.Set{
		Bars:   200,
		Price:  120,
		RSI:    reading(60),
		ADX:    reading(42),
		EMA50:  reading(110),
		EMA200: reading(100),
	}
}

func TestScoreSignals_ExplosiveBottom(t *testing.T) {
	s := newTestScorer()
	res, err := s.ScoreSignals(Signals{Set: explosiveSet()}, series.TF2W, "cryptocurrencies", regime.NeutralContext())
	require.NoError(t, err)

	assert.InDelta(t, 6.0, res.Breakdown.Get("explosive_bottom"), 1e-9)
	assert.InDelta(t, 3.0, res.Breakdown.Get("explosive_bottom_capitulation"), 1e-9)
	assert.InDelta(t, 1.5, res.Breakdown.Get("explosive_bottom_support"), 1e-9)
	assert.InDelta(t, 0.75, res.Breakdown.Get("explosive_bottom_adx_rising"), 1e-9)
	assert.InDelta(t, 3.0, res.Breakdown.Get("extreme_oversold_ema"), 1e-9)
	assert.InDelta(t, 1.25, res.Breakdown.Get("adx_rising_very_strong"), 1e-9)

	// suppressed while the explosive bottom is active
	for _, name := range []string{"capitulation", "rsi_oversold", "oversold_strong_trend", "near_support", "death_cross"} {
		assert.False(t, res.Breakdown.Has(name), name)
	}

	assert.InDelta(t, 15.5, res.Value, 1e-9)
	assert.GreaterOrEqual(t, res.Value, 9.0)
	assert.True(t, res.Flags.Crypto)
	assert.False(t, res.Capped)
}

func TestScoreSignals_ExplosiveBottomNeedsAllConditions(t *testing.T) {
	s := newTestScorer()

	farFromLow := explosiveSet()
	farFromLow.Low4W = reading(80)

	res, err := s.ScoreSignals(Signals{Set: farFromLow}, series.TF2W, "cryptocurrencies", regime.NeutralContext())
	require.NoError(t, err)
	assert.False(t, res.Breakdown.Has("explosive_bottom"))
	assert.InDelta(t, 1.5, res.Breakdown.Get("capitulation"), 1e-9)
	assert.InDelta(t, 1.5, res.Breakdown.Get("oversold_strong_trend"), 1e-9, "RSI 28 sits within the band below 35 with ADX above 20")
}

func TestScoreSignals_TrendContinuation(t *testing.T) {
	s := newTestScorer()
	res, err := s.ScoreSignals(Signals{Set: continuationSet()}, series.TF2W, "tech_stocks", regime.NeutralContext())
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.Breakdown.Get("strong_continuation"), 1e-9)
	assert.InDelta(t, 0.75, res.Breakdown.Get("very_strong_continuation"), 1e-9)
	assert.InDelta(t, 1.0, res.Breakdown.Get("continuation_healthy_rsi"), 1e-9)
	assert.InDelta(t, 0.5, res.Breakdown.Get("price_above_ema50"), 1e-9)
	assert.InDelta(t, 1.0, res.Breakdown.Get("price_above_ema200"), 1e-9)
	assert.InDelta(t, 1.0, res.Breakdown.Get("adx_very_strong"), 1e-9)
	assert.False(t, res.Breakdown.Has("moderate_continuation"))
	assert.InDelta(t, 6.25, res.Value, 1e-9)
}

func TestScoreSignals_ModerateContinuation(t *testing.T) {
	set := continuationSet()
	set.ADX = reading(20)
	set.Momentum = reading(3)

	res, err := newTestScorer().ScoreSignals(Signals{Set: set}, series.TF2W, "default", regime.NeutralContext())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Breakdown.Get("moderate_continuation"), 1e-9)
	assert.InDelta(t, 0.5, res.Breakdown.Get("moderate_continuation_momentum"), 1e-9)
	assert.False(t, res.Breakdown.Has("strong_continuation"))
}

func TestScoreSignals_RSIInversion(t *testing.T) {
	s := newTestScorer()
	set := indicators.Set{Bars: 200, Price: 100, RSI: reading(75)}

	classical, err := s.ScoreSignals(Signals{Set: set}, series.TF2W, "precious_metals", regime.NeutralContext())
	require.NoError(t, err)
	assert.InDelta(t, -2.0, classical.Breakdown.Get("rsi_overbought"), 1e-9)

	inverted, err := s.ScoreSignals(Signals{Set: set}, series.TF2W, "tech_stocks", regime.NeutralContext())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, inverted.Breakdown.Get("rsi_overbought_continuation"), 1e-9)
	assert.False(t, inverted.Breakdown.Has("rsi_overbought"))
}

func TestScoreSignals_Cap(t *testing.T) {
	set := explosiveSet()
	set.StdCompressed = true
	set.VolumeBuilding = true
	set.OBVUp = true
	set.ADUp = true
	set.GMMA = indicators.GMMAResult{Bullish: true, IsValid: true}

	res, err := newTestScorer().ScoreSignals(Signals{Set: set}, series.TF6M, "cryptocurrencies", regime.NeutralContext())
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Value)
	assert.True(t, res.Capped)
	assert.Less(t, res.Breakdown.Get("score_capped"), 0.0)
	assert.InDelta(t, res.Value, res.Breakdown.Total(), 1e-9)
}

func TestScoreSignals_BreakdownSumsToValue(t *testing.T) {
	rc := regime.Context{
		Market:     regime.Reading{Label: regime.Crashing, Adjustment: -2, Derate: 0.9, Available: true},
		Volatility: regime.Reading{Label: regime.VolHigh, Adjustment: -1.5, Derate: 0.85, Available: true},
		Cycle:      regime.Reading{Label: regime.Expansion, Adjustment: 0.5, Derate: 1, Available: true},
	}
	sig := Signals{
		Set:         explosiveSet(),
		Seasonality: regime.Reading{Label: regime.Positive, Adjustment: 1, Available: true},
	}

	s := newTestScorer()
	for _, tf := range s.Timeframes().Labels() {
		res, err := s.ScoreSignals(sig, tf, "cryptocurrencies", rc)
		require.NoError(t, err)
		assert.InDelta(t, res.Value, res.Breakdown.Total(), 1e-9, string(tf))
		assert.True(t, res.Breakdown.Has("market_regime"))
		assert.True(t, res.Breakdown.Has("vix_regime"))
		assert.True(t, res.Breakdown.Has("business_cycle"))
		assert.True(t, res.Breakdown.Has("seasonality"))
		assert.InDelta(t, 0.765, res.Derate, 1e-9)
	}

	stock, err := s.ScoreSignals(sig, series.TF2W, "default", rc)
	require.NoError(t, err)
	assert.False(t, stock.Breakdown.Has("seasonality"), "seasonality is crypto only")
}

func TestScoreSignals_StrictnessMonotonic(t *testing.T) {
	s := newTestScorer()
	sig := Signals{Set: continuationSet()}

	base, err := s.ScoreSignals(sig, series.TF1D, "tech_stocks", regime.NeutralContext())
	require.NoError(t, err)
	require.Greater(t, base.Value, 0.0)

	prev := math.Inf(-1)
	for _, tf := range s.Timeframes().Labels() {
		res, err := s.ScoreSignals(sig, tf, "tech_stocks", regime.NeutralContext())
		require.NoError(t, err)
		require.False(t, res.Capped, string(tf))
		assert.Greater(t, res.Value, prev, string(tf))
		assert.InDelta(t, res.Strictness/base.Strictness, res.Value/base.Value, 1e-9, string(tf))
		prev = res.Value
	}
}

func TestScoreSignals_UnknownCategoryFallsBack(t *testing.T) {
	s := newTestScorer()
	sig := Signals{Set: continuationSet()}

	unknown, err := s.ScoreSignals(sig, series.TF1W, "zzz", regime.NeutralContext())
	require.NoError(t, err)
	def, err := s.ScoreSignals(sig, series.TF1W, "default", regime.NeutralContext())
	require.NoError(t, err)

	assert.Equal(t, def.Value, unknown.Value)
	assert.Equal(t, def.Breakdown, unknown.Breakdown)
	assert.False(t, unknown.Flags.Known)
}

func TestScoreSignals_MutualExclusivity(t *testing.T) {
	s := newTestScorer()
	for ext := -60.0; ext <= 150; ext += 5 {
		for rsi := 5.0; rsi <= 95; rsi += 5 {
			set := indicators.Set{
				Bars:     200,
				Price:    100 * (1 + ext/100),
				EMA50:    reading(100),
				RSI:      reading(rsi),
				Momentum: reading(ext / 2),
			}
			res, err := s.ScoreSignals(Signals{Set: set}, series.TF2W, "cryptocurrencies", regime.NeutralContext())
			require.NoError(t, err)

			oversold := res.Breakdown.Has("extreme_oversold_ema") || res.Breakdown.Has("very_oversold_ema")
			assert.False(t, oversold && res.Breakdown.Has("overextension"), "ext %.0f", ext)
			assert.False(t, res.Breakdown.Has("rsi_overbought_continuation") &&
				(res.Breakdown.Has("oversold_strong_trend") || res.Breakdown.Has("oversold_weak_trend")), "rsi %.0f", rsi)
			assert.False(t, res.Breakdown.Has("capitulation") && res.Breakdown.Has("very_strong_momentum"))
		}
	}
}

func TestScoreSignals_UnknownTimeframe(t *testing.T) {
	_, err := newTestScorer().ScoreSignals(Signals{Set: continuationSet()}, "3D", "default", regime.NeutralContext())
	require.ErrorIs(t, err, series.ErrUnknownTimeframe)
}

// synthetic builds n daily bars with a slow uptrend and a weekly wiggle
func synthetic(t *testing.T, symbol string, n int, base float64) series.View {
	t.Helper()
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]series.Bar, n)
	for i := range bars {
		c := base * (1 + 0.002*float64(i) + 0.02*math.Sin(float64(i)/3))
		bars[i] = series.Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   c * 0.995,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1000 + float64(i%7)*100,
		}
	}
	s, err := series.New(symbol, bars)
	require.NoError(t, err)
	return s.View()
}

func TestScore_Pipeline(t *testing.T) {
	s := newTestScorer()
	v := synthetic(t, "AAPL", 300, 100)

	res, err := s.Score(v, series.TF1D, series.USD, "tech_stocks", NeutralMarket())
	require.NoError(t, err)
	assert.Equal(t, "AAPL", res.Symbol)
	assert.Equal(t, series.USD, res.Denomination)
	assert.False(t, res.Degraded)
	assert.LessOrEqual(t, res.Value, 20.0)
	assert.InDelta(t, res.Value, res.Breakdown.Total(), 1e-9)
	assert.Equal(t, v.Cutoff(), res.AsOf)

	again, err := s.Score(v, series.TF1D, series.USD, "tech_stocks", NeutralMarket())
	require.NoError(t, err)
	assert.Equal(t, res.Value, again.Value)
	assert.Equal(t, res.Breakdown, again.Breakdown)

	sixMonth, err := s.Score(v, series.TF6M, series.USD, "tech_stocks", NeutralMarket())
	require.NoError(t, err)
	assert.True(t, sixMonth.Degraded)
}

func TestScore_NoLookahead(t *testing.T) {
	s := newTestScorer()
	full := synthetic(t, "AAPL", 300, 100)
	head := full.Head(200)

	fromHead, err := s.Score(head, series.TF1D, series.USD, "default", NeutralMarket())
	require.NoError(t, err)
	alone, err := s.Score(synthetic(t, "AAPL", 200, 100), series.TF1D, series.USD, "default", NeutralMarket())
	require.NoError(t, err)
	assert.Equal(t, fromHead.Breakdown, alone.Breakdown)
	assert.Equal(t, head.Cutoff(), fromHead.AsOf)
}

func TestScore_Errors(t *testing.T) {
	s := newTestScorer()
	v := synthetic(t, "AAPL", 100, 100)

	_, err := s.Score(series.View{}, series.TF1D, series.USD, "default", NeutralMarket())
	assert.ErrorIs(t, err, series.ErrEmptySeries)

	_, err = s.Score(v, "3D", series.USD, "default", NeutralMarket())
	assert.ErrorIs(t, err, series.ErrUnknownTimeframe)

	_, err = s.Score(v, series.TF1D, series.Gold, "default", NeutralMarket())
	assert.ErrorIs(t, err, series.ErrEmptySeries, "gold needs a reference")
}

func TestScoreAll(t *testing.T) {
	s := newTestScorer()
	v := synthetic(t, "AAPL", 300, 100)

	results, skips, err := s.ScoreAll(v, "tech_stocks", NeutralMarket())
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, series.TF1D, results[0].Timeframe)
	assert.Equal(t, series.TF2D, results[1].Timeframe)
	assert.Len(t, skips, 5)
	for _, sk := range skips {
		assert.Equal(t, series.USD, sk.Denomination)
		assert.Contains(t, sk.Reason, "insufficient bars")
	}

	m := NeutralMarket()
	m.Reference = synthetic(t, "GLD", 300, 1800)
	results, skips, err = s.ScoreAll(v, "tech_stocks", m)
	require.NoError(t, err)
	assert.Len(t, results, 4)
	assert.Len(t, skips, 10)

	best, ok := Best(results)
	require.True(t, ok)
	for _, r := range results {
		assert.LessOrEqual(t, r.Value, best.Value)
	}
	_, ok = Best(nil)
	assert.False(t, ok)
}
