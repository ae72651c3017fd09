package indicators

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/scorelab/internal/series"
)

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSMA_WarmupAndValues(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 2.0, out[2], 1e-12)
	assert.InDelta(t, 4.0, out[4], 1e-12)
}

func TestSMA_NaNWindowsStayUnavailable(t *testing.T) {
	out := SMA([]float64{math.NaN(), 2, 4, 6}, 2)
	assert.True(t, math.IsNaN(out[1]))
	assert.InDelta(t, 3.0, out[2], 1e-12)
	assert.InDelta(t, 5.0, out[3], 1e-12)
}

func TestEMA_SeededWithFirstValue(t *testing.T) {
	out := EMA([]float64{10, 20}, 3)
	assert.Equal(t, 10.0, out[0])
	assert.InDelta(t, 15.0, out[1], 1e-12) // alpha = 0.5
}

func TestRSI_Extremes(t *testing.T) {
	up := RSI(linear(30, 100, 1), 14)
	assert.True(t, math.IsNaN(up[13]))
	assert.InDelta(t, 100.0, Last(up), 1e-9)

	down := RSI(linear(30, 100, -1), 14)
	assert.InDelta(t, 0.0, Last(down), 1e-9)

	flat := CalculateRSI(constant(30, 5), 14)
	assert.True(t, flat.IsValid)
	assert.Equal(t, 50.0, flat.Value)
}

func TestCalculateRSI_ShortInputIsNeutral(t *testing.T) {
	r := CalculateRSI([]float64{1, 2, 3}, 14)
	assert.False(t, r.IsValid)
	assert.Equal(t, 50.0, r.Value)
	assert.Equal(t, 3, r.DataCount)
}

func TestATR_ConstantRange(t *testing.T) {
	closes := constant(30, 100)
	highs := constant(30, 102)
	lows := constant(30, 98)
	atr := ATR(highs, lows, closes, 14)
	assert.True(t, math.IsNaN(atr[12]))
	assert.InDelta(t, 4.0, Last(atr), 1e-9)
	assert.False(t, VolatilityCompressed(atr, 20, 0.7))
}

func TestADX_StraightUptrend(t *testing.T) {
	closes := linear(60, 100, 1)
	highs := linear(60, 101, 1)
	lows := linear(60, 99, 1)

	res := ADX(highs, lows, closes, 14)
	assert.True(t, math.IsNaN(res.ADX[26]))
	assert.False(t, math.IsNaN(res.ADX[27]))
	assert.InDelta(t, 100.0, Last(res.ADX), 1e-9)
	assert.InDelta(t, 0.0, Last(res.MinusDI), 1e-9)
}

func TestTrendOf(t *testing.T) {
	assert.Equal(t, DirectionRising, TrendOf([]float64{20, 21, 22, 23, 24, 25}, 5, 10))
	assert.Equal(t, DirectionFalling, TrendOf([]float64{30, 29, 28, 27, 26, 25}, 5, 10))
	assert.Equal(t, DirectionStable, TrendOf([]float64{20, 20, 20, 20, 20, 21}, 5, 10))
	assert.Equal(t, DirectionUnknown, TrendOf([]float64{20}, 5, 10))
}

func TestCCI_FlatIsZero(t *testing.T) {
	c := constant(25, 10)
	out := CCI(c, c, c, 20)
	assert.Equal(t, 0.0, Last(out))
}

func TestOBVAndAD(t *testing.T) {
	closes := []float64{10, 11, 10, 10, 12}
	volumes := []float64{100, 200, 300, 400, 500}
	assert.Equal(t, []float64{0, 200, -100, -100, 400}, OBV(closes, volumes))

	highs := []float64{11, 12, 11, 11, 12}
	lows := []float64{9, 10, 9, 9, 10}
	ad := AccumulationDistribution(highs, lows, closes, volumes)
	assert.InDelta(t, 0.0, ad[0], 1e-12)    // close mid-range
	assert.InDelta(t, 0.0, ad[1], 1e-12)    // close mid-range
	assert.InDelta(t, 500.0, ad[4]-ad[3], 1e-12) // close at high
	assert.True(t, SlopeUp(OBV(linear(10, 1, 1), constant(10, 5)), 5))
}

func TestMomentum_Capped(t *testing.T) {
	closes := append(constant(14, 10), 30)
	m := Momentum(closes, 14, 50)
	require.True(t, m.IsValid)
	assert.Equal(t, 50.0, m.Value)

	short := Momentum([]float64{1, 2}, 14, 50)
	assert.False(t, short.IsValid)
}

func TestVolumeSurgeAndBuilding(t *testing.T) {
	vols := append(constant(30, 100), 400)
	assert.True(t, VolumeSurge(vols, 20, 5, 1.5))
	assert.True(t, VolumeBuilding(vols, 20, 1.2))

	flat := constant(31, 100)
	assert.False(t, VolumeSurge(flat, 20, 5, 1.5))
	assert.False(t, VolumeBuilding(flat, 20, 1.2))
}

func TestDetectDivergence(t *testing.T) {
	closes := constant(20, 10)
	osc := constant(20, 50)
	closes[5], closes[13] = 15, 17
	osc[5], osc[13] = 80, 70
	assert.Equal(t, BearishDivergence, DetectDivergence(closes, osc, 20))

	closes = constant(20, 10)
	osc = constant(20, 50)
	closes[5], closes[13] = 5, 4
	osc[5], osc[13] = 20, 25
	assert.Equal(t, BullishDivergence, DetectDivergence(closes, osc, 20))

	assert.Equal(t, NoDivergence, DetectDivergence(constant(20, 1), constant(20, 1), 20))
}

func TestConsolidationBase(t *testing.T) {
	tight := constant(20, 100)
	tight[3] = 101
	assert.Equal(t, TightBase, ConsolidationBase(tight, 20, 0.05, 0.15))

	asc := constant(20, 100)
	asc[5], asc[14] = 98, 99
	assert.Equal(t, AscendingBase, ConsolidationBase(asc, 20, 0.05, 0.15))

	flat := constant(20, 100)
	flat[10] = 110
	assert.Equal(t, FlatBase, ConsolidationBase(flat, 20, 0.05, 0.15))

	assert.Equal(t, NoBase, ConsolidationBase(linear(20, 100, 5), 20, 0.05, 0.15))
}

func TestGMMA_Uptrend(t *testing.T) {
	g := GMMA(linear(120, 100, 2), 0.03)
	require.True(t, g.IsValid)
	assert.True(t, g.Bullish)

	short := GMMA(linear(30, 100, 1), 0.03)
	assert.False(t, short.IsValid)
}

func TestQuantileAndNormalize(t *testing.T) {
	vals := linear(101, 0, 1)
	assert.InDelta(t, 5.0, Quantile(vals, 0.05), 1e-9)
	assert.InDelta(t, 95.0, Quantile(vals, 0.95), 1e-9)
	assert.Equal(t, 100.0, NormalizePercentile(vals, 200))
	assert.Equal(t, 0.0, NormalizePercentile(vals, -5))
	assert.InDelta(t, 50.0, NormalizePercentile(vals, 50), 0.01)
}

func TestPriceIntensity_Bounds(t *testing.T) {
	n := 120
	closes := make([]float64, n)
	vols := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = 100 + 10*math.Sin(float64(i)/5)
		vols[i] = 1000 + 300*math.Cos(float64(i)/3)
	}
	pi := PriceIntensity(closes, vols, 14)
	require.True(t, pi.IsValid)
	assert.GreaterOrEqual(t, pi.Value, 0.0)
	assert.LessOrEqual(t, pi.Value, 100.0)

	short := PriceIntensity(closes[:50], vols[:50], 14)
	assert.False(t, short.IsValid)
}

func TestDetectStructures_DoubleBottom(t *testing.T) {
	n := 60
	closes := constant(n, 100)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	closes[15] = 80
	closes[40] = 81
	s := DetectStructures(closes, closes, closes, constant(n, 10), 60)
	assert.True(t, s.DoubleBottom)
	assert.InDelta(t, 80.5, s.SupportLevel, 1e-9)
	assert.True(t, s.Any())
}

func TestCalculateAll_ShortSeriesDegrades(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]series.Bar, 30)
	for i := range bars {
		p := 100 + float64(i)
		bars[i] = series.Bar{Time: start.AddDate(0, 0, i), Open: p, High: p + 1, Low: p - 1, Close: p, Volume: 1000}
	}
	s, err := series.New("TEST", bars)
	require.NoError(t, err)

	set := CalculateAll(s.View(), DefaultConfig())
	assert.Equal(t, 30, set.Bars)
	assert.True(t, set.RSI.IsValid)
	assert.False(t, set.EMA200.IsValid)
	assert.Contains(t, set.Unavailable(), "ema200")
	assert.Contains(t, set.Unavailable(), "high_52w")

	data, err := json.Marshal(set)
	require.NoError(t, err, "NaN readings must serialize")
	assert.Contains(t, string(data), `"ema200":{"value":null`)
}
