package indicators

import "math"

// TrueRange returns the true range series; the first bar uses high-low
func TrueRange(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := range closes {
		hl := highs[i] - lows[i]
		if i == 0 {
			out[i] = hl
			continue
		}
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR returns Wilder's average true range. Values before index period-1 are NaN.
func ATR(highs, lows, closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period {
		return out
	}

	tr := TrueRange(highs, lows, closes)
	seed := 0.0
	for _, v := range tr[:period] {
		seed += v
	}
	out[period-1] = seed / float64(period)
	for i := period; i < len(tr); i++ {
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out
}

// VolatilityCompressed reports whether the latest ATR is below ratio times the
// mean of the last lookback ATR values
func VolatilityCompressed(atr []float64, lookback int, ratio float64) bool {
	recent := Tail(atr, lookback)
	if len(recent) < lookback {
		return false
	}
	current := Last(atr)
	avg := Mean(recent)
	if math.IsNaN(current) || math.IsNaN(avg) {
		return false
	}
	return current < avg*ratio
}

// ADXResult holds the directional movement series
type ADXResult struct {
	ADX     []float64
	PlusDI  []float64
	MinusDI []float64
}

// ADX computes Wilder's average directional index. The first ADX value
// appears at index 2*period-1.
func ADX(highs, lows, closes []float64, period int) ADXResult {
	n := len(closes)
	res := ADXResult{ADX: nanSlice(n), PlusDI: nanSlice(n), MinusDI: nanSlice(n)}
	if period <= 0 || n < 2*period {
		return res
	}

	tr := TrueRange(highs, lows, closes)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	var sTR, sPlus, sMinus float64
	for i := 1; i <= period; i++ {
		sTR += tr[i]
		sPlus += plusDM[i]
		sMinus += minusDM[i]
	}

	dx := nanSlice(n)
	p := float64(period)
	for i := period; i < n; i++ {
		if i > period {
			sTR = sTR - sTR/p + tr[i]
			sPlus = sPlus - sPlus/p + plusDM[i]
			sMinus = sMinus - sMinus/p + minusDM[i]
		}
		if sTR == 0 {
			res.PlusDI[i], res.MinusDI[i], dx[i] = 0, 0, 0
			continue
		}
		pdi := 100 * sPlus / sTR
		mdi := 100 * sMinus / sTR
		res.PlusDI[i] = pdi
		res.MinusDI[i] = mdi
		if pdi+mdi == 0 {
			dx[i] = 0
		} else {
			dx[i] = 100 * math.Abs(pdi-mdi) / (pdi + mdi)
		}
	}

	first := 2*period - 1
	seed := 0.0
	for _, v := range dx[period : first+1] {
		seed += v
	}
	res.ADX[first] = seed / p
	for i := first + 1; i < n; i++ {
		res.ADX[i] = (res.ADX[i-1]*(p-1) + dx[i]) / p
	}
	return res
}

// Direction classifies how a series moved over a number of bars
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionFalling
	DirectionStable
	DirectionRising
)

// String returns the direction label
func (d Direction) String() string {
	switch d {
	case DirectionFalling:
		return "falling"
	case DirectionStable:
		return "stable"
	case DirectionRising:
		return "rising"
	default:
		return "unknown"
	}
}

// TrendOf compares the latest value with the one periods bars earlier;
// a change beyond +/- threshold percent counts as rising or falling
func TrendOf(values []float64, periods int, threshold float64) Direction {
	current := Last(values)
	past := Ago(values, periods)
	if math.IsNaN(current) || math.IsNaN(past) || past == 0 {
		return DirectionUnknown
	}
	change := (current/past - 1) * 100
	switch {
	case change > threshold:
		return DirectionRising
	case change < -threshold:
		return DirectionFalling
	default:
		return DirectionStable
	}
}

// GMMAResult summarises the Guppy multiple moving average bundles at the last bar
type GMMAResult struct {
	Bullish        bool    `json:"bullish"`
	Compressed     bool    `json:"compressed"`
	EarlyExpansion bool    `json:"early_expansion"`
	ShortSpread    float64 `json:"short_spread"`
	IsValid        bool    `json:"is_valid"`
}

// GMMA short and long EMA periods
var (
	GMMAShort = []int{3, 5, 8, 10, 12, 15}
	GMMALong  = []int{30, 35, 40, 45, 50, 60}
)

// GMMA evaluates the short and long EMA bundles. compressedSpread is the
// short-bundle width, relative to price, below which the bundle counts as compressed.
func GMMA(closes []float64, compressedSpread float64) GMMAResult {
	if len(closes) < GMMALong[len(GMMALong)-1] {
		return GMMAResult{}
	}

	shortVals := latestEMAs(closes, GMMAShort)
	longVals := latestEMAs(closes, GMMALong)
	price := Last(closes)

	spread := (Max(shortVals) - Min(shortVals)) / price
	compressed := spread < compressedSpread
	return GMMAResult{
		Bullish:        Min(shortVals) > Max(longVals),
		Compressed:     compressed,
		EarlyExpansion: Mean(shortVals) > Mean(longVals) && compressed,
		ShortSpread:    spread,
		IsValid:        true,
	}
}

func latestEMAs(closes []float64, periods []int) []float64 {
	out := make([]float64, len(periods))
	for i, p := range periods {
		out[i] = Last(EMA(closes, p))
	}
	return out
}
