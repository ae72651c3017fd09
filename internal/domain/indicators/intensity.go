package indicators

import "math"

// PriceIntensityWindow bounds how many raw readings the percentile
// normalization looks back over
const PriceIntensityWindow = 252

// PriceIntensityRaw returns the unnormalized intensity series: momentum
// magnitude times relative volume times volatility compression, divided by
// the distance of price from its mean.
func PriceIntensityRaw(closes, volumes []float64, period int) []float64 {
	n := len(closes)
	momentum := PctChange(closes, period)
	volMA := SMA(volumes, period)
	std := RollingStd(closes, period)
	stdMA := SMA(std, period*2)
	priceMA := SMA(closes, period*2)

	out := nanSlice(n)
	for i := 0; i < n; i++ {
		if math.IsNaN(momentum[i]) || math.IsNaN(volMA[i]) || math.IsNaN(std[i]) ||
			math.IsNaN(stdMA[i]) || math.IsNaN(priceMA[i]) {
			continue
		}
		strength := volumes[i] / (volMA[i] + 0.0001)
		compression := stdMA[i] / (std[i] + 0.0001)
		extension := math.Abs((closes[i]-priceMA[i])/(priceMA[i]+0.0001)) + 0.01
		out[i] = math.Abs(momentum[i]) * strength * compression / extension
	}
	return out
}

// NormalizePercentile maps current onto 0-100 using the 5th and 95th
// percentiles of window, clipping outside that band
func NormalizePercentile(window []float64, current float64) float64 {
	lo := Quantile(window, 0.05)
	hi := Quantile(window, 0.95)
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsNaN(current) {
		return math.NaN()
	}
	v := (current - lo) / (hi - lo + 0.0001) * 100
	return math.Max(0, math.Min(100, v))
}

// PriceIntensity returns the latest normalized intensity, 0-100.
// At least 4*period bars are required.
func PriceIntensity(closes, volumes []float64, period int) Reading {
	r := Reading{Value: math.NaN(), Period: period, DataCount: len(closes)}
	if period <= 0 || len(closes) < period*4 {
		return r
	}

	raw := PriceIntensityRaw(closes, volumes, period)
	window := Tail(raw, PriceIntensityWindow)
	v := NormalizePercentile(window, Last(raw))
	if math.IsNaN(v) {
		return r
	}
	r.Value = v
	r.IsValid = true
	return r
}
