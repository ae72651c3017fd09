package indicators

import "math"

// OBV returns the on-balance volume line
func OBV(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// AccumulationDistribution returns the accumulation/distribution line
func AccumulationDistribution(highs, lows, closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	prev := 0.0
	for i := range closes {
		mfm := 0.0
		if rng := highs[i] - lows[i]; rng > 0 {
			mfm = ((closes[i] - lows[i]) - (highs[i] - closes[i])) / rng
		}
		prev += mfm * volumes[i]
		out[i] = prev
	}
	return out
}

// SlopeUp reports whether the least-squares slope of the last n values is positive
func SlopeUp(values []float64, n int) bool {
	if n < 2 || len(values) < n {
		return false
	}
	window := values[len(values)-n:]
	return slope(window) > 0
}

func slope(ys []float64) float64 {
	n := float64(len(ys))
	var sx, sy, sxy, sxx float64
	for i, y := range ys {
		x := float64(i)
		sx += x
		sy += y
		sxy += x * y
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

// VolumeSurge reports a current volume above threshold times both the
// trailing lookback mean and the mean of the window ending offset bars ago
func VolumeSurge(volumes []float64, lookback, offset int, threshold float64) bool {
	if len(volumes) < lookback+offset {
		return false
	}
	current := Last(volumes)
	recent := Mean(Tail(volumes, lookback))
	if !(current > recent*threshold) {
		return false
	}
	end := len(volumes) - offset
	prior := Mean(volumes[end-lookback : end])
	return current > prior*threshold
}

// VolumeBuilding reports the latest volume above ratio times its lookback mean
func VolumeBuilding(volumes []float64, lookback int, ratio float64) bool {
	if len(volumes) < lookback {
		return false
	}
	avg := Last(SMA(volumes, lookback))
	if math.IsNaN(avg) {
		return false
	}
	return Last(volumes) > avg*ratio
}
