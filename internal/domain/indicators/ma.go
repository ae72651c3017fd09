package indicators

import (
	"math"
	"sort"
)

// SMA returns the simple moving average. Windows that are not full or that
// contain a NaN yield NaN.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum, nans := 0.0, 0
	for i, v := range values {
		if math.IsNaN(v) {
			nans++
		} else {
			sum += v
		}
		if i >= period {
			if old := values[i-period]; math.IsNaN(old) {
				nans--
			} else {
				sum -= old
			}
		}
		if i >= period-1 && nans == 0 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA returns the exponential moving average seeded with the first value
// (alpha = 2/(period+1), no bias adjustment).
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}

	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// RollingStd returns the sample standard deviation over a trailing window
func RollingStd(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 2 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		out[i] = stddev(values[i-period+1 : i+1])
	}
	return out
}

// RollingMin returns the trailing window minimum
func RollingMin(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	for i := period - 1; i >= 0 && i < len(values); i++ {
		m := math.Inf(1)
		for _, v := range values[i-period+1 : i+1] {
			m = math.Min(m, v)
		}
		out[i] = m
	}
	return out
}

// Mean of the non-NaN values, NaN when there are none
func Mean(values []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Last returns the final element or NaN
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// Ago returns the element n positions before the last, or NaN
func Ago(values []float64, n int) float64 {
	i := len(values) - 1 - n
	if i < 0 || i >= len(values) {
		return math.NaN()
	}
	return values[i]
}

// Tail returns the last n values (or all of them)
func Tail(values []float64, n int) []float64 {
	if n >= len(values) {
		return values
	}
	return values[len(values)-n:]
}

// Min of the non-NaN values
func Min(values []float64) float64 {
	m := math.NaN()
	for _, v := range values {
		if !math.IsNaN(v) && (math.IsNaN(m) || v < m) {
			m = v
		}
	}
	return m
}

// Max of the non-NaN values
func Max(values []float64) float64 {
	m := math.NaN()
	for _, v := range values {
		if !math.IsNaN(v) && (math.IsNaN(m) || v > m) {
			m = v
		}
	}
	return m
}

// Quantile returns the q-th quantile using linear interpolation between order statistics
func Quantile(values []float64, q float64) float64 {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}
	sort.Float64s(clean)

	pos := q * float64(len(clean)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return clean[lo]
	}
	frac := pos - float64(lo)
	return clean[lo] + frac*(clean[hi]-clean[lo])
}

func stddev(window []float64) float64 {
	m := Mean(window)
	ss := 0.0
	for _, v := range window {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(window)-1))
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
