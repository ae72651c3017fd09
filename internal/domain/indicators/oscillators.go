package indicators

import "math"

// RSI returns Wilder's relative strength index for every bar.
// The first period values are NaN.
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		gain, loss := split(closes[i] - closes[i-1])
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

// CalculateRSI returns the latest RSI reading. Short input yields a neutral,
// invalid reading of 50.
func CalculateRSI(closes []float64, period int) Reading {
	series := RSI(closes, period)
	r := Latest(series, period)
	if !r.IsValid {
		r.Value = 50.0
	}
	return r
}

func split(change float64) (gain, loss float64) {
	if change > 0 {
		return change, 0
	}
	return 0, -change
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// CCI returns the commodity channel index over typical prices
func CCI(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if period <= 0 || n < period {
		return out
	}

	tp := make([]float64, n)
	for i := range tp {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3
	}
	ma := SMA(tp, period)

	for i := period - 1; i < n; i++ {
		dev := 0.0
		for _, v := range tp[i-period+1 : i+1] {
			dev += math.Abs(v - ma[i])
		}
		dev /= float64(period)
		if dev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - ma[i]) / (0.015 * dev)
	}
	return out
}

// MACDResult holds the three MACD series
type MACDResult struct {
	Line      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes line = EMA(fast) - EMA(slow), signal = EMA(line, signal)
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	f := EMA(closes, fast)
	s := EMA(closes, slow)
	line := make([]float64, len(closes))
	for i := range closes {
		line[i] = f[i] - s[i]
	}
	sig := EMA(line, signal)
	hist := make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{Line: line, Signal: sig, Histogram: hist}
}

// Bullish reports whether the latest line is above its signal
func (m MACDResult) Bullish() bool {
	return len(m.Line) > 0 && Last(m.Line) > Last(m.Signal)
}

// Momentum returns the capped percentage change of the last close over lookback bars
func Momentum(closes []float64, lookback int, limit float64) Reading {
	r := Reading{Value: math.NaN(), Period: lookback, DataCount: len(closes)}
	if lookback <= 0 || len(closes) < lookback+1 {
		return r
	}
	past := closes[len(closes)-1-lookback]
	if past == 0 {
		return r
	}
	m := (Last(closes)/past - 1) * 100
	if limit > 0 {
		m = math.Max(-limit, math.Min(limit, m))
	}
	r.Value = m
	r.IsValid = true
	return r
}

// PctChange returns the percentage change over lookback bars for every bar
func PctChange(closes []float64, lookback int) []float64 {
	out := nanSlice(len(closes))
	for i := lookback; i < len(closes); i++ {
		if closes[i-lookback] != 0 {
			out[i] = closes[i]/closes[i-lookback] - 1
		}
	}
	return out
}
