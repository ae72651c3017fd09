package indicators

import "math"

// Divergence is the relation between price extrema and oscillator extrema
type Divergence int

const (
	NoDivergence Divergence = iota
	BullishDivergence
	BearishDivergence
)

// String returns the divergence label
func (d Divergence) String() string {
	switch d {
	case BullishDivergence:
		return "bullish_divergence"
	case BearishDivergence:
		return "bearish_divergence"
	default:
		return "none"
	}
}

type extremum struct {
	idx   int
	value float64
}

// localExtrema finds strict peaks and troughs that beat width neighbours on each side
func localExtrema(values []float64, width int) (peaks, troughs []extremum) {
	for i := width; i < len(values)-width; i++ {
		v := values[i]
		if math.IsNaN(v) {
			continue
		}
		isPeak, isTrough := true, true
		for k := 1; k <= width; k++ {
			l, r := values[i-k], values[i+k]
			if !(v > l && v > r) {
				isPeak = false
			}
			if !(v < l && v < r) {
				isTrough = false
			}
		}
		if isPeak {
			peaks = append(peaks, extremum{i, v})
		}
		if isTrough {
			troughs = append(troughs, extremum{i, v})
		}
	}
	return peaks, troughs
}

// DetectDivergence compares the last two price extrema with the last two
// oscillator extrema inside the trailing window. Bearish: price higher high,
// oscillator lower high. Bullish: price lower low, oscillator higher low.
func DetectDivergence(closes, oscillator []float64, window int) Divergence {
	if len(closes) < window || len(oscillator) < window {
		return NoDivergence
	}
	pPeaks, pTroughs := localExtrema(Tail(closes, window), 2)
	oPeaks, oTroughs := localExtrema(Tail(oscillator, window), 2)

	if len(pPeaks) >= 2 && len(oPeaks) >= 2 {
		lp, pp := pPeaks[len(pPeaks)-1].value, pPeaks[len(pPeaks)-2].value
		lo, po := oPeaks[len(oPeaks)-1].value, oPeaks[len(oPeaks)-2].value
		if lp > pp && lo < po {
			return BearishDivergence
		}
	}
	if len(pTroughs) >= 2 && len(oTroughs) >= 2 {
		lp, pp := pTroughs[len(pTroughs)-1].value, pTroughs[len(pTroughs)-2].value
		lo, po := oTroughs[len(oTroughs)-1].value, oTroughs[len(oTroughs)-2].value
		if lp < pp && lo > po {
			return BullishDivergence
		}
	}
	return NoDivergence
}

// BasePattern classifies recent consolidation
type BasePattern int

const (
	NoBase BasePattern = iota
	TightBase
	AscendingBase
	FlatBase
)

// String returns the base label
func (b BasePattern) String() string {
	switch b {
	case TightBase:
		return "tight_base"
	case AscendingBase:
		return "ascending_base"
	case FlatBase:
		return "flat_base"
	default:
		return "none"
	}
}

// ConsolidationBase classifies the last lookback closes. A range under
// tightness of the mean price is a tight base, or an ascending base when the
// last trough sits above the previous one. A range under flatness is a flat base.
func ConsolidationBase(closes []float64, lookback int, tightness, flatness float64) BasePattern {
	if len(closes) < lookback {
		return NoBase
	}
	recent := Tail(closes, lookback)
	avg := Mean(recent)
	if avg == 0 || math.IsNaN(avg) {
		return NoBase
	}
	rangePct := (Max(recent) - Min(recent)) / avg

	if rangePct < tightness {
		_, troughs := localExtrema(recent, 2)
		if len(troughs) >= 2 && troughs[len(troughs)-1].value > troughs[len(troughs)-2].value {
			return AscendingBase
		}
		return TightBase
	}
	if rangePct < flatness {
		return FlatBase
	}
	return NoBase
}

// Structure summarises the bottoming chart patterns found in a window
type Structure struct {
	DoubleBottom      bool    `json:"double_bottom"`
	InverseHS         bool    `json:"inverse_hs"`
	AscendingTriangle bool    `json:"ascending_triangle"`
	FallingWedge      bool    `json:"falling_wedge"`
	VolumeConfirmed   bool    `json:"volume_confirmed"`
	SupportLevel      float64 `json:"support_level,omitempty"`
	TargetLevel       float64 `json:"target_level,omitempty"`
	Confidence        float64 `json:"confidence"`
}

// Any reports whether at least one price pattern was found
func (s Structure) Any() bool {
	return s.DoubleBottom || s.InverseHS || s.AscendingTriangle || s.FallingWedge
}

const swingWidth = 5

// swingLows returns bars equal to the minimum of their +/- swingWidth neighbourhood
func swingLows(values []float64) []extremum {
	var out []extremum
	for i := swingWidth; i < len(values)-swingWidth; i++ {
		if values[i] == Min(values[i-swingWidth:i+swingWidth+1]) {
			out = append(out, extremum{i, values[i]})
		}
	}
	return out
}

func swingHighs(values []float64) []extremum {
	var out []extremum
	for i := swingWidth; i < len(values)-swingWidth; i++ {
		if values[i] == Max(values[i-swingWidth:i+swingWidth+1]) {
			out = append(out, extremum{i, values[i]})
		}
	}
	return out
}

// DetectStructures scans the trailing lookback bars for double bottoms,
// inverse head and shoulders, ascending triangles and falling wedges
func DetectStructures(highs, lows, closes, volumes []float64, lookback int) Structure {
	var s Structure
	if len(closes) < lookback {
		return s
	}
	c := Tail(closes, lookback)
	h := Tail(highs, lookback)
	l := Tail(lows, lookback)

	if ok, support := doubleBottom(c); ok {
		s.DoubleBottom = true
		s.SupportLevel = support
		s.Confidence += 0.3
	}
	if ok, neckline := inverseHeadShoulders(c); ok {
		s.InverseHS = true
		s.SupportLevel = neckline
		s.Confidence += 0.4
	}
	if ok, breakout := ascendingTriangle(c, h); ok {
		s.AscendingTriangle = true
		s.TargetLevel = breakout
		s.Confidence += 0.3
	}
	if ok, target := fallingWedge(h, l); ok {
		s.FallingWedge = true
		s.TargetLevel = target
		s.Confidence += 0.3
	}
	if len(volumes) >= 20 && Mean(Tail(volumes, 10)) > Mean(Tail(volumes, 20))*1.2 {
		s.VolumeConfirmed = true
		s.Confidence += 0.1
	}
	return s
}

func doubleBottom(c []float64) (bool, float64) {
	lows := swingLows(c)
	if len(lows) < 2 {
		return false, 0
	}
	first := lows[0]
	for _, e := range lows {
		if e.value < first.value {
			first = e
		}
	}
	second := extremum{-1, math.Inf(1)}
	for _, e := range lows {
		if e.idx != first.idx && e.value < second.value {
			second = e
		}
	}
	if math.Abs((first.value-second.value)/first.value) < 0.03 && second.idx > first.idx {
		return true, (first.value + second.value) / 2
	}
	return false, 0
}

func inverseHeadShoulders(c []float64) (bool, float64) {
	lows := swingLows(c)
	if len(lows) < 3 {
		return false, 0
	}
	head := lows[0]
	for _, e := range lows {
		if e.value < head.value {
			head = e
		}
	}
	left := lows[0].value
	right := math.Inf(1)
	for _, e := range lows {
		if e.idx > head.idx && e.value < right {
			right = e.value
		}
	}
	if math.IsInf(right, 1) {
		return false, 0
	}
	if head.value < left && head.value < right && math.Abs((left-right)/left) < 0.05 {
		return true, (left + right) / 2
	}
	return false, 0
}

func ascendingTriangle(c, h []float64) (bool, float64) {
	resistance := Max(h)
	touches := 0
	for _, v := range h {
		if math.Abs(v-resistance)/resistance < 0.02 {
			touches++
		}
	}
	var sampled []float64
	for i := 0; i < len(c); i += 5 {
		sampled = append(sampled, c[i])
	}
	if len(sampled) >= 3 && touches >= 2 && slope(sampled) > 0 {
		return true, resistance
	}
	return false, 0
}

func fallingWedge(h, l []float64) (bool, float64) {
	highs := swingHighs(h)
	lows := swingLows(l)
	if len(highs) < 2 || len(lows) < 2 {
		return false, 0
	}
	hf, hl := highs[0], highs[len(highs)-1]
	lf, ll := lows[0], lows[len(lows)-1]
	if hl.idx == hf.idx || ll.idx == lf.idx {
		return false, 0
	}
	highSlope := (hl.value - hf.value) / float64(hl.idx-hf.idx)
	lowSlope := (ll.value - lf.value) / float64(ll.idx-lf.idx)
	if highSlope < 0 && lowSlope < 0 && highSlope > lowSlope {
		return true, (hl.value + ll.value) / 2
	}
	return false, 0
}
