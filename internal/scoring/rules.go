package scoring

import (
	"github.com/sawpanic/scorelab/internal/category"
	"github.com/sawpanic/scorelab/internal/domain/indicators"
)

// ruleInput is what every rule reads. It is resolved once per scoring call.
type ruleInput struct {
	set    indicators.Set
	flags  category.Flags
	params category.Params
	pts    category.Points
}

func (in ruleInput) strongADX() bool {
	return in.set.ADX.IsValid && in.set.ADX.Value > in.params.ADXThreshold
}

func (in ruleInput) nearSupport() bool {
	dist, ok := in.set.SupportDistance()
	return ok && dist < in.pts.SupportProximityPct
}

// applyRules adds every per-indicator and pattern contribution to b
func applyRules(b *Breakdown, in ruleInput) {
	explosive := explosiveBottom(b, in)
	oversoldExtension(b, in)
	if !explosive {
		trendContinuation(b, in)
		rsiScore(b, in)
		movingAverages(b, in)
	}
	adxScore(b, in)
	momentumScore(b, in, explosive)
	volumeScore(b, in)
	intensityScore(b, in)
	if !explosive {
		overextension(b, in)
		supportScore(b, in)
	}
	cciScore(b, in)
	gmmaScore(b, in)
	macdScore(b, in)
	divergenceScore(b, in)
	overboughtStack(b, in)
	yearHighScore(b, in)
	baseScore(b, in)
	structureScore(b, in)
}

// explosiveBottom fires when RSI is oversold, ADX is strong, momentum is in
// capitulation and price sits near the 4-week low, all at once
func explosiveBottom(b *Breakdown, in ruleInput) bool {
	s, p, pts := in.set, in.params, in.pts
	if !s.RSI.IsValid || s.RSI.Value >= p.RSIOversold {
		return false
	}
	if !in.strongADX() {
		return false
	}
	if !s.Momentum.IsValid || s.Momentum.Value >= p.CapitulationThreshold {
		return false
	}
	if !in.nearSupport() {
		return false
	}

	eb := p.ExplosiveBottomBonus
	b.add("explosive_bottom", pts.ExplosiveBase*eb)
	b.add("explosive_bottom_capitulation", pts.ExplosiveCapitulation*eb)
	b.add("explosive_bottom_support", pts.ExplosiveSupport)
	if s.StdCompressed || s.VolumeBuilding {
		b.add("explosive_bottom_setup", pts.ExplosiveSetup*eb)
	}
	if s.ADXRising {
		b.add("explosive_bottom_adx_rising", pts.ExplosiveADXRising*p.ADXMultiplier)
	}
	return true
}

// oversoldExtension rewards price far below EMA50. It only looks at negative
// extension, so it never overlaps the overextension penalty.
func oversoldExtension(b *Breakdown, in ruleInput) {
	if !in.params.ExtremeOversoldEMABonus {
		return
	}
	ext, ok := in.set.EMAExtension()
	if !ok {
		return
	}
	switch {
	case ext < in.pts.ExtremeOversoldPct:
		b.add("extreme_oversold_ema", in.pts.ExtremeOversoldEMA)
	case ext < in.pts.VeryOversoldPct:
		b.add("very_oversold_ema", in.pts.VeryOversoldEMA)
	}
}

func trendContinuation(b *Breakdown, in ruleInput) {
	s, p, pts := in.set, in.params, in.pts
	if !s.EMA50.IsValid || !s.EMA200.IsValid || !s.ADX.IsValid {
		return
	}
	if s.Price <= s.EMA50.Value || s.Price <= s.EMA200.Value {
		return
	}

	adx := s.ADX.Value
	switch {
	case adx > p.ContinuationADX:
		b.add("strong_continuation", p.ContinuationBonus)
		if adx > p.VeryStrongADX {
			b.add("very_strong_continuation", pts.VeryStrongContinuation*p.ADXMultiplier)
		}
		if s.Momentum.IsValid && s.Momentum.Value > pts.ContinuationMomentumMin {
			b.add("continuation_momentum", pts.ContinuationMomentum)
		}
		lo, hi := 40.0, 60.0
		if in.flags.MeanReversion {
			lo, hi = 50, 70
		}
		if s.RSI.IsValid && s.RSI.Value >= lo && s.RSI.Value <= hi {
			b.add("continuation_healthy_rsi", pts.ContinuationHealthyRSI)
		}
		if goldenCross(s) {
			b.add("continuation_golden_cross", pts.ContinuationGoldenCross)
		}
	case adx >= p.ModerateADX:
		b.add("moderate_continuation", p.ContinuationBonus*pts.ModerateContinuationFactor)
		if s.Momentum.IsValid && s.Momentum.Value > 0 {
			b.add("moderate_continuation_momentum", pts.ModerateMomentum)
		}
	}
}

// rsiScore reads RSI classically, or inverted for mean-reversion categories
// where overbought persists and oversold needs a strong trend to be bought
func rsiScore(b *Breakdown, in ruleInput) {
	s, p, pts := in.set, in.params, in.pts
	if !s.RSI.IsValid {
		return
	}
	rsi := s.RSI.Value

	if !in.flags.InvertRSI {
		switch {
		case rsi < p.RSIOversold:
			b.add("rsi_oversold", pts.RSIOversold)
		case rsi > p.RSIOverbought:
			b.add("rsi_overbought", pts.RSIOverbought)
		}
		return
	}

	strong := in.strongADX()
	switch {
	case rsi > p.RSIOverbought:
		b.add("rsi_overbought_continuation", pts.InvertedOverbought)
	case rsi >= p.RSIOversold-pts.RSIDeepBand && rsi <= p.RSIOversold:
		if strong {
			b.add("oversold_strong_trend", pts.InvertedOversold)
		} else {
			b.add("oversold_weak_trend", pts.InvertedOversoldWeak)
		}
	case rsi < p.RSIOversold-pts.RSIDeepBand:
		if strong {
			b.add("very_oversold_strong_trend", pts.InvertedDeep)
		} else {
			b.add("rsi_oversold_avoid", pts.InvertedDeepWeak)
		}
	}
}

func goldenCross(s indicators.Set) bool {
	return s.SMA50.IsValid && s.SMA200.IsValid && s.SMA50.Value > s.SMA200.Value
}

func movingAverages(b *Breakdown, in ruleInput) {
	s, pts := in.set, in.pts
	if s.EMA50.IsValid && s.Price > s.EMA50.Value {
		b.add("price_above_ema50", pts.AboveEMA50)
	}
	if s.EMA200.IsValid && s.Price > s.EMA200.Value {
		b.add("price_above_ema200", pts.AboveEMA200)
	}
	if s.SMA50.IsValid && s.SMA200.IsValid {
		switch {
		case s.SMA50.Value > s.SMA200.Value:
			b.add("golden_cross", pts.GoldenCross)
		case s.SMA50.Value < s.SMA200.Value:
			b.add("death_cross", pts.DeathCross)
		}
	}
}

func adxScore(b *Breakdown, in ruleInput) {
	s, pts := in.set, in.pts
	if !s.ADX.IsValid {
		return
	}
	adx, m := s.ADX.Value, in.params.ADXMultiplier

	if s.ADXRising {
		switch {
		case adx >= 20 && adx <= 25:
			b.add("adx_rising_from_low", pts.ADXRisingEarly*m)
		case adx > 25 && adx <= 30:
			b.add("adx_rising_strong", pts.ADXRisingMid*m)
		case adx > 30:
			b.add("adx_rising_very_strong", pts.ADXRisingStrong*m)
		}
		return
	}
	switch {
	case adx > 30:
		b.add("adx_very_strong", pts.ADXStrong*m)
	case adx > 25:
		b.add("adx_strong", pts.ADXModerate*m)
	}
}

// momentumScore rewards strong positive momentum, or capitulation outside an
// explosive bottom. The two cannot both fire since the threshold is negative.
func momentumScore(b *Breakdown, in ruleInput, explosive bool) {
	s, pts := in.set, in.pts
	if !s.Momentum.IsValid {
		return
	}
	mom := s.Momentum.Value
	switch {
	case mom > 15:
		b.add("very_strong_momentum", pts.MomentumStrong)
	case mom > 8:
		b.add("strong_momentum", pts.MomentumModerate)
	case !explosive && mom < in.params.CapitulationThreshold:
		b.add("capitulation", pts.Capitulation*in.params.ExplosiveBottomBonus)
	}
}

func volumeScore(b *Breakdown, in ruleInput) {
	s, pts, vm := in.set, in.pts, in.params.VolumeMultiplier
	if s.VolumeBuilding {
		b.add("volume_building", pts.VolumeBuilding*vm)
	}
	switch {
	case s.VolumeSurge && (s.ATRCompressed || s.StdCompressed):
		b.add("volume_surge_consolidation", pts.VolumeSurgeCompressed)
	case s.VolumeSurge:
		b.add("volume_surge", pts.VolumeSurge*vm)
	}
	if s.OBVUp {
		b.add("obv_rising", pts.OBVUp)
	}
	if s.ADUp {
		b.add("ad_rising", pts.ADUp)
	}
}

func intensityScore(b *Breakdown, in ruleInput) {
	if !in.set.PI.IsValid {
		return
	}
	switch pi := in.set.PI.Value; {
	case pi > 70:
		b.add("pi_high", in.pts.PIHigh)
	case pi > 50:
		b.add("pi_moderate", in.pts.PIModerate)
	}
}

func overextension(b *Breakdown, in ruleInput) {
	ext, ok := in.set.EMAExtension()
	if !ok {
		return
	}
	m := in.params.OverextensionMultiplier
	switch {
	case ext > 100:
		b.add("overextension", in.pts.Overextended100*m)
	case ext > 50:
		b.add("overextension", in.pts.Overextended50*m)
	case ext > 30:
		b.add("overextension", in.pts.Overextended30*m)
	}
}

func supportScore(b *Breakdown, in ruleInput) {
	if in.nearSupport() {
		b.add("near_support", in.pts.NearSupport)
	}
	if dist, ok := in.set.SupportDistance(); ok && dist <= 0 {
		b.add("at_4w_low", in.pts.At4WeekLow)
	}
}

func cciScore(b *Breakdown, in ruleInput) {
	if !in.set.CCI.IsValid {
		return
	}
	pts := in.pts
	switch cci := in.set.CCI.Value; {
	case cci < -100:
		b.add("cci_oversold", pts.CCIOversold)
	case cci < -50:
		b.add("cci_mild_oversold", pts.CCIMildOversold)
	case cci > 200:
		b.add("cci_extreme", pts.CCIExtreme)
	case cci > 150:
		b.add("cci_high", pts.CCIHigh)
	case cci > 100:
		b.add("cci_overbought", pts.CCIOverbought)
	}
}

func gmmaScore(b *Breakdown, in ruleInput) {
	g := in.set.GMMA
	if !g.IsValid {
		return
	}
	switch {
	case g.Bullish:
		b.add("gmma_bullish", in.pts.GMMABullish)
	case g.EarlyExpansion:
		b.add("gmma_early_expansion", in.pts.GMMAEarly)
	}
}

func macdScore(b *Breakdown, in ruleInput) {
	s := in.set
	if !s.MACDValid {
		return
	}
	if s.MACDBullish {
		b.add("macd_bullish", in.pts.MACDBullish)
	}
	if s.MACDHistogram > 0 {
		b.add("macd_histogram_positive", in.pts.MACDHistogram)
	}
}

func divergenceScore(b *Breakdown, in ruleInput) {
	pts := in.pts.Divergence
	addDivergence := func(prefix string, d indicators.Divergence) {
		switch d {
		case indicators.BullishDivergence:
			b.add(prefix+"_bullish_divergence", pts)
		case indicators.BearishDivergence:
			b.add(prefix+"_bearish_divergence", -pts)
		}
	}
	addDivergence("rsi", in.set.RSIDivergence)
	addDivergence("macd", in.set.MACDDivergence)
}

func overboughtStack(b *Breakdown, in ruleInput) {
	s := in.set
	if s.RSI.IsValid && s.CCI.IsValid && s.RSI.Value > 70 && s.CCI.Value > 100 {
		b.add("multiple_overbought", in.pts.MultipleOverbought)
	}
}

func yearHighScore(b *Breakdown, in ruleInput) {
	s := in.set
	if !s.High52W.IsValid || s.High52W.Value <= 0 {
		return
	}
	below := (s.High52W.Value - s.Price) / s.High52W.Value * 100
	switch {
	case below <= 2:
		b.add("near_52w_high", in.pts.Near52WHigh)
	case below <= 5:
		b.add("close_52w_high", in.pts.Close52WHigh)
	}
}

func baseScore(b *Breakdown, in ruleInput) {
	switch in.set.Base {
	case indicators.TightBase:
		b.add("tight_base", in.pts.TightBase)
	case indicators.AscendingBase:
		b.add("ascending_base", in.pts.AscendingBase)
	case indicators.FlatBase:
		b.add("flat_base", in.pts.FlatBase)
	}
	if in.set.ATRCompressed {
		b.add("atr_compression", in.pts.ATRCompression)
	}
}

func structureScore(b *Breakdown, in ruleInput) {
	st, pts := in.set.Structure, in.pts
	if !st.Any() {
		return
	}
	pattern := 0.0
	if st.DoubleBottom {
		pattern += pts.DoubleBottom
	}
	if st.InverseHS {
		pattern += pts.InverseHS
	}
	if st.AscendingTriangle {
		pattern += pts.AscendingTriangle
	}
	if st.FallingWedge {
		pattern += pts.FallingWedge
	}
	if st.VolumeConfirmed {
		pattern += pts.StructureVolume
	}
	b.add("bottoming_pattern", pattern)
	if st.Confidence > 0.5 {
		b.add("high_confidence_pattern", pts.StructureConfidence)
	}
}
