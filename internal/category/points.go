package category

// Points are the point values awarded by each scoring rule. They are
// backtested defaults, not intrinsic constants, and are tuned like Params.
type Points struct {
	Cap float64 `yaml:"cap" json:"cap" default:"20" validate:"gt=0"`

	// Explosive bottom
	ExplosiveBase         float64 `yaml:"explosive_base" json:"explosive_base" default:"4"`
	ExplosiveCapitulation float64 `yaml:"explosive_capitulation" json:"explosive_capitulation" default:"2"`
	ExplosiveSupport      float64 `yaml:"explosive_support" json:"explosive_support" default:"1.5"`
	ExplosiveSetup        float64 `yaml:"explosive_setup" json:"explosive_setup" default:"1"`
	ExplosiveADXRising    float64 `yaml:"explosive_adx_rising" json:"explosive_adx_rising" default:"1.5"`
	SupportProximityPct   float64 `yaml:"support_proximity_pct" json:"support_proximity_pct" default:"5" validate:"gt=0"`

	// Oversold extension below EMA50
	ExtremeOversoldEMA float64 `yaml:"extreme_oversold_ema" json:"extreme_oversold_ema" default:"3"`
	ExtremeOversoldPct float64 `yaml:"extreme_oversold_pct" json:"extreme_oversold_pct" default:"-30" validate:"lt=0"`
	VeryOversoldEMA    float64 `yaml:"very_oversold_ema" json:"very_oversold_ema" default:"2"`
	VeryOversoldPct    float64 `yaml:"very_oversold_pct" json:"very_oversold_pct" default:"-20" validate:"lt=0,gtfield=ExtremeOversoldPct"`

	// Trend continuation
	ModerateContinuationFactor float64 `yaml:"moderate_continuation_factor" json:"moderate_continuation_factor" default:"0.5"`
	ModerateMomentum           float64 `yaml:"moderate_momentum" json:"moderate_momentum" default:"0.5"`
	VeryStrongContinuation     float64 `yaml:"very_strong_continuation" json:"very_strong_continuation" default:"1.5"`
	ContinuationMomentum       float64 `yaml:"continuation_momentum" json:"continuation_momentum" default:"1"`
	ContinuationMomentumMin    float64 `yaml:"continuation_momentum_min" json:"continuation_momentum_min" default:"5"`
	ContinuationHealthyRSI     float64 `yaml:"continuation_healthy_rsi" json:"continuation_healthy_rsi" default:"1"`
	ContinuationGoldenCross    float64 `yaml:"continuation_golden_cross" json:"continuation_golden_cross" default:"0.5"`

	// RSI
	RSIOversold          float64 `yaml:"rsi_oversold" json:"rsi_oversold" default:"2"`
	RSIOverbought        float64 `yaml:"rsi_overbought" json:"rsi_overbought" default:"-2"`
	InvertedOverbought   float64 `yaml:"inverted_overbought" json:"inverted_overbought" default:"1"`
	InvertedOversold     float64 `yaml:"inverted_oversold" json:"inverted_oversold" default:"1.5"`
	InvertedOversoldWeak float64 `yaml:"inverted_oversold_weak" json:"inverted_oversold_weak" default:"-0.5"`
	InvertedDeep         float64 `yaml:"inverted_deep" json:"inverted_deep" default:"1"`
	InvertedDeepWeak     float64 `yaml:"inverted_deep_weak" json:"inverted_deep_weak" default:"-1.5"`
	RSIDeepBand          float64 `yaml:"rsi_deep_band" json:"rsi_deep_band" default:"10" validate:"gt=0"`

	// Moving averages
	AboveEMA50  float64 `yaml:"above_ema50" json:"above_ema50" default:"0.5"`
	AboveEMA200 float64 `yaml:"above_ema200" json:"above_ema200" default:"1"`
	GoldenCross float64 `yaml:"golden_cross" json:"golden_cross" default:"1.5"`
	DeathCross  float64 `yaml:"death_cross" json:"death_cross" default:"-1.5"`

	// ADX tiers before the category multiplier
	ADXRisingEarly  float64 `yaml:"adx_rising_early" json:"adx_rising_early" default:"3"`
	ADXRisingMid    float64 `yaml:"adx_rising_mid" json:"adx_rising_mid" default:"2.5"`
	ADXRisingStrong float64 `yaml:"adx_rising_strong" json:"adx_rising_strong" default:"2.5"`
	ADXStrong       float64 `yaml:"adx_strong" json:"adx_strong" default:"2"`
	ADXModerate     float64 `yaml:"adx_moderate" json:"adx_moderate" default:"1.5"`

	// Momentum
	MomentumStrong   float64 `yaml:"momentum_strong" json:"momentum_strong" default:"1"`
	MomentumModerate float64 `yaml:"momentum_moderate" json:"momentum_moderate" default:"0.5"`
	Capitulation     float64 `yaml:"capitulation" json:"capitulation" default:"1"`

	// Volume
	VolumeBuilding        float64 `yaml:"volume_building" json:"volume_building" default:"1.5"`
	VolumeSurgeCompressed float64 `yaml:"volume_surge_compressed" json:"volume_surge_compressed" default:"1.5"`
	VolumeSurge           float64 `yaml:"volume_surge" json:"volume_surge" default:"1"`
	OBVUp                 float64 `yaml:"obv_up" json:"obv_up" default:"1"`
	ADUp                  float64 `yaml:"ad_up" json:"ad_up" default:"1"`

	PIHigh     float64 `yaml:"pi_high" json:"pi_high" default:"2"`
	PIModerate float64 `yaml:"pi_moderate" json:"pi_moderate" default:"1"`

	// Overextension above EMA50, before the category multiplier
	Overextended100 float64 `yaml:"overextended_100" json:"overextended_100" default:"-3"`
	Overextended50  float64 `yaml:"overextended_50" json:"overextended_50" default:"-2"`
	Overextended30  float64 `yaml:"overextended_30" json:"overextended_30" default:"-1"`

	NearSupport float64 `yaml:"near_support" json:"near_support" default:"1"`
	At4WeekLow  float64 `yaml:"at_4w_low" json:"at_4w_low" default:"1"`

	CCIOversold     float64 `yaml:"cci_oversold" json:"cci_oversold" default:"1.5"`
	CCIMildOversold float64 `yaml:"cci_mild_oversold" json:"cci_mild_oversold" default:"0.5"`
	CCIExtreme      float64 `yaml:"cci_extreme" json:"cci_extreme" default:"-3"`
	CCIHigh         float64 `yaml:"cci_high" json:"cci_high" default:"-2.5"`
	CCIOverbought   float64 `yaml:"cci_overbought" json:"cci_overbought" default:"-1.5"`

	GMMABullish float64 `yaml:"gmma_bullish" json:"gmma_bullish" default:"2"`
	GMMAEarly   float64 `yaml:"gmma_early" json:"gmma_early" default:"1"`

	MACDBullish   float64 `yaml:"macd_bullish" json:"macd_bullish" default:"1"`
	MACDHistogram float64 `yaml:"macd_histogram" json:"macd_histogram" default:"0.5"`

	Divergence         float64 `yaml:"divergence" json:"divergence" default:"1.5"`
	MultipleOverbought float64 `yaml:"multiple_overbought" json:"multiple_overbought" default:"-1"`

	Near52WHigh  float64 `yaml:"near_52w_high" json:"near_52w_high" default:"-1.5"`
	Close52WHigh float64 `yaml:"close_52w_high" json:"close_52w_high" default:"-1"`

	TightBase      float64 `yaml:"tight_base" json:"tight_base" default:"1"`
	AscendingBase  float64 `yaml:"ascending_base" json:"ascending_base" default:"1.5"`
	FlatBase       float64 `yaml:"flat_base" json:"flat_base" default:"0.5"`
	ATRCompression float64 `yaml:"atr_compression" json:"atr_compression" default:"1"`

	// Bottoming structures
	DoubleBottom        float64 `yaml:"double_bottom" json:"double_bottom" default:"2"`
	InverseHS           float64 `yaml:"inverse_hs" json:"inverse_hs" default:"2.5"`
	AscendingTriangle   float64 `yaml:"ascending_triangle" json:"ascending_triangle" default:"2"`
	FallingWedge        float64 `yaml:"falling_wedge" json:"falling_wedge" default:"2"`
	StructureVolume     float64 `yaml:"structure_volume" json:"structure_volume" default:"0.5"`
	StructureConfidence float64 `yaml:"structure_confidence" json:"structure_confidence" default:"1"`
}

// DefaultPoints returns the backtested default point values
func DefaultPoints() Points {
	var p Points
	if err := setDefaults(&p); err != nil {
		panic(err)
	}
	return p
}
