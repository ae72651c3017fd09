package regime

// Label names a regime classification or trend
type Label string

const (
	Unknown Label = "unknown"

	// Market vs reference asset
	Crashing  Label = "crashing"
	Declining Label = "declining"
	Neutral   Label = "neutral"
	Rising    Label = "rising"
	NearLow   Label = "near_low"

	// Volatility index
	VolLow      Label = "low"
	VolModerate Label = "moderate"
	VolHigh     Label = "high"
	Falling     Label = "falling"

	// Business cycle
	StrongExpansion   Label = "strong_expansion"
	Expansion         Label = "expansion"
	Contraction       Label = "contraction"
	StrongContraction Label = "strong_contraction"
	Improving         Label = "improving"
	Deteriorating     Label = "deteriorating"
	Stable            Label = "stable"

	// Seasonality
	StrongPositive Label = "strong_positive"
	Positive       Label = "positive"
	MildPositive   Label = "mild_positive"
	MildNegative   Label = "mild_negative"
	Negative       Label = "negative"
	StrongNegative Label = "strong_negative"
)

func (l Label) String() string { return string(l) }

// Reading is the output of one regime provider. Adjustment is additive
// points; Derate is a multiplier applied after all additive terms (1 = none).
type Reading struct {
	Label      Label   `json:"label"`
	Trend      Label   `json:"trend,omitempty"`
	Value      float64 `json:"value"`
	Change     float64 `json:"change,omitempty"`
	Adjustment float64 `json:"adjustment"`
	Derate     float64 `json:"derate"`
	Available  bool    `json:"available"`
}

// NeutralReading returns the reading used when a provider has no data
func NeutralReading() Reading {
	return Reading{Label: Unknown, Derate: 1}
}

// Bearish reports whether the reading marks a falling market
func (r Reading) Bearish() bool {
	return r.Label == Crashing || r.Label == Declining
}

// Config holds the thresholds for every provider
type Config struct {
	MarketMAPeriod      int     `yaml:"market_ma_period"`
	MarketSlopeBars     int     `yaml:"market_slope_bars"`
	CrashingPct         float64 `yaml:"crashing_pct"`
	DecliningPct        float64 `yaml:"declining_pct"`
	RisingPct           float64 `yaml:"rising_pct"`
	CrashingAdjustment  float64 `yaml:"crashing_adjustment"`
	DecliningAdjustment float64 `yaml:"declining_adjustment"`
	NearLowWindow       int     `yaml:"near_low_window"`
	NearLowPct          float64 `yaml:"near_low_pct"`
	NearLowAdjustment   float64 `yaml:"near_low_adjustment"`
	BearishDerate       float64 `yaml:"bearish_derate"`

	VIXModerate           float64 `yaml:"vix_moderate"`
	VIXHigh               float64 `yaml:"vix_high"`
	VIXModerateAdjustment float64 `yaml:"vix_moderate_adjustment"`
	VIXHighAdjustment     float64 `yaml:"vix_high_adjustment"`
	VIXShortMA            int     `yaml:"vix_short_ma"`
	VIXLongMA             int     `yaml:"vix_long_ma"`
	VIXRisingPct          float64 `yaml:"vix_rising_pct"`
	VIXRisingAdjustment   float64 `yaml:"vix_rising_adjustment"`
	VIXHighDerate         float64 `yaml:"vix_high_derate"`
	VIXRisingDerate       float64 `yaml:"vix_rising_derate"`

	CycleStrongExpansion float64 `yaml:"cycle_strong_expansion"`
	CycleExpansion       float64 `yaml:"cycle_expansion"`
	CycleContraction     float64 `yaml:"cycle_contraction"`
	CycleTrendScore      float64 `yaml:"cycle_trend_score"`
	CycleTrendReadings   int     `yaml:"cycle_trend_readings"`
	CycleProxyWindow     int     `yaml:"cycle_proxy_window"`

	SeasonalityMinYears float64 `yaml:"seasonality_min_years"`
}

// DefaultConfig returns the standard regime thresholds
func DefaultConfig() Config {
	return Config{
		MarketMAPeriod:      20,
		MarketSlopeBars:     19,
		CrashingPct:         -5,
		DecliningPct:        -2,
		RisingPct:           2,
		CrashingAdjustment:  -2,
		DecliningAdjustment: -1,
		NearLowWindow:       60,
		NearLowPct:          5,
		NearLowAdjustment:   -1,
		BearishDerate:       0.9,

		VIXModerate:           20,
		VIXHigh:               29,
		VIXModerateAdjustment: -0.5,
		VIXHighAdjustment:     -1.5,
		VIXShortMA:            5,
		VIXLongMA:             20,
		VIXRisingPct:          10,
		VIXRisingAdjustment:   -0.5,
		VIXHighDerate:         0.85,
		VIXRisingDerate:       0.95,

		CycleStrongExpansion: 60,
		CycleExpansion:       50,
		CycleContraction:     40,
		CycleTrendScore:      0.3,
		CycleTrendReadings:   3,
		CycleProxyWindow:     20,

		SeasonalityMinYears: 2,
	}
}
