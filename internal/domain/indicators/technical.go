package indicators

import (
	"encoding/json"
	"math"
	"time"

	"github.com/sawpanic/scorelab/internal/series"
)

// Reading is the latest value of an indicator. IsValid is false when the
// input was shorter than the indicator needs.
type Reading struct {
	Value     float64 `json:"value"`
	Period    int     `json:"period"`
	IsValid   bool    `json:"is_valid"`
	DataCount int     `json:"data_count"`
}

// Latest wraps the last element of a computed series
func Latest(values []float64, period int) Reading {
	v := Last(values)
	return Reading{
		Value:     v,
		Period:    period,
		IsValid:   !math.IsNaN(v),
		DataCount: len(values),
	}
}

// MarshalJSON writes unavailable values as null
func (r Reading) MarshalJSON() ([]byte, error) {
	type wire struct {
		Value     *float64 `json:"value"`
		Period    int      `json:"period"`
		IsValid   bool     `json:"is_valid"`
		DataCount int      `json:"data_count"`
	}
	w := wire{Period: r.Period, IsValid: r.IsValid, DataCount: r.DataCount}
	if !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) {
		v := r.Value
		w.Value = &v
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores NaN for null values
func (r *Reading) UnmarshalJSON(b []byte) error {
	var w struct {
		Value     *float64 `json:"value"`
		Period    int      `json:"period"`
		IsValid   bool     `json:"is_valid"`
		DataCount int      `json:"data_count"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*r = Reading{Value: math.NaN(), Period: w.Period, IsValid: w.IsValid, DataCount: w.DataCount}
	if w.Value != nil {
		r.Value = *w.Value
	}
	return nil
}

// Config holds indicator periods and detector thresholds
type Config struct {
	RSIPeriod          int
	ADXPeriod          int
	CCIPeriod          int
	ATRPeriod          int
	MACDFast           int
	MACDSlow           int
	MACDSignal         int
	MomentumLookback   int
	MomentumCap        float64
	SupportLookback    int     // bars defining the 4-week low
	VolumeLookback     int     // bars for volume averages
	VolumeSurgeRatio   float64 // surge vs trailing and prior windows
	VolumeSurgeOffset  int
	VolumeBuildRatio   float64
	CompressionRatio   float64 // ATR vs its recent mean
	StdCompression     float64 // close std vs its 40-bar mean
	ADXTrendPeriods    int
	ADXTrendThreshold  float64 // percent
	ADXRisingRatio     float64
	ADXRisingFloor     float64
	DivergenceWindow   int
	BaseLookback       int
	BaseTightness      float64
	BaseFlatness       float64
	GMMASpread         float64
	StructureLookback  int
	IntensityPeriod    int
	OBVSlopeBars       int
	YearHighWindowDays int
}

// DefaultConfig returns the standard periods and thresholds
func DefaultConfig() Config {
	return Config{
		RSIPeriod:          14,
		ADXPeriod:          14,
		CCIPeriod:          20,
		ATRPeriod:          14,
		MACDFast:           12,
		MACDSlow:           26,
		MACDSignal:         9,
		MomentumLookback:   14,
		MomentumCap:        50,
		SupportLookback:    20,
		VolumeLookback:     20,
		VolumeSurgeRatio:   1.5,
		VolumeSurgeOffset:  5,
		VolumeBuildRatio:   1.2,
		CompressionRatio:   0.7,
		StdCompression:     0.8,
		ADXTrendPeriods:    5,
		ADXTrendThreshold:  10,
		ADXRisingRatio:     1.05,
		ADXRisingFloor:     20,
		DivergenceWindow:   20,
		BaseLookback:       20,
		BaseTightness:      0.05,
		BaseFlatness:       0.15,
		GMMASpread:         0.03,
		StructureLookback:  60,
		IntensityPeriod:    14,
		OBVSlopeBars:       5,
		YearHighWindowDays: 365,
	}
}

// Set is every indicator the scorer consumes, evaluated at the last bar of a view
type Set struct {
	Bars  int       `json:"bars"`
	AsOf  time.Time `json:"as_of"`
	Price float64   `json:"price"`

	RSI       Reading   `json:"rsi"`
	ADX       Reading   `json:"adx"`
	ADXPrior  Reading   `json:"adx_prior"` // ADX ADXTrendPeriods bars ago
	ADXRising bool      `json:"adx_rising"`
	ADXTrend  Direction `json:"adx_trend"`
	CCI       Reading   `json:"cci"`
	ATR       Reading   `json:"atr"`
	Momentum  Reading   `json:"momentum"`
	PI        Reading   `json:"pi"`

	EMA50  Reading `json:"ema50"`
	EMA200 Reading `json:"ema200"`
	SMA50  Reading `json:"sma50"`
	SMA200 Reading `json:"sma200"`

	MACDLine      float64 `json:"macd_line"`
	MACDSignal    float64 `json:"macd_signal"`
	MACDHistogram float64 `json:"macd_histogram"`
	MACDBullish   bool    `json:"macd_bullish"`
	MACDValid     bool    `json:"macd_valid"`

	OBVUp          bool `json:"obv_up"`
	ADUp           bool `json:"ad_up"`
	VolumeSurge    bool `json:"volume_surge"`
	VolumeBuilding bool `json:"volume_building"`

	ATRCompressed bool `json:"atr_compressed"`
	StdCompressed bool `json:"std_compressed"`

	GMMA           GMMAResult  `json:"gmma"`
	RSIDivergence  Divergence  `json:"rsi_divergence"`
	MACDDivergence Divergence  `json:"macd_divergence"`
	Base           BasePattern `json:"base"`
	Structure      Structure   `json:"structure"`

	Low4W   Reading `json:"low_4w"`
	High52W Reading `json:"high_52w"`
}

// EMAExtension returns the percentage distance of price from EMA50
func (s Set) EMAExtension() (float64, bool) {
	if !s.EMA50.IsValid || s.EMA50.Value <= 0 {
		return 0, false
	}
	return (s.Price/s.EMA50.Value - 1) * 100, true
}

// SupportDistance returns the percentage distance of price above the 4-week low
func (s Set) SupportDistance() (float64, bool) {
	if !s.Low4W.IsValid || s.Low4W.Value <= 0 {
		return 0, false
	}
	return (s.Price/s.Low4W.Value - 1) * 100, true
}

// Unavailable lists the indicators that could not be computed
func (s Set) Unavailable() []string {
	var out []string
	check := func(name string, ok bool) {
		if !ok {
			out = append(out, name)
		}
	}
	check("rsi", s.RSI.IsValid)
	check("adx", s.ADX.IsValid)
	check("cci", s.CCI.IsValid)
	check("atr", s.ATR.IsValid)
	check("momentum", s.Momentum.IsValid)
	check("pi", s.PI.IsValid)
	check("ema50", s.EMA50.IsValid)
	check("ema200", s.EMA200.IsValid)
	check("sma50", s.SMA50.IsValid)
	check("sma200", s.SMA200.IsValid)
	check("macd", s.MACDValid)
	check("gmma", s.GMMA.IsValid)
	check("low_4w", s.Low4W.IsValid)
	check("high_52w", s.High52W.IsValid)
	return out
}

// CalculateAll evaluates every indicator on v. Short views produce invalid
// readings rather than errors.
func CalculateAll(v series.View, cfg Config) Set {
	set := Set{Bars: v.Len()}
	if v.Empty() {
		return set
	}
	set.AsOf = v.Cutoff()

	highs, lows, closes, volumes := v.Highs(), v.Lows(), v.Closes(), v.Volumes()
	set.Price = Last(closes)

	rsi := RSI(closes, cfg.RSIPeriod)
	set.RSI = Latest(rsi, cfg.RSIPeriod)

	adx := ADX(highs, lows, closes, cfg.ADXPeriod)
	set.ADX = Latest(adx.ADX, cfg.ADXPeriod)
	prior := Ago(adx.ADX, cfg.ADXTrendPeriods)
	set.ADXPrior = Reading{Value: prior, Period: cfg.ADXTrendPeriods, IsValid: !math.IsNaN(prior), DataCount: len(adx.ADX)}
	set.ADXTrend = TrendOf(adx.ADX, cfg.ADXTrendPeriods, cfg.ADXTrendThreshold)
	if set.ADX.IsValid && set.ADXPrior.IsValid {
		set.ADXRising = set.ADX.Value > prior*cfg.ADXRisingRatio && set.ADX.Value >= cfg.ADXRisingFloor
	}

	set.CCI = Latest(CCI(highs, lows, closes, cfg.CCIPeriod), cfg.CCIPeriod)

	atr := ATR(highs, lows, closes, cfg.ATRPeriod)
	set.ATR = Latest(atr, cfg.ATRPeriod)
	set.ATRCompressed = VolatilityCompressed(atr, cfg.SupportLookback, cfg.CompressionRatio)

	std := RollingStd(closes, 20)
	stdMA := SMA(std, 40)
	if s, m := Last(std), Last(stdMA); !math.IsNaN(s) && !math.IsNaN(m) {
		set.StdCompressed = s < m*cfg.StdCompression
	}

	set.Momentum = Momentum(closes, cfg.MomentumLookback, cfg.MomentumCap)
	set.PI = PriceIntensity(closes, volumes, cfg.IntensityPeriod)

	set.EMA50 = emaReading(closes, 50)
	set.EMA200 = emaReading(closes, 200)
	set.SMA50 = Latest(SMA(closes, 50), 50)
	set.SMA200 = Latest(SMA(closes, 200), 200)

	macd := MACD(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	if len(closes) >= cfg.MACDSlow+cfg.MACDSignal {
		set.MACDValid = true
		set.MACDLine = Last(macd.Line)
		set.MACDSignal = Last(macd.Signal)
		set.MACDHistogram = Last(macd.Histogram)
		set.MACDBullish = macd.Bullish()
	}

	set.OBVUp = SlopeUp(OBV(closes, volumes), cfg.OBVSlopeBars)
	set.ADUp = SlopeUp(AccumulationDistribution(highs, lows, closes, volumes), cfg.OBVSlopeBars)
	set.VolumeSurge = VolumeSurge(volumes, cfg.VolumeLookback, cfg.VolumeSurgeOffset, cfg.VolumeSurgeRatio)
	set.VolumeBuilding = VolumeBuilding(volumes, cfg.VolumeLookback, cfg.VolumeBuildRatio)

	set.GMMA = GMMA(closes, cfg.GMMASpread)
	set.RSIDivergence = DetectDivergence(closes, rsi, cfg.DivergenceWindow)
	if set.MACDValid {
		set.MACDDivergence = DetectDivergence(closes, macd.Line, cfg.DivergenceWindow)
	}
	set.Base = ConsolidationBase(closes, cfg.BaseLookback, cfg.BaseTightness, cfg.BaseFlatness)
	set.Structure = DetectStructures(highs, lows, closes, volumes, cfg.StructureLookback)

	set.Low4W = Latest(RollingMin(closes, cfg.SupportLookback), cfg.SupportLookback)
	set.High52W = yearHigh(v, cfg.YearHighWindowDays)
	return set
}

func emaReading(closes []float64, period int) Reading {
	r := Reading{Value: math.NaN(), Period: period, DataCount: len(closes)}
	if len(closes) < period {
		return r
	}
	r.Value = Last(EMA(closes, period))
	r.IsValid = true
	return r
}

// yearHigh is the highest high inside the trailing window; it needs a full
// window of history
func yearHigh(v series.View, days int) Reading {
	r := Reading{Value: math.NaN(), Period: days, DataCount: v.Len()}
	from := v.Cutoff().AddDate(0, 0, -days)
	if v.At(0).Time.After(from) {
		return r
	}
	hi := math.Inf(-1)
	for i := v.Len() - 1; i >= 0 && v.At(i).Time.After(from); i-- {
		hi = math.Max(hi, v.At(i).High)
	}
	r.Value = hi
	r.IsValid = true
	return r
}
