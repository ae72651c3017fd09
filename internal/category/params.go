package category

// Params holds the per-category thresholds and multipliers the scorer reads.
// Fields absent from YAML take the default tags, which are also the fallback
// for categories missing from the table.
type Params struct {
	RSIOversold   float64 `yaml:"rsi_oversold" json:"rsi_oversold" default:"40" validate:"gt=0,lt=100"`
	RSIOverbought float64 `yaml:"rsi_overbought" json:"rsi_overbought" default:"70" validate:"gt=0,lt=100,gtfield=RSIOversold"`
	// InvertRSI reads overbought as continuation and oversold as risk.
	// Nil follows the mean-reversion group membership.
	InvertRSI *bool `yaml:"invert_rsi,omitempty" json:"invert_rsi,omitempty"`

	ADXMultiplier           float64 `yaml:"adx_multiplier" json:"adx_multiplier" default:"1" validate:"gte=0"`
	VolumeMultiplier        float64 `yaml:"volume_multiplier" json:"volume_multiplier" default:"1" validate:"gte=0"`
	OverextensionMultiplier float64 `yaml:"overextension_multiplier" json:"overextension_multiplier" default:"1" validate:"gte=0"`
	ExplosiveBottomBonus    float64 `yaml:"explosive_bottom_bonus" json:"explosive_bottom_bonus" default:"1" validate:"gte=0"`

	ADXThreshold          float64 `yaml:"adx_threshold" json:"adx_threshold" default:"25" validate:"gt=0,lt=100"`
	CapitulationThreshold float64 `yaml:"capitulation_threshold" json:"capitulation_threshold" default:"-20" validate:"lt=0"`
	// ExtremeOversoldEMABonus enables the below-EMA50 extension bonus
	ExtremeOversoldEMABonus bool `yaml:"extreme_oversold_ema_bonus" json:"extreme_oversold_ema_bonus"`

	ContinuationBonus float64 `yaml:"trend_continuation_bonus" json:"trend_continuation_bonus" default:"2" validate:"gte=0"`
	ContinuationADX   float64 `yaml:"continuation_adx_threshold" json:"continuation_adx_threshold" default:"25" validate:"gt=0,lt=100"`
	ModerateADX       float64 `yaml:"moderate_adx_threshold" json:"moderate_adx_threshold" default:"15" validate:"gt=0,ltefield=ContinuationADX"`
	VeryStrongADX     float64 `yaml:"very_strong_adx_threshold" json:"very_strong_adx_threshold" default:"40" validate:"gt=0,lt=100,gtfield=ContinuationADX"`
}

// Baseline returns the parameters used for unknown categories
func Baseline() Params {
	var p Params
	if err := setDefaults(&p); err != nil {
		panic(err)
	}
	return p
}

// Field is a named numeric parameter the tuner can step
type Field string

const (
	FieldRSIOversold           Field = "rsi_oversold"
	FieldRSIOverbought         Field = "rsi_overbought"
	FieldADXMultiplier         Field = "adx_multiplier"
	FieldVolumeMultiplier      Field = "volume_multiplier"
	FieldOverextension         Field = "overextension_multiplier"
	FieldExplosiveBottomBonus  Field = "explosive_bottom_bonus"
	FieldADXThreshold          Field = "adx_threshold"
	FieldCapitulationThreshold Field = "capitulation_threshold"
	FieldContinuationBonus     Field = "trend_continuation_bonus"
	FieldContinuationADX       Field = "continuation_adx_threshold"
	FieldVeryStrongADX         Field = "very_strong_adx_threshold"
)

// Fields lists every tunable field in a stable order
func Fields() []Field {
	return []Field{
		FieldRSIOversold, FieldRSIOverbought, FieldADXMultiplier, FieldVolumeMultiplier,
		FieldOverextension, FieldExplosiveBottomBonus, FieldADXThreshold,
		FieldCapitulationThreshold, FieldContinuationBonus, FieldContinuationADX,
		FieldVeryStrongADX,
	}
}

func (p *Params) ref(f Field) *float64 {
	switch f {
	case FieldRSIOversold:
		return &p.RSIOversold
	case FieldRSIOverbought:
		return &p.RSIOverbought
	case FieldADXMultiplier:
		return &p.ADXMultiplier
	case FieldVolumeMultiplier:
		return &p.VolumeMultiplier
	case FieldOverextension:
		return &p.OverextensionMultiplier
	case FieldExplosiveBottomBonus:
		return &p.ExplosiveBottomBonus
	case FieldADXThreshold:
		return &p.ADXThreshold
	case FieldCapitulationThreshold:
		return &p.CapitulationThreshold
	case FieldContinuationBonus:
		return &p.ContinuationBonus
	case FieldContinuationADX:
		return &p.ContinuationADX
	case FieldVeryStrongADX:
		return &p.VeryStrongADX
	default:
		return nil
	}
}

// Get returns the value of a tunable field
func (p Params) Get(f Field) (float64, bool) {
	r := p.ref(f)
	if r == nil {
		return 0, false
	}
	return *r, true
}

// With returns a copy of p with field f set to v
func (p Params) With(f Field, v float64) (Params, bool) {
	r := p.ref(f)
	if r == nil {
		return p, false
	}
	*r = v
	return p, true
}

// Validate checks the parameter record against its validation tags
func (p Params) Validate() error {
	return validate.Struct(p)
}
