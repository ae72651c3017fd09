package series

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownTimeframe is returned for timeframe labels missing from the table.
// It signals a configuration mismatch and callers treat it as fatal.
var ErrUnknownTimeframe = errors.New("unknown timeframe")

// Timeframe is a resampling label such as "2D", "1W" or "1M"
type Timeframe string

const (
	TF1D Timeframe = "1D"
	TF2D Timeframe = "2D"
	TF1W Timeframe = "1W"
	TF2W Timeframe = "2W"
	TF1M Timeframe = "1M"
	TF2M Timeframe = "2M"
	TF6M Timeframe = "6M"
)

// RuleKind selects how bars are grouped into buckets
type RuleKind int

const (
	// RuleFixedDays groups into N-day buckets anchored to the first bar's date
	RuleFixedDays RuleKind = iota
	// RuleCalendarWeek groups into Monday-aligned calendar weeks
	RuleCalendarWeek
	// RuleCalendarMonth groups into calendar months
	RuleCalendarMonth
)

// Rule is a resampling rule
type Rule struct {
	Kind RuleKind
	Days int
}

// ParseRule parses "7D", "W" or "M"
func ParseRule(s string) (Rule, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "W":
		return Rule{Kind: RuleCalendarWeek, Days: 7}, nil
	case "M":
		return Rule{Kind: RuleCalendarMonth, Days: 30}, nil
	}
	if strings.HasSuffix(s, "D") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "D"))
		if err == nil && n > 0 {
			return Rule{Kind: RuleFixedDays, Days: n}, nil
		}
	}
	return Rule{}, fmt.Errorf("invalid resample rule %q", s)
}

// String renders the rule in the form ParseRule accepts
func (r Rule) String() string {
	switch r.Kind {
	case RuleCalendarWeek:
		return "W"
	case RuleCalendarMonth:
		return "M"
	default:
		return fmt.Sprintf("%dD", r.Days)
	}
}

// TimeframeSpec carries the resampling rule and the per-timeframe scoring weights
type TimeframeSpec struct {
	Label Timeframe `yaml:"label"`
	Rule  Rule      `yaml:"-"`
	// Strictness scales the composite score, shorter timeframes are stricter
	Strictness float64 `yaml:"strictness"`
	// CycleWeight scales the business-cycle adjustment
	CycleWeight float64 `yaml:"cycle_weight"`
	// SeasonalWeight scales the seasonality adjustment
	SeasonalWeight float64 `yaml:"seasonal_weight"`
}

type timeframeFile struct {
	Timeframes []struct {
		TimeframeSpec `yaml:",inline"`
		Rule          string `yaml:"rule"`
	} `yaml:"timeframes"`
}

// Timeframes is an immutable timeframe table ordered from shortest to longest bucket
type Timeframes struct {
	specs map[Timeframe]TimeframeSpec
	order []Timeframe
}

// DefaultTimeframes returns the stock table
func DefaultTimeframes() *Timeframes {
	t, err := NewTimeframes([]TimeframeSpec{
		{Label: TF1D, Rule: Rule{Kind: RuleFixedDays, Days: 1}, Strictness: 0.60, CycleWeight: 0.3, SeasonalWeight: 0.3},
		{Label: TF2D, Rule: Rule{Kind: RuleFixedDays, Days: 2}, Strictness: 0.70, CycleWeight: 0.4, SeasonalWeight: 0.4},
		{Label: TF1W, Rule: Rule{Kind: RuleCalendarWeek, Days: 7}, Strictness: 0.85, CycleWeight: 0.6, SeasonalWeight: 0.5},
		{Label: TF2W, Rule: Rule{Kind: RuleFixedDays, Days: 14}, Strictness: 1.00, CycleWeight: 0.8, SeasonalWeight: 0.6},
		{Label: TF1M, Rule: Rule{Kind: RuleCalendarMonth, Days: 30}, Strictness: 1.10, CycleWeight: 1.0, SeasonalWeight: 0.8},
		{Label: TF2M, Rule: Rule{Kind: RuleFixedDays, Days: 60}, Strictness: 1.15, CycleWeight: 1.2, SeasonalWeight: 1.0},
		{Label: TF6M, Rule: Rule{Kind: RuleFixedDays, Days: 180}, Strictness: 1.20, CycleWeight: 1.2, SeasonalWeight: 1.0},
	})
	if err != nil {
		panic(fmt.Sprintf("default timeframe table invalid: %v", err))
	}
	return t
}

// NewTimeframes validates specs and builds a table.
// Strictness must rise strictly with bucket length.
func NewTimeframes(specs []TimeframeSpec) (*Timeframes, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("timeframe table is empty")
	}

	sorted := make([]TimeframeSpec, len(specs))
	copy(sorted, specs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rule.Days < sorted[j].Rule.Days })

	t := &Timeframes{specs: make(map[Timeframe]TimeframeSpec, len(sorted))}
	for i, spec := range sorted {
		if spec.Label == "" {
			return nil, fmt.Errorf("timeframe %d has no label", i)
		}
		if _, dup := t.specs[spec.Label]; dup {
			return nil, fmt.Errorf("duplicate timeframe %s", spec.Label)
		}
		if spec.Rule.Days <= 0 {
			return nil, fmt.Errorf("timeframe %s: bucket length must be positive", spec.Label)
		}
		if spec.Strictness <= 0 {
			return nil, fmt.Errorf("timeframe %s: strictness must be positive", spec.Label)
		}
		if i > 0 {
			prev := sorted[i-1]
			if spec.Rule.Days == prev.Rule.Days {
				return nil, fmt.Errorf("timeframes %s and %s share a bucket length", prev.Label, spec.Label)
			}
			if spec.Strictness <= prev.Strictness {
				return nil, fmt.Errorf("timeframe %s strictness %.2f must exceed %s strictness %.2f",
					spec.Label, spec.Strictness, prev.Label, prev.Strictness)
			}
		}
		t.specs[spec.Label] = spec
		t.order = append(t.order, spec.Label)
	}
	return t, nil
}

// LoadTimeframes reads a timeframe table from YAML
func LoadTimeframes(path string) (*Timeframes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeframes config %s: %w", path, err)
	}

	var file timeframeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse timeframes config: %w", err)
	}

	specs := make([]TimeframeSpec, 0, len(file.Timeframes))
	for _, entry := range file.Timeframes {
		rule, err := ParseRule(entry.Rule)
		if err != nil {
			return nil, fmt.Errorf("timeframe %s: %w", entry.Label, err)
		}
		spec := entry.TimeframeSpec
		spec.Rule = rule
		specs = append(specs, spec)
	}

	t, err := NewTimeframes(specs)
	if err != nil {
		return nil, fmt.Errorf("timeframes config validation failed: %w", err)
	}
	return t, nil
}

// Get returns the spec for a label
func (t *Timeframes) Get(tf Timeframe) (TimeframeSpec, error) {
	spec, ok := t.specs[tf]
	if !ok {
		return TimeframeSpec{}, fmt.Errorf("%w: %q", ErrUnknownTimeframe, tf)
	}
	return spec, nil
}

// Labels returns labels ordered from shortest to longest
func (t *Timeframes) Labels() []Timeframe {
	out := make([]Timeframe, len(t.order))
	copy(out, t.order)
	return out
}

// Denomination selects the unit prices are expressed in
type Denomination string

const (
	// USD keeps native prices
	USD Denomination = "usd"
	// Gold divides prices by the gold close of the same date
	Gold Denomination = "gold"
)

// ParseDenomination validates a denomination label
func ParseDenomination(s string) (Denomination, error) {
	switch Denomination(strings.ToLower(s)) {
	case USD:
		return USD, nil
	case Gold:
		return Gold, nil
	}
	return "", fmt.Errorf("unknown denomination %q", s)
}
