package category

import (
	"fmt"
	"sort"
)

// DefaultName is the category whose parameters are the baseline fallback
const DefaultName = "default"

// Groups assigns category names to behavioural families
type Groups struct {
	Crypto []string `yaml:"crypto" json:"crypto"`
	Tech   []string `yaml:"tech" json:"tech"`
	Mining []string `yaml:"mining" json:"mining"`
}

// DefaultGroups returns the standard family membership
func DefaultGroups() Groups {
	return Groups{
		Crypto: []string{"cryptocurrencies"},
		Tech:   []string{"tech_stocks", "faang_hot_stocks", "semiconductors"},
		Mining: []string{"miner_hpc", "silver_miners_esg"},
	}
}

func (g Groups) clone() Groups {
	return Groups{
		Crypto: append([]string(nil), g.Crypto...),
		Tech:   append([]string(nil), g.Tech...),
		Mining: append([]string(nil), g.Mining...),
	}
}

// Flags is the behaviour record resolved once per scoring call
type Flags struct {
	Name          string `json:"name"`
	Known         bool   `json:"known"`
	Crypto        bool   `json:"crypto"`
	Tech          bool   `json:"tech"`
	Mining        bool   `json:"mining"`
	MeanReversion bool   `json:"mean_reversion"`
	InvertRSI     bool   `json:"invert_rsi"`
}

// Table maps category names to parameters. A Table is never mutated after
// construction; WithParams returns a modified copy.
type Table struct {
	defaults   Params
	categories map[string]Params
	groups     Groups
	points     Points
}

// NewTable validates and copies the given parameter sets
func NewTable(defaults Params, categories map[string]Params, groups Groups, points Points) (*Table, error) {
	t := &Table{
		defaults:   defaults,
		categories: make(map[string]Params, len(categories)),
		groups:     groups.clone(),
		points:     points,
	}
	for name, p := range categories {
		t.categories[name] = p
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// DefaultTable returns the backtested parameter table
func DefaultTable() *Table {
	t, err := NewTable(Baseline(), defaultCategories(), DefaultGroups(), DefaultPoints())
	if err != nil {
		panic(fmt.Sprintf("invalid default category table: %v", err))
	}
	return t
}

func defaultCategories() map[string]Params {
	out := make(map[string]Params)

	crypto := Baseline()
	crypto.RSIOversold = 35
	crypto.ADXMultiplier = 0.5
	crypto.VolumeMultiplier = 2.0
	crypto.OverextensionMultiplier = 0.5
	crypto.ExplosiveBottomBonus = 1.5
	crypto.ADXThreshold = 20
	crypto.ExtremeOversoldEMABonus = true
	crypto.ContinuationADX = 20
	out["cryptocurrencies"] = crypto

	tech := Baseline()
	tech.RSIOversold = 35
	tech.ADXMultiplier = 0.5
	tech.VolumeMultiplier = 1.5
	tech.OverextensionMultiplier = 0.75
	out["tech_stocks"] = tech
	out["faang_hot_stocks"] = tech

	miner := Baseline()
	miner.RSIOverbought = 75
	miner.VolumeMultiplier = 1.5
	miner.ExplosiveBottomBonus = 2.0
	miner.CapitulationThreshold = -30
	miner.ContinuationBonus = 2.5
	miner.VeryStrongADX = 35
	out["miner_hpc"] = miner

	silver := miner
	silver.CapitulationThreshold = -20
	out["silver_miners_esg"] = silver

	classical := Baseline()
	classical.RSIOversold = 30
	out["precious_metals"] = classical
	out["index_etfs"] = classical

	growth := Baseline()
	growth.RSIOverbought = 75
	growth.ADXMultiplier = 0.75
	growth.VolumeMultiplier = 1.5
	growth.OverextensionMultiplier = 0.9
	growth.ExplosiveBottomBonus = 1.5
	growth.VeryStrongADX = 35
	for _, name := range []string{"quantum", "battery_storage", "clean_energy_materials", "renewable_energy", "next_gen_automotive"} {
		out[name] = growth
	}
	return out
}

// Validate checks every parameter record
func (t *Table) Validate() error {
	if err := t.defaults.Validate(); err != nil {
		return fmt.Errorf("invalid default parameters: %w", err)
	}
	for _, name := range t.Names() {
		if err := t.categories[name].Validate(); err != nil {
			return fmt.Errorf("invalid parameters for category %s: %w", name, err)
		}
	}
	if err := validate.Struct(t.points); err != nil {
		return fmt.Errorf("invalid point values: %w", err)
	}
	return nil
}

// Has reports whether name has its own parameter record
func (t *Table) Has(name string) bool {
	_, ok := t.categories[name]
	return ok
}

// Lookup returns the parameters for name, falling back to the defaults
func (t *Table) Lookup(name string) Params {
	if p, ok := t.categories[name]; ok {
		return p
	}
	return t.defaults
}

// Defaults returns the fallback parameters
func (t *Table) Defaults() Params { return t.defaults }

// Points returns the rule point values
func (t *Table) Points() Points { return t.points }

// Groups returns a copy of the family membership
func (t *Table) Groups() Groups { return t.groups.clone() }

// Names returns the categories with their own records, sorted
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.categories))
	for name := range t.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classify resolves the behaviour flags for name
func (t *Table) Classify(name string) Flags {
	f := Flags{
		Name:   name,
		Known:  t.Has(name) || name == DefaultName,
		Crypto: contains(t.groups.Crypto, name),
		Tech:   contains(t.groups.Tech, name),
		Mining: contains(t.groups.Mining, name),
	}
	f.MeanReversion = f.Crypto || f.Tech
	f.InvertRSI = f.MeanReversion
	if p := t.Lookup(name); p.InvertRSI != nil {
		f.InvertRSI = *p.InvertRSI
	}
	return f
}

// WithParams returns a copy of the table with name's parameters replaced
func (t *Table) WithParams(name string, p Params) (*Table, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid parameters for category %s: %w", name, err)
	}
	out := &Table{
		defaults:   t.defaults,
		categories: make(map[string]Params, len(t.categories)+1),
		groups:     t.groups.clone(),
		points:     t.points,
	}
	for k, v := range t.categories {
		out.categories[k] = v
	}
	if name == DefaultName {
		out.defaults = p
	} else {
		out.categories[name] = p
	}
	return out, nil
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}
