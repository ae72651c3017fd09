// Package regime loads the regime thresholds and scorer settings from
// config/regime.yaml.
package regime

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	marketregime "github.com/sawpanic/scorelab/internal/regime"
	"github.com/sawpanic/scorelab/internal/scoring"
)

// ThresholdsConfig is the regime.yaml document. Keys left out keep their
// defaults.
type ThresholdsConfig struct {
	Regime  marketregime.Config `yaml:"regime"`
	MinBars int                 `yaml:"min_bars"`
}

// Loader handles loading and validation of the regime thresholds
type Loader struct {
	config *ThresholdsConfig
}

// NewLoader creates a new thresholds loader
func NewLoader() *Loader {
	return &Loader{}
}

func defaults() *ThresholdsConfig {
	def := scoring.DefaultConfig()
	return &ThresholdsConfig{Regime: def.Regime, MinBars: def.MinBars}
}

// LoadFromFile overlays a YAML file on the defaults
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := defaults()
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	l.config = config
	return nil
}

// LoadDefault loads the built-in thresholds
func (l *Loader) LoadDefault() {
	l.config = defaults()
}

// Regime returns the loaded regime thresholds, the defaults when nothing
// was loaded
func (l *Loader) Regime() marketregime.Config {
	if l.config == nil {
		l.LoadDefault()
	}
	return l.config.Regime
}

// Scoring returns the scorer configuration with the loaded thresholds
func (l *Loader) Scoring() scoring.Config {
	if l.config == nil {
		l.LoadDefault()
	}
	cfg := scoring.DefaultConfig()
	cfg.Regime = l.config.Regime
	cfg.MinBars = l.config.MinBars
	return cfg
}

func validateConfig(c *ThresholdsConfig) error {
	r := c.Regime
	if c.MinBars <= 0 {
		return fmt.Errorf("min_bars must be positive, got %d", c.MinBars)
	}
	for name, v := range map[string]int{
		"market_ma_period":     r.MarketMAPeriod,
		"market_slope_bars":    r.MarketSlopeBars,
		"near_low_window":      r.NearLowWindow,
		"vix_short_ma":         r.VIXShortMA,
		"cycle_trend_readings": r.CycleTrendReadings,
		"cycle_proxy_window":   r.CycleProxyWindow,
	} {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	if !(r.CrashingPct < r.DecliningPct && r.DecliningPct < 0 && r.RisingPct > 0) {
		return fmt.Errorf("market thresholds must satisfy crashing < declining < 0 < rising, got %.2f/%.2f/%.2f",
			r.CrashingPct, r.DecliningPct, r.RisingPct)
	}
	if r.VIXModerate >= r.VIXHigh {
		return fmt.Errorf("vix_moderate %.2f must be below vix_high %.2f", r.VIXModerate, r.VIXHigh)
	}
	if r.VIXShortMA >= r.VIXLongMA {
		return fmt.Errorf("vix_short_ma %d must be below vix_long_ma %d", r.VIXShortMA, r.VIXLongMA)
	}
	if !(r.CycleContraction < r.CycleExpansion && r.CycleExpansion <= r.CycleStrongExpansion) {
		return fmt.Errorf("cycle thresholds must satisfy contraction < expansion <= strong expansion")
	}
	for name, v := range map[string]float64{
		"bearish_derate":    r.BearishDerate,
		"vix_high_derate":   r.VIXHighDerate,
		"vix_rising_derate": r.VIXRisingDerate,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %.3f", name, v)
		}
	}
	if r.SeasonalityMinYears < 0 {
		return fmt.Errorf("seasonality_min_years must not be negative")
	}
	return nil
}
