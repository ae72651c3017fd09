package scoring

import (
	"github.com/sawpanic/scorelab/internal/domain/indicators"
	"github.com/sawpanic/scorelab/internal/regime"
	"github.com/sawpanic/scorelab/internal/series"
)

// Signals is everything the rule engine reads for one instrument at one
// timeframe: the indicator set plus the instrument-specific seasonality
type Signals struct {
	indicators.Set
	Seasonality regime.Reading `json:"seasonality"`
}

// Market is the instrument-independent input to a scoring call
type Market struct {
	// Regime holds the market, volatility and business-cycle readings
	Regime regime.Context
	// Reference is the gold series used for gold denomination. Empty
	// disables gold-denominated scoring.
	Reference series.View
}

// NeutralMarket returns a market input with neutral regimes and no reference
func NeutralMarket() Market {
	return Market{Regime: regime.NeutralContext()}
}

// Config configures the scorer
type Config struct {
	Indicators indicators.Config `yaml:"-"`
	Regime     regime.Config     `yaml:"regime"`
	// MinBars is the resampled length below which a result is degraded
	MinBars int `yaml:"min_bars"`
}

// DefaultConfig returns the standard scorer configuration
func DefaultConfig() Config {
	return Config{
		Indicators: indicators.DefaultConfig(),
		Regime:     regime.DefaultConfig(),
		MinBars:    50,
	}
}
