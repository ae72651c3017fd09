package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// UniverseConfig lists the instruments per category, the benchmark series the
// regime providers read and the data acquisition settings
type UniverseConfig struct {
	Categories map[string][]string `yaml:"categories" validate:"required,min=1,dive,keys,required,endkeys,min=1,dive,required"`
	Benchmarks BenchmarkConfig     `yaml:"benchmarks"`
	Data       DataConfig          `yaml:"data"`
	Provider   ProviderConfig      `yaml:"provider"`
}

// BenchmarkConfig names the series behind each regime provider. An empty
// symbol disables that provider.
type BenchmarkConfig struct {
	Index      string `yaml:"index" default:"SPY"`
	Gold       string `yaml:"gold" default:"GC=F"`
	Volatility string `yaml:"volatility" default:"^VIX"`
	Cycle      string `yaml:"cycle"`
	CycleProxy string `yaml:"cycle_proxy" default:"SPY"`
}

// DataConfig controls the local series cache
type DataConfig struct {
	Dir      string `yaml:"dir" default:"data/series"`
	Lookback string `yaml:"lookback" default:"1825d"`
	RedisTTL string `yaml:"redis_ttl" default:"168h"`
}

// ProviderConfig configures the HTTP series provider
type ProviderConfig struct {
	BaseURL   string        `yaml:"base_url"`
	RPS       float64       `yaml:"rps" default:"2" validate:"gt=0"`
	Burst     int           `yaml:"burst" default:"4" validate:"gt=0"`
	TimeoutMS int           `yaml:"timeout_ms" default:"10000" validate:"gt=0"`
	UserAgent string        `yaml:"user_agent" default:"scorelab/1.0"`
	Circuit   CircuitConfig `yaml:"circuit"`
}

// CircuitConfig configures the provider circuit breaker
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" default:"5" validate:"gt=0"`
	OpenTimeoutMS    int `yaml:"open_timeout_ms" default:"30000" validate:"gt=0"`
	HalfOpenRequests int `yaml:"half_open_requests" default:"1" validate:"gt=0"`
}

// LoadUniverseConfig reads the universe from YAML, applying defaults for
// omitted keys
func LoadUniverseConfig(path string) (*UniverseConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe config: %w", err)
	}
	return ParseUniverseConfig(data)
}

// ParseUniverseConfig parses a universe document
func ParseUniverseConfig(data []byte) (*UniverseConfig, error) {
	var cfg UniverseConfig
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply universe defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse universe config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid universe config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the structure and the duration strings
func (c *UniverseConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Data.LookbackDuration(); err != nil {
		return fmt.Errorf("data.lookback: %w", err)
	}
	if _, err := c.Data.RedisTTLDuration(); err != nil {
		return fmt.Errorf("data.redis_ttl: %w", err)
	}
	seen := make(map[string]string)
	for cat, symbols := range c.Categories {
		for _, sym := range symbols {
			if prev, dup := seen[sym]; dup && prev != cat {
				return fmt.Errorf("symbol %s listed under both %s and %s", sym, prev, cat)
			}
			seen[sym] = cat
		}
	}
	return nil
}

// LookbackDuration parses the history length, e.g. "730d"
func (d DataConfig) LookbackDuration() (time.Duration, error) {
	return str2duration.ParseDuration(d.Lookback)
}

// RedisTTLDuration parses the Redis entry lifetime
func (d DataConfig) RedisTTLDuration() (time.Duration, error) {
	return str2duration.ParseDuration(d.RedisTTL)
}

// RequestTimeout returns the per-request timeout
func (p ProviderConfig) RequestTimeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// OpenTimeout returns how long the breaker stays open
func (c CircuitConfig) OpenTimeout() time.Duration {
	return time.Duration(c.OpenTimeoutMS) * time.Millisecond
}

// CategoryNames returns the configured categories in sorted order
func (c *UniverseConfig) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategoryOf returns the category a symbol is listed under
func (c *UniverseConfig) CategoryOf(symbol string) (string, bool) {
	for cat, symbols := range c.Categories {
		for _, s := range symbols {
			if s == symbol {
				return cat, true
			}
		}
	}
	return "", false
}

// Symbols returns every instrument and benchmark symbol, sorted and unique
func (c *UniverseConfig) Symbols() []string {
	set := make(map[string]struct{})
	for _, symbols := range c.Categories {
		for _, s := range symbols {
			set[s] = struct{}{}
		}
	}
	b := c.Benchmarks
	for _, s := range []string{b.Index, b.Gold, b.Volatility, b.Cycle, b.CycleProxy} {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
