package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/xhit/go-str2duration/v2"

	"github.com/sawpanic/scorelab/internal/category"
	"github.com/sawpanic/scorelab/internal/config"
	configregime "github.com/sawpanic/scorelab/internal/config/regime"
	"github.com/sawpanic/scorelab/internal/datasource"
	"github.com/sawpanic/scorelab/internal/metrics"
	"github.com/sawpanic/scorelab/internal/persistence/postgres"
	"github.com/sawpanic/scorelab/internal/scoring"
	"github.com/sawpanic/scorelab/internal/series"
)

// app bundles the configuration and collaborators every command shares
type app struct {
	universe *config.UniverseConfig
	scoring  scoring.Config
	scorer   *scoring.Scorer
	source   *datasource.CachedSource
	metrics  *metrics.Registry
	db       *postgres.Manager
	lookback time.Duration

	textfile string
}

// loadApp reads the config directory and builds the data source. The
// database is opened only when withDB is set and PG_DSN is present.
func loadApp(ctx context.Context, cmd *cobra.Command, withDB bool) (*app, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	textfile, _ := cmd.Flags().GetString("metrics-textfile")

	universe, err := config.LoadUniverseConfig(filepath.Join(configDir, "universe.yaml"))
	if err != nil {
		return nil, err
	}
	table, err := loadTable(filepath.Join(configDir, "categories.yaml"))
	if err != nil {
		return nil, err
	}
	timeframes, err := loadTimeframes(filepath.Join(configDir, "timeframes.yaml"))
	if err != nil {
		return nil, err
	}

	thresholds := configregime.NewLoader()
	if path := filepath.Join(configDir, "regime.yaml"); fileExists(path) {
		if err := thresholds.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	scoringCfg := thresholds.Scoring()

	lookback, err := universe.Data.LookbackDuration()
	if err != nil {
		return nil, fmt.Errorf("invalid data lookback: %w", err)
	}

	reg := metrics.NewRegistry()
	a := &app{
		universe: universe,
		scoring:  scoringCfg,
		scorer:   scoring.NewScorer(table, timeframes, scoringCfg),
		metrics:  reg,
		lookback: lookback,
		textfile: textfile,
	}

	if a.source, err = buildSource(ctx, universe, reg); err != nil {
		return nil, err
	}

	if withDB {
		if a.db, err = openDB(ctx); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Close writes the metrics textfile and releases the database
func (a *app) Close() {
	if a.textfile != "" {
		if err := a.metrics.WriteTextfile(a.textfile); err != nil {
			log.Warn().Err(err).Msg("Failed to write metrics textfile")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadTable(path string) (*category.Table, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Category table not found, using defaults")
		return category.DefaultTable(), nil
	}
	return category.LoadTable(path)
}

func loadTimeframes(path string) (*series.Timeframes, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Timeframe table not found, using defaults")
		return series.DefaultTimeframes(), nil
	}
	return series.LoadTimeframes(path)
}

// buildSource layers the file cache, the optional Redis cache and the
// optional HTTP provider
func buildSource(ctx context.Context, universe *config.UniverseConfig, reg *metrics.Registry) (*datasource.CachedSource, error) {
	dir := universe.Data.Dir
	if env := os.Getenv("SCORELAB_DATA_DIR"); env != "" {
		dir = env
	}

	var provider datasource.Fetcher
	if universe.Provider.BaseURL != "" {
		p, err := datasource.NewHTTPProvider(universe.Provider, reg)
		if err != nil {
			return nil, err
		}
		provider = p
	} else {
		log.Info().Msg("No provider configured, serving series from cache only")
	}

	opts := []datasource.Option{datasource.WithMetrics(reg)}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		ttl, err := universe.Data.RedisTTLDuration()
		if err != nil {
			return nil, fmt.Errorf("invalid redis ttl: %w", err)
		}
		cache, err := datasource.NewRedisCache(ctx, addr, os.Getenv("REDIS_PASSWORD"), ttl)
		if err != nil {
			log.Warn().Str("addr", addr).Err(err).Msg("Redis unavailable, continuing with file cache")
		} else {
			opts = append(opts, datasource.WithRedis(cache))
		}
	}

	log.Debug().Str("dir", dir).Bool("provider", provider != nil).Msg("Series source ready")
	return datasource.NewCachedSource(datasource.NewFileCache(dir), provider, opts...), nil
}

// openDB connects to Postgres when PG_DSN is set; a nil manager means
// runs stay on disk only
func openDB(ctx context.Context) (*postgres.Manager, error) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		return nil, nil
	}
	cfg := postgres.DefaultConfig()
	cfg.DSN = dsn
	cfg.Enabled = true

	manager, err := postgres.NewManager(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := manager.Migrate(ctx); err != nil {
		manager.Close()
		return nil, err
	}
	log.Info().Msg("Postgres persistence enabled")
	return manager, nil
}

// parseLookback accepts str2duration forms such as "730d" or "104w"; an empty
// value keeps def
func parseLookback(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := str2duration.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", raw)
	}
	return d, nil
}

// splitList splits a comma separated flag, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
