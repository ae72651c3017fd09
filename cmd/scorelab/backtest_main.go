package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sawpanic/scorelab/internal/backtest"
	"github.com/sawpanic/scorelab/internal/series"
)

func newBacktestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Backtest the score against historical explosive moves",
		Long: `Finds every date where an instrument rose by at least --min-move percent
within --lookback-bars daily bars, scores the instrument as of that date
using only data up to it, and reports the catch rate per category and
score bucket.`,
		RunE: runBacktest,
	}
	addBacktestFlags(cmd.Flags())
	cmd.Flags().Int("workers", backtest.DefaultConfig().Workers, "Concurrent instruments")
	cmd.Flags().Int("top", 5, "Top events listed per category")
	cmd.Flags().String("out", "artifacts/backtest", "Output directory")
	cmd.Flags().Bool("save", true, "Store the run in Postgres when PG_DSN is set")
	cmd.Flags().Duration("timeout", 30*time.Minute, "Overall timeout")
	return cmd
}

// addBacktestFlags registers the flags tune shares with backtest
func addBacktestFlags(fs *pflag.FlagSet) {
	def := backtest.DefaultConfig()
	fs.String("categories", "", "Comma separated categories (default: all)")
	fs.Int("per-category", def.PerCategory, "Instruments taken from each category")
	fs.Float64("min-move", def.MinMovePct, "Forward return in percent that qualifies an event")
	fs.Int("lookback-bars", def.LookbackBars, "Forward window in daily bars")
	fs.String("timeframe", string(def.Timeframe), "Timeframe events are scored at")
	fs.String("denomination", string(def.Denomination), "Denomination events are scored in (usd|gold)")
	fs.Int("min-history", def.MinHistory, "Daily bars an instrument needs to be scanned")
	fs.String("history", "", "History requested per instrument, e.g. 1825d (default: data.lookback)")
	fs.Bool("refresh", false, "Bypass caches and refetch from the provider")
}

// historyFromData replays the same history the score command loads unless
// --history was given
func historyFromData(cmd *cobra.Command, cfg *backtest.Config, lookback time.Duration) {
	if cmd.Flags().Changed("history") || lookback <= 0 {
		return
	}
	cfg.History = lookback
}

// backtestConfig reads the shared backtest flags
func backtestConfig(cmd *cobra.Command) (backtest.Config, error) {
	cfg := backtest.DefaultConfig()

	categories, _ := cmd.Flags().GetString("categories")
	cfg.Categories = splitList(categories)
	cfg.PerCategory, _ = cmd.Flags().GetInt("per-category")
	cfg.MinMovePct, _ = cmd.Flags().GetFloat64("min-move")
	cfg.LookbackBars, _ = cmd.Flags().GetInt("lookback-bars")
	cfg.MinHistory, _ = cmd.Flags().GetInt("min-history")

	tf, _ := cmd.Flags().GetString("timeframe")
	cfg.Timeframe = series.Timeframe(tf)

	denom, _ := cmd.Flags().GetString("denomination")
	d, err := series.ParseDenomination(denom)
	if err != nil {
		return cfg, err
	}
	cfg.Denomination = d

	history, _ := cmd.Flags().GetString("history")
	if cfg.History, err = parseLookback(history, cfg.History); err != nil {
		return cfg, err
	}

	if cmd.Flags().Lookup("workers") != nil {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
		cfg.TopEvents, _ = cmd.Flags().GetInt("top")
		cfg.OutputDir, _ = cmd.Flags().GetString("out")
	}
	return cfg, nil
}

func runBacktest(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	save, _ := cmd.Flags().GetBool("save")
	refresh, _ := cmd.Flags().GetBool("refresh")

	cfg, err := backtestConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := loadApp(ctx, cmd, save)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg.Regime = a.scoring.Regime
	historyFromData(cmd, &cfg, a.lookback)

	if refresh {
		if err := warmSymbols(ctx, a, a.universe.Symbols(), cfg.History, true); err != nil {
			return err
		}
	}

	log.Info().
		Strs("categories", cfg.Categories).
		Int("per_category", cfg.PerCategory).
		Float64("min_move_pct", cfg.MinMovePct).
		Int("lookback_bars", cfg.LookbackBars).
		Str("timeframe", string(cfg.Timeframe)).
		Str("denomination", string(cfg.Denomination)).
		Msg("Starting explosive move backtest")

	runner := backtest.NewRunner(cfg, a.universe, a.source, a.scorer, a.metrics)
	report, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	dir, err := backtest.NewWriter(cfg.OutputDir).Write(report)
	if err != nil {
		return err
	}

	if a.db != nil {
		if err := a.db.Repository().Backtests.SaveRun(ctx, report); err != nil {
			log.Error().Err(err).Str("run_id", report.RunID).Msg("Failed to store run")
		}
	}

	printReport(report)
	fmt.Printf("\nArtifacts: %s\n", dir)
	return nil
}

func printReport(report *backtest.Report) {
	fmt.Printf("Run %s: %d events, %d unscored, %d instruments skipped\n\n",
		report.RunID, report.Overall.Events, report.Overall.Unscored, len(report.Skipped))

	fmt.Printf("%-20s %7s %8s", "CATEGORY", "EVENTS", "CATCH")
	for _, label := range backtest.BucketLabels {
		fmt.Printf(" %6s", label)
	}
	fmt.Println()

	rows := append([]backtest.CategoryReport{}, report.Categories...)
	rows = append(rows, report.Overall)
	for _, c := range rows {
		fmt.Printf("%-20s %7d %7.1f%%", c.Category, c.Events, c.CatchRate*100)
		for _, label := range backtest.BucketLabels {
			b, _ := c.Bucket(label)
			fmt.Printf(" %6d", b.Count)
		}
		fmt.Println()
	}
}
