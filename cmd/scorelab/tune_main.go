package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/scorelab/internal/backtest"
	"github.com/sawpanic/scorelab/internal/category"
	"github.com/sawpanic/scorelab/internal/tune"
)

func newTuneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tune <category>",
		Short: "Tune a category's parameters against the backtest",
		Long: `Runs coordinate descent over the category's parameters, scoring each
candidate with a backtest of the category's explosive moves. The suggested
parameters are written for review and never applied automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: runTune,
	}
	addBacktestFlags(cmd.Flags())
	def := tune.DefaultConfig()
	cmd.Flags().Int("max-evals", def.MaxEvaluations, "Maximum objective evaluations")
	cmd.Flags().Float64("step", def.InitialStep, "Initial relative step")
	cmd.Flags().String("fields", "", "Comma separated fields to tune (default: all)")
	cmd.Flags().String("tune-out", "artifacts/tune", "Output directory")
	cmd.Flags().Bool("save", true, "Store the result in Postgres when PG_DSN is set")
	cmd.Flags().Duration("timeout", 2*time.Hour, "Overall timeout")
	return cmd
}

func runTune(cmd *cobra.Command, args []string) error {
	name := args[0]
	maxEvals, _ := cmd.Flags().GetInt("max-evals")
	step, _ := cmd.Flags().GetFloat64("step")
	fieldsFlag, _ := cmd.Flags().GetString("fields")
	outDir, _ := cmd.Flags().GetString("tune-out")
	save, _ := cmd.Flags().GetBool("save")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	refresh, _ := cmd.Flags().GetBool("refresh")

	btCfg, err := backtestConfig(cmd)
	if err != nil {
		return err
	}
	btCfg.Categories = []string{name}

	cfg := tune.DefaultConfig()
	cfg.MaxEvaluations = maxEvals
	cfg.InitialStep = step
	if fields := splitList(fieldsFlag); len(fields) > 0 {
		if cfg.Fields, err = parseFields(fields); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := loadApp(ctx, cmd, save)
	if err != nil {
		return err
	}
	defer a.Close()
	btCfg.Regime = a.scoring.Regime
	historyFromData(cmd, &btCfg, a.lookback)

	if refresh {
		symbols := append([]string{}, a.universe.Categories[name]...)
		if err := warmSymbols(ctx, a, symbols, btCfg.History, true); err != nil {
			return err
		}
	}

	runner := backtest.NewRunner(btCfg, a.universe, a.source, a.scorer, a.metrics)
	res, err := tune.NewTuner(cfg, runner, a.metrics).Optimize(ctx, name)
	if err != nil {
		return fmt.Errorf("tuning %s failed: %w", name, err)
	}

	dir, err := tune.Write(outDir, res)
	if err != nil {
		return err
	}
	if a.db != nil {
		if err := a.db.Repository().Tunes.SaveTune(ctx, res); err != nil {
			log.Error().Err(err).Str("run_id", res.RunID).Msg("Failed to store tuning result")
		}
	}

	fmt.Printf("Tuned %s over %d events in %d evaluations\n", name, res.Events, res.Evaluations)
	fmt.Printf("  objective  %.4f -> %.4f (%+.4f)\n", res.InitialObjective.Value, res.BestObjective.Value, res.Improvement())
	fmt.Printf("  catch rate %.1f%% -> %.1f%%\n", res.InitialObjective.CatchRate*100, res.BestObjective.CatchRate*100)
	for _, f := range cfg.Fields {
		before, _ := res.InitialParams.Get(f)
		after, _ := res.BestParams.Get(f)
		if before != after {
			fmt.Printf("  %-28s %8.3f -> %8.3f\n", f, before, after)
		}
	}
	fmt.Printf("\nSuggested params: %s/categories.yaml\n", dir)
	return nil
}

// parseFields maps names to tunable fields, rejecting unknown ones
func parseFields(names []string) ([]category.Field, error) {
	known := make(map[category.Field]bool)
	for _, f := range category.Fields() {
		known[f] = true
	}
	out := make([]category.Field, 0, len(names))
	for _, n := range names {
		f := category.Field(n)
		if !known[f] {
			return nil, fmt.Errorf("unknown field %q", n)
		}
		out = append(out, f)
	}
	return out, nil
}
