package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/scorelab/internal/datasource"
	atomicio "github.com/sawpanic/scorelab/internal/io"
	"github.com/sawpanic/scorelab/internal/regime"
	"github.com/sawpanic/scorelab/internal/scoring"
	"github.com/sawpanic/scorelab/internal/series"
)

func newScoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [symbol...]",
		Short: "Score instruments on every timeframe",
		Long: `Scores each symbol (default: the whole universe) on every configured
timeframe in USD and gold terms as of the latest bar.`,
		RunE: runScore,
	}
	cmd.Flags().String("category", "", "Category override; defaults to the universe listing")
	cmd.Flags().String("timeframe", "", "Score a single timeframe (e.g. 1W)")
	cmd.Flags().String("denomination", "usd", "Denomination for --timeframe (usd|gold)")
	cmd.Flags().String("lookback", "", "History to load, e.g. 730d (default: data.lookback)")
	cmd.Flags().Bool("refresh", false, "Bypass caches and refetch from the provider")
	cmd.Flags().String("out", "artifacts/scores", "Directory for scores.json")
	cmd.Flags().Duration("timeout", 10*time.Minute, "Overall timeout")
	return cmd
}

// scoreRecord is one line of scores.json
type scoreRecord struct {
	Symbol  string           `json:"symbol"`
	Results []scoring.Result `json:"results"`
	Skipped []scoring.Skip   `json:"skipped,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func runScore(cmd *cobra.Command, args []string) error {
	categoryFlag, _ := cmd.Flags().GetString("category")
	tfFlag, _ := cmd.Flags().GetString("timeframe")
	denomFlag, _ := cmd.Flags().GetString("denomination")
	lookbackFlag, _ := cmd.Flags().GetString("lookback")
	refresh, _ := cmd.Flags().GetBool("refresh")
	outDir, _ := cmd.Flags().GetString("out")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := loadApp(ctx, cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	lookback, err := parseLookback(lookbackFlag, a.lookback)
	if err != nil {
		return err
	}
	denom, err := series.ParseDenomination(denomFlag)
	if err != nil {
		return err
	}
	tf := series.Timeframe(tfFlag)
	if tf != "" {
		if _, err := a.scorer.Timeframes().Get(tf); err != nil {
			return err
		}
	}

	symbols := args
	if len(symbols) == 0 {
		for _, cat := range a.universe.CategoryNames() {
			symbols = append(symbols, a.universe.Categories[cat]...)
		}
	}

	timer := a.metrics.StartStep("score")
	inputs, err := datasource.LoadInputs(ctx, a.source, a.universe.Benchmarks, lookback)
	if err != nil {
		timer.Stop("error")
		return err
	}

	regimeCfg := a.scoring.Regime
	records := make([]scoreRecord, 0, len(symbols))
	for _, symbol := range symbols {
		cat := categoryFlag
		if cat == "" {
			cat, _ = a.universe.CategoryOf(symbol)
		}
		rec := scoreRecord{Symbol: symbol}

		s, err := a.source.GetSeries(ctx, symbol, lookback, refresh)
		if err != nil {
			if ctx.Err() != nil {
				timer.Stop("cancelled")
				return ctx.Err()
			}
			log.Warn().Str("symbol", symbol).Err(err).Msg("No data")
			a.metrics.RecordSkip("series")
			rec.Error = err.Error()
			records = append(records, rec)
			continue
		}

		v := s.View()
		asOf := v.Cutoff()
		market := scoring.Market{
			Regime:    regime.Build(inputs, asOf, regimeCfg),
			Reference: inputs.Reference.AsOf(asOf),
		}

		if tf != "" {
			res, err := a.scorer.Score(v, tf, denom, cat, market)
			if err != nil {
				timer.Stop("error")
				return err
			}
			rec.Results = []scoring.Result{res}
		} else {
			rec.Results, rec.Skipped, err = a.scorer.ScoreAll(v, cat, market)
			if err != nil {
				timer.Stop("error")
				return err
			}
		}
		for _, res := range rec.Results {
			a.metrics.RecordScore(string(res.Timeframe), string(res.Denomination), res.Value)
		}
		for range rec.Skipped {
			a.metrics.RecordSkip("timeframe")
		}
		records = append(records, rec)
	}
	timer.Stop("ok")

	printScores(records)

	path := filepath.Join(outDir, "scores.json")
	if err := atomicio.WriteJSONAtomic(path, records); err != nil {
		return err
	}
	fmt.Printf("\nScores written to %s\n", path)
	return nil
}

func printScores(records []scoreRecord) {
	fmt.Printf("%-10s %-18s %-5s %-5s %6s %s\n", "SYMBOL", "CATEGORY", "TF", "DENOM", "SCORE", "TOP CONTRIBUTIONS")
	for _, rec := range records {
		if rec.Error != "" {
			fmt.Printf("%-10s no data: %s\n", rec.Symbol, rec.Error)
			continue
		}
		for _, res := range rec.Results {
			flag := ""
			if res.Degraded {
				flag = " (partial)"
			}
			fmt.Printf("%-10s %-18s %-5s %-5s %6.2f %s%s\n",
				rec.Symbol, res.Category, res.Timeframe, res.Denomination, res.Value, topContributions(res.Breakdown, 3), flag)
		}
	}
}

// topContributions lists the first n non-zero breakdown entries
func topContributions(b scoring.Breakdown, n int) string {
	out := ""
	for _, c := range b {
		if c.Points == 0 {
			continue
		}
		if n == 0 {
			return out + " ..."
		}
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s %+.1f", c.Name, c.Points)
		n--
	}
	return out
}
