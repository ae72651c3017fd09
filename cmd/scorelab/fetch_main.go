package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [symbol...]",
		Short: "Warm the series caches",
		Long: `Loads each symbol (default: every instrument and benchmark in the
universe) through the cache layers. Cached series newer than the last
weekly boundary (Sunday 16:00 UTC) are kept unless --refresh is set.`,
		RunE: runFetch,
	}
	cmd.Flags().String("lookback", "", "History to load, e.g. 730d (default: data.lookback)")
	cmd.Flags().Bool("refresh", false, "Bypass caches and refetch from the provider")
	cmd.Flags().Duration("timeout", 30*time.Minute, "Overall timeout")
	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	lookbackFlag, _ := cmd.Flags().GetString("lookback")
	refresh, _ := cmd.Flags().GetBool("refresh")
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

	symbols := args
	if len(symbols) == 0 {
		symbols = a.universe.Symbols()
	}
	return warmSymbols(ctx, a, symbols, lookback, refresh)
}

// warmSymbols loads every symbol through the source so later runs hit the
// caches. Individual failures are logged; only cancellation aborts.
func warmSymbols(ctx context.Context, a *app, symbols []string, lookback time.Duration, refresh bool) error {
	timer := a.metrics.StartStep("fetch")
	var ok, failed int
	for _, symbol := range symbols {
		s, err := a.source.GetSeries(ctx, symbol, lookback, refresh)
		if err != nil {
			if ctx.Err() != nil {
				timer.Stop("cancelled")
				return ctx.Err()
			}
			failed++
			a.metrics.RecordSkip("fetch")
			log.Warn().Str("symbol", symbol).Err(err).Msg("Fetch failed")
			continue
		}
		ok++
		log.Debug().Str("symbol", symbol).Int("bars", s.Len()).Msg("Series ready")
	}

	result := "ok"
	if failed > 0 {
		result = "partial"
	}
	timer.Stop(result)
	fmt.Printf("Fetched %d/%d series (%d failed)\n", ok, len(symbols), failed)
	return nil
}
