package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/scorelab/internal/config"
	"github.com/sawpanic/scorelab/internal/regime"
	"github.com/sawpanic/scorelab/internal/series"
)

// LoadInputs fetches the benchmark series behind the regime providers. A
// benchmark that cannot be loaded is logged and left empty so its provider
// reads neutral; only context cancellation is returned as an error.
func LoadInputs(ctx context.Context, src Source, b config.BenchmarkConfig, lookback time.Duration) (regime.Inputs, error) {
	var in regime.Inputs
	loaded := make(map[string]series.View)

	for _, target := range []struct {
		role   string
		symbol string
		dst    *series.View
	}{
		{"index", b.Index, &in.Index},
		{"gold", b.Gold, &in.Reference},
		{"volatility", b.Volatility, &in.Volatility},
		{"cycle", b.Cycle, &in.Cycle},
		{"cycle_proxy", b.CycleProxy, &in.CycleProxy},
	} {
		if target.symbol == "" {
			continue
		}
		if v, ok := loaded[target.symbol]; ok {
			*target.dst = v
			continue
		}
		s, err := src.GetSeries(ctx, target.symbol, lookback, false)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return regime.Inputs{}, err
			}
			log.Warn().Err(err).Str("role", target.role).Str("symbol", target.symbol).Msg("Benchmark unavailable, provider will be neutral")
			continue
		}
		v := s.View()
		loaded[target.symbol] = v
		*target.dst = v
	}
	return in, nil
}
