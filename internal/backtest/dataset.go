package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/scorelab/internal/datasource"
	"github.com/sawpanic/scorelab/internal/regime"
	"github.com/sawpanic/scorelab/internal/series"
)

// Sample is one instrument's history and its unscored explosive moves
type Sample struct {
	Symbol   string
	Category string
	View     series.View
	Events   []Event
}

// Dataset is scanned history that can be scored repeatedly, for example
// once per candidate parameter table while tuning
type Dataset struct {
	Inputs  regime.Inputs
	Samples []Sample
	Skipped []InstrumentSkip
}

// EventCount returns the number of events across every sample
func (d *Dataset) EventCount() int {
	n := 0
	for _, s := range d.Samples {
		n += len(s.Events)
	}
	return n
}

// Prepare loads and scans the instruments of the given categories (all
// configured ones when empty) without scoring them
func (r *Runner) Prepare(ctx context.Context, categories []string) (*Dataset, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	sel := *r
	if len(categories) > 0 {
		sel.config.Categories = categories
	}
	instruments, err := sel.Instruments()
	if err != nil {
		return nil, err
	}

	inputs, err := datasource.LoadInputs(ctx, r.source, r.universe.Benchmarks, r.config.History)
	if err != nil {
		return nil, fmt.Errorf("failed to load benchmarks: %w", err)
	}

	ds := &Dataset{Inputs: inputs}
	for _, inst := range instruments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := r.source.GetSeries(ctx, inst.Symbol, r.config.History, false)
		if err == nil && s.Len() < r.config.MinHistory {
			err = fmt.Errorf("%s has %d bars, need %d: %w", inst.Symbol, s.Len(), r.config.MinHistory, ErrInsufficientHistory)
		}
		if err != nil {
			log.Warn().Str("symbol", inst.Symbol).Err(err).Msg("Instrument skipped")
			ds.Skipped = append(ds.Skipped, InstrumentSkip{Symbol: inst.Symbol, Category: inst.Category, Reason: err.Error()})
			continue
		}

		v := s.View()
		events := FindExplosiveMoves(v, r.config.MinMovePct, r.config.LookbackBars)
		for i := range events {
			events[i].Category = inst.Category
		}
		ds.Samples = append(ds.Samples, Sample{Symbol: inst.Symbol, Category: inst.Category, View: v, Events: events})
	}
	return ds, nil
}

// Evaluate scores every event of the dataset with the runner's scorer
func (r *Runner) Evaluate(ctx context.Context, ds *Dataset) ([]Event, error) {
	jobs := make(chan Sample)
	results := make(chan []Event, len(ds.Samples))

	var wg sync.WaitGroup
	for w := 0; w < r.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				scored := make([]Event, len(s.Events))
				for i, ev := range s.Events {
					scored[i] = r.ScoreEvent(s.View, s.Category, ds.Inputs, ev)
				}
				results <- scored
			}
		}()
	}

feed:
	for _, s := range ds.Samples {
		select {
		case jobs <- s:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []Event
	for batch := range results {
		events = append(events, batch...)
	}
	sortEvents(events)
	return events, nil
}

func sortEvents(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Start.Before(b.Start)
	})
}
