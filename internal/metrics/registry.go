package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// Registry holds the scorelab metrics on a private Prometheus registry.
// Every method is safe on a nil *Registry, which records nothing.
type Registry struct {
	reg *prometheus.Registry

	StepDuration *prometheus.HistogramVec
	Steps        *prometheus.CounterVec

	Scores     *prometheus.CounterVec
	ScoreValue *prometheus.HistogramVec
	Skips      *prometheus.CounterVec

	CacheHits     *prometheus.CounterVec
	CacheMisses   *prometheus.CounterVec
	CacheHitRatio prometheus.Gauge

	ProviderRequests *prometheus.CounterVec
	CircuitOpen      prometheus.Gauge

	BacktestEvents   *prometheus.CounterVec
	BacktestSkipped  prometheus.Counter
	BacktestCatch    *prometheus.GaugeVec
	TuneObjective    *prometheus.GaugeVec
	TuneEvaluations  prometheus.Counter
	LastRunTimestamp prometheus.Gauge
}

// NewRegistry creates the registry with every scorelab metric registered
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scorelab_step_duration_seconds",
				Help:    "Duration of each pipeline step in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
			},
			[]string{"step", "result"},
		),
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorelab_steps_total",
				Help: "Total number of pipeline steps executed",
			},
			[]string{"step", "result"},
		),

		Scores: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorelab_scores_total",
				Help: "Composite scores computed by timeframe and denomination",
			},
			[]string{"timeframe", "denomination"},
		),
		ScoreValue: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scorelab_score_value",
				Help:    "Distribution of composite score values",
				Buckets: []float64{-4, -2, 0, 2, 4, 6, 8, 10, 15, 20},
			},
			[]string{"timeframe"},
		),
		Skips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorelab_skips_total",
				Help: "Instruments or timeframes skipped, by stage",
			},
			[]string{"stage"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorelab_cache_hits_total",
				Help: "Series cache hits by cache type",
			},
			[]string{"cache_type"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorelab_cache_misses_total",
				Help: "Series cache misses by cache type",
			},
			[]string{"cache_type"},
		),
		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "scorelab_cache_hit_ratio",
				Help: "Series cache hit ratio across cache types (0.0 to 1.0)",
			},
		),

		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorelab_provider_requests_total",
				Help: "HTTP provider requests by outcome",
			},
			[]string{"outcome"},
		),
		CircuitOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "scorelab_provider_circuit_open",
				Help: "1 while the provider circuit breaker is open",
			},
		),

		BacktestEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scorelab_backtest_events_total",
				Help: "Explosive move events scored, by category and score bucket",
			},
			[]string{"category", "bucket"},
		),
		BacktestSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scorelab_backtest_instruments_skipped_total",
				Help: "Instruments skipped by the backtest",
			},
		),
		BacktestCatch: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scorelab_backtest_catch_rate",
				Help: "Fraction of events scoring in the top bucket, by category",
			},
			[]string{"category"},
		),
		TuneObjective: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scorelab_tune_objective",
				Help: "Best tuning objective reached, by category",
			},
			[]string{"category"},
		),
		TuneEvaluations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "scorelab_tune_evaluations_total",
				Help: "Objective evaluations performed by the tuner",
			},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "scorelab_last_run_timestamp_seconds",
				Help: "Unix time the last backtest or tune run finished",
			},
		),
	}

	r.reg.MustRegister(
		r.StepDuration, r.Steps,
		r.Scores, r.ScoreValue, r.Skips,
		r.CacheHits, r.CacheMisses, r.CacheHitRatio,
		r.ProviderRequests, r.CircuitOpen,
		r.BacktestEvents, r.BacktestSkipped, r.BacktestCatch,
		r.TuneObjective, r.TuneEvaluations, r.LastRunTimestamp,
	)
	return r
}

// StepTimer tracks execution time for a pipeline step
type StepTimer struct {
	r     *Registry
	step  string
	start time.Time
}

// StartStep begins timing a pipeline step
func (r *Registry) StartStep(step string) *StepTimer {
	return &StepTimer{r: r, step: step, start: time.Now()}
}

// Stop records the step duration under result
func (st *StepTimer) Stop(result string) {
	if st == nil || st.r == nil {
		return
	}
	d := time.Since(st.start)
	st.r.StepDuration.WithLabelValues(st.step, result).Observe(d.Seconds())
	st.r.Steps.WithLabelValues(st.step, result).Inc()

	log.Debug().
		Str("step", st.step).
		Str("result", result).
		Dur("duration", d).
		Msg("Pipeline step completed")
}

// RecordScore counts a computed score
func (r *Registry) RecordScore(timeframe, denomination string, value float64) {
	if r == nil {
		return
	}
	r.Scores.WithLabelValues(timeframe, denomination).Inc()
	r.ScoreValue.WithLabelValues(timeframe).Observe(value)
}

// RecordSkip counts a skipped instrument or timeframe
func (r *Registry) RecordSkip(stage string) {
	if r == nil {
		return
	}
	r.Skips.WithLabelValues(stage).Inc()
}

// RecordCacheHit records a cache hit for the cache type
func (r *Registry) RecordCacheHit(cacheType string) {
	if r == nil {
		return
	}
	r.CacheHits.WithLabelValues(cacheType).Inc()
	r.updateCacheHitRatio()
}

// RecordCacheMiss records a cache miss for the cache type
func (r *Registry) RecordCacheMiss(cacheType string) {
	if r == nil {
		return
	}
	r.CacheMisses.WithLabelValues(cacheType).Inc()
	r.updateCacheHitRatio()
}

// RecordProviderRequest counts a provider request by outcome
func (r *Registry) RecordProviderRequest(outcome string) {
	if r == nil {
		return
	}
	r.ProviderRequests.WithLabelValues(outcome).Inc()
}

// SetCircuitOpen publishes the breaker state
func (r *Registry) SetCircuitOpen(open bool) {
	if r == nil {
		return
	}
	if open {
		r.CircuitOpen.Set(1)
	} else {
		r.CircuitOpen.Set(0)
	}
}

// RecordBacktestEvent counts a scored event
func (r *Registry) RecordBacktestEvent(category, bucket string) {
	if r == nil {
		return
	}
	r.BacktestEvents.WithLabelValues(category, bucket).Inc()
}

// RecordBacktestSkip counts an instrument skipped by the backtest
func (r *Registry) RecordBacktestSkip() {
	if r == nil {
		return
	}
	r.BacktestSkipped.Inc()
}

// SetCatchRate publishes a category catch rate
func (r *Registry) SetCatchRate(category string, rate float64) {
	if r == nil {
		return
	}
	r.BacktestCatch.WithLabelValues(category).Set(rate)
}

// RecordTuneEvaluation counts one objective evaluation
func (r *Registry) RecordTuneEvaluation() {
	if r == nil {
		return
	}
	r.TuneEvaluations.Inc()
}

// SetTuneObjective publishes the best objective for a category
func (r *Registry) SetTuneObjective(category string, value float64) {
	if r == nil {
		return
	}
	r.TuneObjective.WithLabelValues(category).Set(value)
}

// MarkRunFinished stamps the last run time
func (r *Registry) MarkRunFinished(t time.Time) {
	if r == nil {
		return
	}
	r.LastRunTimestamp.Set(float64(t.Unix()))
}

// updateCacheHitRatio sums hits and misses over every cache type
func (r *Registry) updateCacheHitRatio() {
	hits := sumFamily(r.reg, "scorelab_cache_hits_total")
	misses := sumFamily(r.reg, "scorelab_cache_misses_total")
	if total := hits + misses; total > 0 {
		r.CacheHitRatio.Set(hits / total)
	}
}

// Value returns the summed value of a counter or gauge family, zero when the
// family has no samples
func (r *Registry) Value(name string) float64 {
	if r == nil {
		return 0
	}
	return sumFamily(r.reg, name)
}

func sumFamily(g prometheus.Gatherer, name string) float64 {
	families, err := g.Gather()
	if err != nil {
		return 0
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += metricValue(mf.GetType(), m)
		}
	}
	return total
}

func metricValue(t io_prometheus_client.MetricType, m *io_prometheus_client.Metric) float64 {
	switch t {
	case io_prometheus_client.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case io_prometheus_client.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case io_prometheus_client.MetricType_HISTOGRAM:
		return float64(m.GetHistogram().GetSampleCount())
	}
	return 0
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// WriteTextfile exports the registry for the node-exporter textfile collector
func (r *Registry) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
