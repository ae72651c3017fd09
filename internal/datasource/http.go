package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/scorelab/internal/config"
	"github.com/sawpanic/scorelab/internal/metrics"
	"github.com/sawpanic/scorelab/internal/series"
)

// HTTPProvider downloads daily CSV bars from a URL template. The template
// may contain {symbol}, {from} and {to}; dates are rendered as YYYY-MM-DD.
type HTTPProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	metrics   *metrics.Registry
}

// NewHTTPProvider builds a rate limited, circuit protected provider
func NewHTTPProvider(cfg config.ProviderConfig, reg *metrics.Registry) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("provider base_url is not configured")
	}
	if !strings.Contains(cfg.BaseURL, "{symbol}") {
		return nil, fmt.Errorf("provider base_url %q has no {symbol} placeholder", cfg.BaseURL)
	}

	p := &HTTPProvider{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.RequestTimeout()},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		metrics:   reg,
	}

	threshold := uint32(cfg.Circuit.FailureThreshold)
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "series-provider",
		MaxRequests: uint32(cfg.Circuit.HalfOpenRequests),
		Interval:    time.Minute,
		Timeout:     cfg.Circuit.OpenTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			reg.SetCircuitOpen(to == gobreaker.StateOpen)
		},
		// An unknown symbol says nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})
	return p, nil
}

// URL renders the request URL for symbol over [from, to]
func (p *HTTPProvider) URL(symbol string, from, to time.Time) string {
	r := strings.NewReplacer(
		"{symbol}", url.PathEscape(symbol),
		"{from}", from.UTC().Format("2006-01-02"),
		"{to}", to.UTC().Format("2006-01-02"),
	)
	return r.Replace(p.baseURL)
}

// Fetch implements Fetcher
func (p *HTTPProvider) Fetch(ctx context.Context, symbol string, from, to time.Time) ([]series.Bar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		p.metrics.RecordProviderRequest("rate_limited")
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.get(ctx, symbol, from, to)
	})
	switch {
	case err == nil:
		p.metrics.RecordProviderRequest("ok")
		return out.([]series.Bar), nil
	case errors.Is(err, ErrNotFound):
		p.metrics.RecordProviderRequest("not_found")
		return nil, err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		p.metrics.RecordProviderRequest("circuit_open")
		return nil, fmt.Errorf("provider unavailable for %s: %w", symbol, err)
	default:
		p.metrics.RecordProviderRequest("error")
		return nil, err
	}
}

func (p *HTTPProvider) get(ctx context.Context, symbol string, from, to time.Time) ([]series.Bar, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL(symbol, from, to), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("provider returned %d for %s: %s", resp.StatusCode, symbol, strings.TrimSpace(string(body)))
	}

	bars, err := DecodeCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	return bars, nil
}

// State returns the circuit breaker state
func (p *HTTPProvider) State() gobreaker.State {
	return p.breaker.State()
}
