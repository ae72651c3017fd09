package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/scorelab/internal/metrics"
	"github.com/sawpanic/scorelab/internal/series"
)

// seriesCache is the shared-cache side of CachedSource
type seriesCache interface {
	Get(ctx context.Context, symbol string) (series.Series, time.Time, error)
	Set(ctx context.Context, s series.Series, fetchedAt time.Time) error
}

// CachedSource serves series from Redis, then the file cache, and fetches
// from the provider when neither holds data past the last weekly boundary
// reaching back over the requested lookback. Fetched data is merged onto the
// cached history, so a short fetch never shrinks it. A failed fetch falls
// back to stale cached data.
type CachedSource struct {
	files    *FileCache
	redis    seriesCache
	provider Fetcher
	metrics  *metrics.Registry
	now      func() time.Time
}

// Option configures a CachedSource
type Option func(*CachedSource)

// WithRedis adds a shared cache in front of the file cache
func WithRedis(c *RedisCache) Option {
	return func(s *CachedSource) {
		if c != nil {
			s.redis = c
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *CachedSource) { s.now = now }
}

// WithMetrics records cache and provider outcomes
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *CachedSource) { s.metrics = reg }
}

// NewCachedSource builds a source over the file cache. provider may be nil,
// in which case only cached data is served.
func NewCachedSource(files *FileCache, provider Fetcher, opts ...Option) *CachedSource {
	s := &CachedSource{files: files, provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSeries implements Source
func (s *CachedSource) GetSeries(ctx context.Context, symbol string, lookback time.Duration, refresh bool) (series.Series, error) {
	now := s.now()

	var stale series.Series
	var haveStale bool
	if !refresh {
		if cached, ok := s.fromRedis(ctx, symbol, lookback, now); ok {
			return Trim(cached, lookback, now), nil
		}
		cached, fetchedAt, err := s.files.Load(symbol)
		switch {
		case err == nil && Fresh(fetchedAt, now) && Covers(cached, lookback, now):
			s.metrics.RecordCacheHit("file")
			s.storeRedis(ctx, cached, fetchedAt)
			return Trim(cached, lookback, now), nil
		case err == nil:
			s.metrics.RecordCacheMiss("file")
			stale, haveStale = cached, true
		case errors.Is(err, ErrNotFound):
			s.metrics.RecordCacheMiss("file")
		default:
			log.Warn().Err(err).Str("symbol", symbol).Msg("Ignoring unreadable cache file")
			s.metrics.RecordCacheMiss("file")
		}
	}

	fetched, err := s.fetch(ctx, symbol, lookback, now)
	if err == nil {
		return Trim(fetched, lookback, now), nil
	}
	if !haveStale && refresh {
		if cached, _, lerr := s.files.Load(symbol); lerr == nil {
			stale, haveStale = cached, true
		}
	}
	if haveStale {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Fetch failed, serving stale cache")
		return Trim(stale, lookback, now), nil
	}
	return series.Series{}, err
}

func (s *CachedSource) fromRedis(ctx context.Context, symbol string, lookback time.Duration, now time.Time) (series.Series, bool) {
	if s.redis == nil {
		return series.Series{}, false
	}
	cached, fetchedAt, err := s.redis.Get(ctx, symbol)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Debug().Err(err).Str("symbol", symbol).Msg("Redis lookup failed")
		}
		s.metrics.RecordCacheMiss("redis")
		return series.Series{}, false
	}
	if !Fresh(fetchedAt, now) || !Covers(cached, lookback, now) {
		s.metrics.RecordCacheMiss("redis")
		return series.Series{}, false
	}
	s.metrics.RecordCacheHit("redis")
	return cached, true
}

func (s *CachedSource) storeRedis(ctx context.Context, ser series.Series, fetchedAt time.Time) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Set(ctx, ser, fetchedAt); err != nil {
		log.Debug().Err(err).Str("symbol", ser.Symbol()).Msg("Redis store failed")
	}
}

func (s *CachedSource) fetch(ctx context.Context, symbol string, lookback time.Duration, now time.Time) (series.Series, error) {
	if s.provider == nil {
		return series.Series{}, fmt.Errorf("%s: no provider configured: %w", symbol, ErrNotFound)
	}
	from := time.Time{}
	if lookback > 0 {
		from = now.Add(-lookback)
	}
	bars, err := s.provider.Fetch(ctx, symbol, from, now)
	if err != nil {
		return series.Series{}, err
	}
	fetched, err := series.FromUnsorted(symbol, bars)
	if err != nil {
		return series.Series{}, err
	}
	if cached, _, err := s.files.Load(symbol); err == nil {
		fetched = extend(cached, fetched)
	}

	if err := s.files.Store(fetched, now); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to write cache file")
	}
	s.storeRedis(ctx, fetched, now)
	log.Debug().Str("symbol", symbol).Int("bars", fetched.Len()).Msg("Fetched series")
	return fetched, nil
}
