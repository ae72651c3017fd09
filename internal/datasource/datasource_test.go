package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/scorelab/internal/config"
	"github.com/sawpanic/scorelab/internal/metrics"
	"github.com/sawpanic/scorelab/internal/series"
)

// Wednesday; the last boundary is Sunday 2024-03-10 16:00 UTC
var now = time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC)

func bars(n int, start time.Time) []series.Bar {
	out := make([]series.Bar, n)
	for i := range out {
		c := 100 + float64(i)
		out[i] = series.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return out
}

func mustSeries(t *testing.T, symbol string, n int) series.Series {
	t.Helper()
	s, err := series.New(symbol, bars(n, now.AddDate(0, 0, -n).Truncate(24*time.Hour)))
	require.NoError(t, err)
	return s
}

func TestLastBoundary(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"midweek", now, time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)},
		{"sunday before close", time.Date(2024, 3, 10, 15, 59, 0, 0, time.UTC), time.Date(2024, 3, 3, 16, 0, 0, 0, time.UTC)},
		{"sunday at close", time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)},
		{"saturday", time.Date(2024, 3, 16, 23, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LastBoundary(tt.now))
		})
	}

	assert.True(t, Fresh(time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), now))
	assert.False(t, Fresh(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), now))
}

func TestTrim(t *testing.T) {
	s := mustSeries(t, "AAPL", 30)
	trimmed := Trim(s, 10*24*time.Hour+12*time.Hour, now)
	assert.Equal(t, 10, trimmed.Len())
	assert.Equal(t, 30, Trim(s, 0, now).Len())
}

func TestCSV_RoundTrip(t *testing.T) {
	s := mustSeries(t, "AAPL", 5)
	data, err := EncodeCSV(s.Bars())
	require.NoError(t, err)

	decoded, err := DecodeCSV(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, s.Bars(), decoded)
}

func TestDecodeCSV_ProviderFormat(t *testing.T) {
	raw := "Date,Open,High,Low,Close,Adj Close,Volume\n" +
		"2024-01-02,10,11,9,10.5,10.4,100\n" +
		"2024-01-03,null,null,null,null,null,null\n" +
		"2024-01-04,10.5,12,10,11.5,11.4,\n"
	got, err := DecodeCSV(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got[0].Time)
	assert.Equal(t, 10.5, got[0].Close)
	assert.Equal(t, 0.0, got[1].Volume)

	_, err = DecodeCSV(strings.NewReader("date,open,close\n2024-01-02,1,1\n"))
	assert.Error(t, err)
}

func TestFileCache(t *testing.T) {
	c := NewFileCache(t.TempDir())

	_, _, err := c.Load("GC=F")
	assert.ErrorIs(t, err, ErrNotFound)

	s := mustSeries(t, "GC=F", 20)
	fetchedAt := now.Add(-time.Hour)
	require.NoError(t, c.Store(s, fetchedAt))
	assert.True(t, strings.HasSuffix(c.Path("GC=F"), "GC_F.csv"))

	loaded, at, err := c.Load("GC=F")
	require.NoError(t, err)
	assert.Equal(t, s.Bars(), loaded.Bars())
	assert.WithinDuration(t, fetchedAt, at, time.Second)
}

type fakeRedis struct {
	data map[string]string
	ttl  time.Duration
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache(t *testing.T) {
	fake := &fakeRedis{data: map[string]string{}}
	c := newRedisCache(fake, 168*time.Hour)

	_, _, err := c.Get(context.Background(), "BTC-USD")
	assert.ErrorIs(t, err, ErrNotFound)

	s := mustSeries(t, "BTC-USD", 10)
	require.NoError(t, c.Set(context.Background(), s, now))
	assert.Contains(t, fake.data, "scorelab:series:BTC-USD")
	assert.Equal(t, 168*time.Hour, fake.ttl)

	got, at, err := c.Get(context.Background(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, s.Bars(), got.Bars())
	assert.True(t, at.Equal(now))
}

func providerConfig(url string) config.ProviderConfig {
	return config.ProviderConfig{
		BaseURL:   url + "/daily/{symbol}?from={from}&to={to}",
		RPS:       1000,
		Burst:     10,
		TimeoutMS: 2000,
		UserAgent: "scorelab-test",
		Circuit:   config.CircuitConfig{FailureThreshold: 2, OpenTimeoutMS: 60000, HalfOpenRequests: 1},
	}
}

func TestHTTPProvider_Fetch(t *testing.T) {
	var gotPath, gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAgent = r.URL.Path, r.URL.RawQuery, r.UserAgent()
		if strings.HasSuffix(r.URL.Path, "NOPE") {
			http.NotFound(w, r)
			return
		}
		data, _ := EncodeCSV(bars(3, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
		w.Header().Set("Content-Type", "text/csv")
		w.Write(data)
	}))
	defer srv.Close()

	reg := metrics.NewRegistry()
	p, err := NewHTTPProvider(providerConfig(srv.URL), reg)
	require.NoError(t, err)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := p.Fetch(context.Background(), "AAPL", from, now)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "/daily/AAPL", gotPath)
	assert.Equal(t, "from=2024-01-01&to=2024-03-13", gotQuery)
	assert.Equal(t, "scorelab-test", gotAgent)

	_, err = p.Fetch(context.Background(), "NOPE", from, now)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = p.Fetch(context.Background(), "NOPE", from, now)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, gobreaker.StateClosed, p.State(), "unknown symbols do not trip the breaker")
	assert.Equal(t, 3.0, reg.Value("scorelab_provider_requests_total"))
}

func TestHTTPProvider_BreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	reg := metrics.NewRegistry()
	p, err := NewHTTPProvider(providerConfig(srv.URL), reg)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := p.Fetch(context.Background(), "AAPL", now.AddDate(-1, 0, 0), now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "502")
	}
	assert.Equal(t, gobreaker.StateOpen, p.State())

	_, err = p.Fetch(context.Background(), "AAPL", now.AddDate(-1, 0, 0), now)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, 1.0, reg.Value("scorelab_provider_circuit_open"))
}

func TestNewHTTPProvider_RequiresTemplate(t *testing.T) {
	_, err := NewHTTPProvider(config.ProviderConfig{}, nil)
	assert.Error(t, err)
	_, err = NewHTTPProvider(config.ProviderConfig{BaseURL: "http://example.com/daily", RPS: 1, Burst: 1}, nil)
	assert.Error(t, err)
}

type fakeFetcher struct {
	bars  []series.Bar
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, _, _ time.Time) ([]series.Bar, error) {
	f.calls++
	return f.bars, f.err
}

func newSource(t *testing.T, f Fetcher, opts ...Option) (*CachedSource, *FileCache) {
	t.Helper()
	files := NewFileCache(t.TempDir())
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewCachedSource(files, f, opts...), files
}

func TestCachedSource_FreshCacheSkipsProvider(t *testing.T) {
	f := &fakeFetcher{}
	reg := metrics.NewRegistry()
	src, files := newSource(t, f, WithMetrics(reg))
	require.NoError(t, files.Store(mustSeries(t, "AAPL", 15), now.Add(-time.Hour)))

	got, err := src.GetSeries(context.Background(), "AAPL", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Len())
	assert.Equal(t, 0, f.calls)
	assert.Equal(t, 1.0, reg.Value("scorelab_cache_hits_total"))
}

func TestCachedSource_StaleCacheRefetches(t *testing.T) {
	fresh := mustSeries(t, "AAPL", 25)
	f := &fakeFetcher{bars: fresh.Bars()}
	src, files := newSource(t, f)
	require.NoError(t, files.Store(mustSeries(t, "AAPL", 15), now.AddDate(0, 0, -5)))

	got, err := src.GetSeries(context.Background(), "AAPL", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 25, got.Len())
	assert.Equal(t, 1, f.calls)

	_, at, err := files.Load("AAPL")
	require.NoError(t, err)
	assert.WithinDuration(t, now, at, time.Second)
}

func TestCachedSource_FallsBackToStale(t *testing.T) {
	f := &fakeFetcher{err: errors.New("provider down")}
	src, files := newSource(t, f)
	require.NoError(t, files.Store(mustSeries(t, "AAPL", 15), now.AddDate(0, 0, -5)))

	got, err := src.GetSeries(context.Background(), "AAPL", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 15, got.Len())

	got, err = src.GetSeries(context.Background(), "AAPL", 0, true)
	require.NoError(t, err, "refresh also falls back")
	assert.Equal(t, 15, got.Len())

	_, err = src.GetSeries(context.Background(), "MSFT", 0, false)
	assert.EqualError(t, err, "provider down")
}

func TestCachedSource_RefreshBypassesCache(t *testing.T) {
	f := &fakeFetcher{bars: mustSeries(t, "AAPL", 40).Bars()}
	src, files := newSource(t, f)
	require.NoError(t, files.Store(mustSeries(t, "AAPL", 15), now.Add(-time.Hour)))

	got, err := src.GetSeries(context.Background(), "AAPL", 0, true)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Len())
	assert.Equal(t, 1, f.calls)
}

func TestCachedSource_RedisFirst(t *testing.T) {
	fake := &fakeRedis{data: map[string]string{}}
	rc := newRedisCache(fake, time.Hour)
	require.NoError(t, rc.Set(context.Background(), mustSeries(t, "ETH-USD", 12), now.Add(-time.Hour)))

	f := &fakeFetcher{}
	src, _ := newSource(t, f, WithRedis(rc))
	got, err := src.GetSeries(context.Background(), "ETH-USD", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 12, got.Len())
	assert.Equal(t, 0, f.calls)

	// fetched data is shared back to redis
	f.bars = mustSeries(t, "SOL-USD", 8).Bars()
	_, err = src.GetSeries(context.Background(), "SOL-USD", 0, false)
	require.NoError(t, err)
	assert.Contains(t, fake.data, "scorelab:series:SOL-USD")
}

// windowFetcher serves only the bars inside the requested range
type windowFetcher struct {
	bars  []series.Bar
	calls int
}

func (f *windowFetcher) Fetch(_ context.Context, _ string, from, to time.Time) ([]series.Bar, error) {
	f.calls++
	var out []series.Bar
	for _, b := range f.bars {
		if !b.Time.Before(from) && !b.Time.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func TestCachedSource_ShortFetchDoesNotServeLongerLookback(t *testing.T) {
	const days = 6 * 365
	f := &windowFetcher{bars: bars(days, now.AddDate(0, 0, -days).Truncate(24*time.Hour))}
	src, files := newSource(t, f)
	day := 24 * time.Hour

	short, err := src.GetSeries(context.Background(), "BTC-USD", 730*day, true)
	require.NoError(t, err)
	assert.InDelta(t, 730, short.Len(), 2)

	long, err := src.GetSeries(context.Background(), "BTC-USD", 1825*day, false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls, "a cache shorter than the lookback is refetched")
	assert.InDelta(t, 1825, long.Len(), 2)

	// a later short refresh keeps the longer history on disk
	_, err = src.GetSeries(context.Background(), "BTC-USD", 730*day, true)
	require.NoError(t, err)
	cached, _, err := files.Load("BTC-USD")
	require.NoError(t, err)
	assert.InDelta(t, 1825, cached.Len(), 2)

	again, err := src.GetSeries(context.Background(), "BTC-USD", 1825*day, false)
	require.NoError(t, err)
	assert.Equal(t, 3, f.calls, "covered fresh cache skips the provider")
	assert.Equal(t, long.Len(), again.Len())
}

func TestCovers(t *testing.T) {
	s := mustSeries(t, "AAPL", 100)
	day := 24 * time.Hour
	assert.True(t, Covers(s, 0, now))
	assert.True(t, Covers(s, 100*day, now))
	assert.True(t, Covers(s, 105*day, now), "a few missing days are tolerated")
	assert.False(t, Covers(s, 200*day, now))
	assert.False(t, Covers(series.Series{}, day, now))
}

func TestCachedSource_NoProvider(t *testing.T) {
	src, _ := newSource(t, nil)
	_, err := src.GetSeries(context.Background(), "AAPL", 0, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

type mapSource map[string]series.Series

func (m mapSource) GetSeries(_ context.Context, symbol string, _ time.Duration, _ bool) (series.Series, error) {
	s, ok := m[symbol]
	if !ok {
		return series.Series{}, ErrNotFound
	}
	return s, nil
}

func TestLoadInputs(t *testing.T) {
	src := mapSource{
		"SPY":  mustSeries(t, "SPY", 30),
		"GC=F": mustSeries(t, "GC=F", 30),
	}
	b := config.BenchmarkConfig{Index: "SPY", Gold: "GC=F", Volatility: "^VIX", CycleProxy: "SPY"}

	in, err := LoadInputs(context.Background(), src, b, 0)
	require.NoError(t, err)
	assert.Equal(t, 30, in.Index.Len())
	assert.Equal(t, 30, in.Reference.Len())
	assert.Equal(t, 30, in.CycleProxy.Len())
	assert.True(t, in.Volatility.Empty(), "missing benchmark is left empty")
	assert.True(t, in.Cycle.Empty())
}
