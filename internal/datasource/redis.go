package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sawpanic/scorelab/internal/series"
)

// redisClient is the subset of the go-redis client the cache uses
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisCache stores serialized series in Redis with a TTL
type RedisCache struct {
	client redisClient
	prefix string
	ttl    time.Duration
}

type redisEntry struct {
	Symbol    string       `json:"symbol"`
	FetchedAt time.Time    `json:"fetched_at"`
	Bars      []series.Bar `json:"bars"`
}

// NewRedisCache connects to addr and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisCache(client, ttl), nil
}

func newRedisCache(client redisClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: "scorelab:series:", ttl: ttl}
}

func (c *RedisCache) key(symbol string) string {
	return c.prefix + symbol
}

// Get returns the cached series and its fetch time. A missing key is ErrNotFound.
func (c *RedisCache) Get(ctx context.Context, symbol string) (series.Series, time.Time, error) {
	raw, err := c.client.Get(ctx, c.key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return series.Series{}, time.Time{}, fmt.Errorf("%s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return series.Series{}, time.Time{}, fmt.Errorf("redis get %s: %w", symbol, err)
	}

	var entry redisEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return series.Series{}, time.Time{}, fmt.Errorf("failed to decode cached %s: %w", symbol, err)
	}
	s, err := series.FromUnsorted(symbol, entry.Bars)
	if err != nil {
		return series.Series{}, time.Time{}, err
	}
	return s, entry.FetchedAt, nil
}

// Set stores the series with the cache TTL
func (c *RedisCache) Set(ctx context.Context, s series.Series, fetchedAt time.Time) error {
	data, err := json.Marshal(redisEntry{Symbol: s.Symbol(), FetchedAt: fetchedAt.UTC(), Bars: s.Bars()})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", s.Symbol(), err)
	}
	if err := c.client.Set(ctx, c.key(s.Symbol()), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.Symbol(), err)
	}
	return nil
}
