package weather

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"weather_balance/internal/logger"
	"weather_balance/internal/metrics"
	"weather_balance/internal/models"

	redis "github.com/redis/go-redis/v9"
)

// CachedFetcher keeps live readings in Redis for a TTL. Fallback values are never cached.
type CachedFetcher struct {
	next   Fetcher
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// NewCachedFetcher wraps next with a Redis cache.
func NewCachedFetcher(next Fetcher, client *redis.Client, ttl time.Duration, log *logger.Logger) *CachedFetcher {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedFetcher{next: next, client: client, ttl: ttl, log: log}
}

var _ Fetcher = (*CachedFetcher)(nil)

// FetchTemperature serves from cache when possible. Cache errors fall through to the wrapped fetcher.
func (c *CachedFetcher) FetchTemperature(ctx context.Context, city string) models.TemperatureReading {
	start := time.Now()
	if v, ok := c.get(ctx, city); ok {
		metrics.ObserveFetch(models.SourceCache, time.Since(start))
		return models.TemperatureReading{Value: v, Source: models.SourceCache}
	}

	reading := c.next.FetchTemperature(ctx, city)
	if reading.Source == models.SourceLive {
		c.set(ctx, city, reading.Value)
	}
	return reading
}

func (c *CachedFetcher) get(ctx context.Context, city string) (float64, bool) {
	raw, err := c.client.Get(ctx, cacheKey(city)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnw("weather_cache_get_failed", "city", city, "err", err)
		}
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.log.Warnw("weather_cache_corrupt_entry", "city", city, "value", raw)
		return 0, false
	}
	return v, true
}

func (c *CachedFetcher) set(ctx context.Context, city string, v float64) {
	val := strconv.FormatFloat(v, 'f', -1, 64)
	if err := c.client.Set(ctx, cacheKey(city), val, c.ttl).Err(); err != nil {
		c.log.Warnw("weather_cache_set_failed", "city", city, "err", err)
	}
}

func cacheKey(city string) string {
	return fmt.Sprintf("weather:temp:%s", city)
}
