package cache

import (
	"context"
	"sync"
	"time"

	"github.com/drewbanne/Weatherly/datasource"
	"github.com/drewbanne/Weatherly/models"

	"go.uber.org/zap"
)

// CachedForecastSource wraps a ForecastSource and adds caching functionality
type CachedForecastSource struct {
	source         datasource.ForecastSource
	cache          map[string]forecastCacheEntry // key is the normalized query
	mutex          sync.RWMutex
	cacheDuration  time.Duration
	cacheHitCount  int
	cacheMissCount int
	logger         *zap.Logger
	now            func() time.Time
}

// forecastCacheEntry represents a cached forecast feed with its timestamp
type forecastCacheEntry struct {
	Data      models.ForecastFeed
	Timestamp time.Time
}

// NewCachedForecastSource creates a new cached wrapper around a forecast source
func NewCachedForecastSource(source datasource.ForecastSource, cacheDuration time.Duration, logger *zap.Logger) *CachedForecastSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedForecastSource{
		source:        source,
		cache:         make(map[string]forecastCacheEntry),
		cacheDuration: cacheDuration,
		logger:        logger,
		now:           time.Now,
	}
}

// Name returns the name of the underlying forecast source with [Cached] suffix
func (c *CachedForecastSource) Name() string {
	return c.source.Name() + " [Cached]"
}

// FetchForecast fetches the forecast feed, using the cache when available
func (c *CachedForecastSource) FetchForecast(ctx context.Context, q models.Query) (models.ForecastFeed, error) {
	key := q.Key()

	c.mutex.RLock()
	entry, found := c.cache[key]
	c.mutex.RUnlock()

	age := c.now().Sub(entry.Timestamp)
	if found && age < c.cacheDuration {
		c.mutex.Lock()
		c.cacheHitCount++
		c.mutex.Unlock()

		c.logger.Debug("forecast cache hit",
			zap.String("query", key),
			zap.String("source", c.source.Name()),
			zap.Duration("age", age.Round(time.Second)))
		return entry.Data, nil
	}

	c.mutex.Lock()
	c.cacheMissCount++
	c.mutex.Unlock()

	c.logger.Debug("forecast cache miss", zap.String("query", key), zap.String("source", c.source.Name()))

	feed, err := c.source.FetchForecast(ctx, q)
	if err != nil {
		return models.ForecastFeed{}, err
	}

	c.mutex.Lock()
	c.cache[key] = forecastCacheEntry{
		Data:      feed,
		Timestamp: c.now(),
	}
	c.mutex.Unlock()

	return feed, nil
}

// CacheStats returns statistics about cache hits and misses
func (c *CachedForecastSource) CacheStats() (hits, misses int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.cacheHitCount, c.cacheMissCount
}

// Ensure CachedForecastSource implements ForecastSource
var _ datasource.ForecastSource = (*CachedForecastSource)(nil)
