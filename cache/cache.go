package cache

import (
	"context"
	"sync"
	"time"

	"github.com/drewbanne/Weatherly/datasource"
	"github.com/drewbanne/Weatherly/models"

	"go.uber.org/zap"
)

// CachedWeatherProvider wraps a WeatherProvider and adds caching functionality
type CachedWeatherProvider struct {
	provider       datasource.WeatherProvider
	cache          map[string]cacheEntry // key is the normalized query
	mutex          sync.RWMutex
	cacheDuration  time.Duration
	cacheHitCount  int
	cacheMissCount int
	logger         *zap.Logger
	now            func() time.Time
}

// cacheEntry represents a cached snapshot with its timestamp
type cacheEntry struct {
	Data      models.WeatherSnapshot
	Timestamp time.Time
}

// NewCachedWeatherProvider creates a new cached wrapper around a weather provider
func NewCachedWeatherProvider(provider datasource.WeatherProvider, cacheDuration time.Duration, logger *zap.Logger) *CachedWeatherProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedWeatherProvider{
		provider:      provider,
		cache:         make(map[string]cacheEntry),
		cacheDuration: cacheDuration,
		logger:        logger,
		now:           time.Now,
	}
}

// Name returns the name of the underlying provider with [Cached] suffix
func (c *CachedWeatherProvider) Name() string {
	return c.provider.Name() + " [Cached]"
}

// GetWeather fetches current conditions, using the cache when available
func (c *CachedWeatherProvider) GetWeather(ctx context.Context, q models.Query) (models.WeatherSnapshot, error) {
	key := q.Key()

	c.mutex.RLock()
	entry, found := c.cache[key]
	c.mutex.RUnlock()

	age := c.now().Sub(entry.Timestamp)
	if found && age < c.cacheDuration {
		c.mutex.Lock()
		c.cacheHitCount++
		c.mutex.Unlock()

		c.logger.Debug("weather cache hit",
			zap.String("query", key),
			zap.String("provider", c.provider.Name()),
			zap.Duration("age", age.Round(time.Second)))
		return entry.Data, nil
	}

	c.mutex.Lock()
	c.cacheMissCount++
	c.mutex.Unlock()

	c.logger.Debug("weather cache miss", zap.String("query", key), zap.String("provider", c.provider.Name()))

	data, err := c.provider.GetWeather(ctx, q)
	if err != nil {
		return models.WeatherSnapshot{}, err
	}

	c.mutex.Lock()
	c.cache[key] = cacheEntry{
		Data:      data,
		Timestamp: c.now(),
	}
	c.mutex.Unlock()

	return data, nil
}

// CacheStats returns statistics about cache hits and misses
func (c *CachedWeatherProvider) CacheStats() (hits, misses int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.cacheHitCount, c.cacheMissCount
}

// Ensure CachedWeatherProvider implements the WeatherProvider interface
var _ datasource.WeatherProvider = (*CachedWeatherProvider)(nil)
