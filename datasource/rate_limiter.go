package datasource

import (
	"context"
	"fmt"

	"github.com/drewbanne/Weatherly/models"

	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a Source with separate limiters for the current-weather and forecast endpoints
type RateLimitedProvider struct {
	source          Source
	weatherLimiter  *rate.Limiter
	forecastLimiter *rate.Limiter
	name            string
}

// NewRateLimitedProvider creates a rate limited source.
// weatherRPS and forecastRPS are the maximum requests per second for each endpoint
// (can be fractional for less than 1 request per second); burst is the maximum burst size.
func NewRateLimitedProvider(source Source, weatherRPS, forecastRPS float64, burst int) *RateLimitedProvider {
	return &RateLimitedProvider{
		source:          source,
		weatherLimiter:  rate.NewLimiter(rate.Limit(weatherRPS), burst),
		forecastLimiter: rate.NewLimiter(rate.Limit(forecastRPS), burst),
		name:            fmt.Sprintf("%s [Rate Limited]", source.Name()),
	}
}

// GetWeather implements WeatherProvider with rate limiting
func (r *RateLimitedProvider) GetWeather(ctx context.Context, q models.Query) (models.WeatherSnapshot, error) {
	// Wait for rate limiter permission or context cancellation
	if err := r.weatherLimiter.Wait(ctx); err != nil {
		return models.WeatherSnapshot{}, networkError("rate limit wait canceled", err)
	}
	return r.source.GetWeather(ctx, q)
}

// FetchForecast implements ForecastSource with rate limiting
func (r *RateLimitedProvider) FetchForecast(ctx context.Context, q models.Query) (models.ForecastFeed, error) {
	if err := r.forecastLimiter.Wait(ctx); err != nil {
		return models.ForecastFeed{}, networkError("rate limit wait canceled", err)
	}
	return r.source.FetchForecast(ctx, q)
}

// Name returns the provider name
func (r *RateLimitedProvider) Name() string {
	return r.name
}

var _ Source = (*RateLimitedProvider)(nil)
