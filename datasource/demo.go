package datasource

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/drewbanne/Weatherly/localtime"
	"github.com/drewbanne/Weatherly/models"
)

// demoCity is one fixture served in demo mode
type demoCity struct {
	name      string
	country   string
	coords    models.Coordinates
	offset    int64
	temp      int
	feelsLike int
	icon      string
	condition string
}

var demoCities = []demoCity{
	{"London", "GB", models.Coordinates{Lat: 51.5074, Lon: -0.1278}, 0, 15, 12, "04d", "broken clouds"},
	{"Cape Town", "ZA", models.Coordinates{Lat: -33.9249, Lon: 18.4241}, 7200, 22, 20, "01d", "clear sky"},
	{"Miami", "US", models.Coordinates{Lat: 25.7617, Lon: -80.1918}, -14400, 30, 35, "01d", "clear sky"},
	{"Accra", "GH", models.Coordinates{Lat: 5.6037, Lon: -0.1870}, 0, 28, 32, "02d", "partly cloudy"},
}

var demoConditions = []struct{ description, icon string }{
	{"clear sky", "01d"},
	{"few clouds", "02d"},
	{"scattered clouds", "03d"},
	{"light rain", "10d"},
	{"overcast clouds", "04d"},
}

// DemoProvider serves fixture data for a handful of cities. Every snapshot
// and feed it returns is marked Demo.
type DemoProvider struct {
	now func() time.Time
}

// NewDemoProvider creates a demo provider using the wall clock
func NewDemoProvider() *DemoProvider {
	return &DemoProvider{now: time.Now}
}

// Name returns the provider name
func (p *DemoProvider) Name() string {
	return "Demo"
}

// DemoCities lists the cities the demo provider knows
func DemoCities() []string {
	names := make([]string, 0, len(demoCities))
	for _, c := range demoCities {
		names = append(names, c.name)
	}
	return names
}

func (p *DemoProvider) lookup(q models.Query) (demoCity, error) {
	if err := q.Validate(); err != nil {
		return demoCity{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	if q.IsCoords() {
		best, bestDist := demoCities[0], math.Inf(1)
		for _, c := range demoCities {
			dLat, dLon := c.coords.Lat-q.Coords.Lat, c.coords.Lon-q.Coords.Lon
			if d := dLat*dLat + dLon*dLon; d < bestDist {
				best, bestDist = c, d
			}
		}
		return best, nil
	}

	for _, c := range demoCities {
		if strings.EqualFold(c.name, q.String()) {
			return c, nil
		}
	}
	return demoCity{}, &ProviderError{
		StatusCode: 404,
		Message:    fmt.Sprintf("city not found (demo mode knows %s)", strings.Join(DemoCities(), ", ")),
	}
}

// GetWeather returns the fixture snapshot for a demo city
func (p *DemoProvider) GetWeather(ctx context.Context, q models.Query) (models.WeatherSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.WeatherSnapshot{}, networkError("demo fetch", err)
	}
	c, err := p.lookup(q)
	if err != nil {
		return models.WeatherSnapshot{}, err
	}

	now := p.now().UTC().Truncate(time.Minute)
	local := now.In(localtime.Zone(c.offset))
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	sunrise := midnight.Add(6 * time.Hour).Unix()
	sunset := midnight.Add(18*time.Hour + 30*time.Minute).Unix()

	return models.WeatherSnapshot{
		Provider:      p.Name(),
		City:          c.name,
		Country:       c.country,
		Coordinates:   c.coords,
		Temperature:   c.temp,
		FeelsLike:     c.feelsLike,
		Humidity:      77,
		WindSpeed:     4.12,
		WindDeg:       270,
		CloudCover:    40,
		Pressure:      1012,
		Visibility:    10000,
		Description:   c.condition,
		Icon:          IconURL(c.icon),
		Sunrise:       localtime.Format(sunrise, c.offset, false),
		Sunset:        localtime.Format(sunset, c.offset, false),
		ObservedLocal: localtime.Format(now.Unix(), c.offset, true),
		UTCOffset:     c.offset,
		ObservedAt:    now,
		Demo:          true,
	}, nil
}

// FetchForecast returns five days of 3-hourly fixture samples for a demo city
func (p *DemoProvider) FetchForecast(ctx context.Context, q models.Query) (models.ForecastFeed, error) {
	if err := ctx.Err(); err != nil {
		return models.ForecastFeed{}, networkError("demo fetch", err)
	}
	c, err := p.lookup(q)
	if err != nil {
		return models.ForecastFeed{}, err
	}

	start := p.now().UTC().Truncate(3 * time.Hour).Add(3 * time.Hour)
	feed := models.ForecastFeed{
		Provider:  p.Name(),
		City:      c.name,
		Country:   c.country,
		UTCOffset: c.offset,
		Samples:   make([]models.ForecastSample, 0, 40),
		Demo:      true,
	}
	for i := 0; i < 40; i++ {
		ts := start.Add(time.Duration(i) * 3 * time.Hour)
		hour := float64(localtime.In(ts.Unix(), c.offset).Hour())
		cond := demoConditions[(i/8)%len(demoConditions)]
		feed.Samples = append(feed.Samples, models.ForecastSample{
			Timestamp:   ts.Unix(),
			Temperature: float64(c.temp) + 4*math.Sin((hour-8)*math.Pi/12),
			Description: cond.description,
			Icon:        cond.icon,
		})
	}
	return feed, nil
}

var _ Source = (*DemoProvider)(nil)
var _ Source = (*OpenWeatherMapProvider)(nil)
