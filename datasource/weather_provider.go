package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/drewbanne/Weatherly/models"
)

// WeatherProvider is an interface for services that can fetch current weather data
type WeatherProvider interface {
	// GetWeather fetches current conditions for a city or coordinate pair
	GetWeather(ctx context.Context, q models.Query) (models.WeatherSnapshot, error)

	// Name returns the provider's name
	Name() string
}

// ForecastSource is an interface for services that can fetch the multi-day 3-hour forecast feed
type ForecastSource interface {
	// FetchForecast fetches the raw forecast feed for a city or coordinate pair
	FetchForecast(ctx context.Context, q models.Query) (models.ForecastFeed, error)

	// Name returns the source's name
	Name() string
}

// Source is a provider of both current conditions and forecasts
type Source interface {
	WeatherProvider
	ForecastSource
}

// Mode selects where weather data comes from
type Mode string

const (
	// ModeLive queries OpenWeatherMap and requires an API key
	ModeLive Mode = "live"
	// ModeDemo serves labeled fixture data and never touches the network
	ModeDemo Mode = "demo"
)

// Config represents the application configuration
type Config struct {
	Mode Mode `json:"mode"`

	OpenWeatherMap struct {
		APIKey  string `json:"apiKey"`
		BaseURL string `json:"baseURL"`
	} `json:"openWeatherMap"`

	// Storage is a file path for the JSON store, or a sqlite3:// or postgres:// DSN
	Storage string `json:"storage"`

	Geolocation struct {
		Endpoint string   `json:"endpoint"`
		Lat      *float64 `json:"lat"`
		Lon      *float64 `json:"lon"`
		// Timeout bounds one lookup, as a Go duration such as "5s"
		Timeout string `json:"timeout"`
	} `json:"geolocation"`
}

// LoadConfig loads configuration from a JSON file. A missing file yields the default configuration.
func LoadConfig(filename string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	return config, nil
}

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	config := &Config{Mode: ModeLive}
	config.OpenWeatherMap.BaseURL = DefaultOpenWeatherMapURL
	return config
}

// ApplyEnv overlays environment variables on the configuration
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("WEATHERLY_MODE"); v != "" {
		c.Mode = Mode(strings.ToLower(v))
	}
	if v := os.Getenv("OPENWEATHERMAP_API_KEY"); v != "" {
		c.OpenWeatherMap.APIKey = v
	}
	if v := os.Getenv("WEATHERLY_STORAGE"); v != "" {
		c.Storage = v
	}
	if v := os.Getenv("WEATHERLY_GEO_ENDPOINT"); v != "" {
		c.Geolocation.Endpoint = v
	}
	if v := os.Getenv("WEATHERLY_GEO_TIMEOUT"); v != "" {
		c.Geolocation.Timeout = v
	}
	for name, dst := range map[string]**float64{
		"WEATHERLY_LAT": &c.Geolocation.Lat,
		"WEATHERLY_LON": &c.Geolocation.Lon,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrConfiguration, name, v)
		}
		*dst = &f
	}
	return nil
}

// Validate checks that the selected mode is usable. A blank API key is never
// taken as a request for demo data.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLive:
		if strings.TrimSpace(c.OpenWeatherMap.APIKey) == "" {
			return fmt.Errorf("%w: live mode requires an OpenWeatherMap API key (set OPENWEATHERMAP_API_KEY or use -mode demo)", ErrConfiguration)
		}
	case ModeDemo:
	default:
		return fmt.Errorf("%w: unknown mode %q (want %q or %q)", ErrConfiguration, c.Mode, ModeLive, ModeDemo)
	}
	if (c.Geolocation.Lat == nil) != (c.Geolocation.Lon == nil) {
		return fmt.Errorf("%w: geolocation needs both lat and lon", ErrConfiguration)
	}
	if t := c.Geolocation.Timeout; t != "" {
		if d, err := time.ParseDuration(t); err != nil || d <= 0 {
			return fmt.Errorf("%w: geolocation timeout %q must be a positive duration", ErrConfiguration, t)
		}
	}
	return nil
}

// GeolocationTimeout returns the configured lookup timeout, or 0 when unset or invalid
func (c *Config) GeolocationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Geolocation.Timeout)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// NewSource builds the weather source for the configured mode
func NewSource(c *Config) (Source, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Mode == ModeDemo {
		return NewDemoProvider(), nil
	}
	p := NewOpenWeatherMapProvider(c.OpenWeatherMap.APIKey)
	if c.OpenWeatherMap.BaseURL != "" {
		p.baseURL = strings.TrimRight(c.OpenWeatherMap.BaseURL, "/")
	}
	return p, nil
}
