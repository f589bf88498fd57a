package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/drewbanne/Weatherly/models"
)

const testAPIKey = "test-key"

// 2024-03-15 12:00:00 UTC
const londonNoon = 1710504000

const currentBody = `{
  "coord": {"lon": 18.4241, "lat": -33.9249},
  "weather": [{"id": 800, "main": "Clear", "description": "clear sky", "icon": "01d"}],
  "main": {"temp": 21.56, "feels_like": 20.4, "pressure": 1015, "humidity": 55},
  "visibility": 10000,
  "wind": {"speed": 5.14, "deg": 160},
  "clouds": {"all": 0},
  "dt": 1710504000,
  "sys": {"country": "ZA", "sunrise": 1710477000, "sunset": 1710521400},
  "timezone": 7200,
  "name": "Cape Town",
  "cod": 200
}`

const forecastBody = `{
  "cod": "200",
  "list": [
    {"dt": 1710504000, "main": {"temp": 21.2}, "weather": [{"description": "clear sky", "icon": "01d"}]},
    {"dt": 1710514800, "main": {"temp": 23.9}, "weather": [{"description": "few clouds", "icon": "02d"}]},
    {"dt": 1710525600, "main": {"temp": 19.0}, "weather": []}
  ],
  "city": {"name": "Cape Town", "country": "ZA", "timezone": 7200}
}`

func newTestProvider(baseURL string) *OpenWeatherMapProvider {
	p := NewOpenWeatherMapProvider(testAPIKey)
	p.baseURL = baseURL
	p.httpClient.Timeout = 2 * time.Second
	return p
}

func TestGetWeatherByCity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("expected path /weather, got %s", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("q"); got != "Cape Town" {
			t.Errorf("expected q=Cape Town, got %s", got)
		}
		if got := q.Get("appid"); got != testAPIKey {
			t.Errorf("expected appid=%s, got %s", testAPIKey, got)
		}
		if got := q.Get("units"); got != "metric" {
			t.Errorf("expected units=metric, got %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	got, err := newTestProvider(srv.URL).GetWeather(context.Background(), models.CityQuery("  Cape Town "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.City != "Cape Town" || got.Country != "ZA" {
		t.Errorf("expected Cape Town,ZA, got %s", got.Location())
	}
	if got.Temperature != 22 {
		t.Errorf("expected rounded temperature 22, got %d", got.Temperature)
	}
	if got.FeelsLike != 20 {
		t.Errorf("expected rounded feels-like 20, got %d", got.FeelsLike)
	}
	if got.Humidity != 55 || got.Pressure != 1015 || got.Visibility != 10000 || got.CloudCover != 0 {
		t.Errorf("unexpected readings: %+v", got)
	}
	if got.WindSpeed != 5.14 || got.WindDeg != 160 {
		t.Errorf("unexpected wind: %v m/s %d deg", got.WindSpeed, got.WindDeg)
	}
	if got.Icon != "https://openweathermap.org/img/wn/01d@2x.png" {
		t.Errorf("unexpected icon %q", got.Icon)
	}
	if got.UTCOffset != 7200 {
		t.Errorf("expected offset 7200, got %d", got.UTCOffset)
	}
	// sunrise 04:30 UTC and sunset 16:50 UTC are 06:30 and 18:50 in Cape Town
	if got.Sunrise != "6:30 AM" {
		t.Errorf("expected sunrise 6:30 AM, got %q", got.Sunrise)
	}
	if got.Sunset != "6:50 PM" {
		t.Errorf("expected sunset 6:50 PM, got %q", got.Sunset)
	}
	if got.ObservedLocal != "Friday, March 15, 2024 2:00 PM" {
		t.Errorf("unexpected observation time %q", got.ObservedLocal)
	}
	if !got.ObservedAt.Equal(time.Unix(londonNoon, 0)) {
		t.Errorf("unexpected ObservedAt %v", got.ObservedAt)
	}
	if got.Demo {
		t.Error("live snapshot must not be marked demo")
	}
}

func TestGetWeatherByCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "" {
			t.Errorf("expected no q parameter, got %s", q.Get("q"))
		}
		if q.Get("lat") != "-33.9249" || q.Get("lon") != "18.4241" {
			t.Errorf("unexpected coordinates lat=%s lon=%s", q.Get("lat"), q.Get("lon"))
		}
		w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	got, err := newTestProvider(srv.URL).GetWeather(context.Background(), models.CoordsQuery(-33.9249, 18.4241))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Coordinates.Lat != -33.9249 {
		t.Errorf("unexpected coordinates %+v", got.Coordinates)
	}
}

func TestGetWeatherMissingCondition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "Nowhere", "weather": [], "timezone": 0}`))
	}))
	defer srv.Close()

	got, err := newTestProvider(srv.URL).GetWeather(context.Background(), models.CityQuery("Nowhere"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Description != "—" || got.Icon != "" {
		t.Errorf("expected placeholder description and no icon, got %q %q", got.Description, got.Icon)
	}
}

func TestGetWeatherErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		sentinel error
		message  string
	}{
		{"404 with message", http.StatusNotFound, `{"cod":"404","message":"city not found"}`, ErrNotFound, "city not found"},
		{"404 without body", http.StatusNotFound, ``, ErrNotFound, "city not found"},
		{"400 not found message", http.StatusBadRequest, `{"cod":"400","message":"Nothing to geocode: not found"}`, ErrNotFound, "Nothing to geocode: not found"},
		{"401 invalid key", http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`, ErrProvider, "Invalid API key"},
		{"500 plain text", http.StatusInternalServerError, `internal server error`, ErrProvider, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestProvider(srv.URL).GetWeather(context.Background(), models.CityQuery("Nowhere12345"))
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("expected %v, got %v", tt.sentinel, err)
			}
			var perr *ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ProviderError, got %T", err)
			}
			if perr.StatusCode != tt.status || perr.Message != tt.message {
				t.Errorf("expected %d %q, got %d %q", tt.status, tt.message, perr.StatusCode, perr.Message)
			}
		})
	}
}

func TestGetWeatherInvalidQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an invalid query")
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL)
	for _, q := range []models.Query{models.CityQuery("   "), models.CoordsQuery(91, 0)} {
		if _, err := p.GetWeather(context.Background(), q); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("query %+v: expected ErrInvalidQuery, got %v", q, err)
		}
	}
}

func TestGetWeatherContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestProvider(srv.URL).GetWeather(ctx, models.CityQuery("London"))
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected the context error to be preserved, got %v", err)
	}
}

func TestFetchForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("expected path /forecast, got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("units"); got != "metric" {
			t.Errorf("expected units=metric, got %s", got)
		}
		w.Write([]byte(forecastBody))
	}))
	defer srv.Close()

	feed, err := newTestProvider(srv.URL).FetchForecast(context.Background(), models.CityQuery("Cape Town"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed.UTCOffset != 7200 || feed.City != "Cape Town" {
		t.Errorf("unexpected feed header: %+v", feed)
	}
	if len(feed.Samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(feed.Samples))
	}
	if feed.Samples[1].Temperature != 23.9 || feed.Samples[1].Icon != "02d" {
		t.Errorf("unexpected sample: %+v", feed.Samples[1])
	}
	if feed.Samples[2].Description != "" {
		t.Errorf("expected empty description for missing weather, got %q", feed.Samples[2].Description)
	}
}
