package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/drewbanne/Weatherly/localtime"
	"github.com/drewbanne/Weatherly/models"
)

// DefaultOpenWeatherMapURL is the base of the OpenWeatherMap 2.5 API
const DefaultOpenWeatherMapURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherMapProvider implements both WeatherProvider and ForecastSource interfaces
type OpenWeatherMapProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewOpenWeatherMapProvider creates a new OpenWeatherMap provider
func NewOpenWeatherMapProvider(apiKey string) *OpenWeatherMapProvider {
	return &OpenWeatherMapProvider{
		apiKey:  apiKey,
		baseURL: DefaultOpenWeatherMapURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the provider name
func (p *OpenWeatherMapProvider) Name() string {
	return "OpenWeatherMap"
}

// currentResponse is the subset of /weather the snapshot is built from
type currentResponse struct {
	Name  string `json:"name"`
	Dt    int64  `json:"dt"`
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Timezone int64 `json:"timezone"`
	Main     struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Visibility int `json:"visibility"`
	Weather    []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Sys struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
}

// forecastResponse is the subset of /forecast the feed is built from
type forecastResponse struct {
	City struct {
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone int64  `json:"timezone"`
	} `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
			Icon        string `json:"icon"`
		} `json:"weather"`
	} `json:"list"`
}

// apiError is the body OpenWeatherMap sends with non-2xx responses
type apiError struct {
	Cod     any    `json:"cod"` // int or string depending on the endpoint
	Message string `json:"message"`
}

// GetWeather fetches current weather for a city or coordinate pair
func (p *OpenWeatherMapProvider) GetWeather(ctx context.Context, q models.Query) (models.WeatherSnapshot, error) {
	var response currentResponse
	if err := p.get(ctx, "weather", q, &response); err != nil {
		return models.WeatherSnapshot{}, err
	}

	description, icon := "—", ""
	if len(response.Weather) > 0 {
		description = response.Weather[0].Description
		icon = IconURL(response.Weather[0].Icon)
	}

	offset := response.Timezone
	return models.WeatherSnapshot{
		Provider:      p.Name(),
		City:          response.Name,
		Country:       response.Sys.Country,
		Coordinates:   models.Coordinates{Lat: response.Coord.Lat, Lon: response.Coord.Lon},
		Temperature:   round(response.Main.Temp),
		FeelsLike:     round(response.Main.FeelsLike),
		Humidity:      response.Main.Humidity,
		WindSpeed:     response.Wind.Speed,
		WindDeg:       response.Wind.Deg,
		CloudCover:    response.Clouds.All,
		Pressure:      response.Main.Pressure,
		Visibility:    response.Visibility,
		Description:   description,
		Icon:          icon,
		Sunrise:       localtime.Format(response.Sys.Sunrise, offset, false),
		Sunset:        localtime.Format(response.Sys.Sunset, offset, false),
		ObservedLocal: localtime.Format(response.Dt, offset, true),
		UTCOffset:     offset,
		ObservedAt:    time.Unix(response.Dt, 0).UTC(),
	}, nil
}

// FetchForecast fetches the 5-day/3-hour forecast feed for a city or coordinate pair
func (p *OpenWeatherMapProvider) FetchForecast(ctx context.Context, q models.Query) (models.ForecastFeed, error) {
	var response forecastResponse
	if err := p.get(ctx, "forecast", q, &response); err != nil {
		return models.ForecastFeed{}, err
	}

	feed := models.ForecastFeed{
		Provider:  p.Name(),
		City:      response.City.Name,
		Country:   response.City.Country,
		UTCOffset: response.City.Timezone,
		Samples:   make([]models.ForecastSample, 0, len(response.List)),
	}

	for _, item := range response.List {
		description, icon := "", ""
		if len(item.Weather) > 0 {
			description = item.Weather[0].Description
			icon = item.Weather[0].Icon
		}
		feed.Samples = append(feed.Samples, models.ForecastSample{
			Timestamp:   item.Dt,
			Temperature: item.Main.Temp,
			Description: description,
			Icon:        icon,
		})
	}

	return feed, nil
}

// get performs a GET against endpoint with the query's location parameters and decodes the JSON body into out
func (p *OpenWeatherMapProvider) get(ctx context.Context, endpoint string, q models.Query, out any) error {
	if err := q.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}

	params := url.Values{}
	if q.IsCoords() {
		params.Set("lat", strconv.FormatFloat(q.Coords.Lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(q.Coords.Lon, 'f', -1, 64))
	} else {
		params.Set("q", q.String())
	}
	params.Set("appid", p.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return networkError("failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to parse response: %w", ErrProvider, err)
	}
	return nil
}

// decodeAPIError builds a ProviderError carrying the provider's message when present
func decodeAPIError(status int, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)

	perr := &ProviderError{StatusCode: status, Message: apiErr.Message}
	if perr.Message == "" {
		if status == http.StatusNotFound {
			perr.Message = "city not found"
		} else {
			perr.Message = http.StatusText(status)
		}
	}
	return perr
}

// IconURL expands an OpenWeatherMap icon code into its image URL
func IconURL(code string) string {
	if code == "" {
		return ""
	}
	return fmt.Sprintf("https://openweathermap.org/img/wn/%s@2x.png", code)
}

func round(f float64) int {
	return int(math.Round(f))
}
