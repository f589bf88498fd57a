// Package geo determines the approximate position of the host, standing in
// for the browser geolocation call of a web front end.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/drewbanne/Weatherly/datasource"
	"github.com/drewbanne/Weatherly/models"
)

const (
	// DefaultEndpoint is an ip-api compatible lookup of the caller's address
	DefaultEndpoint = "http://ip-api.com/json/?fields=status,message,lat,lon"
	// DefaultTimeout bounds a single lookup; there is no retry
	DefaultTimeout = 5 * time.Second
)

// Locator finds the current position
type Locator interface {
	Locate(ctx context.Context) (models.Coordinates, error)
}

// StaticLocator always answers with configured coordinates
type StaticLocator struct {
	Coords models.Coordinates
}

// Locate returns the configured coordinates
func (s StaticLocator) Locate(ctx context.Context) (models.Coordinates, error) {
	if !s.Coords.Valid() {
		return models.Coordinates{}, fmt.Errorf("%w: configured position %v is invalid", datasource.ErrGeolocation, s.Coords)
	}
	return s.Coords, nil
}

// IPLocator resolves the host's public address to coordinates over HTTP
type IPLocator struct {
	endpoint   string
	httpClient *http.Client
}

// NewIPLocator creates an IP geolocation client. An empty endpoint uses DefaultEndpoint.
func NewIPLocator(endpoint string) *IPLocator {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &IPLocator{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// ipResponse is the lookup body; status is "success" or "fail"
type ipResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Locate asks the lookup service where the host is
func (l *IPLocator) Locate(ctx context.Context) (models.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint, nil)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %w", datasource.ErrGeolocation, err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %w", datasource.ErrGeolocation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinates{}, fmt.Errorf("%w: lookup returned HTTP %d", datasource.ErrGeolocation, resp.StatusCode)
	}

	var body ipResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: failed to parse lookup: %w", datasource.ErrGeolocation, err)
	}
	if body.Status != "success" {
		msg := body.Message
		if msg == "" {
			msg = "position denied"
		}
		return models.Coordinates{}, fmt.Errorf("%w: %s", datasource.ErrGeolocation, msg)
	}

	coords := models.Coordinates{Lat: body.Lat, Lon: body.Lon}
	if !coords.Valid() {
		return models.Coordinates{}, fmt.Errorf("%w: lookup returned invalid position %v", datasource.ErrGeolocation, coords)
	}
	return coords, nil
}

// timeoutLocator bounds every lookup with a deadline
type timeoutLocator struct {
	next    Locator
	timeout time.Duration
}

// WithTimeout wraps loc so each lookup fails with ErrGeolocation after d
func WithTimeout(loc Locator, d time.Duration) Locator {
	return &timeoutLocator{next: loc, timeout: d}
}

func (t *timeoutLocator) Locate(ctx context.Context) (models.Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	coords, err := t.next.Locate(ctx)
	if err == nil {
		return coords, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.Coordinates{}, fmt.Errorf("%w: timed out after %s", datasource.ErrGeolocation, t.timeout)
	}
	if !errors.Is(err, datasource.ErrGeolocation) {
		err = fmt.Errorf("%w: %w", datasource.ErrGeolocation, err)
	}
	return models.Coordinates{}, err
}

// FromConfig builds the locator described by the configuration: fixed
// coordinates when both are set, IP lookup otherwise. Lookups are bounded by
// the configured timeout, or DefaultTimeout.
func FromConfig(c *datasource.Config) Locator {
	timeout := c.GeolocationTimeout()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if c.Geolocation.Lat != nil && c.Geolocation.Lon != nil {
		return WithTimeout(StaticLocator{Coords: models.Coordinates{Lat: *c.Geolocation.Lat, Lon: *c.Geolocation.Lon}}, timeout)
	}
	return WithTimeout(NewIPLocator(c.Geolocation.Endpoint), timeout)
}
