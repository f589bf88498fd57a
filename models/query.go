package models

import (
	"fmt"
	"math"
	"strings"
)

// Coordinates is a latitude/longitude pair in decimal degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both values are finite and within range
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Query selects a location either by city name or by coordinates
type Query struct {
	City   string       `json:"city,omitempty"`
	Coords *Coordinates `json:"coords,omitempty"`
}

// CityQuery builds a query for a city name
func CityQuery(city string) Query {
	return Query{City: strings.TrimSpace(city)}
}

// CoordsQuery builds a query for a coordinate pair
func CoordsQuery(lat, lon float64) Query {
	return Query{Coords: &Coordinates{Lat: lat, Lon: lon}}
}

// IsCoords reports whether the query is by coordinates
func (q Query) IsCoords() bool {
	return q.Coords != nil
}

// Validate checks the input constraints of a query
func (q Query) Validate() error {
	if q.Coords != nil {
		if !q.Coords.Valid() {
			return fmt.Errorf("coordinates must be finite and in range, got %v,%v", q.Coords.Lat, q.Coords.Lon)
		}
		return nil
	}
	if strings.TrimSpace(q.City) == "" {
		return fmt.Errorf("city name must not be empty")
	}
	return nil
}

// Key returns a normalized identity for the query, used for caching
func (q Query) Key() string {
	if q.Coords != nil {
		return fmt.Sprintf("@%.2f,%.2f", q.Coords.Lat, q.Coords.Lon)
	}
	return strings.ToLower(strings.TrimSpace(q.City))
}

func (q Query) String() string {
	if q.Coords != nil {
		return q.Coords.String()
	}
	return strings.TrimSpace(q.City)
}
