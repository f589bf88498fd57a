package models

import (
	"time"
)

// WeatherSnapshot is the normalized current-conditions reading for one city
type WeatherSnapshot struct {
	Provider    string      `json:"provider"`
	City        string      `json:"city"`
	Country     string      `json:"country"`
	Coordinates Coordinates `json:"coordinates"`

	Temperature   int     `json:"temperature"` // in Celsius, rounded
	FeelsLike     int     `json:"feelsLike"`   // in Celsius, rounded
	Humidity      int     `json:"humidity"`    // percentage
	WindSpeed     float64 `json:"windSpeed"`   // in m/s
	WindDeg       int     `json:"windDeg"`     // wind direction in degrees
	CloudCover    int     `json:"cloudCover"`  // percentage
	Pressure      int     `json:"pressure"`    // in hPa
	Visibility    int     `json:"visibility"`  // in meters
	Description   string  `json:"description"`
	Icon          string  `json:"icon"` // icon URL
	Sunrise       string  `json:"sunrise"`
	Sunset        string  `json:"sunset"`
	ObservedLocal string  `json:"observedLocal"`

	UTCOffset  int64     `json:"utcOffset"` // seconds east of UTC for the queried city
	ObservedAt time.Time `json:"observedAt"`

	// Demo is set on every snapshot produced without the live provider
	Demo bool `json:"demo"`
}

// Location formats the city and country as "City,CC"
func (w WeatherSnapshot) Location() string {
	if w.Country == "" {
		return w.City
	}
	return w.City + "," + w.Country
}
