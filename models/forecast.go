package models

// ForecastSample is one raw 3-hour-interval forecast entry
type ForecastSample struct {
	Timestamp   int64   `json:"timestamp"`   // unix seconds, UTC
	Temperature float64 `json:"temperature"` // in Celsius
	Description string  `json:"description"`
	Icon        string  `json:"icon"` // provider icon code
}

// ForecastFeed is the raw multi-day feed for one city
type ForecastFeed struct {
	Provider  string           `json:"provider"`
	City      string           `json:"city"`
	Country   string           `json:"country"`
	UTCOffset int64            `json:"utcOffset"`
	Samples   []ForecastSample `json:"samples"`
	Demo      bool             `json:"demo"`
}

// DailyForecastBucket is the sample chosen to stand in for one city-local calendar day
type DailyForecastBucket struct {
	Date    string         `json:"date"`    // city-local date, 2006-01-02
	Weekday string         `json:"weekday"` // e.g. "Monday"
	Sample  ForecastSample `json:"sample"`
	Low     float64        `json:"low"`  // lowest sample temperature of the day
	High    float64        `json:"high"` // highest sample temperature of the day
}
