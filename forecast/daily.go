// Package forecast collapses the provider's 3-hour forecast feed into one
// representative sample per city-local calendar day.
package forecast

import (
	"github.com/drewbanne/Weatherly/localtime"
	"github.com/drewbanne/Weatherly/models"
)

const (
	// MaxDays bounds the number of buckets returned by Reduce
	MaxDays = 5
	// targetMinute is 14:00 local, the representative daytime hour
	targetMinute = 14 * 60
)

// Reduce groups samples by city-local date and keeps, for each date, the
// sample whose local time is closest to 14:00. Buckets keep the order in
// which their dates first appear and are truncated to MaxDays.
func Reduce(samples []models.ForecastSample, utcOffsetSeconds int64) []models.DailyForecastBucket {
	buckets := make([]models.DailyForecastBucket, 0, MaxDays)
	index := make(map[string]int)
	distance := make([]int, 0, MaxDays)

	for _, sample := range samples {
		local := localtime.In(sample.Timestamp, utcOffsetSeconds)
		key := local.Format(localtime.DateKeyLayout)
		d := abs(local.Hour()*60 + local.Minute() - targetMinute)

		i, seen := index[key]
		if !seen {
			index[key] = len(buckets)
			buckets = append(buckets, models.DailyForecastBucket{
				Date:    key,
				Weekday: local.Weekday().String(),
				Sample:  sample,
				Low:     sample.Temperature,
				High:    sample.Temperature,
			})
			distance = append(distance, d)
			continue
		}

		b := &buckets[i]
		if sample.Temperature < b.Low {
			b.Low = sample.Temperature
		}
		if sample.Temperature > b.High {
			b.High = sample.Temperature
		}
		// strictly closer only, so the first-seen sample wins ties
		if d < distance[i] {
			b.Sample = sample
			distance[i] = d
		}
	}

	if len(buckets) > MaxDays {
		buckets = buckets[:MaxDays]
	}
	return buckets
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
