// Package localtime renders UTC instants as wall-clock time in a queried
// city's zone, given that city's numeric UTC offset.
//
// Conversion never consults the host's time zone: the offset is applied
// through a fixed zone, so two cities formatted back to back each get their
// own clock regardless of where the process runs.
package localtime

import "time"

const (
	// TimeLayout is a 12-hour clock with AM/PM
	TimeLayout = "3:04 PM"
	// DateTimeLayout prefixes the clock with weekday, month, day and year
	DateTimeLayout = "Monday, January 2, 2006 3:04 PM"
	// DateKeyLayout identifies a calendar day
	DateKeyLayout = "2006-01-02"
)

// Zone returns a fixed zone for the offset, in seconds east of UTC
func Zone(utcOffsetSeconds int64) *time.Location {
	return time.FixedZone("", int(utcOffsetSeconds))
}

// In returns the instant unixSeconds as seen in the zone with the given offset
func In(unixSeconds, utcOffsetSeconds int64) time.Time {
	return time.Unix(unixSeconds, 0).In(Zone(utcOffsetSeconds))
}

// Format renders unixSeconds as city-local time, optionally with the full date
func Format(unixSeconds, utcOffsetSeconds int64, includeDate bool) string {
	t := In(unixSeconds, utcOffsetSeconds)
	if includeDate {
		return t.Format(DateTimeLayout)
	}
	return t.Format(TimeLayout)
}

// DateKey returns the city-local calendar date of unixSeconds
func DateKey(unixSeconds, utcOffsetSeconds int64) string {
	return In(unixSeconds, utcOffsetSeconds).Format(DateKeyLayout)
}
