package util

import (
	"time"
)

// ServiceDay returns the instant a GTFS-style time offset is measured from:
// noon minus twelve hours on the given date, which is local midnight except
// on days with a daylight saving change.
func ServiceDay(date time.Time, location *time.Location) time.Time {
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, location)

	return noon.Add(-12 * time.Hour)
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DatesBetween lists every calendar date from start to end inclusive.
func DatesBetween(start time.Time, end time.Time) []time.Time {
	dates := []time.Time{}

	start = DateOnly(start)
	end = DateOnly(end)

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		dates = append(dates, date)
	}

	return dates
}
