package schedule

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/corridor"
)

const gtfsDateFormat = "20060102"

// Timetable is a published timetable trimmed down to the trips that touch the
// corridor.
type Timetable struct {
	Stops         map[string]Stop
	Routes        map[string]Route
	Trips         map[string]Trip
	StopTimes     map[string][]StopTime
	Calendars     map[string]Calendar
	CalendarDates map[string][]CalendarDate

	FetchedAt time.Time
}

type feed struct {
	Stops         []Stop
	Routes        []Route
	Trips         []Trip
	StopTimes     []StopTime
	Calendars     []Calendar
	CalendarDates []CalendarDate
}

func init() {
	// Allow us to ignore those naughty records that have missing columns
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.FieldsPerRecord = -1
		r.LazyQuotes = true
		return r
	})
}

// ParseTimetable reads a GTFS zip archive and trims it to the corridor.
func ParseTimetable(body []byte, c *corridor.Corridor) (*Timetable, error) {
	archive, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("open gtfs archive: %w", err)
	}

	parsed := &feed{}
	fileMap := map[string]interface{}{
		"stops.txt":          &parsed.Stops,
		"routes.txt":         &parsed.Routes,
		"trips.txt":          &parsed.Trips,
		"stop_times.txt":     &parsed.StopTimes,
		"calendar.txt":       &parsed.Calendars,
		"calendar_dates.txt": &parsed.CalendarDates,
	}

	for _, zipFile := range archive.File {
		destination, exists := fileMap[zipFile.Name]
		if !exists {
			log.Debug().Str("file", zipFile.Name).Msg("Skipping gtfs file")
			continue
		}

		if err := unmarshalZipFile(zipFile, destination); err != nil {
			return nil, fmt.Errorf("parse %s: %w", zipFile.Name, err)
		}
	}

	for _, required := range []string{"routes.txt", "trips.txt", "stop_times.txt"} {
		if !archiveContains(archive, required) {
			return nil, fmt.Errorf("gtfs archive missing %s", required)
		}
	}

	return trim(parsed, c), nil
}

func unmarshalZipFile(zipFile *zip.File, destination interface{}) error {
	file, err := zipFile.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	return gocsv.Unmarshal(file, destination)
}

func archiveContains(archive *zip.Reader, name string) bool {
	for _, zipFile := range archive.File {
		if zipFile.Name == name {
			return true
		}
	}
	return false
}

// IsRelevantRoute reports whether trips on the route can run through the
// corridor. Without a configured prefix list any rail route qualifies.
func IsRelevantRoute(route Route, prefixes []string) bool {
	if len(prefixes) == 0 {
		return route.Type == 2 || (route.Type >= 100 && route.Type <= 117)
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(route.ID, prefix) {
			return true
		}
	}
	return false
}

func trim(parsed *feed, c *corridor.Corridor) *Timetable {
	timetable := &Timetable{
		Stops:         map[string]Stop{},
		Routes:        map[string]Route{},
		Trips:         map[string]Trip{},
		StopTimes:     map[string][]StopTime{},
		Calendars:     map[string]Calendar{},
		CalendarDates: map[string][]CalendarDate{},
	}

	relevantRoutes := map[string]Route{}
	for _, route := range parsed.Routes {
		if IsRelevantRoute(route, c.Config.RoutePrefixes) {
			relevantRoutes[route.ID] = route
		}
	}

	stopTimesByTrip := map[string][]StopTime{}
	corridorTrips := map[string]bool{}
	for _, stopTime := range parsed.StopTimes {
		stopTimesByTrip[stopTime.TripID] = append(stopTimesByTrip[stopTime.TripID], stopTime)

		if c.IsCorridorStop(stopTime.StopID) {
			corridorTrips[stopTime.TripID] = true
		}
	}

	services := map[string]bool{}
	stops := map[string]bool{}

	for _, trip := range parsed.Trips {
		route, relevant := relevantRoutes[trip.RouteID]
		if !relevant || !corridorTrips[trip.ID] {
			continue
		}

		stopTimes := stopTimesByTrip[trip.ID]
		sort.SliceStable(stopTimes, func(i, j int) bool {
			return stopTimes[i].StopSequence < stopTimes[j].StopSequence
		})

		timetable.Trips[trip.ID] = trip
		timetable.Routes[route.ID] = route
		timetable.StopTimes[trip.ID] = stopTimes

		services[trip.ServiceID] = true
		for _, stopTime := range stopTimes {
			stops[stopTime.StopID] = true
		}
	}

	for _, stop := range parsed.Stops {
		if stops[stop.ID] && stop.Parent != "" {
			stops[stop.Parent] = true
		}
	}
	for _, stop := range parsed.Stops {
		if stops[stop.ID] {
			timetable.Stops[stop.ID] = stop
		}
	}

	for _, calendar := range parsed.Calendars {
		if services[calendar.ServiceID] {
			timetable.Calendars[calendar.ServiceID] = calendar
		}
	}

	for _, calendarDate := range parsed.CalendarDates {
		if services[calendarDate.ServiceID] {
			timetable.CalendarDates[calendarDate.ServiceID] = append(timetable.CalendarDates[calendarDate.ServiceID], calendarDate)
		}
	}

	log.Info().
		Int("routes", len(timetable.Routes)).
		Int("trips", len(timetable.Trips)).
		Int("stops", len(timetable.Stops)).
		Msg("Trimmed timetable to corridor")

	return timetable
}

// ServiceRunsOn evaluates the calendar and its exceptions for one date.
func (t *Timetable) ServiceRunsOn(serviceID string, date time.Time) bool {
	dateString := date.Format(gtfsDateFormat)

	for _, exception := range t.CalendarDates[serviceID] {
		if exception.Date != dateString {
			continue
		}

		switch exception.ExceptionType {
		case ExceptionServiceAdded:
			return true
		case ExceptionServiceRemoved:
			return false
		}
	}

	calendar, exists := t.Calendars[serviceID]
	if !exists {
		return false
	}

	// yyyymmdd compares correctly as a string
	if dateString < calendar.Start || (calendar.End != "" && dateString > calendar.End) {
		return false
	}

	return calendar.RunsOnWeekday(date.Weekday())
}

func (t *Timetable) StopName(stopID string) string {
	stop, exists := t.Stops[stopID]
	if !exists {
		return stopID
	}

	if stop.Parent != "" {
		if parent, exists := t.Stops[stop.Parent]; exists && parent.Name != "" {
			return parent.Name
		}
	}

	return stop.Name
}
