package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/corridor"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/util"
)

// ParseGTFSTime parses HH:MM:SS into an offset from the start of the service
// day. Hours may run past 24 for services that cross midnight.
func ParseGTFSTime(value string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid gtfs time %q", value)
	}

	var fields [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid gtfs time %q", value)
		}
		fields[i] = n
	}

	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid gtfs time %q", value)
	}

	return time.Duration(fields[0])*time.Hour + time.Duration(fields[1])*time.Minute + time.Duration(fields[2])*time.Second, nil
}

// ProjectTime turns a GTFS time on a service date into an absolute instant.
// Empty or unparseable values give nil.
func ProjectTime(serviceDate time.Time, value string, location *time.Location) *time.Time {
	if value == "" {
		return nil
	}

	offset, err := ParseGTFSTime(value)
	if err != nil {
		return nil
	}

	projected := util.ServiceDay(serviceDate, location).Add(offset)
	return &projected
}

// BuildMovements creates the scheduled movements running on serviceDate.
func BuildMovements(timetable *Timetable, c *corridor.Corridor, serviceDate time.Time, now time.Time) []*ctdf.Movement {
	movements := []*ctdf.Movement{}

	for tripID, trip := range timetable.Trips {
		if !timetable.ServiceRunsOn(trip.ServiceID, serviceDate) {
			continue
		}

		movement := buildMovement(timetable, c, trip, timetable.StopTimes[tripID], serviceDate, now)
		if movement == nil {
			continue
		}

		movements = append(movements, movement)
	}

	return movements
}

func buildMovement(timetable *Timetable, c *corridor.Corridor, trip Trip, stopTimes []StopTime, serviceDate time.Time, now time.Time) *ctdf.Movement {
	if len(stopTimes) == 0 {
		return nil
	}

	movement := &ctdf.Movement{
		PrimaryIdentifier: ctdf.MovementID(ctdf.ServiceTypePassenger, serviceDate, trip.ID),
		TripID:            trip.ID,
		RunID:             trip.Name,
		RouteID:           trip.RouteID,
		ServiceDate:       serviceDate.Format(gtfsDateFormat),
		ServiceType:       ctdf.ServiceTypePassenger,
		Status:            ctdf.MovementStatusScheduled,
		Origin:            timetable.StopName(stopTimes[0].StopID),
		Destination:       timetable.StopName(stopTimes[len(stopTimes)-1].StopID),
		Disruptions:       []string{},
		Confidence: ctdf.NewConfidence(
			ctdf.ConfidenceScheduled,
			"Scheduled per published timetable",
			ctdf.SourceGTFSStatic,
			now,
		),
	}
	if trip.Headsign != "" {
		movement.Destination = trip.Headsign
	}

	for _, stopTime := range stopTimes {
		call := &ctdf.StopCall{
			StopID:             stopTime.StopID,
			StopName:           timetable.StopName(stopTime.StopID),
			ScheduledArrival:   ProjectTime(serviceDate, stopTime.ArrivalTime, c.Location),
			ScheduledDeparture: ProjectTime(serviceDate, stopTime.DepartureTime, c.Location),
			Platform:           platform(timetable, c, stopTime.StopID),
			Sequence:           stopTime.StopSequence,
			StopsHere:          stopTime.StopsHere(),
		}
		movement.StopCalls = append(movement.StopCalls, call)

		station, isCorridorStop := c.StationForStop(stopTime.StopID)
		if !isCorridorStop || movement.HasCallAt(station) {
			continue
		}

		call.StationRef = station
		if station == ctdf.StationA {
			movement.StationA = call
		} else {
			movement.StationB = call
		}
	}

	direction, ok := inferDirection(movement, trip, c)
	if !ok {
		log.Debug().Str("trip", trip.ID).Msg("Could not infer corridor direction")
		return nil
	}
	movement.Direction = direction

	movement.PassesThrough = true
	for _, call := range movement.CorridorCalls() {
		if call.StopsHere {
			movement.PassesThrough = false
		}
	}

	if !movement.RefreshPrimaryTime() {
		return nil
	}

	return movement
}

// inferDirection uses stop sequence order when both stations are called at,
// falling back to the configured direction_id mapping.
func inferDirection(movement *ctdf.Movement, trip Trip, c *corridor.Corridor) (ctdf.Direction, bool) {
	if movement.StationA != nil && movement.StationB != nil {
		if movement.StationA.Sequence < movement.StationB.Sequence {
			return ctdf.DirectionTowardB, true
		}
		return ctdf.DirectionTowardA, true
	}

	directionID, ok := trip.Direction()
	if !ok {
		return "", false
	}

	direction, ok := c.Config.DirectionIDs[directionID]
	return direction, ok
}

func platform(timetable *Timetable, c *corridor.Corridor, stopID string) string {
	if platform := c.Platform(stopID); platform != "" {
		return platform
	}
	return timetable.Stops[stopID].PlatformCode
}
