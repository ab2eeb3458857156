package schedule

import (
	"fmt"
	"time"

	"github.com/travigo/corridor/pkg/corridor"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/util"
)

// BuiltinMovements generates the deterministic approximation of the passenger
// service used when no published timetable is usable.
func BuiltinMovements(c *corridor.Corridor, serviceDate time.Time, now time.Time) []*ctdf.Movement {
	synthetic := c.Config.Synthetic

	first, err := ParseGTFSTime(synthetic.FirstDeparture + ":00")
	if err != nil {
		return []*ctdf.Movement{}
	}
	last, err := ParseGTFSTime(synthetic.LastDeparture + ":00")
	if err != nil {
		return []*ctdf.Movement{}
	}

	headway := time.Duration(synthetic.HeadwayMinutes) * time.Minute
	serviceDay := util.ServiceDay(serviceDate, c.Location)

	movements := []*ctdf.Movement{}
	for _, direction := range []ctdf.Direction{ctdf.DirectionTowardB, ctdf.DirectionTowardA} {
		for offset := first; offset <= last; offset += headway {
			departure := serviceDay.Add(offset)
			movements = append(movements, builtinMovement(c, serviceDate, direction, departure, offset, now))
		}
	}

	return movements
}

// BuiltinWindow returns the built-in movements with a primary time between
// from and to.
func BuiltinWindow(c *corridor.Corridor, from time.Time, to time.Time, now time.Time) []*ctdf.Movement {
	movements := []*ctdf.Movement{}
	for _, serviceDate := range util.DatesBetween(c.Midnight(from).AddDate(0, 0, -1), c.Midnight(to)) {
		movements = append(movements, BuiltinMovements(c, serviceDate, now)...)
	}

	return inWindow(movements, from, to)
}

func builtinMovement(c *corridor.Corridor, serviceDate time.Time, direction ctdf.Direction, departure time.Time, offset time.Duration, now time.Time) *ctdf.Movement {
	arrival := departure.Add(c.RunningTime())

	hours := int(offset / time.Hour)
	minutes := int((offset % time.Hour) / time.Minute)
	identifier := fmt.Sprintf("SYN-%s-%s-%02d%02d", serviceDate.Format(gtfsDateFormat), direction, hours, minutes)

	firstStation := c.Station(direction.FirstStation())
	lastStation := c.Station(direction.LastStation())

	firstCall := &ctdf.StopCall{
		StopID:             firstStation.StopIDs[0],
		StopName:           firstStation.Name,
		StationRef:         firstStation.Ref,
		ScheduledArrival:   &departure,
		ScheduledDeparture: &departure,
		Sequence:           1,
		StopsHere:          true,
	}
	lastCall := &ctdf.StopCall{
		StopID:             lastStation.StopIDs[0],
		StopName:           lastStation.Name,
		StationRef:         lastStation.Ref,
		ScheduledArrival:   &arrival,
		ScheduledDeparture: &arrival,
		Sequence:           2,
		StopsHere:          true,
	}

	movement := &ctdf.Movement{
		PrimaryIdentifier: identifier,
		RouteID:           fmt.Sprintf("%s_%s", c.Config.Synthetic.RoutePrefix, direction),
		ServiceDate:       serviceDate.Format(gtfsDateFormat),
		ServiceType:       ctdf.ServiceTypePassenger,
		Direction:         direction,
		Origin:            c.Endpoint(direction.Opposite()),
		Destination:       c.Endpoint(direction),
		Status:            ctdf.MovementStatusScheduled,
		StopCalls:         []*ctdf.StopCall{firstCall, lastCall},
		Disruptions:       []string{},
		PrimaryTime:       departure,
		Confidence: ctdf.NewConfidence(
			ctdf.ConfidenceScheduled,
			"Approximate built-in timetable; published timetable unavailable",
			ctdf.SourceBuiltinTimetable,
			now,
		),
	}

	if firstStation.Ref == ctdf.StationA {
		movement.StationA, movement.StationB = firstCall, lastCall
	} else {
		movement.StationA, movement.StationB = lastCall, firstCall
	}

	return movement
}
