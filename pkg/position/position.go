package position

import (
	"time"

	"github.com/travigo/corridor/pkg/corridor"
	"github.com/travigo/corridor/pkg/ctdf"
)

// Padding is how long before entry and after exit a movement is still drawn
// on the approach or departure stretch of the path.
const Padding = 3 * time.Minute

// Estimate returns the normalized corridor position of a movement at now, or
// false when it is not in or near the corridor.
func Estimate(m *ctdf.Movement, c *corridor.Corridor, now time.Time) (float64, bool) {
	if m.Status == ctdf.MovementStatusCancelled {
		return 0, false
	}

	if m.Position != nil {
		return c.Path.Project(m.Position.Location), true
	}

	entryRef := m.Direction.FirstStation()
	exitRef := m.Direction.LastStation()

	entry, exit, ok := corridorTimes(m, c, entryRef, exitRef)
	if !ok {
		return 0, false
	}

	entryPosition := c.PositionOf(entryRef)
	exitPosition := c.PositionOf(exitRef)

	// The path end beyond the entry station, and the one beyond the exit.
	approachEnd, departureEnd := 0.0, 1.0
	if entryPosition > exitPosition {
		approachEnd, departureEnd = 1.0, 0.0
	}

	switch {
	case now.Before(entry.Add(-Padding)), now.After(exit.Add(Padding)):
		return 0, false
	case now.Before(entry):
		elapsed := now.Sub(entry.Add(-Padding))
		return lerp(approachEnd, entryPosition, fraction(elapsed, Padding)), true
	case now.After(exit):
		elapsed := now.Sub(exit)
		return lerp(exitPosition, departureEnd, fraction(elapsed, Padding)), true
	default:
		return lerp(entryPosition, exitPosition, fraction(now.Sub(entry), exit.Sub(entry))), true
	}
}

// Locate maps the estimated position onto the corridor path.
func Locate(m *ctdf.Movement, c *corridor.Corridor, now time.Time) (ctdf.Location, bool) {
	if m.Position != nil && m.Status != ctdf.MovementStatusCancelled {
		return m.Position.Location, true
	}

	normalized, ok := Estimate(m, c, now)
	if !ok {
		return ctdf.Location{}, false
	}

	return c.Path.Interpolate(normalized), true
}

// corridorTimes returns the entry and exit instants, synthesising a missing one
// from the other using the typical traverse time.
func corridorTimes(m *ctdf.Movement, c *corridor.Corridor, entryRef ctdf.StationRef, exitRef ctdf.StationRef) (time.Time, time.Time, bool) {
	var entry, exit *time.Time

	if call := m.StationCall(entryRef); call != nil {
		entry = call.BestDeparture()
	}
	if call := m.StationCall(exitRef); call != nil {
		exit = call.BestArrival()
	}

	traverse := c.RunningTime()
	if m.ServiceType == ctdf.ServiceTypeFreight {
		traverse = c.FreightTraverseTime()
	}

	switch {
	case entry == nil && exit == nil:
		return time.Time{}, time.Time{}, false
	case entry == nil:
		return exit.Add(-traverse), *exit, true
	case exit == nil:
		return *entry, entry.Add(traverse), true
	case exit.Before(*entry):
		return *entry, *entry, true
	default:
		return *entry, *exit, true
	}
}

func fraction(elapsed time.Duration, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}

	f := float64(elapsed) / float64(total)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func lerp(from float64, to float64, t float64) float64 {
	return from + (to-from)*t
}
