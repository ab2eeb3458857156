package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/realtime"
)

var serviceDay = time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC)

func at(hour int, minute int, second int) *time.Time {
	t := serviceDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
	return &t
}

func seconds(n int) *time.Duration {
	d := time.Duration(n) * time.Second
	return &d
}

// eightOClock departs station A at 08:00 heading toward B.
func eightOClock() *ctdf.Movement {
	central := &ctdf.StopCall{StopID: "200060", StopName: "Central", ScheduledDeparture: at(7, 50, 0), Sequence: 1, StopsHere: true}
	stationA := &ctdf.StopCall{StopID: "214112", StopName: "Lidcombe", StationRef: ctdf.StationA, ScheduledArrival: at(7, 59, 30), ScheduledDeparture: at(8, 0, 0), Sequence: 2, StopsHere: true}
	stationB := &ctdf.StopCall{StopID: "214422", StopName: "Auburn", StationRef: ctdf.StationB, ScheduledArrival: at(8, 3, 0), ScheduledDeparture: at(8, 3, 30), Sequence: 3, StopsHere: true}
	parramatta := &ctdf.StopCall{StopID: "215020", StopName: "Parramatta", ScheduledArrival: at(8, 10, 0), Sequence: 4, StopsHere: true}

	return &ctdf.Movement{
		PrimaryIdentifier: "passenger:20261020:T1",
		TripID:            "T1",
		RouteID:           "WST_1a",
		ServiceDate:       "20261020",
		ServiceType:       ctdf.ServiceTypePassenger,
		Direction:         ctdf.DirectionTowardB,
		Status:            ctdf.MovementStatusScheduled,
		StopCalls:         []*ctdf.StopCall{central, stationA, stationB, parramatta},
		StationA:          stationA,
		StationB:          stationB,
		PrimaryTime:       *at(8, 0, 0),
		Disruptions:       []string{},
		Confidence:        ctdf.NewConfidence(ctdf.ConfidenceScheduled, "Scheduled per published timetable", ctdf.SourceGTFSStatic, *at(7, 0, 0)),
	}
}

func livePosition() *ctdf.VehiclePosition {
	position := &ctdf.VehiclePosition{
		Location:  ctdf.Location{Latitude: -33.86, Longitude: 151.04},
		Timestamp: *at(8, 1, 0),
		Source:    ctdf.SourceVehiclePositions,
	}
	position.SetConsist("D6121+D6122")

	return position
}

func TestMergeWithoutRealtime(t *testing.T) {
	now := *at(7, 45, 0)

	merged := Merge([]*ctdf.Movement{eightOClock()}, nil, nil, now)
	require.Len(t, merged, 1)

	movement := merged[0]
	assert.Equal(t, ctdf.MovementStatusScheduled, movement.Status)
	assert.Equal(t, ctdf.ConfidenceScheduled, movement.Confidence.Level)
	assert.Nil(t, movement.DelayMinutes)
	assert.Nil(t, movement.EstimatedTime)
	assert.Nil(t, movement.Position)
}

func TestMergeDepartureDelay(t *testing.T) {
	now := *at(7, 45, 0)
	delays := map[string]*realtime.TripUpdate{
		"T1": {
			TripID: "T1",
			StopUpdates: []realtime.StopUpdate{
				{StopID: "214112", Sequence: 2, DepartureDelay: seconds(180)},
			},
		},
	}

	merged := Merge([]*ctdf.Movement{eightOClock()}, delays, nil, now)
	movement := merged[0]

	require.NotNil(t, movement.DelayMinutes)
	assert.Equal(t, 3, *movement.DelayMinutes)
	assert.Equal(t, ctdf.MovementStatusDelayed, movement.Status)
	assert.Equal(t, ctdf.ConfidenceConfirmedUpdated, movement.Confidence.Level)
	assert.Equal(t, []string{ctdf.SourceGTFSStatic, ctdf.SourceTripUpdates}, movement.Confidence.Sources)
	require.NotNil(t, movement.EstimatedTime)
	assert.Equal(t, *at(8, 3, 0), *movement.EstimatedTime)
	assert.Equal(t, *at(8, 0, 0), movement.PrimaryTime, "primary time stays scheduled")

	// later calls inherit the delay, earlier ones do not
	assert.Equal(t, *at(8, 6, 30), *movement.StationB.EstimatedDeparture)
	assert.Equal(t, *at(8, 6, 0), *movement.StationB.EstimatedArrival)
	assert.Equal(t, *at(8, 13, 0), *movement.StopCalls[3].EstimatedArrival)
	assert.Nil(t, movement.StopCalls[0].EstimatedDeparture)
	assert.Same(t, movement.StationA, movement.StopCalls[1])
}

func TestMergeSmallDelayIsLive(t *testing.T) {
	delays := map[string]*realtime.TripUpdate{
		"T1": {TripID: "T1", StopUpdates: []realtime.StopUpdate{{StopID: "214112", DepartureDelay: seconds(90)}}},
	}

	movement := Merge([]*ctdf.Movement{eightOClock()}, delays, nil, *at(7, 45, 0))[0]

	assert.Equal(t, 2, *movement.DelayMinutes)
	assert.Equal(t, ctdf.MovementStatusLive, movement.Status)
}

func TestMergeDelayThenPosition(t *testing.T) {
	delays := map[string]*realtime.TripUpdate{
		"T1": {TripID: "T1", StopUpdates: []realtime.StopUpdate{{StopID: "214112", DepartureDelay: seconds(180)}}},
	}
	positions := map[string]*ctdf.VehiclePosition{"T1": livePosition()}

	movement := Merge([]*ctdf.Movement{eightOClock()}, delays, positions, *at(8, 1, 0))[0]

	assert.Equal(t, ctdf.ConfidenceConfirmedLive, movement.Confidence.Level)
	assert.Equal(t, LivePositionReason, movement.Confidence.Reason)
	assert.Equal(t, ctdf.MovementStatusDelayed, movement.Status, "position never reverts a delayed status")
	assert.Equal(t, 3, *movement.DelayMinutes)
	require.NotNil(t, movement.Position)
	assert.Equal(t, "D6121+D6122", movement.Consist)
	assert.Equal(t, []string{ctdf.SourceGTFSStatic, ctdf.SourceTripUpdates, ctdf.SourceVehiclePositions}, movement.Confidence.Sources)
}

func TestMergePositionOnly(t *testing.T) {
	positions := map[string]*ctdf.VehiclePosition{"T1": livePosition()}

	movement := Merge([]*ctdf.Movement{eightOClock()}, nil, positions, *at(8, 1, 0))[0]

	assert.Equal(t, ctdf.MovementStatusLive, movement.Status)
	assert.Equal(t, ctdf.ConfidenceConfirmedLive, movement.Confidence.Level)
	assert.NotNil(t, movement.Position)
	assert.Nil(t, movement.DelayMinutes)
}

func TestMergeCancelled(t *testing.T) {
	delays := map[string]*realtime.TripUpdate{"T1": {TripID: "T1", Cancelled: true}}

	movement := Merge([]*ctdf.Movement{eightOClock()}, delays, nil, *at(7, 45, 0))[0]

	assert.Equal(t, ctdf.MovementStatusCancelled, movement.Status)
	assert.Equal(t, ctdf.ConfidenceConfirmedUpdated, movement.Confidence.Level)
	assert.Equal(t, CancelledReason, movement.Confidence.Reason)
	assert.Equal(t, []string{CancelledReason}, movement.Disruptions)

	positions := map[string]*ctdf.VehiclePosition{"T1": livePosition()}
	movement = Merge([]*ctdf.Movement{eightOClock()}, delays, positions, *at(7, 45, 0))[0]
	assert.Equal(t, ctdf.MovementStatusCancelled, movement.Status)
}

func TestMergeAbsoluteTimeBeatsDelay(t *testing.T) {
	delays := map[string]*realtime.TripUpdate{
		"T1": {TripID: "T1", StopUpdates: []realtime.StopUpdate{
			{StopID: "214112", DepartureTime: at(8, 5, 0), DepartureDelay: seconds(60)},
		}},
	}

	movement := Merge([]*ctdf.Movement{eightOClock()}, delays, nil, *at(7, 45, 0))[0]

	assert.Equal(t, 5, *movement.DelayMinutes)
	assert.Equal(t, *at(8, 5, 0), *movement.StationA.EstimatedDeparture)
}

func TestMergeArrivalDelayPropagatesToDeparture(t *testing.T) {
	delays := map[string]*realtime.TripUpdate{
		"T1": {TripID: "T1", StopUpdates: []realtime.StopUpdate{{StopID: "214112", ArrivalDelay: seconds(240)}}},
	}

	movement := Merge([]*ctdf.Movement{eightOClock()}, delays, nil, *at(7, 45, 0))[0]

	assert.Equal(t, *at(8, 3, 30), *movement.StationA.EstimatedArrival)
	assert.Equal(t, *at(8, 4, 0), *movement.StationA.EstimatedDeparture)
	assert.Equal(t, 4, *movement.DelayMinutes)
}

func TestMergeMatchesPlatformChangeBySequence(t *testing.T) {
	delays := map[string]*realtime.TripUpdate{
		"T1": {TripID: "T1", StopUpdates: []realtime.StopUpdate{{StopID: "214113", Sequence: 2, DepartureDelay: seconds(300)}}},
	}

	movement := Merge([]*ctdf.Movement{eightOClock()}, delays, nil, *at(7, 45, 0))[0]

	assert.Equal(t, 5, *movement.DelayMinutes)
}

func TestMergeSkippedStop(t *testing.T) {
	delays := map[string]*realtime.TripUpdate{
		"T1": {TripID: "T1", StopUpdates: []realtime.StopUpdate{{StopID: "214422", Skipped: true}}},
	}

	movement := Merge([]*ctdf.Movement{eightOClock()}, delays, nil, *at(7, 45, 0))[0]

	assert.False(t, movement.StationB.StopsHere)
	assert.Contains(t, movement.Disruptions, "Not stopping at Auburn")
	assert.Equal(t, ctdf.MovementStatusLive, movement.Status)
	assert.Nil(t, movement.DelayMinutes)
}

func TestMergeLeavesBaselineUntouched(t *testing.T) {
	baseline := []*ctdf.Movement{eightOClock()}
	delays := map[string]*realtime.TripUpdate{
		"T1": {TripID: "T1", StopUpdates: []realtime.StopUpdate{{StopID: "214112", DepartureDelay: seconds(180)}}},
	}
	positions := map[string]*ctdf.VehiclePosition{"T1": livePosition()}

	merged := Merge(baseline, delays, positions, *at(8, 1, 0))

	assert.Equal(t, ctdf.MovementStatusScheduled, baseline[0].Status)
	assert.Equal(t, ctdf.ConfidenceScheduled, baseline[0].Confidence.Level)
	assert.Nil(t, baseline[0].StationA.EstimatedDeparture)
	assert.Nil(t, baseline[0].Position)
	assert.Equal(t, []string{ctdf.SourceGTFSStatic}, baseline[0].Confidence.Sources)

	assert.NotSame(t, baseline[0], merged[0])
	assert.Equal(t, baseline[0].PrimaryTime, merged[0].PrimaryTime)
	assert.Equal(t, *baseline[0].StationB.ScheduledArrival, *merged[0].StationB.ScheduledArrival)
}

func TestMergeDropsUnknownTrips(t *testing.T) {
	delays := map[string]*realtime.TripUpdate{"GHOST": {TripID: "GHOST", Cancelled: true}}
	positions := map[string]*ctdf.VehiclePosition{"GHOST": livePosition()}

	merged := Merge([]*ctdf.Movement{eightOClock()}, delays, positions, *at(7, 45, 0))

	require.Len(t, merged, 1)
	assert.Equal(t, ctdf.MovementStatusScheduled, merged[0].Status)
}

func TestMergePicksServiceDay(t *testing.T) {
	today := eightOClock()

	yesterday := eightOClock()
	yesterday.PrimaryIdentifier = "passenger:20261019:T1"
	yesterday.ServiceDate = "20261019"
	yesterday.PrimaryTime = yesterday.PrimaryTime.Add(-24 * time.Hour)

	cancelled := map[string]*realtime.TripUpdate{"T1": {TripID: "T1", StartDate: "20261019", Cancelled: true}}
	merged := Merge([]*ctdf.Movement{today, yesterday}, cancelled, nil, *at(7, 45, 0))
	assert.Equal(t, ctdf.MovementStatusScheduled, merged[0].Status)
	assert.Equal(t, ctdf.MovementStatusCancelled, merged[1].Status)

	undated := map[string]*realtime.TripUpdate{"T1": {TripID: "T1", Cancelled: true}}
	merged = Merge([]*ctdf.Movement{today, yesterday}, undated, nil, *at(7, 45, 0))
	assert.Equal(t, ctdf.MovementStatusCancelled, merged[0].Status, "closest to now")
	assert.Equal(t, ctdf.MovementStatusScheduled, merged[1].Status)

	tomorrow := map[string]*realtime.TripUpdate{"T1": {TripID: "T1", StartDate: "20261021", Cancelled: true}}
	merged = Merge([]*ctdf.Movement{today}, tomorrow, nil, *at(7, 45, 0))
	assert.Equal(t, ctdf.MovementStatusScheduled, merged[0].Status, "other service day dropped")
	assert.Equal(t, ctdf.ConfidenceScheduled, merged[0].Confidence.Level)
	assert.Empty(t, merged[0].Disruptions)
}

func TestConfirmedLiveAlwaysHasPosition(t *testing.T) {
	baseline := []*ctdf.Movement{eightOClock()}
	other := eightOClock()
	other.TripID = "T9"
	other.PrimaryIdentifier = "passenger:20261020:T9"
	baseline = append(baseline, other)

	delays := map[string]*realtime.TripUpdate{
		"T1": {TripID: "T1", StopUpdates: []realtime.StopUpdate{{StopID: "214112", DepartureDelay: seconds(60)}}},
		"T9": {TripID: "T9", Cancelled: true},
	}
	positions := map[string]*ctdf.VehiclePosition{"T1": livePosition()}

	for _, movement := range Merge(baseline, delays, positions, *at(8, 0, 0)) {
		if movement.Confidence.Level == ctdf.ConfidenceConfirmedLive {
			assert.NotNil(t, movement.Position, movement.PrimaryIdentifier)
		}
	}
}
