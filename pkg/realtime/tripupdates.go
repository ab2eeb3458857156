package realtime

import (
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/corridor"
)

// tripDeleted is TripDescriptor.ScheduleRelationship DELETED, which older
// bindings do not name.
const tripDeleted = gtfs.TripDescriptor_ScheduleRelationship(7)

type StopUpdate struct {
	StopID   string
	Sequence int

	ArrivalTime    *time.Time
	ArrivalDelay   *time.Duration
	DepartureTime  *time.Time
	DepartureDelay *time.Duration

	Skipped bool
}

func (s *StopUpdate) HasArrival() bool {
	return s.ArrivalTime != nil || s.ArrivalDelay != nil
}

func (s *StopUpdate) HasDeparture() bool {
	return s.DepartureTime != nil || s.DepartureDelay != nil
}

// TripUpdate is the corridor-relevant part of one trip's realtime update.
type TripUpdate struct {
	TripID    string
	RouteID   string
	StartDate string
	VehicleID string

	Cancelled   bool
	StopUpdates []StopUpdate

	Timestamp time.Time
}

// ProcessTripUpdates keys the feed's trip updates by trip id, keeping only
// stop updates for corridor stops. A trip whose stop updates all fall outside
// the corridor is dropped; one with no stop updates at all is kept.
func ProcessTripUpdates(feed *gtfs.FeedMessage, c *corridor.Corridor) map[string]*TripUpdate {
	updates := map[string]*TripUpdate{}
	headerTimestamp := feedTimestamp(feed)

	skipped := 0

	for _, entity := range feed.GetEntity() {
		tripUpdate := entity.GetTripUpdate()
		if tripUpdate == nil {
			continue
		}

		trip := tripUpdate.GetTrip()
		tripID := trip.GetTripId()
		if tripID == "" {
			continue
		}

		relationship := trip.GetScheduleRelationship()

		update := &TripUpdate{
			TripID:    tripID,
			RouteID:   trip.GetRouteId(),
			StartDate: trip.GetStartDate(),
			VehicleID: tripUpdate.GetVehicle().GetId(),
			Cancelled: relationship == gtfs.TripDescriptor_CANCELED || relationship == tripDeleted,
			Timestamp: headerTimestamp,
		}
		if tripUpdate.Timestamp != nil {
			update.Timestamp = time.Unix(int64(tripUpdate.GetTimestamp()), 0)
		}

		stopTimeUpdates := tripUpdate.GetStopTimeUpdate()
		for _, stopTimeUpdate := range stopTimeUpdates {
			if !c.IsCorridorStop(stopTimeUpdate.GetStopId()) {
				continue
			}

			update.StopUpdates = append(update.StopUpdates, convertStopTimeUpdate(stopTimeUpdate))
		}

		// TODO revisit: a trip with stop updates that all miss the corridor may
		// still pass through it, but is currently ignored
		if !update.Cancelled && len(stopTimeUpdates) > 0 && len(update.StopUpdates) == 0 {
			skipped++
			continue
		}

		updates[tripID] = update
	}

	log.Debug().
		Int("trips", len(updates)).
		Int("skipped", skipped).
		Int("total", len(feed.GetEntity())).
		Msg("Processed trip updates")

	return updates
}

func convertStopTimeUpdate(stopTimeUpdate *gtfs.TripUpdate_StopTimeUpdate) StopUpdate {
	stopUpdate := StopUpdate{
		StopID:   stopTimeUpdate.GetStopId(),
		Sequence: int(stopTimeUpdate.GetStopSequence()),
		Skipped:  stopTimeUpdate.GetScheduleRelationship() == gtfs.TripUpdate_StopTimeUpdate_SKIPPED,
	}

	stopUpdate.ArrivalTime, stopUpdate.ArrivalDelay = convertStopTimeEvent(stopTimeUpdate.GetArrival())
	stopUpdate.DepartureTime, stopUpdate.DepartureDelay = convertStopTimeEvent(stopTimeUpdate.GetDeparture())

	return stopUpdate
}

func convertStopTimeEvent(event *gtfs.TripUpdate_StopTimeEvent) (*time.Time, *time.Duration) {
	if event == nil {
		return nil, nil
	}

	var absolute *time.Time
	var delay *time.Duration

	if event.Time != nil && event.GetTime() != 0 {
		t := time.Unix(event.GetTime(), 0)
		absolute = &t
	}
	if event.Delay != nil {
		d := time.Duration(event.GetDelay()) * time.Second
		delay = &d
	}

	return absolute, delay
}

func feedTimestamp(feed *gtfs.FeedMessage) time.Time {
	timestamp := feed.GetHeader().GetTimestamp()
	if timestamp == 0 {
		return time.Time{}
	}
	return time.Unix(int64(timestamp), 0)
}
