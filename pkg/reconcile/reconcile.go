package reconcile

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/realtime"
)

const (
	DelayedThresholdMinutes = 2

	CancelledReason    = "Cancelled per realtime update"
	LivePositionReason = "Live position confirmed"
)

var copyOptions = copier.Option{
	DeepCopy: true,
	Converters: []copier.TypeConverter{
		{
			SrcType: time.Time{},
			DstType: time.Time{},
			Fn: func(src interface{}) (interface{}, error) {
				return src.(time.Time), nil
			},
		},
		{
			SrcType: &time.Time{},
			DstType: &time.Time{},
			Fn: func(src interface{}) (interface{}, error) {
				t := src.(*time.Time)
				if t == nil {
					return t, nil
				}
				copied := *t
				return &copied, nil
			},
		},
	},
}

// Merge applies trip updates and then vehicle positions to a copy of the
// baseline. The baseline itself is never modified. Realtime records for trips
// not in the baseline are dropped.
func Merge(baseline []*ctdf.Movement, delays map[string]*realtime.TripUpdate, positions map[string]*ctdf.VehiclePosition, now time.Time) []*ctdf.Movement {
	movements := Copy(baseline)

	byTrip := map[string][]*ctdf.Movement{}
	for _, movement := range movements {
		if movement.TripID != "" {
			byTrip[movement.TripID] = append(byTrip[movement.TripID], movement)
		}
	}

	unmatchedDelays := 0
	for tripID, update := range delays {
		movement := pickMovement(byTrip[tripID], update.StartDate, now)
		if movement == nil {
			unmatchedDelays++
			continue
		}

		ApplyTripUpdate(movement, update, now)
	}

	unmatchedPositions := 0
	for tripID, position := range positions {
		movement := pickMovement(byTrip[tripID], "", now)
		if movement == nil {
			unmatchedPositions++
			continue
		}

		ApplyPosition(movement, position, now)
	}

	log.Debug().
		Int("movements", len(movements)).
		Int("tripupdates", len(delays)).
		Int("positions", len(positions)).
		Int("droppedtripupdates", unmatchedDelays).
		Int("droppedpositions", unmatchedPositions).
		Msg("Merged realtime into schedule")

	return movements
}

// Copy deep copies movements, keeping each movement's station calls pointing
// into its own stop call list.
func Copy(movements []*ctdf.Movement) []*ctdf.Movement {
	copied := []*ctdf.Movement{}
	if err := copier.CopyWithOption(&copied, &movements, copyOptions); err != nil {
		log.Error().Err(err).Msg("Failed to copy movements")
		return copied
	}

	for i, movement := range copied {
		relinkStationCalls(movement, movements[i])
	}

	return copied
}

func relinkStationCalls(copied *ctdf.Movement, original *ctdf.Movement) {
	for i, call := range original.StopCalls {
		if i >= len(copied.StopCalls) {
			break
		}

		if call == original.StationA {
			copied.StationA = copied.StopCalls[i]
		}
		if call == original.StationB {
			copied.StationB = copied.StopCalls[i]
		}
	}
}

// pickMovement chooses which service day's run an update belongs to: the one
// matching the trip's start date, else the one scheduled closest to now. A
// start date with no run in the baseline matches nothing.
func pickMovement(candidates []*ctdf.Movement, startDate string, now time.Time) *ctdf.Movement {
	if len(candidates) == 0 {
		return nil
	}

	if startDate != "" {
		for _, candidate := range candidates {
			if candidate.ServiceDate == startDate {
				return candidate
			}
		}
		return nil
	}

	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if absDuration(candidate.PrimaryTime.Sub(now)) < absDuration(best.PrimaryTime.Sub(now)) {
			best = candidate
		}
	}

	return best
}

func ApplyTripUpdate(movement *ctdf.Movement, update *realtime.TripUpdate, now time.Time) {
	updatedAt := update.Timestamp
	if updatedAt.IsZero() {
		updatedAt = now
	}

	if update.Cancelled {
		movement.Status = ctdf.MovementStatusCancelled
		movement.Confidence.Upgrade(ctdf.ConfidenceConfirmedUpdated, CancelledReason, ctdf.SourceTripUpdates, updatedAt)
		movement.AddDisruption(CancelledReason)
		return
	}

	applyStopUpdates(movement, update.StopUpdates)

	movement.Status = ctdf.MovementStatusLive
	reason := "Confirmed by realtime trip update"

	primary := movement.PrimaryCall()
	if primary != nil {
		scheduled := primary.ScheduledDepartureOrArrival()
		estimated := primary.EstimatedDeparture
		if estimated == nil {
			estimated = primary.EstimatedArrival
		}

		if scheduled != nil && estimated != nil {
			delay := int(math.Round(estimated.Sub(*scheduled).Minutes()))
			estimatedTime := *estimated

			movement.DelayMinutes = &delay
			movement.EstimatedTime = &estimatedTime

			if delay > DelayedThresholdMinutes {
				movement.Status = ctdf.MovementStatusDelayed
				reason = fmt.Sprintf("Running %d min late per realtime update", delay)
			} else {
				reason = "Running on time per realtime update"
			}
		}
	}

	movement.Confidence.Upgrade(ctdf.ConfidenceConfirmedUpdated, reason, ctdf.SourceTripUpdates, updatedAt)
}

// applyStopUpdates sets estimated times on the matching calls, then carries
// the most recent known delay forward onto later calls with no update.
func applyStopUpdates(movement *ctdf.Movement, stopUpdates []realtime.StopUpdate) {
	updated := map[*ctdf.StopCall]bool{}

	for i := range stopUpdates {
		stopUpdate := &stopUpdates[i]

		call := findCall(movement, stopUpdate)
		if call == nil {
			continue
		}

		applyStopUpdate(call, stopUpdate)
		updated[call] = true

		if stopUpdate.Skipped {
			call.StopsHere = false
			movement.AddDisruption(fmt.Sprintf("Not stopping at %s", call.StopName))
		}
	}

	calls := make([]*ctdf.StopCall, len(movement.StopCalls))
	copy(calls, movement.StopCalls)
	sort.SliceStable(calls, func(i, j int) bool {
		return calls[i].Sequence < calls[j].Sequence
	})

	var carried *time.Duration
	for _, call := range calls {
		if updated[call] {
			carried = callDelay(call)
			continue
		}

		if carried == nil {
			continue
		}

		if call.ScheduledArrival != nil && call.EstimatedArrival == nil {
			estimated := call.ScheduledArrival.Add(*carried)
			call.EstimatedArrival = &estimated
		}
		if call.ScheduledDeparture != nil && call.EstimatedDeparture == nil {
			estimated := call.ScheduledDeparture.Add(*carried)
			call.EstimatedDeparture = &estimated
		}
	}
}

func findCall(movement *ctdf.Movement, stopUpdate *realtime.StopUpdate) *ctdf.StopCall {
	for _, call := range movement.StopCalls {
		if call.StopID == stopUpdate.StopID {
			return call
		}
	}

	if stopUpdate.Sequence != 0 {
		for _, call := range movement.StopCalls {
			if call.Sequence == stopUpdate.Sequence {
				return call
			}
		}
	}

	return nil
}

// applyStopUpdate prefers absolute times over delay offsets. An arrival delay
// carries onto the departure when the departure has no information.
func applyStopUpdate(call *ctdf.StopCall, stopUpdate *realtime.StopUpdate) {
	if estimated := estimate(call.ScheduledArrival, stopUpdate.ArrivalTime, stopUpdate.ArrivalDelay); estimated != nil {
		call.EstimatedArrival = estimated
	}

	if stopUpdate.HasDeparture() {
		if estimated := estimate(call.ScheduledDeparture, stopUpdate.DepartureTime, stopUpdate.DepartureDelay); estimated != nil {
			call.EstimatedDeparture = estimated
		}
		return
	}

	if call.ScheduledDeparture == nil || call.EstimatedArrival == nil || call.ScheduledArrival == nil {
		return
	}

	arrivalDelay := call.EstimatedArrival.Sub(*call.ScheduledArrival)
	estimated := call.ScheduledDeparture.Add(arrivalDelay)
	call.EstimatedDeparture = &estimated
}

func estimate(scheduled *time.Time, absolute *time.Time, delay *time.Duration) *time.Time {
	if absolute != nil {
		estimated := *absolute
		return &estimated
	}

	if delay != nil && scheduled != nil {
		estimated := scheduled.Add(*delay)
		return &estimated
	}

	return nil
}

func callDelay(call *ctdf.StopCall) *time.Duration {
	var delay time.Duration

	switch {
	case call.EstimatedDeparture != nil && call.ScheduledDeparture != nil:
		delay = call.EstimatedDeparture.Sub(*call.ScheduledDeparture)
	case call.EstimatedArrival != nil && call.ScheduledArrival != nil:
		delay = call.EstimatedArrival.Sub(*call.ScheduledArrival)
	default:
		return nil
	}

	return &delay
}

// ApplyPosition attaches a live position. Delayed and cancelled statuses are
// kept; a scheduled movement becomes live.
func ApplyPosition(movement *ctdf.Movement, position *ctdf.VehiclePosition, now time.Time) {
	copied := *position
	copied.Consist = append([]string(nil), position.Consist...)

	movement.Position = &copied
	if movement.Consist == "" && copied.Label != "" {
		movement.Consist = copied.Label
	}

	updatedAt := copied.Timestamp
	if updatedAt.IsZero() {
		updatedAt = now
	}
	movement.Confidence.Upgrade(ctdf.ConfidenceConfirmedLive, LivePositionReason, ctdf.SourceVehiclePositions, updatedAt)

	if movement.Status == ctdf.MovementStatusScheduled {
		movement.Status = ctdf.MovementStatusLive
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
