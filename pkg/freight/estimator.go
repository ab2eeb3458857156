package freight

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/corridor/pkg/corridor"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator/query"
	"github.com/travigo/corridor/pkg/util"
)

const (
	FeedName = "freight"

	NotConfiguredMessage = "no freight API key configured; showing modelled freight"

	ModelReason = "Modelled freight estimate; not live data"
	LiveReason  = "Reported by live freight feed; corridor times estimated"
)

var ModelLimitations = []string{
	"Freight running data is not publicly available in real time",
	"Movements are modelled from typical corridor usage, not observed",
	"Times are indicative and may differ by an hour or more",
	"Consists shown are typical for the commodity, not the actual train",
}

// Estimator produces the day's freight movements from a live feed when one is
// configured and answers, otherwise from a deterministic model.
type Estimator struct {
	Corridor *corridor.Corridor
	Live     LiveClient

	Now func() time.Time
}

func (e *Estimator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Estimator) GetName() string {
	return FeedName
}

func (e *Estimator) GetFreightMovements(ctx context.Context, date time.Time) ([]*ctdf.Movement, ctdf.FeedStatus) {
	now := e.now()
	serviceDate := e.Corridor.Midnight(date)

	if e.Live == nil {
		movements := e.Model(serviceDate)
		return movements, ctdf.DegradedFeed(FeedName, ctdf.SourceFreightModel, now, len(movements), NotConfiguredMessage)
	}

	records, err := e.Live.GetFreightRecords(ctx, serviceDate)
	if err != nil {
		log.Error().Err(err).Str("source", FeedName).Msg("Live freight unavailable, using model")

		movements := e.Model(serviceDate)
		return movements, ctdf.DegradedFeed(FeedName, ctdf.SourceFreightModel, now, len(movements), fmt.Sprintf("live freight unavailable: %s; showing modelled freight", err))
	}

	if len(records) == 0 {
		movements := e.Model(serviceDate)
		return movements, ctdf.DegradedFeed(FeedName, ctdf.SourceFreightModel, now, len(movements), "live freight returned no services; showing modelled freight")
	}

	movements := []*ctdf.Movement{}
	for _, record := range records {
		movements = append(movements, e.fromRecord(serviceDate, record, now))
	}

	log.Info().Str("source", FeedName).Int("records", len(movements)).Msg("Live freight fetched")

	return movements, ctdf.OnlineFeed(FeedName, ctdf.SourceFreightLive, now, len(movements))
}

// Fetch covers every service date touched by the window.
func (e *Estimator) Fetch(ctx context.Context, window query.Window) ([]*ctdf.Movement, ctdf.FeedStatus) {
	movements := []*ctdf.Movement{}
	var status ctdf.FeedStatus

	dates := util.DatesBetween(e.Corridor.Midnight(window.Start), e.Corridor.Midnight(window.End))
	for i, date := range dates {
		dateMovements, dateStatus := e.GetFreightMovements(ctx, date)
		movements = append(movements, dateMovements...)

		if i == 0 || severity(dateStatus.Status) > severity(status.Status) {
			status = dateStatus
		}
	}

	util.InPlaceFilter(&movements, func(m *ctdf.Movement) bool {
		return window.Contains(m.PrimaryTime)
	})

	count := len(movements)
	status.RecordCount = &count

	return movements, status
}

func severity(status ctdf.FeedHealth) int {
	switch status {
	case ctdf.FeedHealthOffline:
		return 2
	case ctdf.FeedHealthDegraded:
		return 1
	default:
		return 0
	}
}

// Model spreads each commodity's daily count evenly across the service day,
// nudged by a deterministic offset, alternating direction.
func (e *Estimator) Model(serviceDate time.Time) []*ctdf.Movement {
	config := e.Corridor.Config
	serviceDay := util.ServiceDay(serviceDate, e.Corridor.Location)
	dateKey := serviceDate.Format("20060102")
	now := e.now()

	movements := []*ctdf.Movement{}

	for classIndex, commodity := range config.Freight {
		if commodity.DailyCount <= 0 {
			continue
		}

		spacing := 24 * time.Hour / time.Duration(commodity.DailyCount)

		for instance := 0; instance < commodity.DailyCount; instance++ {
			offset := pseudoOffset(commodity.Class, dateKey, instance, config.FreightOffsetJitterMinutes)
			corridorTime := serviceDay.Add(spacing*time.Duration(instance) + spacing/2 + offset)

			direction := ctdf.DirectionTowardB
			if (instance+classIndex)%2 == 1 {
				direction = ctdf.DirectionTowardA
			}

			origin, destination := commodity.Origin, commodity.Destination
			if direction == ctdf.DirectionTowardA {
				origin, destination = destination, origin
			}

			movement := e.buildMovement(
				ctdf.MovementID(ctdf.ServiceTypeFreight, serviceDate, fmt.Sprintf("%s-%d", commodity.Class, instance+1)),
				serviceDate,
				commodity.Class,
				direction,
				origin,
				destination,
				commodity.Consist,
				corridorTime,
			)
			movement.Confidence = ctdf.NewConfidence(ctdf.ConfidenceEstimatedFreight, ModelReason, ctdf.SourceFreightModel, now)
			movement.Confidence.Limitations = append([]string{}, ModelLimitations...)

			movements = append(movements, movement)
		}
	}

	return movements
}

func (e *Estimator) fromRecord(serviceDate time.Time, record Record, now time.Time) *ctdf.Movement {
	direction := record.Direction
	if direction != ctdf.DirectionTowardA && direction != ctdf.DirectionTowardB {
		direction = ctdf.DirectionTowardB
	}

	commodity := record.Commodity
	if commodity == "" {
		commodity = "general"
	}

	movement := e.buildMovement(
		ctdf.MovementID(ctdf.ServiceTypeFreight, serviceDate, record.ID),
		serviceDate,
		commodity,
		direction,
		record.Origin,
		record.Destination,
		record.Consist,
		record.CorridorTime.In(e.Corridor.Location),
	)
	movement.RunID = record.ID
	movement.Confidence = ctdf.NewConfidence(ctdf.ConfidenceEstimatedFreight, LiveReason, ctdf.SourceFreightLive, now)
	movement.Confidence.Limitations = []string{"Corridor passing times are derived from the reported service, not observed"}

	return movement
}

// buildMovement lays out the two corridor calls. Freight never stops at the
// corridor stations.
func (e *Estimator) buildMovement(identifier string, serviceDate time.Time, commodity string, direction ctdf.Direction, origin string, destination string, consist string, corridorTime time.Time) *ctdf.Movement {
	exitTime := corridorTime.Add(e.Corridor.FreightTraverseTime())

	firstStation := e.Corridor.Station(direction.FirstStation())
	lastStation := e.Corridor.Station(direction.LastStation())

	firstCall := &ctdf.StopCall{
		StopID:             firstStation.StopIDs[0],
		StopName:           firstStation.Name,
		StationRef:         firstStation.Ref,
		ScheduledDeparture: &corridorTime,
		Sequence:           1,
		StopsHere:          false,
	}
	lastCall := &ctdf.StopCall{
		StopID:             lastStation.StopIDs[0],
		StopName:           lastStation.Name,
		StationRef:         lastStation.Ref,
		ScheduledDeparture: &exitTime,
		Sequence:           2,
		StopsHere:          false,
	}

	movement := &ctdf.Movement{
		PrimaryIdentifier: identifier,
		RouteID:           fmt.Sprintf("FREIGHT_%s", commodity),
		ServiceDate:       serviceDate.Format("20060102"),
		ServiceType:       ctdf.ServiceTypeFreight,
		Direction:         direction,
		Origin:            origin,
		Destination:       destination,
		Consist:           consist,
		Status:            ctdf.MovementStatusScheduled,
		StopCalls:         []*ctdf.StopCall{firstCall, lastCall},
		PassesThrough:     true,
		Disruptions:       []string{},
		PrimaryTime:       corridorTime,
	}

	if firstStation.Ref == ctdf.StationA {
		movement.StationA, movement.StationB = firstCall, lastCall
	} else {
		movement.StationA, movement.StationB = lastCall, firstCall
	}

	return movement
}

// pseudoOffset returns a stable offset in [-jitter, +jitter] minutes.
func pseudoOffset(class string, dateKey string, instance int, jitterMinutes int) time.Duration {
	if jitterMinutes <= 0 {
		return 0
	}

	hash := fnv.New32a()
	hash.Write([]byte(fmt.Sprintf("%s/%s/%d", class, dateKey, instance)))

	span := uint32(2*jitterMinutes + 1)
	minutes := int(hash.Sum32()%span) - jitterMinutes

	return time.Duration(minutes) * time.Minute
}
