package dataaggregator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/corridor/pkg/alerts"
	"github.com/travigo/corridor/pkg/corridor"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator/query"
	"github.com/travigo/corridor/pkg/realtime"
	"github.com/travigo/corridor/pkg/reconcile"
	"github.com/travigo/corridor/pkg/schedule"
	"github.com/travigo/corridor/pkg/util"
	"golang.org/x/exp/slices"
)

const (
	DefaultSourceTimeout   = 10 * time.Second
	DefaultScheduleTimeout = 60 * time.Second

	// CompletedAfter is how long after its last corridor departure a movement
	// counts as completed.
	CompletedAfter = 5 * time.Minute
)

// Recorder receives a summary of every completed cycle.
type Recorder interface {
	RecordCycle(duration time.Duration, response *Response)
}

type Response struct {
	Movements      []*ctdf.Movement     `json:"movements" groups:"basic"`
	Feeds          []ctdf.FeedStatus    `json:"feeds" groups:"basic"`
	Alerts         []*ctdf.ServiceAlert `json:"alerts" groups:"basic"`
	Filters        *query.Movements     `json:"filters" groups:"basic"`
	Window         query.Window         `json:"window" groups:"basic"`
	Timestamp      time.Time            `json:"timestamp" groups:"basic"`
	FallbackActive bool                 `json:"fallbackActive" groups:"basic"`
	FallbackReason string               `json:"fallbackReason,omitempty" groups:"basic"`
}

type Aggregator struct {
	Corridor *corridor.Corridor

	Schedule         Source[[]*ctdf.Movement]
	TripUpdates      Source[map[string]*realtime.TripUpdate]
	VehiclePositions Source[map[string]*ctdf.VehiclePosition]
	Freight          Source[[]*ctdf.Movement]
	Alerts           Source[[]*ctdf.ServiceAlert]

	SourceTimeout   time.Duration
	ScheduleTimeout time.Duration

	Recorder Recorder
	Now      func() time.Time
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *Aggregator) sourceTimeout() time.Duration {
	if a.SourceTimeout > 0 {
		return a.SourceTimeout
	}
	return DefaultSourceTimeout
}

func (a *Aggregator) scheduleTimeout() time.Duration {
	if a.ScheduleTimeout > 0 {
		return a.ScheduleTimeout
	}
	return DefaultScheduleTimeout
}

// GetMovements runs one aggregation cycle. The only error is a cancelled
// context; every source failure is reported through the feed statuses.
func (a *Aggregator) GetMovements(ctx context.Context, q *query.Movements) (*Response, error) {
	started := time.Now()
	now := a.now()

	window, err := query.NewWindow(q.TimeWindow, now, a.Corridor.Location)
	if err != nil {
		return nil, err
	}

	var baseline Result[[]*ctdf.Movement]
	if a.Schedule != nil {
		baseline = Fetch(ctx, a.Schedule, window, a.scheduleTimeout(), a.now)
	}
	if a.Schedule == nil || baseline.Panicked || baseline.TimedOut {
		baseline.Records = schedule.BuiltinWindow(a.Corridor, window.Start, window.End, now)
	}
	if a.Schedule == nil {
		baseline.Status = ctdf.DegradedFeed(schedule.FeedName, ctdf.SourceBuiltinTimetable, now, len(baseline.Records), "using built-in timetable: no schedule source configured")
	}

	// Realtime sources left unset report offline the same way a missing API key does.
	tripUpdates := Result[map[string]*realtime.TripUpdate]{
		Status: ctdf.OfflineFeed(realtime.TripUpdatesFeedName, ctdf.SourceTripUpdates, now, realtime.ErrNoAPIKey),
	}
	vehiclePositions := Result[map[string]*ctdf.VehiclePosition]{
		Status: ctdf.OfflineFeed(realtime.VehiclePositionsFeedName, ctdf.SourceVehiclePositions, now, realtime.ErrNoAPIKey),
	}
	var freight Result[[]*ctdf.Movement]
	var serviceAlerts Result[[]*ctdf.ServiceAlert]

	p := pool.New()
	if a.TripUpdates != nil {
		p.Go(func() {
			tripUpdates = Fetch(ctx, a.TripUpdates, window, a.sourceTimeout(), a.now)
		})
	}
	if a.VehiclePositions != nil {
		p.Go(func() {
			vehiclePositions = Fetch(ctx, a.VehiclePositions, window, a.sourceTimeout(), a.now)
		})
	}
	if a.Freight != nil {
		p.Go(func() {
			freight = Fetch(ctx, a.Freight, window, a.sourceTimeout(), a.now)
		})
	}
	if a.Alerts != nil {
		p.Go(func() {
			serviceAlerts = Fetch(ctx, a.Alerts, window, a.sourceTimeout(), a.now)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	response := &Response{
		Filters:   q,
		Window:    window,
		Timestamp: now,
		Feeds:     []ctdf.FeedStatus{baseline.Status, tripUpdates.Status, vehiclePositions.Status},
		Alerts:    []*ctdf.ServiceAlert{},
	}

	response.FallbackActive, response.FallbackReason = fallback(tripUpdates, vehiclePositions)
	if response.FallbackActive {
		log.Warn().Str("reason", response.FallbackReason).Msg("Realtime fallback active")
	}

	movements := reconcile.Merge(baseline.Records, tripUpdates.Records, vehiclePositions.Records, now)

	if a.Freight != nil {
		response.Feeds = append(response.Feeds, freight.Status)

		freightMovements := freight.Records
		util.InPlaceFilter(&freightMovements, func(m *ctdf.Movement) bool {
			return window.Contains(m.PrimaryTime)
		})
		movements = append(movements, freightMovements...)
	}

	if a.Alerts != nil {
		response.Feeds = append(response.Feeds, serviceAlerts.Status)

		for _, alert := range serviceAlerts.Records {
			if alert.IsActive {
				response.Alerts = append(response.Alerts, alert)
			}
		}
		alerts.Correlate(movements, response.Alerts)
	}

	MarkCompleted(movements, now)

	movements = q.Apply(movements)
	SortMovements(movements)

	response.Movements = movements

	log.Info().
		Str("window", string(window.Name)).
		Int("movements", len(movements)).
		Bool("fallback", response.FallbackActive).
		Dur("duration", time.Since(started)).
		Msg("Aggregation cycle complete")

	if a.Recorder != nil {
		a.Recorder.RecordCycle(time.Since(started), response)
	}

	return response, nil
}

// fallback is raised when both realtime feeds are offline or either fetch
// blew up outright.
func fallback(tripUpdates Result[map[string]*realtime.TripUpdate], vehiclePositions Result[map[string]*ctdf.VehiclePosition]) (bool, string) {
	if tripUpdates.Panicked || vehiclePositions.Panicked {
		return true, "Realtime fetch failed; showing scheduled times only"
	}

	if !tripUpdates.Status.IsOffline() || !vehiclePositions.Status.IsOffline() {
		return false, ""
	}

	if tripUpdates.Status.Error == realtime.ErrNoAPIKey.Error() && vehiclePositions.Status.Error == realtime.ErrNoAPIKey.Error() {
		return true, "Realtime data not configured (no API key); showing scheduled times only"
	}

	reasons := []string{}
	for _, status := range []ctdf.FeedStatus{tripUpdates.Status, vehiclePositions.Status} {
		reasons = append(reasons, fmt.Sprintf("%s: %s", status.Name, status.Error))
	}

	return true, fmt.Sprintf("Realtime feeds unavailable (%s); showing scheduled times only", strings.Join(reasons, "; "))
}

// MarkCompleted moves movements whose last corridor departure is more than
// CompletedAfter in the past to completed. Live and cancelled movements are
// left alone.
func MarkCompleted(movements []*ctdf.Movement, now time.Time) {
	for _, movement := range movements {
		switch movement.Status {
		case ctdf.MovementStatusCancelled, ctdf.MovementStatusLive, ctdf.MovementStatusCompleted:
			continue
		}

		latest, ok := movement.LatestCorridorDeparture()
		if ok && now.Sub(latest) > CompletedAfter {
			movement.Status = ctdf.MovementStatusCompleted
		}
	}
}

func SortMovements(movements []*ctdf.Movement) {
	slices.SortStableFunc(movements, func(left *ctdf.Movement, right *ctdf.Movement) int {
		if c := left.SortTime().Compare(right.SortTime()); c != 0 {
			return c
		}
		return strings.Compare(left.PrimaryIdentifier, right.PrimaryIdentifier)
	})
}
