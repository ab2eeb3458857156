package ctdf

import (
	"fmt"
	"time"
)

type MovementStatus string

const (
	MovementStatusScheduled MovementStatus = "scheduled"
	MovementStatusLive      MovementStatus = "live"
	MovementStatusDelayed   MovementStatus = "delayed"
	MovementStatusCancelled MovementStatus = "cancelled"
	MovementStatusCompleted MovementStatus = "completed"
)

var MovementIDFormat = "%s:%s:%s"

// Movement is one traversal of the corridor by a vehicle, either scheduled in
// the timetable or estimated (freight).
type Movement struct {
	PrimaryIdentifier string `json:"id" groups:"basic"`

	TripID  string `json:"tripId,omitempty" groups:"basic"`
	RunID   string `json:"runId,omitempty" groups:"basic"`
	RouteID string `json:"routeId,omitempty" groups:"basic"`

	ServiceDate string `json:"serviceDate,omitempty" groups:"detailed"`

	ServiceType ServiceType `json:"serviceType" groups:"basic"`
	Direction   Direction   `json:"direction" groups:"basic"`

	Origin      string `json:"origin" groups:"basic"`
	Destination string `json:"destination" groups:"basic"`
	Consist     string `json:"consist,omitempty" groups:"basic"`

	Status MovementStatus `json:"status" groups:"basic"`

	StopCalls []*StopCall `json:"stopCalls,omitempty" groups:"detailed"`
	StationA  *StopCall   `json:"stationA,omitempty" groups:"basic"`
	StationB  *StopCall   `json:"stationB,omitempty" groups:"basic"`

	PassesThrough bool `json:"passesThrough" groups:"basic"`

	Position *VehiclePosition `json:"position,omitempty" groups:"basic"`

	Confidence ConfidenceInfo `json:"confidence" groups:"basic"`

	Disruptions []string `json:"disruptions" groups:"basic"`

	PrimaryTime   time.Time  `json:"primaryTime" groups:"basic"`
	EstimatedTime *time.Time `json:"estimatedTime,omitempty" groups:"basic"`
	DelayMinutes  *int       `json:"delayMinutes,omitempty" groups:"basic"`
}

func MovementID(serviceType ServiceType, serviceDate time.Time, localID string) string {
	return fmt.Sprintf(MovementIDFormat, serviceType, serviceDate.Format("20060102"), localID)
}

func (m *Movement) StationCall(station StationRef) *StopCall {
	switch station {
	case StationA:
		return m.StationA
	case StationB:
		return m.StationB
	default:
		return nil
	}
}

// PrimaryCall is the corridor call met first given the direction of travel.
// A movement that only touches one station uses that station.
func (m *Movement) PrimaryCall() *StopCall {
	if call := m.StationCall(m.Direction.FirstStation()); call != nil {
		return call
	}
	return m.StationCall(m.Direction.LastStation())
}

func (m *Movement) CorridorCalls() []*StopCall {
	calls := []*StopCall{}
	for _, station := range []StationRef{m.Direction.FirstStation(), m.Direction.LastStation()} {
		if call := m.StationCall(station); call != nil {
			calls = append(calls, call)
		}
	}
	return calls
}

// SortTime is the estimated primary time where known, otherwise the scheduled one.
func (m *Movement) SortTime() time.Time {
	if m.EstimatedTime != nil {
		return *m.EstimatedTime
	}
	return m.PrimaryTime
}

// LatestCorridorDeparture is the last best-known departure across the corridor calls.
func (m *Movement) LatestCorridorDeparture() (time.Time, bool) {
	var latest time.Time
	found := false

	for _, call := range m.CorridorCalls() {
		if departure := call.BestDeparture(); departure != nil {
			if !found || departure.After(latest) {
				latest = *departure
				found = true
			}
		}
	}

	return latest, found
}

func (m *Movement) HasCallAt(station StationRef) bool {
	return m.StationCall(station) != nil
}

func (m *Movement) AddDisruption(text string) {
	for _, existing := range m.Disruptions {
		if existing == text {
			return
		}
	}
	m.Disruptions = append(m.Disruptions, text)
}

// RefreshPrimaryTime recomputes the primary timestamp from the primary call.
// Returns false when the movement has no usable corridor time.
func (m *Movement) RefreshPrimaryTime() bool {
	call := m.PrimaryCall()
	if call == nil {
		return false
	}

	scheduled := call.ScheduledDepartureOrArrival()
	if scheduled == nil {
		return false
	}
	m.PrimaryTime = *scheduled

	return true
}

type StopCall struct {
	StopID     string     `json:"stopId" groups:"basic"`
	StopName   string     `json:"stopName" groups:"basic"`
	StationRef StationRef `json:"stationRef,omitempty" groups:"basic"`

	ScheduledArrival   *time.Time `json:"scheduledArrival,omitempty" groups:"basic"`
	ScheduledDeparture *time.Time `json:"scheduledDeparture,omitempty" groups:"basic"`
	EstimatedArrival   *time.Time `json:"estimatedArrival,omitempty" groups:"basic"`
	EstimatedDeparture *time.Time `json:"estimatedDeparture,omitempty" groups:"basic"`

	Platform  string `json:"platform,omitempty" groups:"basic"`
	Sequence  int    `json:"sequence" groups:"basic"`
	StopsHere bool   `json:"stopsHere" groups:"basic"`
}

func (s *StopCall) ScheduledDepartureOrArrival() *time.Time {
	if s.ScheduledDeparture != nil {
		return s.ScheduledDeparture
	}
	return s.ScheduledArrival
}

// BestDeparture prefers estimated over scheduled and departure over arrival.
func (s *StopCall) BestDeparture() *time.Time {
	switch {
	case s.EstimatedDeparture != nil:
		return s.EstimatedDeparture
	case s.ScheduledDeparture != nil:
		return s.ScheduledDeparture
	case s.EstimatedArrival != nil:
		return s.EstimatedArrival
	default:
		return s.ScheduledArrival
	}
}

func (s *StopCall) BestArrival() *time.Time {
	switch {
	case s.EstimatedArrival != nil:
		return s.EstimatedArrival
	case s.ScheduledArrival != nil:
		return s.ScheduledArrival
	case s.EstimatedDeparture != nil:
		return s.EstimatedDeparture
	default:
		return s.ScheduledDeparture
	}
}

func (s *StopCall) HasEstimate() bool {
	return s.EstimatedArrival != nil || s.EstimatedDeparture != nil
}
