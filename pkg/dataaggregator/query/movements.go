package query

import (
	"fmt"

	"github.com/travigo/corridor/pkg/ctdf"
)

const (
	StationBoth    = "both"
	DirectionBoth  = "both"
	ServiceTypeAll = "all"
	StatusAll      = "all"
)

// Movements is the set of user filters for one aggregation cycle. Each filter
// is bypassed by its both/all value.
type Movements struct {
	Station     string     `json:"station" groups:"basic"`
	Direction   string     `json:"direction" groups:"basic"`
	ServiceType string     `json:"serviceType" groups:"basic"`
	Status      string     `json:"status" groups:"basic"`
	TimeWindow  TimeWindow `json:"timeWindow" groups:"basic"`
	Where       string     `json:"where,omitempty" groups:"basic"`

	where *Expression
}

// ParseMovements reads and validates the filters through get, which returns an
// empty string for anything unset.
func ParseMovements(get func(key string) string) (*Movements, error) {
	q := &Movements{
		Station:     valueOr(get("station"), StationBoth),
		Direction:   valueOr(get("direction"), DirectionBoth),
		ServiceType: valueOr(get("serviceType"), ServiceTypeAll),
		Status:      valueOr(get("status"), StatusAll),
		Where:       get("where"),
	}

	switch ctdf.StationRef(q.Station) {
	case ctdf.StationA, ctdf.StationB, StationBoth:
	default:
		return nil, fmt.Errorf("invalid station %q", q.Station)
	}

	switch ctdf.Direction(q.Direction) {
	case ctdf.DirectionTowardA, ctdf.DirectionTowardB, DirectionBoth:
	default:
		return nil, fmt.Errorf("invalid direction %q", q.Direction)
	}

	switch ctdf.ServiceType(q.ServiceType) {
	case ctdf.ServiceTypePassenger, ctdf.ServiceTypeFreight, ServiceTypeAll:
	default:
		return nil, fmt.Errorf("invalid serviceType %q", q.ServiceType)
	}

	switch ctdf.MovementStatus(q.Status) {
	case ctdf.MovementStatusScheduled, ctdf.MovementStatusLive, ctdf.MovementStatusDelayed,
		ctdf.MovementStatusCancelled, ctdf.MovementStatusCompleted, StatusAll:
	default:
		return nil, fmt.Errorf("invalid status %q", q.Status)
	}

	timeWindow, err := ParseTimeWindow(get("timeWindow"))
	if err != nil {
		return nil, err
	}
	q.TimeWindow = timeWindow

	if q.Where != "" {
		expression, err := CompileExpression(q.Where)
		if err != nil {
			return nil, err
		}
		q.where = expression
	}

	return q, nil
}

func (q *Movements) Matches(m *ctdf.Movement) bool {
	if q.Station != "" && q.Station != StationBoth && !m.HasCallAt(ctdf.StationRef(q.Station)) {
		return false
	}
	if q.Direction != "" && q.Direction != DirectionBoth && m.Direction != ctdf.Direction(q.Direction) {
		return false
	}
	if q.ServiceType != "" && q.ServiceType != ServiceTypeAll && m.ServiceType != ctdf.ServiceType(q.ServiceType) {
		return false
	}
	if q.Status != "" && q.Status != StatusAll && m.Status != ctdf.MovementStatus(q.Status) {
		return false
	}
	if q.where != nil && !q.where.Matches(m) {
		return false
	}

	return true
}

// Apply returns the matching movements in their original order.
func (q *Movements) Apply(movements []*ctdf.Movement) []*ctdf.Movement {
	filtered := []*ctdf.Movement{}
	for _, movement := range movements {
		if q.Matches(movement) {
			filtered = append(filtered, movement)
		}
	}

	return filtered
}

func valueOr(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
