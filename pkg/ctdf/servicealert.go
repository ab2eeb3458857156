package ctdf

import "time"

type ServiceAlert struct {
	PrimaryIdentifier string `json:"id" groups:"basic"`

	Cause  string `json:"cause" groups:"basic"`
	Effect string `json:"effect" groups:"basic"`

	Header      string `json:"header" groups:"basic"`
	Description string `json:"description,omitempty" groups:"basic"`

	RouteIDs []string `json:"routeIds,omitempty" groups:"basic"`
	TripIDs  []string `json:"tripIds,omitempty" groups:"basic"`
	StopIDs  []string `json:"stopIds,omitempty" groups:"basic"`

	ActivePeriods []TimePeriod `json:"activePeriods,omitempty" groups:"basic"`
	IsActive      bool         `json:"isActive" groups:"basic"`

	Source string `json:"source" groups:"detailed"`
}

// TimePeriod bounds are optional; a nil bound is open-ended.
type TimePeriod struct {
	Start *time.Time `json:"start,omitempty" groups:"basic"`
	End   *time.Time `json:"end,omitempty" groups:"basic"`
}

func (p TimePeriod) Contains(checkTime time.Time) bool {
	if p.Start != nil && checkTime.Before(*p.Start) {
		return false
	}
	if p.End != nil && !checkTime.Before(*p.End) {
		return false
	}
	return true
}

// IsValid reports whether the alert is in force at checkTime. An alert with no
// active periods is always in force.
func (a *ServiceAlert) IsValid(checkTime time.Time) bool {
	if len(a.ActivePeriods) == 0 {
		return true
	}

	for _, period := range a.ActivePeriods {
		if period.Contains(checkTime) {
			return true
		}
	}
	return false
}
