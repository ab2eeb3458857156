package ctdf

import (
	"sort"
	"time"
)

type ConfidenceLevel string

const (
	ConfidenceScheduled        ConfidenceLevel = "scheduled"
	ConfidenceConfirmedUpdated ConfidenceLevel = "confirmed-updated"
	ConfidenceConfirmedLive    ConfidenceLevel = "confirmed-live"
	ConfidenceEstimatedFreight ConfidenceLevel = "estimated-freight"
)

// Rank orders the passenger confidence levels. Estimated freight sits on its
// own track and ranks -1.
func (c ConfidenceLevel) Rank() int {
	switch c {
	case ConfidenceScheduled:
		return 0
	case ConfidenceConfirmedUpdated:
		return 1
	case ConfidenceConfirmedLive:
		return 2
	default:
		return -1
	}
}

// Source tags recorded against a movement's confidence.
const (
	SourceGTFSStatic       = "gtfs-static"
	SourceBuiltinTimetable = "builtin-timetable"
	SourceTripUpdates      = "trip-updates"
	SourceVehiclePositions = "vehicle-positions"
	SourceFreightModel     = "freight-model"
	SourceFreightLive      = "freight-live"
	SourceServiceAlerts    = "service-alerts"
)

type ConfidenceInfo struct {
	Level       ConfidenceLevel `json:"level" groups:"basic"`
	Reason      string          `json:"reason" groups:"basic"`
	Sources     []string        `json:"sources" groups:"basic"`
	Limitations []string        `json:"limitations,omitempty" groups:"detailed"`
	LastUpdated time.Time       `json:"lastUpdated" groups:"basic"`
}

func NewConfidence(level ConfidenceLevel, reason string, source string, at time.Time) ConfidenceInfo {
	return ConfidenceInfo{
		Level:       level,
		Reason:      reason,
		Sources:     []string{source},
		LastUpdated: at,
	}
}

// Upgrade moves the confidence to a new level while keeping every source that
// contributed so far.
func (c *ConfidenceInfo) Upgrade(level ConfidenceLevel, reason string, source string, at time.Time) {
	c.Level = level
	c.Reason = reason
	c.AddSource(source)

	if at.After(c.LastUpdated) {
		c.LastUpdated = at
	}
}

func (c *ConfidenceInfo) AddSource(source string) {
	for _, existing := range c.Sources {
		if existing == source {
			return
		}
	}

	c.Sources = append(c.Sources, source)
	sort.Strings(c.Sources)
}

func (c *ConfidenceInfo) HasSource(source string) bool {
	for _, existing := range c.Sources {
		if existing == source {
			return true
		}
	}
	return false
}
