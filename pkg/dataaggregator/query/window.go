package query

import (
	"fmt"
	"time"

	iso8601 "github.com/senseyeio/duration"
)

type TimeWindow string

const (
	TimeWindowNow  TimeWindow = "now"
	TimeWindowNext TimeWindow = "next"
	TimeWindowDay  TimeWindow = "day"
)

type windowDefinition struct {
	Back  string
	Ahead string
}

var windowDefinitions = map[TimeWindow]windowDefinition{
	TimeWindowNow:  {Back: "PT15M", Ahead: "PT1H"},
	TimeWindowNext: {Back: "PT5M", Ahead: "PT2H"},
}

// Window is the closed time range one aggregation cycle covers.
type Window struct {
	Name  TimeWindow `json:"name" groups:"basic"`
	Start time.Time  `json:"start" groups:"basic"`
	End   time.Time  `json:"end" groups:"basic"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func ParseTimeWindow(value string) (TimeWindow, error) {
	switch TimeWindow(value) {
	case "":
		return TimeWindowNow, nil
	case TimeWindowNow, TimeWindowNext, TimeWindowDay:
		return TimeWindow(value), nil
	default:
		return "", fmt.Errorf("invalid timeWindow %q", value)
	}
}

// NewWindow resolves a named window around now. The day window runs from
// local midnight to the following midnight.
func NewWindow(name TimeWindow, now time.Time, location *time.Location) (Window, error) {
	if name == TimeWindowDay {
		local := now.In(location)
		midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location)

		nextDayDuration, _ := iso8601.ParseISO8601("P1D")

		return Window{
			Name:  name,
			Start: midnight,
			End:   nextDayDuration.Shift(midnight),
		}, nil
	}

	definition, exists := windowDefinitions[name]
	if !exists {
		return Window{}, fmt.Errorf("invalid timeWindow %q", name)
	}

	back, err := iso8601.ParseISO8601(definition.Back)
	if err != nil {
		return Window{}, err
	}
	ahead, err := iso8601.ParseISO8601(definition.Ahead)
	if err != nil {
		return Window{}, err
	}

	return Window{
		Name:  name,
		Start: negate(back).Shift(now),
		End:   ahead.Shift(now),
	}, nil
}

func negate(d iso8601.Duration) iso8601.Duration {
	return iso8601.Duration{
		Y:  -d.Y,
		M:  -d.M,
		W:  -d.W,
		D:  -d.D,
		TH: -d.TH,
		TM: -d.TM,
		TS: -d.TS,
	}
}
