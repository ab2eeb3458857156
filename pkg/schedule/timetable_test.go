package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimetableTrimsToCorridor(t *testing.T) {
	c := testCorridor(t)
	timetable := sampleTimetable(t, c)

	assert.Len(t, timetable.Trips, 4)
	assert.Contains(t, timetable.Trips, "T1")
	assert.Contains(t, timetable.Trips, "T3")
	assert.NotContains(t, timetable.Trips, "T4", "non-rail route")
	assert.NotContains(t, timetable.Trips, "T6", "never touches the corridor")

	assert.Len(t, timetable.Routes, 1)
	assert.Contains(t, timetable.Stops, "2141", "parent stations are kept for naming")

	stopTimes := timetable.StopTimes["T3"]
	require.Len(t, stopTimes, 4)
	assert.Equal(t, "200060", stopTimes[0].StopID)
	assert.Equal(t, "215020", stopTimes[3].StopID)
}

func TestParseTimetableRejectsIncompleteArchive(t *testing.T) {
	c := testCorridor(t)

	_, err := ParseTimetable(buildZip(t, map[string]string{"stops.txt": sampleGTFS["stops.txt"]}), c)
	assert.Error(t, err)

	_, err = ParseTimetable([]byte("definitely not a zip"), c)
	assert.Error(t, err)
}

func TestIsRelevantRoute(t *testing.T) {
	tests := []struct {
		name     string
		route    Route
		prefixes []string
		expected bool
	}{
		{"prefix match", Route{ID: "WST_1a", Type: 2}, []string{"WST"}, true},
		{"prefix miss", Route{ID: "BUS_1", Type: 2}, []string{"WST"}, false},
		{"rail without prefixes", Route{ID: "X", Type: 2}, nil, true},
		{"extended rail without prefixes", Route{ID: "X", Type: 109}, nil, true},
		{"bus without prefixes", Route{ID: "X", Type: 3}, nil, false},
		{"replacement bus without prefixes", Route{ID: "X", Type: 714}, nil, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsRelevantRoute(test.route, test.prefixes))
		})
	}
}

func TestServiceRunsOn(t *testing.T) {
	c := testCorridor(t)
	timetable := sampleTimetable(t, c)

	date := func(day int) time.Time {
		return time.Date(2026, time.October, day, 0, 0, 0, 0, c.Location)
	}

	assert.True(t, timetable.ServiceRunsOn("WEEK", date(20)), "tuesday")
	assert.False(t, timetable.ServiceRunsOn("WEEK", date(19)), "removed by exception")
	assert.True(t, timetable.ServiceRunsOn("WEEK", date(18)), "added by exception")
	assert.False(t, timetable.ServiceRunsOn("WEEK", date(17)), "saturday")
	assert.False(t, timetable.ServiceRunsOn("WEEK", time.Date(2028, time.January, 4, 0, 0, 0, 0, c.Location)), "after end date")
	assert.False(t, timetable.ServiceRunsOn("MISSING", date(20)))
}

func TestStopName(t *testing.T) {
	c := testCorridor(t)
	timetable := sampleTimetable(t, c)

	assert.Equal(t, "Lidcombe Station", timetable.StopName("214112"))
	assert.Equal(t, "Central Station", timetable.StopName("200060"))
	assert.Equal(t, "999999", timetable.StopName("999999"))
}
