package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/corridor/pkg/ctdf"
)

func getter(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestParseMovementsDefaults(t *testing.T) {
	q, err := ParseMovements(getter(nil))
	require.NoError(t, err)

	assert.Equal(t, StationBoth, q.Station)
	assert.Equal(t, DirectionBoth, q.Direction)
	assert.Equal(t, ServiceTypeAll, q.ServiceType)
	assert.Equal(t, StatusAll, q.Status)
	assert.Equal(t, TimeWindowNow, q.TimeWindow)
}

func TestParseMovementsInvalid(t *testing.T) {
	tests := []map[string]string{
		{"station": "c"},
		{"direction": "sideways"},
		{"serviceType": "bus"},
		{"status": "lost"},
		{"timeWindow": "week"},
		{"where": "status =="},
	}

	for _, values := range tests {
		_, err := ParseMovements(getter(values))
		assert.Error(t, err, values)
	}
}

func sampleMovements() []*ctdf.Movement {
	delay := 6
	call := &ctdf.StopCall{StationRef: ctdf.StationA, Platform: "3"}

	return []*ctdf.Movement{
		{PrimaryIdentifier: "p1", ServiceType: ctdf.ServiceTypePassenger, Direction: ctdf.DirectionTowardB, Status: ctdf.MovementStatusDelayed, StationA: call, DelayMinutes: &delay},
		{PrimaryIdentifier: "p2", ServiceType: ctdf.ServiceTypePassenger, Direction: ctdf.DirectionTowardA, Status: ctdf.MovementStatusScheduled, StationB: &ctdf.StopCall{StationRef: ctdf.StationB}},
		{PrimaryIdentifier: "f1", ServiceType: ctdf.ServiceTypeFreight, Direction: ctdf.DirectionTowardB, Status: ctdf.MovementStatusScheduled, StationA: &ctdf.StopCall{}, StationB: &ctdf.StopCall{}},
	}
}

func ids(movements []*ctdf.Movement) []string {
	identifiers := []string{}
	for _, movement := range movements {
		identifiers = append(identifiers, movement.PrimaryIdentifier)
	}
	return identifiers
}

func TestMovementsFilters(t *testing.T) {
	tests := []struct {
		values   map[string]string
		expected []string
	}{
		{map[string]string{}, []string{"p1", "p2", "f1"}},
		{map[string]string{"station": "a"}, []string{"p1", "f1"}},
		{map[string]string{"station": "b"}, []string{"p2", "f1"}},
		{map[string]string{"direction": "toward-b"}, []string{"p1", "f1"}},
		{map[string]string{"serviceType": "freight"}, []string{"f1"}},
		{map[string]string{"status": "delayed"}, []string{"p1"}},
		{map[string]string{"station": "a", "serviceType": "passenger"}, []string{"p1"}},
		{map[string]string{"where": `delayMinutes > 5 && platformA == "3"`}, []string{"p1"}},
		{map[string]string{"where": `serviceType == "freight" || direction == "toward-a"`}, []string{"p2", "f1"}},
	}

	for _, test := range tests {
		q, err := ParseMovements(getter(test.values))
		require.NoError(t, err)

		assert.Equal(t, test.expected, ids(q.Apply(sampleMovements())), test.values)
	}
}

func TestMovementsFilterIdempotent(t *testing.T) {
	q, err := ParseMovements(getter(map[string]string{"station": "a", "direction": "toward-b", "where": `status != "cancelled"`}))
	require.NoError(t, err)

	once := q.Apply(sampleMovements())
	twice := q.Apply(once)

	assert.Equal(t, ids(once), ids(twice))
}

func TestCompileExpressionRequiresBool(t *testing.T) {
	_, err := CompileExpression("delayMinutes + 1")
	assert.Error(t, err)

	expression, err := CompileExpression(`"Cancelled per realtime update" in disruptions`)
	require.NoError(t, err)
	assert.True(t, expression.Matches(&ctdf.Movement{Disruptions: []string{"Cancelled per realtime update"}}))
	assert.False(t, expression.Matches(&ctdf.Movement{}))
}

func TestNewWindow(t *testing.T) {
	location, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	now := time.Date(2026, time.October, 20, 23, 30, 0, 0, location)

	window, err := NewWindow(TimeWindowNow, now, location)
	require.NoError(t, err)
	assert.True(t, now.Add(-15*time.Minute).Equal(window.Start))
	assert.True(t, now.Add(time.Hour).Equal(window.End))

	window, err = NewWindow(TimeWindowNext, now, location)
	require.NoError(t, err)
	assert.True(t, now.Add(-5*time.Minute).Equal(window.Start))
	assert.True(t, now.Add(2*time.Hour).Equal(window.End))
	assert.True(t, window.Contains(window.Start))
	assert.True(t, window.Contains(window.End))
	assert.False(t, window.Contains(window.End.Add(time.Second)))

	window, err = NewWindow(TimeWindowDay, now, location)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, time.October, 20, 0, 0, 0, 0, location).Equal(window.Start))
	assert.True(t, time.Date(2026, time.October, 21, 0, 0, 0, 0, location).Equal(window.End))

	_, err = NewWindow("week", now, location)
	assert.Error(t, err)
}
