package stats

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator"
)

func TestRecordCycle(t *testing.T) {
	collector := NewCollector()

	now := time.Date(2026, time.October, 20, 8, 0, 0, 0, time.UTC)
	response := &dataaggregator.Response{
		Movements: []*ctdf.Movement{
			{Status: ctdf.MovementStatusScheduled, Confidence: ctdf.NewConfidence(ctdf.ConfidenceScheduled, "", ctdf.SourceGTFSStatic, now)},
			{Status: ctdf.MovementStatusLive, Confidence: ctdf.NewConfidence(ctdf.ConfidenceConfirmedLive, "", ctdf.SourceVehiclePositions, now)},
			{Status: ctdf.MovementStatusScheduled, Confidence: ctdf.NewConfidence(ctdf.ConfidenceEstimatedFreight, "", ctdf.SourceFreightModel, now)},
		},
		Feeds: []ctdf.FeedStatus{
			ctdf.OnlineFeed("schedule", ctdf.SourceGTFSStatic, now, 2),
			ctdf.OfflineFeed("trip-updates", ctdf.SourceTripUpdates, now, nil),
		},
		Alerts:         []*ctdf.ServiceAlert{{PrimaryIdentifier: "a1"}},
		FallbackActive: true,
	}

	collector.RecordCycle(150*time.Millisecond, response)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Cycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.FallbackCycles))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.FeedStatus.WithLabelValues("schedule", "online")))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.FeedStatus.WithLabelValues("schedule", "offline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.FeedStatus.WithLabelValues("trip-updates", "offline")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Movements.WithLabelValues("confirmed-live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Movements.WithLabelValues("estimated-freight")))
	assert.Equal(t, 0.0, testutil.ToFloat64(collector.Movements.WithLabelValues("confirmed-updated")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.Statuses.WithLabelValues("scheduled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.ActiveAlerts))
}

func TestHandler(t *testing.T) {
	collector := NewCollector()
	collector.RecordCycle(time.Second, &dataaggregator.Response{})

	recorder := httptest.NewRecorder()
	collector.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "corridor_cycles_total 1")
}
