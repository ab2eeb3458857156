package alerts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/corridor/pkg/ctdf"
	"github.com/travigo/corridor/pkg/dataaggregator/query"
	"google.golang.org/protobuf/proto"
)

var now = time.Date(2026, time.October, 20, 8, 0, 0, 0, time.UTC)

func text(value string) *gtfs.TranslatedString {
	return &gtfs.TranslatedString{
		Translation: []*gtfs.TranslatedString_Translation{
			{Text: proto.String(value + " (fr)"), Language: proto.String("fr")},
			{Text: proto.String(value), Language: proto.String("en")},
		},
	}
}

func alertFeed() *gtfs.FeedMessage {
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{GtfsRealtimeVersion: proto.String("2.0")},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("signal-fault"),
				Alert: &gtfs.Alert{
					Cause:           gtfs.Alert_TECHNICAL_PROBLEM.Enum(),
					Effect:          gtfs.Alert_SIGNIFICANT_DELAYS.Enum(),
					HeaderText:      text("Delays at Lidcombe"),
					DescriptionText: text("A signal fault is causing delays"),
					ActivePeriod: []*gtfs.TimeRange{
						{Start: proto.Uint64(uint64(now.Add(-time.Hour).Unix())), End: proto.Uint64(uint64(now.Add(time.Hour).Unix()))},
					},
					InformedEntity: []*gtfs.EntitySelector{
						{RouteId: proto.String("WST_1a")},
						{RouteId: proto.String("WST_1a")},
						{StopId: proto.String("2141")},
					},
				},
			},
			{
				Id: proto.String("expired"),
				Alert: &gtfs.Alert{
					HeaderText: text("Trackwork last weekend"),
					ActivePeriod: []*gtfs.TimeRange{
						{End: proto.Uint64(uint64(now.Add(-24 * time.Hour).Unix()))},
					},
					InformedEntity: []*gtfs.EntitySelector{
						{Trip: &gtfs.TripDescriptor{TripId: proto.String("T1")}},
					},
				},
			},
			{
				Id:         proto.String("vehicle-only"),
				TripUpdate: &gtfs.TripUpdate{Trip: &gtfs.TripDescriptor{TripId: proto.String("T9")}},
			},
		},
	}
}

func TestDecodeGTFSRT(t *testing.T) {
	alerts := DecodeGTFSRT(alertFeed(), now)
	require.Len(t, alerts, 2)

	active := alerts[0]
	assert.Equal(t, "signal-fault", active.PrimaryIdentifier)
	assert.Equal(t, "technical problem", active.Cause)
	assert.Equal(t, "significant delays", active.Effect)
	assert.Equal(t, "Delays at Lidcombe", active.Header)
	assert.Equal(t, "A signal fault is causing delays", active.Description)
	assert.Equal(t, []string{"WST_1a"}, active.RouteIDs)
	assert.Equal(t, []string{"2141"}, active.StopIDs)
	assert.Empty(t, active.TripIDs)
	assert.True(t, active.IsActive)

	expired := alerts[1]
	assert.Equal(t, "unknown", expired.Cause)
	assert.Equal(t, []string{"T1"}, expired.TripIDs)
	require.Len(t, expired.ActivePeriods, 1)
	assert.Nil(t, expired.ActivePeriods[0].Start)
	assert.False(t, expired.IsActive)
}

func TestIsActive(t *testing.T) {
	before := now.Add(-time.Minute)
	after := now.Add(time.Minute)

	tests := []struct {
		name    string
		periods []ctdf.TimePeriod
		active  bool
	}{
		{"no periods", nil, true},
		{"open start", []ctdf.TimePeriod{{End: &after}}, true},
		{"open end", []ctdf.TimePeriod{{Start: &before}}, true},
		{"ended", []ctdf.TimePeriod{{End: &before}}, false},
		{"future", []ctdf.TimePeriod{{Start: &after}}, false},
		{"end is exclusive", []ctdf.TimePeriod{{Start: &before, End: &now}}, false},
		{"any period", []ctdf.TimePeriod{{End: &before}, {Start: &before, End: &after}}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.active, IsActive(test.periods, now))
		})
	}
}

const siriDocument = `<?xml version="1.0" encoding="ISO-8859-1"?>
<Siri xmlns="http://www.siri.org.uk/siri" version="2.0">
  <ServiceDelivery>
    <SituationExchangeDelivery>
      <Situations>
        <PtSituationElement>
          <SituationNumber>SX-100</SituationNumber>
          <Progress>open</Progress>
          <ValidityPeriod>
            <StartTime>2026-10-20T06:00:00Z</StartTime>
          </ValidityPeriod>
          <EquipmentReason>signalProblem</EquipmentReason>
          <Summary>Trains to Central run late</Summary>
          <Description>Allow extra travel time via Auburn</Description>
          <Consequences>
            <Consequence>
              <Condition>disrupted</Condition>
              <Affects>
                <Networks>
                  <AffectedNetwork>
                    <AffectedLine><LineRef>CCN_2</LineRef></AffectedLine>
                  </AffectedNetwork>
                </Networks>
                <VehicleJourneys>
                  <AffectedVehicleJourney>
                    <FramedVehicleJourneyRef><DatedVehicleJourneyRef>T3</DatedVehicleJourneyRef></FramedVehicleJourneyRef>
                  </AffectedVehicleJourney>
                </VehicleJourneys>
              </Affects>
            </Consequence>
          </Consequences>
        </PtSituationElement>
        <PtSituationElement>
          <SituationNumber>SX-101</SituationNumber>
          <Progress>closed</Progress>
          <Summary>Resolved</Summary>
        </PtSituationElement>
      </Situations>
    </SituationExchangeDelivery>
  </ServiceDelivery>
</Siri>`

func TestDecodeSIRISX(t *testing.T) {
	alerts, err := DecodeSIRISX(strings.NewReader(siriDocument), now)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	alert := alerts[0]
	assert.Equal(t, "SX-100", alert.PrimaryIdentifier)
	assert.Equal(t, "signal problem", alert.Cause)
	assert.Equal(t, "disrupted", alert.Effect)
	assert.Equal(t, []string{"CCN_2"}, alert.RouteIDs)
	assert.Equal(t, []string{"T3"}, alert.TripIDs)
	assert.True(t, alert.IsActive)
	assert.Equal(t, "siri-sx", alert.Source)
}

func TestDecodeSIRISXUnreadableValidity(t *testing.T) {
	document := strings.NewReplacer(
		"<StartTime>2026-10-20T06:00:00Z</StartTime>",
		"<StartTime>2026-10-19T06:00:00Z</StartTime><EndTime>19/10/2026 07:00</EndTime>",
	).Replace(siriDocument)

	alerts, err := DecodeSIRISX(strings.NewReader(document), now)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	assert.Empty(t, alerts[0].ActivePeriods)
	assert.False(t, alerts[0].IsActive)
}

func TestDecodeSIRISXMalformed(t *testing.T) {
	_, err := DecodeSIRISX(strings.NewReader("<Siri><PtSituationElement><Summary>broken"), now)
	assert.Error(t, err)
}

func TestAlertsForMovement(t *testing.T) {
	routeAlert := &ctdf.ServiceAlert{PrimaryIdentifier: "route", RouteIDs: []string{"WST_1a"}, IsActive: true}
	tripAlert := &ctdf.ServiceAlert{PrimaryIdentifier: "trip", RouteIDs: []string{"WST_1a"}, TripIDs: []string{"T1"}, IsActive: true}
	inactive := &ctdf.ServiceAlert{PrimaryIdentifier: "inactive", RouteIDs: []string{"WST_1a"}, IsActive: false}
	other := &ctdf.ServiceAlert{PrimaryIdentifier: "other", RouteIDs: []string{"NSN_1"}, IsActive: true}

	all := []*ctdf.ServiceAlert{routeAlert, tripAlert, inactive, other}

	ids := func(alerts []*ctdf.ServiceAlert) []string {
		identifiers := []string{}
		for _, alert := range alerts {
			identifiers = append(identifiers, alert.PrimaryIdentifier)
		}
		return identifiers
	}

	assert.Equal(t, []string{"trip"}, ids(AlertsForMovement(all, "T1", "WST_2b")))
	assert.Equal(t, []string{"route", "trip"}, ids(AlertsForMovement(all, "T2", "WST_2b")))
	assert.Equal(t, []string{"route"}, ids(AlertsForMovement([]*ctdf.ServiceAlert{routeAlert, inactive}, "T2", "WST_2b")))
	assert.Equal(t, []string{"other"}, ids(AlertsForMovement(all, "T2", "NSN_9")))
	assert.Empty(t, AlertsForMovement(all, "", ""))
	assert.Empty(t, AlertsForMovement(all, "T5", "WSTX_1"))
}

func TestRender(t *testing.T) {
	assert.Equal(t, "Delays at Lidcombe (technical problem)", Render(&ctdf.ServiceAlert{Header: "Delays at Lidcombe", Cause: "technical problem"}))
	assert.Equal(t, "Delays at Lidcombe", Render(&ctdf.ServiceAlert{Header: "Delays at Lidcombe", Cause: "unknown"}))
	assert.Equal(t, "Delays at Lidcombe", Render(&ctdf.ServiceAlert{Header: "Delays at Lidcombe"}))
}

func TestCorrelate(t *testing.T) {
	movement := &ctdf.Movement{TripID: "T1", RouteID: "WST_1a", Disruptions: []string{}}
	alert := &ctdf.ServiceAlert{Header: "Lift out of service", Cause: "maintenance", RouteIDs: []string{"WST_3"}, IsActive: true}

	Correlate([]*ctdf.Movement{movement}, []*ctdf.ServiceAlert{alert, alert})

	assert.Equal(t, []string{"Lift out of service (maintenance)"}, movement.Disruptions)
}

func TestFeedSourceNotConfigured(t *testing.T) {
	source := &FeedSource{Now: func() time.Time { return now }}

	alerts, status := source.Fetch(context.Background(), query.Window{})

	assert.Empty(t, alerts)
	assert.Equal(t, ctdf.FeedHealthOffline, status.Status)
	assert.Equal(t, "no alert feed configured", status.Error)
}

func TestFeedSourceGTFSRT(t *testing.T) {
	body, err := proto.Marshal(alertFeed())
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apikey secret", r.Header.Get("Authorization"))
		w.Write(body)
	}))
	defer server.Close()

	source := &FeedSource{URL: server.URL, APIKey: "secret", Format: FormatGTFSRT, Now: func() time.Time { return now }}

	alerts, status := source.Fetch(context.Background(), query.Window{})

	assert.Len(t, alerts, 2)
	assert.Equal(t, ctdf.FeedHealthOnline, status.Status)
	assert.Equal(t, ctdf.SourceServiceAlerts, status.Source)
}

func TestFeedSourceSIRISX(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(siriDocument))
	}))
	defer server.Close()

	source := &FeedSource{URL: server.URL, Format: FormatSIRISX, Now: func() time.Time { return now }}

	alerts, status := source.Fetch(context.Background(), query.Window{})

	assert.Len(t, alerts, 1)
	assert.Equal(t, ctdf.FeedHealthOnline, status.Status)
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatGTFSRT, format)

	format, err = ParseFormat("siri-sx")
	require.NoError(t, err)
	assert.Equal(t, FormatSIRISX, format)

	_, err = ParseFormat("rss")
	assert.Error(t, err)
}
