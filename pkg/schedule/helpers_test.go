package schedule

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/travigo/corridor/pkg/corridor"
)

var sampleGTFS = map[string]string{
	"agency.txt": `agency_id,agency_name,agency_url,agency_timezone
SydneyTrains,Sydney Trains,http://transportnsw.info,Australia/Sydney
`,
	"stops.txt": `stop_id,stop_name,stop_lat,stop_lon,location_type,parent_station,platform_code
2141,Lidcombe Station,-33.86437,151.04698,1,,
214111,Lidcombe Station Platform 1,-33.86437,151.04698,0,2141,1
214112,Lidcombe Station Platform 2,-33.86437,151.04698,0,2141,2
214113,Lidcombe Station Platform 3,-33.86437,151.04698,0,2141,3
2144,Auburn Station,-33.84921,151.03282,1,,
214421,Auburn Station Platform 1,-33.84921,151.03282,0,2144,1
214422,Auburn Station Platform 2,-33.84921,151.03282,0,2144,2
214423,Auburn Station Platform 3,-33.84921,151.03282,0,2144,3
214424,Auburn Station Platform 4,-33.84921,151.03282,0,2144,4
200060,Central Station,-33.88291,151.20629,0,,
215020,Parramatta Station,-33.81733,151.00445,0,,
`,
	"routes.txt": `route_id,agency_id,route_short_name,route_long_name,route_type
WST_1a,SydneyTrains,T1,Western Line,2
BUS_1,SydneyTrains,S1,Rail replacement,700
`,
	"trips.txt": `route_id,service_id,trip_id,trip_headsign,trip_short_name,direction_id
WST_1a,WEEK,T1,Penrith,101A,1
WST_1a,WEEK,T2,,102B,0
WST_1a,WEEK,T3,,103C,1
BUS_1,WEEK,T4,,,1
WST_1a,WEEK,T5,,105E,0
WST_1a,WEEK,T6,,106F,1
`,
	"stop_times.txt": `trip_id,arrival_time,departure_time,stop_id,stop_sequence,pickup_type,drop_off_type
T1,07:50:00,07:50:00,200060,1,,
T1,08:00:00,08:00:30,214112,2,0,0
T1,08:03:00,08:03:30,214422,3,0,0
T1,08:10:00,08:10:00,215020,4,,
T2,07:40:00,07:40:00,215020,1,,
T2,07:50:00,07:50:00,214421,2,0,0
T2,07:53:00,07:53:00,214111,3,0,0
T2,08:05:00,08:05:00,200060,4,,
T3,24:10:00,24:10:00,214113,2,1,1
T3,24:13:00,24:13:00,214423,3,1,1
T3,24:30:00,24:30:00,215020,4,,
T3,23:59:00,23:59:00,200060,1,,
T4,08:00:00,08:00:00,214112,1,,
T4,08:05:00,08:05:00,214422,2,,
T5,09:00:00,09:00:00,214424,1,,
T5,09:10:00,09:10:00,200060,2,,
T6,10:00:00,10:00:00,200060,1,,
T6,10:30:00,10:30:00,215020,2,,
`,
	"calendar.txt": `service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date
WEEK,1,1,1,1,1,0,0,20260101,20271231
`,
	"calendar_dates.txt": `service_id,date,exception_type
WEEK,20261019,2
WEEK,20261018,1
`,
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	buffer := &bytes.Buffer{}
	writer := zip.NewWriter(buffer)

	for name, content := range files {
		file, err := writer.Create(name)
		require.NoError(t, err)

		_, err = file.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())

	return buffer.Bytes()
}

func testCorridor(t *testing.T) *corridor.Corridor {
	t.Helper()

	c, err := corridor.NewCorridor(corridor.DefaultConfig())
	require.NoError(t, err)

	return c
}

func sampleTimetable(t *testing.T, c *corridor.Corridor) *Timetable {
	t.Helper()

	timetable, err := ParseTimetable(buildZip(t, sampleGTFS), c)
	require.NoError(t, err)

	return timetable
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

type stubProvider struct {
	timetables []*Timetable
	err        error
	calls      atomic.Int32
}

func (s *stubProvider) GetTimetable(ctx context.Context, serviceDate time.Time) (*Timetable, error) {
	call := int(s.calls.Add(1))

	if s.err != nil {
		return nil, s.err
	}
	if len(s.timetables) == 0 {
		return nil, errors.New("no timetable")
	}
	if call > len(s.timetables) {
		return s.timetables[len(s.timetables)-1], nil
	}

	return s.timetables[call-1], nil
}
