package gtfsrt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

type fix struct {
	id, trip, route, vehicle string
	lat, lon                 float32
	ts                       uint64
	bearing                  *float32
}

func feedBytes(t *testing.T, headerTS uint64, fixes ...fix) []byte {
	t.Helper()
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(headerTS),
		},
	}
	for _, f := range fixes {
		vp := &gtfsrtpb.VehiclePosition{
			Position: &gtfsrtpb.Position{
				Latitude:  proto.Float32(f.lat),
				Longitude: proto.Float32(f.lon),
				Bearing:   f.bearing,
			},
		}
		if f.trip != "" {
			vp.Trip = &gtfsrtpb.TripDescriptor{TripId: proto.String(f.trip), RouteId: proto.String(f.route)}
		}
		if f.vehicle != "" {
			vp.Vehicle = &gtfsrtpb.VehicleDescriptor{Id: proto.String(f.vehicle)}
		}
		if f.ts != 0 {
			vp.Timestamp = proto.Uint64(f.ts)
		}
		fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{Id: proto.String(f.id), Vehicle: vp})
	}
	// an entity without a vehicle is skipped
	fm.Entity = append(fm.Entity, &gtfsrtpb.FeedEntity{Id: proto.String("alert-1")})
	data, err := proto.Marshal(fm)
	require.NoError(t, err)
	return data
}

func TestParseVehiclePositions(t *testing.T) {
	data := feedBytes(t, 1700000100,
		fix{id: "1", trip: "T1", route: "R9", vehicle: "bus-7", lat: 42.5, lon: 23.25, ts: 1700000090, bearing: proto.Float32(90)},
		fix{id: "2", trip: "T2", vehicle: "bus-8", lat: 42.75, lon: 23.5},
	)

	feed, err := ParseVehiclePositions(data)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000100), feed.Timestamp)
	require.Len(t, feed.Vehicles, 2)

	v := feed.Vehicles[0]
	assert.Equal(t, "T1", v.TripID)
	assert.Equal(t, "R9", v.RouteID)
	assert.Equal(t, "bus-7", v.VehicleID)
	assert.Equal(t, 42.5, v.Lat)
	assert.Equal(t, 23.25, v.Lon)
	assert.Equal(t, int64(1700000090), v.Timestamp)
	require.NotNil(t, v.Bearing)
	assert.Equal(t, 90.0, *v.Bearing)

	assert.Equal(t, int64(1700000100), feed.Vehicles[1].Timestamp, "falls back to the header timestamp")
	assert.Nil(t, feed.Vehicles[1].Bearing)
}

func TestVehiclePositions_Table(t *testing.T) {
	data := feedBytes(t, 100, fix{id: "1", trip: "T1", lat: 1.5, lon: 2.5, ts: 90})
	tbl, err := VehiclePositions(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"trip_id", "vehicle_id", "route_id", "lat", "lon", "timestamp", "bearing"}, tbl.Columns())
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, []any{"T1", "", "", 1.5, 2.5, int64(90), nil}, tbl.Row(0))
}

func TestParseVehiclePositions_Garbage(t *testing.T) {
	_, err := ParseVehiclePositions([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestClient_FetchVehiclePositions(t *testing.T) {
	data := feedBytes(t, 100, fix{id: "1", trip: "T1", lat: 1, lon: 2})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vp.pb" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	c := NewClient(0)
	feed, err := c.FetchVehiclePositions(context.Background(), srv.URL+"/vp.pb")
	require.NoError(t, err)
	assert.Len(t, feed.Vehicles, 1)

	_, err = c.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "HTTP 404")

	b, err := c.Fetch(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, b)
}
