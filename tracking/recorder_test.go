package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/osrm-bulk/gtfsrt"
)

func snapshot(ts int64, vps ...gtfsrt.VehiclePosition) *gtfsrt.Feed {
	return &gtfsrt.Feed{Timestamp: ts, Vehicles: vps}
}

func TestRecorder_AccumulatesTraces(t *testing.T) {
	r := NewRecorder(10)

	kept := r.Add(snapshot(100,
		gtfsrt.VehiclePosition{TripID: "T2", Lat: 42.0, Lon: 23.0, Timestamp: 100},
		gtfsrt.VehiclePosition{TripID: "T1", Lat: 42.1, Lon: 23.1, Timestamp: 100},
		gtfsrt.VehiclePosition{VehicleID: "deadhead", Lat: 1, Lon: 1, Timestamp: 100},
	))
	assert.Equal(t, 2, kept)

	kept = r.Add(snapshot(130,
		// same timestamp as before: duplicate
		gtfsrt.VehiclePosition{TripID: "T2", Lat: 42.01, Lon: 23.0, Timestamp: 100},
		// ~1 m away: jitter
		gtfsrt.VehiclePosition{TripID: "T1", Lat: 42.10001, Lon: 23.1, Timestamp: 130},
	))
	assert.Equal(t, 0, kept)

	kept = r.Add(snapshot(160,
		gtfsrt.VehiclePosition{TripID: "T2", Lat: 42.01, Lon: 23.0, Timestamp: 160},
		gtfsrt.VehiclePosition{TripID: "T1", Lat: 42.11, Lon: 23.1, Timestamp: 160},
	))
	assert.Equal(t, 2, kept)

	assert.Equal(t, []string{"T2", "T1"}, r.Trips())
	assert.Equal(t, 4, r.Len())
	require.Len(t, r.Trace("T1"), 2)
	assert.Equal(t, int64(160), r.Trace("T1")[1].Timestamp)
}

func TestRecorder_IgnoresStaleSnapshot(t *testing.T) {
	r := NewRecorder(0)
	r.Add(snapshot(200, gtfsrt.VehiclePosition{TripID: "T1", Lat: 1, Lon: 1, Timestamp: 200}))
	assert.Equal(t, 0, r.Add(snapshot(150, gtfsrt.VehiclePosition{TripID: "T9", Lat: 1, Lon: 1, Timestamp: 150})))
	assert.Equal(t, []string{"T1"}, r.Trips())
}

func TestRecorder_Table(t *testing.T) {
	r := NewRecorder(0)
	r.Add(snapshot(1,
		gtfsrt.VehiclePosition{TripID: "B", Lat: 1, Lon: 1, Timestamp: 1},
		gtfsrt.VehiclePosition{TripID: "A", Lat: 2, Lon: 2, Timestamp: 1},
	))
	r.Add(snapshot(2, gtfsrt.VehiclePosition{TripID: "B", Lat: 1.1, Lon: 1, Timestamp: 2}))

	tbl := r.Table(2)
	require.Equal(t, 2, tbl.Len(), "trip A has a single fix and is left out")
	v, _ := tbl.Value(0, gtfsrt.ColTripID)
	assert.Equal(t, "B", v)

	all := r.Table(0)
	assert.Equal(t, 3, all.Len())
	first, _ := all.Value(0, gtfsrt.ColTripID)
	assert.Equal(t, "A", first)

	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Trips())
}
