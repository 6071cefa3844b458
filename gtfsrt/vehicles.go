package gtfsrt

import (
	"fmt"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/osrm-bulk/points"
)

// Columns of the table produced by Feed.Table.
const (
	ColTripID    = "trip_id"
	ColVehicleID = "vehicle_id"
	ColRouteID   = "route_id"
	ColBearing   = "bearing"
)

// VehiclePosition is one vehicle fix from a feed.
type VehiclePosition struct {
	TripID    string
	VehicleID string
	RouteID   string
	Lat       float64
	Lon       float64
	Timestamp int64    // epoch seconds; the header timestamp when the entity has none
	Bearing   *float64 // nil when not reported
}

// Feed is a decoded vehicle positions snapshot.
type Feed struct {
	Timestamp int64
	Vehicles  []VehiclePosition
}

// ParseVehiclePositions decodes a GTFS-RT FeedMessage and keeps the vehicle
// entities that carry a position. Entities without a trip are kept with an
// empty TripID.
func ParseVehiclePositions(data []byte) (*Feed, error) {
	var fm gtfsrtpb.FeedMessage
	if err := proto.Unmarshal(data, &fm); err != nil {
		return nil, fmt.Errorf("decode feed message: %w", err)
	}
	feed := &Feed{}
	if fm.Header != nil && fm.Header.Timestamp != nil {
		feed.Timestamp = int64(*fm.Header.Timestamp)
	}
	for _, e := range fm.Entity {
		v := e.GetVehicle()
		if v == nil || v.Position == nil {
			continue
		}
		vp := VehiclePosition{
			TripID:    v.GetTrip().GetTripId(),
			RouteID:   v.GetTrip().GetRouteId(),
			VehicleID: v.GetVehicle().GetId(),
			Lat:       float64(v.Position.GetLatitude()),
			Lon:       float64(v.Position.GetLongitude()),
			Timestamp: feed.Timestamp,
		}
		if v.Timestamp != nil {
			vp.Timestamp = int64(*v.Timestamp)
		}
		if v.Position.Bearing != nil {
			b := float64(*v.Position.Bearing)
			vp.Bearing = &b
		}
		feed.Vehicles = append(feed.Vehicles, vp)
	}
	return feed, nil
}

// VehiclePositions decodes a feed straight into a point table.
func VehiclePositions(data []byte) (*points.Table, error) {
	feed, err := ParseVehiclePositions(data)
	if err != nil {
		return nil, err
	}
	return feed.Table(), nil
}

// NewTable returns an empty table with the vehicle position columns.
func NewTable() *points.Table {
	return points.NewTable(ColTripID, ColVehicleID, ColRouteID,
		points.ColLat, points.ColLon, points.ColTimestamp, ColBearing)
}

// Row returns the table row for vp, in NewTable column order.
func (vp VehiclePosition) Row() []any {
	var bearing any
	if vp.Bearing != nil {
		bearing = *vp.Bearing
	}
	return []any{vp.TripID, vp.VehicleID, vp.RouteID, vp.Lat, vp.Lon, vp.Timestamp, bearing}
}

// Table converts the feed to a point table, one row per vehicle.
func (f *Feed) Table() *points.Table {
	t := NewTable()
	for _, vp := range f.Vehicles {
		_ = t.Append(vp.Row()...)
	}
	return t
}
