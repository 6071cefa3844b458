// Package gtfsrt fetches GTFS-Realtime vehicle positions feeds and turns
// them into point tables that can be map matched.
//
// Only the VehiclePosition entities of a FeedMessage are read; trip updates
// and alerts are ignored.
package gtfsrt
