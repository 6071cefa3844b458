// Package tracking records vehicle positions over time.
//
// A Recorder is fed successive GTFS-RT vehicle positions snapshots and keeps
// one trace per trip. Repeated fixes and fixes that moved less than a
// configured distance are dropped, so a stationary vehicle does not produce
// a cluster of identical points for the map matcher. The recorded traces are
// exported as a point table grouped by trip_id.
package tracking
