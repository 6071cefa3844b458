// Package osrmbulk is a client for an OSRM routing engine with a bulk map
// matching pipeline.
//
// MatchTable takes a table of timestamped GPS points, splits it into one
// group per trip, sends one match request per group with a bounded number
// in flight and returns a Result keyed by group. A failed group does not
// fail the call; its Entry carries the error instead.
//
//	c, _ := osrmbulk.NewClient("localhost", 5000)
//	defer c.Close()
//	res, err := c.MatchTable(ctx, tbl, osrmbulk.MatchRequest{GroupColumn: "trip_id"})
//	frame := res.Flatten([]string{"confidence", "geometry"})
package osrmbulk
