/*
Package points holds the tabular GPS input of the bulk matcher and the two
steps that turn it into per-trip request material.

# Tables

A Table is an ordered set of rows with named columns. Cells are untyped so
that CSV text, decoded JSON and in-memory values can be mixed:

	tbl := points.NewTable("trip_id", "collect_time", "lat", "lon")
	_ = tbl.Append("A", "2024-03-01 08:00:00+0000", 42.69, 23.32)

ReadCSV builds a Table from CSV with a header row.

# Extract

Extract renames columns into the canonical names (lat, lon, timestamp,
radius, waypoint), checks that lat and lon exist and converts timestamps to
epoch seconds. It works on a copy; the caller's table is never modified.

	frame, err := points.Extract(tbl, map[string]string{"collect_time": "timestamp"}, "")

# Partition

Partition sorts a Frame by (group key, timestamp) and splits it into one
Group per key. Without a group column it returns a single Group keyed
Ungrouped holding every point in input order.
*/
package points
