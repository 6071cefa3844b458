package points

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/theoremus-urban-solutions/osrm-bulk/utils"
)

// Canonical column names produced by Extract.
const (
	ColLat       = "lat"
	ColLon       = "lon"
	ColTimestamp = "timestamp"
	ColRadius    = "radius"
	ColWaypoint  = "waypoint"
)

// Point is one normalized GPS fix. Optional fields are nil when absent.
type Point struct {
	Lat       float64
	Lon       float64
	Timestamp *int64 // epoch seconds
	Radius    *float64
	Waypoint  *int
}

// Frame is a normalized copy of a point table: canonical column names,
// integer timestamps and one Point per row.
type Frame struct {
	Table  *Table
	Points []Point

	HasTimestamp bool
	HasRadius    bool
	HasWaypoint  bool
}

// Len returns the number of points.
func (f *Frame) Len() int { return len(f.Points) }

// Extract renames the columns of tbl, validates the required coordinate
// columns and converts timestamps to epoch seconds. Non-integer timestamps
// are parsed with format, which may be a Go layout or a strftime format; an
// empty format means utils.DefaultTimestampFormat. tbl is not modified.
func Extract(tbl *Table, renames map[string]string, format string) (*Frame, error) {
	if format == "" {
		format = utils.DefaultTimestampFormat
	}
	t := tbl.Rename(renames)
	for _, col := range []string{ColLat, ColLon} {
		if !t.Has(col) {
			return nil, missingColumn(col)
		}
	}
	f := &Frame{
		Table:        t,
		Points:       make([]Point, t.Len()),
		HasTimestamp: t.Has(ColTimestamp),
		HasRadius:    t.Has(ColRadius),
		HasWaypoint:  t.Has(ColWaypoint),
	}
	for i := range f.Points {
		p := &f.Points[i]
		var err error
		if p.Lat, err = floatCell(t, i, ColLat); err != nil {
			return nil, err
		}
		if p.Lon, err = floatCell(t, i, ColLon); err != nil {
			return nil, err
		}
		if f.HasTimestamp {
			v, _ := t.Value(i, ColTimestamp)
			ts, err := toEpochSeconds(v, format)
			if err != nil {
				return nil, &TimestampFormatError{Row: i, Value: cast.ToString(v), Format: format, Err: err}
			}
			t.set(i, ColTimestamp, ts)
			p.Timestamp = &ts
		}
		if f.HasRadius {
			if v, _ := t.Value(i, ColRadius); !isBlank(v) {
				r, err := cast.ToFloat64E(v)
				if err != nil {
					return nil, &SchemaError{Column: ColRadius, Row: i, Msg: err.Error()}
				}
				p.Radius = &r
			}
		}
		if f.HasWaypoint {
			if v, _ := t.Value(i, ColWaypoint); !isBlank(v) {
				w, err := cast.ToIntE(v)
				if err != nil {
					return nil, &SchemaError{Column: ColWaypoint, Row: i, Msg: err.Error()}
				}
				p.Waypoint = &w
			}
		}
	}
	return f, nil
}

func floatCell(t *Table, row int, col string) (float64, error) {
	v, _ := t.Value(row, col)
	if isBlank(v) {
		return 0, &SchemaError{Column: col, Row: row, Msg: "empty value"}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, &SchemaError{Column: col, Row: row, Msg: err.Error()}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &SchemaError{Column: col, Row: row, Msg: "not a finite number"}
	}
	return f, nil
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// toEpochSeconds keeps integer values as they are and parses everything else
// with format.
func toEpochSeconds(v any, format string) (int64, error) {
	switch x := v.(type) {
	case time.Time:
		return x.Unix(), nil
	case *time.Time:
		if x != nil {
			return x.Unix(), nil
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return cast.ToInt64E(x)
	case float32, float64:
		f := cast.ToFloat64(x)
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return int64(f), nil
		}
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		return utils.ParseEpochSeconds(s, format)
	}
	return utils.ParseEpochSeconds(cast.ToString(v), format)
}
