package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/theoremus-urban-solutions/osrm-bulk/points"
	"github.com/theoremus-urban-solutions/osrm-bulk/unpack"
)

// WriteFrameCSV writes a flattened frame as CSV with the group key first.
// A "geometry" column is written as WKT, decoded with geometries (the
// format the requests were sent with). Other nested values are written as
// JSON.
func WriteFrameCSV(w io.Writer, fr *unpack.Frame, geometries string) error {
	src := fr.Table()
	out := points.NewTable(src.Columns()...)
	for i := 0; i < src.Len(); i++ {
		row := src.Row(i)
		for j, col := range src.Columns() {
			cell, err := csvCell(col, row[j], geometries)
			if err != nil {
				return fmt.Errorf("row %d, %s: %w", i, col, err)
			}
			row[j] = cell
		}
		if err := out.Append(row...); err != nil {
			return err
		}
	}
	return out.WriteCSV(w)
}

func csvCell(col string, v any, geometries string) (any, error) {
	if v == nil {
		return nil, nil
	}
	if col == "geometry" {
		ls, err := unpack.Geometry(map[string]any{"geometry": v}, geometries)
		if err != nil {
			return nil, err
		}
		return wkt.Marshal(ls)
	}
	switch v.(type) {
	case string, float64, int64, int, bool:
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
