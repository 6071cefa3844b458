package unpack

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-polyline"
)

// ErrNoGeometry is returned when a matching carries no geometry field.
var ErrNoGeometry = errors.New("matching has no geometry")

// Geometry decodes the "geometry" field of a matching into a line string.
// format is the geometries option the request was sent with: "polyline",
// "polyline6" or "geojson".
func Geometry(matching map[string]any, format string) (*geom.LineString, error) {
	raw, ok := matching["geometry"]
	if !ok || raw == nil {
		return nil, ErrNoGeometry
	}
	switch v := raw.(type) {
	case string:
		precision := 5
		if format == "polyline6" {
			precision = 6
		}
		return DecodePolyline(v, precision)
	case map[string]any:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, fmt.Errorf("decode geojson geometry: %w", err)
		}
		ls, ok := g.(*geom.LineString)
		if !ok {
			return nil, fmt.Errorf("geometry is %T, want LineString", g)
		}
		return ls, nil
	}
	return nil, fmt.Errorf("unsupported geometry value %T", raw)
}

// DecodePolyline decodes an encoded polyline with the given decimal
// precision (5 for polyline, 6 for polyline6) into an XY line string of
// (lon, lat) coordinates.
func DecodePolyline(s string, precision int) (*geom.LineString, error) {
	codec := polyline.Codec{Dim: 2, Scale: math.Pow10(precision)}
	coords, _, err := codec.DecodeCoords([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("decode polyline: %w", err)
	}
	flat := make([]float64, 0, 2*len(coords))
	for _, c := range coords {
		flat = append(flat, c[1], c[0])
	}
	return geom.NewLineStringFlat(geom.XY, flat), nil
}
