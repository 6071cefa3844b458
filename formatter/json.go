package formatter

import (
	"encoding/json"

	"github.com/theoremus-urban-solutions/osrm-bulk/points"
	"github.com/theoremus-urban-solutions/osrm-bulk/unpack"
)

type errorBody struct {
	Error string `json:"error"`
}

// BuildJSON serializes a keyed result set. An ungrouped result is written
// as the bare response object; a grouped one as an object keyed by group,
// with failed groups written as {"error": "..."}. Keys appear in result order.
func BuildJSON(src unpack.Source) ([]byte, error) {
	keys := src.Keys()
	if len(keys) == 1 && keys[0] == points.Ungrouped {
		resp, err := src.Response(keys[0])
		if err != nil {
			return json.Marshal(errorBody{Error: err.Error()})
		}
		return json.Marshal(resp)
	}

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')

		var v any
		if resp, err := src.Response(k); err != nil {
			v = errorBody{Error: err.Error()}
		} else {
			v = resp
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}

// BuildFrameJSON serializes a flattened frame as an array of row objects,
// each carrying the group key and the unpacked fields.
func BuildFrameJSON(fr *unpack.Frame) ([]byte, error) {
	rows := make([]map[string]any, fr.Len())
	for i, r := range fr.Rows {
		row := make(map[string]any, len(fr.Fields)+1)
		if fr.Keys[i] != points.Ungrouped {
			row[unpack.KeyColumn] = fr.Keys[i]
		}
		for j, f := range fr.Fields {
			row[f] = r[j]
		}
		rows[i] = row
	}
	return json.Marshal(rows)
}
