package unpack

import (
	"github.com/theoremus-urban-solutions/osrm-bulk/points"
)

// KeyColumn is the first column of a flattened Frame.
const KeyColumn = "group"

// Source is a keyed set of match responses, as produced by a bulk match.
type Source interface {
	Keys() []string
	Response(key string) (map[string]any, error)
}

// Frame is the columnar view of a set of unpacked responses: one row per
// group key, one column per field.
type Frame struct {
	Fields []string
	Keys   []string
	Rows   [][]any
}

// Flatten unpacks every response of src. Groups whose request failed get a
// row of nils so the frame keeps one row per key.
func Flatten(src Source, fields []string) *Frame {
	keys := src.Keys()
	fr := &Frame{
		Fields: append([]string(nil), fields...),
		Keys:   keys,
		Rows:   make([][]any, len(keys)),
	}
	for i, k := range keys {
		resp, err := src.Response(k)
		if err != nil {
			fr.Rows[i] = make([]any, len(fields))
			continue
		}
		fr.Rows[i] = Unpack(resp, fields).Values(fields)
	}
	return fr
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// Column returns the values of one field, or nil for an unknown field.
func (f *Frame) Column(field string) []any {
	idx := -1
	for i, c := range f.Fields {
		if c == field {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]any, len(f.Rows))
	for i, r := range f.Rows {
		out[i] = r[idx]
	}
	return out
}

// Table converts the frame to a point table with the group key first.
// Ungrouped keys are written as an empty string. Cell values are shared.
func (f *Frame) Table() *points.Table {
	t := points.NewTable(append([]string{KeyColumn}, f.Fields...)...)
	for i, r := range f.Rows {
		key := f.Keys[i]
		if key == points.Ungrouped {
			key = ""
		}
		_ = t.Append(append([]any{key}, r...)...)
	}
	return t
}
