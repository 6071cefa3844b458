package unpack

import (
	"github.com/spf13/cast"
)

// Record maps each requested field to its value in the chosen matching, or
// nil when the field is absent or nothing matched.
type Record map[string]any

// Values returns the record's values in fields order.
func (r Record) Values(fields []string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = r[f]
	}
	return out
}

// Unpack picks the best matching of a match response and extracts fields
// from it. With no matchings every field is nil; with several, the one with
// the highest confidence wins and ties go to the earliest.
func Unpack(resp map[string]any, fields []string) Record {
	rec := make(Record, len(fields))
	m := BestMatching(resp)
	for _, f := range fields {
		rec[f] = m[f]
	}
	return rec
}

// BestMatching returns the matching with the highest confidence, or nil when
// the response carries none. A matching without a numeric confidence only
// wins when no other matching has one.
func BestMatching(resp map[string]any) map[string]any {
	matchings := Matchings(resp)
	switch len(matchings) {
	case 0:
		return nil
	case 1:
		return matchings[0]
	}
	best := -1
	var bestConf float64
	for i, m := range matchings {
		c, err := cast.ToFloat64E(m["confidence"])
		if err != nil || m["confidence"] == nil {
			continue
		}
		if best < 0 || c > bestConf {
			best, bestConf = i, c
		}
	}
	if best < 0 {
		best = 0
	}
	return matchings[best]
}

// Matchings returns the response's matchings that are JSON objects.
func Matchings(resp map[string]any) []map[string]any {
	raw, _ := resp["matchings"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
