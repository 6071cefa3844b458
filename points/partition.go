package points

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Ungrouped is the key of the single Group returned when no group column is given.
const Ungrouped = "\x00ungrouped"

// Group is one maximal run of points sharing a group key, in timestamp order.
type Group struct {
	Key    string
	Points []Point
	Rows   []int // row indices into the Frame's table, aligned with Points
}

// Len returns the number of points in the group.
func (g Group) Len() int { return len(g.Points) }

// Grouped reports whether g came from a grouped partition.
func (g Group) Grouped() bool { return g.Key != Ungrouped }

// Partition splits f into groups. With an empty groupColumn it returns one
// Ungrouped group holding every point in input order. Otherwise rows are
// stably sorted by (group key, timestamp) and cut into one Group per key,
// in ascending key order.
func Partition(f *Frame, groupColumn string) ([]Group, error) {
	if groupColumn == "" {
		rows := make([]int, f.Len())
		for i := range rows {
			rows[i] = i
		}
		return []Group{{
			Key:    Ungrouped,
			Points: append([]Point(nil), f.Points...),
			Rows:   rows,
		}}, nil
	}
	if !f.Table.Has(groupColumn) {
		return nil, missingColumn(groupColumn)
	}

	keys := make([]groupKey, f.Len())
	order := make([]int, f.Len())
	for i := range order {
		order[i] = i
		v, _ := f.Table.Value(i, groupColumn)
		keys[i] = newGroupKey(v)
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := order[a], order[b]
		if c := keys[ra].compare(keys[rb]); c != 0 {
			return c < 0
		}
		ta, tb := f.Points[ra].Timestamp, f.Points[rb].Timestamp
		if ta == nil || tb == nil {
			return false
		}
		return *ta < *tb
	})

	var groups []Group
	for _, row := range order {
		k := keys[row].text
		if n := len(groups); n == 0 || groups[n-1].Key != k {
			groups = append(groups, Group{Key: k})
		}
		g := &groups[len(groups)-1]
		g.Points = append(g.Points, f.Points[row])
		g.Rows = append(g.Rows, row)
	}
	return groups, nil
}

type groupKey struct {
	text    string
	num     float64
	numeric bool
}

func newGroupKey(v any) groupKey {
	k := groupKey{text: cast.ToString(v)}
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		k.num, k.numeric = cast.ToFloat64(v), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(k.text), 64); err == nil {
			k.num, k.numeric = f, true
		}
	}
	if math.IsNaN(k.num) || math.IsInf(k.num, 0) {
		k.num, k.numeric = 0, false
	}
	return k
}

// compare orders numeric keys numerically and before non-numeric keys;
// everything else, and numeric ties, fall back to the text form.
func (k groupKey) compare(o groupKey) int {
	switch {
	case k.numeric && o.numeric:
		if k.num < o.num {
			return -1
		}
		if k.num > o.num {
			return 1
		}
	case k.numeric:
		return -1
	case o.numeric:
		return 1
	}
	return strings.Compare(k.text, o.text)
}
