package osrmbulk

import (
	"errors"
	"fmt"

	"github.com/theoremus-urban-solutions/osrm-bulk/fetch"
	"github.com/theoremus-urban-solutions/osrm-bulk/points"
	"github.com/theoremus-urban-solutions/osrm-bulk/unpack"
)

// ErrGrouped is returned by Result.Single on a grouped result.
var ErrGrouped = errors.New("result is grouped")

// AssemblyError reports that groups and outcomes could not be zipped.
type AssemblyError struct {
	Groups   int
	Outcomes int
	Msg      string
}

func (e *AssemblyError) Error() string {
	if e.Msg != "" {
		return "assemble results: " + e.Msg
	}
	return fmt.Sprintf("assemble results: %d groups but %d outcomes", e.Groups, e.Outcomes)
}

// Entry is the outcome recorded for one group.
type Entry struct {
	Response map[string]any
	Status   int
	Err      error
}

// Result maps group keys to the outcome of their request. Keys keep the
// order in which the partitioner produced the groups.
type Result struct {
	keys    []string
	entries map[string]Entry
}

// Assemble zips group keys with fetch outcomes by position. The ungrouped
// case still returns a *Result holding the one entry keyed points.Ungrouped;
// Single returns that outcome unwrapped.
func Assemble(groups []points.Group, outcomes []fetch.Outcome) (*Result, error) {
	if len(groups) != len(outcomes) {
		return nil, &AssemblyError{Groups: len(groups), Outcomes: len(outcomes)}
	}
	r := &Result{
		keys:    make([]string, 0, len(groups)),
		entries: make(map[string]Entry, len(groups)),
	}
	for i, g := range groups {
		if _, dup := r.entries[g.Key]; dup {
			return nil, &AssemblyError{Groups: len(groups), Outcomes: len(outcomes), Msg: fmt.Sprintf("duplicate group key %q", g.Key)}
		}
		o := outcomes[i]
		r.keys = append(r.keys, g.Key)
		r.entries[g.Key] = Entry{Response: o.Payload, Status: o.Status, Err: o.Err}
	}
	return r, nil
}

// Keys returns the group keys in order.
func (r *Result) Keys() []string { return append([]string(nil), r.keys...) }

// Len returns the number of groups.
func (r *Result) Len() int { return len(r.keys) }

// Get returns the entry for key.
func (r *Result) Get(key string) (Entry, bool) {
	e, ok := r.entries[key]
	return e, ok
}

// Response returns the decoded response for key, or the error its request
// failed with.
func (r *Result) Response(key string) (map[string]any, error) {
	e, ok := r.entries[key]
	if !ok {
		return nil, fmt.Errorf("no group %q", key)
	}
	return e.Response, e.Err
}

// Grouped reports whether the result came from a grouped match.
func (r *Result) Grouped() bool {
	return !(len(r.keys) == 1 && r.keys[0] == points.Ungrouped)
}

// Single returns the one response of an ungrouped result.
func (r *Result) Single() (map[string]any, error) {
	if r.Grouped() {
		return nil, ErrGrouped
	}
	return r.Response(points.Ungrouped)
}

// Failed returns the keys whose request failed, in order.
func (r *Result) Failed() []string {
	var out []string
	for _, k := range r.keys {
		if r.entries[k].Err != nil {
			out = append(out, k)
		}
	}
	return out
}

// Flatten unpacks fields from every response into a frame.
func (r *Result) Flatten(fields []string) *unpack.Frame {
	return unpack.Flatten(r, fields)
}
