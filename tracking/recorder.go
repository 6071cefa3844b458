package tracking

import (
	"sort"
	"sync"

	"github.com/theoremus-urban-solutions/osrm-bulk/gtfsrt"
	"github.com/theoremus-urban-solutions/osrm-bulk/points"
	"github.com/theoremus-urban-solutions/osrm-bulk/utils"
)

// Recorder accumulates successive vehicle positions snapshots into one
// trace per trip.
type Recorder struct {
	minDistance float64

	mu       sync.Mutex
	traces   map[string][]gtfsrt.VehiclePosition
	order    []string
	lastFeed int64
}

// NewRecorder creates a recorder that drops a fix when it lies closer than
// minDistanceMeters to the previous fix of the same trip.
func NewRecorder(minDistanceMeters float64) *Recorder {
	return &Recorder{
		minDistance: minDistanceMeters,
		traces:      map[string][]gtfsrt.VehiclePosition{},
	}
}

// Add merges one snapshot and returns the number of fixes kept. A snapshot
// whose header timestamp is older than the last one seen is ignored.
// Vehicles without a trip are skipped, as are fixes that do not move a
// trip's clock forward.
func (r *Recorder) Add(feed *gtfsrt.Feed) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if feed.Timestamp != 0 && feed.Timestamp < r.lastFeed {
		return 0
	}
	if feed.Timestamp > r.lastFeed {
		r.lastFeed = feed.Timestamp
	}

	kept := 0
	for _, vp := range feed.Vehicles {
		if vp.TripID == "" {
			continue
		}
		trace, seen := r.traces[vp.TripID]
		if n := len(trace); n > 0 {
			last := trace[n-1]
			if vp.Timestamp <= last.Timestamp {
				continue
			}
			if utils.HaversineMeters(last.Lat, last.Lon, vp.Lat, vp.Lon) < r.minDistance {
				continue
			}
		}
		if !seen {
			r.order = append(r.order, vp.TripID)
		}
		r.traces[vp.TripID] = append(trace, vp)
		kept++
	}
	return kept
}

// Trips returns the recorded trip ids in first-seen order.
func (r *Recorder) Trips() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Trace returns a copy of one trip's fixes.
func (r *Recorder) Trace(tripID string) []gtfsrt.VehiclePosition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gtfsrt.VehiclePosition(nil), r.traces[tripID]...)
}

// Len returns the total number of recorded fixes.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.traces {
		n += len(t)
	}
	return n
}

// Table returns every trace with at least minPoints fixes as a point table
// with the gtfsrt columns, trips in id order.
func (r *Recorder) Table(minPoints int) *points.Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := append([]string(nil), r.order...)
	sort.Strings(ids)
	t := gtfsrt.NewTable()
	for _, id := range ids {
		trace := r.traces[id]
		if len(trace) < minPoints {
			continue
		}
		for _, vp := range trace {
			_ = t.Append(vp.Row()...)
		}
	}
	return t
}

// Reset drops every trace.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.traces = map[string][]gtfsrt.VehiclePosition{}
	r.order = nil
	r.lastFeed = 0
}
