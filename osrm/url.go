package osrm

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/osrm-bulk/fetch"
	"github.com/theoremus-urban-solutions/osrm-bulk/points"
)

// Coordinate is a (lon, lat) pair in the order the service expects.
type Coordinate struct {
	Lon float64
	Lat float64
}

// Base is the scheme+host+port prefix of every request URL, e.g.
// "http://localhost:5000".
type Base string

// NewBase normalises host and joins it with port.
func NewBase(host string, port int) Base {
	return Base(fmt.Sprintf("%s:%d", NormalizeHost(host), port))
}

// NormalizeHost prepends "http://" when host carries no scheme and strips a
// trailing slash.
func NormalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return host
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildURL renders {base}/{service}/v1/{mode}/{lon},{lat};...?{params}.
// Unset params are omitted and the rest keep their given order.
func BuildURL(base Base, service Service, mode Mode, coords []Coordinate, params ...Param) string {
	var b strings.Builder
	b.WriteString(string(base))
	b.WriteByte('/')
	b.WriteString(string(service))
	b.WriteString("/v1/")
	b.WriteString(string(mode))
	b.WriteByte('/')
	for i, c := range coords {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(formatCoord(c.Lon))
		b.WriteByte(',')
		b.WriteString(formatCoord(c.Lat))
	}
	if q := encodeQuery(params); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	return b.String()
}

// MatchRequest builds the match request for one group. Per-point lists are
// aligned with the group's points and omitted when no point carries a value;
// a timestamp list must be complete.
func MatchRequest(base Base, g points.Group, opts MatchOptions) (fetch.Request, error) {
	if len(g.Points) == 0 {
		return fetch.Request{}, &InvalidOptionError{Option: "coordinates", Value: "", Allowed: []string{"at least one point"}}
	}
	coords := make([]Coordinate, len(g.Points))
	timestamps := make([]string, len(g.Points))
	radiuses := make([]string, len(g.Points))
	waypoints := make([]string, len(g.Points))
	missingTS := 0
	for i, p := range g.Points {
		coords[i] = Coordinate{Lon: p.Lon, Lat: p.Lat}
		if p.Timestamp != nil {
			timestamps[i] = strconv.FormatInt(*p.Timestamp, 10)
		} else {
			missingTS++
		}
		if p.Radius != nil {
			radiuses[i] = formatCoord(*p.Radius)
		}
		if p.Waypoint != nil {
			waypoints[i] = strconv.Itoa(*p.Waypoint)
		}
	}
	if missingTS > 0 && missingTS < len(g.Points) {
		return fetch.Request{}, &InvalidOptionError{
			Option:  "timestamps",
			Value:   fmt.Sprintf("%d of %d missing", missingTS, len(g.Points)),
			Allowed: []string{"a timestamp for every point or for none"},
		}
	}
	mode := opts.mode
	if mode == "" {
		mode = Driving
	}
	params := append(opts.params(),
		List("timestamps", timestamps),
		List("radiuses", radiuses),
		List("waypoints", waypoints),
	)
	return fetch.Request{
		URL:      BuildURL(base, ServiceMatch, mode, coords, params...),
		Method:   http.MethodGet,
		GroupKey: g.Key,
	}, nil
}

// TableURL validates opts and builds a table request URL.
func TableURL(base Base, coords []Coordinate, opts TableOptions) (string, error) {
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return "", err
	}
	annotations := opts.Annotations
	if len(annotations) == 0 {
		annotations = []string{"duration"}
	}
	if err := validateAnnotations(annotations, tableAnnotations); err != nil {
		return "", err
	}
	if err := validateIndices("sources", opts.Sources, len(coords)); err != nil {
		return "", err
	}
	if err := validateIndices("destinations", opts.Destinations, len(coords)); err != nil {
		return "", err
	}
	return BuildURL(base, ServiceTable, mode, coords,
		Ints("sources", opts.Sources),
		Ints("destinations", opts.Destinations),
		Scalar("annotations", strings.Join(annotations, ",")),
	), nil
}

// RouteURL validates opts and builds a route request URL.
func RouteURL(base Base, coords []Coordinate, opts RouteOptions) (string, error) {
	mode, err := ParseMode(opts.Mode)
	if err != nil {
		return "", err
	}
	geometries := opts.Geometries
	if geometries == "" {
		geometries = "polyline"
	}
	if err := validateEnum("geometries", geometries, geometryFormats); err != nil {
		return "", err
	}
	if err := validateEnum("overview", opts.Overview, overviewResolutions); err != nil {
		return "", err
	}
	annotations := opts.Annotations
	if len(annotations) == 0 {
		annotations = []string{"duration"}
	}
	if err := validateAnnotations(annotations, matchAnnotations); err != nil {
		return "", err
	}
	if opts.Alternatives < 0 {
		return "", &InvalidOptionError{Option: "alternatives", Value: strconv.Itoa(opts.Alternatives)}
	}
	if err := validateIndices("waypoints", opts.Waypoints, len(coords)); err != nil {
		return "", err
	}
	alternatives := ""
	if opts.Alternatives > 0 {
		alternatives = strconv.Itoa(opts.Alternatives)
	}
	return BuildURL(base, ServiceRoute, mode, coords,
		Bool("steps", opts.Steps),
		Scalar("alternatives", alternatives),
		Bool("continue_straight", opts.ContinueStraight),
		Scalar("geometries", geometries),
		Scalar("overview", opts.Overview),
		Scalar("annotations", strings.Join(annotations, ",")),
		Ints("waypoints", opts.Waypoints),
	), nil
}

func validateIndices(option string, idx []int, n int) error {
	if i := slices.IndexFunc(idx, func(v int) bool { return v < 0 || v >= n }); i >= 0 {
		return &InvalidOptionError{
			Option:  option,
			Value:   strconv.Itoa(idx[i]),
			Allowed: []string{fmt.Sprintf("0..%d", n-1)},
		}
	}
	return nil
}

// IsHostReachable sends a HEAD request to base and reports whether any HTTP
// response came back within 5 seconds. The status code is not inspected.
func IsHostReachable(ctx context.Context, base Base) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, string(base), nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}
