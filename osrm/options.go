package osrm

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidOption is matched by every InvalidOptionError.
var ErrInvalidOption = errors.New("invalid option")

// InvalidOptionError reports an option value outside the service's accepted set.
type InvalidOptionError struct {
	Option  string
	Value   string
	Allowed []string
}

func (e *InvalidOptionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid %s %q", e.Option, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: must be one of %s", e.Option, e.Value, strings.Join(e.Allowed, ", "))
}

func (e *InvalidOptionError) Is(target error) bool { return target == ErrInvalidOption }

// Service is one of the routing engine's HTTP services.
type Service string

const (
	ServiceTable Service = "table"
	ServiceMatch Service = "match"
	ServiceRoute Service = "route"
)

// Mode is the transport profile segment of the URL.
type Mode string

const (
	Driving Mode = "driving"
	Walking Mode = "walking"
	Cycling Mode = "cycling"
)

var modeAliases = map[string]Mode{
	"driving": Driving,
	"car":     Driving,
	"drive":   Driving,
	"walking": Walking,
	"foot":    Walking,
	"walk":    Walking,
	"cycling": Cycling,
	"bicycle": Cycling,
	"bike":    Cycling,
}

// ParseMode normalises a profile name. Common profile aliases such as
// "foot" and "bicycle" map onto walking and cycling.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return Driving, nil
	}
	if m, ok := modeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", &InvalidOptionError{Option: "mode", Value: s, Allowed: []string{"driving", "walking", "cycling"}}
}

var (
	matchAnnotations    = []string{"true", "false", "nodes", "distance", "duration", "datasources", "weight", "speed"}
	tableAnnotations    = []string{"duration", "distance"}
	geometryFormats     = []string{"polyline", "polyline6", "geojson"}
	gapModes            = []string{"split", "ignore"}
	overviewResolutions = []string{"simplified", "full", "false"}
)

func validateAnnotations(values, allowed []string) error {
	for _, a := range values {
		if !slices.Contains(allowed, a) {
			return &InvalidOptionError{Option: "annotations", Value: a, Allowed: allowed}
		}
	}
	if len(values) > 1 && (slices.Contains(values, "true") || slices.Contains(values, "false")) {
		return &InvalidOptionError{Option: "annotations", Value: strings.Join(values, ","),
			Allowed: []string{"true|false alone, or a list of specific annotations"}}
	}
	return nil
}

func validateEnum(option, value string, allowed []string) error {
	if value == "" || slices.Contains(allowed, value) {
		return nil
	}
	return &InvalidOptionError{Option: option, Value: value, Allowed: allowed}
}

// MatchOptions is the immutable option bag shared by every request of a bulk
// match. Build it with NewMatchOptions; the zero value is not validated.
type MatchOptions struct {
	mode        Mode
	geometries  string
	annotations []string
	gaps        string
	overview    string
	tidy        bool
	steps       bool
}

// MatchOption sets one field of MatchOptions.
type MatchOption func(*matchSettings)

type matchSettings struct {
	mode        string
	geometries  string
	annotations []string
	gaps        string
	overview    string
	tidy        bool
	steps       bool
}

// WithMode sets the transport profile. Default driving.
func WithMode(mode string) MatchOption { return func(s *matchSettings) { s.mode = mode } }

// WithGeometries sets the returned geometry format. Default polyline.
func WithGeometries(format string) MatchOption {
	return func(s *matchSettings) { s.geometries = format }
}

// WithAnnotations sets the annotation list. Default "true".
func WithAnnotations(values ...string) MatchOption {
	return func(s *matchSettings) { s.annotations = values }
}

// WithGaps sets gap handling ("split" or "ignore"). Default ignore.
func WithGaps(mode string) MatchOption { return func(s *matchSettings) { s.gaps = mode } }

// WithOverview sets the overview geometry resolution. Unset by default.
func WithOverview(resolution string) MatchOption {
	return func(s *matchSettings) { s.overview = resolution }
}

// WithTidy enables input trace tidying.
func WithTidy(tidy bool) MatchOption { return func(s *matchSettings) { s.tidy = tidy } }

// WithSteps requests route steps for each leg.
func WithSteps(steps bool) MatchOption { return func(s *matchSettings) { s.steps = steps } }

// NewMatchOptions applies opts over the defaults (driving, polyline,
// annotations=true, gaps=ignore) and validates the result once.
func NewMatchOptions(opts ...MatchOption) (MatchOptions, error) {
	set := matchSettings{
		geometries:  "polyline",
		annotations: []string{"true"},
		gaps:        "ignore",
	}
	for _, o := range opts {
		o(&set)
	}
	mode, err := ParseMode(set.mode)
	if err != nil {
		return MatchOptions{}, err
	}
	if err := validateEnum("geometries", set.geometries, geometryFormats); err != nil {
		return MatchOptions{}, err
	}
	if err := validateAnnotations(set.annotations, matchAnnotations); err != nil {
		return MatchOptions{}, err
	}
	if err := validateEnum("gaps", set.gaps, gapModes); err != nil {
		return MatchOptions{}, err
	}
	if err := validateEnum("overview", set.overview, overviewResolutions); err != nil {
		return MatchOptions{}, err
	}
	return MatchOptions{
		mode:        mode,
		geometries:  set.geometries,
		annotations: slices.Clone(set.annotations),
		gaps:        set.gaps,
		overview:    set.overview,
		tidy:        set.tidy,
		steps:       set.steps,
	}, nil
}

// Mode returns the validated transport profile.
func (o MatchOptions) Mode() Mode { return o.mode }

// Geometries returns the geometry format requested from the service.
func (o MatchOptions) Geometries() string { return o.geometries }

// Annotations returns a copy of the annotation list.
func (o MatchOptions) Annotations() []string { return slices.Clone(o.annotations) }

func (o MatchOptions) params() []Param {
	return []Param{
		Scalar("geometries", o.geometries),
		Scalar("annotations", strings.Join(o.annotations, ",")),
		Scalar("gaps", o.gaps),
		Scalar("overview", o.overview),
		Bool("tidy", o.tidy),
		Bool("steps", o.steps),
	}
}

// TableOptions configures a table (distance matrix) request.
type TableOptions struct {
	Mode         string
	Annotations  []string // duration and/or distance; default duration
	Sources      []int
	Destinations []int
}

// RouteOptions configures a route request.
type RouteOptions struct {
	Mode             string
	Geometries       string // default polyline
	Steps            bool
	Alternatives     int
	ContinueStraight bool
	Annotations      []string // default duration
	Overview         string
	Waypoints        []int
}
