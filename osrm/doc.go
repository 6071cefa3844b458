// Package osrm builds request URLs for the routing engine's table, match and
// route services.
//
// Options are validated once, when they are constructed, so a MatchOptions
// value can be shared by every request of a bulk run without re-checking.
// Query values are written with literal ";" and "," separators, which the
// service requires and net/url would escape.
package osrm
