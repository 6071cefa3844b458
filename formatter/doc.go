// Package formatter serializes match results.
//
// - json.go: keyed result sets and flattened frames as JSON
// - csv.go: flattened frames as CSV, with matched geometry as WKT
package formatter
