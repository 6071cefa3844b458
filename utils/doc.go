// Package utils provides small helpers shared by the osrm-bulk packages.
//
// It contains:
//   - Timestamp parsing into epoch seconds (Go layouts and strftime formats)
//   - ISO8601 formatting helpers
//   - Great-circle distance
package utils
