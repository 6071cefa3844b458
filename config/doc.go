// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// It locates the routing engine, tunes the bulk fetcher, sets the default
// match options and input column layout, and lists named GTFS-RT vehicle
// position feeds that can be selected by name.
package config
