package config

import (
	"time"

	"github.com/theoremus-urban-solutions/osrm-bulk/fetch"
	"github.com/theoremus-urban-solutions/osrm-bulk/osrm"
)

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// OSRMConfig locates the routing engine
type OSRMConfig struct {
	Host string `yaml:"host" validate:"omitempty"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
}

// Base returns the normalised request prefix for the routing engine.
func (c OSRMConfig) Base() osrm.Base { return osrm.NewBase(c.Host, c.Port) }

// FetcherConfig contains the bulk fetcher knobs. Zero values take the
// fetcher defaults.
type FetcherConfig struct {
	MaxConcurrent      int  `yaml:"maxConcurrent" validate:"gte=0"`
	LimitPerHost       int  `yaml:"limitPerHost" validate:"gte=0"`
	DNSCacheTTLSeconds int  `yaml:"dnsCacheTTLSeconds" validate:"gte=-1"` // -1 disables the cache
	TimeoutMS          int  `yaml:"timeoutMS" validate:"gte=0"`
	BatchTimeoutMS     int  `yaml:"batchTimeoutMS" validate:"gte=0"`
	KeepOpen           bool `yaml:"keepOpen"`
	VerifyTLS          bool `yaml:"verifyTLS"`
}

// Fetch converts the section to a fetch.Config.
func (c FetcherConfig) Fetch() fetch.Config {
	return fetch.Config{
		MaxConcurrent:      c.MaxConcurrent,
		LimitPerHost:       c.LimitPerHost,
		DNSCacheTTL:        time.Duration(c.DNSCacheTTLSeconds) * time.Second,
		Timeout:            time.Duration(c.TimeoutMS) * time.Millisecond,
		BatchTimeout:       time.Duration(c.BatchTimeoutMS) * time.Millisecond,
		KeepOpen:           c.KeepOpen,
		InsecureSkipVerify: !c.VerifyTLS,
	}
}

// MatchConfig contains default match options and input table layout
type MatchConfig struct {
	Mode            string            `yaml:"mode" validate:"omitempty,oneof=driving walking cycling car drive foot walk bicycle bike"`
	Geometries      string            `yaml:"geometries" validate:"omitempty,oneof=polyline polyline6 geojson"`
	Annotations     []string          `yaml:"annotations" validate:"dive,oneof=true false nodes distance duration datasources weight speed"`
	Gaps            string            `yaml:"gaps" validate:"omitempty,oneof=split ignore"`
	Overview        string            `yaml:"overview" validate:"omitempty,oneof=simplified full false"`
	Tidy            bool              `yaml:"tidy"`
	Steps           bool              `yaml:"steps"`
	GroupColumn     string            `yaml:"groupColumn"`
	Renames         map[string]string `yaml:"renames"`
	TimestampFormat string            `yaml:"timestampFormat"`
	Fields          []string          `yaml:"fields"` // unpacked matching fields
}

// Options builds validated match options from the section.
func (c MatchConfig) Options(extra ...osrm.MatchOption) (osrm.MatchOptions, error) {
	var opts []osrm.MatchOption
	if c.Mode != "" {
		opts = append(opts, osrm.WithMode(c.Mode))
	}
	if c.Geometries != "" {
		opts = append(opts, osrm.WithGeometries(c.Geometries))
	}
	if len(c.Annotations) > 0 {
		opts = append(opts, osrm.WithAnnotations(c.Annotations...))
	}
	if c.Gaps != "" {
		opts = append(opts, osrm.WithGaps(c.Gaps))
	}
	opts = append(opts, osrm.WithOverview(c.Overview), osrm.WithTidy(c.Tidy), osrm.WithSteps(c.Steps))
	return osrm.NewMatchOptions(append(opts, extra...)...)
}

// GTFSRTConfig contains GTFS-Realtime feed configuration
type GTFSRTConfig struct {
	VehiclePositionsURL string  `yaml:"vehiclePositionsURL" validate:"omitempty,url"`
	ReadIntervalMS      int     `yaml:"readIntervalMS" validate:"gte=0"`
	TimeoutMS           int     `yaml:"timeoutMS" validate:"gte=0"`
	MinDistanceMeters   float64 `yaml:"minDistanceMeters" validate:"gte=0"`
}

// Feed represents a single named vehicle positions feed
type Feed struct {
	Name   string       `yaml:"name" validate:"required"`
	GTFSRT GTFSRTConfig `yaml:"gtfsrt" validate:"required"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	OSRM    OSRMConfig    `yaml:"osrm"`
	Fetcher FetcherConfig `yaml:"fetcher"`
	Match   MatchConfig   `yaml:"match"`
	GTFSRT  GTFSRTConfig  `yaml:"gtfsrt"`
	Feeds   []Feed        `yaml:"feeds" validate:"dive"`
}
