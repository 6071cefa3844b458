package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/theoremus-urban-solutions/osrm-bulk/utils"
)

// Config is the global application configuration
var Config AppConfig

// DefaultFields are the matching fields unpacked when none are configured.
var DefaultFields = []string{"confidence", "distance", "duration", "geometry"}

// LoadAppConfig loads and validates the application configuration from
// config.yml, falling back to ./golang/config.yml
func LoadAppConfig() error {
	paths := []string{"config.yml", "./golang/config.yml"}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	cfg, err := Parse(data)
	if err != nil {
		return err
	}
	Config = cfg
	return nil
}

// LoadFile loads the global configuration from an explicit path.
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg, err := Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	Config = cfg
	return nil
}

// Parse decodes and validates a YAML document and fills in defaults.
func Parse(data []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, err
	}
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return AppConfig{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16181
	}
	if cfg.OSRM.Host == "" {
		cfg.OSRM.Host = "localhost"
	}
	if cfg.OSRM.Port == 0 {
		cfg.OSRM.Port = 5000
	}
	if cfg.Match.TimestampFormat == "" {
		cfg.Match.TimestampFormat = utils.DefaultTimestampFormat
	}
	if len(cfg.Match.Fields) == 0 {
		cfg.Match.Fields = append([]string(nil), DefaultFields...)
	}
	for i := range cfg.Feeds {
		if cfg.Feeds[i].GTFSRT.ReadIntervalMS == 0 {
			cfg.Feeds[i].GTFSRT.ReadIntervalMS = 30000
		}
	}
	if cfg.GTFSRT.ReadIntervalMS == 0 {
		cfg.GTFSRT.ReadIntervalMS = 30000
	}
}

// SelectFeed chooses a feed by name; fallback to first; if none, use top-level GTFSRT.
func SelectFeed(name string) GTFSRTConfig {
	if name != "" {
		for _, f := range Config.Feeds {
			if f.Name == name {
				return f.GTFSRT
			}
		}
	}
	if len(Config.Feeds) > 0 {
		return Config.Feeds[0].GTFSRT
	}
	return Config.GTFSRT
}
