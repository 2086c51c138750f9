// Package config provides configuration management for the leapsisso CLI.
//
// This package extends the shared configuration from internal/config with
// CLI-specific fields such as the output mode and verbosity.
package config

import (
	sharedcfg "github.com/leapstack-labs/leapsisso/internal/config"
)

// WatchConfig is an alias for the shared watch configuration.
type WatchConfig = sharedcfg.WatchConfig

// Config holds the complete CLI configuration.
type Config struct {
	StatePath       string       `koanf:"state_path"`
	Output          string       `koanf:"output"`
	Verbose         bool         `koanf:"verbose"`
	AllowUnfinished bool         `koanf:"allow_unfinished"`
	FeatureSpace    string       `koanf:"feature_space"`
	DecodeCacheSize int          `koanf:"decode_cache_size"`
	IngestWorkers   int          `koanf:"ingest_workers"`
	Watch           *WatchConfig `koanf:"watch"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// Default values for CLI-only settings.
const (
	DefaultOutput    = "auto"
	DefaultStateFile = sharedcfg.DefaultStatePath
)

// OutputModes lists the accepted values of the output setting.
var OutputModes = []string{"auto", "text", "markdown", "json", "yaml"}

// Project returns the shared subset of the configuration.
func (c *Config) Project() *sharedcfg.ProjectConfig {
	p := &sharedcfg.ProjectConfig{
		StatePath:       c.StatePath,
		FeatureSpace:    c.FeatureSpace,
		DecodeCacheSize: c.DecodeCacheSize,
		IngestWorkers:   c.IngestWorkers,
		Watch:           c.Watch,
	}
	sharedcfg.ApplyDefaults(p)
	return p
}
