// Package config provides shared configuration types and defaults for leapsisso.
// It is decoupled from CLI concerns so the state store and the watch loop can
// use the same defaults without importing cobra.
package config

import "time"

// WatchConfig holds settings for the watch loop.
type WatchConfig struct {
	// Debounce is how long the report must stay quiet before it is re-read.
	Debounce time.Duration `koanf:"debounce"`
	// Timeout bounds the whole wait. Zero waits forever.
	Timeout time.Duration `koanf:"timeout"`
}

// ProjectConfig holds the settings that are meaningful outside of the CLI.
type ProjectConfig struct {
	StatePath       string       `koanf:"state_path"`
	FeatureSpace    string       `koanf:"feature_space"`
	DecodeCacheSize int          `koanf:"decode_cache_size"`
	IngestWorkers   int          `koanf:"ingest_workers"`
	Watch           *WatchConfig `koanf:"watch"`
}
