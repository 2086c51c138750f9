package config

import "time"

// Default configuration values.
const (
	DefaultStatePath       = ".leapsisso/state.db"
	DefaultFeatureSpace    = "SIS_subspaces/Uspace.expressions"
	DefaultDecodeCacheSize = 4096
	DefaultIngestWorkers   = 4
	DefaultWatchDebounce   = 500 * time.Millisecond
)

// Defaults returns the default values keyed the way koanf expects them.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"state_path":        DefaultStatePath,
		"feature_space":     DefaultFeatureSpace,
		"decode_cache_size": DefaultDecodeCacheSize,
		"ingest_workers":    DefaultIngestWorkers,
		"watch.debounce":    DefaultWatchDebounce.String(),
		"watch.timeout":     "0s",
	}
}

// ApplyDefaults fills zero values of a ProjectConfig.
func ApplyDefaults(c *ProjectConfig) {
	if c == nil {
		return
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStatePath
	}
	if c.FeatureSpace == "" {
		c.FeatureSpace = DefaultFeatureSpace
	}
	if c.DecodeCacheSize == 0 {
		c.DecodeCacheSize = DefaultDecodeCacheSize
	}
	if c.IngestWorkers == 0 {
		c.IngestWorkers = DefaultIngestWorkers
	}
	if c.Watch == nil {
		c.Watch = &WatchConfig{}
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = DefaultWatchDebounce
	}
}
