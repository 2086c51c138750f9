package config

import (
	"fmt"
	"slices"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Output != "" && !slices.Contains(OutputModes, c.Output) {
		return fmt.Errorf("unknown output mode %q (expected one of %s)", c.Output, strings.Join(OutputModes, ", "))
	}
	if c.IngestWorkers <= 0 {
		return fmt.Errorf("ingest_workers must be positive, got %d", c.IngestWorkers)
	}
	if c.DecodeCacheSize < 0 {
		return fmt.Errorf("decode_cache_size must not be negative, got %d", c.DecodeCacheSize)
	}
	if c.Watch != nil {
		if c.Watch.Debounce < 0 {
			return fmt.Errorf("watch.debounce must not be negative, got %s", c.Watch.Debounce)
		}
		if c.Watch.Timeout < 0 {
			return fmt.Errorf("watch.timeout must not be negative, got %s", c.Watch.Timeout)
		}
	}
	return nil
}
