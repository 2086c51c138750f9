package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapsisso/internal/cli/config"
	"github.com/leapstack-labs/leapsisso/internal/cli/output"
	"github.com/leapstack-labs/leapsisso/internal/reportio"
	"github.com/leapstack-labs/leapsisso/internal/state"
	"github.com/leapstack-labs/leapsisso/pkg/expr"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Cache    *expr.Cache
}

// NewCommandContext creates a CommandContext with a renderer and a decode cache.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	// A zero size disables caching; a nil cache decodes every time.
	var cache *expr.Cache
	if cfg.DecodeCacheSize > 0 {
		var err error
		if cache, err = expr.NewCache(cfg.DecodeCacheSize, expr.Decoder{}); err != nil {
			return nil, err
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
		Cache:    cache,
	}, nil
}

// ParseOptions returns report parsing options derived from the configuration.
func (c *CommandContext) ParseOptions() sisso.ParseOptions {
	return sisso.ParseOptions{
		AllowUnfinished: c.Cfg.AllowUnfinished,
		Logger:          c.Logger,
		Cache:           c.Cache,
		Open:            reportio.Open,
	}
}

// OpenStore opens and migrates the state database.
// Returns the store and a cleanup function that must be called (typically via defer).
func (c *CommandContext) OpenStore() (*state.SQLiteStore, func(), error) {
	stateDir := filepath.Dir(c.Cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

// getConfig returns the current configuration, loading defaults and
// environment when no command has loaded it yet.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	if cfg, err := config.LoadConfig("", nil); err == nil {
		return cfg
	}
	p := (&config.Config{}).Project()
	return &config.Config{
		StatePath:       p.StatePath,
		Output:          config.DefaultOutput,
		FeatureSpace:    p.FeatureSpace,
		DecodeCacheSize: p.DecodeCacheSize,
		IngestWorkers:   p.IngestWorkers,
		Watch:           p.Watch,
	}
}
