// Package watch waits for a running solver to finish writing its report.
package watch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/leapstack-labs/leapsisso/internal/reportio"
	"github.com/leapstack-labs/leapsisso/pkg/sisso"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 500 * time.Millisecond

// Options configures WaitFinished.
type Options struct {
	// Debounce is how long the report must stay quiet before it is re-read.
	Debounce time.Duration
	// Logger receives progress output. Nil discards.
	Logger *slog.Logger
	// OnChange is called after each re-read that did not find the sentinel.
	OnChange func(size int)
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// readFinished reads the report and reports whether it is complete.
// A missing file is not an error: the solver may not have created it yet.
func readFinished(path string) ([]byte, bool, error) {
	data, err := reportio.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, bytes.Contains(data, []byte(sisso.Sentinel)), nil
}

// WaitFinished blocks until the report at path contains the completion
// sentinel and returns its decompressed contents. It returns ctx.Err() when
// the context ends first.
func WaitFinished(ctx context.Context, path string, opts Options) ([]byte, error) {
	logger := opts.logger()
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so the report can be created or replaced.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	// Checked after the watch is in place so no write is missed.
	if data, done, err := readFinished(target); err == nil && done {
		return data, nil
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil, fmt.Errorf("watcher closed")
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			data, done, err := readFinished(target)
			if err != nil {
				// Compressed reports can be unreadable mid-write.
				logger.Debug("report not readable yet", "path", path, "error", err)
				continue
			}
			if done {
				logger.Debug("report finished", "path", path, "bytes", len(data))
				return data, nil
			}
			logger.Debug("report changed", "path", path, "bytes", len(data))
			if opts.OnChange != nil {
				opts.OnChange(len(data))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil, fmt.Errorf("watcher closed")
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
