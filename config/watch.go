package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/splatview/logging"
	"go.viam.com/splatview/utils"
)

// DefaultWatchDebounce coalesces the burst of events editors produce on save.
const DefaultWatchDebounce = 200 * time.Millisecond

// Watcher re-reads a config file whenever it changes.
type Watcher struct {
	watcher *fsnotify.Watcher
	workers utils.StoppableWorkers
}

// Watch starts watching filePath. onChange receives every config that reads and validates;
// invalid edits are logged and skipped. The parent directory is watched so that editors which
// replace the file by rename keep being observed.
func Watch(
	ctx context.Context,
	filePath string,
	debounceFor time.Duration,
	onChange func(*Config),
	logger logging.Logger,
) (*Watcher, error) {
	if debounceFor <= 0 {
		debounceFor = DefaultWatchDebounce
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "cannot create config watcher")
	}
	if err := fsWatcher.Add(filepath.Dir(absPath)); err != nil {
		goutils.UncheckedError(fsWatcher.Close())
		return nil, errors.Wrapf(err, "cannot watch %q", filePath)
	}

	reload := func() {
		cfg, err := Read(absPath, logger)
		if err != nil {
			logger.Warnw("ignoring config change", "path", absPath, "error", err)
			return
		}
		logger.Infow("config reloaded", "path", absPath)
		onChange(cfg)
	}
	debounced := debounce.New(debounceFor)

	workers := utils.NewStoppableWorkersWithContext(ctx, func(workerCtx context.Context) {
		for {
			select {
			case <-workerCtx.Done():
				return
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					debounced(reload)
				}
			case err, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}
				logger.Warnw("config watcher error", "error", err)
			}
		}
	})
	return &Watcher{watcher: fsWatcher, workers: workers}, nil
}

// Close stops watching. A reload already scheduled may still run once.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	w.workers.Stop()
	return err
}
