package settings

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// watchDelay coalesces the burst of events editors produce on save.
const watchDelay = 250 * time.Millisecond

// Watch reloads the settings file whenever it changes on disk, until ctx is
// done. The parent directory is watched so replace-on-save editors are seen.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create settings watcher")
	}
	defer watcher.Close()

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return errors.Wrap(err, "resolve settings path")
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrap(err, "watch settings directory")
	}

	debounced := debounce.New(watchDelay)
	reload := func() {
		if err := s.Reload(); err != nil {
			s.logger.Warning("Failed to reload settings: %v", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounced(reload)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warning("Settings watcher error: %v", err)
		}
	}
}
