package department

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// reloadDebounce coalesces the burst of events editors emit on a single save.
var reloadDebounce = 250 * time.Millisecond

// Watch reloads the department file at path whenever it changes and hands
// every map that parses to onChange. A file that fails to load is logged and
// the previous map stays in effect. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Map)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	// Watch the directory: atomic saves replace the file and drop a direct watch.
	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", filepath.Dir(path))
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			m, err := Load(path)
			if err != nil {
				slog.Warn("department reload failed, keeping previous map", "path", path, "error", err)
				continue
			}
			slog.Info("department map reloaded", "path", path, "entries", m.Len())
			onChange(m)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("department watcher error", "path", path, "error", err)
		}
	}
}
