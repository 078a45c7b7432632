package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce collapses the bursts of events editors produce on save.
const debounce = 50 * time.Millisecond

// Watch reloads the configuration at path whenever it is written and
// passes the result to fn, with the load error if any. The directory is
// watched rather than the file so that atomic renames are seen. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config, error)) error {
	return WatchFiles(ctx, []string{path}, func(string) {
		fn(Load(path))
	})
}

// WatchFiles calls fn with the path of any of the given files that is
// created or written. It blocks until ctx is done.
func WatchFiles(ctx context.Context, paths []string, fn func(path string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}
	defer w.Close()

	watched := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("config: watching %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || !watched[name] || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			pending[name] = true
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("config: watching: %w", err)
		case <-timer.C:
			for name := range pending {
				fn(name)
				delete(pending, name)
			}
		}
	}
}
