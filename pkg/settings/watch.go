package settings

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the manager whenever the file at path changes. The parent
// directory is watched so editors that replace the file atomically are
// picked up. Blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				cfg := m.Load(ctx)
				m.logger.WithFields(map[string]interface{}{
					"mode":     cfg.Mode,
					"provider": cfg.Provider,
				}).Info("settings file reloaded")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.WithError(err).Warn("settings watcher error")
		}
	}
}
