package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadQuiet suppresses the editor write-then-rename event bursts.
const reloadQuiet = 250 * time.Millisecond

// WatchFile invokes onChange with a freshly loaded config whenever the file
// at path is written. It blocks until ctx is done. A file that does not exist
// yet is still watched via its parent directory, so a first save is picked up.
func WatchFile(ctx context.Context, path string, log *zap.Logger, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	target := filepath.Clean(path)
	var lastReload time.Time

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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if time.Since(lastReload) < reloadQuiet {
				continue
			}
			lastReload = time.Now()

			cfg, err := Load(path)
			if err != nil {
				log.Warn("settings reload failed", zap.Error(err))
				continue
			}
			log.Info("settings reloaded", zap.String("path", path))
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("settings watcher error", zap.Error(err))
		}
	}
}
