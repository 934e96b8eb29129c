package mockserver

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchReplay reloads the replay file into s every time it is written or
// recreated, until ctx is done. The parent directory is watched so editors
// that replace the file on save are followed. A reload that fails to read
// keeps the previous lines.
func (s *Server) WatchReplay(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating replay watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching replay dir: %w", err)
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
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			lines, err := LoadReplay(path)
			if err != nil {
				s.logger.Warn("reloading replay file", "path", path, "error", err)
				continue
			}
			s.SetReplay(lines)
			s.logger.Info("reloaded replay file", "path", path, "lines", len(lines))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("replay watcher error: %w", err)
		}
	}
}
