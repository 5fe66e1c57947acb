package settings

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"deferred-engine/internal/logger"
)

// Watch reloads path whenever it is written or replaced until ctx is done.
// onChange, if non-nil, receives the keys that changed on each reload and runs
// on the watcher goroutine. The parent directory is watched so that editors
// which save by renaming are picked up.
func (s *Settings) Watch(ctx context.Context, path string, onChange func(keys []string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch settings: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch settings: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch settings: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				changed, err := s.Load(abs)
				if err != nil {
					logger.Log.Warn("settings reload", zap.String("path", abs), zap.Error(err))
				}
				if len(changed) > 0 {
					logger.Log.Info("settings reloaded", zap.Strings("changed", changed))
					if onChange != nil {
						onChange(changed)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Log.Error("settings watcher", zap.Error(err))
			}
		}
	}()
	return nil
}
