package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// WatchTuning reloads path into store whenever it changes, until ctx is done.
// The directory is watched so editors that replace the file are picked up.
// Invalid edits are logged and the previous tuning stays in effect.
func WatchTuning(ctx context.Context, path string, store *TuningStore) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
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
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				t, err := LoadTuning(abs)
				if err != nil {
					log.Warn().Err(err).Str("path", abs).Msg("tuning reload failed, keeping previous values")
					continue
				}
				store.Set(t)
				log.Info().Str("path", abs).Dur("round_timeout", t.RoundTimeout).Msg("tuning reloaded")
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}
