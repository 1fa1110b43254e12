package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// WatchConfig reloads path whenever it changes and applies the result.
// The parent directory is watched so editors that replace the file are seen.
// Load or apply failures are logged and the previous settings stay in force.
func (s *Service) WatchConfig(ctx context.Context, path string, load Loader) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch config %s: %w", filepath.Dir(abs), err)
	}
	s.logger.Debug().Str("path", abs).Msg("watching config")

	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()

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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Msg("config watcher error")
		case <-debounce.C:
			s.reload(abs, load)
		}
	}
}

func (s *Service) reload(path string, load Loader) {
	cfg, err := load(path)
	if err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("config reload failed")
		return
	}
	if err := s.Apply(cfg); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("config reload rejected")
	}
}
