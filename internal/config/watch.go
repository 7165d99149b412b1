package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 50 * time.Millisecond

// Watch reloads the configuration whenever envFile changes and passes each
// successfully loaded Config to onChange. Invalid files are logged and
// skipped. It blocks until ctx is done.
//
// The parent directory is watched rather than the file, since editors often
// replace files by renaming over them.
func Watch(ctx context.Context, envFile string, log *slog.Logger, onChange func(Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config.Watch: %w", err)
	}
	defer w.Close()

	abs, err := filepath.Abs(envFile)
	if err != nil {
		return fmt.Errorf("config.Watch: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config.Watch: watching %s: %w", filepath.Dir(abs), err)
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	reload := func() {
		cfg, err := Load(abs)
		if err != nil {
			log.Warn("Config reload failed, keeping previous values", "file", envFile, "error", err)
			return
		}
		log.Debug("Config reloaded", "file", envFile)
		onChange(cfg)
	}
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(evt.Name) != abs || evt.Op == fsnotify.Chmod {
				continue
			}
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, reload)
			mu.Unlock()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("Config watcher error", "error", err)
		}
	}
}
