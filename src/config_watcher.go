package cwkey

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultReloadDelay = 100 * time.Millisecond

// ConfigWatcher reloads a config file when it changes and hands the
// result to a callback.  A burst of events gives one reload.
type ConfigWatcher struct {
	path     string
	delay    time.Duration
	onChange func(Config)

	watcher *fsnotify.Watcher

	mu       sync.Mutex
	debounce *time.Timer
}

// NewConfigWatcher starts watching right away.  Changes made before Run
// is called are delivered once it runs.  The directory is watched, not
// the file, so replacing the file on save still counts.
func NewConfigWatcher(path string, delay time.Duration, onChange func(Config)) (*ConfigWatcher, error) {
	var watcher, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	var dir = filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config watcher: failed to watch %s: %w", dir, err)
	}

	if delay <= 0 {
		delay = DefaultReloadDelay
	}

	return &ConfigWatcher{ //nolint:exhaustruct
		path:     path,
		delay:    delay,
		onChange: onChange,
		watcher:  watcher,
	}, nil
}

// Run handles events until ctx is done, then closes the watcher.
func (w *ConfigWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var name = filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			if w.debounce != nil {
				w.debounce.Stop()
			}
			w.mu.Unlock()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("config watcher", "err", err)
		}
	}
}

func (w *ConfigWatcher) debounceReload(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}

	w.debounce = time.AfterFunc(w.delay, func() {
		if ctx.Err() != nil {
			return
		}
		w.reload()
	})
}

// reload keeps the old settings if the new file is bad.
func (w *ConfigWatcher) reload() {
	var cfg, err = LoadConfig(w.path)
	if err != nil {
		logger.Warn("config not reloaded", "path", w.path, "err", err)
		return
	}

	logger.Info("config reloaded", "path", w.path, "speed", cfg.Speed, "tone", cfg.Tone)
	w.onChange(cfg)
}
