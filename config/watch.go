package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
)

var (
	currentMu sync.RWMutex
	current   *Config
)

// Current returns the most recently loaded configuration. Watch keeps it
// fresh; before Watch runs it falls back to a plain Load.
func Current() *Config {
	currentMu.RLock()
	cfg := current
	currentMu.RUnlock()
	if cfg != nil {
		return cfg
	}

	cfg = Load()
	currentMu.Lock()
	current = cfg
	currentMu.Unlock()
	return cfg
}

// Watch watches the .env file and reloads the configuration when it changes.
// onChange is invoked with the fresh Config after every reload; it may be nil.
// The watcher goroutine stops when the returned closer is called.
func Watch(envPath string, onChange func(*Config)) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory rather than the file itself: editors and orchestrators
	// replace .env atomically, which would drop a file-level watch.
	dir := filepath.Dir(envPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	base := filepath.Base(envPath)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				// Overload so edited values win over stale process env.
				_ = godotenv.Overload(envPath)
				cfg := fromEnv()
				currentMu.Lock()
				current = cfg
				currentMu.Unlock()
				if onChange != nil {
					onChange(cfg)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher.Close, nil
}
