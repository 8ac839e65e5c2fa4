package config

import (
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/cdprelay/cdprelay/internal/logging"
)

// Load reads an optional .env file, then the YAML config at path,
// applying environment expansion and defaults. A missing .env is not
// an error; a missing config path yields defaults only.
func Load(path string) (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			logging.Warnf("config: failed to load .env: %v", err)
		}
	}

	if path == "" {
		return LoadFromBytes(nil)
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return LoadFromBytes(nil)
	}
	if err != nil {
		return Config{}, err
	}
	return LoadFromBytes(data)
}

// Watcher reloads the whole config file on write and hands the result
// to its callback, without requiring a process restart. Which fields
// take effect is up to the callback: serve applies only
// Browser.LaunchBin (host/port are already bound to a listener by the
// time reload could apply).
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(Config)
}

// WatchFile starts watching path for writes and invokes onChange with
// the freshly reloaded config each time. The returned Watcher must be
// closed by the caller to stop watching.
func WatchFile(path string, onChange func(Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{path: path, watcher: fw, onChange: onChange}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				logging.Warnf("config: reload of %s failed: %v", w.path, err)
				continue
			}
			w.onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warnf("config: watch error: %v", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
