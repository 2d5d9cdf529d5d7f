package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/otterc/incubator-slider/pkg/logging"
)

// Watcher reloads the config file on change and hands the heartbeat
// tunables to a callback. Only the heartbeat section is applied at
// runtime; listen address and cluster identity need a restart.
type Watcher struct {
	path    string
	onApply func(HeartbeatConfig)
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher watches the config file's directory. Watching the directory
// rather than the file survives editors that replace the file on save.
func NewWatcher(path string, onApply func(HeartbeatConfig)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	w := &Watcher{
		path:    path,
		onApply: onApply,
		watcher: fsWatcher,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warn("ConfigWatcher", "Watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	config, err := LoadConfig(w.path)
	if err != nil {
		logging.Warn("ConfigWatcher", "Ignoring config reload, %v", err)
		return
	}
	logging.Info("ConfigWatcher", "Applying updated heartbeat tunables from %s", w.path)
	w.onApply(config.Heartbeat)
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
