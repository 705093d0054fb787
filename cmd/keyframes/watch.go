package main

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 100 * time.Millisecond

// watcher reports feature files that changed under the watched paths.
type watcher struct {
	watcher *fsnotify.Watcher
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

func newWatcher(paths ...string) (*watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, p := range paths {
		if err := w.Add(p); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	fw := &watcher{
		watcher: w,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go fw.run()
	return fw, nil
}

func (w *watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *watcher) run() {
	defer close(w.Events)
	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !isFeatureFile(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < debounce {
				continue
			}
			last[event.Name] = now
			select {
			case w.Events <- event.Name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

// watch recompiles feature files changed in dir until ctx is done. A
// non-empty only restricts it to that file.
func (j *compileJob) watch(ctx context.Context, dir, only string) error {
	w, err := newWatcher(dir)
	if err != nil {
		return err
	}
	defer w.Close()

	j.logger.Info("watching for changes", "dir", dir)
	for {
		select {
		case name, ok := <-w.Events:
			if !ok {
				return nil
			}
			if only != "" && filepath.Clean(name) != filepath.Clean(only) {
				continue
			}
			if _, err := j.compileFile(name); err != nil {
				j.logger.Warn("recompile failed", "error", err)
			}
		case err := <-w.Errors:
			j.logger.Warn("watch error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}
