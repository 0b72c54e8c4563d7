package depgraph

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/coreinit/rc/rclog"
)

// Watcher proactively flags the cache dirty when the init-scripts or
// config directories change, so a long-lived consumer (a resident runlevel
// driver) doesn't have to re-stat every input on every lookup the way
// Stale does for the one-shot CLI tools. Grounded on the teacher's
// filewatch package's use of fsnotify for directory change detection.
type Watcher struct {
	fsw   *fsnotify.Watcher
	dirty atomic.Bool
	lg    *rclog.Logger
	done  chan struct{}
}

// NewWatcher watches dirs (init-scripts dir, config dir, …) for any write,
// create, remove, or rename event.
func NewWatcher(lg *rclog.Logger, dirs ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	if lg == nil {
		lg = rclog.NewDiscardLogger()
	}
	w := &Watcher{fsw: fsw, lg: lg, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.dirty.Store(true)
			w.lg.Debug("dependency input changed", rclog.KV("path", ev.Name), rclog.KV("op", ev.Op.String()))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.lg.Warn("watcher error", rclog.KVErr(err))
		case <-w.done:
			return
		}
	}
}

// Dirty reports whether any watched path has changed since the last call
// to Clear.
func (w *Watcher) Dirty() bool {
	return w.dirty.Load()
}

// Clear resets the dirty flag after the caller has rebuilt the tree.
func (w *Watcher) Clear() {
	w.dirty.Store(false)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
