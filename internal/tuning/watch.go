package tuning

import (
	"github.com/fsnotify/fsnotify"
)

// Watcher hot-reloads a tunables file for a long-running stress or CLI
// session, calling apply with the freshly parsed Tunables whenever the
// file changes. The caller decides when it's safe to swap tunables in
// (e.g. only between operations, never mid-allocate).
type Watcher struct {
	w      *fsnotify.Watcher
	path   string
	apply  func(Tunables)
	errors chan error
	done   chan struct{}
}

// NewWatcher starts watching path and invokes apply on every write
// that parses and validates cleanly. Parse/validation errors are
// delivered on Errors() instead of calling apply.
func NewWatcher(path string, apply func(Tunables)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(path); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		w:      w,
		path:   path,
		apply:  apply,
		errors: make(chan error, 4),
		done:   make(chan struct{}),
	}

	go watcher.loop()

	return watcher, nil
}

func (tw *Watcher) loop() {
	defer close(tw.done)

	for {
		select {
		case ev, ok := <-tw.w.Events:
			if !ok {
				return
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			t, err := LoadOverrides(tw.path)
			if err != nil {
				tw.errors <- err
				continue
			}

			if err := t.Validate(); err != nil {
				tw.errors <- err
				continue
			}

			tw.apply(t)
		case err, ok := <-tw.w.Errors:
			if !ok {
				return
			}

			tw.errors <- err
		}
	}
}

// Errors returns a channel of reload failures (bad JSON, failed
// validation, or fsnotify-internal errors).
func (tw *Watcher) Errors() <-chan error { return tw.errors }

// Close stops watching and releases the underlying fsnotify watcher.
func (tw *Watcher) Close() error {
	err := tw.w.Close()
	<-tw.done

	return err
}
