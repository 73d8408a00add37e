package probe

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ActivityWatcher counts writes to the target's log while a probe settles.
// A reload that produces no log writes at all usually means the target never
// restarted, which otherwise looks exactly like a regression.
type ActivityWatcher struct {
	path    string
	watcher *fsnotify.Watcher

	mu     sync.Mutex
	writes int
	errs   int

	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

// WatchActivity starts watching the directory holding path. fsnotify can
// only watch directories reliably across editors and rotations, so events
// are filtered down to the file itself.
func WatchActivity(path string) (*ActivityWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	w := &ActivityWatcher{
		path:    abs,
		watcher: watcher,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *ActivityWatcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.mu.Lock()
			w.writes++
			w.mu.Unlock()

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.errs++
			w.mu.Unlock()
		}
	}
}

// Writes returns the number of writes seen so far.
func (w *ActivityWatcher) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

// Stop ends the watch and returns the final write count. It is safe to call
// more than once.
func (w *ActivityWatcher) Stop() int {
	w.once.Do(func() {
		close(w.stopCh)
		_ = w.watcher.Close()
		<-w.done
	})
	return w.Writes()
}
