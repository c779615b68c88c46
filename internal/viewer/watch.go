package viewer

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/meshview/internal/logger"
)

// Watcher reports changes to a set of files. It watches their parent
// directories so editors that save by rename are still seen.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	files   map[string]bool
	dirs    map[string]int
	pending map[string]time.Time

	changes chan string
	done    chan struct{}
	wg      sync.WaitGroup
}

// minDebounce bounds the polling rate of pending changes.
const minDebounce = 10 * time.Millisecond

// NewWatcher starts a watcher. A file is reported once it has been quiet
// for debounce.
func NewWatcher(debounce time.Duration) (*Watcher, error) {
	if debounce < minDebounce {
		debounce = minDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		debounce: debounce,
		files:    make(map[string]bool),
		dirs:     make(map[string]int),
		pending:  make(map[string]time.Time),
		changes:  make(chan string, 16),
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changes delivers the cleaned path of each changed file.
func (w *Watcher) Changes() <-chan string { return w.changes }

// Add starts watching path.
func (w *Watcher) Add(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.files[path] {
		return nil
	}
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.files[path] = true
	w.dirs[dir]++
	return nil
}

// Remove stops watching path.
func (w *Watcher) Remove(path string) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[path] {
		return
	}
	delete(w.files, path)
	delete(w.pending, path)
	if w.dirs[dir]--; w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		_ = w.watcher.Remove(dir)
	}
}

// Replace swaps every watched file for path.
func (w *Watcher) Replace(path string) error {
	w.mu.Lock()
	var old []string
	for f := range w.files {
		old = append(old, f)
	}
	w.mu.Unlock()

	for _, f := range old {
		w.Remove(f)
	}
	return w.Add(path)
}

// Close stops the watcher. Changes is closed afterwards.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	close(w.changes)
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	log := logger.Named("watch")

	tick := time.NewTicker(w.debounce / 2)
	defer tick.Stop()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(ev.Name)
			w.mu.Lock()
			if w.files[name] {
				w.pending[name] = time.Now()
			}
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", zap.Error(err))
		case now := <-tick.C:
			for _, name := range w.due(now) {
				log.Debug("file changed", zap.String("path", name))
				select {
				case w.changes <- name:
				case <-w.done:
					return
				}
			}
		}
	}
}

// due removes and returns the pending files that have been quiet long enough.
func (w *Watcher) due(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for name, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			out = append(out, name)
			delete(w.pending, name)
		}
	}
	return out
}
