package explorer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a change is reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports linked folders whose contents changed. Bursts of events
// under one root collapse into a single notification after the debounce
// period.
//
// fsnotify watches are not recursive, so every directory below a root is
// registered, and directories created later are added as they appear.
type Watcher struct {
	Logger   *log.Logger
	Debounce time.Duration
	Ignore   *Ignore
	MaxDepth int

	fsw     *fsnotify.Watcher
	changes chan string
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once

	mu     sync.Mutex
	roots  map[string][]string // root -> watched directories
	timers map[string]*time.Timer
}

// NewWatcher starts a watcher. A nil logger falls back to the default
// logger.
func NewWatcher(logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w := &Watcher{
		Logger:   logger,
		Debounce: DefaultDebounce,
		Ignore:   NewIgnore(DefaultIgnore...),
		MaxDepth: DefaultMaxDepth,
		fsw:      fsw,
		changes:  make(chan string, 16),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		roots:    make(map[string][]string),
		timers:   make(map[string]*time.Timer),
	}
	go w.watchLoop()
	return w, nil
}

// Changes delivers the root path of every folder that changed.
func (w *Watcher) Changes() <-chan string { return w.changes }

// Roots returns the watched root paths.
func (w *Watcher) Roots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.roots))
	for r := range w.roots {
		out = append(out, r)
	}
	return out
}

// Add starts watching root and its subdirectories. Adding a root twice is a
// no-op.
func (w *Watcher) Add(root string) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w.mu.Lock()
	_, exists := w.roots[root]
	w.mu.Unlock()
	if exists {
		return nil
	}

	var dirs []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(root, path)
		if path != root && w.Ignore.Match(rel, true) {
			return filepath.SkipDir
		}
		if strings.Count(rel, string(filepath.Separator)) >= w.MaxDepth && path != root {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.Logger.Warn("failed to watch directory", "path", path, "err", err)
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		for _, d := range dirs {
			_ = w.fsw.Remove(d)
		}
		return fmt.Errorf("watch %s: %w", root, err)
	}

	w.mu.Lock()
	w.roots[root] = dirs
	w.mu.Unlock()
	w.Logger.Debug("watching folder", "root", root, "dirs", len(dirs))
	return nil
}

// Remove stops watching root.
func (w *Watcher) Remove(root string) {
	root, _ = filepath.Abs(root)
	w.mu.Lock()
	dirs := w.roots[root]
	delete(w.roots, root)
	if t := w.timers[root]; t != nil {
		t.Stop()
		delete(w.timers, root)
	}
	w.mu.Unlock()
	for _, d := range dirs {
		_ = w.fsw.Remove(d)
	}
}

// Close stops the watcher. Pending notifications are dropped.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.stopCh)
		<-w.done
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.Logger.Error("file watcher error", "err", err)

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	root := w.rootFor(event.Name)
	if root == "" {
		return
	}
	rel, _ := filepath.Rel(root, event.Name)
	if w.Ignore.Match(rel, false) || w.Ignore.Match(rel, true) {
		return
	}
	if event.Has(fsnotify.Create) {
		w.watchNewDir(root, event.Name)
	}
	w.Logger.Debug("folder changed", "root", root, "file", event.Name, "op", event.Op.String())

	w.mu.Lock()
	defer w.mu.Unlock()
	if prev := w.timers[root]; prev != nil {
		prev.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.Debounce, func() {
		w.mu.Lock()
		if w.timers[root] == t {
			delete(w.timers, root)
		}
		w.mu.Unlock()
		select {
		case w.changes <- root:
		case <-w.stopCh:
		}
	})
	w.timers[root] = t
}

func (w *Watcher) watchNewDir(root, path string) {
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		return
	}
	w.mu.Lock()
	if _, ok := w.roots[root]; ok {
		w.roots[root] = append(w.roots[root], path)
	}
	w.mu.Unlock()
}

// rootFor returns the longest watched root containing path.
func (w *Watcher) rootFor(path string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	best := ""
	for r := range w.roots {
		if (path == r || strings.HasPrefix(path, r+string(filepath.Separator))) && len(r) > len(best) {
			best = r
		}
	}
	return best
}
