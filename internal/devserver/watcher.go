package devserver

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/alfycore/veko/internal/constants"
)

// ChangeKind is the normalized kind of a filesystem change.
type ChangeKind string

const (
	KindAdded    ChangeKind = "added"
	KindModified ChangeKind = "modified"
	KindRemoved  ChangeKind = "removed"
)

// ChangeEvent is one normalized filesystem notification. Produced per
// event, consumed once by the classifier.
type ChangeEvent struct {
	Path string
	Kind ChangeKind
}

// Watcher supervises recursive fsnotify watches over the configured
// roots, filters noise and emits normalized change events. Watch
// handles are owned exclusively by the Watcher; Stop closes every
// handle and is idempotent.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events chan ChangeEvent
	logger *zap.Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	mu      sync.Mutex
	started bool
}

// NewWatcher creates a watcher. Roots are added with AddRoot before
// Start.
func NewWatcher(logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		fsw:    fsw,
		events: make(chan ChangeEvent, 100),
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// AddRoot establishes a recursive watch over root. A root that does
// not exist is skipped silently; a root that cannot be watched is
// reported so the caller can log and move on without aborting the
// remaining roots.
func (w *Watcher) AddRoot(root string) error {
	root = absPath(root)
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			w.logger.Debug("Watch root does not exist, skipping", zap.String("root", root))
			return nil
		}
		return fmt.Errorf("failed to stat watch root %s: %w", root, err)
	}
	if !info.IsDir() {
		return w.fsw.Add(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skippedDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// Events returns the channel of normalized change events.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Start begins translating fsnotify events. Idempotent.
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.watch()
	w.logger.Info("File watcher started")
}

// Stop closes every watch handle. Safe to call repeatedly and before
// Start; never panics.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.wg.Wait()
		close(w.events)
		if err := w.fsw.Close(); err != nil {
			w.logger.Error("Failed to close file watcher", zap.Error(err))
		}
		w.logger.Info("File watcher stopped")
	})
}

// watch is the main event loop for the watcher.
func (w *Watcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleFsEvent(event fsnotify.Event) {
	if shouldSkipPath(event.Name) {
		return
	}

	var kind ChangeKind
	switch {
	case event.Op.Has(fsnotify.Create):
		// A created directory extends the recursive watch instead of
		// producing a change event.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !skippedDir(filepath.Base(event.Name)) {
				if err := w.fsw.Add(event.Name); err != nil {
					w.logger.Warn("Failed to watch new directory",
						zap.String("path", event.Name), zap.Error(err))
				}
			}
			return
		}
		kind = KindAdded
	case event.Op.Has(fsnotify.Write):
		kind = KindModified
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		kind = KindRemoved
	default:
		return
	}

	select {
	case w.events <- ChangeEvent{Path: event.Name, Kind: kind}:
		w.logger.Debug("File system event",
			zap.String("path", event.Name), zap.String("kind", string(kind)))
	case <-w.done:
	}
}

// shouldSkipPath filters editor temp files and dependency directories.
func shouldSkipPath(path string) bool {
	base := filepath.Base(path)
	if base == "" {
		return true
	}
	if base[0] == '.' || base[len(base)-1] == '~' {
		return true
	}
	switch filepath.Ext(path) {
	case ".tmp", ".swp", ".swx":
		return true
	}
	for _, dir := range constants.SkippedDirs {
		if strings.Contains(path, string(filepath.Separator)+dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// absPath pins a path to one absolute spelling. Event paths inherit
// the spelling of the watched root, so roots and the coordinator's
// configured directories have to be rooted the same way.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func skippedDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	for _, dir := range constants.SkippedDirs {
		if name == dir {
			return true
		}
	}
	return false
}
