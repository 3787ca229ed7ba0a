package devserver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWatcher(t *testing.T, roots ...string) *Watcher {
	t.Helper()
	w, err := NewWatcher(zap.NewNop())
	require.NoError(t, err)
	for _, root := range roots {
		require.NoError(t, w.AddRoot(root))
	}
	w.Start()
	t.Cleanup(w.Stop)
	return w
}

// waitForEvent drains until an event for path arrives or the deadline
// passes. Editors and filesystems differ in how many raw notifications
// one change produces, so tests match on the first relevant event.
func waitForEvent(t *testing.T, w *Watcher, path string, kind ChangeKind) ChangeEvent {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-w.Events():
			require.True(t, ok, "event channel closed while waiting for %s", path)
			if ev.Path == path && ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event for %s", kind, path)
		}
	}
}

func TestWatcherEmitsCreateAndWrite(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	path := filepath.Join(dir, "index.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))
	waitForEvent(t, w, path, KindAdded)

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	waitForEvent(t, w, path, KindModified)
}

func TestWatcherEmitsRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gone.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	w := newTestWatcher(t, dir)
	require.NoError(t, os.Remove(path))
	waitForEvent(t, w, path, KindRemoved)
}

func TestWatcherExtendsToNewDirectories(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	sub := filepath.Join(dir, "blog")
	require.NoError(t, os.Mkdir(sub, 0o755))
	// The create event for the directory arms the new watch; give the
	// watcher a moment before writing into it.
	time.Sleep(100 * time.Millisecond)

	path := filepath.Join(sub, "post.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	waitForEvent(t, w, path, KindAdded)
}

func TestWatcherRelativeRootEmitsAbsolutePaths(t *testing.T) {
	origWD, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWD) })
	require.NoError(t, os.Chdir(t.TempDir()))
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Mkdir("src", 0o755))

	w := newTestWatcher(t, "src")

	require.NoError(t, os.WriteFile(filepath.Join("src", "page.tmpl"), []byte("x"), 0o644))
	waitForEvent(t, w, filepath.Join(cwd, "src", "page.tmpl"), KindAdded)
}

func TestWatcherSkipsNoise(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	for _, name := range []string{".hidden", "save.tmp", "buffer.swp", "edit~"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	real := filepath.Join(dir, "real.tmpl")
	require.NoError(t, os.WriteFile(real, []byte("x"), 0o644))

	// The noise was written first, so a leaked event for it would
	// arrive before the real file's.
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			assert.Equal(t, real, ev.Path)
			if ev.Path == real {
				return
			}
		case <-deadline:
			t.Fatal("no event for the real file")
		}
	}
}

func TestWatcherMissingRootIsSkipped(t *testing.T) {
	w, err := NewWatcher(zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	assert.NoError(t, w.AddRoot(filepath.Join(t.TempDir(), "absent")))
}

func TestWatcherStopIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.AddRoot(dir))
	w.Start()

	w.Stop()
	w.Stop()

	_, ok := <-w.Events()
	assert.False(t, ok, "events channel should be closed after Stop")
}
