package router

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDiscover(t *testing.T) {
	dir := t.TempDir()
	routesRoot := filepath.Join(dir, "routes")
	writeRouteFile(t, routesRoot, "index.tmpl", "<h1>home</h1>")
	writeRouteFile(t, routesRoot, "about.tmpl", "<h1>about</h1>")
	writeRouteFile(t, routesRoot, "blog/[slug].tmpl", "<p>{{.Params.slug}}</p>")
	writeRouteFile(t, routesRoot, "notes.txt", "not a route")

	s := NewStore()
	require.NoError(t, s.Discover(routesRoot, ".tmpl"))

	table := s.Current()
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"/", "/about", "/blog/:slug"}, table.Paths())
	assert.Len(t, s.RecordedFiles(), 3)

	rt, ok := s.FileToRoute(filepath.Join(routesRoot, "about.tmpl"))
	require.True(t, ok)
	assert.Equal(t, "/about", rt.Path)
}

func TestStoreDiscoverRelativeRoot(t *testing.T) {
	origWD, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWD) })
	require.NoError(t, os.Chdir(t.TempDir()))
	cwd, err := os.Getwd()
	require.NoError(t, err)

	writeRouteFile(t, "routes", "index.tmpl", "home")

	s := NewStore()
	require.NoError(t, s.Discover("routes", ".tmpl"))

	// Records carry the absolute spelling the watcher reports.
	abs := filepath.Join(cwd, "routes", "index.tmpl")
	assert.Equal(t, []string{abs}, s.RecordedFiles())
	_, ok := s.FileToRoute(abs)
	assert.True(t, ok)
}

func TestStoreDiscoverMissingRoot(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Discover(filepath.Join(t.TempDir(), "absent"), ".tmpl"))
	assert.Equal(t, 0, s.Current().Len())
}

func TestStoreReplace(t *testing.T) {
	s := NewStore()
	rt := mkRoute("/about")
	rt.SourceFile = "routes/about.tmpl"

	s.Replace(s.Current().With(rt), rt.SourceFile, rt)
	assert.Equal(t, 1, s.Current().Len())
	got, ok := s.FileToRoute("routes/about.tmpl")
	require.True(t, ok)
	assert.Same(t, rt, got)

	// Deletion drops the record in the same replacement.
	s.Replace(s.Current().WithoutPath("/about"), rt.SourceFile, nil)
	assert.Equal(t, 0, s.Current().Len())
	_, ok = s.FileToRoute("routes/about.tmpl")
	assert.False(t, ok)
}

func TestStoreConcurrentReaders(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				table := s.Current()
				// A snapshot is internally consistent no matter when
				// it was taken.
				assert.Equal(t, len(table.Paths()), table.Len())
			}
		}()
	}

	for i := 0; i < 200; i++ {
		rt := mkRoute("/swap")
		rt.SourceFile = "routes/swap.tmpl"
		rt.Generation = uint64(i)
		s.Replace(s.Current().With(rt), rt.SourceFile, rt)
	}
	close(stop)
	wg.Wait()

	got, ok := s.Current().Get("/swap")
	require.True(t, ok)
	assert.Equal(t, uint64(199), got.Generation)
}
