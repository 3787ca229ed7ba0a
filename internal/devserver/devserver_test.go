package devserver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alfycore/veko/internal/config"
	"github.com/alfycore/veko/internal/router"
	"github.com/alfycore/veko/internal/view"
)

func newTestEngine(t *testing.T) (*Engine, *router.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Dev.Enabled = true
	cfg.Dev.WSPort = freePort(t)
	cfg.Dev.Debounce = 10 * time.Millisecond
	cfg.App.RoutesDir = filepath.Join(dir, "routes")
	cfg.App.ViewsDir = filepath.Join(dir, "views")
	cfg.App.Layouts.LayoutsDir = filepath.Join(dir, "layouts")
	for _, d := range cfg.WatchRoots() {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}

	store := router.NewStore()
	views := view.NewCache(cfg.App.ViewsDir, ".tmpl")
	layouts := view.NewLayoutCache(cfg.App.Layouts.LayoutsDir, ".tmpl")
	return NewEngine(cfg, store, views, layouts, zap.NewNop(), nil), store
}

func TestEngineSetupAndStop(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Setup())
	assert.True(t, e.LiveReloadActive())
	assert.NotZero(t, e.WSPort())
	e.Stop()
	e.Stop()
}

func TestEngineStopBeforeSetup(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Stop()
}

func TestEngineSetupTwiceFails(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Setup())
	defer e.Stop()
	assert.Error(t, e.Setup())
}

func TestEngineEndToEndRouteSwap(t *testing.T) {
	e, store := newTestEngine(t)
	require.NoError(t, e.Setup())
	defer e.Stop()

	path := filepath.Join(e.cfg.App.RoutesDir, "about.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("<h1>about</h1>"), 0o644))

	require.Eventually(t, func() bool {
		rt, _ := store.Current().Match("/about")
		return rt != nil
	}, 3*time.Second, 10*time.Millisecond)
}

func TestEnginePrefetchRoutes(t *testing.T) {
	e, store := newTestEngine(t)
	routesDir := e.cfg.App.RoutesDir

	files := map[string]string{
		"index.tmpl":       "home",
		"about.tmpl":       "about",
		"blog/[slug].tmpl": "post",
		"hc.tmpl":          "---\nroute: /health\n---\nshadowed",
		"internal.tmpl":    "---\nroute: /__veko/debug\n---\nhidden",
	}
	for rel, content := range files {
		path := filepath.Join(routesDir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	require.NoError(t, store.Discover(routesDir, ".tmpl"))

	// Administrative paths and parameterized routes stay out of the
	// prefetch hint.
	got := e.prefetchRoutes()
	assert.ElementsMatch(t, []string{"/", "/about"}, got)
}
