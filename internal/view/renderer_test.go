package view

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfycore/veko/internal/router"
)

type fixture struct {
	routesDir string
	views     *Cache
	layouts   *LayoutCache
	renderer  *Renderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{routesDir: filepath.Join(dir, "routes")}
	viewsDir := filepath.Join(dir, "views")
	layoutsDir := filepath.Join(dir, "layouts")
	for _, d := range []string{f.routesDir, viewsDir, layoutsDir} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	f.views = NewCache(viewsDir, ".tmpl")
	f.layouts = NewLayoutCache(layoutsDir, ".tmpl")
	f.renderer = NewRenderer(f.views, f.layouts)
	return f
}

func (f *fixture) write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) loadRoute(t *testing.T, name, content string) *router.Route {
	t.Helper()
	path := f.write(t, f.routesDir, name, content)
	rt, err := router.LoadRouteFile(path, f.routesDir)
	require.NoError(t, err)
	return rt
}

func TestRenderRouteWithLayout(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.layouts.layoutsDir, "default.tmpl",
		"<html><head><title>{{.Title}}</title></head><body>{{.Content}}{{.Inject}}</body></html>")
	rt := f.loadRoute(t, "about.tmpl", "---\ntitle: About Us\n---\n<h1>About</h1>")

	var buf bytes.Buffer
	require.NoError(t, f.renderer.RenderRoute(&buf, rt, nil))
	out := buf.String()
	assert.Contains(t, out, "<title>About Us</title>")
	assert.Contains(t, out, "<h1>About</h1>")
}

func TestRenderRouteNamedLayout(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.layouts.layoutsDir, "wide.tmpl", "<main class=\"wide\">{{.Content}}</main>")
	rt := f.loadRoute(t, "wide.tmpl", "---\nlayout: wide\n---\n<p>x</p>")

	var buf bytes.Buffer
	require.NoError(t, f.renderer.RenderRoute(&buf, rt, nil))
	assert.Equal(t, "<main class=\"wide\"><p>x</p></main>", buf.String())
}

func TestRenderRouteMissingLayoutFallsBack(t *testing.T) {
	f := newFixture(t)
	f.renderer.InjectHTML = "<script src=\"/x.js\"></script>"
	rt := f.loadRoute(t, "bare.tmpl", "<html><body><p>bare</p></body></html>")

	var buf bytes.Buffer
	require.NoError(t, f.renderer.RenderRoute(&buf, rt, nil))
	assert.Equal(t,
		"<html><body><p>bare</p><script src=\"/x.js\"></script></body></html>",
		buf.String())
}

func TestRenderRouteParams(t *testing.T) {
	f := newFixture(t)
	rt := f.loadRoute(t, "blog/[slug].tmpl", "<p>{{.Params.slug}}</p>")

	var buf bytes.Buffer
	require.NoError(t, f.renderer.RenderRoute(&buf, rt, map[string]string{"slug": "first-post"}))
	assert.Contains(t, buf.String(), "first-post")
}

func TestPartialRendersThroughCache(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.views.viewsDir, "sidebar.tmpl", "<aside>nav</aside>")
	rt := f.loadRoute(t, "page.tmpl", "<div>{{.Partial \"sidebar\"}}</div>")

	var buf bytes.Buffer
	require.NoError(t, f.renderer.RenderRoute(&buf, rt, nil))
	assert.Equal(t, "<div><aside>nav</aside></div>", buf.String())
	assert.Equal(t, 1, f.views.Len())
}

func TestViewCacheInvalidate(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, f.views.viewsDir, "panel.tmpl", "v1")

	tmpl, err := f.views.Get("panel")
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, nil))
	assert.Equal(t, "v1", buf.String())

	// Without invalidation the stale compile is still served.
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
	tmpl, err = f.views.Get("panel")
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, tmpl.Execute(&buf, nil))
	assert.Equal(t, "v1", buf.String())

	f.views.Invalidate(path)
	tmpl, err = f.views.Get("panel")
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, tmpl.Execute(&buf, nil))
	assert.Equal(t, "v2", buf.String())
}

func TestLayoutCacheDrop(t *testing.T) {
	f := newFixture(t)
	f.write(t, f.layouts.layoutsDir, "default.tmpl", "old {{.Content}}")

	_, err := f.layouts.Get("default")
	require.NoError(t, err)
	assert.Equal(t, 1, f.layouts.Len())

	f.layouts.DropCache()
	assert.Equal(t, 0, f.layouts.Len())
}
