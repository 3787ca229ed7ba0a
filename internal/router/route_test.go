package router

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRouteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPathFromFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		want    string
		wantErr bool
	}{
		{name: "root index", file: "routes/index.tmpl", want: "/"},
		{name: "top level page", file: "routes/about.tmpl", want: "/about"},
		{name: "nested page", file: "routes/blog/archive.tmpl", want: "/blog/archive"},
		{name: "nested index", file: "routes/blog/index.tmpl", want: "/blog"},
		{name: "parameter segment", file: "routes/blog/[slug].tmpl", want: "/blog/:slug"},
		{name: "deep parameters", file: "routes/users/[id]/posts/[post].tmpl", want: "/users/:id/posts/:post"},
		{name: "outside root", file: "elsewhere/about.tmpl", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PathFromFile(tt.file, "routes")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadRouteFile(t *testing.T) {
	dir := t.TempDir()
	routesRoot := filepath.Join(dir, "routes")

	t.Run("plain template", func(t *testing.T) {
		path := writeRouteFile(t, routesRoot, "about.tmpl", "<h1>About</h1>")
		rt, err := LoadRouteFile(path, routesRoot)
		require.NoError(t, err)
		assert.Equal(t, "/about", rt.Path)
		assert.Equal(t, path, rt.SourceFile)
		assert.Empty(t, rt.Title)
		assert.False(t, rt.IsParameterized())
		require.NotNil(t, rt.Template)
	})

	t.Run("frontmatter overrides", func(t *testing.T) {
		content := "---\nroute: /custom\ntitle: Custom Page\nlayout: wide\n---\n<p>body</p>"
		path := writeRouteFile(t, routesRoot, "odd-name.tmpl", content)
		rt, err := LoadRouteFile(path, routesRoot)
		require.NoError(t, err)
		assert.Equal(t, "/custom", rt.Path)
		assert.Equal(t, "Custom Page", rt.Title)
		assert.Equal(t, "wide", rt.Layout)
	})

	t.Run("parameter file name", func(t *testing.T) {
		path := writeRouteFile(t, routesRoot, "blog/[slug].tmpl", "<p>{{.Params.slug}}</p>")
		rt, err := LoadRouteFile(path, routesRoot)
		require.NoError(t, err)
		assert.Equal(t, "/blog/:slug", rt.Path)
		assert.True(t, rt.IsParameterized())
	})

	t.Run("unterminated frontmatter", func(t *testing.T) {
		path := writeRouteFile(t, routesRoot, "broken.tmpl", "---\ntitle: nope\n<p>no end</p>")
		_, err := LoadRouteFile(path, routesRoot)
		assert.Error(t, err)
	})

	t.Run("bad template syntax", func(t *testing.T) {
		path := writeRouteFile(t, routesRoot, "syntax.tmpl", "{{.Unclosed")
		_, err := LoadRouteFile(path, routesRoot)
		assert.Error(t, err)
	})

	t.Run("relative frontmatter route rejected", func(t *testing.T) {
		path := writeRouteFile(t, routesRoot, "rel.tmpl", "---\nroute: no-slash\n---\nbody")
		_, err := LoadRouteFile(path, routesRoot)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRouteFile(filepath.Join(routesRoot, "absent.tmpl"), routesRoot)
		assert.Error(t, err)
	})
}

func TestSplitFrontmatter(t *testing.T) {
	t.Run("no header", func(t *testing.T) {
		fm, body, err := splitFrontmatter([]byte("<p>hello</p>"))
		require.NoError(t, err)
		assert.Empty(t, fm.Route)
		assert.Equal(t, "<p>hello</p>", string(body))
	})

	t.Run("header and body", func(t *testing.T) {
		fm, body, err := splitFrontmatter([]byte("---\nroute: /x\n---\nbody here"))
		require.NoError(t, err)
		assert.Equal(t, "/x", fm.Route)
		assert.Equal(t, "body here", string(body))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, _, err := splitFrontmatter([]byte("---\nroute: [unclosed\n---\nbody"))
		assert.Error(t, err)
	})
}
