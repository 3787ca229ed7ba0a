package view

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultLayout is used when a route does not name a layout.
const DefaultLayout = "default"

// LayoutCache holds compiled layout templates by name. Layouts are few
// and composed, so invalidation is coarse: any layout change drops the
// whole cache.
type LayoutCache struct {
	layoutsDir string
	ext        string
	entries    *gocache.Cache
}

// NewLayoutCache creates a layout cache rooted at layoutsDir.
func NewLayoutCache(layoutsDir, ext string) *LayoutCache {
	return &LayoutCache{
		layoutsDir: layoutsDir,
		ext:        ext,
		entries:    gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the compiled layout by name, parsing and caching it on a
// miss. A missing layout file is reported as os.ErrNotExist.
func (c *LayoutCache) Get(name string) (*template.Template, error) {
	if cached, ok := c.entries.Get(name); ok {
		return cached.(*template.Template), nil
	}

	path := filepath.Join(c.layoutsDir, name+c.ext)
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read layout %s: %w", path, err)
	}

	tmpl, err := template.New(name).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout %s: %w", path, err)
	}

	c.entries.Set(name, tmpl, gocache.NoExpiration)
	return tmpl, nil
}

// DropCache discards every compiled layout. The next render re-parses.
func (c *LayoutCache) DropCache() {
	c.entries.Flush()
}

// Len returns the number of cached layouts.
func (c *LayoutCache) Len() int {
	return c.entries.ItemCount()
}
