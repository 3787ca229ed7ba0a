package view

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	gocache "github.com/patrickmn/go-cache"
)

// Cache holds compiled view templates keyed by source path. Entries are
// dropped one at a time when the dev engine sees a view change; the
// next render re-parses lazily.
type Cache struct {
	viewsDir string
	ext      string
	entries  *gocache.Cache
}

// NewCache creates a view cache rooted at viewsDir.
func NewCache(viewsDir, ext string) *Cache {
	return &Cache{
		viewsDir: absPath(viewsDir),
		ext:      ext,
		entries:  gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the compiled template for a view name (path relative to
// the views root, without extension), parsing and caching it on a miss.
func (c *Cache) Get(name string) (*template.Template, error) {
	path := filepath.Join(c.viewsDir, name+c.ext)

	if cached, ok := c.entries.Get(path); ok {
		return cached.(*template.Template), nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read view %s: %w", path, err)
	}

	tmpl, err := template.New(name).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse view %s: %w", path, err)
	}

	c.entries.Set(path, tmpl, gocache.NoExpiration)
	return tmpl, nil
}

// Invalidate drops the cached template compiled from the given source
// file, if present. The file may be spelled relative or absolute.
func (c *Cache) Invalidate(sourceFile string) {
	c.entries.Delete(absPath(sourceFile))
}

// Len returns the number of cached views.
func (c *Cache) Len() int {
	return c.entries.ItemCount()
}

// absPath pins cache keys to one absolute spelling so invalidation by
// watcher event path finds the entry however viewsDir was configured.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
