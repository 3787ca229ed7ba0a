package devserver

import (
	"path/filepath"
	"strings"
)

// Category is the kind of source a changed file belongs to.
type Category string

const (
	CategoryRoute   Category = "route"
	CategoryView    Category = "view"
	CategoryLayout  Category = "layout"
	CategoryGeneric Category = "generic"
)

// ClassifierConfig names the directory roots and the template
// extension used to classify changed paths. Routes, views and layouts
// all share one extension.
type ClassifierConfig struct {
	RoutesDir   string
	ViewsDir    string
	LayoutsDir  string
	TemplateExt string
}

// Classify maps a changed file path to its category. Rule order: route
// before view before layout; anything else is generic. Pure and total.
func Classify(path string, cfg ClassifierConfig) Category {
	if filepath.Ext(path) != cfg.TemplateExt {
		return CategoryGeneric
	}

	switch {
	case underDir(path, cfg.RoutesDir):
		return CategoryRoute
	case underDir(path, cfg.ViewsDir):
		return CategoryView
	case underDir(path, cfg.LayoutsDir):
		return CategoryLayout
	default:
		return CategoryGeneric
	}
}

// underDir reports whether path sits under dir. Both are compared
// cleaned; callers are expected to hand in paths rooted the same way
// the roots were configured.
func underDir(path, dir string) bool {
	if dir == "" {
		return false
	}
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	if path == dir {
		return false
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}
