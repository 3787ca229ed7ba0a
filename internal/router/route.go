package router

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Route is the live mapping from a source file to its registered route
// path. Generation increases on every successful hot swap so stale
// in-flight swaps can be detected.
type Route struct {
	SourceFile string
	Path       string
	Title      string
	Layout     string
	Generation uint64

	Template *template.Template
	segments []string
}

// IsParameterized reports whether the route path contains :param segments.
func (r *Route) IsParameterized() bool {
	for _, seg := range r.segments {
		if strings.HasPrefix(seg, ":") {
			return true
		}
	}
	return false
}

// frontmatter is the optional YAML header of a route file, delimited by
// "---" lines before the template body.
type frontmatter struct {
	Route  string `yaml:"route"`
	Layout string `yaml:"layout"`
	Title  string `yaml:"title"`
}

const frontmatterDelim = "---"

// LoadRouteFile parses a route file into a Route. The route path is
// derived from the file's location under routesRoot unless the
// frontmatter overrides it with an explicit route.
func LoadRouteFile(path, routesRoot string) (*Route, error) {
	// Records are keyed by SourceFile, which must carry the same
	// spelling as watcher event paths.
	path = absPath(path)
	routesRoot = absPath(routesRoot)

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read route file %s: %w", path, err)
	}

	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("invalid frontmatter in %s: %w", path, err)
	}

	routePath := fm.Route
	if routePath == "" {
		routePath, err = PathFromFile(path, routesRoot)
		if err != nil {
			return nil, err
		}
	}
	if !strings.HasPrefix(routePath, "/") {
		return nil, fmt.Errorf("route path %q in %s must start with /", routePath, path)
	}

	tmpl, err := template.New(filepath.Base(path)).Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse route template %s: %w", path, err)
	}

	return &Route{
		SourceFile: path,
		Path:       routePath,
		Title:      fm.Title,
		Layout:     fm.Layout,
		Template:   tmpl,
		segments:   splitPath(routePath),
	}, nil
}

// splitFrontmatter separates the optional YAML header from the template
// body. A file without a leading "---" line is all body.
func splitFrontmatter(data []byte) (frontmatter, []byte, error) {
	var fm frontmatter

	trimmed := bytes.TrimLeft(data, "\r\n")
	if !bytes.HasPrefix(trimmed, []byte(frontmatterDelim)) {
		return fm, data, nil
	}

	rest := trimmed[len(frontmatterDelim):]
	end := bytes.Index(rest, []byte("\n"+frontmatterDelim))
	if end < 0 {
		return fm, nil, fmt.Errorf("unterminated frontmatter block")
	}

	header := rest[:end]
	body := rest[end+len(frontmatterDelim)+1:]
	body = bytes.TrimPrefix(body, []byte("\n"))

	if err := yaml.Unmarshal(header, &fm); err != nil {
		return fm, nil, err
	}
	return fm, body, nil
}

// PathFromFile derives a route path from a file location:
// routes/index.tmpl -> /, routes/users.tmpl -> /users,
// routes/blog/[slug].tmpl -> /blog/:slug.
func PathFromFile(path, routesRoot string) (string, error) {
	rel, err := filepath.Rel(routesRoot, path)
	if err != nil {
		return "", fmt.Errorf("route file %s is not under %s: %w", path, routesRoot, err)
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("route file %s is not under %s", path, routesRoot)
	}

	rel = strings.TrimSuffix(rel, filepath.Ext(rel))

	segs := strings.Split(rel, "/")
	out := make([]string, 0, len(segs))
	for i, seg := range segs {
		if seg == "index" && i == len(segs)-1 {
			continue
		}
		if strings.HasPrefix(seg, "[") && strings.HasSuffix(seg, "]") {
			seg = ":" + seg[1:len(seg)-1]
		}
		out = append(out, seg)
	}

	return "/" + strings.Join(out, "/"), nil
}

// absPath pins a path to one absolute spelling, matching what the
// watcher reports for file events.
func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
