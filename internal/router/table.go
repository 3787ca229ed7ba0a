package router

import (
	"sort"
	"strings"
)

// Table is an immutable snapshot of the route table. It is never
// mutated after construction; reload publishes a fresh Table through
// the Store in a single pointer swap, so concurrent readers only ever
// observe a fully-old or fully-new table.
type Table struct {
	exact   map[string]*Route
	dynamic []*Route
}

// NewTable builds a table from a set of routes. Later entries win on a
// route-path collision.
func NewTable(routes []*Route) *Table {
	t := &Table{exact: make(map[string]*Route, len(routes))}
	for _, r := range routes {
		if r.IsParameterized() {
			t.dynamic = replaceOrAppend(t.dynamic, r)
		} else {
			t.exact[r.Path] = r
		}
	}
	// More literal segments match first: /blog/archive beats /blog/:slug.
	sort.SliceStable(t.dynamic, func(i, j int) bool {
		return literalSegments(t.dynamic[i]) > literalSegments(t.dynamic[j])
	})
	return t
}

func replaceOrAppend(routes []*Route, r *Route) []*Route {
	for i, existing := range routes {
		if existing.Path == r.Path {
			out := make([]*Route, len(routes))
			copy(out, routes)
			out[i] = r
			return out
		}
	}
	return append(routes, r)
}

func literalSegments(r *Route) int {
	n := 0
	for _, seg := range r.segments {
		if !strings.HasPrefix(seg, ":") {
			n++
		}
	}
	return n
}

// Match finds the route serving a request path, with captured params.
// Exact matches beat parameterized ones.
func (t *Table) Match(reqPath string) (*Route, map[string]string) {
	if r, ok := t.exact[cleanRequestPath(reqPath)]; ok {
		return r, nil
	}

	reqSegs := splitPath(reqPath)
	for _, r := range t.dynamic {
		if params, ok := matchSegments(r.segments, reqSegs); ok {
			return r, params
		}
	}
	return nil, nil
}

// Get returns the route registered at exactly the given route path.
func (t *Table) Get(routePath string) (*Route, bool) {
	if r, ok := t.exact[routePath]; ok {
		return r, true
	}
	for _, r := range t.dynamic {
		if r.Path == routePath {
			return r, true
		}
	}
	return nil, false
}

// Routes returns every route in the table.
func (t *Table) Routes() []*Route {
	out := make([]*Route, 0, t.Len())
	for _, r := range t.exact {
		out = append(out, r)
	}
	out = append(out, t.dynamic...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Paths returns every route path in the table, sorted.
func (t *Table) Paths() []string {
	out := make([]string, 0, t.Len())
	for _, r := range t.Routes() {
		out = append(out, r.Path)
	}
	return out
}

// Len returns the number of routes in the table.
func (t *Table) Len() int {
	return len(t.exact) + len(t.dynamic)
}

// WithoutPath returns a new table with the entry at the given route
// path removed. The receiver is left untouched.
func (t *Table) WithoutPath(routePath string) *Table {
	routes := make([]*Route, 0, t.Len())
	for _, r := range t.Routes() {
		if r.Path != routePath {
			routes = append(routes, r)
		}
	}
	return NewTable(routes)
}

// With returns a new table with the given route spliced in, replacing
// any entry at the same route path. The receiver is left untouched.
func (t *Table) With(route *Route) *Table {
	routes := make([]*Route, 0, t.Len()+1)
	for _, r := range t.Routes() {
		if r.Path != route.Path {
			routes = append(routes, r)
		}
	}
	routes = append(routes, route)
	return NewTable(routes)
}

func cleanRequestPath(p string) string {
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	if p == "" {
		p = "/"
	}
	return p
}

func matchSegments(routeSegs, reqSegs []string) (map[string]string, bool) {
	if len(routeSegs) != len(reqSegs) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range routeSegs {
		if strings.HasPrefix(seg, ":") {
			if params == nil {
				params = make(map[string]string)
			}
			params[seg[1:]] = reqSegs[i]
			continue
		}
		if seg != reqSegs[i] {
			return nil, false
		}
	}
	return params, true
}
