package view

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/alfycore/veko/internal/router"
)

// Renderer composes a route template with its layout and partial views.
type Renderer struct {
	Views   *Cache
	Layouts *LayoutCache

	// InjectHTML is appended inside <body> of every rendered page.
	// The dev engine uses it for the live-reload client script.
	InjectHTML template.HTML
}

// NewRenderer creates a renderer over the two caches.
func NewRenderer(views *Cache, layouts *LayoutCache) *Renderer {
	return &Renderer{Views: views, Layouts: layouts}
}

// PageData is the pipeline value passed to route and view templates.
type PageData struct {
	Title  string
	Params map[string]string

	renderer *Renderer
}

// Partial renders a named view (relative to the views root) and inlines
// the result. Views go through the render cache.
func (d PageData) Partial(name string) (template.HTML, error) {
	tmpl, err := d.renderer.Views.Get(name)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("failed to render view %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// layoutData is the pipeline value passed to layout templates.
type layoutData struct {
	Title   string
	Content template.HTML
	Inject  template.HTML
}

// RenderRoute executes a route template inside its layout and writes
// the final page. When the layout is absent the body is emitted as a
// bare page with the injected snippet appended.
func (r *Renderer) RenderRoute(w io.Writer, route *router.Route, params map[string]string) error {
	data := PageData{
		Title:    route.Title,
		Params:   params,
		renderer: r,
	}

	var body bytes.Buffer
	if err := route.Template.Execute(&body, data); err != nil {
		return fmt.Errorf("failed to render route %s: %w", route.Path, err)
	}

	layoutName := route.Layout
	if layoutName == "" {
		layoutName = DefaultLayout
	}

	layout, err := r.Layouts.Get(layoutName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r.renderBare(w, body.String())
		}
		return err
	}

	return layout.Execute(w, layoutData{
		Title:   route.Title,
		Content: template.HTML(body.String()),
		Inject:  r.InjectHTML,
	})
}

// renderBare emits the body without a layout, still carrying the
// injected snippet so live reload works on layout-less pages.
func (r *Renderer) renderBare(w io.Writer, body string) error {
	if r.InjectHTML != "" {
		if i := strings.LastIndex(body, "</body>"); i >= 0 {
			body = body[:i] + string(r.InjectHTML) + body[i:]
		} else {
			body += string(r.InjectHTML)
		}
	}
	_, err := io.WriteString(w, body)
	return err
}
