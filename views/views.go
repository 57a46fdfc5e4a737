// Package views holds the site's HTML templates and exposes each page as a
// templ.Component. Layouts and partials are shared; every page template
// defines "title" and "content" blocks.
package views

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/a-h/templ"
)

//go:embed templates
var files embed.FS

// Renderer renders named pages.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every page under templates/site and templates/admin against its
// section layout and the shared partials.
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, section := range []string{"site", "admin"} {
		entries, err := fs.ReadDir(files, "templates/"+section)
		if err != nil {
			return nil, fmt.Errorf("read %s templates: %w", section, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
				continue
			}
			name := section + "/" + strings.TrimSuffix(e.Name(), ".html")
			t, err := template.New(section+".html").Funcs(funcs).ParseFS(files,
				"templates/layouts/"+section+".html",
				"templates/partials/*.html",
				"templates/"+section+"/"+e.Name(),
			)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", name, err)
			}
			r.pages[name] = t
		}
	}
	return r, nil
}

// MustNew is like New but panics on error. Templates are embedded, so a
// failure is a programming error.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Page returns a component rendering page name ("site/home", "admin/editor")
// with data.
func (r *Renderer) Page(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, ok := r.pages[name]
		if !ok {
			return fmt.Errorf("views: unknown page %q", name)
		}
		return t.Execute(w, data)
	})
}
