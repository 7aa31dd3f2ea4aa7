package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"
)

//go:embed templates/*.html
var content embed.FS

// Capability templates the console cannot run without.
const (
	tmplPage              = "page"
	tmplListSurface       = "list_surface"
	tmplSelectionControls = "selection_controls"
	tmplModalSurface      = "modal_surface"
)

var requiredTemplates = []string{tmplPage, tmplListSurface, tmplSelectionControls, tmplModalSurface}

// Renderer executes the console templates.
type Renderer struct {
	templates *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	sub, err := fs.Sub(content, "templates")
	if err != nil {
		return nil, err
	}
	return NewRendererFS(sub)
}

// NewRendererFS parses every *.html file in fsys and fails if any
// capability template is missing.
func NewRendererFS(fsys fs.FS) (*Renderer, error) {
	tmpl, err := template.ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	var missing []string
	for _, name := range requiredTemplates {
		if tmpl.Lookup(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("templates missing: %s", strings.Join(missing, ", "))
	}
	return &Renderer{templates: tmpl}, nil
}

// Render executes the named template into w.
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	return r.templates.ExecuteTemplate(w, name, data)
}

// Fragment executes the named template into a byte slice.
func (r *Renderer) Fragment(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
