package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"index", "login", "register", "user", "error"}

type templates struct {
	pages map[string]*template.Template
}

func parseTemplates() (*templates, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	funcs := template.FuncMap{"stamp": stamp}

	t := &templates{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		p, err := template.New(name).Funcs(funcs).ParseFS(sub, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		t.pages[name] = p
	}
	return t, nil
}

// render buffers the page so a template failure never leaves a half-written body.
func (t *templates) render(w http.ResponseWriter, status int, name string, v view) error {
	p, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("template %s: not found", name)
	}
	var buf bytes.Buffer
	if err := p.ExecuteTemplate(&buf, "base", v); err != nil {
		return fmt.Errorf("template %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}
