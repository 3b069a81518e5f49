package mail

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Renderer holds the HTML and plain-text variant of every embedded template.
type Renderer struct {
	html map[string]*htmltemplate.Template
	text map[string]*texttemplate.Template
}

// NewRenderer parses every template under templates/. Each name needs both a .html and a .txt file.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		html: make(map[string]*htmltemplate.Template),
		text: make(map[string]*texttemplate.Template),
	}
	entries, err := fs.ReadDir(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		file := path.Join("templates", entry.Name())
		raw, err := templateFS.ReadFile(file)
		if err != nil {
			return nil, err
		}
		ext := path.Ext(entry.Name())
		name := strings.TrimSuffix(entry.Name(), ext)
		switch ext {
		case ".html":
			t, err := htmltemplate.New(name).Parse(string(raw))
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", file, err)
			}
			r.html[name] = t
		case ".txt":
			t, err := texttemplate.New(name).Parse(string(raw))
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", file, err)
			}
			r.text[name] = t
		}
	}
	for name := range r.html {
		if _, ok := r.text[name]; !ok {
			return nil, fmt.Errorf("template %q has no plain-text variant", name)
		}
	}
	return r, nil
}

// Render executes both variants of the named template.
func (r *Renderer) Render(name string, data any) (html, text string, err error) {
	ht, ok := r.html[name]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", name)
	}
	var hb, tb bytes.Buffer
	if err := ht.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := r.text[name].Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
