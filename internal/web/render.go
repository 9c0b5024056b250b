package web

import (
	"embed"
	"html/template"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "login", "signup", "product_form", "product_list", "user_list", "demo_form"}

var funcs = template.FuncMap{
	// imageSrc lets stored data URIs through the src attribute filter
	"imageSrc": func(s string) template.URL {
		if strings.HasPrefix(s, "data:image/") {
			return template.URL(s)
		}
		return ""
	},
	"selected": func(a, b string) bool { return a == b },
}

// Renderer holds one template set per page, each combined with the layout
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, errors.Wrapf(err, "parse template %s", name)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return errors.Errorf("unknown page %s", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
