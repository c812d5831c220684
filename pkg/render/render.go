// Package render wraps view functions that return a template context instead
// of writing a response themselves, cutting the boilerplate of template
// resolution and execution out of handlers.
package render

import (
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"reflect"
	"regexp"
	"runtime"
	"strings"
)

var (
	// ErrNoTemplate is returned when a view yields a context map but no
	// template name is configured and none can be derived from the view
	// function's name.
	ErrNoTemplate = errors.New("cannot derive a template name for an anonymous view; configure one explicitly")
	// ErrUnsupportedResult is returned for view results the renderer does
	// not know how to emit.
	ErrUnsupportedResult = errors.New("unsupported view result")
)

// Context is the data handed to the template. The incoming request is always
// injected under "Request".
type Context map[string]any

// Page couples a context with an explicit template name, overriding whatever
// the renderer was configured with.
type Page struct {
	Template string
	Context  Context
}

// View produces the data for a response. Returning a Context renders the
// configured (or derived) template; returning a Page renders the named one;
// returning nil means the view wrote the response itself; returning a string
// or []byte writes it through unchanged.
type View func(w http.ResponseWriter, r *http.Request) (any, error)

// Renderer executes views against a parsed template set.
type Renderer struct {
	templates *template.Template
}

// New builds a renderer over the given template set.
func New(templates *template.Template) *Renderer {
	return &Renderer{templates: templates}
}

// RenderTo wraps a view into an HTTP handler. When name is empty and the view
// returns a plain context, the template name is derived from the view
// function's name ("storyList" renders "storyList.html").
func (rn *Renderer) RenderTo(name string, view View) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := view(w, r)
		if err != nil {
			log.Printf("[RENDER] view failed: %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		switch result := out.(type) {
		case nil:
			// view wrote the response itself
		case Page:
			rn.execute(w, r, result.Template, result.Context)
		case Context:
			rn.renderContext(w, r, name, view, result)
		case map[string]any:
			rn.renderContext(w, r, name, view, result)
		case string:
			fmt.Fprint(w, result)
		case []byte:
			w.Write(result)
		default:
			log.Printf("[RENDER] %v: %T", ErrUnsupportedResult, out)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

func (rn *Renderer) renderContext(w http.ResponseWriter, r *http.Request, name string, view View, ctx map[string]any) {
	if name == "" {
		derived, err := TemplateNameFor(view)
		if err != nil {
			log.Printf("[RENDER] %v", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		name = derived
	}
	rn.execute(w, r, name, ctx)
}

func (rn *Renderer) execute(w http.ResponseWriter, r *http.Request, name string, ctx map[string]any) {
	data := make(Context, len(ctx)+1)
	for k, v := range ctx {
		data[k] = v
	}
	data["Request"] = r

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := rn.templates.ExecuteTemplate(w, name, data); err != nil {
		log.Printf("[RENDER] failed to execute template %q: %v", name, err)
	}
}

var anonymousFunc = regexp.MustCompile(`^func\d+(\.\d+)*$`)

// TemplateNameFor derives a template name from a view function's runtime
// name: the last path segment plus an ".html" extension. Anonymous functions
// have no usable name and yield ErrNoTemplate.
func TemplateNameFor(view View) (string, error) {
	fn := runtime.FuncForPC(reflect.ValueOf(view).Pointer())
	if fn == nil {
		return "", ErrNoTemplate
	}
	name := strings.TrimSuffix(fn.Name(), "-fm")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || anonymousFunc.MatchString(name) {
		return "", ErrNoTemplate
	}
	return name + ".html", nil
}
