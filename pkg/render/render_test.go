package render

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	tmpl := template.New("root")
	template.Must(tmpl.New("itemList.html").Parse("list: {{.Title}}"))
	template.Must(tmpl.New("detail.html").Parse("detail: {{.Title}} ({{.Request.URL.Path}})"))
	return New(tmpl)
}

// itemList is a named view so the template name can be derived from it.
func itemList(w http.ResponseWriter, r *http.Request) (any, error) {
	return Context{"Title": "derived"}, nil
}

func get(t *testing.T, handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRenderDerivedTemplateName(t *testing.T) {
	rec := get(t, testRenderer(t).RenderTo("", itemList), "/items")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "list: derived" {
		t.Fatalf("unexpected body: %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type: %q", ct)
	}
}

func TestRenderConfiguredTemplateName(t *testing.T) {
	view := func(w http.ResponseWriter, r *http.Request) (any, error) {
		return Context{"Title": "configured"}, nil
	}
	rec := get(t, testRenderer(t).RenderTo("detail.html", view), "/items/1")

	if got := rec.Body.String(); got != "detail: configured (/items/1)" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestRenderPageOverridesName(t *testing.T) {
	view := func(w http.ResponseWriter, r *http.Request) (any, error) {
		return Page{Template: "detail.html", Context: Context{"Title": "page"}}, nil
	}
	rec := get(t, testRenderer(t).RenderTo("itemList.html", view), "/x")

	if got := rec.Body.String(); got != "detail: page (/x)" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestRenderPlainMap(t *testing.T) {
	view := func(w http.ResponseWriter, r *http.Request) (any, error) {
		return map[string]any{"Title": "plain"}, nil
	}
	rec := get(t, testRenderer(t).RenderTo("itemList.html", view), "/x")

	if got := rec.Body.String(); got != "list: plain" {
		t.Fatalf("unexpected body: %q", got)
	}
}

func TestRenderNilPassesThrough(t *testing.T) {
	view := func(w http.ResponseWriter, r *http.Request) (any, error) {
		w.WriteHeader(http.StatusNoContent)
		return nil, nil
	}
	rec := get(t, testRenderer(t).RenderTo("", view), "/x")

	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("expected untouched 204, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRenderStringAndBytes(t *testing.T) {
	asString := func(w http.ResponseWriter, r *http.Request) (any, error) { return "raw text", nil }
	rec := get(t, testRenderer(t).RenderTo("", asString), "/x")
	if got := rec.Body.String(); got != "raw text" {
		t.Fatalf("unexpected body: %q", got)
	}

	asBytes := func(w http.ResponseWriter, r *http.Request) (any, error) { return []byte{1, 2, 3}, nil }
	rec = get(t, testRenderer(t).RenderTo("", asBytes), "/x")
	if got := rec.Body.Bytes(); len(got) != 3 || got[0] != 1 {
		t.Fatalf("unexpected body: %v", got)
	}
}

func TestRenderViewError(t *testing.T) {
	view := func(w http.ResponseWriter, r *http.Request) (any, error) {
		return nil, fmt.Errorf("boom")
	}
	rec := get(t, testRenderer(t).RenderTo("", view), "/x")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRenderUnsupportedResult(t *testing.T) {
	view := func(w http.ResponseWriter, r *http.Request) (any, error) { return 42, nil }
	rec := get(t, testRenderer(t).RenderTo("", view), "/x")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRenderAnonymousViewWithoutName(t *testing.T) {
	view := func(w http.ResponseWriter, r *http.Request) (any, error) {
		return Context{"Title": "x"}, nil
	}
	rec := get(t, testRenderer(t).RenderTo("", view), "/x")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for anonymous view without a configured name, got %d", rec.Code)
	}
}

func TestTemplateNameFor(t *testing.T) {
	name, err := TemplateNameFor(itemList)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "itemList.html" {
		t.Fatalf("expected itemList.html, got %q", name)
	}

	anon := func(w http.ResponseWriter, r *http.Request) (any, error) { return nil, nil }
	if _, err := TemplateNameFor(anon); !errors.Is(err, ErrNoTemplate) {
		t.Fatalf("expected ErrNoTemplate, got %v", err)
	}
}

type viewSet struct{}

// itemDetail exercises derivation for method values, whose runtime names carry
// a "-fm" suffix.
func (viewSet) itemDetail(w http.ResponseWriter, r *http.Request) (any, error) {
	return Context{}, nil
}

func TestTemplateNameForMethodValue(t *testing.T) {
	name, err := TemplateNameFor(viewSet{}.itemDetail)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "itemDetail.html" {
		t.Fatalf("expected itemDetail.html, got %q", name)
	}
}
