package demo

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/facetview/internal/export"
	"github.com/rpattn/facetview/internal/middleware"
	"github.com/rpattn/facetview/pkg/facet"
	"github.com/rpattn/facetview/pkg/queryset/postgres"
	"github.com/rpattn/facetview/pkg/render"
)

// Handler serves the story pages.
type Handler struct {
	pool     *pgxpool.Pool
	renderer *render.Renderer
	exporter *export.Service
}

func NewHandler(pool *pgxpool.Pool) (*Handler, error) {
	templates, err := template.ParseFS(TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Handler{
		pool:     pool,
		renderer: render.New(templates),
		exporter: export.NewService(export.WithSheetName("Stories")),
	}, nil
}

// Routes wires the demo endpoints.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.renderer.RenderTo("", h.storyList))
	mux.HandleFunc("GET /stories/{id}", h.renderer.RenderTo("", h.storyDetail))
	mux.HandleFunc("GET /export", h.renderer.RenderTo("", h.exportStories))
	return mux
}

// filterView is the per-filter navigation data handed to templates.
type filterView struct {
	Title     string
	Active    bool
	URLEncode string
	Choices   []facet.Choice
}

// storyRow is one rendered story list entry.
type storyRow struct {
	ID     string
	Title  string
	Author string
	Status string
	Paid   bool
}

func (h *Handler) storyList(w http.ResponseWriter, r *http.Request) (any, error) {
	ctx := r.Context()

	filters, err := facet.NewFilterList(r.URL.Query(), h.stories(), StoryFacets())
	if err != nil {
		return nil, err
	}

	objects, err := filters.ObjectList()
	if err != nil {
		return nil, err
	}
	records, err := objects.Records(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]storyRow, 0, len(records))
	for _, rec := range records {
		row := storyRow{ID: rec.Key(), Title: rec.Display()}
		if v, ok := rec.Get("status"); ok {
			row.Status, _ = v.(string)
		}
		if v, ok := rec.Get("paid"); ok {
			row.Paid, _ = v.(bool)
		}
		if author, err := h.resolveAuthor(ctx, rec); err == nil {
			row.Author = author
		}
		rows = append(rows, row)
	}

	nav := make([]filterView, 0, filters.Len())
	for _, f := range filters.Filters() {
		choices, err := f.Choices(ctx)
		if err != nil {
			return nil, err
		}
		nav = append(nav, filterView{
			Title:     f.Title(),
			Active:    f.Active(),
			URLEncode: f.URLEncode(),
			Choices:   choices,
		})
	}

	return render.Context{
		"Filters":     nav,
		"Stories":     rows,
		"HasActive":   len(filters.Active()) > 0,
		"QueryString": filters.URLEncode(),
	}, nil
}

func (h *Handler) storyDetail(w http.ResponseWriter, r *http.Request) (any, error) {
	ctx := r.Context()
	id := r.PathValue("id")

	var row storyRow
	err := h.pool.QueryRow(ctx,
		"SELECT id::text, title, status, paid FROM stories WHERE id::text = $1", id,
	).Scan(&row.ID, &row.Title, &row.Status, &row.Paid)
	if errors.Is(err, pgx.ErrNoRows) {
		http.NotFound(w, r)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load story %s: %w", id, err)
	}

	return render.Page{
		Template: "storyDetail.html",
		Context:  render.Context{"Story": row},
	}, nil
}

// exportStories writes the currently filtered list as an XLSX attachment.
func (h *Handler) exportStories(w http.ResponseWriter, r *http.Request) (any, error) {
	filters, err := facet.NewFilterList(r.URL.Query(), h.stories(), StoryFacets())
	if err != nil {
		return nil, err
	}
	objects, err := filters.ObjectList()
	if err != nil {
		return nil, err
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="stories.xlsx"`)
	if err := h.exporter.WriteXLSX(r.Context(), objects, []string{"status", "paid"}, w); err != nil {
		return nil, err
	}
	return nil, nil
}

func (h *Handler) stories() *postgres.Queryset {
	return postgres.New(h.pool, StoryTable)
}

// resolveAuthor looks up the story's author through the request-scoped batch
// loader when one is attached.
func (h *Handler) resolveAuthor(ctx context.Context, rec interface {
	Get(string) (any, bool)
}) (string, error) {
	raw, ok := rec.Get("author")
	if !ok || raw == nil {
		return "", nil
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", nil
	}

	loader := middleware.AuthorLoaderFromContext(ctx)
	if loader == nil {
		return "", nil
	}
	author, ok, err := loader.Load(ctx, id)
	if err != nil || !ok {
		return "", err
	}
	return author.Name, nil
}
