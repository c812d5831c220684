package middleware

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rpattn/facetview/internal/authorloader"
)

type ctxKey string

const authorLoaderKey ctxKey = "authorLoader"

// DataLoaderMiddleware attaches a per-request author loader to the context
func DataLoaderMiddleware(pool *pgxpool.Pool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := authorloader.NewAuthorLoader(pool)

			ctx := context.WithValue(r.Context(), authorLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuthorLoaderFromContext retrieves the author loader from context
func AuthorLoaderFromContext(ctx context.Context) *authorloader.AuthorLoader {
	if l, ok := ctx.Value(authorLoaderKey).(*authorloader.AuthorLoader); ok {
		return l
	}
	return nil
}
